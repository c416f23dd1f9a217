// Package promtracer records edgefsm transitions as Prometheus metrics.
package promtracer

import (
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/librescoot/edgefsm"
)

var (
	_ edgefsm.Tracer        = (*Tracer)(nil)
	_ edgefsm.FailureTracer = (*Tracer)(nil)
)

type inflight struct {
	started time.Time
	failed  bool
}

// Tracer counts transitions per machine class and target state and
// observes how long entry logic takes
type Tracer struct {
	transitions *prometheus.CounterVec
	failures    *prometheus.CounterVec
	duration    *prometheus.HistogramVec
	inFlight    *prometheus.GaugeVec
	now         func() time.Time

	mu      sync.Mutex
	pending map[string]inflight
}

// Option is a functional option for configuring a Tracer
type Option func(*options)

type options struct {
	namespace string
	buckets   []float64
	now       func() time.Time
}

// WithNamespace sets the metric namespace (default "edgefsm")
func WithNamespace(ns string) Option {
	return func(o *options) {
		o.namespace = ns
	}
}

// WithBuckets sets the histogram buckets of the duration metric
func WithBuckets(buckets []float64) Option {
	return func(o *options) {
		o.buckets = buckets
	}
}

// WithClock sets the time source used to measure durations
func WithClock(now func() time.Time) Option {
	return func(o *options) {
		o.now = now
	}
}

// New creates a Tracer and registers its collectors with reg
func New(reg prometheus.Registerer, opts ...Option) (*Tracer, error) {
	o := options{
		namespace: "edgefsm",
		buckets:   prometheus.ExponentialBuckets(0.00001, 4, 10),
		now:       time.Now,
	}
	for _, opt := range opts {
		opt(&o)
	}

	t := &Tracer{
		transitions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: o.namespace,
			Name:      "transitions_total",
			Help:      "Completed state transitions by machine class and entered state",
		}, []string{"class", "to"}),
		failures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: o.namespace,
			Name:      "transition_failures_total",
			Help:      "Transitions that failed the machine",
		}, []string{"class", "to"}),
		duration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: o.namespace,
			Name:      "transition_duration_seconds",
			Help:      "Time spent releasing resources and running entry logic",
			Buckets:   o.buckets,
		}, []string{"class"}),
		inFlight: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: o.namespace,
			Name:      "transitions_in_flight",
			Help:      "Transitions currently executing",
		}, []string{"class"}),
		now:     o.now,
		pending: make(map[string]inflight),
	}

	for _, c := range []prometheus.Collector{t.transitions, t.failures, t.duration, t.inFlight} {
		if err := reg.Register(c); err != nil {
			return nil, err
		}
	}
	return t, nil
}

func (t *Tracer) TransitionStart(class, machineID, from, to string) {
	t.mu.Lock()
	t.pending[machineID] = inflight{started: t.now()}
	t.mu.Unlock()
	t.inFlight.WithLabelValues(class).Inc()
}

func (t *Tracer) TransitionFailed(class, machineID, from, to string, err error) {
	t.mu.Lock()
	if p, ok := t.pending[machineID]; ok {
		p.failed = true
		t.pending[machineID] = p
	}
	t.mu.Unlock()
}

func (t *Tracer) TransitionEnd(class, machineID, from, to string) {
	t.mu.Lock()
	p, ok := t.pending[machineID]
	delete(t.pending, machineID)
	t.mu.Unlock()
	if !ok {
		return
	}

	t.inFlight.WithLabelValues(class).Dec()
	t.duration.WithLabelValues(class).Observe(t.now().Sub(p.started).Seconds())
	if p.failed {
		t.failures.WithLabelValues(class, to).Inc()
		return
	}
	t.transitions.WithLabelValues(class, to).Inc()
}
