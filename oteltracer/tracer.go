// Package oteltracer reports edgefsm transitions as OpenTelemetry spans.
package oteltracer

import (
	"context"
	"sync"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/librescoot/edgefsm"
)

const (
	instrumentationName = "github.com/librescoot/edgefsm"
	spanName            = "fsm.transition"
)

// Attribute keys set on every transition span
const (
	AttrClass     = attribute.Key("fsm.class")
	AttrMachineID = attribute.Key("fsm.machine_id")
	AttrFrom      = attribute.Key("fsm.from")
	AttrTo        = attribute.Key("fsm.to")
)

var (
	_ edgefsm.Tracer        = (*Tracer)(nil)
	_ edgefsm.FailureTracer = (*Tracer)(nil)
)

// Tracer opens one span per transition. Transitions of a machine never
// overlap, so spans are tracked per machine id.
type Tracer struct {
	tracer trace.Tracer
	parent context.Context

	mu    sync.Mutex
	spans map[string]trace.Span
}

// Option is a functional option for configuring a Tracer
type Option func(*Tracer)

// WithTracerProvider sets the provider spans are created from. The global
// provider is used by default.
func WithTracerProvider(tp trace.TracerProvider) Option {
	return func(t *Tracer) {
		t.tracer = tp.Tracer(instrumentationName)
	}
}

// WithParent makes every transition span a child of the span in ctx
func WithParent(ctx context.Context) Option {
	return func(t *Tracer) {
		t.parent = ctx
	}
}

// New creates a Tracer
func New(opts ...Option) *Tracer {
	t := &Tracer{
		parent: context.Background(),
		spans:  make(map[string]trace.Span),
	}
	for _, opt := range opts {
		opt(t)
	}
	if t.tracer == nil {
		t.tracer = otel.GetTracerProvider().Tracer(instrumentationName)
	}
	return t
}

func (t *Tracer) TransitionStart(class, machineID, from, to string) {
	_, span := t.tracer.Start(t.parent, spanName,
		trace.WithSpanKind(trace.SpanKindInternal),
		trace.WithAttributes(
			AttrClass.String(class),
			AttrMachineID.String(machineID),
			AttrFrom.String(from),
			AttrTo.String(to),
		),
	)

	t.mu.Lock()
	if stale, ok := t.spans[machineID]; ok {
		stale.End()
	}
	t.spans[machineID] = span
	t.mu.Unlock()
}

func (t *Tracer) TransitionFailed(class, machineID, from, to string, err error) {
	t.mu.Lock()
	span, ok := t.spans[machineID]
	t.mu.Unlock()
	if !ok {
		return
	}
	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())
}

func (t *Tracer) TransitionEnd(class, machineID, from, to string) {
	t.mu.Lock()
	span, ok := t.spans[machineID]
	delete(t.spans, machineID)
	t.mu.Unlock()
	if ok {
		span.End()
	}
}
