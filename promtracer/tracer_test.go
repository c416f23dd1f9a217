package promtracer_test

import (
	"errors"
	"io"
	"log/slog"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/librescoot/edgefsm"
	"github.com/librescoot/edgefsm/promtracer"
)

func TestTransitionMetrics(t *testing.T) {
	reg := prometheus.NewRegistry()
	tracer, err := promtracer.New(reg)
	require.NoError(t, err)

	def := edgefsm.NewDefinition("door").
		State("open", func(h *edgefsm.Handle) error { return nil }).
		State("closed", func(h *edgefsm.Handle) error { return nil }).
		State("jammed", func(h *edgefsm.Handle) error { return errors.New("stuck") }).
		Initial("open")

	m, err := def.Build(
		edgefsm.WithTracer(tracer),
		edgefsm.WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil))),
	)
	require.NoError(t, err)
	require.NoError(t, m.Goto("closed"))
	require.NoError(t, m.Goto("open"))
	require.Error(t, m.Goto("jammed"))

	expected := `
# HELP edgefsm_transitions_total Completed state transitions by machine class and entered state
# TYPE edgefsm_transitions_total counter
edgefsm_transitions_total{class="door",to="closed"} 1
edgefsm_transitions_total{class="door",to="open"} 2
# HELP edgefsm_transition_failures_total Transitions that failed the machine
# TYPE edgefsm_transition_failures_total counter
edgefsm_transition_failures_total{class="door",to="jammed"} 1
# HELP edgefsm_transitions_in_flight Transitions currently executing
# TYPE edgefsm_transitions_in_flight gauge
edgefsm_transitions_in_flight{class="door"} 0
`
	assert.NoError(t, testutil.GatherAndCompare(reg, strings.NewReader(expected),
		"edgefsm_transitions_total",
		"edgefsm_transition_failures_total",
		"edgefsm_transitions_in_flight",
	))
	count, err := testutil.GatherAndCount(reg, "edgefsm_transition_duration_seconds")
	require.NoError(t, err)
	assert.Equal(t, 1, count)
}

func TestDuration(t *testing.T) {
	reg := prometheus.NewRegistry()
	now := time.Unix(0, 0)
	tracer, err := promtracer.New(reg,
		promtracer.WithNamespace("door"),
		promtracer.WithBuckets([]float64{1, 5}),
		promtracer.WithClock(func() time.Time { return now }),
	)
	require.NoError(t, err)

	tracer.TransitionStart("door", "m1", "open", "closed")
	now = now.Add(2 * time.Second)
	tracer.TransitionEnd("door", "m1", "open", "closed")

	expected := `
# HELP door_transition_duration_seconds Time spent releasing resources and running entry logic
# TYPE door_transition_duration_seconds histogram
door_transition_duration_seconds_bucket{class="door",le="1"} 0
door_transition_duration_seconds_bucket{class="door",le="5"} 1
door_transition_duration_seconds_bucket{class="door",le="+Inf"} 1
door_transition_duration_seconds_sum{class="door"} 2
door_transition_duration_seconds_count{class="door"} 1
`
	assert.NoError(t, testutil.GatherAndCompare(reg, strings.NewReader(expected), "door_transition_duration_seconds"))
}

func TestDuplicateRegistration(t *testing.T) {
	reg := prometheus.NewRegistry()
	_, err := promtracer.New(reg)
	require.NoError(t, err)

	_, err = promtracer.New(reg)
	var are prometheus.AlreadyRegisteredError
	assert.ErrorAs(t, err, &are)
}
