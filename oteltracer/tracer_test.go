package oteltracer_test

import (
	"errors"
	"io"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"

	"github.com/librescoot/edgefsm"
	"github.com/librescoot/edgefsm/oteltracer"
)

func newRecorder() (*tracetest.SpanRecorder, *oteltracer.Tracer) {
	recorder := tracetest.NewSpanRecorder()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(recorder))
	return recorder, oteltracer.New(oteltracer.WithTracerProvider(tp))
}

func attrs(span sdktrace.ReadOnlySpan) map[attribute.Key]string {
	out := make(map[attribute.Key]string)
	for _, kv := range span.Attributes() {
		out[kv.Key] = kv.Value.AsString()
	}
	return out
}

func TestTransitionSpans(t *testing.T) {
	recorder, tracer := newRecorder()

	def := edgefsm.NewDefinition("door").
		State("open", func(h *edgefsm.Handle) error { return nil }).
		State("closed", func(h *edgefsm.Handle) error { return nil }).
		Initial("open")

	m, err := def.Build(
		edgefsm.WithTracer(tracer),
		edgefsm.WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil))),
		edgefsm.WithIDGenerator(func() string { return "door-1" }),
	)
	require.NoError(t, err)
	require.NoError(t, m.Goto("closed"))

	spans := recorder.Ended()
	require.Len(t, spans, 2)

	assert.Equal(t, "fsm.transition", spans[1].Name())
	assert.Equal(t, map[attribute.Key]string{
		oteltracer.AttrClass:     "door",
		oteltracer.AttrMachineID: "door-1",
		oteltracer.AttrFrom:      "open",
		oteltracer.AttrTo:        "closed",
	}, attrs(spans[1]))
	assert.Equal(t, "", attrs(spans[0])[oteltracer.AttrFrom])
	assert.Equal(t, codes.Unset, spans[1].Status().Code)
	assert.False(t, spans[0].Parent().IsValid())
}

func TestFailedTransitionSpan(t *testing.T) {
	recorder, tracer := newRecorder()

	tracer.TransitionStart("door", "door-1", "open", "jammed")
	tracer.TransitionFailed("door", "door-1", "open", "jammed", errors.New("stuck"))
	tracer.TransitionEnd("door", "door-1", "open", "jammed")

	spans := recorder.Ended()
	require.Len(t, spans, 1)
	assert.Equal(t, codes.Error, spans[0].Status().Code)
	assert.Equal(t, "stuck", spans[0].Status().Description)
	require.Len(t, spans[0].Events(), 1)
	assert.Equal(t, "exception", spans[0].Events()[0].Name)
}

func TestUnmatchedCallsAreIgnored(t *testing.T) {
	recorder, tracer := newRecorder()

	tracer.TransitionFailed("door", "unknown", "", "open", errors.New("x"))
	tracer.TransitionEnd("door", "unknown", "", "open")
	assert.Empty(t, recorder.Ended())
}
