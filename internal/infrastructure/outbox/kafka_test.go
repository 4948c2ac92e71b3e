package outbox

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/trace"

	"github.com/pantrychef/pantry/internal/domain/grocery"
)

type recordingWriter struct {
	msgs []kafka.Message
	err  error
}

func (w *recordingWriter) WriteMessages(_ context.Context, msgs ...kafka.Message) error {
	if w.err != nil {
		return w.err
	}
	w.msgs = append(w.msgs, msgs...)
	return nil
}

func TestKafkaForwarder_WritesKeyedJSON(t *testing.T) {
	w := &recordingWriter{}
	f := NewKafkaForwarder(w, nil)

	traceID, _ := trace.TraceIDFromHex("4bf92f3577b34da6a3ce929d0e0e4736")
	spanID, _ := trace.SpanIDFromHex("00f067aa0ba902b7")
	ctx := trace.ContextWithSpanContext(context.Background(), trace.NewSpanContext(trace.SpanContextConfig{
		TraceID:    traceID,
		SpanID:     spanID,
		TraceFlags: trace.FlagsSampled,
	}))

	evt := grocery.DepletedEvent{UserID: "u1", ItemID: "i1", Name: "Eggs", Unit: "pieces"}
	require.NoError(t, f.Forward(ctx, evt))
	require.Len(t, w.msgs, 1)

	msg := w.msgs[0]
	assert.Equal(t, "u1", string(msg.Key))
	carrier := headerCarrier{msg: &msg}
	assert.Equal(t, "grocery.depleted", carrier.Get("event"))
	assert.Contains(t, carrier.Get("traceparent"), "4bf92f3577b34da6a3ce929d0e0e4736")

	var body struct {
		Event   string         `json:"event"`
		Payload map[string]any `json:"payload"`
	}
	require.NoError(t, json.Unmarshal(msg.Value, &body))
	assert.Equal(t, "grocery.depleted", body.Event)
	assert.Equal(t, "Eggs", body.Payload["name"])
}

func TestKafkaForwarder_ReportsWriteErrors(t *testing.T) {
	w := &recordingWriter{err: errors.New("broker down")}
	f := NewKafkaForwarder(w, nil)
	err := f.Forward(context.Background(), named("x.y"))
	assert.ErrorContains(t, err, "broker down")
}
