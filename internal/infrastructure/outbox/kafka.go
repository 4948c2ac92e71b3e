package outbox

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/segmentio/kafka-go"
	"go.opentelemetry.io/otel/propagation"

	domoutbox "github.com/pantrychef/pantry/internal/domain/outbox"
	"github.com/pantrychef/pantry/internal/observability"
	"github.com/pantrychef/pantry/internal/observability/logctx"
)

const kafkaPeer = "kafka"

// MessageWriter is the part of *kafka.Writer the forwarder needs.
type MessageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
}

// KafkaForwarder copies bus events onto a Kafka topic as JSON so other
// services can follow cooks and depletions.
type KafkaForwarder struct {
	writer     MessageWriter
	propagator propagation.TextMapPropagator
	log        observability.Logger
	extCounter observability.Counter
	extHist    observability.Histogram
}

func NewKafkaWriter(brokers []string, topic string) *kafka.Writer {
	return &kafka.Writer{
		Addr:         kafka.TCP(brokers...),
		Topic:        topic,
		Balancer:     &kafka.Hash{},
		BatchTimeout: 10 * time.Millisecond,
		BatchSize:    100,
	}
}

func NewKafkaForwarder(writer MessageWriter, tel observability.Observability) *KafkaForwarder {
	if tel == nil {
		tel = observability.Nop()
	}
	return &KafkaForwarder{
		writer:     writer,
		propagator: propagation.TraceContext{},
		log:        tel.Logger().With(observability.F("component", "kafka_forwarder")),
		extCounter: tel.Metrics().Counter(observability.MExternalRequests),
		extHist:    tel.Metrics().Histogram(observability.MExternalRequestDuration),
	}
}

// Attach subscribes the forwarder to each named event.
func (f *KafkaForwarder) Attach(sub domoutbox.Subscriber, eventNames ...string) {
	for _, name := range eventNames {
		sub.Subscribe(name, f.Forward)
	}
}

type envelope struct {
	Event       string    `json:"event"`
	Payload     any       `json:"payload"`
	ForwardedAt time.Time `json:"forwardedAt"`
}

// Forward writes one event. Messages are keyed by user so a user's events stay ordered.
func (f *KafkaForwarder) Forward(ctx context.Context, e domoutbox.Event) error {
	name := e.EventName()
	payload, err := json.Marshal(envelope{Event: name, Payload: e, ForwardedAt: time.Now().UTC()})
	if err != nil {
		return fmt.Errorf("outbox: kafka encode %s: %w", name, err)
	}

	msg := kafka.Message{
		Key:     []byte(userKey(e)),
		Value:   payload,
		Headers: []kafka.Header{{Key: "event", Value: []byte(name)}},
	}
	carrier := headerCarrier{msg: &msg}
	f.propagator.Inject(ctx, carrier)

	start := time.Now()
	err = f.writer.WriteMessages(ctx, msg)
	outcome := "success"
	if err != nil {
		outcome = "error"
	}
	f.extCounter.Add(1,
		observability.L("peer", kafkaPeer),
		observability.L("endpoint", name),
		observability.L("outcome", outcome),
	)
	f.extHist.Observe(time.Since(start).Seconds(),
		observability.L("peer", kafkaPeer),
		observability.L("endpoint", name),
	)
	if err != nil {
		logctx.FromOr(ctx, f.log).Warn("kafka_forward_failed",
			observability.F("event", name),
			observability.F("error", err),
		)
		return fmt.Errorf("outbox: kafka write %s: %w", name, err)
	}
	return nil
}

type userKeyed interface {
	PartitionKey() string
}

func userKey(e domoutbox.Event) string {
	if k, ok := e.(userKeyed); ok {
		return k.PartitionKey()
	}
	return e.EventName()
}

// headerCarrier adapts kafka headers to the otel TextMapCarrier.
type headerCarrier struct {
	msg *kafka.Message
}

func (c headerCarrier) Get(key string) string {
	for _, h := range c.msg.Headers {
		if h.Key == key {
			return string(h.Value)
		}
	}
	return ""
}

func (c headerCarrier) Set(key, value string) {
	for i, h := range c.msg.Headers {
		if h.Key == key {
			c.msg.Headers[i].Value = []byte(value)
			return
		}
	}
	c.msg.Headers = append(c.msg.Headers, kafka.Header{Key: key, Value: []byte(value)})
}

func (c headerCarrier) Keys() []string {
	keys := make([]string, 0, len(c.msg.Headers))
	for _, h := range c.msg.Headers {
		keys = append(keys, h.Key)
	}
	return keys
}
