package streamforwarder

import (
	"context"
	"time"

	"github.com/segmentio/kafka-go"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/propagation"
)

type kafkaWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// KafkaPublisher writes messages to the topic named by a kafka://<topic> endpoint.
type KafkaPublisher struct {
	writer kafkaWriter
}

type kafkaPublisherOption func(w *kafka.Writer)

// KafkaPublisherWithBatchTimeout sets how long a write waits for more messages before it is flushed.
func KafkaPublisherWithBatchTimeout(timeout time.Duration) kafkaPublisherOption {
	return func(w *kafka.Writer) {
		if timeout > 0 {
			w.BatchTimeout = timeout
		}
	}
}

func NewKafkaPublisher(brokers []string, options ...kafkaPublisherOption) *KafkaPublisher {
	writer := &kafka.Writer{
		Addr:         kafka.TCP(brokers...),
		Balancer:     &kafka.Hash{},
		RequiredAcks: kafka.RequireAll,
		Async:        false,
		BatchTimeout: 10 * time.Millisecond,
	}
	for _, apply := range options {
		apply(writer)
	}
	return &KafkaPublisher{writer: writer}
}

func (p *KafkaPublisher) setWriter(writer kafkaWriter) {
	p.writer = writer
}

func (p *KafkaPublisher) Supports(endpoint string) bool {
	_, _, err := endpointTarget(endpoint)
	return err == nil
}

func (p *KafkaPublisher) Publish(ctx context.Context, endpoint string, msg *Message) error {
	topic, _, err := endpointTarget(endpoint)
	if err != nil {
		return err
	}
	headers := []kafka.Header{
		{Key: "event_id", Value: []byte(msg.RecordID)},
		{Key: "event_name", Value: []byte(msg.EventName)},
	}
	return p.writer.WriteMessages(ctx, kafka.Message{
		Topic:   topic,
		Key:     []byte(msg.RecordID),
		Value:   msg.Body,
		Headers: injectTraceHeaders(ctx, headers),
	})
}

func (p *KafkaPublisher) Close() error {
	return p.writer.Close()
}

// injectTraceHeaders appends W3C trace context headers using the global propagator.
func injectTraceHeaders(ctx context.Context, headers []kafka.Header) []kafka.Header {
	carrier := &kafkaHeaderCarrier{headers: headers}
	otel.GetTextMapPropagator().Inject(ctx, carrier)
	return carrier.headers
}

type kafkaHeaderCarrier struct {
	headers []kafka.Header
}

func (c *kafkaHeaderCarrier) Get(key string) string {
	for _, h := range c.headers {
		if h.Key == key {
			return string(h.Value)
		}
	}
	return ""
}

func (c *kafkaHeaderCarrier) Keys() []string {
	keys := make([]string, 0, len(c.headers))
	for _, h := range c.headers {
		keys = append(keys, h.Key)
	}
	return keys
}

func (c *kafkaHeaderCarrier) Set(key string, value string) {
	for i := range c.headers {
		if c.headers[i].Key == key {
			c.headers[i].Value = []byte(value)
			return
		}
	}
	c.headers = append(c.headers, kafka.Header{Key: key, Value: []byte(value)})
}

var _ propagation.TextMapCarrier = &kafkaHeaderCarrier{}
