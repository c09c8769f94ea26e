package streamforwarder

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEndpointScheme(t *testing.T) {
	tests := []struct {
		endpoint string
		want     string
		wantErr  bool
	}{
		{endpoint: "https://sqs.eu-west-1.amazonaws.com/123456789012/orders", want: SchemeSQS},
		{endpoint: "https://eu-west-1.queue.amazonaws.com/123456789012/orders", want: SchemeSQS},
		{endpoint: "https://queue.amazonaws.com/123456789012/orders", want: SchemeSQS},
		{endpoint: "https://sqs-fips.us-gov-west-1.amazonaws.com/123456789012/orders", want: SchemeSQS},
		{endpoint: "https://vpce-0abc-xyz.sqs.us-east-1.vpce.amazonaws.com/123456789012/orders", want: SchemeSQS},
		{endpoint: "https://sqs.cn-north-1.amazonaws.com.cn/123456789012/orders", want: SchemeSQS},
		{endpoint: "https://hooks.example.com/orders", want: SchemeHTTP},
		{endpoint: "https://sqs-bridge.example.com/orders", want: SchemeHTTP},
		{endpoint: "https://vpce-0abc-xyz.execute-api.us-east-1.vpce.amazonaws.com/orders", want: SchemeHTTP},
		{endpoint: "http://localhost:8080/events", want: SchemeHTTP},
		{endpoint: "kafka://orders", want: SchemeKafka},
		{endpoint: "rabbitmq://orders/created", want: SchemeRabbitMQ},
		{endpoint: "pubsub://orders", want: SchemePubSub},
		{endpoint: "postgres://orders", want: SchemePostgres},
		{endpoint: "postgresql://orders", want: SchemePostgres},
		{endpoint: "orders", wantErr: true},
		{endpoint: "://broken", wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.endpoint, func(t *testing.T) {
			got, err := EndpointScheme(tt.endpoint)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			assert.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestPublisherMux(t *testing.T) {
	t.Run("requires at least one publisher", func(t *testing.T) {
		_, err := NewPublisherMux()
		assert.Error(t, err)
	})

	t.Run("does not allow registering a scheme twice", func(t *testing.T) {
		_, err := NewPublisherMux(
			MuxWithPublisher(SchemeKafka, newAcceptingPublisher()),
			MuxWithPublisher(SchemeKafka, newAcceptingPublisher()),
		)
		assert.Error(t, err)
	})

	t.Run("dispatches by scheme", func(t *testing.T) {
		kafka, sqs := newAcceptingPublisher(), newAcceptingPublisher()
		mux, err := NewPublisherMux(
			MuxWithPublisher(SchemeKafka, kafka),
			MuxWithPublisher(SchemeSQS, sqs),
		)
		require.NoError(t, err)
		queueURL := "https://sqs.eu-west-1.amazonaws.com/123456789012/orders"
		msg := &Message{RecordID: "1", EventName: EventInsert, Body: []byte(`{}`)}
		assert.NoError(t, mux.Publish(context.Background(), "kafka://orders", msg))
		assert.NoError(t, mux.Publish(context.Background(), queueURL, msg))
		assert.Len(t, kafka.callsTo("kafka://orders"), 1)
		assert.Len(t, sqs.callsTo(queueURL), 1)
		assert.Error(t, mux.Publish(context.Background(), "pubsub://orders", msg))
	})

	t.Run("asks the registered publisher whether it supports an endpoint", func(t *testing.T) {
		mux, err := NewPublisherMux(MuxWithPublisher(SchemeKafka, &KafkaPublisher{}))
		require.NoError(t, err)
		assert.True(t, mux.Supports("kafka://orders"))
		assert.False(t, mux.Supports("kafka:///"))
		assert.False(t, mux.Supports("https://hooks.example.com"))
	})
}
