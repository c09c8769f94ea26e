package streamforwarder

import (
	"context"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

type PublisherMiddleware func(next Publisher) Publisher

const tracerName = "github.com/markusylisiurunen/go-stream-forwarder"

// WithTracing wraps every publish in a span. A nil tracer uses the global tracer provider.
func WithTracing(tracer trace.Tracer) PublisherMiddleware {
	if tracer == nil {
		tracer = otel.Tracer(tracerName)
	}
	return func(next Publisher) Publisher {
		return PublisherFunc(func(ctx context.Context, endpoint string, msg *Message) error {
			ctx, span := tracer.Start(ctx, "publish",
				trace.WithSpanKind(trace.SpanKindProducer),
				trace.WithAttributes(
					attribute.String("record.id", msg.RecordID),
					attribute.String("record.event_name", string(msg.EventName)),
					attribute.String("destination.endpoint", endpoint),
					attribute.Int("message.size", len(msg.Body)),
				),
			)
			defer span.End()
			err := next.Publish(ctx, endpoint, msg)
			if err != nil {
				span.RecordError(err)
				span.SetStatus(codes.Error, err.Error())
			}
			return err
		})
	}
}

// WithPublishTimeout bounds a single publish call. The batch context still applies on top of it.
func WithPublishTimeout(timeout time.Duration) PublisherMiddleware {
	return func(next Publisher) Publisher {
		return PublisherFunc(func(ctx context.Context, endpoint string, msg *Message) error {
			ctx, cancel := context.WithTimeout(ctx, timeout)
			defer cancel()
			return next.Publish(ctx, endpoint, msg)
		})
	}
}

// chain applies middlewares so that the first one is the outermost.
func chain(publisher Publisher, middlewares []PublisherMiddleware) Publisher {
	for i := len(middlewares) - 1; i >= 0; i -= 1 {
		publisher = middlewares[i](publisher)
	}
	return publisher
}
