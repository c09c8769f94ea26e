package streamforwarder

import (
	"context"
	"log/slog"
	"os"
)

const defaultConcurrency = 32

// Handler forwards stream batches to the configured destinations. It is immutable once constructed and safe
// to use from concurrent invocations.
type Handler struct {
	destinations          []*Destination
	publisher             Publisher
	middlewares           []PublisherMiddleware
	bodySerializer        BodySerializer
	messageFilter         MessageFilter
	logPayloadTransformer LogPayloadTransformer
	logger                Logger
	concurrency           int
}

// HandlerOption configures a Handler. Options fail with a *ConfigurationError on invalid input.
type HandlerOption func(h *Handler) error

// WithPublisher sets the publisher every message goes through. It is required and can be set once.
func WithPublisher(publisher Publisher) HandlerOption {
	return func(h *Handler) error {
		if publisher == nil {
			return &ConfigurationError{Field: "publisher", Reason: "must not be nil"}
		}
		if h.publisher != nil {
			return &ConfigurationError{Field: "publisher", Reason: "cannot be configured more than once"}
		}
		h.publisher = publisher
		return nil
	}
}

// WithBodySerializer replaces the default body, the record exactly as received.
func WithBodySerializer(serializer BodySerializer) HandlerOption {
	return func(h *Handler) error {
		if serializer == nil {
			return &ConfigurationError{Field: "bodySerializer", Reason: "must be a function"}
		}
		h.bodySerializer = serializer
		return nil
	}
}

// WithMessageFilter decides per destination whether a serialized record is sent.
func WithMessageFilter(messageFilter MessageFilter) HandlerOption {
	return func(h *Handler) error {
		if messageFilter == nil {
			return &ConfigurationError{Field: "messageFilter", Reason: "must be a function"}
		}
		h.messageFilter = messageFilter
		return nil
	}
}

// WithLogPayloadTransformer changes how received records are rendered in the log.
func WithLogPayloadTransformer(transformer LogPayloadTransformer) HandlerOption {
	return func(h *Handler) error {
		if transformer == nil {
			return &ConfigurationError{Field: "logPayloadTransformer", Reason: "must be a function"}
		}
		h.logPayloadTransformer = transformer
		return nil
	}
}

// WithLogger replaces the default JSON logger writing to stdout.
func WithLogger(logger Logger) HandlerOption {
	return func(h *Handler) error {
		if logger == nil {
			return &ConfigurationError{Field: "logger", Reason: "must not be nil"}
		}
		h.logger = logger
		return nil
	}
}

// WithConcurrency limits how many publishes of a batch are in flight at once.
func WithConcurrency(n int) HandlerOption {
	return func(h *Handler) error {
		if n < 1 {
			return &ConfigurationError{Field: "concurrency", Reason: "must be at least 1"}
		}
		h.concurrency = n
		return nil
	}
}

// WithMiddleware wraps the publisher. The first middleware given is the outermost.
func WithMiddleware(middlewares ...PublisherMiddleware) HandlerOption {
	return func(h *Handler) error {
		for _, mw := range middlewares {
			if mw == nil {
				return &ConfigurationError{Field: "middleware", Reason: "must be a function"}
			}
		}
		h.middlewares = append(h.middlewares, middlewares...)
		return nil
	}
}

// NewHandler validates the destinations and options. Unknown event names, empty endpoints and endpoints the
// publisher cannot reach are rejected with a *ConfigurationError.
func NewHandler(destinations []DestinationConfig, opts ...HandlerOption) (*Handler, error) {
	if len(destinations) == 0 {
		return nil, &ConfigurationError{Field: "destinations", Reason: "at least one destination is required"}
	}
	h := &Handler{
		bodySerializer: RawBodySerializer,
		messageFilter:  acceptAll,
		concurrency:    defaultConcurrency,
	}
	for _, apply := range opts {
		if err := apply(h); err != nil {
			return nil, err
		}
	}
	if h.publisher == nil {
		return nil, &ConfigurationError{Field: "publisher", Reason: "is required"}
	}
	if h.logger == nil {
		h.logger = NewJSONLogger(os.Stdout, "stream-forwarder", slog.LevelInfo)
	}
	resolver, canResolve := h.publisher.(EndpointResolver)
	for _, config := range destinations {
		destination, err := NewDestination(config)
		if err != nil {
			return nil, err
		}
		if canResolve && !resolver.Supports(destination.Endpoint()) {
			return nil, &ConfigurationError{
				Field:  "endpoint",
				Reason: "no publisher can reach " + destination.Endpoint(),
			}
		}
		h.destinations = append(h.destinations, destination)
	}
	h.publisher = chain(h.publisher, h.middlewares)
	for _, d := range h.destinations {
		h.logger.Info("forwarding stream records",
			slog.String("endpoint", d.Endpoint()),
			slog.String("event_names", joinEventNames(d.EventNames())),
		)
	}
	return h, nil
}

// Destinations returns the validated destinations in configuration order.
func (h *Handler) Destinations() []*Destination {
	destinations := make([]*Destination, len(h.destinations))
	copy(destinations, h.destinations)
	return destinations
}

// Handle has the signature expected by the Lambda runtime: a returned error marks the whole batch as failed
// so that it is delivered again.
func (h *Handler) Handle(ctx context.Context, batch Batch) (string, error) {
	result := h.ProcessBatch(ctx, batch.Records)
	if !result.Succeeded() {
		h.logger.Error("failed processing records",
			slog.Int("records", result.Processed),
			slog.Int("failed", result.Failed),
			slog.Any("error", result.Err),
		)
		return "", result.Err
	}
	return result.Message(), nil
}
