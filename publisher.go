package streamforwarder

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"
)

// Publisher sends one message to the queue identified by endpoint. Implementations must be safe for
// concurrent use.
type Publisher interface {
	Publish(ctx context.Context, endpoint string, msg *Message) error
}

type PublisherFunc func(ctx context.Context, endpoint string, msg *Message) error

func (f PublisherFunc) Publish(ctx context.Context, endpoint string, msg *Message) error {
	return f(ctx, endpoint, msg)
}

// EndpointResolver is implemented by publishers that can tell up front whether they are able to reach an
// endpoint. Handlers use it to reject unreachable destinations at construction time.
type EndpointResolver interface {
	Supports(endpoint string) bool
}

const (
	SchemeSQS      = "sqs"
	SchemeHTTP     = "http"
	SchemeKafka    = "kafka"
	SchemeRabbitMQ = "rabbitmq"
	SchemePubSub   = "pubsub"
	SchemePostgres = "postgres"
)

// EndpointScheme classifies an endpoint. SQS queue URLs are plain https URLs, so they are recognised by
// their host. Any other http(s) URL is a webhook.
func EndpointScheme(endpoint string) (string, error) {
	u, err := url.Parse(endpoint)
	if err != nil {
		return "", fmt.Errorf("parse endpoint: %w", err)
	}
	scheme := strings.ToLower(u.Scheme)
	switch scheme {
	case "":
		return "", fmt.Errorf("endpoint %q has no scheme", endpoint)
	case "http", "https":
		if isSQSHost(strings.ToLower(u.Hostname())) {
			return SchemeSQS, nil
		}
		return SchemeHTTP, nil
	case "postgresql":
		return SchemePostgres, nil
	}
	return scheme, nil
}

// isSQSHost recognises the regional (sqs.<region>, sqs-fips.<region>), legacy (queue.amazonaws.com,
// <region>.queue.amazonaws.com) and VPC endpoint (*.sqs.<region>.vpce.amazonaws.com) queue hosts.
func isSQSHost(host string) bool {
	switch {
	case host == "queue.amazonaws.com", strings.HasSuffix(host, ".queue.amazonaws.com"):
		return true
	case strings.HasSuffix(host, ".vpce.amazonaws.com"):
		return strings.Contains(host, ".sqs.")
	case strings.HasPrefix(host, "sqs."):
		return true
	case strings.HasPrefix(host, "sqs-"):
		return strings.HasSuffix(host, ".amazonaws.com") || strings.HasSuffix(host, ".amazonaws.com.cn")
	}
	return false
}

// endpointTarget returns the host and the path (without the leading slash) of a scheme://target/rest
// endpoint.
func endpointTarget(endpoint string) (string, string, error) {
	u, err := url.Parse(endpoint)
	if err != nil {
		return "", "", fmt.Errorf("parse endpoint: %w", err)
	}
	if u.Host == "" {
		return "", "", fmt.Errorf("endpoint %q has no target", endpoint)
	}
	return u.Host, strings.TrimPrefix(u.Path, "/"), nil
}

// PublisherMux dispatches each publish to the publisher registered for the endpoint's scheme.
type PublisherMux struct {
	publishers map[string]Publisher
}

type PublisherMuxOption func(m *PublisherMux) error

func MuxWithPublisher(scheme string, publisher Publisher) PublisherMuxOption {
	return func(m *PublisherMux) error {
		if publisher == nil {
			return errors.New("publisher must not be nil")
		}
		if _, ok := m.publishers[scheme]; ok {
			return fmt.Errorf("publisher for %q registered more than once", scheme)
		}
		m.publishers[scheme] = publisher
		return nil
	}
}

func NewPublisherMux(opts ...PublisherMuxOption) (*PublisherMux, error) {
	m := &PublisherMux{publishers: map[string]Publisher{}}
	for _, apply := range opts {
		if err := apply(m); err != nil {
			return nil, err
		}
	}
	if len(m.publishers) == 0 {
		return nil, errors.New("at least one publisher must be registered")
	}
	return m, nil
}

func (m *PublisherMux) lookup(endpoint string) (Publisher, error) {
	scheme, err := EndpointScheme(endpoint)
	if err != nil {
		return nil, err
	}
	publisher, ok := m.publishers[scheme]
	if !ok {
		return nil, fmt.Errorf("no publisher registered for %q endpoints", scheme)
	}
	return publisher, nil
}

func (m *PublisherMux) Supports(endpoint string) bool {
	publisher, err := m.lookup(endpoint)
	if err != nil {
		return false
	}
	if resolver, ok := publisher.(EndpointResolver); ok {
		return resolver.Supports(endpoint)
	}
	return true
}

func (m *PublisherMux) Publish(ctx context.Context, endpoint string, msg *Message) error {
	publisher, err := m.lookup(endpoint)
	if err != nil {
		return err
	}
	return publisher.Publish(ctx, endpoint, msg)
}
