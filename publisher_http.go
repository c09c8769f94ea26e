package streamforwarder

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
)

type httpClient interface {
	Do(req *http.Request) (*http.Response, error)
}

// HTTPPublisher posts each message body to the endpoint URL. Requests carry the trace context of the
// publish.
type HTTPPublisher struct {
	client httpClient
}

func NewHTTPPublisher(timeout time.Duration) *HTTPPublisher {
	return &HTTPPublisher{
		client: &http.Client{
			Timeout:   timeout,
			Transport: otelhttp.NewTransport(http.DefaultTransport),
		},
	}
}

func (p *HTTPPublisher) setClient(client httpClient) {
	p.client = client
}

func (p *HTTPPublisher) Publish(ctx context.Context, endpoint string, msg *Message) error {
	// construct the request
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(msg.Body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Event-Name", string(msg.EventName))
	if msg.RecordID != "" {
		req.Header.Set("X-Record-Id", msg.RecordID)
	}
	// make the request
	resp, err := p.client.Do(req)
	if err != nil {
		return err
	}
	if resp.Body != nil {
		defer resp.Body.Close()
		_, _ = io.Copy(io.Discard, resp.Body)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return fmt.Errorf("endpoint returned a non-2xx status code: %d", resp.StatusCode)
	}
	return nil
}
