package streamforwarder

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"
)

type testPublisherHandler = func(ctx context.Context, endpoint string, msg *Message) error

type testPublishCall struct {
	endpoint string
	msg      *Message
}

// testPublisher answers publishes with handlers queued per endpoint. Without a queued handler it falls back
// to the default handler, or fails if there is none.
type testPublisher struct {
	mu       sync.Mutex
	handlers map[string][]testPublisherHandler
	fallback testPublisherHandler
	calls    []testPublishCall
}

func newTestPublisher() *testPublisher {
	return &testPublisher{handlers: map[string][]testPublisherHandler{}}
}

func newAcceptingPublisher() *testPublisher {
	p := newTestPublisher()
	p.fallback = func(_ context.Context, _ string, _ *Message) error { return nil }
	return p
}

func (p *testPublisher) Publish(ctx context.Context, endpoint string, msg *Message) error {
	handler, err := p.nextHandler(endpoint, msg)
	if err != nil {
		return err
	}
	return handler(ctx, endpoint, msg)
}

func (p *testPublisher) nextHandler(endpoint string, msg *Message) (testPublisherHandler, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.calls = append(p.calls, testPublishCall{endpoint: endpoint, msg: msg})
	queue := p.handlers[endpoint]
	if len(queue) == 0 {
		if p.fallback != nil {
			return p.fallback, nil
		}
		return nil, fmt.Errorf("no handlers left")
	}
	handler := queue[0]
	p.handlers[endpoint] = queue[1:]
	return handler, nil
}

func (p *testPublisher) pushHandler(endpoint string, handler testPublisherHandler) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.handlers[endpoint] = append(p.handlers[endpoint], handler)
}

func (p *testPublisher) callsTo(endpoint string) []*Message {
	p.mu.Lock()
	defer p.mu.Unlock()
	var msgs []*Message
	for _, call := range p.calls {
		if call.endpoint == endpoint {
			msgs = append(msgs, call.msg)
		}
	}
	return msgs
}

func (p *testPublisher) callCount() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.calls)
}

// syncBuffer lets concurrent publishes log into one buffer.
type syncBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *syncBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *syncBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}

func newTestLogger() (*slog.Logger, *syncBuffer) {
	buf := &syncBuffer{}
	return NewJSONLogger(buf, "test", slog.LevelInfo), buf
}

func mustRecord(t *testing.T, eventName string, payload any) *Record {
	t.Helper()
	record, err := NewRecord(eventName, payload)
	require.NoError(t, err)
	return record
}

func mustHandler(t *testing.T, destinations []DestinationConfig, opts ...HandlerOption) *Handler {
	t.Helper()
	opts = append([]HandlerOption{WithLogger(DiscardLogger)}, opts...)
	h, err := NewHandler(destinations, opts...)
	require.NoError(t, err)
	return h
}
