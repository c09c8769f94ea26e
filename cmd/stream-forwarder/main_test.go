package main

import (
	"bytes"
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	streamforwarder "github.com/markusylisiurunen/go-stream-forwarder"
	"github.com/markusylisiurunen/go-stream-forwarder/internal/config"
)

const streamEvent = `{"Records": [
	{"eventID": "1", "eventName": "INSERT", "dynamodb": {"Keys": {"id": {"S": "1"}}}},
	{"eventID": "2", "eventName": "MODIFY", "dynamodb": {"Keys": {"id": {"S": "2"}}}},
	{"eventID": "3", "eventName": "REMOVE", "dynamodb": {"Keys": {"id": {"S": "3"}}}}
]}`

type testBatchHandler struct {
	sizes []int
	err   error
}

func (h *testBatchHandler) Handle(_ context.Context, batch streamforwarder.Batch) (string, error) {
	h.sizes = append(h.sizes, len(batch.Records))
	if h.err != nil {
		return "", h.err
	}
	return "ok", nil
}

func TestReplay(t *testing.T) {
	t.Run("splits the file into batches", func(t *testing.T) {
		handler, out := &testBatchHandler{}, &bytes.Buffer{}
		require.NoError(t, replay(context.Background(), handler, strings.NewReader(streamEvent), 2, out))
		assert.Equal(t, []int{2, 1}, handler.sizes)
		assert.Equal(t, "ok\nok\n", out.String())
	})

	t.Run("stops at the first failed batch", func(t *testing.T) {
		handler := &testBatchHandler{err: errors.New("delivery failed")}
		err := replay(context.Background(), handler, strings.NewReader(streamEvent), 1, &bytes.Buffer{})
		assert.ErrorContains(t, err, "delivery failed")
		assert.Equal(t, []int{1}, handler.sizes)
	})

	t.Run("fails for a malformed file", func(t *testing.T) {
		err := replay(context.Background(), &testBatchHandler{}, strings.NewReader(`{"Records": [{}]}`), 0, &bytes.Buffer{})
		assert.Error(t, err)
	})
}

func TestBuildHandler(t *testing.T) {
	t.Run("forwards records to an http destination", func(t *testing.T) {
		var received atomic.Int32
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			assert.Equal(t, "INSERT", r.Header.Get("X-Event-Name"))
			received.Add(1)
			w.WriteHeader(http.StatusOK)
		}))
		defer srv.Close()
		cfg := &config.Config{
			Destinations: []config.DestinationConfig{{Endpoint: srv.URL, EventNames: []string{"insert"}}},
			Concurrency:  4,
			HTTP:         config.HTTPConfig{Timeout: time.Second},
		}
		handler, done, err := buildHandler(context.Background(), cfg, streamforwarder.DiscardLogger)
		require.NoError(t, err)
		defer done.Close()
		out := &bytes.Buffer{}
		require.NoError(t, replay(context.Background(), handler, strings.NewReader(streamEvent), 0, out))
		assert.Equal(t, int32(1), received.Load())
		assert.Equal(t, "Successfully processed 3 records.\n", out.String())
	})

	t.Run("bounds every publish by the publish timeout", func(t *testing.T) {
		release := make(chan struct{})
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			select {
			case <-release:
			case <-r.Context().Done():
			}
			w.WriteHeader(http.StatusOK)
		}))
		defer srv.Close()
		defer close(release)
		cfg := &config.Config{
			Destinations: []config.DestinationConfig{{Endpoint: srv.URL}},
			Concurrency:  4,
			Publish:      config.PublishConfig{Timeout: 50 * time.Millisecond},
			HTTP:         config.HTTPConfig{Timeout: 10 * time.Second},
		}
		handler, done, err := buildHandler(context.Background(), cfg, streamforwarder.DiscardLogger)
		require.NoError(t, err)
		defer done.Close()
		started := time.Now()
		err = replay(context.Background(), handler, strings.NewReader(streamEvent), 0, &bytes.Buffer{})
		assert.ErrorContains(t, err, "deadline exceeded")
		assert.Less(t, time.Since(started), 5*time.Second)
	})

	t.Run("fails for an unsupported endpoint", func(t *testing.T) {
		cfg := &config.Config{
			Destinations: []config.DestinationConfig{{Endpoint: "ftp://example.com/queue"}},
			Concurrency:  1,
		}
		_, _, err := buildHandler(context.Background(), cfg, streamforwarder.DiscardLogger)
		assert.Error(t, err)
	})
}
