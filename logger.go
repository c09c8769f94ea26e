package streamforwarder

import (
	"encoding/json"
	"io"
	"log/slog"
)

// Logger receives progress and error events. *slog.Logger satisfies it.
type Logger interface {
	Info(msg string, args ...any)
	Error(msg string, args ...any)
}

// NewJSONLogger returns a structured logger writing one JSON object per line, tagged with the service name.
func NewJSONLogger(w io.Writer, service string, level slog.Level) *slog.Logger {
	h := slog.NewJSONHandler(w, &slog.HandlerOptions{
		Level: level,
	})
	return slog.New(h).With("service", service)
}

// DiscardLogger drops every event.
var DiscardLogger Logger = slog.New(slog.DiscardHandler)

// LogPayloadTransformer renders a record for the per-record receipt log line only.
type LogPayloadTransformer func(record *Record) (any, error)

func (h *Handler) logRecord(record *Record) {
	payload := json.RawMessage(record.raw)
	if h.logPayloadTransformer == nil {
		h.logger.Info("stream record received",
			slog.String("record_id", record.ID()),
			slog.String("event_name", record.EventName()),
			slog.Any("record", payload),
		)
		return
	}
	rendered, err := h.logPayloadTransformer(record)
	if err != nil {
		h.logger.Error("failed to render record for logging, logging it raw",
			slog.String("record_id", record.ID()),
			slog.Any("error", &LogTransformError{RecordID: record.ID(), Err: err}),
		)
		rendered = payload
	}
	h.logger.Info("stream record received",
		slog.String("record_id", record.ID()),
		slog.String("event_name", record.EventName()),
		slog.Any("record", rendered),
	)
}
