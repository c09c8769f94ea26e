package streamforwarder

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.uber.org/multierr"
	"golang.org/x/sync/errgroup"
)

var errNullRecord = errors.New("record is null")

// batchState collects the outcome of the publishes of one batch. Publishes report into it concurrently.
type batchState struct {
	mu     sync.Mutex
	result *BatchResult
}

func (s *batchState) update(apply func(r *BatchResult)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	apply(s.result)
}

func (s *batchState) fail(err error) {
	s.update(func(r *BatchResult) {
		r.Failed += 1
		r.Err = multierr.Append(r.Err, err)
	})
}

// ProcessBatch forwards every record of the batch to the destinations accepting it. Each record is serialized
// once, before any of its publishes is issued, and all publishes of the batch run concurrently. The returned
// result fails if any record could not be serialized or any publish failed; no failure is dropped.
func (h *Handler) ProcessBatch(ctx context.Context, records []*Record) *BatchResult {
	ctx, span := otel.Tracer(tracerName).Start(ctx, "process batch")
	defer span.End()
	span.SetAttributes(attribute.Int("batch.records", len(records)))

	state := &batchState{result: &BatchResult{Processed: len(records)}}
	group := &errgroup.Group{}
	group.SetLimit(h.concurrency)

	for _, record := range records {
		if err := ctx.Err(); err != nil {
			state.update(func(r *BatchResult) {
				r.Err = multierr.Append(r.Err, fmt.Errorf("batch interrupted: %w", err))
			})
			break
		}
		h.dispatchRecord(ctx, group, state, record)
	}
	_ = group.Wait()

	result := state.result
	if result.Err != nil {
		span.RecordError(result.Err)
		span.SetStatus(codes.Error, "batch failed")
	}
	return result
}

func (h *Handler) dispatchRecord(ctx context.Context, group *errgroup.Group, state *batchState, record *Record) {
	if record == nil {
		err := &SerializationError{Err: errNullRecord}
		h.logger.Error("failed to serialize record", slog.Any("error", err))
		state.fail(err)
		return
	}
	h.logRecord(record)

	body, err := serialize(h.bodySerializer, record)
	if err != nil {
		h.logger.Error("failed to serialize record",
			slog.String("record_id", record.ID()),
			slog.Any("error", err),
		)
		state.fail(err)
		return
	}
	msg := newMessage(record, body)

	admitted := route(record, h.destinations)
	if skipped := len(h.destinations) - len(admitted); skipped > 0 {
		for _, d := range h.destinations {
			if d.Accepts(msg.EventName) {
				continue
			}
			h.logger.Info("event not forwarded",
				slog.String("record_id", record.ID()),
				slog.String("event_name", record.EventName()),
				slog.String("endpoint", d.Endpoint()),
			)
		}
		state.update(func(r *BatchResult) { r.Skipped += skipped })
	}

	for _, destination := range admitted {
		if !h.shouldSend(msg, destination) {
			state.update(func(r *BatchResult) { r.Filtered += 1 })
			continue
		}
		endpoint := destination.Endpoint()
		group.Go(func() error {
			if err := h.publisher.Publish(ctx, endpoint, msg); err != nil {
				deliveryErr := &DeliveryError{RecordID: msg.RecordID, Endpoint: endpoint, Err: err}
				h.logger.Error("failed to deliver record",
					slog.String("record_id", msg.RecordID),
					slog.String("endpoint", endpoint),
					slog.Any("error", err),
				)
				state.fail(deliveryErr)
				return nil
			}
			state.update(func(r *BatchResult) { r.Delivered += 1 })
			return nil
		})
	}
}

func (h *Handler) shouldSend(msg *Message, destination *Destination) bool {
	send, err := h.messageFilter(msg.Body, destination.Endpoint())
	if err != nil {
		h.logger.Error("message filter failed, skipping destination",
			slog.String("record_id", msg.RecordID),
			slog.String("endpoint", destination.Endpoint()),
			slog.Any("error", &FilterError{RecordID: msg.RecordID, Endpoint: destination.Endpoint(), Err: err}),
		)
		return false
	}
	if !send {
		h.logger.Info("message filtered out",
			slog.String("record_id", msg.RecordID),
			slog.String("endpoint", destination.Endpoint()),
		)
	}
	return send
}
