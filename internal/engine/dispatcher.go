// Package engine validates sync batches and applies them to the entity store.
package engine

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"syncbridge/internal/logger"
	"syncbridge/internal/notify"
	"syncbridge/internal/observability"
	"syncbridge/internal/store"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// finalizeTimeout bounds the ledger update that closes an attempt. It runs
// detached from the request so a disconnecting client cannot strand the entry
// in pending_retry.
const finalizeTimeout = 5 * time.Second

// Recorder keeps the sync history. The ledger package implements it.
type Recorder interface {
	Record(ctx context.Context, payload string) (*store.LedgerEntry, error)
	Finalize(ctx context.Context, id int64, status store.SyncStatus, reason string) error
}

// Dispatcher is the entry point of a sync request.
type Dispatcher struct {
	ledger    Recorder
	processor *Processor
	notifier  notify.Notifier
	metrics   *observability.SyncMetrics
	logger    *slog.Logger
	tracer    trace.Tracer
}

type Option func(*Dispatcher)

func WithNotifier(n notify.Notifier) Option {
	return func(d *Dispatcher) { d.notifier = n }
}

func WithMetrics(m *observability.SyncMetrics) Option {
	return func(d *Dispatcher) { d.metrics = m }
}

func WithLogger(l *slog.Logger) Option {
	return func(d *Dispatcher) { d.logger = l }
}

func NewDispatcher(ledger Recorder, processor *Processor, opts ...Option) *Dispatcher {
	d := &Dispatcher{
		ledger:    ledger,
		processor: processor,
		notifier:  notify.Nop{},
		logger:    slog.Default(),
		tracer:    otel.Tracer("syncbridge/engine"),
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// Sync applies items of the given model as one atomic batch and returns one
// result per item in input order.
//
// Every non-empty batch leaves exactly one ledger entry: successful when the
// batch committed, invalid for an unknown model and failed otherwise.
func (d *Dispatcher) Sync(ctx context.Context, model string, items []Item) (results []Result, err error) {
	ctx, span := d.tracer.Start(ctx, "engine.Sync", trace.WithAttributes(
		attribute.String("sync.model", model),
		attribute.Int("sync.items", len(items)),
	))
	defer span.End()

	log := logger.FromContext(ctx, d.logger).With("model", model)

	if len(items) == 0 {
		return nil, NewValidationError("data", msgEmptyItems)
	}

	payload, err := json.Marshal(items)
	if err != nil {
		return nil, fmt.Errorf("encode payload: %w", err)
	}

	entry, err := d.ledger.Record(ctx, string(payload))
	if err != nil {
		span.SetStatus(codes.Error, "ledger record failed")
		return nil, fmt.Errorf("record sync attempt: %w", err)
	}
	span.SetAttributes(attribute.Int64("sync.ledger_id", entry.ID))
	log = log.With("ledger_id", entry.ID)

	kind, ok := store.ParseKind(model)
	if !ok {
		reason := "Invalid model: " + model
		d.finish(ctx, log, entry.ID, model, store.SyncStatusInvalid, reason)
		return nil, NewValidationError("model", reason)
	}

	defer func() {
		if r := recover(); r != nil {
			log.Error("sync panicked", "panic", r)
			err = fmt.Errorf("sync %s panicked: %v", model, r)
			span.SetStatus(codes.Error, "panic")
			d.finish(ctx, log, entry.ID, model, store.SyncStatusFailed, err.Error())
			results = nil
		}
	}()

	results, created, err := d.processor.Process(ctx, kind, items)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "sync failed")
		log.Warn("sync batch rolled back", "error", err)
		d.finish(ctx, log, entry.ID, model, store.SyncStatusFailed, failureReason(err))
		return nil, err
	}

	d.finish(ctx, log, entry.ID, model, store.SyncStatusSuccessful, "")
	d.countItems(ctx, model, results)
	d.publish(ctx, log, created)

	log.Info("sync batch committed", "items", len(results), "created", len(created))
	return results, nil
}

// finish records the outcome, even when ctx is already cancelled. A ledger
// failure is logged but does not change the result of the sync.
func (d *Dispatcher) finish(ctx context.Context, log *slog.Logger, id int64, model string, status store.SyncStatus, reason string) {
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), finalizeTimeout)
	defer cancel()

	d.metrics.RecordBatch(ctx, model, status)
	if err := d.ledger.Finalize(ctx, id, status, reason); err != nil {
		log.Error("failed to finalize sync history entry", "status", status, "error", err)
	}
}

func (d *Dispatcher) countItems(ctx context.Context, model string, results []Result) {
	var created, updated int
	for _, r := range results {
		switch r.Status {
		case OpCreate.String():
			created++
		case OpUpdate.String():
			updated++
		}
	}
	d.metrics.RecordItems(ctx, model, OpCreate.String(), created)
	d.metrics.RecordItems(ctx, model, OpUpdate.String(), updated)
}

// publish announces created entities after commit. Failures are only logged.
func (d *Dispatcher) publish(ctx context.Context, log *slog.Logger, created []Created) {
	now := time.Now().UTC()
	for _, c := range created {
		ev := notify.Event{Kind: c.Kind, ID: c.ID, Entity: c.Entity, CreatedAt: now}
		if err := d.notifier.Publish(ctx, ev); err != nil {
			log.Warn("failed to publish created event", "kind", c.Kind, "id", c.ID, "error", err)
		}
	}
}

// failureReason is what the ledger stores for a failed batch: the collapsed
// field errors as JSON for validation failures, the error text otherwise.
func failureReason(err error) string {
	var verr *ValidationError
	if errors.As(err, &verr) {
		return verr.Reason()
	}
	return err.Error()
}
