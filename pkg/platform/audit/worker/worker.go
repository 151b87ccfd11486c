// Package worker relays audit events from the transactional outbox to Kafka.
// The outbox write shares the mutation's transaction; the relay makes the
// stream at-least-once, with the event ID as the dedupe key downstream.
package worker

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/twmb/franz-go/pkg/kgo"

	"smpd/pkg/platform/audit/store/postgres"
)

// DefaultTopic is the Kafka topic audit events are relayed to.
const DefaultTopic = "smp.audit"

// Producer abstracts the Kafka client so tests can record produced batches.
// *kgo.Client satisfies it via ProduceSync.
type Producer interface {
	ProduceSync(ctx context.Context, records ...*kgo.Record) kgo.ProduceResults
}

// Outbox is the slice of the audit store the relay needs.
type Outbox interface {
	PendingOutbox(ctx context.Context, limit int) ([]postgres.OutboxEntry, error)
	MarkPublished(ctx context.Context, ids []uuid.UUID) error
}

// Worker polls the outbox and publishes pending events.
type Worker struct {
	outbox    Outbox
	producer  Producer
	topic     string
	interval  time.Duration
	batchSize int
	logger    *slog.Logger
}

// New creates a relay worker. Zero interval defaults to one second.
func New(outbox Outbox, producer Producer, topic string, interval time.Duration, logger *slog.Logger) *Worker {
	if topic == "" {
		topic = DefaultTopic
	}
	if interval <= 0 {
		interval = time.Second
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Worker{
		outbox:    outbox,
		producer:  producer,
		topic:     topic,
		interval:  interval,
		batchSize: 100,
		logger:    logger,
	}
}

// Run polls until the context is cancelled. Publish failures are logged and
// retried on the next tick; the outbox row stays pending until the produce
// succeeds.
func (w *Worker) Run(ctx context.Context) error {
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			if err := w.RelayOnce(ctx); err != nil {
				w.logger.ErrorContext(ctx, "audit outbox relay failed", "error", err)
			}
		}
	}
}

// RelayOnce publishes one batch of pending outbox entries.
func (w *Worker) RelayOnce(ctx context.Context) error {
	entries, err := w.outbox.PendingOutbox(ctx, w.batchSize)
	if err != nil {
		return err
	}
	if len(entries) == 0 {
		return nil
	}

	records := make([]*kgo.Record, len(entries))
	ids := make([]uuid.UUID, len(entries))
	for i, e := range entries {
		records[i] = &kgo.Record{
			Topic: w.topic,
			Key:   []byte(e.ID.String()),
			Value: e.Payload,
		}
		ids[i] = e.ID
	}
	if err := w.producer.ProduceSync(ctx, records...).FirstErr(); err != nil {
		return err
	}
	return w.outbox.MarkPublished(ctx, ids)
}
