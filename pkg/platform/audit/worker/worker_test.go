package worker

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/twmb/franz-go/pkg/kgo"

	"smpd/pkg/platform/audit/store/postgres"
)

type stubOutbox struct {
	pending   []postgres.OutboxEntry
	published []uuid.UUID
	fetchErr  error
}

func (s *stubOutbox) PendingOutbox(_ context.Context, limit int) ([]postgres.OutboxEntry, error) {
	if s.fetchErr != nil {
		return nil, s.fetchErr
	}
	if len(s.pending) > limit {
		return s.pending[:limit], nil
	}
	return s.pending, nil
}

func (s *stubOutbox) MarkPublished(_ context.Context, ids []uuid.UUID) error {
	s.published = append(s.published, ids...)
	remaining := s.pending[:0]
	for _, e := range s.pending {
		marked := false
		for _, id := range ids {
			if id == e.ID {
				marked = true
				break
			}
		}
		if !marked {
			remaining = append(remaining, e)
		}
	}
	s.pending = remaining
	return nil
}

type stubProducer struct {
	records []*kgo.Record
	err     error
}

func (p *stubProducer) ProduceSync(_ context.Context, records ...*kgo.Record) kgo.ProduceResults {
	if p.err != nil {
		return kgo.ProduceResults{{Err: p.err}}
	}
	p.records = append(p.records, records...)
	results := make(kgo.ProduceResults, len(records))
	for i, r := range records {
		results[i] = kgo.ProduceResult{Record: r}
	}
	return results
}

func entry(payload string) postgres.OutboxEntry {
	return postgres.OutboxEntry{ID: uuid.New(), Payload: []byte(payload)}
}

func TestRelayOncePublishesAndMarks(t *testing.T) {
	first := entry(`{"action":"service_group_created"}`)
	second := entry(`{"action":"service_group_deleted"}`)
	outbox := &stubOutbox{pending: []postgres.OutboxEntry{first, second}}
	producer := &stubProducer{}

	w := New(outbox, producer, "smp.audit.test", time.Second, slog.New(slog.NewTextHandler(io.Discard, nil)))
	require.NoError(t, w.RelayOnce(context.Background()))

	require.Len(t, producer.records, 2)
	assert.Equal(t, "smp.audit.test", producer.records[0].Topic)
	assert.Equal(t, []byte(first.ID.String()), producer.records[0].Key)
	assert.Equal(t, first.Payload, producer.records[0].Value)

	assert.Equal(t, []uuid.UUID{first.ID, second.ID}, outbox.published)
	assert.Empty(t, outbox.pending)
}

func TestRelayOnceEmptyOutbox(t *testing.T) {
	outbox := &stubOutbox{}
	producer := &stubProducer{}

	w := New(outbox, producer, "", time.Second, slog.New(slog.NewTextHandler(io.Discard, nil)))
	require.NoError(t, w.RelayOnce(context.Background()))

	assert.Empty(t, producer.records)
	assert.Empty(t, outbox.published)
}

func TestRelayOnceKeepsEntriesOnProduceFailure(t *testing.T) {
	pending := entry(`{"action":"migration_started"}`)
	outbox := &stubOutbox{pending: []postgres.OutboxEntry{pending}}
	producer := &stubProducer{err: errors.New("broker unavailable")}

	w := New(outbox, producer, "smp.audit.test", time.Second, slog.New(slog.NewTextHandler(io.Discard, nil)))
	err := w.RelayOnce(context.Background())
	require.Error(t, err)

	// The row stays pending so the next tick retries it.
	assert.Empty(t, outbox.published)
	assert.Len(t, outbox.pending, 1)
}

func TestRelayOnceFetchFailure(t *testing.T) {
	outbox := &stubOutbox{fetchErr: errors.New("database down")}
	w := New(outbox, &stubProducer{}, "", time.Second, slog.New(slog.NewTextHandler(io.Discard, nil)))
	assert.Error(t, w.RelayOnce(context.Background()))
}

func TestRunStopsOnContextCancel(t *testing.T) {
	outbox := &stubOutbox{}
	w := New(outbox, &stubProducer{}, "", time.Millisecond, slog.New(slog.NewTextHandler(io.Discard, nil)))

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	assert.ErrorIs(t, w.Run(ctx), context.DeadlineExceeded)
}
