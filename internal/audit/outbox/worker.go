package outbox

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/Stratton1/ppukv6-0-sub001/internal/platform/metrics"
)

const defaultBatchSize = 100

// Worker drains the audit outbox into Kafka. Entries stay in the outbox
// until publishing succeeds, so a broker outage delays the stream but never
// loses entries; the audit_entries table remains the queryable source of
// truth either way.
type Worker struct {
	store     Store
	publisher Publisher
	logger    *slog.Logger
	metrics   *metrics.Metrics
	interval  time.Duration
	batchSize int
}

func NewWorker(store Store, publisher Publisher, logger *slog.Logger, m *metrics.Metrics, interval time.Duration) *Worker {
	if interval <= 0 {
		interval = 2 * time.Second
	}
	return &Worker{
		store:     store,
		publisher: publisher,
		logger:    logger,
		metrics:   m,
		interval:  interval,
		batchSize: defaultBatchSize,
	}
}

// Run polls until the context is cancelled.
func (w *Worker) Run(ctx context.Context) error {
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			if err := w.drainOnce(ctx); err != nil {
				w.logger.ErrorContext(ctx, "outbox drain failed", "error", err)
			}
		}
	}
}

// drainOnce publishes one batch. Publish failures stop the batch mid-way;
// already-published items are marked so only the remainder is retried.
func (w *Worker) drainOnce(ctx context.Context) error {
	items, err := w.store.NextBatch(ctx, w.batchSize)
	if err != nil {
		return err
	}
	if len(items) == 0 {
		return nil
	}

	published := make([]uuid.UUID, 0, len(items))
	var publishErr error
	for _, item := range items {
		if err := w.publisher.Publish(ctx, item.EntryID.String(), item.Payload); err != nil {
			publishErr = err
			break
		}
		published = append(published, item.ID)
		w.metrics.IncrementOutboxPublished()
	}

	if len(published) > 0 {
		if err := w.store.MarkPublished(ctx, published); err != nil {
			return err
		}
	}
	return publishErr
}
