package audit

import (
	"context"

	"github.com/google/uuid"

	"github.com/Stratton1/ppukv6-0-sub001/internal/platform/metrics"
	"github.com/Stratton1/ppukv6-0-sub001/pkg/requestcontext"
)

// Store persists audit entries. Append-only: the interface deliberately has
// no update or delete.
type Store interface {
	Append(ctx context.Context, entry Entry) error
	ListByEntity(ctx context.Context, entityType EntityType, entityID string) ([]Entry, error)
	ListByActor(ctx context.Context, actor string) ([]Entry, error)
}

// Recorder writes audit entries with fail-closed semantics: it runs inside
// the caller's unit of work, and a failed append must fail the whole
// mutation. Never call it as a best-effort side channel after commit.
type Recorder struct {
	store   Store
	metrics *metrics.Metrics
}

func NewRecorder(store Store, m *metrics.Metrics) *Recorder {
	return &Recorder{store: store, metrics: m}
}

// Record validates and appends the entry, stamping id and timestamp when
// absent. Returns an error when persistence fails; the caller MUST roll back
// its mutation.
func (r *Recorder) Record(ctx context.Context, entry Entry) error {
	if err := entry.Validate(); err != nil {
		return err
	}
	if entry.ID == uuid.Nil {
		entry.ID = uuid.New()
	}
	if entry.Timestamp.IsZero() {
		entry.Timestamp = requestcontext.Now(ctx)
	}
	if err := r.store.Append(ctx, entry); err != nil {
		return err
	}
	r.metrics.IncrementAudit(string(entry.Action))
	return nil
}

// ListByEntity returns entries for one governed entity, oldest first.
func (r *Recorder) ListByEntity(ctx context.Context, entityType EntityType, entityID string) ([]Entry, error) {
	return r.store.ListByEntity(ctx, entityType, entityID)
}

// ListByActor returns entries recorded for one actor, oldest first.
func (r *Recorder) ListByActor(ctx context.Context, actor string) ([]Entry, error) {
	return r.store.ListByActor(ctx, actor)
}
