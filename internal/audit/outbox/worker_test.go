package outbox

import (
	"context"
	"errors"
	"log/slog"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeStore struct {
	items     []Item
	published []uuid.UUID
}

func (f *fakeStore) NextBatch(_ context.Context, limit int) ([]Item, error) {
	var out []Item
	for _, item := range f.items {
		if len(out) == limit {
			break
		}
		if !f.isPublished(item.ID) {
			out = append(out, item)
		}
	}
	return out, nil
}

func (f *fakeStore) MarkPublished(_ context.Context, ids []uuid.UUID) error {
	f.published = append(f.published, ids...)
	return nil
}

func (f *fakeStore) isPublished(id uuid.UUID) bool {
	for _, p := range f.published {
		if p == id {
			return true
		}
	}
	return false
}

type fakePublisher struct {
	keys    []string
	failOn  string
	failErr error
}

func (f *fakePublisher) Publish(_ context.Context, key string, _ []byte) error {
	if f.failOn != "" && key == f.failOn {
		return f.failErr
	}
	f.keys = append(f.keys, key)
	return nil
}

func (f *fakePublisher) Close() {}

func item() Item {
	return Item{ID: uuid.New(), EntryID: uuid.New(), Payload: []byte(`{}`), CreatedAt: time.Now()}
}

func testLogger() *slog.Logger {
	return slog.New(slog.DiscardHandler)
}

func TestWorker_DrainPublishesAndMarks(t *testing.T) {
	store := &fakeStore{items: []Item{item(), item(), item()}}
	pub := &fakePublisher{}
	w := NewWorker(store, pub, testLogger(), nil, time.Second)

	require.NoError(t, w.drainOnce(context.Background()))
	assert.Len(t, pub.keys, 3)
	assert.Len(t, store.published, 3)
}

func TestWorker_PublishFailureKeepsRemainder(t *testing.T) {
	items := []Item{item(), item(), item()}
	store := &fakeStore{items: items}
	pub := &fakePublisher{failOn: items[1].EntryID.String(), failErr: errors.New("broker down")}
	w := NewWorker(store, pub, testLogger(), nil, time.Second)

	err := w.drainOnce(context.Background())
	require.Error(t, err)

	// Only the first item was published and marked; the rest stay queued.
	assert.Len(t, store.published, 1)
	assert.Equal(t, items[0].ID, store.published[0])

	next, err := store.NextBatch(context.Background(), 10)
	require.NoError(t, err)
	assert.Len(t, next, 2)
}

func TestWorker_EmptyOutboxIsQuiet(t *testing.T) {
	store := &fakeStore{}
	pub := &fakePublisher{}
	w := NewWorker(store, pub, testLogger(), nil, time.Second)

	require.NoError(t, w.drainOnce(context.Background()))
	assert.Empty(t, pub.keys)
}

func TestWorker_RunStopsOnCancel(t *testing.T) {
	store := &fakeStore{}
	pub := &fakePublisher{}
	w := NewWorker(store, pub, testLogger(), nil, 10*time.Millisecond)

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	err := w.Run(ctx)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}
