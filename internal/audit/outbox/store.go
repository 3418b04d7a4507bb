package outbox

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"
)

// Item is one unpublished outbox row.
type Item struct {
	ID        uuid.UUID
	EntryID   uuid.UUID
	Payload   []byte
	CreatedAt time.Time
}

// Store reads and marks outbox rows. The audit store writes them; only the
// worker consumes them.
type Store interface {
	NextBatch(ctx context.Context, limit int) ([]Item, error)
	MarkPublished(ctx context.Context, ids []uuid.UUID) error
}

// PostgresStore claims batches with SKIP LOCKED so multiple workers never
// double-publish within one polling round. Kafka delivery is still
// at-least-once; consumers dedupe on entry id.
type PostgresStore struct {
	db *sql.DB
}

func NewPostgresStore(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

func (s *PostgresStore) NextBatch(ctx context.Context, limit int) ([]Item, error) {
	query := `
		SELECT id, entry_id, payload, created_at
		FROM audit_outbox
		WHERE published_at IS NULL
		ORDER BY created_at
		LIMIT $1
		FOR UPDATE SKIP LOCKED
	`
	rows, err := s.db.QueryContext(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("outbox next batch: %w", err)
	}
	defer rows.Close()

	var items []Item
	for rows.Next() {
		var item Item
		if err := rows.Scan(&item.ID, &item.EntryID, &item.Payload, &item.CreatedAt); err != nil {
			return nil, fmt.Errorf("outbox next batch: scan: %w", err)
		}
		items = append(items, item)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("outbox next batch: %w", err)
	}
	return items, nil
}

func (s *PostgresStore) MarkPublished(ctx context.Context, ids []uuid.UUID) error {
	if len(ids) == 0 {
		return nil
	}
	raw := make([]string, len(ids))
	for i, id := range ids {
		raw[i] = id.String()
	}
	query := `UPDATE audit_outbox SET published_at = NOW() WHERE id = ANY($1)`
	if _, err := s.db.ExecContext(ctx, query, pq.Array(raw)); err != nil {
		return fmt.Errorf("outbox mark published: %w", err)
	}
	return nil
}
