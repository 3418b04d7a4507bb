package audit

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"

	id "github.com/Stratton1/ppukv6-0-sub001/pkg/domain"
	txcontext "github.com/Stratton1/ppukv6-0-sub001/pkg/platform/tx"
)

// PostgresStore persists audit entries and, in the same statement batch, a
// transactional-outbox row for Kafka publishing. Both inserts join the
// ambient transaction, so an entry and its outbox row commit or roll back
// with the governed mutation they describe.
//
// Schema:
//
//	CREATE TABLE audit_entries (
//	    id          UUID        PRIMARY KEY,
//	    actor_id    UUID        NOT NULL,
//	    action      TEXT        NOT NULL,
//	    entity_type TEXT        NOT NULL,
//	    entity_id   TEXT        NOT NULL,
//	    old_values  JSONB,
//	    new_values  JSONB,
//	    metadata    JSONB,
//	    recorded_at TIMESTAMPTZ NOT NULL
//	);
//	CREATE INDEX idx_audit_entries_entity ON audit_entries (entity_type, entity_id);
//	CREATE INDEX idx_audit_entries_actor  ON audit_entries (actor_id);
//
//	CREATE TABLE audit_outbox (
//	    id           UUID        PRIMARY KEY,
//	    entry_id     UUID        NOT NULL,
//	    payload      JSONB       NOT NULL,
//	    created_at   TIMESTAMPTZ NOT NULL,
//	    published_at TIMESTAMPTZ
//	);
type PostgresStore struct {
	db *sql.DB
}

func NewPostgresStore(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

type dbQuerier interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
}

func (s *PostgresStore) querier(ctx context.Context) dbQuerier {
	if tx, ok := txcontext.From(ctx); ok {
		return tx
	}
	return s.db
}

// outboxPayload is the JSON structure published to Kafka. Field names match
// the consumer-side deserialization contract.
type outboxPayload struct {
	ID         string         `json:"id"`
	ActorID    string         `json:"actor_id"`
	Action     string         `json:"action"`
	EntityType string         `json:"entity_type"`
	EntityID   string         `json:"entity_id"`
	OldValues  map[string]any `json:"old_values,omitempty"`
	NewValues  map[string]any `json:"new_values,omitempty"`
	Metadata   map[string]any `json:"metadata,omitempty"`
	RecordedAt string         `json:"recorded_at"`
}

func (s *PostgresStore) Append(ctx context.Context, entry Entry) error {
	oldValues, err := marshalNullable(entry.OldValues)
	if err != nil {
		return fmt.Errorf("marshal audit old values: %w", err)
	}
	newValues, err := marshalNullable(entry.NewValues)
	if err != nil {
		return fmt.Errorf("marshal audit new values: %w", err)
	}
	metadata, err := marshalNullable(entry.Metadata)
	if err != nil {
		return fmt.Errorf("marshal audit metadata: %w", err)
	}

	q := s.querier(ctx)

	insertEntry := `
		INSERT INTO audit_entries (id, actor_id, action, entity_type, entity_id, old_values, new_values, metadata, recorded_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	`
	if _, err := q.ExecContext(ctx, insertEntry,
		entry.ID,
		uuid.UUID(entry.Actor),
		string(entry.Action),
		string(entry.EntityType),
		entry.EntityID,
		oldValues,
		newValues,
		metadata,
		entry.Timestamp,
	); err != nil {
		return fmt.Errorf("insert audit entry: %w", err)
	}

	payload, err := json.Marshal(outboxPayload{
		ID:         entry.ID.String(),
		ActorID:    entry.Actor.String(),
		Action:     string(entry.Action),
		EntityType: string(entry.EntityType),
		EntityID:   entry.EntityID,
		OldValues:  entry.OldValues,
		NewValues:  entry.NewValues,
		Metadata:   entry.Metadata,
		RecordedAt: entry.Timestamp.Format(time.RFC3339Nano),
	})
	if err != nil {
		return fmt.Errorf("marshal outbox payload: %w", err)
	}

	insertOutbox := `
		INSERT INTO audit_outbox (id, entry_id, payload, created_at)
		VALUES ($1, $2, $3, $4)
	`
	if _, err := q.ExecContext(ctx, insertOutbox, uuid.New(), entry.ID, payload, time.Now()); err != nil {
		return fmt.Errorf("insert outbox entry: %w", err)
	}
	return nil
}

func (s *PostgresStore) ListByEntity(ctx context.Context, entityType EntityType, entityID string) ([]Entry, error) {
	query := `
		SELECT id, actor_id, action, entity_type, entity_id, old_values, new_values, metadata, recorded_at
		FROM audit_entries
		WHERE entity_type = $1 AND entity_id = $2
		ORDER BY recorded_at
	`
	return s.list(ctx, query, string(entityType), entityID)
}

func (s *PostgresStore) ListByActor(ctx context.Context, actor string) ([]Entry, error) {
	query := `
		SELECT id, actor_id, action, entity_type, entity_id, old_values, new_values, metadata, recorded_at
		FROM audit_entries
		WHERE actor_id = $1
		ORDER BY recorded_at
	`
	return s.list(ctx, query, actor)
}

func (s *PostgresStore) list(ctx context.Context, query string, args ...any) ([]Entry, error) {
	rows, err := s.querier(ctx).QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list audit entries: %w", err)
	}
	defer rows.Close()

	var out []Entry
	for rows.Next() {
		var (
			entry     Entry
			actorID   uuid.UUID
			action    string
			entType   string
			oldValues []byte
			newValues []byte
			metadata  []byte
		)
		if err := rows.Scan(&entry.ID, &actorID, &action, &entType, &entry.EntityID,
			&oldValues, &newValues, &metadata, &entry.Timestamp); err != nil {
			return nil, fmt.Errorf("list audit entries: scan: %w", err)
		}
		entry.Actor = id.UserID(actorID)
		entry.Action = Action(action)
		entry.EntityType = EntityType(entType)
		if err := unmarshalNullable(oldValues, &entry.OldValues); err != nil {
			return nil, fmt.Errorf("list audit entries: old values: %w", err)
		}
		if err := unmarshalNullable(newValues, &entry.NewValues); err != nil {
			return nil, fmt.Errorf("list audit entries: new values: %w", err)
		}
		if err := unmarshalNullable(metadata, &entry.Metadata); err != nil {
			return nil, fmt.Errorf("list audit entries: metadata: %w", err)
		}
		out = append(out, entry)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list audit entries: %w", err)
	}
	return out, nil
}

func marshalNullable(m map[string]any) ([]byte, error) {
	if m == nil {
		return nil, nil
	}
	return json.Marshal(m)
}

func unmarshalNullable(b []byte, target *map[string]any) error {
	if len(b) == 0 {
		return nil
	}
	return json.Unmarshal(b, target)
}
