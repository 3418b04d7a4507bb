package relationship

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/google/uuid"

	id "github.com/Stratton1/ppukv6-0-sub001/pkg/domain"
	txcontext "github.com/Stratton1/ppukv6-0-sub001/pkg/platform/tx"
)

// PostgresStore persists relationships in PostgreSQL. The table carries a
// primary key on (identity_id, property_id, kind); idempotent add rides on
// ON CONFLICT rather than application-level locking.
//
// Schema:
//
//	CREATE TABLE property_relationships (
//	    identity_id  UUID        NOT NULL,
//	    property_id  UUID        NOT NULL REFERENCES properties (id),
//	    kind         TEXT        NOT NULL,
//	    assigned_at  TIMESTAMPTZ NOT NULL,
//	    assigned_by  UUID        NOT NULL,
//	    is_primary   BOOLEAN     NOT NULL DEFAULT FALSE,
//	    expires_at   TIMESTAMPTZ,
//	    PRIMARY KEY (identity_id, property_id, kind)
//	);
//	CREATE INDEX idx_property_relationships_property ON property_relationships (property_id);
type PostgresStore struct {
	db *sql.DB
}

func NewPostgresStore(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

type dbQuerier interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// querier joins the ambient transaction when one is carried in context.
func (s *PostgresStore) querier(ctx context.Context) dbQuerier {
	if tx, ok := txcontext.From(ctx); ok {
		return tx
	}
	return s.db
}

func (s *PostgresStore) Add(ctx context.Context, rel Relationship) (Relationship, bool, error) {
	// The no-op DO UPDATE makes the conflicting row visible to RETURNING;
	// xmax = 0 distinguishes a fresh insert from the existing row.
	query := `
		INSERT INTO property_relationships (identity_id, property_id, kind, assigned_at, assigned_by, is_primary, expires_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (identity_id, property_id, kind) DO UPDATE SET
			identity_id = EXCLUDED.identity_id
		RETURNING identity_id, property_id, kind, assigned_at, assigned_by, is_primary, expires_at, (xmax = 0) AS inserted
	`
	var (
		stored   Relationship
		inserted bool
	)
	err := scanRelationship(s.querier(ctx).QueryRowContext(ctx, query,
		uuid.UUID(rel.IdentityID),
		uuid.UUID(rel.PropertyID),
		string(rel.Kind),
		rel.AssignedAt,
		uuid.UUID(rel.AssignedBy),
		rel.IsPrimary,
		rel.ExpiresAt,
	), &stored, &inserted)
	if err != nil {
		return Relationship{}, false, fmt.Errorf("add relationship: %w", err)
	}
	return stored, inserted, nil
}

func (s *PostgresStore) Remove(ctx context.Context, identity id.UserID, property id.PropertyID, kind Kind) (bool, error) {
	query := `
		DELETE FROM property_relationships
		WHERE identity_id = $1 AND property_id = $2 AND kind = $3
	`
	res, err := s.querier(ctx).ExecContext(ctx, query, uuid.UUID(identity), uuid.UUID(property), string(kind))
	if err != nil {
		return false, fmt.Errorf("remove relationship: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("remove relationship: rows affected: %w", err)
	}
	return affected > 0, nil
}

func (s *PostgresStore) Resolve(ctx context.Context, identity id.UserID, property id.PropertyID) (Kind, error) {
	query := `
		SELECT kind FROM property_relationships
		WHERE identity_id = $1 AND property_id = $2
		  AND (expires_at IS NULL OR expires_at > NOW())
	`
	rows, err := s.querier(ctx).QueryContext(ctx, query, uuid.UUID(identity), uuid.UUID(property))
	if err != nil {
		return KindNone, fmt.Errorf("resolve relationship: %w", err)
	}
	defer rows.Close()

	// The privilege fold lives in Go so the total order has one home.
	resolved := KindNone
	for rows.Next() {
		var kind string
		if err := rows.Scan(&kind); err != nil {
			return KindNone, fmt.Errorf("resolve relationship: scan: %w", err)
		}
		resolved = Max(resolved, Kind(kind))
	}
	if err := rows.Err(); err != nil {
		return KindNone, fmt.Errorf("resolve relationship: %w", err)
	}
	return resolved, nil
}

func (s *PostgresStore) ListByIdentity(ctx context.Context, identity id.UserID, filter ListFilter) ([]Relationship, int, error) {
	limit := filter.Limit
	if limit <= 0 {
		limit = 20
	}

	query := `
		SELECT identity_id, property_id, kind, assigned_at, assigned_by, is_primary, expires_at,
		       COUNT(*) OVER() AS total
		FROM property_relationships
		WHERE identity_id = $1
		  AND ($2 = '' OR kind = $2)
		  AND (expires_at IS NULL OR expires_at > NOW())
		ORDER BY assigned_at DESC, property_id
		LIMIT $3 OFFSET $4
	`
	rows, err := s.querier(ctx).QueryContext(ctx, query,
		uuid.UUID(identity), string(filter.Kind), limit, filter.Offset)
	if err != nil {
		return nil, 0, fmt.Errorf("list relationships by identity: %w", err)
	}
	defer rows.Close()

	var (
		out   []Relationship
		total int
	)
	for rows.Next() {
		var (
			rel        Relationship
			identityID uuid.UUID
			propertyID uuid.UUID
			assignedBy uuid.UUID
			kind       string
		)
		if err := rows.Scan(&identityID, &propertyID, &kind, &rel.AssignedAt, &assignedBy, &rel.IsPrimary, &rel.ExpiresAt, &total); err != nil {
			return nil, 0, fmt.Errorf("list relationships by identity: scan: %w", err)
		}
		rel.IdentityID = id.UserID(identityID)
		rel.PropertyID = id.PropertyID(propertyID)
		rel.AssignedBy = id.UserID(assignedBy)
		rel.Kind = Kind(kind)
		out = append(out, rel)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("list relationships by identity: %w", err)
	}
	return out, total, nil
}

func (s *PostgresStore) ListByProperty(ctx context.Context, property id.PropertyID) ([]Relationship, error) {
	query := `
		SELECT identity_id, property_id, kind, assigned_at, assigned_by, is_primary, expires_at
		FROM property_relationships
		WHERE property_id = $1
		  AND (expires_at IS NULL OR expires_at > NOW())
		ORDER BY assigned_at
	`
	rows, err := s.querier(ctx).QueryContext(ctx, query, uuid.UUID(property))
	if err != nil {
		return nil, fmt.Errorf("list relationships by property: %w", err)
	}
	defer rows.Close()

	var out []Relationship
	for rows.Next() {
		var (
			rel        Relationship
			identityID uuid.UUID
			propertyID uuid.UUID
			assignedBy uuid.UUID
			kind       string
		)
		if err := rows.Scan(&identityID, &propertyID, &kind, &rel.AssignedAt, &assignedBy, &rel.IsPrimary, &rel.ExpiresAt); err != nil {
			return nil, fmt.Errorf("list relationships by property: scan: %w", err)
		}
		rel.IdentityID = id.UserID(identityID)
		rel.PropertyID = id.PropertyID(propertyID)
		rel.AssignedBy = id.UserID(assignedBy)
		rel.Kind = Kind(kind)
		out = append(out, rel)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list relationships by property: %w", err)
	}
	return out, nil
}

func scanRelationship(row *sql.Row, rel *Relationship, inserted *bool) error {
	var (
		identityID uuid.UUID
		propertyID uuid.UUID
		assignedBy uuid.UUID
		kind       string
	)
	if err := row.Scan(&identityID, &propertyID, &kind, &rel.AssignedAt, &assignedBy, &rel.IsPrimary, &rel.ExpiresAt, inserted); err != nil {
		return err
	}
	rel.IdentityID = id.UserID(identityID)
	rel.PropertyID = id.PropertyID(propertyID)
	rel.AssignedBy = id.UserID(assignedBy)
	rel.Kind = Kind(kind)
	return nil
}
