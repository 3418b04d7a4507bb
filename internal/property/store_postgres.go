package property

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/lib/pq"

	id "github.com/Stratton1/ppukv6-0-sub001/pkg/domain"
	"github.com/Stratton1/ppukv6-0-sub001/pkg/platform/sentinel"
	txcontext "github.com/Stratton1/ppukv6-0-sub001/pkg/platform/tx"
)

const pqUniqueViolation = "23505"

// PostgresStore persists property headers and governed entities. One store
// type backs all four interfaces so callers wire a single dependency.
//
// Schema:
//
//	CREATE TABLE properties (
//	    id         UUID        PRIMARY KEY,
//	    address    TEXT        NOT NULL,
//	    postcode   TEXT        NOT NULL,
//	    uprn       TEXT        NOT NULL DEFAULT '',
//	    created_at TIMESTAMPTZ NOT NULL,
//	    updated_at TIMESTAMPTZ NOT NULL
//	);
//	CREATE TABLE documents (
//	    id           UUID        PRIMARY KEY,
//	    property_id  UUID        NOT NULL REFERENCES properties (id),
//	    uploader_id  UUID        NOT NULL,
//	    filename     TEXT        NOT NULL,
//	    content_type TEXT        NOT NULL,
//	    size_bytes   BIGINT      NOT NULL,
//	    locator      TEXT        NOT NULL,
//	    visibility   TEXT        NOT NULL,
//	    created_at   TIMESTAMPTZ NOT NULL,
//	    updated_at   TIMESTAMPTZ NOT NULL
//	);
//	CREATE INDEX idx_documents_property ON documents (property_id, visibility);
//	CREATE TABLE notes (
//	    id          UUID        PRIMARY KEY,
//	    property_id UUID        NOT NULL REFERENCES properties (id),
//	    author_id   UUID        NOT NULL,
//	    title       TEXT        NOT NULL,
//	    body        TEXT        NOT NULL,
//	    visibility  TEXT        NOT NULL,
//	    created_at  TIMESTAMPTZ NOT NULL,
//	    updated_at  TIMESTAMPTZ NOT NULL
//	);
//	CREATE INDEX idx_notes_property ON notes (property_id, visibility);
//	CREATE TABLE tasks (
//	    id          UUID        PRIMARY KEY,
//	    property_id UUID        NOT NULL REFERENCES properties (id),
//	    creator_id  UUID        NOT NULL,
//	    title       TEXT        NOT NULL,
//	    description TEXT        NOT NULL,
//	    status      TEXT        NOT NULL,
//	    visibility  TEXT        NOT NULL,
//	    due_at      TIMESTAMPTZ,
//	    created_at  TIMESTAMPTZ NOT NULL,
//	    updated_at  TIMESTAMPTZ NOT NULL
//	);
//	CREATE INDEX idx_tasks_property ON tasks (property_id, status, visibility);
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

func isUniqueViolation(err error) bool {
	var pqErr *pq.Error
	return errors.As(err, &pqErr) && string(pqErr.Code) == pqUniqueViolation
}

func (s *PostgresStore) CreateProperty(ctx context.Context, p Property) (Property, error) {
	query := `
		INSERT INTO properties (id, address, postcode, uprn, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6)
	`
	_, err := s.querier(ctx).ExecContext(ctx, query,
		uuid.UUID(p.ID), p.Address, p.Postcode, p.UPRN, p.CreatedAt, p.UpdatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return Property{}, sentinel.ErrConflict
		}
		return Property{}, fmt.Errorf("create property: %w", err)
	}
	return p, nil
}

func (s *PostgresStore) GetProperty(ctx context.Context, propertyID id.PropertyID) (Property, error) {
	query := `
		SELECT id, address, postcode, uprn, created_at, updated_at
		FROM properties
		WHERE id = $1
	`
	var (
		p   Property
		pid uuid.UUID
	)
	err := s.querier(ctx).QueryRowContext(ctx, query, uuid.UUID(propertyID)).
		Scan(&pid, &p.Address, &p.Postcode, &p.UPRN, &p.CreatedAt, &p.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return Property{}, sentinel.ErrNotFound
	}
	if err != nil {
		return Property{}, fmt.Errorf("get property: %w", err)
	}
	p.ID = id.PropertyID(pid)
	return p, nil
}

func (s *PostgresStore) CreateDocument(ctx context.Context, doc Document) (Document, error) {
	query := `
		INSERT INTO documents (id, property_id, uploader_id, filename, content_type, size_bytes, locator, visibility, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
	`
	_, err := s.querier(ctx).ExecContext(ctx, query,
		uuid.UUID(doc.ID), uuid.UUID(doc.PropertyID), uuid.UUID(doc.UploaderID),
		doc.Filename, doc.ContentType, doc.SizeBytes, doc.Locator,
		string(doc.Visibility), doc.CreatedAt, doc.UpdatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return Document{}, sentinel.ErrConflict
		}
		return Document{}, fmt.Errorf("create document: %w", err)
	}
	return doc, nil
}

func (s *PostgresStore) GetDocument(ctx context.Context, documentID id.DocumentID) (Document, error) {
	query := `
		SELECT id, property_id, uploader_id, filename, content_type, size_bytes, locator, visibility, created_at, updated_at
		FROM documents
		WHERE id = $1
	`
	doc, err := scanDocument(s.querier(ctx).QueryRowContext(ctx, query, uuid.UUID(documentID)))
	if errors.Is(err, sql.ErrNoRows) {
		return Document{}, sentinel.ErrNotFound
	}
	if err != nil {
		return Document{}, fmt.Errorf("get document: %w", err)
	}
	return doc, nil
}

func (s *PostgresStore) UpdateDocument(ctx context.Context, doc Document) (Document, error) {
	query := `
		UPDATE documents
		SET filename = $2, visibility = $3, updated_at = $4
		WHERE id = $1
	`
	res, err := s.querier(ctx).ExecContext(ctx, query,
		uuid.UUID(doc.ID), doc.Filename, string(doc.Visibility), doc.UpdatedAt)
	if err != nil {
		return Document{}, fmt.Errorf("update document: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return Document{}, fmt.Errorf("update document: rows affected: %w", err)
	}
	if affected == 0 {
		return Document{}, sentinel.ErrNotFound
	}
	return doc, nil
}

func (s *PostgresStore) DeleteDocument(ctx context.Context, documentID id.DocumentID) (bool, error) {
	res, err := s.querier(ctx).ExecContext(ctx, `DELETE FROM documents WHERE id = $1`, uuid.UUID(documentID))
	if err != nil {
		return false, fmt.Errorf("delete document: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("delete document: rows affected: %w", err)
	}
	return affected > 0, nil
}

func (s *PostgresStore) ListDocuments(ctx context.Context, propertyID id.PropertyID, visible []DocumentVisibility) ([]Document, error) {
	query := `
		SELECT id, property_id, uploader_id, filename, content_type, size_bytes, locator, visibility, created_at, updated_at
		FROM documents
		WHERE property_id = $1 AND visibility = ANY($2)
		ORDER BY created_at DESC, id
	`
	rows, err := s.querier(ctx).QueryContext(ctx, query,
		uuid.UUID(propertyID), pq.Array(docVisibilityStrings(visible)))
	if err != nil {
		return nil, fmt.Errorf("list documents: %w", err)
	}
	defer rows.Close()

	var out []Document
	for rows.Next() {
		doc, err := scanDocument(rows)
		if err != nil {
			return nil, fmt.Errorf("list documents: scan: %w", err)
		}
		out = append(out, doc)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list documents: %w", err)
	}
	return out, nil
}

func (s *PostgresStore) DocumentStats(ctx context.Context, propertyID id.PropertyID, visible []DocumentVisibility) (EntityStats, error) {
	query := `
		SELECT COUNT(*), MAX(updated_at)
		FROM documents
		WHERE property_id = $1 AND visibility = ANY($2)
	`
	return s.scanStats(ctx, "document stats", query,
		uuid.UUID(propertyID), pq.Array(docVisibilityStrings(visible)))
}

func (s *PostgresStore) CreateNote(ctx context.Context, note Note) (Note, error) {
	query := `
		INSERT INTO notes (id, property_id, author_id, title, body, visibility, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`
	_, err := s.querier(ctx).ExecContext(ctx, query,
		uuid.UUID(note.ID), uuid.UUID(note.PropertyID), uuid.UUID(note.AuthorID),
		note.Title, note.Body, string(note.Visibility), note.CreatedAt, note.UpdatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return Note{}, sentinel.ErrConflict
		}
		return Note{}, fmt.Errorf("create note: %w", err)
	}
	return note, nil
}

func (s *PostgresStore) GetNote(ctx context.Context, noteID id.NoteID) (Note, error) {
	query := `
		SELECT id, property_id, author_id, title, body, visibility, created_at, updated_at
		FROM notes
		WHERE id = $1
	`
	note, err := scanNote(s.querier(ctx).QueryRowContext(ctx, query, uuid.UUID(noteID)))
	if errors.Is(err, sql.ErrNoRows) {
		return Note{}, sentinel.ErrNotFound
	}
	if err != nil {
		return Note{}, fmt.Errorf("get note: %w", err)
	}
	return note, nil
}

func (s *PostgresStore) UpdateNote(ctx context.Context, note Note) (Note, error) {
	query := `
		UPDATE notes
		SET title = $2, body = $3, visibility = $4, updated_at = $5
		WHERE id = $1
	`
	res, err := s.querier(ctx).ExecContext(ctx, query,
		uuid.UUID(note.ID), note.Title, note.Body, string(note.Visibility), note.UpdatedAt)
	if err != nil {
		return Note{}, fmt.Errorf("update note: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return Note{}, fmt.Errorf("update note: rows affected: %w", err)
	}
	if affected == 0 {
		return Note{}, sentinel.ErrNotFound
	}
	return note, nil
}

func (s *PostgresStore) DeleteNote(ctx context.Context, noteID id.NoteID) (bool, error) {
	res, err := s.querier(ctx).ExecContext(ctx, `DELETE FROM notes WHERE id = $1`, uuid.UUID(noteID))
	if err != nil {
		return false, fmt.Errorf("delete note: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("delete note: rows affected: %w", err)
	}
	return affected > 0, nil
}

func (s *PostgresStore) ListNotes(ctx context.Context, propertyID id.PropertyID, visible []NoteVisibility) ([]Note, error) {
	query := `
		SELECT id, property_id, author_id, title, body, visibility, created_at, updated_at
		FROM notes
		WHERE property_id = $1 AND visibility = ANY($2)
		ORDER BY created_at DESC, id
	`
	rows, err := s.querier(ctx).QueryContext(ctx, query,
		uuid.UUID(propertyID), pq.Array(noteVisibilityStrings(visible)))
	if err != nil {
		return nil, fmt.Errorf("list notes: %w", err)
	}
	defer rows.Close()

	var out []Note
	for rows.Next() {
		note, err := scanNote(rows)
		if err != nil {
			return nil, fmt.Errorf("list notes: scan: %w", err)
		}
		out = append(out, note)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list notes: %w", err)
	}
	return out, nil
}

func (s *PostgresStore) NoteStats(ctx context.Context, propertyID id.PropertyID, visible []NoteVisibility) (EntityStats, error) {
	query := `
		SELECT COUNT(*), MAX(updated_at)
		FROM notes
		WHERE property_id = $1 AND visibility = ANY($2)
	`
	return s.scanStats(ctx, "note stats", query,
		uuid.UUID(propertyID), pq.Array(noteVisibilityStrings(visible)))
}

func (s *PostgresStore) CreateTask(ctx context.Context, task Task) (Task, error) {
	query := `
		INSERT INTO tasks (id, property_id, creator_id, title, description, status, visibility, due_at, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
	`
	_, err := s.querier(ctx).ExecContext(ctx, query,
		uuid.UUID(task.ID), uuid.UUID(task.PropertyID), uuid.UUID(task.CreatorID),
		task.Title, task.Description, string(task.Status), string(task.Visibility),
		task.DueAt, task.CreatedAt, task.UpdatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return Task{}, sentinel.ErrConflict
		}
		return Task{}, fmt.Errorf("create task: %w", err)
	}
	return task, nil
}

func (s *PostgresStore) GetTask(ctx context.Context, taskID id.TaskID) (Task, error) {
	query := `
		SELECT id, property_id, creator_id, title, description, status, visibility, due_at, created_at, updated_at
		FROM tasks
		WHERE id = $1
	`
	task, err := scanTask(s.querier(ctx).QueryRowContext(ctx, query, uuid.UUID(taskID)))
	if errors.Is(err, sql.ErrNoRows) {
		return Task{}, sentinel.ErrNotFound
	}
	if err != nil {
		return Task{}, fmt.Errorf("get task: %w", err)
	}
	return task, nil
}

func (s *PostgresStore) UpdateTask(ctx context.Context, task Task) (Task, error) {
	query := `
		UPDATE tasks
		SET title = $2, description = $3, status = $4, visibility = $5, due_at = $6, updated_at = $7
		WHERE id = $1
	`
	res, err := s.querier(ctx).ExecContext(ctx, query,
		uuid.UUID(task.ID), task.Title, task.Description, string(task.Status),
		string(task.Visibility), task.DueAt, task.UpdatedAt)
	if err != nil {
		return Task{}, fmt.Errorf("update task: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return Task{}, fmt.Errorf("update task: rows affected: %w", err)
	}
	if affected == 0 {
		return Task{}, sentinel.ErrNotFound
	}
	return task, nil
}

func (s *PostgresStore) DeleteTask(ctx context.Context, taskID id.TaskID) (bool, error) {
	res, err := s.querier(ctx).ExecContext(ctx, `DELETE FROM tasks WHERE id = $1`, uuid.UUID(taskID))
	if err != nil {
		return false, fmt.Errorf("delete task: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("delete task: rows affected: %w", err)
	}
	return affected > 0, nil
}

func (s *PostgresStore) ListTasks(ctx context.Context, propertyID id.PropertyID, statuses []TaskStatus, visible []TaskVisibility) ([]Task, error) {
	query := `
		SELECT id, property_id, creator_id, title, description, status, visibility, due_at, created_at, updated_at
		FROM tasks
		WHERE property_id = $1 AND status = ANY($2) AND visibility = ANY($3)
		ORDER BY created_at DESC, id
	`
	rows, err := s.querier(ctx).QueryContext(ctx, query,
		uuid.UUID(propertyID), pq.Array(taskStatusStrings(statuses)), pq.Array(taskVisibilityStrings(visible)))
	if err != nil {
		return nil, fmt.Errorf("list tasks: %w", err)
	}
	defer rows.Close()

	var out []Task
	for rows.Next() {
		task, err := scanTask(rows)
		if err != nil {
			return nil, fmt.Errorf("list tasks: scan: %w", err)
		}
		out = append(out, task)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list tasks: %w", err)
	}
	return out, nil
}

func (s *PostgresStore) TaskStats(ctx context.Context, propertyID id.PropertyID, statuses []TaskStatus, visible []TaskVisibility) (EntityStats, error) {
	query := `
		SELECT COUNT(*), MAX(updated_at)
		FROM tasks
		WHERE property_id = $1 AND status = ANY($2) AND visibility = ANY($3)
	`
	return s.scanStats(ctx, "task stats", query,
		uuid.UUID(propertyID), pq.Array(taskStatusStrings(statuses)), pq.Array(taskVisibilityStrings(visible)))
}

func (s *PostgresStore) scanStats(ctx context.Context, op, query string, args ...any) (EntityStats, error) {
	var (
		stats EntityStats
		last  sql.NullTime
	)
	if err := s.querier(ctx).QueryRowContext(ctx, query, args...).Scan(&stats.Count, &last); err != nil {
		return EntityStats{}, fmt.Errorf("%s: %w", op, err)
	}
	if last.Valid {
		stats.LastActivity = &last.Time
	}
	return stats, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanDocument(row rowScanner) (Document, error) {
	var (
		doc        Document
		docID      uuid.UUID
		propertyID uuid.UUID
		uploaderID uuid.UUID
		visibility string
	)
	err := row.Scan(&docID, &propertyID, &uploaderID, &doc.Filename, &doc.ContentType,
		&doc.SizeBytes, &doc.Locator, &visibility, &doc.CreatedAt, &doc.UpdatedAt)
	if err != nil {
		return Document{}, err
	}
	doc.ID = id.DocumentID(docID)
	doc.PropertyID = id.PropertyID(propertyID)
	doc.UploaderID = id.UserID(uploaderID)
	doc.Visibility = DocumentVisibility(visibility)
	return doc, nil
}

func scanNote(row rowScanner) (Note, error) {
	var (
		note       Note
		noteID     uuid.UUID
		propertyID uuid.UUID
		authorID   uuid.UUID
		visibility string
	)
	err := row.Scan(&noteID, &propertyID, &authorID, &note.Title, &note.Body,
		&visibility, &note.CreatedAt, &note.UpdatedAt)
	if err != nil {
		return Note{}, err
	}
	note.ID = id.NoteID(noteID)
	note.PropertyID = id.PropertyID(propertyID)
	note.AuthorID = id.UserID(authorID)
	note.Visibility = NoteVisibility(visibility)
	return note, nil
}

func scanTask(row rowScanner) (Task, error) {
	var (
		task       Task
		taskID     uuid.UUID
		propertyID uuid.UUID
		creatorID  uuid.UUID
		status     string
		visibility string
	)
	err := row.Scan(&taskID, &propertyID, &creatorID, &task.Title, &task.Description,
		&status, &visibility, &task.DueAt, &task.CreatedAt, &task.UpdatedAt)
	if err != nil {
		return Task{}, err
	}
	task.ID = id.TaskID(taskID)
	task.PropertyID = id.PropertyID(propertyID)
	task.CreatorID = id.UserID(creatorID)
	task.Status = TaskStatus(status)
	task.Visibility = TaskVisibility(visibility)
	return task, nil
}

func docVisibilityStrings(vs []DocumentVisibility) []string {
	out := make([]string, len(vs))
	for i, v := range vs {
		out[i] = string(v)
	}
	return out
}

func noteVisibilityStrings(vs []NoteVisibility) []string {
	out := make([]string, len(vs))
	for i, v := range vs {
		out[i] = string(v)
	}
	return out
}

func taskVisibilityStrings(vs []TaskVisibility) []string {
	out := make([]string, len(vs))
	for i, v := range vs {
		out[i] = string(v)
	}
	return out
}

func taskStatusStrings(ss []TaskStatus) []string {
	out := make([]string, len(ss))
	for i, s := range ss {
		out[i] = string(s)
	}
	return out
}
