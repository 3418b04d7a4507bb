package property

import (
	"context"
	"time"

	id "github.com/Stratton1/ppukv6-0-sub001/pkg/domain"
)

// EntityStats summarizes one entity collection for a property after the
// caller's visibility filter has been applied. LastActivity is nil when the
// filtered set is empty.
type EntityStats struct {
	Count        int
	LastActivity *time.Time
}

// Store looks up property headers. The full property record (valuations,
// listings, media) is managed elsewhere; this core only needs the header to
// anchor snapshots and governed entities.
type Store interface {
	// CreateProperty registers a header. Returns sentinel.ErrConflict when
	// the id is already taken.
	CreateProperty(ctx context.Context, p Property) (Property, error)

	// GetProperty returns the header or sentinel.ErrNotFound.
	GetProperty(ctx context.Context, propertyID id.PropertyID) (Property, error)
}

// DocumentStore persists governed documents. List and stats methods take the
// visibility set the caller is allowed to read; an empty set yields nothing.
type DocumentStore interface {
	CreateDocument(ctx context.Context, doc Document) (Document, error)
	// GetDocument returns the row regardless of visibility; authorization is
	// the service's job, the store only fetches.
	GetDocument(ctx context.Context, documentID id.DocumentID) (Document, error)
	UpdateDocument(ctx context.Context, doc Document) (Document, error)
	// DeleteDocument reports whether a row was removed; deleting a missing
	// document is not an error.
	DeleteDocument(ctx context.Context, documentID id.DocumentID) (bool, error)
	ListDocuments(ctx context.Context, propertyID id.PropertyID, visible []DocumentVisibility) ([]Document, error)
	DocumentStats(ctx context.Context, propertyID id.PropertyID, visible []DocumentVisibility) (EntityStats, error)
}

// NoteStore persists governed notes.
type NoteStore interface {
	CreateNote(ctx context.Context, note Note) (Note, error)
	GetNote(ctx context.Context, noteID id.NoteID) (Note, error)
	UpdateNote(ctx context.Context, note Note) (Note, error)
	DeleteNote(ctx context.Context, noteID id.NoteID) (bool, error)
	ListNotes(ctx context.Context, propertyID id.PropertyID, visible []NoteVisibility) ([]Note, error)
	NoteStats(ctx context.Context, propertyID id.PropertyID, visible []NoteVisibility) (EntityStats, error)
}

// TaskStore persists governed tasks. Tasks filter on two axes, lifecycle
// status and visibility; both sets must match for a row to surface.
type TaskStore interface {
	CreateTask(ctx context.Context, task Task) (Task, error)
	GetTask(ctx context.Context, taskID id.TaskID) (Task, error)
	UpdateTask(ctx context.Context, task Task) (Task, error)
	DeleteTask(ctx context.Context, taskID id.TaskID) (bool, error)
	ListTasks(ctx context.Context, propertyID id.PropertyID, statuses []TaskStatus, visible []TaskVisibility) ([]Task, error)
	TaskStats(ctx context.Context, propertyID id.PropertyID, statuses []TaskStatus, visible []TaskVisibility) (EntityStats, error)
}
