package property

import (
	"time"

	id "github.com/Stratton1/ppukv6-0-sub001/pkg/domain"
	dErrors "github.com/Stratton1/ppukv6-0-sub001/pkg/domain-errors"
)

// Property is the aggregate root header. Ownership and editing of the full
// record live outside this core; snapshots only need the header fields.
type Property struct {
	ID        id.PropertyID
	Address   string
	Postcode  string
	UPRN      string
	CreatedAt time.Time
	UpdatedAt time.Time
}

// DocumentVisibility is the closed visibility set for documents.
type DocumentVisibility string

const (
	DocumentPrivate DocumentVisibility = "private"
	DocumentPublic  DocumentVisibility = "public"
)

// ParseDocumentVisibility constructs a DocumentVisibility from external input.
func ParseDocumentVisibility(s string) (DocumentVisibility, error) {
	v := DocumentVisibility(s)
	switch v {
	case DocumentPrivate, DocumentPublic:
		return v, nil
	}
	return "", dErrors.Newf(dErrors.CodeInvalidInput, "invalid document visibility: %q", s)
}

// NoteVisibility is the closed visibility set for notes.
type NoteVisibility string

const (
	NotePrivate NoteVisibility = "private"
	NoteShared  NoteVisibility = "shared"
	NotePublic  NoteVisibility = "public"
)

// ParseNoteVisibility constructs a NoteVisibility from external input.
func ParseNoteVisibility(s string) (NoteVisibility, error) {
	v := NoteVisibility(s)
	switch v {
	case NotePrivate, NoteShared, NotePublic:
		return v, nil
	}
	return "", dErrors.Newf(dErrors.CodeInvalidInput, "invalid note visibility: %q", s)
}

// TaskVisibility is the closed visibility set for tasks.
type TaskVisibility string

const (
	TaskVisibilityPrivate TaskVisibility = "private"
	TaskVisibilityShared  TaskVisibility = "shared"
	TaskVisibilityPublic  TaskVisibility = "public"
)

// ParseTaskVisibility constructs a TaskVisibility from external input.
func ParseTaskVisibility(s string) (TaskVisibility, error) {
	v := TaskVisibility(s)
	switch v {
	case TaskVisibilityPrivate, TaskVisibilityShared, TaskVisibilityPublic:
		return v, nil
	}
	return "", dErrors.Newf(dErrors.CodeInvalidInput, "invalid task visibility: %q", s)
}

// TaskStatus is the closed lifecycle set for tasks.
type TaskStatus string

const (
	TaskPending    TaskStatus = "pending"
	TaskInProgress TaskStatus = "in_progress"
	TaskCompleted  TaskStatus = "completed"
	TaskCancelled  TaskStatus = "cancelled"
)

// ParseTaskStatus constructs a TaskStatus from external input.
func ParseTaskStatus(s string) (TaskStatus, error) {
	v := TaskStatus(s)
	switch v {
	case TaskPending, TaskInProgress, TaskCompleted, TaskCancelled:
		return v, nil
	}
	return "", dErrors.Newf(dErrors.CodeInvalidInput, "invalid task status: %q", s)
}

// Document is a governed entity: its visibility is set by the uploader at
// write time and mutable only by the uploader or a property owner.
type Document struct {
	ID          id.DocumentID
	PropertyID  id.PropertyID
	UploaderID  id.UserID
	Filename    string
	ContentType string
	SizeBytes   int64
	Locator     string
	Visibility  DocumentVisibility
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// Note is a governed entity with tri-state visibility.
type Note struct {
	ID         id.NoteID
	PropertyID id.PropertyID
	AuthorID   id.UserID
	Title      string
	Body       string
	Visibility NoteVisibility
	CreatedAt  time.Time
	UpdatedAt  time.Time
}

// Task is a governed entity with tri-state visibility and a lifecycle status.
type Task struct {
	ID          id.TaskID
	PropertyID  id.PropertyID
	CreatorID   id.UserID
	Title       string
	Description string
	Status      TaskStatus
	Visibility  TaskVisibility
	DueAt       *time.Time
	CreatedAt   time.Time
	UpdatedAt   time.Time
}
