// Package domain holds typed identifiers shared across the platform core.
//
// IDs are distinct types over uuid.UUID so the compiler rejects cross-type
// assignment (a UserID can never be passed where a PropertyID is expected).
// Construct them via the Parse functions at trust boundaries; direct casting
// bypasses validation.
package domain

import (
	"github.com/google/uuid"

	dErrors "github.com/Stratton1/ppukv6-0-sub001/pkg/domain-errors"
)

// UserID identifies a principal. Lifecycle is owned by the external auth
// collaborator; this core only stores foreign references.
type UserID uuid.UUID

// PropertyID identifies a property aggregate root.
type PropertyID uuid.UUID

// DocumentID identifies a governed document.
type DocumentID uuid.UUID

// NoteID identifies a governed note.
type NoteID uuid.UUID

// TaskID identifies a governed task.
type TaskID uuid.UUID

func parseUUID(s string) (uuid.UUID, error) {
	if s == "" {
		return uuid.Nil, dErrors.New(dErrors.CodeInvalidInput, "id cannot be empty")
	}
	u, err := uuid.Parse(s)
	if err != nil {
		return uuid.Nil, dErrors.New(dErrors.CodeInvalidInput, "id is not a valid UUID")
	}
	if u == uuid.Nil {
		return uuid.Nil, dErrors.New(dErrors.CodeInvalidInput, "id cannot be the nil UUID")
	}
	return u, nil
}

// ParseUserID validates and returns a UserID.
func ParseUserID(s string) (UserID, error) {
	u, err := parseUUID(s)
	if err != nil {
		return UserID(uuid.Nil), err
	}
	return UserID(u), nil
}

// ParsePropertyID validates and returns a PropertyID.
func ParsePropertyID(s string) (PropertyID, error) {
	u, err := parseUUID(s)
	if err != nil {
		return PropertyID(uuid.Nil), err
	}
	return PropertyID(u), nil
}

// ParseDocumentID validates and returns a DocumentID.
func ParseDocumentID(s string) (DocumentID, error) {
	u, err := parseUUID(s)
	if err != nil {
		return DocumentID(uuid.Nil), err
	}
	return DocumentID(u), nil
}

// ParseNoteID validates and returns a NoteID.
func ParseNoteID(s string) (NoteID, error) {
	u, err := parseUUID(s)
	if err != nil {
		return NoteID(uuid.Nil), err
	}
	return NoteID(u), nil
}

// ParseTaskID validates and returns a TaskID.
func ParseTaskID(s string) (TaskID, error) {
	u, err := parseUUID(s)
	if err != nil {
		return TaskID(uuid.Nil), err
	}
	return TaskID(u), nil
}

func (id UserID) String() string     { return uuid.UUID(id).String() }
func (id PropertyID) String() string { return uuid.UUID(id).String() }
func (id DocumentID) String() string { return uuid.UUID(id).String() }
func (id NoteID) String() string     { return uuid.UUID(id).String() }
func (id TaskID) String() string     { return uuid.UUID(id).String() }

// MarshalText renders IDs as canonical UUID strings so JSON carries
// "3f2a..." rather than a raw byte array.
func (id UserID) MarshalText() ([]byte, error)     { return []byte(id.String()), nil }
func (id PropertyID) MarshalText() ([]byte, error) { return []byte(id.String()), nil }
func (id DocumentID) MarshalText() ([]byte, error) { return []byte(id.String()), nil }
func (id NoteID) MarshalText() ([]byte, error)     { return []byte(id.String()), nil }
func (id TaskID) MarshalText() ([]byte, error)     { return []byte(id.String()), nil }

func (id *UserID) UnmarshalText(b []byte) error {
	parsed, err := ParseUserID(string(b))
	if err != nil {
		return err
	}
	*id = parsed
	return nil
}

func (id *PropertyID) UnmarshalText(b []byte) error {
	parsed, err := ParsePropertyID(string(b))
	if err != nil {
		return err
	}
	*id = parsed
	return nil
}

func (id *DocumentID) UnmarshalText(b []byte) error {
	parsed, err := ParseDocumentID(string(b))
	if err != nil {
		return err
	}
	*id = parsed
	return nil
}

func (id *NoteID) UnmarshalText(b []byte) error {
	parsed, err := ParseNoteID(string(b))
	if err != nil {
		return err
	}
	*id = parsed
	return nil
}

func (id *TaskID) UnmarshalText(b []byte) error {
	parsed, err := ParseTaskID(string(b))
	if err != nil {
		return err
	}
	*id = parsed
	return nil
}

func (id UserID) IsNil() bool     { return uuid.UUID(id) == uuid.Nil }
func (id PropertyID) IsNil() bool { return uuid.UUID(id) == uuid.Nil }
func (id DocumentID) IsNil() bool { return uuid.UUID(id) == uuid.Nil }
func (id NoteID) IsNil() bool     { return uuid.UUID(id) == uuid.Nil }
func (id TaskID) IsNil() bool     { return uuid.UUID(id) == uuid.Nil }

// NewUserID generates a fresh UserID. Test helper; production identities come
// from the auth verifier.
func NewUserID() UserID { return UserID(uuid.New()) }

// NewPropertyID generates a fresh PropertyID.
func NewPropertyID() PropertyID { return PropertyID(uuid.New()) }

// NewDocumentID generates a fresh DocumentID.
func NewDocumentID() DocumentID { return DocumentID(uuid.New()) }

// NewNoteID generates a fresh NoteID.
func NewNoteID() NoteID { return NoteID(uuid.New()) }

// NewTaskID generates a fresh TaskID.
func NewTaskID() TaskID { return TaskID(uuid.New()) }
