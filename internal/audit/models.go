package audit

import (
	"time"

	"github.com/google/uuid"

	id "github.com/Stratton1/ppukv6-0-sub001/pkg/domain"
	dErrors "github.com/Stratton1/ppukv6-0-sub001/pkg/domain-errors"
)

// Action is the closed set of governed mutations. No entry means no mutation
// occurred; the recorder is invoked inside the same transaction as the write
// it describes.
type Action string

const (
	ActionCreate   Action = "create"
	ActionUpdate   Action = "update"
	ActionDelete   Action = "delete"
	ActionUpload   Action = "upload"
	ActionDownload Action = "download"
	ActionShare    Action = "share"
	ActionClaim    Action = "claim"
	ActionUnclaim  Action = "unclaim"
)

// IsValid reports whether the action is one of the supported enum values.
func (a Action) IsValid() bool {
	switch a {
	case ActionCreate, ActionUpdate, ActionDelete, ActionUpload,
		ActionDownload, ActionShare, ActionClaim, ActionUnclaim:
		return true
	}
	return false
}

// EntityType names the governed entity an entry refers to.
type EntityType string

const (
	EntityProperty     EntityType = "property"
	EntityRelationship EntityType = "relationship"
	EntityDocument     EntityType = "document"
	EntityNote         EntityType = "note"
	EntityTask         EntityType = "task"
)

// Entry is an immutable audit record. The public contract has no update or
// delete; retention sweeps live outside this core.
type Entry struct {
	ID         uuid.UUID
	Actor      id.UserID
	Action     Action
	EntityType EntityType
	EntityID   string
	OldValues  map[string]any
	NewValues  map[string]any
	Metadata   map[string]any
	Timestamp  time.Time
}

// Validate checks the fields every entry must carry.
func (e Entry) Validate() error {
	if e.Actor.IsNil() {
		return dErrors.New(dErrors.CodeInvalidInput, "audit entry requires an actor")
	}
	if !e.Action.IsValid() {
		return dErrors.Newf(dErrors.CodeInvalidInput, "invalid audit action: %q", string(e.Action))
	}
	if e.EntityType == "" || e.EntityID == "" {
		return dErrors.New(dErrors.CodeInvalidInput, "audit entry requires entity type and id")
	}
	return nil
}
