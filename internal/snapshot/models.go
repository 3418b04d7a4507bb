package snapshot

import (
	"time"

	"github.com/Stratton1/ppukv6-0-sub001/internal/external"
	"github.com/Stratton1/ppukv6-0-sub001/internal/property"
	"github.com/Stratton1/ppukv6-0-sub001/internal/relationship"
	id "github.com/Stratton1/ppukv6-0-sub001/pkg/domain"
)

// Options selects the optional external-data sources for one snapshot.
type Options struct {
	IncludeEPC      bool
	IncludeFlood    bool
	IncludePostcode bool
}

// Party is one relationship holder visible to the caller.
type Party struct {
	IdentityID id.UserID         `json:"identity_id"`
	Kind       relationship.Kind `json:"kind"`
	IsPrimary  bool              `json:"is_primary"`
	AssignedAt time.Time         `json:"assigned_at"`
}

// ExternalData carries the optional third-party sections. A nil field means
// the source was not requested or its fetch degraded.
type ExternalData struct {
	EPC      *external.EPCRecord   `json:"epc,omitempty"`
	Flood    *external.FloodRisk   `json:"flood,omitempty"`
	Postcode *external.PostcodeInfo `json:"postcode,omitempty"`
}

// Snapshot is the transient read model assembled per request. It is never
// persisted and never cached keyed by identity; only the external per-source
// data behind it is cached, keyed by query.
type Snapshot struct {
	Property     property.Property   `json:"property"`
	Relationship relationship.Kind   `json:"relationship"`
	Parties      []Party             `json:"parties"`
	Documents    []property.Document `json:"documents"`
	Notes        []property.Note     `json:"notes"`
	Tasks        []property.Task     `json:"tasks"`
	DocumentCount int                `json:"document_count"`
	NoteCount     int                `json:"note_count"`
	TaskCount     int                `json:"task_count"`
	LastActivity  *time.Time         `json:"last_activity,omitempty"`
	External      ExternalData       `json:"external"`
	GeneratedAt   time.Time          `json:"generated_at"`
}

// PropertySummary is one row of the my-properties listing: the property
// header annotated with the holder's tier and tier-filtered activity stats.
type PropertySummary struct {
	Property      property.Property `json:"property"`
	Relationship  relationship.Kind `json:"relationship"`
	IsPrimary     bool              `json:"is_primary"`
	AssignedAt    time.Time         `json:"assigned_at"`
	DocumentCount int               `json:"document_count"`
	NoteCount     int               `json:"note_count"`
	TaskCount     int               `json:"task_count"`
	LastActivity  *time.Time        `json:"last_activity,omitempty"`
}
