package relationship

import (
	"time"

	id "github.com/Stratton1/ppukv6-0-sub001/pkg/domain"
	dErrors "github.com/Stratton1/ppukv6-0-sub001/pkg/domain-errors"
)

// Kind is the closed set of relationship kinds between an identity and a
// property. The zero value KindNone means no relationship exists.
//
// Kinds form a total privilege order: owner > occupier > interested. Resolve
// always reduces multiple held kinds to the maximum, so visibility checks
// operate against one unambiguous tier.
type Kind string

const (
	KindNone       Kind = ""
	KindInterested Kind = "interested"
	KindOccupier   Kind = "occupier"
	KindOwner      Kind = "owner"
)

// privilegeOrder is the single source of truth for tier comparison.
var privilegeOrder = map[Kind]int{
	KindInterested: 1,
	KindOccupier:   2,
	KindOwner:      3,
}

// ParseKind constructs a Kind from external input.
func ParseKind(s string) (Kind, error) {
	if s == "" {
		return KindNone, dErrors.New(dErrors.CodeInvalidInput, "relationship kind cannot be empty")
	}
	k := Kind(s)
	if !k.IsValid() {
		return KindNone, dErrors.Newf(dErrors.CodeInvalidInput, "invalid relationship kind: %q", s)
	}
	return k, nil
}

// IsValid reports whether the kind is one of the supported enum values.
func (k Kind) IsValid() bool {
	switch k {
	case KindOwner, KindOccupier, KindInterested:
		return true
	}
	return false
}

func (k Kind) String() string { return string(k) }

// AtLeast reports whether k sits at or above other in the privilege order.
// KindNone is below every valid kind.
func (k Kind) AtLeast(other Kind) bool {
	return privilegeOrder[k] >= privilegeOrder[other]
}

// Max returns the higher-privilege of the two kinds.
func Max(a, b Kind) Kind {
	if privilegeOrder[a] >= privilegeOrder[b] {
		return a
	}
	return b
}

// Relationship associates an identity with a property under exactly one kind.
// The triple (IdentityID, PropertyID, Kind) is unique; an identity may hold
// several kinds on the same property but never the same kind twice.
type Relationship struct {
	IdentityID id.UserID
	PropertyID id.PropertyID
	Kind       Kind
	AssignedAt time.Time
	AssignedBy id.UserID
	IsPrimary  bool
	ExpiresAt  *time.Time
}

// ListFilter narrows ListByIdentity results.
type ListFilter struct {
	Kind   Kind // KindNone means all kinds
	Limit  int
	Offset int
}
