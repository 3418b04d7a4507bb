package relationship

import (
	"context"

	id "github.com/Stratton1/ppukv6-0-sub001/pkg/domain"
)

// Store persists identity-property relationships. Implementations enforce the
// (identity, property, kind) uniqueness constraint at the storage layer so
// concurrent duplicate adds serialize there, not through application locks.
type Store interface {
	// Add inserts the relationship or, when the triple already exists,
	// returns the stored record unchanged. The bool reports whether a new
	// row was created. Atomic insert-or-return-existing semantics make
	// concurrent duplicate adds safe.
	Add(ctx context.Context, rel Relationship) (Relationship, bool, error)

	// Remove deletes the relationship if present. Removing a missing
	// relationship is a no-op, not an error; the bool reports whether a
	// row was actually deleted.
	Remove(ctx context.Context, identity id.UserID, property id.PropertyID, kind Kind) (bool, error)

	// Resolve returns the highest-privilege kind the identity holds on the
	// property, or KindNone when no relationship exists.
	Resolve(ctx context.Context, identity id.UserID, property id.PropertyID) (Kind, error)

	// ListByIdentity returns the identity's relationships, optionally
	// filtered to one kind, newest first. The int is the total count before
	// limit/offset for pagination.
	ListByIdentity(ctx context.Context, identity id.UserID, filter ListFilter) ([]Relationship, int, error)

	// ListByProperty returns every relationship held on the property.
	ListByProperty(ctx context.Context, property id.PropertyID) ([]Relationship, error)
}
