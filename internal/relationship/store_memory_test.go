package relationship

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	id "github.com/Stratton1/ppukv6-0-sub001/pkg/domain"
)

func newRel(identity id.UserID, property id.PropertyID, kind Kind, at time.Time) Relationship {
	return Relationship{
		IdentityID: identity,
		PropertyID: property,
		Kind:       kind,
		AssignedAt: at,
		AssignedBy: identity,
	}
}

func TestInMemoryStore_AddIsIdempotent(t *testing.T) {
	ctx := context.Background()
	store := NewInMemoryStore()
	identity := id.NewUserID()
	property := id.NewPropertyID()

	first, created, err := store.Add(ctx, newRel(identity, property, KindInterested, time.Now()))
	require.NoError(t, err)
	assert.True(t, created)

	// A second add with the same triple returns the existing row, no error.
	second, created, err := store.Add(ctx, newRel(identity, property, KindInterested, time.Now().Add(time.Hour)))
	require.NoError(t, err)
	assert.False(t, created)
	assert.Equal(t, first.AssignedAt, second.AssignedAt)

	rels, total, err := store.ListByIdentity(ctx, identity, ListFilter{})
	require.NoError(t, err)
	assert.Equal(t, 1, total)
	assert.Len(t, rels, 1)
}

func TestInMemoryStore_RemoveMissingIsNoOp(t *testing.T) {
	ctx := context.Background()
	store := NewInMemoryStore()

	removed, err := store.Remove(ctx, id.NewUserID(), id.NewPropertyID(), KindInterested)
	require.NoError(t, err)
	assert.False(t, removed)
}

func TestInMemoryStore_ResolveReturnsMaxPrivilege(t *testing.T) {
	ctx := context.Background()
	store := NewInMemoryStore()
	identity := id.NewUserID()
	property := id.NewPropertyID()

	t.Run("no relationship resolves to none", func(t *testing.T) {
		kind, err := store.Resolve(ctx, identity, property)
		require.NoError(t, err)
		assert.Equal(t, KindNone, kind)
	})

	t.Run("single kind resolves to itself", func(t *testing.T) {
		_, _, err := store.Add(ctx, newRel(identity, property, KindInterested, time.Now()))
		require.NoError(t, err)

		kind, err := store.Resolve(ctx, identity, property)
		require.NoError(t, err)
		assert.Equal(t, KindInterested, kind)
	})

	t.Run("multiple kinds resolve to the maximum", func(t *testing.T) {
		_, _, err := store.Add(ctx, newRel(identity, property, KindOwner, time.Now()))
		require.NoError(t, err)
		_, _, err = store.Add(ctx, newRel(identity, property, KindOccupier, time.Now()))
		require.NoError(t, err)

		kind, err := store.Resolve(ctx, identity, property)
		require.NoError(t, err)
		assert.Equal(t, KindOwner, kind)
	})
}

func TestInMemoryStore_ListByIdentity_FilterAndPagination(t *testing.T) {
	ctx := context.Background()
	store := NewInMemoryStore()
	identity := id.NewUserID()
	base := time.Now()

	for i := 0; i < 5; i++ {
		_, _, err := store.Add(ctx, newRel(identity, id.NewPropertyID(), KindInterested, base.Add(time.Duration(i)*time.Minute)))
		require.NoError(t, err)
	}
	_, _, err := store.Add(ctx, newRel(identity, id.NewPropertyID(), KindOwner, base))
	require.NoError(t, err)

	t.Run("kind filter", func(t *testing.T) {
		rels, total, err := store.ListByIdentity(ctx, identity, ListFilter{Kind: KindOwner})
		require.NoError(t, err)
		assert.Equal(t, 1, total)
		require.Len(t, rels, 1)
		assert.Equal(t, KindOwner, rels[0].Kind)
	})

	t.Run("pagination", func(t *testing.T) {
		page, total, err := store.ListByIdentity(ctx, identity, ListFilter{Limit: 2, Offset: 4})
		require.NoError(t, err)
		assert.Equal(t, 6, total)
		assert.Len(t, page, 2)
	})

	t.Run("offset beyond total", func(t *testing.T) {
		page, total, err := store.ListByIdentity(ctx, identity, ListFilter{Limit: 2, Offset: 10})
		require.NoError(t, err)
		assert.Equal(t, 6, total)
		assert.Empty(t, page)
	})

	t.Run("newest first", func(t *testing.T) {
		rels, _, err := store.ListByIdentity(ctx, identity, ListFilter{Limit: 10})
		require.NoError(t, err)
		require.NotEmpty(t, rels)
		for i := 1; i < len(rels); i++ {
			assert.False(t, rels[i].AssignedAt.After(rels[i-1].AssignedAt))
		}
	})
}

func TestKind_AtLeast(t *testing.T) {
	assert.True(t, KindOwner.AtLeast(KindOccupier))
	assert.True(t, KindOwner.AtLeast(KindOwner))
	assert.True(t, KindOccupier.AtLeast(KindInterested))
	assert.False(t, KindInterested.AtLeast(KindOccupier))
	assert.False(t, KindNone.AtLeast(KindInterested))
	assert.True(t, KindInterested.AtLeast(KindNone))
}

func TestParseKind(t *testing.T) {
	for _, valid := range []string{"owner", "occupier", "interested"} {
		k, err := ParseKind(valid)
		require.NoError(t, err)
		assert.Equal(t, Kind(valid), k)
	}
	_, err := ParseKind("")
	assert.Error(t, err)
	_, err = ParseKind("landlord")
	assert.Error(t, err)
}
