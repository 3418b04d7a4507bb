package snapshot

import (
	"context"
	"errors"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Stratton1/ppukv6-0-sub001/internal/external"
	"github.com/Stratton1/ppukv6-0-sub001/internal/external/cache"
	"github.com/Stratton1/ppukv6-0-sub001/internal/platform/config"
	"github.com/Stratton1/ppukv6-0-sub001/internal/property"
	"github.com/Stratton1/ppukv6-0-sub001/internal/relationship"
	id "github.com/Stratton1/ppukv6-0-sub001/pkg/domain"
	dErrors "github.com/Stratton1/ppukv6-0-sub001/pkg/domain-errors"
)

type fixture struct {
	svc        *Service
	props      *property.MemoryStore
	rels       *relationship.InMemoryStore
	propertyID id.PropertyID
	owner      id.UserID
	interested id.UserID
}

func newFixture(t *testing.T, clients external.Clients) *fixture {
	t.Helper()

	props := property.NewMemoryStore()
	rels := relationship.NewInMemoryStore()
	propertyID := id.NewPropertyID()
	owner := id.NewUserID()
	interested := id.NewUserID()

	ctx := context.Background()
	now := time.Now().UTC()
	_, err := props.CreateProperty(ctx, property.Property{
		ID: propertyID, Address: "7 Castle Wynd, Edinburgh", Postcode: "EH1 2NG",
		UPRN: "906205784", CreatedAt: now, UpdatedAt: now,
	})
	require.NoError(t, err)

	for user, kind := range map[id.UserID]relationship.Kind{
		owner:      relationship.KindOwner,
		interested: relationship.KindInterested,
	} {
		_, _, err := rels.Add(ctx, relationship.Relationship{
			IdentityID: user, PropertyID: propertyID, Kind: kind,
			AssignedAt: now, AssignedBy: user,
		})
		require.NoError(t, err)
	}

	logger := slog.New(slog.DiscardHandler)
	ext := external.NewService(clients, cache.NewMemory(), config.ExternalConfig{
		FetchTimeout: 500 * time.Millisecond,
		EPCTTL:       time.Hour, FloodTTL: time.Hour, PostcodeTTL: time.Hour,
	}, nil, logger)

	return &fixture{
		svc:        NewService(props, props, props, props, rels, ext, nil, logger),
		props:      props,
		rels:       rels,
		propertyID: propertyID,
		owner:      owner,
		interested: interested,
	}
}

func (f *fixture) addDocument(t *testing.T, uploader id.UserID, vis property.DocumentVisibility) property.Document {
	t.Helper()
	now := time.Now().UTC()
	doc, err := f.props.CreateDocument(context.Background(), property.Document{
		ID: id.NewDocumentID(), PropertyID: f.propertyID, UploaderID: uploader,
		Filename: "doc.pdf", ContentType: "application/pdf", SizeBytes: 100,
		Locator: "blob://" + string(vis), Visibility: vis, CreatedAt: now, UpdatedAt: now,
	})
	require.NoError(t, err)
	return doc
}

func (f *fixture) addNote(t *testing.T, author id.UserID, vis property.NoteVisibility) {
	t.Helper()
	now := time.Now().UTC()
	_, err := f.props.CreateNote(context.Background(), property.Note{
		ID: id.NewNoteID(), PropertyID: f.propertyID, AuthorID: author,
		Title: "note", Body: "body", Visibility: vis, CreatedAt: now, UpdatedAt: now,
	})
	require.NoError(t, err)
}

func TestBuildAccessControl(t *testing.T) {
	ctx := context.Background()

	t.Run("no relationship is forbidden", func(t *testing.T) {
		f := newFixture(t, external.Clients{})
		_, err := f.svc.Build(ctx, id.NewUserID(), f.propertyID, Options{})
		require.Error(t, err)
		assert.True(t, dErrors.HasCode(err, dErrors.CodeForbidden))
	})

	t.Run("absent property is not found even without a relationship", func(t *testing.T) {
		f := newFixture(t, external.Clients{})
		_, err := f.svc.Build(ctx, f.owner, id.NewPropertyID(), Options{})
		require.Error(t, err)
		assert.True(t, dErrors.HasCode(err, dErrors.CodeNotFound))
	})
}

func TestBuildTierFiltering(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, external.Clients{})

	privateDoc := f.addDocument(t, f.owner, property.DocumentPrivate)
	publicDoc := f.addDocument(t, f.owner, property.DocumentPublic)
	f.addNote(t, f.owner, property.NotePrivate)
	f.addNote(t, f.owner, property.NotePublic)

	ownerSnap, err := f.svc.Build(ctx, f.owner, f.propertyID, Options{})
	require.NoError(t, err)
	interestedSnap, err := f.svc.Build(ctx, f.interested, f.propertyID, Options{})
	require.NoError(t, err)

	t.Run("owner sees both documents, interested only the public one", func(t *testing.T) {
		assert.Len(t, ownerSnap.Documents, 2)
		require.Len(t, interestedSnap.Documents, 1)
		assert.Equal(t, publicDoc.ID, interestedSnap.Documents[0].ID)
		for _, doc := range interestedSnap.Documents {
			assert.NotEqual(t, privateDoc.ID, doc.ID)
		}
	})

	t.Run("counts equal the filtered lengths, so tiers differ by one", func(t *testing.T) {
		assert.Equal(t, 2, ownerSnap.DocumentCount)
		assert.Equal(t, 1, interestedSnap.DocumentCount)
		assert.Equal(t, len(ownerSnap.Notes), ownerSnap.NoteCount)
		assert.Equal(t, len(interestedSnap.Notes), interestedSnap.NoteCount)
		assert.Equal(t, 1, interestedSnap.NoteCount)
	})

	t.Run("parties section follows the tier", func(t *testing.T) {
		assert.Len(t, ownerSnap.Parties, 2, "owner sees every party")
		require.Len(t, interestedSnap.Parties, 1, "interested sees only interested parties")
		assert.Equal(t, relationship.KindInterested, interestedSnap.Parties[0].Kind)
	})

	t.Run("resolved tier is reported", func(t *testing.T) {
		assert.Equal(t, relationship.KindOwner, ownerSnap.Relationship)
		assert.Equal(t, relationship.KindInterested, interestedSnap.Relationship)
	})
}

// Watching a property grants the interested tier and with it the public rows.
func TestWatchThenSnapshot(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, external.Clients{})
	f.addDocument(t, f.owner, property.DocumentPrivate)
	f.addDocument(t, f.owner, property.DocumentPublic)

	u := id.NewUserID()
	_, err := f.svc.Build(ctx, u, f.propertyID, Options{})
	require.Error(t, err)
	assert.True(t, dErrors.HasCode(err, dErrors.CodeForbidden))

	_, _, err = f.rels.Add(ctx, relationship.Relationship{
		IdentityID: u, PropertyID: f.propertyID, Kind: relationship.KindInterested,
		AssignedAt: time.Now().UTC(), AssignedBy: u,
	})
	require.NoError(t, err)

	snap, err := f.svc.Build(ctx, u, f.propertyID, Options{})
	require.NoError(t, err)
	require.Len(t, snap.Documents, 1)
	assert.Equal(t, property.DocumentPublic, snap.Documents[0].Visibility)
}

func TestBuildExternalData(t *testing.T) {
	ctx := context.Background()

	t.Run("requested sources are attached", func(t *testing.T) {
		f := newFixture(t, external.Clients{
			EPC:      external.MockEPCClient{},
			Flood:    external.MockFloodClient{},
			Postcode: external.MockPostcodeClient{},
		})

		snap, err := f.svc.Build(ctx, f.owner, f.propertyID,
			Options{IncludeEPC: true, IncludeFlood: true, IncludePostcode: true})
		require.NoError(t, err)
		require.NotNil(t, snap.External.EPC)
		assert.Equal(t, "906205784", snap.External.EPC.UPRN)
		assert.NotNil(t, snap.External.Flood)
		assert.NotNil(t, snap.External.Postcode)
	})

	t.Run("unrequested sources stay absent", func(t *testing.T) {
		f := newFixture(t, external.Clients{
			EPC:      external.MockEPCClient{},
			Flood:    external.MockFloodClient{},
			Postcode: external.MockPostcodeClient{},
		})

		snap, err := f.svc.Build(ctx, f.owner, f.propertyID, Options{IncludeFlood: true})
		require.NoError(t, err)
		assert.Nil(t, snap.External.EPC)
		assert.NotNil(t, snap.External.Flood)
		assert.Nil(t, snap.External.Postcode)
	})

	t.Run("one failing source degrades only its own field", func(t *testing.T) {
		f := newFixture(t, external.Clients{
			EPC:      external.MockEPCClient{Err: errors.New("register down")},
			Flood:    external.MockFloodClient{},
			Postcode: external.MockPostcodeClient{},
		})

		snap, err := f.svc.Build(ctx, f.owner, f.propertyID,
			Options{IncludeEPC: true, IncludeFlood: true, IncludePostcode: true})
		require.NoError(t, err, "external failure is never terminal")
		assert.Nil(t, snap.External.EPC)
		assert.NotNil(t, snap.External.Flood)
		assert.NotNil(t, snap.External.Postcode)
	})

	t.Run("slow source degrades instead of blocking", func(t *testing.T) {
		f := newFixture(t, external.Clients{
			EPC: external.MockEPCClient{Latency: 5 * time.Second},
		})

		start := time.Now()
		snap, err := f.svc.Build(ctx, f.owner, f.propertyID, Options{IncludeEPC: true})
		require.NoError(t, err)
		assert.Nil(t, snap.External.EPC)
		assert.Less(t, time.Since(start), 2*time.Second)
	})
}

func TestMyProperties(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, external.Clients{})
	f.addDocument(t, f.owner, property.DocumentPrivate)
	f.addDocument(t, f.owner, property.DocumentPublic)

	t.Run("rows carry tier-filtered stats", func(t *testing.T) {
		ownerRows, total, err := f.svc.MyProperties(ctx, f.owner, relationship.ListFilter{})
		require.NoError(t, err)
		assert.Equal(t, 1, total)
		require.Len(t, ownerRows, 1)
		assert.Equal(t, 2, ownerRows[0].DocumentCount)
		assert.NotNil(t, ownerRows[0].LastActivity)

		interestedRows, _, err := f.svc.MyProperties(ctx, f.interested, relationship.ListFilter{})
		require.NoError(t, err)
		require.Len(t, interestedRows, 1)
		assert.Equal(t, 1, interestedRows[0].DocumentCount)
	})

	t.Run("kind filter narrows the listing", func(t *testing.T) {
		rows, total, err := f.svc.MyProperties(ctx, f.owner,
			relationship.ListFilter{Kind: relationship.KindInterested})
		require.NoError(t, err)
		assert.Zero(t, total)
		assert.Empty(t, rows)
	})
}
