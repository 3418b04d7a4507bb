package records

import (
	"context"
	"errors"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Stratton1/ppukv6-0-sub001/internal/audit"
	"github.com/Stratton1/ppukv6-0-sub001/internal/blob"
	"github.com/Stratton1/ppukv6-0-sub001/internal/property"
	"github.com/Stratton1/ppukv6-0-sub001/internal/relationship"
	id "github.com/Stratton1/ppukv6-0-sub001/pkg/domain"
	dErrors "github.com/Stratton1/ppukv6-0-sub001/pkg/domain-errors"
	"github.com/Stratton1/ppukv6-0-sub001/pkg/platform/tx"
)

type fixture struct {
	svc        *Service
	props      *property.MemoryStore
	rels       *relationship.InMemoryStore
	auditStore *audit.InMemoryStore
	blobs      *blob.MockStore

	propertyID id.PropertyID
	owner      id.UserID
	occupier   id.UserID
	interested id.UserID
	stranger   id.UserID
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	f := &fixture{
		props:      property.NewMemoryStore(),
		rels:       relationship.NewInMemoryStore(),
		auditStore: audit.NewInMemoryStore(),
		blobs:      blob.NewMockStore(),
		propertyID: id.NewPropertyID(),
		owner:      id.NewUserID(),
		occupier:   id.NewUserID(),
		interested: id.NewUserID(),
		stranger:   id.NewUserID(),
	}

	ctx := context.Background()
	now := time.Now().UTC()
	_, err := f.props.CreateProperty(ctx, property.Property{
		ID: f.propertyID, Address: "4 Mill Road, Leeds", Postcode: "LS1 2AB",
		CreatedAt: now, UpdatedAt: now,
	})
	require.NoError(t, err)

	for user, kind := range map[id.UserID]relationship.Kind{
		f.owner:      relationship.KindOwner,
		f.occupier:   relationship.KindOccupier,
		f.interested: relationship.KindInterested,
	} {
		_, _, err := f.rels.Add(ctx, relationship.Relationship{
			IdentityID: user, PropertyID: f.propertyID, Kind: kind,
			AssignedAt: now, AssignedBy: user,
		})
		require.NoError(t, err)
	}

	f.svc = NewService(
		tx.NewMemoryRunner(),
		f.props, f.props, f.props, f.props,
		f.rels,
		audit.NewRecorder(f.auditStore, nil),
		f.blobs,
		slog.New(slog.DiscardHandler),
	)
	return f
}

func (f *fixture) entriesFor(t *testing.T, entityType audit.EntityType, entityID string) []audit.Entry {
	t.Helper()
	entries, err := f.auditStore.ListByEntity(context.Background(), entityType, entityID)
	require.NoError(t, err)
	return entries
}

func TestUploadDocument(t *testing.T) {
	ctx := context.Background()

	t.Run("occupier upload persists row, payload and audit entry", func(t *testing.T) {
		f := newFixture(t)

		doc, err := f.svc.UploadDocument(ctx, f.occupier, f.propertyID,
			[]byte("gas safety certificate"), "gas-cert.pdf", "application/pdf", property.DocumentPrivate)
		require.NoError(t, err)

		stored, err := f.props.GetDocument(ctx, doc.ID)
		require.NoError(t, err)
		assert.Equal(t, f.occupier, stored.UploaderID)
		assert.Equal(t, int64(22), stored.SizeBytes)

		payload, ok := f.blobs.Object(stored.Locator)
		require.True(t, ok)
		assert.Equal(t, []byte("gas safety certificate"), payload)

		entries := f.entriesFor(t, audit.EntityDocument, doc.ID.String())
		require.Len(t, entries, 1)
		assert.Equal(t, audit.ActionUpload, entries[0].Action)
		assert.Equal(t, f.occupier, entries[0].Actor)
	})

	t.Run("interested tier may not upload", func(t *testing.T) {
		f := newFixture(t)

		_, err := f.svc.UploadDocument(ctx, f.interested, f.propertyID,
			[]byte("x"), "x.pdf", "application/pdf", property.DocumentPublic)
		require.Error(t, err)
		assert.True(t, dErrors.HasCode(err, dErrors.CodeForbidden))
	})

	t.Run("unknown property is not found, not forbidden", func(t *testing.T) {
		f := newFixture(t)

		_, err := f.svc.UploadDocument(ctx, f.owner, id.NewPropertyID(),
			[]byte("x"), "x.pdf", "application/pdf", property.DocumentPublic)
		require.Error(t, err)
		assert.True(t, dErrors.HasCode(err, dErrors.CodeNotFound))
	})

	t.Run("failed audit write rolls the document back", func(t *testing.T) {
		f := newFixture(t)
		f.auditStore.FailNextAppend(errors.New("audit storage down"))

		doc, err := f.svc.UploadDocument(ctx, f.owner, f.propertyID,
			[]byte("x"), "x.pdf", "application/pdf", property.DocumentPublic)
		require.Error(t, err)

		// No mutation without its audit entry.
		docs, listErr := f.props.ListDocuments(ctx, f.propertyID,
			[]property.DocumentVisibility{property.DocumentPrivate, property.DocumentPublic})
		require.NoError(t, listErr)
		assert.Empty(t, docs)
		assert.Empty(t, f.entriesFor(t, audit.EntityDocument, doc.ID.String()))
	})
}

func TestSignedDownloadURL(t *testing.T) {
	ctx := context.Background()

	upload := func(t *testing.T, f *fixture, vis property.DocumentVisibility) property.Document {
		t.Helper()
		doc, err := f.svc.UploadDocument(ctx, f.occupier, f.propertyID,
			[]byte("contents"), "doc.pdf", "application/pdf", vis)
		require.NoError(t, err)
		return doc
	}

	t.Run("owner downloads a private document", func(t *testing.T) {
		f := newFixture(t)
		doc := upload(t, f, property.DocumentPrivate)

		url, err := f.svc.SignedDownloadURL(ctx, f.owner, doc.ID)
		require.NoError(t, err)
		assert.Contains(t, url, doc.Locator)

		entries := f.entriesFor(t, audit.EntityDocument, doc.ID.String())
		require.Len(t, entries, 2, "upload then download")
		assert.Equal(t, audit.ActionDownload, entries[1].Action)
	})

	t.Run("interested tier cannot reach a private document", func(t *testing.T) {
		f := newFixture(t)
		doc := upload(t, f, property.DocumentPrivate)

		_, err := f.svc.SignedDownloadURL(ctx, f.interested, doc.ID)
		require.Error(t, err)
		assert.True(t, dErrors.HasCode(err, dErrors.CodeForbidden))
	})

	t.Run("uploader always reaches their own document", func(t *testing.T) {
		f := newFixture(t)
		doc := upload(t, f, property.DocumentPrivate)

		_, err := f.svc.SignedDownloadURL(ctx, f.occupier, doc.ID)
		require.NoError(t, err)
	})

	t.Run("stranger is forbidden even for public documents", func(t *testing.T) {
		f := newFixture(t)
		doc := upload(t, f, property.DocumentPublic)

		_, err := f.svc.SignedDownloadURL(ctx, f.stranger, doc.ID)
		require.Error(t, err)
		assert.True(t, dErrors.HasCode(err, dErrors.CodeForbidden))
	})

	t.Run("missing document is not found", func(t *testing.T) {
		f := newFixture(t)

		_, err := f.svc.SignedDownloadURL(ctx, f.owner, id.NewDocumentID())
		require.Error(t, err)
		assert.True(t, dErrors.HasCode(err, dErrors.CodeNotFound))
	})
}

func TestUpdateDocument(t *testing.T) {
	ctx := context.Background()
	public := property.DocumentPublic

	t.Run("widening visibility audits as share", func(t *testing.T) {
		f := newFixture(t)
		doc, err := f.svc.UploadDocument(ctx, f.occupier, f.propertyID,
			[]byte("x"), "deed.pdf", "application/pdf", property.DocumentPrivate)
		require.NoError(t, err)

		updated, err := f.svc.UpdateDocument(ctx, f.occupier, doc.ID, DocumentUpdate{Visibility: &public})
		require.NoError(t, err)
		assert.Equal(t, property.DocumentPublic, updated.Visibility)

		entries := f.entriesFor(t, audit.EntityDocument, doc.ID.String())
		require.Len(t, entries, 2)
		assert.Equal(t, audit.ActionShare, entries[1].Action)
		assert.Equal(t, "private", entries[1].OldValues["visibility"])
		assert.Equal(t, "public", entries[1].NewValues["visibility"])
	})

	t.Run("property owner may change another uploader's document", func(t *testing.T) {
		f := newFixture(t)
		doc, err := f.svc.UploadDocument(ctx, f.occupier, f.propertyID,
			[]byte("x"), "deed.pdf", "application/pdf", property.DocumentPrivate)
		require.NoError(t, err)

		_, err = f.svc.UpdateDocument(ctx, f.owner, doc.ID, DocumentUpdate{Visibility: &public})
		require.NoError(t, err)
	})

	t.Run("neither creator nor owner is forbidden", func(t *testing.T) {
		f := newFixture(t)
		doc, err := f.svc.UploadDocument(ctx, f.owner, f.propertyID,
			[]byte("x"), "deed.pdf", "application/pdf", property.DocumentPrivate)
		require.NoError(t, err)

		_, err = f.svc.UpdateDocument(ctx, f.occupier, doc.ID, DocumentUpdate{Visibility: &public})
		require.Error(t, err)
		assert.True(t, dErrors.HasCode(err, dErrors.CodeForbidden))
	})
}

func TestNoteLifecycle(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	note, err := f.svc.CreateNote(ctx, f.occupier, f.propertyID,
		"meter location", "under the stairs", property.NotePrivate)
	require.NoError(t, err)

	shared := property.NoteShared
	updated, err := f.svc.UpdateNote(ctx, f.occupier, note.ID, NoteUpdate{Visibility: &shared})
	require.NoError(t, err)
	assert.Equal(t, property.NoteShared, updated.Visibility)

	require.NoError(t, f.svc.DeleteNote(ctx, f.owner, note.ID))

	entries := f.entriesFor(t, audit.EntityNote, note.ID.String())
	require.Len(t, entries, 3)
	assert.Equal(t, audit.ActionCreate, entries[0].Action)
	assert.Equal(t, audit.ActionShare, entries[1].Action)
	assert.Equal(t, audit.ActionDelete, entries[2].Action)
	assert.Equal(t, f.owner, entries[2].Actor, "owner deletion is attributed to the owner")
}

func TestTaskLifecycle(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	due := time.Now().Add(72 * time.Hour).UTC()
	task, err := f.svc.CreateTask(ctx, f.owner, f.propertyID,
		"renew boiler cover", "policy expires soon", property.TaskVisibilityShared, &due)
	require.NoError(t, err)
	assert.Equal(t, property.TaskPending, task.Status)

	done := property.TaskCompleted
	updated, err := f.svc.UpdateTask(ctx, f.owner, task.ID, TaskUpdate{Status: &done})
	require.NoError(t, err)
	assert.Equal(t, property.TaskCompleted, updated.Status)

	t.Run("status change is an update, not a share", func(t *testing.T) {
		entries := f.entriesFor(t, audit.EntityTask, task.ID.String())
		require.Len(t, entries, 2)
		assert.Equal(t, audit.ActionUpdate, entries[1].Action)
	})

	t.Run("interested tier may not edit", func(t *testing.T) {
		cancelled := property.TaskCancelled
		_, err := f.svc.UpdateTask(ctx, f.interested, task.ID, TaskUpdate{Status: &cancelled})
		require.Error(t, err)
		assert.True(t, dErrors.HasCode(err, dErrors.CodeForbidden))
	})

	require.NoError(t, f.svc.DeleteTask(ctx, f.owner, task.ID))
	_, err = f.svc.UpdateTask(ctx, f.owner, task.ID, TaskUpdate{})
	assert.True(t, dErrors.HasCode(err, dErrors.CodeNotFound))
}
