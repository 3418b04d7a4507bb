// Package records implements governed-entity workflows: documents, notes and
// tasks attached to a property, with relationship-gated authorization and a
// paired audit entry for every mutation.
package records

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/Stratton1/ppukv6-0-sub001/internal/audit"
	"github.com/Stratton1/ppukv6-0-sub001/internal/blob"
	"github.com/Stratton1/ppukv6-0-sub001/internal/policy"
	"github.com/Stratton1/ppukv6-0-sub001/internal/property"
	"github.com/Stratton1/ppukv6-0-sub001/internal/relationship"
	id "github.com/Stratton1/ppukv6-0-sub001/pkg/domain"
	dErrors "github.com/Stratton1/ppukv6-0-sub001/pkg/domain-errors"
	"github.com/Stratton1/ppukv6-0-sub001/pkg/platform/sentinel"
	"github.com/Stratton1/ppukv6-0-sub001/pkg/platform/tx"
	"github.com/Stratton1/ppukv6-0-sub001/pkg/requestcontext"
)

// downloadURLTTL bounds how long a signed download link stays valid.
const downloadURLTTL = 15 * time.Minute

// Service orchestrates governed-entity mutations. Every write runs inside one
// unit of work together with its audit entry.
type Service struct {
	runner        tx.Runner
	properties    property.Store
	documents     property.DocumentStore
	notes         property.NoteStore
	tasks         property.TaskStore
	relationships relationship.Store
	auditor       *audit.Recorder
	blobs         blob.Store
	logger        *slog.Logger
}

func NewService(
	runner tx.Runner,
	properties property.Store,
	documents property.DocumentStore,
	notes property.NoteStore,
	tasks property.TaskStore,
	relationships relationship.Store,
	auditor *audit.Recorder,
	blobs blob.Store,
	logger *slog.Logger,
) *Service {
	return &Service{
		runner:        runner,
		properties:    properties,
		documents:     documents,
		notes:         notes,
		tasks:         tasks,
		relationships: relationships,
		auditor:       auditor,
		blobs:         blobs,
		logger:        logger,
	}
}

// UploadDocument stores the payload in the blob store, then writes the
// document row and its upload audit entry in one unit of work. Requires at
// least occupier tier on the property.
func (s *Service) UploadDocument(ctx context.Context, actor id.UserID, propertyID id.PropertyID, payload []byte, filename, contentType string, visibility property.DocumentVisibility) (property.Document, error) {
	if len(payload) == 0 {
		return property.Document{}, dErrors.New(dErrors.CodeInvalidInput, "document payload cannot be empty")
	}
	if filename == "" {
		return property.Document{}, dErrors.New(dErrors.CodeInvalidInput, "filename cannot be empty")
	}
	if _, err := s.requireTier(ctx, actor, propertyID, relationship.KindOccupier); err != nil {
		return property.Document{}, err
	}

	locator, err := s.blobs.Put(ctx, payload, blob.Meta{Filename: filename, ContentType: contentType})
	if err != nil {
		return property.Document{}, dErrors.Wrap(err, dErrors.CodeInternal, "store document payload")
	}

	now := requestcontext.Now(ctx)
	doc := property.Document{
		ID:          id.NewDocumentID(),
		PropertyID:  propertyID,
		UploaderID:  actor,
		Filename:    filename,
		ContentType: contentType,
		SizeBytes:   int64(len(payload)),
		Locator:     locator,
		Visibility:  visibility,
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	err = s.runner.RunInTx(ctx, func(ctx context.Context) error {
		if _, err := s.documents.CreateDocument(ctx, doc); err != nil {
			return dErrors.Wrap(err, dErrors.CodeInternal, "create document")
		}
		return s.auditor.Record(ctx, audit.Entry{
			Actor:      actor,
			Action:     audit.ActionUpload,
			EntityType: audit.EntityDocument,
			EntityID:   doc.ID.String(),
			NewValues: map[string]any{
				"filename":   doc.Filename,
				"visibility": string(doc.Visibility),
				"size_bytes": doc.SizeBytes,
			},
			Metadata: map[string]any{"property_id": propertyID.String()},
		})
	})
	if err != nil {
		return property.Document{}, err
	}
	return doc, nil
}

// SignedDownloadURL authorizes the read, audits the download and returns a
// short-lived URL for the document payload. Uploaders always reach their own
// documents; everyone else goes through the visibility policy.
func (s *Service) SignedDownloadURL(ctx context.Context, actor id.UserID, documentID id.DocumentID) (string, error) {
	doc, err := s.documents.GetDocument(ctx, documentID)
	if err != nil {
		return "", mapStoreErr(err, "document")
	}

	if doc.UploaderID != actor {
		kind, err := s.relationships.Resolve(ctx, actor, doc.PropertyID)
		if err != nil {
			return "", dErrors.Wrap(err, dErrors.CodeInternal, "resolve relationship")
		}
		if kind == relationship.KindNone {
			return "", dErrors.New(dErrors.CodeForbidden, "no relationship with this property")
		}
		if !policy.AllowsDocument(kind, doc) {
			return "", dErrors.New(dErrors.CodeForbidden, "document not visible at your relationship tier")
		}
	}

	url, err := s.blobs.Sign(ctx, doc.Locator, downloadURLTTL)
	if err != nil {
		return "", dErrors.Wrap(err, dErrors.CodeInternal, "sign download url")
	}

	err = s.runner.RunInTx(ctx, func(ctx context.Context) error {
		return s.auditor.Record(ctx, audit.Entry{
			Actor:      actor,
			Action:     audit.ActionDownload,
			EntityType: audit.EntityDocument,
			EntityID:   doc.ID.String(),
			Metadata:   map[string]any{"property_id": doc.PropertyID.String()},
		})
	})
	if err != nil {
		return "", err
	}
	return url, nil
}

// DocumentUpdate carries the mutable document fields; nil means unchanged.
type DocumentUpdate struct {
	Filename   *string
	Visibility *property.DocumentVisibility
}

// UpdateDocument applies the update under the creator-or-owner rule. Widening
// visibility is audited as a share, everything else as an update.
func (s *Service) UpdateDocument(ctx context.Context, actor id.UserID, documentID id.DocumentID, update DocumentUpdate) (property.Document, error) {
	doc, err := s.documents.GetDocument(ctx, documentID)
	if err != nil {
		return property.Document{}, mapStoreErr(err, "document")
	}
	if err := s.requireCreatorOrOwner(ctx, actor, doc.UploaderID, doc.PropertyID); err != nil {
		return property.Document{}, err
	}

	old := doc
	action := audit.ActionUpdate
	if update.Filename != nil {
		doc.Filename = *update.Filename
	}
	if update.Visibility != nil {
		if docVisibilityRank(*update.Visibility) > docVisibilityRank(old.Visibility) {
			action = audit.ActionShare
		}
		doc.Visibility = *update.Visibility
	}
	doc.UpdatedAt = requestcontext.Now(ctx)

	err = s.runner.RunInTx(ctx, func(ctx context.Context) error {
		if _, err := s.documents.UpdateDocument(ctx, doc); err != nil {
			return mapStoreErr(err, "document")
		}
		return s.auditor.Record(ctx, audit.Entry{
			Actor:      actor,
			Action:     action,
			EntityType: audit.EntityDocument,
			EntityID:   doc.ID.String(),
			OldValues:  map[string]any{"filename": old.Filename, "visibility": string(old.Visibility)},
			NewValues:  map[string]any{"filename": doc.Filename, "visibility": string(doc.Visibility)},
			Metadata:   map[string]any{"property_id": doc.PropertyID.String()},
		})
	})
	if err != nil {
		return property.Document{}, err
	}
	return doc, nil
}

// DeleteDocument removes the row under the creator-or-owner rule. The blob
// payload is left for the retention sweeper; only the row and its audit trail
// change here.
func (s *Service) DeleteDocument(ctx context.Context, actor id.UserID, documentID id.DocumentID) error {
	doc, err := s.documents.GetDocument(ctx, documentID)
	if err != nil {
		return mapStoreErr(err, "document")
	}
	if err := s.requireCreatorOrOwner(ctx, actor, doc.UploaderID, doc.PropertyID); err != nil {
		return err
	}

	return s.runner.RunInTx(ctx, func(ctx context.Context) error {
		if _, err := s.documents.DeleteDocument(ctx, documentID); err != nil {
			return dErrors.Wrap(err, dErrors.CodeInternal, "delete document")
		}
		return s.auditor.Record(ctx, audit.Entry{
			Actor:      actor,
			Action:     audit.ActionDelete,
			EntityType: audit.EntityDocument,
			EntityID:   doc.ID.String(),
			OldValues:  map[string]any{"filename": doc.Filename, "visibility": string(doc.Visibility)},
			Metadata:   map[string]any{"property_id": doc.PropertyID.String()},
		})
	})
}

// CreateNote writes a note with author-set visibility. Requires at least
// occupier tier.
func (s *Service) CreateNote(ctx context.Context, actor id.UserID, propertyID id.PropertyID, title, body string, visibility property.NoteVisibility) (property.Note, error) {
	if title == "" {
		return property.Note{}, dErrors.New(dErrors.CodeInvalidInput, "note title cannot be empty")
	}
	if _, err := s.requireTier(ctx, actor, propertyID, relationship.KindOccupier); err != nil {
		return property.Note{}, err
	}

	now := requestcontext.Now(ctx)
	note := property.Note{
		ID:         id.NewNoteID(),
		PropertyID: propertyID,
		AuthorID:   actor,
		Title:      title,
		Body:       body,
		Visibility: visibility,
		CreatedAt:  now,
		UpdatedAt:  now,
	}

	err := s.runner.RunInTx(ctx, func(ctx context.Context) error {
		if _, err := s.notes.CreateNote(ctx, note); err != nil {
			return dErrors.Wrap(err, dErrors.CodeInternal, "create note")
		}
		return s.auditor.Record(ctx, audit.Entry{
			Actor:      actor,
			Action:     audit.ActionCreate,
			EntityType: audit.EntityNote,
			EntityID:   note.ID.String(),
			NewValues:  map[string]any{"title": note.Title, "visibility": string(note.Visibility)},
			Metadata:   map[string]any{"property_id": propertyID.String()},
		})
	})
	if err != nil {
		return property.Note{}, err
	}
	return note, nil
}

// NoteUpdate carries the mutable note fields; nil means unchanged.
type NoteUpdate struct {
	Title      *string
	Body       *string
	Visibility *property.NoteVisibility
}

// UpdateNote applies the update under the creator-or-owner rule.
func (s *Service) UpdateNote(ctx context.Context, actor id.UserID, noteID id.NoteID, update NoteUpdate) (property.Note, error) {
	note, err := s.notes.GetNote(ctx, noteID)
	if err != nil {
		return property.Note{}, mapStoreErr(err, "note")
	}
	if err := s.requireCreatorOrOwner(ctx, actor, note.AuthorID, note.PropertyID); err != nil {
		return property.Note{}, err
	}

	old := note
	action := audit.ActionUpdate
	if update.Title != nil {
		note.Title = *update.Title
	}
	if update.Body != nil {
		note.Body = *update.Body
	}
	if update.Visibility != nil {
		if noteVisibilityRank(*update.Visibility) > noteVisibilityRank(old.Visibility) {
			action = audit.ActionShare
		}
		note.Visibility = *update.Visibility
	}
	note.UpdatedAt = requestcontext.Now(ctx)

	err = s.runner.RunInTx(ctx, func(ctx context.Context) error {
		if _, err := s.notes.UpdateNote(ctx, note); err != nil {
			return mapStoreErr(err, "note")
		}
		return s.auditor.Record(ctx, audit.Entry{
			Actor:      actor,
			Action:     action,
			EntityType: audit.EntityNote,
			EntityID:   note.ID.String(),
			OldValues:  map[string]any{"title": old.Title, "visibility": string(old.Visibility)},
			NewValues:  map[string]any{"title": note.Title, "visibility": string(note.Visibility)},
			Metadata:   map[string]any{"property_id": note.PropertyID.String()},
		})
	})
	if err != nil {
		return property.Note{}, err
	}
	return note, nil
}

// DeleteNote removes the note under the creator-or-owner rule.
func (s *Service) DeleteNote(ctx context.Context, actor id.UserID, noteID id.NoteID) error {
	note, err := s.notes.GetNote(ctx, noteID)
	if err != nil {
		return mapStoreErr(err, "note")
	}
	if err := s.requireCreatorOrOwner(ctx, actor, note.AuthorID, note.PropertyID); err != nil {
		return err
	}

	return s.runner.RunInTx(ctx, func(ctx context.Context) error {
		if _, err := s.notes.DeleteNote(ctx, noteID); err != nil {
			return dErrors.Wrap(err, dErrors.CodeInternal, "delete note")
		}
		return s.auditor.Record(ctx, audit.Entry{
			Actor:      actor,
			Action:     audit.ActionDelete,
			EntityType: audit.EntityNote,
			EntityID:   note.ID.String(),
			OldValues:  map[string]any{"title": note.Title, "visibility": string(note.Visibility)},
			Metadata:   map[string]any{"property_id": note.PropertyID.String()},
		})
	})
}

// CreateTask writes a task in pending status with creator-set visibility.
// Requires at least occupier tier.
func (s *Service) CreateTask(ctx context.Context, actor id.UserID, propertyID id.PropertyID, title, description string, visibility property.TaskVisibility, dueAt *time.Time) (property.Task, error) {
	if title == "" {
		return property.Task{}, dErrors.New(dErrors.CodeInvalidInput, "task title cannot be empty")
	}
	if _, err := s.requireTier(ctx, actor, propertyID, relationship.KindOccupier); err != nil {
		return property.Task{}, err
	}

	now := requestcontext.Now(ctx)
	task := property.Task{
		ID:          id.NewTaskID(),
		PropertyID:  propertyID,
		CreatorID:   actor,
		Title:       title,
		Description: description,
		Status:      property.TaskPending,
		Visibility:  visibility,
		DueAt:       dueAt,
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	err := s.runner.RunInTx(ctx, func(ctx context.Context) error {
		if _, err := s.tasks.CreateTask(ctx, task); err != nil {
			return dErrors.Wrap(err, dErrors.CodeInternal, "create task")
		}
		return s.auditor.Record(ctx, audit.Entry{
			Actor:      actor,
			Action:     audit.ActionCreate,
			EntityType: audit.EntityTask,
			EntityID:   task.ID.String(),
			NewValues: map[string]any{
				"title":      task.Title,
				"status":     string(task.Status),
				"visibility": string(task.Visibility),
			},
			Metadata: map[string]any{"property_id": propertyID.String()},
		})
	})
	if err != nil {
		return property.Task{}, err
	}
	return task, nil
}

// TaskUpdate carries the mutable task fields; nil means unchanged.
type TaskUpdate struct {
	Title       *string
	Description *string
	Status      *property.TaskStatus
	Visibility  *property.TaskVisibility
	DueAt       *time.Time
}

// UpdateTask applies the update under the creator-or-owner rule.
func (s *Service) UpdateTask(ctx context.Context, actor id.UserID, taskID id.TaskID, update TaskUpdate) (property.Task, error) {
	task, err := s.tasks.GetTask(ctx, taskID)
	if err != nil {
		return property.Task{}, mapStoreErr(err, "task")
	}
	if err := s.requireCreatorOrOwner(ctx, actor, task.CreatorID, task.PropertyID); err != nil {
		return property.Task{}, err
	}

	old := task
	action := audit.ActionUpdate
	if update.Title != nil {
		task.Title = *update.Title
	}
	if update.Description != nil {
		task.Description = *update.Description
	}
	if update.Status != nil {
		task.Status = *update.Status
	}
	if update.Visibility != nil {
		if taskVisibilityRank(*update.Visibility) > taskVisibilityRank(old.Visibility) {
			action = audit.ActionShare
		}
		task.Visibility = *update.Visibility
	}
	if update.DueAt != nil {
		task.DueAt = update.DueAt
	}
	task.UpdatedAt = requestcontext.Now(ctx)

	err = s.runner.RunInTx(ctx, func(ctx context.Context) error {
		if _, err := s.tasks.UpdateTask(ctx, task); err != nil {
			return mapStoreErr(err, "task")
		}
		return s.auditor.Record(ctx, audit.Entry{
			Actor:      actor,
			Action:     action,
			EntityType: audit.EntityTask,
			EntityID:   task.ID.String(),
			OldValues: map[string]any{
				"title":      old.Title,
				"status":     string(old.Status),
				"visibility": string(old.Visibility),
			},
			NewValues: map[string]any{
				"title":      task.Title,
				"status":     string(task.Status),
				"visibility": string(task.Visibility),
			},
			Metadata: map[string]any{"property_id": task.PropertyID.String()},
		})
	})
	if err != nil {
		return property.Task{}, err
	}
	return task, nil
}

// DeleteTask removes the task under the creator-or-owner rule.
func (s *Service) DeleteTask(ctx context.Context, actor id.UserID, taskID id.TaskID) error {
	task, err := s.tasks.GetTask(ctx, taskID)
	if err != nil {
		return mapStoreErr(err, "task")
	}
	if err := s.requireCreatorOrOwner(ctx, actor, task.CreatorID, task.PropertyID); err != nil {
		return err
	}

	return s.runner.RunInTx(ctx, func(ctx context.Context) error {
		if _, err := s.tasks.DeleteTask(ctx, taskID); err != nil {
			return dErrors.Wrap(err, dErrors.CodeInternal, "delete task")
		}
		return s.auditor.Record(ctx, audit.Entry{
			Actor:      actor,
			Action:     audit.ActionDelete,
			EntityType: audit.EntityTask,
			EntityID:   task.ID.String(),
			OldValues:  map[string]any{"title": task.Title, "status": string(task.Status)},
			Metadata:   map[string]any{"property_id": task.PropertyID.String()},
		})
	})
}

// requireTier checks the property exists and the actor holds at least min on
// it. Property absence stays 404 and missing privilege 403; the distinction
// is deliberate and matches the rest of the read path.
func (s *Service) requireTier(ctx context.Context, actor id.UserID, propertyID id.PropertyID, min relationship.Kind) (relationship.Kind, error) {
	if _, err := s.properties.GetProperty(ctx, propertyID); err != nil {
		return relationship.KindNone, mapStoreErr(err, "property")
	}
	kind, err := s.relationships.Resolve(ctx, actor, propertyID)
	if err != nil {
		return relationship.KindNone, dErrors.Wrap(err, dErrors.CodeInternal, "resolve relationship")
	}
	if kind == relationship.KindNone {
		return relationship.KindNone, dErrors.New(dErrors.CodeForbidden, "no relationship with this property")
	}
	if !kind.AtLeast(min) {
		return relationship.KindNone, dErrors.Newf(dErrors.CodeForbidden, "requires at least %s relationship", string(min))
	}
	return kind, nil
}

// requireCreatorOrOwner enforces the mutation rule for governed entities:
// only the entity's creator or a property owner may change it.
func (s *Service) requireCreatorOrOwner(ctx context.Context, actor, creator id.UserID, propertyID id.PropertyID) error {
	if actor == creator {
		return nil
	}
	kind, err := s.relationships.Resolve(ctx, actor, propertyID)
	if err != nil {
		return dErrors.Wrap(err, dErrors.CodeInternal, "resolve relationship")
	}
	if kind != relationship.KindOwner {
		return dErrors.New(dErrors.CodeForbidden, "only the creator or a property owner may modify this record")
	}
	return nil
}

func mapStoreErr(err error, entity string) error {
	if errors.Is(err, sentinel.ErrNotFound) {
		return dErrors.Newf(dErrors.CodeNotFound, "%s not found", entity)
	}
	if errors.Is(err, sentinel.ErrConflict) {
		return dErrors.Newf(dErrors.CodeConflict, "%s already exists", entity)
	}
	return dErrors.Wrap(err, dErrors.CodeInternal, "load "+entity)
}

func docVisibilityRank(v property.DocumentVisibility) int {
	if v == property.DocumentPublic {
		return 1
	}
	return 0
}

func noteVisibilityRank(v property.NoteVisibility) int {
	switch v {
	case property.NoteShared:
		return 1
	case property.NotePublic:
		return 2
	default:
		return 0
	}
}

func taskVisibilityRank(v property.TaskVisibility) int {
	switch v {
	case property.TaskVisibilityShared:
		return 1
	case property.TaskVisibilityPublic:
		return 2
	default:
		return 0
	}
}
