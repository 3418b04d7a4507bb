// Package snapshot assembles the per-request composite view of a property:
// header, caller-visible parties, documents, notes and tasks, activity stats
// over the filtered sets, and optional external data.
package snapshot

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/Stratton1/ppukv6-0-sub001/internal/external"
	"github.com/Stratton1/ppukv6-0-sub001/internal/platform/metrics"
	"github.com/Stratton1/ppukv6-0-sub001/internal/policy"
	"github.com/Stratton1/ppukv6-0-sub001/internal/property"
	"github.com/Stratton1/ppukv6-0-sub001/internal/relationship"
	id "github.com/Stratton1/ppukv6-0-sub001/pkg/domain"
	dErrors "github.com/Stratton1/ppukv6-0-sub001/pkg/domain-errors"
	"github.com/Stratton1/ppukv6-0-sub001/pkg/platform/sentinel"
	"github.com/Stratton1/ppukv6-0-sub001/pkg/requestcontext"
)

// Service builds snapshots and the my-properties listing. It holds no state
// of its own; every view is assembled fresh from the stores.
type Service struct {
	properties    property.Store
	documents     property.DocumentStore
	notes         property.NoteStore
	tasks         property.TaskStore
	relationships relationship.Store
	external      *external.Service
	metrics       *metrics.Metrics
	logger        *slog.Logger
}

func NewService(
	properties property.Store,
	documents property.DocumentStore,
	notes property.NoteStore,
	tasks property.TaskStore,
	relationships relationship.Store,
	ext *external.Service,
	m *metrics.Metrics,
	logger *slog.Logger,
) *Service {
	return &Service{
		properties:    properties,
		documents:     documents,
		notes:         notes,
		tasks:         tasks,
		relationships: relationships,
		external:      ext,
		metrics:       m,
		logger:        logger,
	}
}

// Build assembles the snapshot for one identity and property. Property
// absence is terminal NotFound, a missing relationship terminal Forbidden;
// external-source failures degrade to an absent field and a warning log.
func (s *Service) Build(ctx context.Context, identity id.UserID, propertyID id.PropertyID, opts Options) (Snapshot, error) {
	header, err := s.properties.GetProperty(ctx, propertyID)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return Snapshot{}, dErrors.New(dErrors.CodeNotFound, "property not found")
		}
		return Snapshot{}, dErrors.Wrap(err, dErrors.CodeInternal, "load property")
	}

	kind, err := s.relationships.Resolve(ctx, identity, propertyID)
	if err != nil {
		return Snapshot{}, dErrors.Wrap(err, dErrors.CodeInternal, "resolve relationship")
	}
	if kind == relationship.KindNone {
		return Snapshot{}, dErrors.New(dErrors.CodeForbidden, "no relationship with this property")
	}

	snap := Snapshot{
		Property:     header,
		Relationship: kind,
		GeneratedAt:  requestcontext.Now(ctx),
	}

	docVis := policy.VisibleDocuments(kind)
	noteVis := policy.VisibleNotes(kind)
	taskFilter := policy.VisibleTasks(kind)

	if snap.Documents, err = s.documents.ListDocuments(ctx, propertyID, docVis); err != nil {
		return Snapshot{}, dErrors.Wrap(err, dErrors.CodeInternal, "list documents")
	}
	if snap.Notes, err = s.notes.ListNotes(ctx, propertyID, noteVis); err != nil {
		return Snapshot{}, dErrors.Wrap(err, dErrors.CodeInternal, "list notes")
	}
	if snap.Tasks, err = s.tasks.ListTasks(ctx, propertyID, taskFilter.Statuses, taskFilter.Visibilities); err != nil {
		return Snapshot{}, dErrors.Wrap(err, dErrors.CodeInternal, "list tasks")
	}

	// Counts and recency derive from the filtered sets, never the raw
	// tables, so two tiers legitimately see different numbers.
	snap.DocumentCount = len(snap.Documents)
	snap.NoteCount = len(snap.Notes)
	snap.TaskCount = len(snap.Tasks)
	snap.LastActivity = lastActivity(snap)

	parties, err := s.relationships.ListByProperty(ctx, propertyID)
	if err != nil {
		return Snapshot{}, dErrors.Wrap(err, dErrors.CodeInternal, "list parties")
	}
	snap.Parties = make([]Party, 0, len(parties))
	for _, rel := range parties {
		if !policy.AllowsParty(kind, rel.Kind) {
			continue
		}
		snap.Parties = append(snap.Parties, Party{
			IdentityID: rel.IdentityID,
			Kind:       rel.Kind,
			IsPrimary:  rel.IsPrimary,
			AssignedAt: rel.AssignedAt,
		})
	}

	snap.External = s.fetchExternal(ctx, header, opts)

	s.metrics.IncrementSnapshot(string(kind))
	return snap, nil
}

// fetchExternal gathers the requested sources concurrently. Each goroutine
// owns one field; failures log and leave the field nil.
func (s *Service) fetchExternal(ctx context.Context, header property.Property, opts Options) ExternalData {
	var data ExternalData
	if s.external == nil {
		return data
	}

	g, gctx := errgroup.WithContext(ctx)

	if opts.IncludeEPC && header.UPRN != "" {
		g.Go(func() error {
			record, err := s.external.EPC(gctx, header.UPRN)
			if err != nil {
				s.logger.WarnContext(ctx, "epc fetch degraded", "uprn", header.UPRN, "error", err)
				return nil
			}
			data.EPC = &record
			return nil
		})
	}
	if opts.IncludeFlood && header.Postcode != "" {
		g.Go(func() error {
			risk, err := s.external.Flood(gctx, header.Postcode)
			if err != nil {
				s.logger.WarnContext(ctx, "flood fetch degraded", "postcode", header.Postcode, "error", err)
				return nil
			}
			data.Flood = &risk
			return nil
		})
	}
	if opts.IncludePostcode && header.Postcode != "" {
		g.Go(func() error {
			info, err := s.external.Postcode(gctx, header.Postcode)
			if err != nil {
				s.logger.WarnContext(ctx, "postcode fetch degraded", "postcode", header.Postcode, "error", err)
				return nil
			}
			data.Postcode = &info
			return nil
		})
	}

	// Goroutines never return errors; Wait only synchronizes.
	_ = g.Wait()
	return data
}

// MyProperties lists the caller's relationships as annotated property rows.
// Stats are computed at each row's own tier.
func (s *Service) MyProperties(ctx context.Context, identity id.UserID, filter relationship.ListFilter) ([]PropertySummary, int, error) {
	rels, total, err := s.relationships.ListByIdentity(ctx, identity, filter)
	if err != nil {
		return nil, 0, dErrors.Wrap(err, dErrors.CodeInternal, "list relationships")
	}

	summaries := make([]PropertySummary, 0, len(rels))
	for _, rel := range rels {
		header, err := s.properties.GetProperty(ctx, rel.PropertyID)
		if err != nil {
			if errors.Is(err, sentinel.ErrNotFound) {
				// Relationship outlived the property row; skip rather
				// than fail the whole listing.
				s.logger.WarnContext(ctx, "dangling relationship", "property_id", rel.PropertyID.String())
				continue
			}
			return nil, 0, dErrors.Wrap(err, dErrors.CodeInternal, "load property")
		}

		summary := PropertySummary{
			Property:     header,
			Relationship: rel.Kind,
			IsPrimary:    rel.IsPrimary,
			AssignedAt:   rel.AssignedAt,
		}

		docStats, err := s.documents.DocumentStats(ctx, rel.PropertyID, policy.VisibleDocuments(rel.Kind))
		if err != nil {
			return nil, 0, dErrors.Wrap(err, dErrors.CodeInternal, "document stats")
		}
		noteStats, err := s.notes.NoteStats(ctx, rel.PropertyID, policy.VisibleNotes(rel.Kind))
		if err != nil {
			return nil, 0, dErrors.Wrap(err, dErrors.CodeInternal, "note stats")
		}
		taskFilter := policy.VisibleTasks(rel.Kind)
		taskStats, err := s.tasks.TaskStats(ctx, rel.PropertyID, taskFilter.Statuses, taskFilter.Visibilities)
		if err != nil {
			return nil, 0, dErrors.Wrap(err, dErrors.CodeInternal, "task stats")
		}

		summary.DocumentCount = docStats.Count
		summary.NoteCount = noteStats.Count
		summary.TaskCount = taskStats.Count
		summary.LastActivity = latest(docStats.LastActivity, noteStats.LastActivity, taskStats.LastActivity)
		summaries = append(summaries, summary)
	}
	return summaries, total, nil
}

func lastActivity(snap Snapshot) *time.Time {
	var last *time.Time
	for _, doc := range snap.Documents {
		last = laterOf(last, doc.UpdatedAt)
	}
	for _, note := range snap.Notes {
		last = laterOf(last, note.UpdatedAt)
	}
	for _, task := range snap.Tasks {
		last = laterOf(last, task.UpdatedAt)
	}
	return last
}

func latest(candidates ...*time.Time) *time.Time {
	var last *time.Time
	for _, c := range candidates {
		if c == nil {
			continue
		}
		last = laterOf(last, *c)
	}
	return last
}

func laterOf(current *time.Time, candidate time.Time) *time.Time {
	if current == nil || candidate.After(*current) {
		t := candidate
		return &t
	}
	return current
}
