// Package watchlist is a thin self-service layer over the relationship
// store: identities mark themselves as interested in a property and later
// withdraw. Tier upgrades (occupier, owner) go through claims, never here.
package watchlist

import (
	"context"
	"errors"
	"log/slog"

	"github.com/Stratton1/ppukv6-0-sub001/internal/audit"
	"github.com/Stratton1/ppukv6-0-sub001/internal/platform/metrics"
	"github.com/Stratton1/ppukv6-0-sub001/internal/property"
	"github.com/Stratton1/ppukv6-0-sub001/internal/relationship"
	id "github.com/Stratton1/ppukv6-0-sub001/pkg/domain"
	dErrors "github.com/Stratton1/ppukv6-0-sub001/pkg/domain-errors"
	"github.com/Stratton1/ppukv6-0-sub001/pkg/platform/sentinel"
	"github.com/Stratton1/ppukv6-0-sub001/pkg/platform/tx"
	"github.com/Stratton1/ppukv6-0-sub001/pkg/requestcontext"
)

type Service struct {
	runner        tx.Runner
	relationships relationship.Store
	properties    property.Store
	auditor       *audit.Recorder
	metrics       *metrics.Metrics
	logger        *slog.Logger
}

func NewService(runner tx.Runner, relationships relationship.Store, properties property.Store, auditor *audit.Recorder, m *metrics.Metrics, logger *slog.Logger) *Service {
	return &Service{
		runner:        runner,
		relationships: relationships,
		properties:    properties,
		auditor:       auditor,
		metrics:       m,
		logger:        logger,
	}
}

// Add puts the property on the caller's watchlist by creating the interested
// relationship. Idempotent: re-adding reports AlreadyMember instead of
// failing. A caller who holds any other kind on the property is rejected
// with a bad request; an owner cannot also watch their own property.
func (s *Service) Add(ctx context.Context, identity id.UserID, propertyID id.PropertyID) (alreadyMember bool, err error) {
	if _, err := s.properties.GetProperty(ctx, propertyID); err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return false, dErrors.New(dErrors.CodeNotFound, "property not found")
		}
		return false, dErrors.Wrap(err, dErrors.CodeInternal, "load property")
	}

	held, err := s.relationships.Resolve(ctx, identity, propertyID)
	if err != nil {
		return false, dErrors.Wrap(err, dErrors.CodeInternal, "resolve relationship")
	}
	if held != relationship.KindNone && held != relationship.KindInterested {
		return false, dErrors.Newf(dErrors.CodeBadRequest,
			"cannot watch a property where you already hold the %s relationship", string(held))
	}

	rel := relationship.Relationship{
		IdentityID: identity,
		PropertyID: propertyID,
		Kind:       relationship.KindInterested,
		AssignedAt: requestcontext.Now(ctx),
		AssignedBy: identity,
	}

	var created bool
	err = s.runner.RunInTx(ctx, func(ctx context.Context) error {
		_, created, err = s.relationships.Add(ctx, rel)
		if err != nil {
			return dErrors.Wrap(err, dErrors.CodeInternal, "add relationship")
		}
		if !created {
			return nil
		}
		return s.auditor.Record(ctx, audit.Entry{
			Actor:      identity,
			Action:     audit.ActionClaim,
			EntityType: audit.EntityRelationship,
			EntityID:   propertyID.String(),
			NewValues:  map[string]any{"kind": string(relationship.KindInterested)},
		})
	})
	if err != nil {
		return false, err
	}
	if created {
		s.metrics.IncrementWatchlistAdd()
	}
	return !created, nil
}

// Remove takes the property off the caller's watchlist. Idempotent; a
// successful removal leaves an unclaim audit entry.
func (s *Service) Remove(ctx context.Context, identity id.UserID, propertyID id.PropertyID) error {
	err := s.runner.RunInTx(ctx, func(ctx context.Context) error {
		removed, err := s.relationships.Remove(ctx, identity, propertyID, relationship.KindInterested)
		if err != nil {
			return dErrors.Wrap(err, dErrors.CodeInternal, "remove relationship")
		}
		if !removed {
			return nil
		}
		s.metrics.IncrementWatchlistRemove()
		return s.auditor.Record(ctx, audit.Entry{
			Actor:      identity,
			Action:     audit.ActionUnclaim,
			EntityType: audit.EntityRelationship,
			EntityID:   propertyID.String(),
			OldValues:  map[string]any{"identity_id": identity.String(), "kind": string(relationship.KindInterested)},
		})
	})
	return err
}
