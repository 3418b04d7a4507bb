package relationship

import (
	"context"
	"errors"
	"log/slog"

	"github.com/Stratton1/ppukv6-0-sub001/internal/audit"
	"github.com/Stratton1/ppukv6-0-sub001/internal/property"
	id "github.com/Stratton1/ppukv6-0-sub001/pkg/domain"
	dErrors "github.com/Stratton1/ppukv6-0-sub001/pkg/domain-errors"
	"github.com/Stratton1/ppukv6-0-sub001/pkg/platform/sentinel"
	"github.com/Stratton1/ppukv6-0-sub001/pkg/platform/tx"
	"github.com/Stratton1/ppukv6-0-sub001/pkg/requestcontext"
)

// Service layers business rules over the Store: claims, owner-driven
// removal, and the audit trail those mutations leave behind.
type Service struct {
	runner     tx.Runner
	store      Store
	properties property.Store
	auditor    *audit.Recorder
	logger     *slog.Logger
}

func NewService(runner tx.Runner, store Store, properties property.Store, auditor *audit.Recorder, logger *slog.Logger) *Service {
	return &Service{
		runner:     runner,
		store:      store,
		properties: properties,
		auditor:    auditor,
		logger:     logger,
	}
}

// Claim records the actor as owner of the property. A second claim by the
// same identity is idempotent; a claim while another identity holds owner is
// a conflict. The bool reports whether the actor already held the claim.
func (s *Service) Claim(ctx context.Context, actor id.UserID, propertyID id.PropertyID) (Relationship, bool, error) {
	if _, err := s.properties.GetProperty(ctx, propertyID); err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return Relationship{}, false, dErrors.New(dErrors.CodeNotFound, "property not found")
		}
		return Relationship{}, false, dErrors.Wrap(err, dErrors.CodeInternal, "load property")
	}

	existing, err := s.store.ListByProperty(ctx, propertyID)
	if err != nil {
		return Relationship{}, false, dErrors.Wrap(err, dErrors.CodeInternal, "list relationships")
	}
	for _, rel := range existing {
		if rel.Kind == KindOwner && rel.IdentityID != actor {
			return Relationship{}, false, dErrors.New(dErrors.CodeConflict, "property already claimed by another owner")
		}
	}

	rel := Relationship{
		IdentityID: actor,
		PropertyID: propertyID,
		Kind:       KindOwner,
		AssignedAt: requestcontext.Now(ctx),
		AssignedBy: actor,
	}

	var (
		stored  Relationship
		created bool
	)
	err = s.runner.RunInTx(ctx, func(ctx context.Context) error {
		stored, created, err = s.store.Add(ctx, rel)
		if err != nil {
			return dErrors.Wrap(err, dErrors.CodeInternal, "add relationship")
		}
		if !created {
			return nil
		}
		return s.auditor.Record(ctx, audit.Entry{
			Actor:      actor,
			Action:     audit.ActionClaim,
			EntityType: audit.EntityProperty,
			EntityID:   propertyID.String(),
			NewValues:  map[string]any{"kind": string(KindOwner)},
		})
	})
	if err != nil {
		return Relationship{}, false, err
	}
	return stored, !created, nil
}

// Remove deletes one relationship under the ownership rule: owners may remove
// any relationship on their property, everyone else only their own interested
// one. Removal of a missing relationship is a quiet no-op; a successful
// removal leaves an unclaim audit entry attributed to the actor.
func (s *Service) Remove(ctx context.Context, actor, identity id.UserID, propertyID id.PropertyID, kind Kind) error {
	if !kind.IsValid() {
		return dErrors.Newf(dErrors.CodeInvalidInput, "invalid relationship kind: %q", string(kind))
	}

	actorKind, err := s.store.Resolve(ctx, actor, propertyID)
	if err != nil {
		return dErrors.Wrap(err, dErrors.CodeInternal, "resolve relationship")
	}
	if actorKind != KindOwner && !(actor == identity && kind == KindInterested) {
		return dErrors.New(dErrors.CodeForbidden, "only a property owner may remove other relationships")
	}

	return s.runner.RunInTx(ctx, func(ctx context.Context) error {
		removed, err := s.store.Remove(ctx, identity, propertyID, kind)
		if err != nil {
			return dErrors.Wrap(err, dErrors.CodeInternal, "remove relationship")
		}
		if !removed {
			return nil
		}
		return s.auditor.Record(ctx, audit.Entry{
			Actor:      actor,
			Action:     audit.ActionUnclaim,
			EntityType: audit.EntityRelationship,
			EntityID:   propertyID.String(),
			OldValues:  map[string]any{"identity_id": identity.String(), "kind": string(kind)},
		})
	})
}
