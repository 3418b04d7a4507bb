package relationship

import (
	"context"
	"sort"
	"sync"
	"time"

	id "github.com/Stratton1/ppukv6-0-sub001/pkg/domain"
	txcontext "github.com/Stratton1/ppukv6-0-sub001/pkg/platform/tx"
)

type tripleKey struct {
	identity id.UserID
	property id.PropertyID
	kind     Kind
}

// InMemoryStore keeps relationships in a map keyed by the unique triple.
// Used by unit tests and local development. Mutations registered against a
// tx.Journal are undone when the surrounding unit of work fails.
type InMemoryStore struct {
	mu   sync.RWMutex
	rels map[tripleKey]Relationship
}

func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{rels: make(map[tripleKey]Relationship)}
}

func (s *InMemoryStore) Add(ctx context.Context, rel Relationship) (Relationship, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	key := tripleKey{rel.IdentityID, rel.PropertyID, rel.Kind}
	if existing, ok := s.rels[key]; ok {
		return existing, false, nil
	}
	s.rels[key] = rel

	if journal, ok := txcontext.JournalFrom(ctx); ok {
		journal.OnRollback(func() {
			s.mu.Lock()
			defer s.mu.Unlock()
			delete(s.rels, key)
		})
	}
	return rel, true, nil
}

func (s *InMemoryStore) Remove(ctx context.Context, identity id.UserID, property id.PropertyID, kind Kind) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	key := tripleKey{identity, property, kind}
	removed, ok := s.rels[key]
	if !ok {
		return false, nil
	}
	delete(s.rels, key)

	if journal, ok := txcontext.JournalFrom(ctx); ok {
		journal.OnRollback(func() {
			s.mu.Lock()
			defer s.mu.Unlock()
			s.rels[key] = removed
		})
	}
	return true, nil
}

func (s *InMemoryStore) Resolve(_ context.Context, identity id.UserID, property id.PropertyID) (Kind, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	resolved := KindNone
	for key, rel := range s.rels {
		if key.identity == identity && key.property == property && !expired(rel) {
			resolved = Max(resolved, key.kind)
		}
	}
	return resolved, nil
}

func expired(rel Relationship) bool {
	return rel.ExpiresAt != nil && !rel.ExpiresAt.After(time.Now())
}

func (s *InMemoryStore) ListByIdentity(_ context.Context, identity id.UserID, filter ListFilter) ([]Relationship, int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var matched []Relationship
	for key, rel := range s.rels {
		if key.identity != identity {
			continue
		}
		if filter.Kind != KindNone && key.kind != filter.Kind {
			continue
		}
		if expired(rel) {
			continue
		}
		matched = append(matched, rel)
	}
	sort.Slice(matched, func(i, j int) bool {
		if !matched[i].AssignedAt.Equal(matched[j].AssignedAt) {
			return matched[i].AssignedAt.After(matched[j].AssignedAt)
		}
		return matched[i].PropertyID.String() < matched[j].PropertyID.String()
	})

	total := len(matched)
	limit := filter.Limit
	if limit <= 0 {
		limit = 20
	}
	if filter.Offset >= total {
		return nil, total, nil
	}
	end := filter.Offset + limit
	if end > total {
		end = total
	}
	return matched[filter.Offset:end], total, nil
}

func (s *InMemoryStore) ListByProperty(_ context.Context, property id.PropertyID) ([]Relationship, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var matched []Relationship
	for key, rel := range s.rels {
		if key.property == property && !expired(rel) {
			matched = append(matched, rel)
		}
	}
	sort.Slice(matched, func(i, j int) bool {
		return matched[i].AssignedAt.Before(matched[j].AssignedAt)
	})
	return matched, nil
}
