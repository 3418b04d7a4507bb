package audit

import (
	"context"
	"sync"

	txcontext "github.com/Stratton1/ppukv6-0-sub001/pkg/platform/tx"
)

// InMemoryStore keeps audit entries in an append-only slice. Appends
// registered against a tx.Journal are undone when the surrounding unit of
// work fails, matching the transactional pairing of the Postgres store.
type InMemoryStore struct {
	mu      sync.RWMutex
	entries []Entry

	// failNext forces the next Append to fail; tests use it to prove the
	// entity write rolls back when the audit write cannot be made.
	failNext error
}

func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{}
}

// FailNextAppend makes the next Append return err.
func (s *InMemoryStore) FailNextAppend(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.failNext = err
}

func (s *InMemoryStore) Append(ctx context.Context, entry Entry) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.failNext != nil {
		err := s.failNext
		s.failNext = nil
		return err
	}

	s.entries = append(s.entries, entry)

	if journal, ok := txcontext.JournalFrom(ctx); ok {
		journal.OnRollback(func() {
			s.mu.Lock()
			defer s.mu.Unlock()
			for i := range s.entries {
				if s.entries[i].ID == entry.ID {
					s.entries = append(s.entries[:i], s.entries[i+1:]...)
					break
				}
			}
		})
	}
	return nil
}

func (s *InMemoryStore) ListByEntity(_ context.Context, entityType EntityType, entityID string) ([]Entry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []Entry
	for _, e := range s.entries {
		if e.EntityType == entityType && e.EntityID == entityID {
			out = append(out, e)
		}
	}
	return out, nil
}

func (s *InMemoryStore) ListByActor(_ context.Context, actor string) ([]Entry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []Entry
	for _, e := range s.entries {
		if e.Actor.String() == actor {
			out = append(out, e)
		}
	}
	return out, nil
}

// All returns a copy of every entry. Test helper.
func (s *InMemoryStore) All() []Entry {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]Entry{}, s.entries...)
}
