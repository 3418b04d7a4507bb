package property

import (
	"context"
	"sort"
	"sync"
	"time"

	id "github.com/Stratton1/ppukv6-0-sub001/pkg/domain"
	"github.com/Stratton1/ppukv6-0-sub001/pkg/platform/sentinel"
	txcontext "github.com/Stratton1/ppukv6-0-sub001/pkg/platform/tx"
)

// MemoryStore is the in-memory counterpart of PostgresStore. Mutations
// register undo closures against the tx.Journal so unit tests exercise the
// same rollback semantics the SQL runner provides.
type MemoryStore struct {
	mu         sync.RWMutex
	properties map[id.PropertyID]Property
	documents  map[id.DocumentID]Document
	notes      map[id.NoteID]Note
	tasks      map[id.TaskID]Task
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		properties: make(map[id.PropertyID]Property),
		documents:  make(map[id.DocumentID]Document),
		notes:      make(map[id.NoteID]Note),
		tasks:      make(map[id.TaskID]Task),
	}
}

func (s *MemoryStore) CreateProperty(ctx context.Context, p Property) (Property, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.properties[p.ID]; exists {
		return Property{}, sentinel.ErrConflict
	}
	s.properties[p.ID] = p
	s.onRollback(ctx, func() {
		delete(s.properties, p.ID)
	})
	return p, nil
}

func (s *MemoryStore) GetProperty(_ context.Context, propertyID id.PropertyID) (Property, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	p, ok := s.properties[propertyID]
	if !ok {
		return Property{}, sentinel.ErrNotFound
	}
	return p, nil
}

func (s *MemoryStore) CreateDocument(ctx context.Context, doc Document) (Document, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.documents[doc.ID]; exists {
		return Document{}, sentinel.ErrConflict
	}
	s.documents[doc.ID] = doc
	s.onRollback(ctx, func() {
		delete(s.documents, doc.ID)
	})
	return doc, nil
}

func (s *MemoryStore) GetDocument(_ context.Context, documentID id.DocumentID) (Document, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	doc, ok := s.documents[documentID]
	if !ok {
		return Document{}, sentinel.ErrNotFound
	}
	return doc, nil
}

func (s *MemoryStore) UpdateDocument(ctx context.Context, doc Document) (Document, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	prev, ok := s.documents[doc.ID]
	if !ok {
		return Document{}, sentinel.ErrNotFound
	}
	s.documents[doc.ID] = doc
	s.onRollback(ctx, func() {
		s.documents[doc.ID] = prev
	})
	return doc, nil
}

func (s *MemoryStore) DeleteDocument(ctx context.Context, documentID id.DocumentID) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	prev, ok := s.documents[documentID]
	if !ok {
		return false, nil
	}
	delete(s.documents, documentID)
	s.onRollback(ctx, func() {
		s.documents[documentID] = prev
	})
	return true, nil
}

func (s *MemoryStore) ListDocuments(_ context.Context, propertyID id.PropertyID, visible []DocumentVisibility) ([]Document, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []Document
	for _, doc := range s.documents {
		if doc.PropertyID == propertyID && containsDocVisibility(visible, doc.Visibility) {
			out = append(out, doc)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.After(out[j].CreatedAt)
		}
		return out[i].ID.String() < out[j].ID.String()
	})
	return out, nil
}

func (s *MemoryStore) DocumentStats(ctx context.Context, propertyID id.PropertyID, visible []DocumentVisibility) (EntityStats, error) {
	docs, err := s.ListDocuments(ctx, propertyID, visible)
	if err != nil {
		return EntityStats{}, err
	}
	stats := EntityStats{Count: len(docs)}
	for _, doc := range docs {
		stats.LastActivity = laterOf(stats.LastActivity, doc.UpdatedAt)
	}
	return stats, nil
}

func (s *MemoryStore) CreateNote(ctx context.Context, note Note) (Note, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.notes[note.ID]; exists {
		return Note{}, sentinel.ErrConflict
	}
	s.notes[note.ID] = note
	s.onRollback(ctx, func() {
		delete(s.notes, note.ID)
	})
	return note, nil
}

func (s *MemoryStore) GetNote(_ context.Context, noteID id.NoteID) (Note, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	note, ok := s.notes[noteID]
	if !ok {
		return Note{}, sentinel.ErrNotFound
	}
	return note, nil
}

func (s *MemoryStore) UpdateNote(ctx context.Context, note Note) (Note, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	prev, ok := s.notes[note.ID]
	if !ok {
		return Note{}, sentinel.ErrNotFound
	}
	s.notes[note.ID] = note
	s.onRollback(ctx, func() {
		s.notes[note.ID] = prev
	})
	return note, nil
}

func (s *MemoryStore) DeleteNote(ctx context.Context, noteID id.NoteID) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	prev, ok := s.notes[noteID]
	if !ok {
		return false, nil
	}
	delete(s.notes, noteID)
	s.onRollback(ctx, func() {
		s.notes[noteID] = prev
	})
	return true, nil
}

func (s *MemoryStore) ListNotes(_ context.Context, propertyID id.PropertyID, visible []NoteVisibility) ([]Note, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []Note
	for _, note := range s.notes {
		if note.PropertyID == propertyID && containsNoteVisibility(visible, note.Visibility) {
			out = append(out, note)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.After(out[j].CreatedAt)
		}
		return out[i].ID.String() < out[j].ID.String()
	})
	return out, nil
}

func (s *MemoryStore) NoteStats(ctx context.Context, propertyID id.PropertyID, visible []NoteVisibility) (EntityStats, error) {
	notes, err := s.ListNotes(ctx, propertyID, visible)
	if err != nil {
		return EntityStats{}, err
	}
	stats := EntityStats{Count: len(notes)}
	for _, note := range notes {
		stats.LastActivity = laterOf(stats.LastActivity, note.UpdatedAt)
	}
	return stats, nil
}

func (s *MemoryStore) CreateTask(ctx context.Context, task Task) (Task, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.tasks[task.ID]; exists {
		return Task{}, sentinel.ErrConflict
	}
	s.tasks[task.ID] = task
	s.onRollback(ctx, func() {
		delete(s.tasks, task.ID)
	})
	return task, nil
}

func (s *MemoryStore) GetTask(_ context.Context, taskID id.TaskID) (Task, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	task, ok := s.tasks[taskID]
	if !ok {
		return Task{}, sentinel.ErrNotFound
	}
	return task, nil
}

func (s *MemoryStore) UpdateTask(ctx context.Context, task Task) (Task, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	prev, ok := s.tasks[task.ID]
	if !ok {
		return Task{}, sentinel.ErrNotFound
	}
	s.tasks[task.ID] = task
	s.onRollback(ctx, func() {
		s.tasks[task.ID] = prev
	})
	return task, nil
}

func (s *MemoryStore) DeleteTask(ctx context.Context, taskID id.TaskID) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	prev, ok := s.tasks[taskID]
	if !ok {
		return false, nil
	}
	delete(s.tasks, taskID)
	s.onRollback(ctx, func() {
		s.tasks[taskID] = prev
	})
	return true, nil
}

func (s *MemoryStore) ListTasks(_ context.Context, propertyID id.PropertyID, statuses []TaskStatus, visible []TaskVisibility) ([]Task, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []Task
	for _, task := range s.tasks {
		if task.PropertyID == propertyID &&
			containsTaskStatus(statuses, task.Status) &&
			containsTaskVisibility(visible, task.Visibility) {
			out = append(out, task)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.After(out[j].CreatedAt)
		}
		return out[i].ID.String() < out[j].ID.String()
	})
	return out, nil
}

func (s *MemoryStore) TaskStats(ctx context.Context, propertyID id.PropertyID, statuses []TaskStatus, visible []TaskVisibility) (EntityStats, error) {
	tasks, err := s.ListTasks(ctx, propertyID, statuses, visible)
	if err != nil {
		return EntityStats{}, err
	}
	stats := EntityStats{Count: len(tasks)}
	for _, task := range tasks {
		stats.LastActivity = laterOf(stats.LastActivity, task.UpdatedAt)
	}
	return stats, nil
}

// onRollback registers undo against the ambient journal. Callers hold s.mu;
// the undo re-acquires it because rollback runs outside the mutation path.
func (s *MemoryStore) onRollback(ctx context.Context, undo func()) {
	if journal, ok := txcontext.JournalFrom(ctx); ok {
		journal.OnRollback(func() {
			s.mu.Lock()
			defer s.mu.Unlock()
			undo()
		})
	}
}

func laterOf(current *time.Time, candidate time.Time) *time.Time {
	if current == nil || candidate.After(*current) {
		t := candidate
		return &t
	}
	return current
}

func containsDocVisibility(vs []DocumentVisibility, v DocumentVisibility) bool {
	for _, candidate := range vs {
		if candidate == v {
			return true
		}
	}
	return false
}

func containsNoteVisibility(vs []NoteVisibility, v NoteVisibility) bool {
	for _, candidate := range vs {
		if candidate == v {
			return true
		}
	}
	return false
}

func containsTaskVisibility(vs []TaskVisibility, v TaskVisibility) bool {
	for _, candidate := range vs {
		if candidate == v {
			return true
		}
	}
	return false
}

func containsTaskStatus(ss []TaskStatus, s TaskStatus) bool {
	for _, candidate := range ss {
		if candidate == s {
			return true
		}
	}
	return false
}
