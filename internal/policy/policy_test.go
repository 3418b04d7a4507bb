package policy

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/Stratton1/ppukv6-0-sub001/internal/property"
	"github.com/Stratton1/ppukv6-0-sub001/internal/relationship"
)

// tiers in ascending privilege order; monotonicity is checked pairwise.
var tiers = []relationship.Kind{
	relationship.KindNone,
	relationship.KindInterested,
	relationship.KindOccupier,
	relationship.KindOwner,
}

// allDocuments is one representative row per visibility value.
func allDocuments() []property.Document {
	return []property.Document{
		{Visibility: property.DocumentPrivate},
		{Visibility: property.DocumentPublic},
	}
}

func allNotes() []property.Note {
	return []property.Note{
		{Visibility: property.NotePrivate},
		{Visibility: property.NoteShared},
		{Visibility: property.NotePublic},
	}
}

// allTasks covers the full status x visibility cross-product.
func allTasks() []property.Task {
	statuses := []property.TaskStatus{
		property.TaskPending, property.TaskInProgress, property.TaskCompleted, property.TaskCancelled,
	}
	visibilities := []property.TaskVisibility{
		property.TaskVisibilityPrivate, property.TaskVisibilityShared, property.TaskVisibilityPublic,
	}
	var tasks []property.Task
	for _, s := range statuses {
		for _, v := range visibilities {
			tasks = append(tasks, property.Task{Status: s, Visibility: v})
		}
	}
	return tasks
}

func allParties() []relationship.Kind {
	return []relationship.Kind{
		relationship.KindOwner, relationship.KindOccupier, relationship.KindInterested,
	}
}

// TestMonotonicity asserts that for every entity kind, each tier's visible set
// is a superset of the tier below it, over every possible row.
func TestMonotonicity(t *testing.T) {
	for i := 1; i < len(tiers); i++ {
		lower, higher := tiers[i-1], tiers[i]

		t.Run(string(higher)+" covers "+tierName(lower), func(t *testing.T) {
			for _, doc := range allDocuments() {
				if AllowsDocument(lower, doc) {
					assert.True(t, AllowsDocument(higher, doc),
						"document %q visible to %s but not %s", doc.Visibility, lower, higher)
				}
			}
			for _, note := range allNotes() {
				if AllowsNote(lower, note) {
					assert.True(t, AllowsNote(higher, note),
						"note %q visible to %s but not %s", note.Visibility, lower, higher)
				}
			}
			for _, task := range allTasks() {
				if AllowsTask(lower, task) {
					assert.True(t, AllowsTask(higher, task),
						"task %s/%s visible to %s but not %s", task.Status, task.Visibility, lower, higher)
				}
			}
			for _, party := range allParties() {
				if AllowsParty(lower, party) {
					assert.True(t, AllowsParty(higher, party),
						"party %s visible to %s but not %s", party, lower, higher)
				}
			}
		})
	}
}

func tierName(k relationship.Kind) string {
	if k == relationship.KindNone {
		return "none"
	}
	return string(k)
}

func TestOwnerSeesEverything(t *testing.T) {
	for _, doc := range allDocuments() {
		assert.True(t, AllowsDocument(relationship.KindOwner, doc))
	}
	for _, note := range allNotes() {
		assert.True(t, AllowsNote(relationship.KindOwner, note))
	}
	for _, task := range allTasks() {
		assert.True(t, AllowsTask(relationship.KindOwner, task))
	}
	for _, party := range allParties() {
		assert.True(t, AllowsParty(relationship.KindOwner, party))
	}
}

func TestNoneSeesNothing(t *testing.T) {
	for _, doc := range allDocuments() {
		assert.False(t, AllowsDocument(relationship.KindNone, doc))
	}
	for _, note := range allNotes() {
		assert.False(t, AllowsNote(relationship.KindNone, note))
	}
	for _, task := range allTasks() {
		assert.False(t, AllowsTask(relationship.KindNone, task))
	}
	for _, party := range allParties() {
		assert.False(t, AllowsParty(relationship.KindNone, party))
	}
}

func TestTierTable(t *testing.T) {
	t.Run("occupier documents", func(t *testing.T) {
		assert.False(t, AllowsDocument(relationship.KindOccupier, property.Document{Visibility: property.DocumentPrivate}))
		assert.True(t, AllowsDocument(relationship.KindOccupier, property.Document{Visibility: property.DocumentPublic}))
	})

	t.Run("occupier notes include shared", func(t *testing.T) {
		assert.True(t, AllowsNote(relationship.KindOccupier, property.Note{Visibility: property.NoteShared}))
		assert.False(t, AllowsNote(relationship.KindOccupier, property.Note{Visibility: property.NotePrivate}))
	})

	t.Run("interested notes are public only", func(t *testing.T) {
		assert.True(t, AllowsNote(relationship.KindInterested, property.Note{Visibility: property.NotePublic}))
		assert.False(t, AllowsNote(relationship.KindInterested, property.Note{Visibility: property.NoteShared}))
	})

	t.Run("occupier tasks exclude cancelled", func(t *testing.T) {
		assert.True(t, AllowsTask(relationship.KindOccupier, property.Task{Status: property.TaskInProgress, Visibility: property.TaskVisibilityPrivate}))
		assert.False(t, AllowsTask(relationship.KindOccupier, property.Task{Status: property.TaskCancelled, Visibility: property.TaskVisibilityPublic}))
	})

	t.Run("interested tasks are public and active only", func(t *testing.T) {
		assert.True(t, AllowsTask(relationship.KindInterested, property.Task{Status: property.TaskPending, Visibility: property.TaskVisibilityPublic}))
		assert.False(t, AllowsTask(relationship.KindInterested, property.Task{Status: property.TaskPending, Visibility: property.TaskVisibilityShared}))
	})

	t.Run("occupier parties exclude owners", func(t *testing.T) {
		assert.False(t, AllowsParty(relationship.KindOccupier, relationship.KindOwner))
		assert.True(t, AllowsParty(relationship.KindOccupier, relationship.KindInterested))
	})
}
