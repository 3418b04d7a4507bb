// Package policy maps a resolved relationship kind onto the rows of each
// governed entity the caller may read. It is pure: no I/O, no clock, no
// configuration. Stores apply the returned filters in SQL; memory stores and
// the snapshot aggregator use the predicate helpers.
//
// Tiers are monotonic by construction: every set returned for occupier is a
// superset of the interested set, and owner is a superset of occupier. The
// test suite asserts this across the full (kind, entity) cross-product.
package policy

import (
	"github.com/Stratton1/ppukv6-0-sub001/internal/property"
	"github.com/Stratton1/ppukv6-0-sub001/internal/relationship"
)

// activeTaskStatuses are the statuses below owner tier; owners additionally
// see cancelled tasks.
var activeTaskStatuses = []property.TaskStatus{
	property.TaskPending,
	property.TaskInProgress,
	property.TaskCompleted,
}

// allTaskStatuses enumerates the closed status set.
var allTaskStatuses = []property.TaskStatus{
	property.TaskPending,
	property.TaskInProgress,
	property.TaskCompleted,
	property.TaskCancelled,
}

// TaskFilter restricts tasks on two axes at once. Empty slices mean
// "nothing visible", never "everything"; each tier enumerates its sets
// explicitly so a new enum value stays invisible until the policy table is
// extended.
type TaskFilter struct {
	Statuses     []property.TaskStatus
	Visibilities []property.TaskVisibility
}

// VisibleDocuments returns the document visibility values readable at the
// given tier.
func VisibleDocuments(kind relationship.Kind) []property.DocumentVisibility {
	switch kind {
	case relationship.KindOwner:
		return []property.DocumentVisibility{property.DocumentPrivate, property.DocumentPublic}
	case relationship.KindOccupier:
		return []property.DocumentVisibility{property.DocumentPublic}
	case relationship.KindInterested:
		return []property.DocumentVisibility{property.DocumentPublic}
	default:
		return nil
	}
}

// VisibleNotes returns the note visibility values readable at the given tier.
func VisibleNotes(kind relationship.Kind) []property.NoteVisibility {
	switch kind {
	case relationship.KindOwner:
		return []property.NoteVisibility{property.NotePrivate, property.NoteShared, property.NotePublic}
	case relationship.KindOccupier:
		return []property.NoteVisibility{property.NoteShared, property.NotePublic}
	case relationship.KindInterested:
		return []property.NoteVisibility{property.NotePublic}
	default:
		return nil
	}
}

// VisibleTasks returns the combined status/visibility filter for tasks at the
// given tier.
func VisibleTasks(kind relationship.Kind) TaskFilter {
	switch kind {
	case relationship.KindOwner:
		return TaskFilter{
			Statuses: allTaskStatuses,
			Visibilities: []property.TaskVisibility{
				property.TaskVisibilityPrivate,
				property.TaskVisibilityShared,
				property.TaskVisibilityPublic,
			},
		}
	case relationship.KindOccupier:
		return TaskFilter{
			Statuses: activeTaskStatuses,
			Visibilities: []property.TaskVisibility{
				property.TaskVisibilityPrivate,
				property.TaskVisibilityShared,
				property.TaskVisibilityPublic,
			},
		}
	case relationship.KindInterested:
		return TaskFilter{
			Statuses:     activeTaskStatuses,
			Visibilities: []property.TaskVisibility{property.TaskVisibilityPublic},
		}
	default:
		return TaskFilter{}
	}
}

// VisibleParties returns the relationship kinds whose holders are listed in a
// snapshot's parties section at the given tier.
func VisibleParties(kind relationship.Kind) []relationship.Kind {
	switch kind {
	case relationship.KindOwner:
		return []relationship.Kind{relationship.KindOwner, relationship.KindOccupier, relationship.KindInterested}
	case relationship.KindOccupier:
		return []relationship.Kind{relationship.KindOccupier, relationship.KindInterested}
	case relationship.KindInterested:
		return []relationship.Kind{relationship.KindInterested}
	default:
		return nil
	}
}

// AllowsDocument reports whether the tier may read the document.
func AllowsDocument(kind relationship.Kind, doc property.Document) bool {
	for _, v := range VisibleDocuments(kind) {
		if doc.Visibility == v {
			return true
		}
	}
	return false
}

// AllowsNote reports whether the tier may read the note.
func AllowsNote(kind relationship.Kind, note property.Note) bool {
	for _, v := range VisibleNotes(kind) {
		if note.Visibility == v {
			return true
		}
	}
	return false
}

// AllowsTask reports whether the tier may read the task.
func AllowsTask(kind relationship.Kind, task property.Task) bool {
	filter := VisibleTasks(kind)
	statusOK := false
	for _, s := range filter.Statuses {
		if task.Status == s {
			statusOK = true
			break
		}
	}
	if !statusOK {
		return false
	}
	for _, v := range filter.Visibilities {
		if task.Visibility == v {
			return true
		}
	}
	return false
}

// AllowsParty reports whether the tier may see a party holding the given
// relationship kind.
func AllowsParty(kind relationship.Kind, party relationship.Kind) bool {
	for _, k := range VisibleParties(kind) {
		if party == k {
			return true
		}
	}
	return false
}
