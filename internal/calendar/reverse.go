package calendar

import (
	"time"

	"taskcal/internal/domain"
)

// Update is the timing rewrite produced by moving an occurrence. Every
// field is semantically assigned: a nil pointer clears the stored field.
// The five timing representations are always recomputed together so the
// date/time strings and the combined timestamps cannot diverge.
type Update struct {
	StartDate *string
	EndDate   *string
	StartTime *string
	EndTime   *string

	StartDateTime *string
	EndDateTime   *string
}

// EndUpdate is the end-side rewrite produced by resizing an occurrence.
// Start-side fields are untouched by a resize.
type EndUpdate struct {
	EndDate     *string
	EndTime     *string
	EndDateTime *string
}

// MapMove translates a drag of the given occurrence to its new placement
// into the task-field update to persist. For a recurrence instance the
// update still targets the anchor task — there are no per-occurrence
// exception records, so moving any instance rewrites the whole series'
// anchor. A zero newEnd collapses to newStart.
//
// Dropping onto an all-day slot strips the time component entirely;
// leaving a partial time field behind would let the date/time pair and the
// combined timestamps disagree.
func MapMove(occ domain.Occurrence, newStart, newEnd time.Time, allDay bool) Update {
	if newEnd.IsZero() {
		newEnd = newStart
	}
	if allDay {
		return Update{
			StartDate: strptr(FormatDate(newStart)),
			EndDate:   strptr(FormatDate(newEnd)),
		}
	}
	return Update{
		StartDate:     strptr(FormatDate(newStart)),
		EndDate:       strptr(FormatDate(newEnd)),
		StartTime:     strptr(FormatClock(newStart)),
		EndTime:       strptr(FormatClock(newEnd)),
		StartDateTime: strptr(FormatDateTime(newStart)),
		EndDateTime:   strptr(FormatDateTime(newEnd)),
	}
}

// MapResize translates a duration change (start unchanged) into the
// end-side fields to persist, with the same all-day/timed branching as
// MapMove.
func MapResize(occ domain.Occurrence, newEnd time.Time, allDay bool) EndUpdate {
	if allDay {
		return EndUpdate{
			EndDate: strptr(FormatDate(newEnd)),
		}
	}
	return EndUpdate{
		EndDate:     strptr(FormatDate(newEnd)),
		EndTime:     strptr(FormatClock(newEnd)),
		EndDateTime: strptr(FormatDateTime(newEnd)),
	}
}

// Apply writes the update onto a task, clearing fields whose pointers are
// nil.
func (u Update) Apply(t *domain.Task) {
	t.StartDate = u.StartDate
	t.EndDate = u.EndDate
	t.StartTime = u.StartTime
	t.EndTime = u.EndTime
	t.StartDateTime = u.StartDateTime
	t.EndDateTime = u.EndDateTime
}

// Apply writes the end-side update onto a task.
func (u EndUpdate) Apply(t *domain.Task) {
	t.EndDate = u.EndDate
	t.EndTime = u.EndTime
	t.EndDateTime = u.EndDateTime
}

func strptr(s string) *string { return &s }
