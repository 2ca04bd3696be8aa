package calendar

import (
	"errors"

	"taskcal/internal/domain"
)

var (
	// ErrEndBeforeStart is the one user-surfaced temporal failure. It is
	// raised at the data-entry boundary; input like this must never reach
	// the projector, whose behavior on it is undefined.
	ErrEndBeforeStart = errors.New("end must not be earlier than start")
	// ErrZeroDuration guards the timed case with an explicit end equal to
	// the start.
	ErrZeroDuration = errors.New("timed task must end after it starts")
)

// CheckRange validates temporal consistency of a task's timing fields.
// All-day tasks may start and end on the same date; a timed task with an
// explicit end must have positive duration.
func CheckRange(t domain.Task) error {
	if start, ok := timedStart(t); ok {
		end, hasEnd := timedEnd(t, start)
		if !hasEnd {
			return nil
		}
		if end.Before(start) {
			return ErrEndBeforeStart
		}
		if end.Equal(start) {
			return ErrZeroDuration
		}
		return nil
	}
	if t.StartDate == nil || t.EndDate == nil {
		return nil
	}
	start, err := ParseDate(*t.StartDate)
	if err != nil {
		return nil
	}
	end, err := ParseDate(*t.EndDate)
	if err != nil {
		return nil
	}
	if end.Before(start) {
		return ErrEndBeforeStart
	}
	return nil
}
