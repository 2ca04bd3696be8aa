// Package ics renders the task set as an iCalendar feed. Recurrence is
// carried as an RRULE on the anchor VEVENT rather than pre-expanded
// instances, so consuming calendars do their own expansion.
package ics

import (
	"fmt"
	"time"

	ical "github.com/arran4/golang-ical"

	"taskcal/internal/calendar"
	"taskcal/internal/domain"
	"taskcal/internal/recur"
)

const prodID = "-//taskcal//calendar feed//EN"

// Export serializes the tasks that have a resolvable start. Invisible
// tasks (no start anywhere) are skipped, matching the projection rules.
func Export(tasks []domain.Task, opts calendar.Options, now time.Time) (string, error) {
	cal := ical.NewCalendar()
	cal.SetMethod(ical.MethodPublish)
	cal.SetProductId(prodID)

	for _, t := range tasks {
		occs := calendar.Project(t, opts)
		if len(occs) == 0 {
			continue
		}
		anchor := occs[0]
		start, end, err := calendar.Window(anchor)
		if err != nil {
			return "", fmt.Errorf("task %s: %w", t.ID, err)
		}

		ev := cal.AddEvent(t.ID)
		ev.SetDtStampTime(now.UTC())
		ev.SetSummary(t.Title)
		if t.Description != "" {
			ev.SetDescription(t.Description)
		}
		if created, err := time.Parse(time.RFC3339, t.CreatedAt); err == nil {
			ev.SetCreatedTime(created.UTC())
		}
		if anchor.AllDay {
			ev.SetAllDayStartAt(start)
			ev.SetAllDayEndAt(end)
		} else {
			ev.SetStartAt(start)
			ev.SetEndAt(end)
		}
		if t.Completed {
			ev.SetStatus(ical.ObjectStatusCompleted)
		}

		var until *time.Time
		if t.RecurrenceEndDate != nil {
			if bound, err := calendar.ParseDate(*t.RecurrenceEndDate); err == nil {
				until = &bound
			}
		}
		if rule, ok := recur.RuleString(t.RecurrenceType, t.RecurrenceInterval, until); ok {
			ev.AddRrule(rule)
		}
	}
	return cal.Serialize(), nil
}
