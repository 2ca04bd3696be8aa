package ics

import (
	"strings"
	"testing"
	"time"

	"taskcal/internal/calendar"
	"taskcal/internal/domain"
)

func strp(s string) *string { return &s }

func TestExportRendersTasks(t *testing.T) {
	now := time.Date(2024, time.March, 1, 12, 0, 0, 0, time.UTC)
	tasks := []domain.Task{
		{
			ID:        "t1",
			Title:     "conference",
			StartDate: strp("2024-03-10"),
			EndDate:   strp("2024-03-12"),
		},
		{
			ID:             "t2",
			Title:          "standup",
			Description:    "daily sync",
			StartDate:      strp("2024-03-04"),
			StartTime:      strp("09:00"),
			EndTime:        strp("09:15"),
			RecurrenceType: domain.RecurrenceDaily,
			Completed:      true,
		},
		{
			ID:    "t3",
			Title: "floating note",
		},
	}

	feed, err := Export(tasks, calendar.Options{}, now)
	if err != nil {
		t.Fatalf("export: %v", err)
	}
	if !strings.Contains(feed, "BEGIN:VCALENDAR") || !strings.Contains(feed, "END:VCALENDAR") {
		t.Fatalf("not a calendar:\n%s", feed)
	}
	if !strings.Contains(feed, "SUMMARY:conference") {
		t.Fatalf("missing all-day event:\n%s", feed)
	}
	if !strings.Contains(feed, "SUMMARY:standup") {
		t.Fatalf("missing timed event:\n%s", feed)
	}
	if !strings.Contains(feed, "DESCRIPTION:daily sync") {
		t.Fatalf("missing description:\n%s", feed)
	}
	if !strings.Contains(feed, "FREQ=DAILY") {
		t.Fatalf("missing recurrence rule:\n%s", feed)
	}
	if !strings.Contains(feed, "STATUS:COMPLETED") {
		t.Fatalf("missing completed status:\n%s", feed)
	}
	// A task with no resolvable start has no occurrence and no event.
	if strings.Contains(feed, "floating note") {
		t.Fatalf("invisible task was exported:\n%s", feed)
	}
	if strings.Count(feed, "BEGIN:VEVENT") != 2 {
		t.Fatalf("event count:\n%s", feed)
	}
}
