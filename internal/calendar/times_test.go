package calendar

import (
	"testing"
	"time"
)

func TestParseDateTimeTolerance(t *testing.T) {
	want := time.Date(2024, time.March, 10, 9, 30, 0, 0, time.Local)
	for _, s := range []string{"2024-03-10T09:30:00", "2024-03-10T09:30"} {
		got, err := ParseDateTime(s)
		if err != nil {
			t.Fatalf("parse %q: %v", s, err)
		}
		if !got.Equal(want) {
			t.Fatalf("parse %q = %v, want %v", s, got, want)
		}
	}
	if _, err := ParseDateTime("2024-03-10T09:30:00Z"); err != nil {
		t.Fatalf("rfc3339 fallback: %v", err)
	}
	if _, err := ParseDateTime("not a time"); err == nil {
		t.Fatal("expected error")
	}
}

func TestCombineDateTime(t *testing.T) {
	date := time.Date(2024, time.March, 10, 0, 0, 0, 0, time.Local)
	got := CombineDateTime(date, "14:45")
	if got.Hour() != 14 || got.Minute() != 45 {
		t.Fatalf("got %v", got)
	}
	got = CombineDateTime(date, "14:45:30")
	if got.Second() != 30 {
		t.Fatalf("seconds = %d", got.Second())
	}
	// Garbage clocks degrade to midnight.
	for _, clock := range []string{"", "later", "25:00", "10:75", "1:2:3:4"} {
		got = CombineDateTime(date, clock)
		if got.Hour() != 0 || got.Minute() != 0 {
			t.Fatalf("clock %q: got %v, want midnight", clock, got)
		}
	}
}
