package engine_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"taskcal/internal/calendar"
	"taskcal/internal/config"
	"taskcal/internal/db"
	"taskcal/internal/domain"
	"taskcal/internal/engine"
	"taskcal/internal/migrate"
	"taskcal/internal/repo"
)

type testEnv struct {
	Engine engine.Engine
	Ctx    context.Context
}

func newTestEnv(t *testing.T) testEnv {
	t.Helper()
	dir := t.TempDir()
	conn, err := db.Open(db.Config{Workspace: dir})
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	t.Cleanup(func() { conn.Close() })
	if err := migrate.Migrate(conn); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	eng := engine.New(conn, config.Default())
	eng.Now = func() time.Time { return time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC) }
	return testEnv{Engine: eng, Ctx: context.Background()}
}

func strp(s string) *string { return &s }

func TestCreateTaskDefaults(t *testing.T) {
	env := newTestEnv(t)
	task, err := env.Engine.CreateTask(env.Ctx, engine.TaskCreateOptions{Title: "Buy milk", ActorID: "tester"})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if task.ID == "" {
		t.Fatal("expected generated id")
	}
	if task.Priority != domain.PriorityMedium {
		t.Fatalf("priority = %s", task.Priority)
	}
	if task.RecurrenceType != domain.RecurrenceNone || task.RecurrenceInterval != 1 {
		t.Fatalf("recurrence = %s/%d", task.RecurrenceType, task.RecurrenceInterval)
	}
	if task.CreatedAt != "2024-01-01T12:00:00Z" {
		t.Fatalf("created at = %s", task.CreatedAt)
	}

	stored, err := env.Engine.GetTask(env.Ctx, task.ID)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if stored.Title != "Buy milk" {
		t.Fatalf("stored title = %s", stored.Title)
	}
}

func TestCreateTaskRequiresTitle(t *testing.T) {
	env := newTestEnv(t)
	if _, err := env.Engine.CreateTask(env.Ctx, engine.TaskCreateOptions{ActorID: "tester"}); err == nil {
		t.Fatal("expected title error")
	}
}

func TestCreateTaskNormalizesUnknownValues(t *testing.T) {
	env := newTestEnv(t)
	task, err := env.Engine.CreateTask(env.Ctx, engine.TaskCreateOptions{
		Title:              "odd",
		Priority:           "urgent",
		RecurrenceType:     "hourly",
		RecurrenceInterval: -2,
		ActorID:            "tester",
	})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if task.Priority != domain.PriorityMedium {
		t.Fatalf("priority = %s", task.Priority)
	}
	if task.RecurrenceType != domain.RecurrenceNone {
		t.Fatalf("recurrence = %s", task.RecurrenceType)
	}
	if task.RecurrenceInterval != 1 {
		t.Fatalf("interval = %d", task.RecurrenceInterval)
	}
}

func TestCreateTaskDerivesCombinedTimestamps(t *testing.T) {
	env := newTestEnv(t)
	task, err := env.Engine.CreateTask(env.Ctx, engine.TaskCreateOptions{
		Title:     "Standup",
		StartDate: "2024-03-10",
		StartTime: "09:00",
		EndTime:   "09:15",
		ActorID:   "tester",
	})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if task.StartDateTime == nil || *task.StartDateTime != "2024-03-10T09:00:00" {
		t.Fatalf("start datetime = %v", task.StartDateTime)
	}
	if task.EndDateTime == nil || *task.EndDateTime != "2024-03-10T09:15:00" {
		t.Fatalf("end datetime = %v", task.EndDateTime)
	}
}

func TestCreateTaskRejectsInvertedRange(t *testing.T) {
	env := newTestEnv(t)
	_, err := env.Engine.CreateTask(env.Ctx, engine.TaskCreateOptions{
		Title:     "backwards",
		StartDate: "2024-03-10",
		StartTime: "10:00",
		EndTime:   "09:00",
		ActorID:   "tester",
	})
	if !errors.Is(err, calendar.ErrEndBeforeStart) {
		t.Fatalf("err = %v", err)
	}
	_, err = env.Engine.CreateTask(env.Ctx, engine.TaskCreateOptions{
		Title:     "backwards all-day",
		StartDate: "2024-03-10",
		EndDate:   "2024-03-09",
		ActorID:   "tester",
	})
	if !errors.Is(err, calendar.ErrEndBeforeStart) {
		t.Fatalf("all-day err = %v", err)
	}
}

func TestUpdateTaskClearsTimeFields(t *testing.T) {
	env := newTestEnv(t)
	task, err := env.Engine.CreateTask(env.Ctx, engine.TaskCreateOptions{
		Title:     "timed",
		StartDate: "2024-03-10",
		StartTime: "10:00",
		ActorID:   "tester",
	})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	// Clearing the time of day turns the task back into an all-day one;
	// the derived combined timestamp must go with it.
	updated, err := env.Engine.UpdateTask(env.Ctx, engine.TaskUpdateOptions{
		ID:        task.ID,
		StartTime: strp(""),
		ActorID:   "tester",
	})
	if err != nil {
		t.Fatalf("update: %v", err)
	}
	if updated.StartTime != nil {
		t.Fatalf("start time = %v", updated.StartTime)
	}
	if updated.StartDateTime != nil {
		t.Fatalf("start datetime survived: %v", updated.StartDateTime)
	}
	occs := calendar.Project(updated, calendar.Options{})
	if len(occs) != 1 || !occs[0].AllDay {
		t.Fatalf("expected all-day projection, got %+v", occs)
	}
}

func TestUpdateTaskUnknownID(t *testing.T) {
	env := newTestEnv(t)
	_, err := env.Engine.UpdateTask(env.Ctx, engine.TaskUpdateOptions{ID: "nope", Title: strp("x"), ActorID: "tester"})
	if !errors.Is(err, repo.ErrNotFound) {
		t.Fatalf("err = %v", err)
	}
}

func TestToggleAndDelete(t *testing.T) {
	env := newTestEnv(t)
	task, err := env.Engine.CreateTask(env.Ctx, engine.TaskCreateOptions{Title: "flip me", ActorID: "tester"})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	toggled, err := env.Engine.ToggleTask(env.Ctx, task.ID, "tester")
	if err != nil || !toggled.Completed {
		t.Fatalf("toggle on: %v completed=%v", err, toggled.Completed)
	}
	toggled, err = env.Engine.ToggleTask(env.Ctx, task.ID, "tester")
	if err != nil || toggled.Completed {
		t.Fatalf("toggle off: %v completed=%v", err, toggled.Completed)
	}
	if err := env.Engine.DeleteTask(env.Ctx, task.ID, "tester"); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if _, err := env.Engine.GetTask(env.Ctx, task.ID); !errors.Is(err, repo.ErrNotFound) {
		t.Fatalf("get after delete: %v", err)
	}
	if err := env.Engine.DeleteTask(env.Ctx, task.ID, "tester"); !errors.Is(err, repo.ErrNotFound) {
		t.Fatalf("double delete: %v", err)
	}
}

func TestOccurrencesWindowAndOrder(t *testing.T) {
	env := newTestEnv(t)
	mk := func(title, date string) {
		t.Helper()
		if _, err := env.Engine.CreateTask(env.Ctx, engine.TaskCreateOptions{Title: title, StartDate: date, ActorID: "tester"}); err != nil {
			t.Fatalf("create %s: %v", title, err)
		}
	}
	mk("late", "2024-03-20")
	mk("early", "2024-03-05")
	mk("outside", "2024-05-01")

	from := time.Date(2024, 3, 1, 0, 0, 0, 0, time.Local)
	to := time.Date(2024, 4, 1, 0, 0, 0, 0, time.Local)
	occs, err := env.Engine.Occurrences(env.Ctx, &from, &to)
	if err != nil {
		t.Fatalf("occurrences: %v", err)
	}
	if len(occs) != 2 {
		t.Fatalf("got %d occurrences: %+v", len(occs), occs)
	}
	if occs[0].Title != "early" || occs[1].Title != "late" {
		t.Fatalf("order: %s, %s", occs[0].Title, occs[1].Title)
	}
}

func TestMoveRecurrenceInstanceRewritesAnchor(t *testing.T) {
	env := newTestEnv(t)
	task, err := env.Engine.CreateTask(env.Ctx, engine.TaskCreateOptions{
		Title:          "weekly sync",
		StartDate:      "2024-01-01",
		RecurrenceType: domain.RecurrenceWeekly,
		ActorID:        "tester",
	})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	moved, err := env.Engine.MoveOccurrence(env.Ctx, engine.MoveOptions{
		OccurrenceID: task.ID + "_1",
		Start:        time.Date(2024, 2, 5, 0, 0, 0, 0, time.Local),
		AllDay:       true,
		ActorID:      "tester",
	})
	if err != nil {
		t.Fatalf("move: %v", err)
	}
	if moved.ID != task.ID {
		t.Fatalf("moved id = %s", moved.ID)
	}
	// The whole series now starts at the dropped date.
	if moved.StartDate == nil || *moved.StartDate != "2024-02-05" {
		t.Fatalf("anchor start = %v", moved.StartDate)
	}
	occs := calendar.Project(moved, calendar.Options{MaxOccurrences: 2})
	if occs[0].Start != "2024-02-05" || occs[1].Start != "2024-02-12" {
		t.Fatalf("reprojected starts = %s, %s", occs[0].Start, occs[1].Start)
	}
}

func TestMoveAllDayClearsTimes(t *testing.T) {
	env := newTestEnv(t)
	task, err := env.Engine.CreateTask(env.Ctx, engine.TaskCreateOptions{
		Title:     "timed meeting",
		StartDate: "2024-03-10",
		StartTime: "10:00",
		EndTime:   "11:00",
		ActorID:   "tester",
	})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	moved, err := env.Engine.MoveOccurrence(env.Ctx, engine.MoveOptions{
		OccurrenceID: task.ID,
		Start:        time.Date(2024, 3, 14, 0, 0, 0, 0, time.Local),
		AllDay:       true,
		ActorID:      "tester",
	})
	if err != nil {
		t.Fatalf("move: %v", err)
	}
	if moved.StartTime != nil || moved.EndTime != nil || moved.StartDateTime != nil || moved.EndDateTime != nil {
		t.Fatalf("time fields survived all-day drop: %+v", moved)
	}
	if moved.StartDate == nil || *moved.StartDate != "2024-03-14" {
		t.Fatalf("start date = %v", moved.StartDate)
	}
}

func TestResizeOccurrence(t *testing.T) {
	env := newTestEnv(t)
	task, err := env.Engine.CreateTask(env.Ctx, engine.TaskCreateOptions{
		Title:     "stretch me",
		StartDate: "2024-03-10",
		StartTime: "09:00",
		EndTime:   "10:00",
		ActorID:   "tester",
	})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	resized, err := env.Engine.ResizeOccurrence(env.Ctx, engine.ResizeOptions{
		OccurrenceID: task.ID,
		End:          time.Date(2024, 3, 10, 11, 30, 0, 0, time.Local),
		ActorID:      "tester",
	})
	if err != nil {
		t.Fatalf("resize: %v", err)
	}
	if resized.EndTime == nil || *resized.EndTime != "11:30" {
		t.Fatalf("end time = %v", resized.EndTime)
	}
	if resized.StartTime == nil || *resized.StartTime != "09:00" {
		t.Fatalf("start side changed: %v", resized.StartTime)
	}
}

func TestResizeRecurrenceInstanceRejected(t *testing.T) {
	env := newTestEnv(t)
	task, err := env.Engine.CreateTask(env.Ctx, engine.TaskCreateOptions{
		Title:          "series",
		StartDate:      "2024-01-01",
		RecurrenceType: domain.RecurrenceDaily,
		ActorID:        "tester",
	})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if _, err := env.Engine.ResizeOccurrence(env.Ctx, engine.ResizeOptions{
		OccurrenceID: task.ID + "_2",
		End:          time.Date(2024, 1, 3, 0, 0, 0, 0, time.Local),
		ActorID:      "tester",
	}); err == nil {
		t.Fatal("expected instance resize to be rejected")
	}
}

func TestReplaceTasksImport(t *testing.T) {
	env := newTestEnv(t)
	if _, err := env.Engine.CreateTask(env.Ctx, engine.TaskCreateOptions{Title: "old", ActorID: "tester"}); err != nil {
		t.Fatalf("seed: %v", err)
	}
	imported := []domain.Task{
		{Title: "from export", StartDateTime: strp("2024-03-10T08:00:00")},
		{ID: "fixed-id", Title: "plain"},
	}
	if err := env.Engine.ReplaceTasks(env.Ctx, imported, "tester"); err != nil {
		t.Fatalf("replace: %v", err)
	}
	tasks, err := env.Engine.ListTasks(env.Ctx)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(tasks) != 2 {
		t.Fatalf("got %d tasks", len(tasks))
	}
	for _, task := range tasks {
		if task.Title == "old" {
			t.Fatal("previous collection survived the import")
		}
		if task.Title == "from export" {
			// Orphan combined timestamps backfill their pair on import.
			if task.StartDate == nil || *task.StartDate != "2024-03-10" {
				t.Fatalf("start date not backfilled: %+v", task)
			}
			if task.StartTime == nil || *task.StartTime != "08:00" {
				t.Fatalf("start time not backfilled: %+v", task)
			}
		}
	}
}

func TestReplaceTasksValidatesEachRecord(t *testing.T) {
	env := newTestEnv(t)
	err := env.Engine.ReplaceTasks(env.Ctx, []domain.Task{
		{Title: "fine"},
		{Title: "broken", StartDate: strp("2024-03-10"), EndDate: strp("2024-03-01")},
	}, "tester")
	if !errors.Is(err, calendar.ErrEndBeforeStart) {
		t.Fatalf("err = %v", err)
	}
	tasks, _ := env.Engine.ListTasks(env.Ctx)
	if len(tasks) != 0 {
		t.Fatalf("partial import happened: %d tasks", len(tasks))
	}
}

func TestSettingsSeedAndUpdate(t *testing.T) {
	env := newTestEnv(t)
	s, err := env.Engine.Settings(env.Ctx)
	if err != nil {
		t.Fatalf("settings: %v", err)
	}
	if s.MaxOccurrences != 100 || s.DefaultDurationMinutes != 60 || s.DarkMode {
		t.Fatalf("defaults = %+v", s)
	}
	dark := true
	s, err = env.Engine.UpdateSettings(env.Ctx, engine.SettingsUpdateOptions{DarkMode: &dark, ActorID: "tester"})
	if err != nil || !s.DarkMode {
		t.Fatalf("update: %v %+v", err, s)
	}
	s, err = env.Engine.Settings(env.Ctx)
	if err != nil || !s.DarkMode {
		t.Fatalf("reload: %v %+v", err, s)
	}
	bad := 0
	if _, err := env.Engine.UpdateSettings(env.Ctx, engine.SettingsUpdateOptions{MaxOccurrences: &bad, ActorID: "tester"}); err == nil {
		t.Fatal("expected validation error")
	}
}

func TestEventLog(t *testing.T) {
	env := newTestEnv(t)
	task, err := env.Engine.CreateTask(env.Ctx, engine.TaskCreateOptions{Title: "tracked", ActorID: "alice"})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if _, err := env.Engine.ToggleTask(env.Ctx, task.ID, "alice"); err != nil {
		t.Fatalf("toggle: %v", err)
	}
	events, err := env.Engine.Repo.ListEvents(env.Ctx, 10)
	if err != nil {
		t.Fatalf("list events: %v", err)
	}
	if len(events) != 2 {
		t.Fatalf("got %d events", len(events))
	}
	// Newest first.
	if events[0].Type != "task.toggled" || events[1].Type != "task.created" {
		t.Fatalf("event order: %s, %s", events[0].Type, events[1].Type)
	}
	if events[0].ActorID != "alice" || events[0].EntityID != task.ID {
		t.Fatalf("event attribution: %+v", events[0])
	}
}
