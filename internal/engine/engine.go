package engine

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"

	"taskcal/internal/calendar"
	"taskcal/internal/config"
	"taskcal/internal/domain"
	"taskcal/internal/events"
	"taskcal/internal/repo"
)

// Engine owns all task-set mutation. Updates are atomic whole-record
// writes in a single execution context; occurrence sets are recomputed in
// full from the stored tasks on every query, never cached.
type Engine struct {
	DB     *sql.DB
	Repo   repo.Repo
	Events events.Writer
	Config *config.Config
	Now    func() time.Time
}

func New(db *sql.DB, cfg *config.Config) Engine {
	return Engine{
		DB:     db,
		Repo:   repo.Repo{DB: db},
		Events: events.Writer{DB: db},
		Config: cfg,
		Now:    time.Now,
	}
}

func (e Engine) now() time.Time {
	if e.Now != nil {
		return e.Now()
	}
	return time.Now()
}

// Settings returns the persisted settings, seeding them from config on
// first access.
func (e Engine) Settings(ctx context.Context) (domain.Settings, error) {
	s, err := e.Repo.GetSettings(ctx)
	if err == nil {
		return s, nil
	}
	if !errors.Is(err, repo.ErrNotFound) {
		return s, err
	}
	seed := config.Default().Settings()
	if e.Config != nil {
		seed = e.Config.Settings()
	}
	if err := e.Repo.UpsertSettings(ctx, seed); err != nil {
		return seed, fmt.Errorf("seed settings: %w", err)
	}
	return seed, nil
}

// SettingsUpdateOptions patch the settings snapshot.
type SettingsUpdateOptions struct {
	DarkMode               *bool
	MaxOccurrences         *int
	DefaultDurationMinutes *int
	ActorID                string
}

func (e Engine) UpdateSettings(ctx context.Context, opts SettingsUpdateOptions) (domain.Settings, error) {
	s, err := e.Settings(ctx)
	if err != nil {
		return s, err
	}
	if opts.DarkMode != nil {
		s.DarkMode = *opts.DarkMode
	}
	if opts.MaxOccurrences != nil {
		if *opts.MaxOccurrences < 1 {
			return s, errors.New("max_occurrences must be at least 1")
		}
		s.MaxOccurrences = *opts.MaxOccurrences
	}
	if opts.DefaultDurationMinutes != nil {
		if *opts.DefaultDurationMinutes < 1 {
			return s, errors.New("default_duration_minutes must be at least 1")
		}
		s.DefaultDurationMinutes = *opts.DefaultDurationMinutes
	}
	if err := e.Repo.UpsertSettings(ctx, s); err != nil {
		return s, err
	}
	tx, err := e.DB.BeginTx(ctx, nil)
	if err != nil {
		return s, err
	}
	defer tx.Rollback()
	if err := e.Events.Append(ctx, tx, "settings.updated", "settings", "", opts.ActorID, events.EventPayload{
		"dark_mode": s.DarkMode,
	}); err != nil {
		return s, err
	}
	return s, tx.Commit()
}

func (e Engine) projectOptions(s domain.Settings) calendar.Options {
	return calendar.Options{
		DefaultDuration: time.Duration(s.DefaultDurationMinutes) * time.Minute,
		MaxOccurrences:  s.MaxOccurrences,
	}
}

// TaskCreateOptions are parameters for creating a task.
type TaskCreateOptions struct {
	ID                 string
	Title              string
	Description        string
	StartDate          string
	EndDate            string
	StartTime          string
	EndTime            string
	Priority           string
	Color              string
	RecurrenceType     string
	RecurrenceInterval int
	RecurrenceEndDate  string
	ActorID            string
}

func (e Engine) CreateTask(ctx context.Context, opts TaskCreateOptions) (domain.Task, error) {
	if opts.Title == "" {
		return domain.Task{}, errors.New("title is required")
	}
	id := opts.ID
	if id == "" {
		id = uuid.New().String()
	}
	t := domain.Task{
		ID:                 id,
		Title:              opts.Title,
		Description:        opts.Description,
		StartDate:          optionalString(opts.StartDate),
		EndDate:            optionalString(opts.EndDate),
		StartTime:          optionalString(opts.StartTime),
		EndTime:            optionalString(opts.EndTime),
		Priority:           normalizePriority(opts.Priority),
		Color:              optionalString(opts.Color),
		RecurrenceType:     normalizeRecurrence(opts.RecurrenceType),
		RecurrenceInterval: coerceInterval(opts.RecurrenceInterval),
		RecurrenceEndDate:  optionalString(opts.RecurrenceEndDate),
		CreatedAt:          e.now().UTC().Format(time.RFC3339),
	}
	normalizeTiming(&t)
	if err := calendar.CheckRange(t); err != nil {
		return domain.Task{}, err
	}
	tx, err := e.DB.BeginTx(ctx, nil)
	if err != nil {
		return domain.Task{}, err
	}
	defer tx.Rollback()
	if err := e.Repo.InsertTask(ctx, tx, t); err != nil {
		return domain.Task{}, err
	}
	if err := e.Events.Append(ctx, tx, "task.created", "task", t.ID, opts.ActorID, events.EventPayload{"title": t.Title}); err != nil {
		return domain.Task{}, err
	}
	if err := tx.Commit(); err != nil {
		return domain.Task{}, err
	}
	return t, nil
}

// TaskUpdateOptions encapsulates allowed updates. String pointers follow
// the convention: nil leaves the field alone, empty string clears it.
type TaskUpdateOptions struct {
	ID                 string
	Title              *string
	Description        *string
	StartDate          *string
	EndDate            *string
	StartTime          *string
	EndTime            *string
	Priority           *string
	Color              *string
	Completed          *bool
	RecurrenceType     *string
	RecurrenceInterval *int
	RecurrenceEndDate  *string
	ActorID            string
}

func (e Engine) UpdateTask(ctx context.Context, opts TaskUpdateOptions) (domain.Task, error) {
	t, err := e.Repo.GetTask(ctx, opts.ID)
	if err != nil {
		return t, err
	}
	if opts.Title != nil {
		if *opts.Title == "" {
			return t, errors.New("title is required")
		}
		t.Title = *opts.Title
	}
	if opts.Description != nil {
		t.Description = *opts.Description
	}
	timingTouched := false
	for _, f := range []struct {
		src *string
		dst **string
	}{
		{opts.StartDate, &t.StartDate},
		{opts.EndDate, &t.EndDate},
		{opts.StartTime, &t.StartTime},
		{opts.EndTime, &t.EndTime},
	} {
		if f.src == nil {
			continue
		}
		timingTouched = true
		*f.dst = optionalString(*f.src)
	}
	if opts.Priority != nil {
		t.Priority = normalizePriority(*opts.Priority)
	}
	if opts.Color != nil {
		t.Color = optionalString(*opts.Color)
	}
	if opts.Completed != nil {
		t.Completed = *opts.Completed
	}
	if opts.RecurrenceType != nil {
		t.RecurrenceType = normalizeRecurrence(*opts.RecurrenceType)
	}
	if opts.RecurrenceInterval != nil {
		t.RecurrenceInterval = coerceInterval(*opts.RecurrenceInterval)
	}
	if opts.RecurrenceEndDate != nil {
		t.RecurrenceEndDate = optionalString(*opts.RecurrenceEndDate)
	}
	if timingTouched {
		// Edits through the date/time surface invalidate the previous
		// combined timestamps; rederive instead of letting them diverge.
		t.StartDateTime = nil
		t.EndDateTime = nil
		normalizeTiming(&t)
	}
	if err := calendar.CheckRange(t); err != nil {
		return t, err
	}
	return t, e.saveTask(ctx, t, "task.updated", opts.ActorID, events.EventPayload{"title": t.Title})
}

func (e Engine) DeleteTask(ctx context.Context, id, actorID string) error {
	tx, err := e.DB.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()
	if err := e.Repo.DeleteTask(ctx, tx, id); err != nil {
		return err
	}
	if err := e.Events.Append(ctx, tx, "task.deleted", "task", id, actorID, events.EventPayload{}); err != nil {
		return err
	}
	return tx.Commit()
}

// ToggleTask flips the completed flag.
func (e Engine) ToggleTask(ctx context.Context, id, actorID string) (domain.Task, error) {
	t, err := e.Repo.GetTask(ctx, id)
	if err != nil {
		return t, err
	}
	t.Completed = !t.Completed
	return t, e.saveTask(ctx, t, "task.toggled", actorID, events.EventPayload{"completed": t.Completed})
}

func (e Engine) GetTask(ctx context.Context, id string) (domain.Task, error) {
	return e.Repo.GetTask(ctx, id)
}

func (e Engine) ListTasks(ctx context.Context) ([]domain.Task, error) {
	return e.Repo.ListTasks(ctx)
}

// ReplaceTasks swaps in a whole imported collection after normalizing and
// validating each record.
func (e Engine) ReplaceTasks(ctx context.Context, tasks []domain.Task, actorID string) error {
	now := e.now().UTC().Format(time.RFC3339)
	for i := range tasks {
		if tasks[i].ID == "" {
			tasks[i].ID = uuid.New().String()
		}
		if tasks[i].Title == "" {
			return fmt.Errorf("task %s: title is required", tasks[i].ID)
		}
		if tasks[i].CreatedAt == "" {
			tasks[i].CreatedAt = now
		}
		tasks[i].Priority = normalizePriority(tasks[i].Priority)
		tasks[i].RecurrenceType = normalizeRecurrence(tasks[i].RecurrenceType)
		tasks[i].RecurrenceInterval = coerceInterval(tasks[i].RecurrenceInterval)
		normalizeTiming(&tasks[i])
		if err := calendar.CheckRange(tasks[i]); err != nil {
			return fmt.Errorf("task %s: %w", tasks[i].ID, err)
		}
	}
	tx, err := e.DB.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()
	if err := e.Repo.ReplaceAllTasks(ctx, tx, tasks); err != nil {
		return err
	}
	if err := e.Events.Append(ctx, tx, "tasks.imported", "task", "", actorID, events.EventPayload{"count": len(tasks)}); err != nil {
		return err
	}
	return tx.Commit()
}

// Occurrences projects the whole task set and returns the occurrences
// overlapping [from, to), sorted by start. Nil bounds leave that side
// open.
func (e Engine) Occurrences(ctx context.Context, from, to *time.Time) ([]domain.Occurrence, error) {
	s, err := e.Settings(ctx)
	if err != nil {
		return nil, err
	}
	tasks, err := e.Repo.ListTasks(ctx)
	if err != nil {
		return nil, err
	}
	opts := e.projectOptions(s)
	var out []domain.Occurrence
	for _, t := range tasks {
		for _, occ := range calendar.Project(t, opts) {
			if !occurrenceInWindow(occ, from, to) {
				continue
			}
			out = append(out, occ)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Start != out[j].Start {
			return out[i].Start < out[j].Start
		}
		return out[i].ID < out[j].ID
	})
	return out, nil
}

func occurrenceInWindow(occ domain.Occurrence, from, to *time.Time) bool {
	if from == nil && to == nil {
		return true
	}
	start, end, err := calendar.Window(occ)
	if err != nil {
		return false
	}
	if from != nil && !end.After(*from) {
		return false
	}
	if to != nil && !start.Before(*to) {
		return false
	}
	return true
}

// MoveOptions carry a drag interaction on a displayed occurrence.
type MoveOptions struct {
	OccurrenceID string
	Start        time.Time
	End          time.Time
	AllDay       bool
	ActorID      string
}

// MoveOccurrence maps a drag back onto the source task and persists it.
// Moving a recurrence instance rewrites the series anchor: there are no
// per-occurrence exception records.
func (e Engine) MoveOccurrence(ctx context.Context, opts MoveOptions) (domain.Task, error) {
	taskID, index := calendar.SplitOccurrenceID(opts.OccurrenceID)
	t, err := e.Repo.GetTask(ctx, taskID)
	if err != nil {
		return t, err
	}
	occ := domain.Occurrence{
		ID:              opts.OccurrenceID,
		IsRecurrence:    index > 0,
		OccurrenceIndex: index,
		Task:            t,
	}
	upd := calendar.MapMove(occ, opts.Start, opts.End, opts.AllDay)
	upd.Apply(&t)
	if err := calendar.CheckRange(t); err != nil {
		return t, err
	}
	return t, e.saveTask(ctx, t, "task.moved", opts.ActorID, events.EventPayload{
		"occurrence_id": opts.OccurrenceID,
		"all_day":       opts.AllDay,
	})
}

// ResizeOptions carry a resize interaction (duration change, start
// unchanged).
type ResizeOptions struct {
	OccurrenceID string
	End          time.Time
	ActorID      string
}

// ResizeOccurrence maps a resize back onto end-side task fields. Only the
// series anchor can be resized; per-instance resize has no stored
// representation.
func (e Engine) ResizeOccurrence(ctx context.Context, opts ResizeOptions) (domain.Task, error) {
	taskID, index := calendar.SplitOccurrenceID(opts.OccurrenceID)
	if index > 0 {
		return domain.Task{}, errors.New("cannot resize a recurrence instance; resize the series anchor")
	}
	t, err := e.Repo.GetTask(ctx, taskID)
	if err != nil {
		return t, err
	}
	occ := domain.Occurrence{ID: opts.OccurrenceID, Task: t}
	upd := calendar.MapResize(occ, opts.End, isAllDay(t))
	upd.Apply(&t)
	if err := calendar.CheckRange(t); err != nil {
		return t, err
	}
	return t, e.saveTask(ctx, t, "task.resized", opts.ActorID, events.EventPayload{
		"occurrence_id": opts.OccurrenceID,
	})
}

func (e Engine) saveTask(ctx context.Context, t domain.Task, evtType, actorID string, payload events.EventPayload) error {
	tx, err := e.DB.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()
	if err := e.Repo.UpdateTask(ctx, tx, t); err != nil {
		return err
	}
	if err := e.Events.Append(ctx, tx, evtType, "task", t.ID, actorID, payload); err != nil {
		return err
	}
	return tx.Commit()
}

// --- helpers ---

// normalizeTiming keeps the combined timestamps in sync with the date and
// time-of-day fields: a complete (date, time) pair is authoritative and
// the combined value is rederived from it; an orphan combined value
// backfills the missing halves of its pair. Callers that edit the pair
// directly must clear the combined fields first so stale values cannot
// win.
func normalizeTiming(t *domain.Task) {
	syncSide(&t.StartDate, &t.StartTime, &t.StartDateTime)
	syncSide(&t.EndDate, &t.EndTime, &t.EndDateTime)
}

func syncSide(date, clock, combined **string) {
	if *date != nil && *clock != nil {
		if d, err := calendar.ParseDate(**date); err == nil {
			c := calendar.FormatDateTime(calendar.CombineDateTime(d, **clock))
			*combined = &c
		}
		return
	}
	if *combined == nil {
		return
	}
	instant, err := calendar.ParseDateTime(**combined)
	if err != nil {
		*combined = nil
		return
	}
	if *date == nil {
		d := calendar.FormatDate(instant)
		*date = &d
	}
	if *clock == nil {
		c := calendar.FormatClock(instant)
		*clock = &c
	}
}

func isAllDay(t domain.Task) bool {
	if t.StartDateTime != nil {
		return false
	}
	return t.StartDate == nil || t.StartTime == nil
}

func normalizePriority(p string) string {
	switch p {
	case domain.PriorityLow, domain.PriorityMedium, domain.PriorityHigh:
		return p
	default:
		return domain.PriorityMedium
	}
}

func normalizeRecurrence(rt string) string {
	switch rt {
	case domain.RecurrenceDaily, domain.RecurrenceWeekly, domain.RecurrenceMonthly:
		return rt
	default:
		return domain.RecurrenceNone
	}
}

func coerceInterval(v int) int {
	if v < 1 {
		return 1
	}
	return v
}

func optionalString(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
