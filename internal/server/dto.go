package server

import (
	"time"

	"taskcal/internal/calendar"
	"taskcal/internal/domain"
	"taskcal/internal/engine"
	"taskcal/internal/recur"
)

// Request payloads

type CreateTaskRequest struct {
	ID                 *string `json:"id,omitempty"`
	Title              string  `json:"title"`
	Description        *string `json:"description,omitempty"`
	StartDate          *string `json:"start_date,omitempty" format:"date"`
	EndDate            *string `json:"end_date,omitempty" format:"date"`
	StartTime          *string `json:"start_time,omitempty"`
	EndTime            *string `json:"end_time,omitempty"`
	Priority           *string `json:"priority,omitempty" enum:"low,medium,high"`
	Color              *string `json:"color,omitempty"`
	RecurrenceType     *string `json:"recurrence_type,omitempty" enum:"none,daily,weekly,monthly"`
	RecurrenceInterval *int    `json:"recurrence_interval,omitempty"`
	RecurrenceEndDate  *string `json:"recurrence_end_date,omitempty" format:"date"`
}

// UpdateTaskRequest is a partial update; absent fields stay untouched and
// empty strings clear optional fields.
type UpdateTaskRequest struct {
	Title              *string `json:"title,omitempty"`
	Description        *string `json:"description,omitempty"`
	StartDate          *string `json:"start_date,omitempty"`
	EndDate            *string `json:"end_date,omitempty"`
	StartTime          *string `json:"start_time,omitempty"`
	EndTime            *string `json:"end_time,omitempty"`
	Priority           *string `json:"priority,omitempty"`
	Color              *string `json:"color,omitempty"`
	Completed          *bool   `json:"completed,omitempty"`
	RecurrenceType     *string `json:"recurrence_type,omitempty"`
	RecurrenceInterval *int    `json:"recurrence_interval,omitempty"`
	RecurrenceEndDate  *string `json:"recurrence_end_date,omitempty"`
}

type MoveOccurrenceRequest struct {
	Start  string `json:"start"`
	End    string `json:"end,omitempty"`
	AllDay bool   `json:"all_day"`
}

type ResizeOccurrenceRequest struct {
	End string `json:"end"`
}

type UpdateSettingsRequest struct {
	DarkMode               *bool `json:"dark_mode,omitempty"`
	MaxOccurrences         *int  `json:"max_occurrences,omitempty"`
	DefaultDurationMinutes *int  `json:"default_duration_minutes,omitempty"`
}

// Response payloads

type TaskResponse struct {
	domain.Task
	RecurrenceRule string `json:"recurrence_rule,omitempty"`
}

type OccurrenceResponse = domain.Occurrence

type SettingsResponse = domain.Settings

type EventResponse = domain.Event

func createOptions(body CreateTaskRequest, actorID string) engine.TaskCreateOptions {
	opts := engine.TaskCreateOptions{
		Title:   body.Title,
		ActorID: actorID,
	}
	opts.ID = deref(body.ID)
	opts.Description = deref(body.Description)
	opts.StartDate = deref(body.StartDate)
	opts.EndDate = deref(body.EndDate)
	opts.StartTime = deref(body.StartTime)
	opts.EndTime = deref(body.EndTime)
	opts.Priority = deref(body.Priority)
	opts.Color = deref(body.Color)
	opts.RecurrenceType = deref(body.RecurrenceType)
	if body.RecurrenceInterval != nil {
		opts.RecurrenceInterval = *body.RecurrenceInterval
	}
	opts.RecurrenceEndDate = deref(body.RecurrenceEndDate)
	return opts
}

func updateOptions(id string, body UpdateTaskRequest, actorID string) engine.TaskUpdateOptions {
	return engine.TaskUpdateOptions{
		ID:                 id,
		Title:              body.Title,
		Description:        body.Description,
		StartDate:          body.StartDate,
		EndDate:            body.EndDate,
		StartTime:          body.StartTime,
		EndTime:            body.EndTime,
		Priority:           body.Priority,
		Color:              body.Color,
		Completed:          body.Completed,
		RecurrenceType:     body.RecurrenceType,
		RecurrenceInterval: body.RecurrenceInterval,
		RecurrenceEndDate:  body.RecurrenceEndDate,
		ActorID:            actorID,
	}
}

// taskResponse decorates a task with its derived recurrence rule string.
func taskResponse(t domain.Task) TaskResponse {
	res := TaskResponse{Task: t}
	var until *time.Time
	if t.RecurrenceEndDate != nil {
		if bound, err := calendar.ParseDate(*t.RecurrenceEndDate); err == nil {
			until = &bound
		}
	}
	if rule, ok := recur.RuleString(t.RecurrenceType, t.RecurrenceInterval, until); ok {
		res.RecurrenceRule = rule
	}
	return res
}

func mapTasks(items []domain.Task) []TaskResponse {
	res := make([]TaskResponse, 0, len(items))
	for _, t := range items {
		res = append(res, taskResponse(t))
	}
	return res
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
