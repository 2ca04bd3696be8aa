package taskcalsdk

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// Client is a minimal Taskcal HTTP API client.
type Client struct {
	BaseURL     string
	BearerToken string
	HTTPClient  *http.Client
	Timeout     time.Duration
}

// New creates a client with sane defaults.
func New(baseURL string) *Client {
	return &Client{
		BaseURL: baseURL,
		Timeout: 10 * time.Second,
	}
}

// Task represents the API task model.
type Task struct {
	ID                 string  `json:"id"`
	Title              string  `json:"title"`
	Description        string  `json:"description,omitempty"`
	StartDate          *string `json:"start_date,omitempty"`
	EndDate            *string `json:"end_date,omitempty"`
	StartTime          *string `json:"start_time,omitempty"`
	EndTime            *string `json:"end_time,omitempty"`
	StartDateTime      *string `json:"start_date_time,omitempty"`
	EndDateTime        *string `json:"end_date_time,omitempty"`
	Priority           string  `json:"priority"`
	Color              *string `json:"color,omitempty"`
	Completed          bool    `json:"completed"`
	RecurrenceType     string  `json:"recurrence_type"`
	RecurrenceInterval int     `json:"recurrence_interval"`
	RecurrenceEndDate  *string `json:"recurrence_end_date,omitempty"`
	RecurrenceRule     string  `json:"recurrence_rule,omitempty"`
	CreatedAt          string  `json:"created_at"`
}

// Occurrence represents one projected calendar entry.
type Occurrence struct {
	ID              string `json:"id"`
	Title           string `json:"title"`
	Start           string `json:"start"`
	End             string `json:"end,omitempty"`
	AllDay          bool   `json:"all_day"`
	BackgroundColor string `json:"background_color"`
	BorderColor     string `json:"border_color"`
	TextColor       string `json:"text_color"`
	Editable        bool   `json:"editable"`
	IsRecurrence    bool   `json:"is_recurrence"`
	OccurrenceIndex int    `json:"occurrence_index"`
	Task            Task   `json:"task"`
}

// Settings represents the persisted preferences snapshot.
type Settings struct {
	DarkMode               bool `json:"dark_mode"`
	MaxOccurrences         int  `json:"max_occurrences"`
	DefaultDurationMinutes int  `json:"default_duration_minutes"`
}

// Event represents a log entry.
type Event struct {
	ID         int64  `json:"id"`
	TS         string `json:"ts"`
	Type       string `json:"type"`
	EntityKind string `json:"entity_kind"`
	EntityID   string `json:"entity_id"`
	ActorID    string `json:"actor_id"`
	Payload    string `json:"payload_json"`
}

// APIError wraps non-2xx responses.
type APIError struct {
	StatusCode int
	Body       string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("api error: status=%d body=%s", e.StatusCode, e.Body)
}

// CreateTask creates a task from an arbitrary field map; timing fields
// follow the API shapes (dates "2006-01-02", clocks "15:04").
func (c *Client) CreateTask(ctx context.Context, fields map[string]any) (Task, error) {
	var resp Task
	err := c.do(ctx, http.MethodPost, "v0/tasks", fields, &resp)
	return resp, err
}

// ListTasks returns every stored task.
func (c *Client) ListTasks(ctx context.Context) ([]Task, error) {
	var resp []Task
	err := c.do(ctx, http.MethodGet, "v0/tasks", nil, &resp)
	return resp, err
}

// GetTask fetches a task by id.
func (c *Client) GetTask(ctx context.Context, id string) (Task, error) {
	var resp Task
	err := c.do(ctx, http.MethodGet, "v0/tasks/"+url.PathEscape(id), nil, &resp)
	return resp, err
}

// UpdateTask applies a partial update; absent keys stay untouched.
func (c *Client) UpdateTask(ctx context.Context, id string, fields map[string]any) (Task, error) {
	var resp Task
	err := c.do(ctx, http.MethodPatch, "v0/tasks/"+url.PathEscape(id), fields, &resp)
	return resp, err
}

// DeleteTask removes a task.
func (c *Client) DeleteTask(ctx context.Context, id string) error {
	return c.do(ctx, http.MethodDelete, "v0/tasks/"+url.PathEscape(id), nil, nil)
}

// ToggleTask flips the completed flag.
func (c *Client) ToggleTask(ctx context.Context, id string) (Task, error) {
	var resp Task
	err := c.do(ctx, http.MethodPost, "v0/tasks/"+url.PathEscape(id)+"/toggle", nil, &resp)
	return resp, err
}

// ReplaceTasks imports a whole task collection, replacing everything.
func (c *Client) ReplaceTasks(ctx context.Context, tasks []Task) ([]Task, error) {
	var resp []Task
	err := c.do(ctx, http.MethodPut, "v0/tasks", tasks, &resp)
	return resp, err
}

// Occurrences returns the projected calendar entries. from/to select an
// inclusive date window; empty strings leave that side open.
func (c *Client) Occurrences(ctx context.Context, from, to string) ([]Occurrence, error) {
	endpoint := "v0/occurrences"
	params := url.Values{}
	if from != "" {
		params.Set("from", from)
	}
	if to != "" {
		params.Set("to", to)
	}
	if len(params) > 0 {
		endpoint += "?" + params.Encode()
	}
	var resp []Occurrence
	err := c.do(ctx, http.MethodGet, endpoint, nil, &resp)
	return resp, err
}

// MoveOccurrence drags an occurrence to a new slot.
func (c *Client) MoveOccurrence(ctx context.Context, occurrenceID, start, end string, allDay bool) (Task, error) {
	body := map[string]any{
		"start":   start,
		"all_day": allDay,
	}
	if end != "" {
		body["end"] = end
	}
	var resp Task
	endpoint := "v0/occurrences/" + url.PathEscape(occurrenceID) + "/move"
	err := c.do(ctx, http.MethodPost, endpoint, body, &resp)
	return resp, err
}

// ResizeOccurrence changes an occurrence's end.
func (c *Client) ResizeOccurrence(ctx context.Context, occurrenceID, end string) (Task, error) {
	body := map[string]any{"end": end}
	var resp Task
	endpoint := "v0/occurrences/" + url.PathEscape(occurrenceID) + "/resize"
	err := c.do(ctx, http.MethodPost, endpoint, body, &resp)
	return resp, err
}

// Settings returns the persisted settings.
func (c *Client) Settings(ctx context.Context) (Settings, error) {
	var resp Settings
	err := c.do(ctx, http.MethodGet, "v0/settings", nil, &resp)
	return resp, err
}

// UpdateSettings patches the settings snapshot.
func (c *Client) UpdateSettings(ctx context.Context, fields map[string]any) (Settings, error) {
	var resp Settings
	err := c.do(ctx, http.MethodPatch, "v0/settings", fields, &resp)
	return resp, err
}

// Events returns recent events, newest first.
func (c *Client) Events(ctx context.Context, limit int) ([]Event, error) {
	endpoint := "v0/events"
	if limit > 0 {
		endpoint = fmt.Sprintf("%s?limit=%d", endpoint, limit)
	}
	var resp []Event
	err := c.do(ctx, http.MethodGet, endpoint, nil, &resp)
	return resp, err
}

// CalendarFeed returns the iCalendar rendering of the task set.
func (c *Client) CalendarFeed(ctx context.Context) (string, error) {
	if c.HTTPClient == nil {
		c.HTTPClient = &http.Client{Timeout: c.Timeout}
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.base()+"/v0/calendar.ics", nil)
	if err != nil {
		return "", err
	}
	if c.BearerToken != "" {
		req.Header.Set("Authorization", "Bearer "+c.BearerToken)
	}
	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()
	b, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", err
	}
	if resp.StatusCode >= 300 {
		return "", &APIError{StatusCode: resp.StatusCode, Body: string(b)}
	}
	return string(b), nil
}

func (c *Client) do(ctx context.Context, method, endpoint string, body any, out any) error {
	if c.HTTPClient == nil {
		c.HTTPClient = &http.Client{Timeout: c.Timeout}
	}
	url := c.base() + "/" + strings.TrimLeft(endpoint, "/")
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			return err
		}
	}
	req, err := http.NewRequestWithContext(ctx, method, url, &buf)
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	if c.BearerToken != "" {
		req.Header.Set("Authorization", "Bearer "+c.BearerToken)
	}
	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 300 {
		b, _ := io.ReadAll(resp.Body)
		return &APIError{StatusCode: resp.StatusCode, Body: string(b)}
	}
	if out != nil && resp.StatusCode != http.StatusNoContent {
		return json.NewDecoder(resp.Body).Decode(out)
	}
	return nil
}

func (c *Client) base() string {
	return strings.TrimRight(c.BaseURL, "/")
}
