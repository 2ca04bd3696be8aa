package domain

// Priority levels. Priority only influences the default display color.
const (
	PriorityLow    = "low"
	PriorityMedium = "medium"
	PriorityHigh   = "high"
)

// Recurrence types.
const (
	RecurrenceNone    = "none"
	RecurrenceDaily   = "daily"
	RecurrenceWeekly  = "weekly"
	RecurrenceMonthly = "monthly"
)

// Task is the persisted entity. Dates are date-only strings (2006-01-02),
// times of day are wall-clock strings (15:04), and the combined timestamps
// use the zone-less layout 2006-01-02T15:04:05. The date/time pair and the
// combined timestamp are redundant representations read by different
// consumers and must never diverge; the engine recomputes them together on
// every update.
type Task struct {
	ID          string `json:"id"`
	Title       string `json:"title"`
	Description string `json:"description,omitempty"`

	StartDate *string `json:"start_date,omitempty" format:"date"`
	EndDate   *string `json:"end_date,omitempty" format:"date"`
	StartTime *string `json:"start_time,omitempty"`
	EndTime   *string `json:"end_time,omitempty"`

	StartDateTime *string `json:"start_date_time,omitempty"`
	EndDateTime   *string `json:"end_date_time,omitempty"`

	Priority  string  `json:"priority" enum:"low,medium,high"`
	Color     *string `json:"color,omitempty"`
	Completed bool    `json:"completed"`

	RecurrenceType     string  `json:"recurrence_type" enum:"none,daily,weekly,monthly"`
	RecurrenceInterval int     `json:"recurrence_interval,omitempty"`
	RecurrenceEndDate  *string `json:"recurrence_end_date,omitempty" format:"date"`

	CreatedAt string `json:"created_at" format:"date-time"`
}

// Occurrence is an ephemeral projection of a Task onto one calendar slot.
// Occurrences are recomputed in full on every query; none are persisted.
type Occurrence struct {
	ID    string `json:"id"`
	Title string `json:"title"`

	// Start and End use the date layout for all-day occurrences and the
	// combined wall-clock layout for timed ones. An all-day End is
	// exclusive (display convention).
	Start string `json:"start"`
	End   string `json:"end"`

	AllDay bool `json:"all_day"`

	BackgroundColor string `json:"background_color"`
	BorderColor     string `json:"border_color"`
	TextColor       string `json:"text_color"`

	Editable bool `json:"editable"`

	// IsRecurrence marks generated instances beyond the anchor; the anchor
	// instance carries the same identity as a non-recurring occurrence.
	IsRecurrence    bool `json:"is_recurrence"`
	OccurrenceIndex int  `json:"occurrence_index"`

	Task Task `json:"task"`
}

// Settings is the persisted application state: theme flag plus the
// projection knobs, stored as a single row and always passed explicitly.
type Settings struct {
	DarkMode               bool `json:"dark_mode"`
	MaxOccurrences         int  `json:"max_occurrences"`
	DefaultDurationMinutes int  `json:"default_duration_minutes"`
}

// Event is one row of the append-only change log.
type Event struct {
	ID         int64  `json:"id"`
	TS         string `json:"ts" format:"date-time"`
	Type       string `json:"type"`
	EntityKind string `json:"entity_kind"`
	EntityID   string `json:"entity_id,omitempty"`
	ActorID    string `json:"actor_id"`
	Payload    string `json:"payload_json"`
}
