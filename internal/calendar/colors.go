package calendar

import "taskcal/internal/domain"

// Color is one palette entry with its light/dark theme variants.
type Color struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Value string `json:"value"`
	Light string `json:"light"`
	Dark  string `json:"dark"`
}

// Palette is the selectable task color table.
var Palette = []Color{
	{ID: "blue", Name: "Blue", Value: "#3b82f6", Light: "#dbeafe", Dark: "#1e40af"},
	{ID: "indigo", Name: "Indigo", Value: "#6366f1", Light: "#e0e7ff", Dark: "#3730a3"},
	{ID: "purple", Name: "Purple", Value: "#8b5cf6", Light: "#ede9fe", Dark: "#5b21b6"},
	{ID: "pink", Name: "Pink", Value: "#ec4899", Light: "#fce7f3", Dark: "#9f1239"},
	{ID: "red", Name: "Red", Value: "#ef4444", Light: "#fee2e2", Dark: "#991b1b"},
	{ID: "orange", Name: "Orange", Value: "#f97316", Light: "#ffedd5", Dark: "#9a3412"},
	{ID: "amber", Name: "Amber", Value: "#f59e0b", Light: "#fef3c7", Dark: "#92400e"},
	{ID: "yellow", Name: "Yellow", Value: "#eab308", Light: "#fef9c3", Dark: "#854d0e"},
	{ID: "lime", Name: "Lime", Value: "#84cc16", Light: "#ecfccb", Dark: "#365314"},
	{ID: "green", Name: "Green", Value: "#10b981", Light: "#d1fae5", Dark: "#065f46"},
	{ID: "emerald", Name: "Emerald", Value: "#14b8a6", Light: "#d1fae5", Dark: "#064e3b"},
	{ID: "teal", Name: "Teal", Value: "#06b6d4", Light: "#ccfbf1", Dark: "#164e63"},
}

const (
	// CompletedColor overrides everything once a task is done.
	CompletedColor = "#9ca3af"
	// EventTextColor is the foreground used on every event block.
	EventTextColor = "#ffffff"
)

// DefaultColorForPriority maps priority to its default color. Unrecognized
// priorities get the medium default.
func DefaultColorForPriority(priority string) string {
	switch priority {
	case domain.PriorityHigh:
		return paletteValue("red")
	case domain.PriorityLow:
		return paletteValue("green")
	default:
		return paletteValue("blue")
	}
}

// ResolveColor picks the display color for a task: completed wins, then an
// explicit palette color, then the priority default. An unknown color id
// falls back to the priority default rather than erroring.
func ResolveColor(t domain.Task) string {
	if t.Completed {
		return CompletedColor
	}
	if t.Color != nil && *t.Color != "" {
		for _, c := range Palette {
			if c.ID == *t.Color {
				return c.Value
			}
		}
	}
	return DefaultColorForPriority(t.Priority)
}

func paletteValue(id string) string {
	for _, c := range Palette {
		if c.ID == id {
			return c.Value
		}
	}
	return "#3b82f6"
}
