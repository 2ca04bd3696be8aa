package repo

import (
	"context"
	"database/sql"

	"taskcal/internal/domain"
)

// GetSettings reads the single settings row.
func (r Repo) GetSettings(ctx context.Context) (domain.Settings, error) {
	var (
		s        domain.Settings
		darkMode int
	)
	err := r.DB.QueryRowContext(ctx, `SELECT dark_mode,max_occurrences,default_duration_minutes FROM settings WHERE id=1`).
		Scan(&darkMode, &s.MaxOccurrences, &s.DefaultDurationMinutes)
	if err == sql.ErrNoRows {
		return s, ErrNotFound
	}
	if err != nil {
		return s, wrap("get settings", err)
	}
	s.DarkMode = darkMode != 0
	return s, nil
}

// UpsertSettings replaces the settings row in full; settings updates are
// whole-snapshot, never field-at-a-time.
func (r Repo) UpsertSettings(ctx context.Context, s domain.Settings) error {
	darkMode := 0
	if s.DarkMode {
		darkMode = 1
	}
	_, err := r.DB.ExecContext(ctx, `INSERT INTO settings(id,dark_mode,max_occurrences,default_duration_minutes) VALUES (1,?,?,?)
ON CONFLICT(id) DO UPDATE SET dark_mode=excluded.dark_mode,max_occurrences=excluded.max_occurrences,default_duration_minutes=excluded.default_duration_minutes`,
		darkMode, s.MaxOccurrences, s.DefaultDurationMinutes)
	return wrap("upsert settings", err)
}
