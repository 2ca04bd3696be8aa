package app

import (
	"fmt"

	"taskcal/internal/config"
	"taskcal/internal/db"
	"taskcal/internal/engine"
	"taskcal/internal/migrate"
)

// Open bootstraps a workspace: loads config (or defaults), opens the
// SQLite database, applies migrations, and returns a ready engine. The
// caller owns the underlying connection via Engine.DB.
func Open(workspace string) (engine.Engine, error) {
	cfg, err := config.Load(workspace)
	if err != nil {
		return engine.Engine{}, fmt.Errorf("load config: %w", err)
	}
	conn, err := db.Open(db.Config{Workspace: workspace})
	if err != nil {
		return engine.Engine{}, fmt.Errorf("open database: %w", err)
	}
	if err := migrate.Migrate(conn); err != nil {
		conn.Close()
		return engine.Engine{}, fmt.Errorf("migrate: %w", err)
	}
	return engine.New(conn, cfg), nil
}
