package main

import (
	"context"
	"database/sql"
	"log/slog"

	"github.com/phrazzld/studio-api/internal/config"
	"github.com/phrazzld/studio-api/internal/platform/sqlstore"
	"github.com/phrazzld/studio-api/internal/task"
)

// setupTaskStore opens the configured task store. The returned *sql.DB is
// nil for the in-memory store.
func setupTaskStore(ctx context.Context, cfg config.StoreConfig, logger *slog.Logger) (task.TaskStore, *sql.DB, error) {
	if cfg.Driver == "memory" {
		logger.Warn("Using in-memory task store; tasks are lost on restart")
		return task.NewMemoryTaskStore(), nil, nil
	}

	dialect, err := sqlstore.ParseDialect(cfg.Driver)
	if err != nil {
		return nil, nil, err
	}

	db, err := sqlstore.Open(ctx, sqlstore.Config{Dialect: dialect, DSN: cfg.DSN}, logger)
	if err != nil {
		return nil, nil, err
	}

	store, err := sqlstore.NewTaskStore(db, dialect, logger)
	if err != nil {
		_ = db.Close()
		return nil, nil, err
	}

	logger.Info("Database connection established", "dialect", dialect)
	return store, db, nil
}
