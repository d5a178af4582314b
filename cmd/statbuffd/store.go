package main

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/udisondev/statbuff/internal/buff"
	"github.com/udisondev/statbuff/internal/config"
	"github.com/udisondev/statbuff/internal/db"
	"github.com/udisondev/statbuff/internal/savedata"
)

// openStore creates the persistence backend selected by cfg.Store.Backend.
// The returned func releases it and is never nil.
func openStore(ctx context.Context, cfg config.Server) (buff.Store, func(), error) {
	switch cfg.Store.Backend {
	case config.BackendMemory:
		slog.Warn("using in-memory buff store, buffs will not survive a restart")
		return buff.NewMemoryStore(), func() {}, nil

	case config.BackendPostgres:
		database, err := db.New(ctx, cfg.Database.DSN())
		if err != nil {
			return nil, nil, fmt.Errorf("connecting to database: %w", err)
		}
		slog.Info("database connected", "host", cfg.Database.Host, "db", cfg.Database.DBName)

		if err := database.Migrate(ctx); err != nil {
			database.Close()
			return nil, nil, fmt.Errorf("running migrations: %w", err)
		}
		slog.Info("database migrations applied")
		return database.Buffs(), database.Close, nil

	case config.BackendSavedata:
		store, err := savedata.Open(cfg.Savedata.AppName)
		if err != nil {
			return nil, nil, err
		}
		slog.Info("save data opened", "app", cfg.Savedata.AppName)
		return store, func() {}, nil

	default:
		return nil, nil, fmt.Errorf("%w: %q", config.ErrUnknownBackend, cfg.Store.Backend)
	}
}
