package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"golang.org/x/sync/errgroup"

	"github.com/udisondev/statbuff/internal/buff"
	"github.com/udisondev/statbuff/internal/catalog"
	"github.com/udisondev/statbuff/internal/config"
	"github.com/udisondev/statbuff/internal/gameloop"
	"github.com/udisondev/statbuff/internal/timer"
)

const ConfigPath = "config/statbuff.yaml"

func main() {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigCh
		slog.Info("shutting down", "signal", sig)
		cancel()
	}()

	if err := run(ctx); err != nil {
		slog.Error("fatal", "err", err)
		os.Exit(1)
	}
}

func run(ctx context.Context) error {
	// Load config FIRST to determine log level
	cfgPath := ConfigPath
	if p := os.Getenv("STATBUFF_CONFIG"); p != "" {
		cfgPath = p
	}
	cfg, err := config.LoadServer(cfgPath)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
		Level: parseLogLevel(cfg.LogLevel),
	})))

	slog.Info("statbuff starting",
		"log_level", cfg.LogLevel,
		"backend", cfg.Store.Backend,
		"refresh_policy", cfg.RefreshPolicy)

	store, closeStore, err := openStore(ctx, cfg)
	if err != nil {
		return err
	}
	defer closeStore()

	cat, err := catalog.LoadFile(cfg.CatalogPath)
	if err != nil {
		return fmt.Errorf("loading catalog: %w", err)
	}
	slog.Info("buff catalog loaded", "path", cfg.CatalogPath, "buffs", cat.Len())

	policy, err := buff.ParseRefreshPolicy(cfg.RefreshPolicy)
	if err != nil {
		return err
	}

	sheet := catalog.NewSheet(cfg.Stats)
	coord := buff.NewCoordinator(store, buff.WithRefreshPolicy(policy))
	restorer := catalog.NewRestorer(cat, sheet, coord)
	detach := restorer.Attach(ctx)

	restored, err := coord.Init(ctx)
	detach()
	if err != nil {
		return fmt.Errorf("restoring buffs: %w", err)
	}
	slog.Info("buffs restored", "count", restored, "active", coord.ActiveCount())

	loop := gameloop.New(coord,
		gameloop.WithTickInterval(cfg.TickInterval),
		gameloop.WithTimeScale(cfg.TimeScale),
		gameloop.WithAutosaveInterval(cfg.AutosaveInterval),
		gameloop.WithTickHook(statusReporter(cfg, sheet, coord)),
	)

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		if err := loop.Run(gctx); err != nil {
			return fmt.Errorf("game loop: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		for _, id := range applyList() {
			err := loop.Do(gctx, func(*buff.Coordinator) error {
				return restorer.Apply(gctx, id)
			})
			if err != nil {
				// Неизвестный бафф не должен ронять сервис.
				slog.Warn("buff not applied", "sourceID", id, "error", err)
				continue
			}
			slog.Info("buff applied", "sourceID", id)
		}
		return nil
	})

	if err := g.Wait(); err != nil {
		return fmt.Errorf("server error: %w", err)
	}

	slog.Info("statbuff stopped", "stats", sheet.Values())
	return nil
}

// applyList returns source ids from STATBUFF_APPLY (comma-separated).
func applyList() []string {
	var ids []string
	for id := range strings.SplitSeq(os.Getenv("STATBUFF_APPLY"), ",") {
		if id = strings.TrimSpace(id); id != "" {
			ids = append(ids, id)
		}
	}
	return ids
}

// statusReporter logs stat values every cfg.StatusInterval of game time.
func statusReporter(cfg config.Server, sheet *catalog.Sheet, coord *buff.Coordinator) func(dt float64) {
	every := timer.NewCountdown(cfg.StatusInterval.Seconds())
	if cfg.StatusInterval > 0 {
		every.Start()
	}

	return func(dt float64) {
		if !every.IsRunning() {
			return
		}
		every.Tick(dt)
		if !every.IsFinished() {
			return
		}
		every.Start()

		slog.Info("status",
			"stats", sheet.Values(),
			"active_buffs", coord.ActiveCount())
	}
}

// parseLogLevel converts string log level to slog.Level.
// Defaults to Info if invalid or empty.
func parseLogLevel(level string) slog.Level {
	switch level {
	case "debug":
		return slog.LevelDebug
	case "info":
		return slog.LevelInfo
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
