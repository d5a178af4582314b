package db

import (
	"context"
	"testing"

	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
)

// setupTestDB создаёт PostgreSQL testcontainer, применяет миграции и возвращает *DB.
// Использует модуль postgres с BasicWaitStrategies (log occurrence(2) + port check).
// Под -short тест пропускается. Cleanup выполняется автоматически.
func setupTestDB(tb testing.TB) *DB {
	tb.Helper()

	if testing.Short() {
		tb.Skip("skipping postgres-backed test in short mode")
	}

	ctx := context.Background()

	container, err := postgres.Run(ctx,
		"postgres:16-alpine",
		postgres.WithDatabase("testdb"),
		postgres.WithUsername("test"),
		postgres.WithPassword("test"),
		postgres.BasicWaitStrategies(),
	)
	if err != nil {
		tb.Fatalf("starting postgres container: %v", err)
	}

	tb.Cleanup(func() {
		if err := testcontainers.TerminateContainer(container); err != nil {
			tb.Logf("terminating postgres container: %v", err)
		}
	})

	dsn, err := container.ConnectionString(ctx, "sslmode=disable")
	if err != nil {
		tb.Fatalf("getting connection string: %v", err)
	}

	database, err := New(ctx, dsn)
	if err != nil {
		tb.Fatalf("connecting to test db: %v", err)
	}
	tb.Cleanup(database.Close)

	if err := database.Migrate(ctx); err != nil {
		tb.Fatalf("running migrations: %v", err)
	}

	return database
}

// truncateBuffs очищает таблицу для изоляции между тестами.
func truncateBuffs(tb testing.TB, d *DB) {
	tb.Helper()
	if _, err := d.Pool().Exec(context.Background(), "TRUNCATE stat_buffs"); err != nil {
		tb.Fatalf("truncating stat_buffs: %v", err)
	}
}
