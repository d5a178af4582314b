package db

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/udisondev/statbuff/internal/buff"
)

// BuffRepository хранит остаток времени баффов в PostgreSQL.
// Реализует buff.Store: одна строка на source_id, last-write-wins.
type BuffRepository struct {
	db *pgxpool.Pool
}

var _ buff.Store = (*BuffRepository)(nil)

// NewBuffRepository создаёт новый BuffRepository.
func NewBuffRepository(db *pgxpool.Pool) *BuffRepository {
	return &BuffRepository{db: db}
}

// Buffs returns a BuffRepository bound to the DB pool.
func (d *DB) Buffs() *BuffRepository {
	return NewBuffRepository(d.pool)
}

// Get загружает одну запись. ok=false если записи нет.
func (r *BuffRepository) Get(ctx context.Context, sourceID string) (buff.Entry, bool, error) {
	e := buff.Entry{SourceID: sourceID}
	err := r.db.QueryRow(ctx,
		`SELECT remaining_time FROM stat_buffs WHERE source_id = $1`, sourceID,
	).Scan(&e.RemainingTime)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return buff.Entry{}, false, nil
		}
		return buff.Entry{}, false, fmt.Errorf("querying buff %q: %w", sourceID, err)
	}
	return e, true, nil
}

// Set сохраняет остаток времени (UPSERT).
func (r *BuffRepository) Set(ctx context.Context, sourceID string, remaining float64) error {
	query := `
		INSERT INTO stat_buffs (source_id, remaining_time, updated_at)
		VALUES ($1, $2, now())
		ON CONFLICT (source_id)
		DO UPDATE SET remaining_time = $2, updated_at = now()
	`

	if _, err := r.db.Exec(ctx, query, sourceID, remaining); err != nil {
		return fmt.Errorf("upserting buff %q: %w", sourceID, err)
	}
	return nil
}

// Remove удаляет запись. Отсутствие записи не ошибка.
func (r *BuffRepository) Remove(ctx context.Context, sourceID string) error {
	if _, err := r.db.Exec(ctx, `DELETE FROM stat_buffs WHERE source_id = $1`, sourceID); err != nil {
		return fmt.Errorf("deleting buff %q: %w", sourceID, err)
	}
	return nil
}

// All загружает все записи, отсортированные по source_id.
func (r *BuffRepository) All(ctx context.Context) ([]buff.Entry, error) {
	rows, err := r.db.Query(ctx, `
		SELECT source_id, remaining_time
		FROM stat_buffs
		ORDER BY source_id
	`)
	if err != nil {
		return nil, fmt.Errorf("querying buffs: %w", err)
	}
	defer rows.Close()

	entries := make([]buff.Entry, 0, 16)
	for rows.Next() {
		var e buff.Entry
		if err := rows.Scan(&e.SourceID, &e.RemainingTime); err != nil {
			return nil, fmt.Errorf("scanning buff row: %w", err)
		}
		entries = append(entries, e)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating buff rows: %w", err)
	}

	return entries, nil
}
