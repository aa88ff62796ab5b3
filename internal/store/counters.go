package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"
)

// NextValue increments and returns the counter for key. The upsert makes the
// read-increment-write a single atomic statement.
func (s *Store) NextValue(ctx context.Context, key string) (int64, error) {
	ctx = ensureContext(ctx)
	var value int64
	err := retryOnBusy(ctx, func() error {
		return s.db.QueryRowContext(ctx, `
            INSERT INTO sequence_counters (counter_key, counter_value, updated_at)
            VALUES (?, 1, ?)
            ON CONFLICT(counter_key) DO UPDATE SET
                counter_value = counter_value + 1,
                updated_at = excluded.updated_at
            RETURNING counter_value`,
			key, formatTime(time.Now()),
		).Scan(&value)
	})
	if err != nil {
		return 0, fmt.Errorf("advance counter %q: %w", key, err)
	}
	return value, nil
}

// CounterValue returns the current value for key, zero when the counter has
// never been advanced.
func (s *Store) CounterValue(ctx context.Context, key string) (int64, error) {
	ctx = ensureContext(ctx)
	var value int64
	err := s.db.QueryRowContext(ctx, `SELECT counter_value FROM sequence_counters WHERE counter_key = ?`, key).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("read counter %q: %w", key, err)
	}
	return value, nil
}

// ResetCounter removes one counter so the next allocation starts at 1.
func (s *Store) ResetCounter(ctx context.Context, key string) error {
	if _, err := s.execWithRetry(ctx, `DELETE FROM sequence_counters WHERE counter_key = ?`, key); err != nil {
		return fmt.Errorf("reset counter %q: %w", key, err)
	}
	return nil
}

// ResetAllCounters removes every counter.
func (s *Store) ResetAllCounters(ctx context.Context) error {
	if _, err := s.execWithRetry(ctx, `DELETE FROM sequence_counters`); err != nil {
		return fmt.Errorf("reset counters: %w", err)
	}
	return nil
}

// ListCounters returns every counter keyed by name.
func (s *Store) ListCounters(ctx context.Context) (map[string]int64, error) {
	ctx = ensureContext(ctx)
	rows, err := s.db.QueryContext(ctx, `SELECT counter_key, counter_value FROM sequence_counters ORDER BY counter_key`)
	if err != nil {
		return nil, fmt.Errorf("list counters: %w", err)
	}
	defer rows.Close()

	counters := make(map[string]int64)
	for rows.Next() {
		var (
			key   string
			value int64
		)
		if err := rows.Scan(&key, &value); err != nil {
			return nil, fmt.Errorf("scan counter: %w", err)
		}
		counters[key] = value
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate counters: %w", err)
	}
	return counters, nil
}
