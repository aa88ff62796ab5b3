package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	_ "modernc.org/sqlite"

	"lottrace/internal/bom"
	"lottrace/internal/config"
	"lottrace/internal/lineage"
	"lottrace/internal/lot"
	"lottrace/internal/sequence"
)

// Store manages lot tracking persistence backed by SQLite.
type Store struct {
	db   *sql.DB
	path string
}

var (
	_ lot.Store             = (*Store)(nil)
	_ lineage.Reader        = (*Store)(nil)
	_ sequence.CounterStore = (*Store)(nil)
	_ bom.Store             = (*Store)(nil)
)

const (
	sqliteBusyCode          = 5
	busyRetryAttempts       = 5
	busyRetryInitialBackoff = 10 * time.Millisecond
	busyRetryMaxBackoff     = 200 * time.Millisecond
)

func ensureContext(ctx context.Context) context.Context {
	if ctx != nil {
		return ctx
	}
	return context.Background()
}

func isSQLiteBusy(err error) bool {
	if err == nil {
		return false
	}
	var coder interface{ Code() int }
	if errors.As(err, &coder) && coder.Code() == sqliteBusyCode {
		return true
	}
	msg := err.Error()
	return strings.Contains(msg, "SQLITE_BUSY") || strings.Contains(msg, "database is locked")
}

func retryOnBusy(ctx context.Context, op func() error) error {
	delay := busyRetryInitialBackoff
	var lastErr error
	for attempt := 0; attempt < busyRetryAttempts; attempt++ {
		lastErr = op()
		if lastErr == nil {
			return nil
		}
		if !isSQLiteBusy(lastErr) || attempt == busyRetryAttempts-1 {
			break
		}
		select {
		case <-time.After(delay):
		case <-ctx.Done():
			return ctx.Err()
		}
		if next := delay * 2; next <= busyRetryMaxBackoff {
			delay = next
		}
	}
	return lastErr
}

func (s *Store) execWithRetry(ctx context.Context, query string, args ...any) (sql.Result, error) {
	ctx = ensureContext(ctx)
	var (
		res     sql.Result
		execErr error
	)
	if err := retryOnBusy(ctx, func() error {
		res, execErr = s.db.ExecContext(ctx, query, args...)
		return execErr
	}); err != nil {
		return nil, err
	}
	return res, nil
}

// withTx runs fn inside a transaction, retrying the whole unit when SQLite
// reports the database busy.
func (s *Store) withTx(ctx context.Context, fn func(tx *sql.Tx) error) error {
	ctx = ensureContext(ctx)
	return retryOnBusy(ctx, func() error {
		tx, err := s.db.BeginTx(ctx, nil)
		if err != nil {
			return fmt.Errorf("begin transaction: %w", err)
		}
		if err := fn(tx); err != nil {
			_ = tx.Rollback()
			return err
		}
		if err := tx.Commit(); err != nil {
			return fmt.Errorf("commit transaction: %w", err)
		}
		return nil
	})
}

// Open initializes or connects to the lot tracking database.
func Open(cfg *config.Config) (*Store, error) {
	if err := cfg.EnsureDirectories(); err != nil {
		return nil, fmt.Errorf("ensure directories: %w", err)
	}

	dbPath := filepath.Join(cfg.Paths.DataDir, "lottrace.db")
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}

	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA foreign_keys = ON",
		"PRAGMA busy_timeout = 5000",
	}
	for _, pragma := range pragmas {
		if _, execErr := db.Exec(pragma); execErr != nil {
			_ = db.Close()
			return nil, fmt.Errorf("apply pragma %q: %w", pragma, execErr)
		}
	}

	store := &Store{db: db, path: dbPath}
	if err := initializeSchema(db); err != nil {
		_ = db.Close()
		return nil, err
	}

	return store, nil
}

// Close closes the underlying database connection.
func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

// Path returns the database file location.
func (s *Store) Path() string {
	return s.path
}

// Health summarizes database diagnostics for operator tooling.
type Health struct {
	Path            string
	SchemaVersion   int
	JournalMode     string
	ForeignKeys     bool
	LotCount        int64
	CarryOverCount  int64
	CounterCount    int64
	IntegrityResult string
}

// CheckHealth probes the connection, pragmas, and row counts.
func (s *Store) CheckHealth(ctx context.Context) (*Health, error) {
	ctx = ensureContext(ctx)
	if err := s.db.PingContext(ctx); err != nil {
		return nil, fmt.Errorf("ping database: %w", err)
	}

	health := &Health{Path: s.path}
	if err := s.db.QueryRowContext(ctx, `SELECT version FROM schema_version WHERE id = 1`).Scan(&health.SchemaVersion); err != nil {
		return nil, fmt.Errorf("read schema version: %w", err)
	}
	if err := s.db.QueryRowContext(ctx, `PRAGMA journal_mode`).Scan(&health.JournalMode); err != nil {
		return nil, fmt.Errorf("read journal mode: %w", err)
	}
	var fk int
	if err := s.db.QueryRowContext(ctx, `PRAGMA foreign_keys`).Scan(&fk); err != nil {
		return nil, fmt.Errorf("read foreign_keys pragma: %w", err)
	}
	health.ForeignKeys = fk != 0
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM production_lots`).Scan(&health.LotCount); err != nil {
		return nil, fmt.Errorf("count lots: %w", err)
	}
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM carry_overs`).Scan(&health.CarryOverCount); err != nil {
		return nil, fmt.Errorf("count carry-overs: %w", err)
	}
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM sequence_counters`).Scan(&health.CounterCount); err != nil {
		return nil, fmt.Errorf("count sequence counters: %w", err)
	}
	if err := s.db.QueryRowContext(ctx, `PRAGMA integrity_check`).Scan(&health.IntegrityResult); err != nil {
		return nil, fmt.Errorf("run integrity check: %w", err)
	}
	return health, nil
}
