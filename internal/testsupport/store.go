package testsupport

import (
	"context"
	"testing"
	"time"

	"lottrace/internal/config"
	"lottrace/internal/lot"
	"lottrace/internal/store"
)

// MustOpenStore opens a store.Store for tests and registers cleanup.
func MustOpenStore(t testing.TB, cfg *config.Config) *store.Store {
	t.Helper()

	st, err := store.Open(cfg)
	if err != nil {
		t.Fatalf("store.Open: %v", err)
	}
	t.Cleanup(func() {
		st.Close()
	})
	return st
}

// NewLot inserts a production lot for tests using the provided store.
func NewLot(t testing.TB, st *store.Store, production *lot.ProductionLot) *lot.ProductionLot {
	t.Helper()

	if production.Status == "" {
		production.Status = lot.StatusInProgress
	}
	if production.StartedAt.IsZero() {
		production.StartedAt = time.Now().UTC()
	}
	if err := st.CreateLot(context.Background(), production, nil); err != nil {
		t.Fatalf("store.CreateLot: %v", err)
	}
	return production
}
