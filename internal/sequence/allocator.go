package sequence

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"
)

// ErrRange marks formatting requests that do not fit the target width.
var ErrRange = errors.New("sequence out of range")

// CounterStore is the durable counter contract. NextValue must apply the
// read-increment-write atomically per key.
type CounterStore interface {
	NextValue(ctx context.Context, key string) (int64, error)
	CounterValue(ctx context.Context, key string) (int64, error)
	ResetCounter(ctx context.Context, key string) error
	ResetAllCounters(ctx context.Context) error
	ListCounters(ctx context.Context) (map[string]int64, error)
}

// Allocator issues strictly increasing numbers per caller-defined key.
type Allocator struct {
	store CounterStore
}

// New constructs an allocator over the given counter store.
func New(store CounterStore) *Allocator {
	return &Allocator{store: store}
}

// Next returns the next value for key. Failures are surfaced, never
// swallowed: a silently skipped allocation would look like a lost lot.
func (a *Allocator) Next(ctx context.Context, key string) (int64, error) {
	key = strings.TrimSpace(key)
	if key == "" {
		return 0, errors.New("sequence key is required")
	}
	value, err := a.store.NextValue(ctx, key)
	if err != nil {
		return 0, fmt.Errorf("next sequence for %q: %w", key, err)
	}
	return value, nil
}

// Current returns the last issued value for key without advancing it.
func (a *Allocator) Current(ctx context.Context, key string) (int64, error) {
	return a.store.CounterValue(ctx, key)
}

// Reset zeroes one counter. Administrative use only.
func (a *Allocator) Reset(ctx context.Context, key string) error {
	key = strings.TrimSpace(key)
	if key == "" {
		return errors.New("sequence key is required")
	}
	return a.store.ResetCounter(ctx, key)
}

// ResetAll zeroes every counter. Administrative use only.
func (a *Allocator) ResetAll(ctx context.Context) error {
	return a.store.ResetAllCounters(ctx)
}

// List returns every counter and its current value.
func (a *Allocator) List(ctx context.Context) (map[string]int64, error) {
	return a.store.ListCounters(ctx)
}

// Key joins scope parts into a counter key, e.g. Key("CA", "completion",
// "241224"). Key scoping is caller-defined; the allocator only requires that
// equal scopes produce equal keys.
func Key(parts ...string) string {
	cleaned := make([]string, 0, len(parts))
	for _, part := range parts {
		cleaned = append(cleaned, strings.ToUpper(strings.TrimSpace(part)))
	}
	return strings.Join(cleaned, ":")
}

// DateKey renders the date scope component used in completion keys.
func DateKey(t time.Time) string {
	return t.Format("060102")
}

// Format renders value left-zero-padded to width digits. Formatting is a
// pure step outside the allocator contract; values that do not fit the
// width return ErrRange.
func Format(value int64, width int) (string, error) {
	if width != 3 && width != 4 {
		return "", fmt.Errorf("%w: unsupported width %d", ErrRange, width)
	}
	max := int64(999)
	if width == 4 {
		max = 9999
	}
	if value < 1 || value > max {
		return "", fmt.Errorf("%w: value %d outside 1..%d", ErrRange, value, max)
	}
	return fmt.Sprintf("%0*d", width, value), nil
}
