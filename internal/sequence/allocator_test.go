package sequence

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"
)

type memoryCounterStore struct {
	mu       sync.Mutex
	counters map[string]int64
}

func newMemoryCounterStore() *memoryCounterStore {
	return &memoryCounterStore{counters: make(map[string]int64)}
}

func (m *memoryCounterStore) NextValue(_ context.Context, key string) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.counters[key]++
	return m.counters[key], nil
}

func (m *memoryCounterStore) CounterValue(_ context.Context, key string) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.counters[key], nil
}

func (m *memoryCounterStore) ResetCounter(_ context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.counters, key)
	return nil
}

func (m *memoryCounterStore) ResetAllCounters(_ context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.counters = make(map[string]int64)
	return nil
}

func (m *memoryCounterStore) ListCounters(_ context.Context) (map[string]int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make(map[string]int64, len(m.counters))
	for key, value := range m.counters {
		out[key] = value
	}
	return out, nil
}

func TestAllocatorNextIsMonotonicPerKey(t *testing.T) {
	allocator := New(newMemoryCounterStore())
	ctx := context.Background()

	for want := int64(1); want <= 5; want++ {
		got, err := allocator.Next(ctx, "CA:COMPLETION:241224")
		if err != nil {
			t.Fatalf("Next: %v", err)
		}
		if got != want {
			t.Fatalf("expected %d, got %d", want, got)
		}
	}

	other, err := allocator.Next(ctx, "CA:COMPLETION:241225")
	if err != nil {
		t.Fatalf("Next: %v", err)
	}
	if other != 1 {
		t.Fatalf("distinct keys must count independently, got %d", other)
	}
}

func TestAllocatorRejectsEmptyKey(t *testing.T) {
	allocator := New(newMemoryCounterStore())
	if _, err := allocator.Next(context.Background(), "  "); err == nil {
		t.Fatal("expected error for empty key")
	}
}

func TestAllocatorCurrentAndReset(t *testing.T) {
	allocator := New(newMemoryCounterStore())
	ctx := context.Background()

	if _, err := allocator.Next(ctx, "K"); err != nil {
		t.Fatalf("Next: %v", err)
	}
	current, err := allocator.Current(ctx, "K")
	if err != nil {
		t.Fatalf("Current: %v", err)
	}
	if current != 1 {
		t.Fatalf("expected 1, got %d", current)
	}

	if err := allocator.Reset(ctx, "K"); err != nil {
		t.Fatalf("Reset: %v", err)
	}
	value, err := allocator.Next(ctx, "K")
	if err != nil {
		t.Fatalf("Next after reset: %v", err)
	}
	if value != 1 {
		t.Fatalf("reset counter must restart at 1, got %d", value)
	}
}

func TestKeyNormalizesParts(t *testing.T) {
	if got := Key(" ca ", "completion", "241224"); got != "CA:COMPLETION:241224" {
		t.Fatalf("unexpected key %q", got)
	}
}

func TestDateKey(t *testing.T) {
	day := time.Date(2024, time.December, 24, 15, 4, 5, 0, time.UTC)
	if got := DateKey(day); got != "241224" {
		t.Fatalf("unexpected date key %q", got)
	}
}

func TestFormat(t *testing.T) {
	tests := []struct {
		value   int64
		width   int
		want    string
		wantErr bool
	}{
		{value: 1, width: 3, want: "001"},
		{value: 999, width: 3, want: "999"},
		{value: 1000, width: 3, wantErr: true},
		{value: 1, width: 4, want: "0001"},
		{value: 9999, width: 4, want: "9999"},
		{value: 10000, width: 4, wantErr: true},
		{value: 0, width: 3, wantErr: true},
		{value: 5, width: 5, wantErr: true},
	}
	for _, tc := range tests {
		got, err := Format(tc.value, tc.width)
		if tc.wantErr {
			if !errors.Is(err, ErrRange) {
				t.Fatalf("Format(%d, %d): expected ErrRange, got %v", tc.value, tc.width, err)
			}
			continue
		}
		if err != nil {
			t.Fatalf("Format(%d, %d): %v", tc.value, tc.width, err)
		}
		if got != tc.want {
			t.Fatalf("Format(%d, %d) = %q, want %q", tc.value, tc.width, got, tc.want)
		}
	}
}
