package watcher

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"
)

// --- Mocks ---

type mockIndexer struct {
	mu      sync.Mutex
	calls   int
	results map[string]bool
	err     error
}

func (m *mockIndexer) AutoIndexNew(_ context.Context) (map[string]bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls++
	return m.results, m.err
}

func (m *mockIndexer) callCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls
}

// --- Tests ---

func TestRelevant(t *testing.T) {
	w := New(t.TempDir(), &mockIndexer{}, zap.NewNop())

	tests := []struct {
		name  string
		event fsnotify.Event
		want  bool
	}{
		{"create", fsnotify.Event{Name: "docs/policy.txt", Op: fsnotify.Create}, true},
		{"write", fsnotify.Event{Name: "docs/policy.txt", Op: fsnotify.Write}, true},
		{"rename", fsnotify.Event{Name: "docs/policy.txt", Op: fsnotify.Rename}, true},
		{"chmod ignored", fsnotify.Event{Name: "docs/policy.txt", Op: fsnotify.Chmod}, false},
		{"remove ignored", fsnotify.Event{Name: "docs/policy.txt", Op: fsnotify.Remove}, false},
		{"hidden file", fsnotify.Event{Name: "docs/.policy.txt.swp", Op: fsnotify.Write}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := w.relevant(tt.event); got != tt.want {
				t.Errorf("relevant(%v) = %v, want %v", tt.event, got, tt.want)
			}
		})
	}
}

func TestSweep(t *testing.T) {
	indexer := &mockIndexer{results: map[string]bool{"a.txt": true, "b.txt": false}}
	w := New(t.TempDir(), indexer, zap.NewNop())

	w.sweep(context.Background())
	if indexer.callCount() != 1 {
		t.Errorf("calls = %d, want 1", indexer.callCount())
	}
}

func TestSweep_IndexerError(t *testing.T) {
	indexer := &mockIndexer{err: errors.New("redis down")}
	w := New(t.TempDir(), indexer, zap.NewNop())

	// Must not panic, only log.
	w.sweep(context.Background())
}

func TestRun_PeriodicSweep(t *testing.T) {
	indexer := &mockIndexer{results: map[string]bool{}}
	w := New(t.TempDir(), indexer, zap.NewNop(),
		WithInterval(10*time.Millisecond),
		WithDebounce(time.Hour))

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- w.Run(ctx) }()

	deadline := time.After(2 * time.Second)
	for indexer.callCount() < 2 {
		select {
		case <-deadline:
			t.Fatal("periodic sweep never fired")
		case <-time.After(5 * time.Millisecond):
		}
	}
	cancel()

	if err := <-done; !errors.Is(err, context.Canceled) {
		t.Errorf("Run returned %v, want context.Canceled", err)
	}
}
