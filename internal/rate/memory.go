package rate

import (
	"context"
	"sync"
	"time"
)

type memoryWindow struct {
	count   int64
	expires time.Time
}

// MemoryStore is an embedded [Store] for single-process deployments and
// tests. Counters are volatile; losing them only resets the limit, which the
// limiter's fail-open contract already tolerates.
type MemoryStore struct {
	mu      sync.Mutex
	windows map[string]memoryWindow
	now     func() time.Time
}

// NewMemoryStore returns an empty in-process store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		windows: make(map[string]memoryWindow),
		now:     time.Now,
	}
}

// Incr implements [Store].
func (s *MemoryStore) Incr(_ context.Context, key string, window time.Duration) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	w, ok := s.windows[key]
	if !ok || !now.Before(w.expires) {
		w = memoryWindow{expires: now.Add(window)}
	}
	w.count++
	s.windows[key] = w

	return w.count, nil
}

// Get implements [Store].
func (s *MemoryStore) Get(_ context.Context, key string) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	w, ok := s.windows[key]
	if !ok || !s.now().Before(w.expires) {
		return 0, nil
	}
	return w.count, nil
}
