package rate

import (
	"context"
	"errors"
	"time"
)

// ErrStoreUnavailable wraps backend failures so callers can decide between
// soft-failing open and surfacing a transient error.
var ErrStoreUnavailable = errors.New("rate limit store unavailable")

// Store is the atomic counter backend. Incr must be linearizable across
// concurrent callers for the same key; a lost update under-counts and breaks
// the limit guarantee.
type Store interface {
	// Incr increments the counter for key and returns the post-increment
	// count. The first increment of a fresh window attaches window as the
	// key's lifetime.
	Incr(ctx context.Context, key string, window time.Duration) (int64, error)

	// Get returns the current count, zero for absent or expired keys.
	Get(ctx context.Context, key string) (int64, error)
}
