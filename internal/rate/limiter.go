package rate

import (
	"context"
	"time"
)

// Limiter enforces fixed-window call budgets keyed by arbitrary strings.
type Limiter struct {
	store Store
}

// NewLimiter wraps store.
func NewLimiter(store Store) *Limiter {
	return &Limiter{store: store}
}

// RegisterCall increments the counter for key and reports whether the count
// is still within limit. The increment happens even on the call that exceeds
// the limit, so callers that check-then-act must not register again.
//
// With softFail set, a store outage is treated as allowed: availability is
// favored over strict limiting where an outage must not lock everyone out.
func (l *Limiter) RegisterCall(ctx context.Context, key string, limit int, window time.Duration, softFail bool) (bool, error) {
	count, err := l.store.Incr(ctx, key, window)
	if err != nil {
		if softFail {
			return true, nil
		}
		return false, err
	}

	return count <= int64(limit), nil
}

// HasReachedLimit reports whether the budget for key is exhausted without
// consuming a call. The window is implicit in the stored key's lifetime.
func (l *Limiter) HasReachedLimit(ctx context.Context, key string, limit int) (bool, error) {
	count, err := l.store.Get(ctx, key)
	if err != nil {
		return false, err
	}
	return count >= int64(limit), nil
}
