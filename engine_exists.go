package gatehouse

import (
	"context"
	"errors"
	"fmt"
	"log"
)

// CheckEmailExists answers whether an identity exists for email. It returns
// presence only, never account details.
//
// The per-origin budget is deliberately fail-open: exhaustion (and a limiter
// store outage) are reported through the advisory RateLimited field while
// the lookup is still answered. Syntactically invalid addresses answer
// "does not exist" without consulting the directory.
func (e *Engine) CheckEmailExists(ctx context.Context, email string) (*ExistsResult, error) {
	if e == nil || e.directory == nil {
		return nil, ErrEngineNotReady
	}

	e.metricInc(MetricExistsCheck)

	normalized, ok := normalizeEmail(email)
	if !ok {
		e.emitAudit(ctx, auditEventExistsCheck, true, "", "", nil, func() map[string]string {
			return map[string]string{"reason": "invalid_format"}
		})
		return &ExistsResult{Exists: false}, nil
	}

	origin := clientOriginFromContext(ctx)
	limited := false
	allowed, err := e.limiter.RegisterCall(
		ctx,
		emailSearchKey(origin),
		e.config.RateLimit.EmailSearchLimit,
		e.config.RateLimit.Window,
		false,
	)
	switch {
	case err != nil:
		// Counter outage must not block the lookup.
		log.Print("gatehouse: email-search limiter unavailable")
	case !allowed:
		limited = true
		e.metricInc(MetricExistsRateLimited)
		e.emitAudit(ctx, auditEventExistsRateLimited, false, "", "", ErrRateLimited, nil)
	}

	identity, err := e.directory.FindByEmail(ctx, normalized)
	if err != nil && !errors.Is(err, ErrNotFound) {
		return nil, fmt.Errorf("%w: %v", ErrTransient, err)
	}

	exists := err == nil && identity != nil
	e.emitAudit(ctx, auditEventExistsCheck, true, "", "", nil, func() map[string]string {
		return map[string]string{"exists": fmt.Sprintf("%t", exists)}
	})

	return &ExistsResult{Exists: exists, RateLimited: limited}, nil
}
