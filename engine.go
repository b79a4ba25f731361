package gatehouse

import (
	"context"
	"net/mail"
	"strings"
	"time"

	"github.com/gatehouse-auth/gatehouse/internal/rate"
	"github.com/gatehouse-auth/gatehouse/password"
	"github.com/gatehouse-auth/gatehouse/token"
)

// Engine orchestrates the five authentication flows over the injected
// collaborators. Construct through [Builder.Build]; afterwards all methods
// are safe for concurrent use.
type Engine struct {
	config    Config
	limiter   *rate.Limiter
	tokens    *token.Manager
	passwords *password.Argon2
	totp      *totpManager
	directory UserDirectory
	notifier  Notifier
	links     LinkBuilder
	audit     *auditDispatcher
	metrics   *Metrics
}

// Close drains and stops the audit dispatcher.
func (e *Engine) Close() {
	if e == nil {
		return
	}
	if e.audit != nil {
		e.audit.Close()
	}
}

// AuditDropped reports how many audit events were dropped under load.
func (e *Engine) AuditDropped() uint64 {
	if e == nil || e.audit == nil {
		return 0
	}
	return e.audit.Dropped()
}

// MetricsSnapshot copies the engine's counters.
func (e *Engine) MetricsSnapshot() MetricsSnapshot {
	if e == nil {
		return MetricsSnapshot{Counters: map[MetricID]uint64{}}
	}
	return e.metrics.Snapshot()
}

// VerifySessionToken validates tokenStr and requires session scope. Used by
// callers to resolve the subject before [Engine.RefreshToken].
func (e *Engine) VerifySessionToken(tokenStr string) (*token.Claims, error) {
	return e.verifyScoped(tokenStr, token.ScopeSession)
}

// VerifySecondFactorToken validates tokenStr and requires twofactorauth
// scope. Used by callers to resolve the subject before
// [Engine.VerifySecondFactor].
func (e *Engine) VerifySecondFactorToken(tokenStr string) (*token.Claims, error) {
	return e.verifyScoped(tokenStr, token.ScopeSecondFactor)
}

func (e *Engine) verifyScoped(tokenStr string, scope token.Scope) (*token.Claims, error) {
	if e == nil || e.tokens == nil {
		return nil, ErrEngineNotReady
	}
	claims, err := e.tokens.VerifyScope(tokenStr, scope)
	if err != nil {
		return nil, ErrTokenInvalid
	}
	return claims, nil
}

func (e *Engine) metricInc(id MetricID) {
	if e == nil {
		return
	}
	e.metrics.Inc(id)
}

func (e *Engine) emitAudit(
	ctx context.Context,
	eventType string,
	success bool,
	subjectID, sessionID string,
	cause error,
	metadata func() map[string]string,
) {
	if e == nil || e.audit == nil {
		return
	}

	event := AuditEvent{
		Timestamp: time.Now(),
		EventType: eventType,
		SubjectID: subjectID,
		Origin:    clientOriginFromContext(ctx),
		SessionID: sessionID,
		Success:   success,
	}
	if cause != nil {
		event.Error = cause.Error()
	}
	if metadata != nil {
		event.Metadata = metadata()
	}

	e.audit.Emit(ctx, event)
}

// normalizeEmail lower-cases and syntax-checks an address. The second return
// is false for addresses that cannot belong to any identity.
func normalizeEmail(email string) (string, bool) {
	trimmed := strings.TrimSpace(email)
	if trimmed == "" {
		return "", false
	}
	addr, err := mail.ParseAddress(trimmed)
	if err != nil || addr.Address != trimmed {
		return "", false
	}
	return strings.ToLower(trimmed), true
}

func emailSearchKey(origin string) string {
	return "email-search:" + origin
}

func signInKey(origin string) string {
	return "signin-attempt:" + origin
}

func secondFactorKey(subjectID string) string {
	return "second-factor:" + subjectID
}
