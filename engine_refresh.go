package gatehouse

import (
	"context"
	"errors"
	"fmt"

	"github.com/gatehouse-auth/gatehouse/token"
)

// RefreshToken re-issues a token for an already-authenticated subject,
// preserving sessionID so the refresh chain stays correlated for an
// external session tracker.
//
// When a second factor is enrolled the refresh yields a twofactorauth-scope
// token, forcing re-verification on every refresh. That is the intended
// behavior, not a bug.
func (e *Engine) RefreshToken(ctx context.Context, subjectID, sessionID string) (*RefreshResult, error) {
	if e == nil || e.directory == nil || e.tokens == nil {
		return nil, ErrEngineNotReady
	}

	identity, err := e.directory.FindByID(ctx, subjectID)
	switch {
	case err == nil:
	case errors.Is(err, ErrNotFound):
		e.metricInc(MetricRefreshFailure)
		e.emitAudit(ctx, auditEventRefreshFailure, false, subjectID, sessionID, ErrNotFound, nil)
		return nil, ErrNotFound
	default:
		e.metricInc(MetricRefreshFailure)
		return nil, fmt.Errorf("%w: %v", ErrTransient, err)
	}

	if identity.TwoFactorEnabled() {
		tok, err := e.tokens.IssueSecondFactor(identity.ID, sessionID)
		if err != nil {
			e.metricInc(MetricRefreshFailure)
			return nil, err
		}
		e.metricInc(MetricRefreshSuccess)
		e.emitAudit(ctx, auditEventRefreshSuccess, true, identity.ID, sessionID, nil, func() map[string]string {
			return map[string]string{"scope": string(token.ScopeSecondFactor)}
		})
		return &RefreshResult{Token: tok, Scope: token.ScopeSecondFactor}, nil
	}

	tok, err := e.tokens.IssueSession(identity.ID, sessionID)
	if err != nil {
		e.metricInc(MetricRefreshFailure)
		return nil, err
	}
	e.metricInc(MetricRefreshSuccess)
	e.emitAudit(ctx, auditEventRefreshSuccess, true, identity.ID, sessionID, nil, func() map[string]string {
		return map[string]string{"scope": string(token.ScopeSession)}
	})
	return &RefreshResult{Token: tok, Scope: token.ScopeSession}, nil
}
