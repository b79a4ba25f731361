package gatehouse

import (
	"context"
	"errors"
	"fmt"
	"log"

	"github.com/gatehouse-auth/gatehouse/token"
	"github.com/google/uuid"
)

// SignIn runs the password, passwordless-link, and password-reset entry
// point. The three are deliberately one boolean-gated flow rather than
// separate entry points so the password challenge applies only to existing
// identities, before any link handling.
//
// The per-origin budget soft-fails on a limiter-store outage: an outage must
// not lock out all sign-ins.
func (e *Engine) SignIn(ctx context.Context, req SignInRequest) (*SignInResult, error) {
	if e == nil || e.directory == nil || e.notifier == nil || e.links == nil {
		return nil, ErrEngineNotReady
	}

	normalized, ok := normalizeEmail(req.Email)
	if !ok {
		e.metricInc(MetricSignInFailure)
		e.emitAudit(ctx, auditEventSignInFailure, false, "", "", ErrValidationFailed, func() map[string]string {
			return map[string]string{"reason": "invalid_email"}
		})
		return nil, ErrValidationFailed
	}

	origin := clientOriginFromContext(ctx)
	allowed, _ := e.limiter.RegisterCall(
		ctx,
		signInKey(origin),
		e.config.RateLimit.SignInLimit,
		e.config.RateLimit.Window,
		true,
	)
	if !allowed {
		e.metricInc(MetricSignInRateLimited)
		e.emitAudit(ctx, auditEventSignInRateLimited, false, "", "", ErrRateLimited, func() map[string]string {
			return map[string]string{"email": normalized}
		})
		return nil, ErrRateLimited
	}

	created := false
	identity, err := e.directory.FindByEmail(ctx, normalized)
	switch {
	case err == nil:
	case errors.Is(err, ErrNotFound):
		if !req.CreateIfMissing {
			e.metricInc(MetricSignInFailure)
			e.emitAudit(ctx, auditEventSignInFailure, false, "", "", ErrEmailDoesNotExist, func() map[string]string {
				return map[string]string{"email": normalized}
			})
			return nil, ErrEmailDoesNotExist
		}
		identity, err = e.directory.Create(ctx, Profile{Email: normalized})
		if err != nil {
			if errors.Is(err, ErrConflict) {
				return nil, fmt.Errorf("%w: %v", ErrConflict, err)
			}
			return nil, fmt.Errorf("%w: %v", ErrTransient, err)
		}
		created = true
		e.metricInc(MetricIdentityCreated)
		e.emitAudit(ctx, auditEventSignInCreated, true, identity.ID, "", nil, nil)
	default:
		return nil, fmt.Errorf("%w: %v", ErrTransient, err)
	}

	// Password challenge applies only to identities that have a password
	// set, and only when the caller is not asking for a link.
	if identity.PasswordHash != "" && !req.PasswordlessLink && !req.PasswordReset {
		if req.Password == "" {
			e.emitAudit(ctx, auditEventSignInFailure, false, identity.ID, "", ErrPasswordRequired, nil)
			return nil, ErrPasswordRequired
		}
		if !e.passwords.Verify(req.Password, identity.PasswordHash) {
			e.metricInc(MetricSignInFailure)
			e.emitAudit(ctx, auditEventSignInFailure, false, identity.ID, "", ErrInvalidCredentials, nil)
			return nil, ErrInvalidCredentials
		}
		req.Password = ""

		sessionID := uuid.NewString()
		if identity.TwoFactorEnabled() {
			tok, err := e.tokens.IssueSecondFactor(identity.ID, sessionID)
			if err != nil {
				return nil, err
			}
			e.metricInc(MetricSecondFactorRequired)
			e.emitAudit(ctx, auditEventSecondFactorRequired, true, identity.ID, sessionID, nil, nil)
			return &SignInResult{
				Status: SignInSecondFactorRequired,
				Token:  tok,
				Scope:  token.ScopeSecondFactor,
			}, nil
		}

		tok, err := e.tokens.IssueSession(identity.ID, sessionID)
		if err != nil {
			return nil, err
		}
		e.metricInc(MetricSignInSuccess)
		e.emitAudit(ctx, auditEventSignInSuccess, true, identity.ID, sessionID, nil, nil)
		return &SignInResult{
			Status: SignInSession,
			Token:  tok,
			Scope:  token.ScopeSession,
		}, nil
	}

	if req.PasswordReset {
		e.dispatchResetLink(ctx, identity)
		return &SignInResult{Status: SignInLinkSent, Created: created}, nil
	}

	// Passwordless sign-in: existing identity without a password, an
	// explicit link request, or a freshly created identity.
	e.dispatchLoginLink(ctx, identity, req.RedirectPath)
	return &SignInResult{Status: SignInLinkSent, Created: created}, nil
}

// dispatchResetLink builds and sends a reset link. The flow has already
// committed to a generic success answer, so build and delivery failures are
// logged and audited but never surfaced.
func (e *Engine) dispatchResetLink(ctx context.Context, identity *Identity) {
	link, err := e.links.BuildResetLink(identity, e.config.Site.SiteURL)
	if err != nil {
		log.Print("gatehouse: reset link build failed")
		e.emitAudit(ctx, auditEventLinkDispatched, false, identity.ID, "", err, func() map[string]string {
			return map[string]string{"kind": "password-reset", "reason": "build_failed"}
		})
		return
	}

	if err := e.notifier.Send(ctx, identity.Email, PasswordResetEvent{URL: link}); err != nil {
		log.Print("gatehouse: reset link delivery failed")
		e.emitAudit(ctx, auditEventLinkDispatched, false, identity.ID, "", err, func() map[string]string {
			return map[string]string{"kind": "password-reset", "reason": "delivery_failed"}
		})
		return
	}

	e.metricInc(MetricLinkDispatched)
	e.emitAudit(ctx, auditEventLinkDispatched, true, identity.ID, "", nil, func() map[string]string {
		return map[string]string{"kind": "password-reset"}
	})
}

func (e *Engine) dispatchLoginLink(ctx context.Context, identity *Identity, redirectPath string) {
	if redirectPath == "" {
		redirectPath = e.config.Site.DefaultRedirectPath
	}

	link, err := e.links.BuildLoginLink(identity, redirectPath, e.config.Site.SiteURL)
	if err != nil {
		log.Print("gatehouse: login link build failed")
		e.emitAudit(ctx, auditEventLinkDispatched, false, identity.ID, "", err, func() map[string]string {
			return map[string]string{"kind": "login-link", "reason": "build_failed"}
		})
		return
	}

	if err := e.notifier.Send(ctx, identity.Email, LoginLinkEvent{URL: link, RedirectPath: redirectPath}); err != nil {
		log.Print("gatehouse: login link delivery failed")
		e.emitAudit(ctx, auditEventLinkDispatched, false, identity.ID, "", err, func() map[string]string {
			return map[string]string{"kind": "login-link", "reason": "delivery_failed"}
		})
		return
	}

	e.metricInc(MetricLinkDispatched)
	e.emitAudit(ctx, auditEventLinkDispatched, true, identity.ID, "", nil, func() map[string]string {
		return map[string]string{"kind": "login-link"}
	})
}
