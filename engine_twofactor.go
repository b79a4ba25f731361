package gatehouse

import (
	"context"
	"errors"
	"fmt"
	"time"
)

// VerifySecondFactor completes a sign-in that answered with a
// twofactorauth-scope token. Exactly one of a TOTP code or a recovery code
// must be supplied.
//
// Failures consume the per-subject abuse budget exactly once each, through
// failSecondFactor; malformed input counts the same as a wrong code. When
// the budget is already exhausted the flow short-circuits before touching
// any verification logic.
func (e *Engine) VerifySecondFactor(ctx context.Context, req VerifySecondFactorRequest) (*VerifySecondFactorResult, error) {
	if e == nil || e.directory == nil || e.tokens == nil || e.totp == nil {
		return nil, ErrEngineNotReady
	}
	if req.SubjectID == "" {
		return nil, ErrNotFound
	}

	reached, err := e.limiter.HasReachedLimit(
		ctx,
		secondFactorKey(req.SubjectID),
		e.config.RateLimit.SecondFactorLimit,
	)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrTransient, err)
	}
	if reached {
		e.metricInc(MetricSecondFactorRateLimited)
		e.emitAudit(ctx, auditEventSecondFactorLimited, false, req.SubjectID, req.SessionID, ErrRateLimited, nil)
		return nil, ErrRateLimited
	}

	identity, err := e.directory.FindByID(ctx, req.SubjectID)
	switch {
	case err == nil:
	case errors.Is(err, ErrNotFound):
		// A generic outcome, not an auth failure: it neither consumes the
		// budget nor reveals through a distinct code whether the id existed.
		return nil, ErrNotFound
	default:
		return nil, fmt.Errorf("%w: %v", ErrTransient, err)
	}

	if req.Code == "" && req.RecoveryCode == nil {
		return e.failSecondFactor(ctx, req, ErrBadRequest)
	}

	if req.Code != "" {
		if !e.totp.VerifyCode(identity.TwoFactorSecret, req.Code, time.Now()) {
			return e.failSecondFactor(ctx, req, ErrUnauthorized)
		}
	} else {
		candidate, ok := req.RecoveryCode.(string)
		if !ok {
			return e.failSecondFactor(ctx, req, ErrValidationFailed)
		}
		if !verifyRecoveryCode(identity.RecoveryCodes, candidate) {
			return e.failSecondFactor(ctx, req, ErrUnauthorized)
		}

		// A consumed recovery code invalidates the whole recovery set and
		// the TOTP secret, forcing re-enrollment. Reporting success without
		// the durable update would leave the code reusable, so a failed
		// update aborts the flow.
		update := SecurityUpdate{ClearTwoFactorSecret: true, ClearRecoveryCodes: true}
		if err := e.directory.Update(ctx, identity.ID, update); err != nil {
			if errors.Is(err, ErrConflict) {
				return nil, fmt.Errorf("%w: %v", ErrConflict, err)
			}
			return nil, fmt.Errorf("%w: %v", ErrTransient, err)
		}
		e.metricInc(MetricRecoveryCodesCleared)
		e.emitAudit(ctx, auditEventRecoveryCodesConsumed, true, identity.ID, req.SessionID, nil, nil)
	}

	tok, err := e.tokens.IssueSession(identity.ID, req.SessionID)
	if err != nil {
		return nil, err
	}

	e.metricInc(MetricSecondFactorSuccess)
	e.emitAudit(ctx, auditEventSecondFactorSuccess, true, identity.ID, req.SessionID, nil, nil)
	return &VerifySecondFactorResult{Token: tok}, nil
}

// failSecondFactor is the single place a verification failure consumes the
// abuse budget, so no failure path can double-count.
func (e *Engine) failSecondFactor(ctx context.Context, req VerifySecondFactorRequest, cause error) (*VerifySecondFactorResult, error) {
	allowed, err := e.limiter.RegisterCall(
		ctx,
		secondFactorKey(req.SubjectID),
		e.config.RateLimit.SecondFactorLimit,
		e.config.RateLimit.Window,
		false,
	)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrTransient, err)
	}
	if !allowed {
		e.metricInc(MetricSecondFactorRateLimited)
		e.emitAudit(ctx, auditEventSecondFactorLimited, false, req.SubjectID, req.SessionID, ErrRateLimited, nil)
		return nil, ErrRateLimited
	}

	e.metricInc(MetricSecondFactorFailure)
	e.emitAudit(ctx, auditEventSecondFactorFailure, false, req.SubjectID, req.SessionID, cause, nil)
	return nil, cause
}
