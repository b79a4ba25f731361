package gatehouse

import (
	"context"

	"github.com/gatehouse-auth/gatehouse/token"
)

// Identity is the subject record owned by the caller's [UserDirectory]. The
// engine reads its security fields and requests updates through
// [UserDirectory.Update]; it never mutates the record directly.
type Identity struct {
	ID    string
	Email string
	Name  string

	// PasswordHash is the argon2id PHC string, empty for passwordless
	// identities.
	PasswordHash string

	// TwoFactorSecret is the raw TOTP shared secret, nil when the identity
	// has not enrolled a second factor.
	TwoFactorSecret []byte

	// RecoveryCodes is the ordered set of one-time recovery codes, nil when
	// not enrolled. Consuming any single code clears the entire set together
	// with TwoFactorSecret, forcing re-enrollment.
	RecoveryCodes []string
}

// TwoFactorEnabled reports whether a second factor is enrolled.
func (i *Identity) TwoFactorEnabled() bool {
	return i != nil && len(i.TwoFactorSecret) > 0
}

// Profile carries the fields needed to create an identity implicitly during
// sign-in.
type Profile struct {
	Email string
	Name  string
}

// SecurityUpdate names the security-state mutations the engine may request.
// The directory must apply the update atomically and durably before
// returning; a failed update aborts the enclosing flow.
type SecurityUpdate struct {
	ClearTwoFactorSecret bool
	ClearRecoveryCodes   bool
}

// UserDirectory is the identity store the caller must implement.
//
// Find methods return [ErrNotFound] (possibly wrapped) when no identity
// matches; any other error is treated as transient. Update must return
// [ErrConflict] (possibly wrapped) when the record changed concurrently.
type UserDirectory interface {
	FindByEmail(ctx context.Context, email string) (*Identity, error)
	FindByID(ctx context.Context, id string) (*Identity, error)
	Create(ctx context.Context, profile Profile) (*Identity, error)
	Update(ctx context.Context, id string, update SecurityUpdate) error
}

// NotificationEvent is the closed set of notifier payloads. Each event kind
// enumerates its required fields statically; there is no free-form payload.
type NotificationEvent interface {
	Kind() string
}

// LoginLinkEvent asks the notifier to deliver a passwordless sign-in link.
type LoginLinkEvent struct {
	URL          string
	RedirectPath string
}

// Kind implements [NotificationEvent].
func (LoginLinkEvent) Kind() string { return "login-link" }

// PasswordResetEvent asks the notifier to deliver a password reset link.
type PasswordResetEvent struct {
	URL string
}

// Kind implements [NotificationEvent].
func (PasswordResetEvent) Kind() string { return "password-reset" }

// Notifier dispatches outbound email. Delivery is fire-and-continue: a
// delivery failure never fails the enclosing link flow, which has already
// committed to a generic success answer.
type Notifier interface {
	Send(ctx context.Context, recipient string, event NotificationEvent) error
}

// LinkBuilder formats sign-in and reset links. Link formatting is owned by
// the caller; the engine only dispatches the result.
type LinkBuilder interface {
	BuildLoginLink(identity *Identity, redirectPath, siteURL string) (string, error)
	BuildResetLink(identity *Identity, siteURL string) (string, error)
}

// ExistsResult answers an email existence check.
type ExistsResult struct {
	Exists bool

	// RateLimited is advisory: the lookup was still answered even though the
	// per-origin budget is exhausted (deliberately fail-open).
	RateLimited bool
}

// SignInRequest drives the sign-in flow. PasswordlessLink and PasswordReset
// turn the flow into a link dispatch with a generic success answer.
type SignInRequest struct {
	Email    string
	Password string

	// CreateIfMissing gates implicit identity creation when the email is
	// unknown. When false, an unknown email fails with ErrEmailDoesNotExist.
	CreateIfMissing bool

	PasswordlessLink bool
	PasswordReset    bool
	RedirectPath     string
}

// SignInStatus distinguishes the three successful sign-in outcomes.
type SignInStatus uint8

const (
	// SignInSession means a session-scope token was issued.
	SignInSession SignInStatus = iota
	// SignInSecondFactorRequired means a twofactorauth-scope token was
	// issued and the caller must complete second-factor verification.
	SignInSecondFactorRequired
	// SignInLinkSent is the generic answer for link flows: it is returned
	// whether or not dispatch was confirmed, so delivery outcomes cannot be
	// used to probe addresses.
	SignInLinkSent
)

// SignInResult is the sign-in success payload.
type SignInResult struct {
	Status  SignInStatus
	Token   string
	Scope   token.Scope
	Created bool
}

// VerifySecondFactorRequest carries exactly one of a TOTP code or a recovery
// code, plus the subject and session extracted from the twofactorauth token
// by the caller.
type VerifySecondFactorRequest struct {
	SubjectID string
	SessionID string

	Code string

	// RecoveryCode arrives loosely typed from the transport layer; the flow
	// answers ErrValidationFailed for non-string values.
	RecoveryCode any
}

// VerifySecondFactorResult carries the session token issued after a
// successful second-factor verification.
type VerifySecondFactorResult struct {
	Token string
}

// RefreshResult is the token-refresh success payload. Scope is
// token.ScopeSecondFactor when the identity has a second factor enrolled,
// forcing re-verification on every refresh.
type RefreshResult struct {
	Token string
	Scope token.Scope
}
