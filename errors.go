package gatehouse

import "errors"

var (
	// ErrRateLimited is returned when a flow's abuse budget is exhausted.
	ErrRateLimited = errors.New("rate limited")
	// ErrEmailDoesNotExist is returned by sign-in when the email has no
	// identity and implicit creation was disallowed by the caller.
	ErrEmailDoesNotExist = errors.New("email does not exist")
	// ErrPasswordRequired is a challenge, not a failure: the identity has a
	// password set and the caller must resubmit with one.
	ErrPasswordRequired = errors.New("password required")
	// ErrInvalidCredentials is returned on password mismatch.
	ErrInvalidCredentials = errors.New("invalid credentials")
	// ErrUnauthorized is returned on second-factor or recovery-code mismatch.
	ErrUnauthorized = errors.New("unauthorized")
	// ErrValidationFailed is returned for malformed input shapes, such as a
	// non-string recovery code.
	ErrValidationFailed = errors.New("validation failed")
	// ErrBadRequest is returned when a required alternative input is missing.
	ErrBadRequest = errors.New("must provide a 2FA code or a recovery code")
	// ErrNotFound is returned when a subject id resolves to no identity.
	ErrNotFound = errors.New("not found")
	// ErrConflict is returned when an identity security-state update races.
	ErrConflict = errors.New("identity update conflict")
	// ErrTransient is returned when a collaborator backend is unavailable.
	ErrTransient = errors.New("backend unavailable")
	// ErrTokenInvalid is returned for tokens that fail signature, expiry, or
	// scope checks.
	ErrTokenInvalid = errors.New("invalid token")
	// ErrEngineNotReady is returned when the engine is used before Build
	// wired its required collaborators.
	ErrEngineNotReady = errors.New("engine not initialized")
)
