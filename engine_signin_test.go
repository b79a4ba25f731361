package gatehouse

import (
	"context"
	"errors"
	"testing"

	"github.com/gatehouse-auth/gatehouse/token"
)

func TestSignInUnknownEmailWithoutCreation(t *testing.T) {
	env := newTestEnv()
	engine := env.build(t)

	_, err := engine.SignIn(context.Background(), SignInRequest{Email: "nobody@example.com"})
	if !errors.Is(err, ErrEmailDoesNotExist) {
		t.Fatalf("expected ErrEmailDoesNotExist, got %v", err)
	}
	if env.directory.count() != 0 {
		t.Fatal("no identity may be created when creation is disallowed")
	}
}

func TestSignInCreatesMissingIdentityOnce(t *testing.T) {
	env := newTestEnv()
	engine := env.build(t)

	result, err := engine.SignIn(context.Background(), SignInRequest{
		Email:           "fresh@example.com",
		CreateIfMissing: true,
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.Status != SignInLinkSent {
		t.Fatalf("expected link-sent status, got %v", result.Status)
	}
	if !result.Created {
		t.Fatal("expected Created flag for implicit creation")
	}
	if env.directory.count() != 1 {
		t.Fatalf("expected exactly one identity, got %d", env.directory.count())
	}

	sends := env.notifier.sent()
	if len(sends) != 1 {
		t.Fatalf("expected one login link dispatch, got %d", len(sends))
	}
	if _, ok := sends[0].event.(LoginLinkEvent); !ok {
		t.Fatalf("expected LoginLinkEvent, got %T", sends[0].event)
	}
}

func TestSignInPasswordChallenge(t *testing.T) {
	env := newTestEnv()
	env.directory.add(&Identity{
		Email:        "alice@example.com",
		PasswordHash: testHash(t, "hunter2hunter2"),
	})
	engine := env.build(t)

	_, err := engine.SignIn(context.Background(), SignInRequest{Email: "alice@example.com"})
	if !errors.Is(err, ErrPasswordRequired) {
		t.Fatalf("expected ErrPasswordRequired challenge, got %v", err)
	}
}

func TestSignInWrongPassword(t *testing.T) {
	env := newTestEnv()
	env.directory.add(&Identity{
		Email:        "alice@example.com",
		PasswordHash: testHash(t, "hunter2hunter2"),
	})
	engine := env.build(t)

	_, err := engine.SignIn(context.Background(), SignInRequest{
		Email:    "alice@example.com",
		Password: "wrong-password",
	})
	if !errors.Is(err, ErrInvalidCredentials) {
		t.Fatalf("expected ErrInvalidCredentials, got %v", err)
	}
}

func TestSignInIssuesSessionToken(t *testing.T) {
	env := newTestEnv()
	identity := env.directory.add(&Identity{
		Email:        "alice@example.com",
		PasswordHash: testHash(t, "hunter2hunter2"),
	})
	engine := env.build(t)

	result, err := engine.SignIn(context.Background(), SignInRequest{
		Email:    "alice@example.com",
		Password: "hunter2hunter2",
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.Status != SignInSession || result.Scope != token.ScopeSession {
		t.Fatalf("expected session outcome, got status=%v scope=%q", result.Status, result.Scope)
	}

	claims, err := engine.VerifySessionToken(result.Token)
	if err != nil {
		t.Fatalf("issued token must verify: %v", err)
	}
	if claims.SubjectID() != identity.ID {
		t.Fatalf("subject = %q, want %q", claims.SubjectID(), identity.ID)
	}
	if claims.SessionID == "" {
		t.Fatal("expected a session id on the issued token")
	}
}

func TestSignInSecondFactorRequired(t *testing.T) {
	env := newTestEnv()
	identity := env.directory.add(&Identity{
		Email:           "alice@example.com",
		PasswordHash:    testHash(t, "hunter2hunter2"),
		TwoFactorSecret: testTOTPSecret,
	})
	engine := env.build(t)

	result, err := engine.SignIn(context.Background(), SignInRequest{
		Email:    "alice@example.com",
		Password: "hunter2hunter2",
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.Status != SignInSecondFactorRequired || result.Scope != token.ScopeSecondFactor {
		t.Fatalf("expected second-factor outcome, got status=%v scope=%q", result.Status, result.Scope)
	}

	claims, err := engine.VerifySecondFactorToken(result.Token)
	if err != nil {
		t.Fatalf("second-factor token must verify under its own scope: %v", err)
	}
	if claims.SubjectID() != identity.ID {
		t.Fatalf("subject = %q, want %q", claims.SubjectID(), identity.ID)
	}

	// The interim token must never pass as a session token.
	if _, err := engine.VerifySessionToken(result.Token); !errors.Is(err, ErrTokenInvalid) {
		t.Fatalf("expected ErrTokenInvalid for cross-scope use, got %v", err)
	}
}

func TestSignInPasswordlessLinkSkipsChallenge(t *testing.T) {
	env := newTestEnv()
	env.directory.add(&Identity{
		Email:        "alice@example.com",
		PasswordHash: testHash(t, "hunter2hunter2"),
	})
	engine := env.build(t)

	result, err := engine.SignIn(context.Background(), SignInRequest{
		Email:            "alice@example.com",
		PasswordlessLink: true,
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.Status != SignInLinkSent {
		t.Fatalf("expected link-sent status, got %v", result.Status)
	}

	sends := env.notifier.sent()
	if len(sends) != 1 {
		t.Fatalf("expected one dispatch, got %d", len(sends))
	}
	if sends[0].recipient != "alice@example.com" {
		t.Fatalf("recipient = %q", sends[0].recipient)
	}
}

func TestSignInPasswordResetDispatch(t *testing.T) {
	env := newTestEnv()
	env.directory.add(&Identity{
		Email:        "alice@example.com",
		PasswordHash: testHash(t, "hunter2hunter2"),
	})
	engine := env.build(t)

	result, err := engine.SignIn(context.Background(), SignInRequest{
		Email:         "alice@example.com",
		PasswordReset: true,
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.Status != SignInLinkSent {
		t.Fatalf("expected link-sent status, got %v", result.Status)
	}

	sends := env.notifier.sent()
	if len(sends) != 1 {
		t.Fatalf("expected one dispatch, got %d", len(sends))
	}
	if _, ok := sends[0].event.(PasswordResetEvent); !ok {
		t.Fatalf("expected PasswordResetEvent, got %T", sends[0].event)
	}
}

func TestSignInLinkDeliveryFailureStaysGeneric(t *testing.T) {
	env := newTestEnv()
	env.directory.add(&Identity{Email: "alice@example.com"})
	env.notifier.sendErr = errors.New("smtp unavailable")
	engine := env.build(t)

	result, err := engine.SignIn(context.Background(), SignInRequest{
		Email:         "alice@example.com",
		PasswordReset: true,
	})
	if err != nil {
		t.Fatalf("delivery failure must not surface, got %v", err)
	}
	if result.Status != SignInLinkSent {
		t.Fatalf("expected generic link-sent answer, got %v", result.Status)
	}
}

func TestSignInLinkBuildFailureStaysGeneric(t *testing.T) {
	env := newTestEnv()
	env.directory.add(&Identity{Email: "alice@example.com"})
	env.links.buildErr = errors.New("bad template")
	engine := env.build(t)

	result, err := engine.SignIn(context.Background(), SignInRequest{
		Email:            "alice@example.com",
		PasswordlessLink: true,
	})
	if err != nil {
		t.Fatalf("build failure must not surface, got %v", err)
	}
	if result.Status != SignInLinkSent {
		t.Fatalf("expected generic link-sent answer, got %v", result.Status)
	}
	if len(env.notifier.sent()) != 0 {
		t.Fatal("nothing may be dispatched when link building fails")
	}
}

func TestSignInRedirectPathDefaulting(t *testing.T) {
	env := newTestEnv()
	env.directory.add(&Identity{Email: "alice@example.com"})
	engine := env.build(t)

	if _, err := engine.SignIn(context.Background(), SignInRequest{
		Email:            "alice@example.com",
		PasswordlessLink: true,
	}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, err := engine.SignIn(context.Background(), SignInRequest{
		Email:            "alice@example.com",
		PasswordlessLink: true,
		RedirectPath:     "/dashboard",
	}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	sends := env.notifier.sent()
	if len(sends) != 2 {
		t.Fatalf("expected two dispatches, got %d", len(sends))
	}
	first := sends[0].event.(LoginLinkEvent)
	if first.RedirectPath != "/" {
		t.Fatalf("default redirect = %q, want %q", first.RedirectPath, "/")
	}
	second := sends[1].event.(LoginLinkEvent)
	if second.RedirectPath != "/dashboard" {
		t.Fatalf("redirect = %q, want %q", second.RedirectPath, "/dashboard")
	}
}

func TestSignInRateLimited(t *testing.T) {
	env := newTestEnv()
	env.config.RateLimit.SignInLimit = 1
	env.directory.add(&Identity{Email: "alice@example.com"})
	engine := env.build(t)

	ctx := WithClientOrigin(context.Background(), "203.0.113.9")

	if _, err := engine.SignIn(ctx, SignInRequest{Email: "alice@example.com", PasswordlessLink: true}); err != nil {
		t.Fatalf("first attempt: unexpected error: %v", err)
	}
	_, err := engine.SignIn(ctx, SignInRequest{Email: "alice@example.com", PasswordlessLink: true})
	if !errors.Is(err, ErrRateLimited) {
		t.Fatalf("expected ErrRateLimited, got %v", err)
	}
}

func TestSignInLimiterOutageSoftFails(t *testing.T) {
	env := newTestEnv()
	env.store = failingRateStore{}
	env.directory.add(&Identity{
		Email:        "alice@example.com",
		PasswordHash: testHash(t, "hunter2hunter2"),
	})
	engine := env.build(t)

	result, err := engine.SignIn(context.Background(), SignInRequest{
		Email:    "alice@example.com",
		Password: "hunter2hunter2",
	})
	if err != nil {
		t.Fatalf("limiter outage must not block sign-in, got %v", err)
	}
	if result.Status != SignInSession {
		t.Fatalf("expected session outcome, got %v", result.Status)
	}
}

func TestSignInInvalidEmail(t *testing.T) {
	env := newTestEnv()
	engine := env.build(t)

	_, err := engine.SignIn(context.Background(), SignInRequest{Email: "not an email"})
	if !errors.Is(err, ErrValidationFailed) {
		t.Fatalf("expected ErrValidationFailed, got %v", err)
	}
}

func TestSignInDirectoryOutage(t *testing.T) {
	env := newTestEnv()
	env.directory.findErr = errors.New("connection refused")
	engine := env.build(t)

	_, err := engine.SignIn(context.Background(), SignInRequest{Email: "alice@example.com"})
	if !errors.Is(err, ErrTransient) {
		t.Fatalf("expected ErrTransient, got %v", err)
	}
}
