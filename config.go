package gatehouse

import (
	"errors"
	"strings"
	"time"
)

// Config groups the engine's per-concern settings. Instances are configured
// during initialization and treated as immutable afterwards.
type Config struct {
	Token     TokenConfig
	Password  PasswordConfig
	TOTP      TOTPConfig
	RateLimit RateLimitConfig
	Site      SiteConfig
	Audit     AuditConfig
	Metrics   MetricsConfig
}

// TokenConfig tunes signing and expiration of issued tokens.
type TokenConfig struct {
	SigningMethod string // "hs256" (default) or "ed25519"
	PrivateKey    []byte
	PublicKey     []byte
	Issuer        string
	Audience      string

	// SessionTTL is the long session-scope lifetime.
	SessionTTL time.Duration
	// SecondFactorTTL is the short twofactorauth-scope lifetime; these
	// tokens exist only to be exchanged after 2FA verification.
	SecondFactorTTL time.Duration
	Leeway          time.Duration
}

// PasswordConfig carries argon2id parameters.
type PasswordConfig struct {
	Memory      uint32 // in KB
	Time        uint32
	Parallelism uint8
	SaltLength  uint32
	KeyLength   uint32
}

// TOTPConfig tunes time-step code verification.
type TOTPConfig struct {
	Issuer    string
	Digits    int
	Period    int
	Algorithm string // "SHA1" (default), "SHA256", "SHA512"

	// Skew is the number of adjacent time steps accepted in either
	// direction to absorb clock drift.
	Skew int
}

// RateLimitConfig carries the fixed-window abuse budgets.
type RateLimitConfig struct {
	Window time.Duration

	// EmailSearchLimit bounds existence checks per client origin. The check
	// is fail-open: exhaustion is reported as an advisory field while the
	// lookup is still answered.
	EmailSearchLimit int

	// SignInLimit bounds sign-in attempts per client origin. The sign-in
	// entry point soft-fails on a limiter-store outage so an outage cannot
	// lock out all users.
	SignInLimit int

	// SecondFactorLimit bounds failed 2FA verifications per subject.
	SecondFactorLimit int
}

// SiteConfig carries link-building inputs passed through to the caller's
// LinkBuilder.
type SiteConfig struct {
	SiteURL             string
	DefaultRedirectPath string
}

// AuditConfig tunes the async audit dispatcher.
type AuditConfig struct {
	Enabled    bool
	BufferSize int
	DropIfFull bool
}

// MetricsConfig toggles the in-process counters.
type MetricsConfig struct {
	Enabled bool
}

func defaultConfig() Config {
	return Config{
		Token: TokenConfig{
			SigningMethod:   "hs256",
			SessionTTL:      30 * 24 * time.Hour,
			SecondFactorTTL: 5 * time.Minute,
		},
		Password: PasswordConfig{
			Memory:      64 * 1024,
			Time:        3,
			Parallelism: 2,
			SaltLength:  16,
			KeyLength:   32,
		},
		TOTP: TOTPConfig{
			Issuer:    "gatehouse",
			Digits:    6,
			Period:    30,
			Algorithm: "SHA1",
			Skew:      1,
		},
		RateLimit: RateLimitConfig{
			Window:            time.Hour,
			EmailSearchLimit:  100,
			SignInLimit:       100,
			SecondFactorLimit: 10,
		},
		Site: SiteConfig{
			DefaultRedirectPath: "/",
		},
		Audit: AuditConfig{
			Enabled:    true,
			BufferSize: 256,
			DropIfFull: true,
		},
		Metrics: MetricsConfig{
			Enabled: true,
		},
	}
}

// Validate rejects configurations the engine cannot run safely with.
func (c *Config) Validate() error {
	switch strings.ToLower(c.Token.SigningMethod) {
	case "", "hs256", "ed25519":
	default:
		return errors.New("unsupported token signing method")
	}
	if len(c.Token.PrivateKey) == 0 {
		return errors.New("token private key required")
	}
	if c.Token.SessionTTL <= 0 {
		return errors.New("session token TTL must be positive")
	}
	if c.Token.SecondFactorTTL <= 0 || c.Token.SecondFactorTTL > time.Hour {
		return errors.New("second-factor token TTL must be positive and short")
	}
	if c.Token.SecondFactorTTL >= c.Token.SessionTTL {
		return errors.New("second-factor token TTL must be shorter than session TTL")
	}
	if c.TOTP.Digits < 6 || c.TOTP.Digits > 8 {
		return errors.New("totp digits must be 6..8")
	}
	if c.TOTP.Period <= 0 {
		return errors.New("totp period must be positive")
	}
	if c.TOTP.Skew < 0 || c.TOTP.Skew > 2 {
		return errors.New("totp skew must be 0..2")
	}
	if c.RateLimit.Window <= 0 {
		return errors.New("rate limit window must be positive")
	}
	if c.RateLimit.EmailSearchLimit <= 0 ||
		c.RateLimit.SignInLimit <= 0 ||
		c.RateLimit.SecondFactorLimit <= 0 {
		return errors.New("rate limits must be positive")
	}
	return nil
}

func cloneConfig(cfg Config) Config {
	out := cfg
	out.Token.PrivateKey = append([]byte(nil), cfg.Token.PrivateKey...)
	out.Token.PublicKey = append([]byte(nil), cfg.Token.PublicKey...)
	return out
}
