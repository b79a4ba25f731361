package gatehouse

import (
	"errors"

	"github.com/gatehouse-auth/gatehouse/internal/rate"
	"github.com/gatehouse-auth/gatehouse/password"
	"github.com/gatehouse-auth/gatehouse/token"
	"github.com/redis/go-redis/v9"
)

// Builder assembles an [Engine]. Single-use: Build can be called once.
type Builder struct {
	config Config

	redis     redis.UniversalClient
	rateStore rate.Store

	directory UserDirectory
	notifier  Notifier
	links     LinkBuilder
	auditSink AuditSink

	built bool
}

// New returns a Builder preloaded with default configuration.
func New() *Builder {
	return &Builder{
		config: defaultConfig(),
	}
}

// WithConfig replaces the default configuration.
func (b *Builder) WithConfig(cfg Config) *Builder {
	b.config = cloneConfig(cfg)
	return b
}

// WithRedis backs the rate limiter with Redis counters.
func (b *Builder) WithRedis(client redis.UniversalClient) *Builder {
	b.redis = client
	return b
}

// WithRateLimitStore injects an alternative counter backend, such as
// [rate.MemoryStore] for single-process deployments. Takes precedence over
// WithRedis.
func (b *Builder) WithRateLimitStore(store rate.Store) *Builder {
	b.rateStore = store
	return b
}

// WithUserDirectory injects the caller's identity store.
func (b *Builder) WithUserDirectory(dir UserDirectory) *Builder {
	b.directory = dir
	return b
}

// WithNotifier injects the outbound email dispatcher.
func (b *Builder) WithNotifier(n Notifier) *Builder {
	b.notifier = n
	return b
}

// WithLinkBuilder injects the login/reset link formatter.
func (b *Builder) WithLinkBuilder(lb LinkBuilder) *Builder {
	b.links = lb
	return b
}

// WithAuditSink injects the audit event receiver.
func (b *Builder) WithAuditSink(sink AuditSink) *Builder {
	b.auditSink = sink
	return b
}

// WithMetricsEnabled toggles the in-process counters.
func (b *Builder) WithMetricsEnabled(enabled bool) *Builder {
	b.config.Metrics.Enabled = enabled
	return b
}

// Build validates the configuration and collaborators and returns a ready
// Engine.
func (b *Builder) Build() (*Engine, error) {
	if b.built {
		return nil, errors.New("builder already used")
	}
	b.built = true

	cfg := cloneConfig(b.config)
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	if b.directory == nil {
		return nil, errors.New("user directory required")
	}
	if b.notifier == nil {
		return nil, errors.New("notifier required")
	}
	if b.links == nil {
		return nil, errors.New("link builder required")
	}

	store := b.rateStore
	if store == nil {
		if b.redis == nil {
			return nil, errors.New("rate limit store or redis client required")
		}
		store = rate.NewRedisStore(b.redis, "")
	}

	method, err := token.ParseSigningMethod(cfg.Token.SigningMethod)
	if err != nil {
		return nil, err
	}
	tokens, err := token.NewManager(token.Config{
		SigningMethod:   method,
		PrivateKey:      cfg.Token.PrivateKey,
		PublicKey:       cfg.Token.PublicKey,
		Issuer:          cfg.Token.Issuer,
		Audience:        cfg.Token.Audience,
		SessionTTL:      cfg.Token.SessionTTL,
		SecondFactorTTL: cfg.Token.SecondFactorTTL,
		Leeway:          cfg.Token.Leeway,
	})
	if err != nil {
		return nil, err
	}

	passwords, err := password.NewArgon2(password.Config{
		Memory:      cfg.Password.Memory,
		Time:        cfg.Password.Time,
		Parallelism: cfg.Password.Parallelism,
		SaltLength:  cfg.Password.SaltLength,
		KeyLength:   cfg.Password.KeyLength,
	})
	if err != nil {
		return nil, err
	}

	return &Engine{
		config:    cfg,
		limiter:   rate.NewLimiter(store),
		tokens:    tokens,
		passwords: passwords,
		totp:      newTOTPManager(cfg.TOTP),
		directory: b.directory,
		notifier:  b.notifier,
		links:     b.links,
		audit:     newAuditDispatcher(cfg.Audit, b.auditSink),
		metrics:   newMetrics(cfg.Metrics),
	}, nil
}
