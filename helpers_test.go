package gatehouse

import (
	"context"
	"strconv"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gatehouse-auth/gatehouse/internal/rate"
	"github.com/gatehouse-auth/gatehouse/password"
)

// memoryDirectory is a map-backed UserDirectory for flow tests.
type memoryDirectory struct {
	mu      sync.Mutex
	seq     int
	byID    map[string]*Identity
	byEmail map[string]string

	findErr   error
	createErr error
	updateErr error
}

func newMemoryDirectory() *memoryDirectory {
	return &memoryDirectory{
		byID:    make(map[string]*Identity),
		byEmail: make(map[string]string),
	}
}

func (d *memoryDirectory) add(identity *Identity) *Identity {
	d.mu.Lock()
	defer d.mu.Unlock()

	if identity.ID == "" {
		d.seq++
		identity.ID = "user-" + strconv.Itoa(d.seq)
	}
	d.byID[identity.ID] = identity
	d.byEmail[strings.ToLower(identity.Email)] = identity.ID
	return identity
}

func (d *memoryDirectory) count() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.byID)
}

func (d *memoryDirectory) FindByEmail(_ context.Context, email string) (*Identity, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.findErr != nil {
		return nil, d.findErr
	}
	id, ok := d.byEmail[strings.ToLower(email)]
	if !ok {
		return nil, ErrNotFound
	}
	return d.byID[id], nil
}

func (d *memoryDirectory) FindByID(_ context.Context, id string) (*Identity, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.findErr != nil {
		return nil, d.findErr
	}
	identity, ok := d.byID[id]
	if !ok {
		return nil, ErrNotFound
	}
	return identity, nil
}

func (d *memoryDirectory) Create(_ context.Context, profile Profile) (*Identity, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.createErr != nil {
		return nil, d.createErr
	}
	d.seq++
	identity := &Identity{
		ID:    "user-" + strconv.Itoa(d.seq),
		Email: profile.Email,
		Name:  profile.Name,
	}
	d.byID[identity.ID] = identity
	d.byEmail[strings.ToLower(identity.Email)] = identity.ID
	return identity, nil
}

func (d *memoryDirectory) Update(_ context.Context, id string, update SecurityUpdate) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.updateErr != nil {
		return d.updateErr
	}
	identity, ok := d.byID[id]
	if !ok {
		return ErrNotFound
	}
	if update.ClearTwoFactorSecret {
		identity.TwoFactorSecret = nil
	}
	if update.ClearRecoveryCodes {
		identity.RecoveryCodes = nil
	}
	return nil
}

type capturedSend struct {
	recipient string
	event     NotificationEvent
}

// captureNotifier records sends and can simulate delivery failures.
type captureNotifier struct {
	mu      sync.Mutex
	sends   []capturedSend
	sendErr error
}

func (n *captureNotifier) Send(_ context.Context, recipient string, event NotificationEvent) error {
	n.mu.Lock()
	defer n.mu.Unlock()

	if n.sendErr != nil {
		return n.sendErr
	}
	n.sends = append(n.sends, capturedSend{recipient: recipient, event: event})
	return nil
}

func (n *captureNotifier) sent() []capturedSend {
	n.mu.Lock()
	defer n.mu.Unlock()
	return append([]capturedSend(nil), n.sends...)
}

type staticLinkBuilder struct {
	buildErr error
}

func (b *staticLinkBuilder) BuildLoginLink(identity *Identity, redirectPath, siteURL string) (string, error) {
	if b.buildErr != nil {
		return "", b.buildErr
	}
	return siteURL + "/verify/" + identity.ID + "?redirectTo=" + redirectPath, nil
}

func (b *staticLinkBuilder) BuildResetLink(identity *Identity, siteURL string) (string, error) {
	if b.buildErr != nil {
		return "", b.buildErr
	}
	return siteURL + "/reset/" + identity.ID, nil
}

// failingRateStore simulates a counter backend outage.
type failingRateStore struct{}

func (failingRateStore) Incr(context.Context, string, time.Duration) (int64, error) {
	return 0, rate.ErrStoreUnavailable
}

func (failingRateStore) Get(context.Context, string) (int64, error) {
	return 0, rate.ErrStoreUnavailable
}

type testEnv struct {
	config    Config
	store     rate.Store
	directory *memoryDirectory
	notifier  *captureNotifier
	links     *staticLinkBuilder
	sink      AuditSink
}

func newTestEnv() *testEnv {
	cfg := defaultConfig()
	cfg.Token.PrivateKey = []byte("0123456789abcdef0123456789abcdef")
	cfg.Password = PasswordConfig{Memory: 8 * 1024, Time: 1, Parallelism: 1, SaltLength: 16, KeyLength: 16}
	cfg.Site.SiteURL = "https://app.test"

	return &testEnv{
		config:    cfg,
		store:     rate.NewMemoryStore(),
		directory: newMemoryDirectory(),
		notifier:  &captureNotifier{},
		links:     &staticLinkBuilder{},
	}
}

func (env *testEnv) build(t *testing.T) *Engine {
	t.Helper()

	b := New().
		WithConfig(env.config).
		WithRateLimitStore(env.store).
		WithUserDirectory(env.directory).
		WithNotifier(env.notifier).
		WithLinkBuilder(env.links)
	if env.sink != nil {
		b = b.WithAuditSink(env.sink)
	}

	engine, err := b.Build()
	if err != nil {
		t.Fatalf("build engine: %v", err)
	}
	t.Cleanup(engine.Close)
	return engine
}

func testHash(t *testing.T, plaintext string) string {
	t.Helper()

	hasher, err := password.NewArgon2(password.Config{
		Memory:      8 * 1024,
		Time:        1,
		Parallelism: 1,
		SaltLength:  16,
		KeyLength:   16,
	})
	if err != nil {
		t.Fatalf("new hasher: %v", err)
	}
	hash, err := hasher.Hash(plaintext)
	if err != nil {
		t.Fatalf("hash password: %v", err)
	}
	return hash
}

var testTOTPSecret = []byte("12345678901234567890")

func totpCodeAt(t *testing.T, secret []byte, at time.Time) string {
	t.Helper()

	code, err := hotpCode(secret, at.Unix()/30, 6, "SHA1")
	if err != nil {
		t.Fatalf("generate totp code: %v", err)
	}
	return code
}
