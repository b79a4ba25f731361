package token

import (
	"crypto/ed25519"
	"errors"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// Scope names the purpose a token is valid for. Tokens must never be
// accepted outside their scope.
type Scope string

const (
	// ScopeSession is the long-lived authenticated-session scope.
	ScopeSession Scope = "session"
	// ScopeSecondFactor marks a short-lived token awaiting second-factor
	// verification.
	ScopeSecondFactor Scope = "twofactorauth"
)

// SigningMethod selects the signature algorithm.
type SigningMethod string

const (
	// MethodHS256 signs with an HMAC-SHA256 shared key.
	MethodHS256 SigningMethod = "hs256"
	// MethodEd25519 signs with an Ed25519 key pair.
	MethodEd25519 SigningMethod = "ed25519"
)

var (
	// ErrInvalidToken is returned for tokens failing signature, structure,
	// or time validation.
	ErrInvalidToken = errors.New("invalid token")
	// ErrScopeMismatch is returned when a token is presented outside the
	// scope it was issued for.
	ErrScopeMismatch = errors.New("token scope mismatch")
)

// Config holds signing material and per-scope lifetimes. Configured during
// initialization and treated as immutable afterwards.
type Config struct {
	SigningMethod   SigningMethod
	PrivateKey      []byte
	PublicKey       []byte
	Issuer          string
	Audience        string
	SessionTTL      time.Duration
	SecondFactorTTL time.Duration
	Leeway          time.Duration
}

// Claims is the decoded token payload. SubjectID lives in the registered
// "sub" claim.
type Claims struct {
	Scope     Scope  `json:"scp"`
	SessionID string `json:"sid,omitempty"`
	jwt.RegisteredClaims
}

// SubjectID returns the token's subject reference.
func (c *Claims) SubjectID() string {
	return c.Subject
}

// Manager issues and verifies scoped tokens. Issuance and verification are
// pure and safe for concurrent use.
type Manager struct {
	config Config
}

// NewManager validates cfg and returns a ready Manager.
func NewManager(cfg Config) (*Manager, error) {
	if cfg.SessionTTL <= 0 || cfg.SecondFactorTTL <= 0 {
		return nil, errors.New("invalid TTL configuration")
	}
	if cfg.Leeway < 0 || cfg.Leeway > 2*time.Minute {
		return nil, errors.New("invalid leeway configuration")
	}
	switch cfg.SigningMethod {
	case MethodHS256:
		if len(cfg.PrivateKey) == 0 {
			return nil, errors.New("hs256 requires private key")
		}
	case MethodEd25519:
		if _, err := parseEdPrivateKey(cfg.PrivateKey); err != nil {
			return nil, err
		}
		if len(cfg.PublicKey) > 0 {
			if _, err := parseEdPublicKey(cfg.PublicKey); err != nil {
				return nil, err
			}
		}
	default:
		return nil, errors.New("unsupported signing method")
	}

	return &Manager{config: cfg}, nil
}

// IssueSession mints a session-scope token. sessionID, when non-empty, is
// threaded through unchanged so a chain of refreshed tokens can be
// correlated by an external session tracker.
func (m *Manager) IssueSession(subjectID, sessionID string) (string, error) {
	return m.issue(subjectID, sessionID, ScopeSession, m.config.SessionTTL)
}

// IssueSecondFactor mints a short-lived twofactorauth-scope token.
func (m *Manager) IssueSecondFactor(subjectID, sessionID string) (string, error) {
	return m.issue(subjectID, sessionID, ScopeSecondFactor, m.config.SecondFactorTTL)
}

func (m *Manager) issue(subjectID, sessionID string, scope Scope, ttl time.Duration) (string, error) {
	if subjectID == "" {
		return "", errors.New("subject id required")
	}

	now := time.Now()
	claims := Claims{
		Scope:     scope,
		SessionID: sessionID,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   subjectID,
			Issuer:    m.config.Issuer,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}
	if m.config.Audience != "" {
		claims.Audience = jwt.ClaimStrings{m.config.Audience}
	}

	tok := jwt.NewWithClaims(m.method(), claims)

	signKey, err := m.signKey()
	if err != nil {
		return "", err
	}

	return tok.SignedString(signKey)
}

// Verify parses and validates tokenStr and returns its claims. Expiry is the
// only invalidation: there is no revocation list in this core.
func (m *Manager) Verify(tokenStr string) (*Claims, error) {
	options := []jwt.ParserOption{
		jwt.WithValidMethods([]string{m.method().Alg()}),
		jwt.WithExpirationRequired(),
	}
	if m.config.Leeway > 0 {
		options = append(options, jwt.WithLeeway(m.config.Leeway))
	}
	if m.config.Issuer != "" {
		options = append(options, jwt.WithIssuer(m.config.Issuer))
	}
	if m.config.Audience != "" {
		options = append(options, jwt.WithAudience(m.config.Audience))
	}

	parser := jwt.NewParser(options...)
	tok, err := parser.ParseWithClaims(tokenStr, &Claims{}, func(t *jwt.Token) (interface{}, error) {
		return m.verifyKey()
	})
	if err != nil {
		return nil, ErrInvalidToken
	}

	claims, ok := tok.Claims.(*Claims)
	if !ok || !tok.Valid {
		return nil, ErrInvalidToken
	}
	switch claims.Scope {
	case ScopeSession, ScopeSecondFactor:
	default:
		return nil, ErrInvalidToken
	}
	if claims.Subject == "" {
		return nil, ErrInvalidToken
	}

	return claims, nil
}

// VerifyScope verifies tokenStr and additionally requires it to carry the
// given scope.
func (m *Manager) VerifyScope(tokenStr string, scope Scope) (*Claims, error) {
	claims, err := m.Verify(tokenStr)
	if err != nil {
		return nil, err
	}
	if claims.Scope != scope {
		return nil, ErrScopeMismatch
	}
	return claims, nil
}

func (m *Manager) method() jwt.SigningMethod {
	switch m.config.SigningMethod {
	case MethodEd25519:
		return jwt.SigningMethodEdDSA
	default:
		return jwt.SigningMethodHS256
	}
}

func (m *Manager) signKey() (interface{}, error) {
	switch m.config.SigningMethod {
	case MethodEd25519:
		return parseEdPrivateKey(m.config.PrivateKey)
	default:
		return m.config.PrivateKey, nil
	}
}

func (m *Manager) verifyKey() (interface{}, error) {
	switch m.config.SigningMethod {
	case MethodEd25519:
		if len(m.config.PublicKey) > 0 {
			return parseEdPublicKey(m.config.PublicKey)
		}
		priv, err := parseEdPrivateKey(m.config.PrivateKey)
		if err != nil {
			return nil, err
		}
		return priv.Public(), nil
	default:
		return m.config.PrivateKey, nil
	}
}

func parseEdPrivateKey(key []byte) (ed25519.PrivateKey, error) {
	if len(key) == ed25519.PrivateKeySize {
		return ed25519.PrivateKey(key), nil
	}
	parsed, err := jwt.ParseEdPrivateKeyFromPEM(key)
	if err != nil {
		return nil, errors.New("invalid ed25519 private key")
	}
	edKey, ok := parsed.(ed25519.PrivateKey)
	if !ok {
		return nil, errors.New("invalid ed25519 private key type")
	}
	return edKey, nil
}

func parseEdPublicKey(key []byte) (ed25519.PublicKey, error) {
	if len(key) == ed25519.PublicKeySize {
		return ed25519.PublicKey(key), nil
	}
	parsed, err := jwt.ParseEdPublicKeyFromPEM(key)
	if err != nil {
		return nil, errors.New("invalid ed25519 public key")
	}
	edKey, ok := parsed.(ed25519.PublicKey)
	if !ok {
		return nil, errors.New("invalid ed25519 public key type")
	}
	return edKey, nil
}

// ParseSigningMethod maps a config string to a SigningMethod, defaulting to
// hs256.
func ParseSigningMethod(s string) (SigningMethod, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "hs256":
		return MethodHS256, nil
	case "ed25519":
		return MethodEd25519, nil
	default:
		return "", errors.New("unsupported signing method")
	}
}
