package jwt

import (
	"crypto/ed25519"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/MrEthical07/webAuth/permission"
	"github.com/MrEthical07/webAuth/session"
	"github.com/golang-jwt/jwt/v5"
)

// SigningMethod selects the token signature algorithm.
type SigningMethod string

const (
	// MethodHS256 signs with a shared HMAC-SHA256 secret.
	MethodHS256 SigningMethod = "hs256"
	// MethodEd25519 signs with an Ed25519 key pair.
	MethodEd25519 SigningMethod = "ed25519"
)

const minHMACSecretLength = 32

// Config defines how session tokens are signed and validated.
//
// Config instances are intended to be configured during initialization and then treated as immutable.
type Config struct {
	SigningMethod SigningMethod
	PrivateKey    []byte
	PublicKey     []byte
	Issuer        string
	Audience      string
	Leeway        time.Duration
	MaxFutureIAT  time.Duration
	KeyID         string
	VerifyKeys    map[string][]byte
	Now           func() time.Time
}

// Manager issues and decodes session tokens. Keys are parsed once in
// NewManager; a Manager is safe for concurrent use.
type Manager struct {
	config Config
	method jwt.SigningMethod
	parser *jwt.Parser

	signKey    any // nil for a verify-only Ed25519 manager
	verifyKey  any // used when no kid map is configured
	verifyKeys map[string]any
}

// SessionClaims is the JWT payload of a session token.
type SessionClaims struct {
	Email string   `json:"email"`
	Name  string   `json:"name,omitempty"`
	Role  string   `json:"role"`
	Perms []string `json:"perms,omitempty"`
	jwt.RegisteredClaims
}

// NewManager validates cfg and returns a [Manager].
func NewManager(cfg Config) (*Manager, error) {
	if cfg.Leeway < 0 || cfg.Leeway > 2*time.Minute {
		return nil, errors.New("invalid leeway configuration")
	}
	if cfg.MaxFutureIAT == 0 {
		cfg.MaxFutureIAT = 10 * time.Minute
	}
	if cfg.MaxFutureIAT < 0 || cfg.MaxFutureIAT > 24*time.Hour {
		return nil, errors.New("invalid MaxFutureIAT configuration")
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	cfg.KeyID = strings.TrimSpace(cfg.KeyID)

	m := &Manager{config: cfg}
	var parseVerify func([]byte) (any, error)

	switch cfg.SigningMethod {
	case MethodHS256:
		if len(cfg.PrivateKey) < minHMACSecretLength {
			return nil, fmt.Errorf("hs256 requires a secret of at least %d bytes", minHMACSecretLength)
		}
		m.method = jwt.SigningMethodHS256
		m.signKey = cfg.PrivateKey
		m.verifyKey = cfg.PrivateKey
		parseVerify = func(key []byte) (any, error) {
			if len(key) < minHMACSecretLength {
				return nil, errors.New("secret too short")
			}
			return key, nil
		}
	case MethodEd25519:
		m.method = jwt.SigningMethodEdDSA
		if len(cfg.PrivateKey) > 0 {
			priv, err := parseEdPrivateKey(cfg.PrivateKey)
			if err != nil {
				return nil, err
			}
			m.signKey = priv
		}
		if len(cfg.PublicKey) > 0 {
			pub, err := parseEdPublicKey(cfg.PublicKey)
			if err != nil {
				return nil, err
			}
			m.verifyKey = pub
		}
		if len(cfg.VerifyKeys) == 0 && m.verifyKey == nil {
			return nil, errors.New("ed25519 requires public key or verify key set")
		}
		parseVerify = func(key []byte) (any, error) { return parseEdPublicKey(key) }
	default:
		return nil, errors.New("unsupported signing method")
	}

	if len(cfg.VerifyKeys) > 0 {
		m.verifyKeys = make(map[string]any, len(cfg.VerifyKeys))
		for kid, raw := range cfg.VerifyKeys {
			if strings.TrimSpace(kid) == "" {
				return nil, errors.New("verify key map contains empty kid")
			}
			key, err := parseVerify(raw)
			if err != nil {
				return nil, fmt.Errorf("invalid %s verify key for kid %q: %w", cfg.SigningMethod, kid, err)
			}
			m.verifyKeys[kid] = key
		}
		if _, ok := m.verifyKeys[cfg.KeyID]; cfg.KeyID != "" && !ok {
			return nil, errors.New("KeyID is not present in VerifyKeys")
		}
	}

	options := []jwt.ParserOption{
		jwt.WithValidMethods([]string{m.method.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithIssuedAt(),
		jwt.WithTimeFunc(cfg.Now),
	}
	if cfg.Leeway > 0 {
		options = append(options, jwt.WithLeeway(cfg.Leeway))
	}
	if cfg.Issuer != "" {
		options = append(options, jwt.WithIssuer(cfg.Issuer))
	}
	if cfg.Audience != "" {
		options = append(options, jwt.WithAudience(cfg.Audience))
	}
	m.parser = jwt.NewParser(options...)

	return m, nil
}

// Issue signs s into a compact token.
//
// Times are truncated to whole seconds. Issue fails for sessions without a user id,
// token id, valid role, or with an expiry not after issuance.
func (j *Manager) Issue(s session.Session) (string, error) {
	if j.signKey == nil {
		return "", errors.New("manager is verify-only: no private key configured")
	}
	if s.UserID == "" || s.ID == "" {
		return "", errors.New("session requires user id and token id")
	}
	if !s.Role.Valid() {
		return "", fmt.Errorf("session has invalid role %v", s.Role)
	}
	issuedAt := s.IssuedAt.Truncate(time.Second)
	expiresAt := s.ExpiresAt.Truncate(time.Second)
	if !expiresAt.After(issuedAt) {
		return "", errors.New("session expiry must be after issuance")
	}

	claims := SessionClaims{
		Email: s.Email,
		Name:  s.Name,
		Role:  s.Role.String(),
		Perms: s.Permissions.Strings(),
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        s.ID,
			Subject:   s.UserID,
			IssuedAt:  jwt.NewNumericDate(issuedAt),
			ExpiresAt: jwt.NewNumericDate(expiresAt),
			Issuer:    j.config.Issuer,
		},
	}
	if j.config.Audience != "" {
		claims.Audience = jwt.ClaimStrings{j.config.Audience}
	}

	token := jwt.NewWithClaims(j.method, claims)
	if j.config.KeyID != "" {
		token.Header["kid"] = j.config.KeyID
	}
	return token.SignedString(j.signKey)
}

// Decode verifies tokenStr and reconstructs the session it carries.
//
// Every failure is returned as a [*DecodeError].
func (j *Manager) Decode(tokenStr string) (session.Session, error) {
	if strings.TrimSpace(tokenStr) == "" {
		return session.Session{}, &DecodeError{Reason: ReasonMalformed, Err: jwt.ErrTokenMalformed}
	}

	token, err := j.parser.ParseWithClaims(tokenStr, &SessionClaims{}, j.keyFunc)
	if err != nil {
		return session.Session{}, &DecodeError{Reason: classify(err), Err: err}
	}

	claims, ok := token.Claims.(*SessionClaims)
	if !ok || !token.Valid {
		return session.Session{}, &DecodeError{Reason: ReasonClaims, Err: jwt.ErrTokenInvalidClaims}
	}
	if claims.Subject == "" || claims.ID == "" || claims.IssuedAt == nil {
		return session.Session{}, &DecodeError{Reason: ReasonClaims, Err: errors.New("token missing subject, id or iat")}
	}
	if claims.IssuedAt.Time.After(j.config.Now().Add(j.config.MaxFutureIAT)) {
		return session.Session{}, &DecodeError{Reason: ReasonClaims, Err: errors.New("token iat too far in the future")}
	}

	// Unknown role names decode to RoleUnknown, which every check denies.
	role, _ := permission.ParseRole(claims.Role)

	return session.Session{
		ID:          claims.ID,
		UserID:      claims.Subject,
		Email:       claims.Email,
		Name:        claims.Name,
		Role:        role,
		Permissions: permission.FromStrings(claims.Perms...),
		IssuedAt:    claims.IssuedAt.Time.UTC(),
		ExpiresAt:   claims.ExpiresAt.Time.UTC(),
	}, nil
}

// keyFunc picks the verification key. With a kid map the header kid must name
// one of its keys; otherwise a configured KeyID must match the header.
func (j *Manager) keyFunc(t *jwt.Token) (any, error) {
	kid, _ := t.Header["kid"].(string)

	if j.verifyKeys != nil {
		if kid == "" {
			return nil, errors.New("missing kid")
		}
		key, ok := j.verifyKeys[kid]
		if !ok {
			return nil, errors.New("unknown kid")
		}
		return key, nil
	}

	if j.config.KeyID != "" && kid != j.config.KeyID {
		return nil, errors.New("unknown kid")
	}
	if j.verifyKey == nil {
		return nil, errors.New("no verification key configured")
	}
	return j.verifyKey, nil
}

// Ed25519 keys are accepted raw or PEM encoded.
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
