package webAuth

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/MrEthical07/webAuth/permission"
)

// Config defines a public type used by webAuth APIs.
//
// Config instances are intended to be configured during initialization and then treated as immutable.
type Config struct {
	JWT           JWTConfig
	Session       SessionConfig
	Password      PasswordConfig
	PasswordReset PasswordResetConfig
	TOTP          TOTPConfig
	Routes        RouteConfig
	Account       AccountConfig
	Security      SecurityConfig
	Audit         AuditConfig
	Metrics       MetricsConfig
}

/*
====================================
JWT CONFIG
====================================
*/

// JWTConfig selects how session tokens are signed.
//
// For "hs256" PrivateKey is the shared secret (at least 32 bytes). For "ed25519"
// PrivateKey/PublicKey hold the key pair; VerifyKeys maps key ids to additional
// public keys (or secrets) accepted during rotation.
type JWTConfig struct {
	SigningMethod string // "hs256" (default), "ed25519" optional
	PrivateKey    []byte
	PublicKey     []byte
	KeyID         string
	VerifyKeys    map[string][]byte
	Issuer        string
	Audience      string
	Leeway        time.Duration
}

/*
====================================
SESSION CONFIG
====================================
*/

// SessionConfig controls session lifetime and the session cookie.
//
// EnableRevocation turns on the Redis-backed revocation list; it requires a
// Redis client on the Builder.
type SessionConfig struct {
	TTL              time.Duration
	CookieName       string
	CookiePath       string
	CookieDomain     string
	SameSite         http.SameSite
	EnableRevocation bool
	RedisPrefix      string
}

/*
====================================
PASSWORD CONFIG
====================================
*/

// PasswordConfig controls hashing cost and the password policy.
//
// Algorithm selects the hash used for new digests ("argon2id" or "bcrypt"). Digests
// of the other algorithm still verify and are upgraded on login when UpgradeOnLogin
// is set.
type PasswordConfig struct {
	Algorithm      string
	Memory         uint32
	Time           uint32
	Parallelism    uint8
	SaltLength     uint32
	KeyLength      uint32
	BcryptCost     int
	MinLength      int
	MaxLength      int
	UpgradeOnLogin bool
}

/*
====================================
PASSWORD RESET CONFIG
====================================
*/

// PasswordResetConfig controls reset token lifetime and request throttling.
//
// MaxRequests <= 0 disables request throttling. RevokeSessions only has an effect
// when Session.EnableRevocation is set.
type PasswordResetConfig struct {
	Enabled         bool
	TokenTTL        time.Duration
	MaxRequests     int
	RequestCooldown time.Duration
	RevokeSessions  bool
}

/*
====================================
TOTP CONFIG
====================================
*/

// TOTPConfig controls time-based one-time password verification.
//
// With Skew 1 and Period 30 a code is accepted for roughly 90 seconds.
// EnforceReplayProtection rejects a second use of the same time-step and requires Redis.
type TOTPConfig struct {
	Enabled                 bool
	Issuer                  string
	Digits                  int
	Period                  int
	Algorithm               string
	Skew                    int
	EnforceReplayProtection bool
}

/*
====================================
ROUTE CONFIG
====================================
*/

// RouteConfig holds the route classification table and guard redirect targets.
type RouteConfig struct {
	Table            permission.RouteTable
	LoginPath        string
	UnauthorizedPath string
	LandingPath      string
}

/*
====================================
ACCOUNT CONFIG
====================================
*/

// AccountConfig controls self-service registration.
type AccountConfig struct {
	AllowRegistration bool
	DefaultRole       permission.Role
}

/*
====================================
SECURITY CONFIG
====================================
*/

// SecurityConfig defines security posture toggles.
//
// ProductionMode marks the session cookie Secure. Login throttling counts failed
// attempts per identifier (and per client IP when EnableIPThrottle is set).
type SecurityConfig struct {
	ProductionMode        bool
	EnableIPThrottle      bool
	MaxLoginAttempts      int
	LoginCooldownDuration time.Duration
}

/*
====================================
AUDIT / METRICS CONFIG
====================================
*/

// AuditConfig controls the asynchronous audit dispatcher.
type AuditConfig struct {
	Enabled    bool
	BufferSize int
	DropIfFull bool
}

// MetricsConfig controls in-process counters.
type MetricsConfig struct {
	Enabled                 bool
	EnableLatencyHistograms bool
}

/*
====================================
DEFAULT CONFIG
====================================
*/

// DefaultConfig returns the baseline configuration: 7 day HS256 sessions, Argon2id
// hashing, 1 hour reset tokens, 30 second 6 digit TOTP with one step of skew, and
// the stock dashboard route table.
//
// JWT.PrivateKey is left empty and must be supplied.
func DefaultConfig() Config {
	return Config{
		JWT: JWTConfig{
			SigningMethod: "hs256",
			Issuer:        "webauth",
		},
		Session: SessionConfig{
			TTL:         7 * 24 * time.Hour,
			CookieName:  "session",
			CookiePath:  "/",
			SameSite:    http.SameSiteLaxMode,
			RedisPrefix: "wa",
		},
		Password: PasswordConfig{
			Algorithm:      "argon2id",
			Memory:         65536,
			Time:           3,
			Parallelism:    2,
			SaltLength:     16,
			KeyLength:      32,
			BcryptCost:     12,
			MinLength:      6,
			MaxLength:      128,
			UpgradeOnLogin: true,
		},
		PasswordReset: PasswordResetConfig{
			Enabled:         true,
			TokenTTL:        time.Hour,
			MaxRequests:     5,
			RequestCooldown: 15 * time.Minute,
			RevokeSessions:  true,
		},
		TOTP: TOTPConfig{
			Enabled:   true,
			Issuer:    "webAuth",
			Digits:    6,
			Period:    30,
			Algorithm: "SHA1",
			Skew:      1,
		},
		Routes: RouteConfig{
			Table:            permission.DefaultRouteTable(),
			LoginPath:        "/login",
			UnauthorizedPath: "/unauthorized",
			LandingPath:      "/dashboard",
		},
		Account: AccountConfig{
			AllowRegistration: true,
			DefaultRole:       permission.RoleUser,
		},
		Security: SecurityConfig{
			ProductionMode:        false,
			EnableIPThrottle:      false,
			MaxLoginAttempts:      5,
			LoginCooldownDuration: 15 * time.Minute,
		},
		Audit: AuditConfig{
			Enabled:    false,
			BufferSize: 1024,
			DropIfFull: true,
		},
		Metrics: MetricsConfig{
			Enabled: false,
		},
	}
}

func cloneConfig(cfg Config) Config {
	out := cfg
	out.JWT.PrivateKey = cloneBytes(cfg.JWT.PrivateKey)
	out.JWT.PublicKey = cloneBytes(cfg.JWT.PublicKey)
	if cfg.JWT.VerifyKeys != nil {
		out.JWT.VerifyKeys = make(map[string][]byte, len(cfg.JWT.VerifyKeys))
		for kid, key := range cfg.JWT.VerifyKeys {
			out.JWT.VerifyKeys[kid] = cloneBytes(key)
		}
	}
	out.Routes.Table = cfg.Routes.Table.Clone()
	return out
}

func cloneBytes(b []byte) []byte {
	if len(b) == 0 {
		return nil
	}
	out := make([]byte, len(b))
	copy(out, b)
	return out
}

/*
====================================
VALIDATION
====================================
*/

// Validate reports the first configuration problem found, or nil.
func (c *Config) Validate() error {
	// JWT
	switch c.JWT.SigningMethod {
	case "hs256":
		if len(c.JWT.PrivateKey) < 32 {
			return errors.New("hs256 requires a PrivateKey of at least 32 bytes")
		}
	case "ed25519":
		if len(c.JWT.PrivateKey) == 0 {
			return errors.New("ed25519 requires PrivateKey")
		}
		if len(c.JWT.PublicKey) == 0 && len(c.JWT.VerifyKeys) == 0 {
			return errors.New("ed25519 requires PublicKey or VerifyKeys")
		}
	default:
		return errors.New("unsupported JWT signing method")
	}
	if c.JWT.Leeway < 0 || c.JWT.Leeway > 2*time.Minute {
		return errors.New("JWT Leeway must be between 0 and 2m")
	}

	// Session
	if c.Session.TTL <= 0 {
		return errors.New("Session TTL must be > 0")
	}
	if strings.TrimSpace(c.Session.CookieName) == "" {
		return errors.New("Session CookieName must not be empty")
	}
	if c.Session.CookiePath != "" && !strings.HasPrefix(c.Session.CookiePath, "/") {
		return errors.New("Session CookiePath must start with /")
	}
	if c.Session.SameSite == http.SameSiteNoneMode && !c.Security.ProductionMode {
		return errors.New("SameSite=None requires ProductionMode (Secure cookies)")
	}

	// Password
	switch c.Password.Algorithm {
	case "argon2id":
		if c.Password.Memory < 8*1024 {
			return errors.New("Password Memory must be >= 8192 KB")
		}
		if c.Password.Time < 1 {
			return errors.New("Password Time must be >= 1")
		}
		if c.Password.Parallelism < 1 {
			return errors.New("Password Parallelism must be >= 1")
		}
		if c.Password.SaltLength < 16 {
			return errors.New("Password SaltLength must be >= 16")
		}
		if c.Password.KeyLength < 16 {
			return errors.New("Password KeyLength must be >= 16")
		}
	case "bcrypt":
		if c.Password.MaxLength > 72 {
			return errors.New("Password MaxLength must be <= 72 with bcrypt")
		}
	default:
		return errors.New("Password Algorithm must be 'argon2id' or 'bcrypt'")
	}
	if c.Password.MinLength < 1 {
		return errors.New("Password MinLength must be >= 1")
	}
	if c.Password.MaxLength < c.Password.MinLength || c.Password.MaxLength > 1024 {
		return errors.New("Password MaxLength must be between MinLength and 1024")
	}

	// Password Reset
	if c.PasswordReset.Enabled {
		if c.PasswordReset.TokenTTL <= 0 {
			return errors.New("PasswordReset TokenTTL must be > 0")
		}
		if c.PasswordReset.MaxRequests > 0 && c.PasswordReset.RequestCooldown <= 0 {
			return errors.New("PasswordReset RequestCooldown must be > 0 when MaxRequests is set")
		}
	}

	// TOTP
	if c.TOTP.Enabled {
		if strings.TrimSpace(c.TOTP.Issuer) == "" {
			return errors.New("TOTP Issuer must not be empty")
		}
		if c.TOTP.Digits != 6 && c.TOTP.Digits != 8 {
			return errors.New("TOTP Digits must be 6 or 8")
		}
		if c.TOTP.Period <= 0 || c.TOTP.Period > 120 {
			return errors.New("TOTP Period must be between 1 and 120 seconds")
		}
		if c.TOTP.Skew < 0 || c.TOTP.Skew > 2 {
			return errors.New("TOTP Skew must be between 0 and 2")
		}
		switch strings.ToUpper(c.TOTP.Algorithm) {
		case "SHA1", "SHA256", "SHA512":
		default:
			return errors.New("TOTP Algorithm must be SHA1, SHA256, or SHA512")
		}
	}

	// Routes
	for _, target := range []string{c.Routes.LoginPath, c.Routes.UnauthorizedPath, c.Routes.LandingPath} {
		if !strings.HasPrefix(target, "/") {
			return fmt.Errorf("route target %q must be an absolute path", target)
		}
	}
	if c.Routes.Table.Classify(c.Routes.LoginPath).Has(permission.ClassProtected) {
		return errors.New("LoginPath must not be a protected route")
	}
	if c.Routes.Table.Classify(c.Routes.UnauthorizedPath).Has(permission.ClassProtected) {
		return errors.New("UnauthorizedPath must not be a protected route")
	}

	// Account
	if c.Account.AllowRegistration && !c.Account.DefaultRole.Valid() {
		return errors.New("Account DefaultRole must be a valid role")
	}
	if c.Account.DefaultRole == permission.RoleSuperAdmin {
		return errors.New("Account DefaultRole must not be SUPER_ADMIN")
	}

	// Security
	if c.Security.MaxLoginAttempts < 0 {
		return errors.New("Security MaxLoginAttempts must be >= 0")
	}
	if c.Security.MaxLoginAttempts > 0 && c.Security.LoginCooldownDuration <= 0 {
		return errors.New("Security LoginCooldownDuration must be > 0")
	}

	// Audit
	if c.Audit.Enabled && c.Audit.BufferSize <= 0 {
		return errors.New("Audit BufferSize must be > 0")
	}

	return nil
}
