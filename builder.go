package webAuth

import (
	"errors"
	"log/slog"
	"time"

	"github.com/MrEthical07/webAuth/internal/audit"
	"github.com/MrEthical07/webAuth/internal/rate"
	"github.com/MrEthical07/webAuth/internal/stores"
	"github.com/MrEthical07/webAuth/jwt"
	"github.com/MrEthical07/webAuth/password"
	"github.com/MrEthical07/webAuth/session"
	"github.com/redis/go-redis/v9"
)

// dummyPassword is hashed once at build time; login verifies against it for
// unknown emails so both failure paths cost one hash verification.
const dummyPassword = "webauth-timing-equalizer"

// Builder assembles an [Engine].
//
// Builder instances are intended to be configured during initialization and then
// discarded. A Builder can be used for exactly one Build call.
type Builder struct {
	config    Config
	store     CredentialStore
	redis     redis.UniversalClient
	logger    *slog.Logger
	auditSink AuditSink
	now       func() time.Time

	built bool
}

// New returns a Builder seeded with [DefaultConfig].
func New() *Builder {
	return &Builder{
		config: DefaultConfig(),
	}
}

// WithConfig replaces the configuration. cfg is deep-copied.
func (b *Builder) WithConfig(cfg Config) *Builder {
	b.config = cloneConfig(cfg)
	return b
}

// WithCredentialStore sets the persistence port. It is required.
func (b *Builder) WithCredentialStore(store CredentialStore) *Builder {
	b.store = store
	return b
}

// WithRedis enables Redis-backed rate limiting, session revocation and TOTP
// replay protection. Without it the engine throttles in process.
func (b *Builder) WithRedis(client redis.UniversalClient) *Builder {
	b.redis = client
	return b
}

// WithLogger sets the structured logger. Defaults to slog.Default().
func (b *Builder) WithLogger(logger *slog.Logger) *Builder {
	b.logger = logger
	return b
}

// WithAuditSink sets where audit events go. It only takes effect when
// Config.Audit.Enabled is true.
func (b *Builder) WithAuditSink(sink AuditSink) *Builder {
	b.auditSink = sink
	return b
}

// WithClock overrides the wall clock used for token issuance, expiry checks and
// TOTP verification.
func (b *Builder) WithClock(now func() time.Time) *Builder {
	b.now = now
	return b
}

// WithMetricsEnabled toggles in-process counters.
func (b *Builder) WithMetricsEnabled(enabled bool) *Builder {
	b.config.Metrics.Enabled = enabled
	return b
}

// WithLatencyHistograms toggles the session decode latency histogram.
func (b *Builder) WithLatencyHistograms(enabled bool) *Builder {
	b.config.Metrics.EnableLatencyHistograms = enabled
	return b
}

// Build validates the configuration and returns a ready Engine.
//
// Build fails when the configuration is invalid, no CredentialStore was set, or
// a Redis-only feature is enabled without a Redis client.
func (b *Builder) Build() (*Engine, error) {
	if b.built {
		return nil, errors.New("builder already used")
	}

	cfg := cloneConfig(b.config)
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if b.store == nil {
		return nil, errors.New("credential store required")
	}
	if b.redis == nil {
		if cfg.Session.EnableRevocation {
			return nil, errors.New("Session EnableRevocation requires redis client")
		}
		if cfg.TOTP.Enabled && cfg.TOTP.EnforceReplayProtection {
			return nil, errors.New("TOTP EnforceReplayProtection requires redis client")
		}
	}

	now := b.now
	if now == nil {
		now = time.Now
	}
	logger := b.logger
	if logger == nil {
		logger = slog.Default()
	}

	// -------- PASSWORD HASHER --------
	hasher, err := buildHasher(cfg.Password)
	if err != nil {
		return nil, err
	}
	dummyHash, err := hasher.Hash(dummyPassword)
	if err != nil {
		return nil, err
	}

	// -------- TOKEN CODEC --------
	codec, err := jwt.NewManager(jwt.Config{
		SigningMethod: jwt.SigningMethod(cfg.JWT.SigningMethod),
		PrivateKey:    cfg.JWT.PrivateKey,
		PublicKey:     cfg.JWT.PublicKey,
		KeyID:         cfg.JWT.KeyID,
		VerifyKeys:    cfg.JWT.VerifyKeys,
		Issuer:        cfg.JWT.Issuer,
		Audience:      cfg.JWT.Audience,
		Leeway:        cfg.JWT.Leeway,
		Now:           now,
	})
	if err != nil {
		return nil, err
	}

	validate, err := newInputValidator(cfg.Password)
	if err != nil {
		return nil, err
	}

	e := &Engine{
		config:    cfg,
		store:     b.store,
		hasher:    hasher,
		codec:     codec,
		validate:  validate,
		metrics:   NewMetrics(cfg.Metrics),
		logger:    logger,
		now:       now,
		dummyHash: dummyHash,
	}

	// -------- THROTTLING --------
	loginPolicy := rate.Policy{
		MaxAttempts: cfg.Security.MaxLoginAttempts,
		Window:      cfg.Security.LoginCooldownDuration,
	}
	resetPolicy := rate.Policy{
		MaxAttempts: cfg.PasswordReset.MaxRequests,
		Window:      cfg.PasswordReset.RequestCooldown,
	}
	if b.redis != nil {
		e.loginLimiter = rate.NewRedis(b.redis, loginPolicy)
		e.resetLimiter = rate.NewRedis(b.redis, resetPolicy)
	} else {
		e.loginLimiter = rate.NewLocal(loginPolicy)
		e.resetLimiter = rate.NewLocal(resetPolicy)
	}

	// -------- REDIS HOOKS --------
	if cfg.Session.EnableRevocation {
		e.revocations = session.NewRevocationList(b.redis, cfg.Session.RedisPrefix)
	}
	if cfg.TOTP.Enabled {
		e.totp = newTOTPManager(cfg.TOTP)
		if cfg.TOTP.EnforceReplayProtection {
			e.totpReplay = stores.NewTOTPReplayStore(b.redis, cfg.Session.RedisPrefix+":totp")
		}
	}

	// -------- AUDIT --------
	if cfg.Audit.Enabled {
		e.audit = audit.NewDispatcher(audit.Config{
			Enabled:    true,
			BufferSize: cfg.Audit.BufferSize,
			DropIfFull: cfg.Audit.DropIfFull,
		}, b.auditSink)
	}

	b.built = true
	return e, nil
}

func buildHasher(cfg PasswordConfig) (*password.Multi, error) {
	argon, err := password.NewArgon2(password.Config{
		Memory:      cfg.Memory,
		Time:        cfg.Time,
		Parallelism: cfg.Parallelism,
		SaltLength:  cfg.SaltLength,
		KeyLength:   cfg.KeyLength,
	})
	if err != nil && cfg.Algorithm == "argon2id" {
		return nil, err
	}
	bcryptHasher, bErr := password.NewBcrypt(cfg.BcryptCost)
	if bErr != nil && cfg.Algorithm == "bcrypt" {
		return nil, bErr
	}

	switch cfg.Algorithm {
	case "bcrypt":
		if argon == nil {
			return password.NewMulti(bcryptHasher)
		}
		return password.NewMulti(bcryptHasher, argon)
	default:
		if bcryptHasher == nil {
			return password.NewMulti(argon)
		}
		return password.NewMulti(argon, bcryptHasher)
	}
}
