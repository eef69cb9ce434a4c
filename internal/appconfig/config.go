// Package appconfig loads the webauth-server configuration.
//
// Values come from defaults, an optional YAML file, and WEBAUTH_ prefixed
// environment variables, in increasing order of precedence. Nested keys map
// to variables by replacing dots with underscores: auth.jwt_secret is read
// from WEBAUTH_AUTH_JWT_SECRET.
package appconfig

import (
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/spf13/viper"

	webAuth "github.com/MrEthical07/webAuth"
)

// EnvPrefix is the environment variable prefix.
const EnvPrefix = "WEBAUTH"

// Config is the server configuration.
type Config struct {
	Server  ServerConfig  `mapstructure:"server"`
	Store   StoreConfig   `mapstructure:"store"`
	Redis   RedisConfig   `mapstructure:"redis"`
	Auth    AuthConfig    `mapstructure:"auth"`
	Log     LogConfig     `mapstructure:"log"`
	Startup StartupConfig `mapstructure:"startup"`
}

// ServerConfig controls the HTTP listener.
type ServerConfig struct {
	Addr            string        `mapstructure:"addr" validate:"required"`
	ReadTimeout     time.Duration `mapstructure:"read_timeout" validate:"gt=0"`
	WriteTimeout    time.Duration `mapstructure:"write_timeout" validate:"gt=0"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout" validate:"gt=0"`
	// ResetOutbox is a file that receives password reset links as JSON lines.
	// Empty disables delivery.
	ResetOutbox string `mapstructure:"reset_outbox"`
	// ResetURL is the page that consumes reset tokens, e.g. https://app.example/reset-password.
	ResetURL string `mapstructure:"reset_url" validate:"omitempty,url"`
}

// StoreConfig selects the credential store backend.
type StoreConfig struct {
	Driver     string `mapstructure:"driver" validate:"oneof=postgres sqlite memory"`
	DSN        string `mapstructure:"dsn" validate:"required_if=Driver postgres"`
	SQLitePath string `mapstructure:"sqlite_path" validate:"required_if=Driver sqlite"`
	Migrate    bool   `mapstructure:"migrate"`
}

// RedisConfig points at the Redis instance used for throttling, revocation
// and TOTP replay protection. An empty Addr runs without Redis.
type RedisConfig struct {
	Addr     string `mapstructure:"addr"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db" validate:"gte=0"`
	Prefix   string `mapstructure:"prefix" validate:"required"`
}

// AuthConfig is the subset of engine settings exposed to operators.
type AuthConfig struct {
	JWTSecret         string        `mapstructure:"jwt_secret" validate:"required,min=32"`
	Issuer            string        `mapstructure:"issuer" validate:"required"`
	SessionTTL        time.Duration `mapstructure:"session_ttl" validate:"gt=0"`
	CookieName        string        `mapstructure:"cookie_name" validate:"required"`
	SameSite          string        `mapstructure:"same_site" validate:"oneof=lax strict none"`
	Production        bool          `mapstructure:"production"`
	AllowRegistration bool          `mapstructure:"allow_registration"`
	Revocation        bool          `mapstructure:"revocation"`
	PasswordAlgorithm string        `mapstructure:"password_algorithm" validate:"oneof=argon2id bcrypt"`
	PasswordMinLength int           `mapstructure:"password_min_length" validate:"gte=1"`
	ResetEnabled      bool          `mapstructure:"reset_enabled"`
	ResetTokenTTL     time.Duration `mapstructure:"reset_token_ttl" validate:"gt=0"`
	ResetMaxRequests  int           `mapstructure:"reset_max_requests" validate:"gte=0"`
	ResetCooldown     time.Duration `mapstructure:"reset_cooldown" validate:"gt=0"`
	TOTPEnabled       bool          `mapstructure:"totp_enabled"`
	TOTPIssuer        string        `mapstructure:"totp_issuer" validate:"required_if=TOTPEnabled true"`
	TOTPReplayGuard   bool          `mapstructure:"totp_replay_guard"`
	MaxLoginAttempts  int           `mapstructure:"max_login_attempts" validate:"gte=0"`
	LoginCooldown     time.Duration `mapstructure:"login_cooldown" validate:"gt=0"`
	IPThrottle        bool          `mapstructure:"ip_throttle"`
	Audit             bool          `mapstructure:"audit"`
	Metrics           bool          `mapstructure:"metrics"`
}

// LogConfig controls the process logger.
type LogConfig struct {
	Level  string `mapstructure:"level" validate:"oneof=debug info warn error"`
	Format string `mapstructure:"format" validate:"oneof=text json"`
}

// StartupConfig bounds how long the server waits for its dependencies.
type StartupConfig struct {
	DialTimeout time.Duration `mapstructure:"dial_timeout" validate:"gt=0"`
}

func setDefaults(v *viper.Viper) {
	def := webAuth.DefaultConfig()

	v.SetDefault("server.addr", ":8080")
	v.SetDefault("server.read_timeout", 10*time.Second)
	v.SetDefault("server.write_timeout", 10*time.Second)
	v.SetDefault("server.shutdown_timeout", 15*time.Second)
	v.SetDefault("server.reset_outbox", "")
	v.SetDefault("server.reset_url", "http://localhost:8080/reset-password")

	v.SetDefault("store.driver", "postgres")
	v.SetDefault("store.dsn", "")
	v.SetDefault("store.sqlite_path", "")
	v.SetDefault("store.migrate", true)

	v.SetDefault("redis.addr", "")
	v.SetDefault("redis.password", "")
	v.SetDefault("redis.db", 0)
	v.SetDefault("redis.prefix", def.Session.RedisPrefix)

	v.SetDefault("auth.jwt_secret", "")
	v.SetDefault("auth.issuer", def.JWT.Issuer)
	v.SetDefault("auth.session_ttl", def.Session.TTL)
	v.SetDefault("auth.cookie_name", def.Session.CookieName)
	v.SetDefault("auth.same_site", "lax")
	v.SetDefault("auth.production", def.Security.ProductionMode)
	v.SetDefault("auth.allow_registration", def.Account.AllowRegistration)
	v.SetDefault("auth.revocation", false)
	v.SetDefault("auth.password_algorithm", def.Password.Algorithm)
	v.SetDefault("auth.password_min_length", def.Password.MinLength)
	v.SetDefault("auth.reset_enabled", def.PasswordReset.Enabled)
	v.SetDefault("auth.reset_token_ttl", def.PasswordReset.TokenTTL)
	v.SetDefault("auth.reset_max_requests", def.PasswordReset.MaxRequests)
	v.SetDefault("auth.reset_cooldown", def.PasswordReset.RequestCooldown)
	v.SetDefault("auth.totp_enabled", def.TOTP.Enabled)
	v.SetDefault("auth.totp_issuer", def.TOTP.Issuer)
	v.SetDefault("auth.totp_replay_guard", false)
	v.SetDefault("auth.max_login_attempts", def.Security.MaxLoginAttempts)
	v.SetDefault("auth.login_cooldown", def.Security.LoginCooldownDuration)
	v.SetDefault("auth.ip_throttle", def.Security.EnableIPThrottle)
	v.SetDefault("auth.audit", false)
	v.SetDefault("auth.metrics", true)

	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "text")

	v.SetDefault("startup.dial_timeout", 30*time.Second)
}

// Load reads the configuration. path may be empty, in which case only
// defaults and environment variables apply.
func Load(path string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
		v.SetConfigType("yaml")
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to decode config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks field constraints and cross-field rules.
func (c *Config) Validate() error {
	if err := validator.New().Struct(c); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}
	if c.Redis.Addr == "" && (c.Auth.Revocation || c.Auth.TOTPReplayGuard) {
		return fmt.Errorf("invalid config: auth.revocation and auth.totp_replay_guard require redis.addr")
	}
	if c.Auth.SameSite == "none" && !c.Auth.Production {
		return fmt.Errorf("invalid config: same_site none requires auth.production")
	}
	return nil
}

// EngineConfig maps the operator settings onto webAuth.DefaultConfig.
func (c *Config) EngineConfig() webAuth.Config {
	cfg := webAuth.DefaultConfig()

	cfg.JWT.PrivateKey = []byte(c.Auth.JWTSecret)
	cfg.JWT.Issuer = c.Auth.Issuer

	cfg.Session.TTL = c.Auth.SessionTTL
	cfg.Session.CookieName = c.Auth.CookieName
	cfg.Session.SameSite = sameSite(c.Auth.SameSite)
	cfg.Session.EnableRevocation = c.Auth.Revocation
	cfg.Session.RedisPrefix = c.Redis.Prefix

	cfg.Password.Algorithm = c.Auth.PasswordAlgorithm
	cfg.Password.MinLength = c.Auth.PasswordMinLength
	if c.Auth.PasswordAlgorithm == "bcrypt" && cfg.Password.MaxLength > 72 {
		cfg.Password.MaxLength = 72
	}

	cfg.PasswordReset.Enabled = c.Auth.ResetEnabled
	cfg.PasswordReset.TokenTTL = c.Auth.ResetTokenTTL
	cfg.PasswordReset.MaxRequests = c.Auth.ResetMaxRequests
	cfg.PasswordReset.RequestCooldown = c.Auth.ResetCooldown

	cfg.TOTP.Enabled = c.Auth.TOTPEnabled
	cfg.TOTP.Issuer = c.Auth.TOTPIssuer
	cfg.TOTP.EnforceReplayProtection = c.Auth.TOTPReplayGuard

	cfg.Account.AllowRegistration = c.Auth.AllowRegistration

	cfg.Security.ProductionMode = c.Auth.Production
	cfg.Security.EnableIPThrottle = c.Auth.IPThrottle
	cfg.Security.MaxLoginAttempts = c.Auth.MaxLoginAttempts
	cfg.Security.LoginCooldownDuration = c.Auth.LoginCooldown

	cfg.Audit.Enabled = c.Auth.Audit
	cfg.Metrics.Enabled = c.Auth.Metrics
	return cfg
}

// Logger builds the process logger writing to w.
func (c LogConfig) Logger(w io.Writer) *slog.Logger {
	var level slog.Level
	switch c.Level {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		level = slog.LevelInfo
	}
	opts := &slog.HandlerOptions{Level: level}
	if c.Format == "json" {
		return slog.New(slog.NewJSONHandler(w, opts))
	}
	return slog.New(slog.NewTextHandler(w, opts))
}

func sameSite(mode string) http.SameSite {
	switch mode {
	case "strict":
		return http.SameSiteStrictMode
	case "none":
		return http.SameSiteNoneMode
	default:
		return http.SameSiteLaxMode
	}
}
