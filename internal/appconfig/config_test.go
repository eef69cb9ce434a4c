package appconfig

import (
	"bytes"
	"net/http"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testSecret = "0123456789abcdef0123456789abcdef"

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "webauth.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func TestLoadDefaultsAndEnv(t *testing.T) {
	t.Setenv("WEBAUTH_AUTH_JWT_SECRET", testSecret)
	t.Setenv("WEBAUTH_STORE_DRIVER", "memory")

	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, ":8080", cfg.Server.Addr)
	assert.Equal(t, "memory", cfg.Store.Driver)
	assert.Equal(t, 7*24*time.Hour, cfg.Auth.SessionTTL)
	assert.Equal(t, 6, cfg.Auth.PasswordMinLength)

	engineCfg := cfg.EngineConfig()
	require.NoError(t, engineCfg.Validate())
	assert.Equal(t, []byte(testSecret), engineCfg.JWT.PrivateKey)
	assert.Equal(t, http.SameSiteLaxMode, engineCfg.Session.SameSite)
}

func TestLoadFileWithEnvOverride(t *testing.T) {
	path := writeConfig(t, `
server:
  addr: ":9090"
store:
  driver: postgres
  dsn: postgres://localhost/webauth
redis:
  addr: localhost:6379
auth:
  jwt_secret: "`+testSecret+`"
  session_ttl: 12h
  revocation: true
  same_site: strict
log:
  level: debug
  format: json
`)
	t.Setenv("WEBAUTH_SERVER_ADDR", ":7070")

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, ":7070", cfg.Server.Addr)
	assert.Equal(t, 12*time.Hour, cfg.Auth.SessionTTL)
	assert.True(t, cfg.Auth.Revocation)

	engineCfg := cfg.EngineConfig()
	assert.True(t, engineCfg.Session.EnableRevocation)
	assert.Equal(t, http.SameSiteStrictMode, engineCfg.Session.SameSite)
	assert.Equal(t, 12*time.Hour, engineCfg.Session.TTL)
}

func TestLoadRejectsInvalid(t *testing.T) {
	cases := map[string]string{
		"short secret": `
store: {driver: memory}
auth: {jwt_secret: short}
`,
		"postgres without dsn": `
store: {driver: postgres}
auth: {jwt_secret: "` + testSecret + `"}
`,
		"revocation without redis": `
store: {driver: memory}
auth: {jwt_secret: "` + testSecret + `", revocation: true}
`,
		"unknown driver": `
store: {driver: mongo}
auth: {jwt_secret: "` + testSecret + `"}
`,
		"same_site none outside production": `
store: {driver: memory}
auth: {jwt_secret: "` + testSecret + `", same_site: none}
`,
	}
	for name, body := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := Load(writeConfig(t, body))
			assert.Error(t, err)
		})
	}
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}

func TestLoggerFormat(t *testing.T) {
	var buf bytes.Buffer
	LogConfig{Level: "warn", Format: "json"}.Logger(&buf).Info("hidden")
	assert.Zero(t, buf.Len())

	LogConfig{Level: "debug", Format: "json"}.Logger(&buf).Debug("shown", "user_id", "u1")
	assert.Contains(t, buf.String(), `"user_id":"u1"`)
}
