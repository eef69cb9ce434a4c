package webAuth

import (
	"context"
	"strings"
	"testing"
)

func TestBuildRequiresStore(t *testing.T) {
	if _, err := New().WithConfig(testConfig()).Build(); err == nil {
		t.Fatal("expected error without credential store")
	}
}

func TestBuildRedisOnlyFeaturesNeedRedis(t *testing.T) {
	cfg := testConfig()
	cfg.Session.EnableRevocation = true
	if _, err := New().WithConfig(cfg).WithCredentialStore(newMockStore()).Build(); err == nil {
		t.Fatal("expected revocation without redis to fail")
	}

	cfg = testConfig()
	cfg.TOTP.EnforceReplayProtection = true
	if _, err := New().WithConfig(cfg).WithCredentialStore(newMockStore()).Build(); err == nil {
		t.Fatal("expected replay protection without redis to fail")
	}
}

func TestBuilderSingleUse(t *testing.T) {
	b := New().WithConfig(testConfig()).WithCredentialStore(newMockStore())
	e, err := b.Build()
	if err != nil {
		t.Fatalf("Build failed: %v", err)
	}
	defer e.Close()

	if _, err := b.Build(); err == nil {
		t.Fatal("expected second Build to fail")
	}
}

func TestEngineWithoutRedisThrottlesInProcess(t *testing.T) {
	cfg := testConfig()
	cfg.Security.MaxLoginAttempts = 2
	store := newMockStore()
	e, err := New().WithConfig(cfg).WithCredentialStore(store).Build()
	if err != nil {
		t.Fatalf("Build failed: %v", err)
	}
	defer e.Close()

	ctx := context.Background()
	for i := 0; i < 2; i++ {
		_, _ = e.Login(ctx, "ghost@example.com", "whatever")
	}
	if _, err := e.Login(ctx, "ghost@example.com", "whatever"); err != ErrLoginRateLimited {
		t.Fatalf("expected ErrLoginRateLimited, got %v", err)
	}
}

func TestBcryptPrimaryStillVerifiesArgon2(t *testing.T) {
	cfg := testConfig()
	argonEngine, err := New().WithConfig(cfg).WithCredentialStore(newMockStore()).Build()
	if err != nil {
		t.Fatalf("Build failed: %v", err)
	}
	defer argonEngine.Close()
	digest, err := argonEngine.hasher.Hash("correct-password")
	if err != nil {
		t.Fatalf("Hash failed: %v", err)
	}

	cfg.Password.Algorithm = "bcrypt"
	cfg.Password.MaxLength = 72
	bcryptEngine, err := New().WithConfig(cfg).WithCredentialStore(newMockStore()).Build()
	if err != nil {
		t.Fatalf("Build failed: %v", err)
	}
	defer bcryptEngine.Close()

	ok, err := bcryptEngine.hasher.Verify("correct-password", digest)
	if err != nil || !ok {
		t.Fatalf("expected argon2 digest to verify, ok=%v err=%v", ok, err)
	}
	upgrade, err := bcryptEngine.hasher.NeedsUpgrade(digest)
	if err != nil || !upgrade {
		t.Fatalf("expected argon2 digest to need upgrade, upgrade=%v err=%v", upgrade, err)
	}
	fresh, err := bcryptEngine.hasher.Hash("correct-password")
	if err != nil || !strings.HasPrefix(fresh, "$2") {
		t.Fatalf("expected bcrypt digest, got %q err=%v", fresh, err)
	}
}

func TestSecurityReport(t *testing.T) {
	h := newTestHarness(t, func(cfg *Config) {
		cfg.Session.EnableRevocation = true
	})
	r := h.engine.SecurityReport()
	if r.SigningAlgorithm != "hs256" || !r.RevocationEnabled || r.TOTPReplayProtection {
		t.Fatalf("unexpected report: %+v", r)
	}
	if r.Password.Algorithm != "argon2id" || r.Password.MinLength != 6 || r.DefaultRole != "USER" {
		t.Fatalf("unexpected password report: %+v", r.Password)
	}
	if r.SameSite != "lax" || r.CookieSecure {
		t.Fatalf("unexpected cookie report: %+v", r)
	}
}
