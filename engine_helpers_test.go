package webAuth

import (
	"context"
	"errors"
	"strconv"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
)

var errStoreDown = errors.New("store down")

type mockStore struct {
	mu        sync.Mutex
	users     map[string]User
	perms     map[string][]Permission
	nextID    int
	failPerms bool

	permLookups int
}

func newMockStore() *mockStore {
	return &mockStore{
		users: make(map[string]User),
		perms: make(map[string][]Permission),
	}
}

func (m *mockStore) FindUserByEmail(_ context.Context, email string) (User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, u := range m.users {
		if u.Email == strings.ToLower(email) {
			return u, nil
		}
	}
	return User{}, ErrRecordNotFound
}

func (m *mockStore) FindUserByID(_ context.Context, id string) (User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.users[id]
	if !ok {
		return User{}, ErrRecordNotFound
	}
	return u, nil
}

func (m *mockStore) CreateUser(_ context.Context, nu NewUser) (User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, u := range m.users {
		if u.Email == nu.Email {
			return User{}, ErrAccountExists
		}
	}
	m.nextID++
	u := User{
		ID:           "u" + strconv.Itoa(m.nextID),
		Email:        nu.Email,
		Name:         nu.Name,
		PasswordHash: nu.PasswordHash,
		Role:         nu.Role,
	}
	m.users[u.ID] = u
	return u, nil
}

func (m *mockStore) UpdateUser(_ context.Context, id string, up UserUpdate) (User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.users[id]
	if !ok {
		return User{}, ErrRecordNotFound
	}
	if up.Name != nil {
		u.Name = *up.Name
	}
	if up.PasswordHash != nil {
		u.PasswordHash = *up.PasswordHash
	}
	if up.Role != nil {
		u.Role = *up.Role
	}
	if up.TwoFactor != nil {
		u.TwoFactorEnabled = up.TwoFactor.Enabled
		u.TwoFactorSecret = up.TwoFactor.Secret
	}
	if up.ResetToken != nil {
		u.ResetTokenHash = up.ResetToken.Hash
		u.ResetTokenExpiresAt = up.ResetToken.ExpiresAt
	}
	m.users[id] = u
	return u, nil
}

func (m *mockStore) FindPermissionsForUser(_ context.Context, id string) ([]Permission, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.permLookups++
	if m.failPerms {
		return nil, errStoreDown
	}
	if _, ok := m.users[id]; !ok {
		return nil, ErrRecordNotFound
	}
	return append([]Permission(nil), m.perms[id]...), nil
}

func (m *mockStore) ConsumeResetToken(_ context.Context, tokenHash string, now time.Time, newHash string) (User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for id, u := range m.users {
		if tokenHash == "" || u.ResetTokenHash != tokenHash || !u.ResetTokenExpiresAt.After(now) {
			continue
		}
		u.PasswordHash = newHash
		u.ResetTokenHash = ""
		u.ResetTokenExpiresAt = time.Time{}
		m.users[id] = u
		return u, nil
	}
	return User{}, ErrRecordNotFound
}

func (m *mockStore) CommitTwoFactor(_ context.Context, id, secret string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.users[id]
	if !ok {
		return ErrRecordNotFound
	}
	if u.TwoFactorEnabled {
		return ErrConflict
	}
	u.TwoFactorEnabled = true
	u.TwoFactorSecret = secret
	m.users[id] = u
	return nil
}

func (m *mockStore) user(id string) User {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.users[id]
}

type testClock struct {
	mu  sync.Mutex
	now time.Time
}

func newTestClock() *testClock {
	return &testClock{now: time.Date(2026, 3, 14, 9, 0, 0, 0, time.UTC)}
}

func (c *testClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *testClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

func newTestRedis(t testing.TB) (*miniredis.Miniredis, *redis.Client) {
	t.Helper()

	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("miniredis.Run failed: %v", err)
	}
	t.Cleanup(mr.Close)

	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return mr, client
}

func testConfig() Config {
	cfg := DefaultConfig()
	cfg.JWT.PrivateKey = []byte("0123456789abcdef0123456789abcdef")
	cfg.Password.Memory = 8 * 1024
	cfg.Password.Time = 1
	cfg.Password.Parallelism = 1
	cfg.Password.BcryptCost = 4
	return cfg
}

type testHarness struct {
	engine *Engine
	store  *mockStore
	clock  *testClock
	redis  *miniredis.Miniredis
}

func newTestHarness(t testing.TB, mutate func(cfg *Config)) *testHarness {
	t.Helper()

	cfg := testConfig()
	if mutate != nil {
		mutate(&cfg)
	}

	mr, rdb := newTestRedis(t)
	store := newMockStore()
	clock := newTestClock()

	engine, err := New().
		WithConfig(cfg).
		WithCredentialStore(store).
		WithRedis(rdb).
		WithClock(clock.Now).
		Build()
	if err != nil {
		t.Fatalf("Build failed: %v", err)
	}
	t.Cleanup(engine.Close)

	return &testHarness{engine: engine, store: store, clock: clock, redis: mr}
}

func (h *testHarness) addUser(t testing.TB, email, password string, role Role, perms ...Permission) User {
	t.Helper()

	digest, err := h.engine.hasher.Hash(password)
	if err != nil {
		t.Fatalf("Hash failed: %v", err)
	}
	u, err := h.store.CreateUser(context.Background(), NewUser{Email: email, PasswordHash: digest, Role: role})
	if err != nil {
		t.Fatalf("CreateUser failed: %v", err)
	}
	h.store.mu.Lock()
	h.store.perms[u.ID] = perms
	h.store.mu.Unlock()
	return u
}

func (h *testHarness) login(t testing.TB, email, password string) *LoginResult {
	t.Helper()

	res, err := h.engine.Login(context.Background(), email, password)
	if err != nil {
		t.Fatalf("Login(%s) failed: %v", email, err)
	}
	return res
}
