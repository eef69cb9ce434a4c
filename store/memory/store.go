// Package memory is an in-process webAuth.CredentialStore for tests, examples
// and single-instance deployments that can afford to lose accounts on restart.
package memory

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/MrEthical07/webAuth"
	"github.com/google/uuid"
)

// Store keeps users and their permission grants in maps guarded by one mutex.
// Conditional updates run entirely under the write lock.
type Store struct {
	mu      sync.RWMutex
	users   map[string]webAuth.User
	byEmail map[string]string
	perms   map[string][]webAuth.Permission
	now     func() time.Time
}

// New returns an empty Store.
func New() *Store {
	return &Store{
		users:   make(map[string]webAuth.User),
		byEmail: make(map[string]string),
		perms:   make(map[string][]webAuth.Permission),
		now:     time.Now,
	}
}

// WithClock sets the clock used for CreatedAt and UpdatedAt.
func (s *Store) WithClock(now func() time.Time) *Store {
	s.now = now
	return s
}

// FindUserByEmail looks up a user by case-insensitive email.
func (s *Store) FindUserByEmail(_ context.Context, email string) (webAuth.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	id, ok := s.byEmail[normalize(email)]
	if !ok {
		return webAuth.User{}, webAuth.ErrRecordNotFound
	}
	return s.users[id], nil
}

// FindUserByID looks up a user by id.
func (s *Store) FindUserByID(_ context.Context, id string) (webAuth.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	u, ok := s.users[id]
	if !ok {
		return webAuth.User{}, webAuth.ErrRecordNotFound
	}
	return u, nil
}

// CreateUser inserts nu with a fresh id. A taken email returns webAuth.ErrAccountExists.
func (s *Store) CreateUser(_ context.Context, nu webAuth.NewUser) (webAuth.User, error) {
	email := normalize(nu.Email)

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.byEmail[email]; exists {
		return webAuth.User{}, webAuth.ErrAccountExists
	}
	now := s.now().UTC()
	u := webAuth.User{
		ID:           uuid.NewString(),
		Email:        email,
		Name:         nu.Name,
		PasswordHash: nu.PasswordHash,
		Role:         nu.Role,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	s.users[u.ID] = u
	s.byEmail[email] = u.ID
	return u, nil
}

// UpdateUser applies the non-nil fields of update and returns the stored user.
func (s *Store) UpdateUser(_ context.Context, id string, update webAuth.UserUpdate) (webAuth.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	u, ok := s.users[id]
	if !ok {
		return webAuth.User{}, webAuth.ErrRecordNotFound
	}
	if update.Name != nil {
		u.Name = *update.Name
	}
	if update.PasswordHash != nil {
		u.PasswordHash = *update.PasswordHash
	}
	if update.Role != nil {
		u.Role = *update.Role
	}
	if update.TwoFactor != nil {
		u.TwoFactorEnabled = update.TwoFactor.Enabled
		u.TwoFactorSecret = update.TwoFactor.Secret
		if !u.TwoFactorEnabled {
			u.TwoFactorSecret = ""
		}
	}
	if update.ResetToken != nil {
		u.ResetTokenHash = update.ResetToken.Hash
		u.ResetTokenExpiresAt = update.ResetToken.ExpiresAt
		if u.ResetTokenHash == "" {
			u.ResetTokenExpiresAt = time.Time{}
		}
	}
	u.UpdatedAt = s.now().UTC()
	s.users[id] = u
	return u, nil
}

// FindPermissionsForUser returns the user's grants.
func (s *Store) FindPermissionsForUser(_ context.Context, id string) ([]webAuth.Permission, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if _, ok := s.users[id]; !ok {
		return nil, webAuth.ErrRecordNotFound
	}
	return append([]webAuth.Permission(nil), s.perms[id]...), nil
}

// ConsumeResetToken sets the password of the user holding an unexpired tokenHash
// and clears the token in the same update.
func (s *Store) ConsumeResetToken(_ context.Context, tokenHash string, now time.Time, newPasswordHash string) (webAuth.User, error) {
	if tokenHash == "" {
		return webAuth.User{}, webAuth.ErrRecordNotFound
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	for id, u := range s.users {
		if u.ResetTokenHash != tokenHash {
			continue
		}
		if !u.ResetTokenExpiresAt.After(now) {
			return webAuth.User{}, webAuth.ErrRecordNotFound
		}
		u.PasswordHash = newPasswordHash
		u.ResetTokenHash = ""
		u.ResetTokenExpiresAt = time.Time{}
		u.UpdatedAt = s.now().UTC()
		s.users[id] = u
		return u, nil
	}
	return webAuth.User{}, webAuth.ErrRecordNotFound
}

// CommitTwoFactor enables two-factor with secret unless it is already enabled,
// in which case it returns webAuth.ErrConflict.
func (s *Store) CommitTwoFactor(_ context.Context, id string, secret string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	u, ok := s.users[id]
	if !ok {
		return webAuth.ErrRecordNotFound
	}
	if u.TwoFactorEnabled {
		return webAuth.ErrConflict
	}
	u.TwoFactorEnabled = true
	u.TwoFactorSecret = secret
	u.UpdatedAt = s.now().UTC()
	s.users[id] = u
	return nil
}

// Grant adds perms to the user's permission set.
func (s *Store) Grant(id string, perms ...webAuth.Permission) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.users[id]; !ok {
		return webAuth.ErrRecordNotFound
	}
	s.perms[id] = append(s.perms[id], perms...)
	return nil
}

// Revoke removes every grant of perm from the user.
func (s *Store) Revoke(id string, perm webAuth.Permission) {
	s.mu.Lock()
	defer s.mu.Unlock()

	kept := s.perms[id][:0]
	for _, p := range s.perms[id] {
		if p != perm {
			kept = append(kept, p)
		}
	}
	s.perms[id] = kept
}

func normalize(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

var _ webAuth.CredentialStore = (*Store)(nil)
