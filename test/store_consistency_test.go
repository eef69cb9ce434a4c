package test

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	webAuth "github.com/MrEthical07/webAuth"
)

func createUser(t *testing.T, s webAuth.CredentialStore, email string) webAuth.User {
	t.Helper()
	u, err := s.CreateUser(context.Background(), webAuth.NewUser{
		Email:        email,
		Name:         "Test",
		PasswordHash: "hash",
		Role:         webAuth.RoleUser,
	})
	require.NoError(t, err)
	return u
}

// Every CredentialStore must agree on lookup, conflict and atomic update
// semantics, since the engine relies on them for one-shot operations.
func TestStoreConsistency(t *testing.T) {
	for _, mode := range backendModes(t) {
		t.Run(mode.name, func(t *testing.T) {
			t.Run("CreateAndFindCaseInsensitive", func(t *testing.T) {
				s := mode.open(t).store
				ctx := context.Background()

				created := createUser(t, s, "Mixed.Case@Example.com")
				assert.Equal(t, "mixed.case@example.com", created.Email)
				assert.NotEmpty(t, created.ID)

				byEmail, err := s.FindUserByEmail(ctx, "MIXED.case@example.COM")
				require.NoError(t, err)
				assert.Equal(t, created.ID, byEmail.ID)

				byID, err := s.FindUserByID(ctx, created.ID)
				require.NoError(t, err)
				assert.Equal(t, webAuth.RoleUser, byID.Role)
			})

			t.Run("DuplicateEmail", func(t *testing.T) {
				s := mode.open(t).store
				createUser(t, s, "dup@example.com")

				_, err := s.CreateUser(context.Background(), webAuth.NewUser{
					Email: "DUP@example.com", PasswordHash: "h", Role: webAuth.RoleUser,
				})
				assert.ErrorIs(t, err, webAuth.ErrAccountExists)
			})

			t.Run("MissingUser", func(t *testing.T) {
				s := mode.open(t).store
				ctx := context.Background()
				missing := uuid.NewString()

				_, err := s.FindUserByEmail(ctx, "nobody@example.com")
				assert.ErrorIs(t, err, webAuth.ErrRecordNotFound)
				_, err = s.FindUserByID(ctx, missing)
				assert.ErrorIs(t, err, webAuth.ErrRecordNotFound)
				_, err = s.FindPermissionsForUser(ctx, missing)
				assert.ErrorIs(t, err, webAuth.ErrRecordNotFound)
				name := "x"
				_, err = s.UpdateUser(ctx, missing, webAuth.UserUpdate{Name: &name})
				assert.ErrorIs(t, err, webAuth.ErrRecordNotFound)
				assert.ErrorIs(t, s.CommitTwoFactor(ctx, missing, "SECRET"), webAuth.ErrRecordNotFound)
			})

			t.Run("PartialUpdate", func(t *testing.T) {
				s := mode.open(t).store
				ctx := context.Background()
				u := createUser(t, s, "partial@example.com")

				role := webAuth.RoleEditor
				updated, err := s.UpdateUser(ctx, u.ID, webAuth.UserUpdate{Role: &role})
				require.NoError(t, err)
				assert.Equal(t, webAuth.RoleEditor, updated.Role)
				assert.Equal(t, "Test", updated.Name)
				assert.Equal(t, "hash", updated.PasswordHash)
			})

			t.Run("CommitTwoFactorOnce", func(t *testing.T) {
				s := mode.open(t).store
				ctx := context.Background()
				u := createUser(t, s, "totp@example.com")

				require.NoError(t, s.CommitTwoFactor(ctx, u.ID, "FIRST"))
				assert.ErrorIs(t, s.CommitTwoFactor(ctx, u.ID, "SECOND"), webAuth.ErrConflict)

				got, err := s.FindUserByID(ctx, u.ID)
				require.NoError(t, err)
				assert.True(t, got.TwoFactorEnabled)
				assert.Equal(t, "FIRST", got.TwoFactorSecret)

				got, err = s.UpdateUser(ctx, u.ID, webAuth.UserUpdate{TwoFactor: &webAuth.TwoFactorState{}})
				require.NoError(t, err)
				assert.False(t, got.TwoFactorEnabled)
				assert.Empty(t, got.TwoFactorSecret)
			})

			t.Run("ResetTokenExpiry", func(t *testing.T) {
				s := mode.open(t).store
				ctx := context.Background()
				u := createUser(t, s, "expired@example.com")
				now := time.Now().UTC().Truncate(time.Second)

				_, err := s.UpdateUser(ctx, u.ID, webAuth.UserUpdate{
					ResetToken: &webAuth.ResetToken{Hash: "expired-hash", ExpiresAt: now},
				})
				require.NoError(t, err)

				_, err = s.ConsumeResetToken(ctx, "expired-hash", now, "new")
				assert.ErrorIs(t, err, webAuth.ErrRecordNotFound)
				_, err = s.ConsumeResetToken(ctx, "", now, "new")
				assert.ErrorIs(t, err, webAuth.ErrRecordNotFound)
			})

			t.Run("ResetTokenConsumedOnce", func(t *testing.T) {
				s := mode.open(t).store
				ctx := context.Background()
				u := createUser(t, s, "reset@example.com")
				now := time.Now().UTC().Truncate(time.Second)

				_, err := s.UpdateUser(ctx, u.ID, webAuth.UserUpdate{
					ResetToken: &webAuth.ResetToken{Hash: "token-hash", ExpiresAt: now.Add(time.Hour)},
				})
				require.NoError(t, err)

				var (
					wg      sync.WaitGroup
					success atomic.Int32
				)
				for range 8 {
					wg.Add(1)
					go func() {
						defer wg.Done()
						_, err := s.ConsumeResetToken(ctx, "token-hash", now, "new-hash")
						if err == nil {
							success.Add(1)
						} else if !errors.Is(err, webAuth.ErrRecordNotFound) {
							t.Errorf("unexpected error: %v", err)
						}
					}()
				}
				wg.Wait()
				assert.Equal(t, int32(1), success.Load())

				got, err := s.FindUserByID(ctx, u.ID)
				require.NoError(t, err)
				assert.Equal(t, "new-hash", got.PasswordHash)
				assert.Empty(t, got.ResetTokenHash)
				assert.True(t, got.ResetTokenExpiresAt.IsZero())
			})

			t.Run("Permissions", func(t *testing.T) {
				b := mode.open(t)
				ctx := context.Background()
				u := createUser(t, b.store, "perms@example.com")

				perms, err := b.store.FindPermissionsForUser(ctx, u.ID)
				require.NoError(t, err)
				assert.Empty(t, perms)

				require.NoError(t, b.grant(ctx, u.ID, "users.manage", "content.publish"))
				perms, err = b.store.FindPermissionsForUser(ctx, u.ID)
				require.NoError(t, err)
				assert.ElementsMatch(t, []webAuth.Permission{"content.publish", "users.manage"}, perms)

				assert.ErrorIs(t, b.grant(ctx, uuid.NewString(), "users.manage"), webAuth.ErrRecordNotFound)
			})
		})
	}
}
