// Package gormstore implements webAuth.CredentialStore with GORM.
//
// Open uses the SQLite driver; New accepts any *gorm.DB whose dialect
// supports conditional UPDATE statements.
package gormstore

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	webAuth "github.com/MrEthical07/webAuth"
	"github.com/MrEthical07/webAuth/permission"
)

// Store is a GORM-backed CredentialStore.
type Store struct {
	db  *gorm.DB
	now func() time.Time
}

var _ webAuth.CredentialStore = (*Store)(nil)

// Open connects to the SQLite database at path and migrates the schema.
func Open(path string) (*Store, error) {
	db, err := gorm.Open(sqlite.Open(path), &gorm.Config{
		Logger:         logger.Default.LogMode(logger.Silent),
		TranslateError: true,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	// SQLite allows a single writer.
	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to access database handle: %w", err)
	}
	sqlDB.SetMaxOpenConns(1)

	return New(db)
}

// New wraps db and runs AutoMigrate for the users and user_permissions tables.
// Set gorm.Config.TranslateError so duplicate emails surface as
// webAuth.ErrAccountExists.
func New(db *gorm.DB) (*Store, error) {
	if err := db.AutoMigrate(&userRecord{}, &permissionRecord{}); err != nil {
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}
	return &Store{db: db, now: time.Now}, nil
}

// WithClock overrides the timestamp source for created_at and updated_at.
func (s *Store) WithClock(now func() time.Time) *Store {
	s.now = now
	return s
}

// Close releases the underlying connection pool.
func (s *Store) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

// FindUserByEmail looks up a user by case-insensitive email.
func (s *Store) FindUserByEmail(ctx context.Context, email string) (webAuth.User, error) {
	var rec userRecord
	if err := s.db.WithContext(ctx).Where("email = ?", normalize(email)).First(&rec).Error; err != nil {
		return webAuth.User{}, translate(err)
	}
	return toUser(rec), nil
}

// FindUserByID looks up a user by id.
func (s *Store) FindUserByID(ctx context.Context, id string) (webAuth.User, error) {
	var rec userRecord
	if err := s.db.WithContext(ctx).Where("id = ?", id).First(&rec).Error; err != nil {
		return webAuth.User{}, translate(err)
	}
	return toUser(rec), nil
}

// CreateUser inserts nu with a fresh id. A taken email returns webAuth.ErrAccountExists.
func (s *Store) CreateUser(ctx context.Context, nu webAuth.NewUser) (webAuth.User, error) {
	now := s.now().UTC()
	rec := userRecord{
		ID:           uuid.NewString(),
		Email:        normalize(nu.Email),
		Name:         nu.Name,
		PasswordHash: nu.PasswordHash,
		Role:         nu.Role.String(),
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err := s.db.WithContext(ctx).Create(&rec).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return webAuth.User{}, webAuth.ErrAccountExists
		}
		return webAuth.User{}, translate(err)
	}
	return toUser(rec), nil
}

// UpdateUser applies the non-nil fields of update and returns the stored user.
func (s *Store) UpdateUser(ctx context.Context, id string, update webAuth.UserUpdate) (webAuth.User, error) {
	changes := map[string]any{"updated_at": s.now().UTC()}
	if update.Name != nil {
		changes["name"] = *update.Name
	}
	if update.PasswordHash != nil {
		changes["password_hash"] = *update.PasswordHash
	}
	if update.Role != nil {
		changes["role"] = update.Role.String()
	}
	if update.TwoFactor != nil {
		changes["two_factor_enabled"] = update.TwoFactor.Enabled
		changes["two_factor_secret"] = ""
		if update.TwoFactor.Enabled {
			changes["two_factor_secret"] = update.TwoFactor.Secret
		}
	}
	if update.ResetToken != nil {
		if update.ResetToken.Hash == "" {
			changes["reset_token_hash"] = nil
			changes["reset_token_expires_at"] = nil
		} else {
			changes["reset_token_hash"] = update.ResetToken.Hash
			changes["reset_token_expires_at"] = update.ResetToken.ExpiresAt.UTC()
		}
	}

	var rec userRecord
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Model(&userRecord{}).Where("id = ?", id).Updates(changes)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return gorm.ErrRecordNotFound
		}
		return tx.Where("id = ?", id).First(&rec).Error
	})
	if err != nil {
		return webAuth.User{}, translate(err)
	}
	return toUser(rec), nil
}

// FindPermissionsForUser returns the user's grants in ascending order.
func (s *Store) FindPermissionsForUser(ctx context.Context, id string) ([]webAuth.Permission, error) {
	db := s.db.WithContext(ctx)

	var count int64
	if err := db.Model(&userRecord{}).Where("id = ?", id).Count(&count).Error; err != nil {
		return nil, translate(err)
	}
	if count == 0 {
		return nil, webAuth.ErrRecordNotFound
	}

	var names []string
	if err := db.Model(&permissionRecord{}).Where("user_id = ?", id).Order("permission").Pluck("permission", &names).Error; err != nil {
		return nil, translate(err)
	}
	perms := make([]webAuth.Permission, 0, len(names))
	for _, n := range names {
		perms = append(perms, webAuth.Permission(n))
	}
	return perms, nil
}

// ConsumeResetToken sets the password of the user holding an unexpired tokenHash
// and clears the token in the same update.
func (s *Store) ConsumeResetToken(ctx context.Context, tokenHash string, now time.Time, newPasswordHash string) (webAuth.User, error) {
	if tokenHash == "" {
		return webAuth.User{}, webAuth.ErrRecordNotFound
	}

	var rec userRecord
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var owner userRecord
		if err := tx.Select("id").Where("reset_token_hash = ?", tokenHash).First(&owner).Error; err != nil {
			return err
		}
		res := tx.Model(&userRecord{}).
			Where("id = ? AND reset_token_hash = ? AND reset_token_expires_at > ?", owner.ID, tokenHash, now.UTC()).
			Updates(map[string]any{
				"password_hash":          newPasswordHash,
				"reset_token_hash":       nil,
				"reset_token_expires_at": nil,
				"updated_at":             s.now().UTC(),
			})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return gorm.ErrRecordNotFound
		}
		return tx.Where("id = ?", owner.ID).First(&rec).Error
	})
	if err != nil {
		return webAuth.User{}, translate(err)
	}
	return toUser(rec), nil
}

// CommitTwoFactor enables two-factor with secret unless it is already enabled,
// in which case it returns webAuth.ErrConflict.
func (s *Store) CommitTwoFactor(ctx context.Context, id string, secret string) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Model(&userRecord{}).
			Where("id = ? AND two_factor_enabled = ?", id, false).
			Updates(map[string]any{
				"two_factor_enabled": true,
				"two_factor_secret":  secret,
				"updated_at":         s.now().UTC(),
			})
		if res.Error != nil {
			return translate(res.Error)
		}
		if res.RowsAffected == 1 {
			return nil
		}

		var count int64
		if err := tx.Model(&userRecord{}).Where("id = ?", id).Count(&count).Error; err != nil {
			return translate(err)
		}
		if count == 0 {
			return webAuth.ErrRecordNotFound
		}
		return webAuth.ErrConflict
	})
}

// Grant adds perms to the user's permission set. Existing grants are kept.
func (s *Store) Grant(ctx context.Context, id string, perms ...webAuth.Permission) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var count int64
		if err := tx.Model(&userRecord{}).Where("id = ?", id).Count(&count).Error; err != nil {
			return translate(err)
		}
		if count == 0 {
			return webAuth.ErrRecordNotFound
		}
		for _, p := range perms {
			rec := permissionRecord{UserID: id, Permission: string(p)}
			if err := tx.Where(rec).FirstOrCreate(&rec).Error; err != nil {
				return translate(err)
			}
		}
		return nil
	})
}

// Revoke removes perm from the user's permission set.
func (s *Store) Revoke(ctx context.Context, id string, perm webAuth.Permission) error {
	err := s.db.WithContext(ctx).
		Where("user_id = ? AND permission = ?", id, string(perm)).
		Delete(&permissionRecord{}).Error
	return translate(err)
}

func toUser(rec userRecord) webAuth.User {
	// Unrecognized role names load as RoleUnknown, which every check denies.
	role, _ := permission.ParseRole(rec.Role)
	u := webAuth.User{
		ID:               rec.ID,
		Email:            rec.Email,
		Name:             rec.Name,
		PasswordHash:     rec.PasswordHash,
		Role:             role,
		TwoFactorEnabled: rec.TwoFactorEnabled,
		TwoFactorSecret:  rec.TwoFactorSecret,
		CreatedAt:        rec.CreatedAt.UTC(),
		UpdatedAt:        rec.UpdatedAt.UTC(),
	}
	if rec.ResetTokenHash != nil && rec.ResetTokenExpiresAt != nil {
		u.ResetTokenHash = *rec.ResetTokenHash
		u.ResetTokenExpiresAt = rec.ResetTokenExpiresAt.UTC()
	}
	return u
}

func translate(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, gorm.ErrRecordNotFound):
		return webAuth.ErrRecordNotFound
	case errors.Is(err, webAuth.ErrRecordNotFound), errors.Is(err, webAuth.ErrConflict):
		return err
	default:
		return fmt.Errorf("db error: %w", err)
	}
}

func normalize(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
