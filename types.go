package webAuth

import (
	"context"
	"time"

	"github.com/MrEthical07/webAuth/permission"
	"github.com/MrEthical07/webAuth/session"
)

// Role and Permission are re-exported so callers rarely need the permission package.
type (
	Role       = permission.Role
	Permission = permission.Permission
	Session    = session.Session
)

const (
	RoleUser       = permission.RoleUser
	RoleEditor     = permission.RoleEditor
	RoleAdmin      = permission.RoleAdmin
	RoleSuperAdmin = permission.RoleSuperAdmin
)

// User is the persisted account record as seen by the engine.
//
// ResetTokenHash and ResetTokenExpiresAt are either both set or both zero.
// TwoFactorSecret is empty unless TwoFactorEnabled is true.
type User struct {
	ID                  string
	Email               string
	Name                string
	PasswordHash        string
	Role                Role
	TwoFactorEnabled    bool
	TwoFactorSecret     string
	ResetTokenHash      string
	ResetTokenExpiresAt time.Time
	CreatedAt           time.Time
	UpdatedAt           time.Time
}

// NewUser holds the fields needed to create an account.
type NewUser struct {
	Email        string
	Name         string
	PasswordHash string
	Role         Role
}

// ResetToken is a pending password reset. A zero value clears the pending reset.
type ResetToken struct {
	Hash      string
	ExpiresAt time.Time
}

// UserUpdate is a partial update. Nil fields are left unchanged.
//
// TwoFactor, when set, replaces both the enabled flag and the secret: an empty
// Secret disables two-factor.
type UserUpdate struct {
	Name         *string
	PasswordHash *string
	Role         *Role
	TwoFactor    *TwoFactorState
	ResetToken   *ResetToken
}

// TwoFactorState is the persisted two-factor pair.
type TwoFactorState struct {
	Enabled bool
	Secret  string
}

// CredentialStore is the persistence port the engine depends on.
//
// Lookups of absent entities return ErrRecordNotFound. CreateUser returns
// ErrAccountExists for a duplicate email. Emails are compared case-insensitively;
// implementations store them lower-cased.
//
// ConsumeResetToken and CommitTwoFactor are single conditional updates and must
// be atomic with respect to concurrent callers:
//
//   - ConsumeResetToken matches the user whose reset token hash equals tokenHash and
//     whose expiry is after now, sets PasswordHash to newPasswordHash, and clears the
//     token and expiry. No match returns ErrRecordNotFound.
//   - CommitTwoFactor stores secret and enables two-factor only if it is currently
//     disabled. A user that already has two-factor returns ErrConflict.
type CredentialStore interface {
	FindUserByEmail(ctx context.Context, email string) (User, error)
	FindUserByID(ctx context.Context, id string) (User, error)
	CreateUser(ctx context.Context, u NewUser) (User, error)
	UpdateUser(ctx context.Context, id string, update UserUpdate) (User, error)
	FindPermissionsForUser(ctx context.Context, id string) ([]Permission, error)
	ConsumeResetToken(ctx context.Context, tokenHash string, now time.Time, newPasswordHash string) (User, error)
	CommitTwoFactor(ctx context.Context, id string, secret string) error
}

// LoginResult is returned by successful Login, LoginWithTOTP and Register calls.
type LoginResult struct {
	Token   string
	Session Session
}

// RegisterRequest is the self-service registration input.
type RegisterRequest struct {
	Email    string
	Password string
	Name     string
}

// TOTPEnrollment is a pending two-factor enrollment. Nothing is persisted until
// the secret is confirmed with a valid code.
type TOTPEnrollment struct {
	Secret string
	URI    string
}
