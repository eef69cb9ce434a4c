package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"

	webAuth "github.com/MrEthical07/webAuth"
	"github.com/MrEthical07/webAuth/permission"
)

// uniqueViolation is the Postgres SQLSTATE for unique constraint failures.
const uniqueViolation = "23505"

const userColumns = `id, email, name, password_hash, role, two_factor_enabled, two_factor_secret,
	reset_token_hash, reset_token_expires_at, created_at, updated_at`

// DBTX is the subset of database/sql used by the store.
// Both *sql.DB and *sql.Tx satisfy this interface.
type DBTX interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// Store is a CredentialStore backed by the users and user_permissions tables.
type Store struct {
	db  DBTX
	now func() time.Time
}

var _ webAuth.CredentialStore = (*Store)(nil)

// New returns a Store using db. Run Migrate first on a fresh database.
func New(db DBTX) *Store {
	return &Store{db: db, now: time.Now}
}

// WithClock overrides the timestamp source for created_at and updated_at.
func (s *Store) WithClock(now func() time.Time) *Store {
	s.now = now
	return s
}

// FindUserByEmail looks up a user by case-insensitive email.
func (s *Store) FindUserByEmail(ctx context.Context, email string) (webAuth.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE email = $1`
	return s.queryUser(ctx, query, normalize(email))
}

// FindUserByID looks up a user by id.
func (s *Store) FindUserByID(ctx context.Context, id string) (webAuth.User, error) {
	if !validID(id) {
		return webAuth.User{}, webAuth.ErrRecordNotFound
	}
	query := `SELECT ` + userColumns + ` FROM users WHERE id = $1`
	return s.queryUser(ctx, query, id)
}

// CreateUser inserts nu with a fresh id. A taken email returns webAuth.ErrAccountExists.
func (s *Store) CreateUser(ctx context.Context, nu webAuth.NewUser) (webAuth.User, error) {
	query := `INSERT INTO users (id, email, name, password_hash, role, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $6)
		RETURNING ` + userColumns

	now := s.now().UTC()
	u, err := s.queryUser(ctx, query,
		uuid.NewString(), normalize(nu.Email), nu.Name, nu.PasswordHash, nu.Role.String(), now)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
			return webAuth.User{}, webAuth.ErrAccountExists
		}
		return webAuth.User{}, err
	}
	return u, nil
}

// UpdateUser applies the non-nil fields of update and returns the stored user.
func (s *Store) UpdateUser(ctx context.Context, id string, update webAuth.UserUpdate) (webAuth.User, error) {
	if !validID(id) {
		return webAuth.User{}, webAuth.ErrRecordNotFound
	}

	var (
		sets []string
		args []any
	)
	set := func(column string, value any) {
		args = append(args, value)
		sets = append(sets, column+" = $"+strconv.Itoa(len(args)))
	}

	if update.Name != nil {
		set("name", *update.Name)
	}
	if update.PasswordHash != nil {
		set("password_hash", *update.PasswordHash)
	}
	if update.Role != nil {
		set("role", update.Role.String())
	}
	if update.TwoFactor != nil {
		secret := update.TwoFactor.Secret
		if !update.TwoFactor.Enabled {
			secret = ""
		}
		set("two_factor_enabled", update.TwoFactor.Enabled)
		set("two_factor_secret", secret)
	}
	if update.ResetToken != nil {
		if update.ResetToken.Hash == "" {
			set("reset_token_hash", nil)
			set("reset_token_expires_at", nil)
		} else {
			set("reset_token_hash", update.ResetToken.Hash)
			set("reset_token_expires_at", update.ResetToken.ExpiresAt.UTC())
		}
	}
	set("updated_at", s.now().UTC())
	args = append(args, id)

	query := `UPDATE users SET ` + strings.Join(sets, ", ") +
		` WHERE id = $` + strconv.Itoa(len(args)) +
		` RETURNING ` + userColumns
	return s.queryUser(ctx, query, args...)
}

// FindPermissionsForUser returns the user's grants in ascending order.
func (s *Store) FindPermissionsForUser(ctx context.Context, id string) ([]webAuth.Permission, error) {
	if !validID(id) {
		return nil, webAuth.ErrRecordNotFound
	}
	query := `SELECT p.permission FROM users u
		LEFT JOIN user_permissions p ON p.user_id = u.id
		WHERE u.id = $1
		ORDER BY p.permission`

	rows, err := s.db.QueryContext(ctx, query, id)
	if err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	defer rows.Close()

	found := false
	perms := []webAuth.Permission{}
	for rows.Next() {
		found = true
		var p sql.NullString
		if err := rows.Scan(&p); err != nil {
			return nil, fmt.Errorf("db error: %w", err)
		}
		if p.Valid {
			perms = append(perms, webAuth.Permission(p.String))
		}
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	if !found {
		return nil, webAuth.ErrRecordNotFound
	}
	return perms, nil
}

// ConsumeResetToken sets the password of the user holding an unexpired tokenHash
// and clears the token in the same update.
func (s *Store) ConsumeResetToken(ctx context.Context, tokenHash string, now time.Time, newPasswordHash string) (webAuth.User, error) {
	if tokenHash == "" {
		return webAuth.User{}, webAuth.ErrRecordNotFound
	}
	query := `UPDATE users
		SET password_hash = $1, reset_token_hash = NULL, reset_token_expires_at = NULL, updated_at = $2
		WHERE reset_token_hash = $3 AND reset_token_expires_at > $4
		RETURNING ` + userColumns
	return s.queryUser(ctx, query, newPasswordHash, s.now().UTC(), tokenHash, now.UTC())
}

// CommitTwoFactor enables two-factor with secret unless it is already enabled,
// in which case it returns webAuth.ErrConflict.
func (s *Store) CommitTwoFactor(ctx context.Context, id string, secret string) error {
	if !validID(id) {
		return webAuth.ErrRecordNotFound
	}
	query := `UPDATE users
		SET two_factor_enabled = TRUE, two_factor_secret = $1, updated_at = $2
		WHERE id = $3 AND two_factor_enabled = FALSE`

	res, err := s.db.ExecContext(ctx, query, secret, s.now().UTC(), id)
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	if n == 1 {
		return nil
	}

	var exists bool
	if err := s.db.QueryRowContext(ctx, `SELECT EXISTS (SELECT 1 FROM users WHERE id = $1)`, id).Scan(&exists); err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	if !exists {
		return webAuth.ErrRecordNotFound
	}
	return webAuth.ErrConflict
}

// Grant adds perms to the user's permission set. Existing grants are kept.
func (s *Store) Grant(ctx context.Context, id string, perms ...webAuth.Permission) error {
	if !validID(id) {
		return webAuth.ErrRecordNotFound
	}
	for _, p := range perms {
		_, err := s.db.ExecContext(ctx,
			`INSERT INTO user_permissions (user_id, permission) VALUES ($1, $2) ON CONFLICT DO NOTHING`,
			id, string(p))
		if err != nil {
			var pgErr *pgconn.PgError
			if errors.As(err, &pgErr) && pgErr.Code == "23503" {
				return webAuth.ErrRecordNotFound
			}
			return fmt.Errorf("db error: %w", err)
		}
	}
	return nil
}

// Revoke removes perm from the user's permission set.
func (s *Store) Revoke(ctx context.Context, id string, perm webAuth.Permission) error {
	if !validID(id) {
		return webAuth.ErrRecordNotFound
	}
	_, err := s.db.ExecContext(ctx,
		`DELETE FROM user_permissions WHERE user_id = $1 AND permission = $2`, id, string(perm))
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	return nil
}

func (s *Store) queryUser(ctx context.Context, query string, args ...any) (webAuth.User, error) {
	var (
		u         webAuth.User
		role      string
		resetHash sql.NullString
		resetExp  sql.NullTime
	)
	err := s.db.QueryRowContext(ctx, query, args...).Scan(
		&u.ID, &u.Email, &u.Name, &u.PasswordHash, &role,
		&u.TwoFactorEnabled, &u.TwoFactorSecret,
		&resetHash, &resetExp, &u.CreatedAt, &u.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return webAuth.User{}, webAuth.ErrRecordNotFound
		}
		return webAuth.User{}, fmt.Errorf("db error: %w", err)
	}

	// Unrecognized role names load as RoleUnknown, which every check denies.
	u.Role, _ = permission.ParseRole(role)
	if resetHash.Valid && resetExp.Valid {
		u.ResetTokenHash = resetHash.String
		u.ResetTokenExpiresAt = resetExp.Time.UTC()
	}
	u.CreatedAt = u.CreatedAt.UTC()
	u.UpdatedAt = u.UpdatedAt.UTC()
	return u, nil
}

func validID(id string) bool {
	_, err := uuid.Parse(id)
	return err == nil
}

func normalize(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
