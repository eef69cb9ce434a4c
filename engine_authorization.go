package webAuth

import (
	"context"
	"errors"

	"github.com/MrEthical07/webAuth/permission"
)

// HasRole reports whether the session role is exactly one of allowed.
// Unknown roles never match.
func (e *Engine) HasRole(s Session, allowed ...Role) bool {
	return s.Role.In(allowed...)
}

// HasPermission reports whether the session holds p.
//
// SUPER_ADMIN holds every permission. Otherwise the permission snapshot taken at
// sign-in is consulted first, then the store. A user the store no longer knows
// holds nothing. Any other store failure denies and returns a wrapped
// ErrStoreUnavailable.
func (e *Engine) HasPermission(ctx context.Context, s Session, p Permission) (bool, error) {
	if err := e.ready(); err != nil {
		return false, err
	}

	switch s.Role {
	case permission.RoleSuperAdmin:
		return true, nil
	case permission.RoleUser, permission.RoleEditor, permission.RoleAdmin:
	default:
		e.metricInc(MetricAccessDenied)
		return false, nil
	}

	if s.Permissions.Has(p) {
		return true, nil
	}

	perms, err := e.store.FindPermissionsForUser(ctx, s.UserID)
	if errors.Is(err, ErrRecordNotFound) {
		perms, err = nil, nil
	}
	if err != nil {
		e.logger.ErrorContext(ctx, "permission lookup failed", "user_id", s.UserID, "err", err)
		return false, storeError(err)
	}
	e.metricInc(MetricPermissionLookup)

	if permission.NewSet(perms...).Has(p) {
		return true, nil
	}

	e.metricInc(MetricAccessDenied)
	e.emitAudit(ctx, auditEventAccessDenied, false, s.UserID, s.ID, ErrPermissionDenied, func() map[string]string {
		return map[string]string{"permission": string(p)}
	})
	return false, nil
}

// RequirePermission is HasPermission returning ErrPermissionDenied on deny.
func (e *Engine) RequirePermission(ctx context.Context, s Session, p Permission) error {
	ok, err := e.HasPermission(ctx, s, p)
	if err != nil {
		return err
	}
	if !ok {
		return ErrPermissionDenied
	}
	return nil
}
