package session

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
)

// ErrRedisUnavailable is returned when the revocation list cannot reach Redis.
var ErrRedisUnavailable = errors.New("redis unavailable")

// RevocationList is a Redis-backed deny list for session tokens.
//
// Entries expire with the tokens they cover, so the key space stays bounded by
// the number of live revoked tokens plus one cut-off per user.
type RevocationList struct {
	redis  redis.UniversalClient
	prefix string
}

// NewRevocationList creates a [RevocationList] using prefix as the key namespace.
func NewRevocationList(client redis.UniversalClient, prefix string) *RevocationList {
	if prefix == "" {
		prefix = "wa"
	}
	return &RevocationList{
		redis:  client,
		prefix: prefix,
	}
}

func (l *RevocationList) tokenKey(sessionID string) string {
	return l.prefix + ":rv:" + sessionID
}

func (l *RevocationList) userKey(userID string) string {
	return l.prefix + ":rvu:" + userID
}

// Revoke denies the session until its expiry. Already-expired sessions are ignored.
func (l *RevocationList) Revoke(ctx context.Context, s Session, now time.Time) error {
	if s.ID == "" {
		return errors.New("session id required")
	}
	ttl := s.TTL(now)
	if ttl <= 0 {
		return nil
	}
	if err := l.redis.Set(ctx, l.tokenKey(s.ID), s.UserID, ttl).Err(); err != nil {
		return fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}
	return nil
}

// RevokeUserBefore denies every session of userID issued before cutoff.
// maxTTL bounds how long the cut-off is remembered and should equal the session TTL.
func (l *RevocationList) RevokeUserBefore(ctx context.Context, userID string, cutoff time.Time, maxTTL time.Duration) error {
	if userID == "" {
		return errors.New("user id required")
	}
	if maxTTL <= 0 {
		return errors.New("revocation ttl must be > 0")
	}
	value := strconv.FormatInt(cutoff.Unix(), 10)
	if err := l.redis.Set(ctx, l.userKey(userID), value, maxTTL).Err(); err != nil {
		return fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}
	return nil
}

// IsRevoked reports whether s has been revoked individually or by a user cut-off.
func (l *RevocationList) IsRevoked(ctx context.Context, s Session) (bool, error) {
	values, err := l.redis.MGet(ctx, l.tokenKey(s.ID), l.userKey(s.UserID)).Result()
	if err != nil {
		return false, fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}
	if values[0] != nil {
		return true, nil
	}
	raw, ok := values[1].(string)
	if !ok {
		return false, nil
	}
	cutoff, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return false, fmt.Errorf("corrupt revocation cut-off for user %q", s.UserID)
	}
	return s.IssuedAt.Unix() < cutoff, nil
}
