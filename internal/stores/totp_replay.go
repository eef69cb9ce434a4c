package stores

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
)

var (
	// ErrTOTPCounterUsed is returned when a (user, counter) pair was already accepted.
	ErrTOTPCounterUsed = errors.New("totp counter already used")
	// ErrTOTPReplayBackend is returned when Redis cannot be reached.
	ErrTOTPReplayBackend = errors.New("totp replay backend unavailable")
)

// TOTPReplayStore remembers accepted TOTP time-steps per user.
type TOTPReplayStore struct {
	redis  redis.UniversalClient
	prefix string
}

// NewTOTPReplayStore returns a replay store using prefix as key namespace.
func NewTOTPReplayStore(redisClient redis.UniversalClient, prefix string) *TOTPReplayStore {
	if prefix == "" {
		prefix = "wtr"
	}
	return &TOTPReplayStore{
		redis:  redisClient,
		prefix: prefix,
	}
}

func (s *TOTPReplayStore) key(userID string, counter int64) string {
	return s.prefix + ":" + userID + ":" + strconv.FormatInt(counter, 10)
}

// Mark records counter as used for userID for ttl. It returns ErrTOTPCounterUsed
// if the pair is already recorded.
func (s *TOTPReplayStore) Mark(ctx context.Context, userID string, counter int64, ttl time.Duration) error {
	if ttl <= 0 {
		ttl = time.Second
	}
	ok, err := s.redis.SetNX(ctx, s.key(userID, counter), 1, ttl).Result()
	if err != nil {
		return fmt.Errorf("%w: %v", ErrTOTPReplayBackend, err)
	}
	if !ok {
		return ErrTOTPCounterUsed
	}
	return nil
}
