package cache

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// ErrTokenNotFound is returned for unknown, expired or already used tokens.
var ErrTokenNotFound = errors.New("reset token not found")

// ResetTokenStore keeps single-use password reset tokens.
type ResetTokenStore interface {
	Save(ctx context.Context, token string, userID uuid.UUID, ttl time.Duration) error
	// Consume returns the owner of token and deletes it.
	Consume(ctx context.Context, token string) (uuid.UUID, error)
}

type redisResetTokens struct{ rdb *redis.Client }

func NewRedisResetTokenStore(rdb *redis.Client) ResetTokenStore {
	return &redisResetTokens{rdb: rdb}
}

func resetKey(token string) string { return "pwreset:" + token }

func (s *redisResetTokens) Save(ctx context.Context, token string, userID uuid.UUID, ttl time.Duration) error {
	return s.rdb.Set(ctx, resetKey(token), userID.String(), ttl).Err()
}

func (s *redisResetTokens) Consume(ctx context.Context, token string) (uuid.UUID, error) {
	v, err := s.rdb.GetDel(ctx, resetKey(token)).Result()
	if errors.Is(err, redis.Nil) {
		return uuid.Nil, ErrTokenNotFound
	}
	if err != nil {
		return uuid.Nil, err
	}
	id, err := uuid.Parse(v)
	if err != nil {
		return uuid.Nil, ErrTokenNotFound
	}
	return id, nil
}
