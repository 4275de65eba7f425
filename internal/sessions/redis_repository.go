package sessions

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisRepository keeps each session as a hash under <prefix><refreshToken>.
// The key expires with the session, so Redis drops stale refresh tokens itself.
type RedisRepository struct {
	client *redis.Client
	prefix string
}

// NewRedisRepository creates a Redis-based session repository. Prefix may be empty.
func NewRedisRepository(client *redis.Client, prefix string) *RedisRepository {
	if prefix == "" {
		prefix = "session:"
	}
	return &RedisRepository{client: client, prefix: prefix}
}

func (r *RedisRepository) key(refresh string) string {
	return r.prefix + refresh
}

func (r *RedisRepository) Create(ctx context.Context, s *Session) error {
	if !s.ExpiresAt.After(time.Now()) {
		return fmt.Errorf("session for user %s already expired", s.UserID)
	}
	k := r.key(s.RefreshToken)
	_, err := r.client.TxPipelined(ctx, func(p redis.Pipeliner) error {
		p.HSet(ctx, k,
			"userId", s.UserID,
			"createdAt", s.CreatedAt.UTC().Format(time.RFC3339Nano),
			"expiresAt", s.ExpiresAt.UTC().Format(time.RFC3339Nano),
		)
		p.ExpireAt(ctx, k, s.ExpiresAt)
		return nil
	})
	return err
}

func (r *RedisRepository) GetByRefresh(ctx context.Context, refresh string) (*Session, error) {
	fields, err := r.client.HGetAll(ctx, r.key(refresh)).Result()
	if err != nil {
		return nil, err
	}
	if len(fields) == 0 {
		return nil, nil
	}
	s := &Session{RefreshToken: refresh, UserID: fields["userId"]}
	if s.CreatedAt, err = time.Parse(time.RFC3339Nano, fields["createdAt"]); err != nil {
		return nil, fmt.Errorf("session createdAt: %w", err)
	}
	if s.ExpiresAt, err = time.Parse(time.RFC3339Nano, fields["expiresAt"]); err != nil {
		return nil, fmt.Errorf("session expiresAt: %w", err)
	}
	return s, nil
}

func (r *RedisRepository) DeleteByRefresh(ctx context.Context, refresh string) error {
	return r.client.Del(ctx, r.key(refresh)).Err()
}
