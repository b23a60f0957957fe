package redis

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"Circle_Community/internal/pkg"
)

const UserTokenPrefix = "login:user:token"

// SessionRepository 每个用户只保存一个有效 token，重新登录会覆盖旧的
type SessionRepository struct {
	RDB *redis.Client
}

func NewSessionRepository(rdb *redis.Client) *SessionRepository {
	return &SessionRepository{RDB: rdb}
}

func tokenKey(userID uint64) string {
	return fmt.Sprintf("%s:%d", UserTokenPrefix, userID)
}

func (r *SessionRepository) Save(ctx context.Context, userID uint64, token string, ttl time.Duration) error {
	return r.RDB.Set(ctx, tokenKey(userID), token, ttl).Err()
}

func (r *SessionRepository) Get(ctx context.Context, userID uint64) (string, error) {
	token, err := r.RDB.Get(ctx, tokenKey(userID)).Result()
	if errors.Is(err, redis.Nil) {
		return "", pkg.ErrSessionNotFound
	}
	return token, err
}

func (r *SessionRepository) Delete(ctx context.Context, userID uint64) error {
	return r.RDB.Del(ctx, tokenKey(userID)).Err()
}
