package redis

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const (
	UnreadKeyPrefix = "notify:unread"
	UnreadGenPrefix = "notify:unread:gen"
	UnreadTTL       = 10 * time.Minute
)

// fillScript 代数没变才回填；代数 key 不存在按 0 处理
var fillScript = redis.NewScript(`
local gen = redis.call("get", KEYS[2])
if not gen then
  gen = "0"
end
if gen ~= ARGV[1] then
  return 0
end
redis.call("set", KEYS[1], ARGV[2], "PX", ARGV[3])
return 1`)

// UnreadCache 未读数缓存：读时回填，写路径递增代数并删除缓存
type UnreadCache struct {
	RDB *redis.Client
	ttl time.Duration
}

func NewUnreadCache(rdb *redis.Client) *UnreadCache {
	return &UnreadCache{RDB: rdb, ttl: UnreadTTL}
}

func unreadKey(userID uint64) string {
	return fmt.Sprintf("%s:%d", UnreadKeyPrefix, userID)
}

func unreadGenKey(userID uint64) string {
	return fmt.Sprintf("%s:%d", UnreadGenPrefix, userID)
}

func (c *UnreadCache) Get(ctx context.Context, userID uint64) (int64, bool, error) {
	n, err := c.RDB.Get(ctx, unreadKey(userID)).Int64()
	if errors.Is(err, redis.Nil) {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, err
	}
	return n, true, nil
}

// Generation 回源前先取代数
func (c *UnreadCache) Generation(ctx context.Context, userID uint64) (int64, error) {
	gen, err := c.RDB.Get(ctx, unreadGenKey(userID)).Int64()
	if errors.Is(err, redis.Nil) {
		return 0, nil
	}
	return gen, err
}

// Fill 回源期间有写入（代数变了）就放弃回填，返回是否写入
func (c *UnreadCache) Fill(ctx context.Context, userID uint64, n, gen int64) (bool, error) {
	res, err := fillScript.Run(ctx, c.RDB,
		[]string{unreadKey(userID), unreadGenKey(userID)},
		gen, n, c.ttl.Milliseconds()).Int()
	if err != nil {
		return false, err
	}
	return res == 1, nil
}

// Invalidate 代数 +1 和删缓存放在一个 MULTI 里
func (c *UnreadCache) Invalidate(ctx context.Context, userIDs ...uint64) error {
	if len(userIDs) == 0 {
		return nil
	}
	_, err := c.RDB.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		for _, id := range userIDs {
			pipe.Incr(ctx, unreadGenKey(id))
			pipe.Del(ctx, unreadKey(id))
		}
		return nil
	})
	return err
}
