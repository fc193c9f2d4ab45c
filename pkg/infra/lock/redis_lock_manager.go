package lock

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	out "github.com/matchcore/core/pkg/domain/matchmaking/ports/out"
)

// releaseScript deletes the key only if it still holds our token, so a
// lease whose TTL already expired and was re-acquired by someone else is
// never released out from under them.
const releaseScript = `
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
else
	return 0
end
`

// RedisLockManager is a distributed named-lease manager: Acquire is a
// SETNX with a TTL, Release is a compare-and-delete Lua script keyed by a
// random token, so only the holder that actually acquired the lease can
// release it.
type RedisLockManager struct {
	client *redis.Client
	prefix string
}

func NewRedisLockManager(client *redis.Client, prefix string) *RedisLockManager {
	return &RedisLockManager{client: client, prefix: prefix}
}

type redisLease struct {
	client *redis.Client
	key    string
	token  string
}

func (l *redisLease) Release(ctx context.Context) error {
	if err := l.client.Eval(ctx, releaseScript, []string{l.key}, l.token).Err(); err != nil && err != redis.Nil {
		slog.WarnContext(ctx, "failed to release redis lock", "key", l.key, "error", err)
		return err
	}
	return nil
}

func (m *RedisLockManager) Acquire(ctx context.Context, name string, ttl time.Duration) (out.Lock, bool, error) {
	key := m.prefix + name
	token := uuid.New().String()

	ok, err := m.client.SetNX(ctx, key, token, ttl).Result()
	if err != nil {
		return nil, false, err
	}
	if !ok {
		return nil, false, nil
	}

	return &redisLease{client: m.client, key: key, token: token}, true, nil
}
