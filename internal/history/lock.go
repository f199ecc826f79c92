package history

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

const lockKeyPrefix = "lock:history:"

// deletes the lock only if it still holds our token
var releaseScript = redis.NewScript(`
if redis.call("get", KEYS[1]) == ARGV[1] then
	return redis.call("del", KEYS[1])
end
return 0
`)

// Locker serializes writers of one record across replicas.
type Locker struct {
	rdb    *redis.Client
	ttl    time.Duration
	logger *zap.Logger
}

func NewLocker(rdb *redis.Client, ttl time.Duration, logger *zap.Logger) *Locker {
	return &Locker{rdb: rdb, ttl: ttl, logger: logger}
}

// Acquire takes the record lock or returns ErrLocked when another writer holds it.
// The returned release func is safe to call after the lock has expired.
func (l *Locker) Acquire(ctx context.Context, recordID string) (func(), error) {
	key := lockKeyPrefix + recordID
	token := uuid.New().String()

	ok, err := l.rdb.SetNX(ctx, key, token, l.ttl).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to acquire lock for %s: %w", recordID, err)
	}
	if !ok {
		return nil, ErrLocked
	}

	release := func() {
		// the request context may already be cancelled
		releaseCtx, cancel := context.WithTimeout(context.Background(), time.Second)
		defer cancel()
		if err := releaseScript.Run(releaseCtx, l.rdb, []string{key}, token).Err(); err != nil {
			l.logger.Warn("Failed to release history lock", zap.String("record_id", recordID), zap.Error(err))
		}
	}
	return release, nil
}
