package cache

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	ri "github.com/redis/go-redis/v9"

	"Constituent/storage/redis"
)

const (
	lockPrefix = "lock"
)

// ErrLockNotHeld 锁已过期或被其他持有者占用
var ErrLockNotHeld = errors.New("lock not held")

// 只有 value 与持有者 token 一致时才删除/续期
const (
	unlockScript = `if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0`

	refreshScript = `if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("PEXPIRE", KEYS[1], ARGV[2])
end
return 0`
)

// Locker 基于 SetNX 的分布式锁，多个 worker 同时收到重建消息时只有一个执行
// 每次加锁生成一个 token，解锁和续期都要带上它
type Locker struct {
	client   *ri.Client
	newToken func() string
}

// NewLocker client 为 nil 时使用全局 redis 客户端
func NewLocker(client *ri.Client) *Locker {
	return &Locker{client: client, newToken: uuid.NewString}
}

func (l *Locker) rdb() *ri.Client {
	if l.client != nil {
		return l.client
	}
	return redis.Client()
}

// TryLock 加锁成功时返回持有者 token
func (l *Locker) TryLock(ctx context.Context, key string, ttl time.Duration) (string, bool, error) {
	token := l.newToken()
	ok, err := l.rdb().SetNX(ctx, redis.Key(lockPrefix, key), token, ttl).Result()
	if err != nil {
		return "", false, fmt.Errorf("failed to acquire lock %s: %w", key, err)
	}
	if !ok {
		return "", false, nil
	}
	return token, true, nil
}

// Refresh 续期，返回 false 表示锁已不属于 token
func (l *Locker) Refresh(ctx context.Context, key, token string, ttl time.Duration) (bool, error) {
	n, err := l.rdb().Eval(ctx, refreshScript, []string{redis.Key(lockPrefix, key)}, token, ttl.Milliseconds()).Int64()
	if err != nil {
		return false, fmt.Errorf("failed to refresh lock %s: %w", key, err)
	}
	return n == 1, nil
}

// Unlock 只释放自己持有的锁，锁已过期或被别人拿走时返回 ErrLockNotHeld
func (l *Locker) Unlock(ctx context.Context, key, token string) error {
	n, err := l.rdb().Eval(ctx, unlockScript, []string{redis.Key(lockPrefix, key)}, token).Int64()
	if err != nil {
		return fmt.Errorf("failed to release lock %s: %w", key, err)
	}
	if n == 0 {
		return ErrLockNotHeld
	}
	return nil
}
