package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math/rand"
	"time"

	ri "github.com/redis/go-redis/v9"

	"Constituent/storage/redis"
)

const (
	// 空值缓存标识
	emptyValueFlag = "__EMPTY__"
	// 空值缓存TTL，较短时间避免长期占用
	emptyValueTTL = 5 * time.Minute
	// 防雪崩随机延迟范围
	breakerRandomDelayMax = 50 * time.Millisecond
)

// ProtectedCache 带空值保护、随机延迟和熔断的缓存包装器
type ProtectedCache struct {
	client    *ri.Client // 为 nil 时使用全局 redis 客户端
	keyPrefix string
	ttl       time.Duration
	emptyTTL  time.Duration
	maxDelay  time.Duration
	breaker   *CircuitBreaker
}

// NewProtectedCache 创建受保护的缓存实例
func NewProtectedCache(keyPrefix string, ttl time.Duration) *ProtectedCache {
	return &ProtectedCache{
		keyPrefix: keyPrefix,
		ttl:       ttl,
		emptyTTL:  emptyValueTTL,
		maxDelay:  breakerRandomDelayMax,
		breaker:   NewCircuitBreaker(keyPrefix, 5, 30*time.Second),
	}
}

// WithClient 指定 redis 客户端，测试里传 redismock 的客户端
func (pc *ProtectedCache) WithClient(client *ri.Client) *ProtectedCache {
	pc.client = client
	return pc
}

// WithMaxDelay 调整防雪崩随机延迟上限，0 表示不延迟
func (pc *ProtectedCache) WithMaxDelay(d time.Duration) *ProtectedCache {
	pc.maxDelay = d
	return pc
}

func (pc *ProtectedCache) rdb() *ri.Client {
	if pc.client != nil {
		return pc.client
	}
	return redis.Client()
}

// Key 完整的缓存 key
func (pc *ProtectedCache) Key(key string) string {
	return redis.Key(pc.keyPrefix, key)
}

// Set 设置缓存（value 为 nil 时写空值标识）
func (pc *ProtectedCache) Set(ctx context.Context, key string, value interface{}) error {
	var data string
	var ttl time.Duration

	if value == nil {
		data = emptyValueFlag
		ttl = pc.emptyTTL
	} else {
		dataBytes, err := json.Marshal(value)
		if err != nil {
			return fmt.Errorf("failed to marshal cache value: %w", err)
		}
		data = string(dataBytes)
		ttl = pc.ttl
	}

	return pc.breaker.Call(func() error {
		return pc.rdb().Set(ctx, pc.Key(key), data, ttl).Err()
	})
}

// Get 获取缓存；hit 为 true 且 empty 为 true 表示命中空值
func (pc *ProtectedCache) Get(ctx context.Context, key string, dest interface{}) (hit bool, empty bool, err error) {
	if err := pc.addBreakerDelay(ctx); err != nil {
		return false, false, err
	}

	var data string
	err = pc.breaker.Call(func() error {
		var getErr error
		data, getErr = pc.rdb().Get(ctx, pc.Key(key)).Result()
		if errors.Is(getErr, ri.Nil) {
			return nil
		}
		return getErr
	})
	if err != nil {
		return false, false, fmt.Errorf("failed to get cache: %w", err)
	}

	if data == "" {
		return false, false, nil // 缓存未命中
	}

	if data == emptyValueFlag {
		return true, true, nil
	}

	if err := json.Unmarshal([]byte(data), dest); err != nil {
		return false, false, fmt.Errorf("failed to unmarshal cache value: %w", err)
	}

	return true, false, nil
}

// Delete 删除缓存
func (pc *ProtectedCache) Delete(ctx context.Context, key string) error {
	return pc.breaker.Call(func() error {
		return pc.rdb().Del(ctx, pc.Key(key)).Err()
	})
}

// addBreakerDelay 添加防雪崩随机延迟
func (pc *ProtectedCache) addBreakerDelay(ctx context.Context) error {
	if pc.maxDelay <= 0 {
		return nil
	}

	delay := time.Duration(rand.Int63n(int64(pc.maxDelay)))

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-time.After(delay):
		return nil
	}
}
