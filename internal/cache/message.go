package cache

import (
	"context"
	"fmt"
	"time"

	"Constituent/storage/redis"
)

const (
	messageProcessedPrefix = "mq:processed"
	processedTTL           = 24 * time.Hour
)

// TryMarkProcessing 原子性地标记消息正在处理
// 返回 true 表示首次处理，false 表示重复消息或正在处理
func (l *Locker) TryMarkProcessing(ctx context.Context, messageID string, ttl time.Duration) (bool, error) {
	if ttl <= 0 {
		ttl = processedTTL
	}

	result, err := l.rdb().SetNX(ctx, redis.Key(messageProcessedPrefix, messageID), "processing", ttl).Result()
	if err != nil {
		return false, fmt.Errorf("failed to mark message as processing: %w", err)
	}
	return result, nil
}

// UnmarkProcessing 处理失败时取消标记，允许重试
func (l *Locker) UnmarkProcessing(ctx context.Context, messageID string) error {
	return l.rdb().Del(ctx, redis.Key(messageProcessedPrefix, messageID)).Err()
}

// MarkProcessed 处理成功后标记为已完成并延长 TTL
func (l *Locker) MarkProcessed(ctx context.Context, messageID string, ttl time.Duration) error {
	if ttl <= 0 {
		ttl = processedTTL
	}
	return l.rdb().Set(ctx, redis.Key(messageProcessedPrefix, messageID), "completed", ttl).Err()
}
