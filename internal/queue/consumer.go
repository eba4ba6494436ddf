package queue

import (
	"context"
	"encoding/json"
	stderrors "errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"Constituent/internal/model"
	"Constituent/pkg/errors"
	"Constituent/pkg/logger"
	"Constituent/pkg/metrics"
	"Constituent/storage/mq"
)

// busyRetryDelay 别的实例正在重建时，等一会儿再把消息放回队列
var busyRetryDelay = 5 * time.Second

// NameRebuilder 重新计算所有个人联系人的姓名，service.ContactService 实现
type NameRebuilder interface {
	RebuildNames(ctx context.Context, batchSize int) (int, error)
}

// MessageMarker 消息幂等标记，cache.Locker 实现
type MessageMarker interface {
	TryMarkProcessing(ctx context.Context, messageID string, ttl time.Duration) (bool, error)
	UnmarkProcessing(ctx context.Context, messageID string) error
	MarkProcessed(ctx context.Context, messageID string, ttl time.Duration) error
}

// NameRebuildHandler 处理一条姓名重建消息
func NameRebuildHandler(rebuilder NameRebuilder, marker MessageMarker, batchSize int) mq.MessageHandler {
	return func(ctx context.Context, body []byte) error {
		var msg model.NameRebuildMessage
		if err := json.Unmarshal(body, &msg); err != nil {
			// 无法解析的消息重试也没用
			return &errors.SkipMessageError{Reason: fmt.Sprintf("invalid name rebuild message: %v", err)}
		}

		if msg.MessageID != "" {
			first, err := marker.TryMarkProcessing(ctx, msg.MessageID, 24*time.Hour)
			if err != nil {
				logger.Logger.Warn("Failed to check message processed status",
					zap.String("message_id", msg.MessageID),
					zap.Error(err),
				)
			} else if !first {
				return &errors.SkipMessageError{Reason: fmt.Sprintf("Message %s already processed", msg.MessageID)}
			}
		}

		logger.Logger.Info("Processing name rebuild",
			zap.String("message_id", msg.MessageID),
			zap.String("setting", msg.Setting),
		)

		updated, err := rebuilder.RebuildNames(ctx, batchSize)
		if err != nil {
			if msg.MessageID != "" {
				if unmarkErr := marker.UnmarkProcessing(ctx, msg.MessageID); unmarkErr != nil {
					logger.Logger.Warn("Failed to unmark message",
						zap.String("message_id", msg.MessageID),
						zap.Error(unmarkErr),
					)
				}
			}

			// 正在跑的重建可能读的是旧格式，这条消息要在它结束后再执行一次
			if stderrors.Is(err, errors.RebuildRunning) {
				metrics.RebuildRun(ctx, metrics.RebuildBusy)
				logger.Logger.Info("Name rebuild busy, requeueing",
					zap.String("message_id", msg.MessageID),
					zap.Duration("retry_in", busyRetryDelay),
				)
				select {
				case <-ctx.Done():
				case <-time.After(busyRetryDelay):
				}
				return fmt.Errorf("name rebuild deferred: %w", err)
			}

			metrics.RebuildRun(ctx, metrics.RebuildFailed)
			return fmt.Errorf("failed to rebuild names: %w", err)
		}

		metrics.RebuildRun(ctx, metrics.RebuildSuccess)
		logger.Logger.Info("Name rebuild finished",
			zap.String("message_id", msg.MessageID),
			zap.Int("updated", updated),
		)

		if msg.MessageID != "" {
			if err := marker.MarkProcessed(ctx, msg.MessageID, 48*time.Hour); err != nil {
				logger.Logger.Warn("Failed to mark message as processed",
					zap.String("message_id", msg.MessageID),
					zap.Error(err),
				)
			}
		}

		return nil
	}
}

// StartNameRebuildConsumer 阻塞消费姓名重建队列
func StartNameRebuildConsumer(ctx context.Context, rebuilder NameRebuilder, marker MessageMarker, batchSize int) error {
	return mq.Consume(ctx, mq.ConsumeOptions{
		Queue:         mq.NameRebuildQueue,
		ConsumerTag:   "name_rebuild_consumer",
		PrefetchCount: 1, // 重建是全表操作，一次处理一条
		Handler:       NameRebuildHandler(rebuilder, marker, batchSize),
	})
}
