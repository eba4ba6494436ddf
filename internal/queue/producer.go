package queue

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"Constituent/internal/model"
	"Constituent/pkg/logger"
	"Constituent/pkg/snowflake"
	"Constituent/storage/mq"
)

// Producer 发布姓名重建消息
type Producer struct{}

func NewProducer() *Producer {
	return &Producer{}
}

// PublishNameRebuild 发布姓名重建消息，MessageID 为空时生成
func (Producer) PublishNameRebuild(ctx context.Context, msg model.NameRebuildMessage) error {
	if msg.MessageID == "" {
		id, err := snowflake.NextID()
		if err != nil {
			logger.Logger.Error("Failed to generate message ID",
				zap.String("setting", msg.Setting),
				zap.Error(err),
			)
			return fmt.Errorf("failed to generate message ID: %w", err)
		}
		msg.MessageID = fmt.Sprintf("name_rebuild_%d", id)
	}
	if msg.RequestedAt == "" {
		msg.RequestedAt = time.Now().UTC().Format(time.RFC3339)
	}

	err := mq.PublishMessage(ctx, mq.ContactEventsExchange, mq.NameRebuildRoutingKey, msg)
	if err != nil {
		logger.Logger.Error("Failed to publish name rebuild message",
			zap.String("message_id", msg.MessageID),
			zap.String("setting", msg.Setting),
			zap.Error(err),
		)
		return err
	}

	logger.Logger.Info("Published name rebuild message",
		zap.String("message_id", msg.MessageID),
		zap.String("setting", msg.Setting),
	)

	return nil
}
