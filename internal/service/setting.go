package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"Constituent/config"
	"Constituent/internal/cache"
	"Constituent/internal/model"
	"Constituent/internal/model/dto"
	"Constituent/internal/queue"
	"Constituent/internal/repository"
	pkgerrors "Constituent/pkg/errors"
	"Constituent/pkg/logger"
	"Constituent/storage/database"
)

var (
	settingService *SettingService
	settingOnce    sync.Once
)

func Setting() *SettingService {
	settingOnce.Do(func() {
		settingService = NewSettingService(
			repository.NewSettingRepository(database.DB()),
			cache.Settings(),
			queue.NewProducer(),
		)
	})
	return settingService
}

// SettingStore 配置项的持久化
type SettingStore interface {
	Get(ctx context.Context, name string) (string, error)
	Upsert(ctx context.Context, name, value string) error
}

// RebuildPublisher 通知 worker 重建姓名
type RebuildPublisher interface {
	PublishNameRebuild(ctx context.Context, msg model.NameRebuildMessage) error
}

type settingCacheEntry struct {
	Value string `json:"value"`
}

type SettingService struct {
	store     SettingStore
	cache     Cache
	publisher RebuildPublisher
}

func NewSettingService(store SettingStore, c Cache, publisher RebuildPublisher) *SettingService {
	return &SettingService{store: store, cache: c, publisher: publisher}
}

// Get 读取配置：缓存 -> 数据库 -> 环境变量默认值
func (s *SettingService) Get(ctx context.Context, key string) (string, error) {
	if !model.IsNameFormatSetting(key) {
		return "", pkgerrors.SettingUnknown
	}

	var entry settingCacheEntry
	hit, empty, err := s.cache.Get(ctx, key, &entry)
	switch {
	case err != nil:
		logger.Logger.Warn("Failed to get setting cache, falling back to database",
			zap.String("setting", key),
			zap.Error(err),
		)
	case hit && empty:
		return defaultSetting(key), nil
	case hit:
		return entry.Value, nil
	}

	value, err := s.store.Get(ctx, key)
	if err != nil {
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			return "", fmt.Errorf("failed to get setting %s: %w", key, err)
		}

		// 没有覆盖值，记空值标识，避免每次回源
		if err := s.cache.Set(ctx, key, nil); err != nil {
			logger.Logger.Warn("Failed to set setting cache",
				zap.String("setting", key),
				zap.Error(err),
			)
		}
		return defaultSetting(key), nil
	}

	if err := s.cache.Set(ctx, key, settingCacheEntry{Value: value}); err != nil {
		logger.Logger.Warn("Failed to set setting cache",
			zap.String("setting", key),
			zap.Error(err),
		)
	}

	return value, nil
}

// NameFormats 当前生效的两个姓名格式
func (s *SettingService) NameFormats(ctx context.Context) (*dto.NameFormatResponse, error) {
	sortFormat, err := s.Get(ctx, model.SettingSortNameFormat)
	if err != nil {
		return nil, err
	}

	displayFormat, err := s.Get(ctx, model.SettingDisplayNameFormat)
	if err != nil {
		return nil, err
	}

	return &dto.NameFormatResponse{
		SortNameFormat:    sortFormat,
		DisplayNameFormat: displayFormat,
	}, nil
}

// Set 写入姓名格式并通知 worker 重建所有个人联系人的姓名
func (s *SettingService) Set(ctx context.Context, key, value string) error {
	if !model.IsNameFormatSetting(key) {
		return pkgerrors.SettingUnknown
	}

	value = strings.TrimSpace(value)
	if value == "" {
		return pkgerrors.SettingInvalid
	}

	if err := s.store.Upsert(ctx, key, value); err != nil {
		return fmt.Errorf("failed to save setting %s: %w", key, err)
	}

	if err := s.cache.Delete(ctx, key); err != nil {
		logger.Logger.Warn("Failed to invalidate setting cache",
			zap.String("setting", key),
			zap.Error(err),
		)
	}

	// 配置已落库，发布失败只记日志，可以重新保存触发
	if err := s.publisher.PublishNameRebuild(ctx, model.NameRebuildMessage{Setting: key}); err != nil {
		logger.Logger.Error("Failed to publish name rebuild",
			zap.String("setting", key),
			zap.Error(err),
		)
	}

	logger.Logger.Info("Name format updated",
		zap.String("setting", key),
		zap.String("value", value),
	)

	return nil
}

func defaultSetting(key string) string {
	switch key {
	case model.SettingSortNameFormat:
		return config.Cfg.SortNameFormat
	case model.SettingDisplayNameFormat:
		return config.Cfg.DisplayNameFormat
	}
	return ""
}
