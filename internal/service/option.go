package service

import (
	"context"
	"fmt"
	"strconv"
	"sync"

	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"

	"Constituent/internal/cache"
	"Constituent/internal/individual"
	"Constituent/internal/model"
	"Constituent/internal/model/dto"
	"Constituent/internal/repository"
	pkgerrors "Constituent/pkg/errors"
	"Constituent/pkg/logger"
	"Constituent/storage/database"
)

var (
	optionService *OptionService
	optionOnce    sync.Once
)

func Option() *OptionService {
	optionOnce.Do(func() {
		optionService = NewOptionService(
			repository.NewOptionValueRepository(database.DB()),
			cache.OptionLabels(),
		)
	})
	return optionService
}

// OptionStore 选项值的持久化
type OptionStore interface {
	ListByGroup(ctx context.Context, group string) ([]model.OptionValue, error)
	SeedDefaults(ctx context.Context, defaults []model.OptionValue) error
}

// Cache 带空值标识的缓存，cache.ProtectedCache 实现
type Cache interface {
	Get(ctx context.Context, key string, dest interface{}) (hit bool, empty bool, err error)
	Set(ctx context.Context, key string, value interface{}) error
	Delete(ctx context.Context, key string) error
}

// 字段 -> 选项组
var optionGroupOfField = map[string]string{
	string(individual.PrefixID): model.OptionGroupIndividualPrefix,
	string(individual.SuffixID): model.OptionGroupIndividualSuffix,
}

type optionCacheEntry struct {
	Items []dto.OptionItem `json:"items"`
}

type OptionService struct {
	store OptionStore
	cache Cache
	group singleflight.Group
}

func NewOptionService(store OptionStore, c Cache) *OptionService {
	return &OptionService{store: store, cache: c}
}

// Label 把前缀/后缀的选项值解析成 label，未知字段或值返回空串
func (s *OptionService) Label(ctx context.Context, entity, field, value string) (string, error) {
	if entity != individual.EntityContact {
		return "", nil
	}

	group, ok := optionGroupOfField[field]
	if !ok {
		return "", nil
	}

	code, err := strconv.Atoi(value)
	if err != nil {
		return "", nil
	}

	items, err := s.items(ctx, group)
	if err != nil {
		return "", err
	}

	for _, item := range items {
		if item.Value == code {
			return item.Label, nil
		}
	}

	return "", nil
}

// List 返回选项组下的全部选项
func (s *OptionService) List(ctx context.Context, group string) ([]dto.OptionItem, error) {
	if group != model.OptionGroupIndividualPrefix && group != model.OptionGroupIndividualSuffix {
		return nil, pkgerrors.OptionGroupUnknown
	}

	items, err := s.items(ctx, group)
	if err != nil {
		return nil, err
	}
	if items == nil {
		items = []dto.OptionItem{}
	}

	return items, nil
}

// EnsureDefaults 选项组为空时写入默认前缀/后缀，并清掉对应缓存
func (s *OptionService) EnsureDefaults(ctx context.Context) error {
	if err := s.store.SeedDefaults(ctx, model.DefaultOptionValues()); err != nil {
		return fmt.Errorf("failed to seed option values: %w", err)
	}

	for _, group := range []string{model.OptionGroupIndividualPrefix, model.OptionGroupIndividualSuffix} {
		if err := s.cache.Delete(ctx, group); err != nil {
			logger.Logger.Warn("Failed to invalidate option cache",
				zap.String("group", group),
				zap.Error(err),
			)
		}
	}

	return nil
}

// items 先查缓存，未命中时同一选项组只回源一次
func (s *OptionService) items(ctx context.Context, group string) ([]dto.OptionItem, error) {
	var entry optionCacheEntry
	hit, empty, err := s.cache.Get(ctx, group, &entry)
	if err != nil {
		// 缓存不可用时直接查库
		logger.Logger.Warn("Failed to get option cache, falling back to database",
			zap.String("group", group),
			zap.Error(err),
		)
	} else if hit {
		if empty {
			return nil, nil
		}
		return entry.Items, nil
	}

	v, err, _ := s.group.Do(group, func() (interface{}, error) {
		values, err := s.store.ListByGroup(ctx, group)
		if err != nil {
			return nil, fmt.Errorf("failed to list option group %s: %w", group, err)
		}

		items := make([]dto.OptionItem, 0, len(values))
		for _, v := range values {
			items = append(items, dto.OptionItem{
				Value:  v.Value,
				Label:  v.Label,
				Weight: v.Weight,
			})
		}

		var cached interface{}
		if len(items) > 0 {
			cached = optionCacheEntry{Items: items}
		}
		if err := s.cache.Set(ctx, group, cached); err != nil {
			logger.Logger.Warn("Failed to set option cache",
				zap.String("group", group),
				zap.Error(err),
			)
		}

		return items, nil
	})
	if err != nil {
		return nil, err
	}

	items := v.([]dto.OptionItem)
	if len(items) == 0 {
		return nil, nil
	}
	return items, nil
}
