package repository

import (
	"context"

	"gorm.io/gorm"

	"Constituent/internal/model"
)

type OptionValueRepository struct {
	db *gorm.DB
}

func NewOptionValueRepository(db *gorm.DB) *OptionValueRepository {
	return &OptionValueRepository{db: db}
}

// ListByGroup 返回分组内启用的选项，按 weight 排序
func (r *OptionValueRepository) ListByGroup(ctx context.Context, group string) ([]model.OptionValue, error) {
	var values []model.OptionValue
	err := r.db.WithContext(ctx).
		Where("option_group = ? AND is_active = ?", group, true).
		Order("weight ASC, value ASC").
		Find(&values).Error
	if err != nil {
		return nil, err
	}

	return values, nil
}

// SeedDefaults 分组为空时写入默认选项
func (r *OptionValueRepository) SeedDefaults(ctx context.Context, defaults []model.OptionValue) error {
	byGroup := make(map[string][]model.OptionValue)
	for _, v := range defaults {
		byGroup[v.OptionGroup] = append(byGroup[v.OptionGroup], v)
	}

	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		for group, values := range byGroup {
			var count int64
			if err := tx.Model(&model.OptionValue{}).Where("option_group = ?", group).Count(&count).Error; err != nil {
				return err
			}
			if count > 0 {
				continue
			}
			if err := tx.Create(&values).Error; err != nil {
				return err
			}
		}
		return nil
	})
}
