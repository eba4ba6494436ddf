package repository

import (
	"context"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"Constituent/internal/model"
)

type SettingRepository struct {
	db *gorm.DB
}

func NewSettingRepository(db *gorm.DB) *SettingRepository {
	return &SettingRepository{db: db}
}

// Get 找不到时返回 gorm.ErrRecordNotFound
func (r *SettingRepository) Get(ctx context.Context, name string) (string, error) {
	var setting model.Setting
	if err := r.db.WithContext(ctx).Where("name = ?", name).First(&setting).Error; err != nil {
		return "", err
	}

	return setting.Value, nil
}

// Upsert 写入或覆盖配置项
func (r *SettingRepository) Upsert(ctx context.Context, name, value string) error {
	setting := model.Setting{Name: name, Value: value}
	return r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "name"}},
			DoUpdates: clause.AssignmentColumns([]string{"value", "updated_at"}),
		}).
		Create(&setting).Error
}
