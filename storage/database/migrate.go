package database

import (
	"go.uber.org/zap"
	"gorm.io/gorm"

	"Constituent/internal/model"
	"Constituent/pkg/logger"
)

// Migrate 运行数据库迁移，创建所有表
func Migrate() error {
	db := DB()
	if db == nil {
		return gorm.ErrInvalidDB
	}

	logger.Logger.Info("Starting database migration...")

	if err := AutoMigrate(db); err != nil {
		logger.Logger.Error("Database migration failed", zap.Error(err))
		return err
	}

	logger.Logger.Info("Database migration completed successfully")
	return nil
}

// AutoMigrate 迁移所有模型，测试里对 sqlite 也调用这里
func AutoMigrate(db *gorm.DB) error {
	return db.AutoMigrate(
		&model.Contact{},
		&model.Email{},
		&model.OptionValue{},
		&model.Setting{},
	)
}
