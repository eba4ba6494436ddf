package repository

import (
	"context"
	"fmt"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"Constituent/internal/model"
)

// ContactRepository 联系人和邮箱的读写
type ContactRepository struct {
	db *gorm.DB
}

func NewContactRepository(db *gorm.DB) *ContactRepository {
	return &ContactRepository{db: db}
}

// GetByID 找不到时返回 gorm.ErrRecordNotFound
func (r *ContactRepository) GetByID(ctx context.Context, id int64) (*model.Contact, error) {
	var contact model.Contact
	err := r.db.WithContext(ctx).
		Preload("Emails", func(db *gorm.DB) *gorm.DB {
			return db.Order("is_primary DESC, id ASC")
		}).
		First(&contact, id).Error
	if err != nil {
		return nil, err
	}

	return &contact, nil
}

// GetPrimaryEmail 没有主邮箱时返回 gorm.ErrRecordNotFound
func (r *ContactRepository) GetPrimaryEmail(ctx context.Context, contactID int64) (string, error) {
	var email model.Email
	err := r.db.WithContext(ctx).
		Where("contact_id = ? AND is_primary = ?", contactID, true).
		Order("id ASC").
		First(&email).Error
	if err != nil {
		return "", err
	}

	return email.Email, nil
}

// Create 在同一事务中写入联系人和邮箱
func (r *ContactRepository) Create(ctx context.Context, contact *model.Contact) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Omit(clause.Associations).Create(contact).Error; err != nil {
			return fmt.Errorf("failed to create contact: %w", err)
		}

		if len(contact.Emails) == 0 {
			return nil
		}

		for i := range contact.Emails {
			contact.Emails[i].ContactID = contact.ID
		}
		if err := tx.Create(&contact.Emails).Error; err != nil {
			return fmt.Errorf("failed to create contact emails: %w", err)
		}

		return nil
	})
}

// Update 保存联系人字段；replaceEmails 为 true 时用 contact.Emails 整体替换原有邮箱
func (r *ContactRepository) Update(ctx context.Context, contact *model.Contact, replaceEmails bool) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Omit(clause.Associations).Save(contact).Error; err != nil {
			return fmt.Errorf("failed to update contact: %w", err)
		}

		if !replaceEmails {
			return nil
		}

		if err := tx.Where("contact_id = ?", contact.ID).Delete(&model.Email{}).Error; err != nil {
			return fmt.Errorf("failed to delete contact emails: %w", err)
		}

		if len(contact.Emails) == 0 {
			return nil
		}

		for i := range contact.Emails {
			contact.Emails[i].ID = 0
			contact.Emails[i].ContactID = contact.ID
		}
		if err := tx.Create(&contact.Emails).Error; err != nil {
			return fmt.Errorf("failed to create contact emails: %w", err)
		}

		return nil
	})
}

// UpdateNames 只更新 sort_name / display_name
func (r *ContactRepository) UpdateNames(ctx context.Context, id int64, sortName, displayName string) error {
	return r.db.WithContext(ctx).
		Model(&model.Contact{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{
			"sort_name":    sortName,
			"display_name": displayName,
		}).Error
}

// FindIndividualsInBatches 按主键顺序分批遍历个人联系人
func (r *ContactRepository) FindIndividualsInBatches(
	ctx context.Context,
	batchSize int,
	fn func(batch []*model.Contact) error,
) error {
	var batch []*model.Contact
	result := r.db.WithContext(ctx).
		Where("contact_type = ?", model.ContactTypeIndividual).
		Preload("Emails").
		FindInBatches(&batch, batchSize, func(tx *gorm.DB, _ int) error {
			return fn(batch)
		})

	return result.Error
}
