package model

// Email 联系人邮箱，一个联系人最多一个 is_primary
type Email struct {
	BaseModel
	ContactID    int64  `gorm:"not null;index:idx_emails_contact" json:"contact_id"`
	Email        string `gorm:"type:varchar(254);not null;index:idx_emails_email" json:"email"`
	IsPrimary    bool   `gorm:"not null;default:false" json:"is_primary"`
	LocationType string `gorm:"type:varchar(32);not null;default:'Home'" json:"location_type"`
}

func (Email) TableName() string {
	return "emails"
}
