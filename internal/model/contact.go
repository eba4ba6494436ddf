package model

import "time"

// ContactType 联系人类型，本服务只格式化 Individual
type ContactType string

const (
	ContactTypeIndividual   ContactType = "Individual"
	ContactTypeOrganization ContactType = "Organization"
	ContactTypeHousehold    ContactType = "Household"
)

// Contact 联系人模型
//
// PrefixID / SuffixID 是 option_values 中对应分组的 value，0 表示未设置
type Contact struct {
	BaseModel
	ContactType  ContactType `gorm:"type:varchar(64);not null;default:'Individual';index:idx_contacts_type" json:"contact_type"`
	FirstName    string      `gorm:"type:varchar(64);not null;default:''" json:"first_name"`
	MiddleName   string      `gorm:"type:varchar(64);not null;default:''" json:"middle_name"`
	LastName     string      `gorm:"type:varchar(64);not null;default:''" json:"last_name"`
	NickName     string      `gorm:"type:varchar(128);not null;default:''" json:"nick_name"`
	FormalTitle  string      `gorm:"type:varchar(64);not null;default:''" json:"formal_title"`
	PrefixID     int         `gorm:"not null;default:0" json:"prefix_id"`
	SuffixID     int         `gorm:"not null;default:0" json:"suffix_id"`
	SortName     string      `gorm:"type:varchar(128);not null;default:'';index:idx_contacts_sort_name" json:"sort_name"`
	DisplayName  string      `gorm:"type:varchar(128);not null;default:''" json:"display_name"`
	BirthDate    *time.Time  `gorm:"type:date" json:"birth_date,omitempty"`
	DeceasedDate *time.Time  `gorm:"type:date" json:"deceased_date,omitempty"`

	Emails []Email `gorm:"foreignKey:ContactID" json:"emails,omitempty"`
}

// TableName 指定表名
func (Contact) TableName() string {
	return "contacts"
}

// IsIndividual 是否为个人联系人
func (c *Contact) IsIndividual() bool {
	return c.ContactType == ContactTypeIndividual
}
