package dto

import "time"

// ========== Contact 相关 DTO ==========
// 请求字段用指针区分"没传"和"传了空值"，格式化时两者语义不同

// EmailItem 请求中的邮箱项，IsPrimary 为 nil 表示没有传 is_primary
type EmailItem struct {
	Email        string `json:"email"`
	IsPrimary    *Flag  `json:"is_primary,omitempty"`
	LocationType string `json:"location_type,omitempty"`
}

// ContactRequest 创建/更新联系人请求
type ContactRequest struct {
	ContactType    string      `json:"contact_type"`
	FirstName      *string     `json:"first_name,omitempty"`
	MiddleName     *string     `json:"middle_name,omitempty"`
	LastName       *string     `json:"last_name,omitempty"`
	NickName       *string     `json:"nick_name,omitempty"`
	FormalTitle    *string     `json:"formal_title,omitempty"`
	PrefixID       *int        `json:"prefix_id,omitempty"`
	SuffixID       *int        `json:"suffix_id,omitempty"`
	BirthDate      *string     `json:"birth_date,omitempty"`
	DeceasedDate   *string     `json:"deceased_date,omitempty"`
	SortName       *string     `json:"sort_name,omitempty"`
	DisplayName    *string     `json:"display_name,omitempty"`
	UserUniqueID   *string     `json:"user_unique_id,omitempty"`
	Email          []EmailItem `json:"email,omitempty"`
	PreserveDBName Flag        `json:"preserveDBName,omitempty"`
}

// EmailResponse 联系人邮箱
type EmailResponse struct {
	Email        string `json:"email"`
	IsPrimary    bool   `json:"is_primary"`
	LocationType string `json:"location_type"`
}

// ContactResponse 联系人响应
type ContactResponse struct {
	ID           int64           `json:"id"`
	ContactType  string          `json:"contact_type"`
	FirstName    string          `json:"first_name"`
	MiddleName   string          `json:"middle_name"`
	LastName     string          `json:"last_name"`
	NickName     string          `json:"nick_name"`
	FormalTitle  string          `json:"formal_title"`
	PrefixID     int             `json:"prefix_id"`
	SuffixID     int             `json:"suffix_id"`
	SortName     string          `json:"sort_name"`
	DisplayName  string          `json:"display_name"`
	PlainName    string          `json:"plain_display_name,omitempty"` // 不走模板的展示名
	BirthDate    string          `json:"birth_date,omitempty"`
	DeceasedDate string          `json:"deceased_date,omitempty"`
	Emails       []EmailResponse `json:"emails"`
	UpdatedAt    time.Time       `json:"updated_at"`
}
