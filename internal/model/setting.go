package model

import "time"

// 姓名格式相关的配置项
const (
	SettingSortNameFormat    = "sort_name_format"
	SettingDisplayNameFormat = "display_name_format"
)

// Setting 键值配置
type Setting struct {
	Name      string    `gorm:"primaryKey;type:varchar(64)" json:"name"`
	Value     string    `gorm:"type:text;not null;default:''" json:"value"`
	UpdatedAt time.Time `gorm:"not null;autoUpdateTime" json:"updated_at"`
}

func (Setting) TableName() string {
	return "settings"
}

// IsNameFormatSetting 是否为姓名格式配置
func IsNameFormatSetting(name string) bool {
	return name == SettingSortNameFormat || name == SettingDisplayNameFormat
}
