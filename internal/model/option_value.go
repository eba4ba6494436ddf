package model

// 前缀、后缀的选项分组
const (
	OptionGroupIndividualPrefix = "individual_prefix"
	OptionGroupIndividualSuffix = "individual_suffix"
)

// OptionValue 可配置的选项值（称谓前缀、后缀等），联系人上只存 Value
type OptionValue struct {
	BaseModel
	OptionGroup string `gorm:"type:varchar(64);not null;uniqueIndex:idx_option_group_value" json:"option_group"`
	Value       int    `gorm:"not null;uniqueIndex:idx_option_group_value" json:"value"`
	Label       string `gorm:"type:varchar(128);not null" json:"label"`
	Name        string `gorm:"type:varchar(64);not null;default:''" json:"name"`
	Weight      int    `gorm:"not null;default:0" json:"weight"`
	IsActive    bool   `gorm:"not null;default:true" json:"is_active"`
}

func (OptionValue) TableName() string {
	return "option_values"
}

// DefaultOptionValues 迁移时写入的默认选项，只在分组为空时写入
func DefaultOptionValues() []OptionValue {
	prefixes := []string{"Mrs.", "Ms.", "Mr.", "Dr."}
	suffixes := []string{"Jr.", "Sr.", "II", "III", "IV", "V", "VI", "VII"}

	values := make([]OptionValue, 0, len(prefixes)+len(suffixes))
	for i, label := range prefixes {
		values = append(values, OptionValue{
			OptionGroup: OptionGroupIndividualPrefix,
			Value:       i + 1,
			Label:       label,
			Name:        label,
			Weight:      i + 1,
			IsActive:    true,
		})
	}
	for i, label := range suffixes {
		values = append(values, OptionValue{
			OptionGroup: OptionGroupIndividualSuffix,
			Value:       i + 1,
			Label:       label,
			Name:        label,
			Weight:      i + 1,
			IsActive:    true,
		})
	}

	return values
}
