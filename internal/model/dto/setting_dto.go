package dto

// NameFormatResponse 当前生效的姓名格式
type NameFormatResponse struct {
	SortNameFormat    string `json:"sort_name_format"`
	DisplayNameFormat string `json:"display_name_format"`
}

// UpdateSettingRequest 更新配置项请求
type UpdateSettingRequest struct {
	Value string `json:"value"`
}
