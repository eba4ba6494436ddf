package dto

// OptionItem 选项项
type OptionItem struct {
	Value  int    `json:"value"`
	Label  string `json:"label"`
	Weight int    `json:"weight"`
}
