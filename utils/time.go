package utils

import (
	"time"
)

const DateLayout = "2006-01-02"

// ParseDate 解析 YYYY-MM-DD，空串和 "null" 返回 nil
func ParseDate(s string) (*time.Time, error) {
	if s == "" || s == "null" {
		return nil, nil
	}

	t, err := time.Parse(DateLayout, s)
	if err != nil {
		return nil, err
	}

	return &t, nil
}

// FormatDate nil 返回空串
func FormatDate(t *time.Time) string {
	if t == nil {
		return ""
	}
	return t.Format(DateLayout)
}
