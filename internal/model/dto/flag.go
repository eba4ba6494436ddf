package dto

import (
	"bytes"
	"fmt"
	"strconv"
	"strings"
)

// Flag 兼容 true/false、1/0 以及 "1"/"true" 等字符串写法的布尔开关
// 调用方常把开关传成数字，直接用 bool 会在绑定时报类型不匹配
type Flag bool

// UnmarshalJSON 数字非 0 为 true，空字符串为 false
func (f *Flag) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		*f = false
		return nil
	}

	raw := string(data)
	if data[0] == '"' {
		s, err := strconv.Unquote(raw)
		if err != nil {
			return fmt.Errorf("invalid flag %s: %w", raw, err)
		}
		raw = strings.TrimSpace(s)
		if raw == "" {
			*f = false
			return nil
		}
	}

	if b, err := strconv.ParseBool(raw); err == nil {
		*f = Flag(b)
		return nil
	}
	if n, err := strconv.ParseFloat(raw, 64); err == nil {
		*f = n != 0
		return nil
	}

	return fmt.Errorf("invalid flag %s", string(data))
}

// MarshalJSON 始终输出 bool
func (f Flag) MarshalJSON() ([]byte, error) {
	return []byte(strconv.FormatBool(bool(f))), nil
}

// Bool 返回布尔值
func (f Flag) Bool() bool {
	return bool(f)
}

// FlagPtr nil 表示请求里没有这个字段
func FlagPtr(f *Flag) *bool {
	if f == nil {
		return nil
	}
	b := bool(*f)
	return &b
}
