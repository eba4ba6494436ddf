package cache

import (
	"sync"
	"time"

	"Constituent/config"
)

var (
	optionLabels     *ProtectedCache
	optionLabelsOnce sync.Once

	settings     *ProtectedCache
	settingsOnce sync.Once
)

// OptionLabels 选项组 value -> label 的缓存，key 为选项组名
func OptionLabels() *ProtectedCache {
	optionLabelsOnce.Do(func() {
		optionLabels = NewProtectedCache("option", minutes(config.Cfg.OptionCacheTTLMinutes, 60))
	})
	return optionLabels
}

// Settings 姓名格式配置缓存，key 为配置名
func Settings() *ProtectedCache {
	settingsOnce.Do(func() {
		settings = NewProtectedCache("setting", minutes(config.Cfg.SettingCacheTTLMinutes, 10))
	})
	return settings
}

func minutes(n, fallback int) time.Duration {
	if n <= 0 {
		n = fallback
	}
	return time.Duration(n) * time.Minute
}
