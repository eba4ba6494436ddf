package token

import (
	"context"
	"sort"
	"sync"
)

// 姓名模板中可以引用的 token，按分类注册（contact、custom 等）
// 模板渲染时只需要 token 的 key，label 给管理端展示用

// ContactCategory 内置的联系人字段 token 分类
const ContactCategory = "contact"

var (
	defaultRegistry *Registry
	registryOnce    sync.Once
)

// Default 返回进程级别的 token 注册表
func Default() *Registry {
	registryOnce.Do(func() {
		defaultRegistry = NewRegistry()
		defaultRegistry.Register(ContactCategory, ContactTokens())
	})

	return defaultRegistry
}

type Registry struct {
	mu         sync.RWMutex
	categories map[string]map[string]string
}

func NewRegistry() *Registry {
	return &Registry{
		categories: make(map[string]map[string]string),
	}
}

// Register 向分类中追加 token，已有的同名 token 会被覆盖
func (r *Registry) Register(category string, tokens map[string]string) {
	if category == "" || len(tokens) == 0 {
		return
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	cat, ok := r.categories[category]
	if !ok {
		cat = make(map[string]string, len(tokens))
		r.categories[category] = cat
	}
	for key, label := range tokens {
		cat[key] = label
	}
}

// Tokens 返回所有分类的深拷贝，调用方可以随意修改
func (r *Registry) Tokens(ctx context.Context) map[string]map[string]string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make(map[string]map[string]string, len(r.categories))
	for category, tokens := range r.categories {
		cp := make(map[string]string, len(tokens))
		for key, label := range tokens {
			cp[key] = label
		}
		out[category] = cp
	}

	return out
}

// Flatten 把分类展开成 token key 列表，按分类名、token 名排序保证结果稳定
func Flatten(categories map[string]map[string]string) []string {
	names := make([]string, 0, len(categories))
	for name := range categories {
		names = append(names, name)
	}
	sort.Strings(names)

	var keys []string
	for _, name := range names {
		catKeys := make([]string, 0, len(categories[name]))
		for key := range categories[name] {
			catKeys = append(catKeys, key)
		}
		sort.Strings(catKeys)
		keys = append(keys, catKeys...)
	}

	return keys
}

// ContactTokens 内置联系人 token
func ContactTokens() map[string]string {
	return map[string]string{
		"contact.first_name":        "First Name",
		"contact.middle_name":       "Middle Name",
		"contact.last_name":         "Last Name",
		"contact.nick_name":         "Nickname",
		"contact.formal_title":      "Formal Title",
		"contact.individual_prefix": "Individual Prefix",
		"contact.individual_suffix": "Individual Suffix",
		"contact.prefix_id:label":   "Individual Prefix",
		"contact.suffix_id:label":   "Individual Suffix",
		"contact.email":             "Email",
	}
}
