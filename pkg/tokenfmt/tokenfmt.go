// Package tokenfmt renders name format strings such as
// "{contact.last_name}{, }{contact.first_name}" against a field map.
//
// A brace group containing a letter or digit is a placeholder. A brace group
// made only of punctuation and spaces ("{ }", "{, }") is a separator and is
// written only between two non-empty placeholders.
package tokenfmt

import (
	"strings"
	"unicode"
)

const contactPrefix = "contact."

// aliases 模板里常用的简写 -> 字段 key
var aliases = map[string]string{
	"individual_prefix": "prefix_id:label",
	"individual_suffix": "suffix_id:label",
	"prefix":            "prefix_id:label",
	"suffix":            "suffix_id:label",
	"first":             "first_name",
	"middle":            "middle_name",
	"last":              "last_name",
	"nick":              "nick_name",
	"title":             "formal_title",
}

type segmentKind int

const (
	literal segmentKind = iota
	placeholder
	separator
)

type segment struct {
	kind segmentKind
	text string
}

// Formatter 无状态，可以并发使用
type Formatter struct{}

func New() *Formatter {
	return &Formatter{}
}

// Format 渲染 format，tokens 是已注册的 token key（形如 "category.name"），
// 用于把带分类前缀的占位符映射回字段
func (f *Formatter) Format(fields map[string]string, format string, tokens []string) string {
	if format == "" {
		return ""
	}

	known := make(map[string]struct{}, len(tokens))
	for _, t := range tokens {
		known[t] = struct{}{}
	}

	segments := parse(format)
	values := make([]string, len(segments))
	for i, seg := range segments {
		if seg.kind == placeholder {
			values[i] = lookup(fields, seg.text, known)
		}
	}

	var sb strings.Builder
	pending := false
	for i, seg := range segments {
		switch seg.kind {
		case literal:
			sb.WriteString(seg.text)
		case placeholder:
			if values[i] != "" {
				sb.WriteString(values[i])
				pending = true
			}
		case separator:
			if pending && nextPlaceholderFilled(segments, values, i) {
				sb.WriteString(seg.text)
				pending = false
			}
		}
	}

	return clean(sb.String())
}

func parse(format string) []segment {
	var segments []segment
	rest := format
	for rest != "" {
		open := strings.IndexByte(rest, '{')
		if open < 0 {
			segments = append(segments, segment{kind: literal, text: rest})
			break
		}
		closing := strings.IndexByte(rest[open:], '}')
		if closing < 0 {
			segments = append(segments, segment{kind: literal, text: rest})
			break
		}
		closing += open

		if open > 0 {
			segments = append(segments, segment{kind: literal, text: rest[:open]})
		}

		body := rest[open+1 : closing]
		if hasAlnum(body) {
			segments = append(segments, segment{kind: placeholder, text: strings.TrimSpace(body)})
		} else {
			segments = append(segments, segment{kind: separator, text: body})
		}
		rest = rest[closing+1:]
	}

	return segments
}

func lookup(fields map[string]string, name string, known map[string]struct{}) string {
	if v, ok := fields[name]; ok {
		return strings.TrimSpace(v)
	}

	key := strings.TrimPrefix(name, contactPrefix)
	if alias, ok := aliases[key]; ok {
		key = alias
	}
	if v, ok := fields[key]; ok {
		return strings.TrimSpace(v)
	}

	// 自定义分类的 token，按去掉分类前缀后的名字取值
	if _, ok := known[name]; ok {
		if dot := strings.IndexByte(name, '.'); dot >= 0 {
			return strings.TrimSpace(fields[name[dot+1:]])
		}
	}

	return ""
}

func nextPlaceholderFilled(segments []segment, values []string, from int) bool {
	for i := from + 1; i < len(segments); i++ {
		if segments[i].kind == placeholder {
			return values[i] != ""
		}
	}
	return false
}

func hasAlnum(s string) bool {
	for _, r := range s {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			return true
		}
	}
	return false
}

func clean(s string) string {
	s = strings.Join(strings.Fields(s), " ")
	return strings.Trim(s, " ,")
}
