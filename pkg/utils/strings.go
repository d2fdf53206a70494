package utils

import (
	"strings"
	"unicode/utf8"
)

// NormalizeEmail 去空格并转小写
func NormalizeEmail(s string) string { return strings.ToLower(strings.TrimSpace(s)) }

// Truncate 按字符（rune）截断
func Truncate(s string, n int) string {
	if n <= 0 {
		return ""
	}
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	return string([]rune(s)[:n])
}

// EscapeLike 转义 SQL LIKE 通配符（默认转义符为 \）
func EscapeLike(s string) string {
	r := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)
	return r.Replace(s)
}

// Contains 判断字符串切片是否包含 v
func Contains(list []string, v string) bool {
	for _, s := range list {
		if s == v {
			return true
		}
	}
	return false
}

// Toggle 切换成员关系：存在则移除，不存在则追加；返回新切片和切换后是否存在
func Toggle(list []string, v string) ([]string, bool) {
	out := make([]string, 0, len(list)+1)
	found := false
	for _, s := range list {
		if s == v {
			found = true
			continue
		}
		out = append(out, s)
	}
	if found {
		return out, false
	}
	return append(out, v), true
}
