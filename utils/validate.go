package utils

import (
	"regexp"
	"strings"
)

var emailPattern = regexp.MustCompile(`^[A-Za-z0-9._%+\-']+@[A-Za-z0-9.\-]+\.[A-Za-z]{2,}$`)

// ValidateEmail 只做语法校验
func ValidateEmail(email string) bool {
	if len(email) > 254 {
		return false
	}
	return emailPattern.MatchString(strings.TrimSpace(email))
}
