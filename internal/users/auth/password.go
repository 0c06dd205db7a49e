// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package auth

import (
	"strings"
	"unicode/utf8"

	"github.com/taibuivan/tasker/internal/platform/apperr"
)

// passwordSpecials is the set of characters accepted as "special".
const passwordSpecials = `!@#$%^&*(),.?":{}|<>`

// passwordRule is one step of the strength policy.
type passwordRule struct {
	satisfied func(password string) bool
	reason    string
}

// passwordPolicy is evaluated in order and the first violation wins.
var passwordPolicy = []passwordRule{
	{
		satisfied: func(password string) bool { return utf8.RuneCountInString(password) >= MinPasswordLength },
		reason:    "Password must be at least 8 characters long",
	},
	{
		satisfied: containsRune(func(r rune) bool { return r >= 'A' && r <= 'Z' }),
		reason:    "Password must contain at least one uppercase letter",
	},
	{
		satisfied: containsRune(func(r rune) bool { return r >= 'a' && r <= 'z' }),
		reason:    "Password must contain at least one lowercase letter",
	},
	{
		satisfied: containsRune(func(r rune) bool { return r >= '0' && r <= '9' }),
		reason:    "Password must contain at least one number",
	},
	{
		satisfied: func(password string) bool { return strings.ContainsAny(password, passwordSpecials) },
		reason:    "Password must contain at least one special character",
	},
	{
		satisfied: func(password string) bool { return len(password) <= MaxPasswordBytes },
		reason:    "Password must be at most 72 bytes",
	},
}

func containsRune(match func(rune) bool) func(string) bool {
	return func(password string) bool {
		return strings.IndexFunc(password, match) >= 0
	}
}

// ValidatePassword returns a WEAK_PASSWORD error naming the first violated rule.
func ValidatePassword(password string) error {
	for _, rule := range passwordPolicy {
		if !rule.satisfied(password) {
			return apperr.WeakPassword(rule.reason)
		}
	}
	return nil
}
