package common

import "strings"

// HasAny reports whether s contains any of subs, ignoring case.
func HasAny(s string, subs ...string) bool {
	s = strings.ToLower(s)
	for _, sub := range subs {
		if strings.Contains(s, strings.ToLower(sub)) {
			return true
		}
	}
	return false
}

// NormalizeKey lowercases and trims a user-supplied lookup term.
func NormalizeKey(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}
