// Package util normalizes raw configuration values read from YAML documents,
// flags and environment variables.
package util

import "strings"

// Setting returns s without surrounding blanks and whether anything is left.
// A blank value counts as unset.
func Setting(s string) (string, bool) {
	v := strings.TrimSpace(s)
	return v, v != ""
}

// SettingOr returns the trimmed value of s, or def when s is unset.
func SettingOr(s, def string) string {
	if v, ok := Setting(s); ok {
		return v
	}
	return def
}

// Keyword normalizes an enumerated setting such as a driver name or a log
// level for case-insensitive comparison.
func Keyword(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}
