package util

import (
	"errors"
	"strings"
	"unicode"
)

// ErrBadFileName is returned for empty names and traversal attempts.
var ErrBadFileName = errors.New("invalid file name")

// SanitizeFileName makes an uploaded file name safe to use inside a
// storage key: traversal sequences are rejected outright, separators and
// control characters are replaced with underscores.
func SanitizeFileName(name string) (string, error) {
	if strings.Contains(name, "..") {
		return "", ErrBadFileName
	}
	s := strings.Map(func(r rune) rune {
		switch {
		case r == '/' || r == '\\':
			return '_'
		case unicode.IsControl(r):
			return '_'
		default:
			return r
		}
	}, strings.TrimSpace(name))
	if s == "" {
		return "", ErrBadFileName
	}
	return s, nil
}
