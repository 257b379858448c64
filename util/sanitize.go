package util

import (
	"path/filepath"
	"strings"
	"unicode"
)

// SanitizeFilename strips directory components and control characters from an
// uploaded filename and replaces whitespace, so it can be written into a
// scratch directory safely. Returns fallback when nothing usable remains.
func SanitizeFilename(name, fallback string) string {
	name = filepath.Base(strings.TrimSpace(name))

	name = strings.Map(func(r rune) rune {
		switch {
		case unicode.IsControl(r):
			return -1
		case unicode.IsSpace(r):
			return '_'
		case r == '/' || r == '\\':
			return -1
		default:
			return r
		}
	}, name)

	if name == "" || name == "." || name == ".." {
		return fallback
	}
	return name
}

// FileExt returns the lowercased extension of name without the leading dot.
func FileExt(name string) string {
	return strings.ToLower(strings.TrimPrefix(filepath.Ext(name), "."))
}
