package textutil

import (
	"path"
	"regexp"
	"strings"
	"unicode/utf8"
)

var whitespaceRegex = regexp.MustCompile(`\s+`)

// CollapseWhitespace trims s and replaces every run of whitespace with a single space.
func CollapseWhitespace(s string) string {
	return strings.TrimSpace(whitespaceRegex.ReplaceAllString(s, " "))
}

// DefaultFilenameLength is the cap applied by SanitizeFilename when max <= 0.
const DefaultFilenameLength = 200

var reservedFilenameChars = regexp.MustCompile(`[<>:"/\\|?*]`)

// SanitizeFilename makes name safe to use as a single path element on common
// filesystems: reserved characters become '_', whitespace is collapsed and
// the result is truncated to max runes.
func SanitizeFilename(name string, max int) string {
	if max <= 0 {
		max = DefaultFilenameLength
	}
	name = reservedFilenameChars.ReplaceAllString(name, "_")
	name = CollapseWhitespace(name)
	if utf8.RuneCountInString(name) > max {
		name = string([]rune(name)[:max])
	}
	return strings.TrimRight(name, " \t\n")
}

// SanitizeFilenameExt is SanitizeFilename for a name made of stem and ext,
// the stem is truncated so the extension always survives the cap.
func SanitizeFilenameExt(stem, ext string, max int) string {
	if max <= 0 {
		max = DefaultFilenameLength
	}
	ext = strings.TrimSpace(ext)
	room := max - utf8.RuneCountInString(ext)
	if room < 1 {
		return SanitizeFilename(stem+ext, max)
	}
	return SanitizeFilename(stem, room) + ext
}

// HasExtension reports whether name ends in one of exts (compared case-insensitively,
// exts include the leading dot).
func HasExtension(name string, exts ...string) bool {
	ext := strings.ToLower(path.Ext(strings.TrimSpace(name)))
	if ext == "" {
		return false
	}
	for _, e := range exts {
		if ext == strings.ToLower(e) {
			return true
		}
	}
	return false
}
