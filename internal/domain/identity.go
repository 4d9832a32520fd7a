package domain

import (
	"html"
	"regexp"
	"strings"

	"github.com/segmentio/ksuid"
)

var badChars = regexp.MustCompile(`[\\/:*?"<>|\x00-\x1f]`)

// SanitizeFileName replaces characters that are illegal on Windows, Linux or
// macOS so manifest names can be used directly on disk.
func SanitizeFileName(name string) string {
	res := html.UnescapeString(name)
	res = badChars.ReplaceAllString(res, "_")
	res = strings.TrimSpace(res)

	// Windows refuses trailing dots and spaces
	res = strings.TrimRight(res, ". ")
	if res == "" || res == ".." {
		return ""
	}
	return res
}

// NewID returns a sortable, chronological identifier.
func NewID() string {
	return ksuid.New().String()
}
