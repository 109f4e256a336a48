package book

import (
	"path/filepath"
	"regexp"
	"strings"
	"unicode/utf8"
)

// whitespaceRegex matches one or more whitespace characters
var whitespaceRegex = regexp.MustCompile(`\s+`)

// separatorRegex matches runs of characters commonly used as word separators in file names
var separatorRegex = regexp.MustCompile(`[_\s]+`)

// MaxTitleChars bounds a book title.
const MaxTitleChars = 500

// MaxNotesChars bounds a book's notes.
const MaxNotesChars = 50000

// Normalize trims, lowercases and collapses internal whitespace.
func Normalize(s string) string {
	s = strings.TrimSpace(s)
	s = strings.ToLower(s)
	return whitespaceRegex.ReplaceAllString(s, " ")
}

// CleanTitle trims and collapses internal whitespace, keeping case.
func CleanTitle(s string) string {
	return whitespaceRegex.ReplaceAllString(strings.TrimSpace(s), " ")
}

// TitleFromFileName derives a display title from an archive file name:
// directory and extension are dropped, underscores become spaces.
func TitleFromFileName(name string) string {
	base := filepath.Base(strings.ReplaceAll(name, `\`, "/"))
	if base == "." || base == "/" {
		return ""
	}
	base = strings.TrimSuffix(base, filepath.Ext(base))
	return strings.TrimSpace(separatorRegex.ReplaceAllString(base, " "))
}

// CountChars returns the character count as runes (not bytes).
func CountChars(text string) int {
	return utf8.RuneCountInString(text)
}
