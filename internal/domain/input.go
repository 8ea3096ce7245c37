package domain

import (
	"regexp"
	"strings"
	"unicode/utf8"
)

// InputKind classifies what the user typed into the search box
type InputKind string

const (
	InputEmpty       InputKind = "empty"
	InputTooShort    InputKind = "too_short"
	InputSearchQuery InputKind = "search_query"
	InputDirectURL   InputKind = "direct_url"
	InputVideoID     InputKind = "video_id"
)

// MinQueryLength is the shortest input accepted as a search query
const MinQueryLength = 3

var (
	videoURLPattern = regexp.MustCompile(`^(https?://)?(www\.)?(youtube\.com|youtu\.be)/.+$`)
	videoIDPattern  = regexp.MustCompile(`^[A-Za-z0-9_-]{11}$`)
)

// Classify decides whether input is a direct video reference or a search query
func Classify(input string) InputKind {
	s := strings.TrimSpace(input)
	switch {
	case s == "":
		return InputEmpty
	case videoURLPattern.MatchString(s):
		return InputDirectURL
	case videoIDPattern.MatchString(s):
		return InputVideoID
	case utf8.RuneCountInString(s) >= MinQueryLength:
		return InputSearchQuery
	default:
		return InputTooShort
	}
}

// IsDirect reports whether the input can be analyzed without a search
func (k InputKind) IsDirect() bool {
	return k == InputDirectURL || k == InputVideoID
}
