package models

import (
	"fmt"
	"strings"
	"unicode"
	"unicode/utf8"
)

// ParseTags splits a tag list string. Tags containing whitespace are
// written as [[tag with spaces]]; duplicates keep their first position.
func ParseTags(s string) []string {
	var (
		tags []string
		seen = make(map[string]struct{})
	)
	add := func(tag string) {
		if tag == "" {
			return
		}
		if _, dup := seen[tag]; dup {
			return
		}
		seen[tag] = struct{}{}
		tags = append(tags, tag)
	}

	i := 0
	for i < len(s) {
		i = skipSpace(s, i)
		if i >= len(s) {
			break
		}
		if strings.HasPrefix(s[i:], "[[") {
			if end := closingBrackets(s, i+2); end >= 0 {
				add(s[i+2 : end])
				i = end + 2
				continue
			}
		}
		start := i
		for i < len(s) {
			r, size := utf8.DecodeRuneInString(s[i:])
			if unicode.IsSpace(r) {
				break
			}
			i += size
		}
		add(s[start:i])
	}
	return tags
}

// closingBrackets finds the first "]]" at or after from that is followed by
// whitespace or the end of s.
func closingBrackets(s string, from int) int {
	for j := from; j+1 < len(s); j++ {
		if s[j] != ']' || s[j+1] != ']' {
			continue
		}
		if j+2 == len(s) || spaceAt(s, j+2) {
			return j
		}
	}
	return -1
}

// Whitespace is unicode.IsSpace on both the parse and the stringify side.
func spaceAt(s string, i int) bool {
	r, _ := utf8.DecodeRuneInString(s[i:])
	return unicode.IsSpace(r)
}

func skipSpace(s string, i int) int {
	for i < len(s) {
		r, size := utf8.DecodeRuneInString(s[i:])
		if !unicode.IsSpace(r) {
			break
		}
		i += size
	}
	return i
}

// StringifyTags renders tags in canonical list form.
func StringifyTags(tags []string) string {
	parts := make([]string, 0, len(tags))
	seen := make(map[string]struct{}, len(tags))
	for _, tag := range tags {
		if tag == "" {
			continue
		}
		if _, dup := seen[tag]; dup {
			continue
		}
		seen[tag] = struct{}{}
		if strings.IndexFunc(tag, unicode.IsSpace) >= 0 {
			tag = "[[" + tag + "]]"
		}
		parts = append(parts, tag)
	}
	return strings.Join(parts, " ")
}

// NormalizeTags accepts a list string or a JSON array of strings and returns
// the canonical list string.
func NormalizeTags(v any) (string, error) {
	switch value := v.(type) {
	case nil:
		return "", nil
	case string:
		return StringifyTags(ParseTags(value)), nil
	case []string:
		return StringifyTags(value), nil
	case []any:
		tags := make([]string, 0, len(value))
		for _, item := range value {
			s, ok := item.(string)
			if !ok {
				return "", fmt.Errorf("tag must be a string, got %T", item)
			}
			tags = append(tags, s)
		}
		return StringifyTags(tags), nil
	default:
		return "", fmt.Errorf("tags must be a string or a list of strings, got %T", v)
	}
}
