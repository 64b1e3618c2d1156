// Package textutil provides text processing utilities for transcript tokens.
package textutil

import (
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// Lower lowercases text using Unicode case mapping.
func Lower(text string) string {
	return cases.Lower(language.Und).String(text)
}

// SplitTagged splits a "word/TAG" token at its last slash. ok is false when
// either side is empty or there is no slash.
func SplitTagged(token string) (word, tag string, ok bool) {
	i := strings.LastIndexByte(token, '/')
	if i <= 0 || i == len(token)-1 {
		return token, "", false
	}
	return token[:i], token[i+1:], true
}

// Window joins tokens[from..to] (inclusive) with spaces. Indices are clamped
// to the slice bounds.
func Window(tokens []string, from, to int) string {
	if from < 0 {
		from = 0
	}
	if to >= len(tokens) {
		to = len(tokens) - 1
	}
	if from > to {
		return ""
	}
	return strings.Join(tokens[from:to+1], " ")
}
