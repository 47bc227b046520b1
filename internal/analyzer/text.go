package analyzer

import (
	"strings"
	"unicode"
)

// normalizeTerm lowercases and strips a leading '#'
func normalizeTerm(s string) string {
	return strings.ToLower(strings.TrimPrefix(strings.TrimSpace(s), "#"))
}

// words splits text into lowercase tokens of letters, digits and underscores
func words(text string) []string {
	return strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsNumber(r) && r != '_'
	})
}

// containsTerm reports whether term occurs in text on word boundaries.
// Multi-word terms are matched as consecutive tokens.
func containsTerm(tokens []string, term string) bool {
	needle := words(term)
	if len(needle) == 0 || len(needle) > len(tokens) {
		return false
	}
	for i := 0; i+len(needle) <= len(tokens); i++ {
		match := true
		for j, w := range needle {
			if tokens[i+j] != w {
				match = false
				break
			}
		}
		if match {
			return true
		}
	}
	return false
}

// postTokens tokenizes caption plus hashtags
func postTokens(caption string, hashtags []string) []string {
	tokens := words(caption)
	for _, h := range hashtags {
		tokens = append(tokens, words(h)...)
	}
	return tokens
}
