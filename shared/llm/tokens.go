package llm

import (
	"strings"
	"unicode"
	"unicode/utf8"
)

// WordTokens estimates roughly 1.5 tokens per word, where a word is a run
// of letters or digits.
func WordTokens(text string) int {
	words := strings.FieldsFunc(text, func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
	return len(words) * 3 / 2
}

// CharTokens estimates one token per four characters, rounded up.
func CharTokens(text string) int {
	return (utf8.RuneCountInString(text) + 3) / 4
}
