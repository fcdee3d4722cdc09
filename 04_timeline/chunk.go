package timeline

import (
	"strings"
	"unicode/utf8"
)

// Chunk splits text into word-bounded pieces of at most maxChars characters.
// Words are never split: a single word longer than maxChars gets a chunk of
// its own. Empty or all-whitespace text yields nil.
func Chunk(text string, maxChars int) []string {
	words := strings.Fields(text)
	if len(words) == 0 {
		return nil
	}

	var chunks []string
	var current []string
	currentLen := 0

	for _, word := range words {
		wordLen := utf8.RuneCountInString(word)

		candidate := wordLen
		if len(current) > 0 {
			candidate = currentLen + 1 + wordLen
		}

		if candidate <= maxChars || len(current) == 0 {
			current = append(current, word)
			currentLen = candidate
			continue
		}

		chunks = append(chunks, strings.Join(current, " "))
		current = []string{word}
		currentLen = wordLen
	}

	if len(current) > 0 {
		chunks = append(chunks, strings.Join(current, " "))
	}
	return chunks
}
