package parser

import (
	"strings"
	"unicode"
)

// SplitSentences splits text into trimmed sentences. Line breaks also end a
// sentence so bullet lists and code do not run together.
func SplitSentences(text string) []string {
	var sentences []string
	for _, line := range strings.Split(text, "\n") {
		for _, s := range splitLine(line) {
			if s = strings.TrimSpace(s); s != "" {
				sentences = append(sentences, s)
			}
		}
	}
	return sentences
}

func splitLine(text string) []string {
	var sentences []string
	var current strings.Builder

	runes := []rune(text)
	for i := 0; i < len(runes); i++ {
		r := runes[i]
		current.WriteRune(r)

		if r == '.' || r == '!' || r == '?' {
			if i+1 >= len(runes) || unicode.IsSpace(runes[i+1]) {
				// Single capital initial such as "J." or "U.S."
				if i > 1 && unicode.IsUpper(runes[i-1]) && !unicode.IsLetter(runes[i-2]) {
					continue
				}
				sentences = append(sentences, current.String())
				current.Reset()
			}
		}
	}

	if current.Len() > 0 {
		sentences = append(sentences, current.String())
	}

	return sentences
}
