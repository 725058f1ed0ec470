// Package snippet derives the contextual passage around a highlighted
// selection. The relay hands that passage to providers as disambiguation
// context; it is never itself translated.
package snippet

import (
	"strings"
	"unicode/utf8"
)

// sentenceEnders terminate a sentence window. Covers Latin and CJK
// punctuation.
var sentenceEnders = map[rune]bool{
	'.': true,
	'!': true,
	'?': true,
	'…': true,
	'。': true,
	'！': true,
	'？': true,
}

// Sentence returns the full sentences covering the selection inside a plain
// text block. Returns "" when the selection is empty or not present.
func Sentence(text, selection string) string {
	sel := strings.TrimSpace(selection)
	if sel == "" {
		return ""
	}

	idx := strings.Index(text, sel)
	if idx < 0 {
		return ""
	}

	start := 0
	for i := idx; i > 0; {
		r, size := utf8.DecodeLastRuneInString(text[:i])
		if sentenceEnders[r] || r == '\n' {
			start = i
			break
		}
		i -= size
	}

	end := len(text)
	for i := idx + len(sel); i < len(text); {
		r, size := utf8.DecodeRuneInString(text[i:])
		i += size
		if sentenceEnders[r] {
			end = i
			break
		}
		if r == '\n' {
			end = i - size
			break
		}
	}

	return strings.TrimSpace(text[start:end])
}
