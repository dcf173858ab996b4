package variation

import (
	"crypto/sha256"
	"encoding/hex"
	"strings"
	"unicode"

	"github.com/astoerkel/floe-voice-assistant-sub003/internal/intent"
)

// signatureWords is how many content words identify a response.
const signatureWords = 5

// Signature digests the first content words of text: stop words are dropped,
// case is folded and order is kept. Number tokens always count, wherever they
// appear, so answers that differ only in a figure never share a signature.
func Signature(text string) string {
	words := make([]string, 0, signatureWords)
	var numbers []string
	for _, tok := range intent.Normalize(text).Content {
		letter, digit := classify(tok)
		switch {
		case digit:
			if len(words) < signatureWords {
				words = append(words, tok)
			} else {
				numbers = append(numbers, tok)
			}
		case letter && len(words) < signatureWords:
			words = append(words, tok)
		}
	}
	words = append(words, numbers...)
	sum := sha256.Sum256([]byte(strings.Join(words, " ")))
	return hex.EncodeToString(sum[:16])
}

func classify(s string) (letter, digit bool) {
	for _, r := range s {
		switch {
		case unicode.IsDigit(r):
			digit = true
		case unicode.IsLetter(r):
			letter = true
		}
	}
	return letter, digit
}
