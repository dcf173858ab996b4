package response

import (
	"errors"
	"fmt"
	"math"
	"regexp"
	"strings"
	"unicode"

	"github.com/rivo/uniseg"
)

// ErrValidationRejected is the sentinel wrapped by every validation failure.
var ErrValidationRejected = errors.New("response rejected by validation")

// Length bounds in user-perceived characters.
const (
	MinLength = 3
	MaxLength = 1000
	// MinSentenceLength is the shortest sentence that counts as meaningful.
	MinSentenceLength = 10
)

// RejectReason identifies which rule rejected a candidate.
type RejectReason string

const (
	RejectEmpty      RejectReason = "empty"
	RejectLength     RejectReason = "length"
	RejectConfidence RejectReason = "confidence"
	RejectMarker     RejectReason = "disallowed_marker"
	RejectGibberish  RejectReason = "gibberish"
	RejectNoSentence RejectReason = "no_sentence"
)

// RejectionError describes a failed validation.
type RejectionError struct {
	Reason RejectReason
	Detail string
}

func (e *RejectionError) Error() string {
	if e.Detail == "" {
		return fmt.Sprintf("%s: %s", ErrValidationRejected, e.Reason)
	}
	return fmt.Sprintf("%s: %s (%s)", ErrValidationRejected, e.Reason, e.Detail)
}

// Unwrap lets errors.Is match ErrValidationRejected.
func (e *RejectionError) Unwrap() error {
	return ErrValidationRejected
}

var disallowedMarkers = []*regexp.Regexp{
	regexp.MustCompile(`(?i)\[(?:truncated|cut off|continued|placeholder)\]`),
	regexp.MustCompile(`(?i)<\s*/?\s*script`),
	regexp.MustCompile(`\{\{|\}\}`),
	regexp.MustCompile(`(?i)\blorem ipsum\b`),
	regexp.MustCompile(`\bTODO:`),
	regexp.MustCompile(`(?i)\b(?:undefined|null|NaN)\b$`),
	regexp.MustCompile(`\x{FFFD}`),
}

var sentenceSplit = regexp.MustCompile(`[^.!?]+[.!?]*`)

// Validate applies the quality gate to a candidate. It returns nil or a
// *RejectionError.
func Validate(c Candidate) error {
	return validate(c.Text, c.Confidence)
}

// ValidateText applies the gate to text with full confidence.
func ValidateText(text string) error {
	return validate(text, 1)
}

func validate(text string, confidence float64) error {
	trimmed := strings.TrimSpace(text)
	if trimmed == "" {
		return &RejectionError{Reason: RejectEmpty}
	}

	if n := uniseg.GraphemeClusterCount(trimmed); n < MinLength || n > MaxLength {
		return &RejectionError{Reason: RejectLength, Detail: fmt.Sprintf("%d characters", n)}
	}

	if math.IsNaN(confidence) || confidence < 0 || confidence > 1 {
		return &RejectionError{Reason: RejectConfidence, Detail: fmt.Sprintf("%v", confidence)}
	}

	for _, marker := range disallowedMarkers {
		if m := marker.FindString(trimmed); m != "" {
			return &RejectionError{Reason: RejectMarker, Detail: m}
		}
	}

	if IsGibberish(trimmed) {
		return &RejectionError{Reason: RejectGibberish}
	}

	if !HasSentence(trimmed) {
		return &RejectionError{Reason: RejectNoSentence}
	}
	return nil
}

// IsGibberish reports whether fewer than half of the whitespace-separated
// tokens are alphabetic words longer than two letters.
func IsGibberish(text string) bool {
	tokens := strings.Fields(text)
	if len(tokens) == 0 {
		return true
	}
	words := 0
	for _, tok := range tokens {
		if isWord(tok) {
			words++
		}
	}
	return words*2 < len(tokens)
}

// isWord trims surrounding punctuation and accepts letters with inner
// apostrophes or hyphens ("don't", "wi-fi").
func isWord(tok string) bool {
	tok = strings.TrimFunc(tok, func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
	if uniseg.GraphemeClusterCount(tok) <= 2 {
		return false
	}
	for _, r := range tok {
		if !unicode.IsLetter(r) && r != '\'' && r != '’' && r != '-' {
			return false
		}
	}
	return true
}

// HasSentence reports whether text contains a sentence of at least
// MinSentenceLength characters.
func HasSentence(text string) bool {
	for _, s := range Sentences(text) {
		if uniseg.GraphemeClusterCount(s) >= MinSentenceLength {
			return true
		}
	}
	return false
}

// Sentences splits text on terminal punctuation, keeping the punctuation.
func Sentences(text string) []string {
	var out []string
	for _, s := range sentenceSplit.FindAllString(text, -1) {
		if s = strings.TrimSpace(s); s != "" {
			out = append(out, s)
		}
	}
	return out
}
