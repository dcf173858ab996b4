package intent

import (
	"strings"
	"unicode"

	"golang.org/x/text/unicode/norm"
)

// Normalized is the canonical form of an utterance.
type Normalized struct {
	// Text is the lowercased, expanded utterance with tokens joined by single spaces.
	Text string
	// Tokens holds every token, including stop words and arithmetic operators.
	Tokens []string
	// Content holds Tokens without stop words.
	Content []string
}

// Empty reports whether the utterance had no usable tokens.
func (n Normalized) Empty() bool {
	return len(n.Tokens) == 0
}

var contractions = []struct{ from, to string }{
	{"can't", "can not"},
	{"won't", "will not"},
	{"shan't", "shall not"},
	{"let's", "let us"},
	{"what's", "what is"},
	{"where's", "where is"},
	{"when's", "when is"},
	{"who's", "who is"},
	{"how's", "how is"},
	{"that's", "that is"},
	{"there's", "there is"},
	{"it's", "it is"},
	{"i'm", "i am"},
	{"n't", " not"},
	{"'re", " are"},
	{"'ll", " will"},
	{"'ve", " have"},
	{"'d", " would"},
	{"'s", ""},
}

var stopWords = map[string]bool{
	"a": true, "an": true, "the": true, "is": true, "are": true, "am": true,
	"was": true, "were": true, "be": true, "please": true, "can": true,
	"could": true, "would": true, "will": true, "you": true, "your": true,
	"me": true, "my": true, "i": true, "it": true, "its": true, "to": true,
	"of": true, "for": true, "on": true, "in": true, "at": true, "do": true,
	"does": true, "did": true, "that": true, "this": true, "there": true,
	"just": true, "hey": true, "ok": true, "okay": true, "um": true, "uh": true,
	"so": true, "and": true, "us": true, "let": true,
}

// IsStopWord reports whether w is dropped from content tokens.
func IsStopWord(w string) bool {
	return stopWords[w]
}

func isOperator(r rune) bool {
	switch r {
	case '+', '-', '*', '/', '×', '÷', '%', '(', ')':
		return true
	}
	return false
}

// Normalize lowercases text, folds compatibility characters, expands
// contractions and splits it into tokens. Arithmetic operators survive as
// their own tokens so calculations can be extracted later.
func Normalize(text string) Normalized {
	text = norm.NFKC.String(text)
	text = strings.NewReplacer("’", "'", "‘", "'", "`", "'").Replace(text)
	text = strings.ToLower(text)
	for _, c := range contractions {
		text = strings.ReplaceAll(text, c.from, c.to)
	}

	runes := []rune(text)
	var tokens []string
	var current strings.Builder
	flush := func() {
		if current.Len() > 0 {
			tokens = append(tokens, current.String())
			current.Reset()
		}
	}

	for i, r := range runes {
		prev, next := rune(0), rune(0)
		if i > 0 {
			prev = runes[i-1]
		}
		if i+1 < len(runes) {
			next = runes[i+1]
		}

		switch {
		case unicode.IsLetter(r) || unicode.IsDigit(r):
			current.WriteRune(r)
		case (r == '.' || r == ':' || r == ',') && unicode.IsDigit(prev) && unicode.IsDigit(next):
			// 3.5, 10:30 and 1,000 stay whole; thousands separators are dropped.
			if r != ',' {
				current.WriteRune(r)
			}
		case r == '-' && unicode.IsLetter(prev) && unicode.IsLetter(next):
			current.WriteRune(r)
		case isOperator(r):
			flush()
			tokens = append(tokens, string(r))
		default:
			flush()
		}
	}
	flush()

	content := make([]string, 0, len(tokens))
	for _, tok := range tokens {
		if stopWords[tok] {
			continue
		}
		content = append(content, tok)
	}

	return Normalized{
		Text:    strings.Join(tokens, " "),
		Tokens:  tokens,
		Content: content,
	}
}
