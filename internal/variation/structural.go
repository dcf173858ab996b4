package variation

import (
	"regexp"
	"strings"
	"unicode"
	"unicode/utf8"
)

// sentencePattern splits on terminal punctuation followed by whitespace or
// the end of text, so decimals and clock times stay whole.
var sentencePattern = regexp.MustCompile(`(?s).+?(?:[.!?]+(?:\s+|$)|$)`)

func splitSentences(text string) []string {
	var out []string
	for _, s := range sentencePattern.FindAllString(text, -1) {
		if s = strings.TrimSpace(s); s != "" {
			out = append(out, s)
		}
	}
	return out
}

// transitions are standalone lead-in sentences. The list is longer than the
// per-signature rendering cap so an unseen rendering always exists.
var transitions = []string{
	"Here's what I found.",
	"Here it is.",
	"Got it.",
	"Right, here you go.",
	"Okay, here's the answer.",
	"Let me check.",
	"Here you go.",
	"Alright.",
	"Good question.",
	"As requested.",
	"Of course.",
	"Let's see.",
	"One moment, here it is.",
}

var questionRewrites = []struct {
	pattern *regexp.Regexp
	replace string
}{
	{regexp.MustCompile(`(?i)^would you like (.+)\?$`), "Let me know if you'd like $1."},
	{regexp.MustCompile(`(?i)^do you want (.+)\?$`), "Let me know if you want $1."},
	{regexp.MustCompile(`(?i)^should i (.+)\?$`), "I can $1 if you like."},
	{regexp.MustCompile(`(?i)^could you (.+)\?$`), "Please $1."},
	{regexp.MustCompile(`(?i)^can you (.+)\?$`), "Please $1."},
}

type structuralStrategy func(text string, r Rand) (string, bool)

// structuralStrategies are tried in order; the first applicable one wins.
var structuralStrategies = []structuralStrategy{
	shuffleSentences,
	questionToStatement,
	insertTransition,
}

func applyStructural(text string, r Rand) string {
	for _, strategy := range structuralStrategies {
		if out, ok := strategy(text, r); ok {
			return out
		}
	}
	return text
}

// shuffleSentences reorders two or more sentences into a non-identity order.
func shuffleSentences(text string, r Rand) (string, bool) {
	sentences := splitSentences(text)
	if len(sentences) < 2 {
		return text, false
	}
	order := make([]int, len(sentences))
	for i := range order {
		order[i] = i
	}
	for i := len(order) - 1; i > 0; i-- {
		j := r.IntN(i + 1)
		order[i], order[j] = order[j], order[i]
	}
	identity := true
	for i, v := range order {
		if i != v {
			identity = false
			break
		}
	}
	if identity {
		order = append(order[1:], order[0])
	}
	out := make([]string, len(order))
	for i, idx := range order {
		out[i] = terminate(sentences[idx])
	}
	return strings.Join(out, " "), true
}

// questionToStatement rewrites recognized yes/no questions as statements.
func questionToStatement(text string, _ Rand) (string, bool) {
	sentences := splitSentences(text)
	changed := false
	for i, s := range sentences {
		for _, rw := range questionRewrites {
			if rw.pattern.MatchString(s) {
				sentences[i] = rw.pattern.ReplaceAllString(s, rw.replace)
				changed = true
				break
			}
		}
	}
	if !changed {
		return text, false
	}
	return strings.Join(sentences, " "), true
}

func insertTransition(text string, r Rand) (string, bool) {
	return transitions[r.IntN(len(transitions))] + " " + text, true
}

// terminate adds a period to a sentence with no terminal punctuation.
func terminate(s string) string {
	last, _ := utf8.DecodeLastRuneInString(s)
	if last == '.' || last == '!' || last == '?' {
		return s
	}
	return s + "."
}

// capitalize upper-cases the first rune of s.
func capitalize(s string) string {
	first, size := utf8.DecodeRuneInString(s)
	if size == 0 {
		return s
	}
	return string(unicode.ToUpper(first)) + s[size:]
}

func startsUpper(s string) bool {
	first, _ := utf8.DecodeRuneInString(s)
	return unicode.IsUpper(first)
}
