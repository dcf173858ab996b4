package variation

import (
	"math"
	"regexp"
	"sort"
	"strings"
)

type variant struct {
	text      string
	formality float64
}

// synonymGroups are interchangeable words ranked by formality.
var synonymGroups = [][]variant{
	{{"help", 0.5}, {"assist", 0.9}},
	{{"check", 0.4}, {"verify", 0.8}},
	{{"show", 0.4}, {"display", 0.8}},
	{{"looks", 0.4}, {"appears", 0.8}},
	{{"right now", 0.3}, {"at the moment", 0.5}, {"currently", 0.8}},
	{{"sure", 0.2}, {"certainly", 0.8}},
	{{"good", 0.4}, {"great", 0.2}, {"excellent", 0.8}},
	{{"fine", 0.3}, {"satisfactory", 0.9}},
	{{"get", 0.3}, {"obtain", 0.9}},
	{{"weak", 0.3}, {"limited", 0.7}},
}

// connectorGroups are swapped freely.
var connectorGroups = [][]string{
	{"but", "though"},
	{"also", "additionally"},
	{"because", "since"},
	{"so", "which means"},
}

var intensifiers = regexp.MustCompile(`\b(?:really|very|absolutely|super) `)

var intensifiable = regexp.MustCompile(`\b(good|great|fine|easy|quick)\b`)

var (
	synonymPatterns   = compileGroups(synonymTexts())
	connectorPatterns = compileGroups(connectorGroups)
)

func synonymTexts() [][]string {
	groups := make([][]string, len(synonymGroups))
	for i, g := range synonymGroups {
		for _, v := range g {
			groups[i] = append(groups[i], v.text)
		}
	}
	return groups
}

func compileGroups(groups [][]string) []*regexp.Regexp {
	patterns := make([]*regexp.Regexp, len(groups))
	for i, g := range groups {
		words := append([]string(nil), g...)
		sort.Slice(words, func(a, b int) bool { return len(words[a]) > len(words[b]) })
		for j, w := range words {
			words[j] = regexp.QuoteMeta(w)
		}
		patterns[i] = regexp.MustCompile(`(?i)\b(?:` + strings.Join(words, "|") + `)\b`)
	}
	return patterns
}

// applyVocabulary runs synonym substitution, intensity modulation and
// connector substitution.
func applyVocabulary(text string, p Preferences, r Rand) string {
	text = substituteSynonyms(text, p.Formality, r)
	text = modulateIntensity(text, p.Enthusiasm)
	return substituteConnectors(text, r)
}

// substituteSynonyms replaces every member of a group with the variant
// nearest the formality level; equally near variants are picked at random.
func substituteSynonyms(text string, formality float64, r Rand) string {
	for i, group := range synonymGroups {
		pattern := synonymPatterns[i]
		if !pattern.MatchString(text) {
			continue
		}
		best := math.Inf(1)
		var nearest []string
		for _, v := range group {
			d := math.Abs(v.formality - formality)
			switch {
			case d < best-1e-9:
				best = d
				nearest = []string{v.text}
			case math.Abs(d-best) <= 1e-9:
				nearest = append(nearest, v.text)
			}
		}
		choice := nearest[r.IntN(len(nearest))]
		text = pattern.ReplaceAllStringFunc(text, func(m string) string {
			return matchCase(m, choice)
		})
	}
	return text
}

// modulateIntensity adds an intensifier and exclamation for high enthusiasm
// and strips them for low enthusiasm.
func modulateIntensity(text string, enthusiasm float64) string {
	switch {
	case enthusiasm >= 0.7:
		if !intensifiers.MatchString(text) {
			if loc := intensifiable.FindStringIndex(text); loc != nil {
				text = text[:loc[0]] + "really " + text[loc[0]:]
			}
		}
		if strings.HasSuffix(text, ".") {
			text = strings.TrimSuffix(text, ".") + "!"
		}
	case enthusiasm <= 0.3:
		text = intensifiers.ReplaceAllString(text, "")
		text = strings.ReplaceAll(text, "!", ".")
	}
	return text
}

func substituteConnectors(text string, r Rand) string {
	for i, group := range connectorGroups {
		pattern := connectorPatterns[i]
		if !pattern.MatchString(text) {
			continue
		}
		text = pattern.ReplaceAllStringFunc(text, func(m string) string {
			return matchCase(m, group[r.IntN(len(group))])
		})
	}
	return text
}

// matchCase gives replacement the leading case of original.
func matchCase(original, replacement string) string {
	if startsUpper(original) {
		return capitalize(replacement)
	}
	return replacement
}
