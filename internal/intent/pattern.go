package intent

import (
	"context"
	"fmt"
	"os"
	"regexp"
	"strings"
	"sync"
	"unicode"

	"github.com/goccy/go-yaml"
	"github.com/sahilm/fuzzy"
)

// Keyword is a weighted keyword or phrase that signals a label.
type Keyword struct {
	Word   string  `yaml:"word" json:"word"`
	Weight float64 `yaml:"weight" json:"weight"`
	// Exact disables suffix matching ("time" must not match "times").
	Exact bool `yaml:"exact,omitempty" json:"exact,omitempty"`
}

// Rule groups the keywords and abbreviation targets of one label.
type Rule struct {
	Label    Label     `yaml:"label" json:"label"`
	Keywords []Keyword `yaml:"keywords" json:"keywords"`
	// Expansions are long words that spoken abbreviations ("calc", "temp") expand to.
	Expansions []string `yaml:"expansions,omitempty" json:"expansions,omitempty"`
}

// RuleFile is the on-disk format of an extra rule pack.
type RuleFile struct {
	Rules []Rule `yaml:"rules"`
}

type compiledKeyword struct {
	pattern *regexp.Regexp
	word    string
	weight  float64
}

const (
	// confidenceCurve controls the diminishing-returns mapping of raw weight to confidence.
	confidenceCurve = 0.35
	// abbreviationWeight is the weight of a fuzzy abbreviation hit.
	abbreviationWeight = 0.5
	// minAbbreviationRatio rejects abbreviations that cover too little of the expansion.
	minAbbreviationRatio = 0.3
	// followUpBoost is added to the prior intent for elliptical follow-ups.
	followUpBoost = 0.6
)

var followUpPattern = regexp.MustCompile(`^(and|what about|how about|also|then|same for|and what about)\b`)

// PatternScorer scores labels from weighted keyword patterns. It is safe for
// concurrent use and may be extended with extra rules at runtime.
type PatternScorer struct {
	mu          sync.RWMutex
	keywords    map[Label][]compiledKeyword
	expansions  []string
	expansionOf map[string]Label
	known       map[string]bool
}

// NewPatternScorer creates a scorer loaded with the built-in rules.
func NewPatternScorer() *PatternScorer {
	p := &PatternScorer{
		keywords:    make(map[Label][]compiledKeyword),
		expansionOf: make(map[string]Label),
		known:       make(map[string]bool),
	}
	p.add(DefaultRules())
	return p
}

// Extend adds rules on top of the current set.
func (p *PatternScorer) Extend(rules []Rule) error {
	for _, r := range rules {
		if strings.TrimSpace(string(r.Label)) == "" {
			return fmt.Errorf("intent rule without label")
		}
		for _, kw := range r.Keywords {
			if strings.TrimSpace(kw.Word) == "" || kw.Weight <= 0 {
				return fmt.Errorf("invalid keyword %q for label %s", kw.Word, r.Label)
			}
		}
	}
	p.add(rules)
	return nil
}

func (p *PatternScorer) add(rules []Rule) {
	p.mu.Lock()
	defer p.mu.Unlock()
	for _, r := range rules {
		p.keywords[r.Label] = append(p.keywords[r.Label], compileKeywords(r.Keywords)...)
		for _, kw := range r.Keywords {
			if w := strings.ToLower(strings.TrimSpace(kw.Word)); !strings.Contains(w, " ") {
				p.known[w] = true
			}
		}
		for _, e := range r.Expansions {
			e = strings.ToLower(strings.TrimSpace(e))
			if e == "" {
				continue
			}
			if _, exists := p.expansionOf[e]; !exists {
				p.expansions = append(p.expansions, e)
			}
			p.expansionOf[e] = r.Label
		}
	}
}

// compileKeywords turns keywords into word-bounded patterns. Single words
// allow common suffixes (alarm -> alarms, play -> playing) unless marked exact.
func compileKeywords(raws []Keyword) []compiledKeyword {
	out := make([]compiledKeyword, 0, len(raws))
	for _, kw := range raws {
		word := strings.ToLower(strings.TrimSpace(kw.Word))
		pattern := regexp.QuoteMeta(word)
		if isWordRune(firstRune(word)) {
			pattern = `\b` + pattern
		}
		if isWordRune(lastRune(word)) {
			if !kw.Exact && !strings.Contains(word, " ") && len(word) > 2 {
				pattern += `(?:es|s|ed|ing)?`
			}
			pattern += `\b`
		}
		out = append(out, compiledKeyword{
			pattern: regexp.MustCompile(pattern),
			word:    word,
			weight:  kw.Weight,
		})
	}
	return out
}

func firstRune(s string) rune {
	for _, r := range s {
		return r
	}
	return 0
}

func lastRune(s string) rune {
	r := []rune(s)
	if len(r) == 0 {
		return 0
	}
	return r[len(r)-1]
}

func isWordRune(r rune) bool {
	return r == '_' || unicode.IsLetter(r) || unicode.IsDigit(r)
}

// LoadRules reads an extra rule pack from a YAML file.
func LoadRules(path string) ([]Rule, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read intent rules: %w", err)
	}
	var file RuleFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("failed to parse intent rules: %w", err)
	}
	return file.Rules, nil
}

// Score returns a confidence in [0, 1] for every label with at least one hit.
// prior is the previous turn's intent and may be empty.
func (p *PatternScorer) Score(ctx context.Context, n Normalized, prior Label) (map[Label]float64, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	p.mu.RLock()
	defer p.mu.RUnlock()

	raw := make(map[Label]float64)
	for label, keywords := range p.keywords {
		for _, kw := range keywords {
			if kw.pattern.MatchString(n.Text) {
				raw[label] += kw.weight
			}
		}
	}

	for _, tok := range n.Content {
		if label, weight, ok := p.matchAbbreviation(tok); ok {
			raw[label] += weight
		}
	}

	if prior != "" && prior != LabelUnknown && followUpPattern.MatchString(n.Text) {
		var best float64
		for _, v := range raw {
			if v > best {
				best = v
			}
		}
		if best < 1.0 {
			raw[prior] += followUpBoost
		}
	}

	scores := make(map[Label]float64, len(raw))
	for label, v := range raw {
		if v > 0 {
			scores[label] = normalizeConfidence(v)
		}
	}
	return scores, nil
}

// matchAbbreviation maps a short token onto a rule expansion, e.g. "calc" onto "calculate".
// Must be called with the read lock held.
func (p *PatternScorer) matchAbbreviation(tok string) (Label, float64, bool) {
	if len(tok) < 3 || len(p.expansions) == 0 {
		return "", 0, false
	}
	if _, exact := p.expansionOf[tok]; exact || p.known[tok] || p.known[strings.TrimSuffix(tok, "s")] {
		// Whole words are the keyword patterns' job.
		return "", 0, false
	}
	for _, m := range fuzzy.Find(tok, p.expansions) {
		if !strings.HasPrefix(m.Str, tok[:1]) {
			continue
		}
		if float64(len(tok))/float64(len(m.Str)) < minAbbreviationRatio {
			continue
		}
		return p.expansionOf[m.Str], abbreviationWeight, true
	}
	return "", 0, false
}

// normalizeConfidence maps a raw score to [0, 1] with diminishing returns.
// score=0.5 -> ~0.59, score=1.0 -> ~0.74, score=2.0 -> ~0.85
func normalizeConfidence(score float64) float64 {
	c := score / (score + confidenceCurve)
	if c > 1.0 {
		return 1.0
	}
	return c
}
