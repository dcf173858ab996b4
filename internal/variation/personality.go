package variation

import (
	"math"
	"regexp"
	"strings"

	"github.com/astoerkel/floe-voice-assistant-sub003/internal/intent"
)

// Preferences are the user's personality settings, each in [0, 1].
type Preferences struct {
	Formality       float64 `json:"formality"`
	Enthusiasm      float64 `json:"enthusiasm"`
	Helpfulness     float64 `json:"helpfulness"`
	Friendliness    float64 `json:"friendliness"`
	Professionalism float64 `json:"professionalism"`
}

// DefaultPreferences is the neutral personality.
func DefaultPreferences() Preferences {
	return Preferences{Formality: 0.5, Enthusiasm: 0.5, Helpfulness: 0.5, Friendliness: 0.5, Professionalism: 0.5}
}

func (p Preferences) clamped() Preferences {
	p.Formality = clamp01(p.Formality)
	p.Enthusiasm = clamp01(p.Enthusiasm)
	p.Helpfulness = clamp01(p.Helpfulness)
	p.Friendliness = clamp01(p.Friendliness)
	p.Professionalism = clamp01(p.Professionalism)
	return p
}

func clamp01(v float64) float64 {
	if math.IsNaN(v) || v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}

const (
	helpfulClosing  = "Let me know if you need anything else."
	familiarClosing = "Anything else?"
	friendlyOpener  = "Happy to help."
)

var contractionExpansions = map[string]string{
	"can't": "cannot", "won't": "will not", "don't": "do not", "doesn't": "does not",
	"couldn't": "could not", "isn't": "is not", "i'm": "I am", "i'll": "I will",
	"you're": "you are", "you'd": "you would", "it's": "it is", "that's": "that is",
	"here's": "here is", "let's": "let us", "what's": "what is",
}

var contractionPattern = regexp.MustCompile(`(?i)\b(?:can't|won't|don't|doesn't|couldn't|isn't|i'm|i'll|you're|you'd|it's|that's|here's|let's|what's)\b`)

type modifier struct {
	trait func(Preferences) float64
	apply func(string) string
}

// personalityModifiers run in order, each only when its trait reaches the
// threshold. Every modifier is idempotent.
var personalityModifiers = []modifier{
	{func(p Preferences) float64 { return p.Enthusiasm }, addEnthusiasm},
	{func(p Preferences) float64 { return p.Helpfulness }, addHelpfulClosing},
	{func(p Preferences) float64 { return p.Friendliness }, addFriendlyOpener},
	{func(p Preferences) float64 { return p.Professionalism }, expandContractions},
}

func addEnthusiasm(text string) string {
	if strings.HasSuffix(text, ".") {
		return strings.TrimSuffix(text, ".") + "!"
	}
	return text
}

func addHelpfulClosing(text string) string {
	if strings.Contains(text, helpfulClosing) || strings.Contains(text, familiarClosing) {
		return text
	}
	return text + " " + helpfulClosing
}

func addFriendlyOpener(text string) string {
	if strings.HasPrefix(text, friendlyOpener) {
		return text
	}
	return friendlyOpener + " " + text
}

func expandContractions(text string) string {
	return contractionPattern.ReplaceAllStringFunc(text, func(m string) string {
		expanded := contractionExpansions[strings.ToLower(m)]
		return matchCase(m, expanded)
	})
}

var greetings = map[intent.TimeOfDay]string{
	intent.Morning:   "Good morning.",
	intent.Afternoon: "Good afternoon.",
	intent.Evening:   "Good evening.",
}

var formalOpeners = []string{friendlyOpener + " ", "Of course. ", "As requested. "}

// greet prefixes the time-of-day greeting on the first turn of a
// conversation. Night gets no greeting.
func greet(text string, tod intent.TimeOfDay) string {
	g, ok := greetings[tod]
	if !ok || strings.HasPrefix(text, g) {
		return text
	}
	return g + " " + text
}

// soften relaxes phrasing once the conversation is familiar.
func soften(text string) string {
	for _, opener := range formalOpeners {
		if rest := strings.TrimPrefix(text, opener); rest != text && rest != "" {
			text = capitalize(rest)
		}
	}
	return strings.ReplaceAll(text, helpfulClosing, familiarClosing)
}
