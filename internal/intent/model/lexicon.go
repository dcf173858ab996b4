package model

import (
	"context"
	"sort"
	"strings"
	"sync"
)

// backgroundMass is the pseudo-count of "none of the above" evidence.
const backgroundMass = 1.0

// Lexicon is the bundled model: per-label token weights learned offline and
// compiled into the binary. Scores are evidence shares, so a single weak
// token never yields a confident prediction.
type Lexicon struct {
	mu      sync.RWMutex
	weights map[string]map[string]float64
	loaded  bool
}

// NewLexicon returns the bundled model. It is unloaded until Load is called.
func NewLexicon() *Lexicon {
	return &Lexicon{}
}

// Name implements Model.
func (l *Lexicon) Name() string { return "bundled-lexicon" }

// Load implements Model.
func (l *Lexicon) Load(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	l.weights = bundledWeights()
	l.loaded = true
	return nil
}

// Unload implements Model.
func (l *Lexicon) Unload() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.weights = nil
	l.loaded = false
	return nil
}

// Loaded implements Model.
func (l *Lexicon) Loaded() bool {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.loaded
}

// Labels implements Model.
func (l *Lexicon) Labels() []string {
	l.mu.RLock()
	defer l.mu.RUnlock()
	labels := make([]string, 0, len(l.weights))
	for label := range l.weights {
		labels = append(labels, label)
	}
	sort.Strings(labels)
	return labels
}

// Score implements Model. Stems match token prefixes, so "raining" hits "rain".
func (l *Lexicon) Score(ctx context.Context, tokens []string) (map[string]float64, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	l.mu.RLock()
	defer l.mu.RUnlock()
	if !l.loaded {
		return nil, ErrModelNotLoaded
	}

	evidence := make(map[string]float64)
	var total float64
	for _, tok := range tokens {
		for label, stems := range l.weights {
			if w := stemWeight(stems, tok); w > 0 {
				evidence[label] += w
				total += w
			}
		}
	}

	scores := make(map[string]float64, len(evidence))
	for label, e := range evidence {
		scores[label] = e / (total + backgroundMass)
	}
	return scores, nil
}

// stemWeight returns the strongest stem matching tok. Stems of three runes or
// fewer must match exactly ("hi" must not match "high").
func stemWeight(stems map[string]float64, tok string) float64 {
	var best float64
	for stem, w := range stems {
		var hit bool
		if len([]rune(stem)) <= 3 {
			hit = tok == stem
		} else {
			hit = strings.HasPrefix(tok, stem)
		}
		if hit && w > best {
			best = w
		}
	}
	return best
}

func bundledWeights() map[string]map[string]float64 {
	return map[string]map[string]float64{
		"time": {
			"time": 2.5, "clock": 2.0, "date": 2.0, "hour": 1.2, "today": 0.8,
			"day": 0.8, "week": 0.6, "month": 0.8, "year": 0.6,
		},
		"calculation": {
			"calcul": 2.5, "plus": 2.0, "minus": 2.0, "multipl": 2.0, "divid": 2.0,
			"percent": 1.8, "sum": 1.2, "math": 2.0, "root": 1.0, "squar": 0.8, "+": 2.0,
			"*": 2.0, "/": 1.5, "×": 2.0, "÷": 2.0, "%": 1.5,
		},
		"device_status": {
			"batter": 2.5, "charg": 2.0, "wifi": 2.0, "wi-fi": 2.0, "bluetooth": 2.0,
			"storag": 2.0, "memor": 1.5, "signal": 1.5, "internet": 1.2, "connect": 1.0,
			"power": 1.0, "status": 1.0, "device": 1.0, "phone": 0.6,
		},
		"general_info": {
			"name": 1.5, "help": 1.2, "privacy": 2.0, "abilit": 1.5, "capab": 1.5,
			"who": 0.6, "version": 1.0,
		},
		"calendar": {
			"calendar": 2.5, "meeting": 2.0, "appointment": 2.0, "schedul": 1.5,
			"event": 1.5, "agenda": 2.0, "busy": 1.0, "free": 0.6,
		},
		"reminder": {
			"remind": 2.5, "alarm": 2.0, "timer": 2.0, "wake": 1.5, "forget": 1.2,
		},
		"messaging": {
			"text": 1.5, "messag": 2.5, "call": 1.8, "send": 1.0, "reply": 1.5, "mom": 0.6,
			"dad": 0.6,
		},
		"music": {
			"play": 1.8, "music": 2.5, "song": 2.0, "playlist": 2.0, "paus": 1.2,
			"skip": 1.2, "album": 1.5, "artist": 1.2, "volume": 0.8,
		},
		"smalltalk": {
			"hello": 2.0, "hi": 1.0, "thank": 2.0, "joke": 2.0, "morning": 0.6,
			"night": 0.6, "how": 0.3, "love": 0.8, "bored": 1.0,
		},
		"email": {
			"email": 2.5, "e-mail": 2.5, "inbox": 2.0, "mail": 1.5, "unread": 1.2,
		},
		"weather": {
			"weather": 2.5, "rain": 2.0, "forecast": 2.0, "temperatur": 2.0, "sunny": 1.5,
			"snow": 1.5, "umbrella": 1.5, "wind": 1.2, "cold": 0.8, "hot": 0.8,
		},
		"web_search": {
			"search": 2.0, "look": 1.0, "google": 2.0, "news": 1.5, "wikipedia": 2.0,
			"who": 0.5, "find": 0.8,
		},
		"navigation": {
			"direction": 2.5, "navigat": 2.5, "route": 1.5, "traffic": 1.8, "far": 1.0,
			"drive": 1.2, "walk": 0.8, "map": 1.2,
		},
	}
}
