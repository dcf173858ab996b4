// Copyright 2026 The Floe Authors. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

// Package variation shapes response text so repeated answers do not sound
// canned. It tracks how often each underlying answer was given and, once an
// answer repeats, rewrites its structure and vocabulary while keeping every
// rendering inside the response quality gate.
package variation

import (
	"strings"
	"sync"
	"time"

	log "github.com/sirupsen/logrus"

	"github.com/astoerkel/floe-voice-assistant-sub003/internal/config"
	"github.com/astoerkel/floe-voice-assistant-sub003/internal/intent"
	"github.com/astoerkel/floe-voice-assistant-sub003/internal/response"
)

// maxRerolls bounds how often a varied rendering is regenerated before the
// transition list is walked.
const maxRerolls = 4

// Options configures an Engine.
type Options struct {
	RepetitionThreshold   int
	RepetitionWindow      time.Duration
	Retention             time.Duration
	MaxKeys               int
	MaxVariations         int
	SuggestionProbability float64
	PersonalityThreshold  float64
	FamiliarityTurns      int

	// Rand defaults to the process-wide source.
	Rand Rand
	// Now defaults to time.Now.
	Now func() time.Time
}

// OptionsFromConfig converts variation configuration into Options.
func OptionsFromConfig(cfg config.VariationConfig) Options {
	return Options{
		RepetitionThreshold:   cfg.RepetitionThreshold,
		RepetitionWindow:      cfg.RepetitionWindowDuration(),
		Retention:             cfg.RetentionDuration(),
		MaxKeys:               cfg.MaxKeys,
		MaxVariations:         cfg.MaxVariations,
		SuggestionProbability: cfg.SuggestionProbability,
		PersonalityThreshold:  cfg.PersonalityThreshold,
		FamiliarityTurns:      cfg.FamiliarityTurns,
	}
}

func (o Options) withDefaults() Options {
	if o.RepetitionThreshold <= 0 {
		o.RepetitionThreshold = 3
	}
	if o.RepetitionWindow <= 0 {
		o.RepetitionWindow = time.Hour
	}
	if o.Retention <= 0 {
		o.Retention = 2 * time.Hour
	}
	if o.MaxKeys <= 0 {
		o.MaxKeys = 50
	}
	if o.MaxVariations <= 0 {
		o.MaxVariations = 10
	}
	o.SuggestionProbability = clamp01(o.SuggestionProbability)
	if o.PersonalityThreshold <= 0 || o.PersonalityThreshold > 1 {
		o.PersonalityThreshold = 0.7
	}
	if o.FamiliarityTurns <= 0 {
		o.FamiliarityTurns = 5
	}
	if o.Rand == nil {
		o.Rand = processRand{}
	}
	if o.Now == nil {
		o.Now = time.Now
	}
	return o
}

// Output is the shaped text and what happened to it.
type Output struct {
	Text      string `json:"text"`
	Signature string `json:"signature"`
	// Uses counts this call and the earlier uses inside the repetition window.
	Uses   int  `json:"uses"`
	Varied bool `json:"varied"`
}

// Engine is the response variation engine. It owns its History and is safe
// for concurrent use; each call runs under one lock so history updates are
// all-or-nothing.
type Engine struct {
	mu      sync.Mutex
	opts    Options
	history *History

	calls      int64
	varied     int64
	rerolls    int64
	lastResort int64
	rejected   int64
}

// NewEngine creates an engine.
func NewEngine(opts Options) *Engine {
	opts = opts.withDefaults()
	return &Engine{
		opts:    opts,
		history: NewHistory(opts.MaxKeys, opts.MaxVariations, opts.Retention),
	}
}

// Reconfigure applies new thresholds and bounds, keeping the history and
// the randomness source.
func (e *Engine) Reconfigure(cfg config.VariationConfig) {
	e.mu.Lock()
	defer e.mu.Unlock()

	next := OptionsFromConfig(cfg)
	next.Rand = e.opts.Rand
	next.Now = e.opts.Now
	e.opts = next.withDefaults()

	e.history.maxKeys = e.opts.MaxKeys
	e.history.maxRenderings = e.opts.MaxVariations
	e.history.retention = e.opts.Retention
	for e.history.Len() > e.history.maxKeys {
		e.history.evictOldest()
	}
}

// Vary returns the final user-facing text for c. A candidate that fails the
// quality gate is returned as a *response.RejectionError and never varied.
func (e *Engine) Vary(c response.Candidate, cc intent.ConversationContext, p Preferences) (string, error) {
	out, err := e.Shape(c, cc, p)
	if err != nil {
		return "", err
	}
	return out.Text, nil
}

// Shape is Vary with details about the rendering.
func (e *Engine) Shape(c response.Candidate, cc intent.ConversationContext, p Preferences) (Output, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	e.calls++
	if err := response.Validate(c); err != nil {
		e.rejected++
		return Output{}, err
	}
	p = p.clamped()

	now := e.opts.Now()
	e.history.purge(now)

	sig := Signature(c.Text)
	uses := e.history.usesWithin(sig, now, e.opts.RepetitionWindow) + 1
	needsVariation := uses >= e.opts.RepetitionThreshold

	tod := cc.TimeOfDay
	if tod == "" {
		tod = intent.TimeOfDayAt(now)
	}

	text := e.render(c.Text, needsVariation, cc, tod, p)
	if needsVariation {
		e.varied++
		for i := 0; i < maxRerolls && e.history.seen(sig, text); i++ {
			e.rerolls++
			text = e.render(c.Text, true, cc, tod, p)
		}
		if e.history.seen(sig, text) {
			e.lastResort++
			text = e.unseen(sig, text)
		}
	}

	e.history.record(sig, text, now)
	return Output{Text: text, Signature: sig, Uses: uses, Varied: needsVariation}, nil
}

// render runs the variation stages over base. Every stage keeps its input
// when its output would fail the quality gate.
func (e *Engine) render(base string, needsVariation bool, cc intent.ConversationContext, tod intent.TimeOfDay, p Preferences) string {
	r := e.opts.Rand
	text := strings.TrimSpace(base)

	if needsVariation {
		text = keepValid(text, applyStructural(text, r))
		text = keepValid(text, applyVocabulary(text, p, r))
	}

	for _, m := range personalityModifiers {
		if m.trait(p) >= e.opts.PersonalityThreshold {
			text = keepValid(text, m.apply(text))
		}
	}

	if cc.TurnCount <= 1 {
		text = keepValid(text, greet(text, tod))
	}
	if cc.TurnCount > e.opts.FamiliarityTurns {
		text = keepValid(text, soften(text))
	}

	if r.Float64() < e.opts.SuggestionProbability {
		if options := relevantSuggestions(text, tod); len(options) > 0 {
			text = keepValid(text, text+" "+options[r.IntN(len(options))])
		}
	}
	return text
}

// unseen walks the transition list from a random offset and returns the
// first rendering not yet recorded for sig.
func (e *Engine) unseen(sig, text string) string {
	start := e.opts.Rand.IntN(len(transitions))
	for i := range transitions {
		candidate := transitions[(start+i)%len(transitions)] + " " + text
		if !e.history.seen(sig, candidate) && response.ValidateText(candidate) == nil {
			return candidate
		}
	}
	log.Debugf("variation: no unseen rendering for signature %s", sig)
	return text
}

func keepValid(prev, next string) string {
	next = strings.TrimSpace(next)
	if response.ValidateText(next) != nil {
		return prev
	}
	return next
}

// GetMetrics returns engine counters.
func (e *Engine) GetMetrics() map[string]interface{} {
	e.mu.Lock()
	defer e.mu.Unlock()
	return map[string]interface{}{
		"calls":       e.calls,
		"varied":      e.varied,
		"rerolls":     e.rerolls,
		"last_resort": e.lastResort,
		"rejected":    e.rejected,
		"signatures":  e.history.Len(),
		"evictions":   e.history.evictions,
	}
}
