package intent

import (
	"context"
	"errors"
	"math"
	"strings"
	"time"

	"github.com/astoerkel/floe-voice-assistant-sub003/internal/intent/model"
	log "github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"
	"golang.org/x/text/language"
)

// MaxIntents bounds the ranked list returned by Classify.
const MaxIntents = 5

// Options tunes the ensemble.
type Options struct {
	// Timeout bounds each scorer independently.
	Timeout time.Duration
	// PatternWeight and ModelWeight are the ensemble weights when both scorers report.
	PatternWeight float64
	ModelWeight   float64
	// AccuracyWindow is the number of ground-truth reports kept per label.
	AccuracyWindow int
}

// Classifier runs the pattern scorer and the statistical model concurrently
// and merges their scores. It never returns an error: a failed or slow scorer
// is excluded and the result is marked degraded.
type Classifier struct {
	pattern *PatternScorer
	model   model.Model
	opts    Options
	stats   *Stats
}

// NewClassifier creates a classifier. m may be nil, in which case only the
// pattern scorer runs.
func NewClassifier(pattern *PatternScorer, m model.Model, opts Options) *Classifier {
	if pattern == nil {
		pattern = NewPatternScorer()
	}
	if opts.Timeout <= 0 {
		opts.Timeout = 150 * time.Millisecond
	}
	if opts.PatternWeight < 0 {
		opts.PatternWeight = 0
	}
	if opts.ModelWeight < 0 {
		opts.ModelWeight = 0
	}
	if opts.PatternWeight+opts.ModelWeight == 0 {
		opts.PatternWeight, opts.ModelWeight = 0.4, 0.6
	}
	return &Classifier{
		pattern: pattern,
		model:   m,
		opts:    opts,
		stats:   NewStats(opts.AccuracyWindow),
	}
}

type scorerOutcome struct {
	scores   map[Label]float64
	err      error
	ran      bool
	excluded bool
}

// Classify returns ranked intent hypotheses for the utterance.
func (c *Classifier) Classify(ctx context.Context, u Utterance, cc ConversationContext) Result {
	start := time.Now()

	n := Normalize(u.Text)
	entities := ExtractEntities(n)
	if n.Empty() {
		res := unknownResult(n.Text, entities)
		res.Latency = time.Since(start)
		return res
	}

	var patternOut, modelOut scorerOutcome
	var g errgroup.Group

	if isEnglish(u.Locale) {
		patternOut.ran = true
		g.Go(func() error {
			patternOut.scores, patternOut.err = c.runScorer(ctx, ScorerPattern, func(sctx context.Context) (map[Label]float64, error) {
				return c.pattern.Score(sctx, n, cc.PriorIntent)
			})
			return nil
		})
	} else {
		patternOut.excluded = true
	}

	if c.model != nil && c.model.Loaded() {
		modelOut.ran = true
		g.Go(func() error {
			modelOut.scores, modelOut.err = c.runScorer(ctx, ScorerModel, func(sctx context.Context) (map[Label]float64, error) {
				raw, err := c.model.Score(sctx, n.Content)
				if err != nil {
					return nil, err
				}
				scores := make(map[Label]float64, len(raw))
				for label, s := range raw {
					scores[Label(label)] = s
				}
				return scores, nil
			})
			return nil
		})
	} else {
		modelOut.excluded = true
	}

	_ = g.Wait()

	res := Result{Normalized: n.Text}
	if patternOut.ran && patternOut.err != nil {
		patternOut.excluded = true
		res.Degraded = true
	}
	if modelOut.ran && modelOut.err != nil {
		modelOut.excluded = true
		res.Degraded = true
	}
	if c.model != nil && !c.model.Loaded() {
		res.Degraded = true
	}
	if patternOut.excluded {
		res.Excluded = append(res.Excluded, ScorerPattern)
	}
	if modelOut.excluded {
		res.Excluded = append(res.Excluded, ScorerModel)
	}

	if patternOut.excluded && modelOut.excluded {
		out := unknownResult(n.Text, entities)
		out.Excluded = res.Excluded
		out.Degraded = res.Degraded
		out.Latency = time.Since(start)
		return out
	}

	res.Intents = c.merge(patternOut, modelOut, entities)
	if len(res.Intents) == 0 {
		res.Intents = []Intent{{Label: LabelUnknown, Entities: entities}}
	}
	res.Latency = time.Since(start)

	log.WithFields(log.Fields{
		"intent":     res.Top().Label,
		"confidence": res.Top().Confidence,
		"degraded":   res.Degraded,
	}).Debug("classified utterance")
	return res
}

// runScorer bounds fn by the per-scorer timeout. A scorer that ignores its
// context is abandoned when the deadline passes.
func (c *Classifier) runScorer(ctx context.Context, kind ScorerKind, fn func(context.Context) (map[Label]float64, error)) (map[Label]float64, error) {
	sctx, cancel := context.WithTimeout(ctx, c.opts.Timeout)
	defer cancel()

	type scored struct {
		scores map[Label]float64
		err    error
	}
	done := make(chan scored, 1)
	started := time.Now()
	go func() {
		s, err := fn(sctx)
		done <- scored{s, err}
	}()

	var out scored
	select {
	case out = <-done:
	case <-sctx.Done():
		out.err = sctx.Err()
	}

	timedOut := errors.Is(out.err, context.DeadlineExceeded)
	c.stats.recordScorer(kind, time.Since(started), out.err, timedOut)
	if out.err != nil {
		log.WithFields(log.Fields{"scorer": kind, "timeout": timedOut}).Warnf("intent scorer excluded: %v", out.err)
	}
	return out.scores, out.err
}

// merge combines the scorer outputs with weighted averaging. When one scorer
// is excluded the other carries the full weight.
func (c *Classifier) merge(p, m scorerOutcome, entities Entities) []Intent {
	wp, wm := c.opts.PatternWeight, c.opts.ModelWeight
	switch {
	case p.excluded:
		wp, wm = 0, 1
	case m.excluded:
		wp, wm = 1, 0
	default:
		total := wp + wm
		wp, wm = wp/total, wm/total
	}

	merged := make(map[Label]float64)
	agreement := make(map[Label]int)
	if !p.excluded {
		for label, s := range p.scores {
			s = clamp01(s)
			if s > 0 {
				merged[label] += wp * s
				agreement[label]++
			}
		}
	}
	if !m.excluded {
		for label, s := range m.scores {
			s = clamp01(s)
			if s > 0 {
				merged[label] += wm * s
				agreement[label]++
			}
		}
	}

	var maxScore float64
	for _, s := range merged {
		if s > maxScore {
			maxScore = s
		}
	}

	intents := make([]Intent, 0, len(merged))
	for label, s := range merged {
		if maxScore > 1 {
			s /= maxScore
		}
		s = clamp01(s)
		if s <= 0 {
			continue
		}
		intents = append(intents, Intent{
			Label:      label,
			Confidence: s,
			Entities:   entities,
			Agreement:  agreement[label],
		})
	}
	sortIntents(intents)
	if len(intents) > MaxIntents {
		intents = intents[:MaxIntents]
	}
	return intents
}

// RecordGroundTruth feeds a confirmed label back into the accuracy statistics.
func (c *Classifier) RecordGroundTruth(predicted, actual Label) {
	c.stats.recordAccuracy(predicted, actual)
}

// Stats returns the classifier statistics.
func (c *Classifier) Stats() *Stats {
	return c.stats
}

// isEnglish reports whether the built-in English keyword rules apply.
// An empty or unparsable locale is treated as English.
func isEnglish(locale string) bool {
	locale = strings.TrimSpace(locale)
	if locale == "" {
		return true
	}
	tag, err := language.Parse(locale)
	if err != nil {
		return true
	}
	base, _ := tag.Base()
	return base.String() == "en"
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
