package intent

import (
	"sync"
	"time"
)

// Stats tracks scorer latency and per-label accuracy. It is safe for concurrent use.
type Stats struct {
	mu      sync.RWMutex
	window  int
	scorers map[ScorerKind]*scorerStats
	labels  map[Label]*accuracyWindow
}

type scorerStats struct {
	calls        int64
	failures     int64
	timeouts     int64
	totalLatency time.Duration
}

// accuracyWindow is a fixed-size ring of hit/miss outcomes.
type accuracyWindow struct {
	hits  []bool
	head  int
	count int
}

func (w *accuracyWindow) add(hit bool) {
	w.hits[w.head] = hit
	w.head = (w.head + 1) % len(w.hits)
	if w.count < len(w.hits) {
		w.count++
	}
}

func (w *accuracyWindow) rate() float64 {
	if w.count == 0 {
		return 0
	}
	var n int
	for i := 0; i < w.count; i++ {
		if w.hits[i] {
			n++
		}
	}
	return float64(n) / float64(w.count)
}

// NewStats creates a statistics tracker keeping window reports per label.
func NewStats(window int) *Stats {
	if window <= 0 {
		window = 100
	}
	return &Stats{
		window:  window,
		scorers: make(map[ScorerKind]*scorerStats),
		labels:  make(map[Label]*accuracyWindow),
	}
}

func (s *Stats) recordScorer(kind ScorerKind, latency time.Duration, err error, timedOut bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	st, ok := s.scorers[kind]
	if !ok {
		st = &scorerStats{}
		s.scorers[kind] = st
	}
	st.calls++
	st.totalLatency += latency
	if err != nil {
		st.failures++
	}
	if timedOut {
		st.timeouts++
	}
}

// recordAccuracy counts a hit for actual when predicted matches it.
func (s *Stats) recordAccuracy(predicted, actual Label) {
	s.mu.Lock()
	defer s.mu.Unlock()
	w, ok := s.labels[actual]
	if !ok {
		w = &accuracyWindow{hits: make([]bool, s.window)}
		s.labels[actual] = w
	}
	w.add(predicted == actual)
}

// Accuracy returns the rolling accuracy for label and the number of reports it is based on.
func (s *Stats) Accuracy(label Label) (float64, int) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	w, ok := s.labels[label]
	if !ok {
		return 0, 0
	}
	return w.rate(), w.count
}

// AverageLatency returns the mean latency of a scorer.
func (s *Stats) AverageLatency(kind ScorerKind) time.Duration {
	s.mu.RLock()
	defer s.mu.RUnlock()
	st, ok := s.scorers[kind]
	if !ok || st.calls == 0 {
		return 0
	}
	return st.totalLatency / time.Duration(st.calls)
}

// GetMetrics returns a snapshot suitable for the stats endpoint.
func (s *Stats) GetMetrics() map[string]interface{} {
	s.mu.RLock()
	defer s.mu.RUnlock()

	scorers := make(map[string]interface{}, len(s.scorers))
	for kind, st := range s.scorers {
		var avg float64
		if st.calls > 0 {
			avg = float64(st.totalLatency.Microseconds()) / float64(st.calls) / 1000
		}
		scorers[string(kind)] = map[string]interface{}{
			"calls":          st.calls,
			"failures":       st.failures,
			"timeouts":       st.timeouts,
			"avg_latency_ms": avg,
		}
	}

	accuracy := make(map[string]interface{}, len(s.labels))
	for label, w := range s.labels {
		accuracy[string(label)] = map[string]interface{}{
			"accuracy": w.rate(),
			"samples":  w.count,
		}
	}

	return map[string]interface{}{
		"scorers":  scorers,
		"accuracy": accuracy,
	}
}
