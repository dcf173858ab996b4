package router

import (
	"sort"
	"sync"
	"time"

	"github.com/astoerkel/floe-voice-assistant-sub003/internal/intent"
)

// Sample is one reported outcome.
type Sample struct {
	Success bool
	Latency time.Duration
	At      time.Time
}

// sampleRing is a fixed-size circular buffer that overwrites the oldest
// sample when full. Callers hold the History lock.
type sampleRing struct {
	buffer []Sample
	size   int
	head   int // index where the next write goes
	count  int
}

func newSampleRing(size int) *sampleRing {
	if size <= 0 {
		size = 20
	}
	return &sampleRing{buffer: make([]Sample, size), size: size}
}

func (rb *sampleRing) write(s Sample) {
	rb.buffer[rb.head] = s
	rb.head = (rb.head + 1) % rb.size
	if rb.count < rb.size {
		rb.count++
	}
}

// resized copies the newest samples into a ring of the given size.
func (rb *sampleRing) resized(size int) *sampleRing {
	next := newSampleRing(size)
	samples := rb.all()
	if len(samples) > next.size {
		samples = samples[len(samples)-next.size:]
	}
	for _, s := range samples {
		next.write(s)
	}
	return next
}

// all returns the samples oldest first.
func (rb *sampleRing) all() []Sample {
	result := make([]Sample, rb.count)
	start := (rb.head - rb.count + rb.size) % rb.size
	for i := 0; i < rb.count; i++ {
		result[i] = rb.buffer[(start+i)%rb.size]
	}
	return result
}

// weightedRate is the recency-weighted success rate: the i-th oldest sample
// has weight i+1.
func weightedRate(samples []Sample) float64 {
	if len(samples) == 0 {
		return 0
	}
	var num, den float64
	for i, s := range samples {
		w := float64(i + 1)
		den += w
		if s.Success {
			num += w
		}
	}
	return num / den
}

type historyKey struct {
	label intent.Label
	path  Path
}

// PathStats summarizes the history of one (label, path) key.
type PathStats struct {
	Label          intent.Label  `json:"label"`
	Path           Path          `json:"path"`
	Samples        int           `json:"samples"`
	SuccessRate    float64       `json:"success_rate"`
	AverageLatency time.Duration `json:"average_latency"`
	LastSeen       time.Time     `json:"last_seen"`
}

// History is the bounded performance history keyed by (label, path). It is
// safe for concurrent use.
type History struct {
	mu    sync.RWMutex
	cap   int
	rings map[historyKey]*sampleRing
}

// NewHistory creates a history that keeps the last capacity samples per key.
func NewHistory(capacity int) *History {
	if capacity <= 0 {
		capacity = 20
	}
	return &History{cap: capacity, rings: make(map[historyKey]*sampleRing)}
}

// Record appends a sample, evicting the oldest one for the key when full.
func (h *History) Record(label intent.Label, path Path, s Sample) {
	h.mu.Lock()
	defer h.mu.Unlock()

	k := historyKey{label, path}
	rb, ok := h.rings[k]
	if !ok {
		rb = newSampleRing(h.cap)
		h.rings[k] = rb
	}
	rb.write(s)
}

// Rate returns the recency-weighted success rate and the sample count.
func (h *History) Rate(label intent.Label, path Path) (float64, int) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	rb, ok := h.rings[historyKey{label, path}]
	if !ok {
		return 0, 0
	}
	return weightedRate(rb.all()), rb.count
}

// Samples returns the samples for a key, oldest first.
func (h *History) Samples(label intent.Label, path Path) []Sample {
	h.mu.RLock()
	defer h.mu.RUnlock()

	rb, ok := h.rings[historyKey{label, path}]
	if !ok {
		return nil
	}
	return rb.all()
}

// Capacity is the per-key sample cap.
func (h *History) Capacity() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.cap
}

// SetCapacity changes the per-key sample cap. Existing keys keep their
// newest samples.
func (h *History) SetCapacity(capacity int) {
	if capacity <= 0 {
		capacity = 20
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	if capacity == h.cap {
		return
	}
	for k, rb := range h.rings {
		h.rings[k] = rb.resized(capacity)
	}
	h.cap = capacity
}

// Snapshot returns per-key statistics sorted by label then path.
func (h *History) Snapshot() []PathStats {
	h.mu.RLock()
	defer h.mu.RUnlock()

	out := make([]PathStats, 0, len(h.rings))
	for k, rb := range h.rings {
		samples := rb.all()
		st := PathStats{
			Label:       k.label,
			Path:        k.path,
			Samples:     len(samples),
			SuccessRate: weightedRate(samples),
		}
		var total time.Duration
		for _, s := range samples {
			total += s.Latency
			if s.At.After(st.LastSeen) {
				st.LastSeen = s.At
			}
		}
		if len(samples) > 0 {
			st.AverageLatency = total / time.Duration(len(samples))
		}
		out = append(out, st)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Label != out[j].Label {
			return out[i].Label < out[j].Label
		}
		return out[i].Path.Cost() < out[j].Path.Cost()
	})
	return out
}

// Reset drops all history.
func (h *History) Reset() {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.rings = make(map[historyKey]*sampleRing)
}
