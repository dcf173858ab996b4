package variation

import (
	"time"
)

// maxUses bounds the timestamps kept per signature.
const maxUses = 64

type entry struct {
	uses       []time.Time
	renderings []string
	lastUsed   time.Time
}

// History is the per-signature usage and rendering log. It is owned by an
// Engine, which serializes all access.
type History struct {
	maxKeys       int
	maxRenderings int
	retention     time.Duration
	entries       map[string]*entry
	evictions     int64
}

// NewHistory creates a history bounded to maxKeys signatures and
// maxRenderings renderings per signature, dropping uses older than retention.
func NewHistory(maxKeys, maxRenderings int, retention time.Duration) *History {
	if maxKeys <= 0 {
		maxKeys = 50
	}
	if maxRenderings <= 0 {
		maxRenderings = 10
	}
	if retention <= 0 {
		retention = 2 * time.Hour
	}
	return &History{
		maxKeys:       maxKeys,
		maxRenderings: maxRenderings,
		retention:     retention,
		entries:       make(map[string]*entry),
	}
}

// purge drops uses older than the retention window and removes signatures
// left with none.
func (h *History) purge(now time.Time) {
	cutoff := now.Add(-h.retention)
	for sig, e := range h.entries {
		kept := e.uses[:0]
		for _, t := range e.uses {
			if t.After(cutoff) {
				kept = append(kept, t)
			}
		}
		e.uses = kept
		if len(e.uses) == 0 {
			delete(h.entries, sig)
		}
	}
}

// usesWithin counts uses of sig newer than now-window.
func (h *History) usesWithin(sig string, now time.Time, window time.Duration) int {
	e, ok := h.entries[sig]
	if !ok {
		return 0
	}
	cutoff := now.Add(-window)
	n := 0
	for _, t := range e.uses {
		if t.After(cutoff) {
			n++
		}
	}
	return n
}

func (h *History) seen(sig, text string) bool {
	e, ok := h.entries[sig]
	if !ok {
		return false
	}
	for _, r := range e.renderings {
		if r == text {
			return true
		}
	}
	return false
}

// record stores a use and its rendering, evicting the least recently used
// signature when a new one would exceed the key cap.
func (h *History) record(sig, text string, now time.Time) {
	e, ok := h.entries[sig]
	if !ok {
		if len(h.entries) >= h.maxKeys {
			h.evictOldest()
		}
		e = &entry{}
		h.entries[sig] = e
	}
	e.uses = append(e.uses, now)
	if len(e.uses) > maxUses {
		e.uses = e.uses[len(e.uses)-maxUses:]
	}
	e.renderings = append(e.renderings, text)
	if len(e.renderings) > h.maxRenderings {
		e.renderings = e.renderings[len(e.renderings)-h.maxRenderings:]
	}
	e.lastUsed = now
}

func (h *History) evictOldest() {
	var oldest string
	var oldestAt time.Time
	for sig, e := range h.entries {
		if oldest == "" || e.lastUsed.Before(oldestAt) {
			oldest, oldestAt = sig, e.lastUsed
		}
	}
	if oldest != "" {
		delete(h.entries, oldest)
		h.evictions++
	}
}

// Len returns the number of tracked signatures.
func (h *History) Len() int { return len(h.entries) }

// Renderings returns a copy of the renderings recorded for sig, oldest first.
func (h *History) Renderings(sig string) []string {
	e, ok := h.entries[sig]
	if !ok {
		return nil
	}
	return append([]string(nil), e.renderings...)
}

// Has reports whether sig is tracked.
func (h *History) Has(sig string) bool {
	_, ok := h.entries[sig]
	return ok
}
