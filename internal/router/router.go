package router

import (
	"errors"
	"fmt"
	"math"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	log "github.com/sirupsen/logrus"

	"github.com/astoerkel/floe-voice-assistant-sub003/internal/config"
	"github.com/astoerkel/floe-voice-assistant-sub003/internal/device"
	"github.com/astoerkel/floe-voice-assistant-sub003/internal/intent"
)

// ErrInvalidOutcome indicates a reported outcome names an unknown path.
var ErrInvalidOutcome = errors.New("router: invalid outcome")

// Rationale names the factor that dominated a decision.
type Rationale string

const (
	RationaleOfflineEligible Rationale = "offline_eligible"
	RationaleHighConfidence  Rationale = "high_confidence"
	RationaleNoNetwork       Rationale = "no_network"
	RationaleLowConfidence   Rationale = "low_confidence"
	RationaleMixedSignals    Rationale = "mixed_signals"
	RationaleServerOnly      Rationale = "server_only"
	RationaleHistory         Rationale = "history"
)

// Decision is the immutable routing result for one request.
type Decision struct {
	Label      intent.Label `json:"label"`
	Confidence float64      `json:"confidence"`
	Primary    Path         `json:"primary"`
	Fallback   []Path       `json:"fallback"`
	Rationale  Rationale    `json:"rationale"`
	// Demoted is the path history replaced, if any.
	Demoted       Path `json:"demoted,omitempty"`
	Unserviceable bool `json:"unserviceable,omitempty"`
}

// Outcome is reported after a path finished serving a request.
type Outcome struct {
	Label   intent.Label
	Path    Path
	Success bool
	Latency time.Duration
	At      time.Time
}

// Policy holds the thresholds that can be swapped at runtime.
type Policy struct {
	OnDeviceThreshold float64
	SuccessRateFloor  float64
	MinSamples        int
}

// PolicyFromConfig converts router configuration into a Policy.
func PolicyFromConfig(cfg config.RouterConfig) Policy {
	return Policy{
		OnDeviceThreshold: cfg.OnDeviceThreshold,
		SuccessRateFloor:  cfg.SuccessRateFloor,
		MinSamples:        cfg.MinSamples,
	}
}

func (p Policy) sanitized() Policy {
	if p.OnDeviceThreshold <= 0 || p.OnDeviceThreshold > 1 || math.IsNaN(p.OnDeviceThreshold) {
		p.OnDeviceThreshold = 0.75
	}
	if p.SuccessRateFloor < 0 || p.SuccessRateFloor > 1 || math.IsNaN(p.SuccessRateFloor) {
		p.SuccessRateFloor = 0.5
	}
	if p.MinSamples < 1 {
		p.MinSamples = 1
	}
	return p
}

// AdaptiveRouter maps classified intents to processing paths.
type AdaptiveRouter struct {
	policy       atomic.Pointer[Policy]
	capabilities *CapabilityRegistry
	history      *History

	mu        sync.Mutex
	decisions map[Rationale]int64
	primaries map[Path]int64
	unserved  int64
}

// New creates a router. A nil registry selects the default capabilities.
func New(cfg config.RouterConfig, caps *CapabilityRegistry) *AdaptiveRouter {
	if caps == nil {
		caps = NewCapabilityRegistry(nil)
	}
	r := &AdaptiveRouter{
		capabilities: caps,
		history:      NewHistory(cfg.HistorySampleCap),
		decisions:    make(map[Rationale]int64),
		primaries:    make(map[Path]int64),
	}
	r.SetPolicy(PolicyFromConfig(cfg))
	return r
}

// SetPolicy atomically replaces the routing thresholds.
func (r *AdaptiveRouter) SetPolicy(p Policy) {
	p = p.sanitized()
	r.policy.Store(&p)
}

// Reconfigure applies reloaded router settings: thresholds and the history
// sample cap.
func (r *AdaptiveRouter) Reconfigure(cfg config.RouterConfig) {
	r.SetPolicy(PolicyFromConfig(cfg))
	r.history.SetCapacity(cfg.HistorySampleCap)
}

// Policy returns the active thresholds.
func (r *AdaptiveRouter) Policy() Policy {
	return *r.policy.Load()
}

// Capabilities returns the capability registry.
func (r *AdaptiveRouter) Capabilities() *CapabilityRegistry { return r.capabilities }

// History returns the performance history.
func (r *AdaptiveRouter) History() *History { return r.history }

// Route decides the primary path and fallback chain for in. When no
// reachable path can serve the intent the Decision is marked Unserviceable
// and carries no primary path.
func (r *AdaptiveRouter) Route(in intent.Intent, state device.State) Decision {
	p := r.Policy()
	label := in.Label
	conf := in.Confidence
	if math.IsNaN(conf) || conf < 0 {
		conf = 0
	}
	caps := r.capabilities.Get(label)

	d := Decision{Label: label, Confidence: conf}

	// Offline-eligible intents ignore device state and history.
	if caps.Offline {
		d.Primary = PathOffline
		d.Rationale = RationaleOfflineEligible
		d.Fallback = fallbackChain(caps, PathOffline, "")
		r.count(d)
		return d
	}

	switch {
	case conf >= p.OnDeviceThreshold && state.Memory != device.MemoryLow && caps.OnDevice:
		d.Primary, d.Rationale = PathOnDevice, RationaleHighConfidence
	case state.Network == device.NetworkNone:
		if !caps.OnDevice {
			d.Rationale = RationaleNoNetwork
			d.Unserviceable = true
			r.count(d)
			return d
		}
		d.Primary, d.Rationale = PathOnDevice, RationaleNoNetwork
	case conf < p.OnDeviceThreshold && state.Network == device.NetworkGood && caps.Server:
		d.Primary, d.Rationale = PathServer, RationaleLowConfidence
	case caps.Supports(PathHybrid):
		d.Primary, d.Rationale = PathHybrid, RationaleMixedSignals
	case caps.Server:
		d.Primary, d.Rationale = PathServer, RationaleServerOnly
	case caps.OnDevice:
		d.Primary, d.Rationale = PathOnDevice, RationaleMixedSignals
	default:
		d.Unserviceable = true
		r.count(d)
		return d
	}

	if alt, ok := r.substitute(label, d.Primary, caps, state, p); ok {
		log.Debugf("router: %s demoted %s to %s on recent history", label, d.Primary, alt)
		d.Demoted = d.Primary
		d.Primary = alt
		d.Rationale = RationaleHistory
	}
	d.Fallback = fallbackChain(caps, d.Primary, d.Demoted)
	r.count(d)
	return d
}

// substitute returns a better-performing alternative for candidate when the
// candidate's recent success rate is below the floor.
func (r *AdaptiveRouter) substitute(label intent.Label, candidate Path, caps Capability, state device.State, p Policy) (Path, bool) {
	rate, n := r.history.Rate(label, candidate)
	if n < p.MinSamples || rate >= p.SuccessRateFloor {
		return "", false
	}

	best, bestRate := Path(""), rate
	for _, alt := range []Path{PathOnDevice, PathServer, PathHybrid} {
		if alt == candidate || !caps.Supports(alt) || !alt.Reachable(state) {
			continue
		}
		altRate, altN := r.history.Rate(label, alt)
		if altN < p.MinSamples {
			continue
		}
		if altRate > bestRate {
			best, bestRate = alt, altRate
		}
	}
	return best, best != ""
}

// fallbackChain lists the capable on-device and server paths other than
// primary in cost order. A demoted path outside that set goes first.
func fallbackChain(caps Capability, primary, demoted Path) []Path {
	chain := make([]Path, 0, 3)
	if demoted != "" && demoted != PathOnDevice && demoted != PathServer {
		chain = append(chain, demoted)
	}
	for _, p := range []Path{PathOnDevice, PathServer} {
		if p != primary && caps.Supports(p) {
			chain = append(chain, p)
		}
	}
	return chain
}

// Report records the outcome of a path execution.
func (r *AdaptiveRouter) Report(o Outcome) error {
	if !o.Path.Valid() || o.Label == "" {
		return fmt.Errorf("%w: label %q path %q", ErrInvalidOutcome, o.Label, o.Path)
	}
	if o.At.IsZero() {
		o.At = time.Now()
	}
	if o.Latency < 0 {
		o.Latency = 0
	}
	r.history.Record(o.Label, o.Path, Sample{Success: o.Success, Latency: o.Latency, At: o.At})
	return nil
}

// Snapshot returns per-(label, path) history statistics.
func (r *AdaptiveRouter) Snapshot() []PathStats {
	return r.history.Snapshot()
}

func (r *AdaptiveRouter) count(d Decision) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if d.Unserviceable {
		r.unserved++
		return
	}
	r.decisions[d.Rationale]++
	r.primaries[d.Primary]++
}

// GetMetrics returns routing counters and the active policy.
func (r *AdaptiveRouter) GetMetrics() map[string]interface{} {
	r.mu.Lock()
	rationales := make(map[string]int64, len(r.decisions))
	for k, v := range r.decisions {
		rationales[string(k)] = v
	}
	primaries := make(map[string]int64, len(r.primaries))
	for k, v := range r.primaries {
		primaries[string(k)] = v
	}
	unserved := r.unserved
	r.mu.Unlock()

	p := r.Policy()
	snapshot := r.history.Snapshot()
	keys := make([]string, 0, len(snapshot))
	for _, st := range snapshot {
		keys = append(keys, fmt.Sprintf("%s/%s", st.Label, st.Path))
	}
	sort.Strings(keys)

	return map[string]interface{}{
		"rationales":    rationales,
		"primaries":     primaries,
		"unserviceable": unserved,
		"history_keys":  keys,
		"policy": map[string]interface{}{
			"on_device_threshold": p.OnDeviceThreshold,
			"success_rate_floor":  p.SuccessRateFloor,
			"min_samples":         p.MinSamples,
		},
	}
}
