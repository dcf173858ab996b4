// Package device describes the runtime conditions of the device the assistant
// runs on: connectivity, memory pressure, power and local clock.
package device

import (
	"strings"
	"time"
)

// NetworkQuality is the coarse connectivity class reported by the platform.
type NetworkQuality string

const (
	NetworkNone NetworkQuality = "none"
	NetworkPoor NetworkQuality = "poor"
	NetworkGood NetworkQuality = "good"
)

// ParseNetworkQuality maps free-form input onto a NetworkQuality. Unknown
// values are treated as poor.
func ParseNetworkQuality(s string) NetworkQuality {
	switch NetworkQuality(strings.ToLower(strings.TrimSpace(s))) {
	case NetworkNone, "offline", "disconnected":
		return NetworkNone
	case NetworkGood, "excellent", "wifi":
		return NetworkGood
	default:
		return NetworkPoor
	}
}

// MemoryClass is the coarse memory-pressure class.
type MemoryClass string

const (
	MemoryNormal MemoryClass = "normal"
	MemoryLow    MemoryClass = "low"
)

// ParseMemoryClass maps free-form input onto a MemoryClass.
func ParseMemoryClass(s string) MemoryClass {
	if MemoryClass(strings.ToLower(strings.TrimSpace(s))) == MemoryLow {
		return MemoryLow
	}
	return MemoryNormal
}

// State is a point-in-time snapshot of the device.
//
// Battery is the charge level in [0, 1]; negative means unknown. A zero Now
// means the process clock and a nil Location means the process time zone.
type State struct {
	Network  NetworkQuality `json:"network"`
	Memory   MemoryClass    `json:"memory"`
	Battery  float64        `json:"battery"`
	Charging bool           `json:"charging"`
	LowPower bool           `json:"low_power"`
	Now      time.Time      `json:"now,omitempty"`
	Location *time.Location `json:"-"`
}

// Clock returns the device's current local time.
func (s State) Clock() time.Time {
	now := s.Now
	if now.IsZero() {
		now = time.Now()
	}
	if s.Location != nil {
		now = now.In(s.Location)
	}
	return now
}

// Online reports whether any network is available.
func (s State) Online() bool {
	return s.Network != NetworkNone
}
