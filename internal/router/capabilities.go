package router

import (
	"sort"

	"github.com/astoerkel/floe-voice-assistant-sub003/internal/intent"
)

// Capability describes which paths can handle an intent category. It is
// category metadata and never depends on confidence.
type Capability struct {
	Offline  bool
	OnDevice bool
	Server   bool
}

// Supports reports whether the capability admits p. Hybrid needs both the
// on-device and the server path.
func (c Capability) Supports(p Path) bool {
	switch p {
	case PathOffline:
		return c.Offline
	case PathOnDevice:
		return c.OnDevice
	case PathServer:
		return c.Server
	case PathHybrid:
		return c.OnDevice && c.Server
	}
	return false
}

// CapabilityRegistry maps intent labels to their capability. It is fixed
// after construction.
type CapabilityRegistry struct {
	caps map[intent.Label]Capability
}

// DefaultCapabilities returns the built-in capability table.
func DefaultCapabilities() map[intent.Label]Capability {
	offline := Capability{Offline: true, OnDevice: true, Server: true}
	local := Capability{OnDevice: true, Server: true}
	remote := Capability{Server: true}
	return map[intent.Label]Capability{
		intent.LabelTime:         offline,
		intent.LabelCalculation:  offline,
		intent.LabelDeviceStatus: offline,
		intent.LabelGeneralInfo:  offline,
		intent.LabelCalendar:     local,
		intent.LabelReminder:     local,
		intent.LabelMessaging:    local,
		intent.LabelMusic:        local,
		intent.LabelSmalltalk:    local,
		intent.LabelUnknown:      local,
		intent.LabelEmail:        remote,
		intent.LabelWeather:      remote,
		intent.LabelWebSearch:    remote,
		intent.LabelNavigation:   remote,
	}
}

// NewCapabilityRegistry builds a registry. A nil table selects the defaults.
func NewCapabilityRegistry(table map[intent.Label]Capability) *CapabilityRegistry {
	if table == nil {
		table = DefaultCapabilities()
	}
	caps := make(map[intent.Label]Capability, len(table))
	for label, c := range table {
		caps[label] = c
	}
	return &CapabilityRegistry{caps: caps}
}

// Get returns the capability for label. Labels missing from the table are
// treated like unknown.
func (r *CapabilityRegistry) Get(label intent.Label) Capability {
	if c, ok := r.caps[label]; ok {
		return c
	}
	if c, ok := r.caps[intent.LabelUnknown]; ok {
		return c
	}
	return Capability{OnDevice: true, Server: true}
}

// OfflineEligible reports whether label always routes offline.
func (r *CapabilityRegistry) OfflineEligible(label intent.Label) bool {
	return r.Get(label).Offline
}

// OfflineLabels returns the offline-eligible labels in sorted order.
func (r *CapabilityRegistry) OfflineLabels() []intent.Label {
	var labels []intent.Label
	for label, c := range r.caps {
		if c.Offline {
			labels = append(labels, label)
		}
	}
	sort.Slice(labels, func(i, j int) bool { return labels[i] < labels[j] })
	return labels
}
