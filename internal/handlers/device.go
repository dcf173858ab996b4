package handlers

import (
	"fmt"
	"math"
	"strings"

	"github.com/astoerkel/floe-voice-assistant-sub003/internal/device"
	"github.com/astoerkel/floe-voice-assistant-sub003/internal/intent"
	"github.com/astoerkel/floe-voice-assistant-sub003/internal/response"
)

// HandleDeviceStatus reads the component named by the utterance from the
// device snapshot. Without a component it summarizes battery and network.
func HandleDeviceStatus(req Request) response.Candidate {
	s := req.Device
	switch req.Entity(intent.EntityComponent) {
	case "battery":
		return response.New(batterySentence(s), 0.95, response.CategoryInformation)
	case "network":
		return response.New(networkSentence(s), 0.95, response.CategoryInformation)
	case "memory":
		return response.New(memorySentence(s), 0.9, response.CategoryInformation)
	case "":
		text := batterySentence(s) + " " + networkSentence(s)
		return response.New(text, 0.85, response.CategoryInformation)
	default:
		text := fmt.Sprintf("I can't read the %s setting offline yet. %s",
			req.Entity(intent.EntityComponent), batterySentence(s))
		return response.New(text, 0.6, response.CategoryInformation)
	}
}

func batterySentence(s device.State) string {
	if s.Battery < 0 || s.Battery > 1 || math.IsNaN(s.Battery) {
		return "I can't read the battery level right now."
	}
	var b strings.Builder
	fmt.Fprintf(&b, "Your battery is at %d percent", int(math.Round(s.Battery*100)))
	if s.Charging {
		b.WriteString(" and charging")
	}
	b.WriteString(".")
	if s.LowPower {
		b.WriteString(" Low power mode is on.")
	}
	return b.String()
}

func networkSentence(s device.State) string {
	switch s.Network {
	case device.NetworkNone:
		return "You're offline right now, but I can still help with the time, quick math and your device."
	case device.NetworkGood:
		return "Your network connection looks good."
	default:
		return "Your network connection is weak, so online answers may be slow."
	}
}

func memorySentence(s device.State) string {
	if s.Memory == device.MemoryLow {
		return "Memory is running low, so I'll keep things light."
	}
	return "Memory looks fine."
}
