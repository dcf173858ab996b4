package device

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestParseNetworkQuality(t *testing.T) {
	assert.Equal(t, NetworkNone, ParseNetworkQuality("offline"))
	assert.Equal(t, NetworkNone, ParseNetworkQuality(" NONE "))
	assert.Equal(t, NetworkGood, ParseNetworkQuality("good"))
	assert.Equal(t, NetworkPoor, ParseNetworkQuality("poor"))
	assert.Equal(t, NetworkPoor, ParseNetworkQuality("???"))
}

func TestParseMemoryClass(t *testing.T) {
	assert.Equal(t, MemoryLow, ParseMemoryClass("LOW"))
	assert.Equal(t, MemoryNormal, ParseMemoryClass(""))
}

func TestState_Clock(t *testing.T) {
	fixed := time.Date(2026, 10, 17, 15, 4, 0, 0, time.UTC)
	tokyo := time.FixedZone("JST", 9*3600)

	s := State{Now: fixed, Location: tokyo}
	assert.Equal(t, 0, s.Clock().Hour())
	assert.True(t, s.Clock().Equal(fixed))

	assert.False(t, State{}.Clock().IsZero())
	assert.False(t, State{Network: NetworkNone}.Online())
	assert.True(t, State{Network: NetworkPoor}.Online())
}
