// Copyright 2026 The Floe Authors. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

// Package router chooses where a classified request is fulfilled. It maps
// the intent, its confidence, the device state and recent outcomes to a
// processing path plus an ordered fallback chain.
package router

import "github.com/astoerkel/floe-voice-assistant-sub003/internal/device"

// Path is a processing path.
type Path string

const (
	PathOffline  Path = "offline"
	PathOnDevice Path = "on_device"
	PathServer   Path = "server"
	PathHybrid   Path = "hybrid"
)

// Paths lists every path in ascending resource cost. Hybrid runs on-device
// first and escalates, so it sorts after Server.
func Paths() []Path {
	return []Path{PathOffline, PathOnDevice, PathServer, PathHybrid}
}

// Valid reports whether p is a known path.
func (p Path) Valid() bool {
	switch p {
	case PathOffline, PathOnDevice, PathServer, PathHybrid:
		return true
	}
	return false
}

// Cost is the relative resource cost used to order fallbacks.
func (p Path) Cost() int {
	switch p {
	case PathOffline:
		return 0
	case PathOnDevice:
		return 1
	case PathServer:
		return 2
	case PathHybrid:
		return 3
	}
	return 99
}

// Reachable reports whether p can run in the given device state.
// Server and Hybrid need a network.
func (p Path) Reachable(s device.State) bool {
	switch p {
	case PathServer, PathHybrid:
		return s.Online()
	}
	return p.Valid()
}
