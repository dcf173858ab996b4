// Copyright 2026 The Floe Authors. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

// Package executor contains the executors for the on-device and server
// processing paths.
package executor

import (
	"context"
	"errors"

	"github.com/astoerkel/floe-voice-assistant-sub003/internal/device"
	"github.com/astoerkel/floe-voice-assistant-sub003/internal/intent"
	"github.com/astoerkel/floe-voice-assistant-sub003/internal/response"
)

var (
	// ErrUnavailable indicates the executor cannot run in the current state.
	ErrUnavailable = errors.New("executor: path unavailable")

	// ErrUnsupported indicates the executor has no answer for the intent.
	ErrUnsupported = errors.New("executor: intent not supported")
)

// Request is what a path executor receives.
type Request struct {
	RequestID string
	Utterance intent.Utterance
	Intent    intent.Intent
	Context   intent.ConversationContext
	Device    device.State
}

// Executor produces a candidate for one processing path.
type Executor interface {
	Name() string
	Execute(ctx context.Context, req Request) (response.Candidate, error)
}
