// Copyright 2026 The Floe Authors. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

// Package model provides the statistical half of the intent ensemble: a
// pre-trained classifier with an explicit load/unload lifecycle.
package model

import (
	"context"
	"errors"
)

// ErrModelNotLoaded is returned by Score before Load succeeded or after Unload.
var ErrModelNotLoaded = errors.New("intent model not loaded")

// Model is a pre-trained intent classifier. Implementations must be safe for
// concurrent Score calls; Load and Unload may be called from any goroutine.
type Model interface {
	// Name identifies the model in logs and statistics.
	Name() string

	// Load makes the model ready for scoring.
	Load(ctx context.Context) error

	// Unload releases the model's resources. Scoring afterwards returns ErrModelNotLoaded.
	Unload() error

	// Loaded reports whether Score can be called.
	Loaded() bool

	// Labels returns the labels the model can emit.
	Labels() []string

	// Score returns a probability per label for the given content tokens.
	// Labels without evidence may be omitted.
	Score(ctx context.Context, tokens []string) (map[string]float64, error)
}
