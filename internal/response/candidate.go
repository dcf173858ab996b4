// Copyright 2026 The Floe Authors. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

// Package response defines the response candidate exchanged between the
// processing paths and the variation engine, and the quality gate every
// candidate must pass before it reaches the user.
package response

import (
	"strings"
	"time"

	"github.com/rivo/uniseg"
)

// Category classifies what a candidate is for.
type Category string

const (
	CategoryAnswer        Category = "answer"
	CategoryInformation   Category = "information"
	CategoryClarification Category = "clarification"
	CategoryError         Category = "error"
)

// Tone is the register a candidate is phrased in.
type Tone string

const (
	ToneNeutral  Tone = "neutral"
	ToneFriendly Tone = "friendly"
	ToneFormal   Tone = "formal"
)

// Metrics describes a candidate's size and cost.
type Metrics struct {
	Latency   time.Duration `json:"latency"`
	Words     int           `json:"words"`
	Graphemes int           `json:"graphemes"`
	Tokens    int           `json:"tokens"`
}

// Candidate is a response produced by one processing path. Source names the
// path that produced it.
type Candidate struct {
	Text       string   `json:"text"`
	Confidence float64  `json:"confidence"`
	Category   Category `json:"category"`
	Tone       Tone     `json:"tone,omitempty"`
	FollowUps  []string `json:"follow_ups,omitempty"`
	Metrics    Metrics  `json:"metrics"`
	Source     string   `json:"source,omitempty"`
}

// New builds a candidate and fills its size metrics.
func New(text string, confidence float64, category Category) Candidate {
	c := Candidate{
		Text:       text,
		Confidence: confidence,
		Category:   category,
		Tone:       ToneNeutral,
	}
	c.Measure()
	return c
}

// Measure recomputes the size metrics from Text.
func (c *Candidate) Measure() {
	c.Metrics.Words = len(strings.Fields(c.Text))
	c.Metrics.Graphemes = uniseg.GraphemeClusterCount(c.Text)
	c.Metrics.Tokens = CountTokens(c.Text)
}

// WithFollowUps returns a copy of c carrying follow-up suggestions.
func (c Candidate) WithFollowUps(followUps ...string) Candidate {
	c.FollowUps = append(append([]string(nil), c.FollowUps...), followUps...)
	return c
}
