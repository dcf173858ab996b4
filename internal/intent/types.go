// Copyright 2026 The Floe Authors. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

// Package intent turns a transcribed utterance into a ranked list of intent
// hypotheses by running a keyword pattern scorer and a statistical model
// concurrently and merging their scores.
package intent

import (
	"sort"
	"time"
)

// Label identifies an intent.
type Label string

// Known intent labels.
const (
	LabelTime         Label = "time"
	LabelCalculation  Label = "calculation"
	LabelDeviceStatus Label = "device_status"
	LabelGeneralInfo  Label = "general_info"
	LabelCalendar     Label = "calendar"
	LabelReminder     Label = "reminder"
	LabelMessaging    Label = "messaging"
	LabelMusic        Label = "music"
	LabelSmalltalk    Label = "smalltalk"
	LabelEmail        Label = "email"
	LabelWeather      Label = "weather"
	LabelWebSearch    Label = "web_search"
	LabelNavigation   Label = "navigation"
	LabelUnknown      Label = "unknown"
)

// Labels returns every known label in a stable order.
func Labels() []Label {
	return []Label{
		LabelTime, LabelCalculation, LabelDeviceStatus, LabelGeneralInfo,
		LabelCalendar, LabelReminder, LabelMessaging, LabelMusic, LabelSmalltalk,
		LabelEmail, LabelWeather, LabelWebSearch, LabelNavigation, LabelUnknown,
	}
}

// TimeOfDay buckets the local hour for contextual phrasing.
type TimeOfDay string

const (
	Morning   TimeOfDay = "morning"
	Afternoon TimeOfDay = "afternoon"
	Evening   TimeOfDay = "evening"
	Night     TimeOfDay = "night"
)

// TimeOfDayAt returns the bucket for t.
func TimeOfDayAt(t time.Time) TimeOfDay {
	switch h := t.Hour(); {
	case h >= 5 && h < 12:
		return Morning
	case h >= 12 && h < 17:
		return Afternoon
	case h >= 17 && h < 22:
		return Evening
	default:
		return Night
	}
}

// Utterance is one user turn as delivered by the speech front end.
type Utterance struct {
	Text       string    `json:"text"`
	Locale     string    `json:"locale,omitempty"`
	ReceivedAt time.Time `json:"received_at,omitempty"`
}

// ConversationContext carries what the caller knows about the ongoing session.
type ConversationContext struct {
	SessionID   string    `json:"session_id,omitempty"`
	PriorIntent Label     `json:"prior_intent,omitempty"`
	TurnCount   int       `json:"turn_count"`
	TimeOfDay   TimeOfDay `json:"time_of_day,omitempty"`
}

// Entities are named slots extracted from the utterance.
type Entities map[string]string

// Intent is one ranked hypothesis.
type Intent struct {
	Label      Label    `json:"label"`
	Confidence float64  `json:"confidence"`
	Entities   Entities `json:"entities,omitempty"`
	// Agreement counts the scorers that produced a non-zero score for Label.
	Agreement int `json:"agreement"`
}

// ScorerKind names one of the two scorers in the ensemble.
type ScorerKind string

const (
	ScorerPattern ScorerKind = "pattern"
	ScorerModel   ScorerKind = "model"
)

// Result is the output of Classify. Intents is never empty and is sorted by
// descending confidence.
type Result struct {
	Intents    []Intent      `json:"intents"`
	Normalized string        `json:"normalized"`
	Excluded   []ScorerKind  `json:"excluded,omitempty"`
	Degraded   bool          `json:"degraded"`
	Latency    time.Duration `json:"latency"`
}

// Top returns the highest ranked intent.
func (r Result) Top() Intent {
	if len(r.Intents) == 0 {
		return Intent{Label: LabelUnknown}
	}
	return r.Intents[0]
}

// unknownResult is returned for empty input or when every scorer failed.
func unknownResult(normalized string, entities Entities) Result {
	return Result{
		Intents:    []Intent{{Label: LabelUnknown, Confidence: 0, Entities: entities}},
		Normalized: normalized,
	}
}

// sortIntents orders by confidence, then agreement, then label for stability.
func sortIntents(intents []Intent) {
	sort.SliceStable(intents, func(i, j int) bool {
		if intents[i].Confidence != intents[j].Confidence {
			return intents[i].Confidence > intents[j].Confidence
		}
		if intents[i].Agreement != intents[j].Agreement {
			return intents[i].Agreement > intents[j].Agreement
		}
		return intents[i].Label < intents[j].Label
	})
}
