package config

import "time"

// VariationConfig configures the response variation engine.
type VariationConfig struct {
	// RepetitionThreshold is the usage count within RepetitionWindow that triggers variation.
	RepetitionThreshold int `yaml:"repetition-threshold" json:"repetition-threshold"`

	// RepetitionWindow is the lookback used when counting usages (e.g. "1h").
	RepetitionWindow string `yaml:"repetition-window" json:"repetition-window"`

	// Retention is how long usage timestamps are kept (e.g. "2h").
	Retention string `yaml:"retention" json:"retention"`

	// MaxKeys caps the number of tracked response signatures.
	MaxKeys int `yaml:"max-keys" json:"max-keys"`

	// MaxVariations caps the renderings remembered per signature.
	MaxVariations int `yaml:"max-variations" json:"max-variations"`

	// SuggestionProbability is the chance of appending a proactive suggestion.
	SuggestionProbability float64 `yaml:"suggestion-probability" json:"suggestion-probability"`

	// PersonalityThreshold is the trait level at which personality modifiers apply.
	PersonalityThreshold float64 `yaml:"personality-threshold" json:"personality-threshold"`

	// FamiliarityTurns is the turn count after which phrasing is softened.
	FamiliarityTurns int `yaml:"familiarity-turns" json:"familiarity-turns"`
}

// SanitizeVariation clamps variation settings to usable values.
func (cfg *Config) SanitizeVariation() {
	v := &cfg.Variation

	if v.RepetitionThreshold < 1 {
		v.RepetitionThreshold = 3
	}
	if d, err := time.ParseDuration(v.RepetitionWindow); err != nil || d < time.Minute {
		v.RepetitionWindow = "1h"
	}
	if d, err := time.ParseDuration(v.Retention); err != nil || d < time.Minute {
		v.Retention = "2h"
	}
	if v.MaxKeys < 1 {
		v.MaxKeys = 50
	}
	if v.MaxVariations < 1 {
		v.MaxVariations = 10
	}
	if v.SuggestionProbability < 0 || v.SuggestionProbability > 1 {
		v.SuggestionProbability = 0.15
	}
	if v.PersonalityThreshold <= 0 || v.PersonalityThreshold > 1 {
		v.PersonalityThreshold = 0.7
	}
	if v.FamiliarityTurns < 1 {
		v.FamiliarityTurns = 5
	}
}

// RepetitionWindowDuration returns the repetition lookback window.
func (v VariationConfig) RepetitionWindowDuration() time.Duration {
	return parseDurationOr(v.RepetitionWindow, time.Hour)
}

// RetentionDuration returns the usage retention period.
func (v VariationConfig) RetentionDuration() time.Duration {
	return parseDurationOr(v.Retention, 2*time.Hour)
}

func parseDurationOr(value string, fallback time.Duration) time.Duration {
	d, err := time.ParseDuration(value)
	if err != nil || d <= 0 {
		return fallback
	}
	return d
}
