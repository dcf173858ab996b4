package config

import (
	"strings"
	"time"
)

// ClassifierConfig configures the intent classifier ensemble.
type ClassifierConfig struct {
	// ScorerTimeout bounds each scorer independently (e.g. "150ms").
	ScorerTimeout string `yaml:"scorer-timeout" json:"scorer-timeout"`

	// PatternWeight is the ensemble weight of the pattern scorer.
	PatternWeight float64 `yaml:"pattern-weight" json:"pattern-weight"`

	// ModelWeight is the ensemble weight of the statistical scorer.
	ModelWeight float64 `yaml:"model-weight" json:"model-weight"`

	// RulesPath optionally points to a YAML file with extra keyword rules.
	RulesPath string `yaml:"rules-path,omitempty" json:"rules-path,omitempty"`

	// AccuracyWindow is the number of ground-truth reports kept per label.
	AccuracyWindow int `yaml:"accuracy-window" json:"accuracy-window"`

	// Model selects and locates the statistical model.
	Model ModelConfig `yaml:"model" json:"model"`
}

// ModelConfig describes the statistical model backing the classifier.
type ModelConfig struct {
	// Kind is "bundled", "onnx" or "disabled".
	Kind string `yaml:"kind" json:"kind"`

	// ModelPath is the ONNX model file.
	ModelPath string `yaml:"model-path,omitempty" json:"model-path,omitempty"`

	// ConfigPath is the model's config.json holding the id2label table.
	ConfigPath string `yaml:"config-path,omitempty" json:"config-path,omitempty"`

	// VocabPath is the WordPiece vocabulary file.
	VocabPath string `yaml:"vocab-path,omitempty" json:"vocab-path,omitempty"`

	// SharedLibraryPath is the ONNX Runtime shared library.
	SharedLibraryPath string `yaml:"shared-library-path,omitempty" json:"shared-library-path,omitempty"`
}

// SanitizeClassifier clamps classifier settings to usable values.
func (cfg *Config) SanitizeClassifier() {
	c := &cfg.Classifier

	if d, err := time.ParseDuration(c.ScorerTimeout); err != nil || d < 10*time.Millisecond {
		c.ScorerTimeout = "150ms"
	}

	if c.PatternWeight < 0 {
		c.PatternWeight = 0
	}
	if c.ModelWeight < 0 {
		c.ModelWeight = 0
	}
	if c.PatternWeight+c.ModelWeight == 0 {
		c.PatternWeight = 0.4
		c.ModelWeight = 0.6
	}

	if c.AccuracyWindow < 10 {
		c.AccuracyWindow = 10
	}
	if c.AccuracyWindow > 10000 {
		c.AccuracyWindow = 10000
	}

	c.RulesPath = strings.TrimSpace(c.RulesPath)
	c.Model.Kind = strings.ToLower(strings.TrimSpace(c.Model.Kind))
	switch c.Model.Kind {
	case "bundled", "onnx", "disabled":
	default:
		c.Model.Kind = "bundled"
	}
	if c.Model.Kind == "onnx" && strings.TrimSpace(c.Model.ModelPath) == "" {
		// An ONNX model without a file cannot load; fall back to the lexicon.
		c.Model.Kind = "bundled"
	}
}

// ScorerTimeoutDuration returns the per-scorer timeout.
func (c ClassifierConfig) ScorerTimeoutDuration() time.Duration {
	d, err := time.ParseDuration(c.ScorerTimeout)
	if err != nil || d <= 0 {
		return 150 * time.Millisecond
	}
	return d
}
