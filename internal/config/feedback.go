package config

import (
	"strings"
	"time"
)

// FeedbackConfig configures the SQLite outcome ledger.
type FeedbackConfig struct {
	// Enabled toggles persistence of routing outcomes.
	Enabled bool `yaml:"enabled" json:"enabled"`

	// DBPath is the SQLite database file.
	DBPath string `yaml:"db-path" json:"db-path"`

	// RetentionDays controls how long outcomes are kept.
	RetentionDays int `yaml:"retention-days" json:"retention-days"`

	// WarmupLimit is the number of recent outcomes replayed into routing history at startup.
	WarmupLimit int `yaml:"warmup-limit" json:"warmup-limit"`
}

// ExecutorConfig configures the remote executor used for the server path.
type ExecutorConfig struct {
	// ServerURL is the endpoint that accepts utterances for server-side processing.
	// When empty, the server path is reported as unavailable.
	ServerURL string `yaml:"server-url,omitempty" json:"server-url,omitempty"`

	// Timeout bounds a single remote call (e.g. "5s").
	Timeout string `yaml:"timeout" json:"timeout"`
}

// SanitizeFeedback validates the feedback section.
func (cfg *Config) SanitizeFeedback() {
	f := &cfg.Feedback
	f.DBPath = strings.TrimSpace(f.DBPath)
	if f.DBPath == "" {
		f.DBPath = "feedback.db"
	}
	if f.RetentionDays < 1 {
		f.RetentionDays = 30
	}
	if f.WarmupLimit < 0 {
		f.WarmupLimit = 0
	}
}

// SanitizeExecutor validates the executor section.
func (cfg *Config) SanitizeExecutor() {
	e := &cfg.Executor
	e.ServerURL = strings.TrimRight(strings.TrimSpace(e.ServerURL), "/")
	if d, err := time.ParseDuration(e.Timeout); err != nil || d < 100*time.Millisecond {
		e.Timeout = "5s"
	}
}

// TimeoutDuration returns the remote call timeout.
func (e ExecutorConfig) TimeoutDuration() time.Duration {
	return parseDurationOr(e.Timeout, 5*time.Second)
}
