// Copyright 2026 The Floe Authors. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

// Package config provides configuration management for the Floe command core.
// It handles loading and parsing YAML configuration files and exposes the tunable
// thresholds of the classifier, the adaptive router and the variation engine.
package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"syscall"

	"gopkg.in/yaml.v3"
)

// Config represents the application's configuration, loaded from a YAML file.
type Config struct {
	// Host is the network host/interface on which the API server will bind.
	// Default is empty ("") to bind all interfaces.
	Host string `yaml:"host" json:"-"`
	// Port is the network port on which the API server will listen.
	Port int `yaml:"port" json:"-"`

	// Debug enables or disables debug-level logging.
	Debug bool `yaml:"debug" json:"debug"`

	// LoggingToFile controls whether application logs are written to rotating files or stdout.
	LoggingToFile bool `yaml:"logging-to-file" json:"logging-to-file"`

	// LogDir is the directory used when LoggingToFile is true.
	LogDir string `yaml:"log-dir" json:"log-dir"`

	// Classifier configures the intent classifier and its scorers.
	Classifier ClassifierConfig `yaml:"classifier" json:"classifier"`

	// Router configures the adaptive routing policy.
	Router RouterConfig `yaml:"router" json:"router"`

	// Variation configures the response variation engine.
	Variation VariationConfig `yaml:"variation" json:"variation"`

	// Feedback configures the persistent outcome ledger.
	Feedback FeedbackConfig `yaml:"feedback" json:"feedback"`

	// Executor configures the remote (server path) executor.
	Executor ExecutorConfig `yaml:"executor" json:"executor"`
}

// Default returns a configuration populated with the built-in defaults.
func Default() *Config {
	var cfg Config
	cfg.applyDefaults()
	cfg.Sanitize()
	return &cfg
}

// LoadConfig reads a YAML configuration file from the given path.
func LoadConfig(configFile string) (*Config, error) {
	return LoadConfigOptional(configFile, false)
}

// LoadConfigOptional reads YAML from configFile.
// If optional is true and the file is missing or empty, it returns the defaults.
func LoadConfigOptional(configFile string, optional bool) (*Config, error) {
	data, err := os.ReadFile(configFile)
	if err != nil {
		if optional && (os.IsNotExist(err) || errors.Is(err, syscall.EISDIR)) {
			return Default(), nil
		}
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var cfg Config
	// Set defaults before unmarshal so that absent keys keep defaults.
	cfg.applyDefaults()

	if len(strings.TrimSpace(string(data))) > 0 {
		if err = yaml.Unmarshal(data, &cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config file: %w", err)
		}
	}

	cfg.Sanitize()
	return &cfg, nil
}

func (cfg *Config) applyDefaults() {
	cfg.Host = ""
	cfg.Port = 8087
	cfg.LoggingToFile = false
	cfg.LogDir = "logs"

	cfg.Classifier.ScorerTimeout = "150ms"
	cfg.Classifier.PatternWeight = 0.4
	cfg.Classifier.ModelWeight = 0.6
	cfg.Classifier.AccuracyWindow = 100
	cfg.Classifier.Model.Kind = "bundled"

	cfg.Router.OnDeviceThreshold = 0.75
	cfg.Router.HistorySampleCap = 20
	cfg.Router.SuccessRateFloor = 0.5
	cfg.Router.MinSamples = 5

	cfg.Variation.RepetitionThreshold = 3
	cfg.Variation.RepetitionWindow = "1h"
	cfg.Variation.Retention = "2h"
	cfg.Variation.MaxKeys = 50
	cfg.Variation.MaxVariations = 10
	cfg.Variation.SuggestionProbability = 0.15
	cfg.Variation.PersonalityThreshold = 0.7
	cfg.Variation.FamiliarityTurns = 5

	cfg.Feedback.Enabled = false
	cfg.Feedback.DBPath = "feedback.db"
	cfg.Feedback.RetentionDays = 30
	cfg.Feedback.WarmupLimit = 500

	cfg.Executor.Timeout = "5s"
}

// Sanitize validates and normalizes every section of the configuration.
func (cfg *Config) Sanitize() {
	if cfg == nil {
		return
	}
	cfg.Host = strings.TrimSpace(cfg.Host)
	if cfg.Port <= 0 || cfg.Port > 65535 {
		cfg.Port = 8087
	}
	cfg.LogDir = strings.TrimSpace(cfg.LogDir)
	if cfg.LogDir == "" {
		cfg.LogDir = "logs"
	}

	cfg.SanitizeClassifier()
	cfg.SanitizeRouter()
	cfg.SanitizeVariation()
	cfg.SanitizeFeedback()
	cfg.SanitizeExecutor()
}
