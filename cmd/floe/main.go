// Copyright 2026 The Floe Authors. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

// Package main provides the entry point for the Floe command core server.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	log "github.com/sirupsen/logrus"

	"github.com/astoerkel/floe-voice-assistant-sub003/internal/api"
	"github.com/astoerkel/floe-voice-assistant-sub003/internal/buildinfo"
	"github.com/astoerkel/floe-voice-assistant-sub003/internal/config"
	"github.com/astoerkel/floe-voice-assistant-sub003/internal/logging"
)

var (
	Version           = "dev"
	Commit            = "none"
	BuildDate         = "unknown"
	DefaultConfigPath = "config.yaml"
)

// init initializes the shared logger setup.
func init() {
	logging.SetupBaseLogger()
	buildinfo.Version = Version
	buildinfo.Commit = Commit
	buildinfo.BuildDate = BuildDate
}

func main() {
	var configPath string
	var showVersion bool
	flag.StringVar(&configPath, "config", DefaultConfigPath, "Configure File Path")
	flag.BoolVar(&showVersion, "version", false, "Print version information and exit")
	flag.Parse()

	if showVersion {
		fmt.Printf("floe %s (commit %s, built %s)\n", buildinfo.Version, buildinfo.Commit, buildinfo.BuildDate)
		return
	}

	wd, err := os.Getwd()
	if err != nil {
		log.Fatalf("failed to get working directory: %v", err)
	}

	// Load environment variables from .env if present.
	if errLoad := godotenv.Load(filepath.Join(wd, ".env")); errLoad != nil {
		if !errors.Is(errLoad, os.ErrNotExist) {
			log.WithError(errLoad).Warn("failed to load .env file")
		}
	}
	if v := strings.TrimSpace(os.Getenv("FLOE_CONFIG")); v != "" {
		configPath = v
	}

	cfg, err := config.LoadConfigOptional(configPath, configPath == DefaultConfigPath)
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}
	if v := strings.TrimSpace(os.Getenv("FLOE_SERVER_URL")); v != "" {
		cfg.Executor.ServerURL = v
		cfg.SanitizeExecutor()
	}

	logging.SetDebug(cfg.Debug)
	if err = logging.ConfigureLogOutput(cfg.LoggingToFile, cfg.LogDir); err != nil {
		log.Fatalf("failed to configure log output: %v", err)
	}
	log.Infof("Floe %s starting (commit %s)", buildinfo.Version, buildinfo.Commit)

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	app, err := buildApp(ctx, cfg)
	if err != nil {
		log.Fatalf("failed to initialize: %v", err)
	}
	defer app.Close()

	if _, statErr := os.Stat(configPath); statErr == nil {
		w, errWatch := app.watchConfig(ctx, configPath, cfg)
		if errWatch != nil {
			log.Warnf("config hot reload disabled: %v", errWatch)
		} else {
			defer w.Stop()
		}
	}

	server := api.NewServer(cfg, app.processor, app.classifier, app.feedback)
	errCh := make(chan error, 1)
	go func() { errCh <- server.Start() }()

	select {
	case <-ctx.Done():
		log.Info("shutting down")
	case err = <-errCh:
		if err != nil {
			log.Errorf("server stopped: %v", err)
		}
	}

	shutdownCtx, stop := context.WithTimeout(context.Background(), 10*time.Second)
	defer stop()
	if err = server.Stop(shutdownCtx); err != nil {
		log.Warnf("server shutdown: %v", err)
	}
}
