// Copyright 2026 The Floe Authors. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

// Package watcher reloads the configuration file when it changes on disk and
// hands the new tunables to the running components.
package watcher

import (
	"context"
	"crypto/sha256"
	"errors"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	log "github.com/sirupsen/logrus"

	"github.com/astoerkel/floe-voice-assistant-sub003/internal/config"
)

// debounce collapses the burst of events editors produce for one save.
const debounce = 150 * time.Millisecond

// Watcher watches one configuration file.
type Watcher struct {
	configPath string
	onReload   func(*config.Config)

	mu                sync.Mutex
	current           *config.Config
	lastHash          [sha256.Size]byte
	onRouterReload    func(config.RouterConfig)
	onVariationReload func(config.VariationConfig)

	fs       *fsnotify.Watcher
	stopOnce sync.Once
	done     chan struct{}
}

// NewWatcher creates a watcher for configPath. onReload receives every
// successfully parsed configuration that differs from the previous one.
func NewWatcher(configPath string, onReload func(*config.Config)) (*Watcher, error) {
	if configPath == "" {
		return nil, errors.New("watcher: config path is required")
	}
	abs, err := filepath.Abs(configPath)
	if err != nil {
		return nil, err
	}
	return &Watcher{
		configPath: abs,
		onReload:   onReload,
		done:       make(chan struct{}),
	}, nil
}

// SetConfig records the configuration currently in effect.
func (w *Watcher) SetConfig(cfg *config.Config) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.current = cfg
	if data, err := os.ReadFile(w.configPath); err == nil {
		w.lastHash = sha256.Sum256(data)
	}
}

// SetRouterReloadCallback registers a callback fired when the router section changes.
func (w *Watcher) SetRouterReloadCallback(fn func(config.RouterConfig)) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.onRouterReload = fn
}

// SetVariationReloadCallback registers a callback fired when the variation section changes.
func (w *Watcher) SetVariationReloadCallback(fn func(config.VariationConfig)) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.onVariationReload = fn
}

// Start begins watching. The parent directory is watched so that editors
// which replace the file on save are still observed.
func (w *Watcher) Start(ctx context.Context) error {
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	if err = fsw.Add(filepath.Dir(w.configPath)); err != nil {
		fsw.Close()
		return err
	}
	w.fs = fsw

	go w.loop(ctx)
	log.Infof("watching %s for configuration changes", w.configPath)
	return nil
}

func (w *Watcher) loop(ctx context.Context) {
	defer close(w.done)

	var timer *time.Timer
	var fire <-chan time.Time
	for {
		select {
		case <-ctx.Done():
			return
		case event, ok := <-w.fs.Events:
			if !ok {
				return
			}
			if filepath.Clean(event.Name) != w.configPath {
				continue
			}
			if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename) == 0 {
				continue
			}
			if timer == nil {
				timer = time.NewTimer(debounce)
			} else {
				timer.Reset(debounce)
			}
			fire = timer.C
		case <-fire:
			fire = nil
			w.reload()
		case err, ok := <-w.fs.Errors:
			if !ok {
				return
			}
			log.Errorf("config watcher error: %v", err)
		}
	}
}

// reload parses the file and fires callbacks. A file that fails to parse
// keeps the previous configuration.
func (w *Watcher) reload() {
	data, err := os.ReadFile(w.configPath)
	if err != nil {
		log.Warnf("config reload skipped: %v", err)
		return
	}
	hash := sha256.Sum256(data)

	w.mu.Lock()
	if hash == w.lastHash {
		w.mu.Unlock()
		return
	}
	w.mu.Unlock()

	cfg, err := config.LoadConfig(w.configPath)
	if err != nil {
		log.Errorf("config reload failed, keeping previous settings: %v", err)
		return
	}

	w.mu.Lock()
	prev := w.current
	w.current = cfg
	w.lastHash = hash
	onRouter, onVariation := w.onRouterReload, w.onVariationReload
	w.mu.Unlock()

	log.Infof("configuration reloaded from %s", w.configPath)
	if w.onReload != nil {
		w.onReload(cfg)
	}
	if onRouter != nil && (prev == nil || prev.Router != cfg.Router) {
		onRouter(cfg.Router)
	}
	if onVariation != nil && (prev == nil || prev.Variation != cfg.Variation) {
		onVariation(cfg.Variation)
	}
}

// Config returns the configuration currently in effect.
func (w *Watcher) Config() *config.Config {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.current
}

// Stop ends watching and waits for the loop to exit.
func (w *Watcher) Stop() error {
	var err error
	w.stopOnce.Do(func() {
		if w.fs == nil {
			return
		}
		err = w.fs.Close()
		<-w.done
	})
	return err
}
