package main

import (
	"context"
	"fmt"
	"time"

	log "github.com/sirupsen/logrus"

	"github.com/astoerkel/floe-voice-assistant-sub003/internal/config"
	"github.com/astoerkel/floe-voice-assistant-sub003/internal/events"
	"github.com/astoerkel/floe-voice-assistant-sub003/internal/executor"
	"github.com/astoerkel/floe-voice-assistant-sub003/internal/feedback"
	"github.com/astoerkel/floe-voice-assistant-sub003/internal/handlers"
	"github.com/astoerkel/floe-voice-assistant-sub003/internal/intent"
	"github.com/astoerkel/floe-voice-assistant-sub003/internal/intent/model"
	"github.com/astoerkel/floe-voice-assistant-sub003/internal/logging"
	"github.com/astoerkel/floe-voice-assistant-sub003/internal/processor"
	"github.com/astoerkel/floe-voice-assistant-sub003/internal/router"
	"github.com/astoerkel/floe-voice-assistant-sub003/internal/variation"
	"github.com/astoerkel/floe-voice-assistant-sub003/internal/watcher"
)

// app holds the wired components so main can shut them down in order.
type app struct {
	classifier *intent.Classifier
	model      model.Model
	router     *router.AdaptiveRouter
	processor  *processor.Processor
	feedback   *feedback.Collector
	events     *events.Bus
}

func buildApp(ctx context.Context, cfg *config.Config) (*app, error) {
	a := &app{}

	classifier, m, err := buildClassifier(ctx, cfg.Classifier)
	if err != nil {
		return nil, err
	}
	a.classifier, a.model = classifier, m

	a.router = router.New(cfg.Router, nil)
	a.events = events.NewBus(1000)
	a.events.Subscribe(events.EventPathFailed, func(ec *events.EventContext) {
		log.WithField(logging.RequestIDField, ec.RequestID).Debugf("path %s failed for %s: %v", ec.Path, ec.Intent, ec.Data["error"])
	})

	if cfg.Feedback.Enabled {
		a.feedback, err = startFeedback(ctx, cfg.Feedback, a.router)
		if err != nil {
			log.Warnf("feedback ledger disabled: %v", err)
			a.feedback = nil
		}
	}

	varOpts := variation.OptionsFromConfig(cfg.Variation)
	a.processor, err = processor.New(processor.Options{
		Classifier: classifier,
		Router:     a.router,
		Handlers:   handlers.Default(),
		OnDevice:   executor.NewLocalExecutor(),
		Server:     executor.NewRemoteExecutor(cfg.Executor),
		Variation:  variation.NewEngine(varOpts),
		Feedback:   a.feedback,
		Events:     a.events,
	})
	if err != nil {
		a.Close()
		return nil, err
	}
	return a, nil
}

// buildClassifier creates the ensemble. A model that fails to load leaves the
// pattern scorer running alone.
func buildClassifier(ctx context.Context, cfg config.ClassifierConfig) (*intent.Classifier, model.Model, error) {
	pattern := intent.NewPatternScorer()
	if cfg.RulesPath != "" {
		rules, err := intent.LoadRules(cfg.RulesPath)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to load keyword rules: %w", err)
		}
		if err = pattern.Extend(rules); err != nil {
			return nil, nil, fmt.Errorf("invalid keyword rules: %w", err)
		}
	}

	var m model.Model
	switch cfg.Model.Kind {
	case "disabled":
	case "onnx":
		onnx, err := model.NewONNXModel(model.ONNXConfig{
			ModelPath:         cfg.Model.ModelPath,
			ConfigPath:        cfg.Model.ConfigPath,
			VocabPath:         cfg.Model.VocabPath,
			SharedLibraryPath: cfg.Model.SharedLibraryPath,
		})
		if err != nil {
			return nil, nil, err
		}
		m = onnx
	default:
		m = model.NewLexicon()
	}

	if m != nil {
		loadCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
		err := m.Load(loadCtx)
		cancel()
		if err != nil {
			log.Warnf("intent model %s failed to load, using pattern scorer only: %v", m.Name(), err)
		} else {
			log.Infof("intent model %s loaded (%d labels)", m.Name(), len(m.Labels()))
		}
	}

	c := intent.NewClassifier(pattern, m, intent.Options{
		Timeout:        cfg.ScorerTimeoutDuration(),
		PatternWeight:  cfg.PatternWeight,
		ModelWeight:    cfg.ModelWeight,
		AccuracyWindow: cfg.AccuracyWindow,
	})
	return c, m, nil
}

// startFeedback opens the ledger and replays recent outcomes into the router.
func startFeedback(ctx context.Context, cfg config.FeedbackConfig, r *router.AdaptiveRouter) (*feedback.Collector, error) {
	collector, err := feedback.NewCollector(cfg.DBPath, cfg.RetentionDays)
	if err != nil {
		return nil, err
	}
	if err = collector.Initialize(ctx); err != nil {
		return nil, err
	}
	if cfg.WarmupLimit > 0 {
		n, errWarm := collector.WarmUp(ctx, r, cfg.WarmupLimit)
		if errWarm != nil {
			log.Warnf("history warm-up incomplete: %v", errWarm)
		}
		log.Infof("replayed %d outcomes into routing history", n)
	}
	return collector, nil
}

// Close releases resources in reverse start order.
// watchConfig starts hot reload of path. Router and variation sections are
// pushed to the live components only when they change.
func (a *app) watchConfig(ctx context.Context, path string, cfg *config.Config) (*watcher.Watcher, error) {
	w, err := watcher.NewWatcher(path, func(next *config.Config) {
		logging.SetDebug(next.Debug)
	})
	if err != nil {
		return nil, err
	}
	w.SetRouterReloadCallback(a.processor.ApplyRouterConfig)
	w.SetVariationReloadCallback(a.processor.ApplyVariationConfig)
	w.SetConfig(cfg)
	if err := w.Start(ctx); err != nil {
		return nil, err
	}
	return w, nil
}

func (a *app) Close() {
	if a.events != nil {
		a.events.Shutdown()
	}
	if a.feedback != nil {
		if err := a.feedback.Shutdown(context.Background()); err != nil {
			log.Warnf("feedback shutdown: %v", err)
		}
	}
	if a.model != nil && a.model.Loaded() {
		if err := a.model.Unload(); err != nil {
			log.Warnf("model unload: %v", err)
		}
	}
}
