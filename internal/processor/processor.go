// Copyright 2026 The Floe Authors. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

// Package processor sequences one utterance through classification, routing,
// path execution and response variation.
package processor

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"

	"github.com/astoerkel/floe-voice-assistant-sub003/internal/config"
	"github.com/astoerkel/floe-voice-assistant-sub003/internal/device"
	"github.com/astoerkel/floe-voice-assistant-sub003/internal/events"
	"github.com/astoerkel/floe-voice-assistant-sub003/internal/executor"
	"github.com/astoerkel/floe-voice-assistant-sub003/internal/feedback"
	"github.com/astoerkel/floe-voice-assistant-sub003/internal/handlers"
	"github.com/astoerkel/floe-voice-assistant-sub003/internal/intent"
	"github.com/astoerkel/floe-voice-assistant-sub003/internal/logging"
	"github.com/astoerkel/floe-voice-assistant-sub003/internal/response"
	"github.com/astoerkel/floe-voice-assistant-sub003/internal/router"
	"github.com/astoerkel/floe-voice-assistant-sub003/internal/variation"
)

// ErrPathUnavailable indicates no executor is wired for a path.
var ErrPathUnavailable = errors.New("processor: no executor for path")

// Status summarizes how a request ended.
type Status string

const (
	StatusOK            Status = "ok"
	StatusUnserviceable Status = "unserviceable"
	StatusRejected      Status = "rejected"
	StatusFailed        Status = "failed"
)

// Canned replies used when no path produced a usable candidate.
const (
	noNetworkText     = "I need a network connection for that. Please try again once you're back online."
	unsupportedText   = "I'm not able to help with that yet."
	clarificationText = "Sorry, I didn't quite get that. Could you say it another way?"
	failureText       = "Something went wrong while handling that. Please try again."
)

// Classifier is the classification stage; *intent.Classifier implements it.
type Classifier interface {
	Classify(ctx context.Context, u intent.Utterance, cc intent.ConversationContext) intent.Result
}

// Request is one utterance to process.
type Request struct {
	RequestID string                     `json:"request_id,omitempty"`
	Utterance intent.Utterance           `json:"utterance"`
	Context   intent.ConversationContext `json:"context"`
	Device    device.State               `json:"device"`
	// Preferences defaults to variation.DefaultPreferences when nil.
	Preferences *variation.Preferences `json:"preferences,omitempty"`
}

// Attempt is one executed path.
type Attempt struct {
	Path     router.Path   `json:"path"`
	Success  bool          `json:"success"`
	Latency  time.Duration `json:"latency"`
	Fallback bool          `json:"fallback"`
	Error    string        `json:"error,omitempty"`
}

// Result is the outcome of Process.
type Result struct {
	RequestID      string             `json:"request_id"`
	Status         Status             `json:"status"`
	Text           string             `json:"text"`
	Intent         intent.Intent      `json:"intent"`
	Classification intent.Result      `json:"classification"`
	Decision       router.Decision    `json:"decision"`
	Path           router.Path        `json:"path,omitempty"`
	Candidate      response.Candidate `json:"candidate"`
	Attempts       []Attempt          `json:"attempts,omitempty"`
	Varied         bool               `json:"varied"`
	Latency        time.Duration      `json:"latency"`
}

// Options wires a Processor. Classifier, Router and Variation are required.
type Options struct {
	Classifier Classifier
	Router     *router.AdaptiveRouter
	Handlers   *handlers.Registry
	OnDevice   executor.Executor
	Server     executor.Executor
	Variation  *variation.Engine
	// Feedback and Events are optional.
	Feedback *feedback.Collector
	Events   *events.Bus
}

// Processor runs requests end to end. It is safe for concurrent use.
type Processor struct {
	classifier Classifier
	router     *router.AdaptiveRouter
	handlers   *handlers.Registry
	onDevice   executor.Executor
	server     executor.Executor
	variation  *variation.Engine
	feedback   *feedback.Collector
	events     *events.Bus

	mu       sync.Mutex
	statuses map[Status]int64
	requests int64
	fallback int64
}

// New creates a processor. It fails when an offline-eligible intent has no
// registered handler.
func New(opts Options) (*Processor, error) {
	if opts.Classifier == nil || opts.Router == nil || opts.Variation == nil {
		return nil, fmt.Errorf("processor: classifier, router and variation engine are required")
	}
	if opts.Handlers == nil {
		opts.Handlers = handlers.Default()
	}
	if err := opts.Handlers.Verify(opts.Router.Capabilities().OfflineLabels()); err != nil {
		return nil, err
	}
	return &Processor{
		classifier: opts.Classifier,
		router:     opts.Router,
		handlers:   opts.Handlers,
		onDevice:   opts.OnDevice,
		server:     opts.Server,
		variation:  opts.Variation,
		feedback:   opts.Feedback,
		events:     opts.Events,
		statuses:   make(map[Status]int64),
	}, nil
}

// Process runs req through every stage. It returns ctx.Err() when the
// request is cancelled between stages and a *handlers.ConfigurationError
// when the offline registry does not match the routing table.
func (p *Processor) Process(ctx context.Context, req Request) (*Result, error) {
	start := time.Now()
	if req.RequestID == "" {
		req.RequestID = uuid.NewString()
	}
	entry := log.WithField(logging.RequestIDField, req.RequestID)

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	cls := p.classifier.Classify(ctx, req.Utterance, req.Context)
	top := cls.Top()
	entry.Debugf("classified %q as %s (%.2f, degraded=%t)", cls.Normalized, top.Label, top.Confidence, cls.Degraded)
	p.publish(events.EventClassified, req.RequestID, top.Label, "", map[string]interface{}{
		"confidence": top.Confidence,
		"degraded":   cls.Degraded,
	})

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	res := &Result{
		RequestID:      req.RequestID,
		Intent:         top,
		Classification: cls,
	}

	decision := p.router.Route(top, req.Device)
	res.Decision = decision
	if decision.Unserviceable {
		entry.Infof("no reachable path for %s (rationale=%s)", top.Label, decision.Rationale)
		p.publish(events.EventUnserviceable, req.RequestID, top.Label, "", map[string]interface{}{
			"rationale": string(decision.Rationale),
		})
		text := unsupportedText
		if decision.Rationale == router.RationaleNoNetwork {
			text = noNetworkText
		}
		return p.finish(entry, res, req, StatusUnserviceable, response.New(text, 1, response.CategoryError), start)
	}
	entry.Debugf("routed %s to %s (fallback=%v, rationale=%s)", top.Label, decision.Primary, decision.Fallback, decision.Rationale)
	p.publish(events.EventRouted, req.RequestID, top.Label, decision.Primary, map[string]interface{}{
		"rationale": string(decision.Rationale),
		"fallback":  decision.Fallback,
	})

	tokens := intent.Normalize(req.Utterance.Text).Tokens
	candidate, served, rejected, err := p.execute(ctx, entry, req, res, tokens)
	if err != nil {
		return nil, err
	}
	if served == "" {
		if rejected {
			return p.finish(entry, res, req, StatusRejected, response.New(clarificationText, 1, response.CategoryClarification), start)
		}
		return p.finish(entry, res, req, StatusFailed, response.New(failureText, 1, response.CategoryError), start)
	}

	if err := ctx.Err(); err != nil {
		return nil, err
	}
	res.Path = served
	return p.finish(entry, res, req, StatusOK, candidate, start)
}

// execute walks the primary path and the fallback chain until one produces
// a candidate that passes validation.
func (p *Processor) execute(ctx context.Context, entry *log.Entry, req Request, res *Result, tokens []string) (response.Candidate, router.Path, bool, error) {
	paths := append([]router.Path{res.Decision.Primary}, res.Decision.Fallback...)
	rejected := false

	for i, path := range paths {
		if err := ctx.Err(); err != nil {
			return response.Candidate{}, "", false, err
		}
		if !path.Reachable(req.Device) {
			entry.Debugf("skipping unreachable path %s", path)
			continue
		}

		started := time.Now()
		c, err := p.run(ctx, path, req, res.Intent, tokens)
		latency := time.Since(started)
		if ctxErr := ctx.Err(); ctxErr != nil {
			return response.Candidate{}, "", false, ctxErr
		}

		var cfgErr *handlers.ConfigurationError
		if errors.As(err, &cfgErr) {
			entry.Errorf("offline handler registry mismatch: %v", err)
			return response.Candidate{}, "", false, err
		}
		if errors.Is(err, ErrPathUnavailable) || errors.Is(err, executor.ErrUnavailable) {
			entry.Debugf("skipping %s: %v", path, err)
			continue
		}
		if err == nil {
			if verr := response.Validate(c); verr != nil {
				err = verr
				rejected = true
				p.publish(events.EventRejected, req.RequestID, res.Intent.Label, path, map[string]interface{}{
					"error": verr.Error(),
				})
			}
		}

		attempt := Attempt{Path: path, Success: err == nil, Latency: latency, Fallback: i > 0}
		if err != nil {
			attempt.Error = err.Error()
			entry.Warnf("%s path failed for %s: %v", path, res.Intent.Label, err)
			p.publish(events.EventPathFailed, req.RequestID, res.Intent.Label, path, map[string]interface{}{
				"error": err.Error(),
			})
		}
		res.Attempts = append(res.Attempts, attempt)
		p.report(ctx, entry, req.RequestID, res.Intent, attempt)

		if err == nil {
			if i > 0 {
				p.mu.Lock()
				p.fallback++
				p.mu.Unlock()
			}
			return c, path, rejected, nil
		}
	}
	return response.Candidate{}, "", rejected, nil
}

// run executes a single path. Hybrid runs on-device first and escalates to
// the server when the local answer is below the on-device threshold.
func (p *Processor) run(ctx context.Context, path router.Path, req Request, in intent.Intent, tokens []string) (response.Candidate, error) {
	switch path {
	case router.PathOffline:
		return p.handlers.Handle(handlers.Request{Intent: in, Tokens: tokens, Device: req.Device})
	case router.PathOnDevice:
		return p.call(ctx, p.onDevice, path, req, in)
	case router.PathServer:
		return p.call(ctx, p.server, path, req, in)
	case router.PathHybrid:
		local, err := p.call(ctx, p.onDevice, router.PathOnDevice, req, in)
		if err == nil && local.Confidence >= p.router.Policy().OnDeviceThreshold && response.Validate(local) == nil {
			return local, nil
		}
		if ctx.Err() != nil {
			return response.Candidate{}, ctx.Err()
		}
		remote, rerr := p.call(ctx, p.server, router.PathServer, req, in)
		if rerr != nil && err == nil {
			// The server could not improve on the local answer.
			return local, nil
		}
		return remote, rerr
	default:
		return response.Candidate{}, fmt.Errorf("%w: %s", ErrPathUnavailable, path)
	}
}

func (p *Processor) call(ctx context.Context, e executor.Executor, path router.Path, req Request, in intent.Intent) (response.Candidate, error) {
	if e == nil {
		return response.Candidate{}, fmt.Errorf("%w: %s", ErrPathUnavailable, path)
	}
	return e.Execute(ctx, executor.Request{
		RequestID: req.RequestID,
		Utterance: req.Utterance,
		Intent:    in,
		Context:   req.Context,
		Device:    req.Device,
	})
}

// report feeds an attempt back to the router and the feedback ledger.
func (p *Processor) report(ctx context.Context, entry *log.Entry, requestID string, in intent.Intent, a Attempt) {
	if err := p.router.Report(router.Outcome{
		Label:   in.Label,
		Path:    a.Path,
		Success: a.Success,
		Latency: a.Latency,
	}); err != nil {
		entry.Warnf("failed to report outcome: %v", err)
	}
	if p.feedback == nil || !p.feedback.IsEnabled() {
		return
	}
	rec := &feedback.Record{
		RequestID:  requestID,
		Intent:     string(in.Label),
		Path:       string(a.Path),
		Confidence: in.Confidence,
		Success:    a.Success,
		LatencyMs:  a.Latency.Milliseconds(),
		Fallback:   a.Fallback,
		Error:      a.Error,
	}
	if err := p.feedback.Record(ctx, rec); err != nil {
		entry.Warnf("failed to record outcome: %v", err)
	}
}

// finish shapes the candidate and fills the result.
func (p *Processor) finish(entry *log.Entry, res *Result, req Request, status Status, c response.Candidate, start time.Time) (*Result, error) {
	prefs := variation.DefaultPreferences()
	if req.Preferences != nil {
		prefs = *req.Preferences
	}

	out, err := p.variation.Shape(c, req.Context, prefs)
	if err != nil {
		entry.Warnf("candidate from %s rejected by variation: %v", c.Source, err)
		status = StatusRejected
		c = response.New(clarificationText, 1, response.CategoryClarification)
		if out, err = p.variation.Shape(c, req.Context, prefs); err != nil {
			return nil, err
		}
	}

	res.Status = status
	res.Candidate = c
	res.Text = out.Text
	res.Varied = out.Varied
	res.Latency = time.Since(start)

	p.mu.Lock()
	p.requests++
	p.statuses[status]++
	p.mu.Unlock()

	entry.Debugf("completed with status %s in %s", status, res.Latency)
	p.publish(events.EventCompleted, res.RequestID, res.Intent.Label, res.Path, map[string]interface{}{
		"status":  string(status),
		"varied":  out.Varied,
		"latency": res.Latency.Milliseconds(),
	})
	return res, nil
}

// ReportOutcome records an outcome observed outside Process, for example a
// path timeout noticed by the orchestrator.
func (p *Processor) ReportOutcome(ctx context.Context, requestID string, o router.Outcome, confidence float64) error {
	if err := p.router.Report(o); err != nil {
		return err
	}
	if p.feedback == nil || !p.feedback.IsEnabled() {
		return nil
	}
	return p.feedback.Record(ctx, &feedback.Record{
		Timestamp:  o.At,
		RequestID:  requestID,
		Intent:     string(o.Label),
		Path:       string(o.Path),
		Confidence: confidence,
		Success:    o.Success,
		LatencyMs:  o.Latency.Milliseconds(),
	})
}

// ApplyRouterConfig pushes reloaded router settings, thresholds and the
// history sample cap, to the live router.
func (p *Processor) ApplyRouterConfig(cfg config.RouterConfig) {
	p.router.Reconfigure(cfg)
	log.Infof("applied router settings (on-device threshold %.2f, history cap %d)", cfg.OnDeviceThreshold, p.router.History().Capacity())
	p.publish(events.EventConfigReload, "", "", "", map[string]interface{}{"section": "router"})
}

// ApplyVariationConfig pushes reloaded variation settings to the live engine.
func (p *Processor) ApplyVariationConfig(cfg config.VariationConfig) {
	p.variation.Reconfigure(cfg)
	log.Info("applied variation settings")
	p.publish(events.EventConfigReload, "", "", "", map[string]interface{}{"section": "variation"})
}

func (p *Processor) publish(event events.Event, requestID string, label intent.Label, path router.Path, data map[string]interface{}) {
	if p.events == nil {
		return
	}
	p.events.PublishAsync(&events.EventContext{
		Event:     event,
		RequestID: requestID,
		Intent:    string(label),
		Path:      string(path),
		Data:      data,
	})
}

// GetMetrics returns processor, router and variation statistics.
func (p *Processor) GetMetrics() map[string]interface{} {
	p.mu.Lock()
	statuses := make(map[string]int64, len(p.statuses))
	for s, n := range p.statuses {
		statuses[string(s)] = n
	}
	metrics := map[string]interface{}{
		"requests":  p.requests,
		"statuses":  statuses,
		"fallbacks": p.fallback,
	}
	p.mu.Unlock()

	metrics["router"] = p.router.GetMetrics()
	metrics["variation"] = p.variation.GetMetrics()
	if m, ok := p.classifier.(interface{ Stats() *intent.Stats }); ok {
		metrics["classifier"] = m.Stats().GetMetrics()
	}
	return metrics
}
