// Copyright 2026 The Floe Authors. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

// Package handlers implements the offline handlers: deterministic, synchronous
// answers for the intent categories that need neither a model nor a network.
package handlers

import (
	"errors"
	"fmt"
	"sort"

	"github.com/astoerkel/floe-voice-assistant-sub003/internal/device"
	"github.com/astoerkel/floe-voice-assistant-sub003/internal/intent"
	"github.com/astoerkel/floe-voice-assistant-sub003/internal/response"
)

// Source is the candidate source stamped on every offline answer.
const Source = "offline"

// ErrHandlerNotRegistered is returned when an offline-eligible intent has no
// handler. It indicates a mismatch between routing and the registry.
var ErrHandlerNotRegistered = errors.New("handlers: no handler registered")

// ConfigurationError reports the label that is missing a handler.
type ConfigurationError struct {
	Label intent.Label
}

func (e *ConfigurationError) Error() string {
	return fmt.Sprintf("%v for offline intent %q", ErrHandlerNotRegistered, e.Label)
}

func (e *ConfigurationError) Unwrap() error { return ErrHandlerNotRegistered }

// Snapshot is the read-only device view a handler may consult.
type Snapshot = device.State

// Request is everything a handler receives.
type Request struct {
	Intent intent.Intent
	// Tokens are the normalized utterance tokens, stop words included.
	Tokens []string
	Device Snapshot
}

// Has reports whether any of words appears in the request tokens.
func (r Request) Has(words ...string) bool {
	for _, tok := range r.Tokens {
		for _, w := range words {
			if tok == w {
				return true
			}
		}
	}
	return false
}

// Entity returns the named entity or "".
func (r Request) Entity(name string) string {
	if r.Intent.Entities == nil {
		return ""
	}
	return r.Intent.Entities[name]
}

// Handler answers one intent category without I/O.
type Handler interface {
	Handle(req Request) response.Candidate
}

// HandlerFunc adapts a plain function to Handler.
type HandlerFunc func(req Request) response.Candidate

// Handle calls f(req).
func (f HandlerFunc) Handle(req Request) response.Candidate { return f(req) }

// Registry is a fixed label to handler table. It is read-only after
// construction and safe for concurrent use.
type Registry struct {
	handlers map[intent.Label]Handler
}

// NewRegistry builds a registry from the given table.
func NewRegistry(table map[intent.Label]Handler) *Registry {
	handlers := make(map[intent.Label]Handler, len(table))
	for label, h := range table {
		if h != nil {
			handlers[label] = h
		}
	}
	return &Registry{handlers: handlers}
}

// Default returns the registry with the built-in offline handlers.
func Default() *Registry {
	return NewRegistry(map[intent.Label]Handler{
		intent.LabelTime:         HandlerFunc(HandleTime),
		intent.LabelCalculation:  HandlerFunc(HandleCalculation),
		intent.LabelDeviceStatus: HandlerFunc(HandleDeviceStatus),
		intent.LabelGeneralInfo:  HandlerFunc(HandleGeneralInfo),
	})
}

// Lookup returns the handler for label or a *ConfigurationError.
func (r *Registry) Lookup(label intent.Label) (Handler, error) {
	h, ok := r.handlers[label]
	if !ok {
		return nil, &ConfigurationError{Label: label}
	}
	return h, nil
}

// Handle dispatches req to the handler for its intent label.
func (r *Registry) Handle(req Request) (response.Candidate, error) {
	h, err := r.Lookup(req.Intent.Label)
	if err != nil {
		return response.Candidate{}, err
	}
	c := h.Handle(req)
	c.Source = Source
	return c, nil
}

// Verify checks that every label in eligible has a handler.
func (r *Registry) Verify(eligible []intent.Label) error {
	var errs []error
	for _, label := range eligible {
		if _, err := r.Lookup(label); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Labels returns the registered labels in sorted order.
func (r *Registry) Labels() []intent.Label {
	labels := make([]intent.Label, 0, len(r.handlers))
	for label := range r.handlers {
		labels = append(labels, label)
	}
	sort.Slice(labels, func(i, j int) bool { return labels[i] < labels[j] })
	return labels
}
