// Copyright 2026 The Floe Authors. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

// Package api exposes the command core over HTTP for orchestrators that run
// it as a sidecar.
package api

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	log "github.com/sirupsen/logrus"

	"github.com/astoerkel/floe-voice-assistant-sub003/internal/config"
	"github.com/astoerkel/floe-voice-assistant-sub003/internal/feedback"
	"github.com/astoerkel/floe-voice-assistant-sub003/internal/processor"
)

// Server is the HTTP surface of the command core.
type Server struct {
	engine     *gin.Engine
	server     *http.Server
	processor  *processor.Processor
	classifier processor.Classifier
	feedback   *feedback.Collector
	started    time.Time
}

// NewServer builds the router. collector may be nil.
func NewServer(cfg *config.Config, p *processor.Processor, classifier processor.Classifier, collector *feedback.Collector) *Server {
	engine := gin.New()
	engine.Use(gin.Recovery(), requestLogger())

	s := &Server{
		engine:     engine,
		processor:  p,
		classifier: classifier,
		feedback:   collector,
		started:    time.Now(),
	}
	s.setupRoutes()

	s.server = &http.Server{
		Addr:              fmt.Sprintf("%s:%d", cfg.Host, cfg.Port),
		Handler:           engine,
		ReadHeaderTimeout: 10 * time.Second,
	}
	return s
}

func (s *Server) setupRoutes() {
	s.engine.GET("/healthz", s.health)

	v1 := s.engine.Group("/v1")
	{
		v1.POST("/process", s.process)
		v1.POST("/classify", s.classify)
		v1.POST("/outcomes", s.reportOutcome)
		v1.GET("/outcomes", s.recentOutcomes)
		v1.GET("/stats", s.stats)
	}
}

// Handler returns the HTTP handler, for tests and embedding.
func (s *Server) Handler() http.Handler { return s.engine }

// Start serves until Stop is called.
func (s *Server) Start() error {
	log.Infof("API server listening on %s", s.server.Addr)
	if err := s.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("failed to start HTTP server: %w", err)
	}
	return nil
}

// Stop gracefully shuts the server down.
func (s *Server) Stop(ctx context.Context) error {
	log.Debug("stopping API server")
	return s.server.Shutdown(ctx)
}

// requestLogger logs one debug line per request.
func requestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		log.Debugf("%s %s -> %d (%s)", c.Request.Method, c.Request.URL.Path, c.Writer.Status(), time.Since(start))
	}
}
