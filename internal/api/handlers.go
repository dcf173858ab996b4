package api

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/astoerkel/floe-voice-assistant-sub003/internal/buildinfo"
	"github.com/astoerkel/floe-voice-assistant-sub003/internal/device"
	"github.com/astoerkel/floe-voice-assistant-sub003/internal/intent"
	"github.com/astoerkel/floe-voice-assistant-sub003/internal/processor"
	"github.com/astoerkel/floe-voice-assistant-sub003/internal/router"
	"github.com/astoerkel/floe-voice-assistant-sub003/internal/variation"
)

// DeviceRequest is the device snapshot as sent by clients.
type DeviceRequest struct {
	Network  string   `json:"network"`
	Memory   string   `json:"memory"`
	Battery  *float64 `json:"battery,omitempty"`
	Charging bool     `json:"charging"`
	LowPower bool     `json:"low_power"`
	// Timezone is an IANA name such as "Europe/Berlin".
	Timezone string `json:"timezone,omitempty"`
}

// ProcessRequest is the body of POST /v1/process.
type ProcessRequest struct {
	RequestID   string                     `json:"request_id,omitempty"`
	Text        string                     `json:"text" binding:"required"`
	Locale      string                     `json:"locale,omitempty"`
	Context     intent.ConversationContext `json:"context"`
	Device      DeviceRequest              `json:"device"`
	Preferences *variation.Preferences     `json:"preferences,omitempty"`
}

// ClassifyRequest is the body of POST /v1/classify.
type ClassifyRequest struct {
	Text    string                     `json:"text" binding:"required"`
	Locale  string                     `json:"locale,omitempty"`
	Context intent.ConversationContext `json:"context"`
}

// OutcomeRequest is the body of POST /v1/outcomes.
type OutcomeRequest struct {
	RequestID  string  `json:"request_id"`
	Intent     string  `json:"intent" binding:"required"`
	Path       string  `json:"path" binding:"required"`
	Success    bool    `json:"success"`
	LatencyMs  int64   `json:"latency_ms"`
	Confidence float64 `json:"confidence"`
	// ActualIntent is the label the user's request really had, when known.
	// It feeds the classifier's per-label accuracy.
	ActualIntent string `json:"actual_intent,omitempty"`
}

// groundTruthRecorder is implemented by classifiers that track accuracy.
type groundTruthRecorder interface {
	RecordGroundTruth(predicted, actual intent.Label)
}

func knownLabel(l intent.Label) bool {
	for _, known := range intent.Labels() {
		if l == known {
			return true
		}
	}
	return false
}

func (d DeviceRequest) state() (device.State, error) {
	st := device.State{
		Network:  device.ParseNetworkQuality(d.Network),
		Memory:   device.ParseMemoryClass(d.Memory),
		Battery:  -1,
		Charging: d.Charging,
		LowPower: d.LowPower,
	}
	if d.Network == "" {
		st.Network = device.NetworkGood
	}
	if d.Battery != nil {
		st.Battery = *d.Battery
	}
	if d.Timezone != "" {
		loc, err := time.LoadLocation(d.Timezone)
		if err != nil {
			return device.State{}, err
		}
		st.Location = loc
	}
	return st, nil
}

// process handles POST /v1/process
//
// Response:
//   - 200: the processed result, including unserviceable and rejected outcomes
//   - 400: invalid request body
//   - 499: the client went away
//   - 500: processing failed
func (s *Server) process(c *gin.Context) {
	var req ProcessRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body: " + err.Error()})
		return
	}
	st, err := req.Device.state()
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid timezone: " + err.Error()})
		return
	}

	res, err := s.processor.Process(c.Request.Context(), processor.Request{
		RequestID:   req.RequestID,
		Utterance:   intent.Utterance{Text: req.Text, Locale: req.Locale, ReceivedAt: time.Now()},
		Context:     req.Context,
		Device:      st,
		Preferences: req.Preferences,
	})
	if err != nil {
		if c.Request.Context().Err() != nil {
			c.JSON(499, gin.H{"error": "request cancelled"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, res)
}

// classify handles POST /v1/classify
func (s *Server) classify(c *gin.Context) {
	var req ClassifyRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body: " + err.Error()})
		return
	}
	res := s.classifier.Classify(c.Request.Context(), intent.Utterance{Text: req.Text, Locale: req.Locale}, req.Context)
	c.JSON(http.StatusOK, res)
}

// reportOutcome handles POST /v1/outcomes
//
// Response:
//   - 201: outcome recorded
//   - 400: invalid body, unknown path or label
//   - 500: the ledger write failed
func (s *Server) reportOutcome(c *gin.Context) {
	var req OutcomeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body: " + err.Error()})
		return
	}
	actual := intent.Label(req.ActualIntent)
	if actual != "" && !knownLabel(actual) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "unknown actual_intent: " + req.ActualIntent})
		return
	}

	err := s.processor.ReportOutcome(c.Request.Context(), req.RequestID, router.Outcome{
		Label:   intent.Label(req.Intent),
		Path:    router.Path(req.Path),
		Success: req.Success,
		Latency: time.Duration(req.LatencyMs) * time.Millisecond,
		At:      time.Now(),
	}, req.Confidence)
	if err != nil {
		if errors.Is(err, router.ErrInvalidOutcome) {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to record outcome: " + err.Error()})
		return
	}
	if actual != "" {
		if rec, ok := s.classifier.(groundTruthRecorder); ok {
			rec.RecordGroundTruth(intent.Label(req.Intent), actual)
		}
	}
	c.JSON(http.StatusCreated, gin.H{"message": "outcome recorded"})
}

// recentOutcomes handles GET /v1/outcomes
//
// Query Parameters:
//   - limit: maximum number of records to return (default: 100)
func (s *Server) recentOutcomes(c *gin.Context) {
	if s.feedback == nil || !s.feedback.IsEnabled() {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "feedback ledger not enabled"})
		return
	}

	limit := 100
	if raw := c.Query("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "limit must be a positive integer"})
			return
		}
		limit = min(n, 1000)
	}

	records, err := s.feedback.Recent(c.Request.Context(), limit)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to read outcomes: " + err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"outcomes": records, "count": len(records)})
}

// stats handles GET /v1/stats
func (s *Server) stats(c *gin.Context) {
	out := gin.H{
		"processor": s.processor.GetMetrics(),
	}
	if s.feedback != nil && s.feedback.IsEnabled() {
		ledger, err := s.feedback.Stats(c.Request.Context())
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to read ledger stats: " + err.Error()})
			return
		}
		out["feedback"] = ledger
	}
	c.JSON(http.StatusOK, out)
}

// health handles GET /healthz
func (s *Server) health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status": "ok",
		"uptime": time.Since(s.started).Round(time.Second).String(),
		"build":  buildinfo.Info(),
	})
}
