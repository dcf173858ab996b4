package executor

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	log "github.com/sirupsen/logrus"
	"github.com/tidwall/gjson"

	"github.com/astoerkel/floe-voice-assistant-sub003/internal/config"
	"github.com/astoerkel/floe-voice-assistant-sub003/internal/response"
)

// maxResponseBytes caps how much of a server reply is read.
const maxResponseBytes = 1 << 20

// RemoteExecutor forwards requests to the assistant server.
type RemoteExecutor struct {
	baseURL string
	client  *http.Client
}

// NewRemoteExecutor creates the server-path executor. An empty server URL
// makes every call fail with ErrUnavailable.
func NewRemoteExecutor(cfg config.ExecutorConfig) *RemoteExecutor {
	return &RemoteExecutor{
		baseURL: cfg.ServerURL,
		client:  &http.Client{Timeout: cfg.TimeoutDuration()},
	}
}

// Name implements Executor.
func (e *RemoteExecutor) Name() string { return "server" }

type remoteRequest struct {
	RequestID  string            `json:"request_id"`
	Text       string            `json:"text"`
	Locale     string            `json:"locale,omitempty"`
	Intent     string            `json:"intent"`
	Confidence float64           `json:"confidence"`
	Entities   map[string]string `json:"entities,omitempty"`
	SessionID  string            `json:"session_id,omitempty"`
	TurnCount  int               `json:"turn_count"`
}

// Execute implements Executor.
func (e *RemoteExecutor) Execute(ctx context.Context, req Request) (response.Candidate, error) {
	if e.baseURL == "" {
		return response.Candidate{}, fmt.Errorf("%w: no server configured", ErrUnavailable)
	}
	if !req.Device.Online() {
		return response.Candidate{}, fmt.Errorf("%w: device is offline", ErrUnavailable)
	}

	body, err := json.Marshal(remoteRequest{
		RequestID:  req.RequestID,
		Text:       req.Utterance.Text,
		Locale:     req.Utterance.Locale,
		Intent:     string(req.Intent.Label),
		Confidence: req.Intent.Confidence,
		Entities:   req.Intent.Entities,
		SessionID:  req.Context.SessionID,
		TurnCount:  req.Context.TurnCount,
	})
	if err != nil {
		return response.Candidate{}, fmt.Errorf("failed to marshal server request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, e.baseURL+"/v1/respond", bytes.NewReader(body))
	if err != nil {
		return response.Candidate{}, fmt.Errorf("failed to create request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("X-Request-ID", req.RequestID)

	start := time.Now()
	resp, err := e.client.Do(httpReq)
	if err != nil {
		return response.Candidate{}, fmt.Errorf("server request failed: %w", err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return response.Candidate{}, fmt.Errorf("failed to read server response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return response.Candidate{}, fmt.Errorf("server returned status %d: %s", resp.StatusCode, string(data))
	}
	log.Debugf("server response: request=%s bytes=%d", req.RequestID, len(data))

	c, err := parseCandidate(data)
	if err != nil {
		return response.Candidate{}, err
	}
	c.Source = e.Name()
	c.Metrics.Latency = time.Since(start)
	return c, nil
}

// parseCandidate reads {"text", "confidence", "category", "tone", "follow_ups"}.
func parseCandidate(data []byte) (response.Candidate, error) {
	if !gjson.ValidBytes(data) {
		return response.Candidate{}, fmt.Errorf("server returned invalid JSON")
	}
	text := gjson.GetBytes(data, "text").String()
	if text == "" {
		return response.Candidate{}, fmt.Errorf("server response has no text")
	}

	confidence := 0.8
	if v := gjson.GetBytes(data, "confidence"); v.Exists() {
		confidence = v.Float()
	}
	category := response.CategoryAnswer
	if v := gjson.GetBytes(data, "category").String(); v != "" {
		category = response.Category(v)
	}

	c := response.New(text, confidence, category)
	if v := gjson.GetBytes(data, "tone").String(); v != "" {
		c.Tone = response.Tone(v)
	}
	for _, f := range gjson.GetBytes(data, "follow_ups").Array() {
		if s := f.String(); s != "" {
			c.FollowUps = append(c.FollowUps, s)
		}
	}
	return c, nil
}
