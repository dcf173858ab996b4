package executor

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/astoerkel/floe-voice-assistant-sub003/internal/config"
	"github.com/astoerkel/floe-voice-assistant-sub003/internal/device"
	"github.com/astoerkel/floe-voice-assistant-sub003/internal/intent"
	"github.com/astoerkel/floe-voice-assistant-sub003/internal/response"
)

func request(label intent.Label, conf float64, entities intent.Entities) Request {
	return Request{
		RequestID: "req-1",
		Utterance: intent.Utterance{Text: "do the thing", Locale: "en-US"},
		Intent:    intent.Intent{Label: label, Confidence: conf, Entities: entities},
		Context:   intent.ConversationContext{SessionID: "s1", TurnCount: 2},
		Device:    device.State{Network: device.NetworkGood, Memory: device.MemoryNormal},
	}
}

func TestLocalExecutor(t *testing.T) {
	e := NewLocalExecutor()
	ctx := context.Background()

	tests := []struct {
		name     string
		label    intent.Label
		entities intent.Entities
		text     string
		category response.Category
	}{
		{"reminder duration", intent.LabelReminder, intent.Entities{intent.EntityDuration: "10 minutes"}, "Okay, I'll remind you in 10 minutes.", response.CategoryAnswer},
		{"reminder time", intent.LabelReminder, intent.Entities{intent.EntityTime: "5pm"}, "Okay, I'll remind you at 5PM.", response.CategoryAnswer},
		{"reminder bare", intent.LabelReminder, nil, "Okay, what should I remind you about?", response.CategoryAnswer},
		{"calendar", intent.LabelCalendar, intent.Entities{intent.EntityDate: "tomorrow"}, "I'm opening your calendar for tomorrow.", response.CategoryAnswer},
		{"calendar default", intent.LabelCalendar, nil, "I'm opening your calendar for today.", response.CategoryAnswer},
		{"unknown", intent.LabelUnknown, nil, "I'm not sure I caught that. Could you say it another way?", response.CategoryClarification},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c, err := e.Execute(ctx, request(tt.label, 0.9, tt.entities))
			require.NoError(t, err)
			assert.Equal(t, tt.text, c.Text)
			assert.Equal(t, tt.category, c.Category)
			assert.Equal(t, "on_device", c.Source)
			assert.InDelta(t, 0.9, c.Confidence, 1e-9)
			assert.NoError(t, response.Validate(c))
		})
	}
}

func TestLocalExecutor_Unsupported(t *testing.T) {
	_, err := NewLocalExecutor().Execute(context.Background(), request(intent.LabelWeather, 0.9, nil))
	assert.ErrorIs(t, err, ErrUnsupported)
}

func TestLocalExecutor_Cancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := NewLocalExecutor().Execute(ctx, request(intent.LabelMusic, 0.9, nil))
	assert.ErrorIs(t, err, context.Canceled)
}

func TestRemoteExecutor_Success(t *testing.T) {
	received := make(chan remoteRequest, 1)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var got remoteRequest
		assert.Equal(t, "/v1/respond", r.URL.Path)
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "req-1", r.Header.Get("X-Request-ID"))
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		received <- got
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"text":"It will be sunny today.","confidence":0.92,"category":"information","follow_ups":["Tomorrow's forecast",""]}`))
	}))
	defer srv.Close()

	e := NewRemoteExecutor(config.ExecutorConfig{ServerURL: srv.URL, Timeout: "2s"})
	c, err := e.Execute(context.Background(), request(intent.LabelWeather, 0.8, intent.Entities{"place": "here"}))
	require.NoError(t, err)

	assert.Equal(t, "It will be sunny today.", c.Text)
	assert.InDelta(t, 0.92, c.Confidence, 1e-9)
	assert.Equal(t, response.CategoryInformation, c.Category)
	assert.Equal(t, []string{"Tomorrow's forecast"}, c.FollowUps)
	assert.Equal(t, "server", c.Source)

	got := <-received
	assert.Equal(t, "weather", got.Intent)
	assert.Equal(t, "do the thing", got.Text)
	assert.Equal(t, "s1", got.SessionID)
	assert.Equal(t, 2, got.TurnCount)
}

func TestRemoteExecutor_DefaultsConfidence(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"text":"Here is what I found."}`))
	}))
	defer srv.Close()

	c, err := NewRemoteExecutor(config.ExecutorConfig{ServerURL: srv.URL}).Execute(context.Background(), request(intent.LabelWebSearch, 0.8, nil))
	require.NoError(t, err)
	assert.InDelta(t, 0.8, c.Confidence, 1e-9)
	assert.Equal(t, response.CategoryAnswer, c.Category)
}

func TestRemoteExecutor_Failures(t *testing.T) {
	tests := []struct {
		name   string
		status int
		body   string
	}{
		{"server error", http.StatusInternalServerError, `{"error":"boom"}`},
		{"invalid json", http.StatusOK, `not json`},
		{"missing text", http.StatusOK, `{"confidence":0.9}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				_, _ = w.Write([]byte(tt.body))
			}))
			defer srv.Close()

			_, err := NewRemoteExecutor(config.ExecutorConfig{ServerURL: srv.URL}).Execute(context.Background(), request(intent.LabelEmail, 0.8, nil))
			assert.Error(t, err)
		})
	}
}

func TestRemoteExecutor_Unavailable(t *testing.T) {
	_, err := NewRemoteExecutor(config.ExecutorConfig{}).Execute(context.Background(), request(intent.LabelEmail, 0.8, nil))
	assert.ErrorIs(t, err, ErrUnavailable)

	req := request(intent.LabelEmail, 0.8, nil)
	req.Device.Network = device.NetworkNone
	_, err = NewRemoteExecutor(config.ExecutorConfig{ServerURL: "http://127.0.0.1:1"}).Execute(context.Background(), req)
	assert.ErrorIs(t, err, ErrUnavailable)
}

func TestRemoteExecutor_ContextDeadline(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-r.Context().Done():
		case <-time.After(2 * time.Second):
		}
	}))
	defer srv.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	_, err := NewRemoteExecutor(config.ExecutorConfig{ServerURL: srv.URL}).Execute(ctx, request(intent.LabelEmail, 0.8, nil))
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}
