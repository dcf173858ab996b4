package api

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/astoerkel/floe-voice-assistant-sub003/internal/config"
	"github.com/astoerkel/floe-voice-assistant-sub003/internal/feedback"
	"github.com/astoerkel/floe-voice-assistant-sub003/internal/intent"
	"github.com/astoerkel/floe-voice-assistant-sub003/internal/processor"
	"github.com/astoerkel/floe-voice-assistant-sub003/internal/router"
	"github.com/astoerkel/floe-voice-assistant-sub003/internal/variation"
)

type fixedClassifier struct {
	in intent.Intent
}

func (f fixedClassifier) Classify(ctx context.Context, u intent.Utterance, cc intent.ConversationContext) intent.Result {
	return intent.Result{Intents: []intent.Intent{f.in}, Normalized: u.Text}
}

func newTestServer(t *testing.T, in intent.Intent, collector *feedback.Collector) *Server {
	t.Helper()
	gin.SetMode(gin.TestMode)

	cfg := config.Default()
	p, err := processor.New(processor.Options{
		Classifier: fixedClassifier{in: in},
		Router:     router.New(cfg.Router, nil),
		Variation:  variation.NewEngine(variation.Options{Rand: variation.NewSeeded(1)}),
		Feedback:   collector,
	})
	require.NoError(t, err)
	return NewServer(cfg, p, intent.NewClassifier(nil, nil, intent.Options{}), collector)
}

func do(t *testing.T, s *Server, method, path string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	s.Handler().ServeHTTP(w, req)
	return w
}

func TestProcessEndpoint(t *testing.T) {
	s := newTestServer(t, intent.Intent{Label: intent.LabelCalculation, Confidence: 0.9, Entities: intent.Entities{intent.EntityExpression: "2 + 2 * 3"}}, nil)

	w := do(t, s, http.MethodPost, "/v1/process", ProcessRequest{
		RequestID: "req-42",
		Text:      "what is 2 plus 2 times 3",
		Context:   intent.ConversationContext{TurnCount: 3, TimeOfDay: intent.Afternoon},
		Device:    DeviceRequest{Network: "none", Timezone: "UTC"},
	})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	var res processor.Result
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &res))
	assert.Equal(t, "req-42", res.RequestID)
	assert.Equal(t, processor.StatusOK, res.Status)
	assert.Equal(t, router.PathOffline, res.Path)
	assert.Contains(t, res.Text, "8")
}

func TestProcessEndpoint_BadRequests(t *testing.T) {
	s := newTestServer(t, intent.Intent{Label: intent.LabelTime, Confidence: 0.9}, nil)

	w := do(t, s, http.MethodPost, "/v1/process", map[string]string{"locale": "en"})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = do(t, s, http.MethodPost, "/v1/process", ProcessRequest{Text: "time", Device: DeviceRequest{Timezone: "Mars/Olympus"}})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestProcessEndpoint_Unserviceable(t *testing.T) {
	s := newTestServer(t, intent.Intent{Label: intent.LabelWeather, Confidence: 0.9}, nil)

	w := do(t, s, http.MethodPost, "/v1/process", ProcessRequest{Text: "weather", Device: DeviceRequest{Network: "offline"}})
	require.Equal(t, http.StatusOK, w.Code)

	var res processor.Result
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &res))
	assert.Equal(t, processor.StatusUnserviceable, res.Status)
	assert.True(t, res.Decision.Unserviceable)
}

func TestClassifyEndpoint(t *testing.T) {
	s := newTestServer(t, intent.Intent{Label: intent.LabelTime, Confidence: 0.9}, nil)

	w := do(t, s, http.MethodPost, "/v1/classify", ClassifyRequest{Text: "what time is it"})
	require.Equal(t, http.StatusOK, w.Code)

	var res intent.Result
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &res))
	require.NotEmpty(t, res.Intents)
	for _, in := range res.Intents {
		assert.GreaterOrEqual(t, in.Confidence, 0.0)
		assert.LessOrEqual(t, in.Confidence, 1.0)
	}
}

func TestOutcomesEndpoints(t *testing.T) {
	collector, err := feedback.NewCollector(filepath.Join(t.TempDir(), "feedback.db"), 30)
	require.NoError(t, err)
	require.NoError(t, collector.Initialize(context.Background()))
	defer collector.Shutdown(context.Background())

	s := newTestServer(t, intent.Intent{Label: intent.LabelTime, Confidence: 0.9}, collector)

	w := do(t, s, http.MethodPost, "/v1/outcomes", OutcomeRequest{
		RequestID: "r1", Intent: "weather", Path: "server", Success: false, LatencyMs: 5000, Confidence: 0.7,
	})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	w = do(t, s, http.MethodPost, "/v1/outcomes", OutcomeRequest{Intent: "weather", Path: "carrier_pigeon"})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = do(t, s, http.MethodGet, "/v1/outcomes?limit=5", nil)
	require.Equal(t, http.StatusOK, w.Code)
	var body struct {
		Outcomes []feedback.Record `json:"outcomes"`
		Count    int               `json:"count"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	require.Equal(t, 1, body.Count)
	assert.Equal(t, "weather", body.Outcomes[0].Intent)
	assert.Equal(t, "server", body.Outcomes[0].Path)

	w = do(t, s, http.MethodGet, "/v1/outcomes?limit=zero", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = do(t, s, http.MethodGet, "/v1/stats", nil)
	require.Equal(t, http.StatusOK, w.Code)
	var stats map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &stats))
	assert.Contains(t, stats, "processor")
	assert.Contains(t, stats, "feedback")
}

func TestOutcomesRecordGroundTruth(t *testing.T) {
	s := newTestServer(t, intent.Intent{Label: intent.LabelTime, Confidence: 0.9}, nil)
	classifier, ok := s.classifier.(*intent.Classifier)
	require.True(t, ok)

	w := do(t, s, http.MethodPost, "/v1/outcomes", OutcomeRequest{
		Intent: "weather", Path: "server", Success: true, ActualIntent: "weather",
	})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	w = do(t, s, http.MethodPost, "/v1/outcomes", OutcomeRequest{
		Intent: "music", Path: "server", Success: true, ActualIntent: "weather",
	})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	acc, n := classifier.Stats().Accuracy(intent.LabelWeather)
	assert.Equal(t, 2, n)
	assert.InDelta(t, 0.5, acc, 1e-9)

	// Without actual_intent nothing is recorded.
	w = do(t, s, http.MethodPost, "/v1/outcomes", OutcomeRequest{Intent: "music", Path: "server", Success: true})
	require.Equal(t, http.StatusCreated, w.Code)
	_, n = classifier.Stats().Accuracy(intent.LabelMusic)
	assert.Equal(t, 0, n)

	w = do(t, s, http.MethodPost, "/v1/outcomes", OutcomeRequest{Intent: "music", Path: "server", ActualIntent: "juggling"})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	_, n = classifier.Stats().Accuracy(intent.Label("juggling"))
	assert.Equal(t, 0, n)
}

func TestOutcomesWithoutLedger(t *testing.T) {
	s := newTestServer(t, intent.Intent{Label: intent.LabelTime, Confidence: 0.9}, nil)

	w := do(t, s, http.MethodGet, "/v1/outcomes", nil)
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)

	w = do(t, s, http.MethodGet, "/v1/stats", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.NotContains(t, w.Body.String(), `"feedback"`)
}

func TestHealthEndpoint(t *testing.T) {
	s := newTestServer(t, intent.Intent{Label: intent.LabelTime, Confidence: 0.9}, nil)

	w := do(t, s, http.MethodGet, "/healthz", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"status":"ok"`)
	assert.Contains(t, w.Body.String(), `"version"`)
}
