package model

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLexicon_Lifecycle(t *testing.T) {
	l := NewLexicon()
	assert.False(t, l.Loaded())

	_, err := l.Score(context.Background(), []string{"weather"})
	assert.ErrorIs(t, err, ErrModelNotLoaded)

	require.NoError(t, l.Load(context.Background()))
	assert.True(t, l.Loaded())
	assert.Contains(t, l.Labels(), "weather")

	require.NoError(t, l.Unload())
	assert.False(t, l.Loaded())
	_, err = l.Score(context.Background(), []string{"weather"})
	assert.ErrorIs(t, err, ErrModelNotLoaded)
}

func TestLexicon_Score(t *testing.T) {
	l := NewLexicon()
	require.NoError(t, l.Load(context.Background()))

	tests := []struct {
		name   string
		tokens []string
		want   string
	}{
		{"weather", []string{"raining", "tomorrow"}, "weather"},
		{"battery", []string{"battery", "level"}, "device_status"},
		{"music", []string{"play", "song"}, "music"},
		{"calculation", []string{"15", "percent", "80"}, "calculation"},
		{"time", []string{"what", "time"}, "time"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			scores, err := l.Score(context.Background(), tt.tokens)
			require.NoError(t, err)
			best, bestScore := "", 0.0
			for label, s := range scores {
				assert.GreaterOrEqual(t, s, 0.0)
				assert.Less(t, s, 1.0)
				if s > bestScore {
					best, bestScore = label, s
				}
			}
			assert.Equal(t, tt.want, best)
		})
	}
}

func TestLexicon_ShortStemsMatchExactly(t *testing.T) {
	l := NewLexicon()
	require.NoError(t, l.Load(context.Background()))

	scores, err := l.Score(context.Background(), []string{"high"})
	require.NoError(t, err)
	assert.NotContains(t, scores, "smalltalk")
}

func TestLexicon_NoEvidence(t *testing.T) {
	l := NewLexicon()
	require.NoError(t, l.Load(context.Background()))

	scores, err := l.Score(context.Background(), []string{"zzz", "qqq"})
	require.NoError(t, err)
	assert.Empty(t, scores)
}

func TestLexicon_RespectsCancellation(t *testing.T) {
	l := NewLexicon()
	require.NoError(t, l.Load(context.Background()))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := l.Score(ctx, []string{"weather"})
	assert.ErrorIs(t, err, context.Canceled)
}

func TestParseLabels(t *testing.T) {
	labels, err := parseLabels([]byte(`{"id2label": {"1": "weather", "0": "time", "2": "music"}}`))
	require.NoError(t, err)
	assert.Equal(t, []string{"time", "weather", "music"}, labels)

	_, err = parseLabels([]byte(`{"architectures": ["BertForSequenceClassification"]}`))
	assert.Error(t, err)

	_, err = parseLabels([]byte(`{"id2label": {"0": "time", "2": "music"}}`))
	assert.Error(t, err)

	_, err = parseLabels([]byte(`{"id2label": {"zero": "time"}}`))
	assert.Error(t, err)
}

func TestSoftmax(t *testing.T) {
	out := softmax([]string{"a", "b", "c"}, []float32{1, 1, 1})
	assert.InDelta(t, 1.0/3, out["a"], 1e-9)
	assert.InDelta(t, 1.0/3, out["c"], 1e-9)

	out = softmax([]string{"a", "b"}, []float32{10, 0})
	assert.Greater(t, out["a"], out["b"])
	assert.InDelta(t, 1.0, out["a"]+out["b"], 1e-9)

	assert.Empty(t, softmax(nil, nil))
}

func TestWordPiece_Encode(t *testing.T) {
	wp, err := loadWordPiece("")
	require.NoError(t, err)

	enc := wp.encode([]string{"weather", "zzqx"}, 16)
	assert.Equal(t, wp.cls, enc.inputIDs[0])
	assert.Equal(t, wp.sep, enc.inputIDs[len(enc.inputIDs)-1])
	assert.Contains(t, enc.inputIDs, wp.unk)
	assert.Len(t, enc.attentionMask, len(enc.inputIDs))
	assert.Len(t, enc.tokenTypeIDs, len(enc.inputIDs))

	long := make([]string, 100)
	for i := range long {
		long[i] = "weather"
	}
	enc = wp.encode(long, 16)
	assert.Len(t, enc.inputIDs, 16)
}

func TestWordPiece_VocabularyFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "vocab.txt")
	require.NoError(t, os.WriteFile(path, []byte("[PAD]\n[UNK]\n[CLS]\n[SEP]\nplay\n##ing\n"), 0o644))

	wp, err := loadWordPiece(path)
	require.NoError(t, err)
	enc := wp.encode([]string{"playing"}, 8)
	assert.Equal(t, []int64{2, 4, 5, 3}, enc.inputIDs)

	bad := filepath.Join(t.TempDir(), "bad.txt")
	require.NoError(t, os.WriteFile(bad, []byte("hello\n"), 0o644))
	_, err = loadWordPiece(bad)
	assert.Error(t, err)
}

func TestONNXModel_LoadFailsWithoutFiles(t *testing.T) {
	_, err := NewONNXModel(ONNXConfig{})
	assert.Error(t, err)

	m, err := NewONNXModel(ONNXConfig{ModelPath: filepath.Join(t.TempDir(), "missing.onnx")})
	require.NoError(t, err)
	assert.Error(t, m.Load(context.Background()))
	assert.False(t, m.Loaded())

	_, err = m.Score(context.Background(), []string{"weather"})
	assert.ErrorIs(t, err, ErrModelNotLoaded)
	assert.NoError(t, m.Unload())
}
