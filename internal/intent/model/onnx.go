package model

import (
	"context"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"sync"

	log "github.com/sirupsen/logrus"
	"github.com/tidwall/gjson"
	ort "github.com/yalue/onnxruntime_go"
)

// maxSequenceLength bounds encoder input; utterances are short.
const maxSequenceLength = 64

// ONNXConfig locates an exported text-classification model.
type ONNXConfig struct {
	// ModelPath is the .onnx file.
	ModelPath string
	// ConfigPath is the exporter's config.json; its id2label table names the logits.
	ConfigPath string
	// VocabPath is the WordPiece vocabulary. Empty selects the fallback vocabulary.
	VocabPath string
	// SharedLibraryPath is the ONNX Runtime shared library.
	SharedLibraryPath string
}

// ONNXModel scores utterances with a fine-tuned encoder exported to ONNX.
type ONNXModel struct {
	cfg ONNXConfig

	mu        sync.RWMutex
	session   *ort.DynamicAdvancedSession
	tokenizer *wordPiece
	labels    []string
	loaded    bool
}

// NewONNXModel creates a model. Nothing is read from disk until Load.
func NewONNXModel(cfg ONNXConfig) (*ONNXModel, error) {
	if cfg.ModelPath == "" {
		return nil, fmt.Errorf("model path is required")
	}
	if cfg.ConfigPath == "" {
		cfg.ConfigPath = filepath.Join(filepath.Dir(cfg.ModelPath), "config.json")
	}
	return &ONNXModel{cfg: cfg}, nil
}

// Name implements Model.
func (m *ONNXModel) Name() string {
	return "onnx:" + filepath.Base(m.cfg.ModelPath)
}

// Load implements Model.
func (m *ONNXModel) Load(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if m.loaded {
		return nil
	}

	if _, err := os.Stat(m.cfg.ModelPath); err != nil {
		return fmt.Errorf("model file not found: %s", m.cfg.ModelPath)
	}

	labels, err := readLabels(m.cfg.ConfigPath)
	if err != nil {
		return err
	}

	tokenizer, err := loadWordPiece(m.cfg.VocabPath)
	if err != nil {
		return fmt.Errorf("failed to initialize tokenizer: %w", err)
	}

	if m.cfg.SharedLibraryPath != "" {
		ort.SetSharedLibraryPath(m.cfg.SharedLibraryPath)
	}
	if !ort.IsInitialized() {
		if err := ort.InitializeEnvironment(); err != nil {
			return fmt.Errorf("failed to initialize ONNX runtime: %w", err)
		}
	}

	options, err := ort.NewSessionOptions()
	if err != nil {
		return fmt.Errorf("failed to create session options: %w", err)
	}
	defer options.Destroy()

	session, err := ort.NewDynamicAdvancedSession(
		m.cfg.ModelPath,
		[]string{"input_ids", "attention_mask", "token_type_ids"},
		[]string{"logits"},
		options,
	)
	if err != nil {
		return fmt.Errorf("failed to load ONNX model: %w", err)
	}

	m.session = session
	m.tokenizer = tokenizer
	m.labels = labels
	m.loaded = true
	log.Infof("intent model loaded: %s (%d labels)", filepath.Base(m.cfg.ModelPath), len(labels))
	return nil
}

// Unload implements Model.
func (m *ONNXModel) Unload() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if !m.loaded {
		return nil
	}
	m.loaded = false
	if m.session != nil {
		if err := m.session.Destroy(); err != nil {
			return fmt.Errorf("failed to destroy ONNX session: %w", err)
		}
		m.session = nil
	}
	return nil
}

// Loaded implements Model.
func (m *ONNXModel) Loaded() bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.loaded
}

// Labels implements Model.
func (m *ONNXModel) Labels() []string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return append([]string(nil), m.labels...)
}

// Score implements Model.
func (m *ONNXModel) Score(ctx context.Context, tokens []string) (map[string]float64, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	m.mu.RLock()
	defer m.mu.RUnlock()
	if !m.loaded {
		return nil, ErrModelNotLoaded
	}
	if len(tokens) == 0 {
		return map[string]float64{}, nil
	}

	in := m.tokenizer.encode(tokens, maxSequenceLength)
	logits, err := m.run(in)
	if err != nil {
		return nil, err
	}
	return softmax(m.labels, logits), nil
}

// run executes the session. Must be called with the read lock held.
func (m *ONNXModel) run(in encoded) ([]float32, error) {
	seqLen := int64(len(in.inputIDs))

	inputIDs, err := ort.NewTensor(ort.NewShape(1, seqLen), in.inputIDs)
	if err != nil {
		return nil, fmt.Errorf("failed to create input_ids tensor: %w", err)
	}
	defer inputIDs.Destroy()

	mask, err := ort.NewTensor(ort.NewShape(1, seqLen), in.attentionMask)
	if err != nil {
		return nil, fmt.Errorf("failed to create attention_mask tensor: %w", err)
	}
	defer mask.Destroy()

	typeIDs, err := ort.NewTensor(ort.NewShape(1, seqLen), in.tokenTypeIDs)
	if err != nil {
		return nil, fmt.Errorf("failed to create token_type_ids tensor: %w", err)
	}
	defer typeIDs.Destroy()

	output, err := ort.NewEmptyTensor[float32](ort.NewShape(1, int64(len(m.labels))))
	if err != nil {
		return nil, fmt.Errorf("failed to create output tensor: %w", err)
	}
	defer output.Destroy()

	if err := m.session.Run(
		[]ort.ArbitraryTensor{inputIDs, mask, typeIDs},
		[]ort.ArbitraryTensor{output},
	); err != nil {
		return nil, fmt.Errorf("ONNX inference failed: %w", err)
	}
	return append([]float32(nil), output.GetData()...), nil
}

// readLabels extracts the ordered label list from a config.json id2label table.
func readLabels(path string) ([]string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read model config: %w", err)
	}
	return parseLabels(data)
}

func parseLabels(data []byte) ([]string, error) {
	table := gjson.GetBytes(data, "id2label")
	if !table.IsObject() {
		return nil, fmt.Errorf("model config has no id2label table")
	}

	type entry struct {
		id    int
		label string
	}
	var entries []entry
	var parseErr error
	table.ForEach(func(key, value gjson.Result) bool {
		id, err := strconv.Atoi(key.String())
		if err != nil {
			parseErr = fmt.Errorf("invalid id2label key %q", key.String())
			return false
		}
		entries = append(entries, entry{id: id, label: value.String()})
		return true
	})
	if parseErr != nil {
		return nil, parseErr
	}
	if len(entries) == 0 {
		return nil, fmt.Errorf("model config has an empty id2label table")
	}

	sort.Slice(entries, func(i, j int) bool { return entries[i].id < entries[j].id })
	labels := make([]string, len(entries))
	for i, e := range entries {
		if e.id != i {
			return nil, fmt.Errorf("id2label is not contiguous at %d", i)
		}
		labels[i] = e.label
	}
	return labels, nil
}

func softmax(labels []string, logits []float32) map[string]float64 {
	n := len(labels)
	if len(logits) < n {
		n = len(logits)
	}
	if n == 0 {
		return map[string]float64{}
	}

	maxLogit := math.Inf(-1)
	for i := 0; i < n; i++ {
		maxLogit = math.Max(maxLogit, float64(logits[i]))
	}
	var sum float64
	exps := make([]float64, n)
	for i := 0; i < n; i++ {
		exps[i] = math.Exp(float64(logits[i]) - maxLogit)
		sum += exps[i]
	}

	out := make(map[string]float64, n)
	for i := 0; i < n; i++ {
		out[labels[i]] = exps[i] / sum
	}
	return out
}
