package model

import (
	"bufio"
	"fmt"
	"os"
	"strings"
)

// encoded is a single-sequence model input.
type encoded struct {
	inputIDs      []int64
	attentionMask []int64
	tokenTypeIDs  []int64
}

// wordPiece is a greedy longest-match-first WordPiece encoder for BERT-style
// classifiers. Input tokens are expected to be normalized already.
type wordPiece struct {
	vocab map[string]int64
	cls   int64
	sep   int64
	unk   int64
}

// loadWordPiece reads a vocabulary file with one token per line. An empty
// path yields the fallback vocabulary, which only covers special tokens and
// the bundled lexicon's stems.
func loadWordPiece(path string) (*wordPiece, error) {
	wp := &wordPiece{vocab: make(map[string]int64)}
	if path == "" {
		wp.fallbackVocab()
		return wp, nil
	}

	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open vocabulary: %w", err)
	}
	defer file.Close()

	scanner := bufio.NewScanner(file)
	var id int64
	for scanner.Scan() {
		wp.vocab[strings.TrimRight(scanner.Text(), "\r")] = id
		id++
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("error reading vocabulary: %w", err)
	}
	if err := wp.resolveSpecials(); err != nil {
		return nil, err
	}
	return wp, nil
}

func (wp *wordPiece) fallbackVocab() {
	tokens := []string{"[PAD]", "[UNK]", "[CLS]", "[SEP]", "[MASK]"}
	for _, stems := range bundledWeights() {
		for stem := range stems {
			tokens = append(tokens, stem)
		}
	}
	tokens = append(tokens, "##s", "##ed", "##ing", "##er", "##ly", "##ion", "##e")
	for _, tok := range tokens {
		if _, ok := wp.vocab[tok]; !ok {
			wp.vocab[tok] = int64(len(wp.vocab))
		}
	}
	_ = wp.resolveSpecials()
}

func (wp *wordPiece) resolveSpecials() error {
	for name, dst := range map[string]*int64{"[CLS]": &wp.cls, "[SEP]": &wp.sep, "[UNK]": &wp.unk} {
		id, ok := wp.vocab[name]
		if !ok {
			return fmt.Errorf("vocabulary is missing %s", name)
		}
		*dst = id
	}
	return nil
}

// encode wraps the word pieces of tokens in [CLS] ... [SEP], truncated to maxLength.
func (wp *wordPiece) encode(tokens []string, maxLength int) encoded {
	ids := []int64{wp.cls}
	for _, tok := range tokens {
		pieces := wp.pieces(tok)
		if len(ids)+len(pieces) > maxLength-1 {
			break
		}
		ids = append(ids, pieces...)
	}
	ids = append(ids, wp.sep)

	mask := make([]int64, len(ids))
	for i := range mask {
		mask[i] = 1
	}
	return encoded{
		inputIDs:      ids,
		attentionMask: mask,
		tokenTypeIDs:  make([]int64, len(ids)),
	}
}

func (wp *wordPiece) pieces(word string) []int64 {
	if id, ok := wp.vocab[word]; ok {
		return []int64{id}
	}

	var out []int64
	start := 0
	for start < len(word) {
		end := len(word)
		found := false
		for end > start {
			sub := word[start:end]
			if start > 0 {
				sub = "##" + sub
			}
			if id, ok := wp.vocab[sub]; ok {
				out = append(out, id)
				found = true
				break
			}
			end--
		}
		if !found {
			// One unknown piece stands for the whole word.
			return []int64{wp.unk}
		}
		start = end
	}
	return out
}
