package response

import (
	"sync"

	log "github.com/sirupsen/logrus"
	"github.com/tiktoken-go/tokenizer"
)

var (
	codecOnce sync.Once
	codec     tokenizer.Codec
)

func loadCodec() tokenizer.Codec {
	codecOnce.Do(func() {
		c, err := tokenizer.Get(tokenizer.Cl100kBase)
		if err != nil {
			log.Warnf("token codec unavailable, using word estimate: %v", err)
			return
		}
		codec = c
	})
	return codec
}

// CountTokens returns the cl100k token count of text, or a words * 1.3
// estimate when the codec cannot be loaded.
func CountTokens(text string) int {
	if text == "" {
		return 0
	}
	if c := loadCodec(); c != nil {
		if ids, _, err := c.Encode(text); err == nil {
			return len(ids)
		}
	}
	return estimateTokens(text)
}

func estimateTokens(text string) int {
	words := 0
	inWord := false
	for _, r := range text {
		if r == ' ' || r == '\t' || r == '\n' || r == '\r' {
			inWord = false
		} else if !inWord {
			words++
			inWord = true
		}
	}
	return int(float64(words) * 1.3)
}
