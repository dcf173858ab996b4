package intent

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNormalize(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		text    string
		content []string
	}{
		{
			name:    "contractions and curly apostrophe",
			input:   "What’s the time? I don't know.",
			text:    "what is the time i do not know",
			content: []string{"what", "time", "not", "know"},
		},
		{
			name:    "operators survive",
			input:   "What is 50% of 200?",
			text:    "what is 50 % of 200",
			content: []string{"what", "50", "%", "200"},
		},
		{
			name:    "decimals clock times and separators",
			input:   "Wake me at 7:30, add 1,000 and 2.5",
			text:    "wake me at 7:30 add 1000 and 2.5",
			content: []string{"wake", "7:30", "add", "1000", "2.5"},
		},
		{
			name:    "compatibility forms fold",
			input:   "Ｗｅａｔｈｅｒ   tomorrow!!",
			text:    "weather tomorrow",
			content: []string{"weather", "tomorrow"},
		},
		{
			name:    "hyphenated words stay whole",
			input:   "Is the Wi-Fi on",
			text:    "is the wi-fi on",
			content: []string{"wi-fi"},
		},
		{
			name:    "multiplication sign",
			input:   "6×7",
			text:    "6 × 7",
			content: []string{"6", "×", "7"},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			n := Normalize(tt.input)
			assert.Equal(t, tt.text, n.Text)
			assert.Equal(t, tt.content, n.Content)
		})
	}
}

func TestNormalize_Empty(t *testing.T) {
	assert.True(t, Normalize("").Empty())
	assert.True(t, Normalize("  ?! ...").Empty())
	assert.False(t, Normalize("hi").Empty())
}
