package variation

import (
	"strings"

	"github.com/astoerkel/floe-voice-assistant-sub003/internal/intent"
)

type suggestion struct {
	text     string
	keywords []string
	// times restricts the suggestion to these parts of the day; empty means any.
	times []intent.TimeOfDay
}

var suggestions = []suggestion{
	{text: "Want me to set a reminder for that?", keywords: []string{"tomorrow", "today", "meeting", "calendar", "event"}},
	{text: "I can start a timer too.", keywords: []string{"time", "minutes", "clock"}},
	{text: "Need another calculation?", keywords: []string{"works out"}},
	{text: "Plugging in soon might be a good idea.", keywords: []string{"battery"}},
	{text: "I can check the weather for tomorrow as well.", keywords: []string{"weather", "rain", "forecast", "sunny"}, times: []intent.TimeOfDay{intent.Evening, intent.Night}},
	{text: "Should I read out your first meeting?", keywords: []string{"meeting", "calendar", "schedule"}, times: []intent.TimeOfDay{intent.Morning}},
	{text: "Want me to play something relaxing?", keywords: []string{"music", "playing", "song"}, times: []intent.TimeOfDay{intent.Evening, intent.Night}},
}

// relevantSuggestions filters the suggestion list by content keywords and
// time of day.
func relevantSuggestions(text string, tod intent.TimeOfDay) []string {
	lower := strings.ToLower(text)
	var out []string
	for _, s := range suggestions {
		if strings.Contains(lower, strings.ToLower(s.text)) {
			continue
		}
		if len(s.times) > 0 && !containsTime(s.times, tod) {
			continue
		}
		for _, kw := range s.keywords {
			if strings.Contains(lower, kw) {
				out = append(out, s.text)
				break
			}
		}
	}
	return out
}

func containsTime(times []intent.TimeOfDay, tod intent.TimeOfDay) bool {
	for _, t := range times {
		if t == tod {
			return true
		}
	}
	return false
}
