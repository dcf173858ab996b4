package handlers

import (
	"fmt"
	"time"

	"github.com/astoerkel/floe-voice-assistant-sub003/internal/intent"
	"github.com/astoerkel/floe-voice-assistant-sub003/internal/response"
)

// HandleTime answers the current time, or the date and weekday when the
// utterance asks about a day.
func HandleTime(req Request) response.Candidate {
	now := req.Device.Clock()

	switch day := req.Entity(intent.EntityDate); {
	case day == "tomorrow":
		return dateAnswer("Tomorrow is", now.AddDate(0, 0, 1))
	case day == "yesterday":
		return dateAnswer("Yesterday was", now.AddDate(0, 0, -1))
	case day != "" && req.Entity(intent.EntityTime) == "" && !req.Has("time", "clock"):
		return dateAnswer("Today is", now)
	case req.Has("date", "day", "weekday", "month"):
		return dateAnswer("Today is", now)
	}

	text := fmt.Sprintf("The current time is %s.", now.Format("3:04 PM"))
	return response.New(text, 0.98, response.CategoryAnswer).
		WithFollowUps("Set a timer", "What's the date?")
}

func dateAnswer(prefix string, t time.Time) response.Candidate {
	text := fmt.Sprintf("%s %s, %s %d.", prefix, t.Weekday(), t.Month(), t.Day())
	return response.New(text, 0.98, response.CategoryAnswer)
}
