package handlers

import (
	"fmt"

	"github.com/astoerkel/floe-voice-assistant-sub003/internal/buildinfo"
	"github.com/astoerkel/floe-voice-assistant-sub003/internal/intent"
	"github.com/astoerkel/floe-voice-assistant-sub003/internal/response"
)

var topicAnswers = map[string]string{
	"identity":     "I'm Floe, your voice assistant.",
	"capabilities": "I can tell you the time, do quick math, check your device and help with your calendar, messages and music. Some of that works without a connection.",
	"privacy":      "Offline answers never leave this device. Requests that need the server are only sent when you ask for them.",
}

// HandleGeneralInfo answers questions about the assistant itself from a
// static topic table. Unknown topics get the capabilities answer.
func HandleGeneralInfo(req Request) response.Candidate {
	topic := req.Entity(intent.EntityTopic)
	if topic == "version" {
		text := fmt.Sprintf("You're running Floe version %s.", buildinfo.Version)
		return response.New(text, 0.95, response.CategoryInformation)
	}
	text, ok := topicAnswers[topic]
	if !ok {
		return response.New(topicAnswers["capabilities"], 0.8, response.CategoryInformation).
			WithFollowUps("What time is it?", "What's 15 percent of 80?")
	}
	return response.New(text, 0.95, response.CategoryInformation)
}
