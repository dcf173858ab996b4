package executor

import (
	"context"
	"fmt"
	"strings"

	"github.com/astoerkel/floe-voice-assistant-sub003/internal/intent"
	"github.com/astoerkel/floe-voice-assistant-sub003/internal/response"
)

// LocalExecutor answers on-device capable intents from local templates. The
// candidate carries the classifier's confidence so a hybrid run can decide
// whether to escalate.
type LocalExecutor struct{}

// NewLocalExecutor creates the on-device executor.
func NewLocalExecutor() *LocalExecutor { return &LocalExecutor{} }

// Name implements Executor.
func (e *LocalExecutor) Name() string { return "on_device" }

// Execute implements Executor.
func (e *LocalExecutor) Execute(ctx context.Context, req Request) (response.Candidate, error) {
	if err := ctx.Err(); err != nil {
		return response.Candidate{}, err
	}

	in := req.Intent
	conf := in.Confidence
	var c response.Candidate
	switch in.Label {
	case intent.LabelReminder:
		c = response.New(reminderText(in.Entities), conf, response.CategoryAnswer)
	case intent.LabelCalendar:
		day := in.Entities[intent.EntityDate]
		if day == "" {
			day = "today"
		}
		c = response.New(fmt.Sprintf("I'm opening your calendar for %s.", day), conf, response.CategoryAnswer)
	case intent.LabelMessaging:
		c = response.New("I'm starting a new message for you. Who should it go to?", conf, response.CategoryAnswer)
	case intent.LabelMusic:
		c = response.New("Playing your music now.", conf, response.CategoryAnswer)
	case intent.LabelSmalltalk:
		c = response.New("I'm doing well, thanks for asking.", conf, response.CategoryAnswer)
	case intent.LabelUnknown:
		c = response.New("I'm not sure I caught that. Could you say it another way?", conf, response.CategoryClarification)
	default:
		return response.Candidate{}, fmt.Errorf("%w: %s on device", ErrUnsupported, in.Label)
	}
	c.Source = e.Name()
	return c, nil
}

func reminderText(entities intent.Entities) string {
	switch {
	case entities[intent.EntityDuration] != "":
		return fmt.Sprintf("Okay, I'll remind you in %s.", entities[intent.EntityDuration])
	case entities[intent.EntityTime] != "":
		return fmt.Sprintf("Okay, I'll remind you at %s.", strings.ToUpper(entities[intent.EntityTime]))
	case entities[intent.EntityDate] != "":
		return fmt.Sprintf("Okay, I'll remind you %s.", entities[intent.EntityDate])
	default:
		return "Okay, what should I remind you about?"
	}
}
