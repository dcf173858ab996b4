package variation

import (
	"errors"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/astoerkel/floe-voice-assistant-sub003/internal/config"
	"github.com/astoerkel/floe-voice-assistant-sub003/internal/intent"
	"github.com/astoerkel/floe-voice-assistant-sub003/internal/response"
)

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

func newTestEngine(seed uint64) (*Engine, *fakeClock) {
	clock := &fakeClock{now: time.Date(2026, 10, 17, 15, 4, 0, 0, time.UTC)}
	e := NewEngine(Options{Rand: NewSeeded(seed), Now: clock.Now})
	return e, clock
}

var midConversation = intent.ConversationContext{TurnCount: 3, TimeOfDay: intent.Afternoon}

func timeAnswer() response.Candidate {
	return response.New("The current time is 3:04 PM.", 0.98, response.CategoryAnswer)
}

func TestSignature(t *testing.T) {
	assert.Equal(t, Signature("The current time is 3:04 PM."), Signature("the CURRENT time is 3:04 pm"))
	assert.NotEqual(t, Signature("The current time is 3:04 PM."), Signature("Your battery is at 42 percent."))
	assert.Equal(t,
		Signature("alpha beta gamma delta epsilon zeta"),
		Signature("alpha beta gamma delta epsilon eta"))
	assert.Len(t, Signature(""), 32)
}

func TestSignature_NumbersCount(t *testing.T) {
	assert.NotEqual(t, Signature("That works out to 100."), Signature("That works out to 250."))
	assert.NotEqual(t, Signature("The current time is 3:04 PM."), Signature("The current time is 3:05 PM."))
	assert.NotEqual(t,
		Signature("alpha beta gamma delta epsilon zeta 7"),
		Signature("alpha beta gamma delta epsilon zeta 8"))
	assert.Equal(t, Signature("That works out to 100."), Signature("that WORKS out to 100"))
}

func TestVary_DifferentFiguresAreNotRepeats(t *testing.T) {
	e, _ := newTestEngine(7)
	for _, text := range []string{"That works out to 4.", "That works out to 9.", "That works out to 16."} {
		c := response.New(text, 0.98, response.CategoryAnswer)
		out, err := e.Shape(c, midConversation, DefaultPreferences())
		require.NoError(t, err)
		assert.Equal(t, 1, out.Uses, text)
		assert.False(t, out.Varied, text)
	}
}

func TestVary_RepetitionLaw(t *testing.T) {
	e, _ := newTestEngine(7)
	c := timeAnswer()

	var outs []Output
	for i := 0; i < 4; i++ {
		out, err := e.Shape(c, midConversation, DefaultPreferences())
		require.NoError(t, err)
		require.NoError(t, response.ValidateText(out.Text), out.Text)
		outs = append(outs, out)
	}

	assert.Equal(t, c.Text, outs[0].Text)
	assert.Equal(t, outs[0].Text, outs[1].Text)
	assert.False(t, outs[0].Varied)
	assert.False(t, outs[1].Varied)
	assert.True(t, outs[2].Varied)
	assert.True(t, outs[3].Varied)
	assert.Equal(t, []int{1, 2, 3, 4}, []int{outs[0].Uses, outs[1].Uses, outs[2].Uses, outs[3].Uses})

	assert.NotEqual(t, outs[0].Text, outs[2].Text)
	assert.NotEqual(t, outs[0].Text, outs[3].Text)
	assert.NotEqual(t, outs[2].Text, outs[3].Text)

	// All renderings are recorded under the pre-variation signature.
	assert.Len(t, e.history.Renderings(Signature(c.Text)), 4)
}

func TestVary_DistinctUntilRenderingCap(t *testing.T) {
	e, _ := newTestEngine(11)
	seen := map[string]bool{}
	for i := 0; i < 12; i++ {
		text, err := e.Vary(timeAnswer(), midConversation, DefaultPreferences())
		require.NoError(t, err)
		if i >= 2 && i < 10 {
			assert.False(t, seen[text], "rendering %d repeated: %s", i, text)
		}
		seen[text] = true
	}
	assert.Len(t, e.history.Renderings(Signature(timeAnswer().Text)), 10)
}

func TestVary_RepetitionWindow(t *testing.T) {
	e, clock := newTestEngine(3)
	c := timeAnswer()

	for i := 0; i < 2; i++ {
		_, err := e.Shape(c, midConversation, DefaultPreferences())
		require.NoError(t, err)
	}
	clock.Advance(61 * time.Minute)
	out, err := e.Shape(c, midConversation, DefaultPreferences())
	require.NoError(t, err)
	assert.Equal(t, 1, out.Uses)
	assert.False(t, out.Varied)
	assert.True(t, e.history.Has(out.Signature))

	// Past retention the signature is purged on the next access.
	clock.Advance(2*time.Hour + time.Minute)
	_, err = e.Shape(response.New("Your battery is at 42 percent.", 0.9, response.CategoryInformation), midConversation, DefaultPreferences())
	require.NoError(t, err)
	assert.False(t, e.history.Has(out.Signature))
	assert.Equal(t, 1, e.history.Len())
}

func TestVary_MaxKeysEvictsOldest(t *testing.T) {
	e, clock := newTestEngine(5)
	var sigs []string
	for i := 0; i < 51; i++ {
		name := fmt.Sprintf("z%c%c", 'a'+i/26, 'a'+i%26)
		c := response.New(fmt.Sprintf("Your reminder called %s is saved.", name), 0.9, response.CategoryAnswer)
		out, err := e.Shape(c, midConversation, DefaultPreferences())
		require.NoError(t, err)
		sigs = append(sigs, out.Signature)
		clock.Advance(time.Second)
		assert.LessOrEqual(t, e.history.Len(), 50)
	}
	assert.Equal(t, 50, e.history.Len())
	assert.False(t, e.history.Has(sigs[0]))
	assert.True(t, e.history.Has(sigs[1]))
	assert.True(t, e.history.Has(sigs[50]))
	assert.Equal(t, int64(1), e.GetMetrics()["evictions"])
}

func TestVary_RejectsInvalidCandidate(t *testing.T) {
	e, _ := newTestEngine(1)
	for _, c := range []response.Candidate{
		response.New("ok", 0.9, response.CategoryAnswer),
		response.New("Here is the answer [truncated]", 0.9, response.CategoryAnswer),
		response.New("The current time is 3:04 PM.", 1.5, response.CategoryAnswer),
	} {
		_, err := e.Vary(c, midConversation, DefaultPreferences())
		require.Error(t, err)
		assert.True(t, errors.Is(err, response.ErrValidationRejected))
	}
	assert.Equal(t, 0, e.history.Len())
	assert.Equal(t, int64(3), e.GetMetrics()["rejected"])
}

func TestVary_Deterministic(t *testing.T) {
	run := func() []string {
		e, clock := newTestEngine(42)
		var out []string
		for i := 0; i < 6; i++ {
			text, err := e.Vary(response.New("I couldn't work that out. Could you say the numbers again?", 0.5, response.CategoryClarification),
				midConversation, Preferences{Formality: 0.9, Enthusiasm: 0.2})
			require.NoError(t, err)
			out = append(out, text)
			clock.Advance(time.Minute)
		}
		return out
	}
	assert.Equal(t, run(), run())
}

func TestVary_Personality(t *testing.T) {
	base := response.New("I can't read the battery level right now.", 0.9, response.CategoryInformation)

	tests := []struct {
		name  string
		prefs Preferences
		check func(t *testing.T, text string)
	}{
		{"neutral", DefaultPreferences(), func(t *testing.T, text string) {
			assert.Equal(t, base.Text, text)
		}},
		{"enthusiastic", Preferences{Enthusiasm: 0.9}, func(t *testing.T, text string) {
			assert.True(t, strings.HasSuffix(text, "!"))
		}},
		{"helpful", Preferences{Helpfulness: 0.8}, func(t *testing.T, text string) {
			assert.True(t, strings.HasSuffix(text, helpfulClosing))
		}},
		{"friendly", Preferences{Friendliness: 0.7}, func(t *testing.T, text string) {
			assert.True(t, strings.HasPrefix(text, friendlyOpener))
		}},
		{"professional", Preferences{Professionalism: 1}, func(t *testing.T, text string) {
			assert.Equal(t, "I cannot read the battery level right now.", text)
		}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e, _ := newTestEngine(9)
			text, err := e.Vary(base, midConversation, tt.prefs)
			require.NoError(t, err)
			tt.check(t, text)
		})
	}
}

func TestPersonalityModifiers_Idempotent(t *testing.T) {
	text := "I'm checking. It's fine."
	for _, m := range personalityModifiers {
		once := m.apply(text)
		assert.Equal(t, once, m.apply(once))
	}
	assert.Equal(t, "I am checking. It is fine.", expandContractions(text))
}

func TestVary_Context(t *testing.T) {
	e, _ := newTestEngine(2)
	text, err := e.Vary(timeAnswer(), intent.ConversationContext{TurnCount: 0, TimeOfDay: intent.Morning}, DefaultPreferences())
	require.NoError(t, err)
	assert.Equal(t, "Good morning. The current time is 3:04 PM.", text)

	e, _ = newTestEngine(2)
	text, err = e.Vary(timeAnswer(), intent.ConversationContext{TurnCount: 1, TimeOfDay: intent.Night}, DefaultPreferences())
	require.NoError(t, err)
	assert.Equal(t, "The current time is 3:04 PM.", text)

	// Without an explicit time of day the engine clock (15:04) is used.
	e, _ = newTestEngine(2)
	text, err = e.Vary(timeAnswer(), intent.ConversationContext{}, DefaultPreferences())
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(text, "Good afternoon."))

	e, _ = newTestEngine(2)
	text, err = e.Vary(timeAnswer(), intent.ConversationContext{TurnCount: 8}, Preferences{Helpfulness: 0.9, Friendliness: 0.9})
	require.NoError(t, err)
	assert.Equal(t, "The current time is 3:04 PM. Anything else?", text)
}

func TestVary_Suggestion(t *testing.T) {
	clock := &fakeClock{now: time.Date(2026, 10, 17, 15, 4, 0, 0, time.UTC)}
	e := NewEngine(Options{Rand: NewSeeded(1), Now: clock.Now, SuggestionProbability: 1})

	text, err := e.Vary(response.New("Your battery is at 42 percent.", 0.9, response.CategoryInformation), midConversation, DefaultPreferences())
	require.NoError(t, err)
	assert.Equal(t, "Your battery is at 42 percent. Plugging in soon might be a good idea.", text)

	// Nothing relevant to suggest.
	text, err = e.Vary(response.New("I'm Floe, your voice assistant.", 0.9, response.CategoryInformation), midConversation, DefaultPreferences())
	require.NoError(t, err)
	assert.Equal(t, "I'm Floe, your voice assistant.", text)
}

func TestRelevantSuggestions(t *testing.T) {
	assert.Contains(t, relevantSuggestions("Your meeting starts at nine.", intent.Morning), "Should I read out your first meeting?")
	assert.NotContains(t, relevantSuggestions("Your meeting starts at nine.", intent.Evening), "Should I read out your first meeting?")
	assert.Empty(t, relevantSuggestions("Plugging in soon might be a good idea. Battery low.", intent.Morning))
}

func TestReconfigure(t *testing.T) {
	e, _ := newTestEngine(4)
	for i := 0; i < 5; i++ {
		c := response.New(fmt.Sprintf("Your reminder called %c%c is saved.", 'q', 'a'+i), 0.9, response.CategoryAnswer)
		_, err := e.Shape(c, midConversation, DefaultPreferences())
		require.NoError(t, err)
	}
	e.Reconfigure(configWithMaxKeys(2))
	assert.Equal(t, 2, e.history.Len())

	// Threshold 2 varies the second use.
	out, err := e.Shape(timeAnswer(), midConversation, DefaultPreferences())
	require.NoError(t, err)
	assert.False(t, out.Varied)
	out, err = e.Shape(timeAnswer(), midConversation, DefaultPreferences())
	require.NoError(t, err)
	assert.True(t, out.Varied)
}

func TestVary_Concurrent(t *testing.T) {
	e, _ := newTestEngine(8)
	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 20; j++ {
				_, err := e.Vary(timeAnswer(), midConversation, DefaultPreferences())
				assert.NoError(t, err)
			}
		}()
	}
	wg.Wait()
	assert.Equal(t, int64(160), e.GetMetrics()["calls"])
	assert.Len(t, e.history.Renderings(Signature(timeAnswer().Text)), 10)
}

func TestVary_OutputAlwaysValidates(t *testing.T) {
	bases := []string{
		"The current time is 3:04 PM.",
		"Today is Saturday, October 17.",
		"That works out to 0.3.",
		"I couldn't work that out. Could you say the numbers again?",
		"Your battery is at 42 percent and charging. Low power mode is on.",
		"You're offline right now, but I can still help with the time, quick math and your device.",
		"Memory looks fine.",
		"Would you like me to check the weather?",
	}
	e, _ := newTestEngine(99)

	properties := gopter.NewProperties(nil)
	properties.Property("vary output passes the quality gate", prop.ForAll(
		func(bi int, formality, enthusiasm, helpfulness, friendliness, professionalism float64, turns int) bool {
			c := response.New(bases[bi], 0.9, response.CategoryAnswer)
			prefs := Preferences{formality, enthusiasm, helpfulness, friendliness, professionalism}
			text, err := e.Vary(c, intent.ConversationContext{TurnCount: turns}, prefs)
			return err == nil && response.ValidateText(text) == nil
		},
		gen.IntRange(0, len(bases)-1),
		gen.Float64Range(0, 1),
		gen.Float64Range(0, 1),
		gen.Float64Range(0, 1),
		gen.Float64Range(0, 1),
		gen.Float64Range(0, 1),
		gen.IntRange(0, 10),
	))
	properties.TestingRun(t, gopter.ConsoleReporter(false))
}

func configWithMaxKeys(n int) config.VariationConfig {
	return config.VariationConfig{
		RepetitionThreshold: 2,
		RepetitionWindow:    "1h",
		Retention:           "2h",
		MaxKeys:             n,
		MaxVariations:       10,
	}
}
