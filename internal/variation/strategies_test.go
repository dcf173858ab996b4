package variation

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSplitSentences(t *testing.T) {
	assert.Equal(t, []string{"That works out to 0.3."}, splitSentences("That works out to 0.3."))
	assert.Equal(t, []string{"It is 3:04 PM.", "Anything else?", "Okay"}, splitSentences("It is 3:04 PM. Anything else? Okay"))
}

func TestShuffleSentences(t *testing.T) {
	out, ok := shuffleSentences("First sentence here. Second one follows.", NewSeeded(1))
	assert.True(t, ok)
	assert.Equal(t, "Second one follows. First sentence here.", out)

	_, ok = shuffleSentences("Only one sentence here.", NewSeeded(1))
	assert.False(t, ok)
}

func TestQuestionToStatement(t *testing.T) {
	out, ok := questionToStatement("I couldn't work that out. Could you say the numbers again?", nil)
	assert.True(t, ok)
	assert.Equal(t, "I couldn't work that out. Please say the numbers again.", out)

	out, ok = questionToStatement("Would you like me to check the weather?", nil)
	assert.True(t, ok)
	assert.Equal(t, "Let me know if you'd like me to check the weather.", out)

	_, ok = questionToStatement("What is the time?", nil)
	assert.False(t, ok)
}

func TestApplyStructural_Order(t *testing.T) {
	r := NewSeeded(3)
	// Two sentences shuffle even when one is a question.
	assert.Equal(t, "Could you say it again? I missed that.", applyStructural("I missed that. Could you say it again?", r))

	out := applyStructural("The current time is 3:04 PM.", r)
	assert.NotEqual(t, "The current time is 3:04 PM.", out)
	assert.Contains(t, out, " The current time is 3:04 PM.")
}

func TestSubstituteSynonyms(t *testing.T) {
	r := NewSeeded(1)
	assert.Equal(t, "Memory appears satisfactory.", substituteSynonyms("Memory looks fine.", 0.9, r))
	assert.Equal(t, "Memory looks fine.", substituteSynonyms("Memory looks fine.", 0.35, r))
	assert.Equal(t, "Currently it rains.", substituteSynonyms("Right now it rains.", 1, r))
}

func TestModulateIntensity(t *testing.T) {
	assert.Equal(t, "That is really good!", modulateIntensity("That is good.", 0.9))
	assert.Equal(t, "That is good.", modulateIntensity("That is really good!", 0.1))
	assert.Equal(t, "That is good.", modulateIntensity("That is good.", 0.5))
}

func TestSubstituteConnectors(t *testing.T) {
	out := substituteConnectors("It is late, but the store is open.", NewSeeded(2))
	assert.Contains(t, []string{"It is late, but the store is open.", "It is late, though the store is open."}, out)
}

func TestMatchCase(t *testing.T) {
	assert.Equal(t, "Currently", matchCase("Right now", "currently"))
	assert.Equal(t, "currently", matchCase("right now", "currently"))
}
