package conversation

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"gather/internal/model"
)

var now = time.Date(2024, 6, 1, 10, 0, 0, 0, time.UTC)

func questions() []Question {
	return []Question{
		{Question: "Which room?", Options: []string{"Kitchen", "Bedroom"}},
		{Question: "How long do you have?", Options: []string{"10 min", "30 min", "1 hour"}},
	}
}

func mustApply(t *testing.T, s *Session, ev Event) {
	t.Helper()
	require.NoError(t, s.Apply(ev, now))
}

func submitted(t *testing.T) *Session {
	s := NewSession("s1", 7, now)
	mustApply(t, s, Event{Type: EventSubmit, Text: "  clean the house "})
	return s
}

func TestHappyPath(t *testing.T) {
	s := submitted(t)
	assert.Equal(t, StateAwaitingAIResponse, s.State)
	assert.Equal(t, PhaseAnalysis, s.Phase)
	assert.Equal(t, "clean the house", s.Input)

	mustApply(t, s, Event{Type: EventAIAnalyzed, Title: "Clean the kitchen", Questions: questions()})
	assert.Equal(t, StateAwaitingClarifyingAnswer, s.State)
	assert.Equal(t, "Clean the kitchen", s.Title)
	q, ok := s.CurrentQuestion()
	require.True(t, ok)
	assert.Equal(t, "Which room?", q.Question)

	mustApply(t, s, Event{Type: EventChooseOption, Option: 0})
	mustApply(t, s, Event{Type: EventChooseOption, Option: 2})
	assert.Equal(t, StateAwaitingAIResponse, s.State)
	assert.Equal(t, PhaseSteps, s.Phase)
	assert.Equal(t, []Answer{
		{Question: "Which room?", Answer: "Kitchen"},
		{Question: "How long do you have?", Answer: "1 hour"},
	}, s.Answers)

	steps := []model.StepDraft{{Text: "Clear the counter"}, {Text: "Wipe it"}, {Text: "Sweep"}}
	mustApply(t, s, Event{Type: EventAIStepsReady, Steps: steps})
	assert.Equal(t, StateDone, s.State)
	assert.Equal(t, steps, s.Steps)
	assert.False(t, s.UsedFallback)
}

func TestNoQuestionsGoesStraightToSteps(t *testing.T) {
	s := submitted(t)
	mustApply(t, s, Event{Type: EventAIAnalyzed})
	assert.Equal(t, StateAwaitingAIResponse, s.State)
	assert.Equal(t, PhaseSteps, s.Phase)
}

func TestQuestionsAreCapped(t *testing.T) {
	s := submitted(t)
	many := []Question{
		{Question: "a", Options: []string{"1", "2", "3", "4", "5", "6"}},
		{Question: "b", Options: []string{"1"}},
		{Question: "", Options: []string{"1"}},
		{Question: "c", Options: []string{"1"}},
		{Question: "d", Options: []string{"1"}},
	}
	mustApply(t, s, Event{Type: EventAIAnalyzed, Questions: many})
	require.Len(t, s.Questions, MaxQuestions)
	assert.Len(t, s.Questions[0].Options, MaxOptions)
	assert.Equal(t, "c", s.Questions[2].Question)
}

func TestBackSemantics(t *testing.T) {
	s := submitted(t)
	mustApply(t, s, Event{Type: EventAIAnalyzed, Questions: questions()})

	err := s.Apply(Event{Type: EventBack}, now)
	assert.ErrorIs(t, err, ErrInvalidTransition)
	assert.Equal(t, StateAwaitingClarifyingAnswer, s.State)

	mustApply(t, s, Event{Type: EventChooseOption, Option: 1})
	assert.Equal(t, 1, s.Current)
	mustApply(t, s, Event{Type: EventBack})
	assert.Equal(t, 0, s.Current)
	assert.Empty(t, s.Answers)

	// Back from free text returns to the same question.
	mustApply(t, s, Event{Type: EventChooseOther})
	assert.Equal(t, StateAwaitingFreeText, s.State)
	mustApply(t, s, Event{Type: EventBack})
	assert.Equal(t, StateAwaitingClarifyingAnswer, s.State)
	assert.Equal(t, 0, s.Current)
}

func TestOtherThenFreeText(t *testing.T) {
	s := submitted(t)
	mustApply(t, s, Event{Type: EventAIAnalyzed, Questions: questions()})
	mustApply(t, s, Event{Type: EventChooseOther})

	assert.ErrorIs(t, s.Apply(Event{Type: EventAnswerText, Text: "   "}, now), ErrInvalidTransition)
	assert.ErrorIs(t, s.Apply(Event{Type: EventChooseOption, Option: 0}, now), ErrInvalidTransition)

	mustApply(t, s, Event{Type: EventAnswerText, Text: "the garage"})
	assert.Equal(t, StateAwaitingClarifyingAnswer, s.State)
	assert.Equal(t, "the garage", s.Answers[0].Answer)
}

func TestInvalidTransitionsLeaveSessionUntouched(t *testing.T) {
	s := submitted(t)
	before := *s
	for _, ev := range []Event{
		{Type: EventSubmit, Text: "again"},
		{Type: EventChooseOption},
		{Type: EventAIStepsReady, Steps: model.FallbackSteps()},
		{Type: EventBack},
	} {
		assert.ErrorIs(t, s.Apply(ev, now.Add(time.Minute)), ErrInvalidTransition, ev.Type)
	}
	assert.Equal(t, before, *s)

	idle := NewSession("s2", 7, now)
	assert.ErrorIs(t, idle.Apply(Event{Type: EventSubmit, Text: " "}, now), ErrInvalidTransition)
	assert.ErrorIs(t, idle.Apply(Event{Type: EventAIFailed}, now), ErrInvalidTransition)

	mustApply(t, s, Event{Type: EventAIAnalyzed, Questions: questions()})
	assert.ErrorIs(t, s.Apply(Event{Type: EventChooseOption, Option: 5}, now), ErrInvalidTransition)
}

func TestAIFailurePaths(t *testing.T) {
	t.Run("analysis failure skips clarification", func(t *testing.T) {
		s := submitted(t)
		mustApply(t, s, Event{Type: EventAIFailed})
		assert.Equal(t, StateAwaitingAIResponse, s.State)
		assert.Equal(t, PhaseSteps, s.Phase)
	})
	t.Run("step failure uses fallback", func(t *testing.T) {
		s := submitted(t)
		mustApply(t, s, Event{Type: EventAIFailed})
		mustApply(t, s, Event{Type: EventAIFailed})
		assert.Equal(t, StateDone, s.State)
		assert.True(t, s.UsedFallback)
		assert.Equal(t, model.FallbackSteps(), s.Steps)
	})
}

func TestCancel(t *testing.T) {
	s := submitted(t)
	mustApply(t, s, Event{Type: EventAIAnalyzed, Questions: questions()})
	mustApply(t, s, Event{Type: EventChooseOption, Option: 0})
	mustApply(t, s, Event{Type: EventCancel})
	assert.Equal(t, StateIdle, s.State)
	assert.Empty(t, s.Answers)
	assert.Empty(t, s.Questions)
	assert.Equal(t, "s1", s.ID)

	mustApply(t, s, Event{Type: EventSubmit, Text: "next thing"})
	mustApply(t, s, Event{Type: EventAIFailed})
	mustApply(t, s, Event{Type: EventAIFailed})
	assert.ErrorIs(t, s.Apply(Event{Type: EventCancel}, now), ErrInvalidTransition)
}
