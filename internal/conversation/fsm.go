// Package conversation models the capture dialogue: the user submits a
// thought, the assistant may ask clarifying questions, and the dialogue
// ends with a list of steps.
package conversation

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"gather/internal/model"
)

type State string

const (
	StateIdle                     State = "idle"
	StateAwaitingAIResponse       State = "awaiting_ai_response"
	StateAwaitingClarifyingAnswer State = "awaiting_clarifying_answer"
	StateAwaitingFreeText         State = "awaiting_free_text"
	StateDone                     State = "done"
)

// Phase tells which assistant call a session in StateAwaitingAIResponse is
// waiting for.
type Phase string

const (
	PhaseNone     Phase = ""
	PhaseAnalysis Phase = "analysis"
	PhaseSteps    Phase = "steps"
)

const (
	MaxQuestions = 3
	MaxOptions   = 4
)

var ErrInvalidTransition = errors.New("invalid conversation transition")

type EventType string

const (
	EventSubmit       EventType = "submit"
	EventAIAnalyzed   EventType = "ai_analyzed"
	EventAIStepsReady EventType = "ai_steps_ready"
	EventAIFailed     EventType = "ai_failed"
	EventChooseOption EventType = "choose_option"
	EventChooseOther  EventType = "choose_other"
	EventAnswerText   EventType = "answer_text"
	EventBack         EventType = "back"
	EventCancel       EventType = "cancel"
)

type Question struct {
	Question string   `json:"question"`
	Options  []string `json:"options"`
}

type Answer struct {
	Question string `json:"question"`
	Answer   string `json:"answer"`
}

type Event struct {
	Type      EventType         `json:"type"`
	Text      string            `json:"text,omitempty"`
	Option    int               `json:"option,omitempty"`
	Title     string            `json:"title,omitempty"`
	Questions []Question        `json:"questions,omitempty"`
	Steps     []model.StepDraft `json:"steps,omitempty"`
}

type Session struct {
	ID           string            `json:"id"`
	UserID       int64             `json:"user_id"`
	State        State             `json:"state"`
	Phase        Phase             `json:"phase,omitempty"`
	Input        string            `json:"input,omitempty"`
	Title        string            `json:"title,omitempty"`
	Questions    []Question        `json:"questions,omitempty"`
	Current      int               `json:"current"`
	Answers      []Answer          `json:"answers,omitempty"`
	Steps        []model.StepDraft `json:"steps,omitempty"`
	UsedFallback bool              `json:"used_fallback"`
	TaskID       int64             `json:"task_id,omitempty"`
	CreatedAt    time.Time         `json:"created_at"`
	UpdatedAt    time.Time         `json:"updated_at"`
}

func NewSession(id string, userID int64, now time.Time) *Session {
	return &Session{ID: id, UserID: userID, State: StateIdle, CreatedAt: now, UpdatedAt: now}
}

// CurrentQuestion returns the question being asked, if any.
func (s *Session) CurrentQuestion() (Question, bool) {
	if s.State != StateAwaitingClarifyingAnswer && s.State != StateAwaitingFreeText {
		return Question{}, false
	}
	if s.Current < 0 || s.Current >= len(s.Questions) {
		return Question{}, false
	}
	return s.Questions[s.Current], true
}

// Apply runs ev against the session. On error the session is unchanged.
func (s *Session) Apply(ev Event, now time.Time) error {
	next := s.clone()
	if err := next.transition(ev); err != nil {
		return err
	}
	next.UpdatedAt = now
	*s = *next
	return nil
}

func invalid(s State, ev EventType) error {
	return fmt.Errorf("%w: %s in state %s", ErrInvalidTransition, ev, s)
}

func (s *Session) transition(ev Event) error {
	if ev.Type == EventCancel {
		if s.State == StateDone {
			return invalid(s.State, ev.Type)
		}
		*s = Session{ID: s.ID, UserID: s.UserID, State: StateIdle, CreatedAt: s.CreatedAt}
		return nil
	}

	switch s.State {
	case StateIdle:
		if ev.Type != EventSubmit {
			return invalid(s.State, ev.Type)
		}
		text := strings.TrimSpace(ev.Text)
		if text == "" {
			return fmt.Errorf("%w: empty submission", ErrInvalidTransition)
		}
		s.Input = text
		s.Title = text
		s.Answers = nil
		s.Questions = nil
		s.Current = 0
		s.State = StateAwaitingAIResponse
		s.Phase = PhaseAnalysis

	case StateAwaitingAIResponse:
		return s.onAIResponse(ev)

	case StateAwaitingClarifyingAnswer:
		switch ev.Type {
		case EventChooseOption:
			q := s.Questions[s.Current]
			if ev.Option < 0 || ev.Option >= len(q.Options) {
				return fmt.Errorf("%w: option %d out of range", ErrInvalidTransition, ev.Option)
			}
			s.record(q.Options[ev.Option])
		case EventChooseOther:
			s.State = StateAwaitingFreeText
		case EventBack:
			if s.Current == 0 {
				return invalid(s.State, ev.Type)
			}
			s.Current--
			s.Answers = s.Answers[:s.Current]
		default:
			return invalid(s.State, ev.Type)
		}

	case StateAwaitingFreeText:
		switch ev.Type {
		case EventAnswerText:
			text := strings.TrimSpace(ev.Text)
			if text == "" {
				return fmt.Errorf("%w: empty answer", ErrInvalidTransition)
			}
			s.record(text)
		case EventBack:
			s.State = StateAwaitingClarifyingAnswer
		default:
			return invalid(s.State, ev.Type)
		}

	default:
		return invalid(s.State, ev.Type)
	}
	return nil
}

func (s *Session) onAIResponse(ev Event) error {
	switch {
	case s.Phase == PhaseAnalysis && ev.Type == EventAIAnalyzed:
		if t := strings.TrimSpace(ev.Title); t != "" {
			s.Title = t
		}
		s.Questions = capQuestions(ev.Questions)
		if len(s.Questions) == 0 {
			s.Phase = PhaseSteps
			return nil
		}
		s.Current = 0
		s.State = StateAwaitingClarifyingAnswer
		s.Phase = PhaseNone
	case s.Phase == PhaseAnalysis && ev.Type == EventAIFailed:
		s.Phase = PhaseSteps
	case s.Phase == PhaseSteps && ev.Type == EventAIStepsReady:
		if len(ev.Steps) == 0 {
			return fmt.Errorf("%w: no steps", ErrInvalidTransition)
		}
		s.finish(ev.Steps, false)
	case s.Phase == PhaseSteps && ev.Type == EventAIFailed:
		s.finish(model.FallbackSteps(), true)
	default:
		return invalid(s.State, ev.Type)
	}
	return nil
}

// record stores the answer to the current question and advances.
func (s *Session) record(answer string) {
	s.Answers = append(s.Answers[:s.Current], Answer{Question: s.Questions[s.Current].Question, Answer: answer})
	s.Current++
	if s.Current >= len(s.Questions) {
		s.State = StateAwaitingAIResponse
		s.Phase = PhaseSteps
		return
	}
	s.State = StateAwaitingClarifyingAnswer
}

func (s *Session) finish(steps []model.StepDraft, fallback bool) {
	s.Steps = steps
	s.UsedFallback = fallback
	s.State = StateDone
	s.Phase = PhaseNone
}

func capQuestions(qs []Question) []Question {
	var out []Question
	for _, q := range qs {
		if strings.TrimSpace(q.Question) == "" || len(q.Options) == 0 {
			continue
		}
		if len(q.Options) > MaxOptions {
			q.Options = q.Options[:MaxOptions]
		}
		out = append(out, Question{Question: q.Question, Options: append([]string(nil), q.Options...)})
		if len(out) == MaxQuestions {
			break
		}
	}
	return out
}

func (s *Session) clone() *Session {
	c := *s
	c.Questions = append([]Question(nil), s.Questions...)
	c.Answers = append([]Answer(nil), s.Answers...)
	c.Steps = append([]model.StepDraft(nil), s.Steps...)
	return &c
}
