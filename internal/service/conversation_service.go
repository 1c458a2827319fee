package service

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"gather/internal/conversation"
	"gather/internal/intelligence"
	"gather/internal/llm"
	"gather/internal/model"
	"gather/pkg/metrics"
)

// userEvents are the events a client may send; the ai_* events are only
// produced here.
var userEvents = map[conversation.EventType]bool{
	conversation.EventSubmit:       true,
	conversation.EventChooseOption: true,
	conversation.EventChooseOther:  true,
	conversation.EventAnswerText:   true,
	conversation.EventBack:         true,
	conversation.EventCancel:       true,
}

// ConversationService drives capture sessions. After each user event it
// runs whatever assistant calls the session is waiting for, and when the
// session finishes it stores the resulting task.
type ConversationService struct {
	store     ConversationStore
	assistant Assistant
	planner   *StepPlanner
	tasks     TaskStore
	logger    *zap.Logger
}

func NewConversationService(store ConversationStore, assistant Assistant, planner *StepPlanner, tasks TaskStore, logger *zap.Logger) *ConversationService {
	return &ConversationService{store: store, assistant: assistant, planner: planner, tasks: tasks, logger: logger}
}

func (s *ConversationService) Start(ctx context.Context, userID int64) (*conversation.Session, error) {
	return s.store.Create(ctx, userID)
}

func (s *ConversationService) Get(ctx context.Context, userID int64, id string) (*conversation.Session, error) {
	sess, err := s.store.Get(ctx, id, userID)
	if err != nil {
		return nil, err
	}
	if unsaved(sess) {
		if err := s.createTask(ctx, sess); err != nil {
			return nil, err
		}
	}
	return sess, nil
}

// unsaved reports a finished session whose task insert failed earlier.
func unsaved(sess *conversation.Session) bool {
	return sess.State == conversation.StateDone && sess.TaskID == 0
}

func (s *ConversationService) HandleEvent(ctx context.Context, userID int64, id string, ev conversation.Event) (*conversation.Session, error) {
	if !userEvents[ev.Type] {
		return nil, fmt.Errorf("%w: unsupported event %q", model.ErrInvalidInput, ev.Type)
	}
	// a finished session without its task retries the insert instead of
	// rejecting the event
	cur, err := s.store.Get(ctx, id, userID)
	if err != nil {
		return nil, err
	}
	if unsaved(cur) {
		if err := s.createTask(ctx, cur); err != nil {
			return nil, err
		}
		return cur, nil
	}

	sess, err := s.store.Apply(ctx, id, userID, ev)
	if err != nil {
		return nil, err
	}
	return s.advance(ctx, sess)
}

// advance feeds assistant results back into the session until it needs
// the user again or is done.
func (s *ConversationService) advance(ctx context.Context, sess *conversation.Session) (*conversation.Session, error) {
	for sess.State == conversation.StateAwaitingAIResponse {
		var ev conversation.Event
		switch sess.Phase {
		case conversation.PhaseAnalysis:
			ev = s.analyze(ctx, sess)
		case conversation.PhaseSteps:
			ev = s.steps(ctx, sess)
		default:
			return nil, fmt.Errorf("conversation %s waiting without a phase", sess.ID)
		}
		next, err := s.store.Apply(ctx, sess.ID, sess.UserID, ev)
		if err != nil {
			return nil, err
		}
		sess = next
	}

	if unsaved(sess) {
		if err := s.createTask(ctx, sess); err != nil {
			return nil, err
		}
	}
	return sess, nil
}

func (s *ConversationService) analyze(ctx context.Context, sess *conversation.Session) conversation.Event {
	a, err := s.assistant.Analyze(ctx, sess.Input)
	if err != nil {
		s.logger.Warn("Conversation analysis failed", zap.Error(err), zap.String("session_id", sess.ID))
		return conversation.Event{Type: conversation.EventAIFailed}
	}
	ev := conversation.Event{Type: conversation.EventAIAnalyzed, Title: a.Title}
	for _, q := range a.Questions {
		ev.Questions = append(ev.Questions, conversation.Question{Question: q.Question, Options: q.Options})
	}
	return ev
}

func (s *ConversationService) steps(ctx context.Context, sess *conversation.Session) conversation.Event {
	answers := make([]llm.Answer, 0, len(sess.Answers))
	for _, a := range sess.Answers {
		answers = append(answers, llm.Answer{Question: a.Question, Answer: a.Answer})
	}
	plan := s.planner.Plan(ctx, sess.UserID, sess.Title, sess.Input, answers)
	if plan.Fallback {
		return conversation.Event{Type: conversation.EventAIFailed}
	}
	return conversation.Event{Type: conversation.EventAIStepsReady, Steps: plan.Steps}
}

func (s *ConversationService) createTask(ctx context.Context, sess *conversation.Session) error {
	t := &model.Task{
		UserID:  sess.UserID,
		Title:   sess.Title,
		Status:  model.TaskPending,
		Urgency: intelligence.DetectUrgency(sess.Input),
		Source:  model.SourceChat,
	}
	if sess.Input != sess.Title {
		t.Notes = sess.Input
	}
	for _, d := range sess.Steps {
		t.Steps = append(t.Steps, model.Step{Text: d.Text, SourceURL: d.SourceURL})
	}
	if err := s.tasks.Create(ctx, []*model.Task{t}); err != nil {
		return err
	}
	metrics.IncrementTaskCreated(string(model.SourceChat))

	sess.TaskID = t.ID
	if err := s.store.Put(ctx, sess); err != nil {
		s.logger.Error("Failed to attach task to conversation", zap.Error(err), zap.String("session_id", sess.ID))
		return err
	}
	s.logger.Info("Conversation finished",
		zap.String("session_id", sess.ID),
		zap.Int64("task_id", t.ID),
		zap.Bool("fallback", sess.UsedFallback),
	)
	return nil
}
