package service

import (
	"context"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"go.uber.org/zap"

	"gather/internal/braindump"
	"gather/internal/intelligence"
	"gather/internal/llm"
	"gather/internal/model"
	"gather/pkg/metrics"
)

const maxStepsPerTask = 20

type TaskService struct {
	tasks   TaskStore
	planner *StepPlanner
	logger  *zap.Logger
}

func NewTaskService(tasks TaskStore, planner *StepPlanner, logger *zap.Logger) *TaskService {
	return &TaskService{tasks: tasks, planner: planner, logger: logger}
}

type CreateTaskInput struct {
	Title       string            `json:"title"`
	Notes       string            `json:"notes"`
	Urgency     model.Urgency     `json:"urgency"`
	WaitingOn   string            `json:"waiting_on"`
	ContextTags []string          `json:"context_tags"`
	DueAt       *time.Time        `json:"due_at"`
	Steps       []model.StepDraft `json:"steps"`
}

// Create stores a task. Urgency and waiting state are inferred from the
// title when not given.
func (s *TaskService) Create(ctx context.Context, userID int64, in CreateTaskInput, source model.TaskSource) (*model.Task, error) {
	title := strings.TrimSpace(in.Title)
	if title == "" {
		return nil, fmt.Errorf("%w: title is required", model.ErrInvalidInput)
	}
	if utf8.RuneCountInString(title) > braindump.MaxTitleRunes {
		return nil, fmt.Errorf("%w: title too long", model.ErrInvalidInput)
	}
	if in.Urgency != "" && !in.Urgency.Valid() {
		return nil, fmt.Errorf("%w: unknown urgency %q", model.ErrInvalidInput, in.Urgency)
	}
	steps, err := cleanSteps(in.Steps, true)
	if err != nil {
		return nil, err
	}

	t := &model.Task{
		UserID:      userID,
		Title:       title,
		Notes:       in.Notes,
		Status:      model.TaskPending,
		Urgency:     in.Urgency,
		WaitingOn:   strings.TrimSpace(in.WaitingOn),
		ContextTags: in.ContextTags,
		Source:      source,
		DueAt:       in.DueAt,
	}
	if t.Urgency == "" {
		t.Urgency = intelligence.DetectUrgency(title + " " + in.Notes)
	}
	if t.WaitingOn == "" {
		if waiting, on := intelligence.DetectWaiting(title); waiting {
			t.WaitingOn = on
			t.Status = model.TaskWaiting
		}
	} else {
		t.Status = model.TaskWaiting
	}
	for _, d := range steps {
		t.Steps = append(t.Steps, model.Step{Text: d.Text, SourceURL: d.SourceURL})
	}

	if err := s.tasks.Create(ctx, []*model.Task{t}); err != nil {
		return nil, err
	}
	metrics.IncrementTaskCreated(string(source))
	return t, nil
}

func cleanSteps(in []model.StepDraft, allowEmpty bool) ([]model.StepDraft, error) {
	out := make([]model.StepDraft, 0, len(in))
	for _, d := range in {
		d.Text = strings.TrimSpace(d.Text)
		if d.Text == "" {
			continue
		}
		out = append(out, d)
	}
	if len(out) > maxStepsPerTask {
		return nil, fmt.Errorf("%w: at most %d steps", model.ErrInvalidInput, maxStepsPerTask)
	}
	if !allowEmpty && len(out) == 0 {
		return nil, fmt.Errorf("%w: at least one step is required", model.ErrInvalidInput)
	}
	return out, nil
}

func (s *TaskService) List(ctx context.Context, userID int64, status string) ([]model.Task, error) {
	st := model.TaskStatus(status)
	if status != "" && !st.Valid() {
		return nil, fmt.Errorf("%w: unknown status %q", model.ErrInvalidInput, status)
	}
	return s.tasks.List(ctx, userID, st)
}

func (s *TaskService) Get(ctx context.Context, userID, id int64) (*model.Task, error) {
	return s.tasks.Get(ctx, userID, id)
}

func (s *TaskService) Update(ctx context.Context, userID, id int64, p model.TaskPatch) (*model.Task, error) {
	if p.Title != nil && strings.TrimSpace(*p.Title) == "" {
		return nil, fmt.Errorf("%w: title cannot be empty", model.ErrInvalidInput)
	}
	if p.Status != nil && !p.Status.Valid() {
		return nil, fmt.Errorf("%w: unknown status %q", model.ErrInvalidInput, *p.Status)
	}
	if p.Urgency != nil && !p.Urgency.Valid() {
		return nil, fmt.Errorf("%w: unknown urgency %q", model.ErrInvalidInput, *p.Urgency)
	}
	return s.tasks.Update(ctx, userID, id, p)
}

func (s *TaskService) Delete(ctx context.Context, userID, id int64) error {
	return s.tasks.Delete(ctx, userID, id)
}

func (s *TaskService) Complete(ctx context.Context, userID, id int64) (*model.Task, error) {
	t, changed, err := s.tasks.Complete(ctx, userID, id)
	if err != nil {
		return nil, err
	}
	if changed {
		s.logger.Info("Task completed", zap.Int64("task_id", id), zap.Int64("user_id", userID))
	}
	return t, nil
}

func (s *TaskService) ReplaceSteps(ctx context.Context, userID, id int64, steps []model.StepDraft) (*model.Task, error) {
	cleaned, err := cleanSteps(steps, true)
	if err != nil {
		return nil, err
	}
	return s.tasks.ReplaceSteps(ctx, userID, id, cleaned)
}

func (s *TaskService) ToggleStep(ctx context.Context, userID, taskID, stepID int64) (*model.ToggleResult, error) {
	return s.tasks.ToggleStep(ctx, userID, taskID, stepID)
}

type BreakdownResult struct {
	Task     *model.Task `json:"task"`
	Fallback bool        `json:"fallback"`
}

// Breakdown generates steps for an existing task and replaces its steps.
func (s *TaskService) Breakdown(ctx context.Context, userID, id int64, answers []llm.Answer) (*BreakdownResult, error) {
	t, err := s.tasks.Get(ctx, userID, id)
	if err != nil {
		return nil, err
	}
	plan := s.planner.Plan(ctx, userID, t.Title, t.Notes, answers)
	t, err = s.tasks.ReplaceSteps(ctx, userID, id, plan.Steps)
	if err != nil {
		return nil, err
	}
	return &BreakdownResult{Task: t, Fallback: plan.Fallback}, nil
}
