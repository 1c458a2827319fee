package service

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"gather/internal/braindump"
	"gather/internal/model"
	"gather/pkg/metrics"
)

const maxDumpItems = 50

type BrainDumpService struct {
	tasks     TaskStore
	assistant Assistant
	logger    *zap.Logger
}

func NewBrainDumpService(tasks TaskStore, assistant Assistant, logger *zap.Logger) *BrainDumpService {
	return &BrainDumpService{tasks: tasks, assistant: assistant, logger: logger}
}

type BrainDumpResult struct {
	Tasks   []*model.Task `json:"tasks"`
	Cleaned bool          `json:"cleaned"`
}

// Capture turns a dump into tasks. With useAI the assistant tidies the
// list first; if that fails the heuristic split is used.
func (s *BrainDumpService) Capture(ctx context.Context, userID int64, text string, useAI bool) (*BrainDumpResult, error) {
	if strings.TrimSpace(text) == "" {
		return nil, fmt.Errorf("%w: nothing to capture", model.ErrInvalidInput)
	}

	items := braindump.Parse(text)
	cleaned := false
	if useAI && s.assistant != nil {
		titles, err := s.assistant.CleanBrainDump(ctx, text)
		if err != nil {
			s.logger.Warn("Brain dump cleanup failed, using heuristic split", zap.Error(err))
		} else if ai := braindump.Parse(strings.Join(titles, "\n")); len(ai) > 0 {
			items = ai
			cleaned = true
		}
	}
	if len(items) == 0 {
		return nil, fmt.Errorf("%w: no tasks found", model.ErrInvalidInput)
	}
	if len(items) > maxDumpItems {
		items = items[:maxDumpItems]
	}

	tasks := make([]*model.Task, 0, len(items))
	for _, it := range items {
		t := &model.Task{
			UserID:  userID,
			Title:   it.Title,
			Status:  model.TaskPending,
			Urgency: it.Urgency,
			Source:  model.SourceBrainDump,
		}
		if it.Waiting {
			t.Status = model.TaskWaiting
			t.WaitingOn = it.WaitingOn
		}
		tasks = append(tasks, t)
	}
	if err := s.tasks.Create(ctx, tasks); err != nil {
		return nil, err
	}
	for range tasks {
		metrics.IncrementTaskCreated(string(model.SourceBrainDump))
	}
	s.logger.Info("Brain dump captured",
		zap.Int64("user_id", userID),
		zap.Int("tasks", len(tasks)),
		zap.Bool("cleaned", cleaned),
	)
	return &BrainDumpResult{Tasks: tasks, Cleaned: cleaned}, nil
}
