package handler

import (
	"context"

	"gather/internal/conversation"
	"gather/internal/intelligence"
	"gather/internal/llm"
	"gather/internal/model"
	"gather/internal/search"
	"gather/internal/service"
	"gather/pkg/outbox"
)

// The interfaces below are satisfied by the structs in internal/service.

type AuthService interface {
	Register(ctx context.Context, email, password, displayName string) (*model.User, string, error)
	Login(ctx context.Context, email, password string) (*model.User, string, error)
}

type UserService interface {
	Me(ctx context.Context, userID int64) (*model.User, error)
	Preferences(ctx context.Context, userID int64) (*model.Preferences, error)
	UpdatePreferences(ctx context.Context, userID int64, in service.PreferencesInput) (*model.Preferences, error)
	Stats(ctx context.Context, userID int64) (*model.UserStats, error)
}

type TaskService interface {
	Create(ctx context.Context, userID int64, in service.CreateTaskInput, source model.TaskSource) (*model.Task, error)
	List(ctx context.Context, userID int64, status string) ([]model.Task, error)
	Get(ctx context.Context, userID, id int64) (*model.Task, error)
	Update(ctx context.Context, userID, id int64, p model.TaskPatch) (*model.Task, error)
	Delete(ctx context.Context, userID, id int64) error
	Complete(ctx context.Context, userID, id int64) (*model.Task, error)
	ReplaceSteps(ctx context.Context, userID, id int64, steps []model.StepDraft) (*model.Task, error)
	ToggleStep(ctx context.Context, userID, taskID, stepID int64) (*model.ToggleResult, error)
	Breakdown(ctx context.Context, userID, id int64, answers []llm.Answer) (*service.BreakdownResult, error)
}

type BrainDumpService interface {
	Capture(ctx context.Context, userID int64, text string, useAI bool) (*service.BrainDumpResult, error)
}

type HabitService interface {
	List(ctx context.Context, userID int64) ([]model.Habit, error)
	Create(ctx context.Context, userID int64, title string) (*model.Habit, error)
	Check(ctx context.Context, userID, id int64) (*model.Habit, error)
	Delete(ctx context.Context, userID, id int64) error
}

type MoodService interface {
	Log(ctx context.Context, userID int64, in service.MoodInput) (*model.MoodEntry, error)
	List(ctx context.Context, userID int64, days int) ([]model.MoodEntry, error)
}

type InsightService interface {
	List(ctx context.Context, userID int64) ([]model.Insight, error)
	Refresh(ctx context.Context, userID int64) ([]model.Insight, error)
	Dismiss(ctx context.Context, userID, id int64) error
	ProductiveHours(ctx context.Context, userID int64) (intelligence.ProductiveHoursReport, error)
}

type AssistantService interface {
	Analyze(ctx context.Context, text string) (*service.AnalyzeResult, error)
	Chat(ctx context.Context, userID int64, in service.ChatInput) (*service.ChatReply, error)
	ChatStream(ctx context.Context, userID int64, in service.ChatInput) (<-chan string, <-chan error, error)
	Search(ctx context.Context, query string) ([]search.Result, error)
}

type ConversationService interface {
	Start(ctx context.Context, userID int64) (*conversation.Session, error)
	Get(ctx context.Context, userID int64, id string) (*conversation.Session, error)
	HandleEvent(ctx context.Context, userID int64, id string, ev conversation.Event) (*conversation.Session, error)
}

type OutboxReplayer interface {
	ListFailed(ctx context.Context, limit int) ([]*outbox.Event, error)
	ReplayEvent(ctx context.Context, eventID int64) error
	ReplayFailedEvents(ctx context.Context, limit int) (int, error)
}
