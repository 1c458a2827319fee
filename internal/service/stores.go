package service

import (
	"context"
	"time"

	"gather/internal/conversation"
	"gather/internal/llm"
	"gather/internal/model"
	"gather/internal/rewards"
	"gather/internal/search"
)

// Persistence and collaborator contracts. The repository package provides
// the Postgres implementations.

type UserStore interface {
	Create(ctx context.Context, u *model.User) error
	FindByEmail(ctx context.Context, email string) (*model.User, error)
	FindByID(ctx context.Context, id int64) (*model.User, error)
	GetPreferences(ctx context.Context, userID int64) (*model.Preferences, error)
	UpdatePreferences(ctx context.Context, p *model.Preferences) error
}

type TaskStore interface {
	Create(ctx context.Context, tasks []*model.Task) error
	Get(ctx context.Context, userID, id int64) (*model.Task, error)
	List(ctx context.Context, userID int64, status model.TaskStatus) ([]model.Task, error)
	Update(ctx context.Context, userID, id int64, p model.TaskPatch) (*model.Task, error)
	Delete(ctx context.Context, userID, id int64) error
	ReplaceSteps(ctx context.Context, userID, taskID int64, drafts []model.StepDraft) (*model.Task, error)
	ToggleStep(ctx context.Context, userID, taskID, stepID int64) (*model.ToggleResult, error)
	Complete(ctx context.Context, userID, id int64) (*model.Task, bool, error)
	CompletionTimes(ctx context.Context, userID int64, since time.Time) ([]time.Time, error)
	RecentCompletedTitles(ctx context.Context, userID int64, limit int) ([]string, error)
}

type HabitStore interface {
	Insert(ctx context.Context, h *model.Habit) error
	ListActiveByUser(ctx context.Context, userID int64, today time.Time) ([]model.Habit, error)
	Deactivate(ctx context.Context, userID, id int64) error
	Check(ctx context.Context, userID, id int64, today time.Time) (*model.Habit, bool, error)
}

type MoodStore interface {
	Insert(ctx context.Context, m *model.MoodEntry) error
	ListSince(ctx context.Context, userID int64, since time.Time) ([]model.MoodEntry, error)
}

type InsightStore interface {
	ListActive(ctx context.Context, userID int64) ([]model.Insight, error)
	Replace(ctx context.Context, userID int64, insights []model.Insight) error
	Dismiss(ctx context.Context, userID, id int64) error
	DismissalCounts(ctx context.Context, userID int64) (map[model.InsightKind]int, error)
}

type StatsStore interface {
	Get(ctx context.Context, userID int64) (*model.UserStats, error)
	Award(ctx context.Context, userID int64, reason rewards.Reason, points int) (*model.UserStats, error)
}

type ConversationStore interface {
	Create(ctx context.Context, userID int64) (*conversation.Session, error)
	Get(ctx context.Context, id string, userID int64) (*conversation.Session, error)
	Apply(ctx context.Context, id string, userID int64, ev conversation.Event) (*conversation.Session, error)
	Put(ctx context.Context, sess *conversation.Session) error
}

type Searcher interface {
	Search(ctx context.Context, query string) ([]search.Result, error)
}

// Assistant is implemented by *llm.Assistant.
type Assistant interface {
	Analyze(ctx context.Context, text string) (*llm.Analysis, error)
	GenerateSteps(ctx context.Context, req llm.StepRequest) ([]model.StepDraft, error)
	Chat(ctx context.Context, msgs []llm.Message, task *model.Task) (string, error)
	ChatStream(ctx context.Context, msgs []llm.Message, task *model.Task) (<-chan string, <-chan error, error)
	CleanBrainDump(ctx context.Context, text string) ([]string, error)
}
