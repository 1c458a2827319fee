package repository

import (
	"context"
	"os/exec"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"
	"go.uber.org/zap"

	mqcontracts "gather/contracts/mq"
	"gather/internal/model"
	"gather/internal/rewards"
	"gather/pkg/config"
	"gather/pkg/db"
	"gather/pkg/outbox"
)

// testcontainers panics without a docker daemon, so check for one first.
func dockerAvailable() bool {
	return exec.Command("docker", "info").Run() == nil
}

func newTestPool(t *testing.T) *pgxpool.Pool {
	t.Helper()
	if testing.Short() || !dockerAvailable() {
		t.Skip("Docker not available, skipping PostgreSQL integration tests")
	}
	ctx := context.Background()

	pg, err := postgres.Run(ctx, "postgres:16-alpine",
		postgres.WithDatabase("gather"),
		postgres.WithUsername("gather"),
		postgres.WithPassword("gather"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(60*time.Second),
		),
	)
	if err != nil {
		t.Skipf("failed to start PostgreSQL container: %v", err)
	}
	t.Cleanup(func() {
		if err := testcontainers.TerminateContainer(pg); err != nil {
			t.Logf("failed to terminate container: %s", err)
		}
	})

	dsn, err := pg.ConnectionString(ctx, "sslmode=disable")
	require.NoError(t, err)
	pool, err := db.Open(ctx, dsn, config.DBConfig{}, zap.NewNop())
	require.NoError(t, err)
	t.Cleanup(pool.Close)

	_, err = db.Migrate(ctx, pool, zap.NewNop())
	require.NoError(t, err)
	return pool
}

type repos struct {
	users    *UserRepository
	tasks    *TaskRepository
	habits   *HabitRepository
	moods    *MoodRepository
	insights *InsightRepository
	stats    *StatsRepository
	outbox   *outbox.Repository
}

func setup(t *testing.T) (*repos, *model.User) {
	pool := newTestPool(t)
	log := zap.NewNop()
	ob := outbox.NewRepository(pool)
	r := &repos{
		users:    NewUserRepository(pool, log),
		tasks:    NewTaskRepository(pool, ob, log),
		habits:   NewHabitRepository(pool, ob, log),
		moods:    NewMoodRepository(pool, ob, log),
		insights: NewInsightRepository(pool, log),
		stats:    NewStatsRepository(pool, log),
		outbox:   ob,
	}
	u := &model.User{Email: "Ada@Example.com", PasswordHash: "x", Role: "user"}
	require.NoError(t, r.users.Create(context.Background(), u))
	return r, u
}

func TestUserRepository(t *testing.T) {
	r, u := setup(t)
	ctx := context.Background()

	got, err := r.users.FindByEmail(ctx, " ada@example.COM ")
	require.NoError(t, err)
	assert.Equal(t, u.ID, got.ID)

	err = r.users.Create(ctx, &model.User{Email: "ada@example.com", PasswordHash: "y", Role: "user"})
	assert.ErrorIs(t, err, model.ErrConflict)

	_, err = r.users.FindByID(ctx, 999999)
	assert.ErrorIs(t, err, model.ErrNotFound)

	prefs, err := r.users.GetPreferences(ctx, u.ID)
	require.NoError(t, err)
	assert.Equal(t, "UTC", prefs.Timezone)
	prefs.OnboardingComplete = true
	prefs.Timezone = "Europe/Paris"
	require.NoError(t, r.users.UpdatePreferences(ctx, prefs))
	prefs, err = r.users.GetPreferences(ctx, u.ID)
	require.NoError(t, err)
	assert.True(t, prefs.OnboardingComplete)
}

func TestTaskStepLifecycle(t *testing.T) {
	r, u := setup(t)
	ctx := context.Background()

	task := &model.Task{
		UserID: u.ID, Title: "Clean kitchen", Status: model.TaskPending,
		Urgency: model.UrgencyNormal, Source: model.SourceManual,
		Steps: []model.Step{{Text: "a"}, {Text: "b"}},
	}
	require.NoError(t, r.tasks.Create(ctx, []*model.Task{task}))
	require.Len(t, task.Steps, 2)

	events, err := r.outbox.GetPendingEvents(ctx, 10)
	require.NoError(t, err)
	require.Len(t, events, 1)
	assert.Equal(t, mqcontracts.RoutingTaskCreated, events[0].RoutingKey)

	updated, err := r.tasks.ReplaceSteps(ctx, u.ID, task.ID, []model.StepDraft{{Text: "one"}, {Text: "two"}, {Text: "three", SourceURL: "https://example.com"}})
	require.NoError(t, err)
	for i, s := range updated.Steps {
		assert.Equal(t, i, s.Position)
	}
	assert.Equal(t, "https://example.com", updated.Steps[2].SourceURL)

	var last *model.ToggleResult
	for _, s := range updated.Steps {
		last, err = r.tasks.ToggleStep(ctx, u.ID, task.ID, s.ID)
		require.NoError(t, err)
	}
	assert.True(t, last.TaskCompleted)
	assert.Equal(t, model.TaskDone, last.Task.Status)
	assert.NotNil(t, last.Task.CompletedAt)

	reopened, err := r.tasks.ToggleStep(ctx, u.ID, task.ID, updated.Steps[0].ID)
	require.NoError(t, err)
	assert.True(t, reopened.TaskReopened)
	assert.Equal(t, model.TaskInProgress, reopened.Task.Status)
	assert.Nil(t, reopened.Task.CompletedAt)

	_, err = r.tasks.ToggleStep(ctx, u.ID+1, task.ID, updated.Steps[0].ID)
	assert.ErrorIs(t, err, model.ErrNotFound)

	done, changed, err := r.tasks.Complete(ctx, u.ID, task.ID)
	require.NoError(t, err)
	assert.True(t, changed)
	assert.Equal(t, model.TaskDone, done.Status)
	_, changed, err = r.tasks.Complete(ctx, u.ID, task.ID)
	require.NoError(t, err)
	assert.False(t, changed)

	times, err := r.tasks.CompletionTimes(ctx, u.ID, time.Now().Add(-time.Hour))
	require.NoError(t, err)
	assert.Len(t, times, 1)

	list, err := r.tasks.List(ctx, u.ID, model.TaskDone)
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Len(t, list[0].Steps, 3)

	replanned, err := r.tasks.ReplaceSteps(ctx, u.ID, task.ID, []model.StepDraft{{Text: "again"}})
	require.NoError(t, err)
	assert.Equal(t, model.TaskInProgress, replanned.Status)
	assert.Nil(t, replanned.CompletedAt)

	require.NoError(t, r.tasks.Delete(ctx, u.ID, task.ID))
	assert.ErrorIs(t, r.tasks.Delete(ctx, u.ID, task.ID), model.ErrNotFound)
}

func TestTaskUpdateRejectsDone(t *testing.T) {
	r, u := setup(t)
	ctx := context.Background()
	task := &model.Task{UserID: u.ID, Title: "x", Status: model.TaskPending, Urgency: model.UrgencyLow, Source: model.SourceManual}
	require.NoError(t, r.tasks.Create(ctx, []*model.Task{task}))

	done := model.TaskDone
	_, err := r.tasks.Update(ctx, u.ID, task.ID, model.TaskPatch{Status: &done})
	assert.ErrorIs(t, err, model.ErrInvalidInput)

	waiting := model.TaskWaiting
	on := "Sam"
	got, err := r.tasks.Update(ctx, u.ID, task.ID, model.TaskPatch{Status: &waiting, WaitingOn: &on})
	require.NoError(t, err)
	assert.Equal(t, "Sam", got.WaitingOn)
}

func TestHabitCheckAndStats(t *testing.T) {
	r, u := setup(t)
	ctx := context.Background()
	h := &model.Habit{UserID: u.ID, Title: "Meds"}
	require.NoError(t, r.habits.Insert(ctx, h))

	day1 := time.Date(2024, 5, 1, 9, 0, 0, 0, time.UTC)
	got, checked, err := r.habits.Check(ctx, u.ID, h.ID, day1)
	require.NoError(t, err)
	assert.True(t, checked)
	assert.Equal(t, 1, got.CurrentStreak)

	_, checked, err = r.habits.Check(ctx, u.ID, h.ID, day1.Add(3*time.Hour))
	require.NoError(t, err)
	assert.False(t, checked)

	got, _, err = r.habits.Check(ctx, u.ID, h.ID, day1.AddDate(0, 0, 1))
	require.NoError(t, err)
	assert.Equal(t, 2, got.CurrentStreak)
	assert.Equal(t, 2, got.LongestStreak)

	n, err := r.habits.ResetBrokenStreaks(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)

	stats, err := r.stats.Award(ctx, u.ID, rewards.ReasonHabit, 120)
	require.NoError(t, err)
	assert.Equal(t, 120, stats.Points)
	assert.Equal(t, 2, stats.Level)
	assert.Equal(t, 1, stats.HabitsChecked)
}

func TestInsightDismissals(t *testing.T) {
	r, u := setup(t)
	ctx := context.Background()
	require.NoError(t, r.insights.Replace(ctx, u.ID, []model.Insight{
		{Kind: model.InsightMoodTrend, Title: "t", Body: "b"},
	}))
	list, err := r.insights.ListActive(ctx, u.ID)
	require.NoError(t, err)
	require.Len(t, list, 1)

	require.NoError(t, r.insights.Dismiss(ctx, u.ID, list[0].ID))
	assert.ErrorIs(t, r.insights.Dismiss(ctx, u.ID, list[0].ID), model.ErrNotFound)

	counts, err := r.insights.DismissalCounts(ctx, u.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, counts[model.InsightMoodTrend])

	mood := &model.MoodEntry{UserID: u.ID, Mood: 4, Energy: 3}
	require.NoError(t, r.moods.Insert(ctx, mood))
	moods, err := r.moods.ListSince(ctx, u.ID, time.Now().Add(-time.Hour))
	require.NoError(t, err)
	assert.Len(t, moods, 1)
}
