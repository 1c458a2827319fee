package service

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"

	"gather/internal/conversation"
	"gather/internal/llm"
	"gather/internal/model"
	"gather/internal/rewards"
	"gather/internal/search"
)

type fakeUsers struct {
	mu     sync.Mutex
	byID   map[int64]*model.User
	prefs  map[int64]*model.Preferences
	nextID int64
}

func newFakeUsers() *fakeUsers {
	return &fakeUsers{byID: map[int64]*model.User{}, prefs: map[int64]*model.Preferences{}}
}

func (f *fakeUsers) Create(_ context.Context, u *model.User) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, existing := range f.byID {
		if existing.Email == u.Email {
			return model.ErrConflict
		}
	}
	f.nextID++
	u.ID = f.nextID
	cp := *u
	f.byID[u.ID] = &cp
	f.prefs[u.ID] = &model.Preferences{UserID: u.ID, Timezone: "UTC"}
	return nil
}

func (f *fakeUsers) FindByEmail(_ context.Context, email string) (*model.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, u := range f.byID {
		if u.Email == email {
			cp := *u
			return &cp, nil
		}
	}
	return nil, model.ErrNotFound
}

func (f *fakeUsers) FindByID(_ context.Context, id int64) (*model.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	u, ok := f.byID[id]
	if !ok {
		return nil, model.ErrNotFound
	}
	cp := *u
	return &cp, nil
}

func (f *fakeUsers) GetPreferences(_ context.Context, userID int64) (*model.Preferences, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	p, ok := f.prefs[userID]
	if !ok {
		return &model.Preferences{UserID: userID, Timezone: "UTC"}, nil
	}
	cp := *p
	return &cp, nil
}

func (f *fakeUsers) UpdatePreferences(_ context.Context, p *model.Preferences) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	cp := *p
	f.prefs[p.UserID] = &cp
	return nil
}

type fakeTasks struct {
	mu      sync.Mutex
	tasks   map[int64]*model.Task
	nextID  int64
	history []string
	times   []time.Time
	// createErrs are returned by successive Create calls
	createErrs []error
}

func newFakeTasks() *fakeTasks { return &fakeTasks{tasks: map[int64]*model.Task{}} }

func (f *fakeTasks) Create(_ context.Context, tasks []*model.Task) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.createErrs) > 0 {
		err := f.createErrs[0]
		f.createErrs = f.createErrs[1:]
		if err != nil {
			return err
		}
	}
	for _, t := range tasks {
		f.nextID++
		t.ID = f.nextID
		for i := range t.Steps {
			t.Steps[i].ID = t.ID*100 + int64(i)
			t.Steps[i].TaskID = t.ID
			t.Steps[i].Position = i
		}
		cp := *t
		f.tasks[t.ID] = &cp
	}
	return nil
}

func (f *fakeTasks) Get(_ context.Context, userID, id int64) (*model.Task, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	t, ok := f.tasks[id]
	if !ok || t.UserID != userID {
		return nil, model.ErrNotFound
	}
	cp := *t
	return &cp, nil
}

func (f *fakeTasks) List(_ context.Context, userID int64, status model.TaskStatus) ([]model.Task, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []model.Task
	for _, t := range f.tasks {
		if t.UserID == userID && (status == "" || t.Status == status) {
			out = append(out, *t)
		}
	}
	return out, nil
}

func (f *fakeTasks) Update(ctx context.Context, userID, id int64, p model.TaskPatch) (*model.Task, error) {
	t, err := f.Get(ctx, userID, id)
	if err != nil {
		return nil, err
	}
	if p.Title != nil {
		t.Title = *p.Title
	}
	f.mu.Lock()
	f.tasks[id] = t
	f.mu.Unlock()
	return t, nil
}

func (f *fakeTasks) Delete(_ context.Context, userID, id int64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if t, ok := f.tasks[id]; !ok || t.UserID != userID {
		return model.ErrNotFound
	}
	delete(f.tasks, id)
	return nil
}

func (f *fakeTasks) ReplaceSteps(ctx context.Context, userID, taskID int64, drafts []model.StepDraft) (*model.Task, error) {
	t, err := f.Get(ctx, userID, taskID)
	if err != nil {
		return nil, err
	}
	t.Steps = nil
	for i, d := range drafts {
		t.Steps = append(t.Steps, model.Step{ID: int64(i + 1), TaskID: taskID, Position: i, Text: d.Text, SourceURL: d.SourceURL})
	}
	f.mu.Lock()
	f.tasks[taskID] = t
	f.mu.Unlock()
	return t, nil
}

func (f *fakeTasks) ToggleStep(ctx context.Context, userID, taskID, stepID int64) (*model.ToggleResult, error) {
	t, err := f.Get(ctx, userID, taskID)
	if err != nil {
		return nil, err
	}
	return &model.ToggleResult{Task: t}, nil
}

func (f *fakeTasks) Complete(ctx context.Context, userID, id int64) (*model.Task, bool, error) {
	t, err := f.Get(ctx, userID, id)
	if err != nil {
		return nil, false, err
	}
	if t.Status == model.TaskDone {
		return t, false, nil
	}
	now := time.Now()
	t.Status = model.TaskDone
	t.CompletedAt = &now
	f.mu.Lock()
	f.tasks[id] = t
	f.mu.Unlock()
	return t, true, nil
}

func (f *fakeTasks) CompletionTimes(context.Context, int64, time.Time) ([]time.Time, error) {
	return f.times, nil
}

func (f *fakeTasks) RecentCompletedTitles(context.Context, int64, int) ([]string, error) {
	return f.history, nil
}

type fakeAssistant struct {
	analysis   *llm.Analysis
	analyzeErr error
	steps      []model.StepDraft
	stepsErr   error
	chat       string
	cleaned    []string
	cleanErr   error

	mu       sync.Mutex
	stepReqs []llm.StepRequest
}

func (f *fakeAssistant) Analyze(context.Context, string) (*llm.Analysis, error) {
	if f.analyzeErr != nil {
		return nil, f.analyzeErr
	}
	return f.analysis, nil
}

func (f *fakeAssistant) GenerateSteps(_ context.Context, req llm.StepRequest) ([]model.StepDraft, error) {
	f.mu.Lock()
	f.stepReqs = append(f.stepReqs, req)
	f.mu.Unlock()
	if f.stepsErr != nil {
		return nil, f.stepsErr
	}
	return f.steps, nil
}

func (f *fakeAssistant) Chat(context.Context, []llm.Message, *model.Task) (string, error) {
	return f.chat, nil
}

func (f *fakeAssistant) ChatStream(context.Context, []llm.Message, *model.Task) (<-chan string, <-chan error, error) {
	deltas := make(chan string, len(f.chat)+1)
	errs := make(chan error, 1)
	for _, w := range strings.SplitAfter(f.chat, " ") {
		deltas <- w
	}
	close(deltas)
	close(errs)
	return deltas, errs, nil
}

func (f *fakeAssistant) CleanBrainDump(context.Context, string) ([]string, error) {
	return f.cleaned, f.cleanErr
}

type fakeSearcher struct {
	results []search.Result
	err     error
}

func (f *fakeSearcher) Search(context.Context, string) ([]search.Result, error) {
	return f.results, f.err
}

type fakeStats struct {
	mu     sync.Mutex
	points map[int64]int
	awards []rewards.Reason
}

func newFakeStats() *fakeStats { return &fakeStats{points: map[int64]int{}} }

func (f *fakeStats) Get(_ context.Context, userID int64) (*model.UserStats, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	p := f.points[userID]
	return &model.UserStats{UserID: userID, Points: p, Level: rewards.Level(p)}, nil
}

func (f *fakeStats) Award(ctx context.Context, userID int64, reason rewards.Reason, points int) (*model.UserStats, error) {
	f.mu.Lock()
	f.points[userID] += points
	f.awards = append(f.awards, reason)
	f.mu.Unlock()
	return f.Get(ctx, userID)
}

// memConversations keeps sessions in memory with the same ownership rules
// as the Redis store.
type memConversations struct {
	mu       sync.Mutex
	sessions map[string]*conversation.Session
	n        int
}

func newMemConversations() *memConversations {
	return &memConversations{sessions: map[string]*conversation.Session{}}
}

func (m *memConversations) Create(_ context.Context, userID int64) (*conversation.Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.n++
	s := conversation.NewSession(strings.Repeat("c", m.n), userID, time.Now())
	cp := *s
	m.sessions[s.ID] = &cp
	return s, nil
}

func (m *memConversations) Get(_ context.Context, id string, userID int64) (*conversation.Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.sessions[id]
	if !ok || s.UserID != userID {
		return nil, model.ErrNotFound
	}
	cp := *s
	return &cp, nil
}

func (m *memConversations) Apply(ctx context.Context, id string, userID int64, ev conversation.Event) (*conversation.Session, error) {
	s, err := m.Get(ctx, id, userID)
	if err != nil {
		return nil, err
	}
	if err := s.Apply(ev, time.Now()); err != nil {
		return nil, err
	}
	return s, m.Put(ctx, s)
}

func (m *memConversations) Put(_ context.Context, s *conversation.Session) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *s
	m.sessions[s.ID] = &cp
	return nil
}

var errBoom = errors.New("boom")
