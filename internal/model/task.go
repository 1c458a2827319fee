package model

import "time"

type TaskStatus string

const (
	TaskPending    TaskStatus = "pending"
	TaskInProgress TaskStatus = "in_progress"
	TaskWaiting    TaskStatus = "waiting"
	TaskDone       TaskStatus = "done"
	TaskOverdue    TaskStatus = "overdue"
)

func (s TaskStatus) Valid() bool {
	switch s {
	case TaskPending, TaskInProgress, TaskWaiting, TaskDone, TaskOverdue:
		return true
	}
	return false
}

// Open reports whether the task still needs doing.
func (s TaskStatus) Open() bool {
	return s != TaskDone
}

type Urgency string

const (
	UrgencyLow    Urgency = "low"
	UrgencyNormal Urgency = "normal"
	UrgencyHigh   Urgency = "high"
	UrgencyUrgent Urgency = "urgent"
)

// Rank orders urgencies from low (0) to urgent (3).
func (u Urgency) Rank() int {
	switch u {
	case UrgencyLow:
		return 0
	case UrgencyHigh:
		return 2
	case UrgencyUrgent:
		return 3
	default:
		return 1
	}
}

func (u Urgency) Valid() bool {
	switch u {
	case UrgencyLow, UrgencyNormal, UrgencyHigh, UrgencyUrgent:
		return true
	}
	return false
}

type TaskSource string

const (
	SourceManual    TaskSource = "manual"
	SourceBrainDump TaskSource = "brain_dump"
	SourceChat      TaskSource = "chat"
	SourceAI        TaskSource = "ai"
)

type Task struct {
	ID          int64      `json:"id"`
	UserID      int64      `json:"user_id"`
	Title       string     `json:"title"`
	Notes       string     `json:"notes"`
	Status      TaskStatus `json:"status"`
	Urgency     Urgency    `json:"urgency"`
	WaitingOn   string     `json:"waiting_on,omitempty"`
	ContextTags []string   `json:"context_tags"`
	Source      TaskSource `json:"source"`
	DueAt       *time.Time `json:"due_at,omitempty"`
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`
	CompletedAt *time.Time `json:"completed_at,omitempty"`
	Steps       []Step     `json:"steps"`
}

// Step is an atomic, completable unit of a Task.
type Step struct {
	ID          int64      `json:"id"`
	TaskID      int64      `json:"task_id"`
	Position    int        `json:"position"`
	Text        string     `json:"text"`
	Done        bool       `json:"done"`
	CompletedAt *time.Time `json:"completed_at,omitempty"`
	SourceURL   string     `json:"source_url,omitempty"`
}

// TaskPatch carries the mutable fields of a task; nil means unchanged.
type TaskPatch struct {
	Title       *string     `json:"title"`
	Notes       *string     `json:"notes"`
	Status      *TaskStatus `json:"status"`
	Urgency     *Urgency    `json:"urgency"`
	WaitingOn   *string     `json:"waiting_on"`
	ContextTags *[]string   `json:"context_tags"`
	DueAt       *time.Time  `json:"due_at"`
}

// StepDraft is a step before it is stored.
type StepDraft struct {
	Text      string `json:"text"`
	SourceURL string `json:"source_url,omitempty"`
}

// AllStepsDone reports whether every step is complete. A task without
// steps has nothing to derive completion from and returns false.
func (t *Task) AllStepsDone() bool {
	if len(t.Steps) == 0 {
		return false
	}
	for _, s := range t.Steps {
		if !s.Done {
			return false
		}
	}
	return true
}

// FallbackSteps is used whenever step generation is unavailable.
func FallbackSteps() []StepDraft {
	return []StepDraft{
		{Text: "Get out what you need for this"},
		{Text: "Do the smallest first piece (just 5 minutes)"},
		{Text: "Keep going with the next small piece"},
		{Text: "Check it over and mark it done"},
	}
}

// ToggleResult describes the side effects of flipping a step.
type ToggleResult struct {
	Task          *Task `json:"task"`
	StepDone      bool  `json:"step_done"`
	TaskCompleted bool  `json:"task_completed"`
	TaskReopened  bool  `json:"task_reopened"`
}
