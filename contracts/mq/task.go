package mq

import "time"

// Routing keys published through the outbox.
const (
	RoutingTaskCreated   = "task.created"
	RoutingTaskCompleted = "task.completed"
	RoutingStepCompleted = "step.completed"
	RoutingHabitChecked  = "habit.checked"
	RoutingMoodLogged    = "mood.logged"
)

// TaskCreatedPayload 任务创建事件
type TaskCreatedPayload struct {
	EventID string    `json:"event_id"`
	TraceID string    `json:"trace_id,omitempty"`
	UserID  int64     `json:"user_id"`
	TaskID  int64     `json:"task_id"`
	Source  string    `json:"source"`
	Urgency string    `json:"urgency"`
	At      time.Time `json:"at"`
}

// TaskCompletedPayload 任务完成事件
type TaskCompletedPayload struct {
	EventID     string    `json:"event_id"`
	TraceID     string    `json:"trace_id,omitempty"`
	UserID      int64     `json:"user_id"`
	TaskID      int64     `json:"task_id"`
	StepCount   int       `json:"step_count"`
	CompletedAt time.Time `json:"completed_at"`
}

// StepCompletedPayload 步骤完成事件
type StepCompletedPayload struct {
	EventID     string    `json:"event_id"`
	TraceID     string    `json:"trace_id,omitempty"`
	UserID      int64     `json:"user_id"`
	TaskID      int64     `json:"task_id"`
	StepID      int64     `json:"step_id"`
	CompletedAt time.Time `json:"completed_at"`
}
