package mq

import "time"

// HabitCheckedPayload 习惯打卡事件
type HabitCheckedPayload struct {
	EventID   string    `json:"event_id"`
	TraceID   string    `json:"trace_id,omitempty"`
	UserID    int64     `json:"user_id"`
	HabitID   int64     `json:"habit_id"`
	Streak    int       `json:"streak"`
	CheckedOn string    `json:"checked_on"` // YYYY-MM-DD
	At        time.Time `json:"at"`
}

// MoodLoggedPayload 心情记录事件
type MoodLoggedPayload struct {
	EventID string    `json:"event_id"`
	TraceID string    `json:"trace_id,omitempty"`
	UserID  int64     `json:"user_id"`
	EntryID int64     `json:"entry_id"`
	Mood    int       `json:"mood"`
	Energy  int       `json:"energy"`
	At      time.Time `json:"at"`
}
