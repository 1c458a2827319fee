package model

import (
	"encoding/json"
	"time"
)

type InsightKind string

const (
	InsightProductiveHours InsightKind = "productive_hours"
	InsightProductiveDay   InsightKind = "productive_day"
	InsightStaleTasks      InsightKind = "stale_tasks"
	InsightMoodTrend       InsightKind = "mood_trend"
)

// MaxDismissals is how often a user can dismiss a kind before it stops
// being generated for them.
const MaxDismissals = 3

type Insight struct {
	ID          int64           `json:"id"`
	UserID      int64           `json:"user_id"`
	Kind        InsightKind     `json:"kind"`
	Title       string          `json:"title"`
	Body        string          `json:"body"`
	Data        json.RawMessage `json:"data,omitempty"`
	CreatedAt   time.Time       `json:"created_at"`
	DismissedAt *time.Time      `json:"dismissed_at,omitempty"`
}
