package model

import "time"

type MoodEntry struct {
	ID        int64     `json:"id"`
	UserID    int64     `json:"user_id"`
	Mood      int       `json:"mood"`   // 1..5
	Energy    int       `json:"energy"` // 1..5
	Note      string    `json:"note"`
	CreatedAt time.Time `json:"created_at"`
}
