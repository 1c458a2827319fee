package model

import "time"

type Habit struct {
	ID            int64      `json:"id"`
	UserID        int64      `json:"user_id"`
	Title         string     `json:"title"`
	IsActive      bool       `json:"is_active"`
	CurrentStreak int        `json:"current_streak"`
	LongestStreak int        `json:"longest_streak"`
	LastCheckedOn *time.Time `json:"last_checked_on,omitempty"`
	CheckedToday  bool       `json:"checked_today"`
	CreatedAt     time.Time  `json:"created_at"`
}
