package model

import "time"

type User struct {
	ID           int64     `json:"id"`
	Email        string    `json:"email"`
	PasswordHash string    `json:"-"`
	DisplayName  string    `json:"display_name"`
	Role         string    `json:"role"`
	CreatedAt    time.Time `json:"created_at"`
}

type Preferences struct {
	UserID             int64     `json:"user_id"`
	OnboardingComplete bool      `json:"onboarding_complete"`
	Timezone           string    `json:"timezone"`
	UpdatedAt          time.Time `json:"updated_at"`
}

// Location resolves the preferred timezone, falling back to UTC.
func (p Preferences) Location() *time.Location {
	if p.Timezone == "" {
		return time.UTC
	}
	loc, err := time.LoadLocation(p.Timezone)
	if err != nil {
		return time.UTC
	}
	return loc
}

type UserStats struct {
	UserID         int64     `json:"user_id"`
	Points         int       `json:"points"`
	Level          int       `json:"level"`
	TasksCompleted int       `json:"tasks_completed"`
	StepsCompleted int       `json:"steps_completed"`
	HabitsChecked  int       `json:"habits_checked"`
	UpdatedAt      time.Time `json:"updated_at"`
}
