package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"gather/internal/model"
)

const (
	DefaultMoodDays = 14
	MaxMoodDays     = 90
	maxMoodNote     = 1000
)

type MoodService struct {
	moods MoodStore
	now   func() time.Time
}

func NewMoodService(moods MoodStore) *MoodService {
	return &MoodService{moods: moods, now: time.Now}
}

type MoodInput struct {
	Mood   int    `json:"mood"`
	Energy int    `json:"energy"`
	Note   string `json:"note"`
}

func (s *MoodService) Log(ctx context.Context, userID int64, in MoodInput) (*model.MoodEntry, error) {
	if in.Mood < 1 || in.Mood > 5 {
		return nil, fmt.Errorf("%w: mood must be between 1 and 5", model.ErrInvalidInput)
	}
	if in.Energy == 0 {
		in.Energy = 3
	}
	if in.Energy < 1 || in.Energy > 5 {
		return nil, fmt.Errorf("%w: energy must be between 1 and 5", model.ErrInvalidInput)
	}
	note := strings.TrimSpace(in.Note)
	if len(note) > maxMoodNote {
		return nil, fmt.Errorf("%w: note too long", model.ErrInvalidInput)
	}
	m := &model.MoodEntry{UserID: userID, Mood: in.Mood, Energy: in.Energy, Note: note}
	if err := s.moods.Insert(ctx, m); err != nil {
		return nil, err
	}
	return m, nil
}

// List returns entries from the last days days; 0 means the default.
func (s *MoodService) List(ctx context.Context, userID int64, days int) ([]model.MoodEntry, error) {
	switch {
	case days == 0:
		days = DefaultMoodDays
	case days < 0 || days > MaxMoodDays:
		return nil, fmt.Errorf("%w: days must be between 1 and %d", model.ErrInvalidInput, MaxMoodDays)
	}
	return s.moods.ListSince(ctx, userID, s.now().AddDate(0, 0, -days))
}
