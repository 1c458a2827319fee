package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"gather/internal/model"
)

type UserService struct {
	users UserStore
	stats StatsStore
}

func NewUserService(users UserStore, stats StatsStore) *UserService {
	return &UserService{users: users, stats: stats}
}

func (s *UserService) Me(ctx context.Context, userID int64) (*model.User, error) {
	return s.users.FindByID(ctx, userID)
}

func (s *UserService) Preferences(ctx context.Context, userID int64) (*model.Preferences, error) {
	return s.users.GetPreferences(ctx, userID)
}

type PreferencesInput struct {
	OnboardingComplete *bool   `json:"onboarding_complete"`
	Timezone           *string `json:"timezone"`
}

func (s *UserService) UpdatePreferences(ctx context.Context, userID int64, in PreferencesInput) (*model.Preferences, error) {
	p, err := s.users.GetPreferences(ctx, userID)
	if err != nil {
		return nil, err
	}
	if in.OnboardingComplete != nil {
		p.OnboardingComplete = *in.OnboardingComplete
	}
	if in.Timezone != nil {
		tz := strings.TrimSpace(*in.Timezone)
		if _, err := time.LoadLocation(tz); err != nil || tz == "" {
			return nil, fmt.Errorf("%w: unknown timezone %q", model.ErrInvalidInput, tz)
		}
		p.Timezone = tz
	}
	if err := s.users.UpdatePreferences(ctx, p); err != nil {
		return nil, err
	}
	return p, nil
}

func (s *UserService) Stats(ctx context.Context, userID int64) (*model.UserStats, error) {
	return s.stats.Get(ctx, userID)
}

// localNow returns the current time in the user's timezone.
func localNow(ctx context.Context, users UserStore, userID int64, now time.Time) time.Time {
	p, err := users.GetPreferences(ctx, userID)
	if err != nil {
		return now.UTC()
	}
	return now.In(p.Location())
}
