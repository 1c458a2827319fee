// Package demo serves a fixed, read-only sample account so the app can be
// explored without signing up. All timestamps are relative to the request.
package demo

import (
	"fmt"
	"time"

	"gather/internal/intelligence"
	"gather/internal/model"
)

const UserID int64 = 0

func ago(now time.Time, d time.Duration) *time.Time {
	t := now.Add(-d)
	return &t
}

const day = 24 * time.Hour

func Tasks(now time.Time) []model.Task {
	due := now.Add(6 * time.Hour)
	tasks := []model.Task{
		{
			ID: 1, Title: "Call the dentist to reschedule", Status: model.TaskPending,
			Urgency: model.UrgencyUrgent, Source: model.SourceBrainDump,
			ContextTags: []string{"phone"}, DueAt: &due,
			CreatedAt: now.Add(-2 * day), UpdatedAt: now.Add(-2 * day),
			Steps: []model.Step{
				{ID: 1, TaskID: 1, Position: 0, Text: "Find the dentist's number"},
				{ID: 2, TaskID: 1, Position: 1, Text: "Check your calendar for free slots"},
				{ID: 3, TaskID: 1, Position: 2, Text: "Make the call"},
			},
		},
		{
			ID: 2, Title: "Clean the kitchen", Status: model.TaskInProgress,
			Urgency: model.UrgencyNormal, Source: model.SourceChat,
			ContextTags: []string{"home"},
			CreatedAt:   now.Add(-1 * day), UpdatedAt: now.Add(-3 * time.Hour),
			Steps: []model.Step{
				{ID: 4, TaskID: 2, Position: 0, Text: "Clear the counter", Done: true, CompletedAt: ago(now, 3*time.Hour)},
				{ID: 5, TaskID: 2, Position: 1, Text: "Load the dishwasher", Done: true, CompletedAt: ago(now, 3*time.Hour)},
				{ID: 6, TaskID: 2, Position: 2, Text: "Wipe down surfaces"},
				{ID: 7, TaskID: 2, Position: 3, Text: "Take out the trash"},
			},
		},
		{
			ID: 3, Title: "Tax refund", Status: model.TaskWaiting,
			Urgency: model.UrgencyNormal, WaitingOn: "the accountant", Source: model.SourceManual,
			CreatedAt: now.Add(-10 * day), UpdatedAt: now.Add(-9 * day),
		},
		{
			ID: 4, Title: "Find a pottery class", Status: model.TaskPending,
			Urgency: model.UrgencyLow, Source: model.SourceBrainDump,
			ContextTags: []string{"computer"},
			CreatedAt:   now.Add(-12 * day), UpdatedAt: now.Add(-12 * day),
			Steps: []model.Step{
				{ID: 8, TaskID: 4, Position: 0, Text: "Search for studios nearby", SourceURL: "https://www.google.com/maps/search/pottery+class"},
				{ID: 9, TaskID: 4, Position: 1, Text: "Compare prices and times"},
				{ID: 10, TaskID: 4, Position: 2, Text: "Sign up for a trial"},
			},
		},
	}
	for i, h := range []time.Duration{26, 50, 73, 98, 122, 146} {
		completed := now.Add(-h * time.Hour)
		tasks = append(tasks, model.Task{
			ID: int64(10 + i), Title: fmt.Sprintf("Finished errand %d", i+1), Status: model.TaskDone,
			Urgency: model.UrgencyNormal, Source: model.SourceManual,
			CreatedAt: completed.Add(-day), UpdatedAt: completed, CompletedAt: &completed,
		})
	}
	for i := range tasks {
		tasks[i].UserID = UserID
		if tasks[i].ContextTags == nil {
			tasks[i].ContextTags = []string{}
		}
		if tasks[i].Steps == nil {
			tasks[i].Steps = []model.Step{}
		}
	}
	return tasks
}

func Habits(now time.Time) []model.Habit {
	return []model.Habit{
		{ID: 1, UserID: UserID, Title: "Take meds", IsActive: true, CurrentStreak: 12, LongestStreak: 20,
			LastCheckedOn: ago(now, 0), CheckedToday: true, CreatedAt: now.Add(-60 * day)},
		{ID: 2, UserID: UserID, Title: "Drink a glass of water first thing", IsActive: true, CurrentStreak: 4, LongestStreak: 9,
			LastCheckedOn: ago(now, day), CreatedAt: now.Add(-30 * day)},
		{ID: 3, UserID: UserID, Title: "10 minute walk", IsActive: true, CurrentStreak: 0, LongestStreak: 3,
			CreatedAt: now.Add(-14 * day)},
	}
}

func Moods(now time.Time) []model.MoodEntry {
	moods := []int{2, 3, 2, 3, 3, 2, 3, 3, 4, 3, 4, 4, 5, 4}
	out := make([]model.MoodEntry, 0, len(moods))
	for i, m := range moods {
		daysAgo := len(moods) - i - 1
		out = append(out, model.MoodEntry{
			ID: int64(i + 1), UserID: UserID, Mood: m, Energy: max(1, m-1),
			CreatedAt: now.Add(-time.Duration(daysAgo)*day - time.Hour),
		})
	}
	return out
}

// Insights derives insights from the demo data the same way they are
// derived for real accounts.
func Insights(now time.Time) []model.Insight {
	tasks := Tasks(now)
	var completions []time.Time
	for _, t := range tasks {
		if t.CompletedAt != nil {
			completions = append(completions, *t.CompletedAt)
		}
	}
	out := intelligence.Insights(intelligence.InsightInput{
		Tasks:       tasks,
		Completions: completions,
		Moods:       Moods(now),
		Location:    time.UTC,
		Now:         now,
	})
	for i := range out {
		out[i].ID = int64(i + 1)
		out[i].UserID = UserID
	}
	return out
}
