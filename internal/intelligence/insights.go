package intelligence

import (
	"encoding/json"
	"fmt"
	"time"

	"gather/internal/model"
)

// InsightInput is everything insight generation looks at for one user.
type InsightInput struct {
	Tasks       []model.Task
	Completions []time.Time
	Moods       []model.MoodEntry
	Location    *time.Location
	Now         time.Time
	// Dismissals counts how often each kind was dismissed.
	Dismissals map[model.InsightKind]int
}

// Insights derives the current insight set. Kinds dismissed MaxDismissals
// times or more are skipped.
func Insights(in InsightInput) []model.Insight {
	var out []model.Insight
	add := func(kind model.InsightKind, title, body string, data any) {
		if in.Dismissals[kind] >= model.MaxDismissals {
			return
		}
		raw, err := json.Marshal(data)
		if err != nil {
			raw = nil
		}
		out = append(out, model.Insight{Kind: kind, Title: title, Body: body, Data: raw, CreatedAt: in.Now})
	}

	if r := ProductiveHours(in.Completions, in.Location); r.Suggestion != "" {
		add(model.InsightProductiveHours, "Your power hours",
			fmt.Sprintf("You get the most done around %s. Try saving harder tasks for then.", FormatHour(r.TopHours[0].Hour)),
			r.TopHours)
		add(model.InsightProductiveDay, fmt.Sprintf("%ss are your day", r.BestDay),
			fmt.Sprintf("You finish more on %ss than any other day.", r.BestDay),
			map[string]any{"best_day": r.BestDay.String(), "by_weekday": r.ByWeekday})
	}

	if stale := StaleTasks(in.Tasks, in.Now); len(stale) > 0 {
		type staleRef struct {
			ID    int64  `json:"id"`
			Title string `json:"title"`
		}
		refs := make([]staleRef, 0, len(stale))
		for _, t := range stale {
			refs = append(refs, staleRef{ID: t.ID, Title: t.Title})
		}
		body := "One task hasn't moved in a week. Want to break it down or let it go?"
		if len(stale) > 1 {
			body = fmt.Sprintf("%d tasks haven't moved in a week. Want to break one down or let it go?", len(stale))
		}
		add(model.InsightStaleTasks, "Some tasks are gathering dust", body, refs)
	}

	if trend, ok := MoodTrend(in.Moods, in.Now); ok {
		var body string
		switch trend.Direction {
		case TrendUp:
			body = "Your mood is up compared to last week. Nice."
		case TrendDown:
			body = "Your mood dipped compared to last week. Go easy on yourself."
		default:
			body = "Your mood has been steady over the last two weeks."
		}
		add(model.InsightMoodTrend, "Mood check", body, trend)
	}
	return out
}
