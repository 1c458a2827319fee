package intelligence

import (
	"math"
	"time"

	"gather/internal/model"
)

type TrendDirection string

const (
	TrendUp   TrendDirection = "up"
	TrendDown TrendDirection = "down"
	TrendFlat TrendDirection = "flat"
)

const flatThreshold = 0.5

type MoodTrendReport struct {
	RecentAverage   float64        `json:"recent_average"`
	PreviousAverage float64        `json:"previous_average"`
	Delta           float64        `json:"delta"`
	Direction       TrendDirection `json:"direction"`
	RecentCount     int            `json:"recent_count"`
	PreviousCount   int            `json:"previous_count"`
}

// MoodTrend compares the average mood of the last 7 days with the 7 days
// before. ok is false when either window is empty.
func MoodTrend(entries []model.MoodEntry, now time.Time) (MoodTrendReport, bool) {
	week := 7 * 24 * time.Hour
	recentStart := now.Add(-week)
	prevStart := now.Add(-2 * week)

	var r MoodTrendReport
	var recentSum, prevSum int
	for _, e := range entries {
		switch {
		case e.CreatedAt.After(now):
		case !e.CreatedAt.Before(recentStart):
			recentSum += e.Mood
			r.RecentCount++
		case !e.CreatedAt.Before(prevStart):
			prevSum += e.Mood
			r.PreviousCount++
		}
	}
	if r.RecentCount == 0 || r.PreviousCount == 0 {
		return r, false
	}
	r.RecentAverage = float64(recentSum) / float64(r.RecentCount)
	r.PreviousAverage = float64(prevSum) / float64(r.PreviousCount)
	r.Delta = r.RecentAverage - r.PreviousAverage
	switch {
	case math.Abs(r.Delta) < flatThreshold:
		r.Direction = TrendFlat
	case r.Delta > 0:
		r.Direction = TrendUp
	default:
		r.Direction = TrendDown
	}
	return r, true
}
