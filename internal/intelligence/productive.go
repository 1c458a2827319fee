package intelligence

import (
	"fmt"
	"sort"
	"time"
)

// MinCompletionsForSuggestion is the sample size below which no
// productivity suggestion is made.
const MinCompletionsForSuggestion = 5

type HourCount struct {
	Hour  int `json:"hour"`
	Count int `json:"count"`
}

type ProductiveHoursReport struct {
	ByHour     [24]int      `json:"by_hour"`
	ByWeekday  [7]int       `json:"by_weekday"`
	TopHours   []HourCount  `json:"top_hours"`
	BestDay    time.Weekday `json:"best_day"`
	Total      int          `json:"total"`
	Suggestion string       `json:"suggestion,omitempty"`
}

// ProductiveHours buckets completion timestamps in loc by hour of day and
// weekday.
func ProductiveHours(completions []time.Time, loc *time.Location) ProductiveHoursReport {
	if loc == nil {
		loc = time.UTC
	}
	var r ProductiveHoursReport
	for _, c := range completions {
		lt := c.In(loc)
		r.ByHour[lt.Hour()]++
		r.ByWeekday[lt.Weekday()]++
		r.Total++
	}
	if r.Total == 0 {
		return r
	}

	hours := make([]HourCount, 0, 24)
	for h, n := range r.ByHour {
		if n > 0 {
			hours = append(hours, HourCount{Hour: h, Count: n})
		}
	}
	sort.SliceStable(hours, func(i, j int) bool {
		if hours[i].Count != hours[j].Count {
			return hours[i].Count > hours[j].Count
		}
		return hours[i].Hour < hours[j].Hour
	})
	if len(hours) > 3 {
		hours = hours[:3]
	}
	r.TopHours = hours

	for d := 1; d < 7; d++ {
		if r.ByWeekday[d] > r.ByWeekday[r.BestDay] {
			r.BestDay = time.Weekday(d)
		}
	}

	if r.Total >= MinCompletionsForSuggestion {
		r.Suggestion = fmt.Sprintf("You get the most done around %s, especially on %ss. Try saving harder tasks for then.",
			FormatHour(r.TopHours[0].Hour), r.BestDay)
	}
	return r
}

// FormatHour renders an hour of day as "9am" / "3pm".
func FormatHour(h int) string {
	switch {
	case h == 0:
		return "12am"
	case h < 12:
		return fmt.Sprintf("%dam", h)
	case h == 12:
		return "12pm"
	default:
		return fmt.Sprintf("%dpm", h-12)
	}
}
