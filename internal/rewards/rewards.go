// Package rewards holds the point, level and streak rules.
package rewards

import "time"

const (
	PointsPerStep       = 2
	PointsPerTask       = 10
	BonusForStepTask    = 5
	PointsPerHabitCheck = 5
	MaxHabitStreakBonus = 10
	PointsPerLevel      = 100
)

type Reason string

const (
	ReasonStep  Reason = "step"
	ReasonTask  Reason = "task"
	ReasonHabit Reason = "habit"
)

func StepPoints() int { return PointsPerStep }

// TaskPoints rewards breaking a task down before finishing it.
func TaskPoints(hadSteps bool) int {
	if hadSteps {
		return PointsPerTask + BonusForStepTask
	}
	return PointsPerTask
}

func HabitPoints(streak int) int {
	if streak < 0 {
		streak = 0
	}
	return PointsPerHabitCheck + min(streak, MaxHabitStreakBonus)
}

func Level(points int) int {
	if points < 0 {
		points = 0
	}
	return 1 + points/PointsPerLevel
}

// StreakUpdate is the result of checking a habit on a given day.
type StreakUpdate struct {
	Current   int
	Longest   int
	CheckedOn time.Time
	// Changed is false when the habit was already checked that day.
	Changed bool
}

// NextStreak applies a check on day today (a calendar date in the user's
// timezone) to a habit last checked on lastChecked.
func NextStreak(current, longest int, lastChecked *time.Time, today time.Time) StreakUpdate {
	today = Date(today)
	up := StreakUpdate{Current: current, Longest: longest, CheckedOn: today}
	if lastChecked != nil {
		last := Date(*lastChecked)
		switch {
		case last.Equal(today):
			return up
		case last.AddDate(0, 0, 1).Equal(today):
			up.Current = current + 1
		default:
			up.Current = 1
		}
	} else {
		up.Current = 1
	}
	if up.Current > up.Longest {
		up.Longest = up.Current
	}
	up.Changed = true
	return up
}

// StreakBroken reports whether a streak should be reset to zero because
// neither today nor yesterday was checked.
func StreakBroken(lastChecked *time.Time, today time.Time) bool {
	if lastChecked == nil {
		return false
	}
	yesterday := Date(today).AddDate(0, 0, -1)
	return Date(*lastChecked).Before(yesterday)
}

// Date truncates t to midnight UTC of its calendar date in t's location.
func Date(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}
