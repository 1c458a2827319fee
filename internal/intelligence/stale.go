package intelligence

import (
	"time"

	"gather/internal/model"
)

const StaleAfter = 7 * 24 * time.Hour

// StaleTasks returns open tasks that have not been touched for StaleAfter.
func StaleTasks(tasks []model.Task, now time.Time) []model.Task {
	var out []model.Task
	for _, t := range tasks {
		if !t.Status.Open() {
			continue
		}
		if now.Sub(t.UpdatedAt) >= StaleAfter {
			out = append(out, t)
		}
	}
	return out
}
