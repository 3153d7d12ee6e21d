package planner

import (
	"time"

	"github.com/basket/go-study/internal/persistence"
)

const (
	deadlineLayout = "2006-01-02"

	// defaultHorizonDays applies when no task has a usable deadline.
	defaultHorizonDays = 7
)

// HorizonDays derives the recommended planning horizon from task deadlines.
// Deadlines that do not parse as YYYY-MM-DD, or that are already past,
// are ignored. The nearest remaining deadline sets the horizon, plus one
// day so the deadline day itself is usable. Minimum horizon is one day.
func HorizonDays(tasks []persistence.Task, today time.Time) int {
	today = truncateToDate(today)

	minDays := -1
	for _, t := range tasks {
		if t.Deadline == "" {
			continue
		}
		deadline, err := time.Parse(deadlineLayout, t.Deadline)
		if err != nil {
			continue
		}
		diff := int(deadline.Sub(today).Hours() / 24)
		if diff < 0 {
			continue
		}
		if minDays < 0 || diff < minDays {
			minDays = diff
		}
	}

	if minDays < 0 {
		return defaultHorizonDays
	}
	return max(1, minDays+1)
}

func truncateToDate(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}
