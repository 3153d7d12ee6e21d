package planner

import (
	"testing"
	"time"

	"github.com/basket/go-study/internal/persistence"
)

func TestHorizonDays(t *testing.T) {
	today := time.Date(2026, 9, 1, 14, 30, 0, 0, time.UTC)

	tests := []struct {
		name      string
		deadlines []string
		want      int
	}{
		{"no tasks", nil, 7},
		{"no deadlines", []string{"", ""}, 7},
		{"deadline in five days", []string{"2026-09-06"}, 6},
		{"deadline today", []string{"2026-09-01"}, 1},
		{"deadline tomorrow", []string{"2026-09-02"}, 2},
		{"nearest wins", []string{"2026-09-20", "2026-09-03", "2026-09-10"}, 3},
		{"past deadlines ignored", []string{"2026-08-01", "2026-09-05"}, 5},
		{"all past falls back to default", []string{"2026-08-01", "2026-07-15"}, 7},
		{"unparseable ignored", []string{"soon", "09/05/2026", "2026-09-04"}, 4},
		{"only unparseable falls back", []string{"whenever"}, 7},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var tasks []persistence.Task
			for _, d := range tt.deadlines {
				tasks = append(tasks, persistence.Task{Subject: "t", Deadline: d})
			}
			if got := HorizonDays(tasks, today); got != tt.want {
				t.Errorf("expected %d days, got %d", tt.want, got)
			}
		})
	}
}
