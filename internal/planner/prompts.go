package planner

import (
	"fmt"
	"strings"

	"github.com/basket/go-study/internal/persistence"
)

// PlanPrompt composes the instruction requesting a structured multi-day
// study schedule covering every task within the horizon.
func PlanPrompt(tasks []persistence.Task, days int) string {
	var lines []string
	for _, t := range tasks {
		deadline := t.Deadline
		if deadline == "" {
			deadline = "N/A"
		}
		state := "Pending"
		if t.Completed {
			state = "Done"
		}
		lines = append(lines, fmt.Sprintf("- %s: %s (Deadline: %s) [%s]", t.Subject, t.Description, deadline, state))
	}

	return fmt.Sprintf(
		"You are a helpful study planner AI. Based on the following tasks, "+
			"generate a structured %d-day study schedule that ensures completion before deadlines. "+
			"Distribute work across the %d days, balancing topics to avoid overload.\n\nTasks:\n%s",
		days, days, strings.Join(lines, "\n"),
	)
}

// SubtaskPrompt composes the instruction requesting a markdown checklist of
// actionable subtasks for one task.
func SubtaskPrompt(t persistence.Task) string {
	return fmt.Sprintf(
		"Break down this study task into clear, actionable subtasks and estimated times:\n\n"+
			"Task: %s\nDescription: %s\n\n"+
			"Return a markdown list of subtasks with estimated durations (e.g. - Revise Chapter 1 — 45 mins).",
		t.Subject, t.Description,
	)
}
