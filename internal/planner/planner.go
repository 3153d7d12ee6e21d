// Package planner derives planning horizons from task deadlines and drives
// AI study-plan and subtask generation.
package planner

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/basket/go-study/internal/persistence"
)

// noTasksReply is returned when plan generation is requested with an empty
// task set; no model call is made.
const noTasksReply = "No tasks available to generate a study plan."

// Assistant is the slice of the engine the planner needs.
type Assistant interface {
	GenerateResponse(ctx context.Context, input string) string
}

// Service composes planning prompts, sends them through the assistant, and
// persists the generated replies into the chat transcript.
type Service struct {
	store     *persistence.Store
	assistant Assistant
	logger    *slog.Logger

	// now is swappable for tests.
	now func() time.Time
}

func NewService(store *persistence.Store, assistant Assistant, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{
		store:     store,
		assistant: assistant,
		logger:    logger,
		now:       time.Now,
	}
}

// GeneratePlan builds a horizon-bounded study plan across all tasks. The
// reply is persisted as an agent chat message. With zero tasks it
// short-circuits with a fixed response and makes no model call.
func (s *Service) GeneratePlan(ctx context.Context) (string, error) {
	tasks, err := s.store.ListTasks(ctx)
	if err != nil {
		return "", fmt.Errorf("list tasks: %w", err)
	}
	if len(tasks) == 0 {
		return noTasksReply, nil
	}

	days := HorizonDays(tasks, s.now())
	prompt := PlanPrompt(tasks, days)

	reply := s.assistant.GenerateResponse(ctx, prompt)

	framed := fmt.Sprintf("[Generated %d-Day Study Plan]\n%s", days, reply)
	if err := s.store.SaveChat(ctx, "agent", framed); err != nil {
		return "", fmt.Errorf("save plan to chat: %w", err)
	}

	s.logger.Info("study plan generated", "horizon_days", days, "tasks", len(tasks))
	return reply, nil
}

// SuggestSubtasks breaks one task into actionable subtasks. An unknown id
// returns persistence.ErrNotFound without invoking the assistant.
func (s *Service) SuggestSubtasks(ctx context.Context, taskID int64) (string, error) {
	task, err := s.store.GetTask(ctx, taskID)
	if err != nil {
		return "", err
	}

	reply := s.assistant.GenerateResponse(ctx, SubtaskPrompt(*task))

	framed := fmt.Sprintf("[Subtasks for: %s]\n%s", task.Subject, reply)
	if err := s.store.SaveChat(ctx, "agent", framed); err != nil {
		return "", fmt.Errorf("save subtasks to chat: %w", err)
	}

	s.logger.Info("subtasks suggested", "task_id", taskID, "subject", task.Subject)
	return reply, nil
}
