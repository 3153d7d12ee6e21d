package persistence

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"
)

const (
	DefaultCategory = "General"
	DefaultPriority = "Medium"
)

// Task is a single study task. Deadline is an ISO calendar date string
// (YYYY-MM-DD) or empty when no deadline is set.
type Task struct {
	ID          int64     `json:"id"`
	Subject     string    `json:"subject"`
	Description string    `json:"description"`
	Deadline    string    `json:"deadline"`
	Completed   bool      `json:"completed"`
	Category    string    `json:"category"`
	Priority    string    `json:"priority"`
	CreatedAt   time.Time `json:"created_at"`
}

// NewTask carries the caller-supplied fields for AddTask. Subject is
// required (validated by the caller); the rest default when empty.
type NewTask struct {
	Subject     string
	Description string
	Deadline    string
	Category    string
	Priority    string
}

// TaskUpdate is a partial update: only non-nil fields are applied.
type TaskUpdate struct {
	Subject     *string
	Description *string
	Deadline    *string
	Category    *string
	Priority    *string
	Completed   *bool
}

// Stats summarizes the task set. Maps are non-nil even when empty.
type Stats struct {
	Total           int            `json:"total"`
	Completed       int            `json:"completed"`
	PercentComplete int            `json:"percent_complete"`
	ByPriority      map[string]int `json:"by_priority"`
	ByCategory      map[string]int `json:"by_category"`
}

func (s *Store) AddTask(ctx context.Context, t NewTask) error {
	if strings.TrimSpace(t.Subject) == "" {
		return fmt.Errorf("add task: subject must be non-empty")
	}
	if t.Category == "" {
		t.Category = DefaultCategory
	}
	if t.Priority == "" {
		t.Priority = DefaultPriority
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO tasks (subject, description, deadline, category, priority, created_at)
		VALUES (?, ?, ?, ?, ?, ?);
	`, t.Subject, t.Description, t.Deadline, t.Category, t.Priority, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("insert task: %w", err)
	}
	return nil
}

// ListTasks returns all tasks ordered for display: incomplete before
// complete, then priority descending (a plain textual sort, so "Medium"
// ranks above "High"), then deadline-bearing tasks before ones without,
// then by ascending deadline.
func (s *Store) ListTasks(ctx context.Context) ([]Task, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, subject, description, deadline, completed, category, priority, created_at
		FROM tasks
		ORDER BY completed ASC,
			priority DESC,
			CASE WHEN deadline = '' THEN 1 ELSE 0 END ASC,
			deadline ASC,
			id ASC;
	`)
	if err != nil {
		return nil, fmt.Errorf("query tasks: %w", err)
	}
	defer rows.Close()

	var out []Task
	for rows.Next() {
		var t Task
		if err := rows.Scan(&t.ID, &t.Subject, &t.Description, &t.Deadline, &t.Completed, &t.Category, &t.Priority, &t.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan task: %w", err)
		}
		out = append(out, t)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("task rows: %w", err)
	}
	return out, nil
}

func (s *Store) GetTask(ctx context.Context, id int64) (*Task, error) {
	var t Task
	err := s.db.QueryRowContext(ctx, `
		SELECT id, subject, description, deadline, completed, category, priority, created_at
		FROM tasks WHERE id = ?;
	`, id).Scan(&t.ID, &t.Subject, &t.Description, &t.Deadline, &t.Completed, &t.Category, &t.Priority, &t.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get task %d: %w", id, err)
	}
	return &t, nil
}

// UpdateTask applies the supplied fields to the task. Supplying no fields
// is a no-op, as is an unknown id.
func (s *Store) UpdateTask(ctx context.Context, id int64, u TaskUpdate) error {
	var sets []string
	var args []any
	if u.Subject != nil {
		sets = append(sets, "subject = ?")
		args = append(args, *u.Subject)
	}
	if u.Description != nil {
		sets = append(sets, "description = ?")
		args = append(args, *u.Description)
	}
	if u.Deadline != nil {
		sets = append(sets, "deadline = ?")
		args = append(args, *u.Deadline)
	}
	if u.Category != nil {
		sets = append(sets, "category = ?")
		args = append(args, *u.Category)
	}
	if u.Priority != nil {
		sets = append(sets, "priority = ?")
		args = append(args, *u.Priority)
	}
	if u.Completed != nil {
		sets = append(sets, "completed = ?")
		args = append(args, *u.Completed)
	}
	if len(sets) == 0 {
		return nil
	}
	args = append(args, id)
	query := "UPDATE tasks SET " + strings.Join(sets, ", ") + " WHERE id = ?;"
	if _, err := s.db.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("update task %d: %w", id, err)
	}
	return nil
}

func (s *Store) DeleteTask(ctx context.Context, id int64) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM tasks WHERE id = ?;`, id); err != nil {
		return fmt.Errorf("delete task %d: %w", id, err)
	}
	return nil
}

func (s *Store) MarkComplete(ctx context.Context, id int64) error {
	if _, err := s.db.ExecContext(ctx, `UPDATE tasks SET completed = 1 WHERE id = ?;`, id); err != nil {
		return fmt.Errorf("mark task %d complete: %w", id, err)
	}
	return nil
}

func (s *Store) MarkIncomplete(ctx context.Context, id int64) error {
	if _, err := s.db.ExecContext(ctx, `UPDATE tasks SET completed = 0 WHERE id = ?;`, id); err != nil {
		return fmt.Errorf("mark task %d incomplete: %w", id, err)
	}
	return nil
}

// Stats computes aggregate task counts. percent_complete truncates toward
// zero and is 0 for an empty task set.
func (s *Store) Stats(ctx context.Context) (Stats, error) {
	stats := Stats{
		ByPriority: map[string]int{},
		ByCategory: map[string]int{},
	}

	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM tasks;`).Scan(&stats.Total); err != nil {
		return stats, fmt.Errorf("count tasks: %w", err)
	}
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM tasks WHERE completed = 1;`).Scan(&stats.Completed); err != nil {
		return stats, fmt.Errorf("count completed tasks: %w", err)
	}

	rows, err := s.db.QueryContext(ctx, `SELECT priority, COUNT(*) FROM tasks GROUP BY priority;`)
	if err != nil {
		return stats, fmt.Errorf("group by priority: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var key string
		var n int
		if err := rows.Scan(&key, &n); err != nil {
			return stats, fmt.Errorf("scan priority group: %w", err)
		}
		stats.ByPriority[key] = n
	}
	if err := rows.Err(); err != nil {
		return stats, fmt.Errorf("priority rows: %w", err)
	}

	catRows, err := s.db.QueryContext(ctx, `SELECT category, COUNT(*) FROM tasks GROUP BY category;`)
	if err != nil {
		return stats, fmt.Errorf("group by category: %w", err)
	}
	defer catRows.Close()
	for catRows.Next() {
		var key string
		var n int
		if err := catRows.Scan(&key, &n); err != nil {
			return stats, fmt.Errorf("scan category group: %w", err)
		}
		stats.ByCategory[key] = n
	}
	if err := catRows.Err(); err != nil {
		return stats, fmt.Errorf("category rows: %w", err)
	}

	if stats.Total > 0 {
		stats.PercentComplete = stats.Completed * 100 / stats.Total
	}
	return stats, nil
}
