// Package cron runs the retention job on a cron schedule, pruning old chat
// messages and stale completed tasks from the store.
package cron

import (
	"context"
	"log/slog"
	"sync"
	"time"

	cronlib "github.com/robfig/cron/v3"

	"github.com/basket/go-study/internal/persistence"
)

// cronParser parses standard 5-field cron expressions (minute, hour, dom, month, dow).
var cronParser = cronlib.NewParser(
	cronlib.Minute | cronlib.Hour | cronlib.Dom | cronlib.Month | cronlib.Dow,
)

// Config holds the dependencies for the retention scheduler.
type Config struct {
	Store  *persistence.Store
	Logger *slog.Logger

	// Schedule is a 5-field cron expression for when retention runs.
	Schedule string

	// ChatDays is the chat transcript retention window. Zero disables
	// chat pruning.
	ChatDays int

	// CompletedTaskDays is the completed-task retention window. Zero
	// disables task pruning.
	CompletedTaskDays int

	Interval time.Duration // tick interval; defaults to 1 minute if zero
}

// Scheduler periodically checks whether the retention schedule is due and
// runs the prune when it is.
type Scheduler struct {
	store             *persistence.Store
	logger            *slog.Logger
	schedule          string
	chatDays          int
	completedTaskDays int
	interval          time.Duration

	mu      sync.Mutex
	nextRun time.Time

	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// NewScheduler creates a Scheduler. An unparseable schedule is reported by
// Start; construction never fails.
func NewScheduler(cfg Config) *Scheduler {
	interval := cfg.Interval
	if interval <= 0 {
		interval = 1 * time.Minute
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Scheduler{
		store:             cfg.Store,
		logger:            logger,
		schedule:          cfg.Schedule,
		chatDays:          cfg.ChatDays,
		completedTaskDays: cfg.CompletedTaskDays,
		interval:          interval,
	}
}

// Start begins the scheduler loop in a background goroutine. It returns an
// error only when the cron expression does not parse.
func (s *Scheduler) Start(ctx context.Context) error {
	next, err := NextRunTime(s.schedule, time.Now())
	if err != nil {
		return err
	}
	s.mu.Lock()
	s.nextRun = next
	s.mu.Unlock()

	ctx, s.cancel = context.WithCancel(ctx)
	s.wg.Add(1)
	go s.loop(ctx)
	s.logger.Info("retention scheduler started",
		"schedule", s.schedule,
		"next_run_at", next,
	)
	return nil
}

// Stop cancels the scheduler loop and waits for it to exit.
func (s *Scheduler) Stop() {
	if s.cancel != nil {
		s.cancel()
	}
	s.wg.Wait()
	s.logger.Info("retention scheduler stopped")
}

// NextRun reports when the retention job fires next.
func (s *Scheduler) NextRun() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.nextRun
}

func (s *Scheduler) loop(ctx context.Context) {
	defer s.wg.Done()

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.tick(ctx, time.Now())
		}
	}
}

// tick fires the retention job when the schedule is due and advances the
// next run time.
func (s *Scheduler) tick(ctx context.Context, now time.Time) {
	s.mu.Lock()
	due := !s.nextRun.IsZero() && !now.Before(s.nextRun)
	s.mu.Unlock()
	if !due {
		return
	}

	s.runRetention(ctx)

	next, err := NextRunTime(s.schedule, now)
	if err != nil {
		s.logger.Error("retention: failed to compute next run time",
			"schedule", s.schedule,
			"error", err,
		)
		return
	}
	s.mu.Lock()
	s.nextRun = next
	s.mu.Unlock()
}

func (s *Scheduler) runRetention(ctx context.Context) {
	res, err := s.store.RunRetention(ctx, s.chatDays, s.completedTaskDays)
	if err != nil {
		s.logger.Error("retention run failed", "error", err)
		return
	}
	s.logger.Info("retention run complete",
		"chat_messages_purged", res.PurgedChatMessages,
		"completed_tasks_purged", res.PurgedCompletedTasks,
	)
}

// NextRunTime parses the cron expression and returns the next run time after the given time.
func NextRunTime(cronExpr string, after time.Time) (time.Time, error) {
	sched, err := cronParser.Parse(cronExpr)
	if err != nil {
		return time.Time{}, err
	}
	return sched.Next(after), nil
}
