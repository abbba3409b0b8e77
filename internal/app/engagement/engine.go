package engagement

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/stride-app/stride/internal/domain"
	"github.com/stride-app/stride/internal/infra/metrics"
)

// Engine turns task completions into XP, streak and level changes.
// It holds no state of its own; every call reads and writes through the
// Transactor under a per-user lock.
type Engine struct {
	tx     domain.Transactor
	locker domain.Locker
	clock  domain.Clock
	logger *slog.Logger
}

// NewEngine creates a completion engine.
func NewEngine(tx domain.Transactor, locker domain.Locker, clock domain.Clock, logger *slog.Logger) *Engine {
	if logger == nil {
		logger = slog.Default()
	}
	return &Engine{
		tx:     tx,
		locker: locker,
		clock:  clock,
		logger: logger.With("component", "engagement"),
	}
}

// CompleteTask marks the user's task completed and applies the rewards.
//
// An already completed task returns ErrAlreadyCompleted with nothing
// written. Lookup and persistence errors are returned as the store reported
// them; the task flag and the profile commit in one transaction, so a
// failure leaves both untouched.
func (e *Engine) CompleteTask(ctx context.Context, taskID, user string) (domain.Outcome, error) {
	return e.CompleteTaskOn(ctx, taskID, user, e.clock.Today())
}

// CompleteTaskOn is CompleteTask with an explicit completion day.
func (e *Engine) CompleteTaskOn(ctx context.Context, taskID, user string, today domain.Date) (domain.Outcome, error) {
	unlock, err := e.locker.Lock(ctx, user)
	if err != nil {
		return domain.Outcome{}, fmt.Errorf("%w: %w", domain.ErrLockUnavailable, err)
	}
	defer unlock()

	var out domain.Outcome
	var priority domain.Priority
	err = e.tx.InTx(ctx, func(s domain.CompletionStore) error {
		task, err := s.GetTask(ctx, taskID, user)
		if err != nil {
			return err
		}
		if task.Completed {
			return domain.ErrAlreadyCompleted
		}
		if err := s.SetCompleted(ctx, task.ID); err != nil {
			return err
		}

		profile, err := s.GetProfile(ctx, user)
		if err != nil {
			return err
		}
		priority = task.Priority
		out = Apply(profile, *task, today)
		return s.SaveProfile(ctx, profile)
	})
	if err != nil {
		return domain.Outcome{}, err
	}

	metrics.CompletionsTotal.WithLabelValues(string(priority)).Inc()
	e.logger.Debug("task completed",
		"user", user,
		"task", taskID,
		"xp_earned", out.XPEarned,
		"current_xp", out.CurrentXP,
		"streak", out.CurrentStreak,
		"leveled_up", out.LeveledUp,
	)
	return out, nil
}

// Apply mutates p for one completion of task on today and returns the
// outcome. Pure: the caller persists p.
func Apply(p *domain.Profile, task domain.Task, today domain.Date) domain.Outcome {
	earned := AwardXP(task.Priority, task.DueDate, today)
	streak := ResolveStreak(today, p.LastCompletionDate, p.CurrentStreak)

	p.XP += earned
	p.CurrentStreak = streak
	day := today
	p.LastCompletionDate = &day

	level, gained := ResolveLevel(p.XP, p.Level)
	p.Level = level

	out := domain.Outcome{
		XPEarned:      earned,
		CurrentXP:     p.XP,
		CurrentStreak: p.CurrentStreak,
		LeveledUp:     gained > 0,
	}
	if out.LeveledUp {
		newLevel := p.Level
		out.NewLevel = &newLevel
	}
	return out
}
