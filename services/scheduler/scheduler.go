// Package scheduler runs the periodic jobs of the API: deadline reminders and cache sweeping.
package scheduler

import (
	"context"
	"fmt"
	"time"

	"github.com/pkg/errors"
	"github.com/robfig/cron/v3"

	"github.com/jhkim0602/monguri-sub002/core"
	"github.com/jhkim0602/monguri-sub002/core/notification"
	"github.com/jhkim0602/monguri-sub002/core/task"
)

const jobTimeout = 2 * time.Minute

type (
	DueTasks interface {
		DueBetween(ctx context.Context, from, to time.Time) ([]task.MentorTask, error)
	}

	Notifier interface {
		HasForRef(ctx context.Context, recipientID, typ, refID string) (bool, error)
		Notify(ctx context.Context, n notification.Notification)
	}

	// Sweeper drops cache entries stored before a given time.
	Sweeper interface {
		Sweep(before time.Time) int
	}

	Deps struct {
		Tasks    DueTasks
		Notifier Notifier
		Sweeper  Sweeper // nil when the cache is not held in process
		Conf     *core.Config
		Logger   core.Logger
		Now      func() time.Time
	}

	Scheduler struct {
		engine   *cron.Cron
		tasks    DueTasks
		notifier Notifier
		sweeper  Sweeper
		conf     core.SchedulerConfig
		cacheTTL time.Duration
		logger   core.Logger
		now      func() time.Time
	}
)

func New(deps Deps) *Scheduler {
	now := deps.Now
	if now == nil {
		now = time.Now
	}
	return &Scheduler{
		engine:   cron.New(cron.WithLocation(time.UTC)),
		tasks:    deps.Tasks,
		notifier: deps.Notifier,
		sweeper:  deps.Sweeper,
		conf:     deps.Conf.Scheduler,
		cacheTTL: deps.Conf.Cache.TTL,
		logger:   deps.Logger,
		now:      now,
	}
}

// Start registers the jobs and starts the cron engine in its own goroutine.
func (s *Scheduler) Start() error {
	if _, err := s.engine.AddFunc(s.conf.DeadlineReminderSpec, s.runJob("deadline reminders", func(ctx context.Context) error {
		n, err := s.RemindDeadlines(ctx)
		if n > 0 {
			s.logger.Info(fmt.Sprintf("scheduler: sent %d deadline reminder(s)", n))
		}
		return err
	})); err != nil {
		return errors.Wrapf(err, "adding deadline reminder job %q", s.conf.DeadlineReminderSpec)
	}

	if s.sweeper != nil {
		if _, err := s.engine.AddFunc(s.conf.CacheSweepSpec, s.runJob("cache sweep", func(context.Context) error {
			s.SweepCache()
			return nil
		})); err != nil {
			return errors.Wrapf(err, "adding cache sweep job %q", s.conf.CacheSweepSpec)
		}
	}

	s.engine.Start()
	return nil
}

// Stop stops scheduling and waits for the running jobs, at most until ctx is done.
func (s *Scheduler) Stop(ctx context.Context) {
	select {
	case <-s.engine.Stop().Done():
	case <-ctx.Done():
		s.logger.Warn("scheduler: stopped before running jobs completed")
	}
}

func (s *Scheduler) runJob(name string, job func(ctx context.Context) error) func() {
	return func() {
		ctx, cancel := context.WithTimeout(context.Background(), jobTimeout)
		defer cancel()
		if err := job(ctx); err != nil {
			s.logger.Error(fmt.Sprintf("scheduler: %s: %v", name, err), err)
		}
	}
}

// RemindDeadlines notifies the mentees of pending tasks due within the reminder horizon.
// A task is reminded once; it returns the number of reminders sent.
func (s *Scheduler) RemindDeadlines(ctx context.Context) (int, error) {
	now := s.now().UTC()
	due, err := s.tasks.DueBetween(ctx, now, now.Add(s.conf.DeadlineHorizon))
	if err != nil {
		return 0, err
	}

	var sent int
	for _, t := range due {
		if ctx.Err() != nil {
			return sent, ctx.Err()
		}
		done, err := s.notifier.HasForRef(ctx, t.MenteeID, notification.TypeDeadlineReminder, t.ID)
		if err != nil {
			s.logger.Warn(fmt.Sprintf("scheduler: checking reminder of task %s: %v", t.ID, err), err)
			continue
		}
		if done {
			continue
		}
		refID := t.ID
		s.notifier.Notify(ctx, notification.Notification{
			RecipientID: t.MenteeID,
			Type:        notification.TypeDeadlineReminder,
			RefID:       &refID,
			Title:       "마감 임박: " + t.Title,
			Message:     "마감 " + t.Deadline.UTC().Format("2006-01-02 15:04") + " (UTC)",
		})
		sent++
	}
	return sent, nil
}

// SweepCache drops the cache entries that are already stale.
func (s *Scheduler) SweepCache() int {
	if s.sweeper == nil {
		return 0
	}
	return s.sweeper.Sweep(s.now().Add(-s.cacheTTL))
}
