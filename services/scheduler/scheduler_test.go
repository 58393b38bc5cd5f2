package scheduler

import (
	"context"
	"io"
	"log"
	"testing"
	"time"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jhkim0602/monguri-sub002/core"
	"github.com/jhkim0602/monguri-sub002/core/notification"
	"github.com/jhkim0602/monguri-sub002/core/task"
	logsvc "github.com/jhkim0602/monguri-sub002/services/logger"
)

type dueTasksMock struct {
	tasks    []task.MentorTask
	err      error
	from, to time.Time
}

func (m *dueTasksMock) DueBetween(_ context.Context, from, to time.Time) ([]task.MentorTask, error) {
	m.from, m.to = from, to
	return m.tasks, m.err
}

type notifierMock struct {
	sent []notification.Notification
}

func (m *notifierMock) HasForRef(_ context.Context, recipientID, typ, refID string) (bool, error) {
	for _, n := range m.sent {
		if n.RecipientID == recipientID && n.Type == typ && n.RefID != nil && *n.RefID == refID {
			return true, nil
		}
	}
	return false, nil
}

func (m *notifierMock) Notify(_ context.Context, n notification.Notification) {
	m.sent = append(m.sent, n)
}

type sweeperMock struct{ before time.Time }

func (m *sweeperMock) Sweep(before time.Time) int {
	m.before = before
	return 3
}

var now = time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC)

func newScheduler(tasks DueTasks, notifier Notifier, sweeper Sweeper) *Scheduler {
	conf := core.NewTestConfig()
	conf.Scheduler.DeadlineHorizon = 24 * time.Hour
	conf.Cache.TTL = time.Minute
	return New(Deps{
		Tasks:    tasks,
		Notifier: notifier,
		Sweeper:  sweeper,
		Conf:     conf,
		Logger:   logsvc.NewRollbarLogger(log.New(io.Discard, "", 0), conf),
		Now:      func() time.Time { return now },
	})
}

func TestScheduler_RemindDeadlines(t *testing.T) {
	due := &dueTasksMock{tasks: []task.MentorTask{
		{ID: "t1", MenteeID: "m1", Title: "Essay", Deadline: now.Add(3 * time.Hour)},
		{ID: "t2", MenteeID: "m2", Title: "Reading", Deadline: now.Add(20 * time.Hour)},
	}}
	notifier := &notifierMock{}
	s := newScheduler(due, notifier, nil)

	sent, err := s.RemindDeadlines(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, sent)
	assert.Equal(t, now, due.from)
	assert.Equal(t, now.Add(24*time.Hour), due.to)
	require.Len(t, notifier.sent, 2)
	assert.Equal(t, notification.TypeDeadlineReminder, notifier.sent[0].Type)
	assert.Equal(t, "m1", notifier.sent[0].RecipientID)
	assert.Equal(t, "t1", *notifier.sent[0].RefID)
	assert.Equal(t, "마감 2026-03-02 12:00 (UTC)", notifier.sent[0].Message)

	// a task is reminded once
	sent, err = s.RemindDeadlines(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 0, sent)
	assert.Len(t, notifier.sent, 2)
}

func TestScheduler_RemindDeadlines_error(t *testing.T) {
	boom := errors.New("boom")
	s := newScheduler(&dueTasksMock{err: boom}, &notifierMock{}, nil)

	_, err := s.RemindDeadlines(context.Background())
	assert.Equal(t, boom, errors.Cause(err))
}

func TestScheduler_SweepCache(t *testing.T) {
	assert.Equal(t, 0, newScheduler(&dueTasksMock{}, &notifierMock{}, nil).SweepCache())

	sweeper := &sweeperMock{}
	s := newScheduler(&dueTasksMock{}, &notifierMock{}, sweeper)
	assert.Equal(t, 3, s.SweepCache())
	assert.Equal(t, now.Add(-time.Minute), sweeper.before)
}

func TestScheduler_StartStop(t *testing.T) {
	s := newScheduler(&dueTasksMock{}, &notifierMock{}, &sweeperMock{})
	require.NoError(t, s.Start())

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	s.Stop(ctx)

	bad := newScheduler(&dueTasksMock{}, &notifierMock{}, nil)
	bad.conf.DeadlineReminderSpec = "every now and then"
	assert.Error(t, bad.Start())
}
