package notification_test

import (
	"context"
	"io"
	"log"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jhkim0602/monguri-sub002/core"
	"github.com/jhkim0602/monguri-sub002/core/notification"
	logsvc "github.com/jhkim0602/monguri-sub002/services/logger"
	inmemdb "github.com/jhkim0602/monguri-sub002/storage/database/inmem"
)

type clock struct {
	mu sync.Mutex
	t  time.Time
}

func (c *clock) now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *clock) advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.t = c.t.Add(d)
}

func newService(t *testing.T) (*notification.Service, *clock) {
	t.Helper()
	return newServiceWith(t, func(repo notification.Repository) notification.Repository { return repo })
}

// newServiceWith lets a test wrap the in-memory repository.
func newServiceWith(t *testing.T, wrap func(notification.Repository) notification.Repository) (*notification.Service, *clock) {
	t.Helper()
	clk := &clock{t: time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC)}
	logger := logsvc.NewRollbarLogger(log.New(io.Discard, "", 0), core.NewTestConfig())
	repo := wrap(inmemdb.NewNotificationRepository(inmemdb.Open()))
	return notification.NewService(repo, 10*time.Minute, clk.now, logger), clk
}

// readBetweenRepo marks the found group read before the service gets to update it.
type readBetweenRepo struct {
	notification.Repository
	done bool
}

func (r *readBetweenRepo) FindUnreadChat(ctx context.Context, recipientID, linkID string, since time.Time, exec ...core.DBExecutor) (notification.Notification, error) {
	n, err := r.Repository.FindUnreadChat(ctx, recipientID, linkID, since, exec...)
	if err == nil && !r.done {
		r.done = true
		if _, err := r.Repository.MarkRead(ctx, recipientID, nil, n.CreatedAt); err != nil {
			return n, err
		}
	}
	return n, err
}

// failingUpdateRepo fails the first `failures` chat group updates and records their timestamp flag.
type failingUpdateRepo struct {
	notification.Repository
	failures int
	bumps    []bool
}

func (r *failingUpdateRepo) UpdateChatGroup(ctx context.Context, n notification.Notification, expectedCount int, bumpCreatedAt bool, exec ...core.DBExecutor) (bool, error) {
	r.bumps = append(r.bumps, bumpCreatedAt)
	if len(r.bumps) <= r.failures {
		return false, errors.New("connection reset")
	}
	return r.Repository.UpdateChatGroup(ctx, n, expectedCount, bumpCreatedAt, exec...)
}

var mentee = core.Actor{ID: "mentee", Role: core.RoleMentee}

func chatInput(linkID, body string) notification.ChatInput {
	return notification.ChatInput{
		RecipientID:    mentee.ID,
		MentorMenteeID: linkID,
		SenderID:       "mentor",
		SenderName:     "Kim",
		Preview:        body,
	}
}

func TestService_UpsertGroupedChat(t *testing.T) {
	svc, clk := newService(t)
	ctx := context.Background()

	require.NoError(t, svc.UpsertGroupedChat(ctx, chatInput("link-1", "first")))
	clk.advance(time.Minute)
	require.NoError(t, svc.UpsertGroupedChat(ctx, chatInput("link-1", "second")))
	// another conversation has its own group
	require.NoError(t, svc.UpsertGroupedChat(ctx, chatInput("link-2", "elsewhere")))

	notes, err := svc.List(ctx, mentee, notification.QueryFilter{})
	require.NoError(t, err)
	require.Len(t, notes, 2)

	byLink := map[string]notification.Notification{}
	for _, n := range notes {
		byLink[n.Meta.MentorMenteeID] = n
	}
	grouped := byLink["link-1"]
	assert.Equal(t, 2, grouped.Meta.BatchedCount)
	assert.Equal(t, "second", grouped.Message)
	assert.Equal(t, "Kim 새 메시지 2개", grouped.Title)
	assert.Equal(t, clk.now(), grouped.CreatedAt)
	require.NotNil(t, grouped.Meta.LastMessageAt)
	assert.Equal(t, 1, byLink["link-2"].Meta.BatchedCount)
	assert.Equal(t, "Kim 새 메시지", byLink["link-2"].Title)
}

func TestService_UpsertGroupedChat_window(t *testing.T) {
	svc, clk := newService(t)
	ctx := context.Background()

	require.NoError(t, svc.UpsertGroupedChat(ctx, chatInput("link", "first")))
	clk.advance(11 * time.Minute)
	require.NoError(t, svc.UpsertGroupedChat(ctx, chatInput("link", "much later")))

	notes, err := svc.List(ctx, mentee, notification.QueryFilter{})
	require.NoError(t, err)
	require.Len(t, notes, 2, "a message after the window opens a new group")
	assert.Equal(t, "much later", notes[0].Message)
}

func TestService_UpsertGroupedChat_afterRead(t *testing.T) {
	svc, _ := newService(t)
	ctx := context.Background()

	require.NoError(t, svc.UpsertGroupedChat(ctx, chatInput("link", "first")))
	cnt, err := svc.MarkAllRead(ctx, mentee)
	require.NoError(t, err)
	assert.Equal(t, 1, cnt)

	require.NoError(t, svc.UpsertGroupedChat(ctx, chatInput("link", "second")))
	unread, err := svc.List(ctx, mentee, notification.QueryFilter{UnreadOnly: true})
	require.NoError(t, err)
	require.Len(t, unread, 1)
	assert.Equal(t, 1, unread[0].Meta.BatchedCount)

	cnt, err = svc.UnreadCount(ctx, mentee)
	require.NoError(t, err)
	assert.Equal(t, 1, cnt)
}

func TestService_UpsertGroupedChat_readMeanwhile(t *testing.T) {
	var repo *readBetweenRepo
	svc, clk := newServiceWith(t, func(inner notification.Repository) notification.Repository {
		repo = &readBetweenRepo{Repository: inner}
		return repo
	})
	ctx := context.Background()

	require.NoError(t, svc.UpsertGroupedChat(ctx, chatInput("link", "first")))
	clk.advance(time.Minute)
	require.NoError(t, svc.UpsertGroupedChat(ctx, chatInput("link", "second")))
	require.True(t, repo.done)

	notes, err := svc.List(ctx, mentee, notification.QueryFilter{})
	require.NoError(t, err)
	require.Len(t, notes, 2, "a group read before the update is not revived")
	for _, n := range notes {
		assert.Equal(t, 1, n.Meta.BatchedCount)
		assert.Equal(t, n.Message == "first", n.IsRead(), n.Message)
	}
	assert.Equal(t, "Kim 새 메시지", notes[0].Title)
}

func TestService_UpsertGroupedChat_updateFailures(t *testing.T) {
	tests := []struct {
		name      string
		failures  int
		wantNotes int
		wantCount int
	}{
		{name: "retry without timestamp succeeds", failures: 1, wantNotes: 1, wantCount: 2},
		{name: "both updates fail", failures: 2, wantNotes: 2, wantCount: 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var repo *failingUpdateRepo
			svc, clk := newServiceWith(t, func(inner notification.Repository) notification.Repository {
				repo = &failingUpdateRepo{Repository: inner, failures: tt.failures}
				return repo
			})
			ctx := context.Background()

			require.NoError(t, svc.UpsertGroupedChat(ctx, chatInput("link", "first")))
			first := clk.now()
			clk.advance(time.Minute)
			require.NoError(t, svc.UpsertGroupedChat(ctx, chatInput("link", "second")))
			assert.Equal(t, []bool{true, false}, repo.bumps)

			notes, err := svc.List(ctx, mentee, notification.QueryFilter{})
			require.NoError(t, err)
			require.Len(t, notes, tt.wantNotes)
			latest := notes[0]
			assert.Equal(t, "second", latest.Message)
			assert.Equal(t, tt.wantCount, latest.Meta.BatchedCount)
			if tt.failures == 1 {
				assert.Equal(t, first, latest.CreatedAt, "the retry keeps created_at")
			}
		})
	}
}

func TestService_UpsertGroupedChat_concurrent(t *testing.T) {
	svc, _ := newService(t)
	ctx := context.Background()

	const n = 20
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			assert.NoError(t, svc.UpsertGroupedChat(ctx, chatInput("link", "hi")))
		}()
	}
	wg.Wait()

	notes, err := svc.List(ctx, mentee, notification.QueryFilter{})
	require.NoError(t, err)
	total := 0
	for _, note := range notes {
		total += note.Meta.BatchedCount
	}
	assert.Equal(t, n, total, "every message is counted in some group")
}

func TestService_Notify(t *testing.T) {
	svc, _ := newService(t)
	ctx := context.Background()

	refID := "task-1"
	svc.Notify(ctx, notification.Notification{
		RecipientID: mentee.ID,
		Type:        notification.TypeDeadlineReminder,
		RefID:       &refID,
		Title:       "Due soon",
		Message:     strings.Repeat("가", 100),
	})

	notes, err := svc.List(ctx, mentee, notification.QueryFilter{})
	require.NoError(t, err)
	require.Len(t, notes, 1)
	assert.Equal(t, strings.Repeat("가", 80)+"…", notes[0].Message)
	assert.False(t, notes[0].CreatedAt.IsZero())

	ok, err := svc.HasForRef(ctx, mentee.ID, notification.TypeDeadlineReminder, refID)
	require.NoError(t, err)
	assert.True(t, ok)
	ok, err = svc.HasForRef(ctx, mentee.ID, notification.TypeDeadlineReminder, "task-2")
	require.NoError(t, err)
	assert.False(t, ok)

	// ids of other recipients are ignored
	cnt, err := svc.MarkRead(ctx, core.Actor{ID: "someone"}, notes[0].ID)
	require.NoError(t, err)
	assert.Equal(t, 0, cnt)
	cnt, err = svc.MarkRead(ctx, mentee, notes[0].ID)
	require.NoError(t, err)
	assert.Equal(t, 1, cnt)
}
