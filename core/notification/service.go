package notification

import (
	"context"
	"fmt"
	"time"

	"github.com/pkg/errors"

	"github.com/jhkim0602/monguri-sub002/core"
)

const (
	DefaultChatGroupWindow = 10 * time.Minute
	DefaultListLimit       = 50
	maxListLimit           = 200

	// attempts at updating a chat group before giving up and inserting a new notification
	maxGroupAttempts = 3
)

var (
	// errors
	ErrNotFound = core.NewNotFoundError("notification not found")
)

type (
	Repository interface {
		InsertNotification(ctx context.Context, n Notification, exec ...core.DBExecutor) (Notification, error)
		// FindUnreadChat returns the most recent unread chat notification of a recipient for one conversation
		// created at or after `since`, or ErrNotFound.
		FindUnreadChat(ctx context.Context, recipientID, mentorMenteeID string, since time.Time, exec ...core.DBExecutor) (Notification, error)
		// UpdateChatGroup overwrites title, message and meta of `n` only while it is unread and its
		// batched count still equals `expectedCount`. created_at is overwritten only when bumpCreatedAt
		// is set. It reports whether a row was updated.
		UpdateChatGroup(ctx context.Context, n Notification, expectedCount int, bumpCreatedAt bool, exec ...core.DBExecutor) (bool, error)
		QueryNotifications(ctx context.Context, filter QueryFilter, exec ...core.DBExecutor) ([]Notification, error)
		CountUnread(ctx context.Context, recipientID string, exec ...core.DBExecutor) (int, error)
		// MarkRead marks the unread notifications of a recipient as read; nil ids means all of them.
		MarkRead(ctx context.Context, recipientID string, ids []string, at time.Time, exec ...core.DBExecutor) (int, error)
		ExistsForRef(ctx context.Context, recipientID, typ, refID string, exec ...core.DBExecutor) (bool, error)
	}

	Service struct {
		repo   Repository
		window time.Duration
		now    func() time.Time
		logger core.Logger
	}
)

func NewService(repo Repository, window time.Duration, now func() time.Time, logger core.Logger) *Service {
	if window <= 0 {
		window = DefaultChatGroupWindow
	}
	if now == nil {
		now = time.Now
	}
	return &Service{repo: repo, window: window, now: now, logger: logger}
}

// Notify stores `n` for its recipient. Failures are logged, never returned.
func (svc *Service) Notify(ctx context.Context, n Notification) {
	n.Message = preview(n.Message)
	if n.CreatedAt.IsZero() {
		n.CreatedAt = svc.now().UTC()
	}
	if _, err := svc.repo.InsertNotification(ctx, n); err != nil {
		svc.logger.Error(fmt.Sprintf("notification: notifying %s (%s): %v", n.RecipientID, n.Type, err), err)
	}
}

// UpsertGroupedChat folds a chat message into the recipient's unread notification for the same
// conversation when one was created within the grouping window, or inserts a fresh one.
// Concurrent messages race on the batched count: a lost race re-reads and retries, and at most
// one increment may be lost when every attempt fails.
func (svc *Service) UpsertGroupedChat(ctx context.Context, in ChatInput) error {
	now := svc.now().UTC()
	msg := preview(in.Preview)

	for attempt := 0; attempt < maxGroupAttempts; attempt++ {
		existing, err := svc.repo.FindUnreadChat(ctx, in.RecipientID, in.MentorMenteeID, now.Add(-svc.window))
		if err != nil {
			if !core.IsNotFound(err) {
				svc.logger.Warn(fmt.Sprintf("notification: finding chat group of %s: %v", in.RecipientID, err), err)
			}
			break
		}

		expected := existing.Meta.BatchedCount
		if expected < 1 {
			expected = 1
		}
		grouped := existing
		grouped.Title = chatTitle(in.SenderName, expected+1)
		grouped.Message = msg
		grouped.ReadAt = nil
		grouped.CreatedAt = now
		grouped.Meta.SenderID = in.SenderID
		grouped.Meta.SenderName = in.SenderName
		grouped.Meta.BatchedCount = expected + 1
		grouped.Meta.LastMessageAt = &now

		updated, err := svc.repo.UpdateChatGroup(ctx, grouped, existing.Meta.BatchedCount, true)
		if err != nil {
			svc.logger.Warn(fmt.Sprintf("notification: updating chat group %s: %v", existing.ID, err), err)

			// retry without moving created_at
			grouped.CreatedAt = existing.CreatedAt
			updated, err = svc.repo.UpdateChatGroup(ctx, grouped, existing.Meta.BatchedCount, false)
			if err != nil {
				svc.logger.Warn(fmt.Sprintf("notification: updating chat group %s without timestamp: %v", existing.ID, err), err)
				break
			}
		}
		if updated {
			return nil
		}
		// another message won the race, re-read
	}

	_, err := svc.repo.InsertNotification(ctx, Notification{
		RecipientID: in.RecipientID,
		Type:        TypeChatMessage,
		RefID:       &in.MentorMenteeID,
		Title:       chatTitle(in.SenderName, 1),
		Message:     msg,
		Meta: Meta{
			MentorMenteeID: in.MentorMenteeID,
			SenderID:       in.SenderID,
			SenderName:     in.SenderName,
			BatchedCount:   1,
			LastMessageAt:  &now,
		},
		CreatedAt: now,
	})
	return errors.Wrap(err, "inserting chat notification")
}

func (svc *Service) List(ctx context.Context, actor core.Actor, filter QueryFilter) ([]Notification, error) {
	filter.RecipientID = actor.ID
	if filter.Limit <= 0 {
		filter.Limit = DefaultListLimit
	} else if filter.Limit > maxListLimit {
		filter.Limit = maxListLimit
	}
	notifs, err := svc.repo.QueryNotifications(ctx, filter)
	if err != nil {
		return nil, errors.Wrap(err, "querying notifications")
	}
	if notifs == nil {
		notifs = []Notification{}
	}
	return notifs, nil
}

func (svc *Service) UnreadCount(ctx context.Context, actor core.Actor) (int, error) {
	cnt, err := svc.repo.CountUnread(ctx, actor.ID)
	return cnt, errors.Wrap(err, "counting unread notifications")
}

func (svc *Service) MarkRead(ctx context.Context, actor core.Actor, ids ...string) (int, error) {
	if len(ids) == 0 {
		return 0, nil
	}
	cnt, err := svc.repo.MarkRead(ctx, actor.ID, ids, svc.now().UTC())
	return cnt, errors.Wrap(err, "marking notifications read")
}

func (svc *Service) MarkAllRead(ctx context.Context, actor core.Actor) (int, error) {
	cnt, err := svc.repo.MarkRead(ctx, actor.ID, nil, svc.now().UTC())
	return cnt, errors.Wrap(err, "marking all notifications read")
}

// HasForRef reports whether `recipientID` already got a notification of type `typ` about `refID`.
func (svc *Service) HasForRef(ctx context.Context, recipientID, typ, refID string) (bool, error) {
	ok, err := svc.repo.ExistsForRef(ctx, recipientID, typ, refID)
	return ok, errors.Wrap(err, "checking notifications by ref")
}
