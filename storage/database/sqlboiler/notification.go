package boiledrepos

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/volatiletech/null/v8"
	"github.com/volatiletech/sqlboiler/v4/queries/qm"
	"github.com/volatiletech/sqlboiler/v4/types"

	"github.com/jhkim0602/monguri-sub002/core"
	"github.com/jhkim0602/monguri-sub002/core/notification"
)

const tableNotifications = "notifications"

var notificationColumns = []string{"id", "recipient_id", "type", "ref_id", "title", "message", "meta", "batched_count", "read_at", "created_at"}

type notificationRow struct {
	ID           string      `boil:"id"`
	RecipientID  string      `boil:"recipient_id"`
	Type         string      `boil:"type"`
	RefID        null.String `boil:"ref_id"`
	Title        string      `boil:"title"`
	Message      string      `boil:"message"`
	Meta         types.JSON  `boil:"meta"`
	BatchedCount int         `boil:"batched_count"`
	ReadAt       null.Time   `boil:"read_at"`
	CreatedAt    time.Time   `boil:"created_at"`
}

type notificationRepository struct {
	repository
}

var _ notification.Repository = (*notificationRepository)(nil) // interface compliance check

func NewNotificationRepository(exec core.DBExecutor) *notificationRepository {
	return &notificationRepository{repository{exec: exec}}
}

func (repo notificationRepository) boil(n notification.Notification) (notificationRow, error) {
	count := n.Meta.BatchedCount
	if count < 1 {
		count = 1
	}
	r := notificationRow{
		ID:           n.ID,
		RecipientID:  n.RecipientID,
		Type:         n.Type,
		RefID:        null.StringFromPtr(n.RefID),
		Title:        n.Title,
		Message:      n.Message,
		BatchedCount: count,
		ReadAt:       null.TimeFromPtr(n.ReadAt),
		CreatedAt:    n.CreatedAt.UTC(),
	}
	err := r.Meta.Marshal(n.Meta)
	return r, errors.Wrap(err, "encoding meta")
}

func (repo notificationRepository) unboil(r notificationRow) (notification.Notification, error) {
	n := notification.Notification{
		ID:          r.ID,
		RecipientID: r.RecipientID,
		Type:        r.Type,
		RefID:       r.RefID.Ptr(),
		Title:       r.Title,
		Message:     r.Message,
		ReadAt:      r.ReadAt.Ptr(),
		CreatedAt:   r.CreatedAt.UTC(),
	}
	if len(r.Meta) > 0 {
		if err := r.Meta.Unmarshal(&n.Meta); err != nil {
			return notification.Notification{}, errors.Wrapf(err, "decoding meta of notification %s", r.ID)
		}
	}
	// the column is authoritative, it is what conditional updates compare against
	if n.Type == notification.TypeChatMessage {
		n.Meta.BatchedCount = r.BatchedCount
	}
	return n, nil
}

func (repo notificationRepository) InsertNotification(ctx context.Context, n notification.Notification, exec ...core.DBExecutor) (notification.Notification, error) {
	n.ID = uuid.New().String()
	r, err := repo.boil(n)
	if err != nil {
		return notification.Notification{}, err
	}
	_, err = insert(ctx, repo.getExec(exec), tableNotifications, notificationColumns, []interface{}{
		r.ID, r.RecipientID, r.Type, r.RefID, r.Title, r.Message, r.Meta, r.BatchedCount, r.ReadAt, r.CreatedAt,
	})
	if err != nil {
		return notification.Notification{}, errors.Wrap(err, "inserting notification")
	}
	return n, nil
}

func (repo notificationRepository) FindUnreadChat(ctx context.Context, recipientID, mentorMenteeID string, since time.Time, exec ...core.DBExecutor) (notification.Notification, error) {
	var r notificationRow
	err := from(tableNotifications, notificationColumns,
		qm.Where("recipient_id = ?", recipientID),
		qm.Where("type = ?", notification.TypeChatMessage),
		qm.Where("read_at IS NULL"),
		qm.Where("meta ->> 'mentorMenteeId' = ?", mentorMenteeID),
		qm.Where("created_at >= ?", since.UTC()),
		qm.OrderBy("created_at DESC"),
		qm.Limit(1),
	).Bind(ctx, repo.getExec(exec), &r)
	if err != nil {
		return notification.Notification{}, trapNoRowsErr(err, notification.ErrNotFound, "finding unread chat notification")
	}
	return repo.unboil(r)
}

func (repo notificationRepository) UpdateChatGroup(ctx context.Context, n notification.Notification, expectedCount int, bumpCreatedAt bool, exec ...core.DBExecutor) (bool, error) {
	r, err := repo.boil(n)
	if err != nil {
		return false, err
	}
	set := map[string]interface{}{
		"title":         r.Title,
		"message":       r.Message,
		"meta":          r.Meta,
		"batched_count": r.BatchedCount,
	}
	if bumpCreatedAt {
		set["created_at"] = r.CreatedAt
	}
	cnt, err := update(ctx, repo.getExec(exec), tableNotifications, set,
		qm.Where("id = ?", n.ID),
		qm.Where("read_at IS NULL"),
		qm.Where("batched_count = ?", expectedCount),
	)
	if err != nil {
		return false, errors.Wrap(err, "updating chat notification")
	}
	return cnt > 0, nil
}

func (repo notificationRepository) QueryNotifications(ctx context.Context, filter notification.QueryFilter, exec ...core.DBExecutor) ([]notification.Notification, error) {
	mods := []qm.QueryMod{qm.Where("recipient_id = ?", filter.RecipientID)}
	if filter.UnreadOnly {
		mods = append(mods, qm.Where("read_at IS NULL"))
	}
	mods = append(mods, qm.OrderBy("created_at DESC"))
	if filter.Limit > 0 {
		mods = append(mods, qm.Limit(filter.Limit))
	}

	var rows []notificationRow
	if err := from(tableNotifications, notificationColumns, mods...).Bind(ctx, repo.getExec(exec), &rows); err != nil {
		return nil, errors.Wrap(err, "querying notifications")
	}
	notifs := make([]notification.Notification, 0, len(rows))
	for _, r := range rows {
		n, err := repo.unboil(r)
		if err != nil {
			return nil, err
		}
		notifs = append(notifs, n)
	}
	return notifs, nil
}

func (repo notificationRepository) CountUnread(ctx context.Context, recipientID string, exec ...core.DBExecutor) (int, error) {
	cnt, err := count(ctx, repo.getExec(exec), tableNotifications,
		qm.Where("recipient_id = ?", recipientID),
		qm.Where("read_at IS NULL"),
	)
	return cnt, errors.Wrap(err, "counting unread notifications")
}

func (repo notificationRepository) MarkRead(ctx context.Context, recipientID string, ids []string, at time.Time, exec ...core.DBExecutor) (int, error) {
	mods := []qm.QueryMod{
		qm.Where("recipient_id = ?", recipientID),
		qm.Where("read_at IS NULL"),
	}
	if ids != nil {
		args := inArgs(ids)
		if len(args) == 0 {
			return 0, nil
		}
		mods = append(mods, qm.WhereIn("id IN ?", args...))
	}
	cnt, err := update(ctx, repo.getExec(exec), tableNotifications, map[string]interface{}{"read_at": at.UTC()}, mods...)
	if err != nil {
		return 0, errors.Wrap(err, "marking notifications read")
	}
	return int(cnt), nil
}

func (repo notificationRepository) ExistsForRef(ctx context.Context, recipientID, typ, refID string, exec ...core.DBExecutor) (bool, error) {
	cnt, err := count(ctx, repo.getExec(exec), tableNotifications,
		qm.Where("recipient_id = ?", recipientID),
		qm.Where("type = ?", typ),
		qm.Where("ref_id = ?", refID),
	)
	if err != nil {
		return false, errors.Wrap(err, "checking notifications by ref")
	}
	return cnt > 0, nil
}
