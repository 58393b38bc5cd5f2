package inmemdb

import (
	"context"
	"sort"
	"time"

	"github.com/jhkim0602/monguri-sub002/core"
	"github.com/jhkim0602/monguri-sub002/core/notification"
)

type notificationRepository struct {
	db *table[notification.Notification]
}

var _ notification.Repository = (*notificationRepository)(nil) // interface compliance check

func NewNotificationRepository(db *DB) *notificationRepository {
	return &notificationRepository{db: db.notifications}
}

func (repo *notificationRepository) InsertNotification(_ context.Context, n notification.Notification, _ ...core.DBExecutor) (notification.Notification, error) {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	n.ID = newID()
	repo.db.rows[n.ID] = &n
	return n, nil
}

func (repo *notificationRepository) FindUnreadChat(_ context.Context, recipientID, mentorMenteeID string, since time.Time, _ ...core.DBExecutor) (notification.Notification, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	var found *notification.Notification
	for _, n := range repo.db.rows {
		if n.RecipientID != recipientID || n.Type != notification.TypeChatMessage || n.IsRead() ||
			n.Meta.MentorMenteeID != mentorMenteeID || n.CreatedAt.Before(since) {
			continue
		}
		if found == nil || n.CreatedAt.After(found.CreatedAt) {
			found = n
		}
	}
	if found == nil {
		return notification.Notification{}, notification.ErrNotFound
	}
	return *found, nil
}

func (repo *notificationRepository) UpdateChatGroup(_ context.Context, n notification.Notification, expectedCount int, bumpCreatedAt bool, _ ...core.DBExecutor) (bool, error) {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	row, ok := repo.db.rows[n.ID]
	if !ok || row.IsRead() || row.Meta.BatchedCount != expectedCount {
		return false, nil
	}
	row.Title = n.Title
	row.Message = n.Message
	row.Meta = n.Meta
	if bumpCreatedAt {
		row.CreatedAt = n.CreatedAt
	}
	return true, nil
}

func (repo *notificationRepository) QueryNotifications(_ context.Context, filter notification.QueryFilter, _ ...core.DBExecutor) ([]notification.Notification, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	res := make([]notification.Notification, 0)
	for _, n := range repo.db.rows {
		if n.RecipientID != filter.RecipientID || (filter.UnreadOnly && n.IsRead()) {
			continue
		}
		res = append(res, *n)
	}
	sort.Slice(res, func(i, j int) bool { return res[i].CreatedAt.After(res[j].CreatedAt) })
	if filter.Limit > 0 && len(res) > filter.Limit {
		res = res[:filter.Limit]
	}
	return res, nil
}

func (repo *notificationRepository) CountUnread(_ context.Context, recipientID string, _ ...core.DBExecutor) (int, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	cnt := 0
	for _, n := range repo.db.rows {
		if n.RecipientID == recipientID && !n.IsRead() {
			cnt++
		}
	}
	return cnt, nil
}

func (repo *notificationRepository) MarkRead(_ context.Context, recipientID string, ids []string, at time.Time, _ ...core.DBExecutor) (int, error) {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	cnt := 0
	for _, n := range repo.db.rows {
		if n.RecipientID != recipientID || n.IsRead() || (ids != nil && !contains(ids, n.ID)) {
			continue
		}
		readAt := at
		n.ReadAt = &readAt
		cnt++
	}
	return cnt, nil
}

func (repo *notificationRepository) ExistsForRef(_ context.Context, recipientID, typ, refID string, _ ...core.DBExecutor) (bool, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	for _, n := range repo.db.rows {
		if n.RecipientID == recipientID && n.Type == typ && n.RefID != nil && *n.RefID == refID {
			return true, nil
		}
	}
	return false, nil
}
