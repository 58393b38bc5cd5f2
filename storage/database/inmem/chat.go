package inmemdb

import (
	"context"
	"sort"

	"github.com/jhkim0602/monguri-sub002/core"
	"github.com/jhkim0602/monguri-sub002/core/chat"
)

type chatRepository struct {
	messages *table[chat.Message]
	meetings *table[chat.Meeting]
}

var _ chat.Repository = (*chatRepository)(nil) // interface compliance check

func NewChatRepository(db *DB) *chatRepository {
	return &chatRepository{messages: db.messages, meetings: db.meetings}
}

func (repo *chatRepository) CreateMessage(_ context.Context, m chat.Message, _ ...core.DBExecutor) (chat.Message, error) {
	repo.messages.mutex.Lock()
	defer repo.messages.mutex.Unlock()

	m.ID = newID()
	repo.messages.rows[m.ID] = &m
	return m, nil
}

func (repo *chatRepository) QueryMessages(_ context.Context, linkID string, page chat.Page, _ ...core.DBExecutor) ([]chat.Message, error) {
	repo.messages.mutex.RLock()
	defer repo.messages.mutex.RUnlock()

	res := make([]chat.Message, 0)
	for _, m := range repo.messages.rows {
		if m.LinkID != linkID || (page.Before != nil && !m.CreatedAt.Before(*page.Before)) {
			continue
		}
		res = append(res, *m)
	}
	sort.Slice(res, func(i, j int) bool { return res[i].CreatedAt.After(res[j].CreatedAt) })
	if page.Limit > 0 && len(res) > page.Limit {
		res = res[:page.Limit]
	}
	return res, nil
}

func (repo *chatRepository) CreateMeeting(_ context.Context, m chat.Meeting, _ ...core.DBExecutor) (chat.Meeting, error) {
	repo.meetings.mutex.Lock()
	defer repo.meetings.mutex.Unlock()

	m.ID = newID()
	repo.meetings.rows[m.ID] = &m
	return m, nil
}

func (repo *chatRepository) GetMeeting(_ context.Context, id string, _ ...core.DBExecutor) (chat.Meeting, error) {
	repo.meetings.mutex.RLock()
	defer repo.meetings.mutex.RUnlock()

	if m, ok := repo.meetings.rows[id]; ok {
		return *m, nil
	}
	return chat.Meeting{}, chat.ErrMeetingNotFound
}

func (repo *chatRepository) UpdateMeetingStatus(_ context.Context, m chat.Meeting, from string, _ ...core.DBExecutor) (bool, error) {
	repo.meetings.mutex.Lock()
	defer repo.meetings.mutex.Unlock()

	row, ok := repo.meetings.rows[m.ID]
	if !ok || row.Status != from {
		return false, nil
	}
	row.Status = m.Status
	row.MeetingURL = m.MeetingURL
	row.UpdatedAt = m.UpdatedAt
	return true, nil
}

func (repo *chatRepository) QueryMeetings(_ context.Context, linkID string, _ ...core.DBExecutor) ([]chat.Meeting, error) {
	repo.meetings.mutex.RLock()
	defer repo.meetings.mutex.RUnlock()

	res := make([]chat.Meeting, 0)
	for _, m := range repo.meetings.rows {
		if m.LinkID == linkID {
			res = append(res, *m)
		}
	}
	sort.Slice(res, func(i, j int) bool { return res[i].StartsAt.Before(res[j].StartsAt) })
	return res, nil
}
