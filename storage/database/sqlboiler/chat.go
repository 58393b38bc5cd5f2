package boiledrepos

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/volatiletech/null/v8"
	"github.com/volatiletech/sqlboiler/v4/queries/qm"

	"github.com/jhkim0602/monguri-sub002/core"
	"github.com/jhkim0602/monguri-sub002/core/chat"
)

const (
	tableChatMessages = "chat_messages"
	tableMeetings     = "meetings"
)

var (
	messageColumns = []string{"id", "link_id", "sender_id", "body", "created_at"}
	meetingColumns = []string{"id", "link_id", "requested_by", "title", "starts_at", "duration_min", "status", "meeting_url", "created_at", "updated_at"}
)

type (
	messageRow struct {
		ID        string    `boil:"id"`
		LinkID    string    `boil:"link_id"`
		SenderID  string    `boil:"sender_id"`
		Body      string    `boil:"body"`
		CreatedAt time.Time `boil:"created_at"`
	}

	meetingRow struct {
		ID          string      `boil:"id"`
		LinkID      string      `boil:"link_id"`
		RequestedBy string      `boil:"requested_by"`
		Title       string      `boil:"title"`
		StartsAt    time.Time   `boil:"starts_at"`
		DurationMin int         `boil:"duration_min"`
		Status      string      `boil:"status"`
		MeetingURL  null.String `boil:"meeting_url"`
		CreatedAt   time.Time   `boil:"created_at"`
		UpdatedAt   time.Time   `boil:"updated_at"`
	}
)

func (r meetingRow) unboil() chat.Meeting {
	return chat.Meeting{
		ID:          r.ID,
		LinkID:      r.LinkID,
		RequestedBy: r.RequestedBy,
		Title:       r.Title,
		StartsAt:    r.StartsAt.UTC(),
		DurationMin: r.DurationMin,
		Status:      r.Status,
		MeetingURL:  r.MeetingURL.Ptr(),
		CreatedAt:   r.CreatedAt.UTC(),
		UpdatedAt:   r.UpdatedAt.UTC(),
	}
}

type chatRepository struct {
	repository
}

var _ chat.Repository = (*chatRepository)(nil) // interface compliance check

func NewChatRepository(exec core.DBExecutor) *chatRepository {
	return &chatRepository{repository{exec: exec}}
}

func (repo chatRepository) CreateMessage(ctx context.Context, m chat.Message, exec ...core.DBExecutor) (chat.Message, error) {
	m.ID = uuid.New().String()
	_, err := insert(ctx, repo.getExec(exec), tableChatMessages, messageColumns,
		[]interface{}{m.ID, m.LinkID, m.SenderID, m.Body, m.CreatedAt.UTC()})
	if err != nil {
		return chat.Message{}, errors.Wrap(err, "inserting message")
	}
	return m, nil
}

func (repo chatRepository) QueryMessages(ctx context.Context, linkID string, page chat.Page, exec ...core.DBExecutor) ([]chat.Message, error) {
	mods := []qm.QueryMod{qm.Where("link_id = ?", linkID)}
	if page.Before != nil {
		mods = append(mods, qm.Where("created_at < ?", page.Before.UTC()))
	}
	mods = append(mods, qm.OrderBy("created_at DESC"), qm.Limit(page.Limit))

	var rows []messageRow
	if err := from(tableChatMessages, messageColumns, mods...).Bind(ctx, repo.getExec(exec), &rows); err != nil {
		return nil, errors.Wrap(err, "querying messages")
	}
	msgs := make([]chat.Message, 0, len(rows))
	for _, r := range rows {
		msgs = append(msgs, chat.Message{
			ID:        r.ID,
			LinkID:    r.LinkID,
			SenderID:  r.SenderID,
			Body:      r.Body,
			CreatedAt: r.CreatedAt.UTC(),
		})
	}
	return msgs, nil
}

func (repo chatRepository) CreateMeeting(ctx context.Context, m chat.Meeting, exec ...core.DBExecutor) (chat.Meeting, error) {
	m.ID = uuid.New().String()
	_, err := insert(ctx, repo.getExec(exec), tableMeetings, meetingColumns, []interface{}{
		m.ID, m.LinkID, m.RequestedBy, m.Title, m.StartsAt.UTC(), m.DurationMin, m.Status,
		null.StringFromPtr(m.MeetingURL), m.CreatedAt.UTC(), m.UpdatedAt.UTC(),
	})
	if err != nil {
		return chat.Meeting{}, errors.Wrap(err, "inserting meeting")
	}
	return m, nil
}

func (repo chatRepository) GetMeeting(ctx context.Context, id string, exec ...core.DBExecutor) (chat.Meeting, error) {
	if !validID(id) {
		return chat.Meeting{}, chat.ErrMeetingNotFound
	}
	var r meetingRow
	if err := from(tableMeetings, meetingColumns, qm.Where("id = ?", id)).Bind(ctx, repo.getExec(exec), &r); err != nil {
		return chat.Meeting{}, trapNoRowsErr(err, chat.ErrMeetingNotFound, "finding meeting")
	}
	return r.unboil(), nil
}

func (repo chatRepository) UpdateMeetingStatus(ctx context.Context, m chat.Meeting, fromStatus string, exec ...core.DBExecutor) (bool, error) {
	cnt, err := update(ctx, repo.getExec(exec), tableMeetings, map[string]interface{}{
		"status":      m.Status,
		"meeting_url": null.StringFromPtr(m.MeetingURL),
		"updated_at":  m.UpdatedAt.UTC(),
	}, qm.Where("id = ?", m.ID), qm.Where("status = ?", fromStatus))
	if err != nil {
		return false, errors.Wrap(err, "updating meeting")
	}
	return cnt > 0, nil
}

func (repo chatRepository) QueryMeetings(ctx context.Context, linkID string, exec ...core.DBExecutor) ([]chat.Meeting, error) {
	var rows []meetingRow
	err := from(tableMeetings, meetingColumns, qm.Where("link_id = ?", linkID), qm.OrderBy("starts_at ASC")).
		Bind(ctx, repo.getExec(exec), &rows)
	if err != nil {
		return nil, errors.Wrap(err, "querying meetings")
	}
	ms := make([]chat.Meeting, 0, len(rows))
	for _, r := range rows {
		ms = append(ms, r.unboil())
	}
	return ms, nil
}
