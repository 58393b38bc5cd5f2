// Package chat implements the conversation and meeting scheduling of a mentor-mentee link.
package chat

import (
	"context"
	"fmt"
	"time"

	"github.com/pkg/errors"

	"github.com/jhkim0602/monguri-sub002/core"
	"github.com/jhkim0602/monguri-sub002/core/notification"
	"github.com/jhkim0602/monguri-sub002/core/profile"
)

var (
	// errors
	ErrMeetingNotFound  = core.NewNotFoundError("meeting not found")
	errNotParticipant   = core.NewForbiddenError("you are not part of this conversation")
	errLinkInactive     = core.NewForbiddenError("this mentorship has ended")
	errNotCounterpart   = core.NewForbiddenError("only the invited participant can answer this meeting")
	errNotRequester     = core.NewForbiddenError("only the requester can cancel this meeting")
	errMeetingAnswered  = core.NewConflictError("this meeting was already answered")
	errMeetingCancelled = core.NewConflictError("this meeting can no longer be cancelled")
)

type (
	Repository interface {
		CreateMessage(ctx context.Context, m Message, exec ...core.DBExecutor) (Message, error)
		// QueryMessages returns the messages of a link, newest first.
		QueryMessages(ctx context.Context, linkID string, page Page, exec ...core.DBExecutor) ([]Message, error)

		CreateMeeting(ctx context.Context, m Meeting, exec ...core.DBExecutor) (Meeting, error)
		GetMeeting(ctx context.Context, id string, exec ...core.DBExecutor) (Meeting, error)
		// UpdateMeetingStatus moves a meeting to `m.Status` only while its status is `from`.
		UpdateMeetingStatus(ctx context.Context, m Meeting, from string, exec ...core.DBExecutor) (bool, error)
		// QueryMeetings returns the meetings of a link by start time.
		QueryMeetings(ctx context.Context, linkID string, exec ...core.DBExecutor) ([]Meeting, error)
	}

	Service struct {
		repo     Repository
		profiles *profile.Service
		notifier *notification.Service
		logger   core.Logger
	}
)

func NewService(repo Repository, profiles *profile.Service, notifier *notification.Service, logger core.Logger) *Service {
	return &Service{repo: repo, profiles: profiles, notifier: notifier, logger: logger}
}

// participantLink returns the link when `actor` is one of its participants.
func (svc *Service) participantLink(ctx context.Context, actor core.Actor, linkID string) (profile.Link, error) {
	link, err := svc.profiles.LinkByID(ctx, linkID)
	if err != nil {
		return profile.Link{}, err
	}
	if !link.HasParticipant(actor.ID) {
		return profile.Link{}, errNotParticipant
	}
	return link, nil
}

// Send stores a message then folds it into the other participant's grouped chat notification.
// A notification failure never fails the send.
func (svc *Service) Send(ctx context.Context, actor core.Actor, linkID string, nm NewMessage) (Message, error) {
	link, err := svc.participantLink(ctx, actor, linkID)
	if err != nil {
		return Message{}, err
	}
	if !link.IsActive() {
		return Message{}, errLinkInactive
	}

	msg, err := svc.repo.CreateMessage(ctx, Message{
		LinkID:    link.ID,
		SenderID:  actor.ID,
		Body:      nm.Body,
		CreatedAt: time.Now().UTC(),
	})
	if err != nil {
		return Message{}, errors.Wrap(err, "creating message")
	}

	senderName := ""
	if sender, err := svc.profiles.GetByID(ctx, actor.ID); err == nil {
		senderName = sender.Name
	}
	err = svc.notifier.UpsertGroupedChat(ctx, notification.ChatInput{
		RecipientID:    link.Counterpart(actor.ID),
		MentorMenteeID: link.ID,
		SenderID:       actor.ID,
		SenderName:     senderName,
		Preview:        msg.Body,
	})
	if err != nil {
		svc.logger.Error(fmt.Sprintf("chat: notifying message %s: %v", msg.ID, err), err)
	}
	return msg, nil
}

func (svc *Service) Messages(ctx context.Context, actor core.Actor, linkID string, page Page) ([]Message, error) {
	if _, err := svc.participantLink(ctx, actor, linkID); err != nil {
		return nil, err
	}
	page.Clean()
	msgs, err := svc.repo.QueryMessages(ctx, linkID, page)
	if err != nil {
		return nil, errors.Wrap(err, "querying messages")
	}
	return msgs, nil
}

// RequestMeeting proposes a meeting to the other participant of an active link.
func (svc *Service) RequestMeeting(ctx context.Context, actor core.Actor, linkID string, nm NewMeeting) (Meeting, error) {
	link, err := svc.participantLink(ctx, actor, linkID)
	if err != nil {
		return Meeting{}, err
	}
	if !link.IsActive() {
		return Meeting{}, errLinkInactive
	}

	now := time.Now().UTC()
	m, err := svc.repo.CreateMeeting(ctx, Meeting{
		LinkID:      link.ID,
		RequestedBy: actor.ID,
		Title:       nm.Title,
		StartsAt:    nm.StartsAt.UTC(),
		DurationMin: nm.DurationMin,
		Status:      MeetingRequested,
		MeetingURL:  nm.MeetingURL,
		CreatedAt:   now,
		UpdatedAt:   now,
	})
	if err != nil {
		return Meeting{}, errors.Wrap(err, "creating meeting")
	}

	svc.notifier.Notify(ctx, notification.Notification{
		RecipientID: link.Counterpart(actor.ID),
		Type:        notification.TypeMeeting,
		RefID:       &m.ID,
		Title:       "미팅 요청이 도착했습니다",
		Message:     m.Title,
	})
	return m, nil
}

func (svc *Service) getMeeting(ctx context.Context, id string) (Meeting, error) {
	m, err := svc.repo.GetMeeting(ctx, id)
	if err != nil {
		if core.IsNotFound(err) {
			return Meeting{}, ErrMeetingNotFound
		}
		return Meeting{}, errors.Wrap(err, "finding meeting")
	}
	return m, nil
}

// RespondMeeting confirms or declines a requested meeting; only the invited participant may answer.
func (svc *Service) RespondMeeting(ctx context.Context, actor core.Actor, id string, mr MeetingResponse) (Meeting, error) {
	m, err := svc.getMeeting(ctx, id)
	if err != nil {
		return Meeting{}, err
	}
	link, err := svc.participantLink(ctx, actor, m.LinkID)
	if err != nil {
		return Meeting{}, err
	}
	if actor.ID == m.RequestedBy {
		return Meeting{}, errNotCounterpart
	}
	if m.Status != MeetingRequested {
		return Meeting{}, errMeetingAnswered
	}

	m.Status = MeetingDeclined
	title := "미팅 요청이 거절되었습니다"
	if mr.Accept {
		m.Status = MeetingConfirmed
		title = "미팅이 확정되었습니다"
		if mr.MeetingURL != nil {
			m.MeetingURL = mr.MeetingURL
		}
	}
	m.UpdatedAt = time.Now().UTC()

	ok, err := svc.repo.UpdateMeetingStatus(ctx, m, MeetingRequested)
	if err != nil {
		return Meeting{}, errors.Wrap(err, "updating meeting")
	}
	if !ok {
		return Meeting{}, errMeetingAnswered
	}

	svc.notifier.Notify(ctx, notification.Notification{
		RecipientID: link.Counterpart(actor.ID),
		Type:        notification.TypeMeeting,
		RefID:       &m.ID,
		Title:       title,
		Message:     m.Title,
	})
	return m, nil
}

// CancelMeeting withdraws a meeting that is requested or confirmed; only its requester may do so.
func (svc *Service) CancelMeeting(ctx context.Context, actor core.Actor, id string) (Meeting, error) {
	m, err := svc.getMeeting(ctx, id)
	if err != nil {
		return Meeting{}, err
	}
	link, err := svc.participantLink(ctx, actor, m.LinkID)
	if err != nil {
		return Meeting{}, err
	}
	if actor.ID != m.RequestedBy {
		return Meeting{}, errNotRequester
	}
	if m.Status != MeetingRequested && m.Status != MeetingConfirmed {
		return Meeting{}, errMeetingCancelled
	}

	from := m.Status
	m.Status = MeetingCancelled
	m.UpdatedAt = time.Now().UTC()
	ok, err := svc.repo.UpdateMeetingStatus(ctx, m, from)
	if err != nil {
		return Meeting{}, errors.Wrap(err, "cancelling meeting")
	}
	if !ok {
		return Meeting{}, errMeetingCancelled
	}

	svc.notifier.Notify(ctx, notification.Notification{
		RecipientID: link.Counterpart(actor.ID),
		Type:        notification.TypeMeeting,
		RefID:       &m.ID,
		Title:       "미팅이 취소되었습니다",
		Message:     m.Title,
	})
	return m, nil
}

func (svc *Service) Meetings(ctx context.Context, actor core.Actor, linkID string) ([]Meeting, error) {
	if _, err := svc.participantLink(ctx, actor, linkID); err != nil {
		return nil, err
	}
	ms, err := svc.repo.QueryMeetings(ctx, linkID)
	if err != nil {
		return nil, errors.Wrap(err, "querying meetings")
	}
	return ms, nil
}
