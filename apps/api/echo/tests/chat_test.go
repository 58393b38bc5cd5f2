package tests

import (
	"context"
	"net/http"
	"net/url"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jhkim0602/monguri-sub002/core"
	"github.com/jhkim0602/monguri-sub002/core/chat"
	"github.com/jhkim0602/monguri-sub002/core/notification"
)

func TestChatGroupedNotifications(t *testing.T) {
	app := newTestApp(t)
	mentor, mentee, link := app.mentorship(t)
	mentorToken, menteeToken := app.token(t, mentor), app.token(t, mentee)
	path := "/v1/links/" + link.ID + "/messages"

	for _, body := range []string{"Hello", "  Did you finish the essay? "} {
		rec := app.do(t, http.MethodPost, path, mentorToken, map[string]string{"body": body})
		require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	}

	notes := decode[[]notification.Notification](t, app.do(t, http.MethodGet, "/v1/notifications", menteeToken, nil), http.StatusOK)
	require.Len(t, notes, 1)
	n := notes[0]
	assert.Equal(t, notification.TypeChatMessage, n.Type)
	assert.Equal(t, 2, n.Meta.BatchedCount)
	assert.Equal(t, link.ID, n.Meta.MentorMenteeID)
	assert.Equal(t, mentor.ID, n.Meta.SenderID)
	assert.Equal(t, "Did you finish the essay?", n.Message)
	assert.Equal(t, "Kim Mentor 새 메시지 2개", n.Title)

	cnt := decode[map[string]int](t, app.do(t, http.MethodGet, "/v1/notifications/unread-count", menteeToken, nil), http.StatusOK)
	assert.Equal(t, 1, cnt["count"])

	// once read, the next message opens a new group
	marked := decode[map[string]int](t, app.do(t, http.MethodPut, "/v1/notifications/read", menteeToken, map[string][]string{"ids": {n.ID}}), http.StatusOK)
	assert.Equal(t, 1, marked["count"])
	rec := app.do(t, http.MethodPost, path, mentorToken, map[string]string{"body": "Ping"})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	unread := decode[[]notification.Notification](t, app.do(t, http.MethodGet, "/v1/notifications?unread=true", menteeToken, nil), http.StatusOK)
	require.Len(t, unread, 1)
	assert.Equal(t, 1, unread[0].Meta.BatchedCount)
	assert.NotEqual(t, n.ID, unread[0].ID)

	// the sender is never notified of their own messages
	own := decode[[]notification.Notification](t, app.do(t, http.MethodGet, "/v1/notifications", mentorToken, nil), http.StatusOK)
	assert.Empty(t, own)

	msgs := decode[[]chat.Message](t, app.do(t, http.MethodGet, path, menteeToken, nil), http.StatusOK)
	require.Len(t, msgs, 3)
	assert.Equal(t, "Ping", msgs[0].Body)

	older := decode[[]chat.Message](t, app.do(t, http.MethodGet,
		path+"?limit=5&before="+url.QueryEscape(msgs[0].CreatedAt.Format(time.RFC3339Nano)), menteeToken, nil), http.StatusOK)
	for _, m := range older {
		assert.True(t, m.CreatedAt.Before(msgs[0].CreatedAt))
	}

	all := decode[map[string]int](t, app.do(t, http.MethodPut, "/v1/notifications/read-all", menteeToken, nil), http.StatusOK)
	assert.Equal(t, 1, all["count"])
}

func TestChatAccess(t *testing.T) {
	app := newTestApp(t)
	mentor, mentee, link := app.mentorship(t)
	outsider := app.createProfile(t, core.RoleMentee, "Jung Mentee", "other@test.test")
	path := "/v1/links/" + link.ID + "/messages"

	app.run(t, []httpTest{
		{
			name:     "outsider reads",
			path:     path,
			token:    app.token(t, outsider),
			wantCode: http.StatusForbidden,
			wantErr:  "you are not part of this conversation",
		},
		{
			name:     "blank message",
			method:   http.MethodPost,
			path:     path,
			token:    app.token(t, mentee),
			body:     map[string]string{"body": "   "},
			wantCode: http.StatusBadRequest,
			wantErr:  "invalid input",
		},
		{
			name:     "bad cursor",
			path:     path + "?before=yesterday",
			token:    app.token(t, mentee),
			wantCode: http.StatusBadRequest,
		},
		{
			name:     "unknown link",
			path:     "/v1/links/8f14e45f-ceea-467f-a8f2-0f9f2f4a4c39/messages",
			token:    app.token(t, mentor),
			wantCode: http.StatusNotFound,
		},
	})

	require.NoError(t, app.c.Profiles.DeactivateLink(context.Background(), link.ID))
	rec := app.do(t, http.MethodPost, path, app.token(t, mentor), map[string]string{"body": "Still there?"})
	assert.Equal(t, "this mentorship has ended", decodeErr(t, rec, http.StatusForbidden).Error)

	// history stays readable
	rec = app.do(t, http.MethodGet, path, app.token(t, mentee), nil)
	assert.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
}

func TestMeetingFlow(t *testing.T) {
	app := newTestApp(t)
	mentor, mentee, link := app.mentorship(t)
	mentorToken, menteeToken := app.token(t, mentor), app.token(t, mentee)

	startsAt := time.Now().UTC().Add(72 * time.Hour).Truncate(time.Minute)
	m := decode[chat.Meeting](t, app.do(t, http.MethodPost, "/v1/links/"+link.ID+"/meetings", menteeToken, map[string]interface{}{
		"title": "Weekly check-in", "startsAt": startsAt, "durationMin": 30,
	}), http.StatusCreated)
	assert.Equal(t, chat.MeetingRequested, m.Status)
	assert.Equal(t, mentee.ID, m.RequestedBy)

	respond := "/v1/meetings/" + m.ID + "/respond"
	rec := app.do(t, http.MethodPut, respond, menteeToken, map[string]interface{}{"accept": true})
	assert.Equal(t, "only the invited participant can answer this meeting", decodeErr(t, rec, http.StatusForbidden).Error)

	confirmed := decode[chat.Meeting](t, app.do(t, http.MethodPut, respond, mentorToken, map[string]interface{}{
		"accept": true, "meetingUrl": "https://meet.test/abc",
	}), http.StatusOK)
	assert.Equal(t, chat.MeetingConfirmed, confirmed.Status)
	require.NotNil(t, confirmed.MeetingURL)
	assert.Equal(t, "https://meet.test/abc", *confirmed.MeetingURL)

	rec = app.do(t, http.MethodPut, respond, mentorToken, map[string]interface{}{"accept": false})
	assert.Equal(t, "this meeting was already answered", decodeErr(t, rec, http.StatusConflict).Error)

	rec = app.do(t, http.MethodPut, "/v1/meetings/"+m.ID+"/cancel", mentorToken, nil)
	assert.Equal(t, "only the requester can cancel this meeting", decodeErr(t, rec, http.StatusForbidden).Error)

	cancelled := decode[chat.Meeting](t, app.do(t, http.MethodPut, "/v1/meetings/"+m.ID+"/cancel", menteeToken, nil), http.StatusOK)
	assert.Equal(t, chat.MeetingCancelled, cancelled.Status)

	meetings := decode[[]chat.Meeting](t, app.do(t, http.MethodGet, "/v1/links/"+link.ID+"/meetings", mentorToken, nil), http.StatusOK)
	require.Len(t, meetings, 1)
	assert.Equal(t, chat.MeetingCancelled, meetings[0].Status)

	// request, confirmation and cancellation each notified the counterpart
	notes := decode[[]notification.Notification](t, app.do(t, http.MethodGet, "/v1/notifications", mentorToken, nil), http.StatusOK)
	assert.Len(t, notes, 2)
	notes = decode[[]notification.Notification](t, app.do(t, http.MethodGet, "/v1/notifications", menteeToken, nil), http.StatusOK)
	assert.Len(t, notes, 1)
}
