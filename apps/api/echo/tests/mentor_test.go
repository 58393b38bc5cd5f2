package tests

import (
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jhkim0602/monguri-sub002/core"
	"github.com/jhkim0602/monguri-sub002/core/notification"
	"github.com/jhkim0602/monguri-sub002/core/overview"
	"github.com/jhkim0602/monguri-sub002/core/task"
)

func TestTaskLifecycle(t *testing.T) {
	app := newTestApp(t)
	app.c.Conf.Workflow.AllowFeedbackWithoutSubmission = false
	mentor, mentee, _ := app.mentorship(t)
	mentorToken, menteeToken := app.token(t, mentor), app.token(t, mentee)

	deadline := time.Now().UTC().Add(48 * time.Hour).Truncate(time.Second)
	rec := app.do(t, http.MethodPost, "/v1/mentor/tasks", mentorToken, map[string]interface{}{
		"menteeId":  mentee.ID,
		"subjectId": "math",
		"title":     "  Chapter 3 exercises ",
		"deadline":  deadline,
	})
	created := decode[task.View](t, rec, http.StatusCreated)
	assert.Equal(t, "Chapter 3 exercises", created.Title)
	assert.Equal(t, task.StatusPending, created.Status)
	assert.Equal(t, mentor.ID, created.MentorID)

	// the mentee is notified and sees the task
	notes := decode[[]notification.Notification](t, app.do(t, http.MethodGet, "/v1/notifications", menteeToken, nil), http.StatusOK)
	require.Len(t, notes, 1)
	assert.Equal(t, notification.TypeTaskAssigned, notes[0].Type)

	list := decode[task.MenteeTasks](t, app.do(t, http.MethodGet, "/v1/mentee/tasks", menteeToken, nil), http.StatusOK)
	require.Len(t, list.Tasks, 1)
	assert.Equal(t, task.Summary{Total: 1, Pending: 1}, list.Summary)

	// feedback before any submission is refused
	rec = app.do(t, http.MethodPost, "/v1/mentor/tasks/"+created.ID+"/feedback", mentorToken, map[string]interface{}{
		"comment": "Good", "rating": 4,
	})
	assert.Equal(t, "task has not been submitted yet", decodeErr(t, rec, http.StatusConflict).Error)

	rec = app.do(t, http.MethodPost, "/v1/mentee/tasks/"+created.ID+"/submissions", menteeToken, map[string]interface{}{
		"note":        "done",
		"attachments": []map[string]string{
			{"name": "p1.jpg", "url": "https://files.test/p1.jpg"},
		},
	})
	sub := decode[task.Submission](t, rec, http.StatusCreated)
	assert.Equal(t, mentee.ID, sub.MenteeID)

	queue := decode[[]task.View](t, app.do(t, http.MethodGet, "/v1/mentor/feedback-queue", mentorToken, nil), http.StatusOK)
	require.Len(t, queue, 1)
	assert.Equal(t, task.StatusSubmitted, queue[0].Status)
	require.NotNil(t, queue[0].LatestSubmission)
	assert.Equal(t, sub.ID, queue[0].LatestSubmission.ID)

	rec = app.do(t, http.MethodPost, "/v1/mentor/tasks/"+created.ID+"/feedback", mentorToken, map[string]interface{}{
		"comment": "Nice work", "rating": 5,
	})
	fb := decode[task.Feedback](t, rec, http.StatusCreated)
	assert.False(t, fb.IsRead)

	// a completed task accepts no more submissions
	rec = app.do(t, http.MethodPost, "/v1/mentee/tasks/"+created.ID+"/submissions", menteeToken, map[string]interface{}{})
	assert.Equal(t, "task feedback is already completed", decodeErr(t, rec, http.StatusConflict).Error)

	detail := decode[task.Detail](t, app.do(t, http.MethodGet, "/v1/mentee/tasks/"+created.ID, menteeToken, nil), http.StatusOK)
	assert.Equal(t, task.StatusFeedbackCompleted, detail.Status)
	assert.True(t, detail.HasMentorResponse)
	assert.Len(t, detail.Submissions, 1)
	assert.Len(t, detail.Feedback, 1)

	feed := decode[[]overview.FeedItem](t, app.do(t, http.MethodGet, "/v1/mentee/feedback-feed", menteeToken, nil), http.StatusOK)
	require.Len(t, feed, 1)
	assert.Equal(t, overview.FeedTaskFeedback, feed[0].Kind)
	assert.Equal(t, "Nice work", feed[0].Comment)
	require.NotNil(t, feed[0].IsRead)
	assert.False(t, *feed[0].IsRead)

	rec = app.do(t, http.MethodPut, "/v1/mentee/feedback/"+fb.ID+"/read", menteeToken, nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	feed = decode[[]overview.FeedItem](t, app.do(t, http.MethodGet, "/v1/mentee/feedback-feed", menteeToken, nil), http.StatusOK)
	require.Len(t, feed, 1)
	assert.True(t, *feed[0].IsRead)

	// the feedback mail went out
	assert.Len(t, app.mailSvc.SentMessages(), 1)
}

func TestMentorAccess(t *testing.T) {
	app := newTestApp(t)
	mentor, mentee, _ := app.mentorship(t)
	stranger := app.createProfile(t, core.RoleMentor, "Choi Mentor", "stranger@test.test")
	other := app.createProfile(t, core.RoleMentee, "Jung Mentee", "other@test.test")

	mentorToken, menteeToken := app.token(t, mentor), app.token(t, mentee)
	strangerToken := app.token(t, stranger)

	deadline := time.Now().UTC().Add(24 * time.Hour)
	tk := decode[task.View](t, app.do(t, http.MethodPost, "/v1/mentor/tasks", mentorToken, map[string]interface{}{
		"menteeId": mentee.ID, "title": "Essay", "deadline": deadline,
	}), http.StatusCreated)

	app.run(t, []httpTest{
		{
			name:     "mentee on mentor routes",
			path:     "/v1/mentor/dashboard",
			token:    menteeToken,
			wantCode: http.StatusForbidden,
			wantErr:  "permission denied",
		},
		{
			name:     "mentor on mentee routes",
			path:     "/v1/mentee/overview",
			token:    mentorToken,
			wantCode: http.StatusForbidden,
			wantErr:  "permission denied",
		},
		{
			name:     "no token",
			path:     "/v1/mentor/students",
			wantCode: http.StatusUnauthorized,
			wantErr:  "missing or malformed jwt",
		},
		{
			name:     "unlinked mentor reads an overview",
			path:     "/v1/mentor/mentees/" + mentee.ID + "/overview",
			token:    strangerToken,
			wantCode: http.StatusForbidden,
			wantErr:  "no active mentor-mentee link",
		},
		{
			name:     "unlinked mentor assigns a task",
			method:   http.MethodPost,
			path:     "/v1/mentor/tasks",
			token:    mentorToken,
			body:     map[string]interface{}{"menteeId": other.ID, "title": "Essay", "deadline": deadline},
			wantCode: http.StatusForbidden,
			wantErr:  "no active mentor-mentee link",
		},
		{
			name:     "another mentor updates the task",
			method:   http.MethodPut,
			path:     "/v1/mentor/tasks/" + tk.ID,
			token:    strangerToken,
			body:     map[string]interface{}{"title": "Mine now"},
			wantCode: http.StatusForbidden,
			wantErr:  "this task was not assigned by you",
		},
		{
			name:     "another mentee submits",
			method:   http.MethodPost,
			path:     "/v1/mentee/tasks/" + tk.ID + "/submissions",
			token:    app.token(t, other),
			body:     map[string]interface{}{},
			wantCode: http.StatusForbidden,
			wantErr:  "this task was not assigned to you",
		},
		{
			name:     "invalid task",
			method:   http.MethodPost,
			path:     "/v1/mentor/tasks",
			token:    mentorToken,
			body:     map[string]interface{}{"menteeId": mentee.ID, "title": "  ", "deadline": deadline},
			wantCode: http.StatusBadRequest,
			wantErr:  "invalid input",
		},
		{
			name:     "unknown task",
			path:     "/v1/mentor/tasks/8f14e45f-ceea-467f-a8f2-0f9f2f4a4c39",
			token:    mentorToken,
			wantCode: http.StatusNotFound,
			wantErr:  "task not found",
		},
		{
			name:  "linked mentor reads the overview",
			path:  "/v1/mentor/mentees/" + mentee.ID + "/overview?from=2026-03-01&to=2026-03-07",
			token: mentorToken,
		},
		{
			name:     "reversed range",
			path:     "/v1/mentor/mentees/" + mentee.ID + "/overview?from=2026-03-07&to=2026-03-01",
			token:    mentorToken,
			wantCode: http.StatusBadRequest,
		},
	})
}

func TestMentorDashboard(t *testing.T) {
	app := newTestApp(t)
	mentor, mentee, _ := app.mentorship(t)
	mentorToken, menteeToken := app.token(t, mentor), app.token(t, mentee)

	deadline := time.Now().UTC().Add(24 * time.Hour)
	for _, title := range []string{"Essay", "Reading"} {
		rec := app.do(t, http.MethodPost, "/v1/mentor/tasks", mentorToken, map[string]interface{}{
			"menteeId": mentee.ID, "title": title, "deadline": deadline,
		})
		require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	}

	// reading the dashboard caches it; the submission below must invalidate it
	dash := decode[overview.MentorDashboard](t, app.do(t, http.MethodGet, "/v1/mentor/dashboard", mentorToken, nil), http.StatusOK)
	require.Len(t, dash.Mentees, 1)
	assert.Equal(t, 0, dash.AwaitingReview)
	assert.Equal(t, task.Summary{Total: 2, Pending: 2}, dash.Mentees[0].Summary)

	list := decode[task.MenteeTasks](t, app.do(t, http.MethodGet, "/v1/mentee/tasks", menteeToken, nil), http.StatusOK)
	require.Len(t, list.Tasks, 2)
	rec := app.do(t, http.MethodPost, "/v1/mentee/tasks/"+list.Tasks[0].ID+"/submissions", menteeToken, map[string]interface{}{})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	dash = decode[overview.MentorDashboard](t, app.do(t, http.MethodGet, "/v1/mentor/dashboard", mentorToken, nil), http.StatusOK)
	assert.Equal(t, 1, dash.AwaitingReview)
	assert.Equal(t, task.Summary{Total: 2, Pending: 1, Submitted: 1}, dash.Mentees[0].Summary)

	students := decode[[]map[string]interface{}](t, app.do(t, http.MethodGet, "/v1/mentor/students", mentorToken, nil), http.StatusOK)
	require.Len(t, students, 1)
	assert.Equal(t, mentee.ID, students[0]["id"])
}

func TestFeedbackWithoutSubmission(t *testing.T) {
	app := newTestApp(t)
	mentor, mentee, _ := app.mentorship(t)
	mentorToken := app.token(t, mentor)

	tk := decode[task.View](t, app.do(t, http.MethodPost, "/v1/mentor/tasks", mentorToken, map[string]interface{}{
		"menteeId": mentee.ID, "title": "Oral quiz", "deadline": time.Now().UTC().Add(time.Hour),
	}), http.StatusCreated)

	rec := app.do(t, http.MethodPost, "/v1/mentor/tasks/"+tk.ID+"/feedback", mentorToken, map[string]interface{}{
		"comment": "Done in class", "rating": 4,
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	detail := decode[task.Detail](t, app.do(t, http.MethodGet, "/v1/mentor/tasks/"+tk.ID, mentorToken, nil), http.StatusOK)
	assert.Equal(t, task.StatusFeedbackCompleted, detail.Status)
	assert.Nil(t, detail.LatestSubmission)
	assert.True(t, detail.HasMentorResponse)
}
