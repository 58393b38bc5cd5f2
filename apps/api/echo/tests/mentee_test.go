package tests

import (
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jhkim0602/monguri-sub002/core/overview"
	"github.com/jhkim0602/monguri-sub002/core/planner"
	"github.com/jhkim0602/monguri-sub002/core/task"
)

func TestPlannerRecurringGroup(t *testing.T) {
	app := newTestApp(t)
	mentor, mentee, _ := app.mentorship(t)
	mentorToken, menteeToken := app.token(t, mentor), app.token(t, mentee)

	rec := app.do(t, http.MethodPost, "/v1/mentor/tasks", mentorToken, map[string]interface{}{
		"menteeId": mentee.ID, "title": "Essay", "deadline": time.Now().UTC().Add(24 * time.Hour),
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	// Mondays and Wednesdays from 2026-03-02 to 2026-03-15
	rec = app.do(t, http.MethodPost, "/v1/mentee/planner-tasks", menteeToken, map[string]interface{}{
		"templates":      []map[string]interface{}{{"title": "Vocabulary", "date": "2026-03-02", "subjectId": "english"}},
		"recurrenceRule": map[string]interface{}{"frequency": "weekly", "weekdays": []int{1, 3}, "until": "2026-03-15"},
		"expand":         true,
	})
	res := decode[planner.CreateResult](t, rec, http.StatusCreated)
	assert.Equal(t, 4, res.CreatedCount)
	require.NotNil(t, res.RecurringGroupID)

	rec = app.do(t, http.MethodPost, "/v1/mentee/planner-tasks", menteeToken, map[string]interface{}{
		"templates": []map[string]interface{}{{"title": "Mock exam", "date": "2026-03-03"}},
	})
	single := decode[planner.CreateResult](t, rec, http.StatusCreated)
	assert.Equal(t, 1, single.CreatedCount)
	assert.Nil(t, single.RecurringGroupID)

	ov := decode[overview.PlannerOverview](t,
		app.do(t, http.MethodGet, "/v1/mentee/overview?from=2026-03-01&to=2026-03-15", menteeToken, nil), http.StatusOK)
	require.Len(t, ov.Tasks, 6)
	var dates []string
	for _, it := range ov.Tasks[:5] {
		require.Equal(t, overview.KindPlanner, it.Kind)
		dates = append(dates, it.PlannerTask.Date)
	}
	assert.Equal(t, []string{"2026-03-02", "2026-03-03", "2026-03-04", "2026-03-09", "2026-03-11"}, dates)
	// mentor tasks are listed whatever the range
	assert.Equal(t, overview.KindMentor, ov.Tasks[5].Kind)
	assert.True(t, ov.Tasks[5].IsMentorTask)
	assert.Equal(t, task.Summary{Total: 1, Pending: 1}, ov.Summary)

	// the mentor sees the same planner
	mentorView := decode[overview.PlannerOverview](t,
		app.do(t, http.MethodGet, "/v1/mentor/mentees/"+mentee.ID+"/overview?from=2026-03-01&to=2026-03-15", mentorToken, nil), http.StatusOK)
	assert.Len(t, mentorView.Tasks, 6)

	rec = app.do(t, http.MethodDelete, "/v1/mentee/recurring-groups/"+*res.RecurringGroupID, mentorToken, nil)
	decodeErr(t, rec, http.StatusForbidden)
	rec = app.do(t, http.MethodDelete, "/v1/mentee/recurring-groups/"+*res.RecurringGroupID, menteeToken, nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	ov = decode[overview.PlannerOverview](t,
		app.do(t, http.MethodGet, "/v1/mentee/overview?from=2026-03-01&to=2026-03-15", menteeToken, nil), http.StatusOK)
	require.Len(t, ov.Tasks, 2)
	assert.Equal(t, "Mock exam", ov.Tasks[0].PlannerTask.Title)

	rec = app.do(t, http.MethodDelete, "/v1/mentee/recurring-groups/"+*res.RecurringGroupID, menteeToken, nil)
	assert.Equal(t, "recurring group not found", decodeErr(t, rec, http.StatusNotFound).Error)
}

func TestPlannerValidation(t *testing.T) {
	app := newTestApp(t)
	_, mentee, _ := app.mentorship(t)
	menteeToken := app.token(t, mentee)

	app.run(t, []httpTest{
		{
			name:     "expand without an end date",
			method:   http.MethodPost,
			path:     "/v1/mentee/planner-tasks",
			token:    menteeToken,
			body:     map[string]interface{}{"templates": []map[string]interface{}{{"title": "A", "date": "2026-03-02"}}, "recurrenceRule": map[string]interface{}{"frequency": "daily"}, "expand": true},
			wantCode: http.StatusBadRequest,
		},
		{
			name:     "expand with an end date before the start",
			method:   http.MethodPost,
			path:     "/v1/mentee/planner-tasks",
			token:    menteeToken,
			body:     map[string]interface{}{"templates": []map[string]interface{}{{"title": "A", "date": "2026-03-02"}}, "recurrenceRule": map[string]interface{}{"frequency": "daily", "until": "2026-03-01"}, "expand": true},
			wantCode: http.StatusBadRequest,
			wantErr:  "invalid input",
		},
		{
			name:     "bad date",
			method:   http.MethodPost,
			path:     "/v1/mentee/planner-tasks",
			token:    menteeToken,
			body:     map[string]interface{}{"templates": []map[string]interface{}{{"title": "A", "date": "03/02/2026"}}},
			wantCode: http.StatusBadRequest,
			wantErr:  "invalid input",
		},
		{
			name:     "empty batch",
			method:   http.MethodPost,
			path:     "/v1/mentee/planner-tasks",
			token:    menteeToken,
			body:     map[string]interface{}{"templates": []map[string]interface{}{}},
			wantCode: http.StatusBadRequest,
			wantErr:  "invalid input",
		},
		{
			name:     "bad daily record date",
			method:   http.MethodPut,
			path:     "/v1/mentee/daily-records/yesterday",
			token:    menteeToken,
			body:     map[string]interface{}{"studyTimeMin": 30},
			wantCode: http.StatusBadRequest,
		},
		{
			name:     "unknown planner task",
			method:   http.MethodPut,
			path:     "/v1/mentee/planner-tasks/8f14e45f-ceea-467f-a8f2-0f9f2f4a4c39",
			token:    menteeToken,
			body:     map[string]interface{}{"completed": true},
			wantCode: http.StatusNotFound,
			wantErr:  "planner task not found",
		},
	})
}

func TestMentorResponsesFeed(t *testing.T) {
	app := newTestApp(t)
	mentor, mentee, _ := app.mentorship(t)
	mentorToken, menteeToken := app.token(t, mentor), app.token(t, mentee)

	rec := app.do(t, http.MethodPost, "/v1/mentee/planner-tasks", menteeToken, map[string]interface{}{
		"templates": []map[string]interface{}{{"title": "Grammar", "date": "2026-03-02"}},
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	ov := decode[overview.PlannerOverview](t,
		app.do(t, http.MethodGet, "/v1/mentee/overview?from=2026-03-02&to=2026-03-02", menteeToken, nil), http.StatusOK)
	require.Len(t, ov.Tasks, 1)
	pt := ov.Tasks[0].PlannerTask

	upd := decode[planner.Task](t, app.do(t, http.MethodPut, "/v1/mentee/planner-tasks/"+pt.ID, menteeToken, map[string]interface{}{
		"completed": true, "timeSpentSec": 1800,
	}), http.StatusOK)
	assert.True(t, upd.Completed)
	assert.Equal(t, 1800, upd.TimeSpentSec)

	commented := decode[planner.Task](t, app.do(t, http.MethodPut, "/v1/mentor/planner-tasks/"+pt.ID+"/comment", mentorToken, map[string]interface{}{
		"comment": "Keep going",
	}), http.StatusOK)
	require.NotNil(t, commented.MentorComment)
	assert.Equal(t, "Keep going", *commented.MentorComment)

	dr := decode[planner.DailyRecord](t, app.do(t, http.MethodPut, "/v1/mentee/daily-records/2026-03-02", menteeToken, map[string]interface{}{
		"studyTimeMin": 120, "mood": "good",
	}), http.StatusOK)
	assert.Equal(t, 120, dr.StudyTimeMin)

	// a second upsert keeps the same record
	dr2 := decode[planner.DailyRecord](t, app.do(t, http.MethodPut, "/v1/mentee/daily-records/2026-03-02", menteeToken, map[string]interface{}{
		"studyTimeMin": 150,
	}), http.StatusOK)
	assert.Equal(t, dr.ID, dr2.ID)
	assert.Equal(t, 150, dr2.StudyTimeMin)

	replied := decode[planner.DailyRecord](t, app.do(t, http.MethodPut, "/v1/mentor/mentees/"+mentee.ID+"/daily-records/2026-03-02/reply", mentorToken, map[string]interface{}{
		"comment": "Great day",
	}), http.StatusOK)
	require.NotNil(t, replied.MentorReply)

	feed := decode[[]overview.FeedItem](t, app.do(t, http.MethodGet, "/v1/mentor/mentees/"+mentee.ID+"/feedback-feed", mentorToken, nil), http.StatusOK)
	require.Len(t, feed, 2)
	kinds := []string{feed[0].Kind, feed[1].Kind}
	assert.ElementsMatch(t, []string{overview.FeedPlannerReview, overview.FeedDailyReply}, kinds)
	assert.False(t, feed[0].At.Before(feed[1].At))

	ev := decode[planner.ScheduleEvent](t, app.do(t, http.MethodPost, "/v1/mentor/mentees/"+mentee.ID+"/schedule-events", mentorToken, map[string]interface{}{
		"title": "Mock exam", "date": "2026-03-05",
	}), http.StatusCreated)
	ov = decode[overview.PlannerOverview](t,
		app.do(t, http.MethodGet, "/v1/mentee/overview?from=2026-03-01&to=2026-03-07", menteeToken, nil), http.StatusOK)
	require.Len(t, ov.ScheduleEvents, 1)
	require.Len(t, ov.DailyRecords, 1)

	rec = app.do(t, http.MethodDelete, "/v1/mentee/schedule-events/"+ev.ID, menteeToken, nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	ov = decode[overview.PlannerOverview](t,
		app.do(t, http.MethodGet, "/v1/mentee/overview?from=2026-03-01&to=2026-03-07", menteeToken, nil), http.StatusOK)
	assert.Empty(t, ov.ScheduleEvents)
}
