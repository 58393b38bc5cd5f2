package task

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSummarize(t *testing.T) {
	tests := []struct {
		name   string
		status []string
		want   Summary
	}{
		{name: "empty"},
		{
			name:   "every status",
			status: []string{StatusPending, StatusSubmitted, StatusSubmitted, StatusFeedbackCompleted},
			want:   Summary{Total: 4, Pending: 1, Submitted: 2, FeedbackCompleted: 1},
		},
		{
			name:   "unknown statuses are left out of the total",
			status: []string{StatusPending, "archived"},
			want:   Summary{Total: 1, Pending: 1, Unknown: 1},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tasks := make([]MentorTask, 0, len(tt.status))
			for _, s := range tt.status {
				tasks = append(tasks, MentorTask{Status: s})
			}
			got := Summarize(tasks)
			assert.Equal(t, tt.want, got)
			assert.Equal(t, got.Total, got.Pending+got.Submitted+got.FeedbackCompleted)
		})
	}
}

func TestDerive(t *testing.T) {
	t0 := time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC)

	got := Derive(nil, nil)
	assert.Nil(t, got.LatestSubmission)
	assert.Nil(t, got.LatestFeedback)
	assert.False(t, got.HasMentorResponse)

	subs := []Submission{
		{ID: "s1", SubmittedAt: t0},
		{ID: "s3", SubmittedAt: t0.Add(2 * time.Hour)},
		{ID: "s2", SubmittedAt: t0.Add(time.Hour)},
	}
	fbs := []Feedback{
		{ID: "f1", CreatedAt: t0.Add(3 * time.Hour)},
		{ID: "f2", CreatedAt: t0.Add(3 * time.Hour)}, // same instant: the greater id wins
	}
	got = Derive(subs, fbs)
	require.NotNil(t, got.LatestSubmission)
	assert.Equal(t, "s3", got.LatestSubmission.ID)
	require.NotNil(t, got.LatestFeedback)
	assert.Equal(t, "f2", got.LatestFeedback.ID)
	assert.True(t, got.HasMentorResponse)

	// the result does not alias the input
	got.LatestSubmission.ID = "changed"
	assert.Equal(t, "s3", subs[1].ID)
}

func TestBuildViews(t *testing.T) {
	t0 := time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC)
	tasks := []MentorTask{{ID: "t1"}, {ID: "t2"}}
	subs := []Submission{
		{ID: "s1", TaskID: "t1", SubmittedAt: t0},
		{ID: "s2", TaskID: "t2", SubmittedAt: t0.Add(time.Hour)},
		{ID: "s3", TaskID: "t1", SubmittedAt: t0.Add(time.Minute)},
	}
	fbs := []Feedback{{ID: "f1", TaskID: "t2", CreatedAt: t0.Add(2 * time.Hour)}}

	views := BuildViews(tasks, subs, fbs)
	require.Len(t, views, 2)
	assert.Equal(t, "s3", views[0].LatestSubmission.ID)
	assert.Nil(t, views[0].LatestFeedback)
	assert.Equal(t, "s2", views[1].LatestSubmission.ID)
	assert.True(t, views[1].HasMentorResponse)
}
