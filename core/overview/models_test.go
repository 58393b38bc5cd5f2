package overview

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/jhkim0602/monguri-sub002/core/planner"
	"github.com/jhkim0602/monguri-sub002/core/task"
)

func TestItem_Date(t *testing.T) {
	// late in the evening in Seoul is still the previous day in UTC
	kst := time.FixedZone("KST", 9*60*60)
	mentor := MentorItem(task.View{MentorTask: task.MentorTask{Deadline: time.Date(2026, 3, 3, 8, 0, 0, 0, kst)}})
	plan := PlannerItem(planner.Task{Date: "2026-03-02"})

	assert.Equal(t, "2026-03-02", mentor.Date())
	assert.True(t, mentor.IsMentorTask)
	assert.Nil(t, mentor.PlannerTask)
	assert.Equal(t, "2026-03-02", plan.Date())
	assert.False(t, plan.IsMentorTask)
	assert.Nil(t, plan.MentorTask)
	assert.Equal(t, "", Item{}.Date())
}

func TestSortFeed(t *testing.T) {
	t0 := time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC)
	feed := []FeedItem{
		{RefID: "a", At: t0},
		{RefID: "b", At: t0.Add(time.Hour)},
		{RefID: "c", At: t0},
		{RefID: "d", At: t0.Add(-time.Hour)},
	}
	SortFeed(feed)

	var got []string
	for _, it := range feed {
		got = append(got, it.RefID)
	}
	assert.Equal(t, []string{"b", "a", "c", "d"}, got)
}
