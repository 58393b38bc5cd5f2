package overview

import (
	"time"

	"github.com/jhkim0602/monguri-sub002/core"
	"github.com/jhkim0602/monguri-sub002/core/planner"
	"github.com/jhkim0602/monguri-sub002/core/profile"
	"github.com/jhkim0602/monguri-sub002/core/task"
)

// Item kinds
const (
	KindMentor  = "mentor"
	KindPlanner = "planner"
)

// Feed item kinds
const (
	FeedTaskFeedback  = "task_feedback"
	FeedPlannerReview = "planner_comment"
	FeedDailyReply    = "daily_reply"
)

type (
	// Item is one entry of the planner task list: a mentor task or a planner task, told apart by Kind.
	// Exactly one of MentorTask and PlannerTask is set.
	Item struct {
		Kind         string        `json:"kind"`
		IsMentorTask bool          `json:"isMentorTask"`
		MentorTask   *task.View    `json:"mentorTask,omitempty"`
		PlannerTask  *planner.Task `json:"plannerTask,omitempty"`
	}

	// PlannerOverview is everything the planner shows for a mentee and a date range.
	// Mentor tasks are never filtered by the range: overdue and upcoming ones stay visible.
	PlannerOverview struct {
		MenteeID       string                  `json:"menteeId"`
		Range          core.DateRange          `json:"range"`
		Summary        task.Summary            `json:"summary"`
		Tasks          []Item                  `json:"tasks"`
		ScheduleEvents []planner.ScheduleEvent `json:"scheduleEvents"`
		DailyRecords   []planner.DailyRecord   `json:"dailyRecords"`
	}

	// FeedItem is one mentor response shown in the mentee's feedback feed.
	FeedItem struct {
		Kind    string    `json:"kind"`
		RefID   string    `json:"refId"`
		Title   string    `json:"title"`
		Comment string    `json:"comment"`
		Rating  *int      `json:"rating,omitempty"`
		IsRead  *bool     `json:"isRead,omitempty"`
		Date    string    `json:"date,omitempty"` // planner or daily record date
		At      time.Time `json:"at"`
	}

	MenteeSummary struct {
		Mentee           profile.Profile `json:"mentee"`
		Summary          task.Summary    `json:"summary"`
		AwaitingReview   int             `json:"awaitingReview"`
		PlannerTotal     int             `json:"plannerTotal"`     // today
		PlannerCompleted int             `json:"plannerCompleted"` // today
	}

	MentorDashboard struct {
		Date           string          `json:"date"`
		AwaitingReview int             `json:"awaitingReview"`
		Mentees        []MenteeSummary `json:"mentees"`
	}
)

func MentorItem(v task.View) Item {
	return Item{Kind: KindMentor, IsMentorTask: true, MentorTask: &v}
}

func PlannerItem(t planner.Task) Item {
	return Item{Kind: KindPlanner, PlannerTask: &t}
}

// Date is the calendar date the item is shown on: the deadline of mentor tasks, the date of planner tasks.
func (it Item) Date() string {
	switch it.Kind {
	case KindMentor:
		return core.FormatDate(it.MentorTask.Deadline.UTC())
	case KindPlanner:
		return it.PlannerTask.Date
	}
	return ""
}
