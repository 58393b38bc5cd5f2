// Package inmemdb implements every repository in process memory, for tests and the memory engine.
package inmemdb

import (
	"sync"

	"github.com/google/uuid"

	"github.com/jhkim0602/monguri-sub002/core/chat"
	"github.com/jhkim0602/monguri-sub002/core/column"
	"github.com/jhkim0602/monguri-sub002/core/notification"
	"github.com/jhkim0602/monguri-sub002/core/planner"
	"github.com/jhkim0602/monguri-sub002/core/profile"
	"github.com/jhkim0602/monguri-sub002/core/subject"
	"github.com/jhkim0602/monguri-sub002/core/task"
)

type table[T any] struct {
	mutex sync.RWMutex
	rows  map[string]*T
}

func newTable[T any]() *table[T] {
	return &table[T]{rows: make(map[string]*T)}
}

// DB holds one table per entity. Transactions are not supported: executors passed to the
// repositories are ignored.
type DB struct {
	profiles      *table[profile.Profile]
	links         *table[profile.Link]
	subjects      *table[subject.Subject]
	tasks         *table[task.MentorTask]
	submissions   *table[task.Submission]
	feedback      *table[task.Feedback]
	groups        *table[planner.RecurringGroup]
	plannerTasks  *table[planner.Task]
	dailyRecords  *table[planner.DailyRecord]
	events        *table[planner.ScheduleEvent]
	notifications *table[notification.Notification]
	messages      *table[chat.Message]
	meetings      *table[chat.Meeting]
	articles      *table[column.Article]
}

func Open() *DB {
	return &DB{
		profiles:      newTable[profile.Profile](),
		links:         newTable[profile.Link](),
		subjects:      newTable[subject.Subject](),
		tasks:         newTable[task.MentorTask](),
		submissions:   newTable[task.Submission](),
		feedback:      newTable[task.Feedback](),
		groups:        newTable[planner.RecurringGroup](),
		plannerTasks:  newTable[planner.Task](),
		dailyRecords:  newTable[planner.DailyRecord](),
		events:        newTable[planner.ScheduleEvent](),
		notifications: newTable[notification.Notification](),
		messages:      newTable[chat.Message](),
		meetings:      newTable[chat.Meeting](),
		articles:      newTable[column.Article](),
	}
}

func newID() string { return uuid.New().String() }
