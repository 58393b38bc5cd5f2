package inmemdb

import (
	"context"
	"sort"
	"time"

	"github.com/jhkim0602/monguri-sub002/core"
	"github.com/jhkim0602/monguri-sub002/core/planner"
)

type plannerRepository struct {
	groups  *table[planner.RecurringGroup]
	tasks   *table[planner.Task]
	records *table[planner.DailyRecord]
	events  *table[planner.ScheduleEvent]
}

var _ planner.Repository = (*plannerRepository)(nil) // interface compliance check

func NewPlannerRepository(db *DB) *plannerRepository {
	return &plannerRepository{groups: db.groups, tasks: db.plannerTasks, records: db.dailyRecords, events: db.events}
}

func (repo *plannerRepository) CreateRecurringGroup(_ context.Context, g planner.RecurringGroup, _ ...core.DBExecutor) (planner.RecurringGroup, error) {
	repo.groups.mutex.Lock()
	defer repo.groups.mutex.Unlock()

	g.ID = newID()
	repo.groups.rows[g.ID] = &g
	return g, nil
}

func (repo *plannerRepository) GetRecurringGroup(_ context.Context, id string, _ ...core.DBExecutor) (planner.RecurringGroup, error) {
	repo.groups.mutex.RLock()
	defer repo.groups.mutex.RUnlock()

	if g, ok := repo.groups.rows[id]; ok {
		return *g, nil
	}
	return planner.RecurringGroup{}, planner.ErrGroupNotFound
}

// DeleteRecurringGroup cascades to the tasks of the group like the foreign key does in postgres.
func (repo *plannerRepository) DeleteRecurringGroup(_ context.Context, id string, _ ...core.DBExecutor) error {
	repo.groups.mutex.Lock()
	defer repo.groups.mutex.Unlock()
	repo.tasks.mutex.Lock()
	defer repo.tasks.mutex.Unlock()

	delete(repo.groups.rows, id)
	for tid, t := range repo.tasks.rows {
		if t.RecurringGroupID != nil && *t.RecurringGroupID == id {
			delete(repo.tasks.rows, tid)
		}
	}
	return nil
}

func (repo *plannerRepository) CreateTasks(_ context.Context, tasks []planner.Task, _ ...core.DBExecutor) (int, error) {
	repo.tasks.mutex.Lock()
	defer repo.tasks.mutex.Unlock()

	for i := range tasks {
		t := tasks[i]
		t.ID = newID()
		repo.tasks.rows[t.ID] = &t
	}
	return len(tasks), nil
}

func (repo *plannerRepository) GetTask(_ context.Context, id string, _ ...core.DBExecutor) (planner.Task, error) {
	repo.tasks.mutex.RLock()
	defer repo.tasks.mutex.RUnlock()

	if t, ok := repo.tasks.rows[id]; ok {
		return *t, nil
	}
	return planner.Task{}, planner.ErrNotFound
}

func startTime(t planner.Task) string {
	if t.StartTime == nil {
		return ""
	}
	return *t.StartTime
}

func (repo *plannerRepository) QueryTasks(_ context.Context, filter planner.QueryFilter, _ ...core.DBExecutor) ([]planner.Task, error) {
	repo.tasks.mutex.RLock()
	defer repo.tasks.mutex.RUnlock()

	res := make([]planner.Task, 0)
	for _, t := range repo.tasks.rows {
		switch {
		case filter.MenteeID != "" && t.MenteeID != filter.MenteeID,
			!filter.Range.Contains(t.Date),
			filter.RecurringGroupID != "" && (t.RecurringGroupID == nil || *t.RecurringGroupID != filter.RecurringGroupID),
			filter.WithMentorComment && t.MentorComment == nil:
			continue
		}
		res = append(res, *t)
	}
	sort.Slice(res, func(i, j int) bool {
		if res[i].Date != res[j].Date {
			return res[i].Date < res[j].Date
		}
		if si, sj := startTime(res[i]), startTime(res[j]); si != sj {
			return si < sj
		}
		return res[i].CreatedAt.Before(res[j].CreatedAt)
	})
	return res, nil
}

func (repo *plannerRepository) UpdateTask(_ context.Context, t planner.Task, _ ...core.DBExecutor) (planner.Task, error) {
	repo.tasks.mutex.Lock()
	defer repo.tasks.mutex.Unlock()

	if _, ok := repo.tasks.rows[t.ID]; !ok {
		return planner.Task{}, planner.ErrNotFound
	}
	repo.tasks.rows[t.ID] = &t
	return t, nil
}

func (repo *plannerRepository) DeleteTask(_ context.Context, id string, _ ...core.DBExecutor) error {
	repo.tasks.mutex.Lock()
	defer repo.tasks.mutex.Unlock()
	delete(repo.tasks.rows, id)
	return nil
}

// record returns the (mentee, date) record, creating it when missing. The caller holds the lock.
func (repo *plannerRepository) record(menteeID, date string) *planner.DailyRecord {
	for _, r := range repo.records.rows {
		if r.MenteeID == menteeID && r.Date == date {
			return r
		}
	}
	r := &planner.DailyRecord{ID: newID(), MenteeID: menteeID, Date: date}
	repo.records.rows[r.ID] = r
	return r
}

func (repo *plannerRepository) UpsertDailyEntry(_ context.Context, rec planner.DailyRecord, _ ...core.DBExecutor) (planner.DailyRecord, error) {
	repo.records.mutex.Lock()
	defer repo.records.mutex.Unlock()

	r := repo.record(rec.MenteeID, rec.Date)
	r.StudyTimeMin = rec.StudyTimeMin
	r.Mood = rec.Mood
	r.MenteeComment = rec.MenteeComment
	r.UpdatedAt = rec.UpdatedAt
	return *r, nil
}

func (repo *plannerRepository) UpsertDailyReply(_ context.Context, menteeID, date, reply string, at time.Time, _ ...core.DBExecutor) (planner.DailyRecord, error) {
	repo.records.mutex.Lock()
	defer repo.records.mutex.Unlock()

	r := repo.record(menteeID, date)
	r.MentorReply = &reply
	r.MentorReplyAt = &at
	r.UpdatedAt = at
	return *r, nil
}

func (repo *plannerRepository) QueryDailyRecords(_ context.Context, menteeID string, dr core.DateRange, _ ...core.DBExecutor) ([]planner.DailyRecord, error) {
	repo.records.mutex.RLock()
	defer repo.records.mutex.RUnlock()

	res := make([]planner.DailyRecord, 0)
	for _, r := range repo.records.rows {
		if r.MenteeID == menteeID && dr.Contains(r.Date) {
			res = append(res, *r)
		}
	}
	sort.Slice(res, func(i, j int) bool { return res[i].Date < res[j].Date })
	return res, nil
}

func (repo *plannerRepository) CreateScheduleEvent(_ context.Context, e planner.ScheduleEvent, _ ...core.DBExecutor) (planner.ScheduleEvent, error) {
	repo.events.mutex.Lock()
	defer repo.events.mutex.Unlock()

	e.ID = newID()
	repo.events.rows[e.ID] = &e
	return e, nil
}

func (repo *plannerRepository) GetScheduleEvent(_ context.Context, id string, _ ...core.DBExecutor) (planner.ScheduleEvent, error) {
	repo.events.mutex.RLock()
	defer repo.events.mutex.RUnlock()

	if e, ok := repo.events.rows[id]; ok {
		return *e, nil
	}
	return planner.ScheduleEvent{}, planner.ErrEventNotFound
}

func (repo *plannerRepository) DeleteScheduleEvent(_ context.Context, id string, _ ...core.DBExecutor) error {
	repo.events.mutex.Lock()
	defer repo.events.mutex.Unlock()
	delete(repo.events.rows, id)
	return nil
}

func (repo *plannerRepository) QueryScheduleEvents(_ context.Context, menteeID string, dr core.DateRange, _ ...core.DBExecutor) ([]planner.ScheduleEvent, error) {
	repo.events.mutex.RLock()
	defer repo.events.mutex.RUnlock()

	res := make([]planner.ScheduleEvent, 0)
	for _, e := range repo.events.rows {
		if e.MenteeID == menteeID && dr.Contains(e.Date) {
			res = append(res, *e)
		}
	}
	sort.Slice(res, func(i, j int) bool {
		if res[i].Date != res[j].Date {
			return res[i].Date < res[j].Date
		}
		return res[i].CreatedAt.Before(res[j].CreatedAt)
	})
	return res, nil
}
