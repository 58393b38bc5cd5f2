package boiledrepos

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/volatiletech/null/v8"
	"github.com/volatiletech/sqlboiler/v4/queries"
	"github.com/volatiletech/sqlboiler/v4/queries/qm"
	"github.com/volatiletech/sqlboiler/v4/types"
	"github.com/volatiletech/strmangle"

	"github.com/jhkim0602/monguri-sub002/core"
	"github.com/jhkim0602/monguri-sub002/core/planner"
	"github.com/jhkim0602/monguri-sub002/core/task"
)

const (
	tableRecurringGroups = "planner_recurring_groups"
	tablePlannerTasks    = "planner_tasks"
	tableDailyRecords    = "daily_records"
	tableScheduleEvents  = "schedule_events"
)

var (
	groupColumns       = []string{"id", "mentee_id", "recurrence_rule", "created_at"}
	plannerTaskColumns = []string{
		"id", "mentee_id", "title", "date", "subject_id", "completed", "time_spent_sec", "start_time", "end_time",
		"study_note", "attachments", "materials", "mentor_comment", "mentor_comment_at", "recurring_group_id",
		"created_at", "updated_at",
	}
	dailyRecordColumns   = []string{"id", "mentee_id", "date", "study_time_min", "mood", "mentee_comment", "mentor_reply", "mentor_reply_at", "updated_at"}
	scheduleEventColumns = []string{"id", "mentee_id", "subject_id", "title", "date", "created_at"}
)

// selectCols returns `cols` with the DATE columns rendered as text.
func selectCols(cols []string) []string {
	sel := make([]string, 0, len(cols))
	for _, c := range cols {
		if c == "date" {
			sel = append(sel, dateCol(c))
			continue
		}
		sel = append(sel, c)
	}
	return sel
}

type (
	groupRow struct {
		ID             string     `boil:"id"`
		MenteeID       string     `boil:"mentee_id"`
		RecurrenceRule types.JSON `boil:"recurrence_rule"`
		CreatedAt      time.Time  `boil:"created_at"`
	}

	plannerTaskRow struct {
		ID               string      `boil:"id"`
		MenteeID         string      `boil:"mentee_id"`
		Title            string      `boil:"title"`
		Date             string      `boil:"date"`
		SubjectID        null.String `boil:"subject_id"`
		Completed        bool        `boil:"completed"`
		TimeSpentSec     int         `boil:"time_spent_sec"`
		StartTime        null.String `boil:"start_time"`
		EndTime          null.String `boil:"end_time"`
		StudyNote        null.String `boil:"study_note"`
		Attachments      types.JSON  `boil:"attachments"`
		Materials        types.JSON  `boil:"materials"`
		MentorComment    null.String `boil:"mentor_comment"`
		MentorCommentAt  null.Time   `boil:"mentor_comment_at"`
		RecurringGroupID null.String `boil:"recurring_group_id"`
		CreatedAt        time.Time   `boil:"created_at"`
		UpdatedAt        time.Time   `boil:"updated_at"`
	}

	dailyRecordRow struct {
		ID            string      `boil:"id"`
		MenteeID      string      `boil:"mentee_id"`
		Date          string      `boil:"date"`
		StudyTimeMin  int         `boil:"study_time_min"`
		Mood          null.String `boil:"mood"`
		MenteeComment null.String `boil:"mentee_comment"`
		MentorReply   null.String `boil:"mentor_reply"`
		MentorReplyAt null.Time   `boil:"mentor_reply_at"`
		UpdatedAt     time.Time   `boil:"updated_at"`
	}

	scheduleEventRow struct {
		ID        string      `boil:"id"`
		MenteeID  string      `boil:"mentee_id"`
		SubjectID null.String `boil:"subject_id"`
		Title     string      `boil:"title"`
		Date      string      `boil:"date"`
		CreatedAt time.Time   `boil:"created_at"`
	}
)

func (r plannerTaskRow) values() []interface{} {
	return []interface{}{
		r.ID, r.MenteeID, r.Title, r.Date, r.SubjectID, r.Completed, r.TimeSpentSec, r.StartTime, r.EndTime,
		r.StudyNote, r.Attachments, r.Materials, r.MentorComment, r.MentorCommentAt, r.RecurringGroupID,
		r.CreatedAt, r.UpdatedAt,
	}
}

type plannerRepository struct {
	repository
}

var _ planner.Repository = (*plannerRepository)(nil) // interface compliance check

func NewPlannerRepository(exec core.DBExecutor) *plannerRepository {
	return &plannerRepository{repository{exec: exec}}
}

func (repo plannerRepository) CreateRecurringGroup(ctx context.Context, g planner.RecurringGroup, exec ...core.DBExecutor) (planner.RecurringGroup, error) {
	g.ID = uuid.New().String()
	r := groupRow{ID: g.ID, MenteeID: g.MenteeID, CreatedAt: g.CreatedAt.UTC()}
	if err := r.RecurrenceRule.Marshal(g.RecurrenceRule); err != nil {
		return planner.RecurringGroup{}, errors.Wrap(err, "encoding recurrence rule")
	}
	_, err := insert(ctx, repo.getExec(exec), tableRecurringGroups, groupColumns, []interface{}{r.ID, r.MenteeID, r.RecurrenceRule, r.CreatedAt})
	if err != nil {
		return planner.RecurringGroup{}, errors.Wrap(err, "inserting recurring group")
	}
	return g, nil
}

func (repo plannerRepository) GetRecurringGroup(ctx context.Context, id string, exec ...core.DBExecutor) (planner.RecurringGroup, error) {
	if !validID(id) {
		return planner.RecurringGroup{}, planner.ErrGroupNotFound
	}
	var r groupRow
	if err := from(tableRecurringGroups, groupColumns, qm.Where("id = ?", id)).Bind(ctx, repo.getExec(exec), &r); err != nil {
		return planner.RecurringGroup{}, trapNoRowsErr(err, planner.ErrGroupNotFound, "finding recurring group")
	}
	g := planner.RecurringGroup{ID: r.ID, MenteeID: r.MenteeID, CreatedAt: r.CreatedAt.UTC()}
	if err := r.RecurrenceRule.Unmarshal(&g.RecurrenceRule); err != nil {
		return planner.RecurringGroup{}, errors.Wrapf(err, "decoding recurrence rule of group %s", r.ID)
	}
	return g, nil
}

// DeleteRecurringGroup relies on ON DELETE CASCADE for the tasks of the group.
func (repo plannerRepository) DeleteRecurringGroup(ctx context.Context, id string, exec ...core.DBExecutor) error {
	_, err := remove(ctx, repo.getExec(exec), tableRecurringGroups, qm.Where("id = ?", id))
	return errors.Wrap(err, "deleting recurring group")
}

func (repo plannerRepository) boilTask(t planner.Task) (plannerTaskRow, error) {
	r := plannerTaskRow{
		ID:               t.ID,
		MenteeID:         t.MenteeID,
		Title:            t.Title,
		Date:             t.Date,
		SubjectID:        null.StringFromPtr(t.SubjectID),
		Completed:        t.Completed,
		TimeSpentSec:     t.TimeSpentSec,
		StartTime:        null.StringFromPtr(t.StartTime),
		EndTime:          null.StringFromPtr(t.EndTime),
		StudyNote:        null.StringFromPtr(t.StudyNote),
		MentorComment:    null.StringFromPtr(t.MentorComment),
		MentorCommentAt:  null.TimeFromPtr(t.MentorCommentAt),
		RecurringGroupID: null.StringFromPtr(t.RecurringGroupID),
		CreatedAt:        t.CreatedAt.UTC(),
		UpdatedAt:        t.UpdatedAt.UTC(),
	}
	attachments, materials := t.Attachments, t.Materials
	if attachments == nil {
		attachments = []task.Attachment{}
	}
	if materials == nil {
		materials = []task.Material{}
	}
	if err := r.Attachments.Marshal(attachments); err != nil {
		return plannerTaskRow{}, errors.Wrap(err, "encoding attachments")
	}
	if err := r.Materials.Marshal(materials); err != nil {
		return plannerTaskRow{}, errors.Wrap(err, "encoding materials")
	}
	return r, nil
}

func (repo plannerRepository) unboilTask(r plannerTaskRow) (planner.Task, error) {
	t := planner.Task{
		ID:               r.ID,
		MenteeID:         r.MenteeID,
		Title:            r.Title,
		Date:             r.Date,
		SubjectID:        r.SubjectID.Ptr(),
		Completed:        r.Completed,
		TimeSpentSec:     r.TimeSpentSec,
		StartTime:        r.StartTime.Ptr(),
		EndTime:          r.EndTime.Ptr(),
		StudyNote:        r.StudyNote.Ptr(),
		Attachments:      []task.Attachment{},
		Materials:        []task.Material{},
		MentorComment:    r.MentorComment.Ptr(),
		MentorCommentAt:  r.MentorCommentAt.Ptr(),
		RecurringGroupID: r.RecurringGroupID.Ptr(),
		CreatedAt:        r.CreatedAt.UTC(),
		UpdatedAt:        r.UpdatedAt.UTC(),
	}
	if len(r.Attachments) > 0 {
		if err := r.Attachments.Unmarshal(&t.Attachments); err != nil {
			return planner.Task{}, errors.Wrapf(err, "decoding attachments of planner task %s", r.ID)
		}
	}
	if len(r.Materials) > 0 {
		if err := r.Materials.Unmarshal(&t.Materials); err != nil {
			return planner.Task{}, errors.Wrapf(err, "decoding materials of planner task %s", r.ID)
		}
	}
	return t, nil
}

// CreateTasks inserts the whole batch with one statement per chunk.
func (repo plannerRepository) CreateTasks(ctx context.Context, tasks []planner.Task, exec ...core.DBExecutor) (int, error) {
	const chunkSize = 500 // keeps the statement below the 65535 bind parameters of postgres

	exe := repo.getExec(exec)
	created := 0
	for start := 0; start < len(tasks); start += chunkSize {
		end := start + chunkSize
		if end > len(tasks) {
			end = len(tasks)
		}
		rows := make([][]interface{}, 0, end-start)
		for _, t := range tasks[start:end] {
			t.ID = uuid.New().String()
			r, err := repo.boilTask(t)
			if err != nil {
				return created, err
			}
			rows = append(rows, r.values())
		}
		n, err := insert(ctx, exe, tablePlannerTasks, plannerTaskColumns, rows...)
		if err != nil {
			return created, errors.Wrap(err, "inserting planner tasks")
		}
		created += int(n)
	}
	return created, nil
}

func (repo plannerRepository) GetTask(ctx context.Context, id string, exec ...core.DBExecutor) (planner.Task, error) {
	if !validID(id) {
		return planner.Task{}, planner.ErrNotFound
	}
	var r plannerTaskRow
	err := from(tablePlannerTasks, selectCols(plannerTaskColumns), qm.Where("id = ?", id)).Bind(ctx, repo.getExec(exec), &r)
	if err != nil {
		return planner.Task{}, trapNoRowsErr(err, planner.ErrNotFound, "finding planner task")
	}
	return repo.unboilTask(r)
}

func rangeMods(dr core.DateRange) []qm.QueryMod {
	var mods []qm.QueryMod
	if dr.From != "" {
		mods = append(mods, qm.Where("date >= ?", dr.From))
	}
	if dr.To != "" {
		mods = append(mods, qm.Where("date <= ?", dr.To))
	}
	return mods
}

func (repo plannerRepository) QueryTasks(ctx context.Context, filter planner.QueryFilter, exec ...core.DBExecutor) ([]planner.Task, error) {
	var mods []qm.QueryMod
	if filter.MenteeID != "" {
		mods = append(mods, qm.Where("mentee_id = ?", filter.MenteeID))
	}
	mods = append(mods, rangeMods(filter.Range)...)
	if filter.RecurringGroupID != "" {
		mods = append(mods, qm.Where("recurring_group_id = ?", filter.RecurringGroupID))
	}
	if filter.WithMentorComment {
		mods = append(mods, qm.Where("mentor_comment IS NOT NULL"))
	}
	mods = append(mods, qm.OrderBy("date ASC, start_time ASC NULLS FIRST, created_at ASC"))

	var rows []plannerTaskRow
	if err := from(tablePlannerTasks, selectCols(plannerTaskColumns), mods...).Bind(ctx, repo.getExec(exec), &rows); err != nil {
		return nil, errors.Wrap(err, "querying planner tasks")
	}
	tasks := make([]planner.Task, 0, len(rows))
	for _, r := range rows {
		t, err := repo.unboilTask(r)
		if err != nil {
			return nil, err
		}
		tasks = append(tasks, t)
	}
	return tasks, nil
}

func (repo plannerRepository) UpdateTask(ctx context.Context, t planner.Task, exec ...core.DBExecutor) (planner.Task, error) {
	r, err := repo.boilTask(t)
	if err != nil {
		return planner.Task{}, err
	}
	n, err := update(ctx, repo.getExec(exec), tablePlannerTasks, map[string]interface{}{
		"title":             r.Title,
		"date":              r.Date,
		"subject_id":        r.SubjectID,
		"completed":         r.Completed,
		"time_spent_sec":    r.TimeSpentSec,
		"start_time":        r.StartTime,
		"end_time":          r.EndTime,
		"study_note":        r.StudyNote,
		"attachments":       r.Attachments,
		"materials":         r.Materials,
		"mentor_comment":    r.MentorComment,
		"mentor_comment_at": r.MentorCommentAt,
		"updated_at":        r.UpdatedAt,
	}, qm.Where("id = ?", t.ID))
	if err != nil {
		return planner.Task{}, errors.Wrap(err, "updating planner task")
	}
	if n == 0 {
		return planner.Task{}, planner.ErrNotFound
	}
	return t, nil
}

func (repo plannerRepository) DeleteTask(ctx context.Context, id string, exec ...core.DBExecutor) error {
	_, err := remove(ctx, repo.getExec(exec), tablePlannerTasks, qm.Where("id = ?", id))
	return errors.Wrap(err, "deleting planner task")
}

func unboilDailyRecord(r dailyRecordRow) planner.DailyRecord {
	return planner.DailyRecord{
		ID:            r.ID,
		MenteeID:      r.MenteeID,
		Date:          r.Date,
		StudyTimeMin:  r.StudyTimeMin,
		Mood:          r.Mood.Ptr(),
		MenteeComment: r.MenteeComment.Ptr(),
		MentorReply:   r.MentorReply.Ptr(),
		MentorReplyAt: r.MentorReplyAt.Ptr(),
		UpdatedAt:     r.UpdatedAt.UTC(),
	}
}

// upsertDailyRecord inserts a (mentee, date) record or updates the `set` columns of the existing one.
func (repo plannerRepository) upsertDailyRecord(ctx context.Context, exec core.DBExecutor, cols []string, vals []interface{}, set []string) (planner.DailyRecord, error) {
	updates := make([]string, 0, len(set))
	for _, c := range set {
		updates = append(updates, fmt.Sprintf("%s = EXCLUDED.%s", quote(c), quote(c)))
	}
	query := fmt.Sprintf(
		"INSERT INTO %s (%s) VALUES (%s) ON CONFLICT (mentee_id, date) DO UPDATE SET %s RETURNING %s",
		quote(tableDailyRecords),
		strings.Join(cols, ", "),
		strmangle.Placeholders(dialect.UseIndexPlaceholders, len(vals), 1, 1),
		strings.Join(updates, ", "),
		strings.Join(selectCols(dailyRecordColumns), ", "),
	)
	var r dailyRecordRow
	if err := queries.Raw(query, vals...).Bind(ctx, exec, &r); err != nil {
		return planner.DailyRecord{}, err
	}
	return unboilDailyRecord(r), nil
}

func (repo plannerRepository) UpsertDailyEntry(ctx context.Context, rec planner.DailyRecord, exec ...core.DBExecutor) (planner.DailyRecord, error) {
	r, err := repo.upsertDailyRecord(ctx, repo.getExec(exec),
		[]string{"id", "mentee_id", "date", "study_time_min", "mood", "mentee_comment", "updated_at"},
		[]interface{}{uuid.New().String(), rec.MenteeID, rec.Date, rec.StudyTimeMin, null.StringFromPtr(rec.Mood), null.StringFromPtr(rec.MenteeComment), rec.UpdatedAt.UTC()},
		[]string{"study_time_min", "mood", "mentee_comment", "updated_at"},
	)
	return r, errors.Wrap(err, "upserting daily entry")
}

func (repo plannerRepository) UpsertDailyReply(ctx context.Context, menteeID, date, reply string, at time.Time, exec ...core.DBExecutor) (planner.DailyRecord, error) {
	r, err := repo.upsertDailyRecord(ctx, repo.getExec(exec),
		[]string{"id", "mentee_id", "date", "mentor_reply", "mentor_reply_at", "updated_at"},
		[]interface{}{uuid.New().String(), menteeID, date, reply, at.UTC(), at.UTC()},
		[]string{"mentor_reply", "mentor_reply_at", "updated_at"},
	)
	return r, errors.Wrap(err, "upserting daily reply")
}

func (repo plannerRepository) QueryDailyRecords(ctx context.Context, menteeID string, dr core.DateRange, exec ...core.DBExecutor) ([]planner.DailyRecord, error) {
	mods := append([]qm.QueryMod{qm.Where("mentee_id = ?", menteeID)}, rangeMods(dr)...)
	mods = append(mods, qm.OrderBy("date ASC"))

	var rows []dailyRecordRow
	if err := from(tableDailyRecords, selectCols(dailyRecordColumns), mods...).Bind(ctx, repo.getExec(exec), &rows); err != nil {
		return nil, errors.Wrap(err, "querying daily records")
	}
	recs := make([]planner.DailyRecord, 0, len(rows))
	for _, r := range rows {
		recs = append(recs, unboilDailyRecord(r))
	}
	return recs, nil
}

func unboilScheduleEvent(r scheduleEventRow) planner.ScheduleEvent {
	return planner.ScheduleEvent{
		ID:        r.ID,
		MenteeID:  r.MenteeID,
		SubjectID: r.SubjectID.Ptr(),
		Title:     r.Title,
		Date:      r.Date,
		CreatedAt: r.CreatedAt.UTC(),
	}
}

func (repo plannerRepository) CreateScheduleEvent(ctx context.Context, e planner.ScheduleEvent, exec ...core.DBExecutor) (planner.ScheduleEvent, error) {
	e.ID = uuid.New().String()
	_, err := insert(ctx, repo.getExec(exec), tableScheduleEvents, scheduleEventColumns,
		[]interface{}{e.ID, e.MenteeID, null.StringFromPtr(e.SubjectID), e.Title, e.Date, e.CreatedAt.UTC()})
	if err != nil {
		return planner.ScheduleEvent{}, errors.Wrap(err, "inserting schedule event")
	}
	return e, nil
}

func (repo plannerRepository) GetScheduleEvent(ctx context.Context, id string, exec ...core.DBExecutor) (planner.ScheduleEvent, error) {
	if !validID(id) {
		return planner.ScheduleEvent{}, planner.ErrEventNotFound
	}
	var r scheduleEventRow
	err := from(tableScheduleEvents, selectCols(scheduleEventColumns), qm.Where("id = ?", id)).Bind(ctx, repo.getExec(exec), &r)
	if err != nil {
		return planner.ScheduleEvent{}, trapNoRowsErr(err, planner.ErrEventNotFound, "finding schedule event")
	}
	return unboilScheduleEvent(r), nil
}

func (repo plannerRepository) DeleteScheduleEvent(ctx context.Context, id string, exec ...core.DBExecutor) error {
	_, err := remove(ctx, repo.getExec(exec), tableScheduleEvents, qm.Where("id = ?", id))
	return errors.Wrap(err, "deleting schedule event")
}

func (repo plannerRepository) QueryScheduleEvents(ctx context.Context, menteeID string, dr core.DateRange, exec ...core.DBExecutor) ([]planner.ScheduleEvent, error) {
	mods := append([]qm.QueryMod{qm.Where("mentee_id = ?", menteeID)}, rangeMods(dr)...)
	mods = append(mods, qm.OrderBy("date ASC, created_at ASC"))

	var rows []scheduleEventRow
	if err := from(tableScheduleEvents, selectCols(scheduleEventColumns), mods...).Bind(ctx, repo.getExec(exec), &rows); err != nil {
		return nil, errors.Wrap(err, "querying schedule events")
	}
	evs := make([]planner.ScheduleEvent, 0, len(rows))
	for _, r := range rows {
		evs = append(evs, unboilScheduleEvent(r))
	}
	return evs, nil
}
