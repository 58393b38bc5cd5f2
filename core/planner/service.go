package planner

import (
	"context"
	"time"

	"github.com/pkg/errors"

	"github.com/jhkim0602/monguri-sub002/core"
	"github.com/jhkim0602/monguri-sub002/core/notification"
	"github.com/jhkim0602/monguri-sub002/core/profile"
	"github.com/jhkim0602/monguri-sub002/core/subject"
)

var (
	// errors
	ErrNotFound      = core.NewNotFoundError("planner task not found")
	ErrGroupNotFound = core.NewNotFoundError("recurring group not found")
	ErrEventNotFound = core.NewNotFoundError("schedule event not found")
	errNotOwner      = core.NewForbiddenError("only the mentee can edit their planner")
)

type (
	Repository interface {
		CreateRecurringGroup(ctx context.Context, g RecurringGroup, exec ...core.DBExecutor) (RecurringGroup, error)
		GetRecurringGroup(ctx context.Context, id string, exec ...core.DBExecutor) (RecurringGroup, error)
		// DeleteRecurringGroup deletes a group and, by cascade, all of its tasks.
		DeleteRecurringGroup(ctx context.Context, id string, exec ...core.DBExecutor) error

		// CreateTasks inserts all of `tasks` and returns how many were created.
		CreateTasks(ctx context.Context, tasks []Task, exec ...core.DBExecutor) (int, error)
		GetTask(ctx context.Context, id string, exec ...core.DBExecutor) (Task, error)
		// QueryTasks returns the tasks matching filter by date then start time.
		QueryTasks(ctx context.Context, filter QueryFilter, exec ...core.DBExecutor) ([]Task, error)
		UpdateTask(ctx context.Context, t Task, exec ...core.DBExecutor) (Task, error)
		DeleteTask(ctx context.Context, id string, exec ...core.DBExecutor) error

		// UpsertDailyEntry inserts the (mentee, date) record or updates its mentee fields.
		UpsertDailyEntry(ctx context.Context, r DailyRecord, exec ...core.DBExecutor) (DailyRecord, error)
		// UpsertDailyReply inserts the (mentee, date) record or updates its mentor reply.
		UpsertDailyReply(ctx context.Context, menteeID, date, reply string, at time.Time, exec ...core.DBExecutor) (DailyRecord, error)
		QueryDailyRecords(ctx context.Context, menteeID string, dr core.DateRange, exec ...core.DBExecutor) ([]DailyRecord, error)

		CreateScheduleEvent(ctx context.Context, e ScheduleEvent, exec ...core.DBExecutor) (ScheduleEvent, error)
		GetScheduleEvent(ctx context.Context, id string, exec ...core.DBExecutor) (ScheduleEvent, error)
		DeleteScheduleEvent(ctx context.Context, id string, exec ...core.DBExecutor) error
		QueryScheduleEvents(ctx context.Context, menteeID string, dr core.DateRange, exec ...core.DBExecutor) ([]ScheduleEvent, error)
	}

	Service struct {
		db       core.DB // nil when the repositories are not SQL backed
		repo     Repository
		profiles *profile.Service
		subjects *subject.Service
		notifier *notification.Service
		logger   core.Logger
	}
)

func NewService(db core.DB, repo Repository, profiles *profile.Service, subjects *subject.Service, notifier *notification.Service, logger core.Logger) *Service {
	return &Service{
		db:       db,
		repo:     repo,
		profiles: profiles,
		subjects: subjects,
		notifier: notifier,
		logger:   logger,
	}
}

func (svc *Service) runInTx(ctx context.Context, fn func(exec core.DBExecutor) error) error {
	if svc.db == nil {
		return fn(nil)
	}
	return core.RunInTx(ctx, svc.db, fn)
}

func checkDate(date string) error {
	if _, err := core.ParseDate(date); err != nil {
		return core.NewValidationError(nil, core.FieldError{Field: "date", Error: "date must be YYYY-MM-DD"})
	}
	return nil
}

func checkOwner(actor core.Actor, menteeID string) error {
	if actor.ID == menteeID || actor.IsAdmin() {
		return nil
	}
	return errNotOwner
}

// CreateTasks materializes a batch of templates for a mentee. With a recurrence rule the group row
// is created first and every task carries its id.
func (svc *Service) CreateTasks(ctx context.Context, actor core.Actor, menteeID string, nt NewTasks) (CreateResult, error) {
	if err := checkOwner(actor, menteeID); err != nil {
		return CreateResult{}, err
	}

	templates, err := nt.expand()
	if err != nil {
		return CreateResult{}, err
	}
	if len(templates) == 0 {
		return CreateResult{}, nil
	}

	// one lookup for the whole batch
	idx, err := svc.subjects.SlugIndex(ctx)
	if err != nil {
		return CreateResult{}, errors.Wrap(err, "building subject index")
	}

	var res CreateResult
	now := time.Now().UTC()
	err = svc.runInTx(ctx, func(exec core.DBExecutor) error {
		var groupID *string
		if nt.RecurrenceRule != nil {
			group, err := svc.repo.CreateRecurringGroup(ctx, RecurringGroup{
				MenteeID:       menteeID,
				RecurrenceRule: *nt.RecurrenceRule,
				CreatedAt:      now,
			}, exec)
			if err != nil {
				return errors.Wrap(err, "creating recurring group")
			}
			groupID = &group.ID
		}

		cnt, err := svc.repo.CreateTasks(ctx, buildTasks(menteeID, templates, idx, groupID, now), exec)
		if err != nil {
			return errors.Wrap(err, "creating planner tasks")
		}
		res = CreateResult{CreatedCount: cnt, RecurringGroupID: groupID}
		return nil
	})
	if err != nil {
		return CreateResult{}, err
	}

	svc.profiles.Invalidator().InvalidateMentee(ctx, menteeID)
	return res, nil
}

// DeleteRecurringGroup deletes a group with all of its tasks. The owning mentee is resolved
// before the delete since the group row is gone afterwards.
func (svc *Service) DeleteRecurringGroup(ctx context.Context, actor core.Actor, groupID string) error {
	group, err := svc.repo.GetRecurringGroup(ctx, groupID)
	if err != nil {
		if core.IsNotFound(err) {
			return ErrGroupNotFound
		}
		return errors.Wrap(err, "finding recurring group")
	}
	if err = checkOwner(actor, group.MenteeID); err != nil {
		return err
	}

	if err = svc.repo.DeleteRecurringGroup(ctx, groupID); err != nil {
		return errors.Wrap(err, "deleting recurring group")
	}
	svc.profiles.Invalidator().InvalidateMentee(ctx, group.MenteeID)
	return nil
}

func (svc *Service) getTask(ctx context.Context, id string) (Task, error) {
	t, err := svc.repo.GetTask(ctx, id)
	if err != nil {
		if core.IsNotFound(err) {
			return Task{}, ErrNotFound
		}
		return Task{}, errors.Wrap(err, "finding planner task")
	}
	return t, nil
}

func (svc *Service) UpdateTask(ctx context.Context, actor core.Actor, id string, ut UpdateTask) (Task, error) {
	t, err := svc.getTask(ctx, id)
	if err != nil {
		return Task{}, err
	}
	if err = checkOwner(actor, t.MenteeID); err != nil {
		return Task{}, err
	}

	if ut.SubjectID != nil {
		idx, err := svc.subjects.SlugIndex(ctx)
		if err != nil {
			return Task{}, errors.Wrap(err, "building subject index")
		}
		t.SubjectID = idx.Resolve(ut.SubjectID)
	}
	if ut.Title != nil {
		t.Title = *ut.Title
	}
	if ut.Date != nil {
		t.Date = *ut.Date
	}
	if ut.Completed != nil {
		t.Completed = *ut.Completed
	}
	if ut.TimeSpentSec != nil {
		t.TimeSpentSec = *ut.TimeSpentSec
	}
	if ut.StartTime != nil {
		t.StartTime = core.CleanStringPtr(ut.StartTime)
	}
	if ut.EndTime != nil {
		t.EndTime = core.CleanStringPtr(ut.EndTime)
	}
	if ut.StudyNote != nil {
		t.StudyNote = core.CleanStringPtr(ut.StudyNote)
	}
	if ut.Attachments != nil {
		t.Attachments = *ut.Attachments
	}
	if ut.Materials != nil {
		t.Materials = *ut.Materials
	}
	t.UpdatedAt = time.Now().UTC()

	if t, err = svc.repo.UpdateTask(ctx, t); err != nil {
		return Task{}, errors.Wrap(err, "updating planner task")
	}
	svc.profiles.Invalidator().InvalidateMentee(ctx, t.MenteeID)
	return t, nil
}

func (svc *Service) DeleteTask(ctx context.Context, actor core.Actor, id string) error {
	t, err := svc.getTask(ctx, id)
	if err != nil {
		return err
	}
	if err = checkOwner(actor, t.MenteeID); err != nil {
		return err
	}
	if err = svc.repo.DeleteTask(ctx, id); err != nil {
		return errors.Wrap(err, "deleting planner task")
	}
	svc.profiles.Invalidator().InvalidateMentee(ctx, t.MenteeID)
	return nil
}

// CommentTask sets the mentor comment of a planner task of an actively linked mentee.
func (svc *Service) CommentTask(ctx context.Context, actor core.Actor, id string, mc MentorComment) (Task, error) {
	t, err := svc.getTask(ctx, id)
	if err != nil {
		return Task{}, err
	}
	if _, err = svc.profiles.CheckLinked(ctx, actor.ID, t.MenteeID); err != nil {
		return Task{}, err
	}

	now := time.Now().UTC()
	t.MentorComment = &mc.Comment
	t.MentorCommentAt = &now
	t.UpdatedAt = now
	if t, err = svc.repo.UpdateTask(ctx, t); err != nil {
		return Task{}, errors.Wrap(err, "commenting planner task")
	}

	svc.profiles.Invalidator().InvalidateMentee(ctx, t.MenteeID)
	svc.notifier.Notify(ctx, notification.Notification{
		RecipientID: t.MenteeID,
		Type:        notification.TypePlannerComment,
		RefID:       &t.ID,
		Title:       "멘토 코멘트가 도착했습니다",
		Message:     mc.Comment,
	})
	return t, nil
}

// UpsertDailyRecord writes the mentee side of the (mentee, date) record.
func (svc *Service) UpsertDailyRecord(ctx context.Context, actor core.Actor, date string, de DailyEntry) (DailyRecord, error) {
	if !actor.IsMentee() {
		return DailyRecord{}, errNotOwner
	}
	if err := checkDate(date); err != nil {
		return DailyRecord{}, err
	}
	rec, err := svc.repo.UpsertDailyEntry(ctx, DailyRecord{
		MenteeID:      actor.ID,
		Date:          date,
		StudyTimeMin:  de.StudyTimeMin,
		Mood:          de.Mood,
		MenteeComment: de.MenteeComment,
		UpdatedAt:     time.Now().UTC(),
	})
	if err != nil {
		return DailyRecord{}, errors.Wrap(err, "upserting daily record")
	}
	svc.profiles.Invalidator().InvalidateMentee(ctx, actor.ID)
	return rec, nil
}

// ReplyDailyRecord writes the mentor reply of the (mentee, date) record.
func (svc *Service) ReplyDailyRecord(ctx context.Context, actor core.Actor, menteeID, date string, mc MentorComment) (DailyRecord, error) {
	if err := checkDate(date); err != nil {
		return DailyRecord{}, err
	}
	if _, err := svc.profiles.CheckLinked(ctx, actor.ID, menteeID); err != nil {
		return DailyRecord{}, err
	}
	rec, err := svc.repo.UpsertDailyReply(ctx, menteeID, date, mc.Comment, time.Now().UTC())
	if err != nil {
		return DailyRecord{}, errors.Wrap(err, "replying daily record")
	}

	svc.profiles.Invalidator().InvalidateMentee(ctx, menteeID)
	svc.notifier.Notify(ctx, notification.Notification{
		RecipientID: menteeID,
		Type:        notification.TypeDailyReply,
		RefID:       &rec.ID,
		Title:       date + " 하루 기록에 답글이 달렸습니다",
		Message:     mc.Comment,
	})
	return rec, nil
}

// CreateScheduleEvent adds an event to a mentee's calendar; the mentee or a linked mentor may do so.
func (svc *Service) CreateScheduleEvent(ctx context.Context, actor core.Actor, menteeID string, ne NewScheduleEvent) (ScheduleEvent, error) {
	if err := svc.profiles.CanAccessMentee(ctx, actor, menteeID); err != nil {
		return ScheduleEvent{}, err
	}
	var subjectID *string
	if ne.SubjectID != nil {
		idx, err := svc.subjects.SlugIndex(ctx)
		if err != nil {
			return ScheduleEvent{}, errors.Wrap(err, "building subject index")
		}
		subjectID = idx.Resolve(ne.SubjectID)
	}

	ev, err := svc.repo.CreateScheduleEvent(ctx, ScheduleEvent{
		MenteeID:  menteeID,
		SubjectID: subjectID,
		Title:     ne.Title,
		Date:      ne.Date,
		CreatedAt: time.Now().UTC(),
	})
	if err != nil {
		return ScheduleEvent{}, errors.Wrap(err, "creating schedule event")
	}
	svc.profiles.Invalidator().InvalidateMentee(ctx, menteeID)
	return ev, nil
}

func (svc *Service) DeleteScheduleEvent(ctx context.Context, actor core.Actor, id string) error {
	ev, err := svc.repo.GetScheduleEvent(ctx, id)
	if err != nil {
		if core.IsNotFound(err) {
			return ErrEventNotFound
		}
		return errors.Wrap(err, "finding schedule event")
	}
	if err = svc.profiles.CanAccessMentee(ctx, actor, ev.MenteeID); err != nil {
		return err
	}
	if err = svc.repo.DeleteScheduleEvent(ctx, id); err != nil {
		return errors.Wrap(err, "deleting schedule event")
	}
	svc.profiles.Invalidator().InvalidateMentee(ctx, ev.MenteeID)
	return nil
}

// The readers below do not authorize; callers check access to the mentee first.

func (svc *Service) TasksOf(ctx context.Context, menteeID string, dr core.DateRange) ([]Task, error) {
	tasks, err := svc.repo.QueryTasks(ctx, QueryFilter{MenteeID: menteeID, Range: dr})
	return tasks, errors.Wrap(err, "querying planner tasks")
}

// CommentedTasksOf returns the planner tasks of a mentee that carry a mentor comment.
func (svc *Service) CommentedTasksOf(ctx context.Context, menteeID string) ([]Task, error) {
	tasks, err := svc.repo.QueryTasks(ctx, QueryFilter{MenteeID: menteeID, WithMentorComment: true})
	return tasks, errors.Wrap(err, "querying commented planner tasks")
}

func (svc *Service) RecordsOf(ctx context.Context, menteeID string, dr core.DateRange) ([]DailyRecord, error) {
	recs, err := svc.repo.QueryDailyRecords(ctx, menteeID, dr)
	return recs, errors.Wrap(err, "querying daily records")
}

func (svc *Service) EventsOf(ctx context.Context, menteeID string, dr core.DateRange) ([]ScheduleEvent, error) {
	evs, err := svc.repo.QueryScheduleEvents(ctx, menteeID, dr)
	return evs, errors.Wrap(err, "querying schedule events")
}
