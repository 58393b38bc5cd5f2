package task

import (
	"context"
	"fmt"
	"net/mail"
	"sort"
	"strings"
	"time"

	"github.com/pkg/errors"

	"github.com/jhkim0602/monguri-sub002/core"
	"github.com/jhkim0602/monguri-sub002/core/cache"
	"github.com/jhkim0602/monguri-sub002/core/notification"
	"github.com/jhkim0602/monguri-sub002/core/profile"
	"github.com/jhkim0602/monguri-sub002/core/subject"
)

var (
	// errors
	ErrNotFound         = core.NewNotFoundError("task not found")
	ErrFeedbackNotFound = core.NewNotFoundError("feedback not found")
	errNotTaskMentor    = core.NewForbiddenError("this task was not assigned by you")
	errNotTaskMentee    = core.NewForbiddenError("this task was not assigned to you")
	errAlreadyReviewed  = core.NewConflictError("task feedback is already completed")
	errNotSubmitted     = core.NewConflictError("task has not been submitted yet")
)

type (
	Repository interface {
		CreateTask(ctx context.Context, t MentorTask, exec ...core.DBExecutor) (MentorTask, error)
		GetTask(ctx context.Context, id string, exec ...core.DBExecutor) (MentorTask, error)
		// QueryTasks returns tasks matching filter by deadline.
		QueryTasks(ctx context.Context, filter QueryFilter, exec ...core.DBExecutor) ([]MentorTask, error)
		UpdateTask(ctx context.Context, t MentorTask, exec ...core.DBExecutor) (MentorTask, error)
		// UpdateTaskStatus moves a task to `status` only when its current status is one of `from`.
		// It reports whether the task was updated.
		UpdateTaskStatus(ctx context.Context, id, status string, from []string, exec ...core.DBExecutor) (bool, error)
		DeleteTask(ctx context.Context, id string, exec ...core.DBExecutor) error

		CreateSubmission(ctx context.Context, s Submission, exec ...core.DBExecutor) (Submission, error)
		QuerySubmissions(ctx context.Context, taskIDs []string, exec ...core.DBExecutor) ([]Submission, error)

		CreateFeedback(ctx context.Context, f Feedback, exec ...core.DBExecutor) (Feedback, error)
		GetFeedback(ctx context.Context, id string, exec ...core.DBExecutor) (Feedback, error)
		QueryFeedback(ctx context.Context, taskIDs []string, exec ...core.DBExecutor) ([]Feedback, error)
		MarkFeedbackRead(ctx context.Context, id string, at time.Time, exec ...core.DBExecutor) error
	}

	Service struct {
		db       core.DB // nil when the repositories are not SQL backed
		repo     Repository
		profiles *profile.Service
		subjects *subject.Service
		notifier *notification.Service
		mailSvc  core.EmailService
		cache    *cache.Service
		conf     *core.Config
		logger   core.Logger
	}

	Deps struct {
		DB       core.DB
		Repo     Repository
		Profiles *profile.Service
		Subjects *subject.Service
		Notifier *notification.Service
		MailSvc  core.EmailService
		Cache    *cache.Service
		Conf     *core.Config
		Logger   core.Logger
	}
)

func NewService(deps Deps) *Service {
	return &Service{
		db:       deps.DB,
		repo:     deps.Repo,
		profiles: deps.Profiles,
		subjects: deps.Subjects,
		notifier: deps.Notifier,
		mailSvc:  deps.MailSvc,
		cache:    deps.Cache,
		conf:     deps.Conf,
		logger:   deps.Logger,
	}
}

func (svc *Service) runInTx(ctx context.Context, fn func(exec core.DBExecutor) error) error {
	if svc.db == nil {
		return fn(nil)
	}
	return core.RunInTx(ctx, svc.db, fn)
}

func (svc *Service) getTask(ctx context.Context, id string) (MentorTask, error) {
	t, err := svc.repo.GetTask(ctx, id)
	if err != nil {
		if core.IsNotFound(err) {
			return MentorTask{}, ErrNotFound
		}
		return MentorTask{}, errors.Wrap(err, "finding task")
	}
	return t, nil
}

// Views returns the tasks matching filter with their derived state.
func (svc *Service) Views(ctx context.Context, filter QueryFilter) ([]View, error) {
	tasks, err := svc.repo.QueryTasks(ctx, filter)
	if err != nil {
		return nil, errors.Wrap(err, "querying tasks")
	}
	if len(tasks) == 0 {
		return []View{}, nil
	}

	ids := make([]string, 0, len(tasks))
	for _, t := range tasks {
		ids = append(ids, t.ID)
	}
	subs, err := svc.repo.QuerySubmissions(ctx, ids)
	if err != nil {
		return nil, errors.Wrap(err, "querying submissions")
	}
	fbs, err := svc.repo.QueryFeedback(ctx, ids)
	if err != nil {
		return nil, errors.Wrap(err, "querying feedback")
	}
	return BuildViews(tasks, subs, fbs), nil
}

// Summarize wraps the package level Summarize and logs tasks whose status is unknown.
func (svc *Service) Summarize(tasks []View) Summary {
	raw := make([]MentorTask, 0, len(tasks))
	for _, v := range tasks {
		raw = append(raw, v.MentorTask)
	}
	s := Summarize(raw)
	if s.Unknown > 0 {
		var ids []string
		for _, t := range raw {
			if !t.IsKnownStatus() {
				ids = append(ids, t.ID+"="+t.Status)
			}
		}
		svc.logger.Warn(fmt.Sprintf("task: %d task(s) with unknown status: %s", s.Unknown, strings.Join(ids, ", ")))
	}
	return s
}

// MenteeTasks returns every task of a mentee with its summary.
func (svc *Service) MenteeTasks(ctx context.Context, actor core.Actor, menteeID string) (MenteeTasks, error) {
	if err := svc.profiles.CanAccessMentee(ctx, actor, menteeID); err != nil {
		return MenteeTasks{}, err
	}
	return cache.Remember(ctx, svc.cache, cache.Key("mentee-tasks", menteeID), []string{cache.MenteeTag(menteeID)},
		func(ctx context.Context) (MenteeTasks, error) {
			views, err := svc.Views(ctx, QueryFilter{MenteeID: menteeID})
			if err != nil {
				return MenteeTasks{}, err
			}
			return MenteeTasks{Summary: svc.Summarize(views), Tasks: views}, nil
		})
}

// MentorTasks returns the tasks a mentor assigned, optionally narrowed to one mentee or some statuses.
func (svc *Service) MentorTasks(ctx context.Context, actor core.Actor, filter QueryFilter) ([]View, error) {
	if !actor.IsMentor() {
		return nil, errNotTaskMentor
	}
	filter = QueryFilter{MentorID: actor.ID, MenteeID: filter.MenteeID, SubjectID: filter.SubjectID, Statuses: filter.Statuses}
	sort.Strings(filter.Statuses)
	key := cache.Key("mentor-tasks", actor.ID, filter.MenteeID, filter.SubjectID, strings.Join(filter.Statuses, ","))
	return cache.Remember(ctx, svc.cache, key, []string{cache.MentorTag(actor.ID)},
		func(ctx context.Context) ([]View, error) {
			return svc.Views(ctx, filter)
		})
}

// Get returns a task with its whole history. Only its mentor, its mentee and admins can see it.
func (svc *Service) Get(ctx context.Context, actor core.Actor, id string) (Detail, error) {
	t, err := svc.getTask(ctx, id)
	if err != nil {
		return Detail{}, err
	}
	if !(actor.IsAdmin() || actor.ID == t.MentorID || actor.ID == t.MenteeID) {
		return Detail{}, ErrNotFound
	}

	subs, err := svc.repo.QuerySubmissions(ctx, []string{id})
	if err != nil {
		return Detail{}, errors.Wrap(err, "querying submissions")
	}
	fbs, err := svc.repo.QueryFeedback(ctx, []string{id})
	if err != nil {
		return Detail{}, errors.Wrap(err, "querying feedback")
	}
	sort.SliceStable(subs, func(i, j int) bool { return later(subs[i].SubmittedAt, subs[i].ID, subs[j].SubmittedAt, subs[j].ID) })
	sort.SliceStable(fbs, func(i, j int) bool { return later(fbs[i].CreatedAt, fbs[i].ID, fbs[j].CreatedAt, fbs[j].ID) })
	if subs == nil {
		subs = []Submission{}
	}
	if fbs == nil {
		fbs = []Feedback{}
	}

	return Detail{
		View:        View{MentorTask: t, Derived: Derive(subs, fbs)},
		Submissions: subs,
		Feedback:    fbs,
	}, nil
}

// Create assigns a new task to an actively linked mentee.
func (svc *Service) Create(ctx context.Context, actor core.Actor, nt NewTask) (View, error) {
	if !actor.IsMentor() {
		return View{}, errNotTaskMentor
	}
	if _, err := svc.profiles.CheckLinked(ctx, actor.ID, nt.MenteeID); err != nil {
		return View{}, err
	}

	subjectID, err := svc.resolveSubject(ctx, nt.SubjectID)
	if err != nil {
		return View{}, err
	}
	materials := nt.Materials
	if materials == nil {
		materials = []Material{}
	}

	now := time.Now().UTC()
	t, err := svc.repo.CreateTask(ctx, MentorTask{
		MentorID:    actor.ID,
		MenteeID:    nt.MenteeID,
		SubjectID:   subjectID,
		Title:       nt.Title,
		Description: nt.Description,
		Status:      StatusPending,
		Deadline:    nt.Deadline.UTC(),
		Materials:   materials,
		CreatedAt:   now,
		UpdatedAt:   now,
	})
	if err != nil {
		return View{}, errors.Wrap(err, "creating task")
	}

	svc.profiles.Invalidator().InvalidateMentee(ctx, t.MenteeID)
	svc.notifier.Notify(ctx, notification.Notification{
		RecipientID: t.MenteeID,
		Type:        notification.TypeTaskAssigned,
		RefID:       &t.ID,
		Title:       "새 과제가 등록되었습니다",
		Message:     t.Title,
	})
	return View{MentorTask: t}, nil
}

func (svc *Service) resolveSubject(ctx context.Context, token *string) (*string, error) {
	if token == nil {
		return nil, nil
	}
	idx, err := svc.subjects.SlugIndex(ctx)
	if err != nil {
		return nil, errors.Wrap(err, "building subject index")
	}
	return idx.Resolve(token), nil
}

// Update changes a task; only the mentor who assigned it may do so.
func (svc *Service) Update(ctx context.Context, actor core.Actor, id string, ut UpdateTask) (View, error) {
	t, err := svc.getTask(ctx, id)
	if err != nil {
		return View{}, err
	}
	if t.MentorID != actor.ID {
		return View{}, errNotTaskMentor
	}

	if ut.SubjectID != nil {
		if t.SubjectID, err = svc.resolveSubject(ctx, ut.SubjectID); err != nil {
			return View{}, err
		}
	}
	if ut.Title != nil {
		t.Title = *ut.Title
	}
	if ut.Description != nil {
		t.Description = core.CleanStringPtr(ut.Description)
	}
	if ut.Deadline != nil {
		t.Deadline = ut.Deadline.UTC()
	}
	if ut.Materials != nil {
		t.Materials = *ut.Materials
	}
	t.UpdatedAt = time.Now().UTC()

	if t, err = svc.repo.UpdateTask(ctx, t); err != nil {
		return View{}, errors.Wrap(err, "updating task")
	}
	svc.profiles.Invalidator().InvalidateMentee(ctx, t.MenteeID)
	return View{MentorTask: t}, nil
}

// Delete removes a task with its submissions and feedback.
func (svc *Service) Delete(ctx context.Context, actor core.Actor, id string) error {
	t, err := svc.getTask(ctx, id)
	if err != nil {
		return err
	}
	if !(t.MentorID == actor.ID || actor.IsAdmin()) {
		return errNotTaskMentor
	}
	if err = svc.repo.DeleteTask(ctx, id); err != nil {
		return errors.Wrap(err, "deleting task")
	}
	svc.profiles.Invalidator().InvalidateMentee(ctx, t.MenteeID)
	return nil
}

// Submit records a submission of the mentee and moves the task from pending to submitted.
func (svc *Service) Submit(ctx context.Context, actor core.Actor, taskID string, ns NewSubmission) (Submission, error) {
	t, err := svc.getTask(ctx, taskID)
	if err != nil {
		return Submission{}, err
	}
	if !actor.IsMentee() || t.MenteeID != actor.ID {
		return Submission{}, errNotTaskMentee
	}
	if t.Status == StatusFeedbackCompleted {
		return Submission{}, errAlreadyReviewed
	}

	attachments := ns.Attachments
	if attachments == nil {
		attachments = []Attachment{}
	}

	var sub Submission
	err = svc.runInTx(ctx, func(exec core.DBExecutor) error {
		var err error
		sub, err = svc.repo.CreateSubmission(ctx, Submission{
			TaskID:      t.ID,
			MenteeID:    actor.ID,
			SubmittedAt: time.Now().UTC(),
			Note:        ns.Note,
			Attachments: attachments,
		}, exec)
		if err != nil {
			return errors.Wrap(err, "creating submission")
		}

		updated, err := svc.repo.UpdateTaskStatus(ctx, t.ID, StatusSubmitted, []string{StatusPending, StatusSubmitted}, exec)
		if err != nil {
			return errors.Wrap(err, "updating task status")
		}
		if !updated {
			// feedback completed it in the meantime
			return errAlreadyReviewed
		}
		return nil
	})
	if err != nil {
		return Submission{}, err
	}

	svc.profiles.Invalidator().InvalidateMentee(ctx, t.MenteeID)
	svc.notifier.Notify(ctx, notification.Notification{
		RecipientID: t.MentorID,
		Type:        notification.TypeTaskSubmitted,
		RefID:       &t.ID,
		Title:       "과제가 제출되었습니다",
		Message:     t.Title,
	})
	return sub, nil
}

// GiveFeedback records the mentor's feedback and completes the task.
// Feedback on a task that was never submitted is refused unless the workflow allows it.
func (svc *Service) GiveFeedback(ctx context.Context, actor core.Actor, taskID string, nf NewFeedback) (Feedback, error) {
	t, err := svc.getTask(ctx, taskID)
	if err != nil {
		return Feedback{}, err
	}
	if !actor.IsMentor() || t.MentorID != actor.ID {
		return Feedback{}, errNotTaskMentor
	}
	from := []string{StatusSubmitted, StatusFeedbackCompleted}
	if svc.conf.Workflow.AllowFeedbackWithoutSubmission {
		from = append(from, StatusPending)
	} else if t.Status == StatusPending {
		return Feedback{}, errNotSubmitted
	}

	var fb Feedback
	err = svc.runInTx(ctx, func(exec core.DBExecutor) error {
		updated, err := svc.repo.UpdateTaskStatus(ctx, t.ID, StatusFeedbackCompleted, from, exec)
		if err != nil {
			return errors.Wrap(err, "updating task status")
		}
		if !updated {
			return errNotSubmitted
		}

		fb, err = svc.repo.CreateFeedback(ctx, Feedback{
			TaskID:    t.ID,
			MentorID:  actor.ID,
			Comment:   nf.Comment,
			Rating:    nf.Rating,
			Status:    FeedbackCompleted,
			CreatedAt: time.Now().UTC(),
		}, exec)
		return errors.Wrap(err, "creating feedback")
	})
	if err != nil {
		return Feedback{}, err
	}

	svc.profiles.Invalidator().InvalidateMentee(ctx, t.MenteeID)
	svc.notifier.Notify(ctx, notification.Notification{
		RecipientID: t.MenteeID,
		Type:        notification.TypeFeedbackReceived,
		RefID:       &t.ID,
		Title:       "피드백이 도착했습니다",
		Message:     t.Title,
	})
	svc.sendFeedbackMail(ctx, t, fb)
	return fb, nil
}

func (svc *Service) sendFeedbackMail(ctx context.Context, t MentorTask, fb Feedback) {
	profiles, err := svc.profiles.ByIDs(ctx, []string{t.MenteeID, t.MentorID})
	if err != nil {
		svc.logger.Error(fmt.Sprintf("task: loading profiles for feedback mail: %v", err), err)
		return
	}
	var mentee, mentor profile.Profile
	for _, p := range profiles {
		switch p.ID {
		case t.MenteeID:
			mentee = p
		case t.MentorID:
			mentor = p
		}
	}
	if mentee.Email == "" {
		return
	}

	svc.mailSvc.SendMessages(&core.EmailMessage{
		To:              []mail.Address{{Name: mentee.Name, Address: mentee.Email}},
		Subject:         fmt.Sprintf("[%s] %s", svc.conf.AppName, t.Title),
		TemplateName:    "feedback_received",
		FrontendBaseURL: svc.conf.FrontendBaseURL,
		TemplateData: map[string]interface{}{
			"MenteeName": mentee.Name,
			"MentorName": mentor.Name,
			"TaskTitle":  t.Title,
			"TaskID":     t.ID,
			"Rating":     fb.Rating,
			"Comment":    fb.Comment,
		},
	})
}

// MarkFeedbackRead marks a feedback as read by the mentee it was given to.
func (svc *Service) MarkFeedbackRead(ctx context.Context, actor core.Actor, feedbackID string) error {
	fb, err := svc.repo.GetFeedback(ctx, feedbackID)
	if err != nil {
		if core.IsNotFound(err) {
			return ErrFeedbackNotFound
		}
		return errors.Wrap(err, "finding feedback")
	}
	t, err := svc.getTask(ctx, fb.TaskID)
	if err != nil {
		return err
	}
	if t.MenteeID != actor.ID {
		return errNotTaskMentee
	}
	if fb.IsRead {
		return nil
	}

	if err = svc.repo.MarkFeedbackRead(ctx, fb.ID, time.Now().UTC()); err != nil {
		return errors.Wrap(err, "marking feedback read")
	}
	svc.profiles.Invalidator().InvalidateMentee(ctx, t.MenteeID)
	return nil
}

// DueBetween returns the pending tasks whose deadline falls within [from, to].
func (svc *Service) DueBetween(ctx context.Context, from, to time.Time) ([]MentorTask, error) {
	tasks, err := svc.repo.QueryTasks(ctx, QueryFilter{
		Statuses:     []string{StatusPending},
		DeadlineFrom: &from,
		DeadlineTo:   &to,
	})
	return tasks, errors.Wrap(err, "querying due tasks")
}
