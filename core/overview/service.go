// Package overview aggregates the read models shown on the mentee planner and the mentor surfaces.
package overview

import (
	"context"
	"sort"
	"time"

	"github.com/pkg/errors"
	"golang.org/x/sync/errgroup"

	"github.com/jhkim0602/monguri-sub002/core"
	"github.com/jhkim0602/monguri-sub002/core/cache"
	"github.com/jhkim0602/monguri-sub002/core/planner"
	"github.com/jhkim0602/monguri-sub002/core/profile"
	"github.com/jhkim0602/monguri-sub002/core/task"
)

var errMentorsOnly = core.NewForbiddenError("mentors only")

type Service struct {
	profiles *profile.Service
	tasks    *task.Service
	planner  *planner.Service
	cache    *cache.Service
	now      func() time.Time
}

func NewService(profiles *profile.Service, tasks *task.Service, plannerSvc *planner.Service, cacheSvc *cache.Service, now func() time.Time) *Service {
	if now == nil {
		now = time.Now
	}
	return &Service{
		profiles: profiles,
		tasks:    tasks,
		planner:  plannerSvc,
		cache:    cacheSvc,
		now:      now,
	}
}

// PlannerOverview fetches concurrently the mentor tasks, planner tasks, schedule events and daily
// records of a mentee. Any failing fetch fails the whole overview.
func (svc *Service) PlannerOverview(ctx context.Context, actor core.Actor, menteeID string, dr core.DateRange) (PlannerOverview, error) {
	if err := dr.Validate(); err != nil {
		return PlannerOverview{}, err
	}
	if err := svc.profiles.CanAccessMentee(ctx, actor, menteeID); err != nil {
		return PlannerOverview{}, err
	}

	key := cache.Key("overview", menteeID, dr.Key())
	return cache.Remember(ctx, svc.cache, key, []string{cache.MenteeTag(menteeID)},
		func(ctx context.Context) (PlannerOverview, error) {
			return svc.buildPlannerOverview(ctx, menteeID, dr)
		})
}

func (svc *Service) buildPlannerOverview(ctx context.Context, menteeID string, dr core.DateRange) (PlannerOverview, error) {
	var (
		mentorTasks  []task.View
		plannerTasks []planner.Task
		events       []planner.ScheduleEvent
		records      []planner.DailyRecord
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() (err error) {
		mentorTasks, err = svc.tasks.Views(gctx, task.QueryFilter{MenteeID: menteeID})
		return errors.Wrap(err, "fetching mentor tasks")
	})
	g.Go(func() (err error) {
		plannerTasks, err = svc.planner.TasksOf(gctx, menteeID, dr)
		return errors.Wrap(err, "fetching planner tasks")
	})
	g.Go(func() (err error) {
		events, err = svc.planner.EventsOf(gctx, menteeID, dr)
		return errors.Wrap(err, "fetching schedule events")
	})
	g.Go(func() (err error) {
		records, err = svc.planner.RecordsOf(gctx, menteeID, dr)
		return errors.Wrap(err, "fetching daily records")
	})
	if err := g.Wait(); err != nil {
		return PlannerOverview{}, err
	}

	items := make([]Item, 0, len(mentorTasks)+len(plannerTasks))
	for _, v := range mentorTasks {
		items = append(items, MentorItem(v))
	}
	for _, t := range plannerTasks {
		items = append(items, PlannerItem(t))
	}
	sort.SliceStable(items, func(i, j int) bool { return items[i].Date() < items[j].Date() })

	if events == nil {
		events = []planner.ScheduleEvent{}
	}
	if records == nil {
		records = []planner.DailyRecord{}
	}
	return PlannerOverview{
		MenteeID:       menteeID,
		Range:          dr,
		Summary:        svc.tasks.Summarize(mentorTasks),
		Tasks:          items,
		ScheduleEvents: events,
		DailyRecords:   records,
	}, nil
}

// FeedbackFeed merges the mentor feedback on tasks, the mentor comments on planner tasks and the
// mentor replies on daily records of a mentee, most recent first.
func (svc *Service) FeedbackFeed(ctx context.Context, actor core.Actor, menteeID string) ([]FeedItem, error) {
	if err := svc.profiles.CanAccessMentee(ctx, actor, menteeID); err != nil {
		return nil, err
	}
	return cache.Remember(ctx, svc.cache, cache.Key("feedback-feed", menteeID), []string{cache.MenteeTag(menteeID)},
		func(ctx context.Context) ([]FeedItem, error) {
			return svc.buildFeedbackFeed(ctx, menteeID)
		})
}

func (svc *Service) buildFeedbackFeed(ctx context.Context, menteeID string) ([]FeedItem, error) {
	var (
		mentorTasks []task.View
		commented   []planner.Task
		records     []planner.DailyRecord
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() (err error) {
		mentorTasks, err = svc.tasks.Views(gctx, task.QueryFilter{MenteeID: menteeID})
		return errors.Wrap(err, "fetching mentor tasks")
	})
	g.Go(func() (err error) {
		commented, err = svc.planner.CommentedTasksOf(gctx, menteeID)
		return errors.Wrap(err, "fetching commented planner tasks")
	})
	g.Go(func() (err error) {
		records, err = svc.planner.RecordsOf(gctx, menteeID, core.DateRange{})
		return errors.Wrap(err, "fetching daily records")
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	feed := make([]FeedItem, 0, len(mentorTasks)+len(commented)+len(records))
	for _, v := range mentorTasks {
		fb := v.LatestFeedback
		if fb == nil {
			continue
		}
		rating, isRead := fb.Rating, fb.IsRead
		feed = append(feed, FeedItem{
			Kind:    FeedTaskFeedback,
			RefID:   v.ID,
			Title:   v.Title,
			Comment: fb.Comment,
			Rating:  &rating,
			IsRead:  &isRead,
			At:      fb.CreatedAt,
		})
	}
	for _, t := range commented {
		if t.MentorComment == nil {
			continue
		}
		at := t.UpdatedAt
		if t.MentorCommentAt != nil {
			at = *t.MentorCommentAt
		}
		feed = append(feed, FeedItem{
			Kind:    FeedPlannerReview,
			RefID:   t.ID,
			Title:   t.Title,
			Comment: *t.MentorComment,
			Date:    t.Date,
			At:      at,
		})
	}
	for _, r := range records {
		if r.MentorReply == nil {
			continue
		}
		at := r.UpdatedAt
		if r.MentorReplyAt != nil {
			at = *r.MentorReplyAt
		}
		feed = append(feed, FeedItem{
			Kind:    FeedDailyReply,
			RefID:   r.ID,
			Title:   r.Date,
			Comment: *r.MentorReply,
			Date:    r.Date,
			At:      at,
		})
	}

	SortFeed(feed)
	return feed, nil
}

// SortFeed orders feed items by date, most recent first; equal dates keep their order.
func SortFeed(feed []FeedItem) {
	sort.SliceStable(feed, func(i, j int) bool { return feed[i].At.After(feed[j].At) })
}

// Students returns the actively linked mentees of a mentor.
func (svc *Service) Students(ctx context.Context, actor core.Actor) ([]profile.Profile, error) {
	if !actor.IsMentor() {
		return nil, errMentorsOnly
	}
	return cache.Remember(ctx, svc.cache, cache.Key("students", actor.ID), []string{cache.MentorTag(actor.ID)},
		func(ctx context.Context) ([]profile.Profile, error) {
			return svc.profiles.ListMentees(ctx, actor.ID)
		})
}

// FeedbackQueue returns the submitted tasks awaiting the mentor's review, latest submission first.
func (svc *Service) FeedbackQueue(ctx context.Context, actor core.Actor) ([]task.View, error) {
	if !actor.IsMentor() {
		return nil, errMentorsOnly
	}
	return cache.Remember(ctx, svc.cache, cache.Key("feedback-queue", actor.ID), []string{cache.MentorTag(actor.ID)},
		func(ctx context.Context) ([]task.View, error) {
			views, err := svc.tasks.Views(ctx, task.QueryFilter{MentorID: actor.ID, Statuses: []string{task.StatusSubmitted}})
			if err != nil {
				return nil, err
			}
			sort.SliceStable(views, func(i, j int) bool {
				return submittedAt(views[i]).After(submittedAt(views[j]))
			})
			return views, nil
		})
}

func submittedAt(v task.View) time.Time {
	if v.LatestSubmission == nil {
		return v.UpdatedAt
	}
	return v.LatestSubmission.SubmittedAt
}

// Dashboard summarizes, per linked mentee, the task statuses and today's planner completion.
func (svc *Service) Dashboard(ctx context.Context, actor core.Actor) (MentorDashboard, error) {
	if !actor.IsMentor() {
		return MentorDashboard{}, errMentorsOnly
	}
	today := core.FormatDate(svc.now().UTC())
	key := cache.Key("mentor-dashboard", actor.ID, today)
	return cache.Remember(ctx, svc.cache, key, []string{cache.MentorTag(actor.ID)},
		func(ctx context.Context) (MentorDashboard, error) {
			return svc.buildDashboard(ctx, actor.ID, today)
		})
}

func (svc *Service) buildDashboard(ctx context.Context, mentorID, today string) (MentorDashboard, error) {
	mentees, err := svc.profiles.ListMentees(ctx, mentorID)
	if err != nil {
		return MentorDashboard{}, err
	}
	views, err := svc.tasks.Views(ctx, task.QueryFilter{MentorID: mentorID})
	if err != nil {
		return MentorDashboard{}, err
	}

	todays := make([][]planner.Task, len(mentees))
	g, gctx := errgroup.WithContext(ctx)
	for i, m := range mentees {
		i, m := i, m
		g.Go(func() (err error) {
			todays[i], err = svc.planner.TasksOf(gctx, m.ID, core.DateRange{From: today, To: today})
			return err
		})
	}
	if err = g.Wait(); err != nil {
		return MentorDashboard{}, err
	}

	byMentee := make(map[string][]task.View, len(mentees))
	for _, v := range views {
		byMentee[v.MenteeID] = append(byMentee[v.MenteeID], v)
	}

	dash := MentorDashboard{Date: today, Mentees: make([]MenteeSummary, 0, len(mentees))}
	for i, m := range mentees {
		ms := MenteeSummary{
			Mentee:       m,
			Summary:      svc.tasks.Summarize(byMentee[m.ID]),
			PlannerTotal: len(todays[i]),
		}
		ms.AwaitingReview = ms.Summary.Submitted
		for _, t := range todays[i] {
			if t.Completed {
				ms.PlannerCompleted++
			}
		}
		dash.AwaitingReview += ms.AwaitingReview
		dash.Mentees = append(dash.Mentees, ms)
	}
	return dash, nil
}
