package echoapi

import (
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/jhkim0602/monguri-sub002/core"
	"github.com/jhkim0602/monguri-sub002/core/planner"
	"github.com/jhkim0602/monguri-sub002/core/task"
)

type mentorApi struct {
	srv *Server
}

func registerMentorAPI(g *echo.Group, jwt echo.MiddlewareFunc, srv *Server) {
	api := mentorApi{srv: srv}

	mg := g.Group("/mentor", jwt, roleMiddleware(core.RoleMentor))
	mg.GET("/dashboard", api.dashboard)
	mg.GET("/students", api.students)
	mg.GET("/feedback-queue", api.feedbackQueue)

	mg.GET("/tasks", api.listTasks)
	mg.POST("/tasks", api.createTask)
	mg.GET("/tasks/:id", api.retrieveTask)
	mg.PUT("/tasks/:id", api.updateTask)
	mg.DELETE("/tasks/:id", api.deleteTask)
	mg.POST("/tasks/:id/feedback", api.giveFeedback)

	mg.GET("/mentees/:menteeId/overview", api.menteeOverview)
	mg.GET("/mentees/:menteeId/feedback-feed", api.menteeFeed)
	mg.GET("/mentees/:menteeId/tasks", api.menteeTasks)
	mg.PUT("/mentees/:menteeId/daily-records/:date/reply", api.replyDailyRecord)
	mg.POST("/mentees/:menteeId/schedule-events", api.createScheduleEvent)

	mg.PUT("/planner-tasks/:id/comment", api.commentPlannerTask)
}

func (api mentorApi) dashboard(ctx echo.Context) error {
	act, err := actor(ctx)
	if err != nil {
		return err
	}
	dash, err := api.srv.Overview.Dashboard(ctx.Request().Context(), act)
	if err != nil {
		return err
	}
	return ok(ctx, dash)
}

func (api mentorApi) students(ctx echo.Context) error {
	act, err := actor(ctx)
	if err != nil {
		return err
	}
	mentees, err := api.srv.Overview.Students(ctx.Request().Context(), act)
	if err != nil {
		return err
	}
	return ok(ctx, mentees)
}

func (api mentorApi) feedbackQueue(ctx echo.Context) error {
	act, err := actor(ctx)
	if err != nil {
		return err
	}
	queue, err := api.srv.Overview.FeedbackQueue(ctx.Request().Context(), act)
	if err != nil {
		return err
	}
	return ok(ctx, queue)
}

func (api mentorApi) listTasks(ctx echo.Context) error {
	act, err := actor(ctx)
	if err != nil {
		return err
	}
	var filter task.QueryFilter
	if err = ctx.Bind(&filter); err != nil {
		return errors.Wrap(err, "binding to task.QueryFilter")
	}
	views, err := api.srv.Tasks.MentorTasks(ctx.Request().Context(), act, filter)
	if err != nil {
		return err
	}
	return ok(ctx, views)
}

func (api mentorApi) createTask(ctx echo.Context) error {
	act, err := actor(ctx)
	if err != nil {
		return err
	}
	var data task.NewTask
	if err = ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewTask")
	}
	if err = data.Validate(api.srv.Validate); err != nil {
		return err
	}
	view, err := api.srv.Tasks.Create(ctx.Request().Context(), act, data)
	if err != nil {
		return err
	}
	return created(ctx, view)
}

func (api mentorApi) retrieveTask(ctx echo.Context) error {
	act, err := actor(ctx)
	if err != nil {
		return err
	}
	detail, err := api.srv.Tasks.Get(ctx.Request().Context(), act, ctx.Param("id"))
	if err != nil {
		return err
	}
	return ok(ctx, detail)
}

func (api mentorApi) updateTask(ctx echo.Context) error {
	act, err := actor(ctx)
	if err != nil {
		return err
	}
	var data task.UpdateTask
	if err = ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to UpdateTask")
	}
	if err = data.Validate(api.srv.Validate); err != nil {
		return err
	}
	view, err := api.srv.Tasks.Update(ctx.Request().Context(), act, ctx.Param("id"), data)
	if err != nil {
		return err
	}
	return ok(ctx, view)
}

func (api mentorApi) deleteTask(ctx echo.Context) error {
	act, err := actor(ctx)
	if err != nil {
		return err
	}
	if err = api.srv.Tasks.Delete(ctx.Request().Context(), act, ctx.Param("id")); err != nil {
		return err
	}
	return ok(ctx, nil)
}

func (api mentorApi) giveFeedback(ctx echo.Context) error {
	act, err := actor(ctx)
	if err != nil {
		return err
	}
	var data task.NewFeedback
	if err = ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewFeedback")
	}
	if err = data.Validate(api.srv.Validate); err != nil {
		return err
	}
	fb, err := api.srv.Tasks.GiveFeedback(ctx.Request().Context(), act, ctx.Param("id"), data)
	if err != nil {
		return err
	}
	return created(ctx, fb)
}

func (api mentorApi) menteeOverview(ctx echo.Context) error {
	act, err := actor(ctx)
	if err != nil {
		return err
	}
	dr, err := api.srv.dateRange(ctx)
	if err != nil {
		return err
	}
	ov, err := api.srv.Overview.PlannerOverview(ctx.Request().Context(), act, ctx.Param("menteeId"), dr)
	if err != nil {
		return err
	}
	return ok(ctx, ov)
}

func (api mentorApi) menteeFeed(ctx echo.Context) error {
	act, err := actor(ctx)
	if err != nil {
		return err
	}
	feed, err := api.srv.Overview.FeedbackFeed(ctx.Request().Context(), act, ctx.Param("menteeId"))
	if err != nil {
		return err
	}
	return ok(ctx, feed)
}

func (api mentorApi) menteeTasks(ctx echo.Context) error {
	act, err := actor(ctx)
	if err != nil {
		return err
	}
	tasks, err := api.srv.Tasks.MenteeTasks(ctx.Request().Context(), act, ctx.Param("menteeId"))
	if err != nil {
		return err
	}
	return ok(ctx, tasks)
}

func (api mentorApi) replyDailyRecord(ctx echo.Context) error {
	act, err := actor(ctx)
	if err != nil {
		return err
	}
	var data planner.MentorComment
	if err = ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to MentorComment")
	}
	if err = data.Validate(api.srv.Validate); err != nil {
		return err
	}
	rec, err := api.srv.Planner.ReplyDailyRecord(ctx.Request().Context(), act, ctx.Param("menteeId"), ctx.Param("date"), data)
	if err != nil {
		return err
	}
	return ok(ctx, rec)
}

func (api mentorApi) createScheduleEvent(ctx echo.Context) error {
	act, err := actor(ctx)
	if err != nil {
		return err
	}
	return createScheduleEvent(ctx, api.srv, act, ctx.Param("menteeId"))
}

func (api mentorApi) commentPlannerTask(ctx echo.Context) error {
	act, err := actor(ctx)
	if err != nil {
		return err
	}
	var data planner.MentorComment
	if err = ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to MentorComment")
	}
	if err = data.Validate(api.srv.Validate); err != nil {
		return err
	}
	t, err := api.srv.Planner.CommentTask(ctx.Request().Context(), act, ctx.Param("id"), data)
	if err != nil {
		return err
	}
	return ok(ctx, t)
}

// createScheduleEvent is shared by both portals.
func createScheduleEvent(ctx echo.Context, srv *Server, act core.Actor, menteeID string) error {
	var data planner.NewScheduleEvent
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewScheduleEvent")
	}
	if err := data.Validate(srv.Validate); err != nil {
		return err
	}
	ev, err := srv.Planner.CreateScheduleEvent(ctx.Request().Context(), act, menteeID, data)
	if err != nil {
		return err
	}
	return created(ctx, ev)
}
