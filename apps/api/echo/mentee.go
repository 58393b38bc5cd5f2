package echoapi

import (
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/jhkim0602/monguri-sub002/core"
	"github.com/jhkim0602/monguri-sub002/core/planner"
	"github.com/jhkim0602/monguri-sub002/core/task"
)

type menteeApi struct {
	srv *Server
}

// Every route acts on the authenticated mentee's own data.
func registerMenteeAPI(g *echo.Group, jwt echo.MiddlewareFunc, srv *Server) {
	api := menteeApi{srv: srv}

	mg := g.Group("/mentee", jwt, roleMiddleware(core.RoleMentee))
	mg.GET("/overview", api.overview)
	mg.GET("/feedback-feed", api.feedbackFeed)

	mg.GET("/tasks", api.listTasks)
	mg.GET("/tasks/:id", api.retrieveTask)
	mg.POST("/tasks/:id/submissions", api.submit)
	mg.PUT("/feedback/:id/read", api.markFeedbackRead)

	mg.POST("/planner-tasks", api.createPlannerTasks)
	mg.PUT("/planner-tasks/:id", api.updatePlannerTask)
	mg.DELETE("/planner-tasks/:id", api.deletePlannerTask)
	mg.DELETE("/recurring-groups/:id", api.deleteRecurringGroup)

	mg.PUT("/daily-records/:date", api.upsertDailyRecord)

	mg.POST("/schedule-events", api.createScheduleEvent)
	mg.DELETE("/schedule-events/:id", api.deleteScheduleEvent)
}

func (api menteeApi) overview(ctx echo.Context) error {
	act, err := actor(ctx)
	if err != nil {
		return err
	}
	dr, err := api.srv.dateRange(ctx)
	if err != nil {
		return err
	}
	ov, err := api.srv.Overview.PlannerOverview(ctx.Request().Context(), act, act.ID, dr)
	if err != nil {
		return err
	}
	return ok(ctx, ov)
}

func (api menteeApi) feedbackFeed(ctx echo.Context) error {
	act, err := actor(ctx)
	if err != nil {
		return err
	}
	feed, err := api.srv.Overview.FeedbackFeed(ctx.Request().Context(), act, act.ID)
	if err != nil {
		return err
	}
	return ok(ctx, feed)
}

func (api menteeApi) listTasks(ctx echo.Context) error {
	act, err := actor(ctx)
	if err != nil {
		return err
	}
	tasks, err := api.srv.Tasks.MenteeTasks(ctx.Request().Context(), act, act.ID)
	if err != nil {
		return err
	}
	return ok(ctx, tasks)
}

func (api menteeApi) retrieveTask(ctx echo.Context) error {
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

func (api menteeApi) submit(ctx echo.Context) error {
	act, err := actor(ctx)
	if err != nil {
		return err
	}
	var data task.NewSubmission
	if err = ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewSubmission")
	}
	if err = data.Validate(api.srv.Validate); err != nil {
		return err
	}
	sub, err := api.srv.Tasks.Submit(ctx.Request().Context(), act, ctx.Param("id"), data)
	if err != nil {
		return err
	}
	return created(ctx, sub)
}

func (api menteeApi) markFeedbackRead(ctx echo.Context) error {
	act, err := actor(ctx)
	if err != nil {
		return err
	}
	if err = api.srv.Tasks.MarkFeedbackRead(ctx.Request().Context(), act, ctx.Param("id")); err != nil {
		return err
	}
	return ok(ctx, nil)
}

func (api menteeApi) createPlannerTasks(ctx echo.Context) error {
	act, err := actor(ctx)
	if err != nil {
		return err
	}
	var data planner.NewTasks
	if err = ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewTasks")
	}
	if err = data.Validate(api.srv.Validate); err != nil {
		return err
	}
	res, err := api.srv.Planner.CreateTasks(ctx.Request().Context(), act, act.ID, data)
	if err != nil {
		return err
	}
	return created(ctx, res)
}

func (api menteeApi) updatePlannerTask(ctx echo.Context) error {
	act, err := actor(ctx)
	if err != nil {
		return err
	}
	var data planner.UpdateTask
	if err = ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to planner.UpdateTask")
	}
	if err = data.Validate(api.srv.Validate); err != nil {
		return err
	}
	t, err := api.srv.Planner.UpdateTask(ctx.Request().Context(), act, ctx.Param("id"), data)
	if err != nil {
		return err
	}
	return ok(ctx, t)
}

func (api menteeApi) deletePlannerTask(ctx echo.Context) error {
	act, err := actor(ctx)
	if err != nil {
		return err
	}
	if err = api.srv.Planner.DeleteTask(ctx.Request().Context(), act, ctx.Param("id")); err != nil {
		return err
	}
	return ok(ctx, nil)
}

func (api menteeApi) deleteRecurringGroup(ctx echo.Context) error {
	act, err := actor(ctx)
	if err != nil {
		return err
	}
	if err = api.srv.Planner.DeleteRecurringGroup(ctx.Request().Context(), act, ctx.Param("id")); err != nil {
		return err
	}
	return ok(ctx, nil)
}

func (api menteeApi) upsertDailyRecord(ctx echo.Context) error {
	act, err := actor(ctx)
	if err != nil {
		return err
	}
	var data planner.DailyEntry
	if err = ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to DailyEntry")
	}
	if err = data.Validate(api.srv.Validate); err != nil {
		return err
	}
	rec, err := api.srv.Planner.UpsertDailyRecord(ctx.Request().Context(), act, ctx.Param("date"), data)
	if err != nil {
		return err
	}
	return ok(ctx, rec)
}

func (api menteeApi) createScheduleEvent(ctx echo.Context) error {
	act, err := actor(ctx)
	if err != nil {
		return err
	}
	return createScheduleEvent(ctx, api.srv, act, act.ID)
}

func (api menteeApi) deleteScheduleEvent(ctx echo.Context) error {
	act, err := actor(ctx)
	if err != nil {
		return err
	}
	if err = api.srv.Planner.DeleteScheduleEvent(ctx.Request().Context(), act, ctx.Param("id")); err != nil {
		return err
	}
	return ok(ctx, nil)
}
