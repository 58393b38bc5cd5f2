package echoapi

import (
	"strconv"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/jhkim0602/monguri-sub002/core"
	"github.com/jhkim0602/monguri-sub002/core/chat"
)

type chatApi struct {
	srv *Server
}

func registerChatAPI(g *echo.Group, jwt echo.MiddlewareFunc, srv *Server) {
	api := chatApi{srv: srv}

	lg := g.Group("/links/:linkId", jwt)
	lg.GET("/messages", api.messages)
	lg.POST("/messages", api.send)
	lg.GET("/meetings", api.meetings)
	lg.POST("/meetings", api.requestMeeting)

	mg := g.Group("/meetings/:id", jwt)
	mg.PUT("/respond", api.respondMeeting)
	mg.PUT("/cancel", api.cancelMeeting)
}

func (api chatApi) messages(ctx echo.Context) error {
	act, err := actor(ctx)
	if err != nil {
		return err
	}
	page := chat.Page{Limit: chat.DefaultPageSize}
	if before := ctx.QueryParam("before"); before != "" {
		ts, err := time.Parse(time.RFC3339, before)
		if err != nil {
			return core.NewValidationError(err, core.FieldError{Field: "before", Error: "must be an RFC 3339 timestamp"})
		}
		page.Before = &ts
	}
	if limit := ctx.QueryParam("limit"); limit != "" {
		if page.Limit, err = strconv.Atoi(limit); err != nil {
			return core.NewValidationError(err, core.FieldError{Field: "limit", Error: "must be a number"})
		}
	}
	msgs, err := api.srv.Chat.Messages(ctx.Request().Context(), act, ctx.Param("linkId"), page)
	if err != nil {
		return err
	}
	if msgs == nil {
		msgs = []chat.Message{}
	}
	return ok(ctx, msgs)
}

func (api chatApi) send(ctx echo.Context) error {
	act, err := actor(ctx)
	if err != nil {
		return err
	}
	var data chat.NewMessage
	if err = ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewMessage")
	}
	if err = data.Validate(api.srv.Validate); err != nil {
		return err
	}
	msg, err := api.srv.Chat.Send(ctx.Request().Context(), act, ctx.Param("linkId"), data)
	if err != nil {
		return err
	}
	return created(ctx, msg)
}

func (api chatApi) meetings(ctx echo.Context) error {
	act, err := actor(ctx)
	if err != nil {
		return err
	}
	meetings, err := api.srv.Chat.Meetings(ctx.Request().Context(), act, ctx.Param("linkId"))
	if err != nil {
		return err
	}
	if meetings == nil {
		meetings = []chat.Meeting{}
	}
	return ok(ctx, meetings)
}

func (api chatApi) requestMeeting(ctx echo.Context) error {
	act, err := actor(ctx)
	if err != nil {
		return err
	}
	var data chat.NewMeeting
	if err = ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewMeeting")
	}
	if err = data.Validate(api.srv.Validate); err != nil {
		return err
	}
	m, err := api.srv.Chat.RequestMeeting(ctx.Request().Context(), act, ctx.Param("linkId"), data)
	if err != nil {
		return err
	}
	return created(ctx, m)
}

func (api chatApi) respondMeeting(ctx echo.Context) error {
	act, err := actor(ctx)
	if err != nil {
		return err
	}
	var data chat.MeetingResponse
	if err = ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to MeetingResponse")
	}
	if err = data.Validate(api.srv.Validate); err != nil {
		return err
	}
	m, err := api.srv.Chat.RespondMeeting(ctx.Request().Context(), act, ctx.Param("id"), data)
	if err != nil {
		return err
	}
	return ok(ctx, m)
}

func (api chatApi) cancelMeeting(ctx echo.Context) error {
	act, err := actor(ctx)
	if err != nil {
		return err
	}
	m, err := api.srv.Chat.CancelMeeting(ctx.Request().Context(), act, ctx.Param("id"))
	if err != nil {
		return err
	}
	return ok(ctx, m)
}
