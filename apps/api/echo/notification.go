package echoapi

import (
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/jhkim0602/monguri-sub002/core/notification"
)

type notificationApi struct {
	srv *Server
}

type MarkReadRequest struct {
	IDs []string `json:"ids" validate:"required,min=1,max=100,dive,required"`
}

type countResponse struct {
	Count int `json:"count"`
}

func registerNotificationAPI(g *echo.Group, jwt echo.MiddlewareFunc, srv *Server) {
	api := notificationApi{srv: srv}

	ng := g.Group("/notifications", jwt)
	ng.GET("", api.list)
	ng.GET("/unread-count", api.unreadCount)
	ng.PUT("/read", api.markRead)
	ng.PUT("/read-all", api.markAllRead)
}

func (api notificationApi) list(ctx echo.Context) error {
	act, err := actor(ctx)
	if err != nil {
		return err
	}
	var filter notification.QueryFilter
	if err = ctx.Bind(&filter); err != nil {
		return errors.Wrap(err, "binding to notification.QueryFilter")
	}
	notifs, err := api.srv.Notifications.List(ctx.Request().Context(), act, filter)
	if err != nil {
		return err
	}
	return ok(ctx, notifs)
}

func (api notificationApi) unreadCount(ctx echo.Context) error {
	act, err := actor(ctx)
	if err != nil {
		return err
	}
	cnt, err := api.srv.Notifications.UnreadCount(ctx.Request().Context(), act)
	if err != nil {
		return err
	}
	return ok(ctx, countResponse{Count: cnt})
}

func (api notificationApi) markRead(ctx echo.Context) error {
	act, err := actor(ctx)
	if err != nil {
		return err
	}
	var data MarkReadRequest
	if err = ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to MarkReadRequest")
	}
	if err = api.srv.Validate.Struct(data); err != nil {
		return err
	}
	cnt, err := api.srv.Notifications.MarkRead(ctx.Request().Context(), act, data.IDs...)
	if err != nil {
		return err
	}
	return ok(ctx, countResponse{Count: cnt})
}

func (api notificationApi) markAllRead(ctx echo.Context) error {
	act, err := actor(ctx)
	if err != nil {
		return err
	}
	cnt, err := api.srv.Notifications.MarkAllRead(ctx.Request().Context(), act)
	if err != nil {
		return err
	}
	return ok(ctx, countResponse{Count: cnt})
}
