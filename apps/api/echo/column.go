package echoapi

import (
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/jhkim0602/monguri-sub002/core"
	"github.com/jhkim0602/monguri-sub002/core/column"
)

type columnApi struct {
	srv *Server
}

type PublishRequest struct {
	Published bool `json:"published"`
}

// Reading is public; drafts still need their author's token.
// Every route shares one param node, so ref is a slug on GET and an id elsewhere.
func registerColumnAPI(g *echo.Group, jwt echo.MiddlewareFunc, srv *Server) {
	api := columnApi{srv: srv}

	cg := g.Group("/columns")
	cg.GET("", api.list)
	cg.GET("/:ref", api.retrieve, srv.auth.optionalJWT())
	cg.POST("", api.create, jwt)
	cg.PUT("/:ref", api.update, jwt)
	cg.PUT("/:ref/publish", api.publish, jwt)
	cg.DELETE("/:ref", api.delete, jwt)
}

func (api columnApi) list(ctx echo.Context) error {
	var page column.Page
	if err := ctx.Bind(&page); err != nil {
		return errors.Wrap(err, "binding to column.Page")
	}
	articles, err := api.srv.Columns.ListPublished(ctx.Request().Context(), page)
	if err != nil {
		return err
	}
	if articles == nil {
		articles = []column.Article{}
	}
	return ok(ctx, articles)
}

func (api columnApi) retrieve(ctx echo.Context) error {
	var viewer *core.Actor
	if act, err := actor(ctx); err == nil {
		viewer = &act
	}
	a, err := api.srv.Columns.GetBySlug(ctx.Request().Context(), viewer, ctx.Param("ref"))
	if err != nil {
		return err
	}
	return ok(ctx, a)
}

func (api columnApi) create(ctx echo.Context) error {
	act, err := actor(ctx)
	if err != nil {
		return err
	}
	var data column.NewArticle
	if err = ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewArticle")
	}
	if err = data.Validate(api.srv.Validate); err != nil {
		return err
	}
	a, err := api.srv.Columns.Create(ctx.Request().Context(), act, data)
	if err != nil {
		return err
	}
	return created(ctx, a)
}

func (api columnApi) update(ctx echo.Context) error {
	act, err := actor(ctx)
	if err != nil {
		return err
	}
	var data column.UpdateArticle
	if err = ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to UpdateArticle")
	}
	if err = data.Validate(api.srv.Validate); err != nil {
		return err
	}
	a, err := api.srv.Columns.Update(ctx.Request().Context(), act, ctx.Param("ref"), data)
	if err != nil {
		return err
	}
	return ok(ctx, a)
}

func (api columnApi) publish(ctx echo.Context) error {
	act, err := actor(ctx)
	if err != nil {
		return err
	}
	var data PublishRequest
	if err = ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to PublishRequest")
	}
	a, err := api.srv.Columns.Publish(ctx.Request().Context(), act, ctx.Param("ref"), data.Published)
	if err != nil {
		return err
	}
	return ok(ctx, a)
}

func (api columnApi) delete(ctx echo.Context) error {
	act, err := actor(ctx)
	if err != nil {
		return err
	}
	if err = api.srv.Columns.Delete(ctx.Request().Context(), act, ctx.Param("ref")); err != nil {
		return err
	}
	return ok(ctx, nil)
}
