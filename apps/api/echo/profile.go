package echoapi

import (
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/jhkim0602/monguri-sub002/core"
	"github.com/jhkim0602/monguri-sub002/core/profile"
	"github.com/jhkim0602/monguri-sub002/core/subject"
)

type profileApi struct {
	srv *Server
}

func registerProfileAPI(g *echo.Group, jwt echo.MiddlewareFunc, srv *Server) {
	api := profileApi{srv: srv}

	g.GET("/me", api.me, jwt)
	g.PUT("/me", api.updateMe, jwt)
	g.GET("/links", api.links, jwt)

	pg := g.Group("/profiles", jwt)
	pg.GET("", api.query, adminMiddleware())
	pg.GET("/:id", api.retrieve)
	pg.PUT("/:id", api.update)
}

func (api profileApi) me(ctx echo.Context) error {
	p, err := api.srv.auth.contextProfile(ctx)
	if err != nil {
		return err
	}
	return ok(ctx, p)
}

func (api profileApi) updateMe(ctx echo.Context) error {
	claims, err := getContextClaims(ctx)
	if err != nil {
		return err
	}
	return api.doUpdate(ctx, claims.Actor(), claims.Subject)
}

func (api profileApi) update(ctx echo.Context) error {
	act, err := actor(ctx)
	if err != nil {
		return err
	}
	return api.doUpdate(ctx, act, ctx.Param("id"))
}

func (api profileApi) doUpdate(ctx echo.Context, act core.Actor, id string) error {
	var data profile.UpdateProfile
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to UpdateProfile")
	}
	if err := data.Validate(api.srv.Validate); err != nil {
		return err
	}
	p, err := api.srv.Profiles.Update(ctx.Request().Context(), act, id, data)
	if err != nil {
		return err
	}
	return ok(ctx, p)
}

// retrieve shows a profile to its owner, admins and the other side of an active link.
func (api profileApi) retrieve(ctx echo.Context) error {
	act, err := actor(ctx)
	if err != nil {
		return err
	}
	rctx := ctx.Request().Context()
	p, err := api.srv.Profiles.GetByID(rctx, ctx.Param("id"))
	if err != nil {
		return err
	}

	switch {
	case act.ID == p.ID, act.IsAdmin():
	case act.IsMentor() && p.IsMentee():
		if _, err = api.srv.Profiles.CheckLinked(rctx, act.ID, p.ID); err != nil {
			return profile.ErrNotFound
		}
	case act.IsMentee() && p.IsMentor():
		if _, err = api.srv.Profiles.CheckLinked(rctx, p.ID, act.ID); err != nil {
			return profile.ErrNotFound
		}
	default:
		return profile.ErrNotFound
	}
	return ok(ctx, p)
}

func (api profileApi) query(ctx echo.Context) error {
	filter := new(profile.QueryFilter)
	if err := ctx.Bind(filter); err != nil {
		return ok(ctx, []profile.Profile{})
	}
	filter.Clean()
	ordering := new(Ordering)
	ordering.Bind(ctx)
	filter.Ordering = ordering.Orderings

	profs, err := api.srv.Profiles.Query(ctx.Request().Context(), filter)
	if err != nil {
		return errors.Wrap(err, "querying profiles")
	}
	if profs == nil {
		profs = []profile.Profile{}
	}
	return ok(ctx, profs)
}

func (api profileApi) links(ctx echo.Context) error {
	act, err := actor(ctx)
	if err != nil {
		return err
	}
	links, err := api.srv.Profiles.LinksOf(ctx.Request().Context(), act)
	if err != nil {
		return err
	}
	return ok(ctx, links)
}

type subjectApi struct {
	srv *Server
}

func registerSubjectAPI(g *echo.Group, jwt echo.MiddlewareFunc, srv *Server) {
	api := subjectApi{srv: srv}

	sg := g.Group("/subjects", jwt)
	sg.GET("", api.list)
	sg.POST("", api.create, adminMiddleware())
}

func (api subjectApi) list(ctx echo.Context) error {
	subjects, err := api.srv.Subjects.List(ctx.Request().Context())
	if err != nil {
		return errors.Wrap(err, "listing subjects")
	}
	return ok(ctx, subjects)
}

func (api subjectApi) create(ctx echo.Context) error {
	var data subject.NewSubject
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewSubject")
	}
	if err := data.Validate(api.srv.Validate); err != nil {
		return err
	}
	s, err := api.srv.Subjects.Create(ctx.Request().Context(), data)
	if err != nil {
		return err
	}
	return created(ctx, s)
}
