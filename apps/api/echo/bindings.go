package echoapi

import (
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/jhkim0602/monguri-sub002/core"
)

var orderingParam = "ordering"

type Ordering struct {
	Orderings []core.DBOrdering
}

// Bind reads `?ordering=name,-createdAt`; a leading "-" sorts descending.
func (ord *Ordering) Bind(ctx echo.Context) {
	val := ctx.QueryParam(orderingParam)
	if val == "" {
		return
	}
	for _, field := range strings.Split(val, ",") {
		field = strings.TrimSpace(field)
		descending := strings.HasPrefix(field, "-")
		if descending {
			field = field[1:] // drop "-"
		}
		if field == "" {
			continue
		}
		ord.Orderings = append(ord.Orderings, core.DBOrdering{Field: field, Ascending: !descending})
	}
}

// dateRange reads `?from=YYYY-MM-DD&to=YYYY-MM-DD`; both are optional.
func (s *Server) dateRange(ctx echo.Context) (core.DateRange, error) {
	dr := core.DateRange{
		From: strings.TrimSpace(ctx.QueryParam("from")),
		To:   strings.TrimSpace(ctx.QueryParam("to")),
	}
	if err := s.Validate.Struct(dr); err != nil {
		return core.DateRange{}, err
	}
	return dr, dr.Validate()
}
