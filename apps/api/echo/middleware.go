package echoapi

import (
	"github.com/labstack/echo/v4"
)

// roleMiddleware lets through the requests of the given roles; admins always pass.
func roleMiddleware(roles ...string) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(ctx echo.Context) error {
			claims, err := getContextClaims(ctx)
			if err != nil {
				return err
			}
			if claims.IsAdmin {
				return next(ctx)
			}
			for _, role := range roles {
				if claims.Role == role {
					return next(ctx)
				}
			}
			return errHttpForbidden
		}
	}
}

func adminMiddleware() echo.MiddlewareFunc {
	return roleMiddleware()
}
