package echoapi

import (
	"net/http"

	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/pkg/errors"

	"github.com/jhkim0602/monguri-sub002/core"
)

var (
	errUnauthorized       = echo.NewHTTPError(http.StatusUnauthorized, "user not authenticated")
	errAccountDeactivated = echo.NewHTTPError(http.StatusForbidden, "account deactivated")
	errRefreshExpired     = echo.NewHTTPError(http.StatusForbidden, "refresh has expired")
	errHttpForbidden      = echo.NewHTTPError(http.StatusForbidden, "permission denied")
)

// ErrorResponse is the body of every failed request.
type ErrorResponse struct {
	Success bool              `json:"success"`
	Error   string            `json:"error"`
	Fields  map[string]string `json:"fields,omitempty"`
}

// Response is the body of every successful request.
type Response struct {
	Success bool        `json:"success"`
	Data    interface{} `json:"data"`
}

func ok(ctx echo.Context, data interface{}) error {
	return ctx.JSON(http.StatusOK, Response{Success: true, Data: data})
}

func created(ctx echo.Context, data interface{}) error {
	return ctx.JSON(http.StatusCreated, Response{Success: true, Data: data})
}

// newAppHTTPErrorHandler returns a custom echo.HTTPErrorHandler that knows how to handle our errors.
// signalShutdown is called in order to gracefully shutdown the Server whenever a core.shutdown error is caught.
func newAppHTTPErrorHandler(logger core.Logger, translator ut.Translator, signalShutdown func()) echo.HTTPErrorHandler {
	return func(err error, ctx echo.Context) {
		res := ErrorResponse{}
		var code int

		switch origErr := errors.Cause(err).(type) {
		case *echo.HTTPError:
			if origErr == middleware.ErrJWTMissing {
				code = http.StatusUnauthorized
				res.Error = "missing or malformed jwt"
				break
			}
			if origErr.Internal != nil {
				if herr, ok := origErr.Internal.(*echo.HTTPError); ok {
					origErr = herr
				}
			}
			code = origErr.Code
			if msg, ok := origErr.Message.(string); ok {
				res.Error = msg
			} else {
				res.Error = http.StatusText(code)
			}
		case validator.ValidationErrors:
			res.Fields = make(map[string]string, len(origErr))
			for _, vErr := range origErr {
				res.Fields[vErr.Field()] = vErr.Translate(translator)
			}
			code = http.StatusBadRequest
			res.Error = "invalid input"
		case *core.ValidationError:
			if origErr.Fields != nil {
				res.Fields = make(map[string]string, len(origErr.Fields))
				for _, fErr := range origErr.Fields {
					res.Fields[fErr.Field] = fErr.Error
				}
			}
			code = http.StatusBadRequest
			res.Error = origErr.Error()
		default:
			switch {
			case core.IsNotFound(err):
				code = http.StatusNotFound
				res.Error = errors.Cause(err).Error()
			case core.IsForbidden(err):
				code = http.StatusForbidden
				res.Error = errors.Cause(err).Error()
			case core.IsConflict(err):
				code = http.StatusConflict
				res.Error = errors.Cause(err).Error()
			default: // any other error is a server error
				code = http.StatusInternalServerError
				res.Error = http.StatusText(code)

				args := []interface{}{errors.Wrap(err, res.Error)}
				if claims, cErr := getContextClaims(ctx); cErr == nil {
					args = append(args, claims.Actor())
				}
				logger.Error(res.Error, args...)

				// shutting down...
				if core.IsShutdown(err) {
					signalShutdown()
				}
			}
		}

		if ctx.Echo().Debug && code == http.StatusInternalServerError {
			res.Error = err.Error()
		}

		if !ctx.Response().Committed {
			if ctx.Request().Method == http.MethodHead { // Issue #608
				err = ctx.NoContent(code)
			} else {
				err = ctx.JSON(code, res)
			}
			if err != nil {
				ctx.Echo().Logger.Error(err)
			}
		}
	}
}
