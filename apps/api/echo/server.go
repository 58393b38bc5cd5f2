// Package echoapi exposes the core services over HTTP with echo.
package echoapi

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/labstack/gommon/log"

	"github.com/jhkim0602/monguri-sub002/core"
	"github.com/jhkim0602/monguri-sub002/core/chat"
	"github.com/jhkim0602/monguri-sub002/core/column"
	"github.com/jhkim0602/monguri-sub002/core/notification"
	"github.com/jhkim0602/monguri-sub002/core/overview"
	"github.com/jhkim0602/monguri-sub002/core/planner"
	"github.com/jhkim0602/monguri-sub002/core/profile"
	"github.com/jhkim0602/monguri-sub002/core/subject"
	"github.com/jhkim0602/monguri-sub002/core/task"
)

type (
	ServerDeps struct {
		Conf       *core.Config
		Logger     core.Logger
		Validate   *validator.Validate
		Translator ut.Translator

		Profiles      *profile.Service
		Subjects      *subject.Service
		Tasks         *task.Service
		Planner       *planner.Service
		Overview      *overview.Service
		Notifications *notification.Service
		Chat          *chat.Service
		Columns       *column.Service
	}

	Server struct {
		ServerDeps
		app      *echo.Echo
		auth     *authenticator
		errors   chan error
		shutdown chan os.Signal
	}
)

func NewServer(deps ServerDeps) *Server {
	s := &Server{
		ServerDeps: deps,
		app:        echo.New(),
		auth:       newAuthenticator(deps.Conf, deps.Profiles),
		errors:     make(chan error, 1),
		shutdown:   make(chan os.Signal, 1),
	}
	signal.Notify(s.shutdown, os.Interrupt, syscall.SIGTERM)
	s.setup()
	return s
}

func (s *Server) setup() {
	s.app.HideBanner = true
	s.app.Pre(middleware.RemoveTrailingSlash())
	if !s.Conf.TestMode {
		s.app.Use(middleware.Logger())
	}
	// do not recover in DEV|TEST mode
	if !(s.Conf.Debug || s.Conf.TestMode) {
		s.app.Use(middleware.RecoverWithConfig(middleware.RecoverConfig{LogLevel: log.ERROR}))
	}

	s.app.HTTPErrorHandler = newAppHTTPErrorHandler(s.Logger, s.Translator, s.signalShutdown)
	s.app.Debug = s.Conf.Debug

	s.app.GET("/", s.home)

	v1 := s.app.Group("/v1")
	jwt := middleware.JWTWithConfig(s.auth.jwtConfig)

	registerAuthAPI(v1, jwt, s)
	registerProfileAPI(v1, jwt, s)
	registerSubjectAPI(v1, jwt, s)
	registerMentorAPI(v1, jwt, s)
	registerMenteeAPI(v1, jwt, s)
	registerChatAPI(v1, jwt, s)
	registerNotificationAPI(v1, jwt, s)
	registerColumnAPI(v1, jwt, s)
}

// Start listens on the configured address; listen failures are sent on Errors.
func (s *Server) Start() {
	if err := s.app.Start(s.Conf.Server.Address); err != nil && err != http.ErrServerClosed {
		s.errors <- err
	}
}

func (s *Server) Errors() <-chan error { return s.errors }

// ShutdownSignal receives OS interrupts and shutdown errors raised by handlers.
func (s *Server) ShutdownSignal() <-chan os.Signal { return s.shutdown }

func (s *Server) signalShutdown() {
	select {
	case s.shutdown <- syscall.SIGTERM:
	default:
	}
}

func (s *Server) Shutdown(ctx context.Context) error {
	signal.Stop(s.shutdown)
	return s.app.Shutdown(ctx)
}

func (s *Server) Close() error {
	return s.app.Close()
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) { // for tests
	s.app.ServeHTTP(w, r)
}

func (s *Server) home(ctx echo.Context) error {
	return ctx.String(http.StatusOK, "Welcome to "+s.Conf.AppName+" API!")
}
