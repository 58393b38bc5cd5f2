// Package testutil holds the fixtures shared by the HTTP, CLI and storage tests.
package testutil

import (
	"context"
	"database/sql"
	"io"
	"log"
	"os"
	"testing"
	"time"

	"github.com/jhkim0602/monguri-sub002/apps/api/di"
	"github.com/jhkim0602/monguri-sub002/core"
	"github.com/jhkim0602/monguri-sub002/core/profile"
	emailsvc "github.com/jhkim0602/monguri-sub002/services/email"
	logsvc "github.com/jhkim0602/monguri-sub002/services/logger"
	"github.com/jhkim0602/monguri-sub002/storage/database"
)

// Logger discards everything; rollbar stays disabled in test mode.
func Logger(conf *core.Config) core.Logger {
	return logsvc.NewRollbarLogger(log.New(io.Discard, "", 0), conf)
}

// NewContainer builds the whole graph on the memory engine. `now` replaces the clock when provided.
func NewContainer(t *testing.T, now ...func() time.Time) (*di.Container, *emailsvc.ConsoleService) {
	t.Helper()
	conf := core.NewTestConfig()
	logger := Logger(conf)
	mailSvc := emailsvc.NewConsoleServiceMock(conf, logger)

	opts := di.Options{MailSvc: mailSvc}
	if len(now) > 0 {
		opts.Now = now[0]
	}
	c, err := di.New(context.Background(), conf, logger, opts)
	if err != nil {
		t.Fatalf("di.New(): %v", err)
	}
	di.PrepareAssets(conf, logger)
	t.Cleanup(c.Close)
	return c, mailSvc
}

func CreateProfile(
	t *testing.T,
	repo profile.Repository,
	role, name, email, pwd string,
	isActive bool,
	createdAt ...time.Time,
) profile.Profile {
	t.Helper()
	tstamp := time.Now().UTC()
	if len(createdAt) > 0 {
		tstamp = createdAt[0].UTC()
	}
	p := profile.Profile{
		Role:      role,
		Name:      name,
		Email:     email,
		IsActive:  isActive,
		CreatedAt: tstamp,
		UpdatedAt: tstamp,
	}
	if pwd != "" {
		if err := p.SetPassword(pwd); err != nil {
			t.Fatalf("CreateProfile() failed: %v", err)
		}
	}
	p, err := repo.CreateProfile(context.Background(), p)
	if err != nil {
		t.Fatalf("CreateProfile() failed: %v", err)
	}
	return p
}

// Link starts an active mentorship.
func Link(t *testing.T, svc *profile.Service, mentor, mentee profile.Profile) profile.Link {
	t.Helper()
	link, err := svc.CreateLink(context.Background(), mentor.ID, mentee.ID)
	if err != nil {
		t.Fatalf("Link() failed: %v", err)
	}
	return link
}

// PrepareDB opens TEST_DATABASE_URL and migrates it from scratch. Tests are skipped when it is unset.
func PrepareDB(t *testing.T) *sql.DB {
	t.Helper()
	dsn := os.Getenv("TEST_DATABASE_URL")
	if dsn == "" {
		t.Skip("TEST_DATABASE_URL not set")
	}
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		t.Fatalf("PrepareDB(): %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })

	ctx := context.Background()
	if err = database.Migrate(ctx, db, "reset"); err != nil {
		t.Fatalf("PrepareDB(): %v", err)
	}
	if err = database.Migrate(ctx, db, "up"); err != nil {
		t.Fatalf("PrepareDB(): %v", err)
	}
	return db
}
