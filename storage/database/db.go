// Package database opens the postgres database, runs its migrations and assembles the repositories
// of the configured engine.
package database

import (
	"context"
	"database/sql"
	"net/url"
	"time"

	"github.com/lib/pq"
	"github.com/pkg/errors"
	"github.com/pressly/goose/v3"

	"github.com/jhkim0602/monguri-sub002/core"
	"github.com/jhkim0602/monguri-sub002/core/chat"
	"github.com/jhkim0602/monguri-sub002/core/column"
	"github.com/jhkim0602/monguri-sub002/core/notification"
	"github.com/jhkim0602/monguri-sub002/core/planner"
	"github.com/jhkim0602/monguri-sub002/core/profile"
	"github.com/jhkim0602/monguri-sub002/core/subject"
	"github.com/jhkim0602/monguri-sub002/core/task"
	appfs "github.com/jhkim0602/monguri-sub002/fs"
	inmemdb "github.com/jhkim0602/monguri-sub002/storage/database/inmem"
	boiledrepos "github.com/jhkim0602/monguri-sub002/storage/database/sqlboiler"
	sqlxrepos "github.com/jhkim0602/monguri-sub002/storage/database/sqlx"
)

const (
	EnginePostgres = "postgres"
	EngineMemory   = "memory"

	migrationsDir = "migrations"
)

// Repositories bundles the repositories of every domain package.
type Repositories struct {
	Profiles      profile.Repository
	Subjects      subject.Repository
	Tasks         task.Repository
	Planner       planner.Repository
	Notifications notification.Repository
	Chat          chat.Repository
	Columns       column.Repository
}

// PostgresRepositories maps profiles, subjects and columns with sqlx and the rest with sqlboiler.
func PostgresRepositories(db core.DBExecutor) Repositories {
	return Repositories{
		Profiles:      sqlxrepos.NewProfileRepository(db),
		Subjects:      sqlxrepos.NewSubjectRepository(db),
		Tasks:         boiledrepos.NewTaskRepository(db),
		Planner:       boiledrepos.NewPlannerRepository(db),
		Notifications: boiledrepos.NewNotificationRepository(db),
		Chat:          boiledrepos.NewChatRepository(db),
		Columns:       sqlxrepos.NewColumnRepository(db),
	}
}

func MemoryRepositories(db *inmemdb.DB) Repositories {
	return Repositories{
		Profiles:      inmemdb.NewProfileRepository(db),
		Subjects:      inmemdb.NewSubjectRepository(db),
		Tasks:         inmemdb.NewTaskRepository(db),
		Planner:       inmemdb.NewPlannerRepository(db),
		Notifications: inmemdb.NewNotificationRepository(db),
		Chat:          inmemdb.NewChatRepository(db),
		Columns:       inmemdb.NewColumnRepository(db),
	}
}

func open(dbName string, admin bool, conf *core.Config) (*sql.DB, error) {
	user := url.UserPassword(conf.Database.User, conf.Database.Password)
	if admin && conf.Database.AdminUser != "" {
		user = url.UserPassword(conf.Database.AdminUser, conf.Database.AdminPassword)
	}

	sslMode := "require"
	if conf.Database.DisableTLS {
		sslMode = "disable"
	}
	q := make(url.Values)
	q.Set("sslmode", sslMode)
	q.Set("timezone", "utc")

	u := url.URL{
		Scheme:   "postgres",
		User:     user,
		Host:     conf.Database.Address(),
		Path:     dbName,
		RawQuery: q.Encode(),
	}
	return sql.Open("postgres", u.String())
}

// Open connects to the application database and waits for it to answer.
func Open(ctx context.Context, conf *core.Config) (*sql.DB, error) {
	db, err := open(conf.Database.Name, false, conf)
	if err != nil {
		return nil, errors.Wrap(err, "opening database")
	}
	if err = ping(ctx, db); err != nil {
		_ = db.Close()
		return nil, err
	}
	return db, nil
}

// ping waits for the database to be ready. Waits 100ms longer between each attempt.
func ping(ctx context.Context, db *sql.DB) error {
	var err error
	maxAttempts := 30
	for attempts := 1; attempts <= maxAttempts; attempts++ {
		if err = db.PingContext(ctx); err == nil {
			return nil
		}
		select {
		case <-ctx.Done():
			return errors.Wrap(ctx.Err(), "DB ping cancelled")
		case <-time.After(time.Duration(attempts) * 100 * time.Millisecond):
		}
	}
	return errors.Wrap(err, "DB ping timeout")
}

func exists(ctx context.Context, db *sql.DB, query, name string) (bool, error) {
	var found bool
	err := db.QueryRowContext(ctx, query, name).Scan(&found)
	if errors.Cause(err) == sql.ErrNoRows {
		return false, nil
	}
	return found, err
}

func createAppUser(ctx context.Context, db *sql.DB, conf *core.Config) error {
	if conf.Database.User == "" {
		return nil
	}

	found, err := exists(ctx, db, "SELECT true FROM pg_roles WHERE rolname = $1", conf.Database.User)
	if err != nil {
		return errors.Wrap(err, "checking app user")
	}
	if !found {
		q := "CREATE USER " + pq.QuoteIdentifier(conf.Database.User) +
			" CREATEDB ENCRYPTED PASSWORD " + pq.QuoteLiteral(conf.Database.Password)
		if _, err = db.ExecContext(ctx, q); err != nil {
			return errors.Wrap(err, "creating app user")
		}
	}
	return nil
}

func createDB(ctx context.Context, db *sql.DB, conf *core.Config) error {
	found, err := exists(ctx, db, "SELECT true FROM pg_database WHERE datname = $1", conf.Database.Name)
	if err != nil {
		return errors.Wrap(err, "checking DB")
	}
	if !found {
		if _, err = db.ExecContext(ctx, "CREATE DATABASE "+pq.QuoteIdentifier(conf.Database.Name)); err != nil {
			return errors.Wrap(err, "creating database")
		}
	}
	return nil
}

// CreateIfNotExist creates the application role (as admin) and then the application database.
func CreateIfNotExist(ctx context.Context, conf *core.Config) error {
	adminDB, err := open("postgres", true, conf)
	if err != nil {
		return errors.Wrap(err, "opening database")
	}
	defer func() { _ = adminDB.Close() }()

	if err = ping(ctx, adminDB); err != nil {
		return errors.Wrap(err, "pinging database")
	}
	if err = createAppUser(ctx, adminDB, conf); err != nil {
		return err
	}

	appDB, err := open("postgres", false, conf)
	if err != nil {
		return errors.Wrap(err, "opening database")
	}
	defer func() { _ = appDB.Close() }()
	return createDB(ctx, appDB, conf)
}

// Migrate runs a goose command ("up", "down", "status", "redo", ...) with the embedded migrations.
func Migrate(ctx context.Context, db *sql.DB, command string, args ...string) error {
	goose.SetBaseFS(appfs.FS)
	if err := goose.SetDialect(EnginePostgres); err != nil {
		return errors.Wrap(err, "setting migration dialect")
	}
	if err := goose.RunContext(ctx, command, db, migrationsDir, args...); err != nil {
		return errors.Wrapf(err, "running migration %q", command)
	}
	return nil
}
