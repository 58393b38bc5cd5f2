// Package di assembles the dependency graph shared by the API server, the admin CLI and the HTTP tests.
package di

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/go-playground/locales/en"
	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	"github.com/pkg/errors"
	"github.com/redis/go-redis/v9"

	"github.com/jhkim0602/monguri-sub002/core"
	"github.com/jhkim0602/monguri-sub002/core/cache"
	"github.com/jhkim0602/monguri-sub002/core/chat"
	"github.com/jhkim0602/monguri-sub002/core/column"
	"github.com/jhkim0602/monguri-sub002/core/notification"
	"github.com/jhkim0602/monguri-sub002/core/overview"
	"github.com/jhkim0602/monguri-sub002/core/planner"
	"github.com/jhkim0602/monguri-sub002/core/profile"
	"github.com/jhkim0602/monguri-sub002/core/subject"
	"github.com/jhkim0602/monguri-sub002/core/task"
	appfs "github.com/jhkim0602/monguri-sub002/fs"
	emailsvc "github.com/jhkim0602/monguri-sub002/services/email"
	"github.com/jhkim0602/monguri-sub002/services/scheduler"
	"github.com/jhkim0602/monguri-sub002/storage/database"
	inmemdb "github.com/jhkim0602/monguri-sub002/storage/database/inmem"
)

type Container struct {
	Conf   *core.Config
	Logger core.Logger

	SQLDB   *sql.DB     // nil with the memory engine
	MemDB   *inmemdb.DB // nil with the postgres engine
	Repos   database.Repositories
	Redis   *redis.Client // nil with the memory cache
	Cache   *cache.Service
	Sweeper scheduler.Sweeper // nil with the redis cache
	MailSvc core.EmailService

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
	Scheduler     *scheduler.Scheduler
}

// Options tweak the graph for tests.
type Options struct {
	Migrate bool             // run "up" migrations on the postgres engine
	Now     func() time.Time // clock of the cache, notifications, overview and scheduler
	MailSvc core.EmailService
}

// New connects the configured storage and cache engines and builds every service on top of them.
func New(ctx context.Context, conf *core.Config, logger core.Logger, opts Options) (*Container, error) {
	if opts.Now == nil {
		opts.Now = time.Now
	}
	c := &Container{Conf: conf, Logger: logger}

	if err := c.setUpDB(ctx, opts.Migrate); err != nil {
		c.Close()
		return nil, errors.Wrap(err, "setting up database")
	}
	if err := c.setUpCache(ctx, opts.Now); err != nil {
		c.Close()
		return nil, errors.Wrap(err, "setting up cache")
	}

	c.MailSvc = opts.MailSvc
	if c.MailSvc == nil {
		c.MailSvc = newEmailService(conf, logger)
	}

	c.Validate = validator.New()
	c.Translator = newTranslator()
	core.InitValidators(c.Validate, c.Translator)
	profile.InitValidators(c.Validate, c.Translator)

	c.buildServices(opts.Now)
	return c, nil
}

func (c *Container) setUpDB(ctx context.Context, migrate bool) error {
	switch c.Conf.Database.Engine {
	case database.EngineMemory:
		c.MemDB = inmemdb.Open()
		c.Repos = database.MemoryRepositories(c.MemDB)
		return nil

	case database.EnginePostgres, "":
		if migrate {
			if err := database.CreateIfNotExist(ctx, c.Conf); err != nil {
				return err
			}
		}
		db, err := database.Open(ctx, c.Conf)
		if err != nil {
			return err
		}
		c.SQLDB = db
		if migrate {
			if err = database.Migrate(ctx, db, "up"); err != nil {
				return err
			}
		}
		c.Repos = database.PostgresRepositories(db)
		return nil
	}
	return errors.Errorf("unknown database engine %q", c.Conf.Database.Engine)
}

func (c *Container) setUpCache(ctx context.Context, now func() time.Time) error {
	var store cache.Store
	switch c.Conf.Cache.Backend {
	case "redis":
		client, err := cache.NewRedisClient(ctx, c.Conf.Cache)
		if err != nil {
			return err
		}
		c.Redis = client
		store = cache.NewRedisStore(client, 2*c.Conf.Cache.TTL)
	case "memory", "":
		mem := cache.NewMemoryStore()
		c.Sweeper = mem
		store = mem
	default:
		return errors.Errorf("unknown cache backend %q", c.Conf.Cache.Backend)
	}
	c.Cache = cache.NewService(store, c.Conf.Cache.TTL, now, c.Logger)
	return nil
}

// db returns the transactional handle of the services; nil when transactions are not supported.
func (c *Container) db() core.DB {
	if c.SQLDB == nil {
		return nil
	}
	return c.SQLDB
}

func (c *Container) buildServices(now func() time.Time) {
	c.Profiles = profile.NewService(c.Repos.Profiles, c.MailSvc, c.Cache, c.Conf, c.Logger)
	c.Subjects = subject.NewService(c.Repos.Subjects, c.Cache)
	c.Notifications = notification.NewService(c.Repos.Notifications, c.Conf.Notification.ChatGroupWindow, now, c.Logger)
	c.Tasks = task.NewService(task.Deps{
		DB:       c.db(),
		Repo:     c.Repos.Tasks,
		Profiles: c.Profiles,
		Subjects: c.Subjects,
		Notifier: c.Notifications,
		MailSvc:  c.MailSvc,
		Cache:    c.Cache,
		Conf:     c.Conf,
		Logger:   c.Logger,
	})
	c.Planner = planner.NewService(c.db(), c.Repos.Planner, c.Profiles, c.Subjects, c.Notifications, c.Logger)
	c.Overview = overview.NewService(c.Profiles, c.Tasks, c.Planner, c.Cache, now)
	c.Chat = chat.NewService(c.Repos.Chat, c.Profiles, c.Notifications, c.Logger)
	c.Columns = column.NewService(c.Repos.Columns, c.Cache)

	c.Scheduler = scheduler.New(scheduler.Deps{
		Tasks:    c.Tasks,
		Notifier: c.Notifications,
		Sweeper:  c.Sweeper,
		Conf:     c.Conf,
		Logger:   c.Logger,
		Now:      now,
	})
}

// Close releases the database and cache connections.
func (c *Container) Close() {
	if c.SQLDB != nil {
		if err := c.SQLDB.Close(); err != nil {
			c.Logger.Error(fmt.Sprintf("closing database: %v", err), err)
		}
	}
	if c.Redis != nil {
		if err := c.Redis.Close(); err != nil {
			c.Logger.Error(fmt.Sprintf("closing redis: %v", err), err)
		}
	}
}

// PrepareAssets parses the embedded email templates and loads the common password list.
func PrepareAssets(conf *core.Config, logger core.Logger) {
	core.ParseEmailTemplates(appfs.FS, !conf.TestMode, logger)
	profile.LoadCommonPasswords(logger)
}

func newEmailService(conf *core.Config, logger core.Logger) core.EmailService {
	switch {
	case conf.TestMode:
		return emailsvc.NewConsoleServiceMock(conf, logger)
	case conf.Debug || conf.SendgridApiKey == "":
		return emailsvc.NewConsoleService(conf, logger)
	}
	return emailsvc.NewSendgridService(conf, logger)
}

func newTranslator() ut.Translator {
	_en := en.New()
	uni := ut.New(_en, _en)
	translator, _ := uni.GetTranslator("en")
	return translator
}
