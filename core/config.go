package core

import (
	"fmt"
	"log"
	"net/mail"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

type (
	Config struct {
		Env              string
		Debug            bool
		TestMode         bool
		AppName          string
		Build            string
		SecretKey        string
		FrontendBaseURL  string
		WorkDir          string
		RollbarToken     string
		SendgridApiKey   string
		defaultFromEmail string

		PasswordResetTimeoutDelta time.Duration

		Database     DatabaseConfig
		Server       ServerConfig
		Cache        CacheConfig
		Notification NotificationConfig
		Workflow     WorkflowConfig
		Scheduler    SchedulerConfig
	}

	DatabaseConfig struct {
		Engine        string // postgres | memory
		Host          string
		Port          string
		Name          string
		User          string
		Password      string
		AdminUser     string
		AdminPassword string
		DisableTLS    bool
	}

	ServerConfig struct {
		Host                      string
		Address                   string
		DebugHost                 string
		ShutdownTimeout           time.Duration
		JWTExpirationDelta        time.Duration
		JWTRefreshExpirationDelta time.Duration
	}

	CacheConfig struct {
		TTL           time.Duration
		Backend       string // memory | redis
		RedisAddr     string
		RedisPassword string
		RedisDB       int
	}

	NotificationConfig struct {
		ChatGroupWindow time.Duration
	}

	// WorkflowConfig holds switches for task lifecycle rules.
	WorkflowConfig struct {
		// AllowFeedbackWithoutSubmission lets a mentor give feedback on a task that is still pending.
		AllowFeedbackWithoutSubmission bool
	}

	SchedulerConfig struct {
		Enabled              bool
		DeadlineReminderSpec string
		DeadlineHorizon      time.Duration
		CacheSweepSpec       string
	}
)

func (c *Config) DefaultFromEmail() mail.Address {
	return mail.Address{Name: c.AppName, Address: c.defaultFromEmail}
}

func (dbc DatabaseConfig) Address() string {
	return dbc.Host + ":" + dbc.Port
}

// NewConfig loads the configuration from defaults, the optional `config/.env.<env>` file and the environment.
func NewConfig() *Config {
	conf := viper.New()

	env := strings.ToUpper(os.Getenv("ENV")) // DEV (local; default), TEST, QA, PROD
	if env == "" {
		env = "DEV"
	}

	// defaults
	conf.SetTypeByDefaultValue(true)
	conf.SetDefault("debug", env == "DEV")
	conf.SetDefault("testMode", env == "TEST")
	conf.SetDefault("appName", "Monguri")
	conf.SetDefault("build", "dev")
	conf.SetDefault("secretKey", "g7%v-mb!x2q(0u)nz8&kpe+4r#t$yw1c@h9sj_3fa6ld)oi5")
	conf.SetDefault("frontendBaseURL", "http://localhost:3000")
	conf.SetDefault("workDir", getwd())
	conf.SetDefault("rollbarToken", "")
	conf.SetDefault("sendgridApiKey", "")
	conf.SetDefault("defaultFromEmail", "noreply@localhost")
	conf.SetDefault("passwordResetTimeoutDelta", 3*24*time.Hour)

	conf.SetDefault("databaseEngine", "postgres")
	conf.SetDefault("databaseHost", "localhost")
	conf.SetDefault("databasePort", "5432")
	conf.SetDefault("databaseName", "monguri")
	conf.SetDefault("databaseUser", "monguri")
	conf.SetDefault("databasePassword", "monguri")
	conf.SetDefault("databaseAdminUser", "")
	conf.SetDefault("databaseAdminPassword", "")
	conf.SetDefault("databaseDisableTLS", env == "DEV" || env == "TEST")

	conf.SetDefault("serverHost", "localhost")
	conf.SetDefault("serverAddress", ":8000")
	conf.SetDefault("serverDebugHost", ":4000")
	conf.SetDefault("serverShutdownTimeout", 5*time.Second)
	conf.SetDefault("jwtExpirationDelta", 7*24*time.Hour)
	conf.SetDefault("jwtRefreshExpirationDelta", 30*24*time.Hour)

	conf.SetDefault("cacheTTL", 60*time.Second)
	conf.SetDefault("cacheBackend", "memory")
	conf.SetDefault("cacheRedisAddr", "localhost:6379")
	conf.SetDefault("cacheRedisPassword", "")
	conf.SetDefault("cacheRedisDB", 0)

	conf.SetDefault("notificationChatGroupWindow", 10*time.Minute)
	conf.SetDefault("workflowAllowFeedbackWithoutSubmission", true)

	conf.SetDefault("schedulerEnabled", true)
	conf.SetDefault("schedulerDeadlineReminderSpec", "0 * * * *")
	conf.SetDefault("schedulerDeadlineHorizon", 24*time.Hour)
	conf.SetDefault("schedulerCacheSweepSpec", "@every 10m")

	conf.SetEnvPrefix(env)

	// load .env if it exists (ignore if it does not)
	dotEnvPath := filepath.Join(conf.GetString("workDir"), "config", ".env."+strings.ToLower(env))
	if _, err := os.Stat(dotEnvPath); err == nil {
		if err := godotenv.Load(dotEnvPath); err != nil {
			log.Fatalf("config.godotenv(%s): %v", dotEnvPath, err)
		}
	} else if !os.IsNotExist(err) {
		log.Fatalf("config.os.Stat(%s): %v", dotEnvPath, err)
	}
	conf.AutomaticEnv()

	return &Config{
		Env:                       env,
		Debug:                     conf.GetBool("debug"),
		TestMode:                  conf.GetBool("testMode"),
		AppName:                   conf.GetString("appName"),
		Build:                     conf.GetString("build"),
		SecretKey:                 conf.GetString("secretKey"),
		FrontendBaseURL:           conf.GetString("frontendBaseURL"),
		WorkDir:                   conf.GetString("workDir"),
		RollbarToken:              conf.GetString("rollbarToken"),
		SendgridApiKey:            conf.GetString("sendgridApiKey"),
		defaultFromEmail:          conf.GetString("defaultFromEmail"),
		PasswordResetTimeoutDelta: conf.GetDuration("passwordResetTimeoutDelta"),
		Database: DatabaseConfig{
			Engine:        conf.GetString("databaseEngine"),
			Host:          conf.GetString("databaseHost"),
			Port:          conf.GetString("databasePort"),
			Name:          conf.GetString("databaseName"),
			User:          conf.GetString("databaseUser"),
			Password:      conf.GetString("databasePassword"),
			AdminUser:     conf.GetString("databaseAdminUser"),
			AdminPassword: conf.GetString("databaseAdminPassword"),
			DisableTLS:    conf.GetBool("databaseDisableTLS"),
		},
		Server: ServerConfig{
			Host:                      conf.GetString("serverHost"),
			Address:                   conf.GetString("serverAddress"),
			DebugHost:                 conf.GetString("serverDebugHost"),
			ShutdownTimeout:           conf.GetDuration("serverShutdownTimeout"),
			JWTExpirationDelta:        conf.GetDuration("jwtExpirationDelta"),
			JWTRefreshExpirationDelta: conf.GetDuration("jwtRefreshExpirationDelta"),
		},
		Cache: CacheConfig{
			TTL:           conf.GetDuration("cacheTTL"),
			Backend:       conf.GetString("cacheBackend"),
			RedisAddr:     conf.GetString("cacheRedisAddr"),
			RedisPassword: conf.GetString("cacheRedisPassword"),
			RedisDB:       conf.GetInt("cacheRedisDB"),
		},
		Notification: NotificationConfig{
			ChatGroupWindow: conf.GetDuration("notificationChatGroupWindow"),
		},
		Workflow: WorkflowConfig{
			AllowFeedbackWithoutSubmission: conf.GetBool("workflowAllowFeedbackWithoutSubmission"),
		},
		Scheduler: SchedulerConfig{
			Enabled:              conf.GetBool("schedulerEnabled"),
			DeadlineReminderSpec: conf.GetString("schedulerDeadlineReminderSpec"),
			DeadlineHorizon:      conf.GetDuration("schedulerDeadlineHorizon"),
			CacheSweepSpec:       conf.GetString("schedulerCacheSweepSpec"),
		},
	}
}

// NewTestConfig returns a Config suitable for unit tests; nothing is read from the environment.
func NewTestConfig() *Config {
	return &Config{
		Env:                       "TEST",
		TestMode:                  true,
		AppName:                   "Monguri",
		Build:                     "test",
		SecretKey:                 "secret",
		FrontendBaseURL:           "http://localhost:3000",
		WorkDir:                   getwd(),
		defaultFromEmail:          "noreply@localhost",
		PasswordResetTimeoutDelta: 3 * 24 * time.Hour,
		Database:                  DatabaseConfig{Engine: "memory"},
		Server: ServerConfig{
			Host:                      "localhost",
			ShutdownTimeout:           time.Second,
			JWTExpirationDelta:        10 * time.Minute,
			JWTRefreshExpirationDelta: 4 * time.Hour,
		},
		Cache:        CacheConfig{TTL: 60 * time.Second, Backend: "memory"},
		Notification: NotificationConfig{ChatGroupWindow: 10 * time.Minute},
		Workflow:     WorkflowConfig{AllowFeedbackWithoutSubmission: true},
		Scheduler: SchedulerConfig{
			DeadlineReminderSpec: "0 * * * *",
			DeadlineHorizon:      24 * time.Hour,
			CacheSweepSpec:       "@every 10m",
		},
	}
}

func (c *Config) String() string {
	return fmt.Sprintf("%s[%s] env=%s db=%s cache=%s", c.AppName, c.Build, c.Env, c.Database.Engine, c.Cache.Backend)
}

func getwd() string {
	wd, err := os.Getwd()
	if err != nil {
		log.Fatal(err)
	}
	return wd
}
