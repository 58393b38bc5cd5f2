package main

import (
	"context"
	"expvar"
	"fmt"
	"log"
	"net/http"
	_ "net/http/pprof"
	"os"
	"time"

	"github.com/jhkim0602/monguri-sub002/apps/api/di"
	echoapi "github.com/jhkim0602/monguri-sub002/apps/api/echo"
	"github.com/jhkim0602/monguri-sub002/core"
	logsvc "github.com/jhkim0602/monguri-sub002/services/logger"
)

func main() {
	// =========================================================================
	// Set up Dependencies

	conf := core.NewConfig()

	logger := logsvc.NewRollbarLogger(
		log.New(os.Stdout, "API : ", log.LstdFlags|log.Lmicroseconds|log.Lshortfile),
		conf,
	)
	logger.Enable(!conf.Debug && conf.RollbarToken != "")
	defer logger.Close()

	dbLogger := logsvc.NewRollbarLogger(
		log.New(os.Stdout, "DB : ", log.LstdFlags|log.Lmicroseconds|log.Lshortfile),
		conf,
	)

	setUpCtx, cancelSetUp := context.WithTimeout(context.Background(), time.Minute)
	container, err := di.New(setUpCtx, conf, logger, di.Options{Migrate: true})
	cancelSetUp()
	if err != nil {
		dbLogger.Fatal(fmt.Sprintf("setting up dependencies: %v", err), err)
	}
	defer container.Close()

	// =========================================================================
	// Initialize App

	logger.Info(fmt.Sprintf("Application initializing : version %q (db: %s, cache: %s)",
		conf.Build, conf.Database.Engine, conf.Cache.Backend))
	defer logger.Info("Application stopped")

	di.PrepareAssets(conf, logger)

	// =========================================================================
	// Start Debug Service
	//
	// /debug/pprof - Added to the default mux by importing the net/http/pprof package.
	// /debug/vars - Added to the default mux by importing the expvar package.

	expvar.NewString("build").Set(conf.Build)
	expvar.NewString("env").Set(conf.Env)

	go func() {
		if err := http.ListenAndServe(conf.Server.DebugHost, http.DefaultServeMux); err != nil {
			logger.Error(fmt.Sprintf("debug server closed: %v", err), err)
		}
	}()

	// =========================================================================
	// Start Scheduler

	if conf.Scheduler.Enabled {
		if err = container.Scheduler.Start(); err != nil {
			logger.Fatal(fmt.Sprintf("starting scheduler: %v", err), err)
		}
	}

	// =========================================================================
	// Start API Service

	server := echoapi.NewServer(
		echoapi.ServerDeps{
			Conf:          conf,
			Logger:        logger,
			Validate:      container.Validate,
			Translator:    container.Translator,
			Profiles:      container.Profiles,
			Subjects:      container.Subjects,
			Tasks:         container.Tasks,
			Planner:       container.Planner,
			Overview:      container.Overview,
			Notifications: container.Notifications,
			Chat:          container.Chat,
			Columns:       container.Columns,
		},
	)

	go func() {
		server.Start()
	}()

	// =========================================================================
	// Shutdown

	select {
	case err = <-server.Errors():
		logger.Error(fmt.Sprintf("server error: %v", err), err)

	case sig := <-server.ShutdownSignal():
		logger.Info(fmt.Sprintf("%v: Start shutdown...", sig))
	}

	// give outstanding requests a deadline for completion
	ctx, cancel := context.WithTimeout(context.Background(), conf.Server.ShutdownTimeout)
	defer cancel()

	if conf.Scheduler.Enabled {
		container.Scheduler.Stop(ctx)
	}

	// asking listener to shutdown and shed load
	if err = server.Shutdown(ctx); err != nil {
		logger.Error(fmt.Sprintf("could not stop server gracefully: %v", err), err)

		if err = server.Close(); err != nil {
			logger.Error(fmt.Sprintf("could not force stop server: %v", err), err)
		}
	}
}
