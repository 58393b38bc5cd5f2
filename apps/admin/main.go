package main

import (
	"context"
	"log"
	"os"
	"time"

	"github.com/jhkim0602/monguri-sub002/apps/api/di"
	"github.com/jhkim0602/monguri-sub002/core"
	logsvc "github.com/jhkim0602/monguri-sub002/services/logger"
)

func main() {
	conf := core.NewConfig()
	logger := logsvc.NewRollbarLogger(log.New(os.Stdout, "ADMIN : ", log.LstdFlags|log.Lmicroseconds|log.Lshortfile), conf)
	logger.Enable(false)

	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	container, err := di.New(ctx, conf, logger, di.Options{})
	cancel()
	if err != nil {
		logger.Fatal(err.Error(), err)
	}
	di.PrepareAssets(conf, logger)

	cli := newCommandLine(container)
	err = cli.run(os.Args)
	container.Close()
	if err != nil {
		if err != errHelp {
			logger.Error("error: "+err.Error(), err)
		}
		os.Exit(1)
	}
}
