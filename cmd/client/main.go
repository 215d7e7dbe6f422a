package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/willnicht/willnicht/internal/buildinfo"
	"github.com/willnicht/willnicht/internal/client/cli"
	"github.com/willnicht/willnicht/internal/client/config"
	"github.com/willnicht/willnicht/internal/logging"
)

func main() {

	buildinfo.PrintBuildData(os.Stdout)

	cfg := config.LoadConfig()
	logger := logging.NewTextLogger(os.Stderr, cfg.LogLevel)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	app, err := cli.NewApp(ctx, cfg, logger)
	if err != nil {
		log.Fatalf("%v", err)
	}

	// The REPL blocks on stdin, so a signal closes the app from here.
	go func() {
		<-ctx.Done()
		app.Close()
		os.Exit(0)
	}()

	app.Run(ctx)
}
