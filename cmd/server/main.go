package main

import (
	"context"
	"log"
	"os"

	"github.com/willnicht/willnicht/internal/buildinfo"
	"github.com/willnicht/willnicht/internal/logging"
	"github.com/willnicht/willnicht/internal/server"
	"github.com/willnicht/willnicht/internal/server/config"
)

func main() {

	buildinfo.PrintBuildData(os.Stdout)

	ctx := context.Background()
	cfg := config.LoadConfig()
	logger := logging.NewJSONLogger(os.Stdout, cfg.LogLevel)

	app, err := server.NewApp(ctx, cfg, logger)
	if err != nil {
		log.Fatalf("%v", err)
	}

	if err := app.Run(ctx); err != nil {
		log.Fatalf("%v", err)
	}
}
