package main

import (
	"context"
	"log"
	"os"

	"github.com/dmitrijs2005/xrayportal/internal/server"
	"github.com/dmitrijs2005/xrayportal/internal/server/config"
)

func main() {
	ctx := context.Background()
	cfg := config.LoadConfig()

	logger, sync, err := server.NewLogger(cfg)
	if err != nil {
		log.Printf("%v", err)
		os.Exit(1)
	}
	defer func() { _ = sync() }()

	app, err := server.NewApp(ctx, cfg, logger)
	if err != nil {
		logger.Error(ctx, "startup failed", "error", err.Error())
		_ = sync()
		os.Exit(1)
	}

	if err := app.Run(ctx); err != nil {
		_ = sync()
		os.Exit(1)
	}
}
