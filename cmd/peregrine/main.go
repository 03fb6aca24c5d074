package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"syscall"

	"peregrine/internal/app"
	"peregrine/internal/config"
	"peregrine/internal/logger"
)

func main() {
	configPath := flag.String("config", defaultConfigPath(), "path to the YAML config file")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		logger.Errorf("load config: %v", err)
		os.Exit(1)
	}
	logger.SetLevel(cfg.App.LogLevel)

	a, err := app.New(cfg)
	if err != nil {
		logger.Errorf("init: %v", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := a.Run(ctx); err != nil {
		logger.Errorf("run: %v", err)
		os.Exit(1)
	}
	logger.Infof("shutdown complete")
}

func defaultConfigPath() string {
	if p := os.Getenv("PEREGRINE_CONFIG"); p != "" {
		return p
	}
	return "configs/config.yaml"
}
