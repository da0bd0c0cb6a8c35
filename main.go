package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/soocke/gem-bot-go/app"
	"github.com/soocke/gem-bot-go/config"
)

func main() {
	cfgPath := flag.String("config", config.DefaultPath(), "path to a JSON, TOML or YAML config file")
	debugFlag := flag.Bool("debug", false, "enable debug logging and runtime stats")
	once := flag.Bool("once", false, "run a single cycle and exit")
	flag.Parse()

	cfg, err := config.Load(*cfgPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "config %s: %v\n", *cfgPath, err)
		os.Exit(1)
	}
	if *debugFlag {
		cfg.Debug = true
	}

	level := slog.LevelInfo
	if cfg.Debug {
		level = slog.LevelDebug
	}
	logger := NewLogger(level)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	application, err := app.New(cfg, logger, *once)
	if err != nil {
		logger.Error("startup failed", "error", err)
		os.Exit(1)
	}
	if err := application.Run(ctx); err != nil {
		logger.Error("bot failed", "error", err)
		stop()
		os.Exit(1)
	}
}
