package main

import (
	"context"
	"flag"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/iedon/gitpages/config"
	"github.com/iedon/gitpages/page"
	"github.com/iedon/gitpages/server"
	"github.com/iedon/gitpages/updater"
)

func main() {
	cfgPath := flag.String("config", "config.yaml", "path to configuration file")
	flag.Parse()

	cfg, err := config.Load(*cfgPath)
	if err != nil {
		panic(err)
	}

	logger := newLogger(cfg.LogLevel)
	logger.Info("starting", "listen", cfg.Listen, "interval", cfg.Interval())

	pages, err := page.NewSet(cfg.Pages)
	if err != nil {
		logger.Error("pages", "error", err)
		os.Exit(1)
	}
	pages.Log(logger)

	sched := updater.New(pages, updater.NewGitSyncer(cfg.TempDir), logger, cfg.Interval(), cfg.UpdateTimeout())

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	go sched.Run(ctx)

	srv := server.New(cfg, pages, sched, logger, SERVER_SIGNATURE)
	if err := srv.Start(ctx); err != nil {
		logger.Error("server", "error", err)
		os.Exit(1)
	}
	logger.Info("shutdown completed")
}

func newLogger(level string) *slog.Logger {
	var lvl slog.Level
	switch strings.ToLower(level) {
	case "debug":
		lvl = slog.LevelDebug
	case "warn":
		lvl = slog.LevelWarn
	case "error":
		lvl = slog.LevelError
	default:
		lvl = slog.LevelInfo
	}
	return slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: lvl}))
}
