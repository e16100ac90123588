// Package main is the entry point for the learnpath API server.
//
// main only reads configuration, builds the logger and the notifier, and
// hands them to internal/server. Everything else lives under internal/.
package main

import (
	"flag"
	"io"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/sakif/learnpath/internal/config"
	"github.com/sakif/learnpath/internal/notify"
	"github.com/sakif/learnpath/internal/server"
)

func main() {
	configDir := flag.String("config", ".", "directory holding config.yaml and .env")
	flag.Parse()

	cfg, err := config.Load(*configDir)
	if err != nil {
		slog.Error("failed to load configuration", slog.String("error", err.Error()))
		os.Exit(1)
	}

	logger := newLogger(os.Stdout, cfg.Log)
	slog.SetDefault(logger)

	// modernc sqlite creates the file but not its directory.
	if dbDir := filepath.Dir(cfg.DB.Path); cfg.DB.Path != ":memory:" {
		if err := os.MkdirAll(dbDir, 0755); err != nil {
			logger.Error("failed to create database directory",
				slog.String("dir", dbDir),
				slog.String("error", err.Error()),
			)
			os.Exit(1)
		}
	}

	var notifier notify.Notifier = notify.NewLogNotifier(logger)
	if cfg.SMTP.Enabled() {
		notifier = notify.NewMailer(notify.MailerConfig{
			Host:     cfg.SMTP.Host,
			Port:     cfg.SMTP.Port,
			Username: cfg.SMTP.Username,
			Password: cfg.SMTP.Password,
			From:     cfg.SMTP.From,
			AppURL:   cfg.AppURL,
		}, logger)
	} else {
		logger.Warn("SMTP not configured, welcome emails are only logged")
	}

	srv, err := server.New(cfg, logger, server.Deps{Notifier: notifier})
	if err != nil {
		logger.Error("failed to create server", slog.String("error", err.Error()))
		os.Exit(1)
	}

	// Start blocks until SIGINT or SIGTERM.
	if err := srv.Start(); err != nil {
		logger.Error("server error", slog.String("error", err.Error()))
		os.Exit(1)
	}
}

func newLogger(w io.Writer, cfg config.Log) *slog.Logger {
	opts := &slog.HandlerOptions{Level: cfg.SlogLevel()}
	if cfg.Format == "json" {
		return slog.New(slog.NewJSONHandler(w, opts))
	}
	return slog.New(slog.NewTextHandler(w, opts))
}
