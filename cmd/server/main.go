// Package main is the entry point for the linkup auth server. It stays
// minimal: load configuration, build the logger, hand off to the server
// package. All wiring lives in internal/server.
package main

import (
	"log/slog"
	"os"

	"github.com/sakif/linkup/internal/config"
	"github.com/sakif/linkup/internal/server"
)

func main() {
	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))

	cfg, err := config.Load()
	if err != nil {
		logger.Error("loading configuration failed", slog.String("error", err.Error()))
		os.Exit(1)
	}

	srv, err := server.New(cfg, logger)
	if err != nil {
		logger.Error("building server failed", slog.String("error", err.Error()))
		os.Exit(1)
	}

	if err := srv.Start(); err != nil {
		logger.Error("server exited with error", slog.String("error", err.Error()))
		os.Exit(1)
	}
}
