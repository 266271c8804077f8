// Package main is the entry point for the holdings ledger command line.
//
// Every invocation loads configuration from the environment (and .env),
// opens the ledger database, runs one command and closes the database.
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/aristath/holdings/internal/cli"
	"github.com/aristath/holdings/internal/config"
	"github.com/aristath/holdings/pkg/logger"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fallbackLog := logger.New(logger.Config{
			Level:  "info",
			Pretty: true,
		})
		fallbackLog.Fatal().Err(err).Msg("Failed to load configuration")
	}

	log := logger.New(logger.Config{
		Level:  cfg.LogLevel,
		Pretty: cfg.LogPretty,
	})
	logger.SetGlobalLogger(log)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	status := cli.New(cfg, log, os.Stdout, os.Stderr).Run(ctx, "ledger", os.Args[1:])
	stop()

	os.Exit(int(status))
}
