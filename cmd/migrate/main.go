package main

import (
	"flag"
	"log/slog"
	"os"

	"github.com/arawak/scribe/internal/config"
	"github.com/arawak/scribe/migrations"
)

var version = "dev"

func main() {
	dir := flag.String("dir", "up", "migration direction: up or down")
	flag.Parse()

	logger := slog.New(slog.NewTextHandler(os.Stderr, nil)).With("version", version, "direction", *dir)

	cfg, err := config.Load()
	if err != nil {
		logger.Error("load config", "error", err)
		os.Exit(1)
	}
	dsn, err := cfg.DriverDSN()
	if err != nil {
		logger.Error("invalid database dsn", "error", err)
		os.Exit(1)
	}

	switch *dir {
	case "up":
		err = migrations.Up(dsn)
	case "down":
		err = migrations.Down(dsn)
	default:
		logger.Error("unknown direction")
		os.Exit(2)
	}
	if err != nil {
		logger.Error("migration failed", "error", err)
		os.Exit(1)
	}
	logger.Info("migrations applied")
}
