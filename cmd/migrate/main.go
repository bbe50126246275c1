package main

import (
	"context"
	"flag"
	"log"
	"time"

	"go.uber.org/zap"

	"proficiency-scoring/internal/config"
	"proficiency-scoring/internal/database"
	"proficiency-scoring/internal/logger"
)

func main() {
	direction := flag.String("direction", "up", "migration direction: up or down")
	timeout := flag.Duration("timeout", 5*time.Minute, "overall migration timeout")
	flag.Parse()

	dir := database.Direction(*direction)
	if dir != database.Up && dir != database.Down {
		log.Fatalf("Unknown migration direction %q, expected up or down", *direction)
	}

	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	if err := logger.Initialize(cfg.Logger); err != nil {
		log.Fatalf("Failed to initialize logger: %v", err)
	}
	l := logger.Get()
	defer logger.Sync()

	db, err := database.NewSQLXOracleDB(cfg)
	if err != nil {
		l.Fatal("Failed to connect to database", zap.Error(err))
	}
	defer db.Close()

	ctx, cancel := context.WithTimeout(context.Background(), *timeout)
	defer cancel()

	exec := func(ctx context.Context, stmt string) error {
		_, err := db.ExecContext(ctx, stmt)
		return err
	}
	if err := database.RunMigrations(ctx, exec, dir); err != nil {
		l.Fatal("Failed to run migrations", zap.Error(err))
	}
}
