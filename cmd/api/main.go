package main

import (
	"log"

	"github.com/jmoiron/sqlx"
	"github.com/joho/godotenv"
	_ "github.com/lib/pq"

	"flakewatch/adapters/postgres"
	"flakewatch/app"
	"flakewatch/domain/core"
	"flakewatch/internal"
	"flakewatch/internal/config"
	"flakewatch/ui"
)

func main() {
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load configuration: %v", err)
	}

	logger := internal.NewDefaultLogger()

	db, err := sqlx.Connect("postgres", cfg.Database.URL)
	if err != nil {
		log.Fatalf("failed to connect to database: %v", err)
	}
	defer db.Close()

	granularity, err := core.ParseGranularity(cfg.Analysis.DefaultGranularity)
	if err != nil {
		log.Fatalf("invalid default granularity: %v", err)
	}

	service := app.NewStabilityService(postgres.NewRunRepository(db), cfg.StabilityConfig(), logger)

	server, err := ui.NewServer(service, ui.Config{
		Port:               cfg.Server.Port,
		DefaultGranularity: granularity,
	}, logger)
	if err != nil {
		log.Fatalf("failed to initialize server: %v", err)
	}

	if err := server.Start(cfg.Server.Port); err != nil {
		log.Fatalf("server failed: %v", err)
	}
}
