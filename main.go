package main

import (
	"github.com/abel198523/Edel-bingo-30/config"
	"github.com/abel198523/Edel-bingo-30/logger"
	"github.com/abel198523/Edel-bingo-30/monitor"
	"github.com/abel198523/Edel-bingo-30/persistence"
	"github.com/abel198523/Edel-bingo-30/server"
)

func main() {
	// Initialize logger
	logger.Init()

	// Load configuration
	cfg, err := config.LoadConfig(".")
	if err != nil {
		logger.Log.Fatalf("Failed to load configuration: %v", err)
	}

	// Initialize Database
	var db persistence.Database
	switch cfg.Database.Driver {
	case "sql":
		db, err = persistence.NewPostgreSQL(
			cfg.Database.Postgres.Host,
			cfg.Database.Postgres.Port,
			cfg.Database.Postgres.User,
			cfg.Database.Postgres.Password,
			cfg.Database.Postgres.DBName,
		)
	default:
		db, err = persistence.NewGormPostgreSQL(
			cfg.Database.Postgres.Host,
			cfg.Database.Postgres.Port,
			cfg.Database.Postgres.User,
			cfg.Database.Postgres.Password,
			cfg.Database.Postgres.DBName,
		)
	}
	if err != nil {
		logger.Log.Fatalf("Failed to connect to database: %v", err)
	}
	logger.Log.Info("Database connection successful.")

	// Initialize Monitoring
	mon := monitor.NewMonitor("bingo")
	mon.StartServer(cfg.Server.MetricsAddress)

	// Initialize Game Server
	gameServer := server.NewGameServer(cfg, db, mon)

	// Start Server
	logger.Log.Infof("Starting bingo server on %s", cfg.Server.HTTPAddress)
	if err := gameServer.Start(); err != nil {
		logger.Log.Fatalf("Failed to start server: %v", err)
	}
}
