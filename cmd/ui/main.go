package main

import (
	"fmt"
	"net/http"
	"os"

	"go.uber.org/zap"

	"agent-arena-go/internal/config"
	"agent-arena-go/internal/database"
	"agent-arena-go/internal/logger"
)

func main() {
	cfg, err := config.LoadConfig("./configs")
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	log, err := logger.NewLogger(cfg.Logger.Level, cfg.Logger.Format)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer log.Sync()

	db, err := database.NewDatabase(cfg.Database.DSN)
	if err != nil {
		log.Fatal("Failed to connect to database", zap.Error(err))
	}

	mux := http.NewServeMux()

	apiHandler := NewAPIHandler(log, db)
	mux.HandleFunc("/api/status", apiHandler.StatusHandler)
	mux.HandleFunc("/api/trades", apiHandler.TradesHandler)
	mux.HandleFunc("/api/performance", apiHandler.PerformanceHandler)

	addr := fmt.Sprintf(":%d", cfg.Server.Port)
	log.Info("Starting report server", zap.String("address", addr))

	if err := http.ListenAndServe(addr, mux); err != nil {
		log.Fatal("Report server failed", zap.Error(err))
	}
}
