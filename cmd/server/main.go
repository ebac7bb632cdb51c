package main

import (
	"database/sql"
	"flag"
	"log"
	"net/http"

	httpapi "openchannel-rental-backend/internal/api/http"
	"openchannel-rental-backend/internal/config"
	"openchannel-rental-backend/internal/logger"
	"openchannel-rental-backend/internal/repository/postgres"
	"openchannel-rental-backend/internal/security"
	"openchannel-rental-backend/internal/service"

	_ "github.com/lib/pq"
)

func main() {
	// Parse command-line flags
	configPath := flag.String("config", "config/config.dev.yaml", "Path to configuration file")
	flag.Parse()

	// Load configuration
	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	// Initialize logger
	logger.Initialize(cfg.Log.Level, cfg.Log.Format)
	logger.Info("Starting Open Channel Rental Backend...", "log_level", cfg.Log.Level, "log_format", cfg.Log.Format)
	logger.Info("Server configuration", "address", cfg.GetServerAddress())
	logger.Info("Database configuration", "host", cfg.Database.Host, "port", cfg.Database.Port, "database", cfg.Database.Database, "user", cfg.Database.User)

	// Initialize Database
	db, err := sql.Open("postgres", cfg.GetDatabaseConnectionString())
	if err != nil {
		logger.Error("Failed to connect to database", "error", err)
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer db.Close()

	// Test database connection
	if err := db.Ping(); err != nil {
		logger.Error("Failed to ping database", "error", err)
		log.Fatalf("Failed to ping database: %v", err)
	}
	logger.Info("Database connection established")

	// Initialize Repositories
	store := postgres.NewStore(db)

	// Initialize Security
	tokenManager := security.NewTokenManager(cfg.JWT.Secret, cfg.JWT.AccessTokenExpiry)

	// Initialize Email Service
	emailSvc := service.NewEmailService(
		cfg.Email.APIKey,
		cfg.Email.FromName,
		cfg.Email.FromAddr,
	)

	// Initialize Services
	availCalc := service.NewAvailabilityCalculator(store.ItemRepository, store.InventoryRepository)
	roomSchedule := service.NewRoomSchedule(store.RoomRepository)
	validator := service.NewValidator(availCalc)
	ledger := service.NewQuantityLedger(store.ItemRepository, store.TransactionRepository, validator)

	rentalSvc := service.NewRentalService(
		store,
		store.RequestRepository,
		store.ItemRepository,
		store.TransactionRepository,
		store.RoomRepository,
		store.InventoryRepository,
		ledger,
		availCalc,
		roomSchedule,
		emailSvc,
	)
	availSvc := service.NewAvailabilityService(availCalc)
	scheduleSvc := service.NewRoomScheduleService(roomSchedule, store.RoomRepository)

	// Set up HTTP server
	router := httpapi.NewRouter(tokenManager, rentalSvc, availSvc, scheduleSvc)

	logger.Info("HTTP server listening", "address", cfg.GetServerAddress())
	if err := http.ListenAndServe(cfg.GetServerAddress(), router); err != nil {
		logger.Error("HTTP server error", "error", err)
		log.Fatalf("Failed to serve: %v", err)
	}
}
