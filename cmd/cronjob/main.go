package main

import (
	"database/sql"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"

	_ "github.com/lib/pq"

	"openchannel-rental-backend/internal/config"
	"openchannel-rental-backend/internal/jobs"
	"openchannel-rental-backend/internal/logger"
	"openchannel-rental-backend/internal/repository/postgres"
	"openchannel-rental-backend/internal/scheduler"
	"openchannel-rental-backend/internal/service"
)

func main() {
	// Parse command-line flags
	configPath := flag.String("config", "config/config.dev.yaml", "Path to configuration file")
	runOnce := flag.String("run-once", "", "Run a specific job once and exit (e.g., 'expire-room-rentals', 'all')")
	flag.Parse()

	// Load configuration
	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	// Initialize logger
	logger.Initialize(cfg.Log.Level, cfg.Log.Format)
	logger.Info("Starting Rental Cronjob Runner...", "log_level", cfg.Log.Level)

	// Initialize Database
	logger.Info("Connecting to database...", "host", cfg.Database.Host, "port", cfg.Database.Port)
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

	// Initialize Services
	emailSvc := service.NewEmailService(
		cfg.Email.APIKey,
		cfg.Email.FromName,
		cfg.Email.FromAddr,
	)

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

	jobServices := &jobs.Services{
		Rental: rentalSvc,
	}

	// Initialize Job Runner
	jobRunner := jobs.NewJobRunner(db, jobServices, cfg)

	// Check if running a single job
	if *runOnce != "" {
		logger.Info("Running job once", "job", *runOnce)
		runJobOnce(jobRunner, *runOnce)
		logger.Info("Job execution completed", "job", *runOnce)
		return
	}

	// Initialize Scheduler
	cronScheduler := scheduler.NewScheduler(jobRunner)

	// Start scheduler
	cronScheduler.Start()
	logger.Info("Cronjob scheduler is running. Press Ctrl+C to stop.")

	// Wait for interrupt signal
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	<-sigChan

	// Graceful shutdown
	logger.Info("Shutting down cronjob scheduler...")
	cronScheduler.Stop()
	logger.Info("Cronjob scheduler stopped. Goodbye!")
}

// runJobOnce runs a specific job once and exits
func runJobOnce(jobRunner *jobs.JobRunner, jobName string) {
	switch jobName {
	case "expire-room-rentals":
		jobRunner.ExpireRoomRentals()
	case "refresh-inventory-counters":
		jobRunner.RefreshInventoryCounters()
	case "all":
		jobRunner.RunAllJobs()
	default:
		logger.Error("Unknown job name", "job", jobName)
		fmt.Printf("Available jobs:\n")
		fmt.Printf("  - expire-room-rentals\n")
		fmt.Printf("  - refresh-inventory-counters\n")
		fmt.Printf("  - all\n")
		os.Exit(1)
	}
}
