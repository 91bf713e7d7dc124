package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/fundshare/exchange-backend/internal/api"
	"github.com/fundshare/exchange-backend/internal/config"
	"github.com/fundshare/exchange-backend/internal/database"
	"github.com/fundshare/exchange-backend/internal/repository"
	"github.com/fundshare/exchange-backend/internal/scheduler"
	"github.com/fundshare/exchange-backend/internal/service"
)

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	// Open database connection
	db, err := database.Open(cfg.Database.Path)
	if err != nil {
		log.Fatalf("Failed to open database: %v", err)
	}
	defer db.Close()

	log.Printf("Connected to database: %s", cfg.Database.Path)

	// Apply pending migrations
	if err := database.Migrate(db); err != nil {
		log.Fatalf("Failed to migrate database: %v", err)
	}

	// Create repositories
	accountRepo := repository.NewAccountRepository(db)
	orderRepo := repository.NewOrderRepository(db)
	tradeRepo := repository.NewTradeRepository(db)
	portfolioRepo := repository.NewPortfolioRepository(db)
	walletRepo := repository.NewWalletRepository(db)
	snapshotRepo := repository.NewSnapshotRepository(db)
	distributionRepo := repository.NewDistributionRepository(db)
	eaRepo := repository.NewEARepository(db)

	// Create services
	leases := service.NewLeaseRegistry()
	walletService := service.NewWalletService(walletRepo)
	portfolioService := service.NewPortfolioService(portfolioRepo, accountRepo)
	exchangeService := service.NewExchangeService(
		db,
		orderRepo,
		tradeRepo,
		accountRepo,
		portfolioRepo,
		walletRepo,
		portfolioService,
		walletService,
		leases,
		cfg.Exchange.OrderBookDepth,
	)
	distributionService := service.NewDistributionService(
		db,
		distributionRepo,
		portfolioRepo,
		snapshotRepo,
		accountRepo,
		walletService,
	)
	snapshotService := service.NewSnapshotService(
		db,
		accountRepo,
		snapshotRepo,
		eaRepo,
		distributionService,
		leases,
		cfg.Snapshot.MaxConcurrent,
	)
	eaService := service.NewEAService(db, accountRepo, eaRepo)

	// Start the daily snapshot scheduler
	if cfg.Snapshot.Enabled {
		sched, err := scheduler.New(snapshotService, cfg.Snapshot.CronSpec)
		if err != nil {
			log.Fatalf("Failed to create scheduler: %v", err)
		}
		sched.Start()
		defer sched.Stop()
	}

	// Create router
	router := api.NewRouter(db, api.Services{
		Exchange:     exchangeService,
		Portfolio:    portfolioService,
		Wallet:       walletService,
		Distribution: distributionService,
		Snapshot:     snapshotService,
		EA:           eaService,
	}, cfg)

	// Create HTTP server
	server := &http.Server{
		Addr:         cfg.Server.Addr,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Start server in a goroutine
	go func() {
		log.Printf("Starting server on %s", cfg.Server.Addr)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Server failed to start: %v", err)
		}
	}()

	// Wait for interrupt signal for graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Println("Shutting down server...")

	// Graceful shutdown with timeout
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		log.Fatalf("Server forced to shutdown: %v", err)
	}

	log.Println("Server exited")
}
