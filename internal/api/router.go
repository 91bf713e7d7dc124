package api

import (
	"database/sql"
	"log"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/fundshare/exchange-backend/internal/api/handlers"
	custommiddleware "github.com/fundshare/exchange-backend/internal/api/middleware"
	"github.com/fundshare/exchange-backend/internal/config"
	"github.com/fundshare/exchange-backend/internal/service"
)

// Services bundles the service dependencies the router wires into handlers.
type Services struct {
	Exchange     *service.ExchangeService
	Portfolio    *service.PortfolioService
	Wallet       *service.WalletService
	Distribution *service.DistributionService
	Snapshot     *service.SnapshotService
	EA           *service.EAService
}

// NewRouter creates and configures the HTTP router
func NewRouter(db *sql.DB, svc Services, cfg *config.Config) http.Handler {
	r := chi.NewRouter()

	// Global middleware
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(custommiddleware.Logger)
	r.Use(middleware.Recoverer)

	// CORS middleware
	corsMiddleware := custommiddleware.NewCORS(cfg.CORS.AllowedOrigins)
	r.Use(corsMiddleware.Handler)

	// API routes
	r.Route("/api", func(r chi.Router) {
		// System namespace
		r.Route("/system", func(r chi.Router) {
			systemHandler := handlers.NewSystemHandler(db)
			r.Get("/health", systemHandler.Health)
			r.Get("/version", systemHandler.Version)
		})

		// Exchange namespace: order placement, cancellation, trades, book
		r.Route("/exchange", func(r chi.Router) {
			exchangeHandler := handlers.NewExchangeHandler(svc.Exchange)

			r.Group(func(r chi.Router) {
				r.Use(custommiddleware.Identity)
				r.Post("/orders", exchangeHandler.PlaceOrder)
				r.Get("/orders", exchangeHandler.MyOrders)
				r.Get("/trades", exchangeHandler.MyTrades)

				r.Route("/orders/{uuid}", func(r chi.Router) {
					r.Use(custommiddleware.ValidateUUIDMiddleware)
					r.Delete("/", exchangeHandler.CancelOrder)
				})
			})

			r.Route("/accounts/{uuid}/book", func(r chi.Router) {
				r.Use(custommiddleware.ValidateUUIDMiddleware)
				r.Get("/", exchangeHandler.OrderBook)
			})
		})

		// Portfolio namespace
		r.Route("/portfolio", func(r chi.Router) {
			portfolioHandler := handlers.NewPortfolioHandler(svc.Portfolio)
			r.Use(custommiddleware.Identity)
			r.Get("/", portfolioHandler.MyPortfolio)
		})

		// Wallet namespace
		r.Route("/wallet", func(r chi.Router) {
			walletHandler := handlers.NewWalletHandler(svc.Wallet)
			r.Use(custommiddleware.Identity)
			r.Get("/", walletHandler.MyWallet)
			r.Get("/transactions", walletHandler.MyTransactions)
			r.Post("/deposit", walletHandler.Deposit)
			r.Post("/withdraw", walletHandler.Withdraw)
		})

		// Distribution namespace
		r.Route("/distributions", func(r chi.Router) {
			distributionHandler := handlers.NewDistributionHandler(svc.Distribution)
			r.Use(custommiddleware.Identity)
			r.Get("/", distributionHandler.MyDistributions)
		})

		// Admin namespace, guarded by the internal API key
		r.Route("/admin", func(r chi.Router) {
			snapshotHandler := handlers.NewSnapshotHandler(svc.Snapshot, svc.Distribution)
			r.Use(custommiddleware.APIKeyMiddleware)
			r.Post("/snapshots/trigger", snapshotHandler.TriggerSnapshots)
			r.Post("/distributions/recalculate", snapshotHandler.RecalculateDistribution)

			r.Route("/accounts/{uuid}/snapshots", func(r chi.Router) {
				r.Use(custommiddleware.ValidateUUIDMiddleware)
				r.Get("/", snapshotHandler.AccountSnapshots)
			})
		})

		// EA namespace: robot pushes, guarded by fernet tokens
		r.Route("/ea", func(r chi.Router) {
			if cfg.EA.FernetKey == "" {
				log.Println("EA fernet key not configured; EA endpoints disabled")
				return
			}
			eaToken, err := custommiddleware.NewEAToken(cfg.EA.FernetKey, time.Duration(cfg.EA.TokenTTLSeconds)*time.Second)
			if err != nil {
				log.Printf("Invalid EA fernet key; EA endpoints disabled: %v", err)
				return
			}
			eaHandler := handlers.NewEAHandler(svc.EA)
			r.Use(eaToken.Handler)
			r.Post("/nav", eaHandler.PushNav)
			r.Post("/closed-trades", eaHandler.PushClosedTrades)
		})
	})

	return r
}
