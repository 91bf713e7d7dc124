package testutil

import (
	"database/sql"
	"testing"

	"github.com/google/uuid"

	"github.com/fundshare/exchange-backend/internal/repository"
	"github.com/fundshare/exchange-backend/internal/service"
)

// MakeID returns a fresh UUID string.
func MakeID() string {
	return uuid.New().String()
}

// NewTestWalletService wires a WalletService against the test database.
func NewTestWalletService(t *testing.T, db *sql.DB) *service.WalletService {
	t.Helper()

	return service.NewWalletService(repository.NewWalletRepository(db))
}

// NewTestPortfolioService wires a PortfolioService against the test database.
func NewTestPortfolioService(t *testing.T, db *sql.DB) *service.PortfolioService {
	t.Helper()

	return service.NewPortfolioService(
		repository.NewPortfolioRepository(db),
		repository.NewAccountRepository(db),
	)
}

// NewTestExchangeService wires an ExchangeService against the test database.
func NewTestExchangeService(t *testing.T, db *sql.DB) *service.ExchangeService {
	t.Helper()

	return service.NewExchangeService(
		db,
		repository.NewOrderRepository(db),
		repository.NewTradeRepository(db),
		repository.NewAccountRepository(db),
		repository.NewPortfolioRepository(db),
		repository.NewWalletRepository(db),
		NewTestPortfolioService(t, db),
		NewTestWalletService(t, db),
		service.NewLeaseRegistry(),
		20,
	)
}

// NewTestDistributionService wires a DistributionService against the test database.
func NewTestDistributionService(t *testing.T, db *sql.DB) *service.DistributionService {
	t.Helper()

	return service.NewDistributionService(
		db,
		repository.NewDistributionRepository(db),
		repository.NewPortfolioRepository(db),
		repository.NewSnapshotRepository(db),
		repository.NewAccountRepository(db),
		NewTestWalletService(t, db),
	)
}

// NewTestSnapshotService wires a SnapshotService against the test database.
func NewTestSnapshotService(t *testing.T, db *sql.DB) *service.SnapshotService {
	t.Helper()

	return service.NewSnapshotService(
		db,
		repository.NewAccountRepository(db),
		repository.NewSnapshotRepository(db),
		repository.NewEARepository(db),
		NewTestDistributionService(t, db),
		service.NewLeaseRegistry(),
		1,
	)
}

// NewTestEAService wires an EAService against the test database.
func NewTestEAService(t *testing.T, db *sql.DB) *service.EAService {
	t.Helper()

	return service.NewEAService(
		db,
		repository.NewAccountRepository(db),
		repository.NewEARepository(db),
	)
}
