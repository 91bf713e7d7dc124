package testutil

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"github.com/fundshare/exchange-backend/internal/model"
	"github.com/fundshare/exchange-backend/internal/repository"
)

// TradingAccountBuilder provides a fluent interface for creating test
// trading accounts.
//
// Example usage:
//
//	// Simple creation with defaults
//	account := testutil.NewTradingAccount().Build(t, db)
//
//	// Customized account
//	account := testutil.NewTradingAccount().
//	    WithName("Alpha Fund").
//	    WithShares(10000).
//	    WithFeeRate("0.10").
//	    Build(t, db)
type TradingAccountBuilder struct {
	ID                string
	Name              string
	InitialCapital    decimal.Decimal
	TotalSharesIssued int64
	CurrentNav        decimal.Decimal
	ManagementFeeRate decimal.Decimal
	IsActive          bool
}

// NewTradingAccount creates a TradingAccountBuilder with sensible defaults:
// 1000 shares over a 10000 NAV, no management fee.
func NewTradingAccount() *TradingAccountBuilder {
	return &TradingAccountBuilder{
		ID:                MakeID(),
		Name:              "Test Fund",
		InitialCapital:    decimal.NewFromInt(10000),
		TotalSharesIssued: 1000,
		CurrentNav:        decimal.NewFromInt(10000),
		ManagementFeeRate: decimal.Zero,
		IsActive:          true,
	}
}

// WithID sets a custom ID.
func (b *TradingAccountBuilder) WithID(id string) *TradingAccountBuilder {
	b.ID = id
	return b
}

// WithName sets a custom name.
func (b *TradingAccountBuilder) WithName(name string) *TradingAccountBuilder {
	b.Name = name
	return b
}

// WithShares sets the total shares issued.
func (b *TradingAccountBuilder) WithShares(shares int64) *TradingAccountBuilder {
	b.TotalSharesIssued = shares
	return b
}

// WithNav sets the current NAV from a decimal string.
func (b *TradingAccountBuilder) WithNav(nav string) *TradingAccountBuilder {
	b.CurrentNav = decimal.RequireFromString(nav)
	return b
}

// WithInitialCapital sets the initial capital from a decimal string.
func (b *TradingAccountBuilder) WithInitialCapital(capital string) *TradingAccountBuilder {
	b.InitialCapital = decimal.RequireFromString(capital)
	return b
}

// WithFeeRate sets the management fee rate from a decimal string.
func (b *TradingAccountBuilder) WithFeeRate(rate string) *TradingAccountBuilder {
	b.ManagementFeeRate = decimal.RequireFromString(rate)
	return b
}

// Inactive marks the account as deactivated.
func (b *TradingAccountBuilder) Inactive() *TradingAccountBuilder {
	b.IsActive = false
	return b
}

// Build creates the trading account in the database and returns it.
func (b *TradingAccountBuilder) Build(t *testing.T, db *sql.DB) model.TradingAccount {
	t.Helper()

	account := model.TradingAccount{
		ID:                b.ID,
		Name:              b.Name,
		InitialCapital:    b.InitialCapital,
		TotalSharesIssued: b.TotalSharesIssued,
		CurrentNav:        b.CurrentNav,
		ManagementFeeRate: b.ManagementFeeRate,
		IsActive:          b.IsActive,
		CreatedAt:         time.Now().UTC(),
		UpdatedAt:         time.Now().UTC(),
	}

	if err := repository.NewAccountRepository(db).InsertAccount(context.Background(), &account); err != nil {
		t.Fatalf("Failed to create test trading account: %v", err)
	}

	return account
}

// WalletBuilder provides a fluent interface for creating test wallets.
type WalletBuilder struct {
	ID      string
	UserID  string
	Balance decimal.Decimal
}

// NewWallet creates a WalletBuilder for the given user with a zero balance.
func NewWallet(userID string) *WalletBuilder {
	return &WalletBuilder{
		ID:      MakeID(),
		UserID:  userID,
		Balance: decimal.Zero,
	}
}

// WithBalance sets the starting balance from a decimal string.
func (b *WalletBuilder) WithBalance(balance string) *WalletBuilder {
	b.Balance = decimal.RequireFromString(balance)
	return b
}

// Build creates the wallet in the database and returns it.
func (b *WalletBuilder) Build(t *testing.T, db *sql.DB) model.Wallet {
	t.Helper()

	wallet := model.Wallet{
		ID:        b.ID,
		UserID:    b.UserID,
		Balance:   b.Balance,
		Currency:  "USD",
		UpdatedAt: time.Now().UTC(),
	}

	if err := repository.NewWalletRepository(db).InsertWallet(context.Background(), &wallet); err != nil {
		t.Fatalf("Failed to create test wallet: %v", err)
	}

	return wallet
}

// PositionBuilder provides a fluent interface for creating test share
// positions.
type PositionBuilder struct {
	ID               string
	UserID           string
	TradingAccountID string
	Quantity         int64
	AverageBuyPrice  decimal.Decimal
}

// NewPosition creates a PositionBuilder for the given holder.
func NewPosition(userID, accountID string, quantity int64) *PositionBuilder {
	return &PositionBuilder{
		ID:               MakeID(),
		UserID:           userID,
		TradingAccountID: accountID,
		Quantity:         quantity,
		AverageBuyPrice:  decimal.NewFromInt(10),
	}
}

// WithAverageBuyPrice sets the average buy price from a decimal string.
func (b *PositionBuilder) WithAverageBuyPrice(price string) *PositionBuilder {
	b.AverageBuyPrice = decimal.RequireFromString(price)
	return b
}

// Build creates the position in the database and returns it.
func (b *PositionBuilder) Build(t *testing.T, db *sql.DB) model.SharePortfolio {
	t.Helper()

	position := model.SharePortfolio{
		ID:               b.ID,
		UserID:           b.UserID,
		TradingAccountID: b.TradingAccountID,
		Quantity:         b.Quantity,
		AverageBuyPrice:  b.AverageBuyPrice,
		LastUpdatedAt:    time.Now().UTC(),
	}

	if err := repository.NewPortfolioRepository(db).InsertPosition(context.Background(), &position); err != nil {
		t.Fatalf("Failed to create test position: %v", err)
	}

	return position
}

// OrderBuilder provides a fluent interface for creating resting test orders.
type OrderBuilder struct {
	ID               string
	UserID           string
	TradingAccountID string
	Side             string
	Quantity         int64
	LimitPrice       decimal.Decimal
	CreatedAt        time.Time
}

// NewRestingOrder creates an OrderBuilder for an open limit order.
func NewRestingOrder(userID, accountID, side string, quantity int64, price string) *OrderBuilder {
	return &OrderBuilder{
		ID:               MakeID(),
		UserID:           userID,
		TradingAccountID: accountID,
		Side:             side,
		Quantity:         quantity,
		LimitPrice:       decimal.RequireFromString(price),
		CreatedAt:        time.Now().UTC(),
	}
}

// CreatedBefore backdates the order, used to exercise time priority.
func (b *OrderBuilder) CreatedBefore(d time.Duration) *OrderBuilder {
	b.CreatedAt = b.CreatedAt.Add(-d)
	return b
}

// Build creates the order in the database and returns it.
func (b *OrderBuilder) Build(t *testing.T, db *sql.DB) model.ShareOrder {
	t.Helper()

	price := b.LimitPrice
	order := model.ShareOrder{
		ID:               b.ID,
		UserID:           b.UserID,
		TradingAccountID: b.TradingAccountID,
		Side:             b.Side,
		Type:             model.OrderTypeLimit,
		QuantityOrdered:  b.Quantity,
		LimitPrice:       &price,
		Status:           model.OrderStatusOpen,
		CreatedAt:        b.CreatedAt,
		UpdatedAt:        b.CreatedAt,
	}

	if err := repository.NewOrderRepository(db).InsertOrder(context.Background(), &order); err != nil {
		t.Fatalf("Failed to create test order: %v", err)
	}

	return order
}

// EAClosedTradeBuilder provides a fluent interface for creating test EA
// closed trades.
type EAClosedTradeBuilder struct {
	ID               string
	TradingAccountID string
	EATicketID       string
	RealizedPL       decimal.Decimal
	CloseTime        time.Time
}

// NewEAClosedTrade creates an EAClosedTradeBuilder with CloseTime now.
func NewEAClosedTrade(accountID, ticketID, realizedPL string) *EAClosedTradeBuilder {
	return &EAClosedTradeBuilder{
		ID:               MakeID(),
		TradingAccountID: accountID,
		EATicketID:       ticketID,
		RealizedPL:       decimal.RequireFromString(realizedPL),
		CloseTime:        time.Now().UTC(),
	}
}

// ClosedAt sets the close time.
func (b *EAClosedTradeBuilder) ClosedAt(at time.Time) *EAClosedTradeBuilder {
	b.CloseTime = at
	return b
}

// Build creates the closed trade in the database and returns it.
func (b *EAClosedTradeBuilder) Build(t *testing.T, db *sql.DB) model.EAClosedTrade {
	t.Helper()

	trade := model.EAClosedTrade{
		ID:               b.ID,
		TradingAccountID: b.TradingAccountID,
		EATicketID:       b.EATicketID,
		RealizedPL:       b.RealizedPL,
		CloseTime:        b.CloseTime,
	}

	if err := repository.NewEARepository(db).InsertClosedTrade(context.Background(), &trade); err != nil {
		t.Fatalf("Failed to create test EA closed trade: %v", err)
	}

	return trade
}
