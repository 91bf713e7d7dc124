package service_test

import (
	"context"
	"errors"
	"testing"

	"github.com/shopspring/decimal"

	"github.com/fundshare/exchange-backend/internal/apperrors"
	"github.com/fundshare/exchange-backend/internal/testutil"
)

// TestPortfolioService_UpdateOnBuy tests position accounting for buys.
//
// WHY: The average buy price is a user's cost basis; it must fold every
// fill in quantity-weighted, from the very first buy onwards.
func TestPortfolioService_UpdateOnBuy(t *testing.T) {
	t.Run("first buy creates the position at the fill price", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		svc := testutil.NewTestPortfolioService(t, db)
		account := testutil.NewTradingAccount().Build(t, db)
		userID := testutil.MakeID()

		err := svc.UpdateOnBuy(context.Background(), nil, userID, account.ID, 100, decimal.RequireFromString("10"))
		if err != nil {
			t.Fatalf("UpdateOnBuy() returned unexpected error: %v", err)
		}

		position, err := svc.GetPosition(context.Background(), userID, account.ID)
		if err != nil {
			t.Fatalf("GetPosition() returned unexpected error: %v", err)
		}
		if position.Quantity != 100 {
			t.Errorf("Expected 100 shares, got %d", position.Quantity)
		}
		if !position.AverageBuyPrice.Equal(decimal.RequireFromString("10")) {
			t.Errorf("Expected average buy price 10, got %s", position.AverageBuyPrice)
		}
	})

	t.Run("subsequent buys fold into a weighted average", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		svc := testutil.NewTestPortfolioService(t, db)
		account := testutil.NewTradingAccount().Build(t, db)
		userID := testutil.MakeID()

		// 100 @ 10 then 50 @ 13 averages to 11.
		if err := svc.UpdateOnBuy(context.Background(), nil, userID, account.ID, 100, decimal.RequireFromString("10")); err != nil {
			t.Fatalf("UpdateOnBuy() returned unexpected error: %v", err)
		}
		if err := svc.UpdateOnBuy(context.Background(), nil, userID, account.ID, 50, decimal.RequireFromString("13")); err != nil {
			t.Fatalf("UpdateOnBuy() returned unexpected error: %v", err)
		}

		position, err := svc.GetPosition(context.Background(), userID, account.ID)
		if err != nil {
			t.Fatalf("GetPosition() returned unexpected error: %v", err)
		}
		if position.Quantity != 150 {
			t.Errorf("Expected 150 shares, got %d", position.Quantity)
		}
		if !position.AverageBuyPrice.Equal(decimal.RequireFromString("11")) {
			t.Errorf("Expected weighted average 11, got %s", position.AverageBuyPrice)
		}
	})

	t.Run("rejects non-positive quantities", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		svc := testutil.NewTestPortfolioService(t, db)
		account := testutil.NewTradingAccount().Build(t, db)

		err := svc.UpdateOnBuy(context.Background(), nil, testutil.MakeID(), account.ID, 0, decimal.RequireFromString("10"))
		if !errors.Is(err, apperrors.ErrInvalidQuantity) {
			t.Errorf("Expected ErrInvalidQuantity, got %v", err)
		}
	})
}

// TestPortfolioService_UpdateOnSell tests position accounting for sells.
//
// WHY: Sells must never drive a position negative, and selling out
// completely keeps the row so the cost-basis history is not lost.
func TestPortfolioService_UpdateOnSell(t *testing.T) {
	t.Run("decrements quantity and keeps the average", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		svc := testutil.NewTestPortfolioService(t, db)
		account := testutil.NewTradingAccount().Build(t, db)

		userID := testutil.MakeID()
		testutil.NewPosition(userID, account.ID, 100).WithAverageBuyPrice("12").Build(t, db)

		if err := svc.UpdateOnSell(context.Background(), nil, userID, account.ID, 40); err != nil {
			t.Fatalf("UpdateOnSell() returned unexpected error: %v", err)
		}

		position, err := svc.GetPosition(context.Background(), userID, account.ID)
		if err != nil {
			t.Fatalf("GetPosition() returned unexpected error: %v", err)
		}
		if position.Quantity != 60 {
			t.Errorf("Expected 60 shares, got %d", position.Quantity)
		}
		if !position.AverageBuyPrice.Equal(decimal.RequireFromString("12")) {
			t.Errorf("Expected average unchanged at 12, got %s", position.AverageBuyPrice)
		}
	})

	t.Run("selling out keeps a zero-quantity row", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		svc := testutil.NewTestPortfolioService(t, db)
		account := testutil.NewTradingAccount().Build(t, db)

		userID := testutil.MakeID()
		testutil.NewPosition(userID, account.ID, 100).Build(t, db)

		if err := svc.UpdateOnSell(context.Background(), nil, userID, account.ID, 100); err != nil {
			t.Fatalf("UpdateOnSell() returned unexpected error: %v", err)
		}

		position, err := svc.GetPosition(context.Background(), userID, account.ID)
		if err != nil {
			t.Fatalf("GetPosition() returned unexpected error: %v", err)
		}
		if position.Quantity != 0 {
			t.Errorf("Expected zero-quantity row to remain, got %d", position.Quantity)
		}
	})

	t.Run("rejects selling more than held", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		svc := testutil.NewTestPortfolioService(t, db)
		account := testutil.NewTradingAccount().Build(t, db)

		userID := testutil.MakeID()
		testutil.NewPosition(userID, account.ID, 10).Build(t, db)

		err := svc.UpdateOnSell(context.Background(), nil, userID, account.ID, 11)
		if !errors.Is(err, apperrors.ErrInsufficientShares) {
			t.Errorf("Expected ErrInsufficientShares, got %v", err)
		}
	})

	t.Run("selling with no position yields not found", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		svc := testutil.NewTestPortfolioService(t, db)
		account := testutil.NewTradingAccount().Build(t, db)

		err := svc.UpdateOnSell(context.Background(), nil, testutil.MakeID(), account.ID, 1)
		if !errors.Is(err, apperrors.ErrPortfolioNotFound) {
			t.Errorf("Expected ErrPortfolioNotFound, got %v", err)
		}
	})
}

// TestPortfolioService_GetUserPortfolio tests the valuation view.
//
// WHY: Unrealized P&L compares cost basis to the fund's live share price;
// a wrong sign here misleads every shareholder.
func TestPortfolioService_GetUserPortfolio(t *testing.T) {
	t.Run("values positions at the current share price", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		svc := testutil.NewTestPortfolioService(t, db)

		// NAV 12000 over 1000 shares prices each at 12.
		account := testutil.NewTradingAccount().WithNav("12000").Build(t, db)

		userID := testutil.MakeID()
		testutil.NewPosition(userID, account.ID, 100).WithAverageBuyPrice("10").Build(t, db)

		items, err := svc.GetUserPortfolio(context.Background(), userID)
		if err != nil {
			t.Fatalf("GetUserPortfolio() returned unexpected error: %v", err)
		}
		if len(items) != 1 {
			t.Fatalf("Expected 1 position, got %d", len(items))
		}

		item := items[0]
		if !item.CurrentSharePrice.Equal(decimal.RequireFromString("12")) {
			t.Errorf("Expected share price 12, got %s", item.CurrentSharePrice)
		}
		if !item.CurrentValue.Equal(decimal.RequireFromString("1200")) {
			t.Errorf("Expected current value 1200, got %s", item.CurrentValue)
		}
		if !item.UnrealizedPL.Equal(decimal.RequireFromString("200")) {
			t.Errorf("Expected unrealized P&L 200, got %s", item.UnrealizedPL)
		}
	})

	t.Run("returns an empty list for a user with no positions", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		svc := testutil.NewTestPortfolioService(t, db)

		items, err := svc.GetUserPortfolio(context.Background(), testutil.MakeID())
		if err != nil {
			t.Fatalf("GetUserPortfolio() returned unexpected error: %v", err)
		}
		if len(items) != 0 {
			t.Errorf("Expected empty portfolio, got %d items", len(items))
		}
	})
}
