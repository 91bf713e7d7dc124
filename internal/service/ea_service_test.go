package service_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"github.com/fundshare/exchange-backend/internal/apperrors"
	"github.com/fundshare/exchange-backend/internal/repository"
	"github.com/fundshare/exchange-backend/internal/service"
	"github.com/fundshare/exchange-backend/internal/testutil"
)

// TestEAService_PushNavUpdate tests NAV push ingestion from the trading
// robots.
//
// WHY: Robots retry pushes on flaky links, so the same payload can arrive
// twice. Replaying a push must converge to the same state, never double
// count a closed trade.
func TestEAService_PushNavUpdate(t *testing.T) {
	t.Run("updates NAV and records closed trades and open positions", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		svc := testutil.NewTestEAService(t, db)
		account := testutil.NewTradingAccount().Build(t, db)

		result, err := svc.PushNavUpdate(context.Background(), service.EANavUpdateInput{
			TradingAccountID: account.ID,
			CurrentNav:       decimal.RequireFromString("10750"),
			ClosedTrades: []service.EAClosedTradeInput{
				{EATicketID: "MT-9001", RealizedPL: decimal.RequireFromString("500"), CloseTime: snapshotDate},
			},
			OpenPositions: []service.EAOpenPositionInput{
				{EATicketID: "MT-9002", FloatingPL: decimal.RequireFromString("250")},
			},
		})
		if err != nil {
			t.Fatalf("PushNavUpdate() returned unexpected error: %v", err)
		}
		if result.ClosedTradesSeen != 1 || result.OpenPositions != 1 {
			t.Errorf("Expected 1 closed trade and 1 open position, got %d and %d",
				result.ClosedTradesSeen, result.OpenPositions)
		}

		updated, err := repository.NewAccountRepository(db).GetAccount(context.Background(), account.ID)
		if err != nil {
			t.Fatalf("GetAccount() returned unexpected error: %v", err)
		}
		if !updated.CurrentNav.Equal(decimal.RequireFromString("10750")) {
			t.Errorf("Expected NAV 10750, got %s", updated.CurrentNav)
		}

		floating, err := repository.NewEARepository(db).SumFloatingPL(context.Background(), account.ID)
		if err != nil {
			t.Fatalf("SumFloatingPL() returned unexpected error: %v", err)
		}
		if !floating.Equal(decimal.RequireFromString("250")) {
			t.Errorf("Expected floating P&L 250, got %s", floating)
		}
	})

	t.Run("replaying a push is idempotent", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		svc := testutil.NewTestEAService(t, db)
		account := testutil.NewTradingAccount().Build(t, db)

		push := service.EANavUpdateInput{
			TradingAccountID: account.ID,
			CurrentNav:       decimal.RequireFromString("10500"),
			ClosedTrades: []service.EAClosedTradeInput{
				{EATicketID: "MT-9101", RealizedPL: decimal.RequireFromString("500"), CloseTime: snapshotDate},
			},
			OpenPositions: []service.EAOpenPositionInput{
				{EATicketID: "MT-9102", FloatingPL: decimal.RequireFromString("100")},
			},
		}

		for i := 0; i < 2; i++ {
			if _, err := svc.PushNavUpdate(context.Background(), push); err != nil {
				t.Fatalf("PushNavUpdate() returned unexpected error on push %d: %v", i+1, err)
			}
		}

		trades, err := repository.NewEARepository(db).GetUnprocessedClosedTrades(context.Background(), account.ID, snapshotDate)
		if err != nil {
			t.Fatalf("GetUnprocessedClosedTrades() returned unexpected error: %v", err)
		}
		if len(trades) != 1 {
			t.Errorf("Expected the replayed ticket recorded once, got %d trades", len(trades))
		}

		floating, err := repository.NewEARepository(db).SumFloatingPL(context.Background(), account.ID)
		if err != nil {
			t.Fatalf("SumFloatingPL() returned unexpected error: %v", err)
		}
		if !floating.Equal(decimal.RequireFromString("100")) {
			t.Errorf("Expected floating P&L 100 after replay, got %s", floating)
		}
	})

	t.Run("a push replaces the open position set", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		svc := testutil.NewTestEAService(t, db)
		account := testutil.NewTradingAccount().Build(t, db)

		first := service.EANavUpdateInput{
			TradingAccountID: account.ID,
			CurrentNav:       decimal.RequireFromString("10000"),
			OpenPositions: []service.EAOpenPositionInput{
				{EATicketID: "MT-9201", FloatingPL: decimal.RequireFromString("50")},
				{EATicketID: "MT-9202", FloatingPL: decimal.RequireFromString("75")},
			},
		}
		if _, err := svc.PushNavUpdate(context.Background(), first); err != nil {
			t.Fatalf("PushNavUpdate() returned unexpected error: %v", err)
		}

		// 9201 closed since the last push; only 9202 remains open, at a new
		// floating value.
		second := service.EANavUpdateInput{
			TradingAccountID: account.ID,
			CurrentNav:       decimal.RequireFromString("10050"),
			ClosedTrades: []service.EAClosedTradeInput{
				{EATicketID: "MT-9201", RealizedPL: decimal.RequireFromString("60"), CloseTime: time.Now().UTC()},
			},
			OpenPositions: []service.EAOpenPositionInput{
				{EATicketID: "MT-9202", FloatingPL: decimal.RequireFromString("-20")},
			},
		}
		if _, err := svc.PushNavUpdate(context.Background(), second); err != nil {
			t.Fatalf("PushNavUpdate() returned unexpected error: %v", err)
		}

		floating, err := repository.NewEARepository(db).SumFloatingPL(context.Background(), account.ID)
		if err != nil {
			t.Fatalf("SumFloatingPL() returned unexpected error: %v", err)
		}
		if !floating.Equal(decimal.RequireFromString("-20")) {
			t.Errorf("Expected only the surviving position's -20, got %s", floating)
		}
	})

	t.Run("rejects a negative NAV", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		svc := testutil.NewTestEAService(t, db)
		account := testutil.NewTradingAccount().Build(t, db)

		_, err := svc.PushNavUpdate(context.Background(), service.EANavUpdateInput{
			TradingAccountID: account.ID,
			CurrentNav:       decimal.RequireFromString("-1"),
		})
		if !errors.Is(err, apperrors.ErrInvalidAmount) {
			t.Errorf("Expected ErrInvalidAmount, got %v", err)
		}
	})

	t.Run("rejects an unknown account", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		svc := testutil.NewTestEAService(t, db)

		_, err := svc.PushNavUpdate(context.Background(), service.EANavUpdateInput{
			TradingAccountID: testutil.MakeID(),
			CurrentNav:       decimal.RequireFromString("10000"),
		})
		if !errors.Is(err, apperrors.ErrAccountNotFound) {
			t.Errorf("Expected ErrAccountNotFound, got %v", err)
		}
	})
}

// TestEAService_PushClosedTrades tests the standalone closed-trade feed used
// by robots that report fills as they happen.
//
// WHY: A closed trade recorded outside the NAV push must still feed the next
// snapshot exactly once, and retrying a failed push must not double count.
func TestEAService_PushClosedTrades(t *testing.T) {
	t.Run("records trades without touching NAV or open positions", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		svc := testutil.NewTestEAService(t, db)
		account := testutil.NewTradingAccount().WithNav("10000").Build(t, db)

		result, err := svc.PushClosedTrades(context.Background(), account.ID, []service.EAClosedTradeInput{
			{EATicketID: "MT-9301", RealizedPL: decimal.RequireFromString("200"), CloseTime: snapshotDate},
			{EATicketID: "MT-9302", RealizedPL: decimal.RequireFromString("-50"), CloseTime: snapshotDate},
		})
		if err != nil {
			t.Fatalf("PushClosedTrades() returned unexpected error: %v", err)
		}
		if result.ClosedTradesSeen != 2 {
			t.Errorf("Expected 2 closed trades seen, got %d", result.ClosedTradesSeen)
		}

		trades, err := repository.NewEARepository(db).GetUnprocessedClosedTrades(context.Background(), account.ID, snapshotDate)
		if err != nil {
			t.Fatalf("GetUnprocessedClosedTrades() returned unexpected error: %v", err)
		}
		if len(trades) != 2 {
			t.Errorf("Expected 2 recorded trades, got %d", len(trades))
		}

		updated, err := repository.NewAccountRepository(db).GetAccount(context.Background(), account.ID)
		if err != nil {
			t.Fatalf("GetAccount() returned unexpected error: %v", err)
		}
		if !updated.CurrentNav.Equal(decimal.RequireFromString("10000")) {
			t.Errorf("Expected NAV untouched at 10000, got %s", updated.CurrentNav)
		}
	})

	t.Run("retrying a push is idempotent", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		svc := testutil.NewTestEAService(t, db)
		account := testutil.NewTradingAccount().Build(t, db)

		push := []service.EAClosedTradeInput{
			{EATicketID: "MT-9401", RealizedPL: decimal.RequireFromString("120"), CloseTime: snapshotDate},
		}
		for i := 0; i < 2; i++ {
			if _, err := svc.PushClosedTrades(context.Background(), account.ID, push); err != nil {
				t.Fatalf("PushClosedTrades() returned unexpected error on push %d: %v", i+1, err)
			}
		}

		trades, err := repository.NewEARepository(db).GetUnprocessedClosedTrades(context.Background(), account.ID, snapshotDate)
		if err != nil {
			t.Fatalf("GetUnprocessedClosedTrades() returned unexpected error: %v", err)
		}
		if len(trades) != 1 {
			t.Errorf("Expected the retried ticket recorded once, got %d trades", len(trades))
		}
	})

	t.Run("rejects an unknown account", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		svc := testutil.NewTestEAService(t, db)

		_, err := svc.PushClosedTrades(context.Background(), testutil.MakeID(), []service.EAClosedTradeInput{
			{EATicketID: "MT-9501", RealizedPL: decimal.RequireFromString("10"), CloseTime: snapshotDate},
		})
		if !errors.Is(err, apperrors.ErrAccountNotFound) {
			t.Errorf("Expected ErrAccountNotFound, got %v", err)
		}
	})
}
