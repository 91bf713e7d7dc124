package service_test

import (
	"context"
	"errors"
	"testing"

	"github.com/shopspring/decimal"

	"github.com/fundshare/exchange-backend/internal/apperrors"
	"github.com/fundshare/exchange-backend/internal/testutil"
)

// TestDistributionService_Payouts tests payout edge cases the happy path
// does not cover: rounding, wallet-less holders and zero-amount holders.
//
// WHY: The per-share rate rarely divides evenly. Rounding and skip rules
// decide who gets what cent, and a skipped holder must never block the rest.
func TestDistributionService_Payouts(t *testing.T) {
	t.Run("rounds each payout to cents", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		snapshots := testutil.NewTestSnapshotService(t, db)

		// 1000 over 3000 shares is 0.33333333/share; 1000 held shares pay
		// 333.33.
		account := testutil.NewTradingAccount().WithShares(3000).Build(t, db)
		testutil.NewEAClosedTrade(account.ID, "T-101", "1000").ClosedAt(snapshotDate).Build(t, db)

		holder := testutil.MakeID()
		testutil.NewPosition(holder, account.ID, 1000).Build(t, db)
		testutil.NewWallet(holder).Build(t, db)

		if _, err := snapshots.CreateDailySnapshots(context.Background(), snapshotDate); err != nil {
			t.Fatalf("CreateDailySnapshots() returned unexpected error: %v", err)
		}

		wallets := testutil.NewTestWalletService(t, db)
		wallet, err := wallets.GetBalance(context.Background(), holder)
		if err != nil {
			t.Fatalf("GetBalance() returned unexpected error: %v", err)
		}
		if !wallet.Balance.Equal(decimal.RequireFromString("333.33")) {
			t.Errorf("Expected 333.33, got %s", wallet.Balance)
		}
	})

	t.Run("skips holders without a wallet and pays the rest", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		snapshots := testutil.NewTestSnapshotService(t, db)

		account := testutil.NewTradingAccount().Build(t, db)
		testutil.NewEAClosedTrade(account.ID, "T-102", "1000").ClosedAt(snapshotDate).Build(t, db)

		walletless := testutil.MakeID()
		testutil.NewPosition(walletless, account.ID, 500).Build(t, db)

		funded := testutil.MakeID()
		testutil.NewPosition(funded, account.ID, 500).Build(t, db)
		testutil.NewWallet(funded).Build(t, db)

		result, err := snapshots.CreateDailySnapshots(context.Background(), snapshotDate)
		if err != nil {
			t.Fatalf("CreateDailySnapshots() returned unexpected error: %v", err)
		}
		if result.SnapshotsCreated != 1 {
			t.Fatalf("Expected snapshot despite skipped holder, got %d created (%v)",
				result.SnapshotsCreated, result.Errors)
		}
		// Only the funded half is actually paid out.
		if !result.TotalProfitDistributed.Equal(decimal.RequireFromString("500")) {
			t.Errorf("Expected 500 distributed, got %s", result.TotalProfitDistributed)
		}

		wallets := testutil.NewTestWalletService(t, db)
		wallet, err := wallets.GetBalance(context.Background(), funded)
		if err != nil {
			t.Fatalf("GetBalance() returned unexpected error: %v", err)
		}
		if !wallet.Balance.Equal(decimal.RequireFromString("500")) {
			t.Errorf("Expected funded holder paid 500, got %s", wallet.Balance)
		}
	})

	t.Run("a wallet store fault fails the snapshot instead of skipping the holder", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		snapshots := testutil.NewTestSnapshotService(t, db)

		account := testutil.NewTradingAccount().Build(t, db)
		testutil.NewEAClosedTrade(account.ID, "T-103", "1000").ClosedAt(snapshotDate).Build(t, db)

		holder := testutil.MakeID()
		testutil.NewPosition(holder, account.ID, 1000).Build(t, db)
		testutil.NewWallet(holder).WithBalance("250").Build(t, db)

		// The wallet exists, but recording the credit fails mid-payout.
		if _, err := db.Exec("DROP TABLE wallet_transaction"); err != nil {
			t.Fatalf("Failed to drop wallet_transaction: %v", err)
		}

		result, err := snapshots.CreateDailySnapshots(context.Background(), snapshotDate)
		if err != nil {
			t.Fatalf("CreateDailySnapshots() returned unexpected error: %v", err)
		}
		if result.SnapshotsCreated != 0 {
			t.Fatalf("Expected no snapshot after a wallet fault, got %d created", result.SnapshotsCreated)
		}
		if len(result.Errors) != 1 {
			t.Errorf("Expected the fault reported in the batch result, got %v", result.Errors)
		}

		// The rolled-back transaction leaves the balance untouched.
		wallets := testutil.NewTestWalletService(t, db)
		wallet, err := wallets.GetBalance(context.Background(), holder)
		if err != nil {
			t.Fatalf("GetBalance() returned unexpected error: %v", err)
		}
		if !wallet.Balance.Equal(decimal.RequireFromString("250")) {
			t.Errorf("Expected balance untouched at 250, got %s", wallet.Balance)
		}
	})
}

// TestDistributionService_Recalculate tests forced redistribution against an
// existing snapshot.
//
// WHY: Recalculation is the recovery path after a bad distribution. With
// reversal on, re-running against unchanged holdings must be cash-neutral.
func TestDistributionService_Recalculate(t *testing.T) {
	t.Run("reversal plus redistribution is cash neutral for unchanged holdings", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		snapshots := testutil.NewTestSnapshotService(t, db)
		svc := testutil.NewTestDistributionService(t, db)

		account := testutil.NewTradingAccount().WithFeeRate("0.10").Build(t, db)
		testutil.NewEAClosedTrade(account.ID, "T-201", "1000").ClosedAt(snapshotDate).Build(t, db)

		holder := testutil.MakeID()
		testutil.NewPosition(holder, account.ID, 1000).Build(t, db)
		testutil.NewWallet(holder).Build(t, db)

		if _, err := snapshots.CreateDailySnapshots(context.Background(), snapshotDate); err != nil {
			t.Fatalf("CreateDailySnapshots() returned unexpected error: %v", err)
		}

		result, err := svc.Recalculate(context.Background(), account.ID, snapshotDate, true)
		if err != nil {
			t.Fatalf("Recalculate() returned unexpected error: %v", err)
		}

		if !result.Reversed {
			t.Error("Expected result to report the reversal")
		}
		if !result.Old.TotalDistributed.Equal(decimal.RequireFromString("900")) {
			t.Errorf("Expected old distribution 900, got %s", result.Old.TotalDistributed)
		}
		if !result.New.TotalDistributed.Equal(decimal.RequireFromString("900")) {
			t.Errorf("Expected new distribution 900, got %s", result.New.TotalDistributed)
		}
		if !result.Delta.IsZero() {
			t.Errorf("Expected zero delta, got %s", result.Delta)
		}

		wallets := testutil.NewTestWalletService(t, db)
		wallet, err := wallets.GetBalance(context.Background(), holder)
		if err != nil {
			t.Fatalf("GetBalance() returned unexpected error: %v", err)
		}
		if !wallet.Balance.Equal(decimal.RequireFromString("900")) {
			t.Errorf("Expected balance unchanged at 900, got %s", wallet.Balance)
		}

		// The reversal and the re-credit both stay on the books.
		history, err := wallets.GetHistory(context.Background(), holder)
		if err != nil {
			t.Fatalf("GetHistory() returned unexpected error: %v", err)
		}
		if len(history) != 3 {
			t.Errorf("Expected 3 wallet transactions (credit, reversal, credit), got %d", len(history))
		}
	})

	t.Run("reversal works even after the holder spent the payout", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		snapshots := testutil.NewTestSnapshotService(t, db)
		svc := testutil.NewTestDistributionService(t, db)

		account := testutil.NewTradingAccount().Build(t, db)
		testutil.NewEAClosedTrade(account.ID, "T-202", "1000").ClosedAt(snapshotDate).Build(t, db)

		holder := testutil.MakeID()
		testutil.NewPosition(holder, account.ID, 1000).Build(t, db)
		testutil.NewWallet(holder).Build(t, db)

		if _, err := snapshots.CreateDailySnapshots(context.Background(), snapshotDate); err != nil {
			t.Fatalf("CreateDailySnapshots() returned unexpected error: %v", err)
		}

		wallets := testutil.NewTestWalletService(t, db)
		if _, err := wallets.Withdraw(context.Background(), holder, decimal.RequireFromString("1000"), "cash out"); err != nil {
			t.Fatalf("Withdraw() returned unexpected error: %v", err)
		}

		if _, err := svc.Recalculate(context.Background(), account.ID, snapshotDate, true); err != nil {
			t.Fatalf("Recalculate() returned unexpected error: %v", err)
		}

		wallet, err := wallets.GetBalance(context.Background(), holder)
		if err != nil {
			t.Fatalf("GetBalance() returned unexpected error: %v", err)
		}
		if !wallet.Balance.IsZero() {
			t.Errorf("Expected reversal and re-credit to net back to zero, got %s", wallet.Balance)
		}
	})

	t.Run("rejects recalculation for a date with no snapshot", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		svc := testutil.NewTestDistributionService(t, db)
		account := testutil.NewTradingAccount().Build(t, db)

		_, err := svc.Recalculate(context.Background(), account.ID, snapshotDate, true)
		if !errors.Is(err, apperrors.ErrSnapshotNotFound) {
			t.Errorf("Expected ErrSnapshotNotFound, got %v", err)
		}
	})
}

// TestDistributionService_GetUserDistributionHistory tests the per-user
// payout history view.
//
// WHY: Shareholders reconcile their wallet against this history; it must
// show only their own payouts.
func TestDistributionService_GetUserDistributionHistory(t *testing.T) {
	t.Run("returns only the requesting user's payouts", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		snapshots := testutil.NewTestSnapshotService(t, db)
		svc := testutil.NewTestDistributionService(t, db)

		account := testutil.NewTradingAccount().Build(t, db)
		testutil.NewEAClosedTrade(account.ID, "T-301", "1000").ClosedAt(snapshotDate).Build(t, db)

		alice := testutil.MakeID()
		testutil.NewPosition(alice, account.ID, 600).Build(t, db)
		testutil.NewWallet(alice).Build(t, db)

		bob := testutil.MakeID()
		testutil.NewPosition(bob, account.ID, 400).Build(t, db)
		testutil.NewWallet(bob).Build(t, db)

		if _, err := snapshots.CreateDailySnapshots(context.Background(), snapshotDate); err != nil {
			t.Fatalf("CreateDailySnapshots() returned unexpected error: %v", err)
		}

		history, err := svc.GetUserDistributionHistory(context.Background(), alice, "")
		if err != nil {
			t.Fatalf("GetUserDistributionHistory() returned unexpected error: %v", err)
		}
		if len(history) != 1 {
			t.Fatalf("Expected 1 payout, got %d", len(history))
		}
		if history[0].UserID != alice {
			t.Errorf("Expected payout for the requesting user, got %s", history[0].UserID)
		}
		if !history[0].TotalAmount.Equal(decimal.RequireFromString("600")) {
			t.Errorf("Expected 600 for 600 of 1000 shares, got %s", history[0].TotalAmount)
		}
	})
}
