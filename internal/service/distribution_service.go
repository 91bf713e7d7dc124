package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/fundshare/exchange-backend/internal/apperrors"
	"github.com/fundshare/exchange-backend/internal/model"
	"github.com/fundshare/exchange-backend/internal/repository"
)

// DistributionService pays realized profit out to shareholders and, when a
// snapshot is recalculated, claws it back again. Fee and payout rounding is
// two-tier: the per-share rate carries extra precision, each holder's cash
// amount rounds to currency precision.
type DistributionService struct {
	db               *sql.DB
	distributionRepo *repository.DistributionRepository
	portfolioRepo    *repository.PortfolioRepository
	snapshotRepo     *repository.SnapshotRepository
	accountRepo      *repository.AccountRepository
	wallets          *WalletService
}

// NewDistributionService creates a distribution service.
func NewDistributionService(
	db *sql.DB,
	distributionRepo *repository.DistributionRepository,
	portfolioRepo *repository.PortfolioRepository,
	snapshotRepo *repository.SnapshotRepository,
	accountRepo *repository.AccountRepository,
	wallets *WalletService,
) *DistributionService {
	return &DistributionService{
		db:               db,
		distributionRepo: distributionRepo,
		portfolioRepo:    portfolioRepo,
		snapshotRepo:     snapshotRepo,
		accountRepo:      accountRepo,
		wallets:          wallets,
	}
}

// CalculateAndDistribute takes the management fee off realizedPL and pays
// the remainder out to current shareholders pro rata, crediting wallets and
// writing one distribution log per holder. It returns the fee charged, the
// total actually distributed and the number of holders paid.
//
// The fee is charged only on positive P&L. A holder whose rounded payout is
// zero, or who has no wallet, is skipped; the skipped amount is simply not
// distributed.
func (s *DistributionService) CalculateAndDistribute(ctx context.Context, tx *sql.Tx, account model.TradingAccount, realizedPL decimal.Decimal, date time.Time, snapshotID string) (decimal.Decimal, decimal.Decimal, int, error) {
	fee := decimal.Zero
	if realizedPL.IsPositive() && account.ManagementFeeRate.IsPositive() {
		fee = realizedPL.Mul(account.ManagementFeeRate).Round(model.CashPrecision)
	}

	distributable := realizedPL.Sub(fee)
	if distributable.LessThanOrEqual(decimal.Zero) || account.TotalSharesIssued <= 0 {
		return fee, decimal.Zero, 0, nil
	}

	profitPerShare := distributable.DivRound(decimal.NewFromInt(account.TotalSharesIssued), model.SharePricePrecision)

	holders, err := s.portfolioRepo.WithTx(tx).GetShareholders(ctx, account.ID)
	if err != nil {
		return fee, decimal.Zero, 0, err
	}

	total := decimal.Zero
	paid := 0
	now := time.Now().UTC()

	for _, holder := range holders {
		amount := profitPerShare.Mul(decimal.NewFromInt(holder.Quantity)).Round(model.CashPrecision)
		if amount.LessThanOrEqual(decimal.Zero) {
			continue
		}

		referenceID := fmt.Sprintf("SNAP_%s", snapshotID)
		description := fmt.Sprintf("Profit distribution for %s on %s: %d shares @ %s/share",
			account.Name, repository.FormatDate(date), holder.Quantity, profitPerShare.String())

		walletTx, err := s.wallets.Credit(ctx, tx, holder.UserID, amount, model.TxTypeProfitDistributionReceived, referenceID, description)
		if errors.Is(err, apperrors.ErrWalletNotFound) {
			log.Printf("Skipping distribution to user %s on account %s: no wallet", holder.UserID, account.ID)
			continue
		}
		if err != nil {
			return fee, decimal.Zero, 0, err
		}

		logEntry := model.ProfitDistributionLog{
			ID:                  uuid.New().String(),
			SnapshotID:          snapshotID,
			TradingAccountID:    account.ID,
			UserID:              holder.UserID,
			DistributionDate:    date,
			SharesHeld:          holder.Quantity,
			ProfitPerShare:      profitPerShare,
			TotalAmount:         amount,
			WalletTransactionID: walletTx.ID,
			CreatedAt:           now,
		}
		if err := s.distributionRepo.WithTx(tx).InsertLog(ctx, &logEntry); err != nil {
			return fee, decimal.Zero, 0, err
		}

		total = total.Add(amount)
		paid++
	}

	return fee, total, paid, nil
}

// ReverseDistribution undoes every payout recorded against a snapshot: each
// log row is deleted and the holder's wallet debited by the logged amount.
// Reversal debits post even into a negative balance, so a holder who already
// spent the payout still owes it back.
func (s *DistributionService) ReverseDistribution(ctx context.Context, tx *sql.Tx, snapshotID string) (int, decimal.Decimal, error) {
	logs, err := s.distributionRepo.WithTx(tx).GetLogsBySnapshot(ctx, snapshotID)
	if err != nil {
		return 0, decimal.Zero, err
	}

	total := decimal.Zero
	for _, entry := range logs {
		referenceID := fmt.Sprintf("REV_SNAP_%s", snapshotID)
		description := fmt.Sprintf("Reversal of profit distribution %s", entry.ID)

		if _, err := s.wallets.Debit(ctx, tx, entry.UserID, entry.TotalAmount, model.TxTypeProfitDistributionReversal, referenceID, description); err != nil {
			return 0, decimal.Zero, fmt.Errorf("failed to reverse distribution %s: %w", entry.ID, err)
		}
		if err := s.distributionRepo.WithTx(tx).DeleteLog(ctx, entry.ID); err != nil {
			return 0, decimal.Zero, err
		}
		total = total.Add(entry.TotalAmount)
	}

	return len(logs), total, nil
}

// Recalculate re-runs the distribution for an existing snapshot, optionally
// reversing what was paid before. The whole recalculation, reversal
// included, commits atomically; the result reports the distribution before
// and after plus the net cash delta.
func (s *DistributionService) Recalculate(ctx context.Context, accountID string, date time.Time, reverseExisting bool) (model.RecalculationResult, error) {
	account, err := s.accountRepo.GetAccount(ctx, accountID)
	if err != nil {
		return model.RecalculationResult{}, err
	}

	snapshot, err := s.snapshotRepo.GetSnapshot(ctx, accountID, date)
	if err != nil {
		return model.RecalculationResult{}, err
	}

	oldLogs, err := s.distributionRepo.GetLogsBySnapshot(ctx, snapshot.ID)
	if err != nil {
		return model.RecalculationResult{}, err
	}
	oldSummary := summarize(snapshot, oldLogs)

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return model.RecalculationResult{}, fmt.Errorf("failed to begin recalculation transaction: %w", err)
	}
	defer tx.Rollback()

	if reverseExisting {
		if _, _, err := s.ReverseDistribution(ctx, tx, snapshot.ID); err != nil {
			return model.RecalculationResult{}, err
		}
	}

	fee, distributed, holders, err := s.CalculateAndDistribute(ctx, tx, account, snapshot.RealizedPL, date, snapshot.ID)
	if err != nil {
		return model.RecalculationResult{}, err
	}

	snapshot.ManagementFee = fee
	snapshot.ProfitDistributed = distributed
	snapshot.ClosingNav = account.CurrentNav.Sub(fee).Sub(distributed)
	snapshot.ClosingSharePrice = closingSharePrice(snapshot.ClosingNav, account.TotalSharesIssued)
	if err := s.snapshotRepo.WithTx(tx).UpdateDistributionFigures(ctx, &snapshot); err != nil {
		return model.RecalculationResult{}, err
	}

	if err := tx.Commit(); err != nil {
		return model.RecalculationResult{}, fmt.Errorf("failed to commit recalculation: %w", err)
	}

	newSummary := model.DistributionSummary{
		SnapshotID:       snapshot.ID,
		RealizedPL:       snapshot.RealizedPL,
		ManagementFee:    fee,
		ProfitPerShare:   perShareRate(snapshot.RealizedPL.Sub(fee), account.TotalSharesIssued),
		TotalDistributed: distributed,
		ShareholderCount: holders,
	}

	return model.RecalculationResult{
		TradingAccountID: accountID,
		SnapshotDate:     snapshot.SnapshotDate,
		Reversed:         reverseExisting,
		Old:              oldSummary,
		New:              newSummary,
		Delta:            newSummary.TotalDistributed.Sub(oldSummary.TotalDistributed),
		ProcessedAt:      time.Now().UTC(),
	}, nil
}

// GetUserDistributionHistory returns a user's distribution payouts, newest
// first, optionally filtered by trading account.
func (s *DistributionService) GetUserDistributionHistory(ctx context.Context, userID, accountID string) ([]model.ProfitDistributionLog, error) {
	return s.distributionRepo.GetUserLogs(ctx, userID, accountID)
}

func summarize(snapshot model.TradingAccountSnapshot, logs []model.ProfitDistributionLog) model.DistributionSummary {
	summary := model.DistributionSummary{
		SnapshotID:       snapshot.ID,
		RealizedPL:       snapshot.RealizedPL,
		ManagementFee:    snapshot.ManagementFee,
		TotalDistributed: snapshot.ProfitDistributed,
		ShareholderCount: len(logs),
	}
	if len(logs) > 0 {
		summary.ProfitPerShare = logs[0].ProfitPerShare
	}
	return summary
}

func perShareRate(distributable decimal.Decimal, sharesIssued int64) decimal.Decimal {
	if distributable.LessThanOrEqual(decimal.Zero) || sharesIssued <= 0 {
		return decimal.Zero
	}
	return distributable.DivRound(decimal.NewFromInt(sharesIssued), model.SharePricePrecision)
}

func closingSharePrice(closingNav decimal.Decimal, sharesIssued int64) decimal.Decimal {
	if sharesIssued <= 0 {
		return decimal.Zero
	}
	return closingNav.DivRound(decimal.NewFromInt(sharesIssued), model.SharePricePrecision)
}
