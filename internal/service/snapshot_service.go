package service

import (
	"context"
	"database/sql"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"golang.org/x/sync/errgroup"

	"github.com/fundshare/exchange-backend/internal/apperrors"
	"github.com/fundshare/exchange-backend/internal/model"
	"github.com/fundshare/exchange-backend/internal/repository"
)

// SnapshotTriggerInput carries the parameters of a manual snapshot run.
// An empty AccountIDs list means every active account.
type SnapshotTriggerInput struct {
	TargetDate       time.Time
	AccountIDs       []string
	ForceRecalculate bool
	Reason           string
}

// SnapshotService produces the daily per-account accounting snapshot:
// realized P&L from unprocessed closed trades, management fee, profit
// distribution to shareholders and the closing NAV. Each account's snapshot
// is one transaction under an (account, date) lease; one account failing
// never aborts the rest of the batch.
type SnapshotService struct {
	db            *sql.DB
	accountRepo   *repository.AccountRepository
	snapshotRepo  *repository.SnapshotRepository
	eaRepo        *repository.EARepository
	distributions *DistributionService
	leases        *LeaseRegistry
	maxConcurrent int
}

// NewSnapshotService creates a snapshot service. maxConcurrent bounds how
// many accounts are snapshotted in parallel during a batch run.
func NewSnapshotService(
	db *sql.DB,
	accountRepo *repository.AccountRepository,
	snapshotRepo *repository.SnapshotRepository,
	eaRepo *repository.EARepository,
	distributions *DistributionService,
	leases *LeaseRegistry,
	maxConcurrent int,
) *SnapshotService {
	if maxConcurrent < 1 {
		maxConcurrent = 1
	}
	return &SnapshotService{
		db:            db,
		accountRepo:   accountRepo,
		snapshotRepo:  snapshotRepo,
		eaRepo:        eaRepo,
		distributions: distributions,
		leases:        leases,
		maxConcurrent: maxConcurrent,
	}
}

// CreateDailySnapshots runs the snapshot procedure for every active trading
// account for the given date. Re-running for a date that already has
// snapshots is a no-op per account: existing snapshots are skipped, not
// recreated.
func (s *SnapshotService) CreateDailySnapshots(ctx context.Context, date time.Time) (model.SnapshotBatchResult, error) {
	accounts, err := s.accountRepo.GetActiveAccounts(ctx)
	if err != nil {
		return model.SnapshotBatchResult{}, fmt.Errorf("failed to load active accounts: %w", err)
	}

	return s.run(ctx, accounts, date, false), nil
}

// ManualTrigger runs the snapshot procedure on demand for the named
// accounts, or every active account when none are named. With
// ForceRecalculate set, an existing snapshot is reversed, deleted and
// recreated instead of skipped.
func (s *SnapshotService) ManualTrigger(ctx context.Context, input SnapshotTriggerInput) (model.SnapshotBatchResult, error) {
	var accounts []model.TradingAccount

	if len(input.AccountIDs) == 0 {
		var err error
		accounts, err = s.accountRepo.GetActiveAccounts(ctx)
		if err != nil {
			return model.SnapshotBatchResult{}, fmt.Errorf("failed to load active accounts: %w", err)
		}
	} else {
		for _, id := range input.AccountIDs {
			account, err := s.accountRepo.GetAccount(ctx, id)
			if err != nil {
				return model.SnapshotBatchResult{}, err
			}
			accounts = append(accounts, account)
		}
	}

	if input.Reason != "" {
		log.Printf("Manual snapshot run for %s (%d accounts, force=%t): %s",
			repository.FormatDate(input.TargetDate), len(accounts), input.ForceRecalculate, input.Reason)
	}

	return s.run(ctx, accounts, input.TargetDate, input.ForceRecalculate), nil
}

func (s *SnapshotService) run(ctx context.Context, accounts []model.TradingAccount, date time.Time, force bool) model.SnapshotBatchResult {
	result := model.SnapshotBatchResult{
		SnapshotDate:           date,
		TotalProfitDistributed: decimal.Zero,
		Errors:                 []string{},
		AccountResults:         []model.SnapshotAccountResult{},
	}

	var mu sync.Mutex
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(s.maxConcurrent)

	for _, account := range accounts {
		account := account
		g.Go(func() error {
			accountResult := s.createSnapshotForAccount(ctx, account, date, force)

			mu.Lock()
			defer mu.Unlock()

			result.AccountsProcessed++
			result.AccountResults = append(result.AccountResults, accountResult)
			switch accountResult.Status {
			case model.SnapshotAccountSuccess:
				result.SnapshotsCreated++
				if accountResult.ProfitDistributed != nil {
					result.TotalProfitDistributed = result.TotalProfitDistributed.Add(*accountResult.ProfitDistributed)
				}
			case model.SnapshotAccountSkipped:
				result.AccountsSkipped++
			case model.SnapshotAccountFailed:
				result.AccountsFailed++
				result.Errors = append(result.Errors, fmt.Sprintf("%s: %s", account.Name, accountResult.Message))
			}
			return nil
		})
	}
	g.Wait()

	result.ProcessedAt = time.Now().UTC()
	return result
}

// createSnapshotForAccount runs the whole per-account procedure in one
// transaction: reversal of an existing snapshot when forced, realized and
// unrealized P&L collection, fee and distribution, the single snapshot
// insert and marking the consumed EA trades processed.
func (s *SnapshotService) createSnapshotForAccount(ctx context.Context, account model.TradingAccount, date time.Time, force bool) model.SnapshotAccountResult {
	failed := func(err error) model.SnapshotAccountResult {
		log.Printf("Snapshot failed for account %s (%s): %v", account.Name, account.ID, err)
		return model.SnapshotAccountResult{
			TradingAccountID: account.ID,
			AccountName:      account.Name,
			Status:           model.SnapshotAccountFailed,
			Message:          err.Error(),
		}
	}

	release, err := s.leases.Acquire(ctx, "snapshot:"+account.ID+":"+repository.FormatDate(date))
	if err != nil {
		return failed(err)
	}
	defer release()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return failed(fmt.Errorf("failed to begin snapshot transaction: %w", err))
	}
	defer tx.Rollback()

	snapshotRepoTx := s.snapshotRepo.WithTx(tx)
	eaRepoTx := s.eaRepo.WithTx(tx)

	exists, err := snapshotRepoTx.SnapshotExists(ctx, account.ID, date)
	if err != nil {
		return failed(err)
	}
	if exists && !force {
		return model.SnapshotAccountResult{
			TradingAccountID: account.ID,
			AccountName:      account.Name,
			Status:           model.SnapshotAccountSkipped,
			Message:          "snapshot already exists for this date",
		}
	}
	if exists {
		old, err := snapshotRepoTx.GetSnapshot(ctx, account.ID, date)
		if err != nil {
			return failed(err)
		}
		if _, _, err := s.distributions.ReverseDistribution(ctx, tx, old.ID); err != nil {
			return failed(err)
		}
		if err := snapshotRepoTx.DeleteSnapshot(ctx, old.ID); err != nil {
			return failed(err)
		}
		// Return the day's consumed trades to the pool so the re-sum below
		// sees them again, together with any late-reported ones.
		if err := eaRepoTx.ResetTradesProcessed(ctx, account.ID, date); err != nil {
			return failed(err)
		}
	}

	openingNav := account.InitialCapital
	previous, err := snapshotRepoTx.GetPreviousSnapshot(ctx, account.ID, date)
	if err == nil {
		openingNav = previous.ClosingNav
	} else if err != apperrors.ErrSnapshotNotFound {
		return failed(err)
	}

	closedTrades, err := eaRepoTx.GetUnprocessedClosedTrades(ctx, account.ID, date)
	if err != nil {
		return failed(err)
	}
	realizedPL := decimal.Zero
	tradeIDs := make([]string, 0, len(closedTrades))
	for _, trade := range closedTrades {
		realizedPL = realizedPL.Add(trade.RealizedPL)
		tradeIDs = append(tradeIDs, trade.ID)
	}

	unrealizedPL, err := eaRepoTx.SumFloatingPL(ctx, account.ID)
	if err != nil {
		return failed(err)
	}

	snapshotID := uuid.New().String()

	fee, distributed, holders, err := s.distributions.CalculateAndDistribute(ctx, tx, account, realizedPL, date, snapshotID)
	if err != nil {
		return failed(err)
	}

	closingNav := account.CurrentNav.Sub(fee).Sub(distributed)

	snapshot := model.TradingAccountSnapshot{
		ID:                snapshotID,
		TradingAccountID:  account.ID,
		SnapshotDate:      date,
		OpeningNav:        openingNav,
		RealizedPL:        realizedPL,
		UnrealizedPL:      unrealizedPL,
		ManagementFee:     fee,
		ProfitDistributed: distributed,
		ClosingNav:        closingNav,
		ClosingSharePrice: closingSharePrice(closingNav, account.TotalSharesIssued),
		CreatedAt:         time.Now().UTC(),
	}
	if err := snapshotRepoTx.InsertSnapshot(ctx, &snapshot); err != nil {
		return failed(err)
	}

	if err := eaRepoTx.MarkTradesProcessed(ctx, tradeIDs); err != nil {
		return failed(err)
	}

	if err := tx.Commit(); err != nil {
		return failed(fmt.Errorf("failed to commit snapshot: %w", err))
	}

	return model.SnapshotAccountResult{
		TradingAccountID:  account.ID,
		AccountName:       account.Name,
		Status:            model.SnapshotAccountSuccess,
		SnapshotID:        snapshotID,
		ProfitDistributed: &distributed,
		ShareholderCount:  holders,
	}
}

// GetSnapshots returns an account's snapshots within a date range, newest first.
func (s *SnapshotService) GetSnapshots(ctx context.Context, accountID string, from, to time.Time) ([]model.TradingAccountSnapshot, error) {
	if to.Before(from) {
		return nil, apperrors.ErrInvalidDateRange
	}
	if _, err := s.accountRepo.GetAccount(ctx, accountID); err != nil {
		return nil, err
	}
	return s.snapshotRepo.GetSnapshots(ctx, accountID, from, to)
}

// GetSnapshot returns one account's snapshot for a specific date.
func (s *SnapshotService) GetSnapshot(ctx context.Context, accountID string, date time.Time) (model.TradingAccountSnapshot, error) {
	return s.snapshotRepo.GetSnapshot(ctx, accountID, date)
}
