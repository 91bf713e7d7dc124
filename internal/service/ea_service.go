package service

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/fundshare/exchange-backend/internal/apperrors"
	"github.com/fundshare/exchange-backend/internal/model"
	"github.com/fundshare/exchange-backend/internal/repository"
)

// EAClosedTradeInput is one closed position in an EA push.
type EAClosedTradeInput struct {
	EATicketID string
	RealizedPL decimal.Decimal
	CloseTime  time.Time
}

// EAOpenPositionInput is one still-open position in an EA push.
type EAOpenPositionInput struct {
	EATicketID string
	FloatingPL decimal.Decimal
}

// EANavUpdateInput is one full state push from the managed account's robot:
// the account's current NAV, positions closed since the last push, and the
// complete set of currently open positions.
type EANavUpdateInput struct {
	TradingAccountID string
	CurrentNav       decimal.Decimal
	ClosedTrades     []EAClosedTradeInput
	OpenPositions    []EAOpenPositionInput
}

// EANavUpdateResult reports what one push changed.
type EANavUpdateResult struct {
	TradingAccountID string          `json:"tradingAccountId"`
	CurrentNav       decimal.Decimal `json:"currentNav"`
	ClosedTradesSeen int             `json:"closedTradesSeen"`
	OpenPositions    int             `json:"openPositions"`
	ReceivedAt       time.Time       `json:"receivedAt"`
}

// EAClosedTradesResult reports how many trades a closed-trades push carried.
type EAClosedTradesResult struct {
	TradingAccountID string    `json:"tradingAccountId"`
	ClosedTradesSeen int       `json:"closedTradesSeen"`
	ReceivedAt       time.Time `json:"receivedAt"`
}

// EAService ingests state pushes from the trading robots running the
// managed accounts. Pushes are idempotent: a closed trade ticket already on
// file is ignored, and the open position set is replaced wholesale so a
// replayed push converges to the same state.
type EAService struct {
	db          *sql.DB
	accountRepo *repository.AccountRepository
	eaRepo      *repository.EARepository
}

// NewEAService creates an EA ingestion service.
func NewEAService(db *sql.DB, accountRepo *repository.AccountRepository, eaRepo *repository.EARepository) *EAService {
	return &EAService{db: db, accountRepo: accountRepo, eaRepo: eaRepo}
}

// PushNavUpdate applies one robot push atomically: the account NAV is
// updated, new closed trades are recorded, and the open position set is
// replaced with the pushed one.
func (s *EAService) PushNavUpdate(ctx context.Context, input EANavUpdateInput) (EANavUpdateResult, error) {
	if input.CurrentNav.IsNegative() {
		return EANavUpdateResult{}, apperrors.ErrInvalidAmount
	}

	account, err := s.accountRepo.GetAccount(ctx, input.TradingAccountID)
	if err != nil {
		return EANavUpdateResult{}, err
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return EANavUpdateResult{}, fmt.Errorf("failed to begin EA update transaction: %w", err)
	}
	defer tx.Rollback()

	now := time.Now().UTC()
	accountRepoTx := s.accountRepo.WithTx(tx)
	eaRepoTx := s.eaRepo.WithTx(tx)

	if err := accountRepoTx.UpdateNav(ctx, account.ID, input.CurrentNav, repository.FormatTime(now)); err != nil {
		return EANavUpdateResult{}, err
	}

	for _, closed := range input.ClosedTrades {
		trade := model.EAClosedTrade{
			ID:               uuid.New().String(),
			TradingAccountID: account.ID,
			EATicketID:       closed.EATicketID,
			RealizedPL:       closed.RealizedPL,
			CloseTime:        closed.CloseTime.UTC(),
		}
		if err := eaRepoTx.InsertClosedTrade(ctx, &trade); err != nil {
			return EANavUpdateResult{}, err
		}
	}

	keepTickets := make([]string, 0, len(input.OpenPositions))
	for _, open := range input.OpenPositions {
		position := model.EAOpenPosition{
			ID:               uuid.New().String(),
			TradingAccountID: account.ID,
			EATicketID:       open.EATicketID,
			FloatingPL:       open.FloatingPL,
			UpdatedAt:        now,
		}
		if err := eaRepoTx.UpsertOpenPosition(ctx, &position); err != nil {
			return EANavUpdateResult{}, err
		}
		keepTickets = append(keepTickets, open.EATicketID)
	}
	if err := eaRepoTx.DeleteOpenPositionsExcept(ctx, account.ID, keepTickets); err != nil {
		return EANavUpdateResult{}, err
	}

	if err := tx.Commit(); err != nil {
		return EANavUpdateResult{}, fmt.Errorf("failed to commit EA update: %w", err)
	}

	return EANavUpdateResult{
		TradingAccountID: account.ID,
		CurrentNav:       input.CurrentNav,
		ClosedTradesSeen: len(input.ClosedTrades),
		OpenPositions:    len(input.OpenPositions),
		ReceivedAt:       now,
	}, nil
}

// PushClosedTrades records closed trades for an account without touching the
// NAV or open positions. A ticket already on file is ignored, so the robot
// may retry a failed push wholesale.
func (s *EAService) PushClosedTrades(ctx context.Context, accountID string, trades []EAClosedTradeInput) (EAClosedTradesResult, error) {
	account, err := s.accountRepo.GetAccount(ctx, accountID)
	if err != nil {
		return EAClosedTradesResult{}, err
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return EAClosedTradesResult{}, fmt.Errorf("failed to begin EA update transaction: %w", err)
	}
	defer tx.Rollback()

	eaRepoTx := s.eaRepo.WithTx(tx)
	for _, closed := range trades {
		trade := model.EAClosedTrade{
			ID:               uuid.New().String(),
			TradingAccountID: account.ID,
			EATicketID:       closed.EATicketID,
			RealizedPL:       closed.RealizedPL,
			CloseTime:        closed.CloseTime.UTC(),
		}
		if err := eaRepoTx.InsertClosedTrade(ctx, &trade); err != nil {
			return EAClosedTradesResult{}, err
		}
	}

	if err := tx.Commit(); err != nil {
		return EAClosedTradesResult{}, fmt.Errorf("failed to commit EA update: %w", err)
	}

	return EAClosedTradesResult{
		TradingAccountID: account.ID,
		ClosedTradesSeen: len(trades),
		ReceivedAt:       time.Now().UTC(),
	}, nil
}
