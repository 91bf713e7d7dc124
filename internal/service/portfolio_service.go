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

// PortfolioService maintains user share positions. Buys fold the trade into
// a weighted average buy price; sells decrement quantity and leave the
// average untouched.
type PortfolioService struct {
	portfolioRepo *repository.PortfolioRepository
	accountRepo   *repository.AccountRepository
}

// NewPortfolioService creates a portfolio service.
func NewPortfolioService(portfolioRepo *repository.PortfolioRepository, accountRepo *repository.AccountRepository) *PortfolioService {
	return &PortfolioService{portfolioRepo: portfolioRepo, accountRepo: accountRepo}
}

func (s *PortfolioService) repo(tx *sql.Tx) *repository.PortfolioRepository {
	if tx != nil {
		return s.portfolioRepo.WithTx(tx)
	}
	return s.portfolioRepo
}

// UpdateOnBuy credits quantity shares bought at price into the user's
// position, creating the position row on first buy. The average buy price is
// the quantity-weighted mean of the prior position and this fill.
func (s *PortfolioService) UpdateOnBuy(ctx context.Context, tx *sql.Tx, userID, accountID string, quantity int64, price decimal.Decimal) error {
	if quantity <= 0 {
		return apperrors.ErrInvalidQuantity
	}

	repo := s.repo(tx)

	position, err := repo.GetPosition(ctx, userID, accountID)
	if err == apperrors.ErrPortfolioNotFound {
		return repo.InsertPosition(ctx, &model.SharePortfolio{
			ID:               uuid.New().String(),
			UserID:           userID,
			TradingAccountID: accountID,
			Quantity:         quantity,
			AverageBuyPrice:  price,
			LastUpdatedAt:    time.Now().UTC(),
		})
	}
	if err != nil {
		return err
	}

	position.AverageBuyPrice = weightedAveragePrice(position.AverageBuyPrice, position.Quantity, price, quantity)
	position.Quantity += quantity
	position.LastUpdatedAt = time.Now().UTC()
	return repo.UpdatePosition(ctx, &position)
}

// UpdateOnSell debits quantity shares from the user's position. The row is
// kept at quantity zero rather than deleted.
func (s *PortfolioService) UpdateOnSell(ctx context.Context, tx *sql.Tx, userID, accountID string, quantity int64) error {
	if quantity <= 0 {
		return apperrors.ErrInvalidQuantity
	}

	repo := s.repo(tx)

	position, err := repo.GetPosition(ctx, userID, accountID)
	if err != nil {
		return err
	}
	if position.Quantity < quantity {
		return apperrors.ErrInsufficientShares
	}

	position.Quantity -= quantity
	position.LastUpdatedAt = time.Now().UTC()
	return repo.UpdatePosition(ctx, &position)
}

// GetPosition returns the user's position in one trading account.
func (s *PortfolioService) GetPosition(ctx context.Context, userID, accountID string) (model.SharePortfolio, error) {
	return s.portfolioRepo.GetPosition(ctx, userID, accountID)
}

// GetUserPortfolio returns every position a user holds, enriched with the
// current share price and unrealized P&L of each account.
func (s *PortfolioService) GetUserPortfolio(ctx context.Context, userID string) ([]model.PortfolioItemResponse, error) {
	positions, err := s.portfolioRepo.GetUserPositions(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to load positions: %w", err)
	}

	items := make([]model.PortfolioItemResponse, 0, len(positions))
	for _, p := range positions {
		account, err := s.accountRepo.GetAccount(ctx, p.TradingAccountID)
		if err != nil {
			return nil, fmt.Errorf("failed to load account %s: %w", p.TradingAccountID, err)
		}

		sharePrice := account.CurrentSharePrice()
		quantity := decimal.NewFromInt(p.Quantity)
		currentValue := sharePrice.Mul(quantity).Round(model.CashPrecision)
		costBasis := p.AverageBuyPrice.Mul(quantity).Round(model.CashPrecision)

		items = append(items, model.PortfolioItemResponse{
			TradingAccountID:   account.ID,
			TradingAccountName: account.Name,
			Quantity:           p.Quantity,
			AverageBuyPrice:    p.AverageBuyPrice,
			CurrentSharePrice:  sharePrice,
			CurrentValue:       currentValue,
			UnrealizedPL:       currentValue.Sub(costBasis),
			LastUpdatedAt:      p.LastUpdatedAt,
		})
	}

	return items, nil
}

// weightedAveragePrice folds a new fill into an existing position's average
// buy price, rounded to share price precision.
func weightedAveragePrice(currentAvg decimal.Decimal, currentQty int64, fillPrice decimal.Decimal, fillQty int64) decimal.Decimal {
	totalQty := currentQty + fillQty
	if totalQty <= 0 {
		return fillPrice
	}
	currentCost := currentAvg.Mul(decimal.NewFromInt(currentQty))
	fillCost := fillPrice.Mul(decimal.NewFromInt(fillQty))
	return currentCost.Add(fillCost).DivRound(decimal.NewFromInt(totalQty), model.SharePricePrecision)
}
