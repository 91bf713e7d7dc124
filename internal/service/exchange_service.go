package service

import (
	"context"
	"database/sql"
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/fundshare/exchange-backend/internal/apperrors"
	"github.com/fundshare/exchange-backend/internal/model"
	"github.com/fundshare/exchange-backend/internal/repository"
)

// PlaceOrderInput carries the caller's order parameters into PlaceOrder.
type PlaceOrderInput struct {
	TradingAccountID string
	Side             string
	Type             string
	Quantity         int64
	LimitPrice       *decimal.Decimal
}

// ExchangeService owns the secondary share market: order placement,
// cancellation, the matching pass and book views. A matching pass for one
// trading account runs under an exclusive lease and inside a single store
// transaction, so concurrent aggressors serialize and a failed pass leaves
// no partial fills behind.
type ExchangeService struct {
	db            *sql.DB
	orderRepo     *repository.OrderRepository
	tradeRepo     *repository.TradeRepository
	accountRepo   *repository.AccountRepository
	portfolioRepo *repository.PortfolioRepository
	walletRepo    *repository.WalletRepository
	portfolios    *PortfolioService
	wallets       *WalletService
	leases        *LeaseRegistry
	bookDepth     int
}

// NewExchangeService creates an exchange service. bookDepth caps the number
// of price levels returned per side of the order book.
func NewExchangeService(
	db *sql.DB,
	orderRepo *repository.OrderRepository,
	tradeRepo *repository.TradeRepository,
	accountRepo *repository.AccountRepository,
	portfolioRepo *repository.PortfolioRepository,
	walletRepo *repository.WalletRepository,
	portfolios *PortfolioService,
	wallets *WalletService,
	leases *LeaseRegistry,
	bookDepth int,
) *ExchangeService {
	return &ExchangeService{
		db:            db,
		orderRepo:     orderRepo,
		tradeRepo:     tradeRepo,
		accountRepo:   accountRepo,
		portfolioRepo: portfolioRepo,
		walletRepo:    walletRepo,
		portfolios:    portfolios,
		wallets:       wallets,
		leases:        leases,
		bookDepth:     bookDepth,
	}
}

// PlaceOrder validates and persists a new order, then immediately runs a
// matching pass against the resting book. The order is returned in its
// post-match state. A matching failure does not fail the placement: the
// order rests in its pre-match state and a later aggressor can still fill it.
func (s *ExchangeService) PlaceOrder(ctx context.Context, userID string, input PlaceOrderInput) (model.ShareOrder, error) {
	if input.Side != model.OrderSideBuy && input.Side != model.OrderSideSell {
		return model.ShareOrder{}, apperrors.ErrInvalidOrderSide
	}
	if input.Type != model.OrderTypeMarket && input.Type != model.OrderTypeLimit {
		return model.ShareOrder{}, apperrors.ErrInvalidOrderType
	}
	if input.Type == model.OrderTypeLimit && input.LimitPrice == nil {
		return model.ShareOrder{}, apperrors.ErrInvalidOrderType
	}
	if input.Quantity <= 0 {
		return model.ShareOrder{}, apperrors.ErrInvalidQuantity
	}
	if input.LimitPrice != nil && input.LimitPrice.LessThanOrEqual(decimal.Zero) {
		return model.ShareOrder{}, apperrors.ErrInvalidPrice
	}

	account, err := s.accountRepo.GetAccount(ctx, input.TradingAccountID)
	if err != nil {
		return model.ShareOrder{}, err
	}
	if !account.IsActive {
		return model.ShareOrder{}, apperrors.ErrAccountInactive
	}

	switch input.Side {
	case model.OrderSideSell:
		position, err := s.portfolioRepo.GetPosition(ctx, userID, account.ID)
		if err == apperrors.ErrPortfolioNotFound {
			return model.ShareOrder{}, apperrors.ErrInsufficientShares
		}
		if err != nil {
			return model.ShareOrder{}, err
		}
		if position.Quantity < input.Quantity {
			return model.ShareOrder{}, apperrors.ErrInsufficientShares
		}
	case model.OrderSideBuy:
		referencePrice := account.CurrentSharePrice()
		if input.LimitPrice != nil {
			referencePrice = *input.LimitPrice
		}
		wallet, err := s.walletRepo.GetWalletByUser(ctx, userID)
		if err != nil {
			return model.ShareOrder{}, err
		}
		estimatedCost := referencePrice.Mul(decimal.NewFromInt(input.Quantity))
		if wallet.Balance.LessThan(estimatedCost) {
			return model.ShareOrder{}, apperrors.ErrInsufficientFunds
		}
	}

	now := time.Now().UTC()
	order := model.ShareOrder{
		ID:               uuid.New().String(),
		UserID:           userID,
		TradingAccountID: account.ID,
		Side:             input.Side,
		Type:             input.Type,
		QuantityOrdered:  input.Quantity,
		LimitPrice:       input.LimitPrice,
		Status:           model.OrderStatusOpen,
		CreatedAt:        now,
		UpdatedAt:        now,
	}
	if err := s.orderRepo.InsertOrder(ctx, &order); err != nil {
		return model.ShareOrder{}, err
	}

	if err := s.TryMatchOrder(ctx, order.ID); err != nil {
		log.Printf("Matching pass failed for order %s: %v", order.ID, err)
	}

	return s.orderRepo.GetOrder(ctx, order.ID)
}

// TryMatchOrder runs one matching pass for the given aggressor order. The
// whole pass, including every fill's trade, order, portfolio and wallet
// writes, happens in a single transaction under the account's match lease.
func (s *ExchangeService) TryMatchOrder(ctx context.Context, orderID string) error {
	order, err := s.orderRepo.GetOrder(ctx, orderID)
	if err != nil {
		return err
	}

	release, err := s.leases.Acquire(ctx, "match:"+order.TradingAccountID)
	if err != nil {
		return err
	}
	defer release()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin matching transaction: %w", err)
	}
	defer tx.Rollback()

	orderRepoTx := s.orderRepo.WithTx(tx)

	// Re-read inside the transaction: a concurrent pass may have filled or
	// cancelled the order while we waited on the lease.
	order, err = orderRepoTx.GetOrder(ctx, order.ID)
	if err != nil {
		return err
	}
	if !order.IsMatchable() || order.QuantityRemaining() <= 0 {
		return nil
	}

	counterSide := model.OrderSideSell
	if order.Side == model.OrderSideSell {
		counterSide = model.OrderSideBuy
	}

	candidates, err := orderRepoTx.FindRestingOrders(ctx, order.TradingAccountID, counterSide, order.UserID, order.LimitPrice)
	if err != nil {
		return err
	}

	matched := false
	for i := range candidates {
		if order.QuantityRemaining() <= 0 {
			break
		}

		candidate := &candidates[i]
		if candidate.QuantityRemaining() <= 0 || candidate.LimitPrice == nil {
			continue
		}

		// Trades always execute at the resting order's limit price.
		tradePrice := *candidate.LimitPrice

		quantity := order.QuantityRemaining()
		if candidate.QuantityRemaining() < quantity {
			quantity = candidate.QuantityRemaining()
		}

		buyOrder, sellOrder := &order, candidate
		if order.Side == model.OrderSideSell {
			buyOrder, sellOrder = candidate, &order
		}

		quantity, err = s.capFillQuantity(ctx, tx, buyOrder.UserID, sellOrder.UserID, order.TradingAccountID, tradePrice, quantity)
		if err != nil {
			return err
		}
		if quantity <= 0 {
			if buyOrder == &order {
				// The aggressor's funds are exhausted; resting sells only
				// get more expensive from here.
				break
			}
			continue
		}

		if err := s.executeFill(ctx, tx, buyOrder, sellOrder, tradePrice, quantity); err != nil {
			return err
		}
		matched = true
	}

	if !matched {
		return nil
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit matching transaction: %w", err)
	}
	return nil
}

// capFillQuantity reduces a tentative fill quantity to what the buyer can
// pay for and the seller still holds. Resting orders were validated at
// placement, but balances and positions move between placement and fill.
func (s *ExchangeService) capFillQuantity(ctx context.Context, tx *sql.Tx, buyerUserID, sellerUserID, accountID string, price decimal.Decimal, quantity int64) (int64, error) {
	wallet, err := s.walletRepo.WithTx(tx).GetWalletByUser(ctx, buyerUserID)
	if err != nil {
		if err == apperrors.ErrWalletNotFound {
			return 0, nil
		}
		return 0, err
	}
	affordable := wallet.Balance.Div(price).IntPart()
	if affordable < quantity {
		quantity = affordable
	}

	position, err := s.portfolioRepo.WithTx(tx).GetPosition(ctx, sellerUserID, accountID)
	if err != nil {
		if err == apperrors.ErrPortfolioNotFound {
			return 0, nil
		}
		return 0, err
	}
	if position.Quantity < quantity {
		quantity = position.Quantity
	}

	return quantity, nil
}

// executeFill settles one fill: records the trade, advances both orders'
// fill state, moves shares between portfolios and cash between wallets.
func (s *ExchangeService) executeFill(ctx context.Context, tx *sql.Tx, buyOrder, sellOrder *model.ShareOrder, price decimal.Decimal, quantity int64) error {
	now := time.Now().UTC()

	trade := model.ShareTrade{
		ID:               uuid.New().String(),
		TradingAccountID: buyOrder.TradingAccountID,
		BuyOrderID:       buyOrder.ID,
		SellOrderID:      sellOrder.ID,
		BuyerUserID:      buyOrder.UserID,
		SellerUserID:     sellOrder.UserID,
		QuantityTraded:   quantity,
		TradePrice:       price,
		TradeDate:        now,
	}
	if err := s.tradeRepo.WithTx(tx).InsertTrade(ctx, &trade); err != nil {
		return err
	}

	orderRepoTx := s.orderRepo.WithTx(tx)
	for _, o := range []*model.ShareOrder{buyOrder, sellOrder} {
		newAvg := averageFillPrice(o.AverageFillPrice, o.QuantityFilled, price, quantity)
		o.QuantityFilled += quantity
		o.AverageFillPrice = &newAvg
		o.Status = o.StatusForFill()
		o.UpdatedAt = now
		if err := orderRepoTx.UpdateFillState(ctx, o); err != nil {
			return err
		}
	}

	if err := s.portfolios.UpdateOnBuy(ctx, tx, buyOrder.UserID, buyOrder.TradingAccountID, quantity, price); err != nil {
		return err
	}
	if err := s.portfolios.UpdateOnSell(ctx, tx, sellOrder.UserID, sellOrder.TradingAccountID, quantity); err != nil {
		return err
	}

	totalValue := trade.TotalValue().Round(model.CashPrecision)
	description := fmt.Sprintf("Trade %s: %d shares @ %s", trade.ID, quantity, price.String())

	if _, err := s.wallets.Debit(ctx, tx, buyOrder.UserID, totalValue, model.TxTypeSharePurchase, trade.ID, description); err != nil {
		return err
	}
	if _, err := s.wallets.Credit(ctx, tx, sellOrder.UserID, totalValue, model.TxTypeShareSaleProceeds, trade.ID, description); err != nil {
		return err
	}

	return nil
}

// CancelOrder cancels a user's own Open or PartiallyFilled order. Filled
// quantity stays as is; only the unfilled remainder is withdrawn from the
// book. Runs under the match lease so a concurrent pass cannot fill the
// order mid-cancellation.
func (s *ExchangeService) CancelOrder(ctx context.Context, userID, orderID string) (model.ShareOrder, error) {
	order, err := s.orderRepo.GetOrder(ctx, orderID)
	if err != nil {
		return model.ShareOrder{}, err
	}
	if order.UserID != userID {
		return model.ShareOrder{}, apperrors.ErrNotOrderOwner
	}

	release, err := s.leases.Acquire(ctx, "match:"+order.TradingAccountID)
	if err != nil {
		return model.ShareOrder{}, err
	}
	defer release()

	order, err = s.orderRepo.GetOrder(ctx, orderID)
	if err != nil {
		return model.ShareOrder{}, err
	}
	if !order.IsMatchable() {
		return model.ShareOrder{}, apperrors.ErrOrderNotCancellable
	}

	now := time.Now().UTC()
	if err := s.orderRepo.UpdateStatus(ctx, order.ID, model.OrderStatusCancelled, repository.FormatTime(now)); err != nil {
		return model.ShareOrder{}, err
	}

	order.Status = model.OrderStatusCancelled
	order.UpdatedAt = now
	return order, nil
}

// GetOrderBook returns the aggregated resting book for a trading account,
// bids descending and asks ascending, capped at the configured depth.
func (s *ExchangeService) GetOrderBook(ctx context.Context, accountID string) (model.OrderBookResponse, error) {
	account, err := s.accountRepo.GetAccount(ctx, accountID)
	if err != nil {
		return model.OrderBookResponse{}, err
	}

	bids, err := s.orderRepo.GetBookLevels(ctx, accountID, model.OrderSideBuy, s.bookDepth)
	if err != nil {
		return model.OrderBookResponse{}, err
	}
	asks, err := s.orderRepo.GetBookLevels(ctx, accountID, model.OrderSideSell, s.bookDepth)
	if err != nil {
		return model.OrderBookResponse{}, err
	}

	return model.OrderBookResponse{
		TradingAccountID:  account.ID,
		CurrentSharePrice: account.CurrentSharePrice(),
		Bids:              bids,
		Asks:              asks,
		AsOf:              time.Now().UTC(),
	}, nil
}

// GetUserOrders returns a user's orders, optionally filtered by account and status.
func (s *ExchangeService) GetUserOrders(ctx context.Context, userID, accountID, status string) ([]model.ShareOrder, error) {
	return s.orderRepo.GetUserOrders(ctx, userID, accountID, status)
}

// GetUserTrades returns a user's trades as buyer or seller, newest first,
// optionally filtered by trading account.
func (s *ExchangeService) GetUserTrades(ctx context.Context, userID, accountID string) ([]model.ShareTrade, error) {
	return s.tradeRepo.GetUserTrades(ctx, userID, accountID)
}

// averageFillPrice folds one more fill into an order's running average fill price.
func averageFillPrice(currentAvg *decimal.Decimal, filledSoFar int64, price decimal.Decimal, quantity int64) decimal.Decimal {
	if currentAvg == nil || filledSoFar <= 0 {
		return price
	}
	return weightedAveragePrice(*currentAvg, filledSoFar, price, quantity)
}
