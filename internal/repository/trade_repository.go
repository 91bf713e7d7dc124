package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/fundshare/exchange-backend/internal/model"
)

// TradeRepository provides data access methods for the share_trade table.
// Trades are an append-only audit trail: there are no update or delete paths.
type TradeRepository struct {
	db *sql.DB
	tx *sql.Tx
}

// NewTradeRepository creates a new TradeRepository with the provided database connection.
func NewTradeRepository(db *sql.DB) *TradeRepository {
	return &TradeRepository{db: db}
}

// WithTx returns a new TradeRepository scoped to the provided transaction.
func (r *TradeRepository) WithTx(tx *sql.Tx) *TradeRepository {
	return &TradeRepository{db: r.db, tx: tx}
}

// getQuerier returns the active transaction if one is set, otherwise the database connection.
func (r *TradeRepository) getQuerier() interface {
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
} {
	if r.tx != nil {
		return r.tx
	}
	return r.db
}

const tradeColumns = `id, trading_account_id, buy_order_id, sell_order_id,
	buyer_user_id, seller_user_id, quantity_traded, trade_price, trade_date`

func scanTrade(row interface{ Scan(dest ...any) error }) (model.ShareTrade, error) {
	var t model.ShareTrade
	var price, tradeDate string

	err := row.Scan(
		&t.ID,
		&t.TradingAccountID,
		&t.BuyOrderID,
		&t.SellOrderID,
		&t.BuyerUserID,
		&t.SellerUserID,
		&t.QuantityTraded,
		&price,
		&tradeDate,
	)
	if err != nil {
		return model.ShareTrade{}, err
	}

	if t.TradePrice, err = ParseDecimal(price); err != nil {
		return model.ShareTrade{}, err
	}
	if t.TradeDate, err = ParseTime(tradeDate); err != nil {
		return model.ShareTrade{}, err
	}

	return t, nil
}

// InsertTrade persists a new share trade.
func (r *TradeRepository) InsertTrade(ctx context.Context, t *model.ShareTrade) error {
	query := `
		INSERT INTO share_trade (` + tradeColumns + `)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`

	_, err := r.getQuerier().ExecContext(ctx, query,
		t.ID,
		t.TradingAccountID,
		t.BuyOrderID,
		t.SellOrderID,
		t.BuyerUserID,
		t.SellerUserID,
		t.QuantityTraded,
		t.TradePrice.String(),
		FormatTime(t.TradeDate),
	)
	if err != nil {
		return fmt.Errorf("failed to insert share trade: %w", err)
	}

	return nil
}

// GetUserTrades retrieves trades where the user was buyer or seller,
// optionally filtered by trading account, newest first.
func (r *TradeRepository) GetUserTrades(ctx context.Context, userID, accountID string) ([]model.ShareTrade, error) {
	query := `
		SELECT ` + tradeColumns + `
		FROM share_trade
		WHERE (buyer_user_id = ? OR seller_user_id = ?)
	`
	args := []any{userID, userID}

	if accountID != "" {
		query += ` AND trading_account_id = ?`
		args = append(args, accountID)
	}

	query += ` ORDER BY trade_date DESC`

	rows, err := r.getQuerier().QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query user trades: %w", err)
	}
	defer rows.Close()

	var trades []model.ShareTrade
	for rows.Next() {
		trade, err := scanTrade(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan user trade: %w", err)
		}
		trades = append(trades, trade)
	}

	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating user trades: %w", err)
	}

	return trades, nil
}

// GetAccountTrades retrieves all trades for a trading account, newest first.
func (r *TradeRepository) GetAccountTrades(ctx context.Context, accountID string) ([]model.ShareTrade, error) {
	query := `SELECT ` + tradeColumns + ` FROM share_trade WHERE trading_account_id = ? ORDER BY trade_date DESC`

	rows, err := r.getQuerier().QueryContext(ctx, query, accountID)
	if err != nil {
		return nil, fmt.Errorf("failed to query account trades: %w", err)
	}
	defer rows.Close()

	var trades []model.ShareTrade
	for rows.Next() {
		trade, err := scanTrade(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan account trade: %w", err)
		}
		trades = append(trades, trade)
	}

	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating account trades: %w", err)
	}

	return trades, nil
}
