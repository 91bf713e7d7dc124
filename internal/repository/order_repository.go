package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/fundshare/exchange-backend/internal/apperrors"
	"github.com/fundshare/exchange-backend/internal/model"
)

// OrderRepository provides data access methods for the share_order table.
// It realises the resting order book as filtered, ordered queries rather
// than an in-memory structure; correctness therefore depends on the whole
// matching pass running inside one transaction.
type OrderRepository struct {
	db *sql.DB
	tx *sql.Tx
}

// NewOrderRepository creates a new OrderRepository with the provided database connection.
func NewOrderRepository(db *sql.DB) *OrderRepository {
	return &OrderRepository{db: db}
}

// WithTx returns a new OrderRepository scoped to the provided transaction.
func (r *OrderRepository) WithTx(tx *sql.Tx) *OrderRepository {
	return &OrderRepository{db: r.db, tx: tx}
}

// getQuerier returns the active transaction if one is set, otherwise the database connection.
func (r *OrderRepository) getQuerier() interface {
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
} {
	if r.tx != nil {
		return r.tx
	}
	return r.db
}

const orderColumns = `id, user_id, trading_account_id, side, type, quantity_ordered,
	quantity_filled, limit_price, average_fill_price, status, created_at, updated_at`

func scanOrder(row interface{ Scan(dest ...any) error }) (model.ShareOrder, error) {
	var o model.ShareOrder
	var limitPrice, avgFillPrice sql.NullString
	var createdAt, updatedAt string

	err := row.Scan(
		&o.ID,
		&o.UserID,
		&o.TradingAccountID,
		&o.Side,
		&o.Type,
		&o.QuantityOrdered,
		&o.QuantityFilled,
		&limitPrice,
		&avgFillPrice,
		&o.Status,
		&createdAt,
		&updatedAt,
	)
	if err != nil {
		return model.ShareOrder{}, err
	}

	if o.LimitPrice, err = ParseNullDecimal(limitPrice); err != nil {
		return model.ShareOrder{}, err
	}
	if o.AverageFillPrice, err = ParseNullDecimal(avgFillPrice); err != nil {
		return model.ShareOrder{}, err
	}
	if o.CreatedAt, err = ParseTime(createdAt); err != nil {
		return model.ShareOrder{}, err
	}
	if o.UpdatedAt, err = ParseTime(updatedAt); err != nil {
		return model.ShareOrder{}, err
	}

	return o, nil
}

// InsertOrder persists a new share order.
func (r *OrderRepository) InsertOrder(ctx context.Context, o *model.ShareOrder) error {
	query := `
		INSERT INTO share_order (` + orderColumns + `)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`

	_, err := r.getQuerier().ExecContext(ctx, query,
		o.ID,
		o.UserID,
		o.TradingAccountID,
		o.Side,
		o.Type,
		o.QuantityOrdered,
		o.QuantityFilled,
		NullDecimalString(o.LimitPrice),
		NullDecimalString(o.AverageFillPrice),
		o.Status,
		FormatTime(o.CreatedAt),
		FormatTime(o.UpdatedAt),
	)
	if err != nil {
		return fmt.Errorf("failed to insert share order: %w", err)
	}

	return nil
}

// GetOrder retrieves a single share order by its ID.
// Returns ErrOrderNotFound if no order with the given ID exists.
func (r *OrderRepository) GetOrder(ctx context.Context, id string) (model.ShareOrder, error) {
	query := `SELECT ` + orderColumns + ` FROM share_order WHERE id = ?`

	order, err := scanOrder(r.getQuerier().QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return model.ShareOrder{}, apperrors.ErrOrderNotFound
		}
		return model.ShareOrder{}, fmt.Errorf("failed to query share order: %w", err)
	}

	return order, nil
}

// UpdateFillState persists the matcher's changes to an order: quantity
// filled, average fill price, status and updated timestamp. Nothing else on
// an order is ever mutated after creation.
func (r *OrderRepository) UpdateFillState(ctx context.Context, o *model.ShareOrder) error {
	query := `
		UPDATE share_order
		SET quantity_filled = ?, average_fill_price = ?, status = ?, updated_at = ?
		WHERE id = ?
	`

	_, err := r.getQuerier().ExecContext(ctx, query,
		o.QuantityFilled,
		NullDecimalString(o.AverageFillPrice),
		o.Status,
		FormatTime(o.UpdatedAt),
		o.ID,
	)
	if err != nil {
		return fmt.Errorf("failed to update share order fill state: %w", err)
	}

	return nil
}

// UpdateStatus transitions an order to the given status, used by cancellation.
func (r *OrderRepository) UpdateStatus(ctx context.Context, id, status, updatedAt string) error {
	query := `UPDATE share_order SET status = ?, updated_at = ? WHERE id = ?`

	_, err := r.getQuerier().ExecContext(ctx, query, status, updatedAt, id)
	if err != nil {
		return fmt.Errorf("failed to update share order status: %w", err)
	}

	return nil
}

// FindRestingOrders returns the matchable counter-side orders for an
// incoming order: Limit orders of the given side on the account, belonging
// to other users, in Open or PartiallyFilled status, price-compatible with
// the aggressor's limit (nil means unconstrained, i.e. a Market aggressor).
//
// Candidates come back in price-time priority: ascending price for resting
// sells, descending price for resting bids, ties broken by creation time
// (oldest first).
func (r *OrderRepository) FindRestingOrders(ctx context.Context, accountID, side, excludeUserID string, aggressorLimit *decimal.Decimal) ([]model.ShareOrder, error) {
	priceOrder := "ASC"
	priceCompare := "<="
	if side == model.OrderSideBuy {
		// Matching an incoming sell: best (highest) bid first.
		priceOrder = "DESC"
		priceCompare = ">="
	}

	query := `
		SELECT ` + orderColumns + `
		FROM share_order
		WHERE trading_account_id = ?
		AND side = ?
		AND user_id != ?
		AND type = ?
		AND status IN (?, ?)
		AND limit_price IS NOT NULL
	`
	args := []any{
		accountID,
		side,
		excludeUserID,
		model.OrderTypeLimit,
		model.OrderStatusOpen,
		model.OrderStatusPartiallyFilled,
	}

	if aggressorLimit != nil {
		query += ` AND CAST(limit_price AS REAL) ` + priceCompare + ` CAST(? AS REAL)`
		args = append(args, aggressorLimit.String())
	}

	query += ` ORDER BY CAST(limit_price AS REAL) ` + priceOrder + `, created_at ASC`

	rows, err := r.getQuerier().QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query resting orders: %w", err)
	}
	defer rows.Close()

	var orders []model.ShareOrder
	for rows.Next() {
		order, err := scanOrder(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan resting order: %w", err)
		}
		orders = append(orders, order)
	}

	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating resting orders: %w", err)
	}

	return orders, nil
}

// GetUserOrders retrieves a user's orders, optionally filtered by trading
// account and status, newest first.
func (r *OrderRepository) GetUserOrders(ctx context.Context, userID, accountID, status string) ([]model.ShareOrder, error) {
	query := `SELECT ` + orderColumns + ` FROM share_order WHERE user_id = ?`
	args := []any{userID}

	if accountID != "" {
		query += ` AND trading_account_id = ?`
		args = append(args, accountID)
	}
	if status != "" {
		query += ` AND status = ?`
		args = append(args, status)
	}

	query += ` ORDER BY created_at DESC`

	rows, err := r.getQuerier().QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query user orders: %w", err)
	}
	defer rows.Close()

	var orders []model.ShareOrder
	for rows.Next() {
		order, err := scanOrder(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan user order: %w", err)
		}
		orders = append(orders, order)
	}

	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating user orders: %w", err)
	}

	return orders, nil
}

// GetBookLevels aggregates resting limit orders of one side into price
// levels. Bids come back in descending price order, asks ascending.
func (r *OrderRepository) GetBookLevels(ctx context.Context, accountID, side string, limit int) ([]model.OrderBookLevel, error) {
	priceOrder := "ASC"
	if side == model.OrderSideBuy {
		priceOrder = "DESC"
	}

	query := `
		SELECT limit_price, SUM(quantity_ordered - quantity_filled) AS quantity, COUNT(*) AS orders
		FROM share_order
		WHERE trading_account_id = ?
		AND side = ?
		AND type = ?
		AND status IN (?, ?)
		AND limit_price IS NOT NULL
		GROUP BY limit_price
		ORDER BY CAST(limit_price AS REAL) ` + priceOrder + `
		LIMIT ?
	`

	rows, err := r.getQuerier().QueryContext(ctx, query,
		accountID,
		side,
		model.OrderTypeLimit,
		model.OrderStatusOpen,
		model.OrderStatusPartiallyFilled,
		limit,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to query order book levels: %w", err)
	}
	defer rows.Close()

	var levels []model.OrderBookLevel
	for rows.Next() {
		var level model.OrderBookLevel
		var price string

		if err := rows.Scan(&price, &level.Quantity, &level.Orders); err != nil {
			return nil, fmt.Errorf("failed to scan order book level: %w", err)
		}
		if level.Price, err = ParseDecimal(price); err != nil {
			return nil, err
		}

		levels = append(levels, level)
	}

	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating order book levels: %w", err)
	}

	return levels, nil
}
