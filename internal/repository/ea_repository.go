package repository

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/fundshare/exchange-backend/internal/model"
)

// EARepository provides data access methods for the ea_closed_trade and
// ea_open_position tables fed by the trading robots.
type EARepository struct {
	db *sql.DB
	tx *sql.Tx
}

// NewEARepository creates a new EARepository with the provided database connection.
func NewEARepository(db *sql.DB) *EARepository {
	return &EARepository{db: db}
}

// WithTx returns a new EARepository scoped to the provided transaction.
func (r *EARepository) WithTx(tx *sql.Tx) *EARepository {
	return &EARepository{db: r.db, tx: tx}
}

// getQuerier returns the active transaction if one is set, otherwise the database connection.
func (r *EARepository) getQuerier() interface {
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
} {
	if r.tx != nil {
		return r.tx
	}
	return r.db
}

// InsertClosedTrade persists a reported closed trade. Re-pushed tickets are
// ignored: the unique (account, ticket) constraint keeps each ticket feeding
// exactly one snapshot.
func (r *EARepository) InsertClosedTrade(ctx context.Context, t *model.EAClosedTrade) error {
	query := `
		INSERT OR IGNORE INTO ea_closed_trade (id, trading_account_id, ea_ticket_id,
			realized_pl, close_time, is_processed)
		VALUES (?, ?, ?, ?, ?, ?)
	`

	_, err := r.getQuerier().ExecContext(ctx, query,
		t.ID,
		t.TradingAccountID,
		t.EATicketID,
		t.RealizedPL.String(),
		FormatTime(t.CloseTime),
		t.IsProcessed,
	)
	if err != nil {
		return fmt.Errorf("failed to insert EA closed trade: %w", err)
	}

	return nil
}

// GetUnprocessedClosedTrades retrieves the account's closed trades whose
// close time falls on the given date and which no snapshot has consumed yet.
func (r *EARepository) GetUnprocessedClosedTrades(ctx context.Context, accountID string, date time.Time) ([]model.EAClosedTrade, error) {
	dayStart := time.Date(date.Year(), date.Month(), date.Day(), 0, 0, 0, 0, time.UTC)
	dayEnd := dayStart.Add(24 * time.Hour)

	query := `
		SELECT id, trading_account_id, ea_ticket_id, realized_pl, close_time, is_processed
		FROM ea_closed_trade
		WHERE trading_account_id = ?
		AND is_processed = FALSE
		AND close_time >= ?
		AND close_time < ?
		ORDER BY close_time ASC
	`

	rows, err := r.getQuerier().QueryContext(ctx, query, accountID, FormatTime(dayStart), FormatTime(dayEnd))
	if err != nil {
		return nil, fmt.Errorf("failed to query unprocessed EA trades: %w", err)
	}
	defer rows.Close()

	var trades []model.EAClosedTrade
	for rows.Next() {
		var t model.EAClosedTrade
		var realizedPL, closeTime string

		if err := rows.Scan(&t.ID, &t.TradingAccountID, &t.EATicketID, &realizedPL, &closeTime, &t.IsProcessed); err != nil {
			return nil, fmt.Errorf("failed to scan EA closed trade: %w", err)
		}
		if t.RealizedPL, err = ParseDecimal(realizedPL); err != nil {
			return nil, err
		}
		if t.CloseTime, err = ParseTime(closeTime); err != nil {
			return nil, err
		}

		trades = append(trades, t)
	}

	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating EA closed trades: %w", err)
	}

	return trades, nil
}

// MarkTradesProcessed flags the given closed trades as consumed by a
// snapshot. The flag flips false to true exactly once per row.
func (r *EARepository) MarkTradesProcessed(ctx context.Context, ids []string) error {
	if len(ids) == 0 {
		return nil
	}

	placeholders := make([]string, len(ids))
	args := make([]any, len(ids))
	for i, id := range ids {
		placeholders[i] = "?"
		args[i] = id
	}

	query := `UPDATE ea_closed_trade SET is_processed = TRUE WHERE id IN (` + strings.Join(placeholders, ",") + `)`

	if _, err := r.getQuerier().ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("failed to mark EA trades processed: %w", err)
	}

	return nil
}

// ResetTradesProcessed clears the processed flag on the account's closed
// trades whose close time falls on the given date, returning them to the
// pool the next snapshot run for that date will consume.
func (r *EARepository) ResetTradesProcessed(ctx context.Context, accountID string, date time.Time) error {
	dayStart := time.Date(date.Year(), date.Month(), date.Day(), 0, 0, 0, 0, time.UTC)
	dayEnd := dayStart.Add(24 * time.Hour)

	query := `
		UPDATE ea_closed_trade
		SET is_processed = FALSE
		WHERE trading_account_id = ?
		AND close_time >= ?
		AND close_time < ?
	`

	if _, err := r.getQuerier().ExecContext(ctx, query, accountID, FormatTime(dayStart), FormatTime(dayEnd)); err != nil {
		return fmt.Errorf("failed to reset EA trades for recalculation: %w", err)
	}

	return nil
}

// UpsertOpenPosition records the current floating P&L of one open position.
func (r *EARepository) UpsertOpenPosition(ctx context.Context, p *model.EAOpenPosition) error {
	query := `
		INSERT INTO ea_open_position (id, trading_account_id, ea_ticket_id, floating_pl, updated_at)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(trading_account_id, ea_ticket_id)
		DO UPDATE SET floating_pl = excluded.floating_pl, updated_at = excluded.updated_at
	`

	_, err := r.getQuerier().ExecContext(ctx, query,
		p.ID,
		p.TradingAccountID,
		p.EATicketID,
		p.FloatingPL.String(),
		FormatTime(p.UpdatedAt),
	)
	if err != nil {
		return fmt.Errorf("failed to upsert EA open position: %w", err)
	}

	return nil
}

// DeleteOpenPositionsExcept removes open positions whose tickets are no
// longer reported, so the table mirrors the robot's current book.
func (r *EARepository) DeleteOpenPositionsExcept(ctx context.Context, accountID string, keepTickets []string) error {
	if len(keepTickets) == 0 {
		query := `DELETE FROM ea_open_position WHERE trading_account_id = ?`
		if _, err := r.getQuerier().ExecContext(ctx, query, accountID); err != nil {
			return fmt.Errorf("failed to clear EA open positions: %w", err)
		}
		return nil
	}

	placeholders := make([]string, len(keepTickets))
	args := make([]any, 0, len(keepTickets)+1)
	args = append(args, accountID)
	for i, ticket := range keepTickets {
		placeholders[i] = "?"
		args = append(args, ticket)
	}

	query := `
		DELETE FROM ea_open_position
		WHERE trading_account_id = ?
		AND ea_ticket_id NOT IN (` + strings.Join(placeholders, ",") + `)
	`

	if _, err := r.getQuerier().ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("failed to prune EA open positions: %w", err)
	}

	return nil
}

// SumFloatingPL sums the floating P&L across the account's currently open
// positions, a point-in-time value read by the snapshot engine.
func (r *EARepository) SumFloatingPL(ctx context.Context, accountID string) (decimal.Decimal, error) {
	query := `SELECT COALESCE(floating_pl, '0') FROM ea_open_position WHERE trading_account_id = ?`

	rows, err := r.getQuerier().QueryContext(ctx, query, accountID)
	if err != nil {
		return decimal.Decimal{}, fmt.Errorf("failed to query floating P&L: %w", err)
	}
	defer rows.Close()

	total := decimal.Zero
	for rows.Next() {
		var plStr string
		if err := rows.Scan(&plStr); err != nil {
			return decimal.Decimal{}, fmt.Errorf("failed to scan floating P&L: %w", err)
		}
		pl, err := ParseDecimal(plStr)
		if err != nil {
			return decimal.Decimal{}, err
		}
		total = total.Add(pl)
	}

	if err = rows.Err(); err != nil {
		return decimal.Decimal{}, fmt.Errorf("error iterating floating P&L: %w", err)
	}

	return total, nil
}
