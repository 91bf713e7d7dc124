package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/fundshare/exchange-backend/internal/apperrors"
	"github.com/fundshare/exchange-backend/internal/model"
)

// PortfolioRepository provides data access methods for the share_portfolio table.
type PortfolioRepository struct {
	db *sql.DB
	tx *sql.Tx
}

// NewPortfolioRepository creates a new PortfolioRepository with the provided database connection.
func NewPortfolioRepository(db *sql.DB) *PortfolioRepository {
	return &PortfolioRepository{db: db}
}

// WithTx returns a new PortfolioRepository scoped to the provided transaction.
func (r *PortfolioRepository) WithTx(tx *sql.Tx) *PortfolioRepository {
	return &PortfolioRepository{db: r.db, tx: tx}
}

// getQuerier returns the active transaction if one is set, otherwise the database connection.
func (r *PortfolioRepository) getQuerier() interface {
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
} {
	if r.tx != nil {
		return r.tx
	}
	return r.db
}

const portfolioColumns = `id, user_id, trading_account_id, quantity, average_buy_price, last_updated_at`

func scanPortfolio(row interface{ Scan(dest ...any) error }) (model.SharePortfolio, error) {
	var p model.SharePortfolio
	var avgPrice, lastUpdated string

	err := row.Scan(
		&p.ID,
		&p.UserID,
		&p.TradingAccountID,
		&p.Quantity,
		&avgPrice,
		&lastUpdated,
	)
	if err != nil {
		return model.SharePortfolio{}, err
	}

	if p.AverageBuyPrice, err = ParseDecimal(avgPrice); err != nil {
		return model.SharePortfolio{}, err
	}
	if p.LastUpdatedAt, err = ParseTime(lastUpdated); err != nil {
		return model.SharePortfolio{}, err
	}

	return p, nil
}

// GetPosition retrieves a user's position in one trading account.
// Returns ErrPortfolioNotFound if the user has never held shares of the account.
func (r *PortfolioRepository) GetPosition(ctx context.Context, userID, accountID string) (model.SharePortfolio, error) {
	query := `
		SELECT ` + portfolioColumns + `
		FROM share_portfolio
		WHERE user_id = ? AND trading_account_id = ?
	`

	position, err := scanPortfolio(r.getQuerier().QueryRowContext(ctx, query, userID, accountID))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return model.SharePortfolio{}, apperrors.ErrPortfolioNotFound
		}
		return model.SharePortfolio{}, fmt.Errorf("failed to query portfolio position: %w", err)
	}

	return position, nil
}

// InsertPosition persists a brand-new position row.
func (r *PortfolioRepository) InsertPosition(ctx context.Context, p *model.SharePortfolio) error {
	query := `
		INSERT INTO share_portfolio (` + portfolioColumns + `)
		VALUES (?, ?, ?, ?, ?, ?)
	`

	_, err := r.getQuerier().ExecContext(ctx, query,
		p.ID,
		p.UserID,
		p.TradingAccountID,
		p.Quantity,
		p.AverageBuyPrice.String(),
		FormatTime(p.LastUpdatedAt),
	)
	if err != nil {
		return fmt.Errorf("failed to insert portfolio position: %w", err)
	}

	return nil
}

// UpdatePosition persists a changed quantity and average price. Position
// rows are never deleted; quantity may reach zero and stay.
func (r *PortfolioRepository) UpdatePosition(ctx context.Context, p *model.SharePortfolio) error {
	query := `
		UPDATE share_portfolio
		SET quantity = ?, average_buy_price = ?, last_updated_at = ?
		WHERE id = ?
	`

	_, err := r.getQuerier().ExecContext(ctx, query,
		p.Quantity,
		p.AverageBuyPrice.String(),
		FormatTime(p.LastUpdatedAt),
		p.ID,
	)
	if err != nil {
		return fmt.Errorf("failed to update portfolio position: %w", err)
	}

	return nil
}

// GetShareholders retrieves every position with quantity > 0 for a trading
// account, i.e. the current shareholders eligible for profit distribution.
func (r *PortfolioRepository) GetShareholders(ctx context.Context, accountID string) ([]model.SharePortfolio, error) {
	query := `
		SELECT ` + portfolioColumns + `
		FROM share_portfolio
		WHERE trading_account_id = ? AND quantity > 0
		ORDER BY user_id ASC
	`

	rows, err := r.getQuerier().QueryContext(ctx, query, accountID)
	if err != nil {
		return nil, fmt.Errorf("failed to query shareholders: %w", err)
	}
	defer rows.Close()

	var holders []model.SharePortfolio
	for rows.Next() {
		holder, err := scanPortfolio(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan shareholder: %w", err)
		}
		holders = append(holders, holder)
	}

	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating shareholders: %w", err)
	}

	return holders, nil
}

// GetUserPositions retrieves all of a user's positions with quantity > 0.
func (r *PortfolioRepository) GetUserPositions(ctx context.Context, userID string) ([]model.SharePortfolio, error) {
	query := `
		SELECT ` + portfolioColumns + `
		FROM share_portfolio
		WHERE user_id = ? AND quantity > 0
		ORDER BY last_updated_at DESC
	`

	rows, err := r.getQuerier().QueryContext(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to query user positions: %w", err)
	}
	defer rows.Close()

	var positions []model.SharePortfolio
	for rows.Next() {
		position, err := scanPortfolio(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan user position: %w", err)
		}
		positions = append(positions, position)
	}

	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating user positions: %w", err)
	}

	return positions, nil
}
