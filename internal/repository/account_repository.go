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

// AccountRepository provides data access methods for the trading_account table.
type AccountRepository struct {
	db *sql.DB
	tx *sql.Tx
}

// NewAccountRepository creates a new AccountRepository with the provided database connection.
func NewAccountRepository(db *sql.DB) *AccountRepository {
	return &AccountRepository{db: db}
}

// WithTx returns a new AccountRepository scoped to the provided transaction.
func (r *AccountRepository) WithTx(tx *sql.Tx) *AccountRepository {
	return &AccountRepository{db: r.db, tx: tx}
}

// getQuerier returns the active transaction if one is set, otherwise the database connection.
func (r *AccountRepository) getQuerier() interface {
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
} {
	if r.tx != nil {
		return r.tx
	}
	return r.db
}

const accountColumns = `id, name, initial_capital, total_shares_issued, current_nav,
	management_fee_rate, is_active, created_at, updated_at`

func scanAccount(row interface{ Scan(dest ...any) error }) (model.TradingAccount, error) {
	var a model.TradingAccount
	var initialCapital, currentNav, feeRate, createdAt, updatedAt string

	err := row.Scan(
		&a.ID,
		&a.Name,
		&initialCapital,
		&a.TotalSharesIssued,
		&currentNav,
		&feeRate,
		&a.IsActive,
		&createdAt,
		&updatedAt,
	)
	if err != nil {
		return model.TradingAccount{}, err
	}

	if a.InitialCapital, err = ParseDecimal(initialCapital); err != nil {
		return model.TradingAccount{}, err
	}
	if a.CurrentNav, err = ParseDecimal(currentNav); err != nil {
		return model.TradingAccount{}, err
	}
	if a.ManagementFeeRate, err = ParseDecimal(feeRate); err != nil {
		return model.TradingAccount{}, err
	}
	if a.CreatedAt, err = ParseTime(createdAt); err != nil {
		return model.TradingAccount{}, err
	}
	if a.UpdatedAt, err = ParseTime(updatedAt); err != nil {
		return model.TradingAccount{}, err
	}

	return a, nil
}

// GetAccount retrieves a single trading account by its ID.
// Returns ErrAccountNotFound if no account with the given ID exists.
func (r *AccountRepository) GetAccount(ctx context.Context, id string) (model.TradingAccount, error) {
	query := `SELECT ` + accountColumns + ` FROM trading_account WHERE id = ?`

	account, err := scanAccount(r.getQuerier().QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return model.TradingAccount{}, apperrors.ErrAccountNotFound
		}
		return model.TradingAccount{}, fmt.Errorf("failed to query trading account: %w", err)
	}

	return account, nil
}

// GetActiveAccounts retrieves all active trading accounts, ordered by name.
func (r *AccountRepository) GetActiveAccounts(ctx context.Context) ([]model.TradingAccount, error) {
	query := `SELECT ` + accountColumns + ` FROM trading_account WHERE is_active = TRUE ORDER BY name ASC`

	rows, err := r.getQuerier().QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to query active trading accounts: %w", err)
	}
	defer rows.Close()

	var accounts []model.TradingAccount
	for rows.Next() {
		account, err := scanAccount(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan trading account: %w", err)
		}
		accounts = append(accounts, account)
	}

	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating trading accounts: %w", err)
	}

	return accounts, nil
}

// InsertAccount persists a new trading account.
func (r *AccountRepository) InsertAccount(ctx context.Context, a *model.TradingAccount) error {
	query := `
		INSERT INTO trading_account (` + accountColumns + `)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`

	_, err := r.getQuerier().ExecContext(ctx, query,
		a.ID,
		a.Name,
		a.InitialCapital.String(),
		a.TotalSharesIssued,
		a.CurrentNav.String(),
		a.ManagementFeeRate.String(),
		a.IsActive,
		FormatTime(a.CreatedAt),
		FormatTime(a.UpdatedAt),
	)
	if err != nil {
		return fmt.Errorf("failed to insert trading account: %w", err)
	}

	return nil
}

// UpdateNav sets the account's current NAV as pushed by the EA integration.
func (r *AccountRepository) UpdateNav(ctx context.Context, id string, nav decimal.Decimal, updatedAt string) error {
	query := `UPDATE trading_account SET current_nav = ?, updated_at = ? WHERE id = ?`

	result, err := r.getQuerier().ExecContext(ctx, query, nav.String(), updatedAt, id)
	if err != nil {
		return fmt.Errorf("failed to update account NAV: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to check NAV update result: %w", err)
	}
	if affected == 0 {
		return apperrors.ErrAccountNotFound
	}

	return nil
}
