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

// WalletRepository provides data access methods for the wallet and
// wallet_transaction tables.
type WalletRepository struct {
	db *sql.DB
	tx *sql.Tx
}

// NewWalletRepository creates a new WalletRepository with the provided database connection.
func NewWalletRepository(db *sql.DB) *WalletRepository {
	return &WalletRepository{db: db}
}

// WithTx returns a new WalletRepository scoped to the provided transaction.
func (r *WalletRepository) WithTx(tx *sql.Tx) *WalletRepository {
	return &WalletRepository{db: r.db, tx: tx}
}

// getQuerier returns the active transaction if one is set, otherwise the database connection.
func (r *WalletRepository) getQuerier() interface {
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
} {
	if r.tx != nil {
		return r.tx
	}
	return r.db
}

func scanWallet(row interface{ Scan(dest ...any) error }) (model.Wallet, error) {
	var w model.Wallet
	var balance, updatedAt string

	err := row.Scan(&w.ID, &w.UserID, &balance, &w.Currency, &updatedAt)
	if err != nil {
		return model.Wallet{}, err
	}

	if w.Balance, err = ParseDecimal(balance); err != nil {
		return model.Wallet{}, err
	}
	if w.UpdatedAt, err = ParseTime(updatedAt); err != nil {
		return model.Wallet{}, err
	}

	return w, nil
}

// GetWalletByUser retrieves a user's wallet.
// Returns ErrWalletNotFound if the user has no wallet record.
func (r *WalletRepository) GetWalletByUser(ctx context.Context, userID string) (model.Wallet, error) {
	query := `SELECT id, user_id, balance, currency, updated_at FROM wallet WHERE user_id = ?`

	wallet, err := scanWallet(r.getQuerier().QueryRowContext(ctx, query, userID))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return model.Wallet{}, apperrors.ErrWalletNotFound
		}
		return model.Wallet{}, fmt.Errorf("failed to query wallet: %w", err)
	}

	return wallet, nil
}

// InsertWallet persists a new wallet.
func (r *WalletRepository) InsertWallet(ctx context.Context, w *model.Wallet) error {
	query := `
		INSERT INTO wallet (id, user_id, balance, currency, updated_at)
		VALUES (?, ?, ?, ?, ?)
	`

	_, err := r.getQuerier().ExecContext(ctx, query,
		w.ID,
		w.UserID,
		w.Balance.String(),
		w.Currency,
		FormatTime(w.UpdatedAt),
	)
	if err != nil {
		return fmt.Errorf("failed to insert wallet: %w", err)
	}

	return nil
}

// UpdateBalance sets a wallet's balance.
func (r *WalletRepository) UpdateBalance(ctx context.Context, walletID string, balance decimal.Decimal, updatedAt string) error {
	query := `UPDATE wallet SET balance = ?, updated_at = ? WHERE id = ?`

	_, err := r.getQuerier().ExecContext(ctx, query, balance.String(), updatedAt, walletID)
	if err != nil {
		return fmt.Errorf("failed to update wallet balance: %w", err)
	}

	return nil
}

// InsertTransaction persists a new wallet ledger entry.
func (r *WalletRepository) InsertTransaction(ctx context.Context, t *model.WalletTransaction) error {
	query := `
		INSERT INTO wallet_transaction (id, wallet_id, type, amount, balance_before,
			balance_after, description, reference_id, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`

	_, err := r.getQuerier().ExecContext(ctx, query,
		t.ID,
		t.WalletID,
		t.Type,
		t.Amount.String(),
		t.BalanceBefore.String(),
		t.BalanceAfter.String(),
		t.Description,
		t.ReferenceID,
		FormatTime(t.CreatedAt),
	)
	if err != nil {
		return fmt.Errorf("failed to insert wallet transaction: %w", err)
	}

	return nil
}

// GetTransactions retrieves a wallet's ledger entries, newest first.
func (r *WalletRepository) GetTransactions(ctx context.Context, walletID string) ([]model.WalletTransaction, error) {
	query := `
		SELECT id, wallet_id, type, amount, balance_before, balance_after,
			description, reference_id, created_at
		FROM wallet_transaction
		WHERE wallet_id = ?
		ORDER BY created_at DESC
	`

	rows, err := r.getQuerier().QueryContext(ctx, query, walletID)
	if err != nil {
		return nil, fmt.Errorf("failed to query wallet transactions: %w", err)
	}
	defer rows.Close()

	var transactions []model.WalletTransaction
	for rows.Next() {
		var t model.WalletTransaction
		var amount, before, after, createdAt string
		var description, referenceID sql.NullString

		err := rows.Scan(&t.ID, &t.WalletID, &t.Type, &amount, &before, &after,
			&description, &referenceID, &createdAt)
		if err != nil {
			return nil, fmt.Errorf("failed to scan wallet transaction: %w", err)
		}

		if t.Amount, err = ParseDecimal(amount); err != nil {
			return nil, err
		}
		if t.BalanceBefore, err = ParseDecimal(before); err != nil {
			return nil, err
		}
		if t.BalanceAfter, err = ParseDecimal(after); err != nil {
			return nil, err
		}
		if t.CreatedAt, err = ParseTime(createdAt); err != nil {
			return nil, err
		}
		t.Description = description.String
		t.ReferenceID = referenceID.String

		transactions = append(transactions, t)
	}

	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating wallet transactions: %w", err)
	}

	return transactions, nil
}
