package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/fundshare/exchange-backend/internal/model"
)

// DistributionRepository provides data access methods for the profit_distribution_log table.
type DistributionRepository struct {
	db *sql.DB
	tx *sql.Tx
}

// NewDistributionRepository creates a new DistributionRepository with the provided database connection.
func NewDistributionRepository(db *sql.DB) *DistributionRepository {
	return &DistributionRepository{db: db}
}

// WithTx returns a new DistributionRepository scoped to the provided transaction.
func (r *DistributionRepository) WithTx(tx *sql.Tx) *DistributionRepository {
	return &DistributionRepository{db: r.db, tx: tx}
}

// getQuerier returns the active transaction if one is set, otherwise the database connection.
func (r *DistributionRepository) getQuerier() interface {
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
} {
	if r.tx != nil {
		return r.tx
	}
	return r.db
}

const distributionColumns = `id, snapshot_id, trading_account_id, user_id, distribution_date,
	shares_held, profit_per_share, total_amount, wallet_transaction_id, created_at`

func scanDistributionLog(row interface{ Scan(dest ...any) error }) (model.ProfitDistributionLog, error) {
	var l model.ProfitDistributionLog
	var distributionDate, profitPerShare, totalAmount, createdAt string
	var walletTxID sql.NullString

	err := row.Scan(
		&l.ID,
		&l.SnapshotID,
		&l.TradingAccountID,
		&l.UserID,
		&distributionDate,
		&l.SharesHeld,
		&profitPerShare,
		&totalAmount,
		&walletTxID,
		&createdAt,
	)
	if err != nil {
		return model.ProfitDistributionLog{}, err
	}

	if l.DistributionDate, err = ParseTime(distributionDate); err != nil {
		return model.ProfitDistributionLog{}, err
	}
	if l.ProfitPerShare, err = ParseDecimal(profitPerShare); err != nil {
		return model.ProfitDistributionLog{}, err
	}
	if l.TotalAmount, err = ParseDecimal(totalAmount); err != nil {
		return model.ProfitDistributionLog{}, err
	}
	if l.CreatedAt, err = ParseTime(createdAt); err != nil {
		return model.ProfitDistributionLog{}, err
	}
	if walletTxID.Valid {
		l.WalletTransactionID = walletTxID.String
	}

	return l, nil
}

// InsertLog persists a new distribution log entry.
func (r *DistributionRepository) InsertLog(ctx context.Context, l *model.ProfitDistributionLog) error {
	query := `
		INSERT INTO profit_distribution_log (` + distributionColumns + `)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`

	var walletTxID any
	if l.WalletTransactionID != "" {
		walletTxID = l.WalletTransactionID
	}

	_, err := r.getQuerier().ExecContext(ctx, query,
		l.ID,
		l.SnapshotID,
		l.TradingAccountID,
		l.UserID,
		FormatDate(l.DistributionDate),
		l.SharesHeld,
		l.ProfitPerShare.String(),
		l.TotalAmount.String(),
		walletTxID,
		FormatTime(l.CreatedAt),
	)
	if err != nil {
		return fmt.Errorf("failed to insert distribution log: %w", err)
	}

	return nil
}

// GetLogsBySnapshot retrieves all distribution logs tied to a snapshot.
func (r *DistributionRepository) GetLogsBySnapshot(ctx context.Context, snapshotID string) ([]model.ProfitDistributionLog, error) {
	query := `
		SELECT ` + distributionColumns + `
		FROM profit_distribution_log
		WHERE snapshot_id = ?
		ORDER BY user_id ASC
	`

	rows, err := r.getQuerier().QueryContext(ctx, query, snapshotID)
	if err != nil {
		return nil, fmt.Errorf("failed to query distribution logs: %w", err)
	}
	defer rows.Close()

	var logs []model.ProfitDistributionLog
	for rows.Next() {
		logEntry, err := scanDistributionLog(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan distribution log: %w", err)
		}
		logs = append(logs, logEntry)
	}

	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating distribution logs: %w", err)
	}

	return logs, nil
}

// GetUserLogs retrieves a user's distribution history, optionally filtered
// by trading account, newest first.
func (r *DistributionRepository) GetUserLogs(ctx context.Context, userID, accountID string) ([]model.ProfitDistributionLog, error) {
	query := `SELECT ` + distributionColumns + ` FROM profit_distribution_log WHERE user_id = ?`
	args := []any{userID}

	if accountID != "" {
		query += ` AND trading_account_id = ?`
		args = append(args, accountID)
	}

	query += ` ORDER BY distribution_date DESC, created_at DESC`

	rows, err := r.getQuerier().QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query user distribution logs: %w", err)
	}
	defer rows.Close()

	var logs []model.ProfitDistributionLog
	for rows.Next() {
		logEntry, err := scanDistributionLog(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan user distribution log: %w", err)
		}
		logs = append(logs, logEntry)
	}

	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating user distribution logs: %w", err)
	}

	return logs, nil
}

// DeleteLog removes one distribution log entry as part of a reversal.
func (r *DistributionRepository) DeleteLog(ctx context.Context, id string) error {
	query := `DELETE FROM profit_distribution_log WHERE id = ?`

	if _, err := r.getQuerier().ExecContext(ctx, query, id); err != nil {
		return fmt.Errorf("failed to delete distribution log: %w", err)
	}

	return nil
}
