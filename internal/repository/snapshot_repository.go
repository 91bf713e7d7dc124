package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/fundshare/exchange-backend/internal/apperrors"
	"github.com/fundshare/exchange-backend/internal/model"
)

// SnapshotRepository provides data access methods for the trading_account_snapshot table.
type SnapshotRepository struct {
	db *sql.DB
	tx *sql.Tx
}

// NewSnapshotRepository creates a new SnapshotRepository with the provided database connection.
func NewSnapshotRepository(db *sql.DB) *SnapshotRepository {
	return &SnapshotRepository{db: db}
}

// WithTx returns a new SnapshotRepository scoped to the provided transaction.
func (r *SnapshotRepository) WithTx(tx *sql.Tx) *SnapshotRepository {
	return &SnapshotRepository{db: r.db, tx: tx}
}

// getQuerier returns the active transaction if one is set, otherwise the database connection.
func (r *SnapshotRepository) getQuerier() interface {
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
} {
	if r.tx != nil {
		return r.tx
	}
	return r.db
}

const snapshotColumns = `id, trading_account_id, snapshot_date, opening_nav, realized_pl,
	unrealized_pl, management_fee, profit_distributed, closing_nav, closing_share_price, created_at`

func scanSnapshot(row interface{ Scan(dest ...any) error }) (model.TradingAccountSnapshot, error) {
	var s model.TradingAccountSnapshot
	var snapshotDate, openingNav, realizedPL, unrealizedPL string
	var fee, distributed, closingNav, closingPrice, createdAt string

	err := row.Scan(
		&s.ID,
		&s.TradingAccountID,
		&snapshotDate,
		&openingNav,
		&realizedPL,
		&unrealizedPL,
		&fee,
		&distributed,
		&closingNav,
		&closingPrice,
		&createdAt,
	)
	if err != nil {
		return model.TradingAccountSnapshot{}, err
	}

	if s.SnapshotDate, err = ParseTime(snapshotDate); err != nil {
		return model.TradingAccountSnapshot{}, err
	}
	if s.OpeningNav, err = ParseDecimal(openingNav); err != nil {
		return model.TradingAccountSnapshot{}, err
	}
	if s.RealizedPL, err = ParseDecimal(realizedPL); err != nil {
		return model.TradingAccountSnapshot{}, err
	}
	if s.UnrealizedPL, err = ParseDecimal(unrealizedPL); err != nil {
		return model.TradingAccountSnapshot{}, err
	}
	if s.ManagementFee, err = ParseDecimal(fee); err != nil {
		return model.TradingAccountSnapshot{}, err
	}
	if s.ProfitDistributed, err = ParseDecimal(distributed); err != nil {
		return model.TradingAccountSnapshot{}, err
	}
	if s.ClosingNav, err = ParseDecimal(closingNav); err != nil {
		return model.TradingAccountSnapshot{}, err
	}
	if s.ClosingSharePrice, err = ParseDecimal(closingPrice); err != nil {
		return model.TradingAccountSnapshot{}, err
	}
	if s.CreatedAt, err = ParseTime(createdAt); err != nil {
		return model.TradingAccountSnapshot{}, err
	}

	return s, nil
}

// InsertSnapshot persists a complete snapshot row. The snapshot id is
// generated by the caller before distribution runs, so the row is written
// exactly once with its final figures.
func (r *SnapshotRepository) InsertSnapshot(ctx context.Context, s *model.TradingAccountSnapshot) error {
	query := `
		INSERT INTO trading_account_snapshot (` + snapshotColumns + `)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`

	_, err := r.getQuerier().ExecContext(ctx, query,
		s.ID,
		s.TradingAccountID,
		FormatDate(s.SnapshotDate),
		s.OpeningNav.String(),
		s.RealizedPL.String(),
		s.UnrealizedPL.String(),
		s.ManagementFee.String(),
		s.ProfitDistributed.String(),
		s.ClosingNav.String(),
		s.ClosingSharePrice.String(),
		FormatTime(s.CreatedAt),
	)
	if err != nil {
		return fmt.Errorf("failed to insert snapshot: %w", err)
	}

	return nil
}

// SnapshotExists reports whether a snapshot exists for (account, date).
func (r *SnapshotRepository) SnapshotExists(ctx context.Context, accountID string, date time.Time) (bool, error) {
	query := `SELECT COUNT(*) FROM trading_account_snapshot WHERE trading_account_id = ? AND snapshot_date = ?`

	var count int
	if err := r.getQuerier().QueryRowContext(ctx, query, accountID, FormatDate(date)).Scan(&count); err != nil {
		return false, fmt.Errorf("failed to check snapshot existence: %w", err)
	}

	return count > 0, nil
}

// GetSnapshot retrieves the snapshot for (account, date).
// Returns ErrSnapshotNotFound if none exists.
func (r *SnapshotRepository) GetSnapshot(ctx context.Context, accountID string, date time.Time) (model.TradingAccountSnapshot, error) {
	query := `
		SELECT ` + snapshotColumns + `
		FROM trading_account_snapshot
		WHERE trading_account_id = ? AND snapshot_date = ?
	`

	snapshot, err := scanSnapshot(r.getQuerier().QueryRowContext(ctx, query, accountID, FormatDate(date)))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return model.TradingAccountSnapshot{}, apperrors.ErrSnapshotNotFound
		}
		return model.TradingAccountSnapshot{}, fmt.Errorf("failed to query snapshot: %w", err)
	}

	return snapshot, nil
}

// GetPreviousSnapshot retrieves the most recent snapshot strictly before the
// given date, used to derive opening NAV.
// Returns ErrSnapshotNotFound if the account has no earlier snapshot.
func (r *SnapshotRepository) GetPreviousSnapshot(ctx context.Context, accountID string, before time.Time) (model.TradingAccountSnapshot, error) {
	query := `
		SELECT ` + snapshotColumns + `
		FROM trading_account_snapshot
		WHERE trading_account_id = ? AND snapshot_date < ?
		ORDER BY snapshot_date DESC
		LIMIT 1
	`

	snapshot, err := scanSnapshot(r.getQuerier().QueryRowContext(ctx, query, accountID, FormatDate(before)))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return model.TradingAccountSnapshot{}, apperrors.ErrSnapshotNotFound
		}
		return model.TradingAccountSnapshot{}, fmt.Errorf("failed to query previous snapshot: %w", err)
	}

	return snapshot, nil
}

// UpdateDistributionFigures rewrites the fee, distribution and closing
// figures of an existing snapshot after a recalculation.
func (r *SnapshotRepository) UpdateDistributionFigures(ctx context.Context, s *model.TradingAccountSnapshot) error {
	query := `
		UPDATE trading_account_snapshot
		SET management_fee = ?, profit_distributed = ?, closing_nav = ?, closing_share_price = ?
		WHERE id = ?
	`

	_, err := r.getQuerier().ExecContext(ctx, query,
		s.ManagementFee.String(),
		s.ProfitDistributed.String(),
		s.ClosingNav.String(),
		s.ClosingSharePrice.String(),
		s.ID,
	)
	if err != nil {
		return fmt.Errorf("failed to update snapshot distribution figures: %w", err)
	}

	return nil
}

// DeleteSnapshot removes a snapshot row. Only forced recalculation does
// this, and only after reversing the snapshot's distribution.
func (r *SnapshotRepository) DeleteSnapshot(ctx context.Context, id string) error {
	query := `DELETE FROM trading_account_snapshot WHERE id = ?`

	result, err := r.getQuerier().ExecContext(ctx, query, id)
	if err != nil {
		return fmt.Errorf("failed to delete snapshot: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to check snapshot delete result: %w", err)
	}
	if affected == 0 {
		return apperrors.ErrSnapshotNotFound
	}

	return nil
}

// GetSnapshots retrieves an account's snapshots within the inclusive date
// range, newest first. Zero time bounds are treated as open ends.
func (r *SnapshotRepository) GetSnapshots(ctx context.Context, accountID string, from, to time.Time) ([]model.TradingAccountSnapshot, error) {
	query := `SELECT ` + snapshotColumns + ` FROM trading_account_snapshot WHERE trading_account_id = ?`
	args := []any{accountID}

	if !from.IsZero() {
		query += ` AND snapshot_date >= ?`
		args = append(args, FormatDate(from))
	}
	if !to.IsZero() {
		query += ` AND snapshot_date <= ?`
		args = append(args, FormatDate(to))
	}

	query += ` ORDER BY snapshot_date DESC`

	rows, err := r.getQuerier().QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query snapshots: %w", err)
	}
	defer rows.Close()

	var snapshots []model.TradingAccountSnapshot
	for rows.Next() {
		snapshot, err := scanSnapshot(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan snapshot: %w", err)
		}
		snapshots = append(snapshots, snapshot)
	}

	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating snapshots: %w", err)
	}

	return snapshots, nil
}
