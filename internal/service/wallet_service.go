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

// WalletService posts credits and debits against user wallets. Every
// posting records a WalletTransaction row carrying the balance before and
// after, so the transaction history alone reconstructs the balance.
type WalletService struct {
	walletRepo *repository.WalletRepository
}

// NewWalletService creates a wallet service.
func NewWalletService(walletRepo *repository.WalletRepository) *WalletService {
	return &WalletService{walletRepo: walletRepo}
}

func (s *WalletService) repo(tx *sql.Tx) *repository.WalletRepository {
	if tx != nil {
		return s.walletRepo.WithTx(tx)
	}
	return s.walletRepo
}

// Credit increases the wallet balance of userID by amount and records a
// transaction of the given type. Amount must be positive.
func (s *WalletService) Credit(ctx context.Context, tx *sql.Tx, userID string, amount decimal.Decimal, txType, referenceID, description string) (model.WalletTransaction, error) {
	return s.post(ctx, tx, userID, amount, txType, referenceID, description)
}

// Debit decreases the wallet balance of userID by amount. Overdrawing is
// refused with ErrInsufficientFunds, except for profit distribution
// reversals, which are posted even when they drive the balance negative so
// that a recalculation never silently skips a holder.
func (s *WalletService) Debit(ctx context.Context, tx *sql.Tx, userID string, amount decimal.Decimal, txType, referenceID, description string) (model.WalletTransaction, error) {
	return s.post(ctx, tx, userID, amount.Neg(), txType, referenceID, description)
}

func (s *WalletService) post(ctx context.Context, tx *sql.Tx, userID string, delta decimal.Decimal, txType, referenceID, description string) (model.WalletTransaction, error) {
	if !model.KnownTxType(txType) {
		return model.WalletTransaction{}, apperrors.ErrUnknownTransactionType
	}
	if delta.IsZero() {
		return model.WalletTransaction{}, apperrors.ErrInvalidAmount
	}

	repo := s.repo(tx)

	wallet, err := repo.GetWalletByUser(ctx, userID)
	if err != nil {
		return model.WalletTransaction{}, err
	}

	newBalance := wallet.Balance.Add(delta)
	if newBalance.IsNegative() && txType != model.TxTypeProfitDistributionReversal {
		return model.WalletTransaction{}, apperrors.ErrInsufficientFunds
	}

	now := time.Now().UTC()
	if err := repo.UpdateBalance(ctx, wallet.ID, newBalance, repository.FormatTime(now)); err != nil {
		return model.WalletTransaction{}, err
	}

	walletTx := model.WalletTransaction{
		ID:            uuid.New().String(),
		WalletID:      wallet.ID,
		Type:          txType,
		Amount:        delta,
		BalanceBefore: wallet.Balance,
		BalanceAfter:  newBalance,
		ReferenceID:   referenceID,
		Description:   description,
		CreatedAt:     now,
	}
	if err := repo.InsertTransaction(ctx, &walletTx); err != nil {
		return model.WalletTransaction{}, err
	}

	return walletTx, nil
}

// GetBalance returns the current wallet balance for a user.
func (s *WalletService) GetBalance(ctx context.Context, userID string) (model.Wallet, error) {
	return s.walletRepo.GetWalletByUser(ctx, userID)
}

// GetHistory returns a user's wallet transactions, newest first.
func (s *WalletService) GetHistory(ctx context.Context, userID string) ([]model.WalletTransaction, error) {
	wallet, err := s.walletRepo.GetWalletByUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	txs, err := s.walletRepo.GetTransactions(ctx, wallet.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to load wallet history: %w", err)
	}
	return txs, nil
}

// CreateWallet provisions an empty wallet for a user if one does not
// already exist.
func (s *WalletService) CreateWallet(ctx context.Context, userID string) (model.Wallet, error) {
	existing, err := s.walletRepo.GetWalletByUser(ctx, userID)
	if err == nil {
		return existing, nil
	}
	if err != apperrors.ErrWalletNotFound {
		return model.Wallet{}, err
	}

	wallet := model.Wallet{
		ID:        uuid.New().String(),
		UserID:    userID,
		Balance:   decimal.Zero,
		Currency:  "USD",
		UpdatedAt: time.Now().UTC(),
	}
	if err := s.walletRepo.InsertWallet(ctx, &wallet); err != nil {
		return model.Wallet{}, err
	}
	return wallet, nil
}

// Deposit credits external funds into a user's wallet.
func (s *WalletService) Deposit(ctx context.Context, userID string, amount decimal.Decimal, description string) (model.WalletTransaction, error) {
	if amount.LessThanOrEqual(decimal.Zero) {
		return model.WalletTransaction{}, apperrors.ErrInvalidAmount
	}
	return s.Credit(ctx, nil, userID, amount, model.TxTypeDeposit, "", description)
}

// Withdraw debits funds from a user's wallet for external payout.
func (s *WalletService) Withdraw(ctx context.Context, userID string, amount decimal.Decimal, description string) (model.WalletTransaction, error) {
	if amount.LessThanOrEqual(decimal.Zero) {
		return model.WalletTransaction{}, apperrors.ErrInvalidAmount
	}
	return s.Debit(ctx, nil, userID, amount, model.TxTypeWithdrawal, "", description)
}
