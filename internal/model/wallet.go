package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// Wallet transaction types recognised by the wallet service. Postings with
// any other type are rejected as a configuration error.
const (
	TxTypeSharePurchase              = "SharePurchase"
	TxTypeShareSaleProceeds          = "ShareSaleProceeds"
	TxTypeProfitDistributionReceived = "ProfitDistributionReceived"
	TxTypeProfitDistributionReversal = "ProfitDistributionReversal"
	TxTypeDeposit                    = "Deposit"
	TxTypeWithdrawal                 = "Withdrawal"
)

// Wallet holds a user's cash balance.
type Wallet struct {
	ID        string          `json:"id"`
	UserID    string          `json:"userId"`
	Balance   decimal.Decimal `json:"balance"`
	Currency  string          `json:"currency"`
	UpdatedAt time.Time       `json:"updatedAt"`
}

// WalletTransaction is one immutable ledger entry against a wallet, with
// before/after balances for audit.
type WalletTransaction struct {
	ID            string          `json:"id"`
	WalletID      string          `json:"walletId"`
	Type          string          `json:"type"`
	Amount        decimal.Decimal `json:"amount"`
	BalanceBefore decimal.Decimal `json:"balanceBefore"`
	BalanceAfter  decimal.Decimal `json:"balanceAfter"`
	Description   string          `json:"description,omitempty"`
	ReferenceID   string          `json:"referenceId,omitempty"`
	CreatedAt     time.Time       `json:"createdAt"`
}

// KnownTxType reports whether t is one of the recognised transaction types.
func KnownTxType(t string) bool {
	switch t {
	case TxTypeSharePurchase, TxTypeShareSaleProceeds,
		TxTypeProfitDistributionReceived, TxTypeProfitDistributionReversal,
		TxTypeDeposit, TxTypeWithdrawal:
		return true
	}
	return false
}
