package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// ProfitDistributionLog is one immutable record per (snapshot, shareholder)
// payout. Deleted only as part of an explicit reversal, paired with an
// offsetting wallet debit.
type ProfitDistributionLog struct {
	ID                  string          `json:"id"`
	SnapshotID          string          `json:"snapshotId"`
	TradingAccountID    string          `json:"tradingAccountId"`
	UserID              string          `json:"userId"`
	DistributionDate    time.Time       `json:"distributionDate"`
	SharesHeld          int64           `json:"sharesHeld"`
	ProfitPerShare      decimal.Decimal `json:"profitPerShare"`
	TotalAmount         decimal.Decimal `json:"totalAmount"`
	WalletTransactionID string          `json:"walletTransactionId,omitempty"`
	CreatedAt           time.Time       `json:"createdAt"`
}

// DistributionSummary captures the aggregate figures of one snapshot's
// distribution, used to make recalculations auditable as old-vs-new.
type DistributionSummary struct {
	SnapshotID       string          `json:"snapshotId"`
	RealizedPL       decimal.Decimal `json:"realizedPl"`
	ManagementFee    decimal.Decimal `json:"managementFee"`
	ProfitPerShare   decimal.Decimal `json:"profitPerShare"`
	TotalDistributed decimal.Decimal `json:"totalDistributed"`
	ShareholderCount int             `json:"shareholderCount"`
}

// RecalculationResult reports a forced distribution recalculation: the
// distribution as it stood before, as it stands now, and the cash delta.
type RecalculationResult struct {
	TradingAccountID string              `json:"tradingAccountId"`
	SnapshotDate     time.Time           `json:"snapshotDate"`
	Reversed         bool                `json:"reversed"`
	Old              DistributionSummary `json:"old"`
	New              DistributionSummary `json:"new"`
	Delta            decimal.Decimal     `json:"delta"`
	ProcessedAt      time.Time           `json:"processedAt"`
}
