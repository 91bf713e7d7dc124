package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// TradingAccountSnapshot is one immutable per-account-per-day accounting
// record. At most one exists per (account, date); it is only deleted and
// recreated during an explicit forced recalculation.
type TradingAccountSnapshot struct {
	ID                string          `json:"id"`
	TradingAccountID  string          `json:"tradingAccountId"`
	SnapshotDate      time.Time       `json:"snapshotDate"`
	OpeningNav        decimal.Decimal `json:"openingNav"`
	RealizedPL        decimal.Decimal `json:"realizedPl"`
	UnrealizedPL      decimal.Decimal `json:"unrealizedPl"`
	ManagementFee     decimal.Decimal `json:"managementFee"`
	ProfitDistributed decimal.Decimal `json:"profitDistributed"`
	ClosingNav        decimal.Decimal `json:"closingNav"`
	ClosingSharePrice decimal.Decimal `json:"closingSharePrice"`
	CreatedAt         time.Time       `json:"createdAt"`
}

// Snapshot batch account statuses.
const (
	SnapshotAccountSuccess = "Success"
	SnapshotAccountSkipped = "Skipped"
	SnapshotAccountFailed  = "Failed"
)

// SnapshotAccountResult reports the outcome of the snapshot procedure for a
// single trading account within a batch run.
type SnapshotAccountResult struct {
	TradingAccountID  string           `json:"tradingAccountId"`
	AccountName       string           `json:"accountName"`
	Status            string           `json:"status"`
	Message           string           `json:"message,omitempty"`
	SnapshotID        string           `json:"snapshotId,omitempty"`
	ProfitDistributed *decimal.Decimal `json:"profitDistributed,omitempty"`
	ShareholderCount  int              `json:"shareholderCount,omitempty"`
}

// SnapshotBatchResult summarises a whole snapshot run. A failure for one
// account never aborts the others; it lands in Errors and AccountResults.
type SnapshotBatchResult struct {
	SnapshotDate           time.Time               `json:"snapshotDate"`
	AccountsProcessed      int                     `json:"accountsProcessed"`
	SnapshotsCreated       int                     `json:"snapshotsCreated"`
	AccountsSkipped        int                     `json:"accountsSkipped"`
	AccountsFailed         int                     `json:"accountsFailed"`
	TotalProfitDistributed decimal.Decimal         `json:"totalProfitDistributed"`
	Errors                 []string                `json:"errors"`
	AccountResults         []SnapshotAccountResult `json:"accountResults"`
	ProcessedAt            time.Time               `json:"processedAt"`
}
