package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// TradingAccount represents a managed fund whose shares trade on the exchange.
// CurrentNav is pushed by the EA integration; the core only reads it.
type TradingAccount struct {
	ID                string          `json:"id"`
	Name              string          `json:"name"`
	InitialCapital    decimal.Decimal `json:"initialCapital"`
	TotalSharesIssued int64           `json:"totalSharesIssued"`
	CurrentNav        decimal.Decimal `json:"currentNav"`
	ManagementFeeRate decimal.Decimal `json:"managementFeeRate"`
	IsActive          bool            `json:"isActive"`
	CreatedAt         time.Time       `json:"createdAt"`
	UpdatedAt         time.Time       `json:"updatedAt"`
}

// CurrentSharePrice derives the live per-share price from NAV and shares
// issued. Returns zero when no shares are issued.
func (a TradingAccount) CurrentSharePrice() decimal.Decimal {
	if a.TotalSharesIssued <= 0 {
		return decimal.Zero
	}
	return a.CurrentNav.DivRound(decimal.NewFromInt(a.TotalSharesIssued), SharePricePrecision)
}

// Monetary precision used throughout the exchange: cash amounts round to
// currency precision, per-share rates carry extra digits to keep cumulative
// rounding error across many shareholders small.
const (
	CashPrecision       int32 = 2
	SharePricePrecision int32 = 8
)
