package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// SharePortfolio is a user's current position in one trading account.
// Quantity never goes negative; rows persist at quantity zero to keep audit
// continuity for future buys.
type SharePortfolio struct {
	ID               string          `json:"id"`
	UserID           string          `json:"userId"`
	TradingAccountID string          `json:"tradingAccountId"`
	Quantity         int64           `json:"quantity"`
	AverageBuyPrice  decimal.Decimal `json:"averageBuyPrice"`
	LastUpdatedAt    time.Time       `json:"lastUpdatedAt"`
}

// PortfolioItemResponse is a position enriched with derived valuation for
// API responses.
type PortfolioItemResponse struct {
	TradingAccountID   string          `json:"tradingAccountId"`
	TradingAccountName string          `json:"tradingAccountName"`
	Quantity           int64           `json:"quantity"`
	AverageBuyPrice    decimal.Decimal `json:"averageBuyPrice"`
	CurrentSharePrice  decimal.Decimal `json:"currentSharePrice"`
	CurrentValue       decimal.Decimal `json:"currentValue"`
	UnrealizedPL       decimal.Decimal `json:"unrealizedPl"`
	LastUpdatedAt      time.Time       `json:"lastUpdatedAt"`
}
