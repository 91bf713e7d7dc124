package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// EAClosedTrade is a closed position reported by the managed account's
// trading robot. Each ticket feeds exactly one snapshot's realized P&L:
// IsProcessed flips false to true once and the row is never reprocessed.
type EAClosedTrade struct {
	ID               string          `json:"id"`
	TradingAccountID string          `json:"tradingAccountId"`
	EATicketID       string          `json:"eaTicketId"`
	RealizedPL       decimal.Decimal `json:"realizedPl"`
	CloseTime        time.Time       `json:"closeTime"`
	IsProcessed      bool            `json:"isProcessed"`
}

// EAOpenPosition is the current floating P&L of one still-open EA position,
// upserted on every push and read point-in-time by the snapshot engine.
type EAOpenPosition struct {
	ID               string          `json:"id"`
	TradingAccountID string          `json:"tradingAccountId"`
	EATicketID       string          `json:"eaTicketId"`
	FloatingPL       decimal.Decimal `json:"floatingPl"`
	UpdatedAt        time.Time       `json:"updatedAt"`
}
