package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// Order sides.
const (
	OrderSideBuy  = "Buy"
	OrderSideSell = "Sell"
)

// Order types.
const (
	OrderTypeMarket = "Market"
	OrderTypeLimit  = "Limit"
)

// Order statuses. Status is derived from quantity filled: Open until the
// first fill, PartiallyFilled while 0 < filled < ordered, Filled when
// filled == ordered. Filled and Cancelled are terminal.
const (
	OrderStatusOpen            = "Open"
	OrderStatusPartiallyFilled = "PartiallyFilled"
	OrderStatusFilled          = "Filled"
	OrderStatusCancelled       = "Cancelled"
)

// ShareOrder is one user's standing instruction to buy or sell shares of a
// trading account. LimitPrice is immutable once set; only the matcher
// mutates fill quantities.
type ShareOrder struct {
	ID               string           `json:"id"`
	UserID           string           `json:"userId"`
	TradingAccountID string           `json:"tradingAccountId"`
	Side             string           `json:"side"`
	Type             string           `json:"type"`
	QuantityOrdered  int64            `json:"quantityOrdered"`
	QuantityFilled   int64            `json:"quantityFilled"`
	LimitPrice       *decimal.Decimal `json:"limitPrice,omitempty"`
	AverageFillPrice *decimal.Decimal `json:"averageFillPrice,omitempty"`
	Status           string           `json:"status"`
	CreatedAt        time.Time        `json:"createdAt"`
	UpdatedAt        time.Time        `json:"updatedAt"`
}

// QuantityRemaining returns the unfilled portion of the order.
func (o ShareOrder) QuantityRemaining() int64 {
	return o.QuantityOrdered - o.QuantityFilled
}

// IsMatchable reports whether the matcher may still fill this order.
func (o ShareOrder) IsMatchable() bool {
	return o.Status == OrderStatusOpen || o.Status == OrderStatusPartiallyFilled
}

// StatusForFill returns the status implied by the current fill ratio.
func (o ShareOrder) StatusForFill() string {
	switch {
	case o.QuantityFilled == o.QuantityOrdered:
		return OrderStatusFilled
	case o.QuantityFilled > 0:
		return OrderStatusPartiallyFilled
	default:
		return OrderStatusOpen
	}
}

// OrderBookLevel is one aggregated price level of the resting book.
type OrderBookLevel struct {
	Price    decimal.Decimal `json:"price"`
	Quantity int64           `json:"quantity"`
	Orders   int             `json:"orders"`
}

// OrderBookResponse is the aggregated view of an account's resting orders.
// Bids are sorted by descending price, asks by ascending price.
type OrderBookResponse struct {
	TradingAccountID  string           `json:"tradingAccountId"`
	CurrentSharePrice decimal.Decimal  `json:"currentSharePrice"`
	Bids              []OrderBookLevel `json:"bids"`
	Asks              []OrderBookLevel `json:"asks"`
	AsOf              time.Time        `json:"asOf"`
}
