package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// ShareTrade is an immutable fact: shares changed hands between a buyer and
// a seller order at a price. The price is always the resting order's limit
// price, never the aggressor's. Trades are never updated or deleted.
type ShareTrade struct {
	ID               string          `json:"id"`
	TradingAccountID string          `json:"tradingAccountId"`
	BuyOrderID       string          `json:"buyOrderId"`
	SellOrderID      string          `json:"sellOrderId"`
	BuyerUserID      string          `json:"buyerUserId"`
	SellerUserID     string          `json:"sellerUserId"`
	QuantityTraded   int64           `json:"quantityTraded"`
	TradePrice       decimal.Decimal `json:"tradePrice"`
	TradeDate        time.Time       `json:"tradeDate"`
}

// TotalValue returns quantity times price.
func (t ShareTrade) TotalValue() decimal.Decimal {
	return t.TradePrice.Mul(decimal.NewFromInt(t.QuantityTraded))
}
