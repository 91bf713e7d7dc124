package request

type PlaceOrderRequest struct {
	TradingAccountID string `json:"tradingAccountId"`
	Side             string `json:"side"`
	Type             string `json:"type"`
	Quantity         int64  `json:"quantity"`
	LimitPrice       string `json:"limitPrice,omitempty"`
}
