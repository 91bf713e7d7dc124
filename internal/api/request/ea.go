package request

type EAClosedTradeRequest struct {
	EATicketID string `json:"eaTicketId"`
	RealizedPL string `json:"realizedPl"`
	CloseTime  string `json:"closeTime"`
}

type EAOpenPositionRequest struct {
	EATicketID string `json:"eaTicketId"`
	FloatingPL string `json:"floatingPl"`
}

type EANavUpdateRequest struct {
	TradingAccountID string                  `json:"tradingAccountId"`
	CurrentNav       string                  `json:"currentNav"`
	ClosedTrades     []EAClosedTradeRequest  `json:"closedTrades,omitempty"`
	OpenPositions    []EAOpenPositionRequest `json:"openPositions,omitempty"`
}

type EAClosedTradesRequest struct {
	TradingAccountID string                 `json:"tradingAccountId"`
	ClosedTrades     []EAClosedTradeRequest `json:"closedTrades"`
}
