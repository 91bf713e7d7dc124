package validation

import (
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/fundshare/exchange-backend/internal/api/request"
)

func ValidateEANavUpdate(req request.EANavUpdateRequest) error {
	errors := make(map[string]string)

	if strings.TrimSpace(req.TradingAccountID) == "" {
		errors["tradingAccountId"] = "trading account ID is required"
	} else if err := ValidateUUID(req.TradingAccountID); err != nil {
		errors["tradingAccountId"] = err.Error()
	}

	if nav, err := decimal.NewFromString(req.CurrentNav); err != nil {
		errors["currentNav"] = "not a valid number"
	} else if nav.IsNegative() {
		errors["currentNav"] = "must not be negative"
	}

	validateClosedTrades(req.ClosedTrades, errors)

	for i, open := range req.OpenPositions {
		if strings.TrimSpace(open.EATicketID) == "" {
			errors[fmt.Sprintf("openPositions[%d].eaTicketId", i)] = "ticket ID is required"
		}
		if _, err := decimal.NewFromString(open.FloatingPL); err != nil {
			errors[fmt.Sprintf("openPositions[%d].floatingPl", i)] = "not a valid number"
		}
	}

	if len(errors) > 0 {
		return &Error{Fields: errors}
	}
	return nil
}

func ValidateEAClosedTrades(req request.EAClosedTradesRequest) error {
	errors := make(map[string]string)

	if strings.TrimSpace(req.TradingAccountID) == "" {
		errors["tradingAccountId"] = "trading account ID is required"
	} else if err := ValidateUUID(req.TradingAccountID); err != nil {
		errors["tradingAccountId"] = err.Error()
	}

	if len(req.ClosedTrades) == 0 {
		errors["closedTrades"] = "at least one closed trade is required"
	}
	validateClosedTrades(req.ClosedTrades, errors)

	if len(errors) > 0 {
		return &Error{Fields: errors}
	}
	return nil
}

func validateClosedTrades(trades []request.EAClosedTradeRequest, errors map[string]string) {
	for i, closed := range trades {
		if strings.TrimSpace(closed.EATicketID) == "" {
			errors[fmt.Sprintf("closedTrades[%d].eaTicketId", i)] = "ticket ID is required"
		}
		if _, err := decimal.NewFromString(closed.RealizedPL); err != nil {
			errors[fmt.Sprintf("closedTrades[%d].realizedPl", i)] = "not a valid number"
		}
		if _, err := time.Parse(time.RFC3339, closed.CloseTime); err != nil {
			errors[fmt.Sprintf("closedTrades[%d].closeTime", i)] = err.Error()
		}
	}
}
