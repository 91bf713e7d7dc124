package validation

import (
	"strings"

	"github.com/fundshare/exchange-backend/internal/api/request"
	"github.com/fundshare/exchange-backend/internal/model"
)

func ValidatePlaceOrder(req request.PlaceOrderRequest) error {
	errors := make(map[string]string)

	if strings.TrimSpace(req.TradingAccountID) == "" {
		errors["tradingAccountId"] = "trading account ID is required"
	} else if err := ValidateUUID(req.TradingAccountID); err != nil {
		errors["tradingAccountId"] = err.Error()
	}

	if req.Side != model.OrderSideBuy && req.Side != model.OrderSideSell {
		errors["side"] = "side must be Buy or Sell"
	}

	switch req.Type {
	case model.OrderTypeMarket:
		if req.LimitPrice != "" {
			errors["limitPrice"] = "market orders cannot carry a limit price"
		}
	case model.OrderTypeLimit:
		if req.LimitPrice == "" {
			errors["limitPrice"] = "limit orders require a limit price"
		} else if _, err := parsePositiveDecimal(req.LimitPrice); err != nil {
			errors["limitPrice"] = err.Error()
		}
	default:
		errors["type"] = "type must be Market or Limit"
	}

	if req.Quantity <= 0 {
		errors["quantity"] = "quantity must be positive"
	}

	if len(errors) > 0 {
		return &Error{Fields: errors}
	}
	return nil
}
