package handlers

import (
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"

	"github.com/fundshare/exchange-backend/internal/api/middleware"
	"github.com/fundshare/exchange-backend/internal/api/request"
	"github.com/fundshare/exchange-backend/internal/api/response"
	"github.com/fundshare/exchange-backend/internal/apperrors"
	"github.com/fundshare/exchange-backend/internal/service"
	"github.com/fundshare/exchange-backend/internal/validation"
)

// ExchangeHandler handles HTTP requests for the share exchange: orders,
// cancellations, trades and the order book. It serves as the HTTP layer
// adapter, parsing requests and delegating business logic to the
// exchangeService.
type ExchangeHandler struct {
	exchangeService *service.ExchangeService
}

// NewExchangeHandler creates a new ExchangeHandler with the provided service dependency.
func NewExchangeHandler(exchangeService *service.ExchangeService) *ExchangeHandler {
	return &ExchangeHandler{exchangeService: exchangeService}
}

// PlaceOrder handles POST requests to place a new buy or sell order. The
// order is matched against the resting book before the response is sent, so
// the returned order reflects any immediate fills.
//
// Endpoint: POST /api/exchange/orders
// Request Body: PlaceOrderRequest (tradingAccountId, side, type, quantity, limitPrice)
// Response: 201 Created with ShareOrder
// Error: 400 Bad Request if validation fails
// Error: 402 Payment Required on insufficient funds or shares
// Error: 404 Not Found if the trading account does not exist
// Error: 500 Internal Server Error if placement fails
func (h *ExchangeHandler) PlaceOrder(w http.ResponseWriter, r *http.Request) {
	req, err := parseJSON[request.PlaceOrderRequest](r)
	if err != nil {
		response.RespondError(w, http.StatusBadRequest, "invalid request body", err.Error())
		return
	}

	if err := validation.ValidatePlaceOrder(req); err != nil {
		response.RespondError(w, http.StatusBadRequest, "validation failed", err.Error())
		return
	}

	input := service.PlaceOrderInput{
		TradingAccountID: req.TradingAccountID,
		Side:             req.Side,
		Type:             req.Type,
		Quantity:         req.Quantity,
	}
	if req.LimitPrice != "" {
		price, err := decimal.NewFromString(req.LimitPrice)
		if err != nil {
			response.RespondError(w, http.StatusBadRequest, "validation failed", err.Error())
			return
		}
		input.LimitPrice = &price
	}

	order, err := h.exchangeService.PlaceOrder(r.Context(), middleware.UserID(r.Context()), input)
	if err != nil {
		switch {
		case errors.Is(err, apperrors.ErrAccountNotFound):
			response.RespondError(w, http.StatusNotFound, err.Error(), "")
		case errors.Is(err, apperrors.ErrAccountInactive),
			errors.Is(err, apperrors.ErrInvalidOrderSide),
			errors.Is(err, apperrors.ErrInvalidOrderType),
			errors.Is(err, apperrors.ErrInvalidQuantity),
			errors.Is(err, apperrors.ErrInvalidPrice):
			response.RespondError(w, http.StatusBadRequest, err.Error(), "")
		case errors.Is(err, apperrors.ErrInsufficientFunds),
			errors.Is(err, apperrors.ErrInsufficientShares):
			response.RespondError(w, http.StatusPaymentRequired, err.Error(), "")
		default:
			response.RespondError(w, http.StatusInternalServerError, apperrors.ErrFailedToPlaceOrder.Error(), err.Error())
		}
		return
	}

	response.RespondJSON(w, http.StatusCreated, order)
}

// CancelOrder handles DELETE requests to cancel an open order. Only the
// order's owner may cancel it, and only while it still has unfilled quantity.
//
// Endpoint: DELETE /api/exchange/orders/{uuid}
// Response: 200 OK with the cancelled ShareOrder
// Error: 403 Forbidden if the caller does not own the order
// Error: 404 Not Found if the order does not exist
// Error: 409 Conflict if the order is already in a terminal state
func (h *ExchangeHandler) CancelOrder(w http.ResponseWriter, r *http.Request) {
	orderID := chi.URLParam(r, "uuid")

	order, err := h.exchangeService.CancelOrder(r.Context(), middleware.UserID(r.Context()), orderID)
	if err != nil {
		switch {
		case errors.Is(err, apperrors.ErrOrderNotFound):
			response.RespondError(w, http.StatusNotFound, err.Error(), "")
		case errors.Is(err, apperrors.ErrNotOrderOwner):
			response.RespondError(w, http.StatusForbidden, err.Error(), "")
		case errors.Is(err, apperrors.ErrOrderNotCancellable):
			response.RespondError(w, http.StatusConflict, err.Error(), "")
		default:
			response.RespondError(w, http.StatusInternalServerError, apperrors.ErrFailedToCancelOrder.Error(), err.Error())
		}
		return
	}

	response.RespondJSON(w, http.StatusOK, order)
}

// MyOrders handles GET requests to list the caller's orders, optionally
// filtered by trading account and status via query parameters.
//
// Endpoint: GET /api/exchange/orders?accountId=&status=
// Response: 200 OK with array of ShareOrder
// Error: 500 Internal Server Error if retrieval fails
func (h *ExchangeHandler) MyOrders(w http.ResponseWriter, r *http.Request) {
	accountID := r.URL.Query().Get("accountId")
	status := r.URL.Query().Get("status")
	if accountID != "" {
		if err := validation.ValidateUUID(accountID); err != nil {
			response.RespondError(w, http.StatusBadRequest, "invalid account ID", err.Error())
			return
		}
	}

	orders, err := h.exchangeService.GetUserOrders(r.Context(), middleware.UserID(r.Context()), accountID, status)
	if err != nil {
		response.RespondError(w, http.StatusInternalServerError, apperrors.ErrFailedToRetrieveOrders.Error(), err.Error())
		return
	}

	response.RespondJSON(w, http.StatusOK, orders)
}

// MyTrades handles GET requests to list the caller's trades as buyer or
// seller, newest first.
//
// Endpoint: GET /api/exchange/trades?accountId=
// Response: 200 OK with array of ShareTrade
// Error: 500 Internal Server Error if retrieval fails
func (h *ExchangeHandler) MyTrades(w http.ResponseWriter, r *http.Request) {
	accountID := r.URL.Query().Get("accountId")
	if accountID != "" {
		if err := validation.ValidateUUID(accountID); err != nil {
			response.RespondError(w, http.StatusBadRequest, "invalid account ID", err.Error())
			return
		}
	}

	trades, err := h.exchangeService.GetUserTrades(r.Context(), middleware.UserID(r.Context()), accountID)
	if err != nil {
		response.RespondError(w, http.StatusInternalServerError, apperrors.ErrFailedToRetrieveTrades.Error(), err.Error())
		return
	}

	response.RespondJSON(w, http.StatusOK, trades)
}

// OrderBook handles GET requests for the aggregated order book of a trading
// account: bids descending, asks ascending, with the current share price.
//
// Endpoint: GET /api/exchange/accounts/{uuid}/book
// Response: 200 OK with OrderBookResponse
// Error: 404 Not Found if the trading account does not exist
// Error: 500 Internal Server Error if retrieval fails
func (h *ExchangeHandler) OrderBook(w http.ResponseWriter, r *http.Request) {
	accountID := chi.URLParam(r, "uuid")

	book, err := h.exchangeService.GetOrderBook(r.Context(), accountID)
	if err != nil {
		if errors.Is(err, apperrors.ErrAccountNotFound) {
			response.RespondError(w, http.StatusNotFound, err.Error(), "")
			return
		}
		response.RespondError(w, http.StatusInternalServerError, apperrors.ErrFailedToRetrieveOrderBook.Error(), err.Error())
		return
	}

	response.RespondJSON(w, http.StatusOK, book)
}
