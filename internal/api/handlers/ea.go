package handlers

import (
	"errors"
	"net/http"
	"time"

	"github.com/shopspring/decimal"

	"github.com/fundshare/exchange-backend/internal/api/request"
	"github.com/fundshare/exchange-backend/internal/api/response"
	"github.com/fundshare/exchange-backend/internal/apperrors"
	"github.com/fundshare/exchange-backend/internal/service"
	"github.com/fundshare/exchange-backend/internal/validation"
)

// EAHandler handles HTTP requests from the trading robots running the
// managed accounts.
type EAHandler struct {
	eaService *service.EAService
}

// NewEAHandler creates a new EAHandler with the provided service dependency.
func NewEAHandler(eaService *service.EAService) *EAHandler {
	return &EAHandler{eaService: eaService}
}

// PushNav handles POST requests carrying one full robot state push: the
// account NAV, positions closed since the last push and the current open
// position set. Pushes are idempotent; replaying one converges to the same
// state.
//
// Endpoint: POST /api/ea/nav
// Request Body: EANavUpdateRequest
// Response: 200 OK with EANavUpdateResult
// Error: 400 Bad Request if validation fails
// Error: 404 Not Found if the trading account does not exist
// Error: 500 Internal Server Error if the update fails
func (h *EAHandler) PushNav(w http.ResponseWriter, r *http.Request) {
	req, err := parseJSON[request.EANavUpdateRequest](r)
	if err != nil {
		response.RespondError(w, http.StatusBadRequest, "invalid request body", err.Error())
		return
	}
	if err := validation.ValidateEANavUpdate(req); err != nil {
		response.RespondError(w, http.StatusBadRequest, "validation failed", err.Error())
		return
	}

	input, err := toNavUpdateInput(req)
	if err != nil {
		response.RespondError(w, http.StatusBadRequest, "validation failed", err.Error())
		return
	}

	result, err := h.eaService.PushNavUpdate(r.Context(), input)
	if err != nil {
		if errors.Is(err, apperrors.ErrAccountNotFound) {
			response.RespondError(w, http.StatusNotFound, err.Error(), "")
			return
		}
		response.RespondError(w, http.StatusInternalServerError, apperrors.ErrFailedToRecordEAData.Error(), err.Error())
		return
	}

	response.RespondJSON(w, http.StatusOK, result)
}

// PushClosedTrades handles POST requests carrying closed trades only, for
// robots that report fills as they happen rather than batched into the NAV
// push. Already-seen tickets are ignored.
//
// Endpoint: POST /api/ea/closed-trades
// Request Body: EAClosedTradesRequest
// Response: 200 OK with EAClosedTradesResult
// Error: 400 Bad Request if validation fails
// Error: 404 Not Found if the trading account does not exist
// Error: 500 Internal Server Error if the insert fails
func (h *EAHandler) PushClosedTrades(w http.ResponseWriter, r *http.Request) {
	req, err := parseJSON[request.EAClosedTradesRequest](r)
	if err != nil {
		response.RespondError(w, http.StatusBadRequest, "invalid request body", err.Error())
		return
	}
	if err := validation.ValidateEAClosedTrades(req); err != nil {
		response.RespondError(w, http.StatusBadRequest, "validation failed", err.Error())
		return
	}

	trades, err := toClosedTradeInputs(req.ClosedTrades)
	if err != nil {
		response.RespondError(w, http.StatusBadRequest, "validation failed", err.Error())
		return
	}

	result, err := h.eaService.PushClosedTrades(r.Context(), req.TradingAccountID, trades)
	if err != nil {
		if errors.Is(err, apperrors.ErrAccountNotFound) {
			response.RespondError(w, http.StatusNotFound, err.Error(), "")
			return
		}
		response.RespondError(w, http.StatusInternalServerError, apperrors.ErrFailedToRecordEAData.Error(), err.Error())
		return
	}

	response.RespondJSON(w, http.StatusOK, result)
}

func toNavUpdateInput(req request.EANavUpdateRequest) (service.EANavUpdateInput, error) {
	nav, err := decimal.NewFromString(req.CurrentNav)
	if err != nil {
		return service.EANavUpdateInput{}, err
	}

	input := service.EANavUpdateInput{
		TradingAccountID: req.TradingAccountID,
		CurrentNav:       nav,
	}

	input.ClosedTrades, err = toClosedTradeInputs(req.ClosedTrades)
	if err != nil {
		return service.EANavUpdateInput{}, err
	}

	for _, open := range req.OpenPositions {
		pl, err := decimal.NewFromString(open.FloatingPL)
		if err != nil {
			return service.EANavUpdateInput{}, err
		}
		input.OpenPositions = append(input.OpenPositions, service.EAOpenPositionInput{
			EATicketID: open.EATicketID,
			FloatingPL: pl,
		})
	}

	return input, nil
}

func toClosedTradeInputs(reqs []request.EAClosedTradeRequest) ([]service.EAClosedTradeInput, error) {
	var trades []service.EAClosedTradeInput
	for _, closed := range reqs {
		pl, err := decimal.NewFromString(closed.RealizedPL)
		if err != nil {
			return nil, err
		}
		closeTime, err := time.Parse(time.RFC3339, closed.CloseTime)
		if err != nil {
			return nil, err
		}
		trades = append(trades, service.EAClosedTradeInput{
			EATicketID: closed.EATicketID,
			RealizedPL: pl,
			CloseTime:  closeTime,
		})
	}
	return trades, nil
}
