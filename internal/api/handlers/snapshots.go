package handlers

import (
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/fundshare/exchange-backend/internal/api/request"
	"github.com/fundshare/exchange-backend/internal/api/response"
	"github.com/fundshare/exchange-backend/internal/apperrors"
	"github.com/fundshare/exchange-backend/internal/service"
	"github.com/fundshare/exchange-backend/internal/validation"
)

// SnapshotHandler handles HTTP requests for snapshot endpoints: the
// per-account snapshot history and the admin trigger/recalculate surface.
type SnapshotHandler struct {
	snapshotService     *service.SnapshotService
	distributionService *service.DistributionService
}

// NewSnapshotHandler creates a new SnapshotHandler with the provided service dependencies.
func NewSnapshotHandler(snapshotService *service.SnapshotService, distributionService *service.DistributionService) *SnapshotHandler {
	return &SnapshotHandler{
		snapshotService:     snapshotService,
		distributionService: distributionService,
	}
}

// AccountSnapshots handles GET requests for an account's snapshot history
// within a date range. Defaults to the last 30 days when no range is given.
//
// Endpoint: GET /api/admin/accounts/{uuid}/snapshots?from=2006-01-02&to=2006-01-02
// Response: 200 OK with array of TradingAccountSnapshot
// Error: 400 Bad Request on a malformed or inverted date range
// Error: 404 Not Found if the trading account does not exist
// Error: 500 Internal Server Error if retrieval fails
func (h *SnapshotHandler) AccountSnapshots(w http.ResponseWriter, r *http.Request) {
	accountID := chi.URLParam(r, "uuid")

	to := time.Now().UTC().Truncate(24 * time.Hour)
	from := to.AddDate(0, 0, -30)

	if raw := r.URL.Query().Get("from"); raw != "" {
		parsed, err := time.Parse("2006-01-02", raw)
		if err != nil {
			response.RespondError(w, http.StatusBadRequest, "invalid from date", err.Error())
			return
		}
		from = parsed
	}
	if raw := r.URL.Query().Get("to"); raw != "" {
		parsed, err := time.Parse("2006-01-02", raw)
		if err != nil {
			response.RespondError(w, http.StatusBadRequest, "invalid to date", err.Error())
			return
		}
		to = parsed
	}

	snapshots, err := h.snapshotService.GetSnapshots(r.Context(), accountID, from, to)
	if err != nil {
		switch {
		case errors.Is(err, apperrors.ErrInvalidDateRange):
			response.RespondError(w, http.StatusBadRequest, err.Error(), "")
		case errors.Is(err, apperrors.ErrAccountNotFound):
			response.RespondError(w, http.StatusNotFound, err.Error(), "")
		default:
			response.RespondError(w, http.StatusInternalServerError, apperrors.ErrFailedToRetrieveSnapshots.Error(), err.Error())
		}
		return
	}

	response.RespondJSON(w, http.StatusOK, snapshots)
}

// TriggerSnapshots handles POST requests to run the snapshot procedure on
// demand, for all active accounts or a named subset. With forceRecalculate
// set, existing snapshots are reversed and recreated instead of skipped.
//
// Endpoint: POST /api/admin/snapshots/trigger
// Request Body: TriggerSnapshotRequest (targetDate, tradingAccountIds, forceRecalculate, reason)
// Response: 200 OK with SnapshotBatchResult
// Error: 400 Bad Request if validation fails
// Error: 404 Not Found if a named trading account does not exist
// Error: 500 Internal Server Error if the run fails
func (h *SnapshotHandler) TriggerSnapshots(w http.ResponseWriter, r *http.Request) {
	req, err := parseJSON[request.TriggerSnapshotRequest](r)
	if err != nil {
		response.RespondError(w, http.StatusBadRequest, "invalid request body", err.Error())
		return
	}
	if err := validation.ValidateTriggerSnapshot(req); err != nil {
		response.RespondError(w, http.StatusBadRequest, "validation failed", err.Error())
		return
	}

	targetDate, err := time.Parse("2006-01-02", req.TargetDate)
	if err != nil {
		response.RespondError(w, http.StatusBadRequest, "validation failed", err.Error())
		return
	}

	result, err := h.snapshotService.ManualTrigger(r.Context(), service.SnapshotTriggerInput{
		TargetDate:       targetDate,
		AccountIDs:       req.TradingAccountIDs,
		ForceRecalculate: req.ForceRecalculate,
		Reason:           req.Reason,
	})
	if err != nil {
		if errors.Is(err, apperrors.ErrAccountNotFound) {
			response.RespondError(w, http.StatusNotFound, err.Error(), "")
			return
		}
		response.RespondError(w, http.StatusInternalServerError, apperrors.ErrFailedToTriggerSnapshot.Error(), err.Error())
		return
	}

	response.RespondJSON(w, http.StatusOK, result)
}

// RecalculateDistribution handles POST requests to re-run the profit
// distribution of an existing snapshot, optionally reversing the payouts
// made before. The response reports the old and new distribution and the
// net cash delta.
//
// Endpoint: POST /api/admin/distributions/recalculate
// Request Body: RecalculateDistributionRequest (tradingAccountId, snapshotDate, reverseExisting)
// Response: 200 OK with RecalculationResult
// Error: 400 Bad Request if validation fails
// Error: 404 Not Found if the account or snapshot does not exist
// Error: 500 Internal Server Error if recalculation fails
func (h *SnapshotHandler) RecalculateDistribution(w http.ResponseWriter, r *http.Request) {
	req, err := parseJSON[request.RecalculateDistributionRequest](r)
	if err != nil {
		response.RespondError(w, http.StatusBadRequest, "invalid request body", err.Error())
		return
	}
	if err := validation.ValidateRecalculateDistribution(req); err != nil {
		response.RespondError(w, http.StatusBadRequest, "validation failed", err.Error())
		return
	}

	snapshotDate, err := time.Parse("2006-01-02", req.SnapshotDate)
	if err != nil {
		response.RespondError(w, http.StatusBadRequest, "validation failed", err.Error())
		return
	}

	result, err := h.distributionService.Recalculate(r.Context(), req.TradingAccountID, snapshotDate, req.ReverseExisting)
	if err != nil {
		switch {
		case errors.Is(err, apperrors.ErrAccountNotFound),
			errors.Is(err, apperrors.ErrSnapshotNotFound):
			response.RespondError(w, http.StatusNotFound, err.Error(), "")
		default:
			response.RespondError(w, http.StatusInternalServerError, apperrors.ErrFailedToRecalculate.Error(), err.Error())
		}
		return
	}

	response.RespondJSON(w, http.StatusOK, result)
}
