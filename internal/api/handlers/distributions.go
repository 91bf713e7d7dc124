package handlers

import (
	"net/http"

	"github.com/fundshare/exchange-backend/internal/api/middleware"
	"github.com/fundshare/exchange-backend/internal/api/response"
	"github.com/fundshare/exchange-backend/internal/apperrors"
	"github.com/fundshare/exchange-backend/internal/service"
	"github.com/fundshare/exchange-backend/internal/validation"
)

// DistributionHandler handles HTTP requests for profit distribution endpoints.
type DistributionHandler struct {
	distributionService *service.DistributionService
}

// NewDistributionHandler creates a new DistributionHandler with the provided service dependency.
func NewDistributionHandler(distributionService *service.DistributionService) *DistributionHandler {
	return &DistributionHandler{distributionService: distributionService}
}

// MyDistributions handles GET requests to list the caller's profit
// distribution payouts, newest first.
//
// Endpoint: GET /api/distributions?accountId=
// Response: 200 OK with array of ProfitDistributionLog
// Error: 500 Internal Server Error if retrieval fails
func (h *DistributionHandler) MyDistributions(w http.ResponseWriter, r *http.Request) {
	accountID := r.URL.Query().Get("accountId")
	if accountID != "" {
		if err := validation.ValidateUUID(accountID); err != nil {
			response.RespondError(w, http.StatusBadRequest, "invalid account ID", err.Error())
			return
		}
	}

	logs, err := h.distributionService.GetUserDistributionHistory(r.Context(), middleware.UserID(r.Context()), accountID)
	if err != nil {
		response.RespondError(w, http.StatusInternalServerError, apperrors.ErrFailedToRetrieveDistribution.Error(), err.Error())
		return
	}

	response.RespondJSON(w, http.StatusOK, logs)
}
