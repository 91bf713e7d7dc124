package handlers

import (
	"net/http"

	"github.com/fundshare/exchange-backend/internal/api/middleware"
	"github.com/fundshare/exchange-backend/internal/api/response"
	"github.com/fundshare/exchange-backend/internal/apperrors"
	"github.com/fundshare/exchange-backend/internal/service"
)

// PortfolioHandler handles HTTP requests for portfolio endpoints.
type PortfolioHandler struct {
	portfolioService *service.PortfolioService
}

// NewPortfolioHandler creates a new PortfolioHandler with the provided service dependency.
func NewPortfolioHandler(portfolioService *service.PortfolioService) *PortfolioHandler {
	return &PortfolioHandler{portfolioService: portfolioService}
}

// MyPortfolio handles GET requests to list the caller's positions across
// all trading accounts, valued at the current share price.
//
// Endpoint: GET /api/portfolio
// Response: 200 OK with array of PortfolioItemResponse
// Error: 500 Internal Server Error if retrieval fails
func (h *PortfolioHandler) MyPortfolio(w http.ResponseWriter, r *http.Request) {
	items, err := h.portfolioService.GetUserPortfolio(r.Context(), middleware.UserID(r.Context()))
	if err != nil {
		response.RespondError(w, http.StatusInternalServerError, apperrors.ErrFailedToRetrievePortfolio.Error(), err.Error())
		return
	}

	response.RespondJSON(w, http.StatusOK, items)
}
