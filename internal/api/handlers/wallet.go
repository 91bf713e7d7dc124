package handlers

import (
	"errors"
	"net/http"

	"github.com/shopspring/decimal"

	"github.com/fundshare/exchange-backend/internal/api/middleware"
	"github.com/fundshare/exchange-backend/internal/api/request"
	"github.com/fundshare/exchange-backend/internal/api/response"
	"github.com/fundshare/exchange-backend/internal/apperrors"
	"github.com/fundshare/exchange-backend/internal/service"
	"github.com/fundshare/exchange-backend/internal/validation"
)

// WalletHandler handles HTTP requests for wallet endpoints.
type WalletHandler struct {
	walletService *service.WalletService
}

// NewWalletHandler creates a new WalletHandler with the provided service dependency.
func NewWalletHandler(walletService *service.WalletService) *WalletHandler {
	return &WalletHandler{walletService: walletService}
}

// MyWallet handles GET requests for the caller's wallet balance. A user
// without a wallet gets one provisioned on first access.
//
// Endpoint: GET /api/wallet
// Response: 200 OK with Wallet
// Error: 500 Internal Server Error if retrieval fails
func (h *WalletHandler) MyWallet(w http.ResponseWriter, r *http.Request) {
	wallet, err := h.walletService.CreateWallet(r.Context(), middleware.UserID(r.Context()))
	if err != nil {
		response.RespondError(w, http.StatusInternalServerError, apperrors.ErrFailedToRetrieveWallet.Error(), err.Error())
		return
	}

	response.RespondJSON(w, http.StatusOK, wallet)
}

// MyTransactions handles GET requests for the caller's wallet ledger,
// newest first.
//
// Endpoint: GET /api/wallet/transactions
// Response: 200 OK with array of WalletTransaction
// Error: 404 Not Found if the caller has no wallet
// Error: 500 Internal Server Error if retrieval fails
func (h *WalletHandler) MyTransactions(w http.ResponseWriter, r *http.Request) {
	transactions, err := h.walletService.GetHistory(r.Context(), middleware.UserID(r.Context()))
	if err != nil {
		if errors.Is(err, apperrors.ErrWalletNotFound) {
			response.RespondError(w, http.StatusNotFound, err.Error(), "")
			return
		}
		response.RespondError(w, http.StatusInternalServerError, apperrors.ErrFailedToRetrieveWallet.Error(), err.Error())
		return
	}

	response.RespondJSON(w, http.StatusOK, transactions)
}

// Deposit handles POST requests to credit external funds into the caller's wallet.
//
// Endpoint: POST /api/wallet/deposit
// Request Body: DepositRequest (amount, description)
// Response: 201 Created with WalletTransaction
// Error: 400 Bad Request if validation fails
// Error: 404 Not Found if the caller has no wallet
func (h *WalletHandler) Deposit(w http.ResponseWriter, r *http.Request) {
	req, err := parseJSON[request.DepositRequest](r)
	if err != nil {
		response.RespondError(w, http.StatusBadRequest, "invalid request body", err.Error())
		return
	}
	if err := validation.ValidateAmount(req.Amount); err != nil {
		response.RespondError(w, http.StatusBadRequest, "validation failed", err.Error())
		return
	}

	amount, err := decimal.NewFromString(req.Amount)
	if err != nil {
		response.RespondError(w, http.StatusBadRequest, "validation failed", err.Error())
		return
	}

	transaction, err := h.walletService.Deposit(r.Context(), middleware.UserID(r.Context()), amount, req.Description)
	if err != nil {
		h.respondPostingError(w, err)
		return
	}

	response.RespondJSON(w, http.StatusCreated, transaction)
}

// Withdraw handles POST requests to debit funds from the caller's wallet.
//
// Endpoint: POST /api/wallet/withdraw
// Request Body: WithdrawRequest (amount, description)
// Response: 201 Created with WalletTransaction
// Error: 400 Bad Request if validation fails
// Error: 402 Payment Required on insufficient funds
// Error: 404 Not Found if the caller has no wallet
func (h *WalletHandler) Withdraw(w http.ResponseWriter, r *http.Request) {
	req, err := parseJSON[request.WithdrawRequest](r)
	if err != nil {
		response.RespondError(w, http.StatusBadRequest, "invalid request body", err.Error())
		return
	}
	if err := validation.ValidateAmount(req.Amount); err != nil {
		response.RespondError(w, http.StatusBadRequest, "validation failed", err.Error())
		return
	}

	amount, err := decimal.NewFromString(req.Amount)
	if err != nil {
		response.RespondError(w, http.StatusBadRequest, "validation failed", err.Error())
		return
	}

	transaction, err := h.walletService.Withdraw(r.Context(), middleware.UserID(r.Context()), amount, req.Description)
	if err != nil {
		h.respondPostingError(w, err)
		return
	}

	response.RespondJSON(w, http.StatusCreated, transaction)
}

func (h *WalletHandler) respondPostingError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, apperrors.ErrWalletNotFound):
		response.RespondError(w, http.StatusNotFound, err.Error(), "")
	case errors.Is(err, apperrors.ErrInvalidAmount):
		response.RespondError(w, http.StatusBadRequest, err.Error(), "")
	case errors.Is(err, apperrors.ErrInsufficientFunds):
		response.RespondError(w, http.StatusPaymentRequired, err.Error(), "")
	default:
		response.RespondError(w, http.StatusInternalServerError, apperrors.ErrFailedToRetrieveWallet.Error(), err.Error())
	}
}
