package handlers

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/fundshare/exchange-backend/internal/model"
	"github.com/fundshare/exchange-backend/internal/testutil"
)

func TestPortfolioHandler_MyPortfolio(t *testing.T) {
	t.Run("returns the caller's valued positions", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		handler := NewPortfolioHandler(testutil.NewTestPortfolioService(t, db))
		account := testutil.NewTradingAccount().WithNav("12000").Build(t, db)

		userID := testutil.MakeID()
		testutil.NewPosition(userID, account.ID, 100).WithAverageBuyPrice("10").Build(t, db)

		req := httptest.NewRequest(http.MethodGet, "/api/portfolio", nil)
		w := identityRequest(handler.MyPortfolio, req, userID)

		if w.Code != http.StatusOK {
			t.Fatalf("Expected 200, got %d: %s", w.Code, w.Body.String())
		}

		var items []model.PortfolioItemResponse
		//nolint:errcheck // Test assertion - decode failure would cause test to fail anyway
		json.NewDecoder(w.Body).Decode(&items)

		if len(items) != 1 {
			t.Fatalf("Expected 1 position, got %d", len(items))
		}
		if items[0].Quantity != 100 {
			t.Errorf("Expected 100 shares, got %d", items[0].Quantity)
		}
		if items[0].TradingAccountName != account.Name {
			t.Errorf("Expected account name '%s', got '%s'", account.Name, items[0].TradingAccountName)
		}
	})

	t.Run("returns an empty array for a user with no positions", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		handler := NewPortfolioHandler(testutil.NewTestPortfolioService(t, db))

		req := httptest.NewRequest(http.MethodGet, "/api/portfolio", nil)
		w := identityRequest(handler.MyPortfolio, req, testutil.MakeID())

		if w.Code != http.StatusOK {
			t.Fatalf("Expected 200, got %d: %s", w.Code, w.Body.String())
		}
		if body := strings.TrimSpace(w.Body.String()); body != "[]" {
			t.Errorf("Expected empty array, got %s", body)
		}
	})
}
