package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"

	"github.com/fundshare/exchange-backend/internal/api/middleware"
	"github.com/fundshare/exchange-backend/internal/model"
	"github.com/fundshare/exchange-backend/internal/service"
	"github.com/fundshare/exchange-backend/internal/testutil"
)

// identityRequest wraps a handler with the identity middleware and replays
// the request with the given user, the way the router composes them.
func identityRequest(handler http.HandlerFunc, req *http.Request, userID string) *httptest.ResponseRecorder {
	req.Header.Set("X-User-ID", userID)
	w := httptest.NewRecorder()
	middleware.Identity(handler).ServeHTTP(w, req)
	return w
}

func TestExchangeHandler_PlaceOrder(t *testing.T) {
	t.Run("places a valid limit order", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		handler := NewExchangeHandler(testutil.NewTestExchangeService(t, db))
		account := testutil.NewTradingAccount().Build(t, db)

		userID := testutil.MakeID()
		testutil.NewWallet(userID).WithBalance("1000").Build(t, db)

		body := `{"tradingAccountId":"` + account.ID + `","side":"Buy","type":"Limit","quantity":10,"limitPrice":"9.50"}`
		req := httptest.NewRequest(http.MethodPost, "/api/exchange/orders", strings.NewReader(body))

		w := identityRequest(handler.PlaceOrder, req, userID)

		if w.Code != http.StatusCreated {
			t.Fatalf("Expected 201, got %d: %s", w.Code, w.Body.String())
		}

		var order model.ShareOrder
		//nolint:errcheck // Test assertion - decode failure would cause test to fail anyway
		json.NewDecoder(w.Body).Decode(&order)

		if order.Status != model.OrderStatusOpen {
			t.Errorf("Expected Open order, got '%s'", order.Status)
		}
		if order.UserID != userID {
			t.Errorf("Expected order owned by caller, got '%s'", order.UserID)
		}
	})

	t.Run("returns 400 for a malformed body", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		handler := NewExchangeHandler(testutil.NewTestExchangeService(t, db))

		req := httptest.NewRequest(http.MethodPost, "/api/exchange/orders", strings.NewReader(`{"side":`))
		w := identityRequest(handler.PlaceOrder, req, testutil.MakeID())

		if w.Code != http.StatusBadRequest {
			t.Errorf("Expected 400, got %d", w.Code)
		}
	})

	t.Run("returns 400 for a market order with a limit price", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		handler := NewExchangeHandler(testutil.NewTestExchangeService(t, db))
		account := testutil.NewTradingAccount().Build(t, db)

		body := `{"tradingAccountId":"` + account.ID + `","side":"Buy","type":"Market","quantity":10,"limitPrice":"9.50"}`
		req := httptest.NewRequest(http.MethodPost, "/api/exchange/orders", strings.NewReader(body))
		w := identityRequest(handler.PlaceOrder, req, testutil.MakeID())

		if w.Code != http.StatusBadRequest {
			t.Errorf("Expected 400, got %d: %s", w.Code, w.Body.String())
		}
	})

	t.Run("returns 402 when the wallet cannot cover the order", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		handler := NewExchangeHandler(testutil.NewTestExchangeService(t, db))
		account := testutil.NewTradingAccount().Build(t, db)

		userID := testutil.MakeID()
		testutil.NewWallet(userID).WithBalance("5").Build(t, db)

		body := `{"tradingAccountId":"` + account.ID + `","side":"Buy","type":"Limit","quantity":10,"limitPrice":"9.50"}`
		req := httptest.NewRequest(http.MethodPost, "/api/exchange/orders", strings.NewReader(body))
		w := identityRequest(handler.PlaceOrder, req, userID)

		if w.Code != http.StatusPaymentRequired {
			t.Errorf("Expected 402, got %d: %s", w.Code, w.Body.String())
		}
	})

	t.Run("returns 404 for an unknown trading account", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		handler := NewExchangeHandler(testutil.NewTestExchangeService(t, db))

		userID := testutil.MakeID()
		testutil.NewWallet(userID).WithBalance("1000").Build(t, db)

		body := `{"tradingAccountId":"` + testutil.MakeID() + `","side":"Buy","type":"Limit","quantity":10,"limitPrice":"9.50"}`
		req := httptest.NewRequest(http.MethodPost, "/api/exchange/orders", strings.NewReader(body))
		w := identityRequest(handler.PlaceOrder, req, userID)

		if w.Code != http.StatusNotFound {
			t.Errorf("Expected 404, got %d: %s", w.Code, w.Body.String())
		}
	})
}

func TestExchangeHandler_CancelOrder(t *testing.T) {
	cancelRequest := func(orderID string) *http.Request {
		req := httptest.NewRequest(http.MethodDelete, "/api/exchange/orders/"+orderID, nil)
		rctx := chi.NewRouteContext()
		rctx.URLParams.Add("uuid", orderID)
		return req.WithContext(context.WithValue(req.Context(), chi.RouteCtxKey, rctx))
	}

	t.Run("cancels the caller's open order", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		handler := NewExchangeHandler(testutil.NewTestExchangeService(t, db))
		account := testutil.NewTradingAccount().Build(t, db)

		userID := testutil.MakeID()
		testutil.NewPosition(userID, account.ID, 50).Build(t, db)
		order := testutil.NewRestingOrder(userID, account.ID, model.OrderSideSell, 50, "10").Build(t, db)

		w := identityRequest(handler.CancelOrder, cancelRequest(order.ID), userID)

		if w.Code != http.StatusOK {
			t.Fatalf("Expected 200, got %d: %s", w.Code, w.Body.String())
		}

		var cancelled model.ShareOrder
		//nolint:errcheck // Test assertion - decode failure would cause test to fail anyway
		json.NewDecoder(w.Body).Decode(&cancelled)

		if cancelled.Status != model.OrderStatusCancelled {
			t.Errorf("Expected Cancelled, got '%s'", cancelled.Status)
		}
	})

	t.Run("returns 403 for another user's order", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		handler := NewExchangeHandler(testutil.NewTestExchangeService(t, db))
		account := testutil.NewTradingAccount().Build(t, db)

		owner := testutil.MakeID()
		testutil.NewPosition(owner, account.ID, 50).Build(t, db)
		order := testutil.NewRestingOrder(owner, account.ID, model.OrderSideSell, 50, "10").Build(t, db)

		w := identityRequest(handler.CancelOrder, cancelRequest(order.ID), testutil.MakeID())

		if w.Code != http.StatusForbidden {
			t.Errorf("Expected 403, got %d: %s", w.Code, w.Body.String())
		}
	})

	t.Run("returns 404 for an unknown order", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		handler := NewExchangeHandler(testutil.NewTestExchangeService(t, db))

		w := identityRequest(handler.CancelOrder, cancelRequest(testutil.MakeID()), testutil.MakeID())

		if w.Code != http.StatusNotFound {
			t.Errorf("Expected 404, got %d: %s", w.Code, w.Body.String())
		}
	})
}

func TestExchangeHandler_OrderBook(t *testing.T) {
	bookRequest := func(accountID string) *http.Request {
		req := httptest.NewRequest(http.MethodGet, "/api/exchange/accounts/"+accountID+"/book", nil)
		rctx := chi.NewRouteContext()
		rctx.URLParams.Add("uuid", accountID)
		return req.WithContext(context.WithValue(req.Context(), chi.RouteCtxKey, rctx))
	}

	t.Run("returns the aggregated book", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		handler := NewExchangeHandler(testutil.NewTestExchangeService(t, db))
		account := testutil.NewTradingAccount().Build(t, db)

		seller := testutil.MakeID()
		testutil.NewPosition(seller, account.ID, 100).Build(t, db)
		testutil.NewRestingOrder(seller, account.ID, model.OrderSideSell, 40, "10.50").Build(t, db)

		w := httptest.NewRecorder()
		handler.OrderBook(w, bookRequest(account.ID))

		if w.Code != http.StatusOK {
			t.Fatalf("Expected 200, got %d: %s", w.Code, w.Body.String())
		}

		var book model.OrderBookResponse
		//nolint:errcheck // Test assertion - decode failure would cause test to fail anyway
		json.NewDecoder(w.Body).Decode(&book)

		if len(book.Asks) != 1 || book.Asks[0].Quantity != 40 {
			t.Errorf("Expected one ask of 40, got %+v", book.Asks)
		}
	})

	t.Run("returns 404 for an unknown account", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		handler := NewExchangeHandler(testutil.NewTestExchangeService(t, db))

		w := httptest.NewRecorder()
		handler.OrderBook(w, bookRequest(testutil.MakeID()))

		if w.Code != http.StatusNotFound {
			t.Errorf("Expected 404, got %d: %s", w.Code, w.Body.String())
		}
	})
}

func TestExchangeHandler_MyOrders(t *testing.T) {
	t.Run("lists only the caller's orders", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		handler := NewExchangeHandler(testutil.NewTestExchangeService(t, db))
		account := testutil.NewTradingAccount().Build(t, db)

		caller := testutil.MakeID()
		other := testutil.MakeID()
		testutil.NewPosition(caller, account.ID, 100).Build(t, db)
		testutil.NewPosition(other, account.ID, 100).Build(t, db)
		testutil.NewRestingOrder(caller, account.ID, model.OrderSideSell, 20, "11.00").Build(t, db)
		testutil.NewRestingOrder(other, account.ID, model.OrderSideSell, 30, "12.00").Build(t, db)

		req := httptest.NewRequest(http.MethodGet, "/api/exchange/orders?accountId="+account.ID, nil)
		w := identityRequest(handler.MyOrders, req, caller)

		if w.Code != http.StatusOK {
			t.Fatalf("Expected 200, got %d: %s", w.Code, w.Body.String())
		}

		var orders []model.ShareOrder
		//nolint:errcheck // Test assertion - decode failure would cause test to fail anyway
		json.NewDecoder(w.Body).Decode(&orders)

		if len(orders) != 1 {
			t.Fatalf("Expected 1 order for the caller, got %d", len(orders))
		}
		if orders[0].UserID != caller {
			t.Errorf("Expected the caller's order, got user '%s'", orders[0].UserID)
		}
	})

	t.Run("filters by status", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		svc := testutil.NewTestExchangeService(t, db)
		handler := NewExchangeHandler(svc)
		account := testutil.NewTradingAccount().Build(t, db)

		caller := testutil.MakeID()
		testutil.NewPosition(caller, account.ID, 100).Build(t, db)
		open := testutil.NewRestingOrder(caller, account.ID, model.OrderSideSell, 20, "11.00").Build(t, db)
		cancelled := testutil.NewRestingOrder(caller, account.ID, model.OrderSideSell, 10, "12.00").Build(t, db)
		if _, err := svc.CancelOrder(context.Background(), caller, cancelled.ID); err != nil {
			t.Fatalf("CancelOrder() returned unexpected error: %v", err)
		}

		req := httptest.NewRequest(http.MethodGet, "/api/exchange/orders?status="+model.OrderStatusOpen, nil)
		w := identityRequest(handler.MyOrders, req, caller)

		if w.Code != http.StatusOK {
			t.Fatalf("Expected 200, got %d: %s", w.Code, w.Body.String())
		}

		var orders []model.ShareOrder
		//nolint:errcheck // Test assertion - decode failure would cause test to fail anyway
		json.NewDecoder(w.Body).Decode(&orders)

		if len(orders) != 1 || orders[0].ID != open.ID {
			t.Errorf("Expected only the open order, got %+v", orders)
		}
	})

	t.Run("returns 400 for a malformed account filter", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		handler := NewExchangeHandler(testutil.NewTestExchangeService(t, db))

		req := httptest.NewRequest(http.MethodGet, "/api/exchange/orders?accountId=not-a-uuid", nil)
		w := identityRequest(handler.MyOrders, req, testutil.MakeID())

		if w.Code != http.StatusBadRequest {
			t.Errorf("Expected 400, got %d: %s", w.Code, w.Body.String())
		}
	})
}

func TestExchangeHandler_MyTrades(t *testing.T) {
	t.Run("lists trades the caller took part in", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		svc := testutil.NewTestExchangeService(t, db)
		handler := NewExchangeHandler(svc)
		account := testutil.NewTradingAccount().Build(t, db)

		seller := testutil.MakeID()
		buyer := testutil.MakeID()
		bystander := testutil.MakeID()
		testutil.NewPosition(seller, account.ID, 100).Build(t, db)
		testutil.NewWallet(seller).WithBalance("0").Build(t, db)
		testutil.NewWallet(buyer).WithBalance("1000").Build(t, db)
		testutil.NewRestingOrder(seller, account.ID, model.OrderSideSell, 25, "10.00").Build(t, db)

		price := decimal.RequireFromString("10.00")
		if _, err := svc.PlaceOrder(context.Background(), buyer, service.PlaceOrderInput{
			TradingAccountID: account.ID,
			Side:             model.OrderSideBuy,
			Type:             model.OrderTypeLimit,
			Quantity:         25,
			LimitPrice:       &price,
		}); err != nil {
			t.Fatalf("PlaceOrder() returned unexpected error: %v", err)
		}

		req := httptest.NewRequest(http.MethodGet, "/api/exchange/trades", nil)
		w := identityRequest(handler.MyTrades, req, buyer)

		if w.Code != http.StatusOK {
			t.Fatalf("Expected 200, got %d: %s", w.Code, w.Body.String())
		}

		var trades []model.ShareTrade
		//nolint:errcheck // Test assertion - decode failure would cause test to fail anyway
		json.NewDecoder(w.Body).Decode(&trades)

		if len(trades) != 1 || trades[0].QuantityTraded != 25 {
			t.Fatalf("Expected the buyer's single trade of 25, got %+v", trades)
		}

		req = httptest.NewRequest(http.MethodGet, "/api/exchange/trades", nil)
		w = identityRequest(handler.MyTrades, req, bystander)

		var none []model.ShareTrade
		//nolint:errcheck // Test assertion - decode failure would cause test to fail anyway
		json.NewDecoder(w.Body).Decode(&none)

		if len(none) != 0 {
			t.Errorf("Expected no trades for a bystander, got %d", len(none))
		}
	})
}
