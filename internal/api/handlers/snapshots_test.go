package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/fundshare/exchange-backend/internal/model"
	"github.com/fundshare/exchange-backend/internal/testutil"
)

func newSnapshotHandler(t *testing.T) (*SnapshotHandler, string) {
	t.Helper()
	db := testutil.SetupTestDB(t)
	account := testutil.NewTradingAccount().Build(t, db)

	holder := testutil.MakeID()
	testutil.NewPosition(holder, account.ID, 1000).Build(t, db)
	testutil.NewWallet(holder).Build(t, db)
	testutil.NewEAClosedTrade(account.ID, "T-8001", "1000").
		ClosedAt(time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)).Build(t, db)

	return NewSnapshotHandler(
		testutil.NewTestSnapshotService(t, db),
		testutil.NewTestDistributionService(t, db),
	), account.ID
}

func TestSnapshotHandler_TriggerSnapshots(t *testing.T) {
	t.Run("runs the snapshot procedure for a target date", func(t *testing.T) {
		handler, accountID := newSnapshotHandler(t)

		body := `{"targetDate":"2026-03-10","tradingAccountIds":["` + accountID + `"],"reason":"backfill"}`
		req := httptest.NewRequest(http.MethodPost, "/api/admin/snapshots/trigger", strings.NewReader(body))
		w := httptest.NewRecorder()

		handler.TriggerSnapshots(w, req)

		if w.Code != http.StatusOK {
			t.Fatalf("Expected 200, got %d: %s", w.Code, w.Body.String())
		}

		var result model.SnapshotBatchResult
		//nolint:errcheck // Test assertion - decode failure would cause test to fail anyway
		json.NewDecoder(w.Body).Decode(&result)

		if result.SnapshotsCreated != 1 {
			t.Errorf("Expected 1 snapshot created, got %d: %v", result.SnapshotsCreated, result.Errors)
		}
	})

	t.Run("returns 400 for a malformed target date", func(t *testing.T) {
		handler, accountID := newSnapshotHandler(t)

		body := `{"targetDate":"10-03-2026","tradingAccountIds":["` + accountID + `"]}`
		req := httptest.NewRequest(http.MethodPost, "/api/admin/snapshots/trigger", strings.NewReader(body))
		w := httptest.NewRecorder()

		handler.TriggerSnapshots(w, req)

		if w.Code != http.StatusBadRequest {
			t.Errorf("Expected 400, got %d: %s", w.Code, w.Body.String())
		}
	})

	t.Run("returns 404 for an unknown account", func(t *testing.T) {
		handler, _ := newSnapshotHandler(t)

		body := `{"targetDate":"2026-03-10","tradingAccountIds":["` + testutil.MakeID() + `"]}`
		req := httptest.NewRequest(http.MethodPost, "/api/admin/snapshots/trigger", strings.NewReader(body))
		w := httptest.NewRecorder()

		handler.TriggerSnapshots(w, req)

		if w.Code != http.StatusNotFound {
			t.Errorf("Expected 404, got %d: %s", w.Code, w.Body.String())
		}
	})
}

func TestSnapshotHandler_RecalculateDistribution(t *testing.T) {
	t.Run("recalculates an existing snapshot", func(t *testing.T) {
		handler, accountID := newSnapshotHandler(t)

		trigger := `{"targetDate":"2026-03-10","tradingAccountIds":["` + accountID + `"]}`
		req := httptest.NewRequest(http.MethodPost, "/api/admin/snapshots/trigger", strings.NewReader(trigger))
		w := httptest.NewRecorder()
		handler.TriggerSnapshots(w, req)
		if w.Code != http.StatusOK {
			t.Fatalf("Snapshot trigger failed: %d: %s", w.Code, w.Body.String())
		}

		body := `{"tradingAccountId":"` + accountID + `","snapshotDate":"2026-03-10","reverseExisting":true}`
		req = httptest.NewRequest(http.MethodPost, "/api/admin/distributions/recalculate", strings.NewReader(body))
		w = httptest.NewRecorder()

		handler.RecalculateDistribution(w, req)

		if w.Code != http.StatusOK {
			t.Fatalf("Expected 200, got %d: %s", w.Code, w.Body.String())
		}

		var result model.RecalculationResult
		//nolint:errcheck // Test assertion - decode failure would cause test to fail anyway
		json.NewDecoder(w.Body).Decode(&result)

		if !result.Reversed {
			t.Error("Expected recalculation to report the reversal")
		}
		if !result.Delta.IsZero() {
			t.Errorf("Expected zero delta for unchanged holdings, got %s", result.Delta)
		}
	})

	t.Run("returns 404 when no snapshot exists for the date", func(t *testing.T) {
		handler, accountID := newSnapshotHandler(t)

		body := `{"tradingAccountId":"` + accountID + `","snapshotDate":"2026-03-10","reverseExisting":true}`
		req := httptest.NewRequest(http.MethodPost, "/api/admin/distributions/recalculate", strings.NewReader(body))
		w := httptest.NewRecorder()

		handler.RecalculateDistribution(w, req)

		if w.Code != http.StatusNotFound {
			t.Errorf("Expected 404, got %d: %s", w.Code, w.Body.String())
		}
	})
}

func TestSnapshotHandler_AccountSnapshots(t *testing.T) {
	snapshotsRequest := func(accountID, query string) *http.Request {
		req := httptest.NewRequest(http.MethodGet, "/api/accounts/"+accountID+"/snapshots"+query, nil)
		rctx := chi.NewRouteContext()
		rctx.URLParams.Add("uuid", accountID)
		return req.WithContext(context.WithValue(req.Context(), chi.RouteCtxKey, rctx))
	}

	t.Run("returns snapshots within an explicit range", func(t *testing.T) {
		handler, accountID := newSnapshotHandler(t)

		trigger := `{"targetDate":"2026-03-10","tradingAccountIds":["` + accountID + `"]}`
		req := httptest.NewRequest(http.MethodPost, "/api/admin/snapshots/trigger", strings.NewReader(trigger))
		w := httptest.NewRecorder()
		handler.TriggerSnapshots(w, req)
		if w.Code != http.StatusOK {
			t.Fatalf("Snapshot trigger failed: %d: %s", w.Code, w.Body.String())
		}

		w = httptest.NewRecorder()
		handler.AccountSnapshots(w, snapshotsRequest(accountID, "?from=2026-03-01&to=2026-03-31"))

		if w.Code != http.StatusOK {
			t.Fatalf("Expected 200, got %d: %s", w.Code, w.Body.String())
		}

		var snapshots []model.TradingAccountSnapshot
		//nolint:errcheck // Test assertion - decode failure would cause test to fail anyway
		json.NewDecoder(w.Body).Decode(&snapshots)

		if len(snapshots) != 1 {
			t.Errorf("Expected 1 snapshot, got %d", len(snapshots))
		}
	})

	t.Run("returns 400 for an inverted range", func(t *testing.T) {
		handler, accountID := newSnapshotHandler(t)

		w := httptest.NewRecorder()
		handler.AccountSnapshots(w, snapshotsRequest(accountID, "?from=2026-03-31&to=2026-03-01"))

		if w.Code != http.StatusBadRequest {
			t.Errorf("Expected 400, got %d: %s", w.Code, w.Body.String())
		}
	})

	t.Run("returns 404 for an unknown account", func(t *testing.T) {
		handler, _ := newSnapshotHandler(t)

		w := httptest.NewRecorder()
		handler.AccountSnapshots(w, snapshotsRequest(testutil.MakeID(), ""))

		if w.Code != http.StatusNotFound {
			t.Errorf("Expected 404, got %d: %s", w.Code, w.Body.String())
		}
	})
}
