package handler

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gorilla/mux"

	"github.com/medpos/inventory/internal/adapter/storage"
	"github.com/medpos/inventory/internal/core/service"
)

func newTestRouter() *mux.Router {
	store := storage.NewMemoryAdapter()
	cache := storage.NewMemoryCache()
	h := NewHTTPHandler(
		service.NewLedgerService(store, cache),
		service.NewTransferService(store, cache),
	)
	r := mux.NewRouter()
	h.Register(r)
	return r
}

func doJSON(t *testing.T, router *mux.Router, method, path string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()

	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatalf("encode body: %v", err)
		}
	}

	req := httptest.NewRequest(method, path, &buf)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func decode(t *testing.T, w *httptest.ResponseRecorder, out interface{}) {
	t.Helper()
	if err := json.NewDecoder(w.Body).Decode(out); err != nil {
		t.Fatalf("decode response: %v", err)
	}
}

func TestCreateInventory(t *testing.T) {
	router := newTestRouter()

	w := doJSON(t, router, http.MethodPost, "/api/inventory", map[string]interface{}{
		"product_id":  "prod-x",
		"location_id": "loc-1",
		"quantity":    100,
	})
	if w.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", w.Code, w.Body.String())
	}

	var rec inventoryResponse
	decode(t, w, &rec)
	if rec.ID == "" || rec.Quantity != 100 {
		t.Errorf("unexpected record: %+v", rec)
	}

	// Duplicate pair
	w = doJSON(t, router, http.MethodPost, "/api/inventory", map[string]interface{}{
		"product_id":  "prod-x",
		"location_id": "loc-1",
		"quantity":    5,
	})
	if w.Code != http.StatusConflict {
		t.Errorf("expected 409 for duplicate pair, got %d", w.Code)
	}

	// Missing fields
	w = doJSON(t, router, http.MethodPost, "/api/inventory", map[string]interface{}{
		"quantity": 5,
	})
	if w.Code != http.StatusBadRequest {
		t.Errorf("expected 400 for missing fields, got %d", w.Code)
	}

	// Negative quantity
	w = doJSON(t, router, http.MethodPost, "/api/inventory", map[string]interface{}{
		"product_id":  "prod-y",
		"location_id": "loc-1",
		"quantity":    -1,
	})
	if w.Code != http.StatusBadRequest {
		t.Errorf("expected 400 for negative quantity, got %d", w.Code)
	}
}

func TestGetInventory_PointLookup(t *testing.T) {
	router := newTestRouter()

	doJSON(t, router, http.MethodPost, "/api/inventory", map[string]interface{}{
		"product_id":  "prod-x",
		"location_id": "loc-1",
		"quantity":    33,
	})

	w := doJSON(t, router, http.MethodGet, "/api/inventory?product_id=prod-x&location_id=loc-1", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	var rec inventoryResponse
	decode(t, w, &rec)
	if rec.Quantity != 33 {
		t.Errorf("expected quantity 33, got %d", rec.Quantity)
	}

	w = doJSON(t, router, http.MethodGet, "/api/inventory?product_id=prod-x&location_id=loc-9", nil)
	if w.Code != http.StatusNotFound {
		t.Errorf("expected 404, got %d", w.Code)
	}

	w = doJSON(t, router, http.MethodGet, "/api/inventory?product_id=prod-x", nil)
	if w.Code != http.StatusBadRequest {
		t.Errorf("expected 400 for half a pair, got %d", w.Code)
	}
}

func TestUpdateAndDeleteInventory(t *testing.T) {
	router := newTestRouter()

	w := doJSON(t, router, http.MethodPost, "/api/inventory", map[string]interface{}{
		"product_id":  "prod-x",
		"location_id": "loc-1",
		"quantity":    10,
	})
	var rec inventoryResponse
	decode(t, w, &rec)

	w = doJSON(t, router, http.MethodPut, "/api/inventory/"+rec.ID, map[string]interface{}{
		"quantity": 25,
	})
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", w.Code, w.Body.String())
	}
	var updated inventoryResponse
	decode(t, w, &updated)
	if updated.Quantity != 25 {
		t.Errorf("expected quantity 25, got %d", updated.Quantity)
	}

	w = doJSON(t, router, http.MethodPut, "/api/inventory/"+rec.ID, map[string]interface{}{
		"quantity": -5,
	})
	if w.Code != http.StatusBadRequest {
		t.Errorf("expected 400 for negative quantity, got %d", w.Code)
	}

	w = doJSON(t, router, http.MethodDelete, "/api/inventory/"+rec.ID, nil)
	if w.Code != http.StatusOK {
		t.Errorf("expected 200 on delete, got %d", w.Code)
	}

	w = doJSON(t, router, http.MethodDelete, "/api/inventory/"+rec.ID, nil)
	if w.Code != http.StatusNotFound {
		t.Errorf("expected 404 on second delete, got %d", w.Code)
	}
}

func createTransferWithStock(t *testing.T, router *mux.Router, qty, itemQty int) transferResponse {
	t.Helper()

	w := doJSON(t, router, http.MethodPost, "/api/inventory", map[string]interface{}{
		"product_id":  "prod-x",
		"location_id": "loc-1",
		"quantity":    qty,
	})
	if w.Code != http.StatusCreated {
		t.Fatalf("seed inventory failed: %d", w.Code)
	}

	w = doJSON(t, router, http.MethodPost, "/api/stock-transfers", map[string]interface{}{
		"business_id":      "biz-1",
		"from_location_id": "loc-1",
		"to_location_id":   "loc-2",
		"notes":            "restock branch",
	})
	if w.Code != http.StatusCreated {
		t.Fatalf("create transfer failed: %d: %s", w.Code, w.Body.String())
	}
	var tr transferResponse
	decode(t, w, &tr)

	if itemQty > 0 {
		w = doJSON(t, router, http.MethodPost, "/api/stock-transfer-items", map[string]interface{}{
			"transfer_id": tr.ID,
			"product_id":  "prod-x",
			"quantity":    itemQty,
		})
		if w.Code != http.StatusCreated {
			t.Fatalf("create item failed: %d: %s", w.Code, w.Body.String())
		}
	}
	return tr
}

func TestCompleteTransferFlow(t *testing.T) {
	router := newTestRouter()
	tr := createTransferWithStock(t, router, 100, 20)

	w := doJSON(t, router, http.MethodPut, "/api/stock-transfers/"+tr.ID, map[string]interface{}{
		"status": "completed",
	})
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", w.Code, w.Body.String())
	}
	var updated transferResponse
	decode(t, w, &updated)
	if updated.Status != "completed" {
		t.Errorf("expected status completed, got %s", updated.Status)
	}

	w = doJSON(t, router, http.MethodGet, "/api/inventory?product_id=prod-x&location_id=loc-1", nil)
	var src inventoryResponse
	decode(t, w, &src)
	if src.Quantity != 80 {
		t.Errorf("expected source quantity 80, got %d", src.Quantity)
	}

	w = doJSON(t, router, http.MethodGet, "/api/inventory?product_id=prod-x&location_id=loc-2", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("expected destination record, got %d", w.Code)
	}
	var dst inventoryResponse
	decode(t, w, &dst)
	if dst.Quantity != 20 {
		t.Errorf("expected destination quantity 20, got %d", dst.Quantity)
	}
}

func TestCompleteTransfer_InsufficientStockResponse(t *testing.T) {
	router := newTestRouter()
	tr := createTransferWithStock(t, router, 10, 20)

	w := doJSON(t, router, http.MethodPut, "/api/stock-transfers/"+tr.ID, map[string]interface{}{
		"status": "completed",
	})
	if w.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d: %s", w.Code, w.Body.String())
	}
	var resp errorResponse
	decode(t, w, &resp)
	if resp.ProductID != "prod-x" {
		t.Errorf("expected offending product in response, got %+v", resp)
	}

	// Transfer must still be pending and the ledger untouched.
	w = doJSON(t, router, http.MethodGet, "/api/stock-transfers/"+tr.ID, nil)
	var cur transferResponse
	decode(t, w, &cur)
	if cur.Status != "pending" {
		t.Errorf("expected pending, got %s", cur.Status)
	}

	w = doJSON(t, router, http.MethodGet, "/api/inventory?product_id=prod-x&location_id=loc-1", nil)
	var src inventoryResponse
	decode(t, w, &src)
	if src.Quantity != 10 {
		t.Errorf("expected source quantity 10, got %d", src.Quantity)
	}
}

func TestCompleteTransfer_EmptyTransferResponse(t *testing.T) {
	router := newTestRouter()
	tr := createTransferWithStock(t, router, 10, 0)

	w := doJSON(t, router, http.MethodPut, "/api/stock-transfers/"+tr.ID, map[string]interface{}{
		"status": "completed",
	})
	if w.Code != http.StatusBadRequest {
		t.Errorf("expected 400 for empty transfer, got %d", w.Code)
	}
}

func TestCreateTransfer_SameLocationResponse(t *testing.T) {
	router := newTestRouter()

	w := doJSON(t, router, http.MethodPost, "/api/stock-transfers", map[string]interface{}{
		"business_id":      "biz-1",
		"from_location_id": "loc-1",
		"to_location_id":   "loc-1",
	})
	if w.Code != http.StatusBadRequest {
		t.Errorf("expected 400 for same-location transfer, got %d", w.Code)
	}
}

func TestTransferNotFoundResponses(t *testing.T) {
	router := newTestRouter()

	w := doJSON(t, router, http.MethodGet, "/api/stock-transfers/missing", nil)
	if w.Code != http.StatusNotFound {
		t.Errorf("expected 404 on get, got %d", w.Code)
	}

	w = doJSON(t, router, http.MethodPut, "/api/stock-transfers/missing", map[string]interface{}{
		"status": "completed",
	})
	if w.Code != http.StatusNotFound {
		t.Errorf("expected 404 on update, got %d", w.Code)
	}
}

func TestListTransferItems(t *testing.T) {
	router := newTestRouter()
	tr := createTransferWithStock(t, router, 100, 0)

	for i := 0; i < 3; i++ {
		w := doJSON(t, router, http.MethodPost, "/api/stock-transfer-items", map[string]interface{}{
			"transfer_id": tr.ID,
			"product_id":  fmt.Sprintf("prod-%d", i),
			"quantity":    i + 1,
		})
		if w.Code != http.StatusCreated {
			t.Fatalf("create item %d failed: %d", i, w.Code)
		}
	}

	w := doJSON(t, router, http.MethodGet, "/api/stock-transfers/"+tr.ID+"/items", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	var items []itemResponse
	decode(t, w, &items)
	if len(items) != 3 {
		t.Fatalf("expected 3 items, got %d", len(items))
	}
	for i, item := range items {
		if item.Quantity != i+1 {
			t.Errorf("expected items in creation order, item %d has quantity %d", i, item.Quantity)
		}
	}
}

func TestCreateTransferItem_Validation(t *testing.T) {
	router := newTestRouter()
	tr := createTransferWithStock(t, router, 100, 0)

	w := doJSON(t, router, http.MethodPost, "/api/stock-transfer-items", map[string]interface{}{
		"transfer_id": tr.ID,
		"product_id":  "prod-x",
		"quantity":    0,
	})
	if w.Code != http.StatusBadRequest {
		t.Errorf("expected 400 for zero quantity, got %d", w.Code)
	}

	w = doJSON(t, router, http.MethodPost, "/api/stock-transfer-items", map[string]interface{}{
		"transfer_id": "missing",
		"product_id":  "prod-x",
		"quantity":    1,
	})
	if w.Code != http.StatusNotFound {
		t.Errorf("expected 404 for missing transfer, got %d", w.Code)
	}
}

func TestDashboardStats(t *testing.T) {
	router := newTestRouter()
	createTransferWithStock(t, router, 100, 20)

	w := doJSON(t, router, http.MethodGet, "/api/dashboard/stats", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	var stats map[string]int
	decode(t, w, &stats)
	if stats["inventory_records"] != 1 {
		t.Errorf("expected 1 inventory record, got %d", stats["inventory_records"])
	}
	if stats["stock_transfers"] != 1 || stats["pending_transfers"] != 1 {
		t.Errorf("unexpected transfer counts: %+v", stats)
	}
}

func TestHealthCheck(t *testing.T) {
	router := newTestRouter()

	w := doJSON(t, router, http.MethodGet, "/api/health", nil)
	if w.Code != http.StatusOK {
		t.Errorf("expected 200, got %d", w.Code)
	}
}
