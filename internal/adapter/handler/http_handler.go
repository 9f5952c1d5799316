package handler

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"strconv"
	"time"

	"github.com/gorilla/mux"

	"github.com/medpos/inventory/internal/core/domain"
	"github.com/medpos/inventory/internal/core/service"
)

type HTTPHandler struct {
	ledger    *service.LedgerService
	transfers *service.TransferService
}

func NewHTTPHandler(ledger *service.LedgerService, transfers *service.TransferService) *HTTPHandler {
	return &HTTPHandler{ledger: ledger, transfers: transfers}
}

// Register wires every route onto the router.
func (h *HTTPHandler) Register(r *mux.Router) {
	r.HandleFunc("/api/health", h.HealthCheck).Methods(http.MethodGet)
	r.HandleFunc("/api/dashboard/stats", h.DashboardStats).Methods(http.MethodGet)

	r.HandleFunc("/api/inventory", h.CreateInventory).Methods(http.MethodPost)
	r.HandleFunc("/api/inventory", h.GetInventory).Methods(http.MethodGet)
	r.HandleFunc("/api/inventory/{id}", h.GetInventoryByID).Methods(http.MethodGet)
	r.HandleFunc("/api/inventory/{id}", h.UpdateInventory).Methods(http.MethodPut)
	r.HandleFunc("/api/inventory/{id}", h.DeleteInventory).Methods(http.MethodDelete)

	r.HandleFunc("/api/stock-transfers", h.CreateTransfer).Methods(http.MethodPost)
	r.HandleFunc("/api/stock-transfers", h.ListTransfers).Methods(http.MethodGet)
	r.HandleFunc("/api/stock-transfers/{id}", h.GetTransfer).Methods(http.MethodGet)
	r.HandleFunc("/api/stock-transfers/{id}", h.UpdateTransfer).Methods(http.MethodPut)
	r.HandleFunc("/api/stock-transfers/{id}", h.DeleteTransfer).Methods(http.MethodDelete)
	r.HandleFunc("/api/stock-transfers/{id}/items", h.ListTransferItems).Methods(http.MethodGet)
	r.HandleFunc("/api/stock-transfer-items", h.CreateTransferItem).Methods(http.MethodPost)
}

type inventoryResponse struct {
	ID         string    `json:"id"`
	ProductID  string    `json:"product_id"`
	LocationID string    `json:"location_id"`
	Quantity   int       `json:"quantity"`
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`
}

type transferResponse struct {
	ID             string    `json:"id"`
	BusinessID     string    `json:"business_id"`
	FromLocationID string    `json:"from_location_id"`
	ToLocationID   string    `json:"to_location_id"`
	Status         string    `json:"status"`
	Notes          string    `json:"notes"`
	CreatedAt      time.Time `json:"created_at"`
	UpdatedAt      time.Time `json:"updated_at"`
}

type itemResponse struct {
	ID         string    `json:"id"`
	TransferID string    `json:"transfer_id"`
	ProductID  string    `json:"product_id"`
	Quantity   int       `json:"quantity"`
	CreatedAt  time.Time `json:"created_at"`
}

type errorResponse struct {
	Error     string `json:"error"`
	ProductID string `json:"product_id,omitempty"`
}

func toInventoryResponse(rec domain.InventoryRecord) inventoryResponse {
	return inventoryResponse{
		ID:         rec.ID,
		ProductID:  rec.ProductID,
		LocationID: rec.LocationID,
		Quantity:   rec.Quantity,
		CreatedAt:  rec.CreatedAt,
		UpdatedAt:  rec.UpdatedAt,
	}
}

func toTransferResponse(t domain.StockTransfer) transferResponse {
	return transferResponse{
		ID:             t.ID,
		BusinessID:     t.BusinessID,
		FromLocationID: t.FromLocationID,
		ToLocationID:   t.ToLocationID,
		Status:         string(t.Status),
		Notes:          t.Notes,
		CreatedAt:      t.CreatedAt,
		UpdatedAt:      t.UpdatedAt,
	}
}

func toItemResponse(item domain.TransferItem) itemResponse {
	return itemResponse{
		ID:         item.ID,
		TransferID: item.TransferID,
		ProductID:  item.ProductID,
		Quantity:   item.Quantity,
		CreatedAt:  item.CreatedAt,
	}
}

func (h *HTTPHandler) CreateInventory(w http.ResponseWriter, r *http.Request) {
	var req struct {
		ProductID  string `json:"product_id"`
		LocationID string `json:"location_id"`
		Quantity   int    `json:"quantity"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid request body"})
		return
	}
	if req.ProductID == "" || req.LocationID == "" {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "product_id and location_id are required"})
		return
	}

	rec, err := h.ledger.CreateRecord(r.Context(), req.ProductID, req.LocationID, req.Quantity)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, toInventoryResponse(*rec))
}

// GetInventory serves both the point lookup (location_id + product_id query
// parameters) and the paged listing.
func (h *HTTPHandler) GetInventory(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	productID := q.Get("product_id")
	locationID := q.Get("location_id")

	if productID != "" || locationID != "" {
		if productID == "" || locationID == "" {
			writeJSON(w, http.StatusBadRequest, errorResponse{Error: "both product_id and location_id are required for a point lookup"})
			return
		}
		rec, err := h.ledger.GetRecord(r.Context(), productID, locationID)
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, toInventoryResponse(*rec))
		return
	}

	offset, limit := pageParams(r)
	recs, err := h.ledger.ListRecords(r.Context(), offset, limit)
	if err != nil {
		writeError(w, err)
		return
	}
	out := make([]inventoryResponse, 0, len(recs))
	for _, rec := range recs {
		out = append(out, toInventoryResponse(rec))
	}
	writeJSON(w, http.StatusOK, out)
}

func (h *HTTPHandler) GetInventoryByID(w http.ResponseWriter, r *http.Request) {
	rec, err := h.ledger.GetRecordByID(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toInventoryResponse(*rec))
}

func (h *HTTPHandler) UpdateInventory(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Quantity *int `json:"quantity"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid request body"})
		return
	}

	id := mux.Vars(r)["id"]
	if req.Quantity == nil {
		// Nothing to change; echo the current record.
		rec, err := h.ledger.GetRecordByID(r.Context(), id)
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, toInventoryResponse(*rec))
		return
	}

	rec, err := h.ledger.SetQuantity(r.Context(), id, *req.Quantity)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toInventoryResponse(*rec))
}

func (h *HTTPHandler) DeleteInventory(w http.ResponseWriter, r *http.Request) {
	rec, err := h.ledger.DeleteRecord(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toInventoryResponse(*rec))
}

func (h *HTTPHandler) CreateTransfer(w http.ResponseWriter, r *http.Request) {
	var req struct {
		BusinessID     string `json:"business_id"`
		FromLocationID string `json:"from_location_id"`
		ToLocationID   string `json:"to_location_id"`
		Notes          string `json:"notes"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid request body"})
		return
	}
	if req.BusinessID == "" || req.FromLocationID == "" || req.ToLocationID == "" {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "business_id, from_location_id and to_location_id are required"})
		return
	}

	t, err := h.transfers.CreateTransfer(r.Context(), req.BusinessID, req.FromLocationID, req.ToLocationID, req.Notes)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, toTransferResponse(*t))
}

func (h *HTTPHandler) ListTransfers(w http.ResponseWriter, r *http.Request) {
	offset, limit := pageParams(r)
	ts, err := h.transfers.ListTransfers(r.Context(), offset, limit)
	if err != nil {
		writeError(w, err)
		return
	}
	out := make([]transferResponse, 0, len(ts))
	for _, t := range ts {
		out = append(out, toTransferResponse(t))
	}
	writeJSON(w, http.StatusOK, out)
}

func (h *HTTPHandler) GetTransfer(w http.ResponseWriter, r *http.Request) {
	t, err := h.transfers.GetTransfer(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toTransferResponse(*t))
}

func (h *HTTPHandler) UpdateTransfer(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Status         *string `json:"status"`
		Notes          *string `json:"notes"`
		FromLocationID *string `json:"from_location_id"`
		ToLocationID   *string `json:"to_location_id"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid request body"})
		return
	}

	t, err := h.transfers.UpdateTransfer(r.Context(), mux.Vars(r)["id"], service.TransferPatch{
		Status:         req.Status,
		Notes:          req.Notes,
		FromLocationID: req.FromLocationID,
		ToLocationID:   req.ToLocationID,
	})
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toTransferResponse(*t))
}

func (h *HTTPHandler) DeleteTransfer(w http.ResponseWriter, r *http.Request) {
	t, err := h.transfers.DeleteTransfer(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toTransferResponse(*t))
}

func (h *HTTPHandler) CreateTransferItem(w http.ResponseWriter, r *http.Request) {
	var req struct {
		TransferID string `json:"transfer_id"`
		ProductID  string `json:"product_id"`
		Quantity   int    `json:"quantity"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid request body"})
		return
	}
	if req.TransferID == "" || req.ProductID == "" {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "transfer_id and product_id are required"})
		return
	}

	item, err := h.transfers.AddItem(r.Context(), req.TransferID, req.ProductID, req.Quantity)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, toItemResponse(*item))
}

func (h *HTTPHandler) ListTransferItems(w http.ResponseWriter, r *http.Request) {
	items, err := h.transfers.ListItems(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		writeError(w, err)
		return
	}
	out := make([]itemResponse, 0, len(items))
	for _, item := range items {
		out = append(out, toItemResponse(item))
	}
	writeJSON(w, http.StatusOK, out)
}

func (h *HTTPHandler) DashboardStats(w http.ResponseWriter, r *http.Request) {
	records, err := h.ledger.CountRecords(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}
	total, pending, err := h.transfers.CountTransfers(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]int{
		"inventory_records": records,
		"stock_transfers":   total,
		"pending_transfers": pending,
	})
}

func (h *HTTPHandler) HealthCheck(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func pageParams(r *http.Request) (offset, limit int) {
	q := r.URL.Query()
	offset, _ = strconv.Atoi(q.Get("offset"))
	limit, _ = strconv.Atoi(q.Get("limit"))
	return offset, limit
}

func writeError(w http.ResponseWriter, err error) {
	var insufficient *service.InsufficientStockError

	switch {
	case errors.As(err, &insufficient):
		writeJSON(w, http.StatusBadRequest, errorResponse{
			Error:     insufficient.Error(),
			ProductID: insufficient.ProductID,
		})
	case errors.Is(err, service.ErrRecordNotFound),
		errors.Is(err, service.ErrTransferNotFound):
		writeJSON(w, http.StatusNotFound, errorResponse{Error: err.Error()})
	case errors.Is(err, service.ErrDuplicateRecord),
		errors.Is(err, service.ErrCompletionInFlight):
		writeJSON(w, http.StatusConflict, errorResponse{Error: err.Error()})
	case errors.Is(err, service.ErrNegativeQuantity),
		errors.Is(err, service.ErrItemQuantity),
		errors.Is(err, service.ErrSameLocation),
		errors.Is(err, service.ErrInvalidTransition),
		errors.Is(err, service.ErrUnknownStatus),
		errors.Is(err, service.ErrTransferClosed),
		errors.Is(err, service.ErrEmptyTransfer):
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: err.Error()})
	default:
		log.Printf("internal error: %v", err)
		writeJSON(w, http.StatusInternalServerError, errorResponse{Error: "internal error"})
	}
}

func writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}
