package storage

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/medpos/inventory/internal/core/domain"
	"github.com/medpos/inventory/internal/port"
)

type pairKey struct {
	productID  string
	locationID string
}

// MemoryAdapter is an in-memory implementation of the ledger and transfer
// repositories. Transfer execution holds one lock for the whole transaction
// and restores a snapshot on failure, mirroring the row-lock and rollback
// semantics of the MySQL adapter. Used by tests and local tooling.
type MemoryAdapter struct {
	mu        sync.Mutex
	records   map[string]domain.InventoryRecord
	byPair    map[pairKey]string
	transfers map[string]domain.StockTransfer
	items     map[string][]domain.TransferItem
}

func NewMemoryAdapter() *MemoryAdapter {
	return &MemoryAdapter{
		records:   make(map[string]domain.InventoryRecord),
		byPair:    make(map[pairKey]string),
		transfers: make(map[string]domain.StockTransfer),
		items:     make(map[string][]domain.TransferItem),
	}
}

func (m *MemoryAdapter) CreateRecord(ctx context.Context, rec domain.InventoryRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	key := pairKey{rec.ProductID, rec.LocationID}
	if _, exists := m.byPair[key]; exists {
		return port.ErrDuplicateRecord
	}
	m.records[rec.ID] = rec
	m.byPair[key] = rec.ID
	return nil
}

func (m *MemoryAdapter) GetRecord(ctx context.Context, productID, locationID string) (*domain.InventoryRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.recordByPairLocked(productID, locationID), nil
}

func (m *MemoryAdapter) GetRecordByID(ctx context.Context, id string) (*domain.InventoryRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	rec, ok := m.records[id]
	if !ok {
		return nil, nil
	}
	out := rec
	return &out, nil
}

func (m *MemoryAdapter) ListRecords(ctx context.Context, offset, limit int) ([]domain.InventoryRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	all := make([]domain.InventoryRecord, 0, len(m.records))
	for _, rec := range m.records {
		all = append(all, rec)
	}
	sort.Slice(all, func(i, j int) bool {
		if !all[i].CreatedAt.Equal(all[j].CreatedAt) {
			return all[i].CreatedAt.Before(all[j].CreatedAt)
		}
		return all[i].ID < all[j].ID
	})
	return pageRecords(all, offset, limit), nil
}

func (m *MemoryAdapter) SetQuantity(ctx context.Context, id string, quantity int) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	rec, ok := m.records[id]
	if !ok {
		return false, nil
	}
	rec.Quantity = quantity
	rec.UpdatedAt = time.Now()
	m.records[id] = rec
	return true, nil
}

func (m *MemoryAdapter) AdjustQuantity(ctx context.Context, id string, delta int) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	rec, ok := m.records[id]
	if !ok || rec.Quantity+delta < 0 {
		return false, nil
	}
	rec.Quantity += delta
	rec.UpdatedAt = time.Now()
	m.records[id] = rec
	return true, nil
}

func (m *MemoryAdapter) DeleteRecord(ctx context.Context, id string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	rec, ok := m.records[id]
	if !ok {
		return false, nil
	}
	delete(m.records, id)
	delete(m.byPair, pairKey{rec.ProductID, rec.LocationID})
	return true, nil
}

func (m *MemoryAdapter) CountRecords(ctx context.Context) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.records), nil
}

func (m *MemoryAdapter) CreateTransfer(ctx context.Context, t domain.StockTransfer) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.transfers[t.ID] = t
	return nil
}

func (m *MemoryAdapter) GetTransfer(ctx context.Context, id string) (*domain.StockTransfer, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	t, ok := m.transfers[id]
	if !ok {
		return nil, nil
	}
	out := t
	return &out, nil
}

func (m *MemoryAdapter) ListTransfers(ctx context.Context, offset, limit int) ([]domain.StockTransfer, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	all := make([]domain.StockTransfer, 0, len(m.transfers))
	for _, t := range m.transfers {
		all = append(all, t)
	}
	sort.Slice(all, func(i, j int) bool {
		if !all[i].CreatedAt.Equal(all[j].CreatedAt) {
			return all[i].CreatedAt.Before(all[j].CreatedAt)
		}
		return all[i].ID < all[j].ID
	})
	return pageTransfers(all, offset, limit), nil
}

func (m *MemoryAdapter) UpdateTransfer(ctx context.Context, t domain.StockTransfer) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.transfers[t.ID]; !ok {
		return false, nil
	}
	m.transfers[t.ID] = t
	return true, nil
}

func (m *MemoryAdapter) DeleteTransfer(ctx context.Context, id string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.transfers[id]; !ok {
		return false, nil
	}
	delete(m.transfers, id)
	delete(m.items, id)
	return true, nil
}

func (m *MemoryAdapter) CreateItem(ctx context.Context, item domain.TransferItem) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.items[item.TransferID] = append(m.items[item.TransferID], item)
	return nil
}

func (m *MemoryAdapter) ListItems(ctx context.Context, transferID string) ([]domain.TransferItem, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]domain.TransferItem(nil), m.items[transferID]...), nil
}

func (m *MemoryAdapter) CountTransfers(ctx context.Context) (total, pending int, err error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, t := range m.transfers {
		total++
		if t.Status == domain.TransferStatusPending {
			pending++
		}
	}
	return total, pending, nil
}

// ExecuteTransfer serializes transfer executions under one lock and rolls
// the store back to its pre-transaction state when fn fails.
func (m *MemoryAdapter) ExecuteTransfer(ctx context.Context, transferID string, fn func(tx port.TransferTx) error) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	t, ok := m.transfers[transferID]
	if !ok {
		return port.ErrTransferNotFound
	}

	snapRecords := make(map[string]domain.InventoryRecord, len(m.records))
	for id, rec := range m.records {
		snapRecords[id] = rec
	}
	snapPairs := make(map[pairKey]string, len(m.byPair))
	for k, v := range m.byPair {
		snapPairs[k] = v
	}
	snapTransfer := t

	if err := fn(&memoryTransferTx{store: m, transfer: t}); err != nil {
		m.records = snapRecords
		m.byPair = snapPairs
		m.transfers[transferID] = snapTransfer
		return err
	}
	return nil
}

// memoryTransferTx operates with the adapter lock already held.
type memoryTransferTx struct {
	store    *MemoryAdapter
	transfer domain.StockTransfer
}

func (e *memoryTransferTx) Transfer() domain.StockTransfer {
	return e.transfer
}

func (e *memoryTransferTx) Items(ctx context.Context) ([]domain.TransferItem, error) {
	return append([]domain.TransferItem(nil), e.store.items[e.transfer.ID]...), nil
}

func (e *memoryTransferTx) LockRecord(ctx context.Context, productID, locationID string) (*domain.InventoryRecord, error) {
	return e.store.recordByPairLocked(productID, locationID), nil
}

func (e *memoryTransferTx) DeductQuantity(ctx context.Context, recordID string, quantity int) error {
	rec, ok := e.store.records[recordID]
	if !ok || rec.Quantity < quantity {
		return fmt.Errorf("quantity guard rejected deduction on record %s", recordID)
	}
	rec.Quantity -= quantity
	rec.UpdatedAt = time.Now()
	e.store.records[recordID] = rec
	return nil
}

func (e *memoryTransferTx) AddQuantity(ctx context.Context, productID, locationID string, quantity int) error {
	key := pairKey{productID, locationID}
	now := time.Now()
	if id, ok := e.store.byPair[key]; ok {
		rec := e.store.records[id]
		rec.Quantity += quantity
		rec.UpdatedAt = now
		e.store.records[id] = rec
		return nil
	}

	rec := domain.InventoryRecord{
		ID:         uuid.NewString(),
		ProductID:  productID,
		LocationID: locationID,
		Quantity:   quantity,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	e.store.records[rec.ID] = rec
	e.store.byPair[key] = rec.ID
	return nil
}

func (e *memoryTransferTx) UpdateTransfer(ctx context.Context, t domain.StockTransfer) error {
	e.store.transfers[t.ID] = t
	return nil
}

func (m *MemoryAdapter) recordByPairLocked(productID, locationID string) *domain.InventoryRecord {
	id, ok := m.byPair[pairKey{productID, locationID}]
	if !ok {
		return nil
	}
	rec := m.records[id]
	return &rec
}

func pageRecords(all []domain.InventoryRecord, offset, limit int) []domain.InventoryRecord {
	if offset >= len(all) {
		return nil
	}
	end := offset + limit
	if end > len(all) {
		end = len(all)
	}
	return append([]domain.InventoryRecord(nil), all[offset:end]...)
}

func pageTransfers(all []domain.StockTransfer, offset, limit int) []domain.StockTransfer {
	if offset >= len(all) {
		return nil
	}
	end := offset + limit
	if end > len(all) {
		end = len(all)
	}
	return append([]domain.StockTransfer(nil), all[offset:end]...)
}
