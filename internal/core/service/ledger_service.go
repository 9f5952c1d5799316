package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/medpos/inventory/internal/core/domain"
	"github.com/medpos/inventory/internal/port"
)

const defaultListLimit = 100

// LedgerService owns the per-(product, location) on-hand quantity records.
type LedgerService struct {
	repo  port.LedgerRepository
	cache port.CacheRepository
}

func NewLedgerService(repo port.LedgerRepository, cache port.CacheRepository) *LedgerService {
	return &LedgerService{repo: repo, cache: cache}
}

func (s *LedgerService) CreateRecord(ctx context.Context, productID, locationID string, quantity int) (*domain.InventoryRecord, error) {
	if productID == "" || locationID == "" {
		return nil, fmt.Errorf("product and location ids are required")
	}
	if quantity < 0 {
		return nil, ErrNegativeQuantity
	}

	now := time.Now()
	rec := domain.InventoryRecord{
		ID:         uuid.NewString(),
		ProductID:  productID,
		LocationID: locationID,
		Quantity:   quantity,
		CreatedAt:  now,
		UpdatedAt:  now,
	}

	if err := s.repo.CreateRecord(ctx, rec); err != nil {
		if errors.Is(err, port.ErrDuplicateRecord) {
			return nil, ErrDuplicateRecord
		}
		return nil, fmt.Errorf("create record: %w", err)
	}

	return &rec, nil
}

// GetRecord is the point lookup by (product, location). Reads go through the
// cache; a miss falls back to the repository and repopulates it.
func (s *LedgerService) GetRecord(ctx context.Context, productID, locationID string) (*domain.InventoryRecord, error) {
	if cached, err := s.cache.GetRecord(ctx, productID, locationID); err == nil && cached != nil {
		return cached, nil
	}

	rec, err := s.repo.GetRecord(ctx, productID, locationID)
	if err != nil {
		return nil, fmt.Errorf("get record: %w", err)
	}
	if rec == nil {
		return nil, ErrRecordNotFound
	}

	// Best effort; a failed cache write only costs the next read a DB trip.
	s.cache.SetRecord(ctx, *rec)

	return rec, nil
}

func (s *LedgerService) GetRecordByID(ctx context.Context, id string) (*domain.InventoryRecord, error) {
	rec, err := s.repo.GetRecordByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("get record by id: %w", err)
	}
	if rec == nil {
		return nil, ErrRecordNotFound
	}
	return rec, nil
}

func (s *LedgerService) ListRecords(ctx context.Context, offset, limit int) ([]domain.InventoryRecord, error) {
	if limit <= 0 {
		limit = defaultListLimit
	}
	if offset < 0 {
		offset = 0
	}
	recs, err := s.repo.ListRecords(ctx, offset, limit)
	if err != nil {
		return nil, fmt.Errorf("list records: %w", err)
	}
	return recs, nil
}

// SetQuantity overwrites a record's quantity.
func (s *LedgerService) SetQuantity(ctx context.Context, id string, quantity int) (*domain.InventoryRecord, error) {
	if quantity < 0 {
		return nil, ErrNegativeQuantity
	}

	rec, err := s.GetRecordByID(ctx, id)
	if err != nil {
		return nil, err
	}

	ok, err := s.repo.SetQuantity(ctx, id, quantity)
	if err != nil {
		return nil, fmt.Errorf("set quantity: %w", err)
	}
	if !ok {
		return nil, ErrRecordNotFound
	}

	s.cache.DeleteRecord(ctx, rec.ProductID, rec.LocationID)

	updated := *rec
	updated.Quantity = quantity
	updated.UpdatedAt = time.Now()
	return &updated, nil
}

// AdjustQuantity applies a delta to a record's quantity. The repository's
// guarded update serializes concurrent adjustments per row and rejects any
// write that would drive the quantity negative.
func (s *LedgerService) AdjustQuantity(ctx context.Context, id string, delta int) (*domain.InventoryRecord, error) {
	rec, err := s.GetRecordByID(ctx, id)
	if err != nil {
		return nil, err
	}

	ok, err := s.repo.AdjustQuantity(ctx, id, delta)
	if err != nil {
		return nil, fmt.Errorf("adjust quantity: %w", err)
	}
	if !ok {
		return nil, &InsufficientStockError{ProductID: rec.ProductID}
	}

	s.cache.DeleteRecord(ctx, rec.ProductID, rec.LocationID)

	updated := *rec
	updated.Quantity += delta
	updated.UpdatedAt = time.Now()
	return &updated, nil
}

// DeleteRecord removes a ledger record. Deletion is an explicit
// administrative action; nothing in the transfer path deletes rows.
func (s *LedgerService) DeleteRecord(ctx context.Context, id string) (*domain.InventoryRecord, error) {
	rec, err := s.GetRecordByID(ctx, id)
	if err != nil {
		return nil, err
	}

	ok, err := s.repo.DeleteRecord(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("delete record: %w", err)
	}
	if !ok {
		return nil, ErrRecordNotFound
	}

	s.cache.DeleteRecord(ctx, rec.ProductID, rec.LocationID)

	return rec, nil
}

func (s *LedgerService) CountRecords(ctx context.Context) (int, error) {
	n, err := s.repo.CountRecords(ctx)
	if err != nil {
		return 0, fmt.Errorf("count records: %w", err)
	}
	return n, nil
}
