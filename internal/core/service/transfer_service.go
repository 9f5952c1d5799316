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

// TransferService owns the stock-transfer lifecycle. Completion is the only
// transition that moves stock: it validates and applies every item of the
// transfer against the ledger inside a single repository transaction.
type TransferService struct {
	repo  port.TransferRepository
	cache port.CacheRepository
}

func NewTransferService(repo port.TransferRepository, cache port.CacheRepository) *TransferService {
	return &TransferService{repo: repo, cache: cache}
}

// TransferPatch carries the updatable fields of a transfer; nil means
// "leave unchanged".
type TransferPatch struct {
	Status         *string
	Notes          *string
	FromLocationID *string
	ToLocationID   *string
}

func (s *TransferService) CreateTransfer(ctx context.Context, businessID, fromLocationID, toLocationID, notes string) (*domain.StockTransfer, error) {
	if businessID == "" || fromLocationID == "" || toLocationID == "" {
		return nil, fmt.Errorf("business and location ids are required")
	}
	if fromLocationID == toLocationID {
		return nil, ErrSameLocation
	}

	now := time.Now()
	t := domain.StockTransfer{
		ID:             uuid.NewString(),
		BusinessID:     businessID,
		FromLocationID: fromLocationID,
		ToLocationID:   toLocationID,
		Status:         domain.TransferStatusPending,
		Notes:          notes,
		CreatedAt:      now,
		UpdatedAt:      now,
	}

	if err := s.repo.CreateTransfer(ctx, t); err != nil {
		return nil, fmt.Errorf("create transfer: %w", err)
	}

	return &t, nil
}

func (s *TransferService) GetTransfer(ctx context.Context, id string) (*domain.StockTransfer, error) {
	t, err := s.repo.GetTransfer(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("get transfer: %w", err)
	}
	if t == nil {
		return nil, ErrTransferNotFound
	}
	return t, nil
}

func (s *TransferService) ListTransfers(ctx context.Context, offset, limit int) ([]domain.StockTransfer, error) {
	if limit <= 0 {
		limit = defaultListLimit
	}
	if offset < 0 {
		offset = 0
	}
	ts, err := s.repo.ListTransfers(ctx, offset, limit)
	if err != nil {
		return nil, fmt.Errorf("list transfers: %w", err)
	}
	return ts, nil
}

// UpdateTransfer applies a field patch to a transfer. Moving the status onto
// the pending -> completed edge triggers stock execution first; if execution
// fails nothing is persisted and the transfer stays pending. Re-submitting
// "completed" for an already-completed transfer updates fields only and
// never touches the ledger again.
func (s *TransferService) UpdateTransfer(ctx context.Context, id string, patch TransferPatch) (*domain.StockTransfer, error) {
	t, err := s.GetTransfer(ctx, id)
	if err != nil {
		return nil, err
	}

	updated := *t
	if patch.Status != nil {
		st, err := domain.ParseTransferStatus(*patch.Status)
		if err != nil {
			return nil, fmt.Errorf("%w: %q", ErrUnknownStatus, *patch.Status)
		}
		if !domain.CanTransition(t.Status, st) {
			return nil, fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, t.Status, st)
		}
		updated.Status = st
	}
	if patch.Notes != nil {
		updated.Notes = *patch.Notes
	}
	if patch.FromLocationID != nil {
		updated.FromLocationID = *patch.FromLocationID
	}
	if patch.ToLocationID != nil {
		updated.ToLocationID = *patch.ToLocationID
	}
	if updated.FromLocationID == updated.ToLocationID {
		return nil, ErrSameLocation
	}
	updated.UpdatedAt = time.Now()

	if updated.Status == domain.TransferStatusCompleted && t.Status != domain.TransferStatusCompleted {
		return s.completeTransfer(ctx, updated)
	}

	ok, err := s.repo.UpdateTransfer(ctx, updated)
	if err != nil {
		return nil, fmt.Errorf("update transfer: %w", err)
	}
	if !ok {
		return nil, ErrTransferNotFound
	}
	return &updated, nil
}

func (s *TransferService) DeleteTransfer(ctx context.Context, id string) (*domain.StockTransfer, error) {
	t, err := s.GetTransfer(ctx, id)
	if err != nil {
		return nil, err
	}

	ok, err := s.repo.DeleteTransfer(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("delete transfer: %w", err)
	}
	if !ok {
		return nil, ErrTransferNotFound
	}
	return t, nil
}

// AddItem attaches a (product, quantity) line to a transfer. Items must be
// in place before completion is requested; they are read at transition time.
func (s *TransferService) AddItem(ctx context.Context, transferID, productID string, quantity int) (*domain.TransferItem, error) {
	if productID == "" {
		return nil, fmt.Errorf("product id is required")
	}
	if quantity < 1 {
		return nil, ErrItemQuantity
	}

	t, err := s.GetTransfer(ctx, transferID)
	if err != nil {
		return nil, err
	}
	if t.Status.IsFinal() {
		return nil, ErrTransferClosed
	}

	item := domain.TransferItem{
		ID:         uuid.NewString(),
		TransferID: transferID,
		ProductID:  productID,
		Quantity:   quantity,
		CreatedAt:  time.Now(),
	}

	if err := s.repo.CreateItem(ctx, item); err != nil {
		return nil, fmt.Errorf("create item: %w", err)
	}

	return &item, nil
}

func (s *TransferService) ListItems(ctx context.Context, transferID string) ([]domain.TransferItem, error) {
	if _, err := s.GetTransfer(ctx, transferID); err != nil {
		return nil, err
	}
	items, err := s.repo.ListItems(ctx, transferID)
	if err != nil {
		return nil, fmt.Errorf("list items: %w", err)
	}
	return items, nil
}

func (s *TransferService) CountTransfers(ctx context.Context) (total, pending int, err error) {
	total, pending, err = s.repo.CountTransfers(ctx)
	if err != nil {
		return 0, 0, fmt.Errorf("count transfers: %w", err)
	}
	return total, pending, nil
}

type recordKey struct {
	productID  string
	locationID string
}

// completeTransfer runs the two-phase validate-then-apply execution of a
// transfer against the ledger. All reads and writes happen inside one
// repository transaction with the transfer row and every source row locked,
// so either every line's movement and the status change commit together or
// none of them do.
func (s *TransferService) completeTransfer(ctx context.Context, t domain.StockTransfer) (*domain.StockTransfer, error) {
	ok, err := s.cache.AcquireCompletionGuard(ctx, t.ID)
	if err != nil {
		return nil, fmt.Errorf("completion guard: %w", err)
	}
	if !ok {
		return nil, ErrCompletionInFlight
	}

	var touched []recordKey

	err = s.repo.ExecuteTransfer(ctx, t.ID, func(tx port.TransferTx) error {
		cur := tx.Transfer()
		if cur.Status == domain.TransferStatusCompleted {
			// Lost a race to another submission. Persist the field patch
			// but leave the ledger alone.
			return tx.UpdateTransfer(ctx, t)
		}

		items, err := tx.Items(ctx)
		if err != nil {
			return fmt.Errorf("load items: %w", err)
		}
		if len(items) == 0 {
			return ErrEmptyTransfer
		}

		// Phase 1: lock every source row and validate the combined demand
		// per product. Aggregating first means two lines for the same
		// product cannot pass individually while jointly exceeding stock.
		required := make(map[string]int, len(items))
		productOrder := make([]string, 0, len(items))
		for _, it := range items {
			if _, seen := required[it.ProductID]; !seen {
				productOrder = append(productOrder, it.ProductID)
			}
			required[it.ProductID] += it.Quantity
		}

		sourceID := make(map[string]string, len(productOrder))
		for _, productID := range productOrder {
			rec, err := tx.LockRecord(ctx, productID, t.FromLocationID)
			if err != nil {
				return fmt.Errorf("lock source record: %w", err)
			}
			if rec == nil || rec.Quantity < required[productID] {
				return &InsufficientStockError{ProductID: productID}
			}
			sourceID[productID] = rec.ID
		}

		// Phase 2: apply every line. The source rows are still locked, so
		// the validated quantities hold.
		for _, it := range items {
			if err := tx.DeductQuantity(ctx, sourceID[it.ProductID], it.Quantity); err != nil {
				return fmt.Errorf("deduct source stock: %w", err)
			}
			if err := tx.AddQuantity(ctx, it.ProductID, t.ToLocationID, it.Quantity); err != nil {
				return fmt.Errorf("add destination stock: %w", err)
			}
			touched = append(touched,
				recordKey{productID: it.ProductID, locationID: t.FromLocationID},
				recordKey{productID: it.ProductID, locationID: t.ToLocationID},
			)
		}

		if err := tx.UpdateTransfer(ctx, t); err != nil {
			return fmt.Errorf("persist transfer status: %w", err)
		}
		return nil
	})
	if err != nil {
		s.cache.ReleaseCompletionGuard(ctx, t.ID)
		if errors.Is(err, port.ErrTransferNotFound) {
			return nil, ErrTransferNotFound
		}
		return nil, err
	}

	for _, k := range touched {
		s.cache.DeleteRecord(ctx, k.productID, k.locationID)
	}

	return &t, nil
}
