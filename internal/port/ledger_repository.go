package port

import (
	"context"
	"errors"

	"github.com/medpos/inventory/internal/core/domain"
)

// ErrDuplicateRecord is returned by CreateRecord when a ledger record for
// the (product, location) pair already exists.
var ErrDuplicateRecord = errors.New("ledger record already exists")

type LedgerRepository interface {
	// CreateRecord inserts a new ledger record; returns ErrDuplicateRecord
	// if the (product, location) pair is already present
	CreateRecord(ctx context.Context, rec domain.InventoryRecord) error

	// GetRecord looks a record up by its (product, location) pair; nil when absent
	GetRecord(ctx context.Context, productID, locationID string) (*domain.InventoryRecord, error)

	// GetRecordByID looks a record up by surrogate id; nil when absent
	GetRecordByID(ctx context.Context, id string) (*domain.InventoryRecord, error)

	// ListRecords returns a page of records in creation order
	ListRecords(ctx context.Context, offset, limit int) ([]domain.InventoryRecord, error)

	// SetQuantity overwrites the quantity of a record; false when the record is absent
	SetQuantity(ctx context.Context, id string, quantity int) (bool, error)

	// AdjustQuantity adds delta to a record's quantity, guarded so the result
	// cannot go negative; false when the guard rejects the write or the
	// record is absent
	AdjustQuantity(ctx context.Context, id string, delta int) (bool, error)

	// DeleteRecord removes a record; false when absent
	DeleteRecord(ctx context.Context, id string) (bool, error)

	// CountRecords returns the total number of ledger records
	CountRecords(ctx context.Context) (int, error)
}
