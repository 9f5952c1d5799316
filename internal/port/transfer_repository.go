package port

import (
	"context"
	"errors"

	"github.com/medpos/inventory/internal/core/domain"
)

// ErrTransferNotFound is returned by ExecuteTransfer when the transfer row
// vanished before the transaction could lock it.
var ErrTransferNotFound = errors.New("stock transfer not found")

type TransferRepository interface {
	CreateTransfer(ctx context.Context, t domain.StockTransfer) error

	// GetTransfer returns nil when the transfer is absent
	GetTransfer(ctx context.Context, id string) (*domain.StockTransfer, error)

	ListTransfers(ctx context.Context, offset, limit int) ([]domain.StockTransfer, error)

	// UpdateTransfer overwrites the mutable fields of a transfer;
	// false when the transfer is absent
	UpdateTransfer(ctx context.Context, t domain.StockTransfer) (bool, error)

	// DeleteTransfer removes a transfer and, by cascade, its items;
	// false when absent
	DeleteTransfer(ctx context.Context, id string) (bool, error)

	CreateItem(ctx context.Context, item domain.TransferItem) error

	// ListItems returns a transfer's items in creation order
	ListItems(ctx context.Context, transferID string) ([]domain.TransferItem, error)

	// CountTransfers returns the total and pending transfer counts
	CountTransfers(ctx context.Context) (total, pending int, err error)

	// ExecuteTransfer runs fn inside a single storage transaction with the
	// transfer row locked for its duration. Any error from fn rolls every
	// write back; returns ErrTransferNotFound when the transfer is absent.
	ExecuteTransfer(ctx context.Context, transferID string, fn func(tx TransferTx) error) error
}

// TransferTx is the set of primitives available inside one transfer-execution
// transaction. Rows read through LockRecord stay locked until the transaction
// ends, so quantities observed during validation hold through the apply phase.
type TransferTx interface {
	// Transfer returns the transfer row as read under lock at transaction start
	Transfer() domain.StockTransfer

	// Items returns the transfer's items in creation order
	Items(ctx context.Context) ([]domain.TransferItem, error)

	// LockRecord reads a ledger record by (product, location) with a row
	// lock held until commit or rollback; nil when absent
	LockRecord(ctx context.Context, productID, locationID string) (*domain.InventoryRecord, error)

	// DeductQuantity decrements a locked record's quantity, guarded against
	// going negative
	DeductQuantity(ctx context.Context, recordID string, quantity int) error

	// AddQuantity increments the record at (product, location) by quantity,
	// creating the record if it does not exist
	AddQuantity(ctx context.Context, productID, locationID string, quantity int) error

	// UpdateTransfer persists the transfer's mutable fields within the transaction
	UpdateTransfer(ctx context.Context, t domain.StockTransfer) error
}
