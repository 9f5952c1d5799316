package port

import (
	"context"

	"github.com/medpos/inventory/internal/core/domain"
)

type CacheRepository interface {
	// GetRecord returns a cached ledger record, nil on cache miss
	GetRecord(ctx context.Context, productID, locationID string) (*domain.InventoryRecord, error)

	// SetRecord caches a ledger record for point lookups
	SetRecord(ctx context.Context, rec domain.InventoryRecord) error

	// DeleteRecord drops a cached record after a mutation
	DeleteRecord(ctx context.Context, productID, locationID string) error

	// AcquireCompletionGuard sets a guard key for a transfer completion,
	// returns false if a completion for the transfer is already in flight
	AcquireCompletionGuard(ctx context.Context, transferID string) (bool, error)

	// ReleaseCompletionGuard removes the guard key after a failed completion
	ReleaseCompletionGuard(ctx context.Context, transferID string) error
}
