package service

import (
	"errors"
	"fmt"
)

var (
	ErrRecordNotFound     = errors.New("inventory record not found")
	ErrDuplicateRecord    = errors.New("inventory record already exists for product and location")
	ErrNegativeQuantity   = errors.New("quantity must not be negative")
	ErrItemQuantity       = errors.New("item quantity must be at least 1")
	ErrTransferNotFound   = errors.New("stock transfer not found")
	ErrUnknownStatus      = errors.New("unknown transfer status")
	ErrSameLocation       = errors.New("source and destination locations must differ")
	ErrInvalidTransition  = errors.New("invalid transfer status transition")
	ErrTransferClosed     = errors.New("transfer is in a final status")
	ErrEmptyTransfer      = errors.New("transfer has no items")
	ErrCompletionInFlight = errors.New("a completion for this transfer is already in progress")
)

// InsufficientStockError identifies the product whose transfer line cannot
// be satisfied by the source location's current stock.
type InsufficientStockError struct {
	ProductID string
}

func (e *InsufficientStockError) Error() string {
	return fmt.Sprintf("insufficient stock for product %s", e.ProductID)
}
