package domain

import (
	"fmt"
	"time"
)

type TransferStatus string

const (
	TransferStatusPending   TransferStatus = "pending"
	TransferStatusCompleted TransferStatus = "completed"
	TransferStatusCancelled TransferStatus = "cancelled"
)

// ParseTransferStatus rejects anything outside the known status set.
func ParseTransferStatus(s string) (TransferStatus, error) {
	switch TransferStatus(s) {
	case TransferStatusPending, TransferStatusCompleted, TransferStatusCancelled:
		return TransferStatus(s), nil
	}
	return "", fmt.Errorf("unknown transfer status %q", s)
}

// CanTransition reports whether a transfer may move from one status to
// another. Completed and cancelled are terminal; a same-status update is
// always allowed so that non-status fields stay editable.
func CanTransition(from, to TransferStatus) bool {
	if from == to {
		return true
	}
	return from == TransferStatusPending
}

// IsFinal reports whether the status accepts no further transitions.
func (s TransferStatus) IsFinal() bool {
	return s == TransferStatusCompleted || s == TransferStatusCancelled
}

// StockTransfer is a request to move stock between two locations of a
// business. Stock moves only on the pending -> completed transition.
type StockTransfer struct {
	ID             string
	BusinessID     string
	FromLocationID string
	ToLocationID   string
	Status         TransferStatus
	Notes          string
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

// TransferItem is one (product, quantity) line of a transfer.
type TransferItem struct {
	ID         string
	TransferID string
	ProductID  string
	Quantity   int
	CreatedAt  time.Time
}
