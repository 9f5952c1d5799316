package domain

import "time"

// InventoryRecord is the on-hand quantity of one product at one location.
// At most one record exists per (ProductID, LocationID) pair and Quantity
// never goes below zero.
type InventoryRecord struct {
	ID         string
	ProductID  string
	LocationID string
	Quantity   int
	CreatedAt  time.Time
	UpdatedAt  time.Time
}
