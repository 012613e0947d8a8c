package models

import (
	"time"

	"github.com/google/uuid"
)

// InventoryHistory is one append-only ledger entry for a stock change.
// Invariant: NewQuantity = PreviousQuantity + QuantityChange, and folding an
// item's entries in creation order reproduces its live stock_quantity.
type InventoryHistory struct {
	ID               uuid.UUID `json:"id" db:"id"`
	ItemID           uuid.UUID `json:"item_id" db:"item_id"`
	QuantityChange   int       `json:"quantity_change" db:"quantity_change"`
	PreviousQuantity int       `json:"previous_quantity" db:"previous_quantity"`
	NewQuantity      int       `json:"new_quantity" db:"new_quantity"`
	Reason           string    `json:"reason" db:"reason"`
	CreatedAt        time.Time `json:"created_at" db:"created_at"`
}
