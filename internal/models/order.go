package models

import (
	"time"

	"github.com/google/uuid"
)

// LineItemRequest is one item+quantity+price-snapshot entry of an incoming
// order request. UnitPrice is the price agreed at order time; it is stored
// verbatim and never re-fetched from the catalog.
type LineItemRequest struct {
	ItemID    uuid.UUID `json:"item_id"`
	Quantity  int       `json:"quantity"`
	UnitPrice float64   `json:"unit_price"`
}

// OrderSearchFilter holds search and filter criteria for order queries
type OrderSearchFilter struct {
	Query         string     `json:"query,omitempty"`          // Full-text search across notes, customer name
	Status        *string    `json:"status,omitempty"`         // Status filter (pending, confirmed, preparing, ...)
	OrderType     *string    `json:"order_type,omitempty"`     // Order type filter (dine_in, takeaway)
	PaymentStatus *string    `json:"payment_status,omitempty"` // Payment status filter
	CreatedFrom   *time.Time `json:"created_from,omitempty"`   // Created from
	CreatedTo     *time.Time `json:"created_to,omitempty"`     // Created to
	SortBy        string     `json:"sort_by,omitempty"`        // Sort field: created_at, total_amount, status
	SortOrder     string     `json:"sort_order,omitempty"`     // Sort order: asc, desc
	Limit         int        `json:"limit,omitempty"`          // Page size (default: 50)
	Offset        int        `json:"offset,omitempty"`         // Page offset
}

type Order struct {
	ID               uuid.UUID    `json:"id" db:"id"`
	UserID           *uuid.UUID   `json:"user_id" db:"user_id"`
	OrderType        string       `json:"order_type" db:"order_type"`
	Status           string       `json:"status" db:"status"`
	TotalAmount      float64      `json:"total_amount" db:"total_amount"`
	PaymentStatus    string       `json:"payment_status" db:"payment_status"`
	PaymentReference *string      `json:"payment_reference" db:"payment_reference"`
	PaymentMethod    *string      `json:"payment_method" db:"payment_method"`
	CustomerName     *string      `json:"customer_name" db:"customer_name"`
	TableNumber      *int         `json:"table_number" db:"table_number"`
	Notes            *string      `json:"notes" db:"notes"`
	Items            []*OrderItem `json:"items,omitempty" db:"-"`
	CreatedAt        time.Time    `json:"created_at" db:"created_at"`
	UpdatedAt        time.Time    `json:"updated_at" db:"updated_at"`
}
