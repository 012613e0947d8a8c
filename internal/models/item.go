package models

import (
	"time"

	"github.com/google/uuid"
)

// ItemSearchFilter holds search and filter criteria for menu item queries
type ItemSearchFilter struct {
	Query      string     `json:"query,omitempty"`       // Full-text search across name
	CategoryID *uuid.UUID `json:"category_id,omitempty"` // Filter by category
	Status     *string    `json:"status,omitempty"`      // Status filter (active, inactive, out_of_stock)
	MinStock   *int       `json:"min_stock,omitempty"`   // Minimum stock quantity
	MaxStock   *int       `json:"max_stock,omitempty"`   // Maximum stock quantity
	MinPrice   *float64   `json:"min_price,omitempty"`   // Minimum unit price
	MaxPrice   *float64   `json:"max_price,omitempty"`   // Maximum unit price
	SortBy     string     `json:"sort_by,omitempty"`     // Sort field: name, price, stock_quantity, created_at
	SortOrder  string     `json:"sort_order,omitempty"`  // Sort order: asc, desc
	Limit      int        `json:"limit,omitempty"`       // Page size (default: 50)
	Offset     int        `json:"offset,omitempty"`      // Page offset
}

type Item struct {
	ID                uuid.UUID  `json:"id" db:"id"`
	CategoryID        *uuid.UUID `json:"category_id" db:"category_id"`
	Name              string     `json:"name" db:"name"`
	Price             float64    `json:"price" db:"price"`
	StockQuantity     int        `json:"stock_quantity" db:"stock_quantity"`
	LowStockThreshold *int       `json:"low_stock_threshold" db:"low_stock_threshold"`
	Status            string     `json:"status" db:"status"`
	CreatedAt         time.Time  `json:"created_at" db:"created_at"`
	UpdatedAt         time.Time  `json:"updated_at" db:"updated_at"`
}
