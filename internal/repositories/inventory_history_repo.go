package repositories

import (
	"context"
	"time"

	"tavolo/internal/models"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

// InventoryHistoryRepository is append-only: entries are never updated and
// only ever removed through the items cascade on administrative purge.
type InventoryHistoryRepository interface {
	Append(ctx context.Context, entry *models.InventoryHistory) error
	ListByItemID(ctx context.Context, itemID uuid.UUID, limit, offset int) ([]*models.InventoryHistory, error)
	WithTx(tx pgx.Tx) InventoryHistoryRepository
}

type inventoryHistoryRepo struct {
	db DBTX
}

func NewInventoryHistoryRepo(db DBTX) InventoryHistoryRepository {
	return &inventoryHistoryRepo{db: db}
}

func (r *inventoryHistoryRepo) WithTx(tx pgx.Tx) InventoryHistoryRepository {
	return &inventoryHistoryRepo{db: tx}
}

func (r *inventoryHistoryRepo) Append(ctx context.Context, entry *models.InventoryHistory) error {
	if entry.ID == uuid.Nil {
		entry.ID = uuid.New()
	}
	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = time.Now()
	}
	query := `
		INSERT INTO inventory_history (id, item_id, quantity_change, previous_quantity, new_quantity, reason, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`
	_, err := r.db.Exec(ctx, query, entry.ID, entry.ItemID, entry.QuantityChange, entry.PreviousQuantity, entry.NewQuantity, entry.Reason, entry.CreatedAt)
	return err
}

// ListByItemID returns entries in creation order so callers can fold them
// from the first entry to reconstruct the live quantity.
func (r *inventoryHistoryRepo) ListByItemID(ctx context.Context, itemID uuid.UUID, limit, offset int) ([]*models.InventoryHistory, error) {
	query := `
		SELECT id, item_id, quantity_change, previous_quantity, new_quantity, reason, created_at
		FROM inventory_history
		WHERE item_id = $1
		ORDER BY created_at ASC, id ASC
		LIMIT $2 OFFSET $3
	`
	rows, err := r.db.Query(ctx, query, itemID, limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var entries []*models.InventoryHistory
	for rows.Next() {
		entry := &models.InventoryHistory{}
		if err := rows.Scan(&entry.ID, &entry.ItemID, &entry.QuantityChange, &entry.PreviousQuantity, &entry.NewQuantity, &entry.Reason, &entry.CreatedAt); err != nil {
			return nil, err
		}
		entries = append(entries, entry)
	}
	return entries, rows.Err()
}
