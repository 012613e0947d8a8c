package repositories

import (
	"context"
	"fmt"

	"tavolo/internal/models"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

type ItemRepository interface {
	Create(ctx context.Context, item *models.Item) error
	GetByID(ctx context.Context, id uuid.UUID) (*models.Item, error)
	Update(ctx context.Context, item *models.Item) error
	Delete(ctx context.Context, id uuid.UUID) error
	List(ctx context.Context, limit, offset int) ([]*models.Item, error)
	AdvancedSearch(ctx context.Context, filter *models.ItemSearchFilter) ([]*models.Item, error)
	ListLowStock(ctx context.Context) ([]*models.Item, error)

	// SetStockQuantity overwrites the stock level; used only by the manual
	// adjustment path, inside its transaction.
	SetStockQuantity(ctx context.Context, id uuid.UUID, quantity int) error

	// GetStockForUpdate reads the current quantity under a row lock held for
	// the remainder of the enclosing transaction.
	GetStockForUpdate(ctx context.Context, id uuid.UUID) (int, error)

	// DecrementStock atomically takes quantity units off the item's stock,
	// guarded by stock_quantity >= quantity so the row can never go negative.
	// ok is false when the guard rejected the decrement; remaining is the
	// post-decrement quantity when ok.
	DecrementStock(ctx context.Context, id uuid.UUID, quantity int) (remaining int, ok bool, err error)

	// WithTx returns a repository bound to the given transaction.
	WithTx(tx pgx.Tx) ItemRepository
}

type itemRepo struct {
	db DBTX
}

func NewItemRepo(db DBTX) ItemRepository {
	return &itemRepo{db: db}
}

func (r *itemRepo) WithTx(tx pgx.Tx) ItemRepository {
	return &itemRepo{db: tx}
}

func (r *itemRepo) Create(ctx context.Context, item *models.Item) error {
	query := `
		INSERT INTO items (id, category_id, name, price, stock_quantity, low_stock_threshold, status, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, NOW(), NOW())
	`
	_, err := r.db.Exec(ctx, query, item.ID, item.CategoryID, item.Name, item.Price, item.StockQuantity, item.LowStockThreshold, item.Status)
	return err
}

func (r *itemRepo) GetByID(ctx context.Context, id uuid.UUID) (*models.Item, error) {
	item := &models.Item{}
	query := `
		SELECT id, category_id, name, price, stock_quantity, low_stock_threshold, status, created_at, updated_at
		FROM items
		WHERE id = $1
	`
	err := r.db.QueryRow(ctx, query, id).Scan(&item.ID, &item.CategoryID, &item.Name, &item.Price, &item.StockQuantity, &item.LowStockThreshold, &item.Status, &item.CreatedAt, &item.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return item, nil
}

func (r *itemRepo) Update(ctx context.Context, item *models.Item) error {
	query := `
		UPDATE items
		SET category_id = $1, name = $2, price = $3, low_stock_threshold = $4, status = $5, updated_at = NOW()
		WHERE id = $6
	`
	_, err := r.db.Exec(ctx, query, item.CategoryID, item.Name, item.Price, item.LowStockThreshold, item.Status, item.ID)
	return err
}

func (r *itemRepo) Delete(ctx context.Context, id uuid.UUID) error {
	// Dependent history and line items cascade first; an item is never
	// removed while rows still reference it.
	query := `DELETE FROM items WHERE id = $1`
	_, err := r.db.Exec(ctx, query, id)
	return err
}

func (r *itemRepo) List(ctx context.Context, limit, offset int) ([]*models.Item, error) {
	query := `
		SELECT id, category_id, name, price, stock_quantity, low_stock_threshold, status, created_at, updated_at
		FROM items
		ORDER BY name ASC
		LIMIT $1 OFFSET $2
	`
	rows, err := r.db.Query(ctx, query, limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return scanItems(rows)
}

func (r *itemRepo) ListLowStock(ctx context.Context) ([]*models.Item, error) {
	// A NULL threshold means alerting is disabled for the item.
	query := `
		SELECT id, category_id, name, price, stock_quantity, low_stock_threshold, status, created_at, updated_at
		FROM items
		WHERE low_stock_threshold IS NOT NULL AND stock_quantity <= low_stock_threshold
		ORDER BY stock_quantity ASC
	`
	rows, err := r.db.Query(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return scanItems(rows)
}

func (r *itemRepo) SetStockQuantity(ctx context.Context, id uuid.UUID, quantity int) error {
	// Restocking a sold-out item brings it back on sale; DecrementStock is the
	// path that flips it to out_of_stock.
	query := `
		UPDATE items
		SET stock_quantity = $1,
		    status = CASE WHEN status = 'out_of_stock' AND $1 > 0 THEN 'active' ELSE status END,
		    updated_at = NOW()
		WHERE id = $2
	`
	tag, err := r.db.Exec(ctx, query, quantity, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}

func (r *itemRepo) GetStockForUpdate(ctx context.Context, id uuid.UUID) (int, error) {
	query := `SELECT stock_quantity FROM items WHERE id = $1 FOR UPDATE`
	var quantity int
	err := r.db.QueryRow(ctx, query, id).Scan(&quantity)
	if err != nil {
		return 0, err
	}
	return quantity, nil
}

func (r *itemRepo) DecrementStock(ctx context.Context, id uuid.UUID, quantity int) (int, bool, error) {
	// The WHERE guard makes the read-then-decrement a single atomic
	// statement; concurrent confirmations on the same item serialize on the
	// row and the loser of an exhausted stock race simply matches no rows.
	query := `
		UPDATE items
		SET stock_quantity = stock_quantity - $1,
		    status = CASE WHEN stock_quantity - $1 = 0 THEN 'out_of_stock' ELSE status END,
		    updated_at = NOW()
		WHERE id = $2 AND stock_quantity >= $1
		RETURNING stock_quantity
	`
	var remaining int
	err := r.db.QueryRow(ctx, query, quantity, id).Scan(&remaining)
	if err == pgx.ErrNoRows {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, err
	}
	return remaining, true, nil
}

// AdvancedSearch performs filtered search on menu items
func (r *itemRepo) AdvancedSearch(ctx context.Context, filter *models.ItemSearchFilter) ([]*models.Item, error) {
	// Set defaults
	if filter.Limit == 0 {
		filter.Limit = 50
	}
	if filter.SortBy == "" {
		filter.SortBy = "name"
	}
	if filter.SortOrder == "" {
		filter.SortOrder = "asc"
	}

	queryBase := `
		SELECT id, category_id, name, price, stock_quantity, low_stock_threshold, status, created_at, updated_at
		FROM items
		WHERE 1=1
	`
	args := []interface{}{}
	conditionCount := 0

	if filter.Query != "" {
		conditionCount++
		queryBase += fmt.Sprintf(` AND name ILIKE $%d`, conditionCount)
		args = append(args, "%"+filter.Query+"%")
	}
	if filter.CategoryID != nil {
		conditionCount++
		queryBase += fmt.Sprintf(` AND category_id = $%d`, conditionCount)
		args = append(args, *filter.CategoryID)
	}
	if filter.Status != nil {
		conditionCount++
		queryBase += fmt.Sprintf(` AND status = $%d`, conditionCount)
		args = append(args, *filter.Status)
	}
	if filter.MinStock != nil {
		conditionCount++
		queryBase += fmt.Sprintf(` AND stock_quantity >= $%d`, conditionCount)
		args = append(args, *filter.MinStock)
	}
	if filter.MaxStock != nil {
		conditionCount++
		queryBase += fmt.Sprintf(` AND stock_quantity <= $%d`, conditionCount)
		args = append(args, *filter.MaxStock)
	}
	if filter.MinPrice != nil {
		conditionCount++
		queryBase += fmt.Sprintf(` AND price >= $%d`, conditionCount)
		args = append(args, *filter.MinPrice)
	}
	if filter.MaxPrice != nil {
		conditionCount++
		queryBase += fmt.Sprintf(` AND price <= $%d`, conditionCount)
		args = append(args, *filter.MaxPrice)
	}

	sortField := "name"
	switch filter.SortBy {
	case "price":
		sortField = "price"
	case "stock_quantity":
		sortField = "stock_quantity"
	case "created_at":
		sortField = "created_at"
	}
	sortOrder := "ASC"
	if filter.SortOrder == "desc" {
		sortOrder = "DESC"
	}
	queryBase += fmt.Sprintf(` ORDER BY %s %s`, sortField, sortOrder)

	conditionCount++
	queryBase += fmt.Sprintf(` LIMIT $%d`, conditionCount)
	args = append(args, filter.Limit)
	if filter.Offset > 0 {
		conditionCount++
		queryBase += fmt.Sprintf(` OFFSET $%d`, conditionCount)
		args = append(args, filter.Offset)
	}

	rows, err := r.db.Query(ctx, queryBase, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return scanItems(rows)
}

func scanItems(rows pgx.Rows) ([]*models.Item, error) {
	var items []*models.Item
	for rows.Next() {
		item := &models.Item{}
		if err := rows.Scan(&item.ID, &item.CategoryID, &item.Name, &item.Price, &item.StockQuantity, &item.LowStockThreshold, &item.Status, &item.CreatedAt, &item.UpdatedAt); err != nil {
			return nil, err
		}
		items = append(items, item)
	}
	return items, rows.Err()
}
