package repositories

import (
	"context"
	"fmt"

	"tavolo/internal/models"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

type OrderRepository interface {
	Create(ctx context.Context, order *models.Order) error
	GetByID(ctx context.Context, id uuid.UUID) (*models.Order, error)
	GetByPaymentReference(ctx context.Context, reference string) (*models.Order, error)
	UpdateStatus(ctx context.Context, id uuid.UUID, status string) error
	UpdatePaymentStatus(ctx context.Context, id uuid.UUID, paymentStatus string) error
	Delete(ctx context.Context, id uuid.UUID) error
	List(ctx context.Context, filter *models.OrderSearchFilter) ([]*models.Order, error)
	WithTx(tx pgx.Tx) OrderRepository
}

type orderRepo struct {
	db DBTX
}

func NewOrderRepo(db DBTX) OrderRepository {
	return &orderRepo{db: db}
}

func (r *orderRepo) WithTx(tx pgx.Tx) OrderRepository {
	return &orderRepo{db: tx}
}

func (r *orderRepo) Create(ctx context.Context, order *models.Order) error {
	// payment_reference carries a unique index; the order service relies on
	// the 23505 from a lost duplicate race.
	query := `
		INSERT INTO orders (id, user_id, order_type, status, total_amount, payment_status, payment_reference, payment_method, customer_name, table_number, notes, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, NOW(), NOW())
	`
	_, err := r.db.Exec(ctx, query, order.ID, order.UserID, order.OrderType, order.Status, order.TotalAmount, order.PaymentStatus, order.PaymentReference, order.PaymentMethod, order.CustomerName, order.TableNumber, order.Notes)
	return err
}

func (r *orderRepo) GetByID(ctx context.Context, id uuid.UUID) (*models.Order, error) {
	order := &models.Order{}
	query := `
		SELECT id, user_id, order_type, status, total_amount, payment_status, payment_reference, payment_method, customer_name, table_number, notes, created_at, updated_at
		FROM orders
		WHERE id = $1
	`
	err := r.db.QueryRow(ctx, query, id).Scan(&order.ID, &order.UserID, &order.OrderType, &order.Status, &order.TotalAmount, &order.PaymentStatus, &order.PaymentReference, &order.PaymentMethod, &order.CustomerName, &order.TableNumber, &order.Notes, &order.CreatedAt, &order.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return order, nil
}

func (r *orderRepo) GetByPaymentReference(ctx context.Context, reference string) (*models.Order, error) {
	order := &models.Order{}
	query := `
		SELECT id, user_id, order_type, status, total_amount, payment_status, payment_reference, payment_method, customer_name, table_number, notes, created_at, updated_at
		FROM orders
		WHERE payment_reference = $1
	`
	err := r.db.QueryRow(ctx, query, reference).Scan(&order.ID, &order.UserID, &order.OrderType, &order.Status, &order.TotalAmount, &order.PaymentStatus, &order.PaymentReference, &order.PaymentMethod, &order.CustomerName, &order.TableNumber, &order.Notes, &order.CreatedAt, &order.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return order, nil
}

func (r *orderRepo) UpdateStatus(ctx context.Context, id uuid.UUID, status string) error {
	query := `
		UPDATE orders
		SET status = $1, updated_at = NOW()
		WHERE id = $2
	`
	tag, err := r.db.Exec(ctx, query, status, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}

func (r *orderRepo) UpdatePaymentStatus(ctx context.Context, id uuid.UUID, paymentStatus string) error {
	query := `
		UPDATE orders
		SET payment_status = $1, updated_at = NOW()
		WHERE id = $2
	`
	tag, err := r.db.Exec(ctx, query, paymentStatus, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}

func (r *orderRepo) Delete(ctx context.Context, id uuid.UUID) error {
	query := `DELETE FROM orders WHERE id = $1`
	_, err := r.db.Exec(ctx, query, id)
	return err
}

func (r *orderRepo) List(ctx context.Context, filter *models.OrderSearchFilter) ([]*models.Order, error) {
	// Set defaults
	if filter.Limit == 0 {
		filter.Limit = 50
	}
	if filter.SortBy == "" {
		filter.SortBy = "created_at"
	}
	if filter.SortOrder == "" {
		filter.SortOrder = "desc"
	}

	queryBase := `
		SELECT id, user_id, order_type, status, total_amount, payment_status, payment_reference, payment_method, customer_name, table_number, notes, created_at, updated_at
		FROM orders
		WHERE 1=1
	`
	args := []interface{}{}
	conditionCount := 0

	if filter.Query != "" {
		conditionCount++
		queryBase += fmt.Sprintf(` AND (COALESCE(notes, '') ILIKE $%d OR COALESCE(customer_name, '') ILIKE $%d)`, conditionCount, conditionCount)
		args = append(args, "%"+filter.Query+"%")
	}
	if filter.Status != nil {
		conditionCount++
		queryBase += fmt.Sprintf(` AND status = $%d`, conditionCount)
		args = append(args, *filter.Status)
	}
	if filter.OrderType != nil {
		conditionCount++
		queryBase += fmt.Sprintf(` AND order_type = $%d`, conditionCount)
		args = append(args, *filter.OrderType)
	}
	if filter.PaymentStatus != nil {
		conditionCount++
		queryBase += fmt.Sprintf(` AND payment_status = $%d`, conditionCount)
		args = append(args, *filter.PaymentStatus)
	}
	if filter.CreatedFrom != nil {
		conditionCount++
		queryBase += fmt.Sprintf(` AND created_at >= $%d`, conditionCount)
		args = append(args, *filter.CreatedFrom)
	}
	if filter.CreatedTo != nil {
		conditionCount++
		queryBase += fmt.Sprintf(` AND created_at <= $%d`, conditionCount)
		args = append(args, *filter.CreatedTo)
	}

	sortField := "created_at"
	switch filter.SortBy {
	case "total_amount":
		sortField = "total_amount"
	case "status":
		sortField = "status"
	}
	sortOrder := "DESC"
	if filter.SortOrder == "asc" {
		sortOrder = "ASC"
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

	var orders []*models.Order
	for rows.Next() {
		order := &models.Order{}
		if err := rows.Scan(&order.ID, &order.UserID, &order.OrderType, &order.Status, &order.TotalAmount, &order.PaymentStatus, &order.PaymentReference, &order.PaymentMethod, &order.CustomerName, &order.TableNumber, &order.Notes, &order.CreatedAt, &order.UpdatedAt); err != nil {
			return nil, err
		}
		orders = append(orders, order)
	}
	return orders, rows.Err()
}
