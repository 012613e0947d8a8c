package services

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"
	"unicode"
	"unicode/utf8"

	"tavolo/internal/caching"
	"tavolo/internal/common"
	"tavolo/internal/models"
	"tavolo/internal/repositories"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

// ConfirmOrderRequest is the typed payload entering the confirmation
// transaction. Line items are validated before the transaction boundary.
type ConfirmOrderRequest struct {
	Items        []models.LineItemRequest
	OrderType    string
	CustomerName *string
	TableNumber  *int
	Notes        *string
	UserID       *uuid.UUID
}

// OrderServiceInterface defines the interface for order operations.
//
// Confirm and ConfirmCash run the whole create+decrement+log sequence inside
// one transaction. The stock decrement uses a single conditional atomic
// UPDATE (stock_quantity >= quantity in the WHERE clause, affected rows
// checked) rather than explicit row locks, so the storage engine serializes
// concurrent confirmations on the item row and the invariant
// stock_quantity >= 0 holds without an external lock manager.
type OrderServiceInterface interface {
	Confirm(ctx context.Context, req *ConfirmOrderRequest, paymentReference, paymentMethod string) (*models.Order, error)
	ConfirmCash(ctx context.Context, req *ConfirmOrderRequest) (*models.Order, error)
	GetOrderByID(ctx context.Context, orderID uuid.UUID) (*models.Order, error)
	ListOrders(ctx context.Context, filter *models.OrderSearchFilter) ([]*models.Order, error)
	UpdateStatus(ctx context.Context, orderID uuid.UUID, status string) error
	CancelOrder(ctx context.Context, orderID uuid.UUID) error
}

type orderService struct {
	db            repositories.TxBeginner
	orderRepo     repositories.OrderRepository
	orderItemRepo repositories.OrderItemRepository
	itemRepo      repositories.ItemRepository
	historyRepo   repositories.InventoryHistoryRepository
	receiptSvc    ReceiptService
	cacheSvc      caching.CacheService
}

// NewOrderService creates a new order service instance
func NewOrderService(db repositories.TxBeginner, orderRepo repositories.OrderRepository, orderItemRepo repositories.OrderItemRepository, itemRepo repositories.ItemRepository, historyRepo repositories.InventoryHistoryRepository, receiptSvc ReceiptService, cacheSvc caching.CacheService) OrderServiceInterface {
	return &orderService{
		db:            db,
		orderRepo:     orderRepo,
		orderItemRepo: orderItemRepo,
		itemRepo:      itemRepo,
		historyRepo:   historyRepo,
		receiptSvc:    receiptSvc,
		cacheSvc:      cacheSvc,
	}
}

// Confirm creates the order for an externally confirmed payment. Repeated
// calls with the same payment reference return the already-created order
// without mutating anything.
func (s *orderService) Confirm(ctx context.Context, req *ConfirmOrderRequest, paymentReference, paymentMethod string) (*models.Order, error) {
	if strings.TrimSpace(paymentReference) == "" {
		return nil, common.NewValidationError("payment reference is required")
	}
	if err := validateConfirmRequest(req); err != nil {
		return nil, err
	}

	// Idempotency guard: short-circuit on a known reference. This is the
	// only path that returns success without mutating.
	existing, err := s.orderRepo.GetByPaymentReference(ctx, paymentReference)
	if err == nil {
		return s.attachItems(ctx, existing)
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return nil, common.ClassifyStoreError(err)
	}

	return s.confirm(ctx, req, paymentReference, paymentMethod)
}

// ConfirmCash handles counter sales with no external payment gateway: the
// reference is minted locally and payment is completed immediately. The
// create+decrement+log sequence is identical to Confirm.
func (s *orderService) ConfirmCash(ctx context.Context, req *ConfirmOrderRequest) (*models.Order, error) {
	if err := validateConfirmRequest(req); err != nil {
		return nil, err
	}
	reference := fmt.Sprintf("CASH-%s", uuid.New().String())
	return s.confirm(ctx, req, reference, "cash")
}

func validateConfirmRequest(req *ConfirmOrderRequest) error {
	if req == nil || len(req.Items) == 0 {
		return common.NewValidationError("order must contain at least one line item")
	}
	var lines []string
	for i, line := range req.Items {
		if line.ItemID == uuid.Nil {
			lines = append(lines, fmt.Sprintf("line %d: item_id is required", i))
		}
		if line.Quantity <= 0 {
			lines = append(lines, fmt.Sprintf("line %d: quantity must be positive", i))
		}
		if line.UnitPrice <= 0 {
			lines = append(lines, fmt.Sprintf("line %d: unit_price must be positive", i))
		}
	}
	if err := common.ValidateOrderType(req.OrderType); err != nil {
		lines = append(lines, err.Error())
	}
	if len(lines) > 0 {
		return common.NewValidationError(lines...)
	}
	return nil
}

func (s *orderService) confirm(ctx context.Context, req *ConfirmOrderRequest, paymentReference, paymentMethod string) (*models.Order, error) {
	tx, err := s.db.Begin(ctx)
	if err != nil {
		return nil, common.ClassifyStoreError(err)
	}
	defer tx.Rollback(ctx)

	items := s.itemRepo.WithTx(tx)
	orders := s.orderRepo.WithTx(tx)
	orderItems := s.orderItemRepo.WithTx(tx)
	history := s.historyRepo.WithTx(tx)

	// Re-validate against the data visible inside the transaction. Still
	// advisory: stock can move underneath until the decrement commits.
	validation, err := ValidateStock(ctx, items, req.Items)
	if err != nil {
		return nil, err
	}
	if !validation.IsValid {
		return nil, &common.ValidationError{Errors: validation.Errors}
	}

	// Total comes from the caller's prices, preserving price-at-order-time
	// even if the catalog changes later.
	var total float64
	for _, line := range req.Items {
		total += float64(line.Quantity) * line.UnitPrice
	}

	order := &models.Order{
		ID:               uuid.New(),
		UserID:           req.UserID,
		OrderType:        req.OrderType,
		Status:           "confirmed",
		TotalAmount:      total,
		PaymentStatus:    "completed",
		PaymentReference: &paymentReference,
		PaymentMethod:    &paymentMethod,
		CustomerName:     req.CustomerName,
		TableNumber:      req.TableNumber,
		Notes:            req.Notes,
	}

	if err := orders.Create(ctx, order); err != nil {
		if common.IsUniqueViolation(err, "orders_payment_reference_key") {
			// Lost the duplicate-reference race: treat exactly like an
			// idempotency-guard hit and return the winning order.
			tx.Rollback(ctx)
			winner, ferr := s.orderRepo.GetByPaymentReference(ctx, paymentReference)
			if ferr != nil {
				return nil, common.ClassifyStoreError(ferr)
			}
			return s.attachItems(ctx, winner)
		}
		return nil, common.ClassifyStoreError(err)
	}

	for _, line := range req.Items {
		orderItem := &models.OrderItem{
			ID:        uuid.New(),
			OrderID:   order.ID,
			ItemID:    line.ItemID,
			Quantity:  line.Quantity,
			UnitPrice: line.UnitPrice,
			Subtotal:  float64(line.Quantity) * line.UnitPrice,
		}
		if err := orderItems.Create(ctx, orderItem); err != nil {
			return nil, common.ClassifyStoreError(err)
		}
		order.Items = append(order.Items, orderItem)
	}

	reason := paymentReason(paymentReference, paymentMethod)
	for _, line := range req.Items {
		remaining, ok, err := items.DecrementStock(ctx, line.ItemID, line.Quantity)
		if err != nil {
			return nil, common.ClassifyStoreError(err)
		}
		if !ok {
			// Stock moved between validation and decrement; the guard
			// rejected the write. Roll everything back with the live
			// numbers in the message.
			return nil, s.insufficientStockError(ctx, items, line)
		}
		if remaining < 0 {
			return nil, &common.FatalIntegrityError{Err: fmt.Errorf("item %s stock went negative after decrement", line.ItemID)}
		}
		entry := &models.InventoryHistory{
			ItemID:           line.ItemID,
			QuantityChange:   -line.Quantity,
			PreviousQuantity: remaining + line.Quantity,
			NewQuantity:      remaining,
			Reason:           reason,
		}
		if err := history.Append(ctx, entry); err != nil {
			return nil, common.ClassifyStoreError(err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, common.ClassifyStoreError(err)
	}

	for _, line := range req.Items {
		if cacheErr := s.cacheSvc.DeleteItem(ctx, line.ItemID); cacheErr != nil {
			log.Printf("Failed to invalidate cache for item %s: %v", line.ItemID.String(), cacheErr)
		}
	}

	// Receipt generation is fire-and-forget: a failure here must never fail
	// or roll back the confirmation.
	if s.receiptSvc != nil {
		if rerr := s.receiptSvc.Generate(ctx, order); rerr != nil {
			log.Printf("Receipt generation failed for order %s: %v", order.ID.String(), rerr)
		}
	}

	return order, nil
}

func paymentReason(reference, method string) string {
	label := method
	if r, size := utf8.DecodeRuneInString(label); size > 0 {
		label = string(unicode.ToUpper(r)) + label[size:]
	}
	return fmt.Sprintf("Order %s - %s Payment", reference, label)
}

func (s *orderService) insufficientStockError(ctx context.Context, items repositories.ItemRepository, line models.LineItemRequest) error {
	item, err := items.GetByID(ctx, line.ItemID)
	if err != nil {
		return common.NewValidationError(fmt.Sprintf("Item with ID %s not found", line.ItemID))
	}
	return common.NewValidationError(fmt.Sprintf("Insufficient stock for '%s'. Available: %d, Requested: %d", item.Name, item.StockQuantity, line.Quantity))
}

func (s *orderService) attachItems(ctx context.Context, order *models.Order) (*models.Order, error) {
	lines, err := s.orderItemRepo.ListByOrderID(ctx, order.ID)
	if err != nil {
		return nil, common.ClassifyStoreError(err)
	}
	order.Items = lines
	return order, nil
}

// GetOrderByID retrieves an order with its line items
func (s *orderService) GetOrderByID(ctx context.Context, orderID uuid.UUID) (*models.Order, error) {
	order, err := s.orderRepo.GetByID(ctx, orderID)
	if err != nil {
		return nil, err
	}
	return s.attachItems(ctx, order)
}

// ListOrders lists orders with filtering and pagination
func (s *orderService) ListOrders(ctx context.Context, filter *models.OrderSearchFilter) ([]*models.Order, error) {
	if filter == nil {
		filter = &models.OrderSearchFilter{}
	}
	return s.orderRepo.List(ctx, filter)
}

// statusTransitions is the forward-only order workflow.
var statusTransitions = map[string][]string{
	"pending":   {"confirmed", "cancelled"},
	"confirmed": {"preparing", "refunded"},
	"preparing": {"ready"},
	"ready":     {"delivered"},
	"delivered": {"refunded"},
}

// UpdateStatus advances an order through the workflow; backwards moves are
// rejected.
func (s *orderService) UpdateStatus(ctx context.Context, orderID uuid.UUID, status string) error {
	if err := common.ValidateOrderStatus(status); err != nil {
		return common.NewValidationError(err.Error())
	}

	order, err := s.orderRepo.GetByID(ctx, orderID)
	if err != nil {
		return err
	}

	allowed := false
	for _, next := range statusTransitions[order.Status] {
		if next == status {
			allowed = true
			break
		}
	}
	if !allowed {
		return common.NewValidationError(fmt.Sprintf("cannot move order from '%s' to '%s'", order.Status, status))
	}

	if err := s.orderRepo.UpdateStatus(ctx, orderID, status); err != nil {
		return common.ClassifyStoreError(err)
	}
	if status == "refunded" {
		if err := s.orderRepo.UpdatePaymentStatus(ctx, orderID, "refunded"); err != nil {
			return common.ClassifyStoreError(err)
		}
	}
	return nil
}

// CancelOrder cancels an order; only permitted while payment is still
// pending. Confirmed orders have already taken stock and must be refunded
// instead.
func (s *orderService) CancelOrder(ctx context.Context, orderID uuid.UUID) error {
	order, err := s.orderRepo.GetByID(ctx, orderID)
	if err != nil {
		return err
	}
	if order.PaymentStatus != "pending" {
		return common.NewValidationError(fmt.Sprintf("cannot cancel order with payment status '%s'", order.PaymentStatus))
	}
	if err := s.orderRepo.UpdateStatus(ctx, orderID, "cancelled"); err != nil {
		return common.ClassifyStoreError(err)
	}
	return nil
}
