package services

import (
	"context"
	"fmt"
	"strings"
	"testing"
	"time"

	"tavolo/internal/common"
	"tavolo/internal/models"
	"tavolo/internal/repositories"

	"github.com/google/uuid"
	pgx "github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	pgxmock "github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/suite"
)

const (
	selectItemSQL = `
		SELECT id, category_id, name, price, stock_quantity, low_stock_threshold, status, created_at, updated_at
		FROM items
		WHERE id = \$1
	`
	selectOrderByReferenceSQL = `
		SELECT id, user_id, order_type, status, total_amount, payment_status, payment_reference, payment_method, customer_name, table_number, notes, created_at, updated_at
		FROM orders
		WHERE payment_reference = \$1
	`
	insertOrderTestSQL = `
		INSERT INTO orders \(id, user_id, order_type, status, total_amount, payment_status, payment_reference, payment_method, customer_name, table_number, notes, created_at, updated_at\)
		VALUES \(\$1, \$2, \$3, \$4, \$5, \$6, \$7, \$8, \$9, \$10, \$11, NOW\(\), NOW\(\)\)
	`
	insertOrderItemSQL = `
		INSERT INTO order_items \(id, order_id, item_id, quantity, unit_price, subtotal, created_at\)
		VALUES \(\$1, \$2, \$3, \$4, \$5, \$6, NOW\(\)\)
	`
	decrementStockTestSQL = `
		UPDATE items
		SET stock_quantity = stock_quantity - \$1,
		    status = CASE WHEN stock_quantity - \$1 = 0 THEN 'out_of_stock' ELSE status END,
		    updated_at = NOW\(\)
		WHERE id = \$2 AND stock_quantity >= \$1
		RETURNING stock_quantity
	`
	insertHistoryTestSQL = `
		INSERT INTO inventory_history \(id, item_id, quantity_change, previous_quantity, new_quantity, reason, created_at\)
		VALUES \(\$1, \$2, \$3, \$4, \$5, \$6, \$7\)
	`
	selectOrderItemsSQL = `
		SELECT id, order_id, item_id, quantity, unit_price, subtotal, created_at
		FROM order_items
		WHERE order_id = \$1
		ORDER BY created_at ASC
	`
	selectOrderByIDSQL = `
		SELECT id, user_id, order_type, status, total_amount, payment_status, payment_reference, payment_method, customer_name, table_number, notes, created_at, updated_at
		FROM orders
		WHERE id = \$1
	`
	updateOrderStatusSQL = `
		UPDATE orders
		SET status = \$1, updated_at = NOW\(\)
		WHERE id = \$2
	`
	updatePaymentStatusSQL = `
		UPDATE orders
		SET payment_status = \$1, updated_at = NOW\(\)
		WHERE id = \$2
	`
)

var itemColumns = []string{"id", "category_id", "name", "price", "stock_quantity", "low_stock_threshold", "status", "created_at", "updated_at"}
var orderColumns = []string{"id", "user_id", "order_type", "status", "total_amount", "payment_status", "payment_reference", "payment_method", "customer_name", "table_number", "notes", "created_at", "updated_at"}
var orderItemColumns = []string{"id", "order_id", "item_id", "quantity", "unit_price", "subtotal", "created_at"}

type OrderServiceTestSuite struct {
	suite.Suite
	mock      pgxmock.PgxPoolIface
	mockCache *MockCacheService
	service   OrderServiceInterface
	itemID    uuid.UUID
	context   context.Context
}

func (suite *OrderServiceTestSuite) SetupTest() {
	mock, err := pgxmock.NewPool()
	assert.NoError(suite.T(), err)
	suite.mock = mock

	suite.mockCache = new(MockCacheService)
	suite.service = NewOrderService(
		mock,
		repositories.NewOrderRepo(mock),
		repositories.NewOrderItemRepo(mock),
		repositories.NewItemRepo(mock),
		repositories.NewInventoryHistoryRepo(mock),
		nil,
		suite.mockCache,
	)
	suite.itemID = uuid.New()
	suite.context = context.Background()
}

func (suite *OrderServiceTestSuite) TearDownTest() {
	suite.mock.Close()
}

func TestOrderServiceTestSuite(t *testing.T) {
	suite.Run(t, new(OrderServiceTestSuite))
}

func strPtr(s string) *string {
	return &s
}

func (suite *OrderServiceTestSuite) itemRow(name string, stock int) *pgxmock.Rows {
	now := time.Now()
	return pgxmock.NewRows(itemColumns).
		AddRow(suite.itemID, nil, name, 9.50, stock, nil, "active", now, now)
}

func (suite *OrderServiceTestSuite) singleLineRequest(quantity int) *ConfirmOrderRequest {
	return &ConfirmOrderRequest{
		Items:     []models.LineItemRequest{{ItemID: suite.itemID, Quantity: quantity, UnitPrice: 9.50}},
		OrderType: "dine_in",
	}
}

func (suite *OrderServiceTestSuite) TestConfirm_Success() {
	suite.mockCache.On("DeleteItem", mock.Anything, suite.itemID).Return(nil)

	suite.mock.ExpectQuery(selectOrderByReferenceSQL).
		WithArgs("PAY-123").
		WillReturnError(pgx.ErrNoRows)

	suite.mock.ExpectBegin()
	suite.mock.ExpectQuery(selectItemSQL).
		WithArgs(suite.itemID).
		WillReturnRows(suite.itemRow("Margherita", 10))
	suite.mock.ExpectExec(insertOrderTestSQL).
		WithArgs(pgxmock.AnyArg(), pgxmock.AnyArg(), "dine_in", "confirmed", 19.00, "completed", pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg()).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))
	suite.mock.ExpectExec(insertOrderItemSQL).
		WithArgs(pgxmock.AnyArg(), pgxmock.AnyArg(), suite.itemID, 2, 9.50, 19.00).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))
	suite.mock.ExpectQuery(decrementStockTestSQL).
		WithArgs(2, suite.itemID).
		WillReturnRows(pgxmock.NewRows([]string{"stock_quantity"}).AddRow(8))
	suite.mock.ExpectExec(insertHistoryTestSQL).
		WithArgs(pgxmock.AnyArg(), suite.itemID, -2, 10, 8, "Order PAY-123 - Card Payment", pgxmock.AnyArg()).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))
	suite.mock.ExpectCommit()

	order, err := suite.service.Confirm(suite.context, suite.singleLineRequest(2), "PAY-123", "card")

	assert.NoError(suite.T(), err)
	assert.Equal(suite.T(), "confirmed", order.Status)
	assert.Equal(suite.T(), "completed", order.PaymentStatus)
	assert.Equal(suite.T(), 19.00, order.TotalAmount)
	assert.Equal(suite.T(), "PAY-123", *order.PaymentReference)
	assert.Len(suite.T(), order.Items, 1)
	assert.Equal(suite.T(), 19.00, order.Items[0].Subtotal)
	suite.mockCache.AssertCalled(suite.T(), "DeleteItem", mock.Anything, suite.itemID)
}

func (suite *OrderServiceTestSuite) TestConfirm_UsesCallerPriceSnapshot() {
	suite.mockCache.On("DeleteItem", mock.Anything, suite.itemID).Return(nil)

	suite.mock.ExpectQuery(selectOrderByReferenceSQL).
		WithArgs("PAY-123").
		WillReturnError(pgx.ErrNoRows)

	suite.mock.ExpectBegin()
	// Catalog price moved to 12.00 after the order was taken at 9.50; the
	// caller's agreed price wins everywhere
	now := time.Now()
	suite.mock.ExpectQuery(selectItemSQL).
		WithArgs(suite.itemID).
		WillReturnRows(pgxmock.NewRows(itemColumns).
			AddRow(suite.itemID, nil, "Margherita", 12.00, 10, nil, "active", now, now))
	suite.mock.ExpectExec(insertOrderTestSQL).
		WithArgs(pgxmock.AnyArg(), pgxmock.AnyArg(), "dine_in", "confirmed", 19.00, "completed", pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg()).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))
	suite.mock.ExpectExec(insertOrderItemSQL).
		WithArgs(pgxmock.AnyArg(), pgxmock.AnyArg(), suite.itemID, 2, 9.50, 19.00).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))
	suite.mock.ExpectQuery(decrementStockTestSQL).
		WithArgs(2, suite.itemID).
		WillReturnRows(pgxmock.NewRows([]string{"stock_quantity"}).AddRow(8))
	suite.mock.ExpectExec(insertHistoryTestSQL).
		WithArgs(pgxmock.AnyArg(), suite.itemID, -2, 10, 8, "Order PAY-123 - Card Payment", pgxmock.AnyArg()).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))
	suite.mock.ExpectCommit()

	order, err := suite.service.Confirm(suite.context, suite.singleLineRequest(2), "PAY-123", "card")

	assert.NoError(suite.T(), err)
	assert.Equal(suite.T(), 19.00, order.TotalAmount)
	assert.Equal(suite.T(), 9.50, order.Items[0].UnitPrice)
	assert.Equal(suite.T(), 19.00, order.Items[0].Subtotal)
}

func (suite *OrderServiceTestSuite) TestConfirm_IdempotentReplay() {
	existingID := uuid.New()
	now := time.Now()

	// The reference is already known; no transaction, no decrement
	suite.mock.ExpectQuery(selectOrderByReferenceSQL).
		WithArgs("PAY-123").
		WillReturnRows(pgxmock.NewRows(orderColumns).
			AddRow(existingID, nil, "dine_in", "confirmed", 19.00, "completed", strPtr("PAY-123"), strPtr("card"), nil, nil, nil, now, now))
	suite.mock.ExpectQuery(selectOrderItemsSQL).
		WithArgs(existingID).
		WillReturnRows(pgxmock.NewRows(orderItemColumns).
			AddRow(uuid.New(), existingID, suite.itemID, 2, 9.50, 19.00, now))

	order, err := suite.service.Confirm(suite.context, suite.singleLineRequest(2), "PAY-123", "card")

	assert.NoError(suite.T(), err)
	assert.Equal(suite.T(), existingID, order.ID)
	assert.Len(suite.T(), order.Items, 1)
}

func (suite *OrderServiceTestSuite) TestConfirm_LostDuplicateRace() {
	winnerID := uuid.New()
	now := time.Now()

	suite.mock.ExpectQuery(selectOrderByReferenceSQL).
		WithArgs("PAY-123").
		WillReturnError(pgx.ErrNoRows)

	suite.mock.ExpectBegin()
	suite.mock.ExpectQuery(selectItemSQL).
		WithArgs(suite.itemID).
		WillReturnRows(suite.itemRow("Margherita", 10))
	suite.mock.ExpectExec(insertOrderTestSQL).
		WithArgs(pgxmock.AnyArg(), pgxmock.AnyArg(), "dine_in", "confirmed", 19.00, "completed", pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg()).
		WillReturnError(&pgconn.PgError{Code: "23505", ConstraintName: "orders_payment_reference_key"})
	suite.mock.ExpectRollback()

	// Resolved like an idempotency hit: fetch and return the winner
	suite.mock.ExpectQuery(selectOrderByReferenceSQL).
		WithArgs("PAY-123").
		WillReturnRows(pgxmock.NewRows(orderColumns).
			AddRow(winnerID, nil, "dine_in", "confirmed", 19.00, "completed", strPtr("PAY-123"), strPtr("card"), nil, nil, nil, now, now))
	suite.mock.ExpectQuery(selectOrderItemsSQL).
		WithArgs(winnerID).
		WillReturnRows(pgxmock.NewRows(orderItemColumns).
			AddRow(uuid.New(), winnerID, suite.itemID, 2, 9.50, 19.00, now))

	order, err := suite.service.Confirm(suite.context, suite.singleLineRequest(2), "PAY-123", "card")

	assert.NoError(suite.T(), err)
	assert.Equal(suite.T(), winnerID, order.ID)
}

func (suite *OrderServiceTestSuite) TestConfirm_ValidationFailsInsideTransaction() {
	suite.mock.ExpectQuery(selectOrderByReferenceSQL).
		WithArgs("PAY-123").
		WillReturnError(pgx.ErrNoRows)

	suite.mock.ExpectBegin()
	suite.mock.ExpectQuery(selectItemSQL).
		WithArgs(suite.itemID).
		WillReturnRows(suite.itemRow("Margherita", 1))
	suite.mock.ExpectRollback()

	order, err := suite.service.Confirm(suite.context, suite.singleLineRequest(2), "PAY-123", "card")

	assert.Nil(suite.T(), order)
	ve, ok := common.AsValidationError(err)
	assert.True(suite.T(), ok)
	assert.Equal(suite.T(), []string{"Insufficient stock for 'Margherita'. Available: 1, Requested: 2"}, ve.Errors)
}

func (suite *OrderServiceTestSuite) TestConfirm_StockMovedBeforeDecrement() {
	suite.mock.ExpectQuery(selectOrderByReferenceSQL).
		WithArgs("PAY-123").
		WillReturnError(pgx.ErrNoRows)

	suite.mock.ExpectBegin()
	// Validation still sees enough stock
	suite.mock.ExpectQuery(selectItemSQL).
		WithArgs(suite.itemID).
		WillReturnRows(suite.itemRow("Margherita", 2))
	suite.mock.ExpectExec(insertOrderTestSQL).
		WithArgs(pgxmock.AnyArg(), pgxmock.AnyArg(), "dine_in", "confirmed", 19.00, "completed", pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg()).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))
	suite.mock.ExpectExec(insertOrderItemSQL).
		WithArgs(pgxmock.AnyArg(), pgxmock.AnyArg(), suite.itemID, 2, 9.50, 19.00).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))
	// But the conditional update finds the stock already taken
	suite.mock.ExpectQuery(decrementStockTestSQL).
		WithArgs(2, suite.itemID).
		WillReturnError(pgx.ErrNoRows)
	// Live numbers for the error message
	suite.mock.ExpectQuery(selectItemSQL).
		WithArgs(suite.itemID).
		WillReturnRows(suite.itemRow("Margherita", 1))
	suite.mock.ExpectRollback()

	order, err := suite.service.Confirm(suite.context, suite.singleLineRequest(2), "PAY-123", "card")

	assert.Nil(suite.T(), order)
	ve, ok := common.AsValidationError(err)
	assert.True(suite.T(), ok)
	assert.Equal(suite.T(), []string{"Insufficient stock for 'Margherita'. Available: 1, Requested: 2"}, ve.Errors)
}

func (suite *OrderServiceTestSuite) TestConfirm_TransientConflictIsRetryable() {
	suite.mock.ExpectQuery(selectOrderByReferenceSQL).
		WithArgs("PAY-123").
		WillReturnError(pgx.ErrNoRows)

	suite.mock.ExpectBegin()
	suite.mock.ExpectQuery(selectItemSQL).
		WithArgs(suite.itemID).
		WillReturnRows(suite.itemRow("Margherita", 10))
	suite.mock.ExpectExec(insertOrderTestSQL).
		WithArgs(pgxmock.AnyArg(), pgxmock.AnyArg(), "dine_in", "confirmed", 19.00, "completed", pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg()).
		WillReturnError(&pgconn.PgError{Code: "40001"})
	suite.mock.ExpectRollback()

	order, err := suite.service.Confirm(suite.context, suite.singleLineRequest(2), "PAY-123", "card")

	assert.Nil(suite.T(), order)
	assert.True(suite.T(), common.IsTransient(err))
}

func (suite *OrderServiceTestSuite) TestConfirm_MissingReferenceRejected() {
	order, err := suite.service.Confirm(suite.context, suite.singleLineRequest(1), "   ", "card")

	assert.Nil(suite.T(), order)
	ve, ok := common.AsValidationError(err)
	assert.True(suite.T(), ok)
	assert.Equal(suite.T(), []string{"payment reference is required"}, ve.Errors)
}

func (suite *OrderServiceTestSuite) TestConfirm_AggregatesRequestViolations() {
	req := &ConfirmOrderRequest{
		Items: []models.LineItemRequest{
			{ItemID: uuid.Nil, Quantity: 0, UnitPrice: 0},
		},
		OrderType: "delivery",
	}

	order, err := suite.service.Confirm(suite.context, req, "PAY-123", "card")

	assert.Nil(suite.T(), order)
	ve, ok := common.AsValidationError(err)
	assert.True(suite.T(), ok)
	assert.Equal(suite.T(), []string{
		"line 0: item_id is required",
		"line 0: quantity must be positive",
		"line 0: unit_price must be positive",
		"order type must be either 'dine_in' or 'takeaway'",
	}, ve.Errors)
}

func (suite *OrderServiceTestSuite) TestConfirmCash_MintsReference() {
	suite.mockCache.On("DeleteItem", mock.Anything, suite.itemID).Return(nil)

	suite.mock.ExpectBegin()
	suite.mock.ExpectQuery(selectItemSQL).
		WithArgs(suite.itemID).
		WillReturnRows(suite.itemRow("Margherita", 10))
	suite.mock.ExpectExec(insertOrderTestSQL).
		WithArgs(pgxmock.AnyArg(), pgxmock.AnyArg(), "takeaway", "confirmed", 9.50, "completed", pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg()).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))
	suite.mock.ExpectExec(insertOrderItemSQL).
		WithArgs(pgxmock.AnyArg(), pgxmock.AnyArg(), suite.itemID, 1, 9.50, 9.50).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))
	suite.mock.ExpectQuery(decrementStockTestSQL).
		WithArgs(1, suite.itemID).
		WillReturnRows(pgxmock.NewRows([]string{"stock_quantity"}).AddRow(9))
	suite.mock.ExpectExec(insertHistoryTestSQL).
		WithArgs(pgxmock.AnyArg(), suite.itemID, -1, 10, 9, pgxmock.AnyArg(), pgxmock.AnyArg()).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))
	suite.mock.ExpectCommit()

	req := &ConfirmOrderRequest{
		Items:     []models.LineItemRequest{{ItemID: suite.itemID, Quantity: 1, UnitPrice: 9.50}},
		OrderType: "takeaway",
	}
	order, err := suite.service.ConfirmCash(suite.context, req)

	assert.NoError(suite.T(), err)
	assert.True(suite.T(), strings.HasPrefix(*order.PaymentReference, "CASH-"))
	assert.Equal(suite.T(), "cash", *order.PaymentMethod)
	assert.Equal(suite.T(), "completed", order.PaymentStatus)
}

func (suite *OrderServiceTestSuite) orderRowWithStatus(orderID uuid.UUID, status, paymentStatus string) *pgxmock.Rows {
	now := time.Now()
	return pgxmock.NewRows(orderColumns).
		AddRow(orderID, nil, "dine_in", status, 19.00, paymentStatus, strPtr("PAY-123"), strPtr("card"), nil, nil, nil, now, now)
}

func (suite *OrderServiceTestSuite) TestUpdateStatus_AllowedTransition() {
	orderID := uuid.New()

	suite.mock.ExpectQuery(selectOrderByIDSQL).
		WithArgs(orderID).
		WillReturnRows(suite.orderRowWithStatus(orderID, "confirmed", "completed"))
	suite.mock.ExpectExec(updateOrderStatusSQL).
		WithArgs("preparing", orderID).
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))

	err := suite.service.UpdateStatus(suite.context, orderID, "preparing")
	assert.NoError(suite.T(), err)
}

func (suite *OrderServiceTestSuite) TestUpdateStatus_BackwardsMoveRejected() {
	orderID := uuid.New()

	suite.mock.ExpectQuery(selectOrderByIDSQL).
		WithArgs(orderID).
		WillReturnRows(suite.orderRowWithStatus(orderID, "ready", "completed"))

	err := suite.service.UpdateStatus(suite.context, orderID, "confirmed")
	ve, ok := common.AsValidationError(err)
	assert.True(suite.T(), ok)
	assert.Equal(suite.T(), []string{"cannot move order from 'ready' to 'confirmed'"}, ve.Errors)
}

func (suite *OrderServiceTestSuite) TestUpdateStatus_RefundAlsoUpdatesPayment() {
	orderID := uuid.New()

	suite.mock.ExpectQuery(selectOrderByIDSQL).
		WithArgs(orderID).
		WillReturnRows(suite.orderRowWithStatus(orderID, "delivered", "completed"))
	suite.mock.ExpectExec(updateOrderStatusSQL).
		WithArgs("refunded", orderID).
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))
	suite.mock.ExpectExec(updatePaymentStatusSQL).
		WithArgs("refunded", orderID).
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))

	err := suite.service.UpdateStatus(suite.context, orderID, "refunded")
	assert.NoError(suite.T(), err)
}

func (suite *OrderServiceTestSuite) TestCancelOrder_RejectedAfterPayment() {
	orderID := uuid.New()

	suite.mock.ExpectQuery(selectOrderByIDSQL).
		WithArgs(orderID).
		WillReturnRows(suite.orderRowWithStatus(orderID, "confirmed", "completed"))

	err := suite.service.CancelOrder(suite.context, orderID)
	ve, ok := common.AsValidationError(err)
	assert.True(suite.T(), ok)
	assert.Equal(suite.T(), []string{"cannot cancel order with payment status 'completed'"}, ve.Errors)
}

func TestPaymentReason(t *testing.T) {
	assert.Equal(t, "Order PAY-9 - Card Payment", paymentReason("PAY-9", "card"))
	assert.Equal(t, fmt.Sprintf("Order %s - Cash Payment", "CASH-1"), paymentReason("CASH-1", "cash"))
	assert.Equal(t, "Order PAY-9 -  Payment", paymentReason("PAY-9", ""))
	// First rune may be multi-byte
	assert.Equal(t, "Order PAY-9 - École Payment", paymentReason("PAY-9", "école"))
}
