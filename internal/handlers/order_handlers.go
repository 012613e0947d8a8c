package handlers

import (
	"net/http"
	"strconv"

	"tavolo/internal/common"
	"tavolo/internal/models"
	"tavolo/internal/services"

	"github.com/labstack/echo/v4"
)

// OrderHandlers handles HTTP requests for orders
type OrderHandlers struct {
	orderService services.OrderServiceInterface
	stockService services.StockService
}

// NewOrderHandlers creates a new order handlers instance
func NewOrderHandlers(orderService services.OrderServiceInterface, stockService services.StockService) *OrderHandlers {
	return &OrderHandlers{
		orderService: orderService,
		stockService: stockService,
	}
}

type orderRequest struct {
	Items            []models.LineItemRequest `json:"items"`
	OrderType        string                   `json:"order_type"`
	CustomerName     *string                  `json:"customer_name"`
	TableNumber      *int                     `json:"table_number"`
	Notes            *string                  `json:"notes"`
	PaymentReference string                   `json:"payment_reference"`
	PaymentMethod    string                   `json:"payment_method"`
}

func (h *OrderHandlers) buildConfirmRequest(c echo.Context, req *orderRequest) (*services.ConfirmOrderRequest, error) {
	if err := common.ValidateOptionalString(req.CustomerName, "customer_name", 200); err != nil {
		return nil, err
	}
	if err := common.ValidateOptionalString(req.Notes, "notes", 1000); err != nil {
		return nil, err
	}
	confirm := &services.ConfirmOrderRequest{
		Items:        req.Items,
		OrderType:    req.OrderType,
		CustomerName: req.CustomerName,
		TableNumber:  req.TableNumber,
		Notes:        req.Notes,
	}
	if userID, ok := common.GetUserIDFromContext(c.Request().Context()); ok {
		confirm.UserID = &userID
	}
	return confirm, nil
}

// CreateOrder handles POST /orders for externally confirmed payments
func (h *OrderHandlers) CreateOrder(c echo.Context) error {
	ctx := c.Request().Context()

	var req orderRequest
	if err := c.Bind(&req); err != nil {
		return common.SendClientError(c, "Invalid request format")
	}
	if err := common.ValidateRequiredString(req.PaymentReference, "payment_reference"); err != nil {
		return common.SendFieldError(c, "payment_reference", err.Error())
	}
	if err := common.ValidateRequiredString(req.PaymentMethod, "payment_method"); err != nil {
		return common.SendFieldError(c, "payment_method", err.Error())
	}

	confirm, err := h.buildConfirmRequest(c, &req)
	if err != nil {
		return common.SendClientError(c, err.Error())
	}

	order, err := h.orderService.Confirm(ctx, confirm, req.PaymentReference, req.PaymentMethod)
	if err != nil {
		return respondServiceError(c, err, "Order")
	}

	return c.JSON(http.StatusCreated, map[string]interface{}{
		"message": "Order confirmed successfully",
		"order":   order,
	})
}

// CreateCashOrder handles POST /orders/cash for counter sales
func (h *OrderHandlers) CreateCashOrder(c echo.Context) error {
	ctx := c.Request().Context()

	var req orderRequest
	if err := c.Bind(&req); err != nil {
		return common.SendClientError(c, "Invalid request format")
	}

	confirm, err := h.buildConfirmRequest(c, &req)
	if err != nil {
		return common.SendClientError(c, err.Error())
	}

	order, err := h.orderService.ConfirmCash(ctx, confirm)
	if err != nil {
		return respondServiceError(c, err, "Order")
	}

	return c.JSON(http.StatusCreated, map[string]interface{}{
		"message": "Order confirmed successfully",
		"order":   order,
	})
}

// ValidateOrder handles POST /orders/validate, the advisory pre-flight
func (h *OrderHandlers) ValidateOrder(c echo.Context) error {
	ctx := c.Request().Context()

	var req struct {
		Items []models.LineItemRequest `json:"items"`
	}
	if err := c.Bind(&req); err != nil {
		return common.SendClientError(c, "Invalid request format")
	}
	if len(req.Items) == 0 {
		return common.SendFieldError(c, "items", "at least one line item is required")
	}

	result, err := h.stockService.Validate(ctx, req.Items)
	if err != nil {
		return respondServiceError(c, err, "Item")
	}
	return c.JSON(http.StatusOK, result)
}

// GetOrders handles GET /orders
func (h *OrderHandlers) GetOrders(c echo.Context) error {
	ctx := c.Request().Context()

	filter := &models.OrderSearchFilter{
		Query:     c.QueryParam("query"),
		SortBy:    c.QueryParam("sort_by"),
		SortOrder: c.QueryParam("sort_order"),
	}
	if status := c.QueryParam("status"); status != "" {
		filter.Status = &status
	}
	if orderType := c.QueryParam("order_type"); orderType != "" {
		filter.OrderType = &orderType
	}
	if paymentStatus := c.QueryParam("payment_status"); paymentStatus != "" {
		filter.PaymentStatus = &paymentStatus
	}
	if limitStr := c.QueryParam("limit"); limitStr != "" {
		if limit, err := strconv.Atoi(limitStr); err == nil {
			filter.Limit = limit
		}
	}
	if offsetStr := c.QueryParam("offset"); offsetStr != "" {
		if offset, err := strconv.Atoi(offsetStr); err == nil {
			filter.Offset = offset
		}
	}
	var err error
	filter.Limit, filter.Offset, err = common.ValidatePaginationParams(filter.Limit, filter.Offset)
	if err != nil {
		return common.SendClientError(c, err.Error())
	}

	orders, err := h.orderService.ListOrders(ctx, filter)
	if err != nil {
		return respondServiceError(c, err, "Orders")
	}
	return c.JSON(http.StatusOK, map[string]interface{}{
		"orders": orders,
		"count":  len(orders),
	})
}

// GetOrder handles GET /orders/:id
func (h *OrderHandlers) GetOrder(c echo.Context) error {
	ctx := c.Request().Context()

	orderID, err := common.ValidateUUID(c.Param("id"), "id")
	if err != nil {
		return common.SendClientError(c, err.Error())
	}

	order, err := h.orderService.GetOrderByID(ctx, orderID)
	if err != nil {
		return respondServiceError(c, err, "Order")
	}
	return c.JSON(http.StatusOK, map[string]interface{}{
		"order": order,
	})
}

// UpdateOrderStatus handles PUT /orders/:id/status
func (h *OrderHandlers) UpdateOrderStatus(c echo.Context) error {
	ctx := c.Request().Context()

	orderID, err := common.ValidateUUID(c.Param("id"), "id")
	if err != nil {
		return common.SendClientError(c, err.Error())
	}

	var req struct {
		Status string `json:"status"`
	}
	if err := c.Bind(&req); err != nil {
		return common.SendClientError(c, "Invalid request format")
	}

	if err := h.orderService.UpdateStatus(ctx, orderID, req.Status); err != nil {
		return respondServiceError(c, err, "Order")
	}
	return c.JSON(http.StatusOK, map[string]interface{}{
		"message": "Order status updated successfully",
	})
}

// CancelOrder handles POST /orders/:id/cancel
func (h *OrderHandlers) CancelOrder(c echo.Context) error {
	ctx := c.Request().Context()

	orderID, err := common.ValidateUUID(c.Param("id"), "id")
	if err != nil {
		return common.SendClientError(c, err.Error())
	}

	if err := h.orderService.CancelOrder(ctx, orderID); err != nil {
		return respondServiceError(c, err, "Order")
	}
	return c.JSON(http.StatusOK, map[string]interface{}{
		"message": "Order cancelled successfully",
	})
}
