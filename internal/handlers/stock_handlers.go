package handlers

import (
	"net/http"
	"strconv"

	"tavolo/internal/common"
	"tavolo/internal/services"

	"github.com/labstack/echo/v4"
)

// StockHandlers handles HTTP requests for stock levels and the ledger
type StockHandlers struct {
	stockService services.StockService
}

// NewStockHandlers creates a new stock handlers instance
func NewStockHandlers(stockService services.StockService) *StockHandlers {
	return &StockHandlers{stockService: stockService}
}

// AdjustStock handles PUT /items/:id/stock for manual corrections such as
// spoilage, recount, or restock.
func (h *StockHandlers) AdjustStock(c echo.Context) error {
	ctx := c.Request().Context()

	itemID, err := common.ValidateUUID(c.Param("id"), "id")
	if err != nil {
		return common.SendClientError(c, err.Error())
	}

	var req struct {
		NewQuantity int    `json:"new_quantity"`
		Reason      string `json:"reason"`
	}
	if err := c.Bind(&req); err != nil {
		return common.SendClientError(c, "Invalid request format")
	}
	if err := common.ValidateRequiredString(req.Reason, "reason"); err != nil {
		return common.SendFieldError(c, "reason", err.Error())
	}

	item, err := h.stockService.Adjust(ctx, itemID, req.NewQuantity, req.Reason)
	if err != nil {
		return respondServiceError(c, err, "Item")
	}
	return c.JSON(http.StatusOK, map[string]interface{}{
		"message": "Stock adjusted successfully",
		"item":    item,
	})
}

// GetStockHistory handles GET /items/:id/history
func (h *StockHandlers) GetStockHistory(c echo.Context) error {
	ctx := c.Request().Context()

	itemID, err := common.ValidateUUID(c.Param("id"), "id")
	if err != nil {
		return common.SendClientError(c, err.Error())
	}

	limit, _ := strconv.Atoi(c.QueryParam("limit"))
	offset, _ := strconv.Atoi(c.QueryParam("offset"))
	limit, offset, err = common.ValidatePaginationParams(limit, offset)
	if err != nil {
		return common.SendClientError(c, err.Error())
	}

	history, err := h.stockService.History(ctx, itemID, limit, offset)
	if err != nil {
		return respondServiceError(c, err, "Item")
	}
	return c.JSON(http.StatusOK, map[string]interface{}{
		"history": history,
		"count":   len(history),
	})
}

// ReconstructStock handles GET /items/:id/stock/reconstruct, an audit
// endpoint that folds the ledger and compares it with the live quantity.
func (h *StockHandlers) ReconstructStock(c echo.Context) error {
	ctx := c.Request().Context()

	itemID, err := common.ValidateUUID(c.Param("id"), "id")
	if err != nil {
		return common.SendClientError(c, err.Error())
	}

	quantity, err := h.stockService.Reconstruct(ctx, itemID)
	if err != nil {
		return respondServiceError(c, err, "Item")
	}
	return c.JSON(http.StatusOK, map[string]interface{}{
		"item_id":                itemID,
		"reconstructed_quantity": quantity,
	})
}

// GetLowStockItems handles GET /items/low-stock
func (h *StockHandlers) GetLowStockItems(c echo.Context) error {
	ctx := c.Request().Context()

	items, err := h.stockService.LowStock(ctx)
	if err != nil {
		return respondServiceError(c, err, "Items")
	}
	return c.JSON(http.StatusOK, map[string]interface{}{
		"items": items,
		"count": len(items),
	})
}
