package handlers

import (
	"net/http"
	"strconv"

	"tavolo/internal/common"
	"tavolo/internal/models"
	"tavolo/internal/services"

	"github.com/labstack/echo/v4"
)

// ItemHandlers handles HTTP requests for menu items
type ItemHandlers struct {
	itemService services.ItemService
}

// NewItemHandlers creates a new item handlers instance
func NewItemHandlers(itemService services.ItemService) *ItemHandlers {
	return &ItemHandlers{itemService: itemService}
}

type itemRequest struct {
	CategoryID        *string `json:"category_id"`
	Name              string  `json:"name"`
	Price             float64 `json:"price"`
	StockQuantity     int     `json:"stock_quantity"`
	LowStockThreshold *int    `json:"low_stock_threshold"`
	Status            string  `json:"status"`
	InitialReason     string  `json:"initial_reason"`
}

func (h *ItemHandlers) bindItem(c echo.Context, req *itemRequest, item *models.Item) error {
	if err := common.ValidateRequiredString(req.Name, "name"); err != nil {
		return err
	}
	if err := common.ValidatePositiveFloat(req.Price, "price", 100000); err != nil {
		return err
	}
	if req.CategoryID != nil && *req.CategoryID != "" {
		categoryID, err := common.ValidateUUID(*req.CategoryID, "category_id")
		if err != nil {
			return err
		}
		item.CategoryID = &categoryID
	}
	if req.Status != "" {
		if err := common.ValidateItemStatus(req.Status); err != nil {
			return err
		}
		item.Status = req.Status
	}
	if req.LowStockThreshold != nil && *req.LowStockThreshold < 0 {
		return common.NewValidationError("low_stock_threshold cannot be negative")
	}
	item.Name = req.Name
	item.Price = req.Price
	item.LowStockThreshold = req.LowStockThreshold
	return nil
}

// CreateItem handles POST /items
func (h *ItemHandlers) CreateItem(c echo.Context) error {
	ctx := c.Request().Context()

	var req itemRequest
	if err := c.Bind(&req); err != nil {
		return common.SendClientError(c, "Invalid request format")
	}

	var item models.Item
	if err := h.bindItem(c, &req, &item); err != nil {
		return common.SendClientError(c, err.Error())
	}
	if req.StockQuantity < 0 {
		return common.SendFieldError(c, "stock_quantity", "stock_quantity cannot be negative")
	}
	item.StockQuantity = req.StockQuantity

	created, err := h.itemService.Create(ctx, &item, req.InitialReason)
	if err != nil {
		return respondServiceError(c, err, "Item")
	}
	return c.JSON(http.StatusCreated, map[string]interface{}{
		"message": "Item created successfully",
		"item":    created,
	})
}

// GetItem handles GET /items/:id
func (h *ItemHandlers) GetItem(c echo.Context) error {
	ctx := c.Request().Context()

	itemID, err := common.ValidateUUID(c.Param("id"), "id")
	if err != nil {
		return common.SendClientError(c, err.Error())
	}

	item, err := h.itemService.GetByID(ctx, itemID)
	if err != nil {
		return respondServiceError(c, err, "Item")
	}
	return c.JSON(http.StatusOK, map[string]interface{}{
		"item": item,
	})
}

// UpdateItem handles PUT /items/:id for catalog fields. Stock changes go
// through the dedicated stock endpoint.
func (h *ItemHandlers) UpdateItem(c echo.Context) error {
	ctx := c.Request().Context()

	itemID, err := common.ValidateUUID(c.Param("id"), "id")
	if err != nil {
		return common.SendClientError(c, err.Error())
	}

	var req itemRequest
	if err := c.Bind(&req); err != nil {
		return common.SendClientError(c, "Invalid request format")
	}

	item := models.Item{ID: itemID}
	if err := h.bindItem(c, &req, &item); err != nil {
		return common.SendClientError(c, err.Error())
	}
	if item.Status == "" {
		item.Status = "active"
	}

	if err := h.itemService.Update(ctx, &item); err != nil {
		return respondServiceError(c, err, "Item")
	}
	return c.JSON(http.StatusOK, map[string]interface{}{
		"message": "Item updated successfully",
	})
}

// DeleteItem handles DELETE /items/:id
func (h *ItemHandlers) DeleteItem(c echo.Context) error {
	ctx := c.Request().Context()

	itemID, err := common.ValidateUUID(c.Param("id"), "id")
	if err != nil {
		return common.SendClientError(c, err.Error())
	}

	if err := h.itemService.Delete(ctx, itemID); err != nil {
		return respondServiceError(c, err, "Item")
	}
	return c.JSON(http.StatusOK, map[string]interface{}{
		"message": "Item deleted successfully",
	})
}

// GetItems handles GET /items
func (h *ItemHandlers) GetItems(c echo.Context) error {
	ctx := c.Request().Context()

	limit, _ := strconv.Atoi(c.QueryParam("limit"))
	offset, _ := strconv.Atoi(c.QueryParam("offset"))
	limit, offset, err := common.ValidatePaginationParams(limit, offset)
	if err != nil {
		return common.SendClientError(c, err.Error())
	}

	items, err := h.itemService.List(ctx, limit, offset)
	if err != nil {
		return respondServiceError(c, err, "Items")
	}
	return c.JSON(http.StatusOK, map[string]interface{}{
		"items": items,
		"count": len(items),
	})
}

// SearchItems handles GET /items/search
func (h *ItemHandlers) SearchItems(c echo.Context) error {
	ctx := c.Request().Context()

	filter := &models.ItemSearchFilter{
		Query:     c.QueryParam("query"),
		SortBy:    c.QueryParam("sort_by"),
		SortOrder: c.QueryParam("sort_order"),
	}
	if categoryIDStr := c.QueryParam("category_id"); categoryIDStr != "" {
		categoryID, err := common.ValidateUUID(categoryIDStr, "category_id")
		if err != nil {
			return common.SendClientError(c, err.Error())
		}
		filter.CategoryID = &categoryID
	}
	if status := c.QueryParam("status"); status != "" {
		if err := common.ValidateItemStatus(status); err != nil {
			return common.SendClientError(c, err.Error())
		}
		filter.Status = &status
	}
	if minPriceStr := c.QueryParam("min_price"); minPriceStr != "" {
		if minPrice, err := strconv.ParseFloat(minPriceStr, 64); err == nil {
			filter.MinPrice = &minPrice
		}
	}
	if maxPriceStr := c.QueryParam("max_price"); maxPriceStr != "" {
		if maxPrice, err := strconv.ParseFloat(maxPriceStr, 64); err == nil {
			filter.MaxPrice = &maxPrice
		}
	}
	filter.Limit, _ = strconv.Atoi(c.QueryParam("limit"))
	filter.Offset, _ = strconv.Atoi(c.QueryParam("offset"))
	var err error
	filter.Limit, filter.Offset, err = common.ValidatePaginationParams(filter.Limit, filter.Offset)
	if err != nil {
		return common.SendClientError(c, err.Error())
	}

	items, err := h.itemService.Search(ctx, filter)
	if err != nil {
		return respondServiceError(c, err, "Items")
	}
	return c.JSON(http.StatusOK, map[string]interface{}{
		"items": items,
		"count": len(items),
	})
}
