package handlers

import (
	"net/http"
	"strconv"

	"tavolo/internal/common"
	"tavolo/internal/models"
	"tavolo/internal/repositories"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
)

// CategoryHandlers handles HTTP requests for menu categories
type CategoryHandlers struct {
	categoryRepo repositories.CategoryRepository
}

// NewCategoryHandlers creates a new category handlers instance
func NewCategoryHandlers(categoryRepo repositories.CategoryRepository) *CategoryHandlers {
	return &CategoryHandlers{categoryRepo: categoryRepo}
}

type categoryRequest struct {
	Name        string  `json:"name"`
	Description *string `json:"description"`
}

// CreateCategory handles POST /categories
func (h *CategoryHandlers) CreateCategory(c echo.Context) error {
	ctx := c.Request().Context()

	var req categoryRequest
	if err := c.Bind(&req); err != nil {
		return common.SendClientError(c, "Invalid request format")
	}
	if err := common.ValidateRequiredString(req.Name, "name"); err != nil {
		return common.SendFieldError(c, "name", err.Error())
	}
	if err := common.ValidateOptionalString(req.Description, "description", 500); err != nil {
		return common.SendClientError(c, err.Error())
	}

	category := &models.Category{
		ID:          uuid.New(),
		Name:        req.Name,
		Description: req.Description,
	}
	if err := h.categoryRepo.Create(ctx, category); err != nil {
		return respondServiceError(c, common.ClassifyStoreError(err), "Category")
	}
	return c.JSON(http.StatusCreated, map[string]interface{}{
		"message":  "Category created successfully",
		"category": category,
	})
}

// GetCategory handles GET /categories/:id
func (h *CategoryHandlers) GetCategory(c echo.Context) error {
	ctx := c.Request().Context()

	categoryID, err := common.ValidateUUID(c.Param("id"), "id")
	if err != nil {
		return common.SendClientError(c, err.Error())
	}

	category, err := h.categoryRepo.GetByID(ctx, categoryID)
	if err != nil {
		return respondServiceError(c, err, "Category")
	}
	return c.JSON(http.StatusOK, map[string]interface{}{
		"category": category,
	})
}

// UpdateCategory handles PUT /categories/:id
func (h *CategoryHandlers) UpdateCategory(c echo.Context) error {
	ctx := c.Request().Context()

	categoryID, err := common.ValidateUUID(c.Param("id"), "id")
	if err != nil {
		return common.SendClientError(c, err.Error())
	}

	var req categoryRequest
	if err := c.Bind(&req); err != nil {
		return common.SendClientError(c, "Invalid request format")
	}
	if err := common.ValidateRequiredString(req.Name, "name"); err != nil {
		return common.SendFieldError(c, "name", err.Error())
	}

	category := &models.Category{
		ID:          categoryID,
		Name:        req.Name,
		Description: req.Description,
	}
	if err := h.categoryRepo.Update(ctx, category); err != nil {
		return respondServiceError(c, common.ClassifyStoreError(err), "Category")
	}
	return c.JSON(http.StatusOK, map[string]interface{}{
		"message": "Category updated successfully",
	})
}

// DeleteCategory handles DELETE /categories/:id
func (h *CategoryHandlers) DeleteCategory(c echo.Context) error {
	ctx := c.Request().Context()

	categoryID, err := common.ValidateUUID(c.Param("id"), "id")
	if err != nil {
		return common.SendClientError(c, err.Error())
	}

	if err := h.categoryRepo.Delete(ctx, categoryID); err != nil {
		return respondServiceError(c, common.ClassifyStoreError(err), "Category")
	}
	return c.JSON(http.StatusOK, map[string]interface{}{
		"message": "Category deleted successfully",
	})
}

// GetCategories handles GET /categories
func (h *CategoryHandlers) GetCategories(c echo.Context) error {
	ctx := c.Request().Context()

	limit, _ := strconv.Atoi(c.QueryParam("limit"))
	offset, _ := strconv.Atoi(c.QueryParam("offset"))
	limit, offset, err := common.ValidatePaginationParams(limit, offset)
	if err != nil {
		return common.SendClientError(c, err.Error())
	}

	categories, err := h.categoryRepo.List(ctx, limit, offset)
	if err != nil {
		return respondServiceError(c, err, "Categories")
	}
	return c.JSON(http.StatusOK, map[string]interface{}{
		"categories": categories,
		"count":      len(categories),
	})
}
