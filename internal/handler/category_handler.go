package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"spendwise/internal/service"
)

const msgCategoryNotFound = "Category not found"

// CategoryHandler handles category endpoints.
type CategoryHandler struct {
	categoryService service.CategoryService
}

// NewCategoryHandler creates a new category handler.
func NewCategoryHandler(categoryService service.CategoryService) *CategoryHandler {
	return &CategoryHandler{categoryService: categoryService}
}

// CategoryRequest carries a category name.
type CategoryRequest struct {
	Name string `json:"name" validate:"required"`
}

// List godoc
// @Summary List visible categories
// @Tags categories
// @Produce json
// @Security BearerAuth
// @Success 200 {array} model.Category
// @Failure 401 {object} errors.ErrorResponse
// @Router /categories [get]
func (h *CategoryHandler) List(c echo.Context) error {
	userID, err := currentUserID(c)
	if err != nil {
		return httpError(err)
	}
	categories, err := h.categoryService.List(c.Request().Context(), userID)
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, categories)
}

// Get godoc
// @Summary Get a category
// @Tags categories
// @Produce json
// @Security BearerAuth
// @Param id path string true "Category ID"
// @Success 200 {object} model.Category
// @Failure 404 {object} errors.ErrorResponse
// @Router /categories/{id} [get]
func (h *CategoryHandler) Get(c echo.Context) error {
	userID, err := currentUserID(c)
	if err != nil {
		return httpError(err)
	}
	id, err := pathID(c, msgCategoryNotFound)
	if err != nil {
		return httpError(err)
	}
	category, err := h.categoryService.Get(c.Request().Context(), userID, id)
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, category)
}

// Create godoc
// @Summary Create a private category
// @Tags categories
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body CategoryRequest true "Category"
// @Success 201 {object} model.Category
// @Failure 400 {object} errors.ErrorResponse
// @Router /categories [post]
func (h *CategoryHandler) Create(c echo.Context) error {
	userID, err := currentUserID(c)
	if err != nil {
		return httpError(err)
	}
	var req CategoryRequest
	if err := c.Bind(&req); err != nil {
		return badRequest("invalid request body")
	}
	if err := c.Validate(&req); err != nil {
		return badRequest(err.Error())
	}

	category, err := h.categoryService.Create(c.Request().Context(), userID, req.Name)
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusCreated, category)
}

// Update godoc
// @Summary Rename a private category
// @Tags categories
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path string true "Category ID"
// @Param request body CategoryRequest true "Category"
// @Success 200 {object} model.Category
// @Failure 400 {object} errors.ErrorResponse
// @Failure 404 {object} errors.ErrorResponse
// @Router /categories/{id} [put]
func (h *CategoryHandler) Update(c echo.Context) error {
	userID, err := currentUserID(c)
	if err != nil {
		return httpError(err)
	}
	id, err := pathID(c, msgCategoryNotFound)
	if err != nil {
		return httpError(err)
	}
	var req CategoryRequest
	if err := c.Bind(&req); err != nil {
		return badRequest("invalid request body")
	}
	if err := c.Validate(&req); err != nil {
		return badRequest(err.Error())
	}

	category, err := h.categoryService.Update(c.Request().Context(), userID, id, req.Name)
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, category)
}

// Delete godoc
// @Summary Delete a private category; its expenses become uncategorized
// @Tags categories
// @Produce json
// @Security BearerAuth
// @Param id path string true "Category ID"
// @Success 200 {object} MessageResponse
// @Failure 404 {object} errors.ErrorResponse
// @Router /categories/{id} [delete]
func (h *CategoryHandler) Delete(c echo.Context) error {
	userID, err := currentUserID(c)
	if err != nil {
		return httpError(err)
	}
	id, err := pathID(c, msgCategoryNotFound)
	if err != nil {
		return httpError(err)
	}
	if err := h.categoryService.Delete(c.Request().Context(), userID, id); err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, MessageResponse{Message: "Category deleted"})
}
