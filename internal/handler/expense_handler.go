package handler

import (
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/shopspring/decimal"

	"spendwise/internal/errors"
	"spendwise/internal/model"
	"spendwise/internal/service"
)

const msgExpenseNotFound = "Expense not found"

var dateLayouts = []string{time.RFC3339Nano, "2006-01-02T15:04:05", "2006-01-02"}

// ExpenseHandler handles expense endpoints.
type ExpenseHandler struct {
	expenseService service.ExpenseService
}

// NewExpenseHandler creates a new expense handler.
func NewExpenseHandler(expenseService service.ExpenseService) *ExpenseHandler {
	return &ExpenseHandler{expenseService: expenseService}
}

// ExpenseRequest is the body of create and update calls. On update every field is optional.
type ExpenseRequest struct {
	Description string          `json:"description"`
	Amount      decimal.Decimal `json:"amount" swaggertype:"number"`
	Date        string          `json:"date"`
	Category    string          `json:"category"`
	Type        string          `json:"type" validate:"omitempty,oneof=Expense Income"`
}

// ExpenseResponse exposes the id under both "_id" and "id".
type ExpenseResponse struct {
	ID          uuid.UUID         `json:"_id"`
	IDAlias     uuid.UUID         `json:"id"`
	UserID      uuid.UUID         `json:"userId"`
	Description string            `json:"description"`
	Amount      decimal.Decimal   `json:"amount" swaggertype:"number"`
	Date        time.Time         `json:"date"`
	Category    *string           `json:"category"`
	Type        model.ExpenseType `json:"type"`
	CreatedAt   time.Time         `json:"createdAt"`
	UpdatedAt   time.Time         `json:"updatedAt"`
}

// ExpenseListResponse is one page of expenses.
type ExpenseListResponse struct {
	Expenses []ExpenseResponse `json:"expenses"`
	Total    int64             `json:"total"`
	Page     int               `json:"page"`
	PageSize int               `json:"pageSize"`
}

// ExpenseMutationResponse is returned by create and update.
type ExpenseMutationResponse struct {
	Expense      ExpenseResponse            `json:"expense"`
	Notification service.NotificationResult `json:"notification"`
}

func toExpenseResponse(e *model.Expense) ExpenseResponse {
	return ExpenseResponse{
		ID:          e.ID,
		IDAlias:     e.ID,
		UserID:      e.UserID,
		Description: e.Description,
		Amount:      e.Amount,
		Date:        e.Date,
		Category:    e.Category,
		Type:        e.Type,
		CreatedAt:   e.CreatedAt,
		UpdatedAt:   e.UpdatedAt,
	}
}

func parseDate(raw string) (time.Time, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return time.Time{}, nil
	}
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, raw); err == nil {
			return t, nil
		}
	}
	return time.Time{}, errors.Validation("Invalid date")
}

func (h *ExpenseHandler) bindInput(c echo.Context) (service.ExpenseInput, error) {
	var req ExpenseRequest
	if err := c.Bind(&req); err != nil {
		return service.ExpenseInput{}, badRequest("invalid request body")
	}
	if err := c.Validate(&req); err != nil {
		return service.ExpenseInput{}, badRequest(err.Error())
	}
	date, err := parseDate(req.Date)
	if err != nil {
		return service.ExpenseInput{}, httpError(err)
	}
	return service.ExpenseInput{
		Description: req.Description,
		Amount:      req.Amount,
		Date:        date,
		Category:    req.Category,
		Type:        req.Type,
	}, nil
}

// List godoc
// @Summary List expenses with filters, sorting and pagination
// @Tags expenses
// @Produce json
// @Security BearerAuth
// @Param category query string false "Category name, All for every category"
// @Param type query string false "Expense or Income"
// @Param period query string false "Weekly, Monthly or All"
// @Param search query string false "Text in description/category, or an exact amount"
// @Param sort query string false "date-asc, date-desc, price-asc or price-desc"
// @Param page query int false "Page, 1-based"
// @Param pageSize query int false "Page size (max 100)"
// @Success 200 {object} ExpenseListResponse
// @Failure 401 {object} errors.ErrorResponse
// @Router /expenses [get]
func (h *ExpenseHandler) List(c echo.Context) error {
	userID, err := currentUserID(c)
	if err != nil {
		return httpError(err)
	}

	page, err := h.expenseService.List(c.Request().Context(), userID, service.ExpenseQuery{
		Category: c.QueryParam("category"),
		Type:     c.QueryParam("type"),
		Period:   c.QueryParam("period"),
		Search:   c.QueryParam("search"),
		Sort:     c.QueryParam("sort"),
		Page:     c.QueryParam("page"),
		PageSize: c.QueryParam("pageSize"),
	})
	if err != nil {
		return httpError(err)
	}

	resp := ExpenseListResponse{
		Expenses: make([]ExpenseResponse, 0, len(page.Expenses)),
		Total:    page.Total,
		Page:     page.Page,
		PageSize: page.PageSize,
	}
	for i := range page.Expenses {
		resp.Expenses = append(resp.Expenses, toExpenseResponse(&page.Expenses[i]))
	}
	return c.JSON(http.StatusOK, resp)
}

// Get godoc
// @Summary Get an expense
// @Tags expenses
// @Produce json
// @Security BearerAuth
// @Param id path string true "Expense ID"
// @Success 200 {object} ExpenseResponse
// @Failure 404 {object} errors.ErrorResponse
// @Router /expenses/{id} [get]
func (h *ExpenseHandler) Get(c echo.Context) error {
	userID, err := currentUserID(c)
	if err != nil {
		return httpError(err)
	}
	id, err := pathID(c, msgExpenseNotFound)
	if err != nil {
		return httpError(err)
	}
	expense, err := h.expenseService.Get(c.Request().Context(), userID, id)
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, toExpenseResponse(expense))
}

// Create godoc
// @Summary Record an expense or income
// @Tags expenses
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body ExpenseRequest true "Expense"
// @Success 201 {object} ExpenseMutationResponse
// @Failure 400 {object} errors.ErrorResponse
// @Router /expenses [post]
func (h *ExpenseHandler) Create(c echo.Context) error {
	userID, err := currentUserID(c)
	if err != nil {
		return httpError(err)
	}
	input, err := h.bindInput(c)
	if err != nil {
		return err
	}

	expense, notification, err := h.expenseService.Create(c.Request().Context(), userID, input)
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusCreated, ExpenseMutationResponse{Expense: toExpenseResponse(expense), Notification: notification})
}

// Update godoc
// @Summary Partially update an expense
// @Tags expenses
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path string true "Expense ID"
// @Param request body ExpenseRequest true "Fields to change"
// @Success 200 {object} ExpenseMutationResponse
// @Failure 400 {object} errors.ErrorResponse
// @Failure 404 {object} errors.ErrorResponse
// @Router /expenses/{id} [put]
func (h *ExpenseHandler) Update(c echo.Context) error {
	userID, err := currentUserID(c)
	if err != nil {
		return httpError(err)
	}
	id, err := pathID(c, msgExpenseNotFound)
	if err != nil {
		return httpError(err)
	}
	input, err := h.bindInput(c)
	if err != nil {
		return err
	}

	expense, notification, err := h.expenseService.Update(c.Request().Context(), userID, id, input)
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, ExpenseMutationResponse{Expense: toExpenseResponse(expense), Notification: notification})
}

// Delete godoc
// @Summary Delete an expense
// @Tags expenses
// @Produce json
// @Security BearerAuth
// @Param id path string true "Expense ID"
// @Success 200 {object} MessageResponse
// @Failure 404 {object} errors.ErrorResponse
// @Router /expenses/{id} [delete]
func (h *ExpenseHandler) Delete(c echo.Context) error {
	userID, err := currentUserID(c)
	if err != nil {
		return httpError(err)
	}
	id, err := pathID(c, msgExpenseNotFound)
	if err != nil {
		return httpError(err)
	}
	if err := h.expenseService.Delete(c.Request().Context(), userID, id); err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, MessageResponse{Message: "Expense deleted"})
}

// Summary godoc
// @Summary Totals of Expense-typed records per category
// @Tags expenses
// @Produce json
// @Security BearerAuth
// @Success 200 {object} model.Summary
// @Failure 401 {object} errors.ErrorResponse
// @Router /expenses/summary [get]
func (h *ExpenseHandler) Summary(c echo.Context) error {
	userID, err := currentUserID(c)
	if err != nil {
		return httpError(err)
	}
	summary, err := h.expenseService.Summary(c.Request().Context(), userID)
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, summary)
}

// Insights godoc
// @Summary Spending insights
// @Tags expenses
// @Produce json
// @Security BearerAuth
// @Success 200 {object} service.Insights
// @Failure 401 {object} errors.ErrorResponse
// @Router /expenses/insights [get]
func (h *ExpenseHandler) Insights(c echo.Context) error {
	userID, err := currentUserID(c)
	if err != nil {
		return httpError(err)
	}
	insights, err := h.expenseService.Insights(c.Request().Context(), userID)
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, insights)
}
