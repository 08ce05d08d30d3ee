package handler

import (
	"io"
	"net/http"

	"github.com/labstack/echo/v4"

	"spendwise/internal/errors"
	"spendwise/internal/service"
)

// UserHandler serves the authenticated user's own profile.
type UserHandler struct {
	svc            service.UserService
	maxUploadBytes int64
}

// NewUserHandler creates a handler layer.
func NewUserHandler(svc service.UserService, maxUploadBytes int64) *UserHandler {
	return &UserHandler{svc: svc, maxUploadBytes: maxUploadBytes}
}

// NotificationPreferenceRequest toggles email notifications.
type NotificationPreferenceRequest struct {
	Enabled *bool `json:"enabled" validate:"required"`
}

// Me godoc
// @Summary Current user's profile
// @Tags users
// @Produce json
// @Security BearerAuth
// @Success 200 {object} model.User
// @Failure 401 {object} errors.ErrorResponse
// @Failure 404 {object} errors.ErrorResponse
// @Router /auth/me [get]
func (h *UserHandler) Me(c echo.Context) error {
	userID, err := currentUserID(c)
	if err != nil {
		return httpError(err)
	}
	user, err := h.svc.GetProfile(c.Request().Context(), userID)
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, user)
}

// UploadProfilePicture godoc
// @Summary Upload a profile picture (JPEG or PNG, at most 5MB)
// @Tags users
// @Accept multipart/form-data
// @Produce json
// @Security BearerAuth
// @Param profilePicture formData file true "Image"
// @Success 200 {object} model.User
// @Failure 400 {object} errors.ErrorResponse
// @Failure 401 {object} errors.ErrorResponse
// @Router /auth/profile-picture [post]
func (h *UserHandler) UploadProfilePicture(c echo.Context) error {
	userID, err := currentUserID(c)
	if err != nil {
		return httpError(err)
	}

	fileHeader, err := c.FormFile("profilePicture")
	if err != nil {
		var he *echo.HTTPError
		if errors.As(err, &he) && he.Code == http.StatusRequestEntityTooLarge {
			return he
		}
		return httpError(errors.Validation("No file uploaded"))
	}
	file, err := fileHeader.Open()
	if err != nil {
		return httpError(err)
	}
	defer file.Close()

	// One byte past the limit is enough for the service to reject oversize files.
	data, err := io.ReadAll(io.LimitReader(file, h.maxUploadBytes+1))
	if err != nil {
		return httpError(err)
	}

	user, err := h.svc.UploadProfilePicture(c.Request().Context(), userID, data)
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, user)
}

// UpdateNotifications godoc
// @Summary Enable or disable email notifications
// @Tags users
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body NotificationPreferenceRequest true "Preference"
// @Success 200 {object} model.User
// @Failure 400 {object} errors.ErrorResponse
// @Router /auth/notifications [put]
func (h *UserHandler) UpdateNotifications(c echo.Context) error {
	userID, err := currentUserID(c)
	if err != nil {
		return httpError(err)
	}
	var req NotificationPreferenceRequest
	if err := c.Bind(&req); err != nil {
		return badRequest("invalid request body")
	}
	if err := c.Validate(&req); err != nil {
		return badRequest(err.Error())
	}

	user, err := h.svc.UpdateNotificationPreference(c.Request().Context(), userID, *req.Enabled)
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, user)
}
