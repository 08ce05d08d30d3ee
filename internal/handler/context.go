package handler

import (
	"net/http"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"spendwise/internal/auth"
	"spendwise/internal/errors"
)

// ContextKeyClaims is where the JWT middleware stores the validated *auth.Claims.
const ContextKeyClaims = "user"

// MessageResponse is a plain acknowledgement.
type MessageResponse struct {
	Message string `json:"message"`
}

// claimsFrom returns the authenticated caller's claims and user id.
func claimsFrom(c echo.Context) (*auth.Claims, uuid.UUID, error) {
	claims, ok := c.Get(ContextKeyClaims).(*auth.Claims)
	if !ok || claims == nil {
		return nil, uuid.Nil, errors.Unauthenticated("Not authenticated")
	}
	userID, err := claims.UserID()
	if err != nil {
		return nil, uuid.Nil, errors.Unauthenticated("Not authenticated")
	}
	return claims, userID, nil
}

func currentUserID(c echo.Context) (uuid.UUID, error) {
	_, id, err := claimsFrom(c)
	return id, err
}

// httpError converts any error into an echo.HTTPError carrying an ErrorResponse.
// The original error is kept as the internal cause for logging.
func httpError(err error) *echo.HTTPError {
	mapped := errors.MapErrorToHTTP(err)
	return echo.NewHTTPError(mapped.StatusCode, mapped.ToErrorResponse()).SetInternal(err)
}

func badRequest(msg string) *echo.HTTPError {
	return echo.NewHTTPError(http.StatusBadRequest, errors.ErrorResponse{Message: msg, Code: "VALIDATION_ERROR"})
}

// pathID parses the :id route parameter; malformed ids cannot match any record.
func pathID(c echo.Context, notFound string) (uuid.UUID, error) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return uuid.Nil, errors.NotFound(notFound)
	}
	return id, nil
}
