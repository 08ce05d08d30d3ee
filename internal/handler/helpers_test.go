package handler

import (
	"io"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/golang-jwt/jwt/v4"
	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/require"

	"spendwise/internal/auth"
	"spendwise/internal/errors"
)

type testValidator struct {
	v *validator.Validate
}

func (tv *testValidator) Validate(i interface{}) error {
	return tv.v.Struct(i)
}

func newEcho() *echo.Echo {
	e := echo.New()
	e.Validator = &testValidator{v: validator.New()}
	return e
}

func testClaims(userID uuid.UUID) *auth.Claims {
	return &auth.Claims{RegisteredClaims: jwt.RegisteredClaims{
		ID:        "access-jti",
		Subject:   userID.String(),
		ExpiresAt: jwt.NewNumericDate(time.Date(2026, 3, 20, 12, 15, 0, 0, time.UTC)),
	}}
}

// newContext builds a request context; a nil claims value leaves the caller anonymous.
func newContext(e *echo.Echo, method, target, body string, claims *auth.Claims) (echo.Context, *httptest.ResponseRecorder) {
	var reader io.Reader
	if body != "" {
		reader = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, target, reader)
	if body != "" {
		req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	}
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	if claims != nil {
		c.Set(ContextKeyClaims, claims)
	}
	return c, rec
}

func requireHTTPError(t *testing.T, err error, status int, message string) {
	t.Helper()
	var he *echo.HTTPError
	require.ErrorAs(t, err, &he)
	require.Equal(t, status, he.Code)
	resp, ok := he.Message.(errors.ErrorResponse)
	require.True(t, ok, "unexpected message type %T", he.Message)
	require.Equal(t, message, resp.Message)
}

func requireStatus(t *testing.T, err error, status int) {
	t.Helper()
	var he *echo.HTTPError
	require.ErrorAs(t, err, &he)
	require.Equal(t, status, he.Code)
}
