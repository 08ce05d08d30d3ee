package router

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"spendwise/internal/auth"
	"spendwise/internal/config"
	"spendwise/internal/handler"
	applog "spendwise/internal/log"
	"spendwise/internal/notify"
	"spendwise/internal/repository"
	"spendwise/internal/service"
	"spendwise/internal/storage"
	"spendwise/internal/testutil"
)

type testServer struct {
	e      *echo.Echo
	health error
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	ctx := context.Background()
	logger := applog.Discard()

	gormDB := testutil.NewDB(t)
	memCache := testutil.NewMemoryCache()
	cfg := &config.Config{
		CORSOrigins:    []string{"http://localhost:4200"},
		UploadsDir:     t.TempDir(),
		MaxUploadBytes: 5 << 20,
	}

	userRepo := repository.NewUserRepository(gormDB)
	jwtService := auth.NewJWTService(auth.JWTConfig{
		AccessSecret:  "access-secret",
		RefreshSecret: "refresh-secret",
		Issuer:        "spendwise",
		Audience:      "spendwise-clients",
	})
	tokenStore := auth.NewTokenStore(memCache)
	notifier := service.NewNotificationService(notify.NewLogSender(logger), logger)
	t.Cleanup(notifier.Wait)

	uploads, err := storage.NewLocalStore(cfg.UploadsDir, "/uploads")
	require.NoError(t, err)

	categoryService := service.NewCategoryService(repository.NewCategoryRepository(gormDB))
	_, err = categoryService.SeedDefaults(ctx)
	require.NoError(t, err)

	authService := service.NewAuthService(userRepo, jwtService, tokenStore, notifier)
	userService := service.NewUserService(userRepo, memCache, uploads, cfg.MaxUploadBytes)
	expenseService := service.NewExpenseService(repository.NewExpenseRepository(gormDB), userRepo, categoryService, notifier)

	ts := &testServer{e: echo.New()}
	Register(ts.e, cfg, Deps{
		Logger:     logger,
		JWT:        jwtService,
		TokenStore: tokenStore,
		Health:     func(context.Context) error { return ts.health },
		Auth:       handler.NewAuthHandler(authService, false, jwtService.RefreshTTL()),
		User:       handler.NewUserHandler(userService, cfg.MaxUploadBytes),
		Category:   handler.NewCategoryHandler(categoryService),
		Expense:    handler.NewExpenseHandler(expenseService),
	})
	return ts
}

func (ts *testServer) do(method, path, body, token string) *httptest.ResponseRecorder {
	var req *http.Request
	if body != "" {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	} else {
		req = httptest.NewRequest(method, path, nil)
	}
	if token != "" {
		req.Header.Set(echo.HeaderAuthorization, "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	ts.e.ServeHTTP(rec, req)
	return rec
}

func (ts *testServer) upload(t *testing.T, token string, data []byte, streamed bool) *httptest.ResponseRecorder {
	t.Helper()
	var body bytes.Buffer
	w := multipart.NewWriter(&body)
	part, err := w.CreateFormFile("profilePicture", "avatar.png")
	require.NoError(t, err)
	_, err = part.Write(data)
	require.NoError(t, err)
	require.NoError(t, w.Close())

	req := httptest.NewRequest(http.MethodPost, "/api/auth/profile-picture", &body)
	req.Header.Set(echo.HeaderContentType, w.FormDataContentType())
	req.Header.Set(echo.HeaderAuthorization, "Bearer "+token)
	if streamed {
		req.ContentLength = -1
	}
	rec := httptest.NewRecorder()
	ts.e.ServeHTTP(rec, req)
	return rec
}

func fakePNG(size int) []byte {
	data := make([]byte, size)
	copy(data, "\x89PNG\r\n\x1a\n")
	return data
}

func decode(t *testing.T, rec *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var out map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out), rec.Body.String())
	return out
}

func signUp(t *testing.T, ts *testServer, email string) string {
	t.Helper()
	rec := ts.do(http.MethodPost, "/api/auth/signup", `{"username":"alice","email":"`+email+`","password":"secret123"}`, "")
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	token, _ := decode(t, rec)["accessToken"].(string)
	require.NotEmpty(t, token)
	return token
}

func TestHealthz(t *testing.T) {
	ts := newTestServer(t)

	rec := ts.do(http.MethodGet, "/healthz", "", "")
	assert.Equal(t, http.StatusOK, rec.Code)

	ts.health = errors.New("db down")
	rec = ts.do(http.MethodGet, "/healthz", "", "")
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}

func TestSecuredRoutesRequireToken(t *testing.T) {
	ts := newTestServer(t)

	for _, path := range []string{"/api/auth/me", "/api/categories", "/api/expenses", "/api/expenses/summary"} {
		rec := ts.do(http.MethodGet, path, "", "")
		assert.Equal(t, http.StatusUnauthorized, rec.Code, path)
		assert.JSONEq(t, `{"message":"Not authenticated","code":"UNAUTHENTICATED"}`, rec.Body.String(), path)
	}

	rec := ts.do(http.MethodGet, "/api/expenses", "", "not-a-jwt")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestSignUpAndDuplicate(t *testing.T) {
	ts := newTestServer(t)
	signUp(t, ts, "alice@example.com")

	rec := ts.do(http.MethodPost, "/api/auth/signup", `{"username":"alice","email":"ALICE@example.com","password":"x"}`, "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "User already exists", decode(t, rec)["message"])

	rec = ts.do(http.MethodPost, "/api/auth/signin", `{"email":"alice@example.com","password":"wrong"}`, "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "Invalid credentials", decode(t, rec)["message"])
}

func TestExpenseFlow(t *testing.T) {
	ts := newTestServer(t)
	token := signUp(t, ts, "bob@example.com")

	rec := ts.do(http.MethodPost, "/api/expenses", `{"description":"Lunch","amount":12.5,"date":"2026-03-01","category":"Food"}`, token)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	created := decode(t, rec)["expense"].(map[string]any)
	assert.Equal(t, "Food", created["category"])
	assert.Equal(t, created["_id"], created["id"])
	id := created["_id"].(string)

	rec = ts.do(http.MethodPost, "/api/expenses", `{"description":"Taxi","amount":7,"category":"Fod"}`, token)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, `Invalid category. Did you mean "Food"?`, decode(t, rec)["message"])

	rec = ts.do(http.MethodPut, "/api/expenses/"+id, `{"amount":20}`, token)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.EqualValues(t, 20, decode(t, rec)["expense"].(map[string]any)["amount"])

	rec = ts.do(http.MethodGet, "/api/expenses/summary", "", token)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.EqualValues(t, 20, decode(t, rec)["total"])

	rec = ts.do(http.MethodGet, "/api/expenses?pageSize=1", "", token)
	require.Equal(t, http.StatusOK, rec.Code)
	page := decode(t, rec)
	assert.EqualValues(t, 1, page["total"])
	assert.EqualValues(t, 1, page["pageSize"])

	other := signUp(t, ts, "carol@example.com")
	rec = ts.do(http.MethodGet, "/api/expenses/"+id, "", other)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = ts.do(http.MethodDelete, "/api/expenses/"+id, "", token)
	assert.Equal(t, http.StatusOK, rec.Code)
	rec = ts.do(http.MethodDelete, "/api/expenses/"+id, "", token)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestLogoutRevokesAccessToken(t *testing.T) {
	ts := newTestServer(t)
	token := signUp(t, ts, "dave@example.com")

	rec := ts.do(http.MethodGet, "/api/auth/me", "", token)
	require.Equal(t, http.StatusOK, rec.Code)

	rec = ts.do(http.MethodPost, "/api/auth/logout", "", token)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	rec = ts.do(http.MethodGet, "/api/auth/me", "", token)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestCategoryValidationMessage(t *testing.T) {
	ts := newTestServer(t)
	token := signUp(t, ts, "erin@example.com")

	rec := ts.do(http.MethodPost, "/api/categories", `{}`, token)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.JSONEq(t, `{"message":"name is required","code":"VALIDATION_ERROR"}`, rec.Body.String())
}

func TestProfilePictureUploadLimit(t *testing.T) {
	ts := newTestServer(t)
	token := signUp(t, ts, "frank@example.com")

	rec := ts.upload(t, token, fakePNG(5<<20-1024), false)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	picture, _ := decode(t, rec)["profilePicture"].(string)
	assert.True(t, strings.HasPrefix(picture, "/uploads/"), picture)

	for _, streamed := range []bool{false, true} {
		rec = ts.upload(t, token, fakePNG(6<<20), streamed)
		assert.Equal(t, http.StatusBadRequest, rec.Code, "streamed=%v", streamed)
		assert.JSONEq(t, `{"message":"File too large. Maximum size is 5MB","code":"VALIDATION_ERROR"}`, rec.Body.String())
	}

	rec = ts.do(http.MethodGet, "/api/auth/me", "", token)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, picture, decode(t, rec)["profilePicture"])
}

func TestSharedCategoryIsReadOnly(t *testing.T) {
	ts := newTestServer(t)
	token := signUp(t, ts, "grace@example.com")

	rec := ts.do(http.MethodGet, "/api/categories", "", token)
	require.Equal(t, http.StatusOK, rec.Code)
	var categories []map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &categories))
	require.NotEmpty(t, categories)
	id, _ := categories[0]["_id"].(string)
	require.NotEmpty(t, id)

	want := `{"message":"Default categories cannot be modified","code":"FORBIDDEN"}`
	rec = ts.do(http.MethodPut, "/api/categories/"+id, `{"name":"Renamed"}`, token)
	assert.Equal(t, http.StatusForbidden, rec.Code)
	assert.JSONEq(t, want, rec.Body.String())

	rec = ts.do(http.MethodDelete, "/api/categories/"+id, "", token)
	assert.Equal(t, http.StatusForbidden, rec.Code)
	assert.JSONEq(t, want, rec.Body.String())
}

func TestErrorBody(t *testing.T) {
	status, body := errorBody(errors.New("boom"))
	assert.Equal(t, http.StatusInternalServerError, status)
	assert.Equal(t, "Server error", body.Message)

	status, body = errorBody(echo.ErrNotFound)
	assert.Equal(t, http.StatusNotFound, status)
	assert.Equal(t, "NOT_FOUND", body.Code)

	status, body = errorBody(echo.NewHTTPError(http.StatusInternalServerError, "db password leaked"))
	assert.Equal(t, http.StatusInternalServerError, status)
	assert.Equal(t, "Server error", body.Message)
}
