package router

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
	echojwt "github.com/labstack/echo-jwt/v4"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	echoSwagger "github.com/swaggo/echo-swagger"

	"spendwise/internal/auth"
	"spendwise/internal/config"
	"spendwise/internal/errors"
	"spendwise/internal/handler"
	applog "spendwise/internal/log"
	"spendwise/internal/service"
)

// multipartOverhead is the room left for form boundaries and headers on the upload route.
const multipartOverhead = 64 * 1024

// Deps bundles everything Register wires into routes.
type Deps struct {
	Logger     *slog.Logger
	JWT        *auth.JWTService
	TokenStore auth.TokenStoreInterface
	Health     func(ctx context.Context) error

	Auth     *handler.AuthHandler
	User     *handler.UserHandler
	Category *handler.CategoryHandler
	Expense  *handler.ExpenseHandler
}

// Register wires routes and middleware.
func Register(e *echo.Echo, cfg *config.Config, deps Deps) {
	logger := deps.Logger
	if logger == nil {
		logger = slog.Default()
	}
	logger = logger.With(applog.FieldComponent, applog.ComponentHTTP)

	e.HideBanner = true
	e.Validator = NewValidator()
	e.HTTPErrorHandler = ErrorHandler(logger)

	e.Use(middleware.RequestID())
	e.Use(requestLogger(logger))
	e.Use(middleware.Recover())
	e.Use(middleware.CORSWithConfig(middleware.CORSConfig{
		AllowOrigins:     cfg.CORSOrigins,
		AllowMethods:     []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodDelete, http.MethodOptions},
		AllowHeaders:     []string{echo.HeaderOrigin, echo.HeaderContentType, echo.HeaderAccept, echo.HeaderAuthorization},
		AllowCredentials: true,
	}))

	e.GET("/healthz", func(c echo.Context) error {
		if deps.Health != nil {
			if err := deps.Health(c.Request().Context()); err != nil {
				logger.Error("health check failed", applog.FieldError, err)
				return c.JSON(http.StatusServiceUnavailable, map[string]string{"status": "unavailable"})
			}
		}
		return c.JSON(http.StatusOK, map[string]string{"status": "ok"})
	})

	e.GET("/swagger/*", echoSwagger.WrapHandler)
	e.Static("/uploads", cfg.UploadsDir)

	requireAuth := JWTMiddleware(deps.JWT, deps.TokenStore)
	uploadLimit := middleware.BodyLimit(fmt.Sprintf("%dB", cfg.MaxUploadBytes+multipartOverhead))
	uploadTooLarge := rejectOversizeUpload(cfg.MaxUploadBytes)

	api := e.Group("/api")

	// Public routes
	authGroup := api.Group("/auth")
	authGroup.POST("/signup", deps.Auth.SignUp)
	authGroup.POST("/signin", deps.Auth.SignIn)
	authGroup.POST("/refresh-token", deps.Auth.RefreshToken)

	// Secured routes (require JWT authentication)
	authGroup.GET("/me", deps.User.Me, requireAuth)
	authGroup.POST("/profile-picture", deps.User.UploadProfilePicture, requireAuth, uploadTooLarge, uploadLimit)
	authGroup.PUT("/notifications", deps.User.UpdateNotifications, requireAuth)
	authGroup.POST("/logout", deps.Auth.Logout, requireAuth)

	categories := api.Group("/categories", requireAuth)
	categories.GET("", deps.Category.List)
	categories.POST("", deps.Category.Create)
	categories.GET("/:id", deps.Category.Get)
	categories.PUT("/:id", deps.Category.Update)
	categories.DELETE("/:id", deps.Category.Delete)

	expenses := api.Group("/expenses", requireAuth)
	expenses.GET("", deps.Expense.List)
	expenses.POST("", deps.Expense.Create)
	expenses.GET("/summary", deps.Expense.Summary)
	expenses.GET("/insights", deps.Expense.Insights)
	expenses.GET("/:id", deps.Expense.Get)
	expenses.PUT("/:id", deps.Expense.Update)
	expenses.DELETE("/:id", deps.Expense.Delete)
}

// rejectOversizeUpload reports body-limit rejections with the same 400 the
// upload service returns for files over maxBytes.
func rejectOversizeUpload(maxBytes int64) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			err := next(c)
			var he *echo.HTTPError
			if err != nil && errors.As(err, &he) && he.Code == http.StatusRequestEntityTooLarge {
				return echo.NewHTTPError(http.StatusBadRequest, errors.ErrorResponse{
					Message: service.FileTooLargeMessage(maxBytes),
					Code:    "VALIDATION_ERROR",
				}).SetInternal(err)
			}
			return err
		}
	}
}

// JWTMiddleware authenticates bearer access tokens and rejects denied ones.
// Validated claims are stored under handler.ContextKeyClaims.
func JWTMiddleware(jwtService *auth.JWTService, tokenStore auth.TokenStoreInterface) echo.MiddlewareFunc {
	return echojwt.WithConfig(echojwt.Config{
		ContextKey:  handler.ContextKeyClaims,
		TokenLookup: "header:" + echo.HeaderAuthorization + ":Bearer ",
		ParseTokenFunc: func(c echo.Context, token string) (interface{}, error) {
			claims, err := jwtService.ValidateAccessToken(token)
			if err != nil {
				return nil, err
			}
			denied, err := tokenStore.IsAccessTokenBlacklisted(c.Request().Context(), claims.ID)
			if err != nil {
				return nil, err
			}
			if denied {
				return nil, auth.ErrInvalidToken
			}
			return claims, nil
		},
		ErrorHandler: func(c echo.Context, err error) error {
			return echo.NewHTTPError(http.StatusUnauthorized, errors.ErrorResponse{
				Message: "Not authenticated",
				Code:    "UNAUTHENTICATED",
			}).SetInternal(err)
		},
	})
}

func requestLogger(logger *slog.Logger) echo.MiddlewareFunc {
	return middleware.RequestLoggerWithConfig(middleware.RequestLoggerConfig{
		LogMethod:    true,
		LogURI:       true,
		LogStatus:    true,
		LogLatency:   true,
		LogRequestID: true,
		LogError:     true,
		HandleError:  true,
		LogValuesFunc: func(c echo.Context, v middleware.RequestLoggerValues) error {
			attrs := []any{
				applog.FieldRequestID, v.RequestID,
				applog.FieldMethod, v.Method,
				applog.FieldPath, v.URI,
				applog.FieldStatusCode, v.Status,
				applog.FieldDuration, v.Latency.Milliseconds(),
			}
			switch {
			case v.Status >= http.StatusInternalServerError:
				logger.Error("request failed", append(attrs, applog.FieldError, v.Error)...)
			case v.Status >= http.StatusBadRequest:
				logger.Warn("request rejected", attrs...)
			default:
				logger.Info("request completed", attrs...)
			}
			return nil
		},
	})
}

// ErrorHandler renders every failure as an ErrorResponse. Internal causes of 5xx
// responses are logged and never sent to the client.
func ErrorHandler(logger *slog.Logger) echo.HTTPErrorHandler {
	return func(err error, c echo.Context) {
		if c.Response().Committed {
			return
		}

		status, body := errorBody(err)
		if status >= http.StatusInternalServerError {
			logger.Error("unhandled error",
				applog.FieldRequestID, c.Response().Header().Get(echo.HeaderXRequestID),
				applog.FieldPath, c.Request().URL.Path,
				applog.FieldError, err,
			)
		}

		var writeErr error
		if c.Request().Method == http.MethodHead {
			writeErr = c.NoContent(status)
		} else {
			writeErr = c.JSON(status, body)
		}
		if writeErr != nil {
			logger.Error("write error response", applog.FieldError, writeErr)
		}
	}
}

func errorBody(err error) (int, errors.ErrorResponse) {
	var he *echo.HTTPError
	if !errors.As(err, &he) {
		mapped := errors.MapErrorToHTTP(err)
		return mapped.StatusCode, mapped.ToErrorResponse()
	}
	if he.Code >= http.StatusInternalServerError {
		return he.Code, errors.ErrorResponse{Message: "Server error", Code: "INTERNAL_ERROR"}
	}
	switch msg := he.Message.(type) {
	case errors.ErrorResponse:
		return he.Code, msg
	case string:
		return he.Code, errors.ErrorResponse{Message: msg, Code: codeForStatus(he.Code)}
	default:
		return he.Code, errors.ErrorResponse{Message: http.StatusText(he.Code), Code: codeForStatus(he.Code)}
	}
}

func codeForStatus(status int) string {
	switch status {
	case http.StatusBadRequest, http.StatusRequestEntityTooLarge:
		return "VALIDATION_ERROR"
	case http.StatusUnauthorized:
		return "UNAUTHENTICATED"
	case http.StatusNotFound:
		return "NOT_FOUND"
	default:
		return strings.ToUpper(strings.ReplaceAll(http.StatusText(status), " ", "_"))
	}
}

// CustomValidator wraps validator for Echo.
type CustomValidator struct {
	validator *validator.Validate
}

// NewValidator returns a validator that reports fields by their JSON names.
func NewValidator() *CustomValidator {
	v := validator.New()
	v.RegisterTagNameFunc(func(field reflect.StructField) string {
		name := strings.SplitN(field.Tag.Get("json"), ",", 2)[0]
		if name == "-" || name == "" {
			return field.Name
		}
		return name
	})
	return &CustomValidator{validator: v}
}

// Validate implements echo.Validator interface. Only the first failing field is reported.
func (cv *CustomValidator) Validate(i interface{}) error {
	err := cv.validator.Struct(i)
	if err == nil {
		return nil
	}
	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) || len(fieldErrs) == 0 {
		return err
	}
	fe := fieldErrs[0]
	switch fe.Tag() {
	case "required":
		return errors.Validation(fmt.Sprintf("%s is required", fe.Field()))
	case "oneof":
		return errors.Validation(fmt.Sprintf("%s must be one of %s", fe.Field(), strings.ReplaceAll(fe.Param(), " ", ", ")))
	default:
		return errors.Validation(fmt.Sprintf("%s is invalid", fe.Field()))
	}
}

var _ echo.Validator = (*CustomValidator)(nil)
