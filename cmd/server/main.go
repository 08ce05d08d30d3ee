package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/labstack/echo/v4"
	"golang.org/x/sync/errgroup"
	"gorm.io/gorm"

	"spendwise/docs"
	"spendwise/internal/auth"
	"spendwise/internal/cache"
	"spendwise/internal/config"
	"spendwise/internal/db"
	"spendwise/internal/handler"
	applog "spendwise/internal/log"
	"spendwise/internal/notify"
	"spendwise/internal/repository"
	"spendwise/internal/router"
	"spendwise/internal/service"
	"spendwise/internal/storage"
)

const shutdownTimeout = 10 * time.Second

// @title SpendWise API
// @version 1.0
// @description Personal expense tracking API with categories, summaries, insights and JWT authentication.
// @host localhost:5000
// @BasePath /api
// @schemes http
// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization
// @description Type "Bearer" followed by a space and JWT token.
func main() {
	cfg := config.Load()
	logger := applog.Setup(applog.Config{Level: cfg.LogLevel, JSON: cfg.IsProduction()})

	if err := cfg.Validate(); err != nil {
		log.Fatalf("config: %v", err)
	}
	if err := run(cfg, logger); err != nil {
		log.Fatalf("server: %v", err)
	}
}

func run(cfg *config.Config, logger *slog.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	appLogger := logger.With(applog.FieldComponent, applog.ComponentApp)

	gormDB, err := openDatabase(cfg, appLogger)
	if err != nil {
		return err
	}

	cacheClient := cache.New(cfg.RedisAddr, cfg.RedisPass, cfg.RedisDB)
	defer cacheClient.Close()
	if err := cacheClient.Ping(ctx); err != nil {
		// The cache fails safe; tokens simply cannot be revoked until redis is back.
		appLogger.Warn("redis unavailable", "addr", cfg.RedisAddr, applog.FieldError, err)
	}

	sender, closeSender, err := newSender(cfg, logger)
	if err != nil {
		return err
	}
	defer closeSender()

	uploads, err := storage.NewLocalStore(cfg.UploadsDir, "/uploads")
	if err != nil {
		return err
	}

	// Initialize repositories
	userRepo := repository.NewUserRepository(gormDB)
	categoryRepo := repository.NewCategoryRepository(gormDB)
	expenseRepo := repository.NewExpenseRepository(gormDB)

	// Initialize auth components
	jwtService := auth.NewJWTService(auth.JWTConfig{
		AccessSecret:  cfg.JWTSecret,
		RefreshSecret: cfg.JWTRefreshSecret,
		Issuer:        cfg.JWTIssuer,
		Audience:      cfg.JWTAudience,
		AccessTTL:     cfg.AccessTokenTTL,
		RefreshTTL:    cfg.RefreshTokenTTL,
	})
	tokenStore := auth.NewTokenStore(cacheClient)

	// Initialize services
	notifier := service.NewNotificationService(sender, logger.With(applog.FieldComponent, applog.ComponentNotify))
	defer notifier.Wait()
	categoryService := service.NewCategoryService(categoryRepo)
	authService := service.NewAuthService(userRepo, jwtService, tokenStore, notifier)
	userService := service.NewUserService(userRepo, cacheClient, uploads, cfg.MaxUploadBytes)
	expenseService := service.NewExpenseService(expenseRepo, userRepo, categoryService, notifier)

	inserted, err := categoryService.SeedDefaults(ctx)
	if err != nil {
		return fmt.Errorf("seed categories: %w", err)
	}
	if inserted > 0 {
		appLogger.Info("seeded default categories", "count", inserted)
	}

	if cfg.SwaggerHost != "" {
		docs.SwaggerInfo.Host = cfg.SwaggerHost
	}

	e := echo.New()
	e.HidePort = true
	router.Register(e, cfg, router.Deps{
		Logger:     logger,
		JWT:        jwtService,
		TokenStore: tokenStore,
		Health:     func(context.Context) error { return db.Ping(gormDB) },
		Auth:       handler.NewAuthHandler(authService, cfg.IsProduction(), jwtService.RefreshTTL()),
		User:       handler.NewUserHandler(userService, cfg.MaxUploadBytes),
		Category:   handler.NewCategoryHandler(categoryService),
		Expense:    handler.NewExpenseHandler(expenseService),
	})

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		addr := ":" + cfg.ServerPort
		appLogger.Info("server listening", "addr", addr, "swagger", "/swagger/index.html")
		if err := e.Start(addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server start: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		appLogger.Info("shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		return e.Shutdown(shutdownCtx)
	})
	return g.Wait()
}

func openDatabase(cfg *config.Config, logger *slog.Logger) (*gorm.DB, error) {
	gormDB, err := db.Open(cfg.DBDriver, cfg.DBDSN)
	if err != nil {
		return nil, fmt.Errorf("database init: %w", err)
	}

	// Drop tables if RESET_DB environment variable is set
	if cfg.ResetDB {
		logger.Warn("RESET_DB=true detected, dropping all tables")
		if err := db.Reset(gormDB); err != nil {
			return nil, err
		}
	}

	if err := db.Migrate(gormDB); err != nil {
		return nil, err
	}
	return gormDB, nil
}

// newSender picks the mail transport. The returned func releases broker connections.
func newSender(cfg *config.Config, logger *slog.Logger) (notify.Sender, func(), error) {
	logger = logger.With(applog.FieldComponent, applog.ComponentNotify)
	switch cfg.MailTransport {
	case "smtp":
		return notify.NewSMTPSender(smtpConfig(cfg), nil, logger), func() {}, nil
	case "queue":
		client, err := notify.NewQueueClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue, logger)
		if err != nil {
			return nil, nil, err
		}
		return client, func() { _ = client.Close() }, nil
	default:
		return notify.NewLogSender(logger), func() {}, nil
	}
}

func smtpConfig(cfg *config.Config) notify.SMTPConfig {
	return notify.SMTPConfig{
		Host:     cfg.SMTPHost,
		Port:     cfg.SMTPPort,
		Username: cfg.SMTPUsername,
		Password: cfg.SMTPPassword,
		FromName: cfg.MailFromName,
	}
}
