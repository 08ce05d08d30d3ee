package main

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"spendwise/internal/config"
	applog "spendwise/internal/log"
	"spendwise/internal/notify"
)

func main() {
	cfg := config.Load()
	logger := applog.Setup(applog.Config{Level: cfg.LogLevel, JSON: cfg.IsProduction()}).
		With(applog.FieldComponent, applog.ComponentWorker)

	logger.Info("starting notify-worker")

	if err := cfg.Validate(); err != nil {
		logger.Error("configuration validation failed", applog.FieldError, err)
		os.Exit(1)
	}
	if cfg.AMQPURL == "" {
		logger.Error("AMQP_URL is required for the notification worker")
		os.Exit(1)
	}

	queue, err := notify.NewQueueClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue, logger)
	if err != nil {
		logger.Error("failed to initialize AMQP client", applog.FieldError, err)
		os.Exit(1)
	}
	defer queue.Close()

	sender := newDeliverySender(cfg, logger)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	err = queue.Consume(ctx, func(ctx context.Context, msg *notify.Message) error {
		if err := sender.Send(ctx, msg); err != nil {
			return err
		}
		logger.Info("notification delivered", applog.FieldNotifyKind, msg.Kind)
		return nil
	})
	if err != nil && !errors.Is(err, context.Canceled) {
		logger.Error("consumer stopped", applog.FieldError, err)
		os.Exit(1)
	}
	logger.Info("notify-worker stopped")
}

// newDeliverySender sends over SMTP when credentials are configured and logs otherwise.
func newDeliverySender(cfg *config.Config, logger *slog.Logger) notify.Sender {
	if cfg.SMTPUsername == "" || cfg.SMTPPassword == "" {
		logger.Warn("SMTP credentials missing, notifications will only be logged")
		return notify.NewLogSender(logger)
	}
	return notify.NewSMTPSender(notify.SMTPConfig{
		Host:     cfg.SMTPHost,
		Port:     cfg.SMTPPort,
		Username: cfg.SMTPUsername,
		Password: cfg.SMTPPassword,
		FromName: cfg.MailFromName,
	}, nil, logger)
}
