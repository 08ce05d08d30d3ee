package service

import (
	"context"
	"log/slog"
	"sync"
	"time"

	applog "spendwise/internal/log"
	"spendwise/internal/model"
	"spendwise/internal/notify"
)

const defaultNotifyTimeout = 30 * time.Second

// NotificationResult reports the outcome of a best-effort email.
type NotificationResult struct {
	Sent    bool   `json:"sent"`
	Skipped bool   `json:"skipped"`
	Message string `json:"message"`
}

// NotificationService dispatches emails to users. Failures never propagate to callers.
type NotificationService interface {
	Notify(ctx context.Context, user *model.User, msg notify.Message) NotificationResult
	// NotifyAsync dispatches in the background with its own timeout.
	NotifyAsync(user *model.User, msg notify.Message)
	// Wait blocks until background dispatches have finished.
	Wait()
}

type notificationService struct {
	sender  notify.Sender
	logger  *slog.Logger
	timeout time.Duration
	wg      sync.WaitGroup
}

// NewNotificationService creates a dispatcher over the given transport.
func NewNotificationService(sender notify.Sender, logger *slog.Logger) NotificationService {
	if logger == nil {
		logger = applog.Component(applog.ComponentNotify)
	}
	return &notificationService{sender: sender, logger: logger, timeout: defaultNotifyTimeout}
}

func (s *notificationService) Notify(ctx context.Context, user *model.User, msg notify.Message) NotificationResult {
	if user == nil || user.Email == "" {
		return NotificationResult{Skipped: true, Message: "User email not available"}
	}
	if !user.EmailNotifications {
		return NotificationResult{Skipped: true, Message: "Email notifications are disabled"}
	}

	msg.To = user.Email
	msg.Name = user.Username
	if msg.Timestamp.IsZero() {
		msg.Timestamp = time.Now().UTC()
	}

	if err := s.sender.Send(ctx, &msg); err != nil {
		s.logger.WarnContext(ctx, "notification failed",
			applog.FieldNotifyKind, msg.Kind,
			applog.FieldUserID, user.ID,
			applog.FieldError, err)
		return NotificationResult{Sent: false, Message: "Failed to send email notification"}
	}
	if notify.IsDeferred(s.sender) {
		return NotificationResult{Sent: true, Message: "Email notification queued"}
	}
	return NotificationResult{Sent: true, Message: "Email notification sent"}
}

func (s *notificationService) NotifyAsync(user *model.User, msg notify.Message) {
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		defer func() {
			if r := recover(); r != nil {
				s.logger.Error("notification panicked", applog.FieldNotifyKind, msg.Kind, "panic", r)
			}
		}()

		ctx, cancel := context.WithTimeout(context.Background(), s.timeout)
		defer cancel()
		s.Notify(ctx, user, msg)
	}()
}

func (s *notificationService) Wait() {
	s.wg.Wait()
}
