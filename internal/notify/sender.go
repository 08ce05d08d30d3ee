package notify

import (
	"context"
	"fmt"
	"log/slog"
	"mime"
	"net"
	"net/smtp"
	"strconv"
	"strings"
)

// Sender delivers a message.
type Sender interface {
	Send(ctx context.Context, msg *Message) error
}

// Deferred is implemented by senders whose Send only hands the message to a
// later delivery step.
type Deferred interface {
	Deferred() bool
}

// IsDeferred reports whether s defers delivery.
func IsDeferred(s Sender) bool {
	d, ok := s.(Deferred)
	return ok && d.Deferred()
}

// SendMailFunc matches smtp.SendMail.
type SendMailFunc func(addr string, a smtp.Auth, from string, to []string, msg []byte) error

// SMTPConfig configures an SMTPSender.
type SMTPConfig struct {
	Host     string
	Port     int
	Username string
	Password string
	FromName string
}

// SMTPSender renders messages and sends them over SMTP with PLAIN auth.
type SMTPSender struct {
	cfg      SMTPConfig
	sendMail SendMailFunc
	logger   *slog.Logger
}

// NewSMTPSender creates an SMTP sender. A nil sendMail uses smtp.SendMail.
func NewSMTPSender(cfg SMTPConfig, sendMail SendMailFunc, logger *slog.Logger) *SMTPSender {
	if sendMail == nil {
		sendMail = smtp.SendMail
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &SMTPSender{cfg: cfg, sendMail: sendMail, logger: logger}
}

func (s *SMTPSender) Send(ctx context.Context, msg *Message) error {
	subject, body, err := Render(msg)
	if err != nil {
		return err
	}

	raw := buildMIME(s.cfg.FromName, s.cfg.Username, msg.To, subject, body)
	addr := net.JoinHostPort(s.cfg.Host, strconv.Itoa(s.cfg.Port))
	auth := smtp.PlainAuth("", s.cfg.Username, s.cfg.Password, s.cfg.Host)

	// net/smtp has no context support; honour cancellation before dialing.
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := s.sendMail(addr, auth, s.cfg.Username, []string{msg.To}, raw); err != nil {
		return fmt.Errorf("send email: %w", err)
	}
	s.logger.InfoContext(ctx, "email sent", "kind", msg.Kind, "to", msg.To)
	return nil
}

func buildMIME(fromName, fromAddr, to, subject, body string) []byte {
	var b strings.Builder
	from := fromAddr
	if fromName != "" {
		from = fmt.Sprintf("%s <%s>", mime.QEncoding.Encode("utf-8", fromName), fromAddr)
	}
	b.WriteString("From: " + from + "\r\n")
	b.WriteString("To: " + to + "\r\n")
	b.WriteString("Subject: " + mime.QEncoding.Encode("utf-8", subject) + "\r\n")
	b.WriteString("MIME-Version: 1.0\r\n")
	b.WriteString("Content-Type: text/html; charset=\"UTF-8\"\r\n\r\n")
	b.WriteString(body)
	return []byte(b.String())
}

// LogSender renders messages and logs their subject instead of delivering them.
type LogSender struct {
	logger *slog.Logger
}

// NewLogSender creates a development sender.
func NewLogSender(logger *slog.Logger) *LogSender {
	if logger == nil {
		logger = slog.Default()
	}
	return &LogSender{logger: logger}
}

func (s *LogSender) Send(ctx context.Context, msg *Message) error {
	subject, _, err := Render(msg)
	if err != nil {
		return err
	}
	s.logger.InfoContext(ctx, "email not delivered (log transport)", "kind", msg.Kind, "to", msg.To, "subject", subject)
	return nil
}
