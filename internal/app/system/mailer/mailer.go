// internal/app/system/mailer/mailer.go
package mailer

import (
	"context"

	"go.uber.org/zap"
)

// Email is a fully built outbound message. Bodies are prerendered; the
// sender only transports them.
type Email struct {
	To       string
	Subject  string
	TextBody string
	HTMLBody string
}

// Sender delivers built emails. Implementations decide the transport.
type Sender interface {
	Send(ctx context.Context, e Email) error
}

// LogSender writes emails to the log instead of delivering them. It is the
// default sender for development and tests, where no SMTP relay exists.
type LogSender struct {
	Log *zap.Logger
}

// NewLogSender returns a sender that logs instead of delivering.
func NewLogSender(logger *zap.Logger) *LogSender {
	return &LogSender{Log: logger}
}

func (s *LogSender) Send(_ context.Context, e Email) error {
	s.Log.Info("outbound email (log sender)",
		zap.String("to", e.To),
		zap.String("subject", e.Subject),
		zap.String("body", e.TextBody))
	return nil
}
