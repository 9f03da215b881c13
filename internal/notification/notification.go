package notification

import (
	"context"
	"errors"
	"log/slog"
)

// Ledger event kinds double as AMQP routing keys.
const (
	KindRequested = "ledger.requested"
	KindApproved  = "ledger.approved"
	KindRejected  = "ledger.rejected"
	KindFunded    = "ledger.funded"
	KindDeducted  = "ledger.deducted"
)

// Message describes a notification payload. Destination is the account
// owner's email when known.
type Message struct {
	Kind        string         `json:"kind"`
	Destination string         `json:"destination,omitempty"`
	Subject     string         `json:"subject"`
	Body        string         `json:"body"`
	Data        map[string]any `json:"data,omitempty"`
}

// Notifier delivers notifications to downstream systems.
type Notifier interface {
	Send(ctx context.Context, message Message) error
}

// LoggerNotifier writes notifications to the structured logger.
type LoggerNotifier struct {
	logger *slog.Logger
}

// NewLoggerNotifier constructs a logging notifier.
func NewLoggerNotifier(logger *slog.Logger) *LoggerNotifier {
	return &LoggerNotifier{logger: logger}
}

// Send writes the message to the structured logger.
func (n *LoggerNotifier) Send(_ context.Context, message Message) error {
	if n == nil || n.logger == nil {
		return nil
	}
	n.logger.Info("notification", "kind", message.Kind, "destination", message.Destination, "subject", message.Subject)
	return nil
}

// Multi fans a message out to every notifier and reports all failures.
type Multi []Notifier

func (m Multi) Send(ctx context.Context, message Message) error {
	var errs []error
	for _, n := range m {
		if n == nil {
			continue
		}
		if err := n.Send(ctx, message); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
