package notification

import (
	"context"

	"go.uber.org/zap"
)

// Notifier delivers a status change message to its recipient. Delivery
// transports (email, SMS, in-app) live outside this module; implementations
// adapt to whichever channel the school uses.
type Notifier interface {
	Notify(ctx context.Context, n Notification) error
}

// NotificationKind classifies what happened
type NotificationKind string

const (
	KindInvoicePaid     NotificationKind = "invoice_paid"
	KindRequestApproved NotificationKind = "request_approved"
	KindRequestRejected NotificationKind = "request_rejected"
)

// Notification is the transport-neutral payload handed to a Notifier
type Notification struct {
	Kind      NotificationKind
	InvoiceID string
	RequestID string
	Subject   string
	Message   string
}

// LogNotifier writes notifications to the application log. It is the
// default transport until a real channel is configured.
type LogNotifier struct {
	logger *zap.Logger
}

// NewLogNotifier creates a log-backed Notifier
func NewLogNotifier(logger *zap.Logger) *LogNotifier {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &LogNotifier{logger: logger}
}

// Notify records the notification in the log
func (n *LogNotifier) Notify(_ context.Context, msg Notification) error {
	n.logger.Info("status notification",
		zap.String("kind", string(msg.Kind)),
		zap.String("invoice_id", msg.InvoiceID),
		zap.String("request_id", msg.RequestID),
		zap.String("subject", msg.Subject),
		zap.String("message", msg.Message),
	)
	return nil
}

var _ Notifier = (*LogNotifier)(nil)
