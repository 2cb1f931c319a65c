package notification

import (
	"context"
	"fmt"

	"github.com/schoolfin/backend/internal/domain/ledger"
	"github.com/schoolfin/backend/internal/domain/shared"
	"go.uber.org/zap"
)

// StatusAlertHandler listens for settlement and request outcomes and
// forwards them to the configured Notifier. Delivery failures are logged
// and swallowed; a lost notification never rolls back a ledger write.
type StatusAlertHandler struct {
	notifier Notifier
	logger   *zap.Logger
}

// NewStatusAlertHandler creates a new StatusAlertHandler
func NewStatusAlertHandler(notifier Notifier, logger *zap.Logger) *StatusAlertHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &StatusAlertHandler{
		notifier: notifier,
		logger:   logger,
	}
}

// EventTypes returns the event types this handler is interested in
func (h *StatusAlertHandler) EventTypes() []string {
	return []string{
		"InvoicePaid",
		"PaymentRequestApproved",
		"PaymentRequestRejected",
	}
}

// Handle translates a domain event into a notification and hands it to
// the notifier
func (h *StatusAlertHandler) Handle(ctx context.Context, event shared.DomainEvent) error {
	var n Notification

	switch e := event.(type) {
	case *ledger.InvoicePaidEvent:
		n = Notification{
			Kind:      KindInvoicePaid,
			InvoiceID: e.InvoiceID.String(),
			Subject:   "Invoice settled",
			Message:   fmt.Sprintf("Invoice %s has been fully paid.", e.InvoiceNumber),
		}
	case *ledger.PaymentRequestApprovedEvent:
		n = Notification{
			Kind:      KindRequestApproved,
			InvoiceID: e.InvoiceID.String(),
			RequestID: e.AggregateID().String(),
			Subject:   "Payment request approved",
			Message:   fmt.Sprintf("Your payment of %s has been confirmed.", e.Amount.String()),
		}
	case *ledger.PaymentRequestRejectedEvent:
		n = Notification{
			Kind:      KindRequestRejected,
			InvoiceID: e.InvoiceID.String(),
			RequestID: e.AggregateID().String(),
			Subject:   "Payment request rejected",
			Message:   fmt.Sprintf("Your payment request was rejected: %s", e.Reason),
		}
	default:
		h.logger.Warn("ignoring unexpected event type",
			zap.String("event_type", event.EventType()))
		return nil
	}

	if err := h.notifier.Notify(ctx, n); err != nil {
		h.logger.Error("failed to deliver notification",
			zap.String("kind", string(n.Kind)),
			zap.String("invoice_id", n.InvoiceID),
			zap.Error(err))
	}

	return nil
}
