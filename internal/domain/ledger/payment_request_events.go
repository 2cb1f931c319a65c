package ledger

import (
	"github.com/google/uuid"
	"github.com/schoolfin/backend/internal/domain/shared"
	"github.com/shopspring/decimal"
)

// PaymentRequestSubmittedEvent is raised when a payer submits a
// proof-backed payment request against an invoice
type PaymentRequestSubmittedEvent struct {
	shared.BaseDomainEvent
	InvoiceID   uuid.UUID       `json:"invoice_id"`
	Amount      decimal.Decimal `json:"amount"`
	ProofRef    string          `json:"proof_ref"`
	RequestedBy uuid.UUID       `json:"requested_by"`
}

// EventType returns the event type name
func (e *PaymentRequestSubmittedEvent) EventType() string {
	return "PaymentRequestSubmitted"
}

// NewPaymentRequestSubmittedEvent creates a new PaymentRequestSubmittedEvent
func NewPaymentRequestSubmittedEvent(pr *PaymentRequest) *PaymentRequestSubmittedEvent {
	return &PaymentRequestSubmittedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent("PaymentRequestSubmitted", "PaymentRequest", pr.ID),
		InvoiceID:       pr.InvoiceID,
		Amount:          pr.Amount,
		ProofRef:        pr.ProofRef,
		RequestedBy:     pr.RequestedBy,
	}
}

// PaymentRequestApprovedEvent is raised when staff approves a request
type PaymentRequestApprovedEvent struct {
	shared.BaseDomainEvent
	InvoiceID   uuid.UUID       `json:"invoice_id"`
	Amount      decimal.Decimal `json:"amount"`
	ProcessedBy uuid.UUID       `json:"processed_by"`
}

// EventType returns the event type name
func (e *PaymentRequestApprovedEvent) EventType() string {
	return "PaymentRequestApproved"
}

// NewPaymentRequestApprovedEvent creates a new PaymentRequestApprovedEvent
func NewPaymentRequestApprovedEvent(pr *PaymentRequest) *PaymentRequestApprovedEvent {
	e := &PaymentRequestApprovedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent("PaymentRequestApproved", "PaymentRequest", pr.ID),
		InvoiceID:       pr.InvoiceID,
		Amount:          pr.Amount,
	}
	if pr.ProcessedBy != nil {
		e.ProcessedBy = *pr.ProcessedBy
	}
	return e
}

// PaymentRequestRejectedEvent is raised when staff rejects a request
type PaymentRequestRejectedEvent struct {
	shared.BaseDomainEvent
	InvoiceID   uuid.UUID       `json:"invoice_id"`
	Amount      decimal.Decimal `json:"amount"`
	Reason      string          `json:"reason"`
	ProcessedBy uuid.UUID       `json:"processed_by"`
}

// EventType returns the event type name
func (e *PaymentRequestRejectedEvent) EventType() string {
	return "PaymentRequestRejected"
}

// NewPaymentRequestRejectedEvent creates a new PaymentRequestRejectedEvent
func NewPaymentRequestRejectedEvent(pr *PaymentRequest) *PaymentRequestRejectedEvent {
	e := &PaymentRequestRejectedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent("PaymentRequestRejected", "PaymentRequest", pr.ID),
		InvoiceID:       pr.InvoiceID,
		Amount:          pr.Amount,
		Reason:          pr.RejectionReason,
	}
	if pr.ProcessedBy != nil {
		e.ProcessedBy = *pr.ProcessedBy
	}
	return e
}
