package ledger

import (
	"time"

	"github.com/google/uuid"
	"github.com/schoolfin/backend/internal/domain/shared"
	"github.com/shopspring/decimal"
)

// InvoiceCreatedEvent is raised when a new invoice is created
type InvoiceCreatedEvent struct {
	shared.BaseDomainEvent
	InvoiceID     uuid.UUID       `json:"invoice_id"`
	InvoiceNumber string          `json:"invoice_number"`
	SubjectType   SubjectType     `json:"subject_type"`
	SubjectID     uuid.UUID       `json:"subject_id"`
	SubjectName   string          `json:"subject_name"`
	Month         int             `json:"month"`
	Year          int             `json:"year"`
	TotalAmount   decimal.Decimal `json:"total_amount"`
	FinalAmount   decimal.Decimal `json:"final_amount"`
}

// EventType returns the event type name
func (e *InvoiceCreatedEvent) EventType() string {
	return "InvoiceCreated"
}

// NewInvoiceCreatedEvent creates a new InvoiceCreatedEvent
func NewInvoiceCreatedEvent(inv *Invoice) *InvoiceCreatedEvent {
	return &InvoiceCreatedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent("InvoiceCreated", "Invoice", inv.ID),
		InvoiceID:       inv.ID,
		InvoiceNumber:   inv.InvoiceNumber,
		SubjectType:     inv.SubjectType,
		SubjectID:       inv.SubjectID,
		SubjectName:     inv.SubjectName,
		Month:           inv.Month,
		Year:            inv.Year,
		TotalAmount:     inv.TotalAmount,
		FinalAmount:     inv.FinalAmount,
	}
}

// InvoicePaymentRecordedEvent is raised for every payment applied to an invoice
type InvoicePaymentRecordedEvent struct {
	shared.BaseDomainEvent
	InvoiceID       uuid.UUID       `json:"invoice_id"`
	InvoiceNumber   string          `json:"invoice_number"`
	TransactionID   uuid.UUID       `json:"transaction_id"`
	Amount          decimal.Decimal `json:"amount"`
	Method          PaymentMethod   `json:"method"`
	RecordedBy      uuid.UUID       `json:"recorded_by"`
	PaidAmount      decimal.Decimal `json:"paid_amount"`
	RemainingAmount decimal.Decimal `json:"remaining_amount"`
	Status          InvoiceStatus   `json:"status"`
}

// EventType returns the event type name
func (e *InvoicePaymentRecordedEvent) EventType() string {
	return "InvoicePaymentRecorded"
}

// NewInvoicePaymentRecordedEvent creates a new InvoicePaymentRecordedEvent
func NewInvoicePaymentRecordedEvent(inv *Invoice, tx *Transaction) *InvoicePaymentRecordedEvent {
	return &InvoicePaymentRecordedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent("InvoicePaymentRecorded", "Invoice", inv.ID),
		InvoiceID:       inv.ID,
		InvoiceNumber:   inv.InvoiceNumber,
		TransactionID:   tx.ID,
		Amount:          tx.Amount,
		Method:          tx.Method,
		RecordedBy:      tx.RecordedBy,
		PaidAmount:      inv.PaidAmount,
		RemainingAmount: inv.RemainingAmount,
		Status:          inv.Status,
	}
}

// InvoicePaidEvent is raised when an invoice becomes fully settled
type InvoicePaidEvent struct {
	shared.BaseDomainEvent
	InvoiceID     uuid.UUID       `json:"invoice_id"`
	InvoiceNumber string          `json:"invoice_number"`
	SubjectType   SubjectType     `json:"subject_type"`
	SubjectID     uuid.UUID       `json:"subject_id"`
	SubjectName   string          `json:"subject_name"`
	FinalAmount   decimal.Decimal `json:"final_amount"`
	PaidAt        time.Time       `json:"paid_at"`
}

// EventType returns the event type name
func (e *InvoicePaidEvent) EventType() string {
	return "InvoicePaid"
}

// NewInvoicePaidEvent creates a new InvoicePaidEvent
func NewInvoicePaidEvent(inv *Invoice) *InvoicePaidEvent {
	paidAt := time.Now()
	if inv.PaidAt != nil {
		paidAt = *inv.PaidAt
	}
	return &InvoicePaidEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent("InvoicePaid", "Invoice", inv.ID),
		InvoiceID:       inv.ID,
		InvoiceNumber:   inv.InvoiceNumber,
		SubjectType:     inv.SubjectType,
		SubjectID:       inv.SubjectID,
		SubjectName:     inv.SubjectName,
		FinalAmount:     inv.FinalAmount,
		PaidAt:          paidAt,
	}
}
