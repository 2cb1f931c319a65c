package ledger

import (
	"database/sql/driver"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/schoolfin/backend/internal/domain/shared"
	"github.com/shopspring/decimal"
)

// Billing periods are calendar months; the year bounds guard against
// typo input rather than expressing a business rule.
const (
	minInvoiceYear = 2000
	maxInvoiceYear = 2100
)

// SubjectType identifies whether an invoice bills a student (tuition)
// or pays a teacher (salary)
type SubjectType string

const (
	SubjectTypeStudent SubjectType = "STUDENT"
	SubjectTypeTeacher SubjectType = "TEACHER"
)

// IsValid checks if the subject type is valid
func (s SubjectType) IsValid() bool {
	return s == SubjectTypeStudent || s == SubjectTypeTeacher
}

// String returns the string representation of SubjectType
func (s SubjectType) String() string {
	return string(s)
}

// PaymentMethod represents how a payment was made
type PaymentMethod string

const (
	PaymentMethodCash         PaymentMethod = "CASH"
	PaymentMethodBankTransfer PaymentMethod = "BANK_TRANSFER"
	PaymentMethodCard         PaymentMethod = "CARD"
)

// IsValid checks if the payment method is valid
func (m PaymentMethod) IsValid() bool {
	switch m {
	case PaymentMethodCash, PaymentMethodBankTransfer, PaymentMethodCard:
		return true
	}
	return false
}

// String returns the string representation of PaymentMethod
func (m PaymentMethod) String() string {
	return string(m)
}

// Transaction is an immutable payment ledger entry applied to an invoice.
// It is a value object within the Invoice aggregate, stored as JSONB.
// Corrections are made by appending an offsetting transaction, never by
// mutating or deleting an existing one.
type Transaction struct {
	ID         uuid.UUID       `json:"id"`
	Amount     decimal.Decimal `json:"amount"`
	Method     PaymentMethod   `json:"method"`
	Note       string          `json:"note,omitempty"`
	RecordedBy uuid.UUID       `json:"recorded_by"`
	RequestID  *uuid.UUID      `json:"request_id,omitempty"` // Set when recorded via an approved payment request
	RecordedAt time.Time       `json:"recorded_at"`
}

// Transactions is a slice of Transaction that implements GORM Scanner/Valuer for JSONB storage
type Transactions []Transaction

// Value implements driver.Valuer interface for GORM to store as JSONB
func (t Transactions) Value() (driver.Value, error) {
	if t == nil {
		return "[]", nil
	}
	return json.Marshal(t)
}

// Scan implements sql.Scanner interface for GORM to read from JSONB
func (t *Transactions) Scan(value interface{}) error {
	if value == nil {
		*t = Transactions{}
		return nil
	}

	var bytes []byte
	switch v := value.(type) {
	case []byte:
		bytes = v
	case string:
		bytes = []byte(v)
	default:
		return errors.New("failed to scan Transactions: unsupported type")
	}

	if len(bytes) == 0 {
		*t = Transactions{}
		return nil
	}

	return json.Unmarshal(bytes, t)
}

// Sum returns the total amount over all transactions
func (t Transactions) Sum() decimal.Decimal {
	total := decimal.Zero
	for _, tx := range t {
		total = total.Add(tx.Amount)
	}
	return total
}

// NewTransaction creates a new payment transaction
func NewTransaction(amount decimal.Decimal, method PaymentMethod, note string, recordedBy uuid.UUID, requestID *uuid.UUID) *Transaction {
	return &Transaction{
		ID:         uuid.New(),
		Amount:     amount,
		Method:     method,
		Note:       note,
		RecordedBy: recordedBy,
		RequestID:  requestID,
		RecordedAt: time.Now(),
	}
}

// Invoice is the billing aggregate root for one subject and one billing
// period. It tracks the gross charge, discount, and every payment applied,
// and derives its paid/remaining amounts and status from the transaction
// history alone.
type Invoice struct {
	shared.BaseAggregateRoot
	InvoiceNumber   string          `json:"invoice_number"`
	SubjectType     SubjectType     `json:"subject_type"`
	SubjectID       uuid.UUID       `json:"subject_id"`
	SubjectName     string          `json:"subject_name"`
	Month           int             `json:"month"` // 1..12
	Year            int             `json:"year"`
	TotalAmount     decimal.Decimal `json:"total_amount"`    // Gross charge or salary before discount
	DiscountAmount  decimal.Decimal `json:"discount_amount"` // 0 <= discount <= total
	FinalAmount     decimal.Decimal `json:"final_amount"`    // total - discount
	PaidAmount      decimal.Decimal `json:"paid_amount"`     // Derived: sum of transactions
	RemainingAmount decimal.Decimal `json:"remaining_amount"`
	Status          InvoiceStatus   `json:"status"`
	Transactions    Transactions    `json:"transactions"`
	Remark          string          `json:"remark"`
	PaidAt          *time.Time      `json:"paid_at"` // When fully settled
}

// NewInvoice creates a new invoice for a billing period. The caller (an
// external billing process) supplies the gross and discount amounts; paid
// amount starts at zero and status is derived. A fully discounted invoice
// is born PAID since nothing is owed.
func NewInvoice(
	invoiceNumber string,
	subjectType SubjectType,
	subjectID uuid.UUID,
	subjectName string,
	month, year int,
	totalAmount, discountAmount decimal.Decimal,
	remark string,
) (*Invoice, error) {
	if invoiceNumber == "" {
		return nil, shared.NewDomainError("INVALID_INVOICE_NUMBER", "Invoice number cannot be empty")
	}
	if len(invoiceNumber) > 50 {
		return nil, shared.NewDomainError("INVALID_INVOICE_NUMBER", "Invoice number cannot exceed 50 characters")
	}
	if !subjectType.IsValid() {
		return nil, shared.NewDomainError("INVALID_SUBJECT_TYPE", "Subject type must be STUDENT or TEACHER")
	}
	if subjectID == uuid.Nil {
		return nil, shared.NewDomainError("INVALID_SUBJECT", "Subject ID cannot be empty")
	}
	if subjectName == "" {
		return nil, shared.NewDomainError("INVALID_SUBJECT_NAME", "Subject name cannot be empty")
	}
	if month < 1 || month > 12 {
		return nil, shared.NewDomainError("INVALID_PERIOD", "Month must be between 1 and 12")
	}
	if year < minInvoiceYear || year > maxInvoiceYear {
		return nil, shared.NewDomainError("INVALID_PERIOD", "Year is out of range")
	}
	if totalAmount.IsNegative() {
		return nil, shared.NewDomainError("INVALID_AMOUNT", "Total amount cannot be negative")
	}
	if discountAmount.IsNegative() || discountAmount.GreaterThan(totalAmount) {
		return nil, shared.NewDomainError("INVALID_DISCOUNT", "Discount must be between zero and the total amount")
	}

	finalAmount := totalAmount.Sub(discountAmount)

	inv := &Invoice{
		BaseAggregateRoot: shared.NewBaseAggregateRoot(),
		InvoiceNumber:     invoiceNumber,
		SubjectType:       subjectType,
		SubjectID:         subjectID,
		SubjectName:       subjectName,
		Month:             month,
		Year:              year,
		TotalAmount:       totalAmount,
		DiscountAmount:    discountAmount,
		FinalAmount:       finalAmount,
		PaidAmount:        decimal.Zero,
		RemainingAmount:   finalAmount,
		Status:            Classify(finalAmount, decimal.Zero),
		Transactions:      Transactions{},
		Remark:            remark,
	}

	if inv.Status == InvoiceStatusPaid {
		now := time.Now()
		inv.PaidAt = &now
	}

	inv.AddDomainEvent(NewInvoiceCreatedEvent(inv))

	return inv, nil
}

// RecordPayment appends an immutable transaction to the invoice and
// recomputes the derived state. The paid amount is always recomputed as the
// full sum over the transaction history, never incremented, so the ledger
// invariant paidAmount == sum(transactions) holds by construction.
// Returns INVALID_AMOUNT if the amount is not positive or exceeds the
// remaining balance as seen on this loaded copy of the invoice; the caller
// persists the result with a version check so a stale copy can never commit.
func (inv *Invoice) RecordPayment(amount decimal.Decimal, method PaymentMethod, note string, recordedBy uuid.UUID, requestID *uuid.UUID) (*Transaction, error) {
	if amount.LessThanOrEqual(decimal.Zero) {
		return nil, shared.NewDomainError("INVALID_AMOUNT", "Payment amount must be positive")
	}
	if amount.GreaterThan(inv.RemainingAmount) {
		return nil, shared.NewDomainError("INVALID_AMOUNT",
			fmt.Sprintf("Payment amount %s exceeds remaining balance %s", amount.String(), inv.RemainingAmount.String()))
	}
	if !method.IsValid() {
		return nil, shared.NewDomainError("INVALID_METHOD", "Payment method must be CASH, BANK_TRANSFER or CARD")
	}
	if recordedBy == uuid.Nil {
		return nil, shared.NewDomainError("INVALID_ACTOR", "Recording actor cannot be empty")
	}

	tx := NewTransaction(amount, method, note, recordedBy, requestID)
	inv.Transactions = append(inv.Transactions, *tx)

	inv.recompute()

	inv.AddDomainEvent(NewInvoicePaymentRecordedEvent(inv, tx))
	if inv.Status == InvoiceStatusPaid {
		now := time.Now()
		inv.PaidAt = &now
		inv.AddDomainEvent(NewInvoicePaidEvent(inv))
	}

	inv.UpdatedAt = time.Now()
	inv.IncrementVersion()

	return tx, nil
}

// recompute rebuilds paid amount, remaining amount and status from the
// transaction history. Remaining is floored at zero.
func (inv *Invoice) recompute() {
	inv.PaidAmount = inv.Transactions.Sum()
	remaining := inv.FinalAmount.Sub(inv.PaidAmount)
	if remaining.IsNegative() {
		remaining = decimal.Zero
	}
	inv.RemainingAmount = remaining
	inv.Status = Classify(inv.FinalAmount, inv.PaidAmount)
}

// SetRemark sets the remark
func (inv *Invoice) SetRemark(remark string) {
	inv.Remark = remark
	inv.UpdatedAt = time.Now()
	inv.IncrementVersion()
}

// IsPending returns true if no payment has been applied yet
func (inv *Invoice) IsPending() bool {
	return inv.Status == InvoiceStatusPending
}

// IsPartial returns true if the invoice is partially paid
func (inv *Invoice) IsPartial() bool {
	return inv.Status == InvoiceStatusPartial
}

// IsPaid returns true if the invoice is fully settled
func (inv *Invoice) IsPaid() bool {
	return inv.Status == InvoiceStatusPaid
}

// TransactionCount returns the number of payments applied
func (inv *Invoice) TransactionCount() int {
	return len(inv.Transactions)
}

// PaidPercentage returns the percentage of the final amount that has been paid (0-100)
func (inv *Invoice) PaidPercentage() decimal.Decimal {
	if inv.FinalAmount.IsZero() {
		return decimal.NewFromInt(100)
	}
	return inv.PaidAmount.Div(inv.FinalAmount).Mul(decimal.NewFromInt(100)).Round(2)
}
