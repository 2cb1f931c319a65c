package ledger

import "github.com/shopspring/decimal"

// InvoiceStatus represents the settlement status of an invoice
type InvoiceStatus string

const (
	InvoiceStatusPending InvoiceStatus = "PENDING" // No payment recorded yet
	InvoiceStatusPartial InvoiceStatus = "PARTIAL" // Partially paid, 0 < paid < final
	InvoiceStatusPaid    InvoiceStatus = "PAID"    // Fully settled, remaining = 0
)

// IsValid checks if the status is a valid InvoiceStatus
func (s InvoiceStatus) IsValid() bool {
	switch s {
	case InvoiceStatusPending, InvoiceStatusPartial, InvoiceStatusPaid:
		return true
	}
	return false
}

// String returns the string representation of InvoiceStatus
func (s InvoiceStatus) String() string {
	return string(s)
}

// IsSettled returns true if the invoice requires no further payment
func (s InvoiceStatus) IsSettled() bool {
	return s == InvoiceStatusPaid
}

// CanApplyPayment returns true if payments can be applied in this status
func (s InvoiceStatus) CanApplyPayment() bool {
	return s == InvoiceStatusPending || s == InvoiceStatusPartial
}

// Classify derives the settlement status from the final and paid amounts.
// It is the single source of truth for invoice status: a fully discounted
// invoice (finalAmount zero) owes nothing and is PAID regardless of payments.
func Classify(finalAmount, paidAmount decimal.Decimal) InvoiceStatus {
	if finalAmount.IsZero() {
		return InvoiceStatusPaid
	}
	if paidAmount.LessThanOrEqual(decimal.Zero) {
		return InvoiceStatusPending
	}
	if paidAmount.LessThan(finalAmount) {
		return InvoiceStatusPartial
	}
	return InvoiceStatusPaid
}
