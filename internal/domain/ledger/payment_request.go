package ledger

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/schoolfin/backend/internal/domain/shared"
	"github.com/shopspring/decimal"
)

// RequestStatus represents the status of a payment request
type RequestStatus string

const (
	RequestStatusPending  RequestStatus = "PENDING"
	RequestStatusApproved RequestStatus = "APPROVED"
	RequestStatusRejected RequestStatus = "REJECTED"
)

// IsValid checks if the status is a valid RequestStatus
func (s RequestStatus) IsValid() bool {
	switch s {
	case RequestStatusPending, RequestStatusApproved, RequestStatusRejected:
		return true
	}
	return false
}

// String returns the string representation of RequestStatus
func (s RequestStatus) String() string {
	return string(s)
}

// IsTerminal returns true once the request has been processed.
// Terminal states never transition again.
func (s RequestStatus) IsTerminal() bool {
	return s == RequestStatusApproved || s == RequestStatusRejected
}

// RequestAction is the staff decision applied to a pending request
type RequestAction string

const (
	RequestActionApprove RequestAction = "approve"
	RequestActionReject  RequestAction = "reject"
)

// IsValid checks if the action is valid
func (a RequestAction) IsValid() bool {
	return a == RequestActionApprove || a == RequestActionReject
}

// PaymentRequest is a proof-backed proposal to apply a payment to an
// invoice, submitted by a non-staff actor (parent, student or teacher) and
// adjudicated by staff. It transitions exactly once from PENDING to a
// terminal state; the payment itself is recorded on the invoice only when
// the request is approved.
type PaymentRequest struct {
	shared.BaseAggregateRoot
	InvoiceID       uuid.UUID       `json:"invoice_id"`
	Amount          decimal.Decimal `json:"amount"`
	ProofRef        string          `json:"proof_ref"` // Opaque reference to the uploaded transfer proof
	Status          RequestStatus   `json:"status"`
	RequestedBy     uuid.UUID       `json:"requested_by"`
	RequestedAt     time.Time       `json:"requested_at"`
	ProcessedBy     *uuid.UUID      `json:"processed_by,omitempty"`
	ProcessedAt     *time.Time      `json:"processed_at,omitempty"`
	RejectionReason string          `json:"rejection_reason,omitempty"`
}

// NewPaymentRequest creates a pending payment request against an invoice.
// The proof must already be uploaded (the proof store is an external
// collaborator); submission without a proof reference is rejected. The
// amount is validated against the invoice's remaining balance as of
// submission; the approval step re-validates against current state.
func NewPaymentRequest(invoice *Invoice, amount decimal.Decimal, proofRef string, requestedBy uuid.UUID) (*PaymentRequest, error) {
	if invoice == nil {
		return nil, shared.NewDomainError("INVALID_INVOICE", "Invoice cannot be nil")
	}
	if amount.LessThanOrEqual(decimal.Zero) {
		return nil, shared.NewDomainError("INVALID_AMOUNT", "Requested amount must be positive")
	}
	if amount.GreaterThan(invoice.RemainingAmount) {
		return nil, shared.NewDomainError("INVALID_AMOUNT",
			fmt.Sprintf("Requested amount %s exceeds remaining balance %s", amount.String(), invoice.RemainingAmount.String()))
	}
	if proofRef == "" {
		return nil, shared.NewDomainError("INVALID_PROOF", "Payment proof reference is required")
	}
	if requestedBy == uuid.Nil {
		return nil, shared.NewDomainError("INVALID_ACTOR", "Requesting actor cannot be empty")
	}

	pr := &PaymentRequest{
		BaseAggregateRoot: shared.NewBaseAggregateRoot(),
		InvoiceID:         invoice.ID,
		Amount:            amount,
		ProofRef:          proofRef,
		Status:            RequestStatusPending,
		RequestedBy:       requestedBy,
		RequestedAt:       time.Now(),
	}

	pr.AddDomainEvent(NewPaymentRequestSubmittedEvent(pr))

	return pr, nil
}

// Approve transitions the request from PENDING to APPROVED.
// Returns ALREADY_PROCESSED if the request is in a terminal state.
func (pr *PaymentRequest) Approve(processedBy uuid.UUID) error {
	if pr.Status.IsTerminal() {
		return shared.NewDomainError("ALREADY_PROCESSED",
			fmt.Sprintf("Request has already been processed (%s)", pr.Status))
	}
	if processedBy == uuid.Nil {
		return shared.NewDomainError("INVALID_ACTOR", "Processing actor cannot be empty")
	}

	now := time.Now()
	pr.Status = RequestStatusApproved
	pr.ProcessedBy = &processedBy
	pr.ProcessedAt = &now
	pr.UpdatedAt = now
	pr.IncrementVersion()

	pr.AddDomainEvent(NewPaymentRequestApprovedEvent(pr))

	return nil
}

// Reject transitions the request from PENDING to REJECTED.
// A non-empty reason is required so the requester knows what to fix.
func (pr *PaymentRequest) Reject(processedBy uuid.UUID, reason string) error {
	if pr.Status.IsTerminal() {
		return shared.NewDomainError("ALREADY_PROCESSED",
			fmt.Sprintf("Request has already been processed (%s)", pr.Status))
	}
	if reason == "" {
		return shared.NewDomainError("VALIDATION", "Rejection reason is required")
	}
	if processedBy == uuid.Nil {
		return shared.NewDomainError("INVALID_ACTOR", "Processing actor cannot be empty")
	}

	now := time.Now()
	pr.Status = RequestStatusRejected
	pr.ProcessedBy = &processedBy
	pr.ProcessedAt = &now
	pr.RejectionReason = reason
	pr.UpdatedAt = now
	pr.IncrementVersion()

	pr.AddDomainEvent(NewPaymentRequestRejectedEvent(pr))

	return nil
}

// Reopen returns an approved request to PENDING. It exists solely for the
// approval workflow: the request row is claimed (approved) before the
// payment is recorded on the invoice, and if recording fails the claim is
// released so the request can be processed again. Only approved requests
// whose payment was never recorded may be reopened.
func (pr *PaymentRequest) Reopen() error {
	if pr.Status != RequestStatusApproved {
		return shared.NewDomainError("INVALID_STATE",
			fmt.Sprintf("Cannot reopen request in %s status", pr.Status))
	}

	pr.Status = RequestStatusPending
	pr.ProcessedBy = nil
	pr.ProcessedAt = nil
	pr.UpdatedAt = time.Now()
	pr.IncrementVersion()

	return nil
}

// IsPending returns true if the request has not been processed yet
func (pr *PaymentRequest) IsPending() bool {
	return pr.Status == RequestStatusPending
}

// IsApproved returns true if the request was approved
func (pr *PaymentRequest) IsApproved() bool {
	return pr.Status == RequestStatusApproved
}

// IsRejected returns true if the request was rejected
func (pr *PaymentRequest) IsRejected() bool {
	return pr.Status == RequestStatusRejected
}
