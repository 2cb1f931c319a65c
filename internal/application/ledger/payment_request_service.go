package ledger

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/schoolfin/backend/internal/domain/ledger"
	"github.com/schoolfin/backend/internal/domain/shared"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// PaymentRequestService provides application-level operations for the
// proof-backed payment request workflow
type PaymentRequestService struct {
	requestRepo    ledger.PaymentRequestRepository
	invoiceRepo    ledger.InvoiceRepository
	invoiceService *InvoiceService
	eventPublisher shared.EventPublisher
	logger         *zap.Logger
}

// NewPaymentRequestService creates a new PaymentRequestService
func NewPaymentRequestService(
	requestRepo ledger.PaymentRequestRepository,
	invoiceRepo ledger.InvoiceRepository,
	invoiceService *InvoiceService,
	logger *zap.Logger,
) *PaymentRequestService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &PaymentRequestService{
		requestRepo:    requestRepo,
		invoiceRepo:    invoiceRepo,
		invoiceService: invoiceService,
		logger:         logger,
	}
}

// SetEventPublisher sets the event publisher for publishing domain events
func (s *PaymentRequestService) SetEventPublisher(publisher shared.EventPublisher) {
	s.eventPublisher = publisher
}

func (s *PaymentRequestService) publishDomainEvents(ctx context.Context, pr *ledger.PaymentRequest) {
	if s.eventPublisher == nil {
		return
	}
	events := pr.GetDomainEvents()
	if len(events) == 0 {
		return
	}
	_ = s.eventPublisher.Publish(ctx, events...)
	pr.ClearDomainEvents()
}

// ===================== Responses =====================

// PaymentRequestResponse represents a payment request in API responses
type PaymentRequestResponse struct {
	ID              uuid.UUID       `json:"id"`
	InvoiceID       uuid.UUID       `json:"invoice_id"`
	Amount          decimal.Decimal `json:"amount"`
	ProofRef        string          `json:"proof_ref"`
	Status          string          `json:"status"`
	RequestedBy     uuid.UUID       `json:"requested_by"`
	RequestedAt     time.Time       `json:"requested_at"`
	ProcessedBy     *uuid.UUID      `json:"processed_by,omitempty"`
	ProcessedAt     *time.Time      `json:"processed_at,omitempty"`
	RejectionReason string          `json:"rejection_reason,omitempty"`
	CreatedAt       time.Time       `json:"created_at"`
	Version         int             `json:"version"`
}

func toPaymentRequestResponse(pr *ledger.PaymentRequest) *PaymentRequestResponse {
	return &PaymentRequestResponse{
		ID:              pr.ID,
		InvoiceID:       pr.InvoiceID,
		Amount:          pr.Amount,
		ProofRef:        pr.ProofRef,
		Status:          pr.Status.String(),
		RequestedBy:     pr.RequestedBy,
		RequestedAt:     pr.RequestedAt,
		ProcessedBy:     pr.ProcessedBy,
		ProcessedAt:     pr.ProcessedAt,
		RejectionReason: pr.RejectionReason,
		CreatedAt:       pr.CreatedAt,
		Version:         pr.GetVersion(),
	}
}

// ===================== Requests =====================

// SubmitRequestInput carries the input for submitting a payment request
type SubmitRequestInput struct {
	Amount   decimal.Decimal `json:"amount" binding:"required"`
	ProofRef string          `json:"proof_ref" binding:"required,max=500"`
}

// ProcessRequestInput carries the staff decision for a pending request
type ProcessRequestInput struct {
	Action string `json:"action" binding:"required,oneof=approve reject"`
	Reason string `json:"reason" binding:"max=500"`
}

// RequestListFilter defines filtering options for request list queries
type RequestListFilter struct {
	InvoiceID   *uuid.UUID `form:"invoice_id"`
	Status      string     `form:"status"`
	RequestedBy *uuid.UUID `form:"requested_by"`
	Page        int        `form:"page"`
	PageSize    int        `form:"page_size"`
}

func (f RequestListFilter) toDomain() ledger.PaymentRequestFilter {
	page := f.Page
	if page < 1 {
		page = 1
	}
	pageSize := f.PageSize
	if pageSize < 1 || pageSize > 100 {
		pageSize = 20
	}

	filter := ledger.PaymentRequestFilter{
		Filter: shared.Filter{
			Page:     page,
			PageSize: pageSize,
			OrderBy:  "created_at",
			OrderDir: "desc",
		},
		InvoiceID:   f.InvoiceID,
		RequestedBy: f.RequestedBy,
	}
	if f.Status != "" {
		status := ledger.RequestStatus(f.Status)
		filter.Status = &status
	}
	return filter
}

// ===================== Operations =====================

// SubmitRequest submits a proof-backed payment request against an invoice.
// At most one pending request per invoice is allowed so staff never
// adjudicate two overlapping claims for the same balance.
func (s *PaymentRequestService) SubmitRequest(ctx context.Context, invoiceID uuid.UUID, input SubmitRequestInput, requestedBy uuid.UUID) (*PaymentRequestResponse, error) {
	inv, err := s.invoiceRepo.FindByID(ctx, invoiceID)
	if err != nil {
		return nil, err
	}
	if inv == nil {
		return nil, shared.NewDomainError("NOT_FOUND", "Invoice not found")
	}

	pending, err := s.requestRepo.FindPendingByInvoice(ctx, invoiceID)
	if err != nil {
		return nil, err
	}
	if len(pending) > 0 {
		return nil, shared.NewDomainError("DUPLICATE_PENDING_REQUEST",
			"Invoice already has a pending payment request")
	}

	pr, err := ledger.NewPaymentRequest(inv, input.Amount, input.ProofRef, requestedBy)
	if err != nil {
		return nil, err
	}

	if err := s.requestRepo.Save(ctx, pr); err != nil {
		return nil, err
	}

	s.publishDomainEvents(ctx, pr)

	return toPaymentRequestResponse(pr), nil
}

// GetRequestByID gets a payment request by ID
func (s *PaymentRequestService) GetRequestByID(ctx context.Context, id uuid.UUID) (*PaymentRequestResponse, error) {
	pr, err := s.requestRepo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if pr == nil {
		return nil, shared.NewDomainError("NOT_FOUND", "Payment request not found")
	}
	return toPaymentRequestResponse(pr), nil
}

// ListRequests lists payment requests matching the filter with pagination
func (s *PaymentRequestService) ListRequests(ctx context.Context, filter RequestListFilter) ([]PaymentRequestResponse, int64, error) {
	domainFilter := filter.toDomain()

	requests, err := s.requestRepo.FindAll(ctx, domainFilter)
	if err != nil {
		return nil, 0, err
	}

	total, err := s.requestRepo.Count(ctx, domainFilter)
	if err != nil {
		return nil, 0, err
	}

	responses := make([]PaymentRequestResponse, len(requests))
	for i := range requests {
		responses[i] = *toPaymentRequestResponse(&requests[i])
	}

	return responses, total, nil
}

// ProcessRequest applies a staff decision to a pending request.
//
// Approval runs in three steps. The request amount is first re-validated
// against the invoice's current remaining balance, since payments may have
// landed after submission; a stale amount fails with STALE_REQUEST_AMOUNT
// and the request stays pending for resubmission or rejection. The request
// row is then claimed with a version check, so of two staff members racing
// on the same request exactly one wins and the loser sees
// ALREADY_PROCESSED. Only after the claim is the payment recorded on the
// invoice; if recording fails the claim is released again.
func (s *PaymentRequestService) ProcessRequest(ctx context.Context, requestID uuid.UUID, input ProcessRequestInput, processedBy uuid.UUID) (*PaymentRequestResponse, error) {
	pr, err := s.requestRepo.FindByID(ctx, requestID)
	if err != nil {
		return nil, err
	}
	if pr == nil {
		return nil, shared.NewDomainError("NOT_FOUND", "Payment request not found")
	}

	// Terminal requests fail fast, before any balance re-validation. A
	// request approved for the full balance would otherwise report a stale
	// amount on re-processing instead of the fact that it is already done.
	if pr.Status.IsTerminal() {
		return nil, shared.NewDomainError("ALREADY_PROCESSED",
			fmt.Sprintf("Request has already been processed (%s)", pr.Status))
	}

	switch ledger.RequestAction(input.Action) {
	case ledger.RequestActionReject:
		return s.reject(ctx, pr, processedBy, input.Reason)
	case ledger.RequestActionApprove:
		return s.approve(ctx, pr, processedBy)
	default:
		return nil, shared.NewDomainError("VALIDATION", "Action must be approve or reject")
	}
}

func (s *PaymentRequestService) reject(ctx context.Context, pr *ledger.PaymentRequest, processedBy uuid.UUID, reason string) (*PaymentRequestResponse, error) {
	if err := pr.Reject(processedBy, reason); err != nil {
		return nil, err
	}

	if err := s.requestRepo.SaveWithLock(ctx, pr); err != nil {
		if isOptimisticLockError(err) {
			return nil, shared.NewDomainError("ALREADY_PROCESSED", "Request was processed by another staff member")
		}
		return nil, err
	}

	s.publishDomainEvents(ctx, pr)

	return toPaymentRequestResponse(pr), nil
}

func (s *PaymentRequestService) approve(ctx context.Context, pr *ledger.PaymentRequest, processedBy uuid.UUID) (*PaymentRequestResponse, error) {
	inv, err := s.invoiceRepo.FindByID(ctx, pr.InvoiceID)
	if err != nil {
		return nil, err
	}
	if inv == nil {
		return nil, shared.NewDomainError("NOT_FOUND", "Invoice for this request no longer exists")
	}

	if pr.Amount.GreaterThan(inv.RemainingAmount) {
		return nil, shared.NewDomainError("STALE_REQUEST_AMOUNT",
			"Requested amount exceeds the invoice's current remaining balance")
	}

	// Claim the request before touching the invoice. The version check
	// makes exactly one concurrent approver win.
	if err := pr.Approve(processedBy); err != nil {
		return nil, err
	}
	if err := s.requestRepo.SaveWithLock(ctx, pr); err != nil {
		if isOptimisticLockError(err) {
			return nil, shared.NewDomainError("ALREADY_PROCESSED", "Request was processed by another staff member")
		}
		return nil, err
	}

	if _, err := s.invoiceService.RecordApprovedPayment(ctx, pr.InvoiceID, pr.Amount, processedBy, pr.ID); err != nil {
		s.releaseClaim(ctx, pr)
		return nil, err
	}

	s.publishDomainEvents(ctx, pr)

	return toPaymentRequestResponse(pr), nil
}

// releaseClaim reverts an approved-but-unrecorded request back to pending.
// A failure here leaves the request approved without a matching invoice
// transaction, which is logged loudly for manual reconciliation.
func (s *PaymentRequestService) releaseClaim(ctx context.Context, pr *ledger.PaymentRequest) {
	if err := pr.Reopen(); err != nil {
		s.logger.Error("failed to reopen claimed payment request",
			zap.String("request_id", pr.ID.String()),
			zap.Error(err))
		return
	}
	if err := s.requestRepo.SaveWithLock(ctx, pr); err != nil {
		s.logger.Error("failed to release claim on payment request, manual reconciliation required",
			zap.String("request_id", pr.ID.String()),
			zap.String("invoice_id", pr.InvoiceID.String()),
			zap.Error(err))
	}
}
