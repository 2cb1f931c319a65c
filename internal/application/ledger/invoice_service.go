package ledger

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/schoolfin/backend/internal/domain/ledger"
	"github.com/schoolfin/backend/internal/domain/shared"
	"github.com/shopspring/decimal"
)

// Recording a payment loads, mutates and saves the invoice with a version
// check. A conflicting writer makes the save fail, so the whole sequence is
// retried against a fresh copy a bounded number of times.
const maxRecordAttempts = 3

// InvoiceService provides application-level invoice operations
type InvoiceService struct {
	invoiceRepo    ledger.InvoiceRepository
	reportRepo     ledger.LedgerReportRepository
	eventPublisher shared.EventPublisher
}

// NewInvoiceService creates a new InvoiceService
func NewInvoiceService(
	invoiceRepo ledger.InvoiceRepository,
	reportRepo ledger.LedgerReportRepository,
) *InvoiceService {
	return &InvoiceService{
		invoiceRepo: invoiceRepo,
		reportRepo:  reportRepo,
	}
}

// SetEventPublisher sets the event publisher for publishing domain events
func (s *InvoiceService) SetEventPublisher(publisher shared.EventPublisher) {
	s.eventPublisher = publisher
}

// publishDomainEvents publishes all domain events from the invoice
func (s *InvoiceService) publishDomainEvents(ctx context.Context, inv *ledger.Invoice) {
	if s.eventPublisher == nil {
		return
	}
	events := inv.GetDomainEvents()
	if len(events) == 0 {
		return
	}
	// Publish events (errors are logged by the event bus, not propagated)
	_ = s.eventPublisher.Publish(ctx, events...)
	inv.ClearDomainEvents()
}

// ===================== Responses =====================

// InvoiceResponse represents an invoice in API responses
type InvoiceResponse struct {
	ID              uuid.UUID             `json:"id"`
	InvoiceNumber   string                `json:"invoice_number"`
	SubjectType     string                `json:"subject_type"`
	SubjectID       uuid.UUID             `json:"subject_id"`
	SubjectName     string                `json:"subject_name"`
	Month           int                   `json:"month"`
	Year            int                   `json:"year"`
	TotalAmount     decimal.Decimal       `json:"total_amount"`
	DiscountAmount  decimal.Decimal       `json:"discount_amount"`
	FinalAmount     decimal.Decimal       `json:"final_amount"`
	PaidAmount      decimal.Decimal       `json:"paid_amount"`
	RemainingAmount decimal.Decimal       `json:"remaining_amount"`
	Status          string                `json:"status"`
	Transactions    []TransactionResponse `json:"transactions,omitempty"`
	Remark          string                `json:"remark,omitempty"`
	PaidAt          *time.Time            `json:"paid_at,omitempty"`
	CreatedAt       time.Time             `json:"created_at"`
	UpdatedAt       time.Time             `json:"updated_at"`
	Version         int                   `json:"version"`
}

// TransactionResponse represents a payment transaction in API responses
type TransactionResponse struct {
	ID         uuid.UUID       `json:"id"`
	Amount     decimal.Decimal `json:"amount"`
	Method     string          `json:"method"`
	Note       string          `json:"note,omitempty"`
	RecordedBy uuid.UUID       `json:"recorded_by"`
	RequestID  *uuid.UUID      `json:"request_id,omitempty"`
	RecordedAt time.Time       `json:"recorded_at"`
}

func toTransactionResponse(tx *ledger.Transaction) TransactionResponse {
	return TransactionResponse{
		ID:         tx.ID,
		Amount:     tx.Amount,
		Method:     tx.Method.String(),
		Note:       tx.Note,
		RecordedBy: tx.RecordedBy,
		RequestID:  tx.RequestID,
		RecordedAt: tx.RecordedAt,
	}
}

func toInvoiceResponse(inv *ledger.Invoice) *InvoiceResponse {
	resp := &InvoiceResponse{
		ID:              inv.ID,
		InvoiceNumber:   inv.InvoiceNumber,
		SubjectType:     inv.SubjectType.String(),
		SubjectID:       inv.SubjectID,
		SubjectName:     inv.SubjectName,
		Month:           inv.Month,
		Year:            inv.Year,
		TotalAmount:     inv.TotalAmount,
		DiscountAmount:  inv.DiscountAmount,
		FinalAmount:     inv.FinalAmount,
		PaidAmount:      inv.PaidAmount,
		RemainingAmount: inv.RemainingAmount,
		Status:          inv.Status.String(),
		Remark:          inv.Remark,
		PaidAt:          inv.PaidAt,
		CreatedAt:       inv.CreatedAt,
		UpdatedAt:       inv.UpdatedAt,
		Version:         inv.GetVersion(),
	}
	if len(inv.Transactions) > 0 {
		resp.Transactions = make([]TransactionResponse, len(inv.Transactions))
		for i := range inv.Transactions {
			resp.Transactions[i] = toTransactionResponse(&inv.Transactions[i])
		}
	}
	return resp
}

// ===================== Requests =====================

// CreateInvoiceRequest carries the input for creating an invoice
type CreateInvoiceRequest struct {
	InvoiceNumber  string          `json:"invoice_number" binding:"required,max=50"`
	SubjectType    string          `json:"subject_type" binding:"required,oneof=STUDENT TEACHER"`
	SubjectID      uuid.UUID       `json:"subject_id" binding:"required"`
	SubjectName    string          `json:"subject_name" binding:"required,max=100"`
	Month          int             `json:"month" binding:"required,min=1,max=12"`
	Year           int             `json:"year" binding:"required"`
	TotalAmount    decimal.Decimal `json:"total_amount" binding:"required"`
	DiscountAmount decimal.Decimal `json:"discount_amount"`
	Remark         string          `json:"remark" binding:"max=500"`
}

// RecordTransactionRequest carries the input for recording a payment
type RecordTransactionRequest struct {
	Amount decimal.Decimal `json:"amount" binding:"required"`
	Method string          `json:"method" binding:"required,oneof=CASH BANK_TRANSFER CARD"`
	Note   string          `json:"note" binding:"max=500"`
}

// InvoiceListFilter defines filtering options for invoice list queries
type InvoiceListFilter struct {
	Search      string     `form:"search"`
	SubjectType string     `form:"subject_type"`
	SubjectID   *uuid.UUID `form:"subject_id"`
	Status      string     `form:"status"`
	Year        *int       `form:"year"`
	Month       *int       `form:"month"`
	Page        int        `form:"page"`
	PageSize    int        `form:"page_size"`
}

func (f InvoiceListFilter) toDomain() ledger.InvoiceFilter {
	page := f.Page
	if page < 1 {
		page = 1
	}
	pageSize := f.PageSize
	if pageSize < 1 || pageSize > 100 {
		pageSize = 20
	}

	filter := ledger.InvoiceFilter{
		Filter: shared.Filter{
			Search:   f.Search,
			Page:     page,
			PageSize: pageSize,
			OrderBy:  "created_at",
			OrderDir: "desc",
		},
		SubjectID: f.SubjectID,
		Year:      f.Year,
		Month:     f.Month,
	}
	if f.SubjectType != "" {
		st := ledger.SubjectType(f.SubjectType)
		filter.SubjectType = &st
	}
	if f.Status != "" {
		status := ledger.InvoiceStatus(f.Status)
		filter.Status = &status
	}
	return filter
}

// ===================== Operations =====================

// CreateInvoice creates a new invoice for a billing period
func (s *InvoiceService) CreateInvoice(ctx context.Context, req CreateInvoiceRequest) (*InvoiceResponse, error) {
	exists, err := s.invoiceRepo.ExistsByInvoiceNumber(ctx, req.InvoiceNumber)
	if err != nil {
		return nil, err
	}
	if exists {
		return nil, shared.NewDomainError("ALREADY_EXISTS", "Invoice number is already in use")
	}

	inv, err := ledger.NewInvoice(
		req.InvoiceNumber,
		ledger.SubjectType(req.SubjectType),
		req.SubjectID,
		req.SubjectName,
		req.Month,
		req.Year,
		req.TotalAmount,
		req.DiscountAmount,
		req.Remark,
	)
	if err != nil {
		return nil, err
	}

	if err := s.invoiceRepo.Save(ctx, inv); err != nil {
		return nil, err
	}

	s.publishDomainEvents(ctx, inv)

	return toInvoiceResponse(inv), nil
}

// GetInvoiceByID gets an invoice by ID
func (s *InvoiceService) GetInvoiceByID(ctx context.Context, id uuid.UUID) (*InvoiceResponse, error) {
	inv, err := s.invoiceRepo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if inv == nil {
		return nil, shared.NewDomainError("NOT_FOUND", "Invoice not found")
	}
	return toInvoiceResponse(inv), nil
}

// GetInvoiceByNumber gets an invoice by its business number
func (s *InvoiceService) GetInvoiceByNumber(ctx context.Context, invoiceNumber string) (*InvoiceResponse, error) {
	inv, err := s.invoiceRepo.FindByInvoiceNumber(ctx, invoiceNumber)
	if err != nil {
		return nil, err
	}
	if inv == nil {
		return nil, shared.NewDomainError("NOT_FOUND", "Invoice not found")
	}
	return toInvoiceResponse(inv), nil
}

// ListInvoices lists invoices matching the filter with pagination
func (s *InvoiceService) ListInvoices(ctx context.Context, filter InvoiceListFilter) ([]InvoiceResponse, int64, error) {
	domainFilter := filter.toDomain()

	invoices, err := s.invoiceRepo.FindAll(ctx, domainFilter)
	if err != nil {
		return nil, 0, err
	}

	total, err := s.invoiceRepo.Count(ctx, domainFilter)
	if err != nil {
		return nil, 0, err
	}

	responses := make([]InvoiceResponse, len(invoices))
	for i := range invoices {
		responses[i] = *toInvoiceResponse(&invoices[i])
	}

	return responses, total, nil
}

// RecordTransaction applies a payment to an invoice. The load-mutate-save
// sequence runs under optimistic locking; on a version conflict it retries
// against a freshly loaded invoice so a concurrent writer's payment is
// seen before the remaining-balance check. Each attempt re-validates, so
// two 450,000 payments against a 900,000 invoice both land while a third
// is rejected for exceeding the remaining balance.
func (s *InvoiceService) RecordTransaction(ctx context.Context, invoiceID uuid.UUID, req RecordTransactionRequest, recordedBy uuid.UUID) (*InvoiceResponse, error) {
	return s.recordPayment(ctx, invoiceID, req.Amount, ledger.PaymentMethod(req.Method), req.Note, recordedBy, nil)
}

// RecordApprovedPayment applies a payment originating from an approved
// payment request, linking the resulting transaction to the request
func (s *InvoiceService) RecordApprovedPayment(ctx context.Context, invoiceID uuid.UUID, amount decimal.Decimal, recordedBy uuid.UUID, requestID uuid.UUID) (*InvoiceResponse, error) {
	return s.recordPayment(ctx, invoiceID, amount, ledger.PaymentMethodBankTransfer, "approved payment request", recordedBy, &requestID)
}

func (s *InvoiceService) recordPayment(ctx context.Context, invoiceID uuid.UUID, amount decimal.Decimal, method ledger.PaymentMethod, note string, recordedBy uuid.UUID, requestID *uuid.UUID) (*InvoiceResponse, error) {
	for attempt := 0; attempt < maxRecordAttempts; attempt++ {
		inv, err := s.invoiceRepo.FindByID(ctx, invoiceID)
		if err != nil {
			return nil, err
		}
		if inv == nil {
			return nil, shared.NewDomainError("NOT_FOUND", "Invoice not found")
		}

		if _, err := inv.RecordPayment(amount, method, note, recordedBy, requestID); err != nil {
			return nil, err
		}

		if err := s.invoiceRepo.SaveWithLock(ctx, inv); err != nil {
			if isOptimisticLockError(err) {
				continue
			}
			return nil, err
		}

		s.publishDomainEvents(ctx, inv)

		return toInvoiceResponse(inv), nil
	}

	return nil, shared.ErrConcurrencyConflict
}

func isOptimisticLockError(err error) bool {
	var de *shared.DomainError
	if !errors.As(err, &de) {
		return false
	}
	return de.Code == "OPTIMISTIC_LOCK_ERROR" || de.Code == "CONCURRENCY_CONFLICT"
}

// ===================== Statistics =====================

// StatisticsQuery carries the input for period statistics
type StatisticsQuery struct {
	Kind        string `form:"kind" binding:"required,oneof=month quarter year range"`
	Year        int    `form:"year" binding:"required"`
	Month       int    `form:"month"`
	Quarter     int    `form:"quarter"`
	StartMonth  int    `form:"start_month"`
	EndMonth    int    `form:"end_month"`
	SubjectType string `form:"subject_type" binding:"omitempty,oneof=STUDENT TEACHER"`
}

func (q StatisticsQuery) toPeriod() ledger.PeriodFilter {
	return ledger.PeriodFilter{
		Kind:       ledger.PeriodKind(q.Kind),
		Year:       q.Year,
		Month:      q.Month,
		Quarter:    q.Quarter,
		StartMonth: q.StartMonth,
		EndMonth:   q.EndMonth,
	}
}

// StatisticsResponse bundles period totals with the resolved period label
type StatisticsResponse struct {
	Period         string                     `json:"period"`
	SubjectType    string                     `json:"subject_type,omitempty"`
	Statistics     ledger.AggregateStatistics `json:"statistics"`
	CollectionRate decimal.Decimal            `json:"collection_rate"`
}

// GetStatistics computes period totals, aggregated in the database
func (s *InvoiceService) GetStatistics(ctx context.Context, query StatisticsQuery) (*StatisticsResponse, error) {
	period := query.toPeriod()
	if _, _, err := period.Resolve(); err != nil {
		return nil, err
	}

	stats, err := s.reportRepo.Statistics(ctx, period, ledger.SubjectType(query.SubjectType))
	if err != nil {
		return nil, err
	}

	return &StatisticsResponse{
		Period:         period.String(),
		SubjectType:    query.SubjectType,
		Statistics:     stats,
		CollectionRate: stats.CollectionRate(),
	}, nil
}

// GetStatisticsBySubject computes per-subject totals inside a period
func (s *InvoiceService) GetStatisticsBySubject(ctx context.Context, query StatisticsQuery) ([]ledger.SubjectStatistics, error) {
	period := query.toPeriod()
	if _, _, err := period.Resolve(); err != nil {
		return nil, err
	}

	return s.reportRepo.StatisticsBySubject(ctx, period, ledger.SubjectType(query.SubjectType))
}

// ===================== Export =====================

// ExportRow is one line of a period export
type ExportRow struct {
	InvoiceNumber   string
	SubjectType     string
	SubjectName     string
	Period          string
	TotalAmount     decimal.Decimal
	DiscountAmount  decimal.Decimal
	FinalAmount     decimal.Decimal
	PaidAmount      decimal.Decimal
	RemainingAmount decimal.Decimal
	Status          string
}

// ExportInvoices returns the invoices of a period as flat export rows,
// ordered as stored (newest first)
func (s *InvoiceService) ExportInvoices(ctx context.Context, query StatisticsQuery) ([]ExportRow, error) {
	period := query.toPeriod()
	if _, _, err := period.Resolve(); err != nil {
		return nil, err
	}

	filter := ledger.InvoiceFilter{
		Filter: shared.Filter{Page: 1, PageSize: 10000, OrderBy: "invoice_number", OrderDir: "asc"},
	}
	if query.SubjectType != "" {
		st := ledger.SubjectType(query.SubjectType)
		filter.SubjectType = &st
	}

	invoices, err := s.invoiceRepo.FindByPeriod(ctx, period, filter)
	if err != nil {
		return nil, err
	}

	rows := make([]ExportRow, len(invoices))
	for i := range invoices {
		inv := &invoices[i]
		rows[i] = ExportRow{
			InvoiceNumber:   inv.InvoiceNumber,
			SubjectType:     inv.SubjectType.String(),
			SubjectName:     inv.SubjectName,
			Period:          ledger.MonthPeriod(inv.Year, inv.Month).String(),
			TotalAmount:     inv.TotalAmount,
			DiscountAmount:  inv.DiscountAmount,
			FinalAmount:     inv.FinalAmount,
			PaidAmount:      inv.PaidAmount,
			RemainingAmount: inv.RemainingAmount,
			Status:          inv.Status.String(),
		}
	}

	return rows, nil
}
