package ledger

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/schoolfin/backend/internal/domain/shared"
	"github.com/shopspring/decimal"
)

// InvoiceFilter defines filtering options for invoice queries
type InvoiceFilter struct {
	shared.Filter
	SubjectType *SubjectType     // Filter by student or teacher invoices
	SubjectID   *uuid.UUID       // Filter by billed subject
	Status      *InvoiceStatus   // Filter by settlement status
	Year        *int             // Filter by billing year
	Month       *int             // Filter by billing month
	StartMonth  *int             // Inclusive month range start (with Year)
	EndMonth    *int             // Inclusive month range end (with Year)
	MinAmount   *decimal.Decimal // Filter by minimum final amount
	MaxAmount   *decimal.Decimal // Filter by maximum final amount
	FromDate    *time.Time       // Filter by creation date range start
	ToDate      *time.Time       // Filter by creation date range end
}

// InvoiceRepository defines the interface for invoice persistence
type InvoiceRepository interface {
	// FindByID finds an invoice by ID
	FindByID(ctx context.Context, id uuid.UUID) (*Invoice, error)

	// FindByInvoiceNumber finds an invoice by its business number
	FindByInvoiceNumber(ctx context.Context, invoiceNumber string) (*Invoice, error)

	// FindAll finds invoices matching the filter
	FindAll(ctx context.Context, filter InvoiceFilter) ([]Invoice, error)

	// FindByPeriod finds invoices inside a reporting period
	FindByPeriod(ctx context.Context, period PeriodFilter, filter InvoiceFilter) ([]Invoice, error)

	// Save creates or updates an invoice
	Save(ctx context.Context, invoice *Invoice) error

	// SaveWithLock saves with optimistic locking (version check)
	SaveWithLock(ctx context.Context, invoice *Invoice) error

	// Count counts invoices matching the filter
	Count(ctx context.Context, filter InvoiceFilter) (int64, error)

	// ExistsByInvoiceNumber checks whether an invoice number is taken
	ExistsByInvoiceNumber(ctx context.Context, invoiceNumber string) (bool, error)
}

// PaymentRequestFilter defines filtering options for payment request queries
type PaymentRequestFilter struct {
	shared.Filter
	InvoiceID   *uuid.UUID     // Filter by target invoice
	Status      *RequestStatus // Filter by request status
	RequestedBy *uuid.UUID     // Filter by submitting actor
	FromDate    *time.Time     // Filter by submission date range start
	ToDate      *time.Time     // Filter by submission date range end
}

// PaymentRequestRepository defines the interface for payment request persistence
type PaymentRequestRepository interface {
	// FindByID finds a payment request by ID
	FindByID(ctx context.Context, id uuid.UUID) (*PaymentRequest, error)

	// FindAll finds payment requests matching the filter
	FindAll(ctx context.Context, filter PaymentRequestFilter) ([]PaymentRequest, error)

	// FindPendingByInvoice finds pending requests against an invoice
	FindPendingByInvoice(ctx context.Context, invoiceID uuid.UUID) ([]PaymentRequest, error)

	// Save creates or updates a payment request
	Save(ctx context.Context, request *PaymentRequest) error

	// SaveWithLock saves with optimistic locking (version check)
	SaveWithLock(ctx context.Context, request *PaymentRequest) error

	// Count counts payment requests matching the filter
	Count(ctx context.Context, filter PaymentRequestFilter) (int64, error)
}

// LedgerReportRepository aggregates invoice figures in the database so
// period statistics stay consistent with concurrently recorded payments
type LedgerReportRepository interface {
	// Statistics computes period totals for the optional subject type
	// (empty means both students and teachers)
	Statistics(ctx context.Context, period PeriodFilter, subjectType SubjectType) (AggregateStatistics, error)

	// StatisticsBySubject computes per-subject totals inside a period,
	// ordered by remaining balance descending
	StatisticsBySubject(ctx context.Context, period PeriodFilter, subjectType SubjectType) ([]SubjectStatistics, error)
}

// SubjectStatistics is one subject's row in a per-subject breakdown
type SubjectStatistics struct {
	SubjectType    SubjectType     `json:"subject_type"`
	SubjectID      uuid.UUID       `json:"subject_id"`
	SubjectName    string          `json:"subject_name"`
	InvoiceCount   int             `json:"invoice_count"`
	TotalGross     decimal.Decimal `json:"total_gross"`
	TotalPaid      decimal.Decimal `json:"total_paid"`
	TotalRemaining decimal.Decimal `json:"total_remaining"`
}
