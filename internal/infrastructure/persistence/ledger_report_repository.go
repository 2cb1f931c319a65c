package persistence

import (
	"context"

	"github.com/google/uuid"
	"github.com/schoolfin/backend/internal/domain/ledger"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// GormLedgerReportRepository implements LedgerReportRepository using GORM.
// Totals are summed in the database rather than in memory so they reflect
// every committed payment at query time, including ones recorded while the
// report request was in flight.
type GormLedgerReportRepository struct {
	db *gorm.DB
}

// NewGormLedgerReportRepository creates a new GormLedgerReportRepository
func NewGormLedgerReportRepository(db *gorm.DB) *GormLedgerReportRepository {
	return &GormLedgerReportRepository{db: db}
}

type statisticsRow struct {
	InvoiceCount        int
	PaidCount           int
	PartialCount        int
	PendingCount        int
	TotalBeforeDiscount decimal.Decimal
	TotalDiscount       decimal.Decimal
	TotalGross          decimal.Decimal
	TotalPaid           decimal.Decimal
	TotalRemaining      decimal.Decimal
}

// Statistics computes period totals for the optional subject type
func (r *GormLedgerReportRepository) Statistics(ctx context.Context, period ledger.PeriodFilter, subjectType ledger.SubjectType) (ledger.AggregateStatistics, error) {
	startMonth, endMonth, err := period.Resolve()
	if err != nil {
		return ledger.AggregateStatistics{}, err
	}

	query := r.db.WithContext(ctx).Table("invoices").
		Select(`COUNT(*) AS invoice_count,
			COUNT(*) FILTER (WHERE status = 'PAID') AS paid_count,
			COUNT(*) FILTER (WHERE status = 'PARTIAL') AS partial_count,
			COUNT(*) FILTER (WHERE status = 'PENDING') AS pending_count,
			COALESCE(SUM(total_amount), 0) AS total_before_discount,
			COALESCE(SUM(discount_amount), 0) AS total_discount,
			COALESCE(SUM(final_amount), 0) AS total_gross,
			COALESCE(SUM(paid_amount), 0) AS total_paid,
			COALESCE(SUM(remaining_amount), 0) AS total_remaining`).
		Where("year = ? AND month BETWEEN ? AND ?", period.Year, startMonth, endMonth).
		Where("deleted_at IS NULL")
	if subjectType != "" {
		query = query.Where("subject_type = ?", subjectType)
	}

	var row statisticsRow
	if err := query.Scan(&row).Error; err != nil {
		return ledger.AggregateStatistics{}, err
	}

	return ledger.AggregateStatistics{
		InvoiceCount:        row.InvoiceCount,
		PaidCount:           row.PaidCount,
		PartialCount:        row.PartialCount,
		PendingCount:        row.PendingCount,
		TotalBeforeDiscount: row.TotalBeforeDiscount,
		TotalDiscount:       row.TotalDiscount,
		TotalGross:          row.TotalGross,
		TotalPaid:           row.TotalPaid,
		TotalRemaining:      row.TotalRemaining,
	}, nil
}

type subjectStatisticsRow struct {
	SubjectType    string
	SubjectID      uuid.UUID
	SubjectName    string
	InvoiceCount   int
	TotalGross     decimal.Decimal
	TotalPaid      decimal.Decimal
	TotalRemaining decimal.Decimal
}

// StatisticsBySubject computes per-subject totals inside a period,
// ordered by remaining balance descending so the largest debtors come first
func (r *GormLedgerReportRepository) StatisticsBySubject(ctx context.Context, period ledger.PeriodFilter, subjectType ledger.SubjectType) ([]ledger.SubjectStatistics, error) {
	startMonth, endMonth, err := period.Resolve()
	if err != nil {
		return nil, err
	}

	query := r.db.WithContext(ctx).Table("invoices").
		Select(`subject_type,
			subject_id,
			MAX(subject_name) AS subject_name,
			COUNT(*) AS invoice_count,
			COALESCE(SUM(final_amount), 0) AS total_gross,
			COALESCE(SUM(paid_amount), 0) AS total_paid,
			COALESCE(SUM(remaining_amount), 0) AS total_remaining`).
		Where("year = ? AND month BETWEEN ? AND ?", period.Year, startMonth, endMonth).
		Where("deleted_at IS NULL").
		Group("subject_type, subject_id").
		Order("total_remaining DESC")
	if subjectType != "" {
		query = query.Where("subject_type = ?", subjectType)
	}

	var rows []subjectStatisticsRow
	if err := query.Scan(&rows).Error; err != nil {
		return nil, err
	}

	stats := make([]ledger.SubjectStatistics, len(rows))
	for i, row := range rows {
		stats[i] = ledger.SubjectStatistics{
			SubjectType:    ledger.SubjectType(row.SubjectType),
			SubjectID:      row.SubjectID,
			SubjectName:    row.SubjectName,
			InvoiceCount:   row.InvoiceCount,
			TotalGross:     row.TotalGross,
			TotalPaid:      row.TotalPaid,
			TotalRemaining: row.TotalRemaining,
		}
	}
	return stats, nil
}
