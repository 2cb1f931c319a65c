package ledger

import "github.com/shopspring/decimal"

// AggregateStatistics summarizes a set of invoices over a reporting
// period. TotalBeforeDiscount is the sum of gross amounts, TotalGross the
// sum of post-discount finals; the difference is the discount granted.
// Figures are always computed from the invoices themselves so a payment
// recorded a moment ago is reflected immediately.
type AggregateStatistics struct {
	InvoiceCount        int             `json:"invoice_count"`
	PaidCount           int             `json:"paid_count"`
	PartialCount        int             `json:"partial_count"`
	PendingCount        int             `json:"pending_count"`
	TotalBeforeDiscount decimal.Decimal `json:"total_before_discount"`
	TotalDiscount       decimal.Decimal `json:"total_discount"`
	TotalGross          decimal.Decimal `json:"total_gross"`
	TotalPaid           decimal.Decimal `json:"total_paid"`
	TotalRemaining      decimal.Decimal `json:"total_remaining"`
}

// NewAggregateStatistics returns zero-valued statistics with decimals
// initialized so JSON output renders "0" rather than null
func NewAggregateStatistics() AggregateStatistics {
	return AggregateStatistics{
		TotalBeforeDiscount: decimal.Zero,
		TotalDiscount:       decimal.Zero,
		TotalGross:          decimal.Zero,
		TotalPaid:           decimal.Zero,
		TotalRemaining:      decimal.Zero,
	}
}

// Add folds one invoice into the running totals
func (s *AggregateStatistics) Add(inv *Invoice) {
	s.InvoiceCount++
	switch inv.Status {
	case InvoiceStatusPaid:
		s.PaidCount++
	case InvoiceStatusPartial:
		s.PartialCount++
	default:
		s.PendingCount++
	}
	s.TotalBeforeDiscount = s.TotalBeforeDiscount.Add(inv.TotalAmount)
	s.TotalDiscount = s.TotalDiscount.Add(inv.DiscountAmount)
	s.TotalGross = s.TotalGross.Add(inv.FinalAmount)
	s.TotalPaid = s.TotalPaid.Add(inv.PaidAmount)
	s.TotalRemaining = s.TotalRemaining.Add(inv.RemainingAmount)
}

// CollectionRate returns paid/gross as a percentage, 100 for an empty or
// fully discounted period
func (s AggregateStatistics) CollectionRate() decimal.Decimal {
	if s.TotalGross.IsZero() {
		return decimal.NewFromInt(100)
	}
	return s.TotalPaid.Div(s.TotalGross).Mul(decimal.NewFromInt(100)).Round(2)
}

// Aggregate computes period statistics over a slice of invoices.
// Invoices outside the period are skipped; an optional subject type
// restricts the population (empty means both).
func Aggregate(invoices []*Invoice, period PeriodFilter, subjectType SubjectType) (AggregateStatistics, error) {
	if _, _, err := period.Resolve(); err != nil {
		return AggregateStatistics{}, err
	}

	stats := NewAggregateStatistics()
	for _, inv := range invoices {
		if subjectType != "" && inv.SubjectType != subjectType {
			continue
		}
		if !period.Contains(inv.Year, inv.Month) {
			continue
		}
		stats.Add(inv)
	}
	return stats, nil
}
