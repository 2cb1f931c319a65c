package ledger

import (
	"fmt"

	"github.com/schoolfin/backend/internal/domain/shared"
)

// PeriodKind selects how a reporting period is expressed
type PeriodKind string

const (
	PeriodKindMonth   PeriodKind = "month"
	PeriodKindQuarter PeriodKind = "quarter"
	PeriodKindYear    PeriodKind = "year"
	PeriodKindRange   PeriodKind = "range"
)

// IsValid checks if the kind is a valid PeriodKind
func (k PeriodKind) IsValid() bool {
	switch k {
	case PeriodKindMonth, PeriodKindQuarter, PeriodKindYear, PeriodKindRange:
		return true
	}
	return false
}

// PeriodFilter describes a reporting window at month granularity within a
// single calendar year. Quarters follow the calendar: Q1 is January
// through March, Q4 is October through December.
type PeriodFilter struct {
	Kind       PeriodKind `json:"kind"`
	Year       int        `json:"year"`
	Month      int        `json:"month,omitempty"`       // Kind == month
	Quarter    int        `json:"quarter,omitempty"`     // Kind == quarter, 1..4
	StartMonth int        `json:"start_month,omitempty"` // Kind == range
	EndMonth   int        `json:"end_month,omitempty"`   // Kind == range
}

// MonthPeriod builds a single-month filter
func MonthPeriod(year, month int) PeriodFilter {
	return PeriodFilter{Kind: PeriodKindMonth, Year: year, Month: month}
}

// QuarterPeriod builds a calendar-quarter filter
func QuarterPeriod(year, quarter int) PeriodFilter {
	return PeriodFilter{Kind: PeriodKindQuarter, Year: year, Quarter: quarter}
}

// YearPeriod builds a full-year filter
func YearPeriod(year int) PeriodFilter {
	return PeriodFilter{Kind: PeriodKindYear, Year: year}
}

// RangePeriod builds an inclusive month-range filter within one year
func RangePeriod(year, startMonth, endMonth int) PeriodFilter {
	return PeriodFilter{Kind: PeriodKindRange, Year: year, StartMonth: startMonth, EndMonth: endMonth}
}

// Resolve validates the filter and returns the inclusive month bounds
// it covers within its year.
func (p PeriodFilter) Resolve() (startMonth, endMonth int, err error) {
	if !p.Kind.IsValid() {
		return 0, 0, shared.NewDomainError("INVALID_PERIOD",
			fmt.Sprintf("Unknown period kind: %s", p.Kind))
	}
	if p.Year < minInvoiceYear || p.Year > maxInvoiceYear {
		return 0, 0, shared.NewDomainError("INVALID_PERIOD",
			fmt.Sprintf("Year must be between %d and %d", minInvoiceYear, maxInvoiceYear))
	}

	switch p.Kind {
	case PeriodKindMonth:
		if p.Month < 1 || p.Month > 12 {
			return 0, 0, shared.NewDomainError("INVALID_PERIOD", "Month must be between 1 and 12")
		}
		return p.Month, p.Month, nil

	case PeriodKindQuarter:
		if p.Quarter < 1 || p.Quarter > 4 {
			return 0, 0, shared.NewDomainError("INVALID_PERIOD", "Quarter must be between 1 and 4")
		}
		start := (p.Quarter-1)*3 + 1
		return start, start + 2, nil

	case PeriodKindYear:
		return 1, 12, nil

	case PeriodKindRange:
		if p.StartMonth < 1 || p.StartMonth > 12 || p.EndMonth < 1 || p.EndMonth > 12 {
			return 0, 0, shared.NewDomainError("INVALID_PERIOD", "Range months must be between 1 and 12")
		}
		if p.StartMonth > p.EndMonth {
			return 0, 0, shared.NewDomainError("INVALID_PERIOD", "Range start month must not exceed end month")
		}
		return p.StartMonth, p.EndMonth, nil
	}

	return 0, 0, shared.NewDomainError("INVALID_PERIOD", "Unresolvable period")
}

// Contains reports whether the given invoice month falls inside the period.
// Invalid filters contain nothing.
func (p PeriodFilter) Contains(year, month int) bool {
	start, end, err := p.Resolve()
	if err != nil {
		return false
	}
	return year == p.Year && month >= start && month <= end
}

// String renders the period for log and export labels
func (p PeriodFilter) String() string {
	switch p.Kind {
	case PeriodKindMonth:
		return fmt.Sprintf("%04d-%02d", p.Year, p.Month)
	case PeriodKindQuarter:
		return fmt.Sprintf("%04d-Q%d", p.Year, p.Quarter)
	case PeriodKindYear:
		return fmt.Sprintf("%04d", p.Year)
	case PeriodKindRange:
		return fmt.Sprintf("%04d-%02d..%02d", p.Year, p.StartMonth, p.EndMonth)
	}
	return string(p.Kind)
}
