package ledger

import (
	"fmt"
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func buildInvoice(t *testing.T, subjectType SubjectType, month, year int, total, discount, paid int64) *Invoice {
	t.Helper()
	inv, err := NewInvoice(
		fmt.Sprintf("INV-%s-%d-%d-%d", subjectType, year, month, total),
		subjectType,
		uuid.New(),
		"Subject "+string(subjectType),
		month, year,
		decimal.NewFromInt(total),
		decimal.NewFromInt(discount),
		"",
	)
	require.NoError(t, err)
	if paid > 0 {
		_, err = inv.RecordPayment(decimal.NewFromInt(paid), PaymentMethodCash, "", uuid.New(), nil)
		require.NoError(t, err)
	}
	return inv
}

// ============================================
// Aggregate Tests
// ============================================

func TestAggregate(t *testing.T) {
	invoices := []*Invoice{
		buildInvoice(t, SubjectTypeStudent, 1, 2026, 1000, 100, 900), // paid, in Q1
		buildInvoice(t, SubjectTypeStudent, 2, 2026, 1000, 0, 400),   // partial, in Q1
		buildInvoice(t, SubjectTypeStudent, 3, 2026, 500, 0, 0),      // pending, in Q1
		buildInvoice(t, SubjectTypeStudent, 4, 2026, 800, 0, 800),    // Q2, excluded from Q1
		buildInvoice(t, SubjectTypeTeacher, 2, 2026, 2000, 0, 2000),  // teacher, in Q1
		buildInvoice(t, SubjectTypeStudent, 1, 2025, 1000, 0, 0),     // wrong year
	}

	t.Run("quarter totals over both subject types", func(t *testing.T) {
		stats, err := Aggregate(invoices, QuarterPeriod(2026, 1), "")
		require.NoError(t, err)

		assert.Equal(t, 4, stats.InvoiceCount)
		assert.Equal(t, 2, stats.PaidCount)
		assert.Equal(t, 1, stats.PartialCount)
		assert.Equal(t, 1, stats.PendingCount)
		assert.True(t, stats.TotalBeforeDiscount.Equal(decimal.NewFromInt(4500)))
		assert.True(t, stats.TotalDiscount.Equal(decimal.NewFromInt(100)))
		assert.True(t, stats.TotalGross.Equal(decimal.NewFromInt(4400)))
		assert.True(t, stats.TotalPaid.Equal(decimal.NewFromInt(3300)))
		assert.True(t, stats.TotalRemaining.Equal(decimal.NewFromInt(1100)))
	})

	t.Run("restricts to one subject type", func(t *testing.T) {
		stats, err := Aggregate(invoices, QuarterPeriod(2026, 1), SubjectTypeTeacher)
		require.NoError(t, err)

		assert.Equal(t, 1, stats.InvoiceCount)
		assert.True(t, stats.TotalGross.Equal(decimal.NewFromInt(2000)))
		assert.True(t, stats.TotalRemaining.IsZero())
	})

	t.Run("empty period yields zeroes", func(t *testing.T) {
		stats, err := Aggregate(invoices, MonthPeriod(2026, 12), "")
		require.NoError(t, err)

		assert.Equal(t, 0, stats.InvoiceCount)
		assert.True(t, stats.TotalGross.IsZero())
		assert.True(t, stats.TotalPaid.IsZero())
	})

	t.Run("gross consistency holds", func(t *testing.T) {
		stats, err := Aggregate(invoices, YearPeriod(2026), "")
		require.NoError(t, err)

		assert.True(t, stats.TotalGross.Equal(stats.TotalBeforeDiscount.Sub(stats.TotalDiscount)))
		assert.True(t, stats.TotalGross.Equal(stats.TotalPaid.Add(stats.TotalRemaining)))
	})

	t.Run("invalid period is rejected", func(t *testing.T) {
		_, err := Aggregate(invoices, QuarterPeriod(2026, 9), "")
		require.Error(t, err)
		assert.Equal(t, "INVALID_PERIOD", domainCode(t, err))
	})
}

func TestAggregateStatistics_CollectionRate(t *testing.T) {
	stats := NewAggregateStatistics()
	assert.True(t, stats.CollectionRate().Equal(decimal.NewFromInt(100)))

	stats.TotalGross = decimal.NewFromInt(1000)
	stats.TotalPaid = decimal.NewFromInt(250)
	assert.True(t, stats.CollectionRate().Equal(decimal.NewFromInt(25)))
}
