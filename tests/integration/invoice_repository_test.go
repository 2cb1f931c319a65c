package integration

import (
	"context"
	"os"
	"testing"

	"github.com/google/uuid"
	"github.com/schoolfin/backend/internal/domain/ledger"
	"github.com/schoolfin/backend/internal/domain/shared"
	"github.com/schoolfin/backend/internal/infrastructure/persistence"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestMain runs before any tests and handles cleanup
func TestMain(m *testing.M) {
	code := m.Run()
	CleanupSharedContainer()
	os.Exit(code)
}

func newStudentInvoice(t *testing.T, number string, total float64) *ledger.Invoice {
	t.Helper()
	inv, err := ledger.NewInvoice(
		number,
		ledger.SubjectTypeStudent,
		uuid.New(),
		"Alice Zhang",
		3, 2026,
		decimal.NewFromFloat(total),
		decimal.Zero,
		"",
	)
	require.NoError(t, err)
	inv.ClearDomainEvents()
	return inv
}

// TestInvoiceRepository_Integration exercises the invoice repository against
// a real PostgreSQL database, including the JSONB transaction log.
func TestInvoiceRepository_Integration(t *testing.T) {
	if testing.Short() {
		t.Skip("Skipping integration test in short mode")
	}

	testDB := NewTestDB(t)
	repo := persistence.NewGormInvoiceRepository(testDB.DB)
	ctx := context.Background()

	t.Run("Save and FindByID", func(t *testing.T) {
		inv := newStudentInvoice(t, "INV-2026-03-0001", 900)

		require.NoError(t, repo.Save(ctx, inv))

		found, err := repo.FindByID(ctx, inv.ID)
		require.NoError(t, err)
		assert.Equal(t, inv.ID, found.ID)
		assert.Equal(t, inv.InvoiceNumber, found.InvoiceNumber)
		assert.Equal(t, ledger.InvoiceStatusPending, found.Status)
		assert.True(t, found.FinalAmount.Equal(decimal.NewFromInt(900)))
	})

	t.Run("FindByInvoiceNumber", func(t *testing.T) {
		inv := newStudentInvoice(t, "INV-2026-03-0002", 500)
		require.NoError(t, repo.Save(ctx, inv))

		found, err := repo.FindByInvoiceNumber(ctx, "INV-2026-03-0002")
		require.NoError(t, err)
		assert.Equal(t, inv.ID, found.ID)

		_, err = repo.FindByInvoiceNumber(ctx, "INV-MISSING")
		assert.ErrorIs(t, err, shared.ErrNotFound)
	})

	t.Run("ExistsByInvoiceNumber", func(t *testing.T) {
		inv := newStudentInvoice(t, "INV-2026-03-0003", 100)
		require.NoError(t, repo.Save(ctx, inv))

		exists, err := repo.ExistsByInvoiceNumber(ctx, "INV-2026-03-0003")
		require.NoError(t, err)
		assert.True(t, exists)

		exists, err = repo.ExistsByInvoiceNumber(ctx, "INV-NOPE")
		require.NoError(t, err)
		assert.False(t, exists)
	})

	t.Run("Transactions survive a JSONB round trip", func(t *testing.T) {
		inv := newStudentInvoice(t, "INV-2026-03-0004", 900)
		actor := uuid.New()

		_, err := inv.RecordPayment(decimal.NewFromInt(400), ledger.PaymentMethodCash, "first installment", actor, nil)
		require.NoError(t, err)
		_, err = inv.RecordPayment(decimal.NewFromInt(500), ledger.PaymentMethodBankTransfer, "", actor, nil)
		require.NoError(t, err)
		inv.ClearDomainEvents()

		require.NoError(t, repo.Save(ctx, inv))

		found, err := repo.FindByID(ctx, inv.ID)
		require.NoError(t, err)
		require.Len(t, found.Transactions, 2)
		assert.Equal(t, ledger.InvoiceStatusPaid, found.Status)
		assert.True(t, found.PaidAmount.Equal(decimal.NewFromInt(900)))
		assert.Equal(t, ledger.PaymentMethodCash, found.Transactions[0].Method)
		assert.Equal(t, "first installment", found.Transactions[0].Note)
		assert.Equal(t, actor, found.Transactions[0].RecordedBy)
		assert.Equal(t, ledger.PaymentMethodBankTransfer, found.Transactions[1].Method)
		assert.NotNil(t, found.PaidAt)
	})

	t.Run("SaveWithLock rejects a stale version", func(t *testing.T) {
		inv := newStudentInvoice(t, "INV-2026-03-0005", 900)
		require.NoError(t, repo.Save(ctx, inv))

		// Two readers load the same version
		first, err := repo.FindByID(ctx, inv.ID)
		require.NoError(t, err)
		second, err := repo.FindByID(ctx, inv.ID)
		require.NoError(t, err)

		_, err = first.RecordPayment(decimal.NewFromInt(100), ledger.PaymentMethodCash, "", uuid.New(), nil)
		require.NoError(t, err)
		first.ClearDomainEvents()
		require.NoError(t, repo.SaveWithLock(ctx, first))

		_, err = second.RecordPayment(decimal.NewFromInt(200), ledger.PaymentMethodCash, "", uuid.New(), nil)
		require.NoError(t, err)
		second.ClearDomainEvents()

		err = repo.SaveWithLock(ctx, second)
		require.Error(t, err)
		var domainErr *shared.DomainError
		require.ErrorAs(t, err, &domainErr)
		assert.Equal(t, "OPTIMISTIC_LOCK_ERROR", domainErr.Code)

		// The winning write is intact
		found, err := repo.FindByID(ctx, inv.ID)
		require.NoError(t, err)
		assert.True(t, found.PaidAmount.Equal(decimal.NewFromInt(100)))
		assert.Equal(t, 1, found.TransactionCount())
	})

	t.Run("FindAll filters by status and period", func(t *testing.T) {
		paid := newStudentInvoice(t, "INV-2026-03-0006", 200)
		_, err := paid.RecordPayment(decimal.NewFromInt(200), ledger.PaymentMethodCash, "", uuid.New(), nil)
		require.NoError(t, err)
		paid.ClearDomainEvents()
		require.NoError(t, repo.Save(ctx, paid))

		status := ledger.InvoiceStatusPaid
		found, err := repo.FindAll(ctx, ledger.InvoiceFilter{
			Filter: shared.Filter{Page: 1, PageSize: 50},
			Status: &status,
		})
		require.NoError(t, err)
		require.NotEmpty(t, found)
		for _, inv := range found {
			assert.Equal(t, ledger.InvoiceStatusPaid, inv.Status)
		}

		year := 2030
		none, err := repo.FindAll(ctx, ledger.InvoiceFilter{
			Filter: shared.Filter{Page: 1, PageSize: 50},
			Year:   &year,
		})
		require.NoError(t, err)
		assert.Empty(t, none)
	})

}

// TestLedgerReportRepository_Integration verifies that period statistics
// are aggregated in the database rather than in application memory.
func TestLedgerReportRepository_Integration(t *testing.T) {
	if testing.Short() {
		t.Skip("Skipping integration test in short mode")
	}

	testDB := NewTestDB(t)
	invoiceRepo := persistence.NewGormInvoiceRepository(testDB.DB)
	reportRepo := persistence.NewGormLedgerReportRepository(testDB.DB)
	ctx := context.Background()

	// Two student invoices in March, one teacher invoice in April
	studentA := newStudentInvoice(t, "INV-2026-03-1001", 900)
	_, err := studentA.RecordPayment(decimal.NewFromInt(400), ledger.PaymentMethodCash, "", uuid.New(), nil)
	require.NoError(t, err)
	studentA.ClearDomainEvents()
	require.NoError(t, invoiceRepo.Save(ctx, studentA))

	studentB := newStudentInvoice(t, "INV-2026-03-1002", 600)
	require.NoError(t, invoiceRepo.Save(ctx, studentB))

	teacher, err := ledger.NewInvoice(
		"SAL-2026-04-0001",
		ledger.SubjectTypeTeacher,
		uuid.New(),
		"Mr. Keating",
		4, 2026,
		decimal.NewFromInt(3000),
		decimal.Zero,
		"",
	)
	require.NoError(t, err)
	teacher.ClearDomainEvents()
	require.NoError(t, invoiceRepo.Save(ctx, teacher))

	t.Run("Month statistics", func(t *testing.T) {
		stats, err := reportRepo.Statistics(ctx, ledger.MonthPeriod(2026, 3), "")
		require.NoError(t, err)

		assert.Equal(t, 2, stats.InvoiceCount)
		assert.Equal(t, 1, stats.PartialCount)
		assert.Equal(t, 1, stats.PendingCount)
		assert.True(t, stats.TotalGross.Equal(decimal.NewFromInt(1500)), "gross = %s", stats.TotalGross)
		assert.True(t, stats.TotalPaid.Equal(decimal.NewFromInt(400)), "paid = %s", stats.TotalPaid)
		assert.True(t, stats.TotalRemaining.Equal(decimal.NewFromInt(1100)), "remaining = %s", stats.TotalRemaining)
	})

	t.Run("Subject type filter", func(t *testing.T) {
		stats, err := reportRepo.Statistics(ctx, ledger.MonthPeriod(2026, 4), ledger.SubjectTypeTeacher)
		require.NoError(t, err)
		assert.Equal(t, 1, stats.InvoiceCount)
		assert.True(t, stats.TotalGross.Equal(decimal.NewFromInt(3000)))

		empty, err := reportRepo.Statistics(ctx, ledger.MonthPeriod(2026, 4), ledger.SubjectTypeStudent)
		require.NoError(t, err)
		assert.Equal(t, 0, empty.InvoiceCount)
		assert.True(t, empty.TotalGross.IsZero())
	})

	t.Run("Per subject breakdown ordered by remaining", func(t *testing.T) {
		rows, err := reportRepo.StatisticsBySubject(ctx, ledger.MonthPeriod(2026, 3), ledger.SubjectTypeStudent)
		require.NoError(t, err)
		require.Len(t, rows, 2)

		// studentB owes 600, studentA owes 500
		assert.True(t, rows[0].TotalRemaining.Equal(decimal.NewFromInt(600)))
		assert.True(t, rows[1].TotalRemaining.Equal(decimal.NewFromInt(500)))
	})
}
