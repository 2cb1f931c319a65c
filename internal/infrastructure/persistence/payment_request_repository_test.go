package persistence

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/schoolfin/backend/internal/domain/ledger"
	"github.com/schoolfin/backend/internal/domain/shared"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

func newMockRequestRepoForQueries(t *testing.T) (*GormPaymentRequestRepository, sqlmock.Sqlmock, *sql.DB) {
	t.Helper()

	mockDB, mock, err := sqlmock.New()
	require.NoError(t, err)

	dialector := postgres.New(postgres.Config{
		Conn:       mockDB,
		DriverName: "postgres",
	})

	gormDB, err := gorm.Open(dialector, &gorm.Config{
		SkipDefaultTransaction: true,
	})
	require.NoError(t, err)

	return NewGormPaymentRequestRepository(gormDB), mock, mockDB
}

func requestRows(ids ...uuid.UUID) *sqlmock.Rows {
	rows := sqlmock.NewRows([]string{
		"id", "version", "created_at", "updated_at",
		"invoice_id", "amount", "proof_ref", "status",
		"requested_by", "requested_at",
	})
	for _, id := range ids {
		rows.AddRow(
			id, 1, time.Now(), time.Now(),
			uuid.New(), "450000", "proofs/receipt.jpg", string(ledger.RequestStatusPending),
			uuid.New(), time.Now(),
		)
	}
	return rows
}

func TestPaymentRequestRepository_FindByID(t *testing.T) {
	t.Run("maps a missing row to ErrNotFound", func(t *testing.T) {
		repo, mock, mockDB := newMockRequestRepoForQueries(t)
		defer mockDB.Close()

		mock.ExpectQuery(`SELECT \* FROM "payment_requests"`).
			WillReturnRows(requestRows())

		_, err := repo.FindByID(context.Background(), uuid.New())

		assert.ErrorIs(t, err, shared.ErrNotFound)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("returns the stored request", func(t *testing.T) {
		repo, mock, mockDB := newMockRequestRepoForQueries(t)
		defer mockDB.Close()

		id := uuid.New()
		mock.ExpectQuery(`SELECT \* FROM "payment_requests"`).
			WillReturnRows(requestRows(id))

		pr, err := repo.FindByID(context.Background(), id)

		require.NoError(t, err)
		assert.Equal(t, id, pr.ID)
		assert.Equal(t, ledger.RequestStatusPending, pr.Status)
		assert.Equal(t, "proofs/receipt.jpg", pr.ProofRef)
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestPaymentRequestRepository_FindPendingByInvoice(t *testing.T) {
	repo, mock, mockDB := newMockRequestRepoForQueries(t)
	defer mockDB.Close()

	invoiceID := uuid.New()
	mock.ExpectQuery(`SELECT \* FROM "payment_requests" WHERE invoice_id = \$1 AND status = \$2 .*ORDER BY created_at asc`).
		WithArgs(invoiceID, string(ledger.RequestStatusPending)).
		WillReturnRows(requestRows(uuid.New(), uuid.New()))

	requests, err := repo.FindPendingByInvoice(context.Background(), invoiceID)

	require.NoError(t, err)
	assert.Len(t, requests, 2)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPaymentRequestRepository_Save_DuplicatePending(t *testing.T) {
	t.Run("maps a pending unique violation to DUPLICATE_PENDING_REQUEST", func(t *testing.T) {
		repo, mock, mockDB := newMockRequestRepoForQueries(t)
		defer mockDB.Close()

		inv, err := ledger.NewInvoice(
			"INV-2026-003", ledger.SubjectTypeStudent, uuid.New(), "Carol",
			5, 2026, decimal.NewFromInt(200000), decimal.Zero, "",
		)
		require.NoError(t, err)
		pr, err := ledger.NewPaymentRequest(inv, decimal.NewFromInt(100000), "proofs/q.jpg", uuid.New())
		require.NoError(t, err)

		mock.ExpectExec(`UPDATE "payment_requests" SET`).
			WillReturnError(&pgconn.PgError{
				Code:           "23505",
				ConstraintName: "idx_payment_requests_pending_invoice",
			})

		err = repo.Save(context.Background(), pr)

		require.Error(t, err)
		var de *shared.DomainError
		require.ErrorAs(t, err, &de)
		assert.Equal(t, "DUPLICATE_PENDING_REQUEST", de.Code)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("recognizes gorm's translated duplicate key error", func(t *testing.T) {
		assert.True(t, isUniqueViolation(gorm.ErrDuplicatedKey))
		assert.False(t, isUniqueViolation(assert.AnError))
	})
}

func TestPaymentRequestRepository_Count(t *testing.T) {
	repo, mock, mockDB := newMockRequestRepoForQueries(t)
	defer mockDB.Close()

	status := ledger.RequestStatusPending
	mock.ExpectQuery(`SELECT count\(\*\) FROM "payment_requests" WHERE status = \$1`).
		WithArgs(string(status)).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(7))

	count, err := repo.Count(context.Background(), ledger.PaymentRequestFilter{Status: &status})

	require.NoError(t, err)
	assert.Equal(t, int64(7), count)
	assert.NoError(t, mock.ExpectationsWereMet())
}
