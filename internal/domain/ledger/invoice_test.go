package ledger

import (
	"testing"

	"github.com/google/uuid"
	"github.com/schoolfin/backend/internal/domain/shared"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Test helpers
func createTestInvoice(t *testing.T) *Invoice {
	inv, err := NewInvoice(
		"INV-2026-001",
		SubjectTypeStudent,
		uuid.New(),
		"Test Student",
		3, 2026,
		decimal.NewFromInt(900000),
		decimal.Zero,
		"",
	)
	require.NoError(t, err)
	return inv
}

func createTestInvoiceWithAmounts(t *testing.T, total, discount int64) *Invoice {
	inv, err := NewInvoice(
		"INV-2026-002",
		SubjectTypeStudent,
		uuid.New(),
		"Test Student",
		3, 2026,
		decimal.NewFromInt(total),
		decimal.NewFromInt(discount),
		"",
	)
	require.NoError(t, err)
	return inv
}

func domainCode(t *testing.T, err error) string {
	t.Helper()
	var de *shared.DomainError
	require.ErrorAs(t, err, &de)
	return de.Code
}

// ============================================
// InvoiceStatus Tests
// ============================================

func TestInvoiceStatus_IsValid(t *testing.T) {
	tests := []struct {
		status  InvoiceStatus
		isValid bool
	}{
		{InvoiceStatusPending, true},
		{InvoiceStatusPartial, true},
		{InvoiceStatusPaid, true},
		{InvoiceStatus("INVALID"), false},
		{InvoiceStatus(""), false},
	}

	for _, tt := range tests {
		t.Run(string(tt.status), func(t *testing.T) {
			assert.Equal(t, tt.isValid, tt.status.IsValid())
		})
	}
}

func TestClassify(t *testing.T) {
	tests := []struct {
		name     string
		final    int64
		paid     int64
		expected InvoiceStatus
	}{
		{"nothing paid", 900000, 0, InvoiceStatusPending},
		{"partially paid", 900000, 450000, InvoiceStatusPartial},
		{"fully paid", 900000, 900000, InvoiceStatusPaid},
		{"overpaid is still paid", 900000, 900001, InvoiceStatusPaid},
		{"zero final is paid regardless", 0, 0, InvoiceStatusPaid},
		{"one unit remaining is partial", 900000, 899999, InvoiceStatusPartial},
		{"negative paid is pending", 900000, -100, InvoiceStatusPending},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Classify(decimal.NewFromInt(tt.final), decimal.NewFromInt(tt.paid))
			assert.Equal(t, tt.expected, got)
		})
	}
}

// ============================================
// SubjectType / PaymentMethod Tests
// ============================================

func TestSubjectType_IsValid(t *testing.T) {
	assert.True(t, SubjectTypeStudent.IsValid())
	assert.True(t, SubjectTypeTeacher.IsValid())
	assert.False(t, SubjectType("PARENT").IsValid())
	assert.False(t, SubjectType("").IsValid())
}

func TestPaymentMethod_IsValid(t *testing.T) {
	tests := []struct {
		method  PaymentMethod
		isValid bool
	}{
		{PaymentMethodCash, true},
		{PaymentMethodBankTransfer, true},
		{PaymentMethodCard, true},
		{PaymentMethod("CHEQUE"), false},
		{PaymentMethod(""), false},
	}

	for _, tt := range tests {
		t.Run(string(tt.method), func(t *testing.T) {
			assert.Equal(t, tt.isValid, tt.method.IsValid())
		})
	}
}

// ============================================
// NewInvoice Tests
// ============================================

func TestNewInvoice(t *testing.T) {
	subjectID := uuid.New()

	t.Run("creates invoice with valid inputs", func(t *testing.T) {
		inv, err := NewInvoice(
			"INV-2026-100",
			SubjectTypeStudent,
			subjectID,
			"Alice",
			9, 2026,
			decimal.NewFromInt(1000000),
			decimal.NewFromInt(100000),
			"September tuition",
		)
		require.NoError(t, err)
		require.NotNil(t, inv)

		assert.Equal(t, "INV-2026-100", inv.InvoiceNumber)
		assert.Equal(t, SubjectTypeStudent, inv.SubjectType)
		assert.Equal(t, subjectID, inv.SubjectID)
		assert.Equal(t, 9, inv.Month)
		assert.Equal(t, 2026, inv.Year)
		assert.True(t, inv.FinalAmount.Equal(decimal.NewFromInt(900000)))
		assert.True(t, inv.PaidAmount.IsZero())
		assert.True(t, inv.RemainingAmount.Equal(decimal.NewFromInt(900000)))
		assert.Equal(t, InvoiceStatusPending, inv.Status)
		assert.Empty(t, inv.Transactions)
		assert.Nil(t, inv.PaidAt)
		assert.Equal(t, 1, inv.GetVersion())
	})

	t.Run("fully discounted invoice is born paid", func(t *testing.T) {
		inv, err := NewInvoice(
			"INV-2026-101",
			SubjectTypeStudent,
			subjectID,
			"Alice",
			9, 2026,
			decimal.NewFromInt(500000),
			decimal.NewFromInt(500000),
			"scholarship",
		)
		require.NoError(t, err)

		assert.Equal(t, InvoiceStatusPaid, inv.Status)
		assert.True(t, inv.FinalAmount.IsZero())
		assert.True(t, inv.RemainingAmount.IsZero())
		assert.NotNil(t, inv.PaidAt)
	})

	t.Run("publishes InvoiceCreated event", func(t *testing.T) {
		inv := createTestInvoice(t)

		events := inv.GetDomainEvents()
		require.Len(t, events, 1)
		created, ok := events[0].(*InvoiceCreatedEvent)
		require.True(t, ok)
		assert.Equal(t, inv.ID, created.InvoiceID)
		assert.Equal(t, "InvoiceCreated", created.EventType())
	})

	t.Run("validation failures", func(t *testing.T) {
		tests := []struct {
			name     string
			mutate   func() (string, SubjectType, uuid.UUID, string, int, int, decimal.Decimal, decimal.Decimal)
			wantCode string
		}{
			{
				"empty invoice number",
				func() (string, SubjectType, uuid.UUID, string, int, int, decimal.Decimal, decimal.Decimal) {
					return "", SubjectTypeStudent, subjectID, "Alice", 1, 2026, decimal.NewFromInt(100), decimal.Zero
				},
				"INVALID_INVOICE_NUMBER",
			},
			{
				"invalid subject type",
				func() (string, SubjectType, uuid.UUID, string, int, int, decimal.Decimal, decimal.Decimal) {
					return "INV-1", SubjectType("PARENT"), subjectID, "Alice", 1, 2026, decimal.NewFromInt(100), decimal.Zero
				},
				"INVALID_SUBJECT_TYPE",
			},
			{
				"nil subject",
				func() (string, SubjectType, uuid.UUID, string, int, int, decimal.Decimal, decimal.Decimal) {
					return "INV-1", SubjectTypeStudent, uuid.Nil, "Alice", 1, 2026, decimal.NewFromInt(100), decimal.Zero
				},
				"INVALID_SUBJECT",
			},
			{
				"month zero",
				func() (string, SubjectType, uuid.UUID, string, int, int, decimal.Decimal, decimal.Decimal) {
					return "INV-1", SubjectTypeStudent, subjectID, "Alice", 0, 2026, decimal.NewFromInt(100), decimal.Zero
				},
				"INVALID_PERIOD",
			},
			{
				"month thirteen",
				func() (string, SubjectType, uuid.UUID, string, int, int, decimal.Decimal, decimal.Decimal) {
					return "INV-1", SubjectTypeStudent, subjectID, "Alice", 13, 2026, decimal.NewFromInt(100), decimal.Zero
				},
				"INVALID_PERIOD",
			},
			{
				"negative total",
				func() (string, SubjectType, uuid.UUID, string, int, int, decimal.Decimal, decimal.Decimal) {
					return "INV-1", SubjectTypeStudent, subjectID, "Alice", 1, 2026, decimal.NewFromInt(-100), decimal.Zero
				},
				"INVALID_AMOUNT",
			},
			{
				"negative discount",
				func() (string, SubjectType, uuid.UUID, string, int, int, decimal.Decimal, decimal.Decimal) {
					return "INV-1", SubjectTypeStudent, subjectID, "Alice", 1, 2026, decimal.NewFromInt(100), decimal.NewFromInt(-10)
				},
				"INVALID_DISCOUNT",
			},
			{
				"discount exceeds total",
				func() (string, SubjectType, uuid.UUID, string, int, int, decimal.Decimal, decimal.Decimal) {
					return "INV-1", SubjectTypeStudent, subjectID, "Alice", 1, 2026, decimal.NewFromInt(100), decimal.NewFromInt(101)
				},
				"INVALID_DISCOUNT",
			},
		}

		for _, tt := range tests {
			t.Run(tt.name, func(t *testing.T) {
				number, st, sid, name, month, year, total, discount := tt.mutate()
				inv, err := NewInvoice(number, st, sid, name, month, year, total, discount, "")
				require.Error(t, err)
				assert.Nil(t, inv)
				assert.Equal(t, tt.wantCode, domainCode(t, err))
			})
		}
	})
}

// ============================================
// RecordPayment Tests
// ============================================

func TestInvoice_RecordPayment(t *testing.T) {
	recordedBy := uuid.New()

	t.Run("partial payment updates derived state", func(t *testing.T) {
		inv := createTestInvoice(t)
		inv.ClearDomainEvents()

		tx, err := inv.RecordPayment(decimal.NewFromInt(450000), PaymentMethodCash, "first half", recordedBy, nil)
		require.NoError(t, err)
		require.NotNil(t, tx)

		assert.True(t, inv.PaidAmount.Equal(decimal.NewFromInt(450000)))
		assert.True(t, inv.RemainingAmount.Equal(decimal.NewFromInt(450000)))
		assert.Equal(t, InvoiceStatusPartial, inv.Status)
		assert.Nil(t, inv.PaidAt)
		assert.Equal(t, 1, inv.TransactionCount())
		assert.Equal(t, 2, inv.GetVersion())

		events := inv.GetDomainEvents()
		require.Len(t, events, 1)
		_, ok := events[0].(*InvoicePaymentRecordedEvent)
		assert.True(t, ok)
	})

	t.Run("full settlement emits paid event after recorded event", func(t *testing.T) {
		inv := createTestInvoice(t)
		inv.ClearDomainEvents()

		_, err := inv.RecordPayment(decimal.NewFromInt(900000), PaymentMethodBankTransfer, "", recordedBy, nil)
		require.NoError(t, err)

		assert.Equal(t, InvoiceStatusPaid, inv.Status)
		assert.True(t, inv.RemainingAmount.IsZero())
		assert.NotNil(t, inv.PaidAt)

		events := inv.GetDomainEvents()
		require.Len(t, events, 2)
		_, ok := events[0].(*InvoicePaymentRecordedEvent)
		assert.True(t, ok)
		_, ok = events[1].(*InvoicePaidEvent)
		assert.True(t, ok)
	})

	t.Run("paid amount is recomputed from history", func(t *testing.T) {
		inv := createTestInvoice(t)

		_, err := inv.RecordPayment(decimal.NewFromInt(300000), PaymentMethodCash, "", recordedBy, nil)
		require.NoError(t, err)
		_, err = inv.RecordPayment(decimal.NewFromInt(300000), PaymentMethodCard, "", recordedBy, nil)
		require.NoError(t, err)
		_, err = inv.RecordPayment(decimal.NewFromInt(300000), PaymentMethodBankTransfer, "", recordedBy, nil)
		require.NoError(t, err)

		assert.True(t, inv.PaidAmount.Equal(inv.Transactions.Sum()))
		assert.True(t, inv.PaidAmount.Equal(decimal.NewFromInt(900000)))
		assert.Equal(t, InvoiceStatusPaid, inv.Status)
		assert.Equal(t, 3, inv.TransactionCount())
	})

	t.Run("rejects zero amount", func(t *testing.T) {
		inv := createTestInvoice(t)

		tx, err := inv.RecordPayment(decimal.Zero, PaymentMethodCash, "", recordedBy, nil)
		require.Error(t, err)
		assert.Nil(t, tx)
		assert.Equal(t, "INVALID_AMOUNT", domainCode(t, err))
	})

	t.Run("rejects negative amount", func(t *testing.T) {
		inv := createTestInvoice(t)

		_, err := inv.RecordPayment(decimal.NewFromInt(-100), PaymentMethodCash, "", recordedBy, nil)
		require.Error(t, err)
		assert.Equal(t, "INVALID_AMOUNT", domainCode(t, err))
	})

	t.Run("rejects amount exceeding remaining balance", func(t *testing.T) {
		inv := createTestInvoice(t)

		_, err := inv.RecordPayment(decimal.NewFromInt(900001), PaymentMethodCash, "", recordedBy, nil)
		require.Error(t, err)
		assert.Equal(t, "INVALID_AMOUNT", domainCode(t, err))

		// State unchanged after rejection
		assert.True(t, inv.PaidAmount.IsZero())
		assert.Equal(t, InvoiceStatusPending, inv.Status)
		assert.Equal(t, 0, inv.TransactionCount())
	})

	t.Run("rejects payment on settled invoice", func(t *testing.T) {
		inv := createTestInvoice(t)

		_, err := inv.RecordPayment(decimal.NewFromInt(900000), PaymentMethodCash, "", recordedBy, nil)
		require.NoError(t, err)

		_, err = inv.RecordPayment(decimal.NewFromInt(1), PaymentMethodCash, "", recordedBy, nil)
		require.Error(t, err)
		assert.Equal(t, "INVALID_AMOUNT", domainCode(t, err))
	})

	t.Run("rejects invalid method", func(t *testing.T) {
		inv := createTestInvoice(t)

		_, err := inv.RecordPayment(decimal.NewFromInt(100), PaymentMethod("CHEQUE"), "", recordedBy, nil)
		require.Error(t, err)
		assert.Equal(t, "INVALID_METHOD", domainCode(t, err))
	})

	t.Run("rejects nil actor", func(t *testing.T) {
		inv := createTestInvoice(t)

		_, err := inv.RecordPayment(decimal.NewFromInt(100), PaymentMethodCash, "", uuid.Nil, nil)
		require.Error(t, err)
		assert.Equal(t, "INVALID_ACTOR", domainCode(t, err))
	})

	t.Run("links transaction to approving request", func(t *testing.T) {
		inv := createTestInvoice(t)
		requestID := uuid.New()

		tx, err := inv.RecordPayment(decimal.NewFromInt(100), PaymentMethodBankTransfer, "", recordedBy, &requestID)
		require.NoError(t, err)
		require.NotNil(t, tx.RequestID)
		assert.Equal(t, requestID, *tx.RequestID)
	})
}

// ============================================
// Derived helpers
// ============================================

func TestInvoice_PaidPercentage(t *testing.T) {
	recordedBy := uuid.New()

	inv := createTestInvoiceWithAmounts(t, 1000, 0)
	assert.True(t, inv.PaidPercentage().IsZero())

	_, err := inv.RecordPayment(decimal.NewFromInt(250), PaymentMethodCash, "", recordedBy, nil)
	require.NoError(t, err)
	assert.True(t, inv.PaidPercentage().Equal(decimal.NewFromInt(25)))

	zero := createTestInvoiceWithAmounts(t, 500, 500)
	assert.True(t, zero.PaidPercentage().Equal(decimal.NewFromInt(100)))
}

// ============================================
// Transactions JSONB Tests
// ============================================

func TestTransactions_Value_Scan(t *testing.T) {
	recordedBy := uuid.New()
	txs := Transactions{
		*NewTransaction(decimal.NewFromInt(100), PaymentMethodCash, "a", recordedBy, nil),
		*NewTransaction(decimal.NewFromInt(200), PaymentMethodCard, "b", recordedBy, nil),
	}

	value, err := txs.Value()
	require.NoError(t, err)

	var decoded Transactions
	require.NoError(t, decoded.Scan(value))
	require.Len(t, decoded, 2)
	assert.True(t, decoded.Sum().Equal(decimal.NewFromInt(300)))
	assert.Equal(t, txs[0].ID, decoded[0].ID)
	assert.Equal(t, PaymentMethodCard, decoded[1].Method)
}

func TestTransactions_Scan_Nil(t *testing.T) {
	var txs Transactions
	require.NoError(t, txs.Scan(nil))
	assert.Empty(t, txs)
	assert.True(t, txs.Sum().IsZero())
}

func TestTransactions_Value_Nil(t *testing.T) {
	var txs Transactions
	value, err := txs.Value()
	require.NoError(t, err)
	assert.Equal(t, "[]", value)
}
