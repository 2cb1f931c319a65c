package handler

import (
	"fmt"
	"net/http"
	"testing"

	domainledger "github.com/schoolfin/backend/internal/domain/ledger"
	"github.com/schoolfin/backend/internal/domain/shared"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
)

func TestInvoiceHandler_Create(t *testing.T) {
	invoiceRepo := new(MockInvoiceRepository)
	reportRepo := new(MockLedgerReportRepository)
	r := invoiceRouter(invoiceRepo, reportRepo)

	invoiceRepo.On("ExistsByInvoiceNumber", mock.Anything, "INV-2026-03-0001").Return(false, nil)
	invoiceRepo.On("Save", mock.Anything, mock.AnythingOfType("*ledger.Invoice")).Return(nil)

	body := fmt.Sprintf(`{
		"invoice_number": "INV-2026-03-0001",
		"subject_type": "STUDENT",
		"subject_id": %q,
		"subject_name": "Alice Zhang",
		"month": 3,
		"year": 2026,
		"total_amount": "900.00"
	}`, testUserID)

	w := doJSON(r, http.MethodPost, "/api/v1/invoices", body)

	assert.Equal(t, http.StatusCreated, w.Code)
	assert.Contains(t, w.Body.String(), "INV-2026-03-0001")
	assert.Contains(t, w.Body.String(), `"status":"PENDING"`)
	invoiceRepo.AssertExpectations(t)
}

func TestInvoiceHandler_Create_DuplicateNumber(t *testing.T) {
	invoiceRepo := new(MockInvoiceRepository)
	r := invoiceRouter(invoiceRepo, new(MockLedgerReportRepository))

	invoiceRepo.On("ExistsByInvoiceNumber", mock.Anything, "INV-2026-03-0001").Return(true, nil)

	body := fmt.Sprintf(`{
		"invoice_number": "INV-2026-03-0001",
		"subject_type": "STUDENT",
		"subject_id": %q,
		"subject_name": "Alice Zhang",
		"month": 3,
		"year": 2026,
		"total_amount": "900.00"
	}`, testUserID)

	w := doJSON(r, http.MethodPost, "/api/v1/invoices", body)

	assert.Equal(t, http.StatusConflict, w.Code)
	assert.Contains(t, w.Body.String(), "ERR_ALREADY_EXISTS")
}

func TestInvoiceHandler_Create_InvalidBody(t *testing.T) {
	r := invoiceRouter(new(MockInvoiceRepository), new(MockLedgerReportRepository))

	w := doJSON(r, http.MethodPost, "/api/v1/invoices", `{"subject_type": "ALIEN"}`)

	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestInvoiceHandler_GetByID(t *testing.T) {
	invoiceRepo := new(MockInvoiceRepository)
	r := invoiceRouter(invoiceRepo, new(MockLedgerReportRepository))

	inv := newTestInvoice(t)
	invoiceRepo.On("FindByID", mock.Anything, inv.ID).Return(inv, nil)

	w := doJSON(r, http.MethodGet, "/api/v1/invoices/"+inv.ID.String(), "")

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), inv.InvoiceNumber)
}

func TestInvoiceHandler_GetByID_NotFound(t *testing.T) {
	invoiceRepo := new(MockInvoiceRepository)
	r := invoiceRouter(invoiceRepo, new(MockLedgerReportRepository))

	invoiceRepo.On("FindByID", mock.Anything, mock.Anything).Return(nil, shared.ErrNotFound)

	w := doJSON(r, http.MethodGet, "/api/v1/invoices/"+testUserID.String(), "")

	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Contains(t, w.Body.String(), "ERR_NOT_FOUND")
}

func TestInvoiceHandler_GetByID_InvalidUUID(t *testing.T) {
	r := invoiceRouter(new(MockInvoiceRepository), new(MockLedgerReportRepository))

	w := doJSON(r, http.MethodGet, "/api/v1/invoices/not-a-uuid", "")

	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestInvoiceHandler_GetByNumber(t *testing.T) {
	invoiceRepo := new(MockInvoiceRepository)
	r := invoiceRouter(invoiceRepo, new(MockLedgerReportRepository))

	inv := newTestInvoice(t)
	invoiceRepo.On("FindByInvoiceNumber", mock.Anything, inv.InvoiceNumber).Return(inv, nil)

	w := doJSON(r, http.MethodGet, "/api/v1/invoices/number/"+inv.InvoiceNumber, "")

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), inv.ID.String())
}

func TestInvoiceHandler_List(t *testing.T) {
	invoiceRepo := new(MockInvoiceRepository)
	r := invoiceRouter(invoiceRepo, new(MockLedgerReportRepository))

	inv := newTestInvoice(t)
	invoiceRepo.On("FindAll", mock.Anything, mock.Anything).Return([]domainledger.Invoice{*inv}, nil)
	invoiceRepo.On("Count", mock.Anything, mock.Anything).Return(int64(1), nil)

	w := doJSON(r, http.MethodGet, "/api/v1/invoices?status=PENDING&page=1&page_size=10", "")

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"total":1`)
	assert.Contains(t, w.Body.String(), inv.InvoiceNumber)
}

func TestInvoiceHandler_RecordTransaction(t *testing.T) {
	invoiceRepo := new(MockInvoiceRepository)
	r := invoiceRouter(invoiceRepo, new(MockLedgerReportRepository))

	inv := newTestInvoice(t)
	invoiceRepo.On("FindByID", mock.Anything, inv.ID).Return(inv, nil)
	invoiceRepo.On("SaveWithLock", mock.Anything, mock.AnythingOfType("*ledger.Invoice")).Return(nil)

	w := doJSON(r, http.MethodPost, "/api/v1/invoices/"+inv.ID.String()+"/transactions",
		`{"amount": "400.00", "method": "CASH"}`)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"status":"PARTIAL"`)
	assert.Contains(t, w.Body.String(), `"paid_amount":"400"`)
}

func TestInvoiceHandler_RecordTransaction_Overpayment(t *testing.T) {
	invoiceRepo := new(MockInvoiceRepository)
	r := invoiceRouter(invoiceRepo, new(MockLedgerReportRepository))

	inv := newTestInvoice(t)
	invoiceRepo.On("FindByID", mock.Anything, inv.ID).Return(inv, nil)

	w := doJSON(r, http.MethodPost, "/api/v1/invoices/"+inv.ID.String()+"/transactions",
		`{"amount": "1000.00", "method": "CASH"}`)

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), "ERR_INVALID_INPUT")
}

func TestInvoiceHandler_RecordTransaction_NoActor(t *testing.T) {
	invoiceRepo := new(MockInvoiceRepository)
	r := invoiceRouter(invoiceRepo, new(MockLedgerReportRepository))

	inv := newTestInvoice(t)

	// No X-User-ID header and no JWT claims
	w := doJSONWithoutUser(r, http.MethodPost, "/api/v1/invoices/"+inv.ID.String()+"/transactions",
		`{"amount": "400.00", "method": "CASH"}`)

	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestInvoiceHandler_GetStatistics(t *testing.T) {
	reportRepo := new(MockLedgerReportRepository)
	r := invoiceRouter(new(MockInvoiceRepository), reportRepo)

	stats := domainledger.AggregateStatistics{
		InvoiceCount:   3,
		PaidCount:      1,
		PartialCount:   1,
		PendingCount:   1,
		TotalGross:     decimal.RequireFromString("2700.00"),
		TotalPaid:      decimal.RequireFromString("1350.00"),
		TotalRemaining: decimal.RequireFromString("1350.00"),
	}
	reportRepo.On("Statistics", mock.Anything, mock.Anything, domainledger.SubjectTypeStudent).Return(stats, nil)

	w := doJSON(r, http.MethodGet, "/api/v1/statistics?kind=month&year=2026&month=3&subject_type=STUDENT", "")

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"invoice_count":3`)
	assert.Contains(t, w.Body.String(), `"period":"2026-03"`)
	assert.Contains(t, w.Body.String(), `"collection_rate":"50"`)
}

func TestInvoiceHandler_GetStatistics_InvalidPeriod(t *testing.T) {
	r := invoiceRouter(new(MockInvoiceRepository), new(MockLedgerReportRepository))

	// month kind without a month
	w := doJSON(r, http.MethodGet, "/api/v1/statistics?kind=month&year=2026", "")

	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestInvoiceHandler_GetStatisticsBySubject(t *testing.T) {
	reportRepo := new(MockLedgerReportRepository)
	r := invoiceRouter(new(MockInvoiceRepository), reportRepo)

	rows := []domainledger.SubjectStatistics{
		{
			SubjectType:    domainledger.SubjectTypeStudent,
			SubjectID:      testUserID,
			SubjectName:    "Alice Zhang",
			InvoiceCount:   2,
			TotalGross:     decimal.RequireFromString("1800.00"),
			TotalPaid:      decimal.RequireFromString("900.00"),
			TotalRemaining: decimal.RequireFromString("900.00"),
		},
	}
	reportRepo.On("StatisticsBySubject", mock.Anything, mock.Anything, domainledger.SubjectType("")).Return(rows, nil)

	w := doJSON(r, http.MethodGet, "/api/v1/statistics/subjects?kind=year&year=2026", "")

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "Alice Zhang")
}

func TestInvoiceHandler_Export(t *testing.T) {
	invoiceRepo := new(MockInvoiceRepository)
	r := invoiceRouter(invoiceRepo, new(MockLedgerReportRepository))

	inv := newTestInvoice(t)
	invoiceRepo.On("FindByPeriod", mock.Anything, mock.Anything, mock.Anything).
		Return([]domainledger.Invoice{*inv}, nil)

	w := doJSON(r, http.MethodGet, "/api/v1/statistics/export?kind=month&year=2026&month=3", "")

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Header().Get("Content-Type"), "text/csv")
	assert.Contains(t, w.Header().Get("Content-Disposition"), "attachment")
	assert.Contains(t, w.Body.String(), "invoice_number,subject_type,subject_name,period")
	assert.Contains(t, w.Body.String(), "INV-2026-03-0001,STUDENT,Alice Zhang,2026-03,900.00")
}
