package handler

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	ledgerapp "github.com/schoolfin/backend/internal/application/ledger"
	domainledger "github.com/schoolfin/backend/internal/domain/ledger"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func init() {
	gin.SetMode(gin.TestMode)
}

// MockInvoiceRepository is a mock implementation of ledger.InvoiceRepository
type MockInvoiceRepository struct {
	mock.Mock
}

func (m *MockInvoiceRepository) FindByID(ctx context.Context, id uuid.UUID) (*domainledger.Invoice, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domainledger.Invoice), args.Error(1)
}

func (m *MockInvoiceRepository) FindByInvoiceNumber(ctx context.Context, invoiceNumber string) (*domainledger.Invoice, error) {
	args := m.Called(ctx, invoiceNumber)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domainledger.Invoice), args.Error(1)
}

func (m *MockInvoiceRepository) FindAll(ctx context.Context, filter domainledger.InvoiceFilter) ([]domainledger.Invoice, error) {
	args := m.Called(ctx, filter)
	return args.Get(0).([]domainledger.Invoice), args.Error(1)
}

func (m *MockInvoiceRepository) FindByPeriod(ctx context.Context, period domainledger.PeriodFilter, filter domainledger.InvoiceFilter) ([]domainledger.Invoice, error) {
	args := m.Called(ctx, period, filter)
	return args.Get(0).([]domainledger.Invoice), args.Error(1)
}

func (m *MockInvoiceRepository) Save(ctx context.Context, invoice *domainledger.Invoice) error {
	args := m.Called(ctx, invoice)
	return args.Error(0)
}

func (m *MockInvoiceRepository) SaveWithLock(ctx context.Context, invoice *domainledger.Invoice) error {
	args := m.Called(ctx, invoice)
	return args.Error(0)
}

func (m *MockInvoiceRepository) Count(ctx context.Context, filter domainledger.InvoiceFilter) (int64, error) {
	args := m.Called(ctx, filter)
	return args.Get(0).(int64), args.Error(1)
}

func (m *MockInvoiceRepository) ExistsByInvoiceNumber(ctx context.Context, invoiceNumber string) (bool, error) {
	args := m.Called(ctx, invoiceNumber)
	return args.Bool(0), args.Error(1)
}

// MockLedgerReportRepository is a mock implementation of ledger.LedgerReportRepository
type MockLedgerReportRepository struct {
	mock.Mock
}

func (m *MockLedgerReportRepository) Statistics(ctx context.Context, period domainledger.PeriodFilter, subjectType domainledger.SubjectType) (domainledger.AggregateStatistics, error) {
	args := m.Called(ctx, period, subjectType)
	return args.Get(0).(domainledger.AggregateStatistics), args.Error(1)
}

func (m *MockLedgerReportRepository) StatisticsBySubject(ctx context.Context, period domainledger.PeriodFilter, subjectType domainledger.SubjectType) ([]domainledger.SubjectStatistics, error) {
	args := m.Called(ctx, period, subjectType)
	return args.Get(0).([]domainledger.SubjectStatistics), args.Error(1)
}

// MockPaymentRequestRepository is a mock implementation of ledger.PaymentRequestRepository
type MockPaymentRequestRepository struct {
	mock.Mock
}

func (m *MockPaymentRequestRepository) FindByID(ctx context.Context, id uuid.UUID) (*domainledger.PaymentRequest, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domainledger.PaymentRequest), args.Error(1)
}

func (m *MockPaymentRequestRepository) FindAll(ctx context.Context, filter domainledger.PaymentRequestFilter) ([]domainledger.PaymentRequest, error) {
	args := m.Called(ctx, filter)
	return args.Get(0).([]domainledger.PaymentRequest), args.Error(1)
}

func (m *MockPaymentRequestRepository) FindPendingByInvoice(ctx context.Context, invoiceID uuid.UUID) ([]domainledger.PaymentRequest, error) {
	args := m.Called(ctx, invoiceID)
	return args.Get(0).([]domainledger.PaymentRequest), args.Error(1)
}

func (m *MockPaymentRequestRepository) Save(ctx context.Context, request *domainledger.PaymentRequest) error {
	args := m.Called(ctx, request)
	return args.Error(0)
}

func (m *MockPaymentRequestRepository) SaveWithLock(ctx context.Context, request *domainledger.PaymentRequest) error {
	args := m.Called(ctx, request)
	return args.Error(0)
}

func (m *MockPaymentRequestRepository) Count(ctx context.Context, filter domainledger.PaymentRequestFilter) (int64, error) {
	args := m.Called(ctx, filter)
	return args.Get(0).(int64), args.Error(1)
}

// newTestInvoice builds a valid student invoice owing 900.00
func newTestInvoice(t *testing.T) *domainledger.Invoice {
	t.Helper()
	inv, err := domainledger.NewInvoice(
		"INV-2026-03-0001",
		domainledger.SubjectTypeStudent,
		uuid.New(),
		"Alice Zhang",
		3, 2026,
		decimal.RequireFromString("900.00"),
		decimal.Zero,
		"",
	)
	require.NoError(t, err)
	inv.ClearDomainEvents()
	return inv
}

// invoiceRouter wires an invoice handler behind a bare test engine
func invoiceRouter(invoiceRepo *MockInvoiceRepository, reportRepo *MockLedgerReportRepository) *gin.Engine {
	svc := ledgerapp.NewInvoiceService(invoiceRepo, reportRepo)
	h := NewInvoiceHandler(svc)

	r := gin.New()
	api := r.Group("/api/v1")
	h.RegisterRoutes(api)
	return r
}

// requestRouter wires a payment request handler behind a bare test engine
func requestRouter(requestRepo *MockPaymentRequestRepository, invoiceRepo *MockInvoiceRepository) *gin.Engine {
	invoiceSvc := ledgerapp.NewInvoiceService(invoiceRepo, nil)
	svc := ledgerapp.NewPaymentRequestService(requestRepo, invoiceRepo, invoiceSvc, zap.NewNop())
	h := NewPaymentRequestHandler(svc)

	r := gin.New()
	api := r.Group("/api/v1")
	h.RegisterRoutes(api)
	return r
}

// doJSONWithoutUser performs a JSON request with no acting user attached
func doJSONWithoutUser(r *gin.Engine, method, path, body string) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	r.ServeHTTP(w, req)
	return w
}

// doJSON performs a JSON request with a development user header
func doJSON(r *gin.Engine, method, path, body string) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	var req *http.Request
	if body != "" {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	} else {
		req = httptest.NewRequest(method, path, nil)
	}
	req.Header.Set("X-User-ID", testUserID.String())
	r.ServeHTTP(w, req)
	return w
}

var testUserID = uuid.New()
