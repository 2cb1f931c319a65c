package handler

import (
	"encoding/csv"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	ledgerapp "github.com/schoolfin/backend/internal/application/ledger"
)

// InvoiceHandler handles invoice ledger API endpoints
type InvoiceHandler struct {
	BaseHandler
	invoiceService *ledgerapp.InvoiceService
}

// NewInvoiceHandler creates a new InvoiceHandler
func NewInvoiceHandler(invoiceService *ledgerapp.InvoiceService) *InvoiceHandler {
	return &InvoiceHandler{
		invoiceService: invoiceService,
	}
}

// RegisterRoutes registers invoice routes on the given group
func (h *InvoiceHandler) RegisterRoutes(rg *gin.RouterGroup) {
	invoices := rg.Group("/invoices")
	{
		invoices.POST("", h.Create)
		invoices.GET("", h.List)
		invoices.GET("/:id", h.GetByID)
		invoices.GET("/number/:number", h.GetByNumber)
		invoices.POST("/:id/transactions", h.RecordTransaction)
	}

	statistics := rg.Group("/statistics")
	{
		statistics.GET("", h.GetStatistics)
		statistics.GET("/subjects", h.GetStatisticsBySubject)
		statistics.GET("/export", h.Export)
	}
}

// Create creates a new invoice for a billing period
func (h *InvoiceHandler) Create(c *gin.Context) {
	var req ledgerapp.CreateInvoiceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BindingError(c, err)
		return
	}

	invoice, err := h.invoiceService.CreateInvoice(c.Request.Context(), req)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Created(c, invoice)
}

// GetByID retrieves an invoice with its transaction history
func (h *InvoiceHandler) GetByID(c *gin.Context) {
	invoiceID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		h.BadRequest(c, "Invalid invoice ID format")
		return
	}

	invoice, err := h.invoiceService.GetInvoiceByID(c.Request.Context(), invoiceID)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Success(c, invoice)
}

// GetByNumber retrieves an invoice by its business number
func (h *InvoiceHandler) GetByNumber(c *gin.Context) {
	number := c.Param("number")
	if number == "" {
		h.BadRequest(c, "Invoice number is required")
		return
	}

	invoice, err := h.invoiceService.GetInvoiceByNumber(c.Request.Context(), number)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Success(c, invoice)
}

// List returns a filtered, paginated list of invoices
func (h *InvoiceHandler) List(c *gin.Context) {
	var filter ledgerapp.InvoiceListFilter
	if err := c.ShouldBindQuery(&filter); err != nil {
		h.BindingError(c, err)
		return
	}
	if filter.Page < 1 {
		filter.Page = 1
	}
	if filter.PageSize < 1 {
		filter.PageSize = 20
	}

	invoices, total, err := h.invoiceService.ListInvoices(c.Request.Context(), filter)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.SuccessWithMeta(c, invoices, total, filter.Page, filter.PageSize)
}

// RecordTransaction records a direct payment against an invoice
func (h *InvoiceHandler) RecordTransaction(c *gin.Context) {
	invoiceID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		h.BadRequest(c, "Invalid invoice ID format")
		return
	}

	userID, err := getUserID(c)
	if err != nil {
		h.Unauthorized(c, "Acting user could not be identified")
		return
	}

	var req ledgerapp.RecordTransactionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BindingError(c, err)
		return
	}

	invoice, err := h.invoiceService.RecordTransaction(c.Request.Context(), invoiceID, req, userID)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Success(c, invoice)
}

// GetStatistics returns aggregated totals for a billing period
func (h *InvoiceHandler) GetStatistics(c *gin.Context) {
	var query ledgerapp.StatisticsQuery
	if err := c.ShouldBindQuery(&query); err != nil {
		h.BindingError(c, err)
		return
	}

	stats, err := h.invoiceService.GetStatistics(c.Request.Context(), query)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Success(c, stats)
}

// GetStatisticsBySubject returns per-subject totals within a billing period
func (h *InvoiceHandler) GetStatisticsBySubject(c *gin.Context) {
	var query ledgerapp.StatisticsQuery
	if err := c.ShouldBindQuery(&query); err != nil {
		h.BindingError(c, err)
		return
	}

	stats, err := h.invoiceService.GetStatisticsBySubject(c.Request.Context(), query)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Success(c, stats)
}

var exportHeader = []string{
	"invoice_number", "subject_type", "subject_name", "period",
	"total_amount", "discount_amount", "final_amount",
	"paid_amount", "remaining_amount", "status",
}

// Export streams the invoices of a period as a CSV download
func (h *InvoiceHandler) Export(c *gin.Context) {
	var query ledgerapp.StatisticsQuery
	if err := c.ShouldBindQuery(&query); err != nil {
		h.BindingError(c, err)
		return
	}

	rows, err := h.invoiceService.ExportInvoices(c.Request.Context(), query)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	filename := fmt.Sprintf("ledger-export-%s.csv", time.Now().Format("20060102-150405"))
	c.Header("Content-Type", "text/csv; charset=utf-8")
	c.Header("Content-Disposition", fmt.Sprintf(`attachment; filename=%q`, filename))
	c.Status(http.StatusOK)

	w := csv.NewWriter(c.Writer)
	_ = w.Write(exportHeader)
	for i := range rows {
		row := &rows[i]
		_ = w.Write([]string{
			row.InvoiceNumber,
			row.SubjectType,
			row.SubjectName,
			row.Period,
			row.TotalAmount.StringFixed(2),
			row.DiscountAmount.StringFixed(2),
			row.FinalAmount.StringFixed(2),
			row.PaidAmount.StringFixed(2),
			row.RemainingAmount.StringFixed(2),
			row.Status,
		})
	}
	w.Flush()
}
