package handler

import (
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	ledgerapp "github.com/schoolfin/backend/internal/application/ledger"
)

// PaymentRequestHandler handles the payment request approval workflow endpoints
type PaymentRequestHandler struct {
	BaseHandler
	requestService *ledgerapp.PaymentRequestService
}

// NewPaymentRequestHandler creates a new PaymentRequestHandler
func NewPaymentRequestHandler(requestService *ledgerapp.PaymentRequestService) *PaymentRequestHandler {
	return &PaymentRequestHandler{
		requestService: requestService,
	}
}

// RegisterRoutes registers payment request routes on the given group
func (h *PaymentRequestHandler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.POST("/invoices/:id/payment-requests", h.Submit)

	requests := rg.Group("/payment-requests")
	{
		requests.GET("", h.List)
		requests.GET("/:id", h.GetByID)
		requests.POST("/:id/process", h.Process)
	}
}

// Submit submits a proof-backed payment request against an invoice
func (h *PaymentRequestHandler) Submit(c *gin.Context) {
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

	var input ledgerapp.SubmitRequestInput
	if err := c.ShouldBindJSON(&input); err != nil {
		h.BindingError(c, err)
		return
	}

	request, err := h.requestService.SubmitRequest(c.Request.Context(), invoiceID, input, userID)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Created(c, request)
}

// GetByID retrieves a payment request
func (h *PaymentRequestHandler) GetByID(c *gin.Context) {
	requestID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		h.BadRequest(c, "Invalid payment request ID format")
		return
	}

	request, err := h.requestService.GetRequestByID(c.Request.Context(), requestID)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Success(c, request)
}

// List returns a filtered, paginated list of payment requests
func (h *PaymentRequestHandler) List(c *gin.Context) {
	var filter ledgerapp.RequestListFilter
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

	requests, total, err := h.requestService.ListRequests(c.Request.Context(), filter)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.SuccessWithMeta(c, requests, total, filter.Page, filter.PageSize)
}

// Process applies a staff decision (approve or reject) to a pending request
func (h *PaymentRequestHandler) Process(c *gin.Context) {
	requestID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		h.BadRequest(c, "Invalid payment request ID format")
		return
	}

	userID, err := getUserID(c)
	if err != nil {
		h.Unauthorized(c, "Acting user could not be identified")
		return
	}

	var input ledgerapp.ProcessRequestInput
	if err := c.ShouldBindJSON(&input); err != nil {
		h.BindingError(c, err)
		return
	}

	request, err := h.requestService.ProcessRequest(c.Request.Context(), requestID, input, userID)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Success(c, request)
}
