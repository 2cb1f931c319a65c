package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/schoolfin/backend/internal/domain/ledger"
	"github.com/schoolfin/backend/internal/domain/shared"
	"github.com/shopspring/decimal"
)

// InvoiceModel is the persistence model for the Invoice aggregate root.
// Transactions are embedded as a JSONB column; they are value objects of
// the aggregate and are always read and written with it.
type InvoiceModel struct {
	AggregateModel
	InvoiceNumber   string               `gorm:"type:varchar(50);not null;uniqueIndex"`
	SubjectType     ledger.SubjectType   `gorm:"type:varchar(20);not null;index:idx_invoices_subject,priority:1"`
	SubjectID       uuid.UUID            `gorm:"type:uuid;not null;index:idx_invoices_subject,priority:2"`
	SubjectName     string               `gorm:"type:varchar(200);not null"`
	Month           int                  `gorm:"not null;index:idx_invoices_period,priority:2"`
	Year            int                  `gorm:"not null;index:idx_invoices_period,priority:1"`
	TotalAmount     decimal.Decimal      `gorm:"type:decimal(18,2);not null"`
	DiscountAmount  decimal.Decimal      `gorm:"type:decimal(18,2);not null"`
	FinalAmount     decimal.Decimal      `gorm:"type:decimal(18,2);not null"`
	PaidAmount      decimal.Decimal      `gorm:"type:decimal(18,2);not null"`
	RemainingAmount decimal.Decimal      `gorm:"type:decimal(18,2);not null;index"`
	Status          ledger.InvoiceStatus `gorm:"type:varchar(20);not null;default:'PENDING';index"`
	Transactions    ledger.Transactions  `gorm:"type:jsonb;default:'[]'"`
	Remark          string               `gorm:"type:text"`
	PaidAt          *time.Time
}

// TableName returns the table name for GORM
func (InvoiceModel) TableName() string {
	return "invoices"
}

// ToDomain converts the persistence model to a domain Invoice entity.
func (m *InvoiceModel) ToDomain() *ledger.Invoice {
	return &ledger.Invoice{
		BaseAggregateRoot: shared.BaseAggregateRoot{
			BaseEntity: shared.BaseEntity{
				ID:        m.ID,
				CreatedAt: m.CreatedAt,
				UpdatedAt: m.UpdatedAt,
			},
			Version: m.Version,
		},
		InvoiceNumber:   m.InvoiceNumber,
		SubjectType:     m.SubjectType,
		SubjectID:       m.SubjectID,
		SubjectName:     m.SubjectName,
		Month:           m.Month,
		Year:            m.Year,
		TotalAmount:     m.TotalAmount,
		DiscountAmount:  m.DiscountAmount,
		FinalAmount:     m.FinalAmount,
		PaidAmount:      m.PaidAmount,
		RemainingAmount: m.RemainingAmount,
		Status:          m.Status,
		Transactions:    m.Transactions,
		Remark:          m.Remark,
		PaidAt:          m.PaidAt,
	}
}

// FromDomain populates the persistence model from a domain Invoice entity.
func (m *InvoiceModel) FromDomain(inv *ledger.Invoice) {
	m.FromDomainAggregateRoot(inv.BaseAggregateRoot)
	m.InvoiceNumber = inv.InvoiceNumber
	m.SubjectType = inv.SubjectType
	m.SubjectID = inv.SubjectID
	m.SubjectName = inv.SubjectName
	m.Month = inv.Month
	m.Year = inv.Year
	m.TotalAmount = inv.TotalAmount
	m.DiscountAmount = inv.DiscountAmount
	m.FinalAmount = inv.FinalAmount
	m.PaidAmount = inv.PaidAmount
	m.RemainingAmount = inv.RemainingAmount
	m.Status = inv.Status
	m.Transactions = inv.Transactions
	m.Remark = inv.Remark
	m.PaidAt = inv.PaidAt
}

// InvoiceModelFromDomain creates a new persistence model from a domain Invoice.
func InvoiceModelFromDomain(inv *ledger.Invoice) *InvoiceModel {
	m := &InvoiceModel{}
	m.FromDomain(inv)
	return m
}

// PaymentRequestModel is the persistence model for the PaymentRequest aggregate root.
type PaymentRequestModel struct {
	AggregateModel
	InvoiceID       uuid.UUID            `gorm:"type:uuid;not null;index"`
	Amount          decimal.Decimal      `gorm:"type:decimal(18,2);not null"`
	ProofRef        string               `gorm:"type:varchar(500);not null"`
	Status          ledger.RequestStatus `gorm:"type:varchar(20);not null;default:'PENDING';index"`
	RequestedBy     uuid.UUID            `gorm:"type:uuid;not null;index"`
	RequestedAt     time.Time            `gorm:"not null"`
	ProcessedBy     *uuid.UUID           `gorm:"type:uuid"`
	ProcessedAt     *time.Time
	RejectionReason string `gorm:"type:varchar(500)"`
}

// TableName returns the table name for GORM
func (PaymentRequestModel) TableName() string {
	return "payment_requests"
}

// ToDomain converts the persistence model to a domain PaymentRequest entity.
func (m *PaymentRequestModel) ToDomain() *ledger.PaymentRequest {
	return &ledger.PaymentRequest{
		BaseAggregateRoot: shared.BaseAggregateRoot{
			BaseEntity: shared.BaseEntity{
				ID:        m.ID,
				CreatedAt: m.CreatedAt,
				UpdatedAt: m.UpdatedAt,
			},
			Version: m.Version,
		},
		InvoiceID:       m.InvoiceID,
		Amount:          m.Amount,
		ProofRef:        m.ProofRef,
		Status:          m.Status,
		RequestedBy:     m.RequestedBy,
		RequestedAt:     m.RequestedAt,
		ProcessedBy:     m.ProcessedBy,
		ProcessedAt:     m.ProcessedAt,
		RejectionReason: m.RejectionReason,
	}
}

// FromDomain populates the persistence model from a domain PaymentRequest entity.
func (m *PaymentRequestModel) FromDomain(pr *ledger.PaymentRequest) {
	m.FromDomainAggregateRoot(pr.BaseAggregateRoot)
	m.InvoiceID = pr.InvoiceID
	m.Amount = pr.Amount
	m.ProofRef = pr.ProofRef
	m.Status = pr.Status
	m.RequestedBy = pr.RequestedBy
	m.RequestedAt = pr.RequestedAt
	m.ProcessedBy = pr.ProcessedBy
	m.ProcessedAt = pr.ProcessedAt
	m.RejectionReason = pr.RejectionReason
}

// PaymentRequestModelFromDomain creates a new persistence model from a domain PaymentRequest.
func PaymentRequestModelFromDomain(pr *ledger.PaymentRequest) *PaymentRequestModel {
	m := &PaymentRequestModel{}
	m.FromDomain(pr)
	return m
}

// AllModels returns every model registered for schema migration
func AllModels() []interface{} {
	return []interface{}{
		&InvoiceModel{},
		&PaymentRequestModel{},
	}
}
