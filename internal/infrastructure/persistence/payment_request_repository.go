package persistence

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/schoolfin/backend/internal/domain/ledger"
	"github.com/schoolfin/backend/internal/domain/shared"
	"github.com/schoolfin/backend/internal/infrastructure/persistence/models"
	"gorm.io/gorm"
)

// GormPaymentRequestRepository implements PaymentRequestRepository using GORM
type GormPaymentRequestRepository struct {
	db *gorm.DB
}

// NewGormPaymentRequestRepository creates a new GormPaymentRequestRepository
func NewGormPaymentRequestRepository(db *gorm.DB) *GormPaymentRequestRepository {
	return &GormPaymentRequestRepository{db: db}
}

// FindByID finds a payment request by its ID
func (r *GormPaymentRequestRepository) FindByID(ctx context.Context, id uuid.UUID) (*ledger.PaymentRequest, error) {
	var model models.PaymentRequestModel
	if err := r.db.WithContext(ctx).
		First(&model, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return model.ToDomain(), nil
}

// FindAll finds payment requests matching the filter
func (r *GormPaymentRequestRepository) FindAll(ctx context.Context, filter ledger.PaymentRequestFilter) ([]ledger.PaymentRequest, error) {
	var requestModels []models.PaymentRequestModel
	query := r.db.WithContext(ctx).Model(&models.PaymentRequestModel{})
	query = r.applyFilter(query, filter)

	if err := query.Find(&requestModels).Error; err != nil {
		return nil, err
	}
	return toDomainRequests(requestModels), nil
}

// FindPendingByInvoice finds pending requests against an invoice
func (r *GormPaymentRequestRepository) FindPendingByInvoice(ctx context.Context, invoiceID uuid.UUID) ([]ledger.PaymentRequest, error) {
	var requestModels []models.PaymentRequestModel
	if err := r.db.WithContext(ctx).
		Where("invoice_id = ? AND status = ?", invoiceID, ledger.RequestStatusPending).
		Order("created_at asc").
		Find(&requestModels).Error; err != nil {
		return nil, err
	}
	return toDomainRequests(requestModels), nil
}

// Save creates or updates a payment request
func (r *GormPaymentRequestRepository) Save(ctx context.Context, request *ledger.PaymentRequest) error {
	model := models.PaymentRequestModelFromDomain(request)
	if err := r.db.WithContext(ctx).Save(model).Error; err != nil {
		if isUniqueViolation(err) {
			return shared.NewDomainError("DUPLICATE_PENDING_REQUEST",
				"Invoice already has a pending payment request")
		}
		return err
	}
	return nil
}

// isUniqueViolation reports whether err is a unique constraint violation
// (SQLSTATE 23505). The partial unique index on pending requests fires when
// two submissions race past the application-level pending check.
func isUniqueViolation(err error) bool {
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}

// SaveWithLock saves with optimistic locking. All columns are written,
// including nil ones, so releasing a claim clears processed_by again.
func (r *GormPaymentRequestRepository) SaveWithLock(ctx context.Context, request *ledger.PaymentRequest) error {
	model := models.PaymentRequestModelFromDomain(request)
	result := r.db.WithContext(ctx).
		Model(model).
		Where("id = ? AND version = ?", request.ID, request.Version-1).
		Select("*").Omit("id", "created_at").
		Updates(model)

	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return shared.NewDomainError("OPTIMISTIC_LOCK_ERROR", "The record has been modified by another transaction")
	}
	return nil
}

// Count counts payment requests matching the filter
func (r *GormPaymentRequestRepository) Count(ctx context.Context, filter ledger.PaymentRequestFilter) (int64, error) {
	var count int64
	query := r.db.WithContext(ctx).Model(&models.PaymentRequestModel{})
	query = r.applyFilterWithoutPagination(query, filter)

	if err := query.Count(&count).Error; err != nil {
		return 0, err
	}
	return count, nil
}

func toDomainRequests(requestModels []models.PaymentRequestModel) []ledger.PaymentRequest {
	requests := make([]ledger.PaymentRequest, len(requestModels))
	for i, model := range requestModels {
		requests[i] = *model.ToDomain()
	}
	return requests
}

func (r *GormPaymentRequestRepository) applyFilter(query *gorm.DB, filter ledger.PaymentRequestFilter) *gorm.DB {
	query = r.applyFilterWithoutPagination(query, filter)

	orderBy := ValidateSortField(filter.OrderBy, PaymentRequestSortFields, "created_at")
	orderDir := ValidateSortOrder(filter.OrderDir)
	query = query.Order(fmt.Sprintf("%s %s", orderBy, orderDir))

	if filter.Page > 0 && filter.PageSize > 0 {
		query = query.Offset((filter.Page - 1) * filter.PageSize).Limit(filter.PageSize)
	}
	return query
}

func (r *GormPaymentRequestRepository) applyFilterWithoutPagination(query *gorm.DB, filter ledger.PaymentRequestFilter) *gorm.DB {
	if filter.InvoiceID != nil {
		query = query.Where("invoice_id = ?", *filter.InvoiceID)
	}
	if filter.Status != nil {
		query = query.Where("status = ?", *filter.Status)
	}
	if filter.RequestedBy != nil {
		query = query.Where("requested_by = ?", *filter.RequestedBy)
	}
	if filter.FromDate != nil {
		query = query.Where("requested_at >= ?", *filter.FromDate)
	}
	if filter.ToDate != nil {
		query = query.Where("requested_at <= ?", *filter.ToDate)
	}
	return query
}
