package persistence

import (
	"context"

	"github.com/google/uuid"
	"github.com/storefront/backend/internal/domain/order"
	"github.com/storefront/backend/internal/domain/shared"
	"github.com/storefront/backend/internal/infrastructure/persistence/models"
	"gorm.io/gorm"
)

// GormReturnRequestRepository implements ReturnRequestRepository using GORM
type GormReturnRequestRepository struct {
	db     *gorm.DB
	events shared.OutboxEventSaver
}

// NewGormReturnRequestRepository creates a new GormReturnRequestRepository
func NewGormReturnRequestRepository(db *gorm.DB, events shared.OutboxEventSaver) *GormReturnRequestRepository {
	return &GormReturnRequestRepository{db: db, events: events}
}

// FindByID finds a return request by its ID
func (r *GormReturnRequestRepository) FindByID(ctx context.Context, id uuid.UUID) (*order.ReturnRequest, error) {
	var m models.ReturnRequestModel
	if err := r.db.WithContext(ctx).First(&m, "id = ?", id).Error; err != nil {
		return nil, translateNotFound(err)
	}
	return m.ToDomain(), nil
}

// FindByOrderID lists the return requests of an order, newest first
func (r *GormReturnRequestRepository) FindByOrderID(ctx context.Context, orderID uuid.UUID) ([]order.ReturnRequest, error) {
	var rows []models.ReturnRequestModel
	if err := r.db.WithContext(ctx).
		Where("order_id = ?", orderID).
		Order("requested_at DESC").
		Find(&rows).Error; err != nil {
		return nil, err
	}
	out := make([]order.ReturnRequest, len(rows))
	for i := range rows {
		out[i] = *rows[i].ToDomain()
	}
	return out, nil
}

// Save inserts a new return request
func (r *GormReturnRequestRepository) Save(ctx context.Context, rr *order.ReturnRequest) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		m := &models.ReturnRequestModel{}
		m.FromDomain(rr)
		if err := tx.Create(m).Error; err != nil {
			return err
		}
		return flushEvents(ctx, tx, r.events, rr)
	})
}

// SaveWithLock updates the request's decision fields under a version check
func (r *GormReturnRequestRepository) SaveWithLock(ctx context.Context, rr *order.ReturnRequest) error {
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Model(&models.ReturnRequestModel{}).
			Where("id = ? AND version = ?", rr.ID, rr.Version).
			Updates(map[string]any{
				"status":           rr.Status,
				"approved_at":      rr.ApprovedAt,
				"rejected_at":      rr.RejectedAt,
				"refunded_at":      rr.RefundedAt,
				"processed_by":     rr.ProcessedBy,
				"rejection_reason": rr.RejectionReason,
				"version":          rr.Version + 1,
				"updated_at":       rr.UpdatedAt,
			})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return shared.ErrConcurrencyConflict.WithDetail("return_id", rr.ID.String())
		}
		return flushEvents(ctx, tx, r.events, rr)
	})
	if err != nil {
		return err
	}
	rr.BumpVersion()
	return nil
}

var _ order.ReturnRequestRepository = (*GormReturnRequestRepository)(nil)
