package persistence

import (
	"context"
	"time"

	"github.com/storefront/backend/internal/domain/checkout"
	"github.com/storefront/backend/internal/infrastructure/persistence/models"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// GormCheckoutIntentRepository implements IntentRepository using GORM
type GormCheckoutIntentRepository struct {
	db *gorm.DB
}

// NewGormCheckoutIntentRepository creates a new GormCheckoutIntentRepository
func NewGormCheckoutIntentRepository(db *gorm.DB) *GormCheckoutIntentRepository {
	return &GormCheckoutIntentRepository{db: db}
}

// Save upserts the intent
func (r *GormCheckoutIntentRepository) Save(ctx context.Context, intent *checkout.Intent) error {
	m := &models.CheckoutIntentModel{}
	m.FromDomain(intent)
	return r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns: []clause.Column{{Name: "id"}},
			DoUpdates: clause.AssignmentColumns([]string{
				"status", "completed_steps", "order_id", "order_number", "last_error", "updated_at",
			}),
		}).
		Create(m).Error
}

// FindByIdempotencyKey returns the intent created with the given client key
func (r *GormCheckoutIntentRepository) FindByIdempotencyKey(ctx context.Context, key string) (*checkout.Intent, error) {
	var m models.CheckoutIntentModel
	if err := r.db.WithContext(ctx).First(&m, "idempotency_key = ?", key).Error; err != nil {
		return nil, translateNotFound(err)
	}
	return m.ToDomain(), nil
}

// FindUnfinished returns intents stuck mid-saga, oldest first
func (r *GormCheckoutIntentRepository) FindUnfinished(ctx context.Context, updatedBefore time.Time, limit int) ([]*checkout.Intent, error) {
	if limit <= 0 {
		limit = 50
	}
	var rows []models.CheckoutIntentModel
	if err := r.db.WithContext(ctx).
		Where("status IN ? AND updated_at < ?",
			[]checkout.IntentStatus{checkout.IntentStarted, checkout.IntentNeedsReconciliation}, updatedBefore).
		Order("updated_at ASC").
		Limit(limit).
		Find(&rows).Error; err != nil {
		return nil, err
	}
	out := make([]*checkout.Intent, len(rows))
	for i := range rows {
		out[i] = rows[i].ToDomain()
	}
	return out, nil
}

var _ checkout.IntentRepository = (*GormCheckoutIntentRepository)(nil)
