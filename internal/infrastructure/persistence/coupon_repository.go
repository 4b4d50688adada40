package persistence

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/storefront/backend/internal/domain/pricing"
	"github.com/storefront/backend/internal/domain/shared"
	"github.com/storefront/backend/internal/infrastructure/persistence/models"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// GormCouponRepository implements CouponRepository using GORM
type GormCouponRepository struct {
	db *gorm.DB
}

// NewGormCouponRepository creates a new GormCouponRepository
func NewGormCouponRepository(db *gorm.DB) *GormCouponRepository {
	return &GormCouponRepository{db: db}
}

// FindByCode looks a coupon up case-insensitively
func (r *GormCouponRepository) FindByCode(ctx context.Context, code string) (*pricing.Coupon, error) {
	var m models.CouponModel
	if err := r.db.WithContext(ctx).First(&m, "code = ?", pricing.NormalizeCode(code)).Error; err != nil {
		return nil, translateNotFound(err)
	}
	return m.ToDomain(), nil
}

// Save upserts a coupon by code
func (r *GormCouponRepository) Save(ctx context.Context, c *pricing.Coupon) error {
	m := &models.CouponModel{}
	m.FromDomain(c)
	m.ID = uuid.New()
	now := time.Now()
	m.CreatedAt = now
	m.UpdatedAt = now
	return r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns: []clause.Column{{Name: "code"}},
			DoUpdates: clause.AssignmentColumns([]string{
				"discount_type", "discount_value", "min_order_amount", "max_discount",
				"usage_limit", "used_count", "valid_from", "valid_to", "is_active", "updated_at",
			}),
		}).
		Create(m).Error
}

// MarkUsed increments the usage counter unless the usage limit is reached
func (r *GormCouponRepository) MarkUsed(ctx context.Context, code string) error {
	normalized := pricing.NormalizeCode(code)
	res := r.db.WithContext(ctx).Model(&models.CouponModel{}).
		Where("code = ? AND (usage_limit IS NULL OR used_count < usage_limit)", normalized).
		Updates(map[string]any{
			"used_count": gorm.Expr("used_count + 1"),
			"updated_at": time.Now(),
		})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected > 0 {
		return nil
	}
	if _, err := r.FindByCode(ctx, normalized); err != nil {
		if errors.Is(err, shared.ErrNotFound) {
			return shared.ErrNotFound.WithDetail("coupon_code", code)
		}
		return err
	}
	return pricing.NewCouponInvalidError(normalized, pricing.CouponUsageExhausted)
}

var _ pricing.CouponRepository = (*GormCouponRepository)(nil)
