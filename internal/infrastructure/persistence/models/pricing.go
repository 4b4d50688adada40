package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/storefront/backend/internal/domain/pricing"
)

// CouponModel is the persistence model for coupons. Codes are stored upper-case.
type CouponModel struct {
	ID             uuid.UUID            `gorm:"type:uuid;primary_key"`
	Code           string               `gorm:"type:varchar(50);not null;uniqueIndex"`
	DiscountType   pricing.DiscountType `gorm:"type:varchar(20);not null"`
	DiscountValue  decimal.Decimal      `gorm:"type:decimal(18,2);not null"`
	MinOrderAmount decimal.Decimal      `gorm:"type:decimal(18,2);not null;default:0"`
	MaxDiscount    *decimal.Decimal     `gorm:"type:decimal(18,2)"`
	UsageLimit     *int
	UsedCount      int `gorm:"not null;default:0"`
	ValidFrom      *time.Time
	ValidTo        *time.Time
	IsActive       bool      `gorm:"not null"`
	CreatedAt      time.Time `gorm:"not null"`
	UpdatedAt      time.Time `gorm:"not null"`
}

// TableName returns the table name for GORM
func (CouponModel) TableName() string {
	return "coupons"
}

// ToDomain converts the persistence model to a domain Coupon.
func (m *CouponModel) ToDomain() *pricing.Coupon {
	return &pricing.Coupon{
		Code:           m.Code,
		DiscountType:   m.DiscountType,
		DiscountValue:  m.DiscountValue,
		MinOrderAmount: m.MinOrderAmount,
		MaxDiscount:    m.MaxDiscount,
		UsageLimit:     m.UsageLimit,
		UsedCount:      m.UsedCount,
		ValidFrom:      m.ValidFrom,
		ValidTo:        m.ValidTo,
		IsActive:       m.IsActive,
	}
}

// FromDomain populates the persistence model from a domain Coupon.
func (m *CouponModel) FromDomain(c *pricing.Coupon) {
	m.Code = pricing.NormalizeCode(c.Code)
	m.DiscountType = c.DiscountType
	m.DiscountValue = c.DiscountValue
	m.MinOrderAmount = c.MinOrderAmount
	m.MaxDiscount = c.MaxDiscount
	m.UsageLimit = c.UsageLimit
	m.UsedCount = c.UsedCount
	m.ValidFrom = c.ValidFrom
	m.ValidTo = c.ValidTo
	m.IsActive = c.IsActive
}
