package pricing

import (
	"github.com/shopspring/decimal"
)

// Promotion is a built-in code outside the coupon store
type Promotion struct {
	Percent      decimal.Decimal
	FreeShipping bool
}

// PromotionPolicy resolves codes that are not stored coupons
type PromotionPolicy interface {
	Lookup(code string) (Promotion, bool)
	// FallbackPercent applies to any other code; zero disables the fallback
	FallbackPercent() decimal.Decimal
}

// PromotionTable is a fixed code table
type PromotionTable struct {
	codes    map[string]Promotion
	fallback decimal.Decimal
}

// NewPromotionTable creates a table from the given codes and fallback percentage
func NewPromotionTable(codes map[string]Promotion, fallbackPercent decimal.Decimal) *PromotionTable {
	normalized := make(map[string]Promotion, len(codes))
	for code, p := range codes {
		normalized[NormalizeCode(code)] = p
	}
	return &PromotionTable{codes: normalized, fallback: fallbackPercent}
}

// DefaultPromotionTable returns the storefront's standing promotions
func DefaultPromotionTable(fallbackPercent decimal.Decimal) *PromotionTable {
	return NewPromotionTable(map[string]Promotion{
		"SAVE10":   {Percent: decimal.NewFromInt(10)},
		"SAVE15":   {Percent: decimal.NewFromInt(15)},
		"SAVE20":   {Percent: decimal.NewFromInt(20)},
		"FREESHIP": {FreeShipping: true},
	}, fallbackPercent)
}

// Lookup implements PromotionPolicy
func (t *PromotionTable) Lookup(code string) (Promotion, bool) {
	p, ok := t.codes[NormalizeCode(code)]
	return p, ok
}

// FallbackPercent implements PromotionPolicy
func (t *PromotionTable) FallbackPercent() decimal.Decimal {
	return t.fallback
}
