package models

import (
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/storefront/backend/internal/domain/cart"
	"github.com/storefront/backend/internal/domain/pricing"
)

// CartModel is the persistence model for the Cart aggregate root.
type CartModel struct {
	AggregateModel
	CustomerID     uuid.UUID              `gorm:"type:uuid;not null;uniqueIndex"`
	CouponCode     string                 `gorm:"type:varchar(50)"`
	DiscountAmount decimal.Decimal        `gorm:"type:decimal(18,2);not null;default:0"`
	DiscountSource pricing.DiscountSource `gorm:"type:varchar(20);not null;default:''"`
	TaxRate        decimal.Decimal        `gorm:"type:decimal(6,4);not null;default:0"`
	ShippingAmount decimal.Decimal        `gorm:"type:decimal(18,2);not null;default:0"`
	IsPickup       bool                   `gorm:"not null;default:false"`
	Subtotal       decimal.Decimal        `gorm:"type:decimal(18,2);not null;default:0"`
	TaxAmount      decimal.Decimal        `gorm:"type:decimal(18,2);not null;default:0"`
	Total          decimal.Decimal        `gorm:"type:decimal(18,2);not null;default:0"`
	Items          []CartItemModel        `gorm:"foreignKey:CartID;references:ID"`
}

// TableName returns the table name for GORM
func (CartModel) TableName() string {
	return "carts"
}

// ToDomain converts the persistence model to a domain Cart.
func (m *CartModel) ToDomain() *cart.Cart {
	c := &cart.Cart{
		BaseAggregateRoot: m.root(),
		CustomerID:        m.CustomerID,
		CouponCode:        m.CouponCode,
		DiscountAmount:    m.DiscountAmount,
		DiscountSource:    m.DiscountSource,
		TaxRate:           m.TaxRate,
		ShippingAmount:    m.ShippingAmount,
		IsPickup:          m.IsPickup,
		Subtotal:          m.Subtotal,
		TaxAmount:         m.TaxAmount,
		Total:             m.Total,
		Items:             make([]cart.CartItem, len(m.Items)),
	}
	for i, item := range m.Items {
		c.Items[i] = item.ToDomain()
	}
	return c
}

// FromDomain populates the persistence model from a domain Cart.
func (m *CartModel) FromDomain(c *cart.Cart) {
	m.setRoot(c.BaseAggregateRoot)
	m.CustomerID = c.CustomerID
	m.CouponCode = c.CouponCode
	m.DiscountAmount = c.DiscountAmount
	m.DiscountSource = c.DiscountSource
	m.TaxRate = c.TaxRate
	m.ShippingAmount = c.ShippingAmount
	m.IsPickup = c.IsPickup
	m.Subtotal = c.Subtotal
	m.TaxAmount = c.TaxAmount
	m.Total = c.Total
	m.Items = make([]CartItemModel, len(c.Items))
	for i := range c.Items {
		m.Items[i].FromDomain(&c.Items[i])
		m.Items[i].CartID = c.ID
	}
}

// CartItemModel is the persistence model for a cart line.
type CartItemModel struct {
	ID          uuid.UUID       `gorm:"type:uuid;primary_key"`
	CartID      uuid.UUID       `gorm:"type:uuid;not null;uniqueIndex:idx_cart_item_product,priority:1"`
	ProductID   uuid.UUID       `gorm:"type:uuid;not null;uniqueIndex:idx_cart_item_product,priority:2"`
	ProductName string          `gorm:"type:varchar(200);not null"`
	UnitPrice   decimal.Decimal `gorm:"type:decimal(18,2);not null"`
	Quantity    int             `gorm:"not null"`
	LineTotal   decimal.Decimal `gorm:"type:decimal(18,2);not null"`
}

// TableName returns the table name for GORM
func (CartItemModel) TableName() string {
	return "cart_items"
}

// ToDomain converts the persistence model to a domain CartItem.
func (m *CartItemModel) ToDomain() cart.CartItem {
	return cart.CartItem{
		ID:          m.ID,
		CartID:      m.CartID,
		ProductID:   m.ProductID,
		ProductName: m.ProductName,
		UnitPrice:   m.UnitPrice,
		Quantity:    m.Quantity,
		LineTotal:   m.LineTotal,
	}
}

// FromDomain populates the persistence model from a domain CartItem.
func (m *CartItemModel) FromDomain(i *cart.CartItem) {
	m.ID = i.ID
	m.CartID = i.CartID
	m.ProductID = i.ProductID
	m.ProductName = i.ProductName
	m.UnitPrice = i.UnitPrice
	m.Quantity = i.Quantity
	m.LineTotal = i.LineTotal
}
