package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/storefront/backend/internal/domain/catalog"
)

// ProductModel is the persistence model for catalog products.
// StockQuantity is the storefront display counter, not the ledger.
type ProductModel struct {
	ID            uuid.UUID             `gorm:"type:uuid;primary_key"`
	SKU           string                `gorm:"type:varchar(64);not null;uniqueIndex"`
	Name          string                `gorm:"type:varchar(200);not null"`
	Price         decimal.Decimal       `gorm:"type:decimal(18,2);not null"`
	StockQuantity int                   `gorm:"not null;default:0"`
	Status        catalog.ProductStatus `gorm:"type:varchar(20);not null;default:'active'"`
	CreatedAt     time.Time             `gorm:"not null"`
	UpdatedAt     time.Time             `gorm:"not null"`
}

// TableName returns the table name for GORM
func (ProductModel) TableName() string {
	return "products"
}

// ToDomain converts the persistence model to a domain Product.
func (m *ProductModel) ToDomain() *catalog.Product {
	return &catalog.Product{
		ID:            m.ID,
		SKU:           m.SKU,
		Name:          m.Name,
		Price:         m.Price,
		StockQuantity: m.StockQuantity,
		Status:        m.Status,
	}
}

// FromDomain populates the persistence model from a domain Product.
func (m *ProductModel) FromDomain(p *catalog.Product) {
	m.ID = p.ID
	m.SKU = p.SKU
	m.Name = p.Name
	m.Price = p.Price
	m.StockQuantity = p.StockQuantity
	m.Status = p.Status
}

// ProductModelFromDomain creates a new persistence model from a domain Product.
func ProductModelFromDomain(p *catalog.Product) *ProductModel {
	m := &ProductModel{}
	m.FromDomain(p)
	return m
}
