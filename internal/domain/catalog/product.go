package catalog

import (
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// ProductStatus represents the sellable status of a product
type ProductStatus string

const (
	ProductStatusActive       ProductStatus = "active"
	ProductStatusInactive     ProductStatus = "inactive"
	ProductStatusDiscontinued ProductStatus = "discontinued"
)

// Product is the catalog read model consumed by checkout. Content management lives
// elsewhere; this service only reads names and prices and maintains StockQuantity,
// a denormalized display counter that trails the inventory ledger.
type Product struct {
	ID            uuid.UUID
	SKU           string
	Name          string
	Price         decimal.Decimal
	StockQuantity int
	Status        ProductStatus
}

// IsActive returns true if the product can be sold
func (p *Product) IsActive() bool {
	return p.Status == ProductStatusActive
}

// IndexByID builds a lookup map from a product list
func IndexByID(products []Product) map[uuid.UUID]*Product {
	out := make(map[uuid.UUID]*Product, len(products))
	for i := range products {
		out[products[i].ID] = &products[i]
	}
	return out
}
