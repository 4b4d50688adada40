package catalog

import (
	"github.com/google/uuid"
	"github.com/storefront/backend/internal/domain/shared"
)

// NewProductNotFoundError reports a product id missing from the catalog
func NewProductNotFoundError(productID uuid.UUID) *shared.DomainError {
	return shared.NewDomainError(shared.CodeProductNotFound, "Product not found").
		WithDetail("product_id", productID.String())
}

// NewProductUnavailableError reports a product that exists but cannot be sold
func NewProductUnavailableError(productID uuid.UUID, status ProductStatus) *shared.DomainError {
	return shared.NewDomainError(shared.CodeProductNotFound, "Product is not available for sale").
		WithDetail("product_id", productID.String()).
		WithDetail("status", string(status))
}
