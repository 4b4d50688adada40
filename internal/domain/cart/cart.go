package cart

import (
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/storefront/backend/internal/domain/pricing"
	"github.com/storefront/backend/internal/domain/shared"
)

// CartItem is one product line in a cart. UnitPrice is the catalog price when the
// line was first added.
type CartItem struct {
	ID          uuid.UUID
	CartID      uuid.UUID
	ProductID   uuid.UUID
	ProductName string
	UnitPrice   decimal.Decimal
	Quantity    int
	LineTotal   decimal.Decimal
}

func (i *CartItem) recalc() {
	i.LineTotal = i.UnitPrice.Mul(decimal.NewFromInt(int64(i.Quantity)))
}

// Cart is a customer's pre-checkout basket. It knows nothing about stock; the cart
// service pairs every quantity change with the matching ledger reservation.
type Cart struct {
	shared.BaseAggregateRoot
	CustomerID     uuid.UUID
	Items          []CartItem
	CouponCode     string
	DiscountAmount decimal.Decimal
	DiscountSource pricing.DiscountSource
	TaxRate        decimal.Decimal
	ShippingAmount decimal.Decimal
	IsPickup       bool
	Subtotal       decimal.Decimal
	TaxAmount      decimal.Decimal
	Total          decimal.Decimal
}

// NewCart creates an empty cart for a customer
func NewCart(customerID uuid.UUID, taxRate decimal.Decimal) (*Cart, error) {
	if customerID == uuid.Nil {
		return nil, shared.NewValidationError("Customer ID cannot be empty")
	}
	if taxRate.IsNegative() {
		return nil, shared.NewValidationError("Tax rate cannot be negative")
	}
	c := &Cart{
		BaseAggregateRoot: shared.NewBaseAggregateRoot(),
		CustomerID:        customerID,
		Items:             make([]CartItem, 0),
		TaxRate:           taxRate,
	}
	c.recalculate()
	return c, nil
}

// FindItem returns the line for productID, or nil
func (c *Cart) FindItem(productID uuid.UUID) *CartItem {
	for i := range c.Items {
		if c.Items[i].ProductID == productID {
			return &c.Items[i]
		}
	}
	return nil
}

// QuantityOf returns the quantity of productID in the cart
func (c *Cart) QuantityOf(productID uuid.UUID) int {
	if item := c.FindItem(productID); item != nil {
		return item.Quantity
	}
	return 0
}

// IsEmpty returns true if the cart has no lines
func (c *Cart) IsEmpty() bool {
	return len(c.Items) == 0
}

// AddItem adds quantity units of a product, merging into an existing line
func (c *Cart) AddItem(productID uuid.UUID, productName string, unitPrice decimal.Decimal, quantity int) error {
	if productID == uuid.Nil {
		return shared.NewValidationError("Product ID cannot be empty")
	}
	if quantity <= 0 {
		return shared.NewValidationError("Quantity must be positive")
	}
	if unitPrice.IsNegative() {
		return shared.NewValidationError("Unit price cannot be negative")
	}

	if item := c.FindItem(productID); item != nil {
		item.Quantity += quantity
		item.recalc()
	} else {
		item := CartItem{
			ID:          uuid.New(),
			CartID:      c.ID,
			ProductID:   productID,
			ProductName: productName,
			UnitPrice:   unitPrice,
			Quantity:    quantity,
		}
		item.recalc()
		c.Items = append(c.Items, item)
	}
	c.touch()
	return nil
}

// UpdateItemQuantity sets a line's quantity and returns the previous quantity.
// A quantity of zero or less removes the line.
func (c *Cart) UpdateItemQuantity(productID uuid.UUID, quantity int) (int, error) {
	item := c.FindItem(productID)
	if item == nil {
		return 0, shared.ErrNotFound.WithDetail("product_id", productID.String())
	}
	previous := item.Quantity
	if quantity <= 0 {
		c.removeLine(productID)
	} else {
		item.Quantity = quantity
		item.recalc()
	}
	c.touch()
	return previous, nil
}

// RemoveItem drops a line and returns the quantity it held
func (c *Cart) RemoveItem(productID uuid.UUID) (int, error) {
	item := c.FindItem(productID)
	if item == nil {
		return 0, shared.ErrNotFound.WithDetail("product_id", productID.String())
	}
	removed := item.Quantity
	c.removeLine(productID)
	c.touch()
	return removed, nil
}

func (c *Cart) removeLine(productID uuid.UUID) {
	kept := c.Items[:0]
	for _, it := range c.Items {
		if it.ProductID != productID {
			kept = append(kept, it)
		}
	}
	c.Items = kept
}

// ApplyCoupon records a code, the discount computed for the current subtotal
// and where that discount came from. An empty source means a stored coupon.
func (c *Cart) ApplyCoupon(code string, discount decimal.Decimal, source pricing.DiscountSource) error {
	code = pricing.NormalizeCode(code)
	if code == "" {
		return shared.NewValidationError("Coupon code is required")
	}
	if c.IsEmpty() {
		return shared.NewValidationError("Cannot apply a coupon to an empty cart")
	}
	if discount.IsNegative() {
		return shared.NewValidationError("Discount cannot be negative")
	}
	if source == pricing.DiscountSourceNone {
		source = pricing.DiscountSourceCoupon
	}
	c.CouponCode = code
	c.DiscountAmount = discount
	c.DiscountSource = source
	c.touch()
	return nil
}

// RemoveCoupon clears the coupon and its discount
func (c *Cart) RemoveCoupon() {
	c.CouponCode = ""
	c.DiscountAmount = decimal.Zero
	c.DiscountSource = pricing.DiscountSourceNone
	c.touch()
}

// HasCoupon returns true if a coupon is applied
func (c *Cart) HasCoupon() bool {
	return c.CouponCode != ""
}

// SetShippingAmount records the shipping fee and delivery mode
func (c *Cart) SetShippingAmount(amount decimal.Decimal, isPickup bool) error {
	if amount.IsNegative() {
		return shared.NewValidationError("Shipping amount cannot be negative")
	}
	c.ShippingAmount = amount
	c.IsPickup = isPickup
	c.touch()
	return nil
}

// Clear empties the cart and drops its coupon
func (c *Cart) Clear() {
	c.Items = make([]CartItem, 0)
	c.CouponCode = ""
	c.DiscountAmount = decimal.Zero
	c.DiscountSource = pricing.DiscountSourceNone
	c.ShippingAmount = decimal.Zero
	c.touch()
}

// Lines returns the cart as pricing lines
func (c *Cart) Lines() []pricing.Line {
	lines := make([]pricing.Line, 0, len(c.Items))
	for _, it := range c.Items {
		lines = append(lines, pricing.Line{ProductID: it.ProductID, UnitPrice: it.UnitPrice, Quantity: it.Quantity})
	}
	return lines
}

func (c *Cart) touch() {
	c.recalculate()
	c.Touch()
}

// recalculate keeps Total = Subtotal - Discount + Tax + Shipping
func (c *Cart) recalculate() {
	subtotal := decimal.Zero
	for _, it := range c.Items {
		subtotal = subtotal.Add(it.LineTotal)
	}
	c.Subtotal = subtotal.Round(2)
	if c.DiscountAmount.GreaterThan(c.Subtotal) {
		c.DiscountAmount = c.Subtotal
	}
	c.TaxAmount = c.Subtotal.Mul(c.TaxRate).Round(2)
	c.Total = c.Subtotal.Sub(c.DiscountAmount).Add(c.TaxAmount).Add(c.ShippingAmount)
}
