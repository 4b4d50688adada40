package cart

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/storefront/backend/internal/domain/cart"
	"github.com/storefront/backend/internal/domain/catalog"
	"github.com/storefront/backend/internal/domain/inventory"
	"github.com/storefront/backend/internal/domain/pricing"
	"github.com/storefront/backend/internal/domain/shared"
	"github.com/storefront/backend/internal/infrastructure/logger"
	"go.uber.org/zap"
)

// Holds is the ledger side of a cart: every unit in a cart is reserved
type Holds interface {
	Reserve(ctx context.Context, refType inventory.ReferenceType, refID string, productID uuid.UUID, quantity int) error
	Release(ctx context.Context, refType inventory.ReferenceType, refID string, productID uuid.UUID, quantity int, reason string) (int, error)
	ReleaseReference(ctx context.Context, refType inventory.ReferenceType, refID, reason string) (int, error)
}

// Service manages a customer's cart and keeps its ledger reservations in step
type Service struct {
	carts    cart.CartRepository
	products catalog.ProductRepository
	coupons  pricing.CouponRepository
	holds    Holds
	engine   *pricing.Engine
	taxRate  decimal.Decimal
	logger   *zap.Logger
}

// NewService creates a cart Service
func NewService(
	carts cart.CartRepository,
	products catalog.ProductRepository,
	coupons pricing.CouponRepository,
	holds Holds,
	engine *pricing.Engine,
	taxRate decimal.Decimal,
	logger *zap.Logger,
) *Service {
	return &Service{
		carts:    carts,
		products: products,
		coupons:  coupons,
		holds:    holds,
		engine:   engine,
		taxRate:  taxRate,
		logger:   logger,
	}
}

// Get returns the actor's cart, empty if none was stored yet
func (s *Service) Get(ctx context.Context, actor shared.Actor) (*CartResponse, error) {
	c, err := s.load(ctx, actor)
	if err != nil {
		return nil, err
	}
	resp := ToCartResponse(c)
	return &resp, nil
}

// AddItem reserves quantity more units and adds them to the cart
func (s *Service) AddItem(ctx context.Context, actor shared.Actor, req AddItemRequest) (*CartResponse, error) {
	if req.Quantity <= 0 {
		return nil, shared.NewValidationError("Quantity must be positive")
	}
	c, err := s.load(ctx, actor)
	if err != nil {
		return nil, err
	}
	p, err := s.sellable(ctx, req.ProductID)
	if err != nil {
		return nil, err
	}

	if err := s.holds.Reserve(ctx, inventory.ReferenceCart, c.ID.String(), p.ID, req.Quantity); err != nil {
		return nil, err
	}
	if err := c.AddItem(p.ID, p.Name, p.Price, req.Quantity); err != nil {
		s.undoReserve(ctx, c, p.ID, req.Quantity)
		return nil, err
	}
	if err := s.save(ctx, c); err != nil {
		s.undoReserve(ctx, c, p.ID, req.Quantity)
		return nil, err
	}
	resp := ToCartResponse(c)
	return &resp, nil
}

// UpdateItem sets a line's quantity, reserving or releasing the difference.
// A quantity of zero removes the line.
func (s *Service) UpdateItem(ctx context.Context, actor shared.Actor, productID uuid.UUID, req UpdateItemRequest) (*CartResponse, error) {
	if req.Quantity <= 0 {
		return s.RemoveItem(ctx, actor, productID)
	}
	c, err := s.load(ctx, actor)
	if err != nil {
		return nil, err
	}
	previous := c.QuantityOf(productID)
	if previous == 0 {
		return nil, shared.ErrNotFound.WithDetail("product_id", productID.String())
	}

	delta := req.Quantity - previous
	if delta > 0 {
		if err := s.holds.Reserve(ctx, inventory.ReferenceCart, c.ID.String(), productID, delta); err != nil {
			return nil, err
		}
	}
	if _, err := c.UpdateItemQuantity(productID, req.Quantity); err != nil {
		return nil, err
	}
	if err := s.save(ctx, c); err != nil {
		if delta > 0 {
			s.undoReserve(ctx, c, productID, delta)
		}
		return nil, err
	}
	if delta < 0 {
		s.release(ctx, c, productID, -delta, inventory.ReleaseReasonCartUpdated)
	}
	resp := ToCartResponse(c)
	return &resp, nil
}

// RemoveItem drops a line and releases its reservation
func (s *Service) RemoveItem(ctx context.Context, actor shared.Actor, productID uuid.UUID) (*CartResponse, error) {
	c, err := s.load(ctx, actor)
	if err != nil {
		return nil, err
	}
	removed, err := c.RemoveItem(productID)
	if err != nil {
		return nil, err
	}
	if err := s.save(ctx, c); err != nil {
		return nil, err
	}
	s.release(ctx, c, productID, removed, inventory.ReleaseReasonItemRemoved)
	resp := ToCartResponse(c)
	return &resp, nil
}

// ApplyCoupon applies a stored coupon or a standing promotion code. A cart
// carries at most one code.
func (s *Service) ApplyCoupon(ctx context.Context, actor shared.Actor, req ApplyCouponRequest) (*CartResponse, error) {
	c, err := s.load(ctx, actor)
	if err != nil {
		return nil, err
	}
	code := pricing.NormalizeCode(req.Code)
	if code == "" {
		return nil, shared.NewValidationError("Coupon code is required")
	}
	if c.IsEmpty() {
		return nil, shared.NewValidationError("Cannot apply a coupon to an empty cart")
	}
	if c.HasCoupon() && c.CouponCode != code {
		return nil, pricing.NewCouponInvalidError(code, pricing.CouponAlreadyApplied)
	}

	d, err := s.discountFor(ctx, c, code)
	if err != nil {
		return nil, err
	}
	if err := c.ApplyCoupon(code, d.amount, d.source); err != nil {
		return nil, err
	}
	if err := s.save(ctx, c); err != nil {
		return nil, err
	}
	resp := ToCartResponse(c)
	return &resp, nil
}

// RemoveCoupon drops the cart's code
func (s *Service) RemoveCoupon(ctx context.Context, actor shared.Actor) (*CartResponse, error) {
	c, err := s.load(ctx, actor)
	if err != nil {
		return nil, err
	}
	c.RemoveCoupon()
	if err := s.save(ctx, c); err != nil {
		return nil, err
	}
	resp := ToCartResponse(c)
	return &resp, nil
}

// SetShipping switches between delivery and pickup
func (s *Service) SetShipping(ctx context.Context, actor shared.Actor, req SetShippingRequest) (*CartResponse, error) {
	c, err := s.load(ctx, actor)
	if err != nil {
		return nil, err
	}
	if err := c.SetShippingAmount(c.ShippingAmount, req.IsPickup); err != nil {
		return nil, err
	}
	if err := s.save(ctx, c); err != nil {
		return nil, err
	}
	resp := ToCartResponse(c)
	return &resp, nil
}

// Clear empties the cart and releases everything it held
func (s *Service) Clear(ctx context.Context, actor shared.Actor) (*CartResponse, error) {
	c, err := s.load(ctx, actor)
	if err != nil {
		return nil, err
	}
	if _, err := s.holds.ReleaseReference(ctx, inventory.ReferenceCart, c.ID.String(), inventory.ReleaseReasonCartCleared); err != nil {
		return nil, err
	}
	c.Clear()
	if err := s.carts.Save(ctx, c); err != nil {
		return nil, err
	}
	resp := ToCartResponse(c)
	return &resp, nil
}

func (s *Service) load(ctx context.Context, actor shared.Actor) (*cart.Cart, error) {
	if actor.IsAnonymous() {
		return nil, shared.ErrUnauthorized
	}
	c, err := s.carts.FindByCustomerID(ctx, actor.UserID)
	if errors.Is(err, shared.ErrNotFound) {
		return cart.NewCart(actor.UserID, s.taxRate)
	}
	return c, err
}

func (s *Service) sellable(ctx context.Context, productID uuid.UUID) (*catalog.Product, error) {
	p, err := s.products.FindByID(ctx, productID)
	if errors.Is(err, shared.ErrNotFound) {
		return nil, catalog.NewProductNotFoundError(productID)
	}
	if err != nil {
		return nil, err
	}
	if !p.IsActive() {
		return nil, catalog.NewProductUnavailableError(productID, p.Status)
	}
	return p, nil
}

// save reprices then stores the cart
func (s *Service) save(ctx context.Context, c *cart.Cart) error {
	if err := s.reprice(ctx, c); err != nil {
		return err
	}
	return s.carts.Save(ctx, c)
}

type discount struct {
	amount       decimal.Decimal
	source       pricing.DiscountSource
	freeShipping bool
}

func (s *Service) discountFor(ctx context.Context, c *cart.Cart, code string) (discount, error) {
	coupon, err := s.coupons.FindByCode(ctx, code)
	switch {
	case err == nil:
		amount, err := s.engine.ComputeCouponDiscount(coupon, c.Subtotal)
		return discount{amount: amount, source: pricing.DiscountSourceCoupon}, err
	case !errors.Is(err, shared.ErrNotFound):
		return discount{}, err
	}

	q, err := s.engine.Quote(pricing.QuoteInput{
		Lines:      c.Lines(),
		IsPickup:   c.IsPickup,
		TaxRate:    c.TaxRate,
		CouponCode: code,
	})
	if err != nil {
		return discount{}, err
	}
	if q.DiscountSource == pricing.DiscountSourceNone {
		return discount{}, pricing.NewCouponInvalidError(code, pricing.CouponUnknown)
	}
	return discount{amount: q.Discount, source: q.DiscountSource, freeShipping: q.FreeShipping}, nil
}

// reprice refreshes shipping and the coupon discount after the lines changed.
// A coupon that no longer applies is dropped.
func (s *Service) reprice(ctx context.Context, c *cart.Cart) error {
	if c.IsEmpty() {
		if c.HasCoupon() {
			c.RemoveCoupon()
		}
		return c.SetShippingAmount(decimal.Zero, c.IsPickup)
	}

	shipping := s.engine.ComputeShipping(c.Subtotal, c.IsPickup)
	if c.HasCoupon() {
		d, err := s.discountFor(ctx, c, c.CouponCode)
		switch {
		case shared.IsCode(err, shared.CodeCouponInvalid):
			logger.Enrich(ctx, s.logger).Info("Coupon dropped from cart",
				zap.String("cart_id", c.ID.String()),
				zap.String("coupon", c.CouponCode),
				zap.Error(err),
			)
			c.RemoveCoupon()
		case err != nil:
			return err
		default:
			if err := c.ApplyCoupon(c.CouponCode, d.amount, d.source); err != nil {
				return err
			}
			if d.freeShipping {
				shipping = decimal.Zero
			}
		}
	}
	return c.SetShippingAmount(shipping, c.IsPickup)
}

func (s *Service) release(ctx context.Context, c *cart.Cart, productID uuid.UUID, quantity int, reason string) {
	if _, err := s.holds.Release(ctx, inventory.ReferenceCart, c.ID.String(), productID, quantity, reason); err != nil {
		logger.Enrich(ctx, s.logger).Warn("Cart hold not released, the expiry sweeper will free it",
			zap.String("cart_id", c.ID.String()),
			zap.String("product_id", productID.String()),
			zap.Int("quantity", quantity),
			zap.Error(err),
		)
	}
}

func (s *Service) undoReserve(ctx context.Context, c *cart.Cart, productID uuid.UUID, quantity int) {
	s.release(ctx, c, productID, quantity, inventory.ReleaseReasonCartUpdated)
}
