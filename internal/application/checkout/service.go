package checkout

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	appinv "github.com/storefront/backend/internal/application/inventory"
	apporder "github.com/storefront/backend/internal/application/order"
	"github.com/storefront/backend/internal/domain/cart"
	"github.com/storefront/backend/internal/domain/catalog"
	"github.com/storefront/backend/internal/domain/checkout"
	"github.com/storefront/backend/internal/domain/inventory"
	"github.com/storefront/backend/internal/domain/order"
	"github.com/storefront/backend/internal/domain/pricing"
	"github.com/storefront/backend/internal/domain/shared"
	"github.com/storefront/backend/internal/infrastructure/logger"
	"go.uber.org/zap"
)

// Config tunes the orchestrator
type Config struct {
	Timeout             time.Duration
	TaxRate             decimal.Decimal
	IdempotencyTTL      time.Duration
	StoreRetry          appinv.RetryPolicy
	FastCheckoutEnabled bool
	PublishTimeout      time.Duration
}

// HoldReleaser frees whatever a cart still holds once it is checked out
type HoldReleaser interface {
	ReleaseReference(ctx context.Context, refType inventory.ReferenceType, refID, reason string) (int, error)
}

// Dependencies are the stores and collaborators of Service
type Dependencies struct {
	Standard  Strategy
	Fast      Strategy
	Products  catalog.ProductRepository
	Orders    order.OrderRepository
	Carts     cart.CartRepository
	Coupons   pricing.CouponRepository
	Intents   checkout.IntentRepository
	Keys      shared.IdempotencyStore
	Holds     HoldReleaser
	Engine    *pricing.Engine
	Publisher shared.EventPublisher
}

// Service turns a cart, or an explicit list of lines, into a placed order
type Service struct {
	deps     Dependencies
	cfg      Config
	metrics  Metrics
	logger   *zap.Logger
	inflight sync.WaitGroup
}

// NewService creates a checkout Service
func NewService(deps Dependencies, cfg Config, logger *zap.Logger) *Service {
	if cfg.Timeout <= 0 {
		cfg.Timeout = 20 * time.Second
	}
	if cfg.IdempotencyTTL <= 0 {
		cfg.IdempotencyTTL = 24 * time.Hour
	}
	if cfg.PublishTimeout <= 0 {
		cfg.PublishTimeout = 5 * time.Second
	}
	if cfg.StoreRetry.Attempts <= 0 {
		cfg.StoreRetry = appinv.DefaultRetryPolicy()
	}
	return &Service{deps: deps, cfg: cfg, metrics: noopMetrics{}, logger: logger}
}

// SetMetrics replaces the no-op metrics sink
func (s *Service) SetMetrics(m Metrics) {
	if m != nil {
		s.metrics = m
	}
}

// Wait blocks until background event publishes have finished
func (s *Service) Wait() {
	s.inflight.Wait()
}

// Checkout places an order. Errors are domain errors; deadline overruns are
// reported as CHECKOUT_TIMEOUT and unexpected faults as CHECKOUT_FAILED.
func (s *Service) Checkout(ctx context.Context, req Request) (*Result, error) {
	start := time.Now()
	if req.Customer.IsAnonymous() {
		return nil, shared.ErrUnauthorized
	}
	if req.ManualDiscount != nil && !req.Customer.IsStaff() {
		return nil, shared.ErrForbidden.WithDetail("field", "manual_discount")
	}
	strategy, err := s.strategyFor(req.Strategy)
	if err != nil {
		return nil, err
	}

	ctx, cancel := context.WithTimeout(ctx, s.cfg.Timeout)
	defer cancel()
	log := logger.Enrich(ctx, s.logger).With(
		zap.String("strategy", string(strategy.Name())),
		zap.String("customer_id", req.Customer.UserID.String()),
	)

	res, err := s.run(ctx, strategy, req, log)
	elapsed := time.Since(start)
	if err != nil {
		err = classify(ctx, err)
		s.metrics.CheckoutFailed(ctx, string(strategy.Name()), errorCode(err), elapsed)
		log.Warn("Checkout failed", zap.String("code", errorCode(err)), zap.Duration("elapsed", elapsed), zap.Error(err))
		return nil, err
	}
	if !res.Replayed {
		s.metrics.CheckoutSucceeded(ctx, string(strategy.Name()), elapsed, res.Order.TotalAmount)
		log.Info("Checkout completed",
			zap.String("order_number", res.Order.OrderNumber),
			zap.String("total", res.Order.TotalAmount.String()),
			zap.Duration("elapsed", elapsed),
		)
	}
	return res, nil
}

func (s *Service) strategyFor(name order.CheckoutStrategy) (Strategy, error) {
	switch name {
	case "", order.StrategyStandard:
		return s.deps.Standard, nil
	case order.StrategyFast:
		if !s.cfg.FastCheckoutEnabled || s.deps.Fast == nil {
			return nil, shared.NewValidationError("Fast checkout is disabled")
		}
		return s.deps.Fast, nil
	default:
		return nil, shared.NewValidationError("Unknown checkout strategy").WithDetail("strategy", string(name))
	}
}

func (s *Service) run(ctx context.Context, strategy Strategy, req Request, log *zap.Logger) (*Result, error) {
	claim := claimKey(req)
	intent, replay, err := s.begin(ctx, strategy, req, claim)
	if err != nil {
		return nil, err
	}
	if replay != nil {
		log.Info("Replaying completed checkout", zap.String("order_number", replay.Order.OrderNumber))
		return replay, nil
	}

	res, err := s.place(ctx, strategy, req, intent, log)
	if err != nil {
		s.abort(ctx, intent, claim, err, log)
		return nil, err
	}
	return res, nil
}

// claimKey scopes the client key to the customer so two customers never share one
func claimKey(req Request) string {
	key := strings.TrimSpace(req.IdempotencyKey)
	if key == "" {
		return ""
	}
	return req.Customer.UserID.String() + ":" + key
}

// begin opens the saga record. With an idempotency key it also decides whether
// this request replays an earlier checkout or collides with a running one.
func (s *Service) begin(ctx context.Context, strategy Strategy, req Request, claim string) (*checkout.Intent, *Result, error) {
	if claim == "" {
		intent := checkout.NewIntent(req.Customer.UserID, string(strategy.Name()), "")
		return intent, nil, s.deps.Intents.Save(ctx, intent)
	}

	claimed := true
	if s.deps.Keys != nil {
		fresh, err := s.deps.Keys.MarkProcessed(ctx, "checkout:"+claim, s.cfg.IdempotencyTTL)
		if err != nil {
			logger.Enrich(ctx, s.logger).Warn("Idempotency store unavailable, relying on intent records", zap.Error(err))
		} else {
			claimed = fresh
		}
	}

	existing, err := s.deps.Intents.FindByIdempotencyKey(ctx, claim)
	switch {
	case errors.Is(err, shared.ErrNotFound):
		if !claimed {
			return nil, nil, NewInProgressError(req.IdempotencyKey)
		}
		intent := checkout.NewIntent(req.Customer.UserID, string(strategy.Name()), claim)
		if err := s.deps.Intents.Save(ctx, intent); err != nil {
			if errors.Is(err, shared.ErrAlreadyExists) {
				return nil, nil, NewInProgressError(req.IdempotencyKey)
			}
			return nil, nil, err
		}
		return intent, nil, nil
	case err != nil:
		return nil, nil, err
	case existing.OrderID != nil && existing.HasStep(checkout.StepOrder):
		o, err := s.deps.Orders.FindByID(ctx, *existing.OrderID)
		if err != nil {
			return nil, nil, err
		}
		return nil, &Result{Order: apporder.ToOrderResponse(o), Replayed: true}, nil
	case existing.Status == checkout.IntentFailed && claimed:
		if err := existing.Restart(); err != nil {
			return nil, nil, NewInProgressError(req.IdempotencyKey)
		}
		existing.Strategy = string(strategy.Name())
		if err := s.deps.Intents.Save(ctx, existing); err != nil {
			return nil, nil, err
		}
		return existing, nil, nil
	default:
		return nil, nil, NewInProgressError(req.IdempotencyKey)
	}
}

// basket is what is being bought, before stock is taken
type basket struct {
	lines        []Line
	cart         *cart.Cart
	couponCode   string
	cartDiscount decimal.Decimal
	cartSource   pricing.DiscountSource
	isPickup     bool
}

func (s *Service) place(ctx context.Context, strategy Strategy, req Request, intent *checkout.Intent, log *zap.Logger) (*Result, error) {
	b, err := s.collect(ctx, req)
	if err != nil {
		return nil, err
	}
	quote, coupon, err := s.price(ctx, req, b)
	if err != nil {
		return nil, err
	}

	orderID := uuid.New()
	session := &Session{
		Intent: intent,
		Lines:  b.lines,
		Hold:   HoldRef{Type: inventory.ReferenceOrder, ID: orderID.String()},
		checkpoint: func(ctx context.Context, step checkout.Step) {
			s.saveIntent(ctx, intent, log)
		},
	}
	if b.cart != nil {
		session.Hold = HoldRef{Type: inventory.ReferenceCart, ID: b.cart.ID.String()}
	}
	if err := strategy.TakeStock(ctx, session); err != nil {
		return nil, err
	}

	o, err := s.buildOrder(orderID, req, strategy, b, quote, coupon)
	if err != nil {
		return nil, err
	}
	if err := s.persistOrder(ctx, o, log); err != nil {
		return nil, NewFailedError(err)
	}
	intent.AttachOrder(o.ID, o.OrderNumber)
	session.Checkpoint(ctx, checkout.StepOrder)

	if quote.DiscountSource == pricing.DiscountSourceCoupon && quote.CouponCode != "" {
		if err := s.deps.Coupons.MarkUsed(ctx, quote.CouponCode); err != nil {
			log.Warn("Failed to count coupon usage", zap.String("coupon", quote.CouponCode), zap.Error(err))
		}
	}

	if b.cart != nil {
		s.clearCart(ctx, session, b.cart, log)
	}

	if warnings := session.Warnings(); len(warnings) > 0 {
		intent.FlagForReconciliation(strings.Join(warnings, "; "))
		s.metrics.IntentsFlagged(ctx, 1)
		log.Warn("Checkout completed with secondary write failures", zap.Strings("warnings", warnings))
	} else {
		intent.Complete()
	}
	s.saveIntent(ctx, intent, log)

	s.publishCreated(ctx, o, log)
	return &Result{Order: apporder.ToOrderResponse(o)}, nil
}

// collect resolves the lines being bought, from the request or from the cart
func (s *Service) collect(ctx context.Context, req Request) (*basket, error) {
	b := &basket{couponCode: req.CouponCode}
	if req.IsPickup != nil {
		b.isPickup = *req.IsPickup
	}

	if len(req.Items) > 0 {
		wanted := make(map[uuid.UUID]int, len(req.Items))
		ids := make([]uuid.UUID, 0, len(req.Items))
		for _, it := range req.Items {
			if it.ProductID == uuid.Nil || it.Quantity <= 0 {
				return nil, shared.NewValidationError("Each item needs a product and a positive quantity")
			}
			if _, seen := wanted[it.ProductID]; !seen {
				ids = append(ids, it.ProductID)
			}
			wanted[it.ProductID] += it.Quantity
		}
		products, err := s.loadProducts(ctx, ids)
		if err != nil {
			return nil, err
		}
		for _, id := range ids {
			p := products[id]
			b.lines = append(b.lines, Line{
				ProductID:   p.ID,
				ProductName: p.Name,
				SKU:         p.SKU,
				UnitPrice:   p.Price,
				Quantity:    wanted[id],
			})
		}
		return b, nil
	}

	c, err := s.deps.Carts.FindByCustomerID(ctx, req.Customer.UserID)
	if err != nil && !errors.Is(err, shared.ErrNotFound) {
		return nil, err
	}
	if c == nil || c.IsEmpty() {
		return nil, shared.NewValidationError("Cart is empty")
	}
	ids := make([]uuid.UUID, 0, len(c.Items))
	for _, it := range c.Items {
		ids = append(ids, it.ProductID)
	}
	products, err := s.loadProducts(ctx, ids)
	if err != nil {
		return nil, err
	}
	for _, it := range c.Items {
		b.lines = append(b.lines, Line{
			ProductID:   it.ProductID,
			ProductName: it.ProductName,
			SKU:         products[it.ProductID].SKU,
			UnitPrice:   it.UnitPrice,
			Quantity:    it.Quantity,
		})
	}

	b.cart = c
	if req.IsPickup == nil {
		b.isPickup = c.IsPickup
	}
	requested := pricing.NormalizeCode(req.CouponCode)
	if requested == "" || requested == c.CouponCode {
		b.couponCode = c.CouponCode
		b.cartDiscount = c.DiscountAmount
		b.cartSource = c.DiscountSource
	}
	return b, nil
}

func (s *Service) loadProducts(ctx context.Context, ids []uuid.UUID) (map[uuid.UUID]*catalog.Product, error) {
	found, err := s.deps.Products.FindByIDs(ctx, ids)
	if err != nil {
		return nil, err
	}
	byID := catalog.IndexByID(found)
	for _, id := range ids {
		p, ok := byID[id]
		if !ok {
			return nil, catalog.NewProductNotFoundError(id)
		}
		if !p.IsActive() {
			return nil, catalog.NewProductUnavailableError(id, p.Status)
		}
	}
	return byID, nil
}

// price quotes the basket. A coupon code missing from the store is left to
// the promotions table.
func (s *Service) price(ctx context.Context, req Request, b *basket) (pricing.Quote, *pricing.Coupon, error) {
	lines := make([]pricing.Line, 0, len(b.lines))
	for _, l := range b.lines {
		lines = append(lines, pricing.Line{ProductID: l.ProductID, UnitPrice: l.UnitPrice, Quantity: l.Quantity})
	}

	var coupon *pricing.Coupon
	code := pricing.NormalizeCode(b.couponCode)
	manual := req.ManualDiscount != nil && req.ManualDiscount.IsPositive()
	if code != "" && !manual && !b.cartDiscount.IsPositive() {
		c, err := s.deps.Coupons.FindByCode(ctx, code)
		switch {
		case err == nil:
			coupon = c
		case errors.Is(err, shared.ErrNotFound):
		default:
			return pricing.Quote{}, nil, err
		}
	}

	quote, err := s.deps.Engine.Quote(pricing.QuoteInput{
		Lines:              lines,
		IsPickup:           b.isPickup,
		TaxRate:            s.cfg.TaxRate,
		ManualDiscount:     req.ManualDiscount,
		CartDiscount:       b.cartDiscount,
		CartDiscountSource: b.cartSource,
		CouponCode:         code,
		Coupon:             coupon,
	})
	return quote, coupon, err
}

func (s *Service) buildOrder(orderID uuid.UUID, req Request, strategy Strategy, b *basket, quote pricing.Quote, coupon *pricing.Coupon) (*order.Order, error) {
	items := make([]order.ItemInput, 0, len(b.lines))
	for _, l := range b.lines {
		items = append(items, order.ItemInput{
			ProductID:   l.ProductID,
			ProductName: l.ProductName,
			SKU:         l.SKU,
			UnitPrice:   l.UnitPrice,
			Quantity:    l.Quantity,
		})
	}

	o, err := order.NewOrder(order.NewOrderParams{
		ID: orderID,
		// replaced by persistOrder
		OrderNumber:     order.FormatOrderNumber(time.Now().Year(), 0),
		CustomerID:      req.Customer.UserID,
		CustomerEmail:   req.Customer.Email,
		Items:           items,
		TaxRate:         s.cfg.TaxRate,
		ShippingAmount:  quote.Shipping,
		IsPickup:        b.isPickup,
		Strategy:        strategy.Name(),
		ShippingAddress: req.ShippingAddress,
		Notes:           req.Notes,
		CustomerIP:      req.CustomerIP,
		UserAgent:       req.UserAgent,
	})
	if err != nil {
		return nil, err
	}

	if quote.Discount.IsPositive() {
		meta := discountMetadata(quote, coupon, req.Customer)
		if quote.DiscountSource == pricing.DiscountSourceManual {
			_, err = o.ApplyManualDiscount(quote.Discount, meta)
		} else {
			_, err = o.ApplyCoupon(quote.CouponCode, quote.Discount, meta, quote.DiscountSource)
		}
		if err != nil {
			return nil, err
		}
	} else if quote.FreeShipping {
		o.CouponCode = quote.CouponCode
		o.DiscountSource = quote.DiscountSource
		o.DiscountMetadata = discountMetadata(quote, coupon, req.Customer)
	}

	if err := o.Submit(order.SystemActor, "Placed at checkout"); err != nil {
		return nil, err
	}
	return o, nil
}

func discountMetadata(q pricing.Quote, coupon *pricing.Coupon, actor shared.Actor) string {
	meta := map[string]any{
		"source": q.DiscountSource,
		"amount": q.Discount.String(),
	}
	if q.CouponCode != "" {
		meta["coupon_code"] = q.CouponCode
	}
	if coupon != nil {
		meta["discount_type"] = coupon.DiscountType
		meta["discount_value"] = coupon.DiscountValue.String()
	}
	if q.FreeShipping {
		meta["free_shipping"] = true
	}
	if q.DiscountSource == pricing.DiscountSourceManual {
		meta["entered_by"] = actor.Name()
	}
	raw, err := json.Marshal(meta)
	if err != nil {
		return ""
	}
	return string(raw)
}

// persistOrder numbers and saves the order. A number taken concurrently is
// replaced and the save retried.
func (s *Service) persistOrder(ctx context.Context, o *order.Order, log *zap.Logger) error {
	number, err := s.deps.Orders.GenerateOrderNumber(ctx)
	if err != nil {
		return err
	}
	o.OrderNumber = number

	return s.cfg.StoreRetry.DoTransient(ctx, func(ctx context.Context) error {
		err := s.deps.Orders.Save(ctx, o)
		if !errors.Is(err, shared.ErrAlreadyExists) {
			return err
		}
		next, genErr := s.deps.Orders.GenerateOrderNumber(ctx)
		if genErr != nil {
			return genErr
		}
		o.OrderNumber = next
		return shared.ErrConcurrencyConflict.WithDetail("order_number", next)
	}, func(attempt int, err error) {
		s.metrics.StoreWriteRetried(ctx, "order")
		log.Debug("Retrying order save", zap.Int("attempt", attempt), zap.Error(err))
	})
}

func (s *Service) clearCart(ctx context.Context, session *Session, c *cart.Cart, log *zap.Logger) {
	if _, err := s.deps.Holds.ReleaseReference(ctx, inventory.ReferenceCart, c.ID.String(), inventory.ReleaseReasonCartCleared); err != nil {
		log.Warn("Failed to release leftover cart holds", zap.String("cart_id", c.ID.String()), zap.Error(err))
		session.Warn("cart hold release failed: %v", err)
	}
	c.Clear()
	err := s.cfg.StoreRetry.DoTransient(ctx, func(ctx context.Context) error {
		return s.deps.Carts.Save(ctx, c)
	}, func(int, error) {
		s.metrics.StoreWriteRetried(ctx, "cart")
	})
	if err != nil {
		log.Warn("Failed to clear cart after checkout", zap.String("cart_id", c.ID.String()), zap.Error(err))
		session.Warn("cart clear failed: %v", err)
		return
	}
	session.Checkpoint(ctx, checkout.StepCart)
}

func (s *Service) saveIntent(ctx context.Context, intent *checkout.Intent, log *zap.Logger) {
	err := s.cfg.StoreRetry.DoTransient(ctx, func(ctx context.Context) error {
		return s.deps.Intents.Save(ctx, intent)
	}, nil)
	if err != nil {
		log.Warn("Failed to persist checkout intent",
			zap.String("intent_id", intent.ID.String()),
			zap.String("status", string(intent.Status)),
			zap.Error(err),
		)
	}
}

// abort closes the saga after a failed checkout. An intent that never wrote
// anything releases its idempotency key for a retry.
func (s *Service) abort(ctx context.Context, intent *checkout.Intent, claim string, cause error, log *zap.Logger) {
	ctx = context.WithoutCancel(ctx)
	intent.Fail(cause)
	s.saveIntent(ctx, intent, log)

	if intent.Status == checkout.IntentNeedsReconciliation {
		s.metrics.IntentsFlagged(ctx, 1)
		log.Error("Checkout stopped after partial writes, flagged for reconciliation",
			zap.String("intent_id", intent.ID.String()),
			zap.Any("completed_steps", intent.CompletedSteps),
			zap.Error(cause),
		)
		return
	}
	if claim != "" && s.deps.Keys != nil {
		if err := s.deps.Keys.Remove(ctx, "checkout:"+claim); err != nil {
			log.Warn("Failed to release idempotency key", zap.Error(err))
		}
	}
}

// publishCreated announces the order without waiting for subscribers
func (s *Service) publishCreated(ctx context.Context, o *order.Order, log *zap.Logger) {
	if s.deps.Publisher == nil {
		return
	}
	event := order.NewOrderCreatedEvent(o)
	s.inflight.Add(1)
	go func() {
		defer s.inflight.Done()
		pctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), s.cfg.PublishTimeout)
		defer cancel()
		if err := s.deps.Publisher.Publish(pctx, event); err != nil {
			log.Warn("Failed to publish OrderCreated", zap.String("order_number", o.OrderNumber), zap.Error(err))
		}
	}()
}
