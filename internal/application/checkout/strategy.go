package checkout

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	appinv "github.com/storefront/backend/internal/application/inventory"
	"github.com/storefront/backend/internal/domain/catalog"
	"github.com/storefront/backend/internal/domain/checkout"
	"github.com/storefront/backend/internal/domain/inventory"
	"github.com/storefront/backend/internal/domain/order"
	"github.com/storefront/backend/internal/infrastructure/logger"
	"go.uber.org/zap"
)

// Line is one product being bought, priced and named when the session was built
type Line struct {
	ProductID   uuid.UUID
	ProductName string
	SKU         string
	UnitPrice   decimal.Decimal
	Quantity    int
}

// HoldRef names the reservations a standard checkout consumes and tops up
type HoldRef struct {
	Type inventory.ReferenceType
	ID   string
}

// Session is the state shared by the orchestrator and a strategy for one checkout
type Session struct {
	Intent *checkout.Intent
	Lines  []Line
	Hold   HoldRef

	// checkpoint persists the intent after a completed step
	checkpoint func(ctx context.Context, step checkout.Step)
	warnings   []string
}

// Warn records a secondary write that failed without failing the checkout
func (s *Session) Warn(format string, args ...any) {
	s.warnings = append(s.warnings, fmt.Sprintf(format, args...))
}

// Warnings returns what Warn collected
func (s *Session) Warnings() []string {
	return s.warnings
}

// Checkpoint marks step completed on the intent and persists it. Persisting is
// best effort; the intent is saved again when the checkout settles.
func (s *Session) Checkpoint(ctx context.Context, step checkout.Step) {
	s.Intent.MarkStep(step)
	if s.checkpoint != nil {
		s.checkpoint(ctx, step)
	}
}

// Strategy takes the stock for a session. Everything after stock (order,
// coupon, cart, events) is shared by all strategies.
type Strategy interface {
	Name() order.CheckoutStrategy
	TakeStock(ctx context.Context, s *Session) error
}

// StockDeps are the stores and knobs the strategies share
type StockDeps struct {
	Scope        appinv.TransactionScope
	Tracker      *inventory.ReservationTracker
	Products     catalog.ProductRepository
	Provisioning appinv.Provisioning
	// Retry covers optimistic conflicts on the ledger
	Retry appinv.RetryPolicy
	// StoreRetry covers single writes to the catalog
	StoreRetry appinv.RetryPolicy
	Hold       time.Duration
	Metrics    Metrics
	Logger     *zap.Logger
}

func (d *StockDeps) normalize() {
	if d.Hold <= 0 {
		d.Hold = 24 * time.Hour
	}
	if d.Metrics == nil {
		d.Metrics = noopMetrics{}
	}
	if d.Logger == nil {
		d.Logger = zap.NewNop()
	}
}

// StandardCheckout takes stock from the inventory ledger. Units the customer
// already holds in cart reservations are converted to sales; any shortfall is
// reserved first, so concurrent checkouts can never oversell a product.
type StandardCheckout struct {
	deps StockDeps
}

// NewStandardCheckout creates the ledger-backed strategy
func NewStandardCheckout(deps StockDeps) *StandardCheckout {
	deps.normalize()
	return &StandardCheckout{deps: deps}
}

// Name returns STANDARD
func (c *StandardCheckout) Name() order.CheckoutStrategy {
	return order.StrategyStandard
}

// TakeStock reserves and confirms every line in one transaction, then lowers
// the catalog display counters. Ledger conflicts are retried against fresh
// rows until the checkout deadline, so a buyer is only turned away with
// INSUFFICIENT_STOCK once the ledger really has no units left.
func (c *StandardCheckout) TakeStock(ctx context.Context, s *Session) error {
	log := logger.Enrich(ctx, c.deps.Logger)
	lines := sortedLines(s.Lines)

	err := c.deps.Retry.DoContended(ctx, func(ctx context.Context) error {
		return c.deps.Scope.Execute(ctx, func(repos appinv.TransactionalRepositories) error {
			for _, l := range lines {
				if err := c.takeLine(ctx, repos, s, l); err != nil {
					return err
				}
			}
			return nil
		})
	}, func(attempt int, err error) {
		c.deps.Metrics.ConflictRetried(ctx, string(order.StrategyStandard))
		log.Debug("Ledger conflict during checkout, retrying", zap.Int("attempt", attempt), zap.Error(err))
	})
	if err != nil {
		return err
	}
	s.Checkpoint(ctx, checkout.StepInventory)

	for _, l := range lines {
		err := c.deps.StoreRetry.DoTransient(ctx, func(ctx context.Context) error {
			return c.deps.Products.DecrementStock(ctx, l.ProductID, l.Quantity)
		}, func(attempt int, err error) {
			c.deps.Metrics.StoreWriteRetried(ctx, "catalog")
		})
		if err != nil {
			log.Warn("Catalog counter not lowered after checkout",
				zap.String("product_id", l.ProductID.String()),
				zap.Int("quantity", l.Quantity),
				zap.Error(err),
			)
			s.Warn("catalog decrement failed for %s x%d: %v", l.ProductID, l.Quantity, err)
		}
	}
	s.Checkpoint(ctx, checkout.StepCatalog)
	return nil
}

func (c *StandardCheckout) takeLine(ctx context.Context, repos appinv.TransactionalRepositories, s *Session, l Line) error {
	item, err := c.deps.Provisioning.LoadOrProvision(ctx, repos.Items(), l.ProductID)
	if err != nil {
		return appinv.ShortageIfMissing(err, l.ProductID, l.Quantity)
	}

	var held []*inventory.StockReservation
	if s.Hold.Type == inventory.ReferenceCart {
		held, err = repos.Reservations().FindActiveByReference(ctx, s.Hold.Type, s.Hold.ID, &l.ProductID)
		if err != nil {
			return err
		}
	}

	if shortfall := l.Quantity - inventory.SumActive(held); shortfall > 0 {
		if err := item.ReserveStock(shortfall); err != nil {
			return err
		}
		topUp, err := c.deps.Tracker.CreateReservation(item.ID, l.ProductID, shortfall, s.Hold.ID, s.Hold.Type, c.deps.Hold.Hours())
		if err != nil {
			return err
		}
		held = append(held, topUp)
	}

	if err := item.ConfirmReservedStock(l.Quantity); err != nil {
		return err
	}
	split := c.deps.Tracker.FulfillPartial(held, l.Quantity)

	if err := repos.Items().SaveWithLock(ctx, item); err != nil {
		return err
	}
	return repos.Reservations().SaveAll(ctx, split.Changed()...)
}

// FastCheckout skips the ledger and lowers the catalog counter with a
// conditional update per line. It is cheaper but only as accurate as the
// counter, which trails the ledger.
type FastCheckout struct {
	deps StockDeps
}

// NewFastCheckout creates the catalog-counter strategy
func NewFastCheckout(deps StockDeps) *FastCheckout {
	deps.normalize()
	return &FastCheckout{deps: deps}
}

// Name returns FAST
func (c *FastCheckout) Name() order.CheckoutStrategy {
	return order.StrategyFast
}

// TakeStock decrements each line's counter if it still covers the quantity.
// Lines already taken are put back when a later line falls short.
func (c *FastCheckout) TakeStock(ctx context.Context, s *Session) error {
	log := logger.Enrich(ctx, c.deps.Logger)
	lines := sortedLines(s.Lines)

	taken := make([]Line, 0, len(lines))
	for _, l := range lines {
		var ok bool
		err := c.deps.StoreRetry.DoTransient(ctx, func(ctx context.Context) error {
			var err error
			ok, err = c.deps.Products.DecrementStockIfAvailable(ctx, l.ProductID, l.Quantity)
			return err
		}, func(attempt int, err error) {
			c.deps.Metrics.StoreWriteRetried(ctx, "catalog")
		})
		if err == nil && !ok {
			err = inventory.NewInsufficientStockError(l.ProductID, l.Quantity, c.displayed(ctx, l.ProductID))
		}
		if err != nil {
			c.putBack(ctx, log, taken)
			return err
		}
		taken = append(taken, l)
	}
	s.Checkpoint(ctx, checkout.StepCatalog)
	return nil
}

// displayed reads the counter again for the shortage report
func (c *FastCheckout) displayed(ctx context.Context, productID uuid.UUID) int {
	p, err := c.deps.Products.FindByID(ctx, productID)
	if err != nil {
		return 0
	}
	return p.StockQuantity
}

func (c *FastCheckout) putBack(ctx context.Context, log *zap.Logger, taken []Line) {
	for _, l := range taken {
		err := c.deps.StoreRetry.DoTransient(ctx, func(ctx context.Context) error {
			return c.deps.Products.IncrementStock(ctx, l.ProductID, l.Quantity)
		}, nil)
		if err != nil {
			log.Error("Failed to restore catalog counter after rejected fast checkout",
				zap.String("product_id", l.ProductID.String()),
				zap.Int("quantity", l.Quantity),
				zap.Error(err),
			)
		}
	}
}

// sortedLines orders lines by product id so concurrent checkouts touch rows in the same order
func sortedLines(lines []Line) []Line {
	out := append([]Line(nil), lines...)
	sort.Slice(out, func(i, j int) bool {
		return out[i].ProductID.String() < out[j].ProductID.String()
	})
	return out
}
