package order

import (
	"context"
	"errors"

	"github.com/google/uuid"
	appinv "github.com/storefront/backend/internal/application/inventory"
	"github.com/storefront/backend/internal/domain/catalog"
	"github.com/storefront/backend/internal/domain/inventory"
	"github.com/storefront/backend/internal/domain/order"
	"github.com/storefront/backend/internal/domain/shared"
	"github.com/storefront/backend/internal/infrastructure/logger"
	"go.uber.org/zap"
)

// Restocker puts a cancelled order's units back into the ledger
type Restocker interface {
	RestockOrder(ctx context.Context, orderRef string, lines []appinv.RestockLine, reason string) error
}

// OrderService runs order reads and status changes for staff and customers
type OrderService struct {
	orders    order.OrderRepository
	products  catalog.ProductRepository
	restocker Restocker
	retry     appinv.RetryPolicy
	logger    *zap.Logger
}

// NewOrderService creates a new OrderService
func NewOrderService(
	orders order.OrderRepository,
	products catalog.ProductRepository,
	restocker Restocker,
	retry appinv.RetryPolicy,
	logger *zap.Logger,
) *OrderService {
	return &OrderService{
		orders:    orders,
		products:  products,
		restocker: restocker,
		retry:     retry,
		logger:    logger,
	}
}

// Get returns an order the actor may see
func (s *OrderService) Get(ctx context.Context, actor shared.Actor, orderID uuid.UUID) (*OrderResponse, error) {
	o, err := s.load(ctx, actor, orderID)
	if err != nil {
		return nil, err
	}
	resp := ToOrderResponse(o)
	return &resp, nil
}

// List returns orders; customers only ever see their own
func (s *OrderService) List(ctx context.Context, actor shared.Actor, filter OrderListFilter) ([]OrderListItemResponse, int64, error) {
	if actor.IsAnonymous() {
		return nil, 0, shared.ErrUnauthorized
	}
	if filter.Page <= 0 {
		filter.Page = 1
	}
	if filter.PageSize <= 0 {
		filter.PageSize = 20
	}

	f := order.OrderFilter{Filter: shared.Filter{Page: filter.Page, PageSize: filter.PageSize}}
	if !actor.IsStaff() {
		f.CustomerID = &actor.UserID
	}
	if filter.Status != "" {
		status := order.OrderStatus(filter.Status)
		if !status.IsValid() {
			return nil, 0, shared.NewValidationError("Unknown order status").WithDetail("status", filter.Status)
		}
		f.Status = &status
	}

	orders, total, err := s.orders.FindAll(ctx, f)
	if err != nil {
		return nil, 0, err
	}
	return ToOrderListItemResponses(orders), total, nil
}

// History returns the status trail of an order
func (s *OrderService) History(ctx context.Context, actor shared.Actor, orderID uuid.UUID) ([]HistoryResponse, error) {
	if _, err := s.load(ctx, actor, orderID); err != nil {
		return nil, err
	}
	entries, err := s.orders.FindHistory(ctx, orderID)
	if err != nil {
		return nil, err
	}
	return ToHistoryResponses(entries), nil
}

// Confirm accepts a pending order
func (s *OrderService) Confirm(ctx context.Context, actor shared.Actor, orderID uuid.UUID, req TransitionRequest) (*OrderResponse, error) {
	return s.staffTransition(ctx, actor, orderID, func(o *order.Order) error {
		return o.Confirm(actor.Name(), req.Notes)
	})
}

// MarkPaid records payment
func (s *OrderService) MarkPaid(ctx context.Context, actor shared.Actor, orderID uuid.UUID, req TransitionRequest) (*OrderResponse, error) {
	return s.staffTransition(ctx, actor, orderID, func(o *order.Order) error {
		return o.MarkPaid(actor.Name(), req.Notes)
	})
}

// Fulfill marks the order packed
func (s *OrderService) Fulfill(ctx context.Context, actor shared.Actor, orderID uuid.UUID, req TransitionRequest) (*OrderResponse, error) {
	return s.staffTransition(ctx, actor, orderID, func(o *order.Order) error {
		return o.Fulfill(actor.Name(), req.Notes)
	})
}

// Ship hands the order to a carrier
func (s *OrderService) Ship(ctx context.Context, actor shared.Actor, orderID uuid.UUID, req ShipOrderRequest) (*OrderResponse, error) {
	return s.staffTransition(ctx, actor, orderID, func(o *order.Order) error {
		return o.Ship(actor.Name(), req.TrackingNumber, req.Carrier)
	})
}

// Deliver records delivery
func (s *OrderService) Deliver(ctx context.Context, actor shared.Actor, orderID uuid.UUID, req TransitionRequest) (*OrderResponse, error) {
	return s.staffTransition(ctx, actor, orderID, func(o *order.Order) error {
		return o.Deliver(actor.Name(), req.Notes)
	})
}

// Complete closes a delivered order, which triggers loyalty accrual downstream
func (s *OrderService) Complete(ctx context.Context, actor shared.Actor, orderID uuid.UUID, req TransitionRequest) (*OrderResponse, error) {
	return s.staffTransition(ctx, actor, orderID, func(o *order.Order) error {
		return o.Complete(actor.Name(), req.Notes)
	})
}

// ResetToDraft sends a pending order back for editing
func (s *OrderService) ResetToDraft(ctx context.Context, actor shared.Actor, orderID uuid.UUID, req TransitionRequest) (*OrderResponse, error) {
	return s.staffTransition(ctx, actor, orderID, func(o *order.Order) error {
		return o.ResetToDraft(actor.Name(), req.Notes)
	})
}

// Cancel stops the order and returns its stock. Staff may cancel any order,
// customers only their own.
func (s *OrderService) Cancel(ctx context.Context, actor shared.Actor, orderID uuid.UUID, req CancelOrderRequest) (*OrderResponse, error) {
	var previous order.OrderStatus
	o, err := s.mutate(ctx, actor, orderID, false, func(o *order.Order) error {
		previous = o.Status
		return o.Cancel(actor.Name(), req.Reason)
	})
	if err != nil {
		return nil, err
	}

	if err := s.restock(ctx, o, previous); err != nil {
		logger.Enrich(ctx, s.logger).Error("Order cancelled but restock failed",
			zap.String("order_number", o.OrderNumber),
			zap.String("strategy", string(o.Strategy)),
			zap.Error(err),
		)
	}

	resp := ToOrderResponse(o)
	return &resp, nil
}

// restock undoes the stock effects of checkout. Standard orders consumed
// ledger units and return them; both strategies lowered the catalog counter.
func (s *OrderService) restock(ctx context.Context, o *order.Order, previous order.OrderStatus) error {
	lines := make([]appinv.RestockLine, 0, len(o.Items))
	for _, it := range o.Items {
		lines = append(lines, appinv.RestockLine{ProductID: it.ProductID, Quantity: it.Quantity})
	}

	var errs []error
	if o.Strategy == order.StrategyStandard && s.restocker != nil {
		if err := s.restocker.RestockOrder(ctx, o.ID.String(), lines, inventory.ReleaseReasonOrderCanceled); err != nil {
			errs = append(errs, err)
		}
	}
	for _, line := range lines {
		err := s.retry.DoTransient(ctx, func(ctx context.Context) error {
			return s.products.IncrementStock(ctx, line.ProductID, line.Quantity)
		}, nil)
		if err != nil {
			errs = append(errs, err)
		}
	}

	logger.Enrich(ctx, s.logger).Info("Order cancelled",
		zap.String("order_number", o.OrderNumber),
		zap.String("previous_status", string(previous)),
		zap.Int("units", o.TotalQuantity()),
	)
	return errors.Join(errs...)
}

func (s *OrderService) staffTransition(ctx context.Context, actor shared.Actor, orderID uuid.UUID, fn func(o *order.Order) error) (*OrderResponse, error) {
	o, err := s.mutate(ctx, actor, orderID, true, fn)
	if err != nil {
		return nil, err
	}
	resp := ToOrderResponse(o)
	return &resp, nil
}

// mutate applies fn to a freshly loaded order and saves it under the version
// check, reloading on conflict.
func (s *OrderService) mutate(ctx context.Context, actor shared.Actor, orderID uuid.UUID, staffOnly bool, fn func(o *order.Order) error) (*order.Order, error) {
	if staffOnly && !actor.IsStaff() {
		if actor.IsAnonymous() {
			return nil, shared.ErrUnauthorized
		}
		return nil, shared.ErrForbidden
	}

	var result *order.Order
	err := s.retry.Do(ctx, func(ctx context.Context) error {
		o, err := s.load(ctx, actor, orderID)
		if err != nil {
			return err
		}
		if err := fn(o); err != nil {
			return err
		}
		if err := s.orders.SaveWithLock(ctx, o); err != nil {
			return err
		}
		result = o
		return nil
	}, nil)
	return result, err
}

// load fetches an order and checks the actor may see it
func (s *OrderService) load(ctx context.Context, actor shared.Actor, orderID uuid.UUID) (*order.Order, error) {
	if actor.IsAnonymous() {
		return nil, shared.ErrUnauthorized
	}
	o, err := s.orders.FindByID(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if !actor.IsStaff() && !o.IsOwnedBy(actor.UserID) {
		return nil, shared.ErrForbidden
	}
	return o, nil
}
