package order

import (
	"context"

	"github.com/google/uuid"
	appinv "github.com/storefront/backend/internal/application/inventory"
	"github.com/storefront/backend/internal/domain/order"
	"github.com/storefront/backend/internal/domain/shared"
	"github.com/storefront/backend/internal/infrastructure/logger"
	"go.uber.org/zap"
)

// ReturnService handles return requests against delivered orders
type ReturnService struct {
	orders  order.OrderRepository
	returns order.ReturnRequestRepository
	retry   appinv.RetryPolicy
	logger  *zap.Logger
}

// NewReturnService creates a new ReturnService
func NewReturnService(orders order.OrderRepository, returns order.ReturnRequestRepository, retry appinv.RetryPolicy, logger *zap.Logger) *ReturnService {
	return &ReturnService{orders: orders, returns: returns, retry: retry, logger: logger}
}

// Request opens a return for one line of the customer's own order
func (s *ReturnService) Request(ctx context.Context, actor shared.Actor, orderID uuid.UUID, req CreateReturnRequest) (*ReturnResponse, error) {
	if actor.IsAnonymous() {
		return nil, shared.ErrUnauthorized
	}
	o, err := s.orders.FindByID(ctx, orderID)
	if err != nil {
		return nil, err
	}
	rr, err := order.NewReturnRequest(o, actor.UserID, req.OrderItemID, req.Quantity, req.Reason, req.Description)
	if err != nil {
		return nil, err
	}
	prior, err := s.returns.FindByOrderID(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if err := order.CheckReturnable(o, req.OrderItemID, req.Quantity, prior); err != nil {
		return nil, err
	}
	if err := s.returns.Save(ctx, rr); err != nil {
		return nil, err
	}

	logger.Enrich(ctx, s.logger).Info("Return requested",
		zap.String("order_number", o.OrderNumber),
		zap.String("return_id", rr.ID.String()),
		zap.Int("quantity", rr.Quantity),
	)
	resp := ToReturnResponse(rr)
	return &resp, nil
}

// Get returns a return request visible to the actor
func (s *ReturnService) Get(ctx context.Context, actor shared.Actor, returnID uuid.UUID) (*ReturnResponse, error) {
	if actor.IsAnonymous() {
		return nil, shared.ErrUnauthorized
	}
	rr, err := s.returns.FindByID(ctx, returnID)
	if err != nil {
		return nil, err
	}
	if !actor.IsStaff() && rr.CustomerID != actor.UserID {
		return nil, shared.ErrForbidden
	}
	resp := ToReturnResponse(rr)
	return &resp, nil
}

// ListForOrder returns the return requests of an order
func (s *ReturnService) ListForOrder(ctx context.Context, actor shared.Actor, orderID uuid.UUID) ([]ReturnResponse, error) {
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
	rs, err := s.returns.FindByOrderID(ctx, orderID)
	if err != nil {
		return nil, err
	}
	out := make([]ReturnResponse, len(rs))
	for i := range rs {
		out[i] = ToReturnResponse(&rs[i])
	}
	return out, nil
}

// Approve accepts a pending return
func (s *ReturnService) Approve(ctx context.Context, actor shared.Actor, returnID uuid.UUID) (*ReturnResponse, error) {
	return s.process(ctx, actor, returnID, func(rr *order.ReturnRequest) error {
		return rr.Approve(actor.Name())
	})
}

// Reject declines a pending return
func (s *ReturnService) Reject(ctx context.Context, actor shared.Actor, returnID uuid.UUID, req RejectReturnRequest) (*ReturnResponse, error) {
	return s.process(ctx, actor, returnID, func(rr *order.ReturnRequest) error {
		return rr.Reject(actor.Name(), req.Reason)
	})
}

// Refund records the payout of an approved return
func (s *ReturnService) Refund(ctx context.Context, actor shared.Actor, returnID uuid.UUID) (*ReturnResponse, error) {
	return s.process(ctx, actor, returnID, func(rr *order.ReturnRequest) error {
		return rr.MarkRefunded(actor.Name())
	})
}

func (s *ReturnService) process(ctx context.Context, actor shared.Actor, returnID uuid.UUID, fn func(rr *order.ReturnRequest) error) (*ReturnResponse, error) {
	if !actor.IsStaff() {
		if actor.IsAnonymous() {
			return nil, shared.ErrUnauthorized
		}
		return nil, shared.ErrForbidden
	}

	var result *order.ReturnRequest
	err := s.retry.Do(ctx, func(ctx context.Context) error {
		rr, err := s.returns.FindByID(ctx, returnID)
		if err != nil {
			return err
		}
		if err := fn(rr); err != nil {
			return err
		}
		if err := s.returns.SaveWithLock(ctx, rr); err != nil {
			return err
		}
		result = rr
		return nil
	}, nil)
	if err != nil {
		return nil, err
	}

	logger.Enrich(ctx, s.logger).Info("Return processed",
		zap.String("return_id", result.ID.String()),
		zap.String("status", string(result.Status)),
		zap.String("by", actor.Name()),
	)
	resp := ToReturnResponse(result)
	return &resp, nil
}
