package handler

import (
	"context"

	"github.com/google/uuid"
	appcart "github.com/storefront/backend/internal/application/cart"
	appcheckout "github.com/storefront/backend/internal/application/checkout"
	appevent "github.com/storefront/backend/internal/application/event"
	appinventory "github.com/storefront/backend/internal/application/inventory"
	apployalty "github.com/storefront/backend/internal/application/loyalty"
	apporder "github.com/storefront/backend/internal/application/order"
	"github.com/storefront/backend/internal/domain/shared"
)

// The application services the handlers call. The concrete services in
// internal/application satisfy them; tests substitute mocks.

// CheckoutService places orders
type CheckoutService interface {
	Checkout(ctx context.Context, req appcheckout.Request) (*appcheckout.Result, error)
}

// CartService manages the caller's cart
type CartService interface {
	Get(ctx context.Context, actor shared.Actor) (*appcart.CartResponse, error)
	AddItem(ctx context.Context, actor shared.Actor, req appcart.AddItemRequest) (*appcart.CartResponse, error)
	UpdateItem(ctx context.Context, actor shared.Actor, productID uuid.UUID, req appcart.UpdateItemRequest) (*appcart.CartResponse, error)
	RemoveItem(ctx context.Context, actor shared.Actor, productID uuid.UUID) (*appcart.CartResponse, error)
	ApplyCoupon(ctx context.Context, actor shared.Actor, req appcart.ApplyCouponRequest) (*appcart.CartResponse, error)
	RemoveCoupon(ctx context.Context, actor shared.Actor) (*appcart.CartResponse, error)
	SetShipping(ctx context.Context, actor shared.Actor, req appcart.SetShippingRequest) (*appcart.CartResponse, error)
	Clear(ctx context.Context, actor shared.Actor) (*appcart.CartResponse, error)
}

// OrderService reads orders and drives their lifecycle
type OrderService interface {
	Get(ctx context.Context, actor shared.Actor, orderID uuid.UUID) (*apporder.OrderResponse, error)
	List(ctx context.Context, actor shared.Actor, filter apporder.OrderListFilter) ([]apporder.OrderListItemResponse, int64, error)
	History(ctx context.Context, actor shared.Actor, orderID uuid.UUID) ([]apporder.HistoryResponse, error)
	Confirm(ctx context.Context, actor shared.Actor, orderID uuid.UUID, req apporder.TransitionRequest) (*apporder.OrderResponse, error)
	MarkPaid(ctx context.Context, actor shared.Actor, orderID uuid.UUID, req apporder.TransitionRequest) (*apporder.OrderResponse, error)
	Fulfill(ctx context.Context, actor shared.Actor, orderID uuid.UUID, req apporder.TransitionRequest) (*apporder.OrderResponse, error)
	Ship(ctx context.Context, actor shared.Actor, orderID uuid.UUID, req apporder.ShipOrderRequest) (*apporder.OrderResponse, error)
	Deliver(ctx context.Context, actor shared.Actor, orderID uuid.UUID, req apporder.TransitionRequest) (*apporder.OrderResponse, error)
	Complete(ctx context.Context, actor shared.Actor, orderID uuid.UUID, req apporder.TransitionRequest) (*apporder.OrderResponse, error)
	ResetToDraft(ctx context.Context, actor shared.Actor, orderID uuid.UUID, req apporder.TransitionRequest) (*apporder.OrderResponse, error)
	Cancel(ctx context.Context, actor shared.Actor, orderID uuid.UUID, req apporder.CancelOrderRequest) (*apporder.OrderResponse, error)
}

// ReturnService handles return requests
type ReturnService interface {
	Request(ctx context.Context, actor shared.Actor, orderID uuid.UUID, req apporder.CreateReturnRequest) (*apporder.ReturnResponse, error)
	Get(ctx context.Context, actor shared.Actor, returnID uuid.UUID) (*apporder.ReturnResponse, error)
	ListForOrder(ctx context.Context, actor shared.Actor, orderID uuid.UUID) ([]apporder.ReturnResponse, error)
	Approve(ctx context.Context, actor shared.Actor, returnID uuid.UUID) (*apporder.ReturnResponse, error)
	Reject(ctx context.Context, actor shared.Actor, returnID uuid.UUID, req apporder.RejectReturnRequest) (*apporder.ReturnResponse, error)
	Refund(ctx context.Context, actor shared.Actor, returnID uuid.UUID) (*apporder.ReturnResponse, error)
}

// InventoryService reads and corrects ledger rows
type InventoryService interface {
	Stock(ctx context.Context, productID uuid.UUID) (*appinventory.StockLevel, error)
	Adjust(ctx context.Context, productID uuid.UUID, delta int, reason string) (*appinventory.StockLevel, error)
}

// LoyaltyService manages point balances
type LoyaltyService interface {
	Get(ctx context.Context, actor shared.Actor) (*apployalty.AccountResponse, error)
	GetFor(ctx context.Context, actor shared.Actor, userID uuid.UUID) (*apployalty.AccountResponse, error)
	Redeem(ctx context.Context, actor shared.Actor, req apployalty.RedeemRequest) (*apployalty.AccountResponse, error)
	Adjust(ctx context.Context, actor shared.Actor, userID uuid.UUID, req apployalty.AdjustRequest) (*apployalty.AccountResponse, error)
}

// OutboxService exposes undeliverable events to staff
type OutboxService interface {
	DeadLetters(ctx context.Context, actor shared.Actor, filter appevent.DeadLetterFilter) (*appevent.DeadLetterPage, error)
	Retry(ctx context.Context, actor shared.Actor, id uuid.UUID) (*appevent.OutboxEntryResponse, error)
	RetryAll(ctx context.Context, actor shared.Actor) (int64, error)
	Stats(ctx context.Context, actor shared.Actor) (*appevent.OutboxStats, error)
}

var (
	_ CheckoutService  = (*appcheckout.Service)(nil)
	_ CartService      = (*appcart.Service)(nil)
	_ OrderService     = (*apporder.OrderService)(nil)
	_ ReturnService    = (*apporder.ReturnService)(nil)
	_ InventoryService = (*appinventory.LedgerService)(nil)
	_ LoyaltyService   = (*apployalty.Service)(nil)
	_ OutboxService    = (*appevent.OutboxService)(nil)
)
