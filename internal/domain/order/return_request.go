package order

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/storefront/backend/internal/domain/shared"
)

// ReturnStatus is the lifecycle state of a return request
type ReturnStatus string

const (
	ReturnStatusPending  ReturnStatus = "PENDING"
	ReturnStatusApproved ReturnStatus = "APPROVED"
	ReturnStatusRejected ReturnStatus = "REJECTED"
	ReturnStatusRefunded ReturnStatus = "REFUNDED"
)

// Event type constants for returns
const (
	AggregateTypeReturnRequest = "ReturnRequest"
	EventTypeReturnRefunded    = "ReturnRefunded"
)

// ReturnRequest asks to send back part of a delivered order line
type ReturnRequest struct {
	shared.BaseAggregateRoot
	OrderID         uuid.UUID
	OrderItemID     uuid.UUID
	ProductID       uuid.UUID
	CustomerID      uuid.UUID
	Quantity        int
	UnitPrice       decimal.Decimal
	RefundAmount    decimal.Decimal
	Reason          string
	Description     string
	Status          ReturnStatus
	RequestedAt     time.Time
	ApprovedAt      *time.Time
	RejectedAt      *time.Time
	RefundedAt      *time.Time
	ProcessedBy     string
	RejectionReason string
}

// NewReturnRequest validates ownership and order state, then opens a PENDING request
func NewReturnRequest(o *Order, customerID, orderItemID uuid.UUID, quantity int, reason, description string) (*ReturnRequest, error) {
	if !o.IsOwnedBy(customerID) {
		return nil, shared.ErrForbidden
	}
	if o.Status != OrderStatusDelivered && o.Status != OrderStatusCompleted {
		return nil, shared.NewDomainError(shared.CodeInvalidState,
			fmt.Sprintf("Returns are only accepted for delivered orders, order is %s", o.Status))
	}
	item := o.GetItem(orderItemID)
	if item == nil {
		return nil, shared.ErrNotFound.WithDetail("order_item_id", orderItemID.String())
	}
	if quantity <= 0 || quantity > item.Quantity {
		return nil, shared.NewValidationError(fmt.Sprintf("Return quantity must be between 1 and %d", item.Quantity))
	}
	if reason == "" {
		return nil, shared.NewValidationError("Return reason is required")
	}

	now := time.Now()
	return &ReturnRequest{
		BaseAggregateRoot: shared.NewBaseAggregateRoot(),
		OrderID:           o.ID,
		OrderItemID:       item.ID,
		ProductID:         item.ProductID,
		CustomerID:        customerID,
		Quantity:          quantity,
		UnitPrice:         item.UnitPrice,
		RefundAmount:      item.UnitPrice.Mul(decimal.NewFromInt(int64(quantity))),
		Reason:            reason,
		Description:       description,
		Status:            ReturnStatusPending,
		RequestedAt:       now,
	}, nil
}

// ReturnedQuantity sums the units of an order line already claimed by
// requests that were not rejected
func ReturnedQuantity(requests []ReturnRequest, orderItemID uuid.UUID) int {
	total := 0
	for _, r := range requests {
		if r.OrderItemID == orderItemID && r.Status != ReturnStatusRejected {
			total += r.Quantity
		}
	}
	return total
}

// CheckReturnable rejects a request that would return more units of a line
// than were bought, counting the earlier requests in prior
func CheckReturnable(o *Order, orderItemID uuid.UUID, quantity int, prior []ReturnRequest) error {
	item := o.GetItem(orderItemID)
	if item == nil {
		return shared.ErrNotFound.WithDetail("order_item_id", orderItemID.String())
	}
	already := ReturnedQuantity(prior, orderItemID)
	if already+quantity > item.Quantity {
		return shared.NewValidationError(fmt.Sprintf("Only %d of %d units are left to return", max(item.Quantity-already, 0), item.Quantity)).
			WithDetail("order_item_id", orderItemID.String())
	}
	return nil
}

func (r *ReturnRequest) invalid(action string) error {
	return shared.NewDomainError(shared.CodeInvalidState,
		fmt.Sprintf("Cannot %s a return request in %s status", action, r.Status))
}

// Approve accepts a pending request
func (r *ReturnRequest) Approve(staff string) error {
	if r.Status != ReturnStatusPending {
		return r.invalid("approve")
	}
	now := time.Now()
	r.Status = ReturnStatusApproved
	r.ApprovedAt = &now
	r.ProcessedBy = staff
	r.UpdatedAt = now
	return nil
}

// Reject declines a pending request
func (r *ReturnRequest) Reject(staff, reason string) error {
	if r.Status != ReturnStatusPending {
		return r.invalid("reject")
	}
	if reason == "" {
		return shared.NewValidationError("Rejection reason is required")
	}
	now := time.Now()
	r.Status = ReturnStatusRejected
	r.RejectedAt = &now
	r.RejectionReason = reason
	r.ProcessedBy = staff
	r.UpdatedAt = now
	return nil
}

// MarkRefunded records that the refund was paid out
func (r *ReturnRequest) MarkRefunded(staff string) error {
	if r.Status != ReturnStatusApproved {
		return r.invalid("refund")
	}
	now := time.Now()
	r.Status = ReturnStatusRefunded
	r.RefundedAt = &now
	r.ProcessedBy = staff
	r.UpdatedAt = now
	r.RaiseEvent(NewReturnRefundedEvent(r))
	return nil
}

// ReturnRefundedEvent tells the payment side to pay out RefundAmount
type ReturnRefundedEvent struct {
	shared.BaseDomainEvent
	ReturnID     uuid.UUID       `json:"return_id"`
	OrderID      uuid.UUID       `json:"order_id"`
	CustomerID   uuid.UUID       `json:"customer_id"`
	RefundAmount decimal.Decimal `json:"refund_amount"`
}

// NewReturnRefundedEvent creates a new ReturnRefundedEvent
func NewReturnRefundedEvent(r *ReturnRequest) *ReturnRefundedEvent {
	return &ReturnRefundedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeReturnRefunded, AggregateTypeReturnRequest, r.ID),
		ReturnID:        r.ID,
		OrderID:         r.OrderID,
		CustomerID:      r.CustomerID,
		RefundAmount:    r.RefundAmount,
	}
}

// EventType returns the event type name
func (e *ReturnRefundedEvent) EventType() string {
	return EventTypeReturnRefunded
}
