package order

// OrderStatus represents the lifecycle state of an order
type OrderStatus string

const (
	OrderStatusDraft     OrderStatus = "DRAFT"
	OrderStatusPending   OrderStatus = "PENDING"
	OrderStatusConfirmed OrderStatus = "CONFIRMED"
	OrderStatusPaid      OrderStatus = "PAID"
	OrderStatusFulfilled OrderStatus = "FULFILLED"
	OrderStatusShipped   OrderStatus = "SHIPPED"
	OrderStatusDelivered OrderStatus = "DELIVERED"
	OrderStatusCompleted OrderStatus = "COMPLETED"
	OrderStatusCancelled OrderStatus = "CANCELLED"
)

var allowedTransitions = map[OrderStatus][]OrderStatus{
	OrderStatusDraft:     {OrderStatusPending, OrderStatusConfirmed, OrderStatusCancelled},
	OrderStatusPending:   {OrderStatusConfirmed, OrderStatusDraft, OrderStatusCancelled},
	OrderStatusConfirmed: {OrderStatusPaid, OrderStatusFulfilled, OrderStatusShipped, OrderStatusCancelled},
	OrderStatusPaid:      {OrderStatusFulfilled, OrderStatusShipped},
	OrderStatusFulfilled: {OrderStatusShipped},
	OrderStatusShipped:   {OrderStatusDelivered},
	OrderStatusDelivered: {OrderStatusCompleted},
}

// AllStatuses lists every order status
func AllStatuses() []OrderStatus {
	return []OrderStatus{
		OrderStatusDraft, OrderStatusPending, OrderStatusConfirmed, OrderStatusPaid,
		OrderStatusFulfilled, OrderStatusShipped, OrderStatusDelivered, OrderStatusCompleted,
		OrderStatusCancelled,
	}
}

// IsValid checks if the status is a valid OrderStatus
func (s OrderStatus) IsValid() bool {
	for _, st := range AllStatuses() {
		if s == st {
			return true
		}
	}
	return false
}

// String returns the string representation of OrderStatus
func (s OrderStatus) String() string {
	return string(s)
}

// CanTransitionTo checks if the status can transition to the target status
func (s OrderStatus) CanTransitionTo(target OrderStatus) bool {
	for _, allowed := range allowedTransitions[s] {
		if allowed == target {
			return true
		}
	}
	return false
}

// IsTerminal returns true for statuses with no outgoing transitions
func (s OrderStatus) IsTerminal() bool {
	return len(allowedTransitions[s]) == 0
}

// CheckoutStrategy records which stock path created the order
type CheckoutStrategy string

const (
	StrategyStandard CheckoutStrategy = "STANDARD"
	StrategyFast     CheckoutStrategy = "FAST"
)

// IsValid checks if the strategy is known
func (s CheckoutStrategy) IsValid() bool {
	return s == StrategyStandard || s == StrategyFast
}
