package order

import (
	"fmt"
	"regexp"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/storefront/backend/internal/domain/pricing"
	"github.com/storefront/backend/internal/domain/shared"
)

var orderNumberPattern = regexp.MustCompile(`^SO-\d{4}-\d{5,}$`)

// FormatOrderNumber renders the human-facing order number for a year and
// sequence. Sequences past 99999 widen the number rather than wrap.
func FormatOrderNumber(year, sequence int) string {
	return fmt.Sprintf("SO-%04d-%05d", year, sequence)
}

// OrderItem is an immutable line captured at checkout
type OrderItem struct {
	ID          uuid.UUID
	OrderID     uuid.UUID
	ProductID   uuid.UUID
	ProductName string
	SKU         string
	UnitPrice   decimal.Decimal
	Quantity    int
	LineTotal   decimal.Decimal
}

// ItemInput describes a line when creating an order
type ItemInput struct {
	ProductID   uuid.UUID
	ProductName string
	SKU         string
	UnitPrice   decimal.Decimal
	Quantity    int
}

// NewOrderParams carries the data needed to open an order
type NewOrderParams struct {
	ID              uuid.UUID // optional; reservations taken before the order exists are keyed by it
	OrderNumber     string
	CustomerID      uuid.UUID
	CustomerEmail   string
	Items           []ItemInput
	TaxRate         decimal.Decimal
	ShippingAmount  decimal.Decimal
	IsPickup        bool
	Strategy        CheckoutStrategy
	ShippingAddress string
	Notes           string
	CustomerIP      string
	UserAgent       string
}

// Order is the aggregate root of a placed purchase
type Order struct {
	shared.BaseAggregateRoot
	OrderNumber      string
	CustomerID       uuid.UUID
	CustomerEmail    string
	Items            []OrderItem
	SubtotalAmount   decimal.Decimal
	TaxRate          decimal.Decimal
	TaxAmount        decimal.Decimal
	ShippingAmount   decimal.Decimal
	DiscountAmount   decimal.Decimal
	TotalAmount      decimal.Decimal
	CouponCode       string
	DiscountSource   pricing.DiscountSource
	DiscountMetadata string
	Status           OrderStatus
	Strategy         CheckoutStrategy
	ShippingAddress  string
	Notes            string
	CustomerIP       string
	UserAgent        string
	IsPickup         bool
	OrderDate        time.Time
	ConfirmedAt      *time.Time
	PaidAt           *time.Time
	FulfilledAt      *time.Time
	ShippedAt        *time.Time
	DeliveredAt      *time.Time
	CompletedAt      *time.Time
	CancelledAt      *time.Time
	CancelReason     string
	TrackingNumber   string
	Carrier          string
	History          []OrderHistory

	newHistory []OrderHistory
}

// NewOrder opens a DRAFT order. Items are fixed from here on.
func NewOrder(p NewOrderParams) (*Order, error) {
	if !orderNumberPattern.MatchString(p.OrderNumber) {
		return nil, shared.NewValidationError("Order number must look like SO-YYYY-NNNNN")
	}
	if p.CustomerID == uuid.Nil {
		return nil, shared.NewValidationError("Customer ID cannot be empty")
	}
	if len(p.Items) == 0 {
		return nil, shared.NewValidationError("Order must have at least one item")
	}
	if p.TaxRate.IsNegative() || p.ShippingAmount.IsNegative() {
		return nil, shared.NewValidationError("Tax rate and shipping cannot be negative")
	}
	if p.Strategy == "" {
		p.Strategy = StrategyStandard
	}
	if !p.Strategy.IsValid() {
		return nil, shared.NewValidationError("Unknown checkout strategy")
	}

	o := &Order{
		BaseAggregateRoot: shared.NewBaseAggregateRoot(),
		OrderNumber:       p.OrderNumber,
		CustomerID:        p.CustomerID,
		CustomerEmail:     p.CustomerEmail,
		TaxRate:           p.TaxRate,
		ShippingAmount:    p.ShippingAmount,
		IsPickup:          p.IsPickup,
		Strategy:          p.Strategy,
		ShippingAddress:   p.ShippingAddress,
		Notes:             p.Notes,
		CustomerIP:        p.CustomerIP,
		UserAgent:         p.UserAgent,
		Status:            OrderStatusDraft,
		OrderDate:         time.Now(),
	}
	if p.ID != uuid.Nil {
		o.ID = p.ID
	}
	if p.IsPickup {
		o.ShippingAmount = decimal.Zero
	}

	for _, in := range p.Items {
		if in.ProductID == uuid.Nil {
			return nil, shared.NewValidationError("Order item product ID cannot be empty")
		}
		if in.Quantity <= 0 {
			return nil, shared.NewValidationError("Order item quantity must be positive")
		}
		if in.UnitPrice.IsNegative() {
			return nil, shared.NewValidationError("Order item price cannot be negative")
		}
		o.Items = append(o.Items, OrderItem{
			ID:          uuid.New(),
			OrderID:     o.ID,
			ProductID:   in.ProductID,
			ProductName: in.ProductName,
			SKU:         in.SKU,
			UnitPrice:   in.UnitPrice,
			Quantity:    in.Quantity,
			LineTotal:   in.UnitPrice.Mul(decimal.NewFromInt(int64(in.Quantity))),
		})
	}

	o.recalculateTotals()
	return o, nil
}

// recalculateTotals keeps Total = Subtotal - Discount + Tax + Shipping
func (o *Order) recalculateTotals() {
	subtotal := decimal.Zero
	for _, it := range o.Items {
		subtotal = subtotal.Add(it.LineTotal)
	}
	o.SubtotalAmount = subtotal.Round(2)
	o.TaxAmount = o.SubtotalAmount.Mul(o.TaxRate).Round(2)
	o.TotalAmount = o.SubtotalAmount.Sub(o.DiscountAmount).Add(o.TaxAmount).Add(o.ShippingAmount)
}

// ApplyCoupon records a coupon discount. It only ever applies once: if the order
// already carries a discount the call does nothing and reports false.
func (o *Order) ApplyCoupon(code string, amount decimal.Decimal, metadataJSON string, source pricing.DiscountSource) (bool, error) {
	if !o.DiscountAmount.IsZero() {
		return false, nil
	}
	if amount.IsNegative() {
		return false, shared.NewValidationError("Discount cannot be negative")
	}
	if amount.IsZero() {
		return false, nil
	}
	if amount.GreaterThan(o.SubtotalAmount) {
		amount = o.SubtotalAmount
	}
	if source == pricing.DiscountSourceNone {
		source = pricing.DiscountSourceCoupon
	}

	o.CouponCode = pricing.NormalizeCode(code)
	o.DiscountAmount = amount
	o.DiscountMetadata = metadataJSON
	o.DiscountSource = source
	o.Touch()
	o.recalculateTotals()
	return true, nil
}

// ApplyManualDiscount records a staff-entered discount under the same single-discount rule
func (o *Order) ApplyManualDiscount(amount decimal.Decimal, metadataJSON string) (bool, error) {
	return o.ApplyCoupon("", amount, metadataJSON, pricing.DiscountSourceManual)
}

// SetShippingAmount replaces the shipping fee
func (o *Order) SetShippingAmount(amount decimal.Decimal) error {
	if amount.IsNegative() {
		return shared.NewValidationError("Shipping amount cannot be negative")
	}
	if o.IsPickup {
		amount = decimal.Zero
	}
	o.ShippingAmount = amount
	o.Touch()
	o.recalculateTotals()
	return nil
}

// Submit places a draft order (DRAFT -> PENDING)
func (o *Order) Submit(actor, notes string) error {
	return o.transition(OrderStatusPending, actor, notes)
}

// ResetToDraft moves a pending order back to DRAFT
func (o *Order) ResetToDraft(actor, notes string) error {
	return o.transition(OrderStatusDraft, actor, notes)
}

// Confirm accepts the order (DRAFT/PENDING -> CONFIRMED)
func (o *Order) Confirm(actor, notes string) error {
	return o.transition(OrderStatusConfirmed, actor, notes)
}

// MarkPaid records payment reported by the payment notifier (CONFIRMED -> PAID)
func (o *Order) MarkPaid(actor, notes string) error {
	return o.transition(OrderStatusPaid, actor, notes)
}

// Fulfill records that the order was picked and packed
func (o *Order) Fulfill(actor, notes string) error {
	return o.transition(OrderStatusFulfilled, actor, notes)
}

// Ship hands the order to a carrier
func (o *Order) Ship(actor, trackingNumber, carrier string) error {
	if !o.Status.CanTransitionTo(OrderStatusShipped) {
		return NewInvalidTransitionError(o.Status, OrderStatusShipped)
	}
	if trackingNumber == "" {
		return shared.NewValidationError("Tracking number is required to ship")
	}
	o.TrackingNumber = trackingNumber
	o.Carrier = carrier
	return o.transition(OrderStatusShipped, actor, fmt.Sprintf("Shipped via %s, tracking %s", carrierOrUnknown(carrier), trackingNumber))
}

func carrierOrUnknown(carrier string) string {
	if carrier == "" {
		return "unknown carrier"
	}
	return carrier
}

// Deliver records delivery to the customer
func (o *Order) Deliver(actor, notes string) error {
	return o.transition(OrderStatusDelivered, actor, notes)
}

// Complete closes a delivered order
func (o *Order) Complete(actor, notes string) error {
	return o.transition(OrderStatusCompleted, actor, notes)
}

// Cancel stops the order. Restocking is the caller's job.
func (o *Order) Cancel(actor, reason string) error {
	if reason == "" {
		return shared.NewValidationError("Cancel reason is required")
	}
	if !o.Status.CanTransitionTo(OrderStatusCancelled) {
		return NewInvalidTransitionError(o.Status, OrderStatusCancelled)
	}
	previous := o.Status
	o.CancelReason = reason
	if err := o.transition(OrderStatusCancelled, actor, reason); err != nil {
		return err
	}
	o.RaiseEvent(NewOrderCancelledEvent(o, previous))
	return nil
}

func (o *Order) transition(to OrderStatus, actor, notes string) error {
	if !o.Status.CanTransitionTo(to) {
		return NewInvalidTransitionError(o.Status, to)
	}
	if actor == "" {
		actor = SystemActor
	}

	now := time.Now()
	from := o.Status
	o.Status = to
	o.stamp(to, now)
	o.UpdatedAt = now

	entry := OrderHistory{
		ID:         uuid.New(),
		OrderID:    o.ID,
		FromStatus: from,
		ToStatus:   to,
		ChangedBy:  actor,
		Notes:      notes,
		ChangedAt:  now,
	}
	o.History = append(o.History, entry)
	o.newHistory = append(o.newHistory, entry)

	o.RaiseEvent(NewOrderStatusChangedEvent(o, from, to, actor))
	switch to {
	case OrderStatusShipped:
		o.RaiseEvent(NewOrderShippedEvent(o))
	case OrderStatusCompleted:
		o.RaiseEvent(NewOrderCompletedEvent(o))
	}
	return nil
}

// stamp sets the status timestamp once; re-entering a status keeps the first time
func (o *Order) stamp(to OrderStatus, now time.Time) {
	set := func(p **time.Time) {
		if *p == nil {
			t := now
			*p = &t
		}
	}
	switch to {
	case OrderStatusConfirmed:
		set(&o.ConfirmedAt)
	case OrderStatusPaid:
		set(&o.PaidAt)
	case OrderStatusFulfilled:
		set(&o.FulfilledAt)
	case OrderStatusShipped:
		set(&o.ShippedAt)
	case OrderStatusDelivered:
		set(&o.DeliveredAt)
	case OrderStatusCompleted:
		set(&o.CompletedAt)
	case OrderStatusCancelled:
		set(&o.CancelledAt)
	}
}

// PendingHistory returns history entries not yet persisted
func (o *Order) PendingHistory() []OrderHistory {
	return o.newHistory
}

// MarkHistoryPersisted clears the pending history buffer
func (o *Order) MarkHistoryPersisted() {
	o.newHistory = nil
}

// GetItem returns the line with the given ID
func (o *Order) GetItem(itemID uuid.UUID) *OrderItem {
	for i := range o.Items {
		if o.Items[i].ID == itemID {
			return &o.Items[i]
		}
	}
	return nil
}

// ItemCount returns the number of lines
func (o *Order) ItemCount() int {
	return len(o.Items)
}

// TotalQuantity returns the number of units across all lines
func (o *Order) TotalQuantity() int {
	total := 0
	for _, it := range o.Items {
		total += it.Quantity
	}
	return total
}

// IsOwnedBy returns true if the order belongs to customerID
func (o *Order) IsOwnedBy(customerID uuid.UUID) bool {
	return o.CustomerID == customerID
}

// IsCancelled returns true if the order was cancelled
func (o *Order) IsCancelled() bool {
	return o.Status == OrderStatusCancelled
}
