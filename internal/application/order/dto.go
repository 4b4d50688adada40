package order

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/storefront/backend/internal/domain/order"
)

// OrderItemResponse represents an order line in API responses
type OrderItemResponse struct {
	ID          uuid.UUID       `json:"id"`
	ProductID   uuid.UUID       `json:"product_id"`
	ProductName string          `json:"product_name"`
	SKU         string          `json:"sku"`
	UnitPrice   decimal.Decimal `json:"unit_price"`
	Quantity    int             `json:"quantity"`
	LineTotal   decimal.Decimal `json:"line_total"`
}

// OrderResponse represents an order in API responses
type OrderResponse struct {
	ID              uuid.UUID           `json:"id"`
	OrderNumber     string              `json:"order_number"`
	CustomerID      uuid.UUID           `json:"customer_id"`
	CustomerEmail   string              `json:"customer_email,omitempty"`
	Status          string              `json:"status"`
	Strategy        string              `json:"strategy"`
	Items           []OrderItemResponse `json:"items"`
	SubtotalAmount  decimal.Decimal     `json:"subtotal_amount"`
	DiscountAmount  decimal.Decimal     `json:"discount_amount"`
	DiscountSource  string              `json:"discount_source,omitempty"`
	CouponCode      string              `json:"coupon_code,omitempty"`
	TaxRate         decimal.Decimal     `json:"tax_rate"`
	TaxAmount       decimal.Decimal     `json:"tax_amount"`
	ShippingAmount  decimal.Decimal     `json:"shipping_amount"`
	TotalAmount     decimal.Decimal     `json:"total_amount"`
	IsPickup        bool                `json:"is_pickup"`
	ShippingAddress string              `json:"shipping_address,omitempty"`
	Notes           string              `json:"notes,omitempty"`
	TrackingNumber  string              `json:"tracking_number,omitempty"`
	Carrier         string              `json:"carrier,omitempty"`
	CancelReason    string              `json:"cancel_reason,omitempty"`
	OrderDate       time.Time           `json:"order_date"`
	ConfirmedAt     *time.Time          `json:"confirmed_at,omitempty"`
	PaidAt          *time.Time          `json:"paid_at,omitempty"`
	ShippedAt       *time.Time          `json:"shipped_at,omitempty"`
	DeliveredAt     *time.Time          `json:"delivered_at,omitempty"`
	CompletedAt     *time.Time          `json:"completed_at,omitempty"`
	CancelledAt     *time.Time          `json:"cancelled_at,omitempty"`
	Version         int                 `json:"version"`
}

// ToOrderResponse converts an order to its response
func ToOrderResponse(o *order.Order) OrderResponse {
	items := make([]OrderItemResponse, len(o.Items))
	for i, it := range o.Items {
		items[i] = OrderItemResponse{
			ID:          it.ID,
			ProductID:   it.ProductID,
			ProductName: it.ProductName,
			SKU:         it.SKU,
			UnitPrice:   it.UnitPrice,
			Quantity:    it.Quantity,
			LineTotal:   it.LineTotal,
		}
	}
	return OrderResponse{
		ID:              o.ID,
		OrderNumber:     o.OrderNumber,
		CustomerID:      o.CustomerID,
		CustomerEmail:   o.CustomerEmail,
		Status:          string(o.Status),
		Strategy:        string(o.Strategy),
		Items:           items,
		SubtotalAmount:  o.SubtotalAmount,
		DiscountAmount:  o.DiscountAmount,
		DiscountSource:  string(o.DiscountSource),
		CouponCode:      o.CouponCode,
		TaxRate:         o.TaxRate,
		TaxAmount:       o.TaxAmount,
		ShippingAmount:  o.ShippingAmount,
		TotalAmount:     o.TotalAmount,
		IsPickup:        o.IsPickup,
		ShippingAddress: o.ShippingAddress,
		Notes:           o.Notes,
		TrackingNumber:  o.TrackingNumber,
		Carrier:         o.Carrier,
		CancelReason:    o.CancelReason,
		OrderDate:       o.OrderDate,
		ConfirmedAt:     o.ConfirmedAt,
		PaidAt:          o.PaidAt,
		ShippedAt:       o.ShippedAt,
		DeliveredAt:     o.DeliveredAt,
		CompletedAt:     o.CompletedAt,
		CancelledAt:     o.CancelledAt,
		Version:         o.Version,
	}
}

// OrderListItemResponse is the compact list view of an order
type OrderListItemResponse struct {
	ID          uuid.UUID       `json:"id"`
	OrderNumber string          `json:"order_number"`
	CustomerID  uuid.UUID       `json:"customer_id"`
	Status      string          `json:"status"`
	ItemCount   int             `json:"item_count"`
	TotalAmount decimal.Decimal `json:"total_amount"`
	OrderDate   time.Time       `json:"order_date"`
}

// ToOrderListItemResponses converts orders to list items
func ToOrderListItemResponses(orders []order.Order) []OrderListItemResponse {
	out := make([]OrderListItemResponse, len(orders))
	for i := range orders {
		o := &orders[i]
		out[i] = OrderListItemResponse{
			ID:          o.ID,
			OrderNumber: o.OrderNumber,
			CustomerID:  o.CustomerID,
			Status:      string(o.Status),
			ItemCount:   o.ItemCount(),
			TotalAmount: o.TotalAmount,
			OrderDate:   o.OrderDate,
		}
	}
	return out
}

// HistoryResponse is one status change
type HistoryResponse struct {
	FromStatus string    `json:"from_status"`
	ToStatus   string    `json:"to_status"`
	ChangedBy  string    `json:"changed_by"`
	Notes      string    `json:"notes,omitempty"`
	ChangedAt  time.Time `json:"changed_at"`
}

// ToHistoryResponses converts history entries
func ToHistoryResponses(entries []order.OrderHistory) []HistoryResponse {
	out := make([]HistoryResponse, len(entries))
	for i, h := range entries {
		out[i] = HistoryResponse{
			FromStatus: string(h.FromStatus),
			ToStatus:   string(h.ToStatus),
			ChangedBy:  h.ChangedBy,
			Notes:      h.Notes,
			ChangedAt:  h.ChangedAt,
		}
	}
	return out
}

// OrderListFilter narrows order listings
type OrderListFilter struct {
	Status   string `form:"status"`
	Page     int    `form:"page" binding:"omitempty,min=1"`
	PageSize int    `form:"page_size" binding:"omitempty,min=1,max=100"`
}

// TransitionRequest carries optional notes for a status change
type TransitionRequest struct {
	Notes string `json:"notes" binding:"max=500"`
}

// ShipOrderRequest represents a request to ship an order
type ShipOrderRequest struct {
	TrackingNumber string `json:"tracking_number" binding:"required,max=100"`
	Carrier        string `json:"carrier" binding:"max=100"`
}

// CancelOrderRequest represents a request to cancel an order
type CancelOrderRequest struct {
	Reason string `json:"reason" binding:"required,max=500"`
}

// CreateReturnRequest represents a customer's return request
type CreateReturnRequest struct {
	OrderItemID uuid.UUID `json:"order_item_id" binding:"required"`
	Quantity    int       `json:"quantity" binding:"required,min=1"`
	Reason      string    `json:"reason" binding:"required,max=200"`
	Description string    `json:"description" binding:"max=1000"`
}

// RejectReturnRequest carries the rejection reason
type RejectReturnRequest struct {
	Reason string `json:"reason" binding:"required,max=500"`
}

// ReturnResponse represents a return request in API responses
type ReturnResponse struct {
	ID              uuid.UUID       `json:"id"`
	OrderID         uuid.UUID       `json:"order_id"`
	OrderItemID     uuid.UUID       `json:"order_item_id"`
	ProductID       uuid.UUID       `json:"product_id"`
	CustomerID      uuid.UUID       `json:"customer_id"`
	Quantity        int             `json:"quantity"`
	RefundAmount    decimal.Decimal `json:"refund_amount"`
	Reason          string          `json:"reason"`
	Description     string          `json:"description,omitempty"`
	Status          string          `json:"status"`
	RequestedAt     time.Time       `json:"requested_at"`
	ProcessedBy     string          `json:"processed_by,omitempty"`
	RejectionReason string          `json:"rejection_reason,omitempty"`
}

// ToReturnResponse converts a return request to its response
func ToReturnResponse(r *order.ReturnRequest) ReturnResponse {
	return ReturnResponse{
		ID:              r.ID,
		OrderID:         r.OrderID,
		OrderItemID:     r.OrderItemID,
		ProductID:       r.ProductID,
		CustomerID:      r.CustomerID,
		Quantity:        r.Quantity,
		RefundAmount:    r.RefundAmount,
		Reason:          r.Reason,
		Description:     r.Description,
		Status:          string(r.Status),
		RequestedAt:     r.RequestedAt,
		ProcessedBy:     r.ProcessedBy,
		RejectionReason: r.RejectionReason,
	}
}
