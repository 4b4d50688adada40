package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/storefront/backend/internal/domain/order"
	"github.com/storefront/backend/internal/domain/pricing"
)

// OrderModel is the persistence model for the Order aggregate root.
type OrderModel struct {
	AggregateModel
	OrderNumber      string                 `gorm:"type:varchar(20);not null;uniqueIndex"`
	CustomerID       uuid.UUID              `gorm:"type:uuid;not null;index"`
	CustomerEmail    string                 `gorm:"type:varchar(255)"`
	SubtotalAmount   decimal.Decimal        `gorm:"type:decimal(18,2);not null;default:0"`
	TaxRate          decimal.Decimal        `gorm:"type:decimal(6,4);not null;default:0"`
	TaxAmount        decimal.Decimal        `gorm:"type:decimal(18,2);not null;default:0"`
	ShippingAmount   decimal.Decimal        `gorm:"type:decimal(18,2);not null;default:0"`
	DiscountAmount   decimal.Decimal        `gorm:"type:decimal(18,2);not null;default:0"`
	TotalAmount      decimal.Decimal        `gorm:"type:decimal(18,2);not null;default:0"`
	CouponCode       string                 `gorm:"type:varchar(50)"`
	DiscountSource   pricing.DiscountSource `gorm:"type:varchar(20)"`
	DiscountMetadata string                 `gorm:"type:text"`
	Status           order.OrderStatus      `gorm:"type:varchar(20);not null;default:'DRAFT';index"`
	Strategy         order.CheckoutStrategy `gorm:"type:varchar(20);not null;default:'STANDARD'"`
	ShippingAddress  string                 `gorm:"type:text"`
	Notes            string                 `gorm:"type:text"`
	CustomerIP       string                 `gorm:"type:varchar(64)"`
	UserAgent        string                 `gorm:"type:varchar(500)"`
	IsPickup         bool                   `gorm:"not null;default:false"`
	OrderDate        time.Time              `gorm:"not null;index"`
	ConfirmedAt      *time.Time
	PaidAt           *time.Time
	FulfilledAt      *time.Time
	ShippedAt        *time.Time
	DeliveredAt      *time.Time
	CompletedAt      *time.Time
	CancelledAt      *time.Time
	CancelReason     string           `gorm:"type:varchar(500)"`
	TrackingNumber   string           `gorm:"type:varchar(100)"`
	Carrier          string           `gorm:"type:varchar(100)"`
	Items            []OrderItemModel `gorm:"foreignKey:OrderID;references:ID"`
}

// TableName returns the table name for GORM
func (OrderModel) TableName() string {
	return "orders"
}

// ToDomain converts the persistence model to a domain Order. History is
// loaded separately by the repository.
func (m *OrderModel) ToDomain() *order.Order {
	o := &order.Order{
		BaseAggregateRoot: m.root(),
		OrderNumber:       m.OrderNumber,
		CustomerID:        m.CustomerID,
		CustomerEmail:     m.CustomerEmail,
		SubtotalAmount:    m.SubtotalAmount,
		TaxRate:           m.TaxRate,
		TaxAmount:         m.TaxAmount,
		ShippingAmount:    m.ShippingAmount,
		DiscountAmount:    m.DiscountAmount,
		TotalAmount:       m.TotalAmount,
		CouponCode:        m.CouponCode,
		DiscountSource:    m.DiscountSource,
		DiscountMetadata:  m.DiscountMetadata,
		Status:            m.Status,
		Strategy:          m.Strategy,
		ShippingAddress:   m.ShippingAddress,
		Notes:             m.Notes,
		CustomerIP:        m.CustomerIP,
		UserAgent:         m.UserAgent,
		IsPickup:          m.IsPickup,
		OrderDate:         m.OrderDate,
		ConfirmedAt:       m.ConfirmedAt,
		PaidAt:            m.PaidAt,
		FulfilledAt:       m.FulfilledAt,
		ShippedAt:         m.ShippedAt,
		DeliveredAt:       m.DeliveredAt,
		CompletedAt:       m.CompletedAt,
		CancelledAt:       m.CancelledAt,
		CancelReason:      m.CancelReason,
		TrackingNumber:    m.TrackingNumber,
		Carrier:           m.Carrier,
		Items:             make([]order.OrderItem, len(m.Items)),
	}
	for i, item := range m.Items {
		o.Items[i] = item.ToDomain()
	}
	return o
}

// FromDomain populates the persistence model from a domain Order.
func (m *OrderModel) FromDomain(o *order.Order) {
	m.setRoot(o.BaseAggregateRoot)
	m.OrderNumber = o.OrderNumber
	m.CustomerID = o.CustomerID
	m.CustomerEmail = o.CustomerEmail
	m.SubtotalAmount = o.SubtotalAmount
	m.TaxRate = o.TaxRate
	m.TaxAmount = o.TaxAmount
	m.ShippingAmount = o.ShippingAmount
	m.DiscountAmount = o.DiscountAmount
	m.TotalAmount = o.TotalAmount
	m.CouponCode = o.CouponCode
	m.DiscountSource = o.DiscountSource
	m.DiscountMetadata = o.DiscountMetadata
	m.Status = o.Status
	m.Strategy = o.Strategy
	m.ShippingAddress = o.ShippingAddress
	m.Notes = o.Notes
	m.CustomerIP = o.CustomerIP
	m.UserAgent = o.UserAgent
	m.IsPickup = o.IsPickup
	m.OrderDate = o.OrderDate
	m.ConfirmedAt = o.ConfirmedAt
	m.PaidAt = o.PaidAt
	m.FulfilledAt = o.FulfilledAt
	m.ShippedAt = o.ShippedAt
	m.DeliveredAt = o.DeliveredAt
	m.CompletedAt = o.CompletedAt
	m.CancelledAt = o.CancelledAt
	m.CancelReason = o.CancelReason
	m.TrackingNumber = o.TrackingNumber
	m.Carrier = o.Carrier
	m.Items = make([]OrderItemModel, len(o.Items))
	for i := range o.Items {
		m.Items[i].FromDomain(&o.Items[i])
		m.Items[i].OrderID = o.ID
	}
}

// OrderModelFromDomain creates a new persistence model from a domain Order.
func OrderModelFromDomain(o *order.Order) *OrderModel {
	m := &OrderModel{}
	m.FromDomain(o)
	return m
}

// OrderItemModel is the persistence model for an order line.
type OrderItemModel struct {
	ID          uuid.UUID       `gorm:"type:uuid;primary_key"`
	OrderID     uuid.UUID       `gorm:"type:uuid;not null;index"`
	ProductID   uuid.UUID       `gorm:"type:uuid;not null;index"`
	ProductName string          `gorm:"type:varchar(200);not null"`
	SKU         string          `gorm:"type:varchar(64)"`
	UnitPrice   decimal.Decimal `gorm:"type:decimal(18,2);not null"`
	Quantity    int             `gorm:"not null"`
	LineTotal   decimal.Decimal `gorm:"type:decimal(18,2);not null"`
}

// TableName returns the table name for GORM
func (OrderItemModel) TableName() string {
	return "order_items"
}

// ToDomain converts the persistence model to a domain OrderItem.
func (m *OrderItemModel) ToDomain() order.OrderItem {
	return order.OrderItem{
		ID:          m.ID,
		OrderID:     m.OrderID,
		ProductID:   m.ProductID,
		ProductName: m.ProductName,
		SKU:         m.SKU,
		UnitPrice:   m.UnitPrice,
		Quantity:    m.Quantity,
		LineTotal:   m.LineTotal,
	}
}

// FromDomain populates the persistence model from a domain OrderItem.
func (m *OrderItemModel) FromDomain(i *order.OrderItem) {
	m.ID = i.ID
	m.OrderID = i.OrderID
	m.ProductID = i.ProductID
	m.ProductName = i.ProductName
	m.SKU = i.SKU
	m.UnitPrice = i.UnitPrice
	m.Quantity = i.Quantity
	m.LineTotal = i.LineTotal
}

// OrderHistoryModel is an append-only status change row.
type OrderHistoryModel struct {
	ID         uuid.UUID         `gorm:"type:uuid;primary_key"`
	OrderID    uuid.UUID         `gorm:"type:uuid;not null;index:idx_order_history_order,priority:1"`
	FromStatus order.OrderStatus `gorm:"type:varchar(20);not null"`
	ToStatus   order.OrderStatus `gorm:"type:varchar(20);not null"`
	ChangedBy  string            `gorm:"type:varchar(100);not null"`
	Notes      string            `gorm:"type:text"`
	ChangedAt  time.Time         `gorm:"not null;index:idx_order_history_order,priority:2"`
}

// TableName returns the table name for GORM
func (OrderHistoryModel) TableName() string {
	return "order_history"
}

// ToDomain converts the persistence model to a domain OrderHistory.
func (m *OrderHistoryModel) ToDomain() order.OrderHistory {
	return order.OrderHistory{
		ID:         m.ID,
		OrderID:    m.OrderID,
		FromStatus: m.FromStatus,
		ToStatus:   m.ToStatus,
		ChangedBy:  m.ChangedBy,
		Notes:      m.Notes,
		ChangedAt:  m.ChangedAt,
	}
}

// OrderHistoryModelFromDomain creates a new persistence model from a domain OrderHistory.
func OrderHistoryModelFromDomain(h order.OrderHistory) OrderHistoryModel {
	return OrderHistoryModel{
		ID:         h.ID,
		OrderID:    h.OrderID,
		FromStatus: h.FromStatus,
		ToStatus:   h.ToStatus,
		ChangedBy:  h.ChangedBy,
		Notes:      h.Notes,
		ChangedAt:  h.ChangedAt,
	}
}

// ReturnRequestModel is the persistence model for the ReturnRequest aggregate.
type ReturnRequestModel struct {
	AggregateModel
	OrderID         uuid.UUID          `gorm:"type:uuid;not null;index"`
	OrderItemID     uuid.UUID          `gorm:"type:uuid;not null"`
	ProductID       uuid.UUID          `gorm:"type:uuid;not null"`
	CustomerID      uuid.UUID          `gorm:"type:uuid;not null;index"`
	Quantity        int                `gorm:"not null"`
	UnitPrice       decimal.Decimal    `gorm:"type:decimal(18,2);not null"`
	RefundAmount    decimal.Decimal    `gorm:"type:decimal(18,2);not null"`
	Reason          string             `gorm:"type:varchar(100);not null"`
	Description     string             `gorm:"type:text"`
	Status          order.ReturnStatus `gorm:"type:varchar(20);not null;default:'PENDING'"`
	RequestedAt     time.Time          `gorm:"not null"`
	ApprovedAt      *time.Time
	RejectedAt      *time.Time
	RefundedAt      *time.Time
	ProcessedBy     string `gorm:"type:varchar(100)"`
	RejectionReason string `gorm:"type:varchar(500)"`
}

// TableName returns the table name for GORM
func (ReturnRequestModel) TableName() string {
	return "return_requests"
}

// ToDomain converts the persistence model to a domain ReturnRequest.
func (m *ReturnRequestModel) ToDomain() *order.ReturnRequest {
	return &order.ReturnRequest{
		BaseAggregateRoot: m.root(),
		OrderID:           m.OrderID,
		OrderItemID:       m.OrderItemID,
		ProductID:         m.ProductID,
		CustomerID:        m.CustomerID,
		Quantity:          m.Quantity,
		UnitPrice:         m.UnitPrice,
		RefundAmount:      m.RefundAmount,
		Reason:            m.Reason,
		Description:       m.Description,
		Status:            m.Status,
		RequestedAt:       m.RequestedAt,
		ApprovedAt:        m.ApprovedAt,
		RejectedAt:        m.RejectedAt,
		RefundedAt:        m.RefundedAt,
		ProcessedBy:       m.ProcessedBy,
		RejectionReason:   m.RejectionReason,
	}
}

// FromDomain populates the persistence model from a domain ReturnRequest.
func (m *ReturnRequestModel) FromDomain(r *order.ReturnRequest) {
	m.setRoot(r.BaseAggregateRoot)
	m.OrderID = r.OrderID
	m.OrderItemID = r.OrderItemID
	m.ProductID = r.ProductID
	m.CustomerID = r.CustomerID
	m.Quantity = r.Quantity
	m.UnitPrice = r.UnitPrice
	m.RefundAmount = r.RefundAmount
	m.Reason = r.Reason
	m.Description = r.Description
	m.Status = r.Status
	m.RequestedAt = r.RequestedAt
	m.ApprovedAt = r.ApprovedAt
	m.RejectedAt = r.RejectedAt
	m.RefundedAt = r.RefundedAt
	m.ProcessedBy = r.ProcessedBy
	m.RejectionReason = r.RejectionReason
}
