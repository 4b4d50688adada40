package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/storefront/backend/internal/domain/inventory"
)

// InventoryItemModel is the persistence model for the InventoryItem aggregate root.
type InventoryItemModel struct {
	AggregateModel
	ProductID        uuid.UUID `gorm:"type:uuid;not null;uniqueIndex"`
	QuantityOnHand   int       `gorm:"not null;default:0"`
	ReservedQuantity int       `gorm:"not null;default:0"`
}

// TableName returns the table name for GORM
func (InventoryItemModel) TableName() string {
	return "inventory_items"
}

// ToDomain converts the persistence model to a domain InventoryItem.
func (m *InventoryItemModel) ToDomain() *inventory.InventoryItem {
	return &inventory.InventoryItem{
		BaseAggregateRoot: m.root(),
		ProductID:         m.ProductID,
		QuantityOnHand:    m.QuantityOnHand,
		ReservedQuantity:  m.ReservedQuantity,
	}
}

// FromDomain populates the persistence model from a domain InventoryItem.
func (m *InventoryItemModel) FromDomain(i *inventory.InventoryItem) {
	m.setRoot(i.BaseAggregateRoot)
	m.ProductID = i.ProductID
	m.QuantityOnHand = i.QuantityOnHand
	m.ReservedQuantity = i.ReservedQuantity
}

// InventoryItemModelFromDomain creates a new persistence model from a domain InventoryItem.
func InventoryItemModelFromDomain(i *inventory.InventoryItem) *InventoryItemModel {
	m := &InventoryItemModel{}
	m.FromDomain(i)
	return m
}

// StockReservationModel is the persistence model for a StockReservation.
type StockReservationModel struct {
	BaseModel
	InventoryItemID uuid.UUID                   `gorm:"type:uuid;not null;index"`
	ProductID       uuid.UUID                   `gorm:"type:uuid;not null;index:idx_reservation_reference,priority:3"`
	Quantity        int                         `gorm:"not null"`
	ReferenceID     string                      `gorm:"type:varchar(64);not null;index:idx_reservation_reference,priority:2"`
	ReferenceType   inventory.ReferenceType     `gorm:"type:varchar(20);not null;index:idx_reservation_reference,priority:1"`
	Status          inventory.ReservationStatus `gorm:"type:varchar(20);not null;default:'ACTIVE';index:idx_reservation_status_expiry,priority:1"`
	ReservedAt      time.Time                   `gorm:"not null"`
	ExpiresAt       time.Time                   `gorm:"not null;index:idx_reservation_status_expiry,priority:2"`
	ReleaseReason   string                      `gorm:"type:varchar(50)"`
	ReleasedAt      *time.Time
	FulfilledAt     *time.Time
	ParentID        *uuid.UUID `gorm:"type:uuid"`
}

// TableName returns the table name for GORM
func (StockReservationModel) TableName() string {
	return "stock_reservations"
}

// ToDomain converts the persistence model to a domain StockReservation.
func (m *StockReservationModel) ToDomain() *inventory.StockReservation {
	return &inventory.StockReservation{
		BaseEntity:      m.entity(),
		InventoryItemID: m.InventoryItemID,
		ProductID:       m.ProductID,
		Quantity:        m.Quantity,
		ReferenceID:     m.ReferenceID,
		ReferenceType:   m.ReferenceType,
		Status:          m.Status,
		ReservedAt:      m.ReservedAt,
		ExpiresAt:       m.ExpiresAt,
		ReleaseReason:   m.ReleaseReason,
		ReleasedAt:      m.ReleasedAt,
		FulfilledAt:     m.FulfilledAt,
		ParentID:        m.ParentID,
	}
}

// FromDomain populates the persistence model from a domain StockReservation.
func (m *StockReservationModel) FromDomain(r *inventory.StockReservation) {
	m.setEntity(r.BaseEntity)
	m.InventoryItemID = r.InventoryItemID
	m.ProductID = r.ProductID
	m.Quantity = r.Quantity
	m.ReferenceID = r.ReferenceID
	m.ReferenceType = r.ReferenceType
	m.Status = r.Status
	m.ReservedAt = r.ReservedAt
	m.ExpiresAt = r.ExpiresAt
	m.ReleaseReason = r.ReleaseReason
	m.ReleasedAt = r.ReleasedAt
	m.FulfilledAt = r.FulfilledAt
	m.ParentID = r.ParentID
}

// StockReservationModelFromDomain creates a new persistence model from a domain StockReservation.
func StockReservationModelFromDomain(r *inventory.StockReservation) *StockReservationModel {
	m := &StockReservationModel{}
	m.FromDomain(r)
	return m
}
