package models

import (
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/storefront/backend/internal/domain/checkout"
)

// CheckoutIntentModel records how far a checkout got through its store writes.
type CheckoutIntentModel struct {
	ID             uuid.UUID             `gorm:"type:uuid;primary_key"`
	IdempotencyKey *string               `gorm:"type:varchar(128);uniqueIndex"`
	CustomerID     uuid.UUID             `gorm:"type:uuid;not null;index"`
	Strategy       string                `gorm:"type:varchar(20);not null"`
	Status         checkout.IntentStatus `gorm:"type:varchar(30);not null;index:idx_checkout_intent_status_updated,priority:1"`
	CompletedSteps string                `gorm:"type:varchar(100);not null;default:''"`
	OrderID        *uuid.UUID            `gorm:"type:uuid"`
	OrderNumber    string                `gorm:"type:varchar(20)"`
	LastError      string                `gorm:"type:text"`
	CreatedAt      time.Time             `gorm:"not null"`
	UpdatedAt      time.Time             `gorm:"not null;index:idx_checkout_intent_status_updated,priority:2"`
}

// TableName returns the table name for GORM
func (CheckoutIntentModel) TableName() string {
	return "checkout_intents"
}

// ToDomain converts the persistence model to a domain Intent.
func (m *CheckoutIntentModel) ToDomain() *checkout.Intent {
	intent := &checkout.Intent{
		ID:             m.ID,
		CustomerID:     m.CustomerID,
		Strategy:       m.Strategy,
		Status:         m.Status,
		CompletedSteps: make([]checkout.Step, 0, 4),
		OrderID:        m.OrderID,
		OrderNumber:    m.OrderNumber,
		LastError:      m.LastError,
		CreatedAt:      m.CreatedAt,
		UpdatedAt:      m.UpdatedAt,
	}
	if m.IdempotencyKey != nil {
		intent.IdempotencyKey = *m.IdempotencyKey
	}
	for _, s := range strings.Split(m.CompletedSteps, ",") {
		if s != "" {
			intent.CompletedSteps = append(intent.CompletedSteps, checkout.Step(s))
		}
	}
	return intent
}

// FromDomain populates the persistence model from a domain Intent.
// An empty idempotency key is stored as NULL so the unique index ignores it.
func (m *CheckoutIntentModel) FromDomain(i *checkout.Intent) {
	m.ID = i.ID
	m.IdempotencyKey = nil
	if i.IdempotencyKey != "" {
		key := i.IdempotencyKey
		m.IdempotencyKey = &key
	}
	m.CustomerID = i.CustomerID
	m.Strategy = i.Strategy
	m.Status = i.Status
	steps := make([]string, len(i.CompletedSteps))
	for idx, s := range i.CompletedSteps {
		steps[idx] = string(s)
	}
	m.CompletedSteps = strings.Join(steps, ",")
	m.OrderID = i.OrderID
	m.OrderNumber = i.OrderNumber
	m.LastError = i.LastError
	m.CreatedAt = i.CreatedAt
	m.UpdatedAt = i.UpdatedAt
}
