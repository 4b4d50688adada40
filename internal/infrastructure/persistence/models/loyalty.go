package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/storefront/backend/internal/domain/loyalty"
)

// LoyaltyAccountModel is the persistence model for a loyalty account.
type LoyaltyAccountModel struct {
	AggregateModel
	UserID          uuid.UUID    `gorm:"type:uuid;not null;uniqueIndex"`
	TotalPoints     int          `gorm:"not null;default:0"`
	AvailablePoints int          `gorm:"not null;default:0"`
	LifetimePoints  int          `gorm:"not null;default:0"`
	Tier            loyalty.Tier `gorm:"type:varchar(20);not null;default:'BRONZE'"`
}

// TableName returns the table name for GORM
func (LoyaltyAccountModel) TableName() string {
	return "loyalty_accounts"
}

// ToDomain converts the persistence model to a domain Account.
func (m *LoyaltyAccountModel) ToDomain() *loyalty.Account {
	return &loyalty.Account{
		BaseAggregateRoot: m.root(),
		UserID:            m.UserID,
		TotalPoints:       m.TotalPoints,
		AvailablePoints:   m.AvailablePoints,
		LifetimePoints:    m.LifetimePoints,
		Tier:              m.Tier,
	}
}

// FromDomain populates the persistence model from a domain Account.
func (m *LoyaltyAccountModel) FromDomain(a *loyalty.Account) {
	m.setRoot(a.BaseAggregateRoot)
	m.UserID = a.UserID
	m.TotalPoints = a.TotalPoints
	m.AvailablePoints = a.AvailablePoints
	m.LifetimePoints = a.LifetimePoints
	m.Tier = a.Tier
}

// LoyaltyTransactionModel is an append-only points movement.
type LoyaltyTransactionModel struct {
	ID           uuid.UUID               `gorm:"type:uuid;primary_key"`
	AccountID    uuid.UUID               `gorm:"type:uuid;not null;index"`
	Type         loyalty.TransactionType `gorm:"type:varchar(20);not null"`
	Points       int                     `gorm:"not null"`
	BalanceAfter int                     `gorm:"not null"`
	ReferenceID  string                  `gorm:"type:varchar(64);index"`
	Description  string                  `gorm:"type:varchar(500)"`
	CreatedAt    time.Time               `gorm:"not null"`
}

// TableName returns the table name for GORM
func (LoyaltyTransactionModel) TableName() string {
	return "loyalty_transactions"
}

// ToDomain converts the persistence model to a domain Transaction.
func (m *LoyaltyTransactionModel) ToDomain() loyalty.Transaction {
	return loyalty.Transaction{
		ID:           m.ID,
		AccountID:    m.AccountID,
		Type:         m.Type,
		Points:       m.Points,
		BalanceAfter: m.BalanceAfter,
		ReferenceID:  m.ReferenceID,
		Description:  m.Description,
		CreatedAt:    m.CreatedAt,
	}
}

// LoyaltyTransactionModelFromDomain creates a new persistence model from a domain Transaction.
func LoyaltyTransactionModelFromDomain(t *loyalty.Transaction) *LoyaltyTransactionModel {
	return &LoyaltyTransactionModel{
		ID:           t.ID,
		AccountID:    t.AccountID,
		Type:         t.Type,
		Points:       t.Points,
		BalanceAfter: t.BalanceAfter,
		ReferenceID:  t.ReferenceID,
		Description:  t.Description,
		CreatedAt:    t.CreatedAt,
	}
}
