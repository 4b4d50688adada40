package loyalty

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/storefront/backend/internal/domain/shared"
)

// Tier is a loyalty level derived from lifetime points
type Tier string

const (
	TierBronze   Tier = "BRONZE"
	TierSilver   Tier = "SILVER"
	TierGold     Tier = "GOLD"
	TierPlatinum Tier = "PLATINUM"
)

// Lifetime point thresholds for each tier
const (
	SilverThreshold   = 1000
	GoldThreshold     = 5000
	PlatinumThreshold = 10000
)

// TierFor maps lifetime points to a tier
func TierFor(lifetimePoints int) Tier {
	switch {
	case lifetimePoints >= PlatinumThreshold:
		return TierPlatinum
	case lifetimePoints >= GoldThreshold:
		return TierGold
	case lifetimePoints >= SilverThreshold:
		return TierSilver
	default:
		return TierBronze
	}
}

// TransactionType classifies ledger entries
type TransactionType string

const (
	TransactionEarn       TransactionType = "EARN"
	TransactionRedeem     TransactionType = "REDEEM"
	TransactionAdjustment TransactionType = "ADJUSTMENT"
)

// Transaction is one ledger entry. BalanceAfter is the available balance once the
// entry was applied.
type Transaction struct {
	ID           uuid.UUID
	AccountID    uuid.UUID
	Type         TransactionType
	Points       int
	BalanceAfter int
	ReferenceID  string
	Description  string
	CreatedAt    time.Time
}

// Account holds a customer's points
type Account struct {
	shared.BaseAggregateRoot
	UserID          uuid.UUID
	TotalPoints     int
	AvailablePoints int
	LifetimePoints  int
	Tier            Tier
}

// NewAccount opens an empty BRONZE account
func NewAccount(userID uuid.UUID) (*Account, error) {
	if userID == uuid.Nil {
		return nil, shared.NewValidationError("User ID cannot be empty")
	}
	return &Account{
		BaseAggregateRoot: shared.NewBaseAggregateRoot(),
		UserID:            userID,
		Tier:              TierBronze,
	}, nil
}

// PointsForAmount converts a spend into points, one point per amountPerPoint
func PointsForAmount(amount, amountPerPoint decimal.Decimal) int {
	if !amountPerPoint.IsPositive() || !amount.IsPositive() {
		return 0
	}
	return int(amount.Div(amountPerPoint).Floor().IntPart())
}

// Earn credits points
func (a *Account) Earn(points int, referenceID, description string) (*Transaction, error) {
	if points <= 0 {
		return nil, shared.NewValidationError("Earned points must be positive")
	}
	a.TotalPoints += points
	a.AvailablePoints += points
	a.LifetimePoints += points
	a.Tier = TierFor(a.LifetimePoints)
	return a.record(TransactionEarn, points, referenceID, description), nil
}

// Redeem spends available points
func (a *Account) Redeem(points int, referenceID, description string) (*Transaction, error) {
	if points <= 0 {
		return nil, shared.NewValidationError("Redeemed points must be positive")
	}
	if points > a.AvailablePoints {
		return nil, &shared.DomainError{
			Code:    shared.CodeInsufficientPoints,
			Message: fmt.Sprintf("Cannot redeem %d points, only %d available", points, a.AvailablePoints),
			Details: map[string]any{"requested": points, "available": a.AvailablePoints},
		}
	}
	a.AvailablePoints -= points
	return a.record(TransactionRedeem, -points, referenceID, description), nil
}

// Adjust applies a signed manual correction; lifetime points never decrease
func (a *Account) Adjust(delta int, reason string) (*Transaction, error) {
	if delta == 0 {
		return nil, shared.NewValidationError("Adjustment cannot be zero")
	}
	if reason == "" {
		return nil, shared.NewValidationError("Adjustment reason is required")
	}
	if a.AvailablePoints+delta < 0 {
		return nil, shared.NewValidationError("Adjustment would make the balance negative")
	}
	a.AvailablePoints += delta
	a.TotalPoints += delta
	if delta > 0 {
		a.LifetimePoints += delta
		a.Tier = TierFor(a.LifetimePoints)
	}
	return a.record(TransactionAdjustment, delta, "", reason), nil
}

func (a *Account) record(t TransactionType, points int, referenceID, description string) *Transaction {
	now := time.Now()
	a.UpdatedAt = now
	return &Transaction{
		ID:           uuid.New(),
		AccountID:    a.ID,
		Type:         t,
		Points:       points,
		BalanceAfter: a.AvailablePoints,
		ReferenceID:  referenceID,
		Description:  description,
		CreatedAt:    now,
	}
}
