package loyalty

import (
	"time"

	"github.com/google/uuid"
	"github.com/storefront/backend/internal/domain/loyalty"
)

// TransactionResponse is a ledger entry in API responses
type TransactionResponse struct {
	ID           uuid.UUID `json:"id"`
	Type         string    `json:"type"`
	Points       int       `json:"points"`
	BalanceAfter int       `json:"balance_after"`
	ReferenceID  string    `json:"reference_id,omitempty"`
	Description  string    `json:"description,omitempty"`
	CreatedAt    time.Time `json:"created_at"`
}

// AccountResponse is a loyalty account with its most recent entries
type AccountResponse struct {
	UserID          uuid.UUID             `json:"user_id"`
	TotalPoints     int                   `json:"total_points"`
	AvailablePoints int                   `json:"available_points"`
	LifetimePoints  int                   `json:"lifetime_points"`
	Tier            string                `json:"tier"`
	Transactions    []TransactionResponse `json:"transactions"`
}

// RedeemRequest spends points against a reference such as an order number
type RedeemRequest struct {
	Points      int    `json:"points" binding:"required,min=1"`
	ReferenceID string `json:"reference_id" binding:"max=100"`
	Description string `json:"description" binding:"max=255"`
}

// AdjustRequest is a staff correction
type AdjustRequest struct {
	Points int    `json:"points" binding:"required"`
	Reason string `json:"reason" binding:"required,max=255"`
}

// ToAccountResponse converts an account and its entries
func ToAccountResponse(a *loyalty.Account, txns []loyalty.Transaction) AccountResponse {
	entries := make([]TransactionResponse, 0, len(txns))
	for _, t := range txns {
		entries = append(entries, TransactionResponse{
			ID:           t.ID,
			Type:         string(t.Type),
			Points:       t.Points,
			BalanceAfter: t.BalanceAfter,
			ReferenceID:  t.ReferenceID,
			Description:  t.Description,
			CreatedAt:    t.CreatedAt,
		})
	}
	return AccountResponse{
		UserID:          a.UserID,
		TotalPoints:     a.TotalPoints,
		AvailablePoints: a.AvailablePoints,
		LifetimePoints:  a.LifetimePoints,
		Tier:            string(a.Tier),
		Transactions:    entries,
	}
}
