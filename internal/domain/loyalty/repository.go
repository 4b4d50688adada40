package loyalty

import (
	"context"

	"github.com/google/uuid"
)

// AccountRepository defines the interface for loyalty persistence
type AccountRepository interface {
	FindByUserID(ctx context.Context, userID uuid.UUID) (*Account, error)

	// SaveWithTransaction upserts the account under a version check and appends tx
	SaveWithTransaction(ctx context.Context, account *Account, tx *Transaction) error

	FindTransactions(ctx context.Context, accountID uuid.UUID, limit int) ([]Transaction, error)
}
