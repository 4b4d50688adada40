package persistence

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/storefront/backend/internal/domain/loyalty"
	"github.com/storefront/backend/internal/domain/shared"
	"github.com/storefront/backend/internal/infrastructure/persistence/models"
	"gorm.io/gorm"
)

// GormLoyaltyRepository implements AccountRepository using GORM
type GormLoyaltyRepository struct {
	db *gorm.DB
}

// NewGormLoyaltyRepository creates a new GormLoyaltyRepository
func NewGormLoyaltyRepository(db *gorm.DB) *GormLoyaltyRepository {
	return &GormLoyaltyRepository{db: db}
}

// FindByUserID loads the account of a user
func (r *GormLoyaltyRepository) FindByUserID(ctx context.Context, userID uuid.UUID) (*loyalty.Account, error) {
	var m models.LoyaltyAccountModel
	if err := r.db.WithContext(ctx).First(&m, "user_id = ?", userID).Error; err != nil {
		return nil, translateNotFound(err)
	}
	return m.ToDomain(), nil
}

// SaveWithTransaction writes the balance and its ledger entry atomically.
// A first save inserts the account; later saves are version checked.
func (r *GormLoyaltyRepository) SaveWithTransaction(ctx context.Context, account *loyalty.Account, txn *loyalty.Transaction) error {
	bumped := false
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Model(&models.LoyaltyAccountModel{}).
			Where("id = ? AND version = ?", account.ID, account.Version).
			Updates(map[string]any{
				"total_points":     account.TotalPoints,
				"available_points": account.AvailablePoints,
				"lifetime_points":  account.LifetimePoints,
				"tier":             account.Tier,
				"version":          account.Version + 1,
				"updated_at":       time.Now(),
			})
		if res.Error != nil {
			return res.Error
		}

		if res.RowsAffected == 0 {
			var count int64
			if err := tx.Model(&models.LoyaltyAccountModel{}).Where("id = ?", account.ID).Count(&count).Error; err != nil {
				return err
			}
			if count > 0 {
				return shared.ErrConcurrencyConflict.WithDetail("user_id", account.UserID.String())
			}
			m := &models.LoyaltyAccountModel{}
			m.FromDomain(account)
			if err := tx.Create(m).Error; err != nil {
				return err
			}
		} else {
			bumped = true
		}

		if txn == nil {
			return nil
		}
		return tx.Create(models.LoyaltyTransactionModelFromDomain(txn)).Error
	})
	if err != nil {
		return err
	}
	if bumped {
		account.BumpVersion()
	}
	return nil
}

// FindTransactions returns the newest point movements of an account
func (r *GormLoyaltyRepository) FindTransactions(ctx context.Context, accountID uuid.UUID, limit int) ([]loyalty.Transaction, error) {
	if limit <= 0 || limit > 100 {
		limit = 20
	}
	var rows []models.LoyaltyTransactionModel
	if err := r.db.WithContext(ctx).
		Where("account_id = ?", accountID).
		Order("created_at DESC").
		Limit(limit).
		Find(&rows).Error; err != nil {
		return nil, err
	}
	out := make([]loyalty.Transaction, len(rows))
	for i := range rows {
		out[i] = rows[i].ToDomain()
	}
	return out, nil
}

var _ loyalty.AccountRepository = (*GormLoyaltyRepository)(nil)
