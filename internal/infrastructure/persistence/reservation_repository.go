package persistence

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/storefront/backend/internal/domain/inventory"
	"github.com/storefront/backend/internal/infrastructure/persistence/models"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// GormStockReservationRepository implements StockReservationRepository using GORM
type GormStockReservationRepository struct {
	db *gorm.DB
}

// NewGormStockReservationRepository creates a new GormStockReservationRepository
func NewGormStockReservationRepository(db *gorm.DB) *GormStockReservationRepository {
	return &GormStockReservationRepository{db: db}
}

// FindByID finds a reservation by its ID
func (r *GormStockReservationRepository) FindByID(ctx context.Context, id uuid.UUID) (*inventory.StockReservation, error) {
	var m models.StockReservationModel
	if err := r.db.WithContext(ctx).First(&m, "id = ?", id).Error; err != nil {
		return nil, translateNotFound(err)
	}
	return m.ToDomain(), nil
}

// FindActiveByReference returns the active holds of one cart or order
func (r *GormStockReservationRepository) FindActiveByReference(ctx context.Context, refType inventory.ReferenceType, refID string, productID *uuid.UUID) ([]*inventory.StockReservation, error) {
	query := r.db.WithContext(ctx).
		Where("reference_type = ? AND reference_id = ? AND status = ?", refType, refID, inventory.ReservationActive)
	if productID != nil {
		query = query.Where("product_id = ?", *productID)
	}

	var rows []models.StockReservationModel
	if err := query.Order("reserved_at DESC").Find(&rows).Error; err != nil {
		return nil, err
	}
	return toReservations(rows), nil
}

// FindExpired returns active holds whose expiry passed, oldest first
func (r *GormStockReservationRepository) FindExpired(ctx context.Context, before time.Time, limit int) ([]*inventory.StockReservation, error) {
	if limit <= 0 {
		limit = 100
	}
	var rows []models.StockReservationModel
	if err := r.db.WithContext(ctx).
		Where("status = ? AND expires_at < ?", inventory.ReservationActive, before).
		Order("expires_at ASC").
		Limit(limit).
		Find(&rows).Error; err != nil {
		return nil, err
	}
	return toReservations(rows), nil
}

// SaveAll upserts reservations in one statement
func (r *GormStockReservationRepository) SaveAll(ctx context.Context, reservations ...*inventory.StockReservation) error {
	if len(reservations) == 0 {
		return nil
	}
	rows := make([]*models.StockReservationModel, len(reservations))
	for i, rs := range reservations {
		rs.UpdatedAt = time.Now()
		rows[i] = models.StockReservationModelFromDomain(rs)
	}
	return r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "id"}},
			UpdateAll: true,
		}).
		Create(&rows).Error
}

func toReservations(rows []models.StockReservationModel) []*inventory.StockReservation {
	out := make([]*inventory.StockReservation, len(rows))
	for i := range rows {
		out[i] = rows[i].ToDomain()
	}
	return out
}

var _ inventory.StockReservationRepository = (*GormStockReservationRepository)(nil)
