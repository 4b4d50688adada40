package persistence

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/storefront/backend/internal/domain/order"
	"github.com/storefront/backend/internal/domain/shared"
	"github.com/storefront/backend/internal/infrastructure/persistence/models"
	"gorm.io/gorm"
)

// GormOrderRepository implements OrderRepository using GORM. Status history
// and outbox events are written in the same transaction as the order row.
type GormOrderRepository struct {
	db     *gorm.DB
	events shared.OutboxEventSaver
	now    func() time.Time
}

// NewGormOrderRepository creates a new GormOrderRepository
func NewGormOrderRepository(db *gorm.DB, events shared.OutboxEventSaver) *GormOrderRepository {
	return &GormOrderRepository{db: db, events: events, now: time.Now}
}

// FindByID loads an order with its lines and full history
func (r *GormOrderRepository) FindByID(ctx context.Context, id uuid.UUID) (*order.Order, error) {
	return r.findOne(ctx, "id = ?", id)
}

// FindByOrderNumber loads an order by its SO-YYYY-NNNNN number
func (r *GormOrderRepository) FindByOrderNumber(ctx context.Context, orderNumber string) (*order.Order, error) {
	return r.findOne(ctx, "order_number = ?", orderNumber)
}

func (r *GormOrderRepository) findOne(ctx context.Context, query string, arg any) (*order.Order, error) {
	var m models.OrderModel
	if err := r.db.WithContext(ctx).Preload("Items").First(&m, query, arg).Error; err != nil {
		return nil, translateNotFound(err)
	}
	o := m.ToDomain()
	history, err := r.FindHistory(ctx, o.ID)
	if err != nil {
		return nil, err
	}
	o.History = history
	return o, nil
}

// FindAll lists orders page by page. History is not loaded.
func (r *GormOrderRepository) FindAll(ctx context.Context, filter order.OrderFilter) ([]order.Order, int64, error) {
	query := r.db.WithContext(ctx).Model(&models.OrderModel{})
	if filter.CustomerID != nil {
		query = query.Where("customer_id = ?", *filter.CustomerID)
	}
	if filter.Status != nil {
		query = query.Where("status = ?", *filter.Status)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var rows []models.OrderModel
	if err := query.
		Preload("Items").
		Order(OrderClause(filter.OrderBy, filter.OrderDir, OrderSortFields, "created_at")).
		Offset(filter.Offset()).
		Limit(filter.Limit()).
		Find(&rows).Error; err != nil {
		return nil, 0, err
	}

	orders := make([]order.Order, len(rows))
	for i := range rows {
		orders[i] = *rows[i].ToDomain()
	}
	return orders, total, nil
}

// FindHistory returns the status changes of an order, oldest first
func (r *GormOrderRepository) FindHistory(ctx context.Context, orderID uuid.UUID) ([]order.OrderHistory, error) {
	var rows []models.OrderHistoryModel
	if err := r.db.WithContext(ctx).
		Where("order_id = ?", orderID).
		Order("changed_at ASC").
		Find(&rows).Error; err != nil {
		return nil, err
	}
	out := make([]order.OrderHistory, len(rows))
	for i := range rows {
		out[i] = rows[i].ToDomain()
	}
	return out, nil
}

// Save inserts a new order with lines, pending history and events
func (r *GormOrderRepository) Save(ctx context.Context, o *order.Order) error {
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(models.OrderModelFromDomain(o)).Error; err != nil {
			if isUniqueViolation(err) {
				return shared.ErrAlreadyExists.WithDetail("order_number", o.OrderNumber)
			}
			return err
		}
		if err := r.appendHistory(tx, o); err != nil {
			return err
		}
		return flushEvents(ctx, tx, r.events, o)
	})
	if err != nil {
		return err
	}
	o.MarkHistoryPersisted()
	return nil
}

// SaveWithLock writes the mutable order fields under a version check
func (r *GormOrderRepository) SaveWithLock(ctx context.Context, o *order.Order) error {
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Model(&models.OrderModel{}).
			Where("id = ? AND version = ?", o.ID, o.Version).
			Updates(map[string]any{
				"status":            o.Status,
				"discount_amount":   o.DiscountAmount,
				"coupon_code":       o.CouponCode,
				"discount_source":   o.DiscountSource,
				"discount_metadata": o.DiscountMetadata,
				"shipping_amount":   o.ShippingAmount,
				"tax_amount":        o.TaxAmount,
				"total_amount":      o.TotalAmount,
				"confirmed_at":      o.ConfirmedAt,
				"paid_at":           o.PaidAt,
				"fulfilled_at":      o.FulfilledAt,
				"shipped_at":        o.ShippedAt,
				"delivered_at":      o.DeliveredAt,
				"completed_at":      o.CompletedAt,
				"cancelled_at":      o.CancelledAt,
				"cancel_reason":     o.CancelReason,
				"tracking_number":   o.TrackingNumber,
				"carrier":           o.Carrier,
				"version":           o.Version + 1,
				"updated_at":        o.UpdatedAt,
			})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return shared.ErrConcurrencyConflict.WithDetail("order_id", o.ID.String())
		}
		if err := r.appendHistory(tx, o); err != nil {
			return err
		}
		return flushEvents(ctx, tx, r.events, o)
	})
	if err != nil {
		return err
	}
	o.BumpVersion()
	o.MarkHistoryPersisted()
	return nil
}

func (r *GormOrderRepository) appendHistory(tx *gorm.DB, o *order.Order) error {
	pending := o.PendingHistory()
	if len(pending) == 0 {
		return nil
	}
	rows := make([]models.OrderHistoryModel, len(pending))
	for i, h := range pending {
		rows[i] = models.OrderHistoryModelFromDomain(h)
	}
	return tx.Create(&rows).Error
}

// ExistsByOrderNumber reports whether the number is taken
func (r *GormOrderRepository) ExistsByOrderNumber(ctx context.Context, orderNumber string) (bool, error) {
	var count int64
	if err := r.db.WithContext(ctx).Model(&models.OrderModel{}).
		Where("order_number = ?", orderNumber).
		Count(&count).Error; err != nil {
		return false, err
	}
	return count > 0, nil
}

// GenerateOrderNumber returns the number after the highest one issued this year.
// Two concurrent callers can get the same number; the unique index rejects the
// loser's insert and checkout retries with a fresh number.
func (r *GormOrderRepository) GenerateOrderNumber(ctx context.Context) (string, error) {
	year := r.now().Year()
	prefix := fmt.Sprintf("SO-%04d-", year)

	var numbers []string
	err := r.db.WithContext(ctx).Model(&models.OrderModel{}).
		Where("order_number LIKE ?", prefix+"%").
		Order("LENGTH(order_number) DESC, order_number DESC").
		Limit(1).
		Pluck("order_number", &numbers).Error
	if err != nil {
		return "", err
	}

	seq := 0
	if len(numbers) > 0 {
		last := numbers[0]
		n, convErr := strconv.Atoi(strings.TrimPrefix(last, prefix))
		if convErr != nil {
			return "", fmt.Errorf("unexpected order number %q: %w", last, convErr)
		}
		seq = n
	}
	return order.FormatOrderNumber(year, seq+1), nil
}

// isUniqueViolation recognises duplicate-key errors from postgres and sqlite
func isUniqueViolation(err error) bool {
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "duplicate key") ||
		strings.Contains(msg, "unique constraint") ||
		strings.Contains(msg, "sqlstate 23505")
}

var _ order.OrderRepository = (*GormOrderRepository)(nil)
