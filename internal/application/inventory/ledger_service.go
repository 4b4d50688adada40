package inventory

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/storefront/backend/internal/domain/inventory"
	"github.com/storefront/backend/internal/domain/shared"
	"github.com/storefront/backend/internal/infrastructure/logger"
	"go.uber.org/zap"
)

// Metrics receives ledger bookkeeping signals
type Metrics interface {
	ReservationsExpired(ctx context.Context, n int)
	ReleaseClamped(ctx context.Context)
}

type noopMetrics struct{}

func (noopMetrics) ReservationsExpired(context.Context, int) {}
func (noopMetrics) ReleaseClamped(context.Context)           {}

// LedgerConfig configures LedgerService
type LedgerConfig struct {
	Provisioning Provisioning
	Retry        RetryPolicy
	Hold         time.Duration
}

// StockLevel is a read view of one ledger row
type StockLevel struct {
	ProductID uuid.UUID `json:"product_id"`
	OnHand    int       `json:"quantity_on_hand"`
	Reserved  int       `json:"reserved_quantity"`
	Available int       `json:"available_quantity"`
	Version   int       `json:"version"`
}

func toStockLevel(item *inventory.InventoryItem) *StockLevel {
	return &StockLevel{
		ProductID: item.ProductID,
		OnHand:    item.QuantityOnHand,
		Reserved:  item.ReservedQuantity,
		Available: item.AvailableQuantity(),
		Version:   item.Version,
	}
}

// RestockLine is one product returned to the shelf by a cancelled order
type RestockLine struct {
	ProductID uuid.UUID
	Quantity  int
}

// LedgerService pairs ledger counter changes with reservation records. Every
// write runs in one transaction and is retried on version conflicts.
type LedgerService struct {
	scope   TransactionScope
	tracker *inventory.ReservationTracker
	cfg     LedgerConfig
	metrics Metrics
	logger  *zap.Logger
}

// NewLedgerService creates a LedgerService
func NewLedgerService(scope TransactionScope, tracker *inventory.ReservationTracker, cfg LedgerConfig, logger *zap.Logger) *LedgerService {
	if cfg.Hold <= 0 {
		cfg.Hold = 24 * time.Hour
	}
	return &LedgerService{
		scope:   scope,
		tracker: tracker,
		cfg:     cfg,
		metrics: noopMetrics{},
		logger:  logger,
	}
}

// SetMetrics replaces the metrics sink
func (s *LedgerService) SetMetrics(m Metrics) {
	if m != nil {
		s.metrics = m
	}
}

// Tracker returns the reservation tracker shared with checkout
func (s *LedgerService) Tracker() *inventory.ReservationTracker {
	return s.tracker
}

// Stock returns the current ledger numbers for a product
func (s *LedgerService) Stock(ctx context.Context, productID uuid.UUID) (*StockLevel, error) {
	var level *StockLevel
	err := s.scope.Execute(ctx, func(repos TransactionalRepositories) error {
		item, err := repos.Items().FindByProductID(ctx, productID)
		if err != nil {
			return err
		}
		level = toStockLevel(item)
		return nil
	})
	return level, err
}

// Adjust applies a signed on-hand correction. Adjusting a product without a
// ledger row creates the row first, which is how new stock is seeded.
func (s *LedgerService) Adjust(ctx context.Context, productID uuid.UUID, delta int, reason string) (*StockLevel, error) {
	var level *StockLevel
	seed := Provisioning{Enabled: true}
	err := s.withRetry(ctx, "adjust", func(ctx context.Context, repos TransactionalRepositories) error {
		item, err := seed.LoadOrProvision(ctx, repos.Items(), productID)
		if err != nil {
			return err
		}
		if err := item.AdjustStock(delta, reason); err != nil {
			return err
		}
		if err := repos.Items().SaveWithLock(ctx, item); err != nil {
			return err
		}
		level = toStockLevel(item)
		return nil
	})
	if err != nil {
		return nil, err
	}
	logger.Enrich(ctx, s.logger).Info("Stock adjusted",
		zap.String("product_id", productID.String()),
		zap.Int("delta", delta),
		zap.String("reason", reason),
		zap.Int("on_hand", level.OnHand),
	)
	return level, nil
}

// Reserve holds quantity units of a product for a cart or order
func (s *LedgerService) Reserve(ctx context.Context, refType inventory.ReferenceType, refID string, productID uuid.UUID, quantity int) error {
	return s.withRetry(ctx, "reserve", func(ctx context.Context, repos TransactionalRepositories) error {
		item, err := s.cfg.Provisioning.LoadOrProvision(ctx, repos.Items(), productID)
		if err != nil {
			return ShortageIfMissing(err, productID, quantity)
		}
		if err := item.ReserveStock(quantity); err != nil {
			return err
		}
		r, err := s.tracker.CreateReservation(item.ID, productID, quantity, refID, refType, s.cfg.Hold.Hours())
		if err != nil {
			return err
		}
		if err := repos.Items().SaveWithLock(ctx, item); err != nil {
			return err
		}
		return repos.Reservations().SaveAll(ctx, r)
	})
}

// Release gives back up to quantity units held by one reference, newest hold
// first. Only units still covered by active reservations leave the ledger's
// reserved pool, so a hold already swept by expiry is not released twice.
func (s *LedgerService) Release(ctx context.Context, refType inventory.ReferenceType, refID string, productID uuid.UUID, quantity int, reason string) (int, error) {
	released := 0
	err := s.withRetry(ctx, "release", func(ctx context.Context, repos TransactionalRepositories) error {
		released = 0
		n, err := s.releaseProduct(ctx, repos, refType, refID, productID, quantity, reason)
		released = n
		return err
	})
	return released, err
}

// ReleaseReference releases every active hold of a reference
func (s *LedgerService) ReleaseReference(ctx context.Context, refType inventory.ReferenceType, refID, reason string) (int, error) {
	released := 0
	err := s.withRetry(ctx, "release_reference", func(ctx context.Context, repos TransactionalRepositories) error {
		released = 0
		active, err := repos.Reservations().FindActiveByReference(ctx, refType, refID, nil)
		if err != nil {
			return err
		}
		for productID, qty := range activeByProduct(active) {
			n, err := s.releaseProduct(ctx, repos, refType, refID, productID, qty, reason)
			if err != nil {
				return err
			}
			released += n
		}
		return nil
	})
	return released, err
}

// RestockOrder returns a cancelled order's units to the shelf and releases any
// holds still open under the order's reference.
func (s *LedgerService) RestockOrder(ctx context.Context, orderRef string, lines []RestockLine, reason string) error {
	return s.withRetry(ctx, "restock", func(ctx context.Context, repos TransactionalRepositories) error {
		for _, line := range lines {
			item, err := s.cfg.Provisioning.LoadOrProvision(ctx, repos.Items(), line.ProductID)
			if errors.Is(err, shared.ErrNotFound) {
				logger.Enrich(ctx, s.logger).Warn("No ledger row to restock", zap.String("product_id", line.ProductID.String()))
				continue
			}
			if err != nil {
				return err
			}
			if err := item.AdjustStock(line.Quantity, reason); err != nil {
				return err
			}
			if err := repos.Items().SaveWithLock(ctx, item); err != nil {
				return err
			}
			active, err := repos.Reservations().FindActiveByReference(ctx, inventory.ReferenceOrder, orderRef, &line.ProductID)
			if err != nil {
				return err
			}
			if held := inventory.SumActive(active); held > 0 {
				if _, err := s.releaseProduct(ctx, repos, inventory.ReferenceOrder, orderRef, line.ProductID, held, reason); err != nil {
					return err
				}
			}
		}
		return nil
	})
}

// releaseProduct must run inside a transaction
func (s *LedgerService) releaseProduct(
	ctx context.Context,
	repos TransactionalRepositories,
	refType inventory.ReferenceType,
	refID string,
	productID uuid.UUID,
	quantity int,
	reason string,
) (int, error) {
	active, err := repos.Reservations().FindActiveByReference(ctx, refType, refID, &productID)
	if err != nil {
		return 0, err
	}
	split := s.tracker.ReleasePartial(active, quantity, reason)
	if split.Matched == 0 {
		return 0, nil
	}

	item, err := repos.Items().FindByProductID(ctx, productID)
	if err != nil {
		return 0, err
	}
	released, clamped := item.ReleaseReservedStock(split.Matched)
	if clamped {
		s.metrics.ReleaseClamped(ctx)
		logger.Enrich(ctx, s.logger).Warn("Reservation release exceeded ledger reserved quantity",
			zap.String("product_id", productID.String()),
			zap.String("reference_id", refID),
			zap.Int("requested", split.Matched),
			zap.Int("released", released),
		)
	}
	if released > 0 {
		if err := repos.Items().SaveWithLock(ctx, item); err != nil {
			return 0, err
		}
	}
	if err := repos.Reservations().SaveAll(ctx, split.Changed()...); err != nil {
		return 0, err
	}
	return released, nil
}

func (s *LedgerService) withRetry(ctx context.Context, op string, fn func(ctx context.Context, repos TransactionalRepositories) error) error {
	return s.cfg.Retry.Do(ctx, func(ctx context.Context) error {
		return s.scope.Execute(ctx, func(repos TransactionalRepositories) error {
			return fn(ctx, repos)
		})
	}, func(attempt int, err error) {
		logger.Enrich(ctx, s.logger).Debug("Ledger write conflict, retrying",
			zap.String("operation", op),
			zap.Int("attempt", attempt),
			zap.Error(err),
		)
	})
}

func activeByProduct(rs []*inventory.StockReservation) map[uuid.UUID]int {
	out := make(map[uuid.UUID]int)
	for _, r := range rs {
		if r.IsActive() {
			out[r.ProductID] += r.Quantity
		}
	}
	return out
}
