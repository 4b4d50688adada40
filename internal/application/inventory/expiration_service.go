package inventory

import (
	"context"
	"errors"
	"time"

	"github.com/storefront/backend/internal/domain/inventory"
	"github.com/storefront/backend/internal/domain/shared"
	"github.com/storefront/backend/internal/infrastructure/logger"
	"go.uber.org/zap"
)

// ExpirationResult summarizes one sweep
type ExpirationResult struct {
	Scanned  int
	Released int
	Skipped  int
	Failed   int
}

// ExpirationService returns stock held by reservations whose hold window ended
type ExpirationService struct {
	scope     TransactionScope
	retry     RetryPolicy
	batchSize int
	metrics   Metrics
	logger    *zap.Logger
	now       func() time.Time
}

// NewExpirationService creates an ExpirationService
func NewExpirationService(scope TransactionScope, retry RetryPolicy, batchSize int, logger *zap.Logger) *ExpirationService {
	if batchSize <= 0 {
		batchSize = 100
	}
	return &ExpirationService{
		scope:     scope,
		retry:     retry,
		batchSize: batchSize,
		metrics:   noopMetrics{},
		logger:    logger,
		now:       time.Now,
	}
}

// SetMetrics replaces the metrics sink
func (s *ExpirationService) SetMetrics(m Metrics) {
	if m != nil {
		s.metrics = m
	}
}

// WithClock overrides the clock, for tests
func (s *ExpirationService) WithClock(now func() time.Time) *ExpirationService {
	s.now = now
	return s
}

// ReleaseExpired releases one batch of expired reservations. Each reservation
// is handled in its own transaction so one failure does not block the rest.
func (s *ExpirationService) ReleaseExpired(ctx context.Context) (*ExpirationResult, error) {
	now := s.now()
	var expired []*inventory.StockReservation
	err := s.scope.Execute(ctx, func(repos TransactionalRepositories) error {
		var err error
		expired, err = repos.Reservations().FindExpired(ctx, now, s.batchSize)
		return err
	})
	if err != nil {
		return nil, err
	}

	result := &ExpirationResult{Scanned: len(expired)}
	for _, r := range expired {
		released, err := s.releaseOne(ctx, r, now)
		switch {
		case err != nil:
			result.Failed++
			s.logger.Warn("Failed to release expired reservation",
				zap.String("reservation_id", r.ID.String()),
				zap.String("product_id", r.ProductID.String()),
				zap.Error(err),
			)
		case released:
			result.Released++
		default:
			result.Skipped++
		}
	}

	s.metrics.ReservationsExpired(ctx, result.Released)
	if result.Scanned > 0 {
		s.logger.Info("Expired reservations swept",
			zap.Int("scanned", result.Scanned),
			zap.Int("released", result.Released),
			zap.Int("skipped", result.Skipped),
			zap.Int("failed", result.Failed),
		)
	}
	return result, nil
}

// releaseOne reloads the reservation inside the transaction; a checkout or cart
// update may already have consumed it since the scan.
func (s *ExpirationService) releaseOne(ctx context.Context, candidate *inventory.StockReservation, now time.Time) (bool, error) {
	released := false
	err := s.retry.Do(ctx, func(ctx context.Context) error {
		released = false
		return s.scope.Execute(ctx, func(repos TransactionalRepositories) error {
			r, err := repos.Reservations().FindByID(ctx, candidate.ID)
			if err != nil {
				return err
			}
			if !r.IsExpired(now) {
				return nil
			}
			item, err := repos.Items().FindByProductID(ctx, r.ProductID)
			if err != nil && !errors.Is(err, shared.ErrNotFound) {
				return err
			}
			if err := r.Release(inventory.ReleaseReasonExpired, now); err != nil {
				return err
			}
			if item != nil {
				n, clamped := item.ReleaseReservedStock(r.Quantity)
				if clamped {
					s.metrics.ReleaseClamped(ctx)
					logger.Enrich(ctx, s.logger).Warn("Expired reservation exceeded ledger reserved quantity",
						zap.String("reservation_id", r.ID.String()),
						zap.Int("quantity", r.Quantity),
						zap.Int("released", n),
					)
				}
				if n > 0 {
					if err := repos.Items().SaveWithLock(ctx, item); err != nil {
						return err
					}
				}
			}
			if err := repos.Reservations().SaveAll(ctx, r); err != nil {
				return err
			}
			released = true
			return nil
		})
	}, nil)
	return released, err
}
