package checkout

import (
	"context"
	"errors"
	"time"

	"github.com/storefront/backend/internal/domain/checkout"
	"github.com/storefront/backend/internal/infrastructure/logger"
	"go.uber.org/zap"
)

var errAbandoned = errors.New("checkout abandoned before settling")

// ReconciliationResult summarises one scan
type ReconciliationResult struct {
	Scanned  int
	Flagged  int
	Failed   int
	Awaiting int
}

// Reconciler finds checkout intents that stopped mid-way. An abandoned intent
// that wrote nothing is closed as FAILED; one that did write is flagged for an
// operator.
type Reconciler struct {
	intents    checkout.IntentRepository
	staleAfter time.Duration
	batchSize  int
	metrics    Metrics
	now        func() time.Time
	logger     *zap.Logger
}

// NewReconciler creates a Reconciler
func NewReconciler(intents checkout.IntentRepository, staleAfter time.Duration, batchSize int, logger *zap.Logger) *Reconciler {
	if staleAfter <= 0 {
		staleAfter = 15 * time.Minute
	}
	if batchSize <= 0 {
		batchSize = 100
	}
	return &Reconciler{
		intents:    intents,
		staleAfter: staleAfter,
		batchSize:  batchSize,
		metrics:    noopMetrics{},
		now:        time.Now,
		logger:     logger,
	}
}

// SetMetrics replaces the no-op metrics sink
func (r *Reconciler) SetMetrics(m Metrics) {
	if m != nil {
		r.metrics = m
	}
}

// WithClock overrides the clock
func (r *Reconciler) WithClock(now func() time.Time) *Reconciler {
	r.now = now
	return r
}

// Scan closes or flags stale intents
func (r *Reconciler) Scan(ctx context.Context) (ReconciliationResult, error) {
	log := logger.Enrich(ctx, r.logger)
	now := r.now()

	intents, err := r.intents.FindUnfinished(ctx, now.Add(-r.staleAfter), r.batchSize)
	if err != nil {
		return ReconciliationResult{}, err
	}

	var res ReconciliationResult
	for _, in := range intents {
		res.Scanned++
		if in.Status == checkout.IntentNeedsReconciliation {
			res.Awaiting++
			continue
		}
		if !in.IsStale(now, r.staleAfter) {
			continue
		}

		in.Fail(errAbandoned)
		if err := r.intents.Save(ctx, in); err != nil {
			log.Warn("Failed to update stale checkout intent", zap.String("intent_id", in.ID.String()), zap.Error(err))
			continue
		}
		if in.Status == checkout.IntentNeedsReconciliation {
			res.Flagged++
			log.Warn("Stale checkout intent flagged for reconciliation",
				zap.String("intent_id", in.ID.String()),
				zap.String("customer_id", in.CustomerID.String()),
				zap.Any("completed_steps", in.CompletedSteps),
			)
		} else {
			res.Failed++
		}
	}

	r.metrics.IntentsFlagged(ctx, res.Flagged)
	if res.Scanned > 0 {
		log.Info("Checkout reconciliation scan finished",
			zap.Int("scanned", res.Scanned),
			zap.Int("flagged", res.Flagged),
			zap.Int("closed", res.Failed),
			zap.Int("awaiting_operator", res.Awaiting),
		)
	}
	return res, nil
}
