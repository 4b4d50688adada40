package telemetry

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
	"go.opentelemetry.io/otel/metric"
)

const checkoutMeterName = "storefront/checkout"

// CheckoutMetrics records checkout throughput, latency and contention, plus
// the reservation sweeper's releases.
type CheckoutMetrics struct {
	checkouts       *Counter
	duration        *Histogram
	conflictRetries *Counter
	storeRetries    *Counter
	stockRejections *Counter
	orderAmount     *Histogram
	expiredReleases *Counter
	reconciliations *Counter
	clampedReleases *Counter
}

// NewCheckoutMetrics registers the checkout instruments on meter
func NewCheckoutMetrics(meter metric.Meter) (*CheckoutMetrics, error) {
	m := &CheckoutMetrics{}
	var err error

	if m.checkouts, err = NewCounter(meter, "checkout_total", "Checkouts by strategy and outcome", "{checkout}"); err != nil {
		return nil, err
	}
	if m.duration, err = NewHistogram(meter, HistogramOpts{
		Name:        "checkout_duration_seconds",
		Description: "End-to-end checkout latency",
		Unit:        "s",
		Boundaries:  CheckoutDurationBuckets,
	}); err != nil {
		return nil, err
	}
	if m.conflictRetries, err = NewCounter(meter, "checkout_conflict_retries_total", "Optimistic lock retries during reservation", "{retry}"); err != nil {
		return nil, err
	}
	if m.storeRetries, err = NewCounter(meter, "checkout_store_retries_total", "Retried writes in the persist phase", "{retry}"); err != nil {
		return nil, err
	}
	if m.stockRejections, err = NewCounter(meter, "checkout_stock_rejections_total", "Checkouts rejected for insufficient stock", "{checkout}"); err != nil {
		return nil, err
	}
	if m.orderAmount, err = NewHistogram(meter, HistogramOpts{
		Name:        "order_total_amount",
		Description: "Grand total of created orders",
		Unit:        "{currency}",
	}); err != nil {
		return nil, err
	}
	if m.expiredReleases, err = NewCounter(meter, "reservation_expired_released_total", "Reservations released by the expiry sweeper", "{reservation}"); err != nil {
		return nil, err
	}
	if m.reconciliations, err = NewCounter(meter, "checkout_reconciliation_total", "Stale checkout intents flagged for reconciliation", "{intent}"); err != nil {
		return nil, err
	}
	if m.clampedReleases, err = NewCounter(meter, "reservation_release_clamped_total", "Releases that asked for more than the ledger held", "{release}"); err != nil {
		return nil, err
	}
	return m, nil
}

// CheckoutSucceeded records a created order
func (m *CheckoutMetrics) CheckoutSucceeded(ctx context.Context, strategy string, elapsed time.Duration, total decimal.Decimal) {
	m.checkouts.Inc(ctx, AttrStrategy.String(strategy), AttrOutcome.String("success"))
	m.duration.RecordDuration(ctx, elapsed, AttrStrategy.String(strategy), AttrOutcome.String("success"))
	m.orderAmount.Record(ctx, total.InexactFloat64(), AttrStrategy.String(strategy))
}

// CheckoutFailed records a failed checkout with its error code
func (m *CheckoutMetrics) CheckoutFailed(ctx context.Context, strategy, code string, elapsed time.Duration) {
	m.checkouts.Inc(ctx, AttrStrategy.String(strategy), AttrOutcome.String("failure"), AttrErrorCode.String(code))
	m.duration.RecordDuration(ctx, elapsed, AttrStrategy.String(strategy), AttrOutcome.String("failure"))
	if code == "INSUFFICIENT_STOCK" {
		m.stockRejections.Inc(ctx, AttrStrategy.String(strategy))
	}
}

// ConflictRetried records one optimistic-lock retry
func (m *CheckoutMetrics) ConflictRetried(ctx context.Context, strategy string) {
	m.conflictRetries.Inc(ctx, AttrStrategy.String(strategy))
}

// StoreWriteRetried records one retried persist-phase write
func (m *CheckoutMetrics) StoreWriteRetried(ctx context.Context, store string) {
	m.storeRetries.Inc(ctx, AttrStore.String(store))
}

// ReservationsExpired records reservations released by the sweeper
func (m *CheckoutMetrics) ReservationsExpired(ctx context.Context, n int) {
	if n > 0 {
		m.expiredReleases.Add(ctx, int64(n))
	}
}

// IntentsFlagged records intents handed to reconciliation
func (m *CheckoutMetrics) IntentsFlagged(ctx context.Context, n int) {
	if n > 0 {
		m.reconciliations.Add(ctx, int64(n))
	}
}

// ReleaseClamped records a release that exceeded the reserved quantity
func (m *CheckoutMetrics) ReleaseClamped(ctx context.Context) {
	m.clampedReleases.Inc(ctx)
}
