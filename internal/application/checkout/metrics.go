package checkout

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
)

// Metrics receives checkout outcome signals
type Metrics interface {
	CheckoutSucceeded(ctx context.Context, strategy string, elapsed time.Duration, total decimal.Decimal)
	CheckoutFailed(ctx context.Context, strategy, code string, elapsed time.Duration)
	ConflictRetried(ctx context.Context, strategy string)
	StoreWriteRetried(ctx context.Context, store string)
	IntentsFlagged(ctx context.Context, n int)
}

type noopMetrics struct{}

func (noopMetrics) CheckoutSucceeded(context.Context, string, time.Duration, decimal.Decimal) {}
func (noopMetrics) CheckoutFailed(context.Context, string, string, time.Duration)             {}
func (noopMetrics) ConflictRetried(context.Context, string)                                    {}
func (noopMetrics) StoreWriteRetried(context.Context, string)                                  {}
func (noopMetrics) IntentsFlagged(context.Context, int)                                        {}
