package telemetry

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/uptrace/opentelemetry-go-extra/otelgorm"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// DBTracingConfig configures gorm span instrumentation.
type DBTracingConfig struct {
	Enabled         bool
	DBName          string
	IncludeVars     bool
	SlowQueryThresh time.Duration
}

type queryStartKey struct{}

// RegisterDBTracing installs otelgorm and a callback pair that tags slow or
// failed statements on the active span.
func RegisterDBTracing(db *gorm.DB, cfg DBTracingConfig, logger *zap.Logger) error {
	if !cfg.Enabled {
		return nil
	}
	if cfg.SlowQueryThresh == 0 {
		cfg.SlowQueryThresh = 200 * time.Millisecond
	}

	opts := []otelgorm.Option{otelgorm.WithDBName(cfg.DBName)}
	if !cfg.IncludeVars {
		opts = append(opts, otelgorm.WithoutQueryVariables())
	}
	if err := db.Use(otelgorm.NewPlugin(opts...)); err != nil {
		return err
	}

	before := func(tx *gorm.DB) {
		if tx.Statement.Context != nil {
			tx.Statement.Context = context.WithValue(tx.Statement.Context, queryStartKey{}, time.Now())
		}
	}
	after := func(tx *gorm.DB) { annotateStatement(tx, cfg.SlowQueryThresh) }

	cb := db.Callback()
	steps := []struct {
		name string
		reg  func(string, string, func(*gorm.DB)) error
	}{
		{"create", func(n, at string, f func(*gorm.DB)) error { return cb.Create().Before(at).Register(n, f) }},
		{"query", func(n, at string, f func(*gorm.DB)) error { return cb.Query().Before(at).Register(n, f) }},
		{"update", func(n, at string, f func(*gorm.DB)) error { return cb.Update().Before(at).Register(n, f) }},
		{"delete", func(n, at string, f func(*gorm.DB)) error { return cb.Delete().Before(at).Register(n, f) }},
		{"row", func(n, at string, f func(*gorm.DB)) error { return cb.Row().Before(at).Register(n, f) }},
		{"raw", func(n, at string, f func(*gorm.DB)) error { return cb.Raw().Before(at).Register(n, f) }},
	}
	for _, s := range steps {
		if err := s.reg("otel_timing:before_"+s.name, "gorm:"+s.name, before); err != nil {
			return err
		}
	}
	afterSteps := []func() error{
		func() error { return cb.Create().After("gorm:create").Register("otel_slow_query:create", after) },
		func() error { return cb.Query().After("gorm:query").Register("otel_slow_query:query", after) },
		func() error { return cb.Update().After("gorm:update").Register("otel_slow_query:update", after) },
		func() error { return cb.Delete().After("gorm:delete").Register("otel_slow_query:delete", after) },
		func() error { return cb.Row().After("gorm:row").Register("otel_slow_query:row", after) },
		func() error { return cb.Raw().After("gorm:raw").Register("otel_slow_query:raw", after) },
	}
	for _, register := range afterSteps {
		if err := register(); err != nil {
			return err
		}
	}

	logger.Info("Database tracing enabled",
		zap.Bool("include_vars", cfg.IncludeVars),
		zap.Duration("slow_query_threshold", cfg.SlowQueryThresh),
	)
	return nil
}

func annotateStatement(tx *gorm.DB, threshold time.Duration) {
	ctx := tx.Statement.Context
	if ctx == nil {
		return
	}
	span := trace.SpanFromContext(ctx)
	if !span.IsRecording() {
		return
	}
	span.SetAttributes(attribute.Int64("db.rows_affected", tx.Statement.RowsAffected))
	if tx.Statement.Table != "" {
		span.SetAttributes(attribute.String("db.sql.table", tx.Statement.Table))
	}
	if tx.Error != nil && !errors.Is(tx.Error, gorm.ErrRecordNotFound) {
		span.SetStatus(codes.Error, tx.Error.Error())
		span.RecordError(tx.Error)
	}
	if start, ok := ctx.Value(queryStartKey{}).(time.Time); ok {
		if elapsed := time.Since(start); elapsed > threshold {
			span.SetAttributes(
				attribute.Bool("db.slow_query", true),
				attribute.Int64("db.query_duration_ms", elapsed.Milliseconds()),
			)
		}
	}
}

// RegisterPoolMetrics exports sql.DB pool counters as observable gauges.
// The callback reads db.Stats at collection time.
func RegisterPoolMetrics(meter metric.Meter, db *sql.DB) (metric.Registration, error) {
	conns, err := meter.Int64ObservableGauge("db_pool_connections",
		metric.WithDescription("Connections in the pool by state"),
		metric.WithUnit("{connection}"))
	if err != nil {
		return nil, err
	}
	waits, err := meter.Int64ObservableCounter("db_pool_wait_total",
		metric.WithDescription("Connections waited for"),
		metric.WithUnit("{wait}"))
	if err != nil {
		return nil, err
	}
	waitDur, err := meter.Float64ObservableCounter("db_pool_wait_duration_seconds",
		metric.WithDescription("Total time blocked waiting for a connection"),
		metric.WithUnit("s"))
	if err != nil {
		return nil, err
	}

	return meter.RegisterCallback(func(_ context.Context, o metric.Observer) error {
		s := db.Stats()
		o.ObserveInt64(conns, int64(s.InUse), metric.WithAttributes(AttrDBPoolStat.String("in_use")))
		o.ObserveInt64(conns, int64(s.Idle), metric.WithAttributes(AttrDBPoolStat.String("idle")))
		o.ObserveInt64(conns, int64(s.MaxOpenConnections), metric.WithAttributes(AttrDBPoolStat.String("max_open")))
		o.ObserveInt64(waits, s.WaitCount)
		o.ObserveFloat64(waitDur, s.WaitDuration.Seconds())
		return nil
	}, conns, waits, waitDur)
}
