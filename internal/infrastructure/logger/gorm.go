package logger

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"
	gormlogger "gorm.io/gorm/logger"
)

const (
	defaultSlowQuery   = 200 * time.Millisecond
	defaultMaxSQLBytes = 2048
)

// GormConfig tunes the statement log
type GormConfig struct {
	// Level is the application log level; see GormLevel
	Level string
	// SlowThreshold is the elapsed time above which a statement logs at warn
	SlowThreshold time.Duration
	// MaxSQLBytes cuts long statements such as multi-row order line inserts
	MaxSQLBytes int
}

// GormLogger writes gorm's statement log through zap with the request and
// trace ids of the calling context. Lookups that find nothing are not errors
// here: the repositories turn them into shared.ErrNotFound. Statements cut
// short by a checkout deadline or a client disconnect log at warn.
type GormLogger struct {
	logger   *zap.Logger
	level    gormlogger.LogLevel
	slow     time.Duration
	maxBytes int
}

func NewGormLogger(base *zap.Logger, cfg GormConfig) *GormLogger {
	l := &GormLogger{
		logger:   base.Named("gorm"),
		level:    GormLevel(cfg.Level),
		slow:     cfg.SlowThreshold,
		maxBytes: cfg.MaxSQLBytes,
	}
	if l.slow <= 0 {
		l.slow = defaultSlowQuery
	}
	if l.maxBytes <= 0 {
		l.maxBytes = defaultMaxSQLBytes
	}
	return l
}

// GormLevel maps the application log level onto gorm's
func GormLevel(level string) gormlogger.LogLevel {
	switch level {
	case "silent":
		return gormlogger.Silent
	case "error":
		return gormlogger.Error
	case "info", "debug":
		return gormlogger.Info
	default:
		return gormlogger.Warn
	}
}

func (l *GormLogger) LogMode(level gormlogger.LogLevel) gormlogger.Interface {
	clone := *l
	clone.level = level
	return &clone
}

func (l *GormLogger) Info(ctx context.Context, msg string, data ...any) {
	if l.level >= gormlogger.Info {
		Enrich(ctx, l.logger).Sugar().Infof(msg, data...)
	}
}

func (l *GormLogger) Warn(ctx context.Context, msg string, data ...any) {
	if l.level >= gormlogger.Warn {
		Enrich(ctx, l.logger).Sugar().Warnf(msg, data...)
	}
}

func (l *GormLogger) Error(ctx context.Context, msg string, data ...any) {
	if l.level >= gormlogger.Error {
		Enrich(ctx, l.logger).Sugar().Errorf(msg, data...)
	}
}

func (l *GormLogger) Trace(ctx context.Context, begin time.Time, fc func() (sql string, rowsAffected int64), err error) {
	if l.level <= gormlogger.Silent {
		return
	}
	if errors.Is(err, gormlogger.ErrRecordNotFound) {
		err = nil
	}

	elapsed := time.Since(begin)
	slow := elapsed > l.slow
	if err == nil && !slow && l.level < gormlogger.Info {
		return
	}

	sql, rows := fc()
	if len(sql) > l.maxBytes {
		sql = sql[:l.maxBytes] + "..."
	}
	log := Enrich(ctx, l.logger)
	fields := []zap.Field{
		zap.Duration("elapsed", elapsed),
		zap.Int64("rows", rows),
		zap.String("sql", sql),
	}

	switch {
	case err != nil && (errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded)):
		if l.level >= gormlogger.Warn {
			log.Warn("sql cancelled", append(fields, zap.Error(err))...)
		}
	case err != nil:
		log.Error("sql error", append(fields, zap.Error(err))...)
	case slow && l.level >= gormlogger.Warn:
		log.Warn("slow sql", append(fields, zap.Duration("threshold", l.slow))...)
	case l.level >= gormlogger.Info:
		log.Debug("sql", fields...)
	}
}
