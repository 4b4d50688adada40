package router

import (
	"github.com/gin-gonic/gin"
	"github.com/storefront/backend/internal/infrastructure/logger"
	"github.com/storefront/backend/internal/infrastructure/telemetry"
	"github.com/storefront/backend/internal/interfaces/http/middleware"
	"go.uber.org/zap"
)

// EngineConfig selects the middleware the storefront engine runs
type EngineConfig struct {
	Logger         *zap.Logger
	TrustedProxies []string
	CORSOrigins    []string
	MaxBodyBytes   int64
	Identity       middleware.IdentityConfig
	ServiceName    string
	// TracingEnabled installs otelgin and the span attribute middleware
	TracingEnabled bool
	// Meter records HTTP metrics when set
	Meter            *telemetry.MeterProvider
	ProfilingEnabled bool
	// Limiter throttles API calls per caller; nil disables rate limiting
	Limiter middleware.Limiter
}

// NewEngine builds the gin engine with the storefront middleware chain:
// recovery and access logs, request id, security headers, CORS and the body
// limit, then tracing, caller identity, metrics, profiling and rate limiting.
// Identity runs before tracing attributes, metrics and the limiter so each
// of them can key on the caller.
func NewEngine(cfg EngineConfig) *gin.Engine {
	if cfg.Logger == nil {
		cfg.Logger = zap.NewNop()
	}
	engine := gin.New()
	if len(cfg.TrustedProxies) > 0 {
		if err := engine.SetTrustedProxies(cfg.TrustedProxies); err != nil {
			cfg.Logger.Warn("Failed to set trusted proxies", zap.Error(err))
		}
	}

	engine.Use(middleware.RequestID())
	engine.Use(logger.Recovery(cfg.Logger))
	engine.Use(logger.GinMiddleware(cfg.Logger))
	engine.Use(middleware.Secure())

	cors := middleware.DefaultCORSConfig()
	cors.AllowOrigins = cfg.CORSOrigins
	engine.Use(middleware.CORSWithConfig(cors))
	if cfg.MaxBodyBytes > 0 {
		engine.Use(middleware.BodyLimit(cfg.MaxBodyBytes))
	}

	engine.Use(middleware.TracingWithConfig(middleware.TracingConfig{
		ServiceName: cfg.ServiceName,
		Enabled:     cfg.TracingEnabled,
	}))
	if cfg.Identity.Logger == nil {
		cfg.Identity.Logger = cfg.Logger
	}
	engine.Use(middleware.Identity(cfg.Identity))
	if cfg.TracingEnabled {
		engine.Use(middleware.TracingAttributeInjector(), middleware.SpanErrorMarker())
	}
	if cfg.Meter != nil {
		engine.Use(middleware.HTTPMetrics(middleware.HTTPMetricsConfig{
			MeterProvider: cfg.Meter,
			Enabled:       true,
			Logger:        cfg.Logger,
		}))
	}
	if cfg.ProfilingEnabled {
		engine.Use(middleware.ProfileLabels("/health"))
	}

	return engine
}

// New builds the engine, mounts /health and the versioned API, and returns it
// ready to serve
func New(cfg EngineConfig, h Handlers) *gin.Engine {
	engine := NewEngine(cfg)
	engine.GET("/health", h.System.Health)

	r := NewRouter(engine, "/api/v1")
	if cfg.Limiter != nil {
		r.Use(middleware.RateLimit(cfg.Limiter, cfg.Logger))
	}
	RegisterStorefront(r, h)
	r.Setup()
	return engine
}
