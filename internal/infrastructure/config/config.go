package config

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"github.com/spf13/viper"
)

// Config holds all application configuration
type Config struct {
	App            AppConfig
	Database       DatabaseConfig
	Redis          RedisConfig
	Log            LogConfig
	Event          EventConfig
	HTTP           HTTPConfig
	Auth           AuthConfig
	Checkout       CheckoutConfig
	Pricing        PricingConfig
	Reservation    ReservationConfig
	Reconciliation ReconciliationConfig
	Loyalty        LoyaltyConfig
	Kafka          KafkaConfig
	Telemetry      TelemetryConfig
}

// LogConfig holds logging configuration
type LogConfig struct {
	Level  string // debug, info, warn, error
	Format string // json, console
	Output string // stdout, stderr, or file path
}

// AppConfig holds application-specific settings
type AppConfig struct {
	Name string
	Env  string
	Port string
}

// DatabaseConfig holds database connection settings
type DatabaseConfig struct {
	Host            string
	Port            int
	User            string
	Password        string
	DBName          string
	SSLMode         string
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime int // in minutes
	ConnMaxIdleTime int // in minutes
	SlowQuery       time.Duration
}

// RedisConfig holds Redis connection settings
type RedisConfig struct {
	Enabled  bool
	Host     string
	Port     int
	Password string
	DB       int
}

// Addr returns host:port
func (r *RedisConfig) Addr() string {
	return fmt.Sprintf("%s:%d", r.Host, r.Port)
}

// EventConfig holds outbox processing configuration
type EventConfig struct {
	ProcessorEnabled bool
	BatchSize        int
	PollInterval     time.Duration
	MaxRetries       int
	CleanupEnabled   bool
	CleanupRetention time.Duration
	PublishTimeout   time.Duration
	// DedupTTL is how long handled event ids are remembered
	DedupTTL time.Duration
}

// HTTPConfig holds HTTP server configuration
type HTTPConfig struct {
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	IdleTimeout     time.Duration
	ShutdownTimeout time.Duration
	MaxHeaderBytes  int
	TrustedProxies  []string
	CORSOrigins     []string
	MaxBodyBytes    int64
	// RateLimit is requests per RateWindow per caller; zero disables limiting
	RateLimit  int
	RateWindow time.Duration
}

// AuthConfig controls how callers are identified
type AuthConfig struct {
	JWTSecret string
	Issuer    string
	// TrustIdentityHeaders accepts X-User-ID/X-User-Email/X-User-Roles set by an upstream gateway
	TrustIdentityHeaders bool
	// RevocationEnabled checks bearer tokens against the Redis revocation list
	RevocationEnabled bool
	RevocationTTL     time.Duration
}

// CheckoutConfig tunes the checkout orchestrator
type CheckoutConfig struct {
	Timeout                  time.Duration
	MaxRetries               int           // conflict attempts for ledger writes outside checkout
	RetryBackoff             time.Duration // base backoff, doubled per attempt
	StoreWriteRetries        int           // attempts per store in the persist phase
	AutoProvisionInventory   bool
	DefaultProvisionQuantity int
	ReservationHold          time.Duration
	TaxRate                  decimal.Decimal
	FastCheckoutEnabled      bool
	IdempotencyTTL           time.Duration
}

// PricingConfig holds shipping and promotion settings
type PricingConfig struct {
	ShippingFlatFee         decimal.Decimal
	FreeShippingThreshold   decimal.Decimal
	FallbackDiscountPercent decimal.Decimal
}

// ReservationConfig holds reservation expiry sweeper settings
type ReservationConfig struct {
	CheckInterval      time.Duration
	AutoReleaseEnabled bool
	BatchSize          int
}

// ReconciliationConfig holds checkout saga scanner settings
type ReconciliationConfig struct {
	Enabled      bool
	ScanInterval time.Duration
	StaleAfter   time.Duration
}

// LoyaltyConfig holds loyalty accrual settings
type LoyaltyConfig struct {
	AmountPerPoint decimal.Decimal
}

// KafkaConfig holds the downstream event stream settings
type KafkaConfig struct {
	Enabled      bool
	Brokers      []string
	Topic        string
	WriteTimeout time.Duration
}

// TelemetryConfig holds OpenTelemetry configuration
type TelemetryConfig struct {
	Enabled           bool
	CollectorEndpoint string
	SamplingRatio     float64
	ServiceName       string
	Insecure          bool
	MetricsInterval   time.Duration
	DBTraceEnabled    bool
	LogExportEnabled  bool

	ProfilingEnabled       bool
	ProfilingServerAddress string
}

// Load loads configuration from TOML file and environment variables
// Priority (highest to lowest):
// 1. Environment variables with SHOP_ prefix (e.g., SHOP_DATABASE_PASSWORD)
// 2. config.toml
// 3. Built-in defaults
func Load() (*Config, error) {
	v := viper.New()

	v.SetConfigName("config")
	v.SetConfigType("toml")
	v.AddConfigPath(".")
	v.AddConfigPath("./backend")
	v.AddConfigPath("/app")

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
	}

	v.SetEnvPrefix("SHOP")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	return fromViper(v)
}

func setBoolDefaults(v *viper.Viper) {
	v.SetDefault("redis.enabled", true)
	v.SetDefault("event.processor_enabled", true)
	v.SetDefault("event.cleanup_enabled", true)
	v.SetDefault("checkout.fast_checkout_enabled", true)
	v.SetDefault("reservation.auto_release_enabled", true)
	v.SetDefault("reconciliation.enabled", true)
	v.SetDefault("auth.trust_identity_headers", true)
}

func fromViper(v *viper.Viper) (*Config, error) {
	setBoolDefaults(v)

	cfg := &Config{
		App: AppConfig{
			Name: v.GetString("app.name"),
			Env:  v.GetString("app.env"),
			Port: v.GetString("app.port"),
		},
		Database: DatabaseConfig{
			Host:            v.GetString("database.host"),
			Port:            v.GetInt("database.port"),
			User:            v.GetString("database.user"),
			Password:        v.GetString("database.password"),
			DBName:          v.GetString("database.dbname"),
			SSLMode:         v.GetString("database.sslmode"),
			MaxOpenConns:    v.GetInt("database.max_open_conns"),
			MaxIdleConns:    v.GetInt("database.max_idle_conns"),
			ConnMaxLifetime: v.GetInt("database.conn_max_lifetime"),
			ConnMaxIdleTime: v.GetInt("database.conn_max_idle_time"),
			SlowQuery:       v.GetDuration("database.slow_query"),
		},
		Redis: RedisConfig{
			Enabled:  v.GetBool("redis.enabled"),
			Host:     v.GetString("redis.host"),
			Port:     v.GetInt("redis.port"),
			Password: v.GetString("redis.password"),
			DB:       v.GetInt("redis.db"),
		},
		Log: LogConfig{
			Level:  v.GetString("log.level"),
			Format: v.GetString("log.format"),
			Output: v.GetString("log.output"),
		},
		Event: EventConfig{
			ProcessorEnabled: v.GetBool("event.processor_enabled"),
			BatchSize:        v.GetInt("event.batch_size"),
			PollInterval:     v.GetDuration("event.poll_interval"),
			MaxRetries:       v.GetInt("event.max_retries"),
			CleanupEnabled:   v.GetBool("event.cleanup_enabled"),
			CleanupRetention: v.GetDuration("event.cleanup_retention"),
			PublishTimeout:   v.GetDuration("event.publish_timeout"),
			DedupTTL:         v.GetDuration("event.dedup_ttl"),
		},
		HTTP: HTTPConfig{
			ReadTimeout:     v.GetDuration("http.read_timeout"),
			WriteTimeout:    v.GetDuration("http.write_timeout"),
			IdleTimeout:     v.GetDuration("http.idle_timeout"),
			ShutdownTimeout: v.GetDuration("http.shutdown_timeout"),
			MaxHeaderBytes:  v.GetInt("http.max_header_bytes"),
			TrustedProxies:  v.GetStringSlice("http.trusted_proxies"),
			CORSOrigins:     v.GetStringSlice("http.cors_origins"),
			MaxBodyBytes:    v.GetInt64("http.max_body_bytes"),
			RateLimit:       v.GetInt("http.rate_limit"),
			RateWindow:      v.GetDuration("http.rate_window"),
		},
		Auth: AuthConfig{
			JWTSecret:            v.GetString("auth.jwt_secret"),
			Issuer:               v.GetString("auth.issuer"),
			TrustIdentityHeaders: v.GetBool("auth.trust_identity_headers"),
			RevocationEnabled:    v.GetBool("auth.revocation_enabled"),
			RevocationTTL:        v.GetDuration("auth.revocation_ttl"),
		},
		Checkout: CheckoutConfig{
			Timeout:                  v.GetDuration("checkout.timeout"),
			MaxRetries:               v.GetInt("checkout.max_retries"),
			RetryBackoff:             v.GetDuration("checkout.retry_backoff"),
			StoreWriteRetries:        v.GetInt("checkout.store_write_retries"),
			AutoProvisionInventory:   v.GetBool("checkout.auto_provision_inventory"),
			DefaultProvisionQuantity: v.GetInt("checkout.default_provision_quantity"),
			ReservationHold:          v.GetDuration("checkout.reservation_hold"),
			FastCheckoutEnabled:      v.GetBool("checkout.fast_checkout_enabled"),
			IdempotencyTTL:           v.GetDuration("checkout.idempotency_ttl"),
		},
		Reservation: ReservationConfig{
			CheckInterval:      v.GetDuration("reservation.check_interval"),
			AutoReleaseEnabled: v.GetBool("reservation.auto_release_enabled"),
			BatchSize:          v.GetInt("reservation.batch_size"),
		},
		Reconciliation: ReconciliationConfig{
			Enabled:      v.GetBool("reconciliation.enabled"),
			ScanInterval: v.GetDuration("reconciliation.scan_interval"),
			StaleAfter:   v.GetDuration("reconciliation.stale_after"),
		},
		Kafka: KafkaConfig{
			Enabled:      v.GetBool("kafka.enabled"),
			Brokers:      v.GetStringSlice("kafka.brokers"),
			Topic:        v.GetString("kafka.topic"),
			WriteTimeout: v.GetDuration("kafka.write_timeout"),
		},
		Telemetry: TelemetryConfig{
			Enabled:           v.GetBool("telemetry.enabled"),
			CollectorEndpoint: v.GetString("telemetry.collector_endpoint"),
			SamplingRatio:     v.GetFloat64("telemetry.sampling_ratio"),
			ServiceName:       v.GetString("telemetry.service_name"),
			Insecure:          v.GetBool("telemetry.insecure"),
			MetricsInterval:   v.GetDuration("telemetry.metrics_interval"),
			DBTraceEnabled:    v.GetBool("telemetry.db_trace_enabled"),
			LogExportEnabled:  v.GetBool("telemetry.log_export_enabled"),

			ProfilingEnabled:       v.GetBool("telemetry.profiling_enabled"),
			ProfilingServerAddress: v.GetString("telemetry.profiling_server_address"),
		},
	}

	var err error
	money := []struct {
		key  string
		dst  *decimal.Decimal
		dflt string
	}{
		{"checkout.tax_rate", &cfg.Checkout.TaxRate, "0.10"},
		{"pricing.shipping_flat_fee", &cfg.Pricing.ShippingFlatFee, "30000"},
		{"pricing.free_shipping_threshold", &cfg.Pricing.FreeShippingThreshold, "500000"},
		{"pricing.fallback_discount_percent", &cfg.Pricing.FallbackDiscountPercent, "5"},
		{"loyalty.amount_per_point", &cfg.Loyalty.AmountPerPoint, "10000"},
	}
	for _, m := range money {
		if *m.dst, err = decimalOrDefault(v, m.key, m.dflt); err != nil {
			return nil, err
		}
	}

	applyDefaults(cfg)

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func decimalOrDefault(v *viper.Viper, key, fallback string) (decimal.Decimal, error) {
	raw := strings.TrimSpace(v.GetString(key))
	if raw == "" {
		raw = fallback
	}
	d, err := decimal.NewFromString(raw)
	if err != nil {
		return decimal.Zero, fmt.Errorf("%s: invalid decimal %q: %w", key, raw, err)
	}
	return d, nil
}

// applyDefaults sets default values for any empty config fields
func applyDefaults(cfg *Config) {
	if cfg.App.Name == "" {
		cfg.App.Name = "storefront"
	}
	if cfg.App.Env == "" {
		cfg.App.Env = "development"
	}
	if cfg.App.Port == "" {
		cfg.App.Port = "8080"
	}
	if cfg.Database.Host == "" {
		cfg.Database.Host = "localhost"
	}
	if cfg.Database.Port == 0 {
		cfg.Database.Port = 5432
	}
	if cfg.Database.User == "" {
		cfg.Database.User = "postgres"
	}
	if cfg.Database.DBName == "" {
		cfg.Database.DBName = "storefront"
	}
	if cfg.Database.SSLMode == "" {
		cfg.Database.SSLMode = "disable"
	}
	if cfg.Database.MaxOpenConns == 0 {
		cfg.Database.MaxOpenConns = 25
	}
	if cfg.Database.MaxIdleConns == 0 {
		cfg.Database.MaxIdleConns = 5
	}
	if cfg.Database.ConnMaxLifetime == 0 {
		cfg.Database.ConnMaxLifetime = 60
	}
	if cfg.Database.ConnMaxIdleTime == 0 {
		cfg.Database.ConnMaxIdleTime = 30
	}
	if cfg.Database.SlowQuery == 0 {
		cfg.Database.SlowQuery = 200 * time.Millisecond
	}
	if cfg.Redis.Host == "" {
		cfg.Redis.Host = "localhost"
	}
	if cfg.Redis.Port == 0 {
		cfg.Redis.Port = 6379
	}
	if cfg.Log.Level == "" {
		cfg.Log.Level = "info"
	}
	if cfg.Log.Format == "" {
		cfg.Log.Format = "console"
	}
	if cfg.Log.Output == "" {
		cfg.Log.Output = "stdout"
	}
	if cfg.Event.BatchSize == 0 {
		cfg.Event.BatchSize = 100
	}
	if cfg.Event.PollInterval == 0 {
		cfg.Event.PollInterval = 5 * time.Second
	}
	if cfg.Event.MaxRetries == 0 {
		cfg.Event.MaxRetries = 5
	}
	if cfg.Event.CleanupRetention == 0 {
		cfg.Event.CleanupRetention = 168 * time.Hour
	}
	if cfg.Event.PublishTimeout == 0 {
		cfg.Event.PublishTimeout = 5 * time.Second
	}
	if cfg.Event.DedupTTL == 0 {
		cfg.Event.DedupTTL = 24 * time.Hour
	}
	if cfg.HTTP.ReadTimeout == 0 {
		cfg.HTTP.ReadTimeout = 15 * time.Second
	}
	if cfg.HTTP.WriteTimeout == 0 {
		cfg.HTTP.WriteTimeout = 35 * time.Second
	}
	if cfg.HTTP.IdleTimeout == 0 {
		cfg.HTTP.IdleTimeout = 60 * time.Second
	}
	if cfg.HTTP.ShutdownTimeout == 0 {
		cfg.HTTP.ShutdownTimeout = 30 * time.Second
	}
	if cfg.HTTP.MaxHeaderBytes == 0 {
		cfg.HTTP.MaxHeaderBytes = 1 << 20
	}
	if cfg.HTTP.MaxBodyBytes == 0 {
		cfg.HTTP.MaxBodyBytes = 1 << 20
	}
	if cfg.HTTP.RateWindow == 0 {
		cfg.HTTP.RateWindow = time.Minute
	}
	if cfg.Auth.Issuer == "" {
		cfg.Auth.Issuer = "storefront"
	}
	if cfg.Auth.RevocationTTL == 0 {
		cfg.Auth.RevocationTTL = 24 * time.Hour
	}
	if cfg.Checkout.Timeout == 0 {
		cfg.Checkout.Timeout = 20 * time.Second
	}
	if cfg.Checkout.MaxRetries == 0 {
		cfg.Checkout.MaxRetries = 3
	}
	if cfg.Checkout.RetryBackoff == 0 {
		cfg.Checkout.RetryBackoff = 50 * time.Millisecond
	}
	if cfg.Checkout.StoreWriteRetries == 0 {
		cfg.Checkout.StoreWriteRetries = 3
	}
	if cfg.Checkout.ReservationHold == 0 {
		cfg.Checkout.ReservationHold = 24 * time.Hour
	}
	if cfg.Checkout.IdempotencyTTL == 0 {
		cfg.Checkout.IdempotencyTTL = 24 * time.Hour
	}
	if cfg.Reservation.CheckInterval == 0 {
		cfg.Reservation.CheckInterval = 5 * time.Minute
	}
	if cfg.Reservation.BatchSize == 0 {
		cfg.Reservation.BatchSize = 200
	}
	if cfg.Reconciliation.ScanInterval == 0 {
		cfg.Reconciliation.ScanInterval = 10 * time.Minute
	}
	if cfg.Reconciliation.StaleAfter == 0 {
		cfg.Reconciliation.StaleAfter = 15 * time.Minute
	}
	if cfg.Kafka.Topic == "" {
		cfg.Kafka.Topic = "storefront.orders"
	}
	if cfg.Kafka.WriteTimeout == 0 {
		cfg.Kafka.WriteTimeout = 10 * time.Second
	}
	if cfg.Telemetry.CollectorEndpoint == "" {
		cfg.Telemetry.CollectorEndpoint = "localhost:4317"
	}
	if cfg.Telemetry.SamplingRatio == 0 {
		cfg.Telemetry.SamplingRatio = 1.0
	}
	if cfg.Telemetry.ServiceName == "" {
		cfg.Telemetry.ServiceName = "storefront"
	}
	if cfg.Telemetry.ProfilingServerAddress == "" {
		cfg.Telemetry.ProfilingServerAddress = "http://localhost:4040"
	}
	if cfg.Telemetry.MetricsInterval == 0 {
		cfg.Telemetry.MetricsInterval = 60 * time.Second
	}
}

// validate performs validation on the configuration
func (c *Config) validate() error {
	if c.Database.MaxOpenConns <= 0 {
		return fmt.Errorf("database.max_open_conns must be positive")
	}
	if c.Database.MaxIdleConns > c.Database.MaxOpenConns {
		return fmt.Errorf("database.max_idle_conns (%d) cannot exceed database.max_open_conns (%d)",
			c.Database.MaxIdleConns, c.Database.MaxOpenConns)
	}
	if c.Checkout.Timeout < time.Second {
		return fmt.Errorf("checkout.timeout must be at least 1s, got %s", c.Checkout.Timeout)
	}
	if c.Checkout.DefaultProvisionQuantity < 0 {
		return fmt.Errorf("checkout.default_provision_quantity cannot be negative")
	}
	if c.Checkout.TaxRate.IsNegative() || c.Checkout.TaxRate.GreaterThan(decimal.NewFromInt(1)) {
		return fmt.Errorf("checkout.tax_rate must be between 0 and 1, got %s", c.Checkout.TaxRate)
	}
	if c.Pricing.ShippingFlatFee.IsNegative() || c.Pricing.FreeShippingThreshold.IsNegative() {
		return fmt.Errorf("pricing amounts cannot be negative")
	}
	if c.Pricing.FallbackDiscountPercent.IsNegative() || c.Pricing.FallbackDiscountPercent.GreaterThan(decimal.NewFromInt(100)) {
		return fmt.Errorf("pricing.fallback_discount_percent must be between 0 and 100")
	}
	if c.Auth.RevocationEnabled && !c.Redis.Enabled {
		return fmt.Errorf("auth.revocation_enabled requires redis")
	}
	if c.Kafka.Enabled && len(c.Kafka.Brokers) == 0 {
		return fmt.Errorf("kafka.brokers is required when kafka is enabled")
	}
	if c.App.Env == "production" {
		if c.Database.Password == "" {
			return fmt.Errorf("database.password is required in production")
		}
		if c.Database.SSLMode == "disable" {
			return fmt.Errorf("database.sslmode cannot be 'disable' in production")
		}
		if len(c.Auth.JWTSecret) < 32 && !c.Auth.TrustIdentityHeaders {
			return fmt.Errorf("auth.jwt_secret must be at least 32 characters in production")
		}
	}
	if c.Telemetry.SamplingRatio < 0.0 || c.Telemetry.SamplingRatio > 1.0 {
		return fmt.Errorf("telemetry.sampling_ratio must be between 0.0 and 1.0, got %f", c.Telemetry.SamplingRatio)
	}
	return nil
}

// IsProduction reports whether the app runs in production
func (c *Config) IsProduction() bool {
	return c.App.Env == "production"
}

// DSN returns the database connection string with properly escaped values
func (d *DatabaseConfig) DSN() string {
	u := url.URL{
		Scheme: "postgres",
		User:   url.UserPassword(d.User, d.Password),
		Host:   fmt.Sprintf("%s:%d", d.Host, d.Port),
		Path:   d.DBName,
	}
	q := u.Query()
	q.Set("sslmode", d.SSLMode)
	u.RawQuery = q.Encode()
	return u.String()
}
