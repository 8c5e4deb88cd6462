// Package models - Service configuration and operational settings.
// This file defines the configuration structures for every service component.
//
// Configuration Philosophy:
// - Hierarchical configuration with logical grouping (server, storage, security, etc.)
// - Defaults that work out of the box for a single-instance deployment
// - Validation to catch misconfigurations before the server starts
package models

import (
	"errors"
	"fmt"
	"time"
)

// Storage type constants
const (
	StorageTypeMemory   = "memory"
	StorageTypePostgres = "postgres"
	StorageTypeSQLite   = "sqlite"
)

// Config is the root configuration structure containing all service settings.
//
// Configuration Structure:
// - Server: HTTP server and network settings
// - Storage: catalog persistence backend
// - Security: proxy trust and admission control
// - Logging: structured logging and output configuration
// - Metrics: Prometheus endpoint
// - Observability: OpenTelemetry tracing
type Config struct {
	Server        ServerConfig        `yaml:"server" json:"server"`
	Storage       StorageConfig       `yaml:"storage" json:"storage"`
	Security      SecurityConfig      `yaml:"security" json:"security"`
	Logging       LoggingConfig       `yaml:"logging" json:"logging"`
	Metrics       MetricsConfig       `yaml:"metrics" json:"metrics"`
	Observability ObservabilityConfig `yaml:"observability" json:"observability"`
}

type ServerConfig struct {
	Port         int           `yaml:"port" json:"port"`
	Host         string        `yaml:"host" json:"host"`
	APIPrefix    string        `yaml:"api_prefix" json:"api_prefix"`
	ReadTimeout  time.Duration `yaml:"read_timeout" json:"read_timeout"`
	WriteTimeout time.Duration `yaml:"write_timeout" json:"write_timeout"`
	IdleTimeout  time.Duration `yaml:"idle_timeout" json:"idle_timeout"`
	TLSEnabled   bool          `yaml:"tls_enabled" json:"tls_enabled"`
	TLSCertFile  string        `yaml:"tls_cert_file" json:"tls_cert_file"`
	TLSKeyFile   string        `yaml:"tls_key_file" json:"tls_key_file"`
}

type StorageConfig struct {
	Type     string         `yaml:"type" json:"type"`
	Seed     bool           `yaml:"seed" json:"seed"`
	Database DatabaseConfig `yaml:"database" json:"database"`
}

type DatabaseConfig struct {
	DSN             string        `yaml:"dsn" json:"dsn"`
	MaxOpenConns    int           `yaml:"max_open_conns" json:"max_open_conns"`
	MaxIdleConns    int           `yaml:"max_idle_conns" json:"max_idle_conns"`
	ConnMaxLifetime time.Duration `yaml:"conn_max_lifetime" json:"conn_max_lifetime"`
}

// SecurityConfig groups the settings that decide how far request metadata is
// trusted and how inbound traffic is admitted.
type SecurityConfig struct {
	// TrustProxy enables reading the client address from forwarding headers.
	// Leave disabled unless the service sits behind a proxy that overwrites them.
	TrustProxy         bool            `yaml:"trust_proxy" json:"trust_proxy"`
	ForwardedForHeader string          `yaml:"forwarded_for_header" json:"forwarded_for_header"`
	RealIPHeader       string          `yaml:"real_ip_header" json:"real_ip_header"`
	RateLimit          RateLimitConfig `yaml:"rate_limit" json:"rate_limit"`
}

// RateLimitConfig configures the admission guard: one fixed-window plan per
// scope plus the escalation policy applied to search abuse.
type RateLimitConfig struct {
	Enabled          bool          `yaml:"enabled" json:"enabled"`
	CollectionPath   string        `yaml:"collection_path" json:"collection_path"`
	Whitelist        []string      `yaml:"whitelist" json:"whitelist"`
	WarningThreshold float64       `yaml:"warning_threshold" json:"warning_threshold"`
	CleanupInterval  time.Duration `yaml:"cleanup_interval" json:"cleanup_interval"`
	Plans            PlansConfig   `yaml:"plans" json:"plans"`
	Abuse            AbuseConfig   `yaml:"abuse" json:"abuse"`
}

type PlansConfig struct {
	Default PlanConfig `yaml:"default" json:"default"`
	List    PlanConfig `yaml:"list" json:"list"`
	Detail  PlanConfig `yaml:"detail" json:"detail"`
	Search  PlanConfig `yaml:"search" json:"search"`
	Media   PlanConfig `yaml:"media" json:"media"`
}

type PlanConfig struct {
	MaxRequests int           `yaml:"max_requests" json:"max_requests"`
	Window      time.Duration `yaml:"window" json:"window"`
}

// AbuseConfig holds the escalation thresholds for abuse-tracked scopes.
type AbuseConfig struct {
	DecayHorizon     time.Duration `yaml:"decay_horizon" json:"decay_horizon"`
	RetentionHorizon time.Duration `yaml:"retention_horizon" json:"retention_horizon"`
	DelayThreshold   int           `yaml:"delay_threshold" json:"delay_threshold"`
	BlockThreshold   int           `yaml:"block_threshold" json:"block_threshold"`
	EscalationDelay  time.Duration `yaml:"escalation_delay" json:"escalation_delay"`
	BlockDuration    time.Duration `yaml:"block_duration" json:"block_duration"`
}

type LoggingConfig struct {
	Level    string `yaml:"level" json:"level"`
	Format   string `yaml:"format" json:"format"`
	Output   string `yaml:"output" json:"output"`
	FilePath string `yaml:"file_path" json:"file_path"`
}

type MetricsConfig struct {
	Enabled bool   `yaml:"enabled" json:"enabled"`
	Path    string `yaml:"path" json:"path"`
	Port    int    `yaml:"port" json:"port"`
}

type ObservabilityConfig struct {
	ServiceName string        `yaml:"service_name" json:"service_name"`
	Tracing     TracingConfig `yaml:"tracing" json:"tracing"`
}

type TracingConfig struct {
	Enabled      bool    `yaml:"enabled" json:"enabled"`
	Exporter     string  `yaml:"exporter" json:"exporter"`
	OTLPEndpoint string  `yaml:"otlp_endpoint" json:"otlp_endpoint"`
	SampleRate   float64 `yaml:"sample_rate" json:"sample_rate"`
}

// NewDefaultConfig creates a configuration with production-ready defaults.
//
// Default Values Rationale:
// - Port 3000 with the catalog under /api/v1
// - In-memory seeded catalog so the service starts without a database
// - Proxy headers ignored until explicitly trusted
// - Search is the tightest plan and the only abuse-tracked one
// - Abuse records are retained longer than the longest block
func NewDefaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Port:         3000,
			Host:         "0.0.0.0",
			APIPrefix:    "/api/v1",
			ReadTimeout:  30 * time.Second,
			WriteTimeout: 30 * time.Second,
			IdleTimeout:  60 * time.Second,
		},
		Storage: StorageConfig{
			Type: StorageTypeMemory,
			Seed: true,
			Database: DatabaseConfig{
				MaxOpenConns:    25,
				MaxIdleConns:    5,
				ConnMaxLifetime: 5 * time.Minute,
			},
		},
		Security: SecurityConfig{
			TrustProxy:         false,
			ForwardedForHeader: "X-Forwarded-For",
			RealIPHeader:       "X-Real-IP",
			RateLimit: RateLimitConfig{
				Enabled:          true,
				CollectionPath:   "cryptids",
				Whitelist:        []string{"127.0.0.1", "::1"},
				WarningThreshold: 0.8,
				CleanupInterval:  time.Minute,
				Plans: PlansConfig{
					Default: PlanConfig{MaxRequests: 60, Window: time.Minute},
					List:    PlanConfig{MaxRequests: 60, Window: time.Minute},
					Detail:  PlanConfig{MaxRequests: 120, Window: time.Minute},
					Search:  PlanConfig{MaxRequests: 30, Window: time.Minute},
					Media:   PlanConfig{MaxRequests: 20, Window: time.Minute},
				},
				Abuse: AbuseConfig{
					DecayHorizon:     5 * time.Minute,
					RetentionHorizon: 15 * time.Minute,
					DelayThreshold:   2,
					BlockThreshold:   3,
					EscalationDelay:  500 * time.Millisecond,
					BlockDuration:    10 * time.Minute,
				},
			},
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
			Output: "stdout",
		},
		Metrics: MetricsConfig{
			Enabled: true,
			Path:    "/metrics",
			Port:    9090,
		},
		Observability: ObservabilityConfig{
			ServiceName: "cryptids",
			Tracing: TracingConfig{
				Enabled:    false,
				Exporter:   "stdout",
				SampleRate: 1.0,
			},
		},
	}
}

func (c *Config) Validate() error {
	if err := c.Server.Validate(); err != nil {
		return fmt.Errorf("invalid server config: %w", err)
	}

	if err := c.Storage.Validate(); err != nil {
		return fmt.Errorf("invalid storage config: %w", err)
	}

	if err := c.Security.Validate(); err != nil {
		return fmt.Errorf("invalid security config: %w", err)
	}

	if err := c.Logging.Validate(); err != nil {
		return fmt.Errorf("invalid logging config: %w", err)
	}

	if err := c.Metrics.Validate(); err != nil {
		return fmt.Errorf("invalid metrics config: %w", err)
	}

	if err := c.Observability.Validate(); err != nil {
		return fmt.Errorf("invalid observability config: %w", err)
	}

	return nil
}

func (sc *ServerConfig) Validate() error {
	if sc.Port <= 0 || sc.Port > 65535 {
		return errors.New("port must be between 1 and 65535")
	}

	if sc.Host == "" {
		return errors.New("host cannot be empty")
	}

	if sc.APIPrefix != "" && sc.APIPrefix[0] != '/' {
		return errors.New("api prefix must start with /")
	}

	if sc.ReadTimeout < 0 || sc.WriteTimeout < 0 || sc.IdleTimeout < 0 {
		return errors.New("timeouts cannot be negative")
	}

	if sc.TLSEnabled {
		if sc.TLSCertFile == "" {
			return errors.New("TLS cert file is required when TLS is enabled")
		}
		if sc.TLSKeyFile == "" {
			return errors.New("TLS key file is required when TLS is enabled")
		}
	}

	return nil
}

func (stc *StorageConfig) Validate() error {
	switch stc.Type {
	case StorageTypeMemory:
		return nil
	case StorageTypePostgres, StorageTypeSQLite:
		if stc.Database.DSN == "" {
			return errors.New("database DSN is required for database storage")
		}
		return nil
	default:
		return fmt.Errorf("invalid storage type: %s", stc.Type)
	}
}

func (sec *SecurityConfig) Validate() error {
	if sec.TrustProxy && sec.ForwardedForHeader == "" && sec.RealIPHeader == "" {
		return errors.New("trust_proxy requires a forwarded-for or real-ip header name")
	}
	if !sec.RateLimit.Enabled {
		return nil
	}
	if err := sec.RateLimit.Validate(); err != nil {
		return fmt.Errorf("rate limit: %w", err)
	}
	return nil
}

func (rl *RateLimitConfig) Validate() error {
	if rl.CollectionPath == "" {
		return errors.New("collection path cannot be empty")
	}
	if rl.WarningThreshold <= 0 || rl.WarningThreshold > 1 {
		return errors.New("warning threshold must be in (0, 1]")
	}
	if rl.CleanupInterval <= 0 {
		return errors.New("cleanup interval must be positive")
	}

	plans := map[string]PlanConfig{
		"default": rl.Plans.Default,
		"list":    rl.Plans.List,
		"detail":  rl.Plans.Detail,
		"search":  rl.Plans.Search,
		"media":   rl.Plans.Media,
	}
	for name, plan := range plans {
		if plan.MaxRequests <= 0 {
			return fmt.Errorf("plan %s: max requests must be positive", name)
		}
		if plan.Window <= 0 {
			return fmt.Errorf("plan %s: window must be positive", name)
		}
	}

	return rl.Abuse.Validate()
}

func (ac *AbuseConfig) Validate() error {
	if ac.DecayHorizon <= 0 {
		return errors.New("decay horizon must be positive")
	}
	if ac.BlockDuration <= 0 {
		return errors.New("block duration must be positive")
	}
	if ac.EscalationDelay < 0 {
		return errors.New("escalation delay cannot be negative")
	}
	if ac.DelayThreshold < 1 || ac.BlockThreshold <= ac.DelayThreshold {
		return errors.New("thresholds must satisfy 1 <= delay_threshold < block_threshold")
	}
	// A sweep must never drop a record that is still blocking.
	if ac.RetentionHorizon <= ac.BlockDuration {
		return errors.New("retention horizon must exceed block duration")
	}
	if ac.RetentionHorizon < ac.DecayHorizon {
		return errors.New("retention horizon cannot be shorter than decay horizon")
	}
	return nil
}

func (lc *LoggingConfig) Validate() error {
	if !contains([]string{"debug", "info", "warn", "error"}, lc.Level) {
		return fmt.Errorf("invalid log level: %s", lc.Level)
	}

	if !contains([]string{"json", "text"}, lc.Format) {
		return fmt.Errorf("invalid log format: %s", lc.Format)
	}

	if !contains([]string{"stdout", "stderr", "file"}, lc.Output) {
		return fmt.Errorf("invalid log output: %s", lc.Output)
	}

	if lc.Output == "file" && lc.FilePath == "" {
		return errors.New("file path is required when output is file")
	}

	return nil
}

func (mc *MetricsConfig) Validate() error {
	if !mc.Enabled {
		return nil
	}

	if mc.Path == "" {
		return errors.New("metrics path cannot be empty")
	}

	if mc.Port <= 0 || mc.Port > 65535 {
		return errors.New("metrics port must be between 1 and 65535")
	}

	return nil
}

func (oc *ObservabilityConfig) Validate() error {
	if !oc.Tracing.Enabled {
		return nil
	}

	if oc.ServiceName == "" {
		return errors.New("service name is required when tracing is enabled")
	}

	switch oc.Tracing.Exporter {
	case "stdout":
	case "otlp":
		if oc.Tracing.OTLPEndpoint == "" {
			return errors.New("otlp endpoint is required for the otlp exporter")
		}
	default:
		return fmt.Errorf("unsupported trace exporter: %s", oc.Tracing.Exporter)
	}

	if oc.Tracing.SampleRate < 0 || oc.Tracing.SampleRate > 1 {
		return errors.New("sample rate must be between 0 and 1")
	}

	return nil
}

func contains(slice []string, item string) bool {
	for _, s := range slice {
		if s == item {
			return true
		}
	}
	return false
}
