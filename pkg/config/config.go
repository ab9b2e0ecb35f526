// Package config loads per-process YAML wiring for a tradeplane
// component — ring paths, relay bind paths, domain policy, discovery
// overrides. It never carries business data (pool state, opportunities,
// thresholds derived from market behavior); those live in the packages
// that own them.
package config

import (
	"fmt"
	"os"

	"github.com/shopspring/decimal"
	"gopkg.in/yaml.v3"

	"tradeplane/pkg/arbitrage"
	"tradeplane/pkg/discovery"
	"tradeplane/pkg/protocol"
	"tradeplane/pkg/relay"
)

// Config is the top-level process configuration document.
type Config struct {
	Ring      RingConfig      `yaml:"ring"`
	Relay     RelayConfig     `yaml:"relay"`
	Discovery DiscoveryConfig `yaml:"discovery"`
	Detector  DetectorConfig  `yaml:"detector"`
	System    SystemConfig    `yaml:"system"`
}

// RingConfig wires one memory-mapped ring buffer (§4.2/§4.3).
type RingConfig struct {
	Path     string `yaml:"path"`
	Capacity uint32 `yaml:"capacity"`
}

// RelayConfig wires one Unix-socket relay domain (§4.4).
type RelayConfig struct {
	BindPath                string  `yaml:"bind_path"`
	Domain                  string  `yaml:"domain"` // "market_data" | "signal" | "execution"
	MaxQueueSize            int     `yaml:"max_queue_size"`
	CircuitBreakerThreshold int     `yaml:"circuit_breaker_threshold"`
	ValidateChecksums       bool    `yaml:"validate_checksums"`
	AuthorizedSources       []uint8 `yaml:"authorized_sources"`
	RecoveryDepth           int     `yaml:"recovery_depth"`
	AuditLogPath            string  `yaml:"audit_log_path"`
	SecurityLogPath         string  `yaml:"security_log_path"`
}

// ToRelayConfig builds the relay package's own Config from a domain
// preset, then applies any non-zero overrides this document specifies.
func (c RelayConfig) ToRelayConfig() (relay.Config, error) {
	var base relay.Config
	switch c.Domain {
	case "market_data":
		base = relay.MarketDataConfig(c.BindPath)
	case "signal":
		base = relay.SignalConfig(c.BindPath)
	case "execution":
		base = relay.ExecutionConfig(c.BindPath, c.AuthorizedSources)
	default:
		return relay.Config{}, fmt.Errorf("config: unknown relay domain %q", c.Domain)
	}

	if c.MaxQueueSize != 0 {
		base.MaxQueueSize = c.MaxQueueSize
	}
	if c.CircuitBreakerThreshold != 0 {
		base.CircuitBreakerThreshold = c.CircuitBreakerThreshold
	}
	if c.RecoveryDepth != 0 {
		base.RecoveryDepth = c.RecoveryDepth
	}
	base.ValidateChecksums = base.ValidateChecksums || c.ValidateChecksums
	base.AuditLogPath = c.AuditLogPath
	base.SecurityLogPath = c.SecurityLogPath
	return base, nil
}

// DiscoveryConfig wires the service-discovery registry (§4.8).
type DiscoveryConfig struct {
	Namespace     string `yaml:"namespace"`
	Environment   string `yaml:"environment"` // "development" | "staging" | "production" | "testing" | "container"
	Policy        string `yaml:"policy"`      // "first_healthy" | "round_robin" | "priority"
	OverridesPath string `yaml:"overrides_path"`
}

func (c DiscoveryConfig) environment() discovery.Environment {
	switch c.Environment {
	case "staging":
		return discovery.Staging
	case "production":
		return discovery.Production
	case "testing":
		return discovery.Testing
	case "container":
		return discovery.Container
	default:
		return discovery.Development
	}
}

func (c DiscoveryConfig) policy() discovery.Policy {
	switch c.Policy {
	case "round_robin":
		return discovery.RoundRobin
	case "priority":
		return discovery.Priority
	default:
		return discovery.FirstHealthy
	}
}

// BuildRegistry loads c's override document (if any) and returns a ready
// discovery.Registry.
func (c DiscoveryConfig) BuildRegistry() (*discovery.Registry, error) {
	var doc *discovery.OverrideDocument
	if c.OverridesPath != "" {
		d, err := discovery.LoadOverrides(c.OverridesPath)
		if err != nil {
			return nil, fmt.Errorf("config: discovery overrides: %w", err)
		}
		doc = d
	}
	return discovery.New(c.Namespace, c.environment(), doc, c.policy()), nil
}

// DetectorConfig wires the arbitrage detector (§4.6).
type DetectorConfig struct {
	MinSpreadBps uint16 `yaml:"min_spread_bps"`
	MinProfitUSD string `yaml:"min_profit_usd"`
	GasCostUSD   string `yaml:"gas_cost_usd"`
}

// ToArbitrageConfig parses c's decimal fields and returns an
// arbitrage.Config ready for arbitrage.New.
func (c DetectorConfig) ToArbitrageConfig() (arbitrage.Config, error) {
	minProfit, err := decimal.NewFromString(defaultIfEmpty(c.MinProfitUSD, "0"))
	if err != nil {
		return arbitrage.Config{}, fmt.Errorf("config: detector.min_profit_usd: %w", err)
	}
	gasCost, err := decimal.NewFromString(defaultIfEmpty(c.GasCostUSD, "0"))
	if err != nil {
		return arbitrage.Config{}, fmt.Errorf("config: detector.gas_cost_usd: %w", err)
	}
	return arbitrage.Config{
		MinSpreadBps: c.MinSpreadBps,
		MinProfitUSD: minProfit,
		GasCostUSD:   gasCost,
	}, nil
}

func defaultIfEmpty(s, fallback string) string {
	if s == "" {
		return fallback
	}
	return s
}

// SystemConfig holds process-wide, non-business knobs.
type SystemConfig struct {
	LogLevel string `yaml:"log_level"`
	APIPort  int    `yaml:"api_port"`
}

// RelayDomain returns the protocol.RelayDomain this config's Domain
// string names, for callers that need the typed enum directly.
func (c RelayConfig) RelayDomain() (protocol.RelayDomain, error) {
	switch c.Domain {
	case "market_data":
		return protocol.DomainMarketData, nil
	case "signal":
		return protocol.DomainSignal, nil
	case "execution":
		return protocol.DomainExecution, nil
	default:
		return 0, fmt.Errorf("config: unknown relay domain %q", c.Domain)
	}
}

// Load reads and parses a YAML config document from path.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("config: read %s: %w", path, err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("config: parse %s: %w", path, err)
	}

	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("config: validate: %w", err)
	}
	return &cfg, nil
}

func (c *Config) validate() error {
	if c.Ring.Path != "" && c.Ring.Capacity == 0 {
		return fmt.Errorf("ring.capacity is required when ring.path is set")
	}
	if c.Relay.BindPath != "" {
		if _, err := c.Relay.RelayDomain(); err != nil {
			return err
		}
	}
	return nil
}
