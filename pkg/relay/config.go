// Package relay implements the domain-partitioned Unix-socket relay bus
// (C4): a single parameterized server whose validation policy, not its
// code, varies by relay domain (§9 redesign note: "a single parameterized
// relay component configured by domain policy").
package relay

import "tradeplane/pkg/protocol"

// Config enumerates every knob a relay domain needs (§4.4 "Configuration").
type Config struct {
	BindPath string
	Domain   protocol.RelayDomain

	MaxQueueSize            int
	CircuitBreakerThreshold int

	ValidateChecksums bool

	// MessageTypeFilter, if non-empty, is the only set of TLV types the
	// relay accepts as a message's first TLV; everything else is dropped
	// with a counter increment.
	MessageTypeFilter map[uint8]struct{}

	// AuthorizedSources, for Execution only: non-listed source bytes are
	// rejected with a security event.
	AuthorizedSources map[uint8]struct{}

	// RecoveryDepth bounds the in-memory recovery ring (§9 open question 2:
	// left unspecified by the source, exposed here as configuration).
	RecoveryDepth int

	AuditLogPath    string
	SecurityLogPath string
}

// DefaultRecoveryDepth is used when Config.RecoveryDepth is zero.
const DefaultRecoveryDepth = 4096

// MarketDataConfig returns the permissive policy for the market-data domain:
// checksum verification is configurable, there is no source allowlist.
func MarketDataConfig(bindPath string) Config {
	return Config{
		BindPath:                bindPath,
		Domain:                  protocol.DomainMarketData,
		MaxQueueSize:            8192,
		CircuitBreakerThreshold: 4096,
		ValidateChecksums:       false,
		RecoveryDepth:           DefaultRecoveryDepth,
	}
}

// SignalConfig returns the policy for the signal domain: same shape as
// market data, smaller buffers (signals are latency sensitive, low volume).
func SignalConfig(bindPath string) Config {
	return Config{
		BindPath:                bindPath,
		Domain:                  protocol.DomainSignal,
		MaxQueueSize:            2048,
		CircuitBreakerThreshold: 1024,
		ValidateChecksums:       false,
		RecoveryDepth:           DefaultRecoveryDepth,
	}
}

// ExecutionConfig returns the maximum-security policy for the execution
// domain (§4.4 "Execution-domain hardening"): checksum verification is
// mandatory, TLV types are pinned to 40-59, and sources must be explicitly
// authorized.
func ExecutionConfig(bindPath string, authorizedSources []uint8) Config {
	filter := make(map[uint8]struct{}, 20)
	for t := protocol.TLVExecutionMin; t <= 59; t++ {
		filter[uint8(t)] = struct{}{}
	}
	sources := make(map[uint8]struct{}, len(authorizedSources))
	for _, s := range authorizedSources {
		sources[s] = struct{}{}
	}
	return Config{
		BindPath:                bindPath,
		Domain:                  protocol.DomainExecution,
		MaxQueueSize:            1024,
		CircuitBreakerThreshold: 512,
		ValidateChecksums:       true,
		MessageTypeFilter:       filter,
		AuthorizedSources:       sources,
		RecoveryDepth:           DefaultRecoveryDepth,
	}
}
