// Package signalbus fans arbitrage opportunities out over NATS, so an
// operator dashboard or external alerting process can subscribe without
// ever touching the Unix-socket transport. It is the only channel
// cmd/flash-arbitrage publishes opportunities on; nothing in this module
// sends them to the Signal-domain relay (pkg/relay).
package signalbus

import (
	"encoding/json"
	"fmt"
	"log"

	"github.com/nats-io/nats.go"

	"tradeplane/pkg/arbitrage"
)

// DefaultSubject is the NATS subject opportunities publish to when Config
// doesn't override it.
const DefaultSubject = "tradeplane.signals.arbitrage"

// Config configures a Publisher.
type Config struct {
	// NATSAddr is the NATS server URL, e.g. "nats://localhost:4222". An
	// empty address makes the publisher a no-op (best-effort fan-out —
	// the detector must work whether or not anything is listening).
	NATSAddr string
	Subject  string
}

// Publisher best-effort publishes arbitrage opportunities to NATS. A
// connection failure at construction time is logged, not returned as an
// error, so its absence never blocks or fails the detector it fans out
// from.
type Publisher struct {
	conn    *nats.Conn
	subject string
}

// NewPublisher connects to cfg.NATSAddr. If the address is empty or the
// connection fails, the returned Publisher silently drops every publish.
func NewPublisher(cfg Config) *Publisher {
	subject := cfg.Subject
	if subject == "" {
		subject = DefaultSubject
	}

	if cfg.NATSAddr == "" {
		return &Publisher{subject: subject}
	}

	nc, err := nats.Connect(cfg.NATSAddr)
	if err != nil {
		log.Printf("[signalbus] warning: failed to connect to NATS at %s: %v", cfg.NATSAddr, err)
		return &Publisher{subject: subject}
	}

	return &Publisher{conn: nc, subject: subject}
}

// Close closes the underlying NATS connection, if one was established.
func (p *Publisher) Close() {
	if p.conn != nil {
		p.conn.Close()
	}
}

// Connected reports whether the publisher has a live NATS connection.
func (p *Publisher) Connected() bool {
	return p.conn != nil && p.conn.IsConnected()
}

// opportunityDTO is the wire shape published to NATS: arbitrage.Opportunity
// itself marshals cleanly via the MarshalJSON/MarshalText methods its
// uint256.Int/decimal.Decimal/common.Address fields already implement, but
// a dedicated DTO keeps the published schema stable if Opportunity's
// internal shape changes.
type opportunityDTO struct {
	SourcePool        string `json:"source_pool"`
	TargetPool        string `json:"target_pool"`
	TokenIn           string `json:"token_in"`
	TokenOut          string `json:"token_out"`
	OptimalAmountIn   string `json:"optimal_amount_in"`
	ExpectedProfitUSD string `json:"expected_profit_usd"`
	GasCostUSD        string `json:"gas_cost_usd"`
	SlippageBps       uint16 `json:"slippage_bps"`
	TimestampNs       uint64 `json:"timestamp_ns"`
}

func toDTO(o arbitrage.Opportunity) opportunityDTO {
	return opportunityDTO{
		SourcePool:        o.SourcePool.Hex(),
		TargetPool:        o.TargetPool.Hex(),
		TokenIn:           o.TokenIn.Hex(),
		TokenOut:          o.TokenOut.Hex(),
		OptimalAmountIn:   o.OptimalAmountIn.String(),
		ExpectedProfitUSD: o.ExpectedProfitUSD.String(),
		GasCostUSD:        o.GasCostUSD.String(),
		SlippageBps:       o.SlippageBps,
		TimestampNs:       o.TimestampNs,
	}
}

// PublishOpportunity publishes o to the configured subject. A no-op
// publisher (no NATS connection) returns nil without doing anything.
func (p *Publisher) PublishOpportunity(o arbitrage.Opportunity) error {
	if p.conn == nil {
		return nil
	}

	data, err := json.Marshal(toDTO(o))
	if err != nil {
		return fmt.Errorf("signalbus: marshal opportunity: %w", err)
	}
	if err := p.conn.Publish(p.subject, data); err != nil {
		return fmt.Errorf("signalbus: publish: %w", err)
	}
	return nil
}
