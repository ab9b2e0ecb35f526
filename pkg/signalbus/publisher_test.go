package signalbus

import (
	"encoding/json"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"
	"github.com/shopspring/decimal"

	"tradeplane/pkg/arbitrage"
)

func sampleOpportunity() arbitrage.Opportunity {
	var src, dst, tin, tout common.Address
	src[19] = 0x10
	dst[19] = 0x11
	tin[19] = 0x01
	tout[19] = 0x02

	return arbitrage.Opportunity{
		SourcePool:        src,
		TargetPool:        dst,
		TokenIn:           tin,
		TokenOut:          tout,
		OptimalAmountIn:   uint256.NewInt(12345),
		ExpectedProfitUSD: decimal.NewFromFloat(42.5),
		GasCostUSD:        decimal.NewFromFloat(1.5),
		SlippageBps:       25,
		TimestampNs:       1000,
	}
}

func TestNoOpPublisherPublishIsHarmless(t *testing.T) {
	p := NewPublisher(Config{})
	if p.Connected() {
		t.Fatalf("expected an empty-address publisher to report not connected")
	}
	if err := p.PublishOpportunity(sampleOpportunity()); err != nil {
		t.Fatalf("expected a no-op publisher to never error, got %v", err)
	}
}

func TestUnreachableNATSAddrFallsBackToNoOp(t *testing.T) {
	p := NewPublisher(Config{NATSAddr: "nats://127.0.0.1:1"})
	if p.Connected() {
		t.Fatalf("expected an unreachable NATS address to fall back to a no-op publisher")
	}
	if err := p.PublishOpportunity(sampleOpportunity()); err != nil {
		t.Fatalf("expected fallback publisher to never error, got %v", err)
	}
}

func TestToDTOMarshalsWithoutError(t *testing.T) {
	dto := toDTO(sampleOpportunity())
	data, err := json.Marshal(dto)
	if err != nil {
		t.Fatalf("marshal DTO: %v", err)
	}

	var roundTrip map[string]interface{}
	if err := json.Unmarshal(data, &roundTrip); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if roundTrip["slippage_bps"].(float64) != 25 {
		t.Fatalf("unexpected slippage_bps: %v", roundTrip["slippage_bps"])
	}
	if roundTrip["optimal_amount_in"].(string) != "12345" {
		t.Fatalf("unexpected optimal_amount_in: %v", roundTrip["optimal_amount_in"])
	}
}

func TestDefaultSubjectUsedWhenUnset(t *testing.T) {
	p := NewPublisher(Config{})
	if p.subject != DefaultSubject {
		t.Fatalf("expected default subject, got %q", p.subject)
	}
}
