// Package arbitrage implements the cross-pool dislocation detector (§4.6):
// on each swap event it looks up every other pool trading the same token
// pair, sizes a closed-form or bounded-iterative trade, and emits an
// ArbitrageOpportunity once expected profit clears the configured
// threshold. The detector only emits; it never executes (§4.6 Non-goal).
package arbitrage

import (
	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"
	"github.com/shopspring/decimal"
)

// Opportunity is the signal emitted by the detector (§3.7). It is
// intentionally short-lived: created by the detector, consumed by the
// signal emitter, never persisted.
type Opportunity struct {
	SourcePool  common.Address
	TargetPool  common.Address
	TokenIn     common.Address
	TokenOut    common.Address

	OptimalAmountIn   *uint256.Int
	ExpectedProfitUSD decimal.Decimal
	GasCostUSD        decimal.Decimal
	SlippageBps       uint16
	TimestampNs       uint64
}

// Config tunes detection thresholds (§4.6 step 2, step 4).
type Config struct {
	// MinSpreadBps is the minimum price dislocation, in basis points,
	// before sizing math runs at all.
	MinSpreadBps uint16

	// MinProfitUSD is the minimum profit, after gas, required to emit an
	// opportunity.
	MinProfitUSD decimal.Decimal

	// GasCostUSD is the configured cost of executing a two-leg arbitrage,
	// subtracted from expected profit before the MinProfitUSD check.
	GasCostUSD decimal.Decimal
}
