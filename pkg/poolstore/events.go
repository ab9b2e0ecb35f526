package poolstore

import "github.com/holiman/uint256"

// Event is one of the five state transitions §4.5 defines. The set is
// closed; Store.ApplyEvent type-switches over it.
type Event interface {
	isEvent()
}

// SwapEvent updates reserves (constant-product) or sqrt-price/tick
// (concentrated-liquidity) after a swap and records LastUpdateNs.
type SwapEvent struct {
	NewReserve0     *uint256.Int // constant-product only
	NewReserve1     *uint256.Int // constant-product only
	NewSqrtPriceX96 *uint256.Int // concentrated-liquidity only
	NewTick         int32        // concentrated-liquidity only
	TimestampNs     uint64
}

// MintEvent adjusts liquidity (concentrated) or reserves (constant-product)
// by a positive delta.
type MintEvent struct {
	DeltaReserve0 *uint256.Int // constant-product only
	DeltaReserve1 *uint256.Int // constant-product only
	DeltaLiquidity *uint256.Int // concentrated-liquidity only
	TimestampNs   uint64
}

// BurnEvent adjusts liquidity (concentrated) or reserves (constant-product)
// by a negative delta; the magnitude must not exceed the current balance.
type BurnEvent struct {
	DeltaReserve0 *uint256.Int // constant-product only
	DeltaReserve1 *uint256.Int // constant-product only
	DeltaLiquidity *uint256.Int // concentrated-liquidity only
	TimestampNs   uint64
}

// TickCrossEvent updates current_tick and active liquidity for
// concentrated-liquidity pools only.
type TickCrossEvent struct {
	NewTick      int32
	NewLiquidity *uint256.Int
	TimestampNs  uint64
}

// LiquiditySnapshotEvent replaces the full reserve/liquidity vector
// atomically; applying the same snapshot twice is idempotent (§8).
type LiquiditySnapshotEvent struct {
	Reserve0     *uint256.Int // constant-product only
	Reserve1     *uint256.Int // constant-product only
	Liquidity    *uint256.Int // concentrated-liquidity only
	SqrtPriceX96 *uint256.Int // concentrated-liquidity only
	CurrentTick  int32        // concentrated-liquidity only
	TimestampNs  uint64
}

func (SwapEvent) isEvent()             {}
func (MintEvent) isEvent()             {}
func (BurnEvent) isEvent()             {}
func (TickCrossEvent) isEvent()        {}
func (LiquiditySnapshotEvent) isEvent() {}
