// Package poolstore maintains the authoritative in-memory view of AMM pool
// state that the arbitrage detector reads (§4.5). One writer applies events
// as they arrive off the market-data feed; many readers take consistent
// snapshots via per-pool copy-on-write publication.
package poolstore

import (
	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"
)

// PoolKind distinguishes the two pool shapes the store understands (§3.6).
type PoolKind uint8

const (
	KindConstantProduct PoolKind = iota
	KindConcentratedLiquidity
)

func (k PoolKind) String() string {
	switch k {
	case KindConstantProduct:
		return "ConstantProduct"
	case KindConcentratedLiquidity:
		return "ConcentratedLiquidity"
	default:
		return "Unknown"
	}
}

// Metadata is resolved once, on first sighting of a pool, via the pool
// metadata oracle (§6.5). Decimals are immutable after first insertion.
type Metadata struct {
	Token0   common.Address
	Token1   common.Address
	Decimals0 uint8
	Decimals1 uint8
	Kind     PoolKind

	// FeeBasisPoints is the pool's swap fee, fixed at pool creation and
	// immutable thereafter (same lifecycle as Decimals0/Decimals1).
	FeeBasisPoints uint32
}

// ConstantProductState is the state of a constant-product (x*y=k) pool.
type ConstantProductState struct {
	Reserve0       *uint256.Int
	Reserve1       *uint256.Int
	FeeBasisPoints uint32
}

func (s *ConstantProductState) clone() *ConstantProductState {
	if s == nil {
		return nil
	}
	return &ConstantProductState{
		Reserve0:       new(uint256.Int).Set(s.Reserve0),
		Reserve1:       new(uint256.Int).Set(s.Reserve1),
		FeeBasisPoints: s.FeeBasisPoints,
	}
}

// ConcentratedLiquidityState is the state of a concentrated-liquidity
// (Uniswap-v3-style) pool. SqrtPriceX96 is stored full precision, hence the
// 160-bit-capable uint256.Int rather than a native integer type.
type ConcentratedLiquidityState struct {
	Liquidity      *uint256.Int
	SqrtPriceX96   *uint256.Int
	CurrentTick    int32
	FeeBasisPoints uint32
}

func (s *ConcentratedLiquidityState) clone() *ConcentratedLiquidityState {
	if s == nil {
		return nil
	}
	return &ConcentratedLiquidityState{
		Liquidity:      new(uint256.Int).Set(s.Liquidity),
		SqrtPriceX96:   new(uint256.Int).Set(s.SqrtPriceX96),
		CurrentTick:    s.CurrentTick,
		FeeBasisPoints: s.FeeBasisPoints,
	}
}

// State is a consistent, immutable snapshot of one pool. Callers that hold
// a *State will never observe a partial mutation — the store never edits a
// State in place, it publishes a new one (§4.5 "Concurrency").
type State struct {
	Address  common.Address
	Metadata Metadata

	CP *ConstantProductState       // set iff Metadata.Kind == KindConstantProduct
	CL *ConcentratedLiquidityState // set iff Metadata.Kind == KindConcentratedLiquidity

	LastUpdateNs uint64
	Stale        bool
}

// clone deep-copies a State so the writer can mutate the copy without
// disturbing whatever readers currently hold the published pointer.
func (s *State) clone() *State {
	cp := *s
	cp.CP = s.CP.clone()
	cp.CL = s.CL.clone()
	return &cp
}

const bitsPerUint128 = 128
const bitsPerUint160 = 160

// fitsUint128 reports whether x fits in an unsigned 128-bit integer, the
// precision spec §3.6 mandates for reserves and liquidity.
func fitsUint128(x *uint256.Int) bool {
	var shifted uint256.Int
	shifted.Rsh(x, bitsPerUint128)
	return shifted.IsZero()
}

// fitsUint160 reports whether x fits in an unsigned 160-bit integer, the
// precision spec §3.6 mandates for sqrt_price_x96.
func fitsUint160(x *uint256.Int) bool {
	var shifted uint256.Int
	shifted.Rsh(x, bitsPerUint160)
	return shifted.IsZero()
}
