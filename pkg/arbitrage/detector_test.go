package arbitrage

import (
	"context"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"
	"github.com/shopspring/decimal"

	"tradeplane/pkg/oracle"
	"tradeplane/pkg/poolstore"
)

func addr(b byte) common.Address {
	var a common.Address
	a[19] = b
	return a
}

func seedConstantProductPool(t *testing.T, store *poolstore.Store, pool, token0, token1 common.Address, r0, r1 uint64, feeBps uint32) {
	t.Helper()
	meta := poolstore.Metadata{Token0: token0, Token1: token1, Kind: poolstore.KindConstantProduct, FeeBasisPoints: feeBps}
	if err := store.UpsertPool(pool, meta); err != nil {
		t.Fatalf("upsert %x: %v", pool, err)
	}
	err := store.ApplyEvent(pool, poolstore.SwapEvent{
		NewReserve0: uint256.NewInt(r0),
		NewReserve1: uint256.NewInt(r1),
	})
	if err != nil {
		t.Fatalf("seed reserves %x: %v", pool, err)
	}
}

func TestDetectorEmitsOpportunityOnDislocation(t *testing.T) {
	store := poolstore.New()
	tokenA, tokenB := addr(1), addr(2)
	poolX, poolY := addr(10), addr(11)

	// poolX is cheap (lots of B per A), poolY is expensive — a clear
	// dislocation an arbitrageur could round-trip through.
	seedConstantProductPool(t, store, poolX, tokenA, tokenB, 1_000_000, 2_000_000, 30)
	seedConstantProductPool(t, store, poolY, tokenA, tokenB, 1_000_000, 1_000_000, 30)

	prices := oracle.NewMemoryPriceOracle()
	prices.Set(tokenA, decimal.NewFromFloat(1.0))

	cfg := Config{MinSpreadBps: 10, MinProfitUSD: decimal.Zero, GasCostUSD: decimal.Zero}
	d := New(store, prices, cfg)

	opps, err := d.OnSwap(context.Background(), poolX, tokenA, tokenB)
	if err != nil {
		t.Fatalf("OnSwap: %v", err)
	}
	if len(opps) == 0 {
		t.Fatalf("expected at least one opportunity from a clear price dislocation")
	}
	for _, o := range opps {
		if o.SourcePool != poolX || o.TargetPool != poolY {
			t.Fatalf("unexpected pool pairing: %+v", o)
		}
		if o.OptimalAmountIn == nil || o.OptimalAmountIn.IsZero() {
			t.Fatalf("expected a non-zero optimal amount_in")
		}
		if !o.ExpectedProfitUSD.GreaterThanOrEqual(decimal.Zero) {
			t.Fatalf("expected non-negative profit, got %s", o.ExpectedProfitUSD)
		}
	}
}

func TestDetectorSkipsWhenSpreadBelowThreshold(t *testing.T) {
	store := poolstore.New()
	tokenA, tokenB := addr(1), addr(2)
	poolX, poolY := addr(10), addr(11)

	seedConstantProductPool(t, store, poolX, tokenA, tokenB, 1_000_000, 1_000_000, 30)
	seedConstantProductPool(t, store, poolY, tokenA, tokenB, 1_000_000, 1_000_010, 30)

	prices := oracle.NewMemoryPriceOracle()
	prices.Set(tokenA, decimal.NewFromFloat(1.0))

	cfg := Config{MinSpreadBps: 5000, MinProfitUSD: decimal.Zero, GasCostUSD: decimal.Zero}
	d := New(store, prices, cfg)

	opps, err := d.OnSwap(context.Background(), poolX, tokenA, tokenB)
	if err != nil {
		t.Fatalf("OnSwap: %v", err)
	}
	if len(opps) != 0 {
		t.Fatalf("expected no opportunities below the spread threshold, got %d", len(opps))
	}
}

func TestDetectorHoldsOnMissingOraclePrice(t *testing.T) {
	store := poolstore.New()
	tokenA, tokenB := addr(1), addr(2)
	poolX, poolY := addr(10), addr(11)

	seedConstantProductPool(t, store, poolX, tokenA, tokenB, 1_000_000, 2_000_000, 30)
	seedConstantProductPool(t, store, poolY, tokenA, tokenB, 1_000_000, 1_000_000, 30)

	prices := oracle.NewMemoryPriceOracle() // no price set for tokenA

	cfg := Config{MinSpreadBps: 10, MinProfitUSD: decimal.Zero, GasCostUSD: decimal.Zero}
	d := New(store, prices, cfg)

	opps, err := d.OnSwap(context.Background(), poolX, tokenA, tokenB)
	if err != nil {
		t.Fatalf("OnSwap: %v", err)
	}
	if len(opps) != 0 {
		t.Fatalf("expected no opportunities emitted when the oracle price is missing")
	}
	if d.Stats().SkippedNoOraclePrice == 0 {
		t.Fatalf("expected SkippedNoOraclePrice counter to record the miss")
	}
}

func TestDetectorReturnsErrorForUnknownSwapPool(t *testing.T) {
	store := poolstore.New()
	prices := oracle.NewMemoryPriceOracle()
	d := New(store, prices, Config{})

	_, err := d.OnSwap(context.Background(), addr(99), addr(1), addr(2))
	if err == nil {
		t.Fatalf("expected PoolNotFound error for an unknown swap pool")
	}
}

func TestDetectorHandlesConcentratedLiquidityLeg(t *testing.T) {
	store := poolstore.New()
	tokenA, tokenB := addr(1), addr(2)
	poolCP, poolCL := addr(10), addr(11)

	seedConstantProductPool(t, store, poolCP, tokenA, tokenB, 1_000_000, 2_000_000, 30)

	if err := store.UpsertPool(poolCL, poolstore.Metadata{Token0: tokenA, Token1: tokenB, Kind: poolstore.KindConcentratedLiquidity}); err != nil {
		t.Fatalf("upsert CL pool: %v", err)
	}
	sqrtPriceX96 := new(uint256.Int).Lsh(uint256.NewInt(1), 96) // price ratio 1:1
	if err := store.ApplyEvent(poolCL, poolstore.SwapEvent{NewSqrtPriceX96: sqrtPriceX96, NewTick: 0}); err != nil {
		t.Fatalf("seed CL pool: %v", err)
	}
	if err := store.ApplyEvent(poolCL, poolstore.TickCrossEvent{NewTick: 0, NewLiquidity: uint256.NewInt(5_000_000)}); err != nil {
		t.Fatalf("seed CL liquidity: %v", err)
	}

	prices := oracle.NewMemoryPriceOracle()
	prices.Set(tokenA, decimal.NewFromFloat(1.0))

	cfg := Config{MinSpreadBps: 10, MinProfitUSD: decimal.Zero, GasCostUSD: decimal.Zero}
	d := New(store, prices, cfg)

	// Should not panic or error even though one leg is concentrated-liquidity.
	if _, err := d.OnSwap(context.Background(), poolCP, tokenA, tokenB); err != nil {
		t.Fatalf("OnSwap with a concentrated-liquidity counterpart: %v", err)
	}
}
