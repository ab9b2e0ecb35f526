package arbitrage

import (
	"context"
	"math/big"
	"sync/atomic"

	"github.com/ethereum/go-ethereum/common"
	"github.com/shopspring/decimal"

	"tradeplane/pkg/oracle"
	"tradeplane/pkg/poolstore"
)

// Detector watches swap events against the pool store and emits
// ArbitrageOpportunity signals (§4.6). It holds no state of its own beyond
// configuration and counters — pool state lives in the store it reads.
type Detector struct {
	store  *poolstore.Store
	prices oracle.PriceOracle
	cfg    Config

	skippedPoolNotFound  atomic.Uint64
	skippedOverflow      atomic.Uint64
	skippedNoOraclePrice atomic.Uint64
	emitted              atomic.Uint64
}

// New constructs a detector reading from store, pricing with prices.
func New(store *poolstore.Store, prices oracle.PriceOracle, cfg Config) *Detector {
	return &Detector{store: store, prices: prices, cfg: cfg}
}

// OnSwap runs detection after a swap has already been applied to
// swapPool in the store (§4.6 "On each swap event"). It returns every
// opportunity found across every other pool trading (tokenIn, tokenOut).
func (d *Detector) OnSwap(ctx context.Context, swapPool common.Address, tokenIn, tokenOut common.Address) ([]Opportunity, error) {
	source, ok := d.store.Get(swapPool)
	if !ok {
		d.skippedPoolNotFound.Add(1)
		return nil, &Error{Kind: ErrPoolNotFound, Message: "swap pool not in store"}
	}
	if source.Stale {
		d.skippedPoolNotFound.Add(1)
		return nil, nil
	}

	candidates := d.store.PoolsForPair(tokenIn, tokenOut)
	var found []Opportunity

	sourceInIsToken0 := tokenIn == source.Metadata.Token0
	sourceCurve := curveFor(source, sourceInIsToken0)

	for _, candidateAddr := range candidates {
		if candidateAddr == swapPool {
			continue
		}
		target, ok := d.store.Get(candidateAddr)
		if !ok || target.Stale {
			continue
		}

		targetInIsToken0 := tokenIn == target.Metadata.Token0
		targetOutCurve := curveFor(target, !targetInIsToken0) // reverse direction: tokenOut -> tokenIn on target

		spread := dislocationBps(sourceCurve, curveFor(target, targetInIsToken0))
		if spread < d.cfg.MinSpreadBps {
			continue
		}

		opp, err := d.size(ctx, swapPool, candidateAddr, tokenIn, tokenOut, source, target, sourceCurve, targetOutCurve, spread)
		if err != nil {
			continue
		}
		if opp != nil {
			found = append(found, *opp)
		}
	}

	return found, nil
}

// size computes the optimal trade size, expected USD profit, and builds
// the Opportunity if it clears MinProfitUSD after gas (§4.6 steps 2-4).
func (d *Detector) size(
	ctx context.Context,
	sourcePool, targetPool common.Address,
	tokenIn, tokenOut common.Address,
	source, target *poolstore.State,
	sourceCurve, targetReverseCurve curve,
	spreadBps uint16,
) (*Opportunity, error) {
	isConcentrated := source.Metadata.Kind == poolstore.KindConcentratedLiquidity ||
		target.Metadata.Kind == poolstore.KindConcentratedLiquidity

	var amountIn *big.Int
	var ok bool
	if isConcentrated {
		bound := tickLiquidityBound(sourceCurve)
		amountIn, ok = iterativeAmountIn(sourceCurve, targetReverseCurve, bound)
	} else {
		amountIn, ok = closedFormAmountIn(sourceCurve, targetReverseCurve)
	}
	if !ok {
		return nil, nil
	}

	profitTokenIn := netProfit(sourceCurve, targetReverseCurve, amountIn)
	if profitTokenIn.Sign() <= 0 {
		return nil, nil
	}

	amountIn256, fits := bigToUint256(amountIn)
	if !fits {
		d.skippedOverflow.Add(1)
		return nil, &Error{Kind: ErrMathOverflow, Message: "optimal amount_in exceeds 256 bits"}
	}

	price, havePrice := d.prices.GetUSDPrice(ctx, tokenIn)
	if !havePrice {
		d.skippedNoOraclePrice.Add(1)
		return nil, &Error{Kind: ErrOraclePriceMissing, Message: "no USD price for token_in"}
	}

	profitDecimal := decimal.NewFromBigInt(profitTokenIn, 0)
	profitUSD := profitDecimal.Mul(price)
	netUSD := profitUSD.Sub(d.cfg.GasCostUSD)
	if netUSD.LessThan(d.cfg.MinProfitUSD) {
		return nil, nil
	}

	d.emitted.Add(1)
	return &Opportunity{
		SourcePool:        sourcePool,
		TargetPool:        targetPool,
		TokenIn:           tokenIn,
		TokenOut:          tokenOut,
		OptimalAmountIn:   amountIn256,
		ExpectedProfitUSD: netUSD,
		GasCostUSD:        d.cfg.GasCostUSD,
		SlippageBps:       spreadBps,
		TimestampNs:       source.LastUpdateNs,
	}, nil
}

// Stats is a snapshot of the detector's skip/emit counters.
type Stats struct {
	SkippedPoolNotFound  uint64
	SkippedOverflow      uint64
	SkippedNoOraclePrice uint64
	Emitted              uint64
}

func (d *Detector) Stats() Stats {
	return Stats{
		SkippedPoolNotFound:  d.skippedPoolNotFound.Load(),
		SkippedOverflow:      d.skippedOverflow.Load(),
		SkippedNoOraclePrice: d.skippedNoOraclePrice.Load(),
		Emitted:              d.emitted.Load(),
	}
}
