package arbitrage

import (
	"math/big"

	"github.com/holiman/uint256"

	"tradeplane/pkg/poolstore"
)

// feeDenominator is the basis-point scale fee_basis_points is expressed in.
const feeDenominator = 10000

// q96 is 2^96, the fixed-point scale sqrt_price_x96 uses (§3.6).
var q96 = new(big.Int).Lsh(big.NewInt(1), 96)

// curve is a pool's state reduced to what the sizing math needs: reserves
// of the in/out token (real for constant-product, virtual for
// concentrated-liquidity within the current tick) and the fee.
type curve struct {
	reserveIn  *big.Int
	reserveOut *big.Int
	feeBps     uint32
}

// curveFor reduces a pool's state to a curve for the (tokenIn, tokenOut)
// direction. For concentrated-liquidity pools the virtual reserves
// x = L/sqrtP, y = L*sqrtP (Q96 fixed point) are used — valid as long as
// the trade doesn't cross the current tick, which the iterative sizer
// bounds for (§4.6 step 2).
func curveFor(s *poolstore.State, tokenInIsToken0 bool) curve {
	var r0, r1 *big.Int
	var feeBps uint32

	switch s.Metadata.Kind {
	case poolstore.KindConstantProduct:
		r0 = s.CP.Reserve0.ToBig()
		r1 = s.CP.Reserve1.ToBig()
		feeBps = s.CP.FeeBasisPoints
	case poolstore.KindConcentratedLiquidity:
		l := s.CL.Liquidity.ToBig()
		sqrtP := s.CL.SqrtPriceX96.ToBig()
		// x = L * Q96 / sqrtP
		r0 = new(big.Int).Mul(l, q96)
		r0.Div(r0, sqrtP)
		// y = L * sqrtP / Q96
		r1 = new(big.Int).Mul(l, sqrtP)
		r1.Div(r1, q96)
		feeBps = s.CL.FeeBasisPoints
	}

	if tokenInIsToken0 {
		return curve{reserveIn: r0, reserveOut: r1, feeBps: feeBps}
	}
	return curve{reserveIn: r1, reserveOut: r0, feeBps: feeBps}
}

// priceScaled returns reserveOut/reserveIn scaled by 1e18, used only to
// compare two pools' marginal price for the dislocation gate — never for
// the sizing math itself (§4.6 "Precision": sizing stays fixed-point).
var priceScale = big.NewInt(1_000_000_000_000_000000)

func (c curve) priceScaled() *big.Int {
	if c.reserveIn.Sign() == 0 {
		return big.NewInt(0)
	}
	out := new(big.Int).Mul(c.reserveOut, priceScale)
	return out.Div(out, c.reserveIn)
}

// dislocationBps returns the absolute difference between a and b's prices,
// in basis points of b's price.
func dislocationBps(a, b curve) uint16 {
	pa, pb := a.priceScaled(), b.priceScaled()
	if pb.Sign() == 0 {
		return 0
	}
	diff := new(big.Int).Sub(pa, pb)
	diff.Abs(diff)
	diff.Mul(diff, big.NewInt(feeDenominator))
	diff.Div(diff, pb)
	if diff.Cmp(big.NewInt(65535)) > 0 {
		return 65535
	}
	return uint16(diff.Int64())
}

// simulateSwap runs the exact constant-product-with-fee formula:
// out = (amountIn * (feeDenominator - feeBps) * reserveOut) /
//       (reserveIn*feeDenominator + amountIn*(feeDenominator-feeBps)).
func simulateSwap(c curve, amountIn *big.Int) *big.Int {
	if amountIn.Sign() <= 0 {
		return big.NewInt(0)
	}
	feeMul := big.NewInt(int64(feeDenominator - c.feeBps))
	amountInWithFee := new(big.Int).Mul(amountIn, feeMul)

	numerator := new(big.Int).Mul(amountInWithFee, c.reserveOut)
	denominator := new(big.Int).Mul(c.reserveIn, big.NewInt(feeDenominator))
	denominator.Add(denominator, amountInWithFee)
	if denominator.Sign() == 0 {
		return big.NewInt(0)
	}
	return numerator.Div(numerator, denominator)
}

// closedFormAmountIn returns the profit-maximizing amount of tokenIn to
// route through `a` (whose output feeds back through `b` in reverse) for a
// two constant-product-pool cycle (§4.6 step 2, "closed-form solution
// using the AMM invariant and the two fee tiers"):
//
//	numerator   = D * (isqrt(F_a * F_b * a.in * a.out * b.in * b.out) - D*a.in*b.in)
//	denominator = F_a * (D*b.in + F_b*a.out)
//	amountIn*   = numerator / denominator
//
// where F_x = feeDenominator - x.feeBps and D = feeDenominator. A
// non-positive numerator means no profitable size exists in this direction.
func closedFormAmountIn(a, b curve) (*big.Int, bool) {
	if a.reserveIn.Sign() == 0 || a.reserveOut.Sign() == 0 || b.reserveIn.Sign() == 0 || b.reserveOut.Sign() == 0 {
		return nil, false
	}

	fa := big.NewInt(int64(feeDenominator - a.feeBps))
	fb := big.NewInt(int64(feeDenominator - b.feeBps))

	product := new(big.Int).Mul(fa, fb)
	product.Mul(product, a.reserveIn)
	product.Mul(product, a.reserveOut)
	product.Mul(product, b.reserveIn)
	product.Mul(product, b.reserveOut)

	sqrtTerm := new(big.Int).Sqrt(product)

	dxaxb := new(big.Int).Mul(a.reserveIn, b.reserveIn)
	dxaxb.Mul(dxaxb, big.NewInt(feeDenominator))

	numerator := new(big.Int).Sub(sqrtTerm, dxaxb)
	if numerator.Sign() <= 0 {
		return nil, false
	}
	numerator.Mul(numerator, big.NewInt(feeDenominator))

	denominator := new(big.Int).Mul(big.NewInt(feeDenominator), b.reserveIn)
	term2 := new(big.Int).Mul(fb, a.reserveOut)
	denominator.Add(denominator, term2)
	denominator.Mul(denominator, fa)
	if denominator.Sign() <= 0 {
		return nil, false
	}

	amountIn := numerator.Div(numerator, denominator)
	if amountIn.Sign() <= 0 {
		return nil, false
	}
	return amountIn, true
}

// netProfit returns the token-in-denominated profit of routing amountIn
// through a then reversing through b: simulateSwap(b, simulateSwap(a,
// amountIn)) - amountIn.
func netProfit(a, b curve, amountIn *big.Int) *big.Int {
	mid := simulateSwap(a, amountIn)
	back := simulateSwap(b, mid)
	return new(big.Int).Sub(back, amountIn)
}

// iterativeAmountIn ternary-searches the profit-maximizing amount in
// [0, bound] for a cycle involving a concentrated-liquidity leg, where no
// closed form is used because the curve is only valid up to the edge of
// the current tick (§4.6 step 2, "iterative search bounded by current
// tick's liquidity (no tick crossing)"). netProfit is concave in amountIn
// for two constant/virtual-constant-product curves, so ternary search
// converges to its maximum.
func iterativeAmountIn(a, b curve, bound *big.Int) (*big.Int, bool) {
	if bound.Sign() <= 0 {
		return nil, false
	}
	lo, hi := big.NewInt(0), new(big.Int).Set(bound)
	three := big.NewInt(3)

	for i := 0; i < 64; i++ {
		width := new(big.Int).Sub(hi, lo)
		if width.Cmp(big.NewInt(1)) <= 0 {
			break
		}
		m1 := new(big.Int).Sub(hi, lo)
		m1.Div(m1, three)
		m1.Add(m1, lo)
		m2 := new(big.Int).Sub(hi, lo)
		m2.Mul(m2, big.NewInt(2))
		m2.Div(m2, three)
		m2.Add(m2, lo)

		if netProfit(a, b, m1).Cmp(netProfit(a, b, m2)) < 0 {
			lo = m1
		} else {
			hi = m2
		}
	}

	best := new(big.Int).Add(lo, hi)
	best.Div(best, big.NewInt(2))
	profit := netProfit(a, b, best)
	if profit.Sign() <= 0 {
		return nil, false
	}
	return best, true
}

// tickLiquidityBound caps an iterative search so it can never size a trade
// large enough to materially deplete the concentrated-liquidity leg's
// virtual reserve within the current tick (a conservative proxy for
// "bounded by current tick's liquidity, no tick crossing").
func tickLiquidityBound(c curve) *big.Int {
	bound := new(big.Int).Div(c.reserveIn, big.NewInt(2))
	return bound
}

// bigToUint256 converts a non-negative big.Int to a *uint256.Int, reporting
// ok=false if x does not fit in 256 bits rather than wrapping.
func bigToUint256(x *big.Int) (z *uint256.Int, ok bool) {
	z, overflow := uint256.FromBig(x)
	return z, !overflow
}
