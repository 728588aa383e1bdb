// Package amm holds the trade math shared by every scanner: the exact
// constant-product swap formula, CLMM effective-reserve derivation, and
// the per-venue fee table. Grounded on the teacher's
// pkg/pool/raydium/ammPool.go Quote (fee-then-constant-product using
// cosmossdk.io/math.Int) and the original Rust engine's
// calculator.rs::amm_calculator / get_dex_fee.
package amm

import (
	"math"

	cosmath "cosmossdk.io/math"

	"github.com/solana-zh/arbcore/pkg/types"
)

// DefaultFeeRate is used when a decoder produced no explicit fee and the
// venue isn't in FeeTable (spec §4.4.1: "a safe default (0.25%)").
const DefaultFeeRate = 0.0025

// FeeTable supplies a per-venue-family default fee, used only when a
// decoded pool doesn't carry its own instance-specific fee. Grounded on
// the original engine's get_dex_fee substring table, keyed here by
// VenueTag since the Go decoder layer already normalizes venue family.
var FeeTable = map[types.VenueTag]float64{
	types.VenueAmmConstantProduct: 0.0025,
	types.VenueRaydiumAmm:         0.0025,
	types.VenueRaydiumCpmm:        0.0025,
	types.VenuePumpAmm:            0.0025,
	types.VenueMeteoraDlmm:        0.0020,
	types.VenueClmmSqrtPrice:      0.0001,
	types.VenueClobOrderbook:      0.0010,
	types.VenueStableSwap:         0.0004,
}

// FeeForVenue returns the configured default fee for venue, falling back
// to DefaultFeeRate for anything not in FeeTable.
func FeeForVenue(venue types.VenueTag) float64 {
	if f, ok := FeeTable[venue]; ok {
		return f
	}
	return DefaultFeeRate
}

// ConstantProductOut implements spec §4.4.1:
//
//	out = (amount_in * (1 - f) * R_out) / (R_in + amount_in * (1 - f))
//
// reserveIn/reserveOut are already decimals-adjusted into human units.
func ConstantProductOut(amountIn, reserveIn, reserveOut, feeRate float64) float64 {
	if amountIn <= 0 || reserveIn <= 0 || reserveOut <= 0 {
		return 0
	}
	amountInWithFee := amountIn * (1 - feeRate)
	denominator := reserveIn + amountInWithFee
	if denominator <= 0 {
		return 0
	}
	return (amountInWithFee * reserveOut) / denominator
}

// ConstantProductOutInt is the integer-precision counterpart used by
// decoders operating directly on raw on-chain reserve amounts (no
// decimals adjustment), mirroring the teacher's Quote implementation.
func ConstantProductOutInt(amountIn, reserveIn, reserveOut cosmath.Int, feeRate float64) cosmath.Int {
	if amountIn.IsNil() || amountIn.IsZero() || reserveIn.IsZero() {
		return cosmath.ZeroInt()
	}
	feeNumerator := cosmath.NewInt(int64(feeRate * 1_000_000))
	feeDenominator := cosmath.NewInt(1_000_000)
	fee := amountIn.Mul(feeNumerator).Quo(feeDenominator)
	amountInWithFee := amountIn.Sub(fee)
	denominator := reserveIn.Add(amountInWithFee)
	if denominator.IsZero() {
		return cosmath.ZeroInt()
	}
	return reserveOut.Mul(amountInWithFee).Quo(denominator)
}

// CLMMEffectiveReserves derives the (R_base, R_quote) pair a
// concentrated-liquidity pool behaves as, from its active liquidity L and
// sqrt-price sqrtP (both already in human units), per spec §4.4.1:
//
//	R_in  ≈ L / sqrt(P)   (quote side, expressed as base-equivalent when sqrtP is price-of-base-in-quote)
//	R_out ≈ L * sqrt(P)
//
// The caller is responsible for decimals-adjusting L and sqrtP first.
func CLMMEffectiveReserves(liquidity, sqrtPrice float64) (baseReserve, quoteReserve float64) {
	if liquidity <= 0 || sqrtPrice <= 0 {
		return 0, 0
	}
	baseReserve = liquidity / sqrtPrice
	quoteReserve = liquidity * sqrtPrice
	return baseReserve, quoteReserve
}

// MidPriceFromReserves computes quote-per-base given decimals-adjusted
// reserves. Returns 0 (the "undefined" sentinel, spec §3) when either
// reserve is non-positive.
func MidPriceFromReserves(baseReserve, quoteReserve float64) float64 {
	if baseReserve <= 0 || quoteReserve <= 0 {
		return 0
	}
	p := quoteReserve / baseReserve
	if math.IsNaN(p) || math.IsInf(p, 0) {
		return 0
	}
	return p
}

// HumanUnits converts a raw on-chain integer amount into float human
// units given its mint decimals.
func HumanUnits(raw uint64, decimals uint8) float64 {
	return float64(raw) / math.Pow10(int(decimals))
}

// BinStepPrice derives quote-per-base from a Meteora-style bin id and bin
// step, per the venue's geometric bin spacing:
//
//	price = (1 + binStep/10_000) ^ activeBinId
func BinStepPrice(activeBinId int32, binStep uint16) float64 {
	if binStep == 0 {
		return 0
	}
	return math.Pow(1+float64(binStep)/10_000, float64(activeBinId))
}
