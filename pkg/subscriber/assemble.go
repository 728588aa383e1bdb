package subscriber

import (
	"math"
	"time"

	"github.com/solana-zh/arbcore/pkg/amm"
	"github.com/solana-zh/arbcore/pkg/decoder"
	"github.com/solana-zh/arbcore/pkg/types"
)

// buildPoolView turns a decoded pool plus whatever vault balances are
// currently known into the single normalized PoolView the State Layer
// stores, per spec §4.2's "assemble the final PoolView" step and §4.4.1's
// trade math. BaseReserve/QuoteReserve always end up holding the raw
// amount the calculator should treat as this pool's tradeable depth,
// regardless of venue family — CLMM's liquidity/sqrt-price and DLMM's
// bin-step price are both resolved into that same shape here so the
// calculator never needs a venue-specific branch.
func buildPoolView(poolId types.PoolId, decoded decoder.DecodedPool, vaults *VaultReader, slot uint64, observedAt time.Time) types.PoolView {
	baseRaw, quoteRaw := resolveReserves(decoded, vaults)

	view := types.PoolView{
		PoolId:        poolId,
		Venue:         decoded.Venue,
		Pair:          decoded.Pair,
		BaseDecimals:  decoded.BaseDecimals,
		QuoteDecimals: decoded.QuoteDecimals,
		FeeRate:       decoded.PriceModel.Fee,
		ObservedAt:    observedAt,
		Slot:          slot,
	}
	if decoded.Reserves.Kind == decoder.ReservesFromVaults {
		view.VaultAddresses = &types.VaultAddresses{Base: decoded.Reserves.VaultBase, Quote: decoded.Reserves.VaultQuote}
	}

	switch decoded.PriceModel.Kind {
	case decoder.PriceModelSqrtPrice:
		baseHuman, quoteHuman := clmmEffectiveReserves(decoded.PriceModel.Liquidity, decoded.PriceModel.SqrtPriceX64, decoded.BaseDecimals, decoded.QuoteDecimals)
		view.BaseReserve = rawUnits(baseHuman, decoded.BaseDecimals)
		view.QuoteReserve = rawUnits(quoteHuman, decoded.QuoteDecimals)
		view.MidPrice = amm.MidPriceFromReserves(baseHuman, quoteHuman)

	case decoder.PriceModelBinStep:
		view.BaseReserve = baseRaw
		view.QuoteReserve = quoteRaw
		view.MidPrice = amm.BinStepPrice(decoded.PriceModel.ActiveBinId, decoded.PriceModel.BinStep)

	case decoder.PriceModelOrderbookMid:
		view.BaseReserve = baseRaw
		view.QuoteReserve = quoteRaw
		if decoded.PriceModel.Bid > 0 && decoded.PriceModel.Ask > 0 {
			view.MidPrice = (decoded.PriceModel.Bid + decoded.PriceModel.Ask) / 2
		}

	default: // PriceModelConstantProduct, PriceModelStableSwap
		view.BaseReserve = baseRaw
		view.QuoteReserve = quoteRaw
		view.MidPrice = amm.MidPriceFromReserves(
			amm.HumanUnits(baseRaw, decoded.BaseDecimals),
			amm.HumanUnits(quoteRaw, decoded.QuoteDecimals),
		)
	}

	return view
}

func resolveReserves(decoded decoder.DecodedPool, vaults *VaultReader) (baseRaw, quoteRaw uint64) {
	if decoded.Reserves.Kind == decoder.ReservesDirect {
		return decoded.Reserves.BaseAmount, decoded.Reserves.QuoteAmount
	}
	// ReservesFromVaults: a vault the Subscriber hasn't heard a balance for
	// yet reports 0, per spec §4.2 — the pool is still committed to state.
	// For reserve-priced venues it stays undefined (MidPrice 0) until the
	// vault notification arrives; CLMM and DLMM pools take their price from
	// the pool account and are defined with zero vault reserves.
	baseRaw, _ = vaults.Amount(decoded.Reserves.VaultBase)
	quoteRaw, _ = vaults.Amount(decoded.Reserves.VaultQuote)
	return baseRaw, quoteRaw
}

// clmmEffectiveReserves decimal-adjusts liquidity and sqrt-price into
// human units before calling amm.CLMMEffectiveReserves, per that
// function's documented contract. The sqrt-price carries half the
// base/quote decimal delta since price itself is quote-per-base.
func clmmEffectiveReserves(liquidity, sqrtPriceX64 float64, baseDecimals, quoteDecimals uint8) (baseHuman, quoteHuman float64) {
	if liquidity <= 0 || sqrtPriceX64 <= 0 {
		return 0, 0
	}
	decimalDelta := float64(quoteDecimals) - float64(baseDecimals)
	sqrtPriceHuman := sqrtPriceX64 * math.Pow(10, decimalDelta/2)
	liquidityHuman := liquidity / math.Pow(10, (float64(baseDecimals)+float64(quoteDecimals))/2)
	return amm.CLMMEffectiveReserves(liquidityHuman, sqrtPriceHuman)
}

func rawUnits(human float64, decimals uint8) uint64 {
	if human <= 0 {
		return 0
	}
	scaled := human * math.Pow10(int(decimals))
	if scaled > math.MaxUint64 {
		return math.MaxUint64
	}
	return uint64(scaled)
}
