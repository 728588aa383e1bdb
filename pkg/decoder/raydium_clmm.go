package decoder

import (
	"fmt"
	"math"
	"math/big"

	"github.com/gagliardetto/solana-go"
	"lukechampine.com/uint128"

	"github.com/solana-zh/arbcore/pkg/types"
)

// RaydiumCLMMSpan is the minimum byte length of a Raydium CLMM pool
// account (discriminator + core + liquidity state fields this decoder
// actually reads; the teacher's CLMMPool carries additional tick-array
// and reward fields this decoder ignores).
const RaydiumCLMMSpan = 8 + 1 + 32*7 + 1 + 1 + 2 + 16 + 16

// RaydiumCLMMDecoder decodes Raydium's concentrated-liquidity pool
// accounts. Price comes from liquidity + sqrt-price (Q64.64 fixed point),
// not from token balances; the two addresses under ReservesFromVaults are
// the pool's real token vaults, but the Subscriber uses Liquidity and
// SqrtPriceX64 (via amm.CLMMEffectiveReserves, spec §4.4.1) to compute the
// PoolView's effective BaseReserve/QuoteReserve at assembly time, so the
// calculator stays venue-agnostic and never needs to see a sqrt-price.
//
// Grounded on pkg/pool/raydium/clmmPool.go's CLMMPool struct and Decode.
type RaydiumCLMMDecoder struct{}

func (RaydiumCLMMDecoder) Venue() types.VenueTag { return types.VenueClmmSqrtPrice }
func (RaydiumCLMMDecoder) Span() int             { return RaydiumCLMMSpan }

func (RaydiumCLMMDecoder) Decode(raw []byte) (DecodedPool, error) {
	data := raw
	if len(data) > 8 {
		data = data[8:] // skip the anchor discriminator, as the teacher's Decode does
	}
	if len(data) < RaydiumCLMMSpan-8 {
		return DecodedPool{}, fmt.Errorf("%w: raydium clmm: expected at least %d bytes, got %d", ErrDecodeFailed, RaydiumCLMMSpan-8, len(data))
	}

	offset := 1 // bump
	offset += 32 // amm config
	offset += 32 // owner
	tokenMint0 := solana.PublicKeyFromBytes(data[offset : offset+32])
	offset += 32
	tokenMint1 := solana.PublicKeyFromBytes(data[offset : offset+32])
	offset += 32
	tokenVault0 := solana.PublicKeyFromBytes(data[offset : offset+32])
	offset += 32
	tokenVault1 := solana.PublicKeyFromBytes(data[offset : offset+32])
	offset += 32
	offset += 32 // observation key

	mintDecimals0 := data[offset]
	offset++
	mintDecimals1 := data[offset]
	offset++
	offset += 2 // tick spacing

	liquidity := uint128.FromBytes(data[offset : offset+16])
	offset += 16
	sqrtPriceX64 := uint128.FromBytes(data[offset : offset+16])
	offset += 16

	if liquidity.IsZero() || sqrtPriceX64.IsZero() {
		return DecodedPool{}, fmt.Errorf("%w: raydium clmm: zero liquidity or sqrt-price", ErrDecodeFailed)
	}

	sqrtPriceFloat := uint128ToFloat(sqrtPriceX64) / math.Pow(2, 64)
	liquidityFloat := uint128ToFloat(liquidity)

	return DecodedPool{
		Venue:         types.VenueClmmSqrtPrice,
		Pair:          types.Pair{Base: types.Token(tokenMint0.String()), Quote: types.Token(tokenMint1.String())},
		BaseDecimals:  mintDecimals0,
		QuoteDecimals: mintDecimals1,
		Reserves: Reserves{
			Kind:       ReservesFromVaults,
			VaultBase:  tokenVault0.String(),
			VaultQuote: tokenVault1.String(),
		},
		PriceModel: PriceModel{
			Kind:         PriceModelSqrtPrice,
			SqrtPriceX64: sqrtPriceFloat,
			Liquidity:    liquidityFloat,
		},
	}, nil
}

// uint128ToFloat converts a uint128.Uint128 to float64 via big.Int, since
// the library doesn't expose a direct float conversion.
func uint128ToFloat(v uint128.Uint128) float64 {
	b := new(big.Int).SetUint64(v.Hi)
	b.Lsh(b, 64)
	b.Or(b, new(big.Int).SetUint64(v.Lo))
	f := new(big.Float).SetInt(b)
	out, _ := f.Float64()
	return out
}
