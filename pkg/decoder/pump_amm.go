package decoder

import (
	"fmt"

	"github.com/gagliardetto/solana-go"

	"github.com/solana-zh/arbcore/pkg/types"
)

// PumpAMMSpan is the pump.fun AMM pool account size, mirrored from the
// teacher's PumpAMMPool.Span()/PoolDataSize.
const PumpAMMSpan = 211

// PumpAMMFeeRate is pump.fun's fixed swap fee; the account carries no
// per-pool fee field.
const PumpAMMFeeRate = 0.0025

// PumpAMMDecoder decodes pump.fun AMM bonding-curve-graduated pool
// accounts. Reserves live in two satellite vaults (PoolBaseTokenAccount,
// PoolQuoteTokenAccount), same shape as Raydium AMM v4.
//
// Grounded on pkg/pool/pump/amm.go's PumpAMMPool struct and ParsePoolData.
type PumpAMMDecoder struct{}

func (PumpAMMDecoder) Venue() types.VenueTag { return types.VenuePumpAmm }
func (PumpAMMDecoder) Span() int             { return PumpAMMSpan }

func (PumpAMMDecoder) Decode(data []byte) (DecodedPool, error) {
	if len(data) < PumpAMMSpan {
		return DecodedPool{}, fmt.Errorf("%w: pump amm: expected at least %d bytes, got %d", ErrDecodeFailed, PumpAMMSpan, len(data))
	}

	// offset 0: discriminator(8); 8: PoolBump(1) + Index(2) = 3; 11: Creator(32)
	offset := 8 + 1 + 2 + 32
	baseMint := solana.PublicKeyFromBytes(data[offset : offset+32])
	offset += 32
	quoteMint := solana.PublicKeyFromBytes(data[offset : offset+32])
	offset += 32
	offset += 32 // LpMint
	poolBaseTokenAccount := solana.PublicKeyFromBytes(data[offset : offset+32])
	offset += 32
	poolQuoteTokenAccount := solana.PublicKeyFromBytes(data[offset : offset+32])

	return DecodedPool{
		Venue: types.VenuePumpAmm,
		Pair:  types.Pair{Base: types.Token(baseMint.String()), Quote: types.Token(quoteMint.String())},
		Reserves: Reserves{
			Kind:       ReservesFromVaults,
			VaultBase:  poolBaseTokenAccount.String(),
			VaultQuote: poolQuoteTokenAccount.String(),
		},
		PriceModel: PriceModel{
			Kind: PriceModelConstantProduct,
			Fee:  PumpAMMFeeRate,
		},
	}, nil
}
