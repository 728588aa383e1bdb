package decoder

import (
	"fmt"

	"github.com/gagliardetto/solana-go"

	"github.com/solana-zh/arbcore/pkg/types"
)

// RaydiumCPMMSpan is the minimum byte length this decoder reads from a
// Raydium CPMM ("CP-Swap") pool account: discriminator + the ten pubkey
// fields + the decimals/status byte block. The teacher's CPMMPool struct
// carries further fee-accounting and padding fields past this point that
// this decoder doesn't need.
const RaydiumCPMMSpan = 8 + 32*10 + 8

// RaydiumCPMMDecoder decodes Raydium's CP-Swap pool accounts. Unlike AMM
// v4, CP-Swap carries no on-chain fee field — the protocol fee is fixed
// at the venue default, same as the teacher's Quote hard-coding
// LIQUIDITY_FEES_NUMERATOR/DENOMINATOR rather than reading it from the
// account.
//
// Grounded on pkg/pool/raydium/cpmmPool.go's CPMMPool struct and Decode/Quote.
type RaydiumCPMMDecoder struct{}

func (RaydiumCPMMDecoder) Venue() types.VenueTag { return types.VenueRaydiumCpmm }
func (RaydiumCPMMDecoder) Span() int             { return RaydiumCPMMSpan }

func (RaydiumCPMMDecoder) Decode(raw []byte) (DecodedPool, error) {
	data := raw
	if len(data) > 8 {
		data = data[8:]
	}
	if len(data) < RaydiumCPMMSpan-8 {
		return DecodedPool{}, fmt.Errorf("%w: raydium cpmm: expected at least %d bytes, got %d", ErrDecodeFailed, RaydiumCPMMSpan-8, len(data))
	}

	// Pubkey block: AmmConfig, PoolCreator, Token0Vault, Token1Vault,
	// LpMint, Token0Mint, Token1Mint, Token0Program, Token1Program,
	// ObservationKey — 10 * 32 bytes, in that order.
	token0Vault := solana.PublicKeyFromBytes(data[64:96])
	token1Vault := solana.PublicKeyFromBytes(data[96:128])
	token0Mint := solana.PublicKeyFromBytes(data[160:192])
	token1Mint := solana.PublicKeyFromBytes(data[192:224])

	// After the 10 pubkeys (320 bytes): AuthBump, Status, LpMintDecimals,
	// Mint0Decimals, Mint1Decimals, then 3 bytes padding.
	mint0Decimals := data[320+3]
	mint1Decimals := data[320+4]

	return DecodedPool{
		Venue:         types.VenueRaydiumCpmm,
		Pair:          types.Pair{Base: types.Token(token0Mint.String()), Quote: types.Token(token1Mint.String())},
		BaseDecimals:  mint0Decimals,
		QuoteDecimals: mint1Decimals,
		Reserves: Reserves{
			Kind:       ReservesFromVaults,
			VaultBase:  token0Vault.String(),
			VaultQuote: token1Vault.String(),
		},
		PriceModel: PriceModel{
			Kind: PriceModelConstantProduct,
			// no explicit fee field on-chain; DecodedPool.PriceModel.Fee
			// stays 0 so the calculator falls back to amm.FeeForVenue.
		},
	}, nil
}
