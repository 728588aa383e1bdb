package decoder

import (
	"encoding/binary"
	"fmt"

	"github.com/gagliardetto/solana-go"

	"github.com/solana-zh/arbcore/pkg/types"
)

// RaydiumAMMSpan is the Raydium AMM v4 account size, mirrored from the
// teacher's AMMPool.Span().
const RaydiumAMMSpan = 752

// RaydiumAMMDecoder decodes Raydium AMM v4 ("OpenBook AMM") pool accounts.
// Reserves live in two satellite SPL-token vaults, so the decoder emits
// ReservesFromVaults — the teacher's AMMPool.Quote fetches BaseVault and
// QuoteVault balances over RPC before computing output; here that fetch
// is the Subscriber's job (spec §4.2), not the decoder's.
//
// Grounded on pkg/pool/raydium/ammPool.go's AMMPool struct and Decode.
type RaydiumAMMDecoder struct{}

func (RaydiumAMMDecoder) Venue() types.VenueTag { return types.VenueRaydiumAmm }
func (RaydiumAMMDecoder) Span() int             { return RaydiumAMMSpan }

func (RaydiumAMMDecoder) Decode(data []byte) (DecodedPool, error) {
	if len(data) < RaydiumAMMSpan {
		return DecodedPool{}, fmt.Errorf("%w: raydium amm: expected %d bytes, got %d", ErrDecodeFailed, RaydiumAMMSpan, len(data))
	}

	// Field offsets replicate the teacher's AMMPool.Decode layout: 32
	// little-endian uint64 status/config fields (Status..OrderbookToInitTime,
	// offset 0..256), then the swap-amount uint128/uint64 fields, then the
	// vault/mint pubkeys.
	const (
		baseDecimalOffset  = 4 * 8
		quoteDecimalOffset = 5 * 8
		tradeFeeNumOffset  = 18 * 8
		tradeFeeDenOffset  = 19 * 8
		swapFeeNumOffset   = 22 * 8
		swapFeeDenOffset   = 23 * 8

		headerFieldCount = 32
		headerSize       = headerFieldCount * 8

		// SwapBaseInAmount, SwapQuoteOutAmount (uint128 each), SwapBase2QuoteFee
		// (uint64), SwapQuoteInAmount, SwapBaseOutAmount (uint128 each),
		// SwapQuote2BaseFee (uint64).
		swapAmountSectionSize = 16 + 16 + 8 + 16 + 16 + 8
	)

	baseDecimal := binary.LittleEndian.Uint64(data[baseDecimalOffset : baseDecimalOffset+8])
	quoteDecimal := binary.LittleEndian.Uint64(data[quoteDecimalOffset : quoteDecimalOffset+8])
	swapFeeNumerator := binary.LittleEndian.Uint64(data[swapFeeNumOffset : swapFeeNumOffset+8])
	swapFeeDenominator := binary.LittleEndian.Uint64(data[swapFeeDenOffset : swapFeeDenOffset+8])
	if swapFeeDenominator == 0 {
		swapFeeNumerator = binary.LittleEndian.Uint64(data[tradeFeeNumOffset : tradeFeeNumOffset+8])
		swapFeeDenominator = binary.LittleEndian.Uint64(data[tradeFeeDenOffset : tradeFeeDenOffset+8])
	}

	pubkeyBlockOffset := headerSize + swapAmountSectionSize
	baseVault := solana.PublicKeyFromBytes(data[pubkeyBlockOffset : pubkeyBlockOffset+32])
	quoteVault := solana.PublicKeyFromBytes(data[pubkeyBlockOffset+32 : pubkeyBlockOffset+64])
	baseMint := solana.PublicKeyFromBytes(data[pubkeyBlockOffset+64 : pubkeyBlockOffset+96])
	quoteMint := solana.PublicKeyFromBytes(data[pubkeyBlockOffset+96 : pubkeyBlockOffset+128])

	fee := 0.0
	if swapFeeDenominator != 0 {
		fee = float64(swapFeeNumerator) / float64(swapFeeDenominator)
	}

	return DecodedPool{
		Venue:         types.VenueRaydiumAmm,
		Pair:          types.Pair{Base: types.Token(baseMint.String()), Quote: types.Token(quoteMint.String())},
		BaseDecimals:  uint8(baseDecimal),
		QuoteDecimals: uint8(quoteDecimal),
		Reserves: Reserves{
			Kind:       ReservesFromVaults,
			VaultBase:  baseVault.String(),
			VaultQuote: quoteVault.String(),
		},
		PriceModel: PriceModel{
			Kind: PriceModelConstantProduct,
			Fee:  fee,
		},
	}, nil
}
