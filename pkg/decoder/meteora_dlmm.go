package decoder

import (
	"encoding/binary"

	"github.com/gagliardetto/solana-go"

	"github.com/solana-zh/arbcore/pkg/types"
)

// MeteoraDLMMSpan covers the fields this decoder reads: discriminator,
// parameters/vParameters blocks, the bin-step/activeId header, and the
// four pubkeys (TokenXMint, TokenYMint, reserveX, reserveY). The
// teacher's MeteoraDlmmPool struct continues for another ~680 bytes of
// reward-info and bitmap fields this decoder doesn't need.
const MeteoraDLMMSpan = 8 + 80 + 32*4

// MeteoraDLMMDecoder decodes Meteora's DLMM (bin-based) pool accounts.
// DLMM has no continuous sqrt-price curve; price is a function of the
// active bin id and bin step (amm.BinStepPrice), so PriceModel carries
// those two fields directly instead of a reserve ratio. Reserves live in
// two satellite vaults, same as the AMM/CLMM venues.
//
// Grounded on pkg/pool/meteora/dlmm.go's MeteoraDlmmPool.Decode (manual
// offset walk) and ComputeFee (baseFactor/binStep fee formula, here
// approximated in floating point instead of the teacher's ceiling-division
// big.Int arithmetic since the calculator only needs an estimate, not an
// on-chain-exact fee).
type MeteoraDLMMDecoder struct{}

func (MeteoraDLMMDecoder) Venue() types.VenueTag { return types.VenueMeteoraDlmm }
func (MeteoraDLMMDecoder) Span() int             { return MeteoraDLMMSpan }

func (MeteoraDLMMDecoder) Decode(raw []byte) (DecodedPool, error) {
	data := raw
	if len(data) > 8 {
		data = data[8:]
	}
	if len(data) < MeteoraDLMMSpan-8 {
		return DecodedPool{}, ErrDecodeFailed
	}

	baseFactor := binary.LittleEndian.Uint16(data[0:2])
	activeId := int32(binary.LittleEndian.Uint32(data[68:72]))
	binStep := binary.LittleEndian.Uint16(data[72:74])
	if binStep == 0 {
		return DecodedPool{}, ErrDecodeFailed
	}

	tokenXMint := solana.PublicKeyFromBytes(data[80:112])
	tokenYMint := solana.PublicKeyFromBytes(data[112:144])
	reserveX := solana.PublicKeyFromBytes(data[144:176])
	reserveY := solana.PublicKeyFromBytes(data[176:208])

	// Approximates the teacher's ComputeFee: base fee scales with
	// baseFactor * binStep, expressed directly as a fraction here rather
	// than the on-chain fixed-point precision.
	fee := float64(baseFactor) * float64(binStep) / 1_000_000

	return DecodedPool{
		Venue: types.VenueMeteoraDlmm,
		Pair:  types.Pair{Base: types.Token(tokenXMint.String()), Quote: types.Token(tokenYMint.String())},
		Reserves: Reserves{
			Kind:       ReservesFromVaults,
			VaultBase:  reserveX.String(),
			VaultQuote: reserveY.String(),
		},
		PriceModel: PriceModel{
			Kind:        PriceModelBinStep,
			Fee:         fee,
			ActiveBinId: activeId,
			BinStep:     binStep,
		},
	}, nil
}
