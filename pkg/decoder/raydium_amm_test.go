package decoder

import (
	"encoding/binary"
	"testing"

	"github.com/gagliardetto/solana-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/solana-zh/arbcore/pkg/types"
)

// raydiumAMMHeaderFields mirrors the teacher's AMMPool struct's uint64
// header section (Status..OrderbookToInitTime); raydiumAMMSwapSectionSize
// mirrors its swap-amount section (two uint128 + one uint64, twice). Both
// must track raydium_amm.go's own constants so the fixture and the
// decoder never drift apart on the pubkey block's real offset again.
const (
	raydiumAMMHeaderFields     = 32
	raydiumAMMSwapSectionSize  = 16 + 16 + 8 + 16 + 16 + 8
	raydiumAMMPubkeyBlockStart = raydiumAMMHeaderFields*8 + raydiumAMMSwapSectionSize
)

func buildRaydiumAMMFixture(t *testing.T, baseDecimals, quoteDecimals uint64, swapFeeNum, swapFeeDen uint64, baseVault, quoteVault, baseMint, quoteMint solana.PublicKey) []byte {
	t.Helper()
	data := make([]byte, RaydiumAMMSpan)

	putU64 := func(fieldIndex int, v uint64) {
		off := fieldIndex * 8
		binary.LittleEndian.PutUint64(data[off:off+8], v)
	}
	putU64(4, baseDecimals)
	putU64(5, quoteDecimals)
	putU64(22, swapFeeNum)
	putU64(23, swapFeeDen)

	off := raydiumAMMPubkeyBlockStart
	copy(data[off:off+32], baseVault[:])
	copy(data[off+32:off+64], quoteVault[:])
	copy(data[off+64:off+96], baseMint[:])
	copy(data[off+96:off+128], quoteMint[:])
	return data
}

func TestRaydiumAMMDecoder_Decode(t *testing.T) {
	baseVault := solana.NewWallet().PublicKey()
	quoteVault := solana.NewWallet().PublicKey()
	baseMint := solana.NewWallet().PublicKey()
	quoteMint := solana.NewWallet().PublicKey()

	data := buildRaydiumAMMFixture(t, 9, 6, 25, 10_000, baseVault, quoteVault, baseMint, quoteMint)

	d := RaydiumAMMDecoder{}
	pool, err := d.Decode(data)
	require.NoError(t, err)

	assert.Equal(t, types.VenueRaydiumAmm, pool.Venue)
	assert.Equal(t, uint8(9), pool.BaseDecimals)
	assert.Equal(t, uint8(6), pool.QuoteDecimals)
	assert.Equal(t, types.Token(baseMint.String()), pool.Pair.Base)
	assert.Equal(t, types.Token(quoteMint.String()), pool.Pair.Quote)
	assert.Equal(t, ReservesFromVaults, pool.Reserves.Kind)
	assert.Equal(t, baseVault.String(), pool.Reserves.VaultBase)
	assert.Equal(t, quoteVault.String(), pool.Reserves.VaultQuote)
	assert.InDelta(t, 0.0025, pool.PriceModel.Fee, 1e-9)
}

func TestRaydiumAMMDecoder_FallsBackToTradeFee(t *testing.T) {
	baseVault := solana.NewWallet().PublicKey()
	quoteVault := solana.NewWallet().PublicKey()
	baseMint := solana.NewWallet().PublicKey()
	quoteMint := solana.NewWallet().PublicKey()

	data := buildRaydiumAMMFixture(t, 9, 6, 0, 0, baseVault, quoteVault, baseMint, quoteMint)
	binary.LittleEndian.PutUint64(data[18*8:18*8+8], 30)
	binary.LittleEndian.PutUint64(data[19*8:19*8+8], 10_000)

	d := RaydiumAMMDecoder{}
	pool, err := d.Decode(data)
	require.NoError(t, err)
	assert.InDelta(t, 0.003, pool.PriceModel.Fee, 1e-9)
}

func TestRaydiumAMMDecoder_TooShort(t *testing.T) {
	d := RaydiumAMMDecoder{}
	_, err := d.Decode(make([]byte, 100))
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrDecodeFailed)
}
