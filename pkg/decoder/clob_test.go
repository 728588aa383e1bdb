package decoder

import (
	"encoding/binary"
	"testing"

	"github.com/gagliardetto/solana-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/solana-zh/arbcore/pkg/types"
)

func TestOpenBookV2Decoder_Decode(t *testing.T) {
	bids := solana.NewWallet().PublicKey()
	asks := solana.NewWallet().PublicKey()
	baseMint := solana.NewWallet().PublicKey()
	quoteMint := solana.NewWallet().PublicKey()

	body := make([]byte, OpenBookV2Span)
	body[1] = 9
	body[2] = 6
	copy(body[224:256], bids[:])
	copy(body[256:288], asks[:])
	binary.LittleEndian.PutUint64(body[405:413], 400) // 0.0004 fraction
	copy(body[525:557], baseMint[:])
	copy(body[557:589], quoteMint[:])

	data := append(make([]byte, 8), body...)

	d := OpenBookV2Decoder{}
	pool, err := d.Decode(data)
	require.NoError(t, err)

	assert.Equal(t, types.VenueClobOrderbook, pool.Venue)
	assert.Equal(t, uint8(9), pool.BaseDecimals)
	assert.Equal(t, uint8(6), pool.QuoteDecimals)
	assert.Equal(t, types.Token(baseMint.String()), pool.Pair.Base)
	assert.Equal(t, types.Token(quoteMint.String()), pool.Pair.Quote)
	assert.Equal(t, bids.String(), pool.Reserves.VaultBase)
	assert.Equal(t, asks.String(), pool.Reserves.VaultQuote)
	assert.InDelta(t, 0.0004, pool.PriceModel.Fee, 1e-9)
	assert.Equal(t, PriceModelOrderbookMid, pool.PriceModel.Kind)
}

func TestOpenBookV2Decoder_TooShort(t *testing.T) {
	d := OpenBookV2Decoder{}
	_, err := d.Decode(make([]byte, 50))
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrDecodeFailed)
}
