package decoder

import (
	"testing"

	"github.com/gagliardetto/solana-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/solana-zh/arbcore/pkg/types"
)

func TestRaydiumCPMMDecoder_Decode(t *testing.T) {
	token0Vault := solana.NewWallet().PublicKey()
	token1Vault := solana.NewWallet().PublicKey()
	token0Mint := solana.NewWallet().PublicKey()
	token1Mint := solana.NewWallet().PublicKey()

	body := make([]byte, RaydiumCPMMSpan-8)
	copy(body[64:96], token0Vault[:])
	copy(body[96:128], token1Vault[:])
	copy(body[160:192], token0Mint[:])
	copy(body[192:224], token1Mint[:])
	body[320+3] = 9
	body[320+4] = 6

	data := append(make([]byte, 8), body...)

	d := RaydiumCPMMDecoder{}
	pool, err := d.Decode(data)
	require.NoError(t, err)

	assert.Equal(t, types.VenueRaydiumCpmm, pool.Venue)
	assert.Equal(t, types.Token(token0Mint.String()), pool.Pair.Base)
	assert.Equal(t, types.Token(token1Mint.String()), pool.Pair.Quote)
	assert.Equal(t, uint8(9), pool.BaseDecimals)
	assert.Equal(t, uint8(6), pool.QuoteDecimals)
	assert.Equal(t, token0Vault.String(), pool.Reserves.VaultBase)
	assert.Equal(t, token1Vault.String(), pool.Reserves.VaultQuote)
}

func TestRaydiumCPMMDecoder_TooShort(t *testing.T) {
	d := RaydiumCPMMDecoder{}
	_, err := d.Decode(make([]byte, 10))
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrDecodeFailed)
}
