package amm

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConstantProductOutSlippageLemma(t *testing.T) {
	// spec §8 property 8: AMM round-trip.
	reserveIn, reserveOut, fee := 1000.0, 185000.0, 0.0025
	amountIn := 10.0

	out := ConstantProductOut(amountIn, reserveIn, reserveOut, fee)
	linear := amountIn * reserveOut / reserveIn * (1 - fee)
	assert.Less(t, out, linear, "constant-product output must be strictly less than the linear approximation")

	// constant product invariant, within 1e-9 relative tolerance
	lhs := (reserveIn + amountIn*(1-fee)) * (reserveOut - out)
	rhs := reserveIn * reserveOut
	require.InEpsilon(t, rhs, lhs, 1e-9)
}

func TestConstantProductOutZeroInputs(t *testing.T) {
	assert.Equal(t, 0.0, ConstantProductOut(0, 1000, 1000, 0.0025))
	assert.Equal(t, 0.0, ConstantProductOut(10, 0, 1000, 0.0025))
	assert.Equal(t, 0.0, ConstantProductOut(10, 1000, 0, 0.0025))
}

func TestCLMMEffectiveReserves(t *testing.T) {
	base, quote := CLMMEffectiveReserves(1_000_000, 2.0)
	assert.Equal(t, 500_000.0, base)
	assert.Equal(t, 2_000_000.0, quote)

	base, quote = CLMMEffectiveReserves(0, 2.0)
	assert.Equal(t, 0.0, base)
	assert.Equal(t, 0.0, quote)
}

func TestMidPriceFromReserves(t *testing.T) {
	assert.Equal(t, 185.0, MidPriceFromReserves(1000, 185000))
	assert.Equal(t, 0.0, MidPriceFromReserves(0, 185000))
	assert.Equal(t, 0.0, MidPriceFromReserves(1000, 0))
}

func TestFeeForVenue(t *testing.T) {
	assert.Equal(t, 0.0025, FeeForVenue("AmmConstantProduct"))
	assert.Equal(t, DefaultFeeRate, FeeForVenue("SomeUnknownVenue"))
}
