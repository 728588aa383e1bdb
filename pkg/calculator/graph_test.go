package calculator

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/solana-zh/arbcore/pkg/types"
)

func newPool(id types.PoolId, base, quote types.Token, baseHuman, quoteHuman, feeRate float64) types.PoolView {
	return types.PoolView{
		PoolId:        id,
		Venue:         types.VenueAmmConstantProduct,
		Pair:          types.Pair{Base: base, Quote: quote},
		BaseReserve:   uint64(baseHuman * 1_000_000),
		QuoteReserve:  uint64(quoteHuman * 1_000_000),
		BaseDecimals:  6,
		QuoteDecimals: 6,
		MidPrice:      quoteHuman / baseHuman,
		FeeRate:       feeRate,
		ObservedAt:    time.Now(),
		Slot:          1,
	}
}

func triangleFixture(fee float64) []types.PoolView {
	return []types.PoolView{
		newPool("pool1", "A", "B", 1_000_000, 1_000_000, fee),
		newPool("pool2", "B", "C", 1_000_000, 1_000_000, fee),
		newPool("pool3", "C", "A", 1_000_000, 1_030_000, fee),
	}
}

func TestBuildEdges_SkipsUndefinedPools(t *testing.T) {
	pools := triangleFixture(0.0025)
	pools = append(pools, types.PoolView{PoolId: "undefined", Pair: types.Pair{Base: "X", Quote: "Y"}, MidPrice: 0})

	edges := buildEdges(pools)
	assert.Len(t, edges, 6) // 3 pools * 2 directions

	tokens := uniqueTokens(edges)
	assert.NotContains(t, tokens, types.Token("X"))
}

func TestBuildEdges_FeeFallsBackToVenueDefault(t *testing.T) {
	pool := newPool("p1", "A", "B", 1000, 1000, 0)
	pool.Venue = types.VenueClmmSqrtPrice
	edges := buildEdges([]types.PoolView{pool})
	require.Len(t, edges, 2)
	assert.InDelta(t, 0.0001, edges[0].Fee, 1e-9)
}

func TestGasEstimate_GrowsWithHops(t *testing.T) {
	assert.Equal(t, 0.0001, gasEstimate(2))
	assert.Equal(t, 0.0002, gasEstimate(3))
	assert.Equal(t, 0.0005, gasEstimate(7))
}

func TestSimulateSteps_ChainsAmountThroughHops(t *testing.T) {
	edges := buildEdges(triangleFixture(0))
	byFrom := edgesFromToken(edges)

	chain := []Edge{firstEdgeTo(byFrom["A"], "B"), firstEdgeTo(byFrom["B"], "C"), firstEdgeTo(byFrom["C"], "A")}
	steps, final, ok := simulateSteps(chain, 10)
	require.True(t, ok)
	require.Len(t, steps, 3)
	assert.Greater(t, final, 10.0) // 3% edge should leave a profit even after slippage
}

func firstEdgeTo(edges []Edge, to types.Token) Edge {
	for _, e := range edges {
		if e.To == to {
			return e
		}
	}
	panic("no edge found")
}
