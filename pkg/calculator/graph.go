package calculator

import (
	"math"

	"github.com/solana-zh/arbcore/pkg/amm"
	"github.com/solana-zh/arbcore/pkg/types"
)

// Edge is one directed, tradeable hop through a pool: From -> To at the
// reserves/fee the pool carried in the snapshot. Every defined PoolView
// contributes exactly two edges, one per direction.
type Edge struct {
	PoolId types.PoolId
	Venue  types.VenueTag
	From   types.Token
	To     types.Token
	Fee    float64

	// ReserveIn/ReserveOut are decimals-adjusted human units, already
	// oriented for this edge's direction.
	ReserveIn  float64
	ReserveOut float64

	// Rate is the forward price of To per unit From along this edge.
	Rate float64
}

// buildEdges turns a PoolView snapshot into the directed multigraph used by
// both scanners. Pools with no currently-defined mid price, or with a
// non-positive reserve on either side, contribute no edges (spec §3: an
// undefined pool is excluded from cycle search).
func buildEdges(pools []types.PoolView) []Edge {
	edges := make([]Edge, 0, len(pools)*2)

	for _, p := range pools {
		if !p.Defined() {
			continue
		}

		baseHuman := amm.HumanUnits(p.BaseReserve, p.BaseDecimals)
		quoteHuman := amm.HumanUnits(p.QuoteReserve, p.QuoteDecimals)
		if baseHuman <= 0 || quoteHuman <= 0 {
			continue
		}

		fee := p.FeeRate
		if fee == 0 {
			fee = amm.FeeForVenue(p.Venue)
		}

		edges = append(edges,
			Edge{
				PoolId: p.PoolId, Venue: p.Venue,
				From: p.Pair.Base, To: p.Pair.Quote, Fee: fee,
				ReserveIn: baseHuman, ReserveOut: quoteHuman,
				Rate: quoteHuman / baseHuman,
			},
			Edge{
				PoolId: p.PoolId, Venue: p.Venue,
				From: p.Pair.Quote, To: p.Pair.Base, Fee: fee,
				ReserveIn: quoteHuman, ReserveOut: baseHuman,
				Rate: baseHuman / quoteHuman,
			},
		)
	}

	return edges
}

// edgesFromToken indexes edges by their From token for adjacency lookups.
func edgesFromToken(edges []Edge) map[types.Token][]Edge {
	out := make(map[types.Token][]Edge)
	for _, e := range edges {
		out[e.From] = append(out[e.From], e)
	}
	return out
}

// uniqueTokens collects every token touched by edges, order undefined.
func uniqueTokens(edges []Edge) []types.Token {
	seen := make(map[types.Token]struct{})
	for _, e := range edges {
		seen[e.From] = struct{}{}
		seen[e.To] = struct{}{}
	}
	out := make([]types.Token, 0, len(seen))
	for t := range seen {
		out = append(out, t)
	}
	return out
}

// gasEstimate grows with hop count, per spec §4.4 ("a fixed gas estimate
// that grows with hop count").
func gasEstimate(hops int) float64 {
	switch {
	case hops <= 2:
		return 0.0001
	case hops == 3:
		return 0.0002
	case hops == 4:
		return 0.0003
	case hops == 5:
		return 0.0004
	default:
		return 0.0005
	}
}

// simulateSteps walks edges applying the constant-product trade math from
// spec §4.4.1 to each hop in turn, producing the Step sequence and final
// output amount. Returns ok=false if any hop produces a non-positive or
// non-finite output (spec §4.4.4: "Path-conversion errors... drop that
// candidate silently").
func simulateSteps(edges []Edge, initialAmount float64) ([]types.Step, float64, bool) {
	steps := make([]types.Step, 0, len(edges))
	amount := initialAmount

	for _, e := range edges {
		out := amm.ConstantProductOut(amount, e.ReserveIn, e.ReserveOut, e.Fee)
		if !isFinitePositive(out) {
			return nil, 0, false
		}
		steps = append(steps, types.Step{
			PoolId:       e.PoolId,
			Venue:        e.Venue,
			InputToken:   e.From,
			OutputToken:  e.To,
			InputAmount:  amount,
			OutputAmount: out,
			FeeRate:      e.Fee,
		})
		amount = out
	}

	return steps, amount, true
}

func isFinitePositive(v float64) bool {
	return v > 0 && !math.IsNaN(v) && !math.IsInf(v, 0)
}
