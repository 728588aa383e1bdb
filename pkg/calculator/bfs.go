package calculator

import (
	"sort"
	"strings"
	"time"

	"github.com/solana-zh/arbcore/pkg/types"
)

// BFSScanner finds shallow (2-3 hop) arbitrage cycles by breadth-first
// search from every observed token, per spec §4.4.2. Grounded on
// original_source/.../router_bfs.rs's BfsScanner.
type BFSScanner struct {
	MaxDepth            int
	MinROIPercent       float64
	EarlyStopROIPercent float64
}

// NewBFSScanner builds a scanner with the Rust ancestor's early-stop
// threshold (-0.5%), not exposed as a tunable because it's a pruning
// heuristic, not a policy knob.
func NewBFSScanner(maxDepth int, minROIPercent float64) BFSScanner {
	return BFSScanner{MaxDepth: maxDepth, MinROIPercent: minROIPercent, EarlyStopROIPercent: -0.5}
}

type bfsNode struct {
	tokens []types.Token
	amount float64
	edges  []Edge
}

func (s BFSScanner) signature(n bfsNode) string {
	tokenParts := make([]string, len(n.tokens))
	for i, t := range n.tokens {
		tokenParts[i] = string(t)
	}
	poolParts := make([]string, len(n.edges))
	for i, e := range n.edges {
		poolParts[i] = string(e.PoolId)
	}
	return strings.Join(tokenParts, "->") + "::" + strings.Join(poolParts, "|")
}

// FindAllOpportunities scans the snapshot from every token, returning
// deduplicated, ROI-sorted candidate paths.
func (s BFSScanner) FindAllOpportunities(pools []types.PoolView, probeNotional float64) []types.ArbitragePath {
	edges := buildEdges(pools)
	if len(edges) == 0 {
		return nil
	}
	adjacency := edgesFromToken(edges)

	var all []types.ArbitragePath
	for _, start := range uniqueTokens(edges) {
		all = append(all, s.bfsFromToken(start, adjacency, probeNotional)...)
	}

	all = dedupeBySignature(all)
	sort.SliceStable(all, func(i, j int) bool { return all[i].ROIPercent > all[j].ROIPercent })
	return all
}

func (s BFSScanner) bfsFromToken(start types.Token, adjacency map[types.Token][]Edge, probeNotional float64) []types.ArbitragePath {
	var results []types.ArbitragePath
	visited := make(map[string]struct{})

	queue := []bfsNode{{tokens: []types.Token{start}, amount: probeNotional}}

	for len(queue) > 0 {
		cur := queue[0]
		queue = queue[1:]

		depth := len(cur.tokens) - 1
		if depth > 0 {
			roi := (cur.amount - probeNotional) / probeNotional * 100
			if roi < s.EarlyStopROIPercent {
				continue
			}
		}

		curToken := cur.tokens[len(cur.tokens)-1]

		// Try closure before the depth cap: max_depth bounds how far a path
		// may be *extended*, not whether a cycle landing exactly on it may
		// close — a max_depth of 3 must still find 3-hop triangles.
		if depth >= 2 && curToken == start {
			if path, ok := s.convertPath(cur, probeNotional); ok && path.ROIPercent >= s.MinROIPercent {
				results = append(results, path)
			}
			continue
		}

		if depth >= s.MaxDepth {
			continue
		}

		for _, e := range adjacency[curToken] {
			next := e.To

			if containsToken(cur.tokens, next) && next != start {
				continue
			}

			child := bfsNode{
				tokens: append(append([]types.Token{}, cur.tokens...), next),
				edges:  append(append([]Edge{}, cur.edges...), e),
			}
			_, amount, ok := simulateSteps(child.edges, probeNotional)
			if !ok {
				continue
			}
			child.amount = amount

			sig := s.signature(child)
			if _, seen := visited[sig]; seen {
				continue
			}
			visited[sig] = struct{}{}
			queue = append(queue, child)
		}
	}

	return results
}

func (s BFSScanner) convertPath(n bfsNode, probeNotional float64) (types.ArbitragePath, bool) {
	if len(n.edges) == 0 {
		return types.ArbitragePath{}, false
	}

	steps, final, ok := simulateSteps(n.edges, probeNotional)
	if !ok {
		return types.ArbitragePath{}, false
	}

	grossProfit := final - probeNotional
	gas := gasEstimate(len(steps))
	netProfit := grossProfit - gas
	roi := netProfit / probeNotional * 100

	var totalFees float64
	amount := probeNotional
	for _, step := range steps {
		totalFees += step.FeeRate * amount
		amount = step.OutputAmount
	}

	return types.ArbitragePath{
		Steps:        steps,
		StartToken:   n.tokens[0],
		EndToken:     n.tokens[len(n.tokens)-1],
		InputAmount:  probeNotional,
		OutputAmount: final,
		GrossProfit:  grossProfit,
		EstimatedFees: totalFees + gas,
		NetProfit:    netProfit,
		ROIPercent:   roi,
		DiscoveredAt: time.Now(),
	}, true
}

func containsToken(tokens []types.Token, t types.Token) bool {
	for _, x := range tokens {
		if x == t {
			return true
		}
	}
	return false
}

func dedupeBySignature(paths []types.ArbitragePath) []types.ArbitragePath {
	seen := make(map[string]struct{}, len(paths))
	out := make([]types.ArbitragePath, 0, len(paths))
	for _, p := range paths {
		sig := p.Signature()
		if _, ok := seen[sig]; ok {
			continue
		}
		seen[sig] = struct{}{}
		out = append(out, p)
	}
	return out
}
