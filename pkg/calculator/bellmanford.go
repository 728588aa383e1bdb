package calculator

import (
	"math"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/solana-zh/arbcore/pkg/types"
)

// maxCycleReconstructionIterations bounds the predecessor-chain walk used
// to reconstruct a negative cycle. Mandatory per spec §4.4.3: without it, a
// corrupted predecessor chain (never observed, but not provable absent)
// could walk forever.
const maxCycleReconstructionIterations = 20

// BellmanFordScanner finds deep (4-6 hop) arbitrage cycles via negative-
// cycle detection over -ln(rate) edge weights, per spec §4.4.3. Grounded
// on original_source/.../router_bellman_ford.rs's BellmanFordScanner.
type BellmanFordScanner struct {
	MaxHops              int
	MinROIPercent        float64
	ConvergenceThreshold float64
}

// NewBellmanFordScanner builds a scanner with the Rust ancestor's
// convergence threshold (1e-4), which absorbs floating-point noise near
// zero-weight cycles without being a user-facing policy knob.
func NewBellmanFordScanner(maxHops int, minROIPercent float64) BellmanFordScanner {
	return BellmanFordScanner{MaxHops: maxHops, MinROIPercent: minROIPercent, ConvergenceThreshold: 1e-4}
}

type negativeCycle struct {
	tokens []types.Token
	edges  []Edge
}

// cycleLink is one entry of the Bellman-Ford predecessor chain: the token
// relaxation arrived from, and the edge that performed the relaxation.
type cycleLink struct {
	from types.Token
	edge Edge
	set  bool
}

// FindAllCycles runs Bellman-Ford from every token in parallel, collects
// negative cycles, deduplicates, converts to ArbitragePath, and filters +
// sorts per spec §4.4.
func (s BellmanFordScanner) FindAllCycles(pools []types.PoolView, probeNotional float64) []types.ArbitragePath {
	edges := buildEdges(pools)
	tokens := uniqueTokens(edges)
	if len(edges) == 0 || len(tokens) == 0 {
		return nil
	}

	var mu sync.Mutex
	var cycles []negativeCycle
	var wg sync.WaitGroup

	for _, start := range tokens {
		wg.Add(1)
		go func(start types.Token) {
			defer wg.Done()
			found := s.detectCyclesFromToken(start, edges, tokens)
			if len(found) == 0 {
				return
			}
			mu.Lock()
			cycles = append(cycles, found...)
			mu.Unlock()
		}(start)
	}
	wg.Wait()

	cycles = dedupeCycles(cycles)

	paths := make([]types.ArbitragePath, 0, len(cycles))
	for _, c := range cycles {
		if path, ok := s.cycleToPath(c, probeNotional); ok {
			paths = append(paths, path)
		}
	}

	filtered := paths[:0]
	for _, p := range paths {
		hops := p.Hops()
		if p.StartToken == p.EndToken && hops >= 2 && hops <= s.MaxHops && p.ROIPercent >= s.MinROIPercent {
			filtered = append(filtered, p)
		}
	}

	sort.SliceStable(filtered, func(i, j int) bool { return filtered[i].Score() > filtered[j].Score() })
	return filtered
}

func (s BellmanFordScanner) detectCyclesFromToken(start types.Token, edges []Edge, tokens []types.Token) []negativeCycle {
	dist := make(map[types.Token]float64, len(tokens))
	parent := make(map[types.Token]cycleLink, len(tokens))
	for _, t := range tokens {
		dist[t] = math.Inf(1)
	}
	dist[start] = 0

	n := len(tokens)
	for i := 0; i < n-1; i++ {
		updated := false
		for _, e := range edges {
			weight := edgeWeight(e)
			dFrom := dist[e.From]
			dTo := dist[e.To]
			if dFrom+weight < dTo-s.ConvergenceThreshold {
				dist[e.To] = dFrom + weight
				parent[e.To] = cycleLink{from: e.From, edge: e, set: true}
				updated = true
			}
		}
		if !updated {
			break
		}
	}

	var cycles []negativeCycle
	detected := make(map[types.Token]struct{})

	for _, e := range edges {
		weight := edgeWeight(e)
		dFrom := dist[e.From]
		dTo := dist[e.To]
		if dFrom+weight >= dTo-s.ConvergenceThreshold {
			continue
		}
		if _, ok := detected[e.To]; ok {
			continue
		}

		cycle, ok := s.extractCycle(parent, e.To, e)
		if !ok {
			continue
		}
		if hops := len(cycle.edges); hops < 2 || hops > s.MaxHops {
			continue
		}
		detected[e.To] = struct{}{}
		cycles = append(cycles, cycle)
	}

	return cycles
}

func (s BellmanFordScanner) extractCycle(parent map[types.Token]cycleLink, startToken types.Token, triggerEdge Edge) (negativeCycle, bool) {
	var cycleTokens []types.Token
	var cycleEdges []Edge
	visited := make(map[types.Token]struct{})

	current := startToken
	for i := 0; i < maxCycleReconstructionIterations; i++ {
		if _, ok := visited[current]; ok {
			break
		}
		visited[current] = struct{}{}

		p, ok := parent[current]
		if !ok || !p.set {
			break
		}
		cycleTokens = append(cycleTokens, current)
		cycleEdges = append(cycleEdges, p.edge)
		current = p.from
	}

	cycleTokens = append(cycleTokens, triggerEdge.To)
	cycleEdges = append(cycleEdges, triggerEdge)

	reverseTokens(cycleTokens)
	reverseEdges(cycleEdges)

	startIdx := -1
	counts := make(map[types.Token]int)
	for _, t := range cycleTokens {
		counts[t]++
	}
	for i, t := range cycleTokens {
		if counts[t] > 1 {
			startIdx = i
			break
		}
	}
	if startIdx == -1 {
		return negativeCycle{}, false
	}

	endIdx := -1
	for i := startIdx + 1; i < len(cycleTokens); i++ {
		if cycleTokens[i] == cycleTokens[startIdx] {
			endIdx = i
			break
		}
	}
	if endIdx == -1 {
		return negativeCycle{}, false
	}

	cycleTokens = cycleTokens[startIdx : endIdx+1]
	cycleEdges = cycleEdges[startIdx+1 : endIdx+1]

	var totalWeight float64
	for _, e := range cycleEdges {
		totalWeight += edgeWeight(e)
	}
	if totalWeight >= -s.ConvergenceThreshold {
		return negativeCycle{}, false
	}
	if len(cycleTokens) == 0 || len(cycleEdges) == 0 {
		return negativeCycle{}, false
	}
	if cycleTokens[0] != cycleTokens[len(cycleTokens)-1] {
		return negativeCycle{}, false
	}

	return negativeCycle{tokens: cycleTokens, edges: cycleEdges}, true
}

func (s BellmanFordScanner) cycleToPath(c negativeCycle, probeNotional float64) (types.ArbitragePath, bool) {
	if len(c.edges) == 0 || len(c.tokens) == 0 {
		return types.ArbitragePath{}, false
	}

	steps, final, ok := simulateSteps(c.edges, probeNotional)
	if !ok {
		return types.ArbitragePath{}, false
	}

	grossProfit := final - probeNotional
	gas := gasEstimate(len(steps))
	netProfit := grossProfit - gas
	roi := netProfit / probeNotional * 100

	var totalFees float64
	for _, e := range c.edges {
		totalFees += e.Fee
	}
	estimatedFees := probeNotional*totalFees + gas

	return types.ArbitragePath{
		Steps:         steps,
		StartToken:    c.tokens[0],
		EndToken:      c.tokens[len(c.tokens)-1],
		InputAmount:   probeNotional,
		OutputAmount:  final,
		GrossProfit:   grossProfit,
		EstimatedFees: estimatedFees,
		NetProfit:     netProfit,
		ROIPercent:    roi,
		DiscoveredAt:  time.Now(),
	}, true
}

func edgeWeight(e Edge) float64 {
	r := e.Rate * (1 - e.Fee)
	if r <= 0 {
		return math.Inf(1)
	}
	return -math.Log(r)
}

func dedupeCycles(cycles []negativeCycle) []negativeCycle {
	seen := make(map[string]struct{}, len(cycles))
	out := make([]negativeCycle, 0, len(cycles))
	for _, c := range cycles {
		sorted := make([]string, len(c.tokens))
		for i, t := range c.tokens {
			sorted[i] = string(t)
		}
		sort.Strings(sorted)
		sig := strings.Join(sorted, "->")
		if _, ok := seen[sig]; ok {
			continue
		}
		seen[sig] = struct{}{}
		out = append(out, c)
	}
	return out
}

func reverseTokens(s []types.Token) {
	for i, j := 0, len(s)-1; i < j; i, j = i+1, j-1 {
		s[i], s[j] = s[j], s[i]
	}
}

func reverseEdges(s []Edge) {
	for i, j := 0, len(s)-1; i < j; i, j = i+1, j-1 {
		s[i], s[j] = s[j], s[i]
	}
}
