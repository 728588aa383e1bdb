// Package calculator implements the Calculator (C5): snapshot the State
// Layer, run the enabled scanners, merge/dedupe/filter/sort, return
// candidate arbitrage paths (spec §4.4). Grounded directly on
// original_source/.../calculator.rs.
package calculator

import (
	"sort"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/solana-zh/arbcore/pkg/state"
	"github.com/solana-zh/arbcore/pkg/types"
)

// Config mirrors the Rust ancestor's CalculatorConfig.
type Config struct {
	EnableBFS     bool
	EnableBF      bool
	BFSMaxHops    int
	BFMaxHops     int
	MinROIPercent float64
	// ProbeNotional is the input_amount simulated through every candidate
	// path (spec §3: "input_amount of step 0 is the probe notional").
	ProbeNotional float64

	SnapshotMaxAge       time.Duration
	SnapshotMaxSlotSpread uint64
	DegradedMaxAge       time.Duration

	// IncludeOrderbookVenues gates CLOB/order-book pools out of the cycle
	// graph entirely when false, independent of whether their MidPrice
	// happens to be defined (spec §9's Open Question on CLOB venues).
	IncludeOrderbookVenues bool
}

// DefaultConfig matches the Rust ancestor's defaults plus the snapshot
// windows from spec §4.4 step 1.
func DefaultConfig() Config {
	return Config{
		EnableBFS:     true,
		EnableBF:      true,
		BFSMaxHops:    3,
		BFMaxHops:     6,
		MinROIPercent: 0.3,
		ProbeNotional: 10.0,

		SnapshotMaxAge:        2 * time.Second,
		SnapshotMaxSlotSpread: 10,
		DegradedMaxAge:        5 * time.Second,

		IncludeOrderbookVenues: true,
	}
}

// Calculator is pure computation: no scheduling, independently testable,
// per the Rust ancestor's stated design principle.
type Calculator struct {
	worldview state.Layer
	cfg       Config
	bfs       BFSScanner
	bf        BellmanFordScanner
	logger    *zap.Logger
}

// New builds a Calculator reading from worldview.
func New(worldview state.Layer, cfg Config, logger *zap.Logger) *Calculator {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Calculator{
		worldview: worldview,
		cfg:       cfg,
		bfs:       NewBFSScanner(cfg.BFSMaxHops, cfg.MinROIPercent),
		bf:        NewBellmanFordScanner(cfg.BFMaxHops, cfg.MinROIPercent),
		logger:    logger,
	}
}

// Run executes one calculation task end to end (spec §4.4 steps 1-6).
func (c *Calculator) Run(task types.CalculationTask) []types.ArbitragePath {
	c.logger.Debug("calculator starting",
		zap.String("trigger", string(task.Trigger.Kind)),
		zap.String("source_pool", string(task.Trigger.SourcePool)),
	)

	pools := c.worldview.SnapshotConsistent(c.cfg.SnapshotMaxAge, c.cfg.SnapshotMaxSlotSpread)
	if len(pools) == 0 {
		pools = c.worldview.SnapshotFresh(c.cfg.DegradedMaxAge)
	}
	if len(pools) == 0 {
		c.logger.Warn("empty snapshot, skipping calculation")
		return nil
	}

	if !c.cfg.IncludeOrderbookVenues {
		pools = excludeOrderbookVenues(pools)
	}

	var bfsPaths, bfPaths []types.ArbitragePath
	var wg sync.WaitGroup
	if c.cfg.EnableBFS {
		wg.Add(1)
		go func() {
			defer wg.Done()
			bfsPaths = c.runScanner(func() []types.ArbitragePath {
				return c.bfs.FindAllOpportunities(pools, c.cfg.ProbeNotional)
			})
		}()
	}
	if c.cfg.EnableBF {
		wg.Add(1)
		go func() {
			defer wg.Done()
			bfPaths = c.runScanner(func() []types.ArbitragePath {
				return c.bf.FindAllCycles(pools, c.cfg.ProbeNotional)
			})
		}()
	}
	wg.Wait()
	all := append(bfsPaths, bfPaths...)

	if len(all) == 0 {
		return nil
	}

	deduped := dedupeBySignature(all)
	filtered := filterPaths(deduped, c.cfg.MinROIPercent, 2, maxHops(c.cfg))
	sort.SliceStable(filtered, func(i, j int) bool { return filtered[i].Score() > filtered[j].Score() })

	c.logger.Debug("calculator finished", zap.Int("paths", len(filtered)))
	return filtered
}

// runScanner isolates a scanner so a panic in one (a corrupted snapshot,
// an unexpected NaN slipping past simulateSteps) doesn't take down the
// other scanner's results (spec §4.4.4: "A scanner that panics or errors
// out is caught; the other scanner's results stand.").
func (c *Calculator) runScanner(fn func() []types.ArbitragePath) (out []types.ArbitragePath) {
	defer func() {
		if r := recover(); r != nil {
			c.logger.Error("scanner panicked, discarding its results", zap.Any("panic", r))
			out = nil
		}
	}()
	return fn()
}

func filterPaths(paths []types.ArbitragePath, minROI float64, minHops, maxHops int) []types.ArbitragePath {
	out := paths[:0]
	for _, p := range paths {
		hops := p.Hops()
		if p.StartToken != p.EndToken {
			continue
		}
		if p.ROIPercent < minROI {
			continue
		}
		if hops < minHops || hops > maxHops {
			continue
		}
		out = append(out, p)
	}
	return out
}

func excludeOrderbookVenues(pools []types.PoolView) []types.PoolView {
	out := pools[:0]
	for _, p := range pools {
		if p.Venue == types.VenueClobOrderbook {
			continue
		}
		out = append(out, p)
	}
	return out
}

func maxHops(cfg Config) int {
	if cfg.BFMaxHops > cfg.BFSMaxHops {
		return cfg.BFMaxHops
	}
	return cfg.BFSMaxHops
}
