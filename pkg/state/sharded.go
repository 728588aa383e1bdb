package state

import (
	"hash/fnv"
	"sync"
	"sync/atomic"
	"time"

	"github.com/solana-zh/arbcore/pkg/types"
)

const defaultShardCount = 32

// shard is one independently-locked partition of the pool map.
type shard struct {
	mu    sync.RWMutex
	pools map[types.PoolId]types.PoolView
}

// shardedMap is the shard-locked conforming implementation (spec §4.1):
// writes to different pools proceed without contending on a single lock,
// required once update rate exceeds roughly 100/s. The pair index and
// latest-slot counter are the only state shared across shards; both are
// touched far less often than the per-pool map.
type shardedMap struct {
	shards []*shard

	pairMu sync.RWMutex
	byPair map[types.Pair]map[types.PoolId]struct{}

	latestSlot atomic.Uint64

	bus *eventBus
}

func newShardedMap(shardCount int) *shardedMap {
	if shardCount <= 0 {
		shardCount = defaultShardCount
	}
	shards := make([]*shard, shardCount)
	for i := range shards {
		shards[i] = &shard{pools: make(map[types.PoolId]types.PoolView)}
	}
	return &shardedMap{
		shards: shards,
		byPair: make(map[types.Pair]map[types.PoolId]struct{}),
		bus:    newEventBus(),
	}
}

func (s *shardedMap) shardFor(id types.PoolId) *shard {
	h := fnv.New32a()
	_, _ = h.Write([]byte(id))
	return s.shards[h.Sum32()%uint32(len(s.shards))]
}

func (s *shardedMap) Update(pool types.PoolView) {
	pool = pool.Clone()
	sh := s.shardFor(pool.PoolId)

	sh.mu.Lock()
	old, hadOld := sh.pools[pool.PoolId]
	sh.pools[pool.PoolId] = pool
	sh.mu.Unlock()

	s.pairMu.Lock()
	set, ok := s.byPair[pool.Pair]
	if !ok {
		set = make(map[types.PoolId]struct{})
		s.byPair[pool.Pair] = set
	}
	set[pool.PoolId] = struct{}{}
	s.pairMu.Unlock()

	for {
		cur := s.latestSlot.Load()
		if pool.Slot <= cur {
			break
		}
		if s.latestSlot.CompareAndSwap(cur, pool.Slot) {
			break
		}
	}

	if ev, ok := changeEvent(pool.PoolId, pool.Pair, old, hadOld, pool); ok {
		s.bus.publish(ev)
	}
}

func (s *shardedMap) Get(id types.PoolId) (types.PoolView, bool) {
	sh := s.shardFor(id)
	sh.mu.RLock()
	defer sh.mu.RUnlock()
	p, ok := sh.pools[id]
	if !ok {
		return types.PoolView{}, false
	}
	return p.Clone(), true
}

func (s *shardedMap) ByPair(pair types.Pair) []types.PoolView {
	s.pairMu.RLock()
	ids := make([]types.PoolId, 0, len(s.byPair[pair]))
	for id := range s.byPair[pair] {
		ids = append(ids, id)
	}
	s.pairMu.RUnlock()

	out := make([]types.PoolView, 0, len(ids))
	for _, id := range ids {
		if p, ok := s.Get(id); ok {
			out = append(out, p)
		}
	}
	return out
}

func (s *shardedMap) Subscribe() (<-chan types.PriceChangeEvent, func()) {
	return s.bus.subscribe()
}

func (s *shardedMap) LatestSlot() uint64 {
	return s.latestSlot.Load()
}

func (s *shardedMap) SnapshotConsistent(maxAge time.Duration, maxSlotSpread uint64) []types.PoolView {
	latest := s.latestSlot.Load()
	if latest == 0 {
		return nil
	}

	now := time.Now()
	var out []types.PoolView
	for _, sh := range s.shards {
		sh.mu.RLock()
		for _, p := range sh.pools {
			if withinConsistentWindow(p, now, maxAge, latest, maxSlotSpread) {
				out = append(out, p.Clone())
			}
		}
		sh.mu.RUnlock()
	}
	return out
}

func (s *shardedMap) SnapshotFresh(maxAge time.Duration) []types.PoolView {
	now := time.Now()
	var out []types.PoolView
	for _, sh := range s.shards {
		sh.mu.RLock()
		for _, p := range sh.pools {
			if now.Sub(p.ObservedAt) <= maxAge {
				out = append(out, p.Clone())
			}
		}
		sh.mu.RUnlock()
	}
	return out
}
