package state

import (
	"sync"
	"time"

	"github.com/solana-zh/arbcore/pkg/types"
)

// lockMap is the single-writer-lock conforming implementation: one
// RWMutex guards both the primary map and the pair index. Simple and
// sufficient below roughly 100 updates/s (spec §4.1).
type lockMap struct {
	mu   sync.RWMutex
	pools map[types.PoolId]types.PoolView
	byPair map[types.Pair]map[types.PoolId]struct{}
	latestSlot uint64

	bus *eventBus
}

func newLockMap() *lockMap {
	return &lockMap{
		pools:  make(map[types.PoolId]types.PoolView),
		byPair: make(map[types.Pair]map[types.PoolId]struct{}),
		bus:    newEventBus(),
	}
}

func (s *lockMap) Update(pool types.PoolView) {
	pool = pool.Clone()

	s.mu.Lock()
	old, hadOld := s.pools[pool.PoolId]
	s.pools[pool.PoolId] = pool

	set, ok := s.byPair[pool.Pair]
	if !ok {
		set = make(map[types.PoolId]struct{})
		s.byPair[pool.Pair] = set
	}
	set[pool.PoolId] = struct{}{}

	if pool.Slot > s.latestSlot {
		s.latestSlot = pool.Slot
	}
	s.mu.Unlock()

	if ev, ok := changeEvent(pool.PoolId, pool.Pair, old, hadOld, pool); ok {
		s.bus.publish(ev)
	}
}

func (s *lockMap) Get(id types.PoolId) (types.PoolView, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	p, ok := s.pools[id]
	if !ok {
		return types.PoolView{}, false
	}
	return p.Clone(), true
}

func (s *lockMap) ByPair(pair types.Pair) []types.PoolView {
	s.mu.RLock()
	defer s.mu.RUnlock()

	ids := s.byPair[pair]
	out := make([]types.PoolView, 0, len(ids))
	for id := range ids {
		out = append(out, s.pools[id].Clone())
	}
	return out
}

func (s *lockMap) Subscribe() (<-chan types.PriceChangeEvent, func()) {
	return s.bus.subscribe()
}

func (s *lockMap) LatestSlot() uint64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.latestSlot
}

func (s *lockMap) SnapshotConsistent(maxAge time.Duration, maxSlotSpread uint64) []types.PoolView {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.latestSlot == 0 {
		return nil
	}

	now := time.Now()
	out := make([]types.PoolView, 0, len(s.pools))
	for _, p := range s.pools {
		if withinConsistentWindow(p, now, maxAge, s.latestSlot, maxSlotSpread) {
			out = append(out, p.Clone())
		}
	}
	return out
}

func (s *lockMap) SnapshotFresh(maxAge time.Duration) []types.PoolView {
	s.mu.RLock()
	defer s.mu.RUnlock()

	now := time.Now()
	out := make([]types.PoolView, 0, len(s.pools))
	for _, p := range s.pools {
		if now.Sub(p.ObservedAt) <= maxAge {
			out = append(out, p.Clone())
		}
	}
	return out
}
