// Package state implements the State Layer (spec §4.1): the single source
// of truth for the latest-known PoolView per pool, reachable from any
// number of concurrent writers (the Subscriber) and readers (the
// Coordinator and Calculator).
//
// Two conforming implementations are provided behind the Layer interface:
// lockMap (one RWMutex guarding one map — simple, fine under ~100
// updates/s) and shardedMap (N independently-locked shards — required
// above that rate). Both compute the same change-ratio policy and publish
// to the same kind of bounded, lossy event bus; callers pick one via New.
package state

import (
	"math"
	"time"

	"github.com/solana-zh/arbcore/pkg/types"
)

// noiseFloor is the minimum relative price change worth an event, per
// spec §4.1's change-ratio policy.
const noiseFloor = 1e-5

// Layer is the State Layer contract (spec §4.1).
type Layer interface {
	// Update overwrites the entry for pool.PoolId, computes change_ratio
	// against the prior entry, and publishes a PriceChangeEvent unless the
	// change-ratio policy suppresses it.
	Update(pool types.PoolView)

	// Get returns the current entry for id and whether it exists.
	Get(id types.PoolId) (types.PoolView, bool)

	// ByPair returns every known pool quoting pair, in no particular order.
	ByPair(pair types.Pair) []types.PoolView

	// Subscribe returns a bounded, lossy event stream and an unsubscribe
	// func that must be called to release it.
	Subscribe() (<-chan types.PriceChangeEvent, func())

	// SnapshotConsistent returns every entry observed within maxAge and
	// within maxSlotSpread of LatestSlot(). Empty if LatestSlot() == 0.
	SnapshotConsistent(maxAge time.Duration, maxSlotSpread uint64) []types.PoolView

	// SnapshotFresh is the degraded-mode snapshot: age-filtered only.
	SnapshotFresh(maxAge time.Duration) []types.PoolView

	// LatestSlot is the maximum Slot across all entries, 0 if empty.
	LatestSlot() uint64
}

// Kind selects a Layer implementation.
type Kind string

const (
	KindLockMap   Kind = "lockmap"
	KindShardedMap Kind = "shardedmap"
)

// New constructs a Layer of the given kind. shardCount is only consulted
// for KindShardedMap; a non-positive value selects defaultShardCount (32).
func New(kind Kind, shardCount int) Layer {
	switch kind {
	case KindShardedMap:
		return newShardedMap(shardCount)
	default:
		return newLockMap()
	}
}

// changeEvent computes the change-ratio policy and reports whether an
// event should be published for the old -> new transition of id/pair.
func changeEvent(id types.PoolId, pair types.Pair, old types.PoolView, hadOld bool, next types.PoolView) (types.PriceChangeEvent, bool) {
	if !hadOld {
		return types.PriceChangeEvent{
			PoolId:      id,
			Pair:        pair,
			OldPrice:    0,
			NewPrice:    next.MidPrice,
			ChangeRatio: 1.0,
			ObservedAt:  next.ObservedAt,
		}, true
	}

	oldPrice := old.MidPrice
	newPrice := next.MidPrice

	if oldPrice == 0 || newPrice == 0 {
		if oldPrice == 0 && newPrice == 0 {
			return types.PriceChangeEvent{}, false
		}
		return types.PriceChangeEvent{
			PoolId:      id,
			Pair:        pair,
			OldPrice:    oldPrice,
			NewPrice:    newPrice,
			ChangeRatio: 1.0,
			ObservedAt:  next.ObservedAt,
		}, true
	}

	r := math.Abs(newPrice-oldPrice) / oldPrice
	if math.IsNaN(r) || math.IsInf(r, 0) {
		return types.PriceChangeEvent{}, false
	}
	if r < noiseFloor {
		return types.PriceChangeEvent{}, false
	}

	return types.PriceChangeEvent{
		PoolId:      id,
		Pair:        pair,
		OldPrice:    oldPrice,
		NewPrice:    newPrice,
		ChangeRatio: r,
		ObservedAt:  next.ObservedAt,
	}, true
}

func withinConsistentWindow(p types.PoolView, now time.Time, maxAge time.Duration, latestSlot, maxSlotSpread uint64) bool {
	if now.Sub(p.ObservedAt) > maxAge {
		return false
	}
	if latestSlot < p.Slot {
		return true // same-writer clock skew; never exclude on this basis
	}
	return latestSlot-p.Slot <= maxSlotSpread
}
