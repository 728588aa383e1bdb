package decoder

import (
	"sync"

	"github.com/solana-zh/arbcore/pkg/types"
)

// FailureCounter tallies decode failures deduplicated by {venue, reason},
// per spec §7's DecodeFailure/VaultParseFailure disposition: count, don't
// propagate, keep the prior PoolView.
type FailureCounter struct {
	mu     sync.Mutex
	counts map[failureKey]uint64
}

type failureKey struct {
	venue  types.VenueTag
	reason string
}

// NewFailureCounter returns an empty FailureCounter.
func NewFailureCounter() *FailureCounter {
	return &FailureCounter{counts: make(map[failureKey]uint64)}
}

// Record increments the counter for {venue, reason} and returns the new total.
func (f *FailureCounter) Record(venue types.VenueTag, reason string) uint64 {
	f.mu.Lock()
	defer f.mu.Unlock()
	key := failureKey{venue: venue, reason: reason}
	f.counts[key]++
	return f.counts[key]
}

// Snapshot returns a copy of all counts, keyed "venue/reason".
func (f *FailureCounter) Snapshot() map[string]uint64 {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make(map[string]uint64, len(f.counts))
	for k, v := range f.counts {
		out[string(k.venue)+"/"+k.reason] = v
	}
	return out
}
