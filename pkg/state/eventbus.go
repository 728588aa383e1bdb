package state

import (
	"sync"

	"github.com/solana-zh/arbcore/pkg/types"
)

// eventBusCapacity is the per-subscriber channel depth. A slow subscriber
// drops the oldest-pending sends rather than blocking the writer that
// produced them (spec §4.1: "bounded, lossy").
const eventBusCapacity = 256

// eventBus is a multi-consumer, bounded, lossy fan-out of PriceChangeEvent.
// Publish never blocks: a subscriber that can't keep up misses events
// instead of stalling update().
type eventBus struct {
	mu   sync.Mutex
	subs map[int]chan types.PriceChangeEvent
	next int
}

func newEventBus() *eventBus {
	return &eventBus{subs: make(map[int]chan types.PriceChangeEvent)}
}

func (b *eventBus) subscribe() (<-chan types.PriceChangeEvent, func()) {
	b.mu.Lock()
	defer b.mu.Unlock()

	id := b.next
	b.next++
	ch := make(chan types.PriceChangeEvent, eventBusCapacity)
	b.subs[id] = ch

	unsubscribe := func() {
		b.mu.Lock()
		defer b.mu.Unlock()
		if _, ok := b.subs[id]; ok {
			delete(b.subs, id)
			close(ch)
		}
	}
	return ch, unsubscribe
}

// publish delivers ev to every current subscriber. A subscriber whose
// channel is full loses its oldest pending event to make room for ev; no
// error results, per
// spec §4.1 ("publish failure when no subscriber exists is not an error").
func (b *eventBus) publish(ev types.PriceChangeEvent) {
	b.mu.Lock()
	defer b.mu.Unlock()

	for _, ch := range b.subs {
		select {
		case ch <- ev:
		default:
			select {
			case <-ch:
			default:
			}
			select {
			case ch <- ev:
			default:
			}
		}
	}
}
