package state

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/solana-zh/arbcore/pkg/types"
)

func layers(t *testing.T) map[string]Layer {
	t.Helper()
	return map[string]Layer{
		"lockmap":    New(KindLockMap, 0),
		"shardedmap": New(KindShardedMap, 4),
	}
}

func TestLayer_FirstObservationEmitsFullChange(t *testing.T) {
	for name, l := range layers(t) {
		t.Run(name, func(t *testing.T) {
			ch, unsub := l.Subscribe()
			defer unsub()

			l.Update(types.PoolView{PoolId: "p1", Pair: types.Pair{Base: "A", Quote: "B"}, MidPrice: 1.5, ObservedAt: time.Now(), Slot: 10})

			select {
			case ev := <-ch:
				assert.Equal(t, types.PoolId("p1"), ev.PoolId)
				assert.Equal(t, 1.0, ev.ChangeRatio)
				assert.Equal(t, 0.0, ev.OldPrice)
				assert.Equal(t, 1.5, ev.NewPrice)
			case <-time.After(time.Second):
				t.Fatal("expected event")
			}
		})
	}
}

func TestLayer_NoiseFloorSuppressesSmallChange(t *testing.T) {
	for name, l := range layers(t) {
		t.Run(name, func(t *testing.T) {
			ch, unsub := l.Subscribe()
			defer unsub()

			l.Update(types.PoolView{PoolId: "p1", MidPrice: 1.0, ObservedAt: time.Now(), Slot: 1})
			<-ch // drain first-observation event

			l.Update(types.PoolView{PoolId: "p1", MidPrice: 1.0 + 1e-8, ObservedAt: time.Now(), Slot: 2})

			select {
			case ev := <-ch:
				t.Fatalf("expected no event, got %+v", ev)
			case <-time.After(50 * time.Millisecond):
			}
		})
	}
}

func TestLayer_CrossingZeroEmits(t *testing.T) {
	for name, l := range layers(t) {
		t.Run(name, func(t *testing.T) {
			ch, unsub := l.Subscribe()
			defer unsub()

			l.Update(types.PoolView{PoolId: "p1", MidPrice: 2.0, ObservedAt: time.Now(), Slot: 1})
			<-ch

			l.Update(types.PoolView{PoolId: "p1", MidPrice: 0, ObservedAt: time.Now(), Slot: 2})
			select {
			case ev := <-ch:
				assert.Equal(t, 1.0, ev.ChangeRatio)
				assert.Equal(t, 0.0, ev.NewPrice)
			case <-time.After(time.Second):
				t.Fatal("expected crossing-out-of-defined event")
			}
		})
	}
}

func TestLayer_BothZeroSuppressed(t *testing.T) {
	for name, l := range layers(t) {
		t.Run(name, func(t *testing.T) {
			ch, unsub := l.Subscribe()
			defer unsub()

			l.Update(types.PoolView{PoolId: "p1", MidPrice: 0, ObservedAt: time.Now(), Slot: 1})
			<-ch // first-observation event always fires

			l.Update(types.PoolView{PoolId: "p1", MidPrice: 0, ObservedAt: time.Now(), Slot: 2})
			select {
			case ev := <-ch:
				t.Fatalf("expected no event, got %+v", ev)
			case <-time.After(50 * time.Millisecond):
			}
		})
	}
}

func TestLayer_GetAndByPair(t *testing.T) {
	for name, l := range layers(t) {
		t.Run(name, func(t *testing.T) {
			pair := types.Pair{Base: "A", Quote: "B"}
			l.Update(types.PoolView{PoolId: "p1", Pair: pair, MidPrice: 1, ObservedAt: time.Now(), Slot: 1})
			l.Update(types.PoolView{PoolId: "p2", Pair: pair, MidPrice: 2, ObservedAt: time.Now(), Slot: 1})
			l.Update(types.PoolView{PoolId: "p3", Pair: types.Pair{Base: "X", Quote: "Y"}, MidPrice: 3, ObservedAt: time.Now(), Slot: 1})

			p, ok := l.Get("p1")
			require.True(t, ok)
			assert.Equal(t, 1.0, p.MidPrice)

			_, ok = l.Get("missing")
			assert.False(t, ok)

			pools := l.ByPair(pair)
			assert.Len(t, pools, 2)
		})
	}
}

func TestLayer_LatestSlotAndSnapshotConsistent(t *testing.T) {
	for name, l := range layers(t) {
		t.Run(name, func(t *testing.T) {
			assert.Equal(t, uint64(0), l.LatestSlot())
			assert.Empty(t, l.SnapshotConsistent(time.Minute, 10))

			now := time.Now()
			l.Update(types.PoolView{PoolId: "p1", MidPrice: 1, ObservedAt: now, Slot: 100})
			l.Update(types.PoolView{PoolId: "p2", MidPrice: 2, ObservedAt: now, Slot: 80})

			assert.Equal(t, uint64(100), l.LatestSlot())

			consistent := l.SnapshotConsistent(time.Minute, 10)
			assert.Len(t, consistent, 1)
			assert.Equal(t, types.PoolId("p1"), consistent[0].PoolId)

			consistent = l.SnapshotConsistent(time.Minute, 50)
			assert.Len(t, consistent, 2)
		})
	}
}

func TestLayer_SnapshotFreshIgnoresSlot(t *testing.T) {
	for name, l := range layers(t) {
		t.Run(name, func(t *testing.T) {
			stale := time.Now().Add(-time.Hour)
			l.Update(types.PoolView{PoolId: "p1", MidPrice: 1, ObservedAt: stale, Slot: 1})
			l.Update(types.PoolView{PoolId: "p2", MidPrice: 2, ObservedAt: time.Now(), Slot: 999})

			fresh := l.SnapshotFresh(time.Minute)
			assert.Len(t, fresh, 1)
			assert.Equal(t, types.PoolId("p2"), fresh[0].PoolId)
		})
	}
}

func TestLayer_SubscribeIsLossyNotBlocking(t *testing.T) {
	for name, l := range layers(t) {
		t.Run(name, func(t *testing.T) {
			ch, unsub := l.Subscribe()
			defer unsub()

			for i := 0; i < eventBusCapacity*2; i++ {
				l.Update(types.PoolView{
					PoolId:     "p1",
					MidPrice:   float64(i + 1),
					ObservedAt: time.Now(),
					Slot:       uint64(i),
				})
			}

			assert.LessOrEqual(t, len(ch), eventBusCapacity)
		})
	}
}

func TestChangeEventZeroDeltaSuppressed(t *testing.T) {
	old := types.PoolView{MidPrice: 1}

	_, ok := changeEvent("p", types.Pair{}, old, true, types.PoolView{MidPrice: 1 + 1e-3})
	assert.True(t, ok) // sanity: a real change still emits

	_, ok = changeEvent("p", types.Pair{}, old, true, types.PoolView{MidPrice: 1})
	assert.False(t, ok) // identical price: zero change, below noise floor
}
