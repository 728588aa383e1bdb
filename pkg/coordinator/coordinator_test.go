package coordinator

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/solana-zh/arbcore/pkg/types"
)

func TestCoordinator_ClockTrigger(t *testing.T) {
	cfg := DefaultConfig()
	cfg.TickInterval = 20 * time.Millisecond
	cfg.CalcChannelCapacity = 8

	events := make(chan types.PriceChangeEvent)
	c := New(cfg, events, nil)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go c.Run(ctx)

	time.Sleep(110 * time.Millisecond)
	cancel()

	clockCount := 0
drain:
	for {
		select {
		case task := <-c.Tasks():
			if task.Trigger.Kind == types.TriggerClock {
				clockCount++
			}
		default:
			break drain
		}
	}
	assert.GreaterOrEqual(t, clockCount, 2)
}

func TestCoordinator_EventTriggerAboveThreshold(t *testing.T) {
	cfg := DefaultConfig()
	cfg.TickInterval = time.Hour // effectively disable clock triggers
	cfg.HighThreshold = 0.001
	cfg.CalcChannelCapacity = 1

	events := make(chan types.PriceChangeEvent, 1)
	c := New(cfg, events, nil)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go c.Run(ctx)

	events <- types.PriceChangeEvent{PoolId: "pool1", ChangeRatio: 0.0015}

	select {
	case task := <-c.Tasks():
		require.Equal(t, types.TriggerEvent, task.Trigger.Kind)
		assert.Equal(t, types.PoolId("pool1"), task.Trigger.SourcePool)
		assert.InDelta(t, 0.0015, task.Trigger.ChangeRatio, 1e-9)
	case <-time.After(time.Second):
		t.Fatal("expected event-triggered task")
	}
}

func TestCoordinator_BelowThresholdIgnored(t *testing.T) {
	cfg := DefaultConfig()
	cfg.TickInterval = time.Hour
	cfg.HighThreshold = 0.002
	cfg.CalcChannelCapacity = 1

	events := make(chan types.PriceChangeEvent, 1)
	c := New(cfg, events, nil)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go c.Run(ctx)

	events <- types.PriceChangeEvent{PoolId: "pool1", ChangeRatio: 0.001}

	select {
	case task := <-c.Tasks():
		t.Fatalf("expected no task, got %+v", task)
	case <-time.After(50 * time.Millisecond):
	}

	stats := c.Stats()
	assert.Equal(t, uint64(1), stats.TotalEvents)
	assert.Equal(t, uint64(0), stats.TriggeredEvents)
}

func TestCoordinator_CooldownSkipsSecondTrigger(t *testing.T) {
	cfg := DefaultConfig()
	cfg.TickInterval = time.Hour
	cfg.HighThreshold = 0.0005
	cfg.Cooldown = 200 * time.Millisecond
	cfg.CalcChannelCapacity = 4

	events := make(chan types.PriceChangeEvent, 2)
	c := New(cfg, events, nil)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go c.Run(ctx)

	events <- types.PriceChangeEvent{PoolId: "pool1", ChangeRatio: 0.003}
	events <- types.PriceChangeEvent{PoolId: "pool2", ChangeRatio: 0.003}

	select {
	case task := <-c.Tasks():
		assert.Equal(t, types.PoolId("pool1"), task.Trigger.SourcePool)
	case <-time.After(time.Second):
		t.Fatal("expected first event to trigger")
	}

	select {
	case task := <-c.Tasks():
		t.Fatalf("expected second trigger to be skipped in cooldown, got %+v", task)
	case <-time.After(50 * time.Millisecond):
	}

	stats := c.Stats()
	assert.Equal(t, uint64(1), stats.EventTriggers)
	assert.Equal(t, uint64(1), stats.SkippedTriggers)
}

func TestCoordinator_CalculatorBusyCountsFailedSend(t *testing.T) {
	cfg := DefaultConfig()
	cfg.TickInterval = time.Hour
	cfg.HighThreshold = 0.0001
	cfg.CalcChannelCapacity = 1

	events := make(chan types.PriceChangeEvent, 2)
	c := New(cfg, events, nil)

	// Fill the task channel so the next send must fail.
	c.tasks <- types.CalculationTask{}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go c.Run(ctx)

	events <- types.PriceChangeEvent{PoolId: "pool1", ChangeRatio: 0.01}
	time.Sleep(50 * time.Millisecond)

	stats := c.Stats()
	assert.Equal(t, uint64(1), stats.FailedSends)
}
