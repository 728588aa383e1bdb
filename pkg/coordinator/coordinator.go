// Package coordinator implements the Coordinator (C4): the hybrid
// clock-driven + event-driven scheduler that decides when to ask the
// Calculator for a fresh scan (spec §4.3). It is deliberately the only
// component that may drop work on the floor — a busy Calculator is not an
// error, just a skipped trigger.
package coordinator

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/solana-zh/arbcore/pkg/types"
)

// Config mirrors the Rust ancestor's CoordinatorConfig field-for-field.
type Config struct {
	// TickInterval is the clock-driven fallback scan period.
	TickInterval time.Duration
	// HighThreshold is the change_ratio fraction above which an event is
	// eligible to trigger a scan (e.g. 0.002 for 0.2%).
	HighThreshold float64
	// Cooldown is the minimum gap between two event-triggered scans.
	Cooldown time.Duration
	// CalcChannelCapacity bounds the task channel; 1 prevents task pileup.
	CalcChannelCapacity int
	// EventChannelCapacity bounds the inbound price-event channel.
	EventChannelCapacity int
}

// DefaultConfig matches the Rust ancestor's defaults.
func DefaultConfig() Config {
	return Config{
		TickInterval:         100 * time.Millisecond,
		HighThreshold:        0.002,
		Cooldown:             20 * time.Millisecond,
		CalcChannelCapacity:  1,
		EventChannelCapacity: 1024,
	}
}

// Stats are the running counters exposed for observability.
type Stats struct {
	TotalEvents     uint64
	TriggeredEvents uint64
	SkippedTriggers uint64
	ClockTriggers   uint64
	EventTriggers   uint64
	FailedSends     uint64
}

// Coordinator runs the hybrid clock+event trigger loop.
type Coordinator struct {
	cfg    Config
	events <-chan types.PriceChangeEvent
	tasks  chan types.CalculationTask
	logger *zap.Logger

	mu          sync.Mutex
	lastTrigger time.Time
	stats       Stats
}

// New builds a Coordinator. events is typically a State Layer subscription;
// the returned Tasks() channel is consumed by the Calculator.
func New(cfg Config, events <-chan types.PriceChangeEvent, logger *zap.Logger) *Coordinator {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Coordinator{
		cfg:    cfg,
		events: events,
		tasks:  make(chan types.CalculationTask, cfg.CalcChannelCapacity),
		logger: logger,
		// First trigger must always pass the cooldown check.
		lastTrigger: time.Now().Add(-cfg.Cooldown - time.Millisecond),
	}
}

// Tasks returns the channel the Calculator should read from.
func (c *Coordinator) Tasks() <-chan types.CalculationTask {
	return c.tasks
}

// Run blocks, dispatching clock ticks and price-change events until ctx
// is cancelled.
func (c *Coordinator) Run(ctx context.Context) {
	c.logger.Info("coordinator started",
		zap.Duration("tick_interval", c.cfg.TickInterval),
		zap.Float64("high_threshold", c.cfg.HighThreshold),
		zap.Duration("cooldown", c.cfg.Cooldown),
	)

	ticker := time.NewTicker(c.cfg.TickInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return

		case <-ticker.C:
			c.dispatchClock()

		case ev, ok := <-c.events:
			if !ok {
				return
			}
			c.handleEvent(ev)
		}
	}
}

func (c *Coordinator) dispatchClock() {
	task := types.CalculationTask{
		Trigger:   types.Trigger{Kind: types.TriggerClock},
		CreatedAt: time.Now(),
	}

	select {
	case c.tasks <- task:
		c.bump(func(s *Stats) { s.ClockTriggers++ })
	default:
		c.logger.Warn("calculator busy, clock trigger skipped")
		c.bump(func(s *Stats) { s.FailedSends++ })
	}
}

func (c *Coordinator) handleEvent(ev types.PriceChangeEvent) {
	c.bump(func(s *Stats) { s.TotalEvents++ })

	if ev.ChangeRatio <= c.cfg.HighThreshold {
		return
	}
	c.bump(func(s *Stats) { s.TriggeredEvents++ })

	if !c.tryArmCooldown() {
		c.logger.Debug("event trigger skipped, in cooldown", zap.String("pool_id", string(ev.PoolId)))
		c.bump(func(s *Stats) { s.SkippedTriggers++ })
		return
	}

	task := types.CalculationTask{
		Trigger: types.Trigger{
			Kind:        types.TriggerEvent,
			SourcePool:  ev.PoolId,
			ChangeRatio: ev.ChangeRatio,
		},
		CreatedAt: time.Now(),
	}

	select {
	case c.tasks <- task:
		c.bump(func(s *Stats) { s.EventTriggers++ })
	default:
		c.logger.Warn("calculator busy, event trigger skipped", zap.String("pool_id", string(ev.PoolId)))
		c.bump(func(s *Stats) { s.FailedSends++ })
	}
}

// tryArmCooldown reports whether enough time has passed since the last
// trigger, and if so atomically resets the cooldown clock.
func (c *Coordinator) tryArmCooldown() bool {
	now := time.Now()
	c.mu.Lock()
	defer c.mu.Unlock()

	if now.Sub(c.lastTrigger) < c.cfg.Cooldown {
		return false
	}
	c.lastTrigger = now
	return true
}

func (c *Coordinator) bump(f func(*Stats)) {
	c.mu.Lock()
	f(&c.stats)
	c.mu.Unlock()
}

// Stats returns a snapshot of the running counters.
func (c *Coordinator) Stats() Stats {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.stats
}
