// Package types holds the data model shared by every layer of the
// arbitrage-discovery core: the decoder registry, the state layer, the
// subscriber, the coordinator and the calculator all speak this package
// instead of each other's internals.
package types

import "time"

// Token is an opaque mint address. Equality is byte-exact string equality.
type Token string

// PoolId is an opaque pool account address, unique per venue.
type PoolId string

// VenueTag identifies a pool's protocol family. It doubles as the
// decoder registry's routing key (spec §6.1), so every protocol the
// decoder package supports needs its own distinct tag even when two
// protocols share an economic model — PoolDecoder.Venue() values must be
// unique across a Registry's decoder set, or all but one silently lose
// their routing slot. amm.FeeTable and PoolView consumers that only care
// about the economic model (constant-product vs. CLMM vs. CLOB vs.
// stableswap) key off the tag the same way; VenueAmmConstantProduct
// itself stays as a generic fallback for callers that don't need
// protocol-level distinction (config defaults, tests).
type VenueTag string

const (
	VenueAmmConstantProduct VenueTag = "AmmConstantProduct"
	VenueRaydiumAmm         VenueTag = "RaydiumAmm"
	VenueRaydiumCpmm        VenueTag = "RaydiumCpmm"
	VenuePumpAmm            VenueTag = "PumpAmm"
	VenueMeteoraDlmm        VenueTag = "MeteoraDlmm"
	VenueClmmSqrtPrice      VenueTag = "ClmmSqrtPrice"
	VenueClobOrderbook      VenueTag = "ClobOrderbook"
	VenueStableSwap         VenueTag = "StableSwap"
)

// Pair is the canonical (base, quote) pair as declared by a pool.
type Pair struct {
	Base  Token
	Quote Token
}

// PoolView is the single normalized representation the core operates on,
// regardless of which venue family produced it.
//
// If VaultAddresses is set, BaseReserve/QuoteReserve are derived from the
// latest satellite-vault observations rather than the pool account itself.
type PoolView struct {
	PoolId       PoolId
	Venue        VenueTag
	Pair         Pair
	BaseReserve  uint64
	QuoteReserve uint64
	BaseDecimals uint8
	QuoteDecimals uint8
	// MidPrice is quote-per-base, decimals-adjusted. Zero means "currently
	// undefined" — the pool is retained but excluded from cycle search.
	MidPrice       float64
	FeeRate        float64
	VaultAddresses *VaultAddresses
	ObservedAt     time.Time
	// Slot is the chain slot the underlying data was observed at; 0 means
	// unknown. Monotonically non-decreasing per PoolId, per source
	// (pool-account updates vs. vault-account updates are separate sources).
	Slot uint64
}

// VaultAddresses names the two satellite accounts a vault-linked pool's
// reserves live in.
type VaultAddresses struct {
	Base  string
	Quote string
}

// PoolConfig is one entry of the Subscriber's startup configuration: which
// account to watch, which decoder to route it to (or "unknown" for
// auto-detect), and optionally vault addresses already known out of band
// (spec §4.2 step 3) so price can become defined before the first push.
type PoolConfig struct {
	PoolId         PoolId
	Address        string
	Venue          VenueTag
	Pair           Pair
	VaultAddresses *VaultAddresses
}

// Clone returns a deep-enough copy of p for safe concurrent reads: callers
// of State.get/snapshot must never observe a PoolView that a concurrent
// update() is still mutating.
func (p PoolView) Clone() PoolView {
	if p.VaultAddresses != nil {
		v := *p.VaultAddresses
		p.VaultAddresses = &v
	}
	return p
}

// Defined reports whether the pool currently carries a usable price.
func (p PoolView) Defined() bool {
	return p.MidPrice != 0
}

// Step is one hop of an ArbitragePath.
type Step struct {
	PoolId      PoolId
	Venue       VenueTag
	InputToken  Token
	OutputToken Token
	InputAmount float64
	OutputAmount float64
	FeeRate     float64
}

// ArbitragePath is a closed trading cycle: StartToken == EndToken.
type ArbitragePath struct {
	Steps []Step

	StartToken Token
	EndToken   Token

	// InputAmount is the probe notional fed into step 0; OutputAmount is
	// the realized notional out of the last step, in the same token.
	InputAmount  float64
	OutputAmount float64

	GrossProfit    float64
	EstimatedFees  float64
	NetProfit      float64
	ROIPercent     float64

	DiscoveredAt time.Time
}

// Hops returns the number of steps in the path.
func (a ArbitragePath) Hops() int { return len(a.Steps) }

// Signature returns the ordered pool-id sequence used for cross-scanner
// deduplication (spec §4.4 step 3, §8 property 7).
func (a ArbitragePath) Signature() string {
	s := make([]byte, 0, len(a.Steps)*16)
	for i, step := range a.Steps {
		if i > 0 {
			s = append(s, '|')
		}
		s = append(s, step.PoolId...)
	}
	return string(s)
}

// Score is the default ranking scalar from spec §4.4 step 5:
// 0.6*net_profit + 0.3*roi/100 + 0.1/hops.
func (a ArbitragePath) Score() float64 {
	hops := a.Hops()
	if hops == 0 {
		return 0
	}
	return 0.6*a.NetProfit + 0.3*(a.ROIPercent/100) + 0.1/float64(hops)
}

// PriceChangeEvent is published by the State Layer (C2) and consumed by
// the Coordinator (C4).
type PriceChangeEvent struct {
	PoolId       PoolId
	Pair         Pair
	OldPrice     float64
	NewPrice     float64
	ChangeRatio  float64
	ObservedAt   time.Time
}

// TriggerKind distinguishes why a CalculationTask was created.
type TriggerKind string

const (
	TriggerClock TriggerKind = "clock"
	TriggerEvent TriggerKind = "event"
)

// Trigger carries the reason a scan was scheduled.
type Trigger struct {
	Kind         TriggerKind
	SourcePool   PoolId      // set only for TriggerEvent
	ChangeRatio  float64     // set only for TriggerEvent
}

// CalculationTask is produced by the Coordinator (C4) and consumed by the
// Calculator (C5). At most one is ever "in flight" at the computation
// stage (single-slot channel capacity).
type CalculationTask struct {
	Trigger   Trigger
	CreatedAt time.Time
}
