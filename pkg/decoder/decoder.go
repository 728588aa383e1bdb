// Package decoder implements C1, the PoolDecoder registry: pluggable,
// pure, stateless decoders that turn raw on-chain account bytes into a
// normalized DecodedPool. Grounded on the teacher's per-venue pool
// structs (pkg/pool/raydium, pkg/pool/meteora, pkg/pool/pump), generalized
// from "one concrete struct per venue with its own Quote/BuildSwap" into
// one capability (PoolDecoder) with variant PriceModel output, per spec
// §6.1 and the re-architecture note in §9 ("Polymorphic pool types").
package decoder

import (
	"errors"
	"fmt"
	"sort"

	"github.com/solana-zh/arbcore/pkg/types"
)

// ErrDecodeFailed is wrapped by every decoder's failure return, so callers
// can errors.Is(err, ErrDecodeFailed) regardless of venue.
var ErrDecodeFailed = errors.New("decode failed")

// ReservesKind distinguishes a pool whose reserves are embedded directly
// in the decoded account from one whose reserves live in satellite vault
// accounts (spec §3, §6.1: Reserves = Direct(u64,u64) | FromVaults(Address, Address)).
type ReservesKind int

const (
	ReservesDirect ReservesKind = iota
	ReservesFromVaults
)

// Reserves is the sum type DecodedPool.Reserves per spec §6.1.
type Reserves struct {
	Kind ReservesKind

	// Valid when Kind == ReservesDirect.
	BaseAmount  uint64
	QuoteAmount uint64

	// Valid when Kind == ReservesFromVaults.
	VaultBase  string
	VaultQuote string
}

// PriceModelKind distinguishes the pricing function family.
type PriceModelKind int

const (
	PriceModelConstantProduct PriceModelKind = iota
	PriceModelSqrtPrice
	PriceModelOrderbookMid
	PriceModelStableSwap
	PriceModelBinStep
)

// PriceModel is the sum type DecodedPool.PriceModel per spec §6.1.
type PriceModel struct {
	Kind PriceModelKind
	Fee  float64 // valid for every kind when the venue supplies an explicit fee; 0 means "use the default"

	// Valid when Kind == PriceModelSqrtPrice.
	SqrtPriceX64 float64 // already converted from the on-chain Q64.64 fixed point
	Liquidity    float64

	// Valid when Kind == PriceModelOrderbookMid.
	Bid, Ask           float64
	BidDepth, AskDepth float64

	// Valid when Kind == PriceModelStableSwap.
	AmplificationCoefficient float64

	// Valid when Kind == PriceModelBinStep (Meteora DLMM): price is a
	// function of the active bin id and bin step, not a continuous curve.
	ActiveBinId int32
	BinStep     uint16
}

// DecodedPool is the pure output of a PoolDecoder (spec §6.1).
type DecodedPool struct {
	Venue         types.VenueTag
	Pair          types.Pair
	BaseDecimals  uint8
	QuoteDecimals uint8
	Reserves      Reserves
	PriceModel    PriceModel
}

// PoolDecoder decodes raw account bytes for one venue family. Decoders are
// pure functions: no network calls, no shared mutable state.
type PoolDecoder interface {
	// Venue identifies which VenueTag this decoder produces.
	Venue() types.VenueTag
	// Span is the expected account data length this decoder accepts, used
	// by AutoDetect to narrow candidates deterministically. A decoder that
	// accepts a range of lengths (e.g. "165 or 165+extensions") returns
	// the minimum and implements its own length check in Decode.
	Span() int
	// Decode turns raw account bytes into a DecodedPool, or an error
	// wrapping ErrDecodeFailed.
	Decode(data []byte) (DecodedPool, error)
}

// Registry holds one PoolDecoder per VenueTag and implements the
// auto_detect dispatcher of spec §6.1.
type Registry struct {
	decoders map[types.VenueTag]PoolDecoder
	// order is the deterministic auto-detect trial order: by ascending
	// Span(), ties broken by VenueTag so repeated runs are reproducible.
	order []types.VenueTag
}

// NewRegistry builds a Registry from the given decoders.
func NewRegistry(decoders ...PoolDecoder) *Registry {
	r := &Registry{decoders: make(map[types.VenueTag]PoolDecoder, len(decoders))}
	for _, d := range decoders {
		r.decoders[d.Venue()] = d
	}
	order := make([]types.VenueTag, 0, len(decoders))
	for venue := range r.decoders {
		order = append(order, venue)
	}
	sort.Slice(order, func(i, j int) bool {
		di, dj := r.decoders[order[i]], r.decoders[order[j]]
		if di.Span() != dj.Span() {
			return di.Span() < dj.Span()
		}
		return order[i] < order[j]
	})
	r.order = order
	return r
}

// Decode dispatches to the decoder registered for venueHint. An empty or
// "unknown" venueHint triggers AutoDetect.
func (r *Registry) Decode(data []byte, venueHint types.VenueTag) (DecodedPool, types.VenueTag, error) {
	if venueHint != "" && venueHint != "unknown" {
		d, ok := r.decoders[venueHint]
		if !ok {
			return DecodedPool{}, "", fmt.Errorf("%w: no decoder registered for venue %q", ErrDecodeFailed, venueHint)
		}
		pool, err := d.Decode(data)
		return pool, venueHint, err
	}
	return r.AutoDetect(data)
}

// AutoDetect tries decoders in deterministic order (by payload length,
// then venue tag) until one succeeds, per spec §6.1. Real account data for
// a given venue always arrives at that venue's exact account size, so an
// exact Span() match is tried first; decoders whose Decode only checks a
// minimum length (several venues carry trailing optional fields) are
// tried as a fallback, in the same order, only if no exact match decodes.
func (r *Registry) AutoDetect(data []byte) (DecodedPool, types.VenueTag, error) {
	var lastErr error
	for _, venue := range r.order {
		d := r.decoders[venue]
		if d.Span() != len(data) {
			continue
		}
		pool, err := d.Decode(data)
		if err == nil {
			return pool, venue, nil
		}
		lastErr = err
	}
	for _, venue := range r.order {
		d := r.decoders[venue]
		if d.Span() == len(data) {
			continue // already tried above
		}
		pool, err := d.Decode(data)
		if err == nil {
			return pool, venue, nil
		}
		lastErr = err
	}
	if lastErr == nil {
		lastErr = ErrDecodeFailed
	}
	return DecodedPool{}, "", fmt.Errorf("auto-detect: no decoder matched %d bytes: %w", len(data), lastErr)
}

// Get returns the decoder registered for venue, if any.
func (r *Registry) Get(venue types.VenueTag) (PoolDecoder, bool) {
	d, ok := r.decoders[venue]
	return d, ok
}
