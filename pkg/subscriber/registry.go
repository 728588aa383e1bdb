package subscriber

import (
	"sync"

	"github.com/solana-zh/arbcore/pkg/types"
)

// handleState is the pool-handle state machine of spec §4.2.
type handleState int

const (
	stateNew handleState = iota
	stateSubPending
	stateLive
	stateVaultWiring
)

// poolHandle tracks one configured pool through its subscription lifecycle
// plus whatever raw bytes and vault addresses it has most recently seen,
// so a later vault update can re-run the decoder without a second RPC
// round trip.
type poolHandle struct {
	config     types.PoolConfig
	state      handleState
	rawBytes   []byte
	vaultBase  string
	vaultQuote string
}

// kind distinguishes what a request/subscription id names, mirroring the
// Rust ancestor's separate pool and vault maps collapsed into one registry
// keyed by id namespace instead of by map identity.
type entryKind int

const (
	kindPool entryKind = iota
	kindVaultBase
	kindVaultQuote
)

type registryEntry struct {
	kind         entryKind
	poolId       types.PoolId
	vaultAddress string // set only for kindVaultBase/kindVaultQuote
}

// Registry owns the request-id/subscription-id bindings for both pool and
// vault subscriptions (spec §4.2: "the subscription registry (request-id
// ↔ pool-id and request-id ↔ vault-address ↔ owning-pool-id)"), plus the
// pool-handle state machine.
type Registry struct {
	mu sync.Mutex

	pending   map[uint64]registryEntry // request_id -> entry, awaiting confirmation
	confirmed map[uint64]registryEntry // subscription_id -> entry, confirmed

	handles map[types.PoolId]*poolHandle

	nextRequestId uint64
}

// NewRegistry builds an empty Registry.
func NewRegistry() *Registry {
	return &Registry{
		pending:       make(map[uint64]registryEntry),
		confirmed:     make(map[uint64]registryEntry),
		handles:       make(map[types.PoolId]*poolHandle),
		nextRequestId: 1,
	}
}

// NewRequestId hands out the next unique request id for a subscribe frame.
func (r *Registry) NewRequestId() uint64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	id := r.nextRequestId
	r.nextRequestId++
	return id
}

// RegisterPool seeds a handle in state NEW for a configured pool.
func (r *Registry) RegisterPool(cfg types.PoolConfig) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.handles[cfg.PoolId] = &poolHandle{config: cfg, state: stateNew}
}

// BindPoolRequest records a pending request_id -> pool_id binding and
// advances the handle to SUB_PENDING.
func (r *Registry) BindPoolRequest(requestId uint64, poolId types.PoolId) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.pending[requestId] = registryEntry{kind: kindPool, poolId: poolId}
	if h, ok := r.handles[poolId]; ok {
		h.state = stateSubPending
	}
}

// BindVaultRequest records a pending vault subscription request, tagged by
// which side of the pool it is and which vault address it names — the
// address is carried on the entry so a later notification can be routed
// straight to VaultReader.Update without a separate id-to-address table.
func (r *Registry) BindVaultRequest(requestId uint64, poolId types.PoolId, base bool, address string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	kind := kindVaultQuote
	if base {
		kind = kindVaultBase
	}
	r.pending[requestId] = registryEntry{kind: kind, poolId: poolId, vaultAddress: address}
}

// Confirm promotes a pending request_id to a confirmed subscription_id.
// For a pool confirmation, the handle moves to LIVE. Returns the entry so
// the caller knows what was confirmed, and false if requestId was unknown
// (a notification arriving for a request this Subscriber never sent, or
// one already superseded by a reconnect).
func (r *Registry) Confirm(requestId, subscriptionId uint64) (registryEntry, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	entry, ok := r.pending[requestId]
	if !ok {
		return registryEntry{}, false
	}
	delete(r.pending, requestId)
	r.confirmed[subscriptionId] = entry

	if entry.kind == kindPool {
		if h, ok := r.handles[entry.poolId]; ok && h.state == stateSubPending {
			h.state = stateLive
		}
	}
	return entry, true
}

// Lookup resolves a confirmed subscription_id.
func (r *Registry) Lookup(subscriptionId uint64) (registryEntry, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	e, ok := r.confirmed[subscriptionId]
	return e, ok
}

// Handle returns a copy of the current handle state and cached fields for
// poolId, used to decide what to do with a pool push without holding the
// registry lock while decoding (spec §5's anti-nested-lock rule).
func (r *Registry) Handle(poolId types.PoolId) (poolHandle, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	h, ok := r.handles[poolId]
	if !ok {
		return poolHandle{}, false
	}
	return *h, true
}

// EnterVaultWiring records that poolId has declared vault addresses not
// yet registered, caches its raw bytes for later recomputation, and moves
// the handle to VAULT_WIRING.
func (r *Registry) EnterVaultWiring(poolId types.PoolId, rawBytes []byte, base, quote string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	h, ok := r.handles[poolId]
	if !ok {
		return
	}
	h.rawBytes = rawBytes
	h.vaultBase = base
	h.vaultQuote = quote
	h.state = stateVaultWiring
}

// UpdateCachedBytes refreshes the raw pool bytes kept for a LIVE or
// VAULT_WIRING handle, used on every pool push so a later vault-triggered
// recompute always re-decodes the most recent pool account state.
func (r *Registry) UpdateCachedBytes(poolId types.PoolId, rawBytes []byte) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if h, ok := r.handles[poolId]; ok {
		h.rawBytes = rawBytes
	}
}

// MarkVaultsLive moves a VAULT_WIRING handle to LIVE once both the base and
// quote vault have reported at least one balance (spec §4.2: "both vaults
// confirmed & first balances seen --> LIVE"). Called once per single vault
// update, so a handle whose sibling vault hasn't reported yet stays in
// VAULT_WIRING until that update arrives too.
func (r *Registry) MarkVaultsLive(poolId types.PoolId, vaults *VaultReader) {
	r.mu.Lock()
	defer r.mu.Unlock()
	h, ok := r.handles[poolId]
	if !ok || h.state != stateVaultWiring {
		return
	}
	if _, ok := vaults.Amount(h.vaultBase); !ok {
		return
	}
	if _, ok := vaults.Amount(h.vaultQuote); !ok {
		return
	}
	h.state = stateLive
}

// AllPools returns every registered pool's configuration, for bootstrap.
func (r *Registry) AllPools() []types.PoolConfig {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]types.PoolConfig, 0, len(r.handles))
	for _, h := range r.handles {
		out = append(out, h.config)
	}
	return out
}

// ResetForReconnect invalidates every subscription_id binding (spec §4.2:
// "Connection drop: all subscription_id bindings are invalidated... Pool
// handles in VAULT_WIRING must restart from SUB_PENDING"). Pool handles
// fall back to NEW so the startup protocol resubscribes them; a handle
// that was mid vault-wiring loses that state since the server no longer
// holds the vault subscriptions either.
func (r *Registry) ResetForReconnect() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.pending = make(map[uint64]registryEntry)
	r.confirmed = make(map[uint64]registryEntry)
	for _, h := range r.handles {
		h.state = stateNew
	}
}
