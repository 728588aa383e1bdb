package subscriber

import (
	"encoding/binary"
	"fmt"
	"sync"
	"time"

	"github.com/solana-zh/arbcore/pkg/types"
)

// splTokenAccountLen is the base SPL Token account layout size. Token-2022
// accounts carry the same base layout plus a variable-length extensions
// tail, so callers should treat "at least this many bytes" as the vault
// signal, not an exact match (spec §4.2: "165 bytes, or 165+extensions").
const splTokenAccountLen = 165

// splTokenAmountOffset is where the little-endian u64 balance lives within
// the base SPL Token account layout (mint:32, owner:32, amount:8, ...).
const splTokenAmountOffset = 64

// vaultAmount decodes an SPL Token account's balance field. Token-2022
// extensions live past the base 165 bytes and are ignored, per spec §4.2.
func vaultAmount(data []byte) (uint64, error) {
	if len(data) < splTokenAccountLen {
		return 0, fmt.Errorf("vault account too short: %d bytes, want at least %d", len(data), splTokenAccountLen)
	}
	return binary.LittleEndian.Uint64(data[splTokenAmountOffset : splTokenAmountOffset+8]), nil
}

// vaultBalance is one observed vault amount plus its timestamp.
type vaultBalance struct {
	amount     uint64
	observedAt time.Time
}

// VaultReader owns the satellite-vault-account balance cache (spec §4.2:
// "the in-memory VaultReader map (vault-address -> amount)"). A vault may
// be referenced by more than one pool (rare but not excluded by the spec),
// so the reverse index is a set, not a single pool id.
type VaultReader struct {
	mu        sync.Mutex
	balances  map[string]vaultBalance
	ownerPools map[string]map[types.PoolId]struct{}
}

// NewVaultReader builds an empty VaultReader.
func NewVaultReader() *VaultReader {
	return &VaultReader{
		balances:   make(map[string]vaultBalance),
		ownerPools: make(map[string]map[types.PoolId]struct{}),
	}
}

// RegisterPoolVault records that poolId depends on vault at address.
// Idempotent: calling it again for the same pair is a no-op.
func (v *VaultReader) RegisterPoolVault(address string, poolId types.PoolId) {
	v.mu.Lock()
	defer v.mu.Unlock()

	pools, ok := v.ownerPools[address]
	if !ok {
		pools = make(map[types.PoolId]struct{})
		v.ownerPools[address] = pools
	}
	pools[poolId] = struct{}{}
}

// IsRegistered reports whether address has at least one owning pool.
func (v *VaultReader) IsRegistered(address string) bool {
	v.mu.Lock()
	defer v.mu.Unlock()
	_, ok := v.ownerPools[address]
	return ok
}

// Update parses raw token-account bytes and records the balance. Returns
// the owning pool ids at the moment of update, taken under the same
// critical section so the caller gets a consistent view without having to
// re-lock (spec §5: extract a short snapshot, then release, before doing
// any further work).
func (v *VaultReader) Update(address string, data []byte, observedAt time.Time) (amount uint64, owners []types.PoolId, err error) {
	amount, err = vaultAmount(data)
	if err != nil {
		return 0, nil, err
	}

	v.mu.Lock()
	defer v.mu.Unlock()
	v.balances[address] = vaultBalance{amount: amount, observedAt: observedAt}
	owners = make([]types.PoolId, 0, len(v.ownerPools[address]))
	for id := range v.ownerPools[address] {
		owners = append(owners, id)
	}
	return amount, owners, nil
}

// Amount returns the last observed balance for address, if any.
func (v *VaultReader) Amount(address string) (uint64, bool) {
	v.mu.Lock()
	defer v.mu.Unlock()
	b, ok := v.balances[address]
	return b.amount, ok
}
