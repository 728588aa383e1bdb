package subscriber

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/solana-zh/arbcore/pkg/types"
)

func TestRegistry_MarkVaultsLive_WaitsForBothVaults(t *testing.T) {
	registry := NewRegistry()
	vaults := NewVaultReader()

	pool := types.PoolConfig{PoolId: "p1", Address: "PoolAddr1", Venue: types.VenueAmmConstantProduct}
	registry.RegisterPool(pool)
	registry.EnterVaultWiring(pool.PoolId, []byte{0x01}, "VaultBase1", "VaultQuote1")
	vaults.RegisterPoolVault("VaultBase1", pool.PoolId)
	vaults.RegisterPoolVault("VaultQuote1", pool.PoolId)

	h, ok := registry.Handle(pool.PoolId)
	require.True(t, ok)
	assert.Equal(t, stateVaultWiring, h.state)

	// Only the base vault has reported so far: the handle must stay in
	// VAULT_WIRING, not flip to LIVE on one of two vaults.
	_, _, err := vaults.Update("VaultBase1", vaultAccountBytes(1_000), time.Now())
	require.NoError(t, err)
	registry.MarkVaultsLive(pool.PoolId, vaults)

	h, ok = registry.Handle(pool.PoolId)
	require.True(t, ok)
	assert.Equal(t, stateVaultWiring, h.state, "handle must not go LIVE until both vaults have reported")

	// The quote vault reports too: now both balances are known and the
	// handle may move to LIVE.
	_, _, err = vaults.Update("VaultQuote1", vaultAccountBytes(2_000), time.Now())
	require.NoError(t, err)
	registry.MarkVaultsLive(pool.PoolId, vaults)

	h, ok = registry.Handle(pool.PoolId)
	require.True(t, ok)
	assert.Equal(t, stateLive, h.state)
}
