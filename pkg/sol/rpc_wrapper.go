package sol

import (
	"context"
	"fmt"

	"github.com/gagliardetto/solana-go"
	"github.com/gagliardetto/solana-go/rpc"
)

// AccountSnapshot is the pull-mode result shape of spec §6.3:
// get_account(address) -> {data, slot}.
type AccountSnapshot struct {
	Data []byte
	Slot uint64
}

// GetAccount fetches one account's data and the slot it was observed at,
// rate limited like every other RPC call this client makes.
func (c *Client) GetAccount(ctx context.Context, address string) (AccountSnapshot, error) {
	if err := c.rateLimiter.Wait(ctx); err != nil {
		return AccountSnapshot{}, err
	}
	pubkey, err := solana.PublicKeyFromBase58(address)
	if err != nil {
		return AccountSnapshot{}, fmt.Errorf("invalid account address %q: %w", address, err)
	}

	opts := &rpc.GetAccountInfoOpts{
		Commitment: rpc.CommitmentConfirmed,
		Encoding:   solana.EncodingBase64,
	}
	resp, err := c.rpcClient.GetAccountInfoWithOpts(ctx, pubkey, opts)
	if err != nil {
		return AccountSnapshot{}, fmt.Errorf("get_account %s: %w", address, err)
	}
	if resp == nil || resp.Value == nil {
		return AccountSnapshot{}, fmt.Errorf("get_account %s: account not found", address)
	}

	return AccountSnapshot{Data: resp.Value.Data.GetBinary(), Slot: resp.Context.Slot}, nil
}

// GetAccounts fetches many accounts in one batched RPC call, used during
// bootstrap when every configured pool is fetched "in parallel" (spec §4.2
// step 2) — batching through GetMultipleAccounts is the transport-level
// equivalent of that fan-out and spends a single rate-limiter token instead
// of one per pool.
func (c *Client) GetAccounts(ctx context.Context, addresses []string) ([]AccountSnapshot, error) {
	if err := c.rateLimiter.Wait(ctx); err != nil {
		return nil, err
	}
	pubkeys := make([]solana.PublicKey, len(addresses))
	for i, addr := range addresses {
		pk, err := solana.PublicKeyFromBase58(addr)
		if err != nil {
			return nil, fmt.Errorf("invalid account address %q: %w", addr, err)
		}
		pubkeys[i] = pk
	}

	opts := &rpc.GetMultipleAccountsOpts{Commitment: rpc.CommitmentConfirmed, Encoding: solana.EncodingBase64}
	resp, err := c.rpcClient.GetMultipleAccountsWithOpts(ctx, pubkeys, opts)
	if err != nil {
		return nil, fmt.Errorf("get_multiple_accounts: %w", err)
	}

	out := make([]AccountSnapshot, len(addresses))
	for i, v := range resp.Value {
		if v == nil {
			continue
		}
		out[i] = AccountSnapshot{Data: v.Data.GetBinary(), Slot: resp.Context.Slot}
	}
	return out, nil
}
