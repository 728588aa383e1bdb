// Package subscriber implements the Subscriber (C3): the live push
// ingestion path, its subscription registries, and the vault-balance
// cache (spec §4.2). Grounded on original_source/.../websocket.rs's
// WebSocketClient, translated from a single monolithic struct with eight
// independently-locked maps into a Registry + VaultReader pair sharing one
// mutex each, and from its connect-retry loop into an idiomatic
// context-cancelable Run with capped exponential backoff.
package subscriber

import (
	"context"
	"encoding/base64"
	"fmt"
	"math/rand"
	"time"

	"go.uber.org/zap"

	"github.com/solana-zh/arbcore/pkg/decoder"
	"github.com/solana-zh/arbcore/pkg/sol"
	"github.com/solana-zh/arbcore/pkg/state"
	"github.com/solana-zh/arbcore/pkg/types"
)

// PullClient is the pull-mode transport of spec §6.3, satisfied directly by
// *pkg/sol.Client. Abstracted so the Subscriber can be tested without a
// live RPC endpoint.
type PullClient interface {
	GetAccount(ctx context.Context, address string) (sol.AccountSnapshot, error)
}

// Config tunes reconnect behavior; everything else about a run is fixed by
// the pools and dependencies passed to New.
type Config struct {
	// ReconnectBaseDelay and ReconnectMaxDelay bound the exponential
	// backoff spec §4.2 requires after a connection drop.
	ReconnectBaseDelay time.Duration
	ReconnectMaxDelay  time.Duration
}

// DefaultConfig matches the Rust ancestor's fixed 5s retry, generalized
// into a capped exponential backoff so a prolonged outage doesn't hammer
// the endpoint every 5 seconds forever.
func DefaultConfig() Config {
	return Config{ReconnectBaseDelay: 500 * time.Millisecond, ReconnectMaxDelay: 30 * time.Second}
}

// Subscriber owns the live push channel, the subscription registry, and
// the VaultReader (spec §4.2).
type Subscriber struct {
	endpoint string
	cfg      Config
	pools    []types.PoolConfig

	decoders  *decoder.Registry
	worldview state.Layer
	pull      PullClient
	failures  *decoder.FailureCounter
	logger    *zap.Logger

	registry *Registry
	vaults   *VaultReader

	dial func(ctx context.Context, url string) (Transport, error)

	// transport is the current connection's send half, set for the
	// lifetime of one runOnce call. handleNotification runs on the same
	// goroutine as the Recv loop that sets it, so no lock is needed.
	transport Transport
}

// New builds a Subscriber. dial defaults to the real websocket Transport;
// tests override it with an in-memory fake.
func New(endpoint string, pools []types.PoolConfig, decoders *decoder.Registry, worldview state.Layer, pull PullClient, cfg Config, logger *zap.Logger) *Subscriber {
	if logger == nil {
		logger = zap.NewNop()
	}
	s := &Subscriber{
		endpoint:  endpoint,
		cfg:       cfg,
		pools:     pools,
		decoders:  decoders,
		worldview: worldview,
		pull:      pull,
		failures:  decoder.NewFailureCounter(),
		logger:    logger,
		registry:  NewRegistry(),
		vaults:    NewVaultReader(),
		dial:      Dial,
	}
	for _, p := range pools {
		s.registry.RegisterPool(p)
	}
	return s
}

// Run connects, runs the startup protocol, and processes notifications
// until ctx is canceled, reconnecting with exponential backoff on any
// connection failure (spec §4.2 failure semantics).
func (s *Subscriber) Run(ctx context.Context) error {
	attempt := 0
	for {
		if ctx.Err() != nil {
			return ctx.Err()
		}

		err := s.runOnce(ctx)
		if ctx.Err() != nil {
			return ctx.Err()
		}

		s.registry.ResetForReconnect()
		delay := backoff(s.cfg, attempt)
		attempt++
		s.logger.Warn("subscriber connection lost, reconnecting",
			zap.Error(err), zap.Duration("backoff", delay), zap.Int("attempt", attempt))

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(delay):
		}
	}
}

// backoff is capped exponential with full jitter, so many Subscribers
// restarting at once (a shared RPC provider outage) don't reconnect in
// lockstep.
func backoff(cfg Config, attempt int) time.Duration {
	d := cfg.ReconnectBaseDelay << attempt
	if d <= 0 || d > cfg.ReconnectMaxDelay {
		d = cfg.ReconnectMaxDelay
	}
	return time.Duration(rand.Int63n(int64(d) + 1))
}

// runOnce owns a single connection's lifetime: connect, bootstrap, read
// loop. Any returned error triggers a reconnect in Run.
func (s *Subscriber) runOnce(ctx context.Context) error {
	transport, err := s.dial(ctx, s.endpoint)
	if err != nil {
		return fmt.Errorf("dial: %w", err)
	}
	s.transport = transport
	defer func() { s.transport = nil; transport.Close() }()

	if err := s.subscribeAll(transport); err != nil {
		return fmt.Errorf("startup subscribe: %w", err)
	}

	go s.bootstrap(ctx)

	for {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		raw, err := transport.Recv()
		if err != nil {
			return fmt.Errorf("recv: %w", err)
		}
		s.handleFrame(raw)
	}
}

// subscribeAll sends one accountSubscribe request per configured pool
// (spec §4.2 startup step 1), plus one per vault for every pool whose vault
// addresses are already cached on its handle — after a reconnect, that
// re-establishes the vault subscriptions the server dropped with the old
// connection.
func (s *Subscriber) subscribeAll(transport Transport) error {
	for _, p := range s.pools {
		reqId := s.registry.NewRequestId()
		s.registry.BindPoolRequest(reqId, p.PoolId)
		if err := transport.Send(newSubscribeFrame(reqId, p.Address)); err != nil {
			return fmt.Errorf("subscribe %s: %w", p.PoolId, err)
		}
		if h, ok := s.registry.Handle(p.PoolId); ok && h.vaultBase != "" && h.vaultQuote != "" {
			s.subscribeVaults(h.vaultBase, h.vaultQuote, p.PoolId)
		}
	}
	return nil
}

// bootstrap proactively fetches every configured pool (and any
// pre-declared vaults) over the pull path, in parallel, so low-volume
// venues aren't left undefined until their first push (spec §4.2 startup
// steps 2-3).
func (s *Subscriber) bootstrap(ctx context.Context) {
	for _, p := range s.pools {
		go s.bootstrapPool(ctx, p)
	}
}

func (s *Subscriber) bootstrapPool(ctx context.Context, p types.PoolConfig) {
	acc, err := s.pull.GetAccount(ctx, p.Address)
	if err != nil {
		s.logger.Debug("bootstrap fetch failed", zap.String("pool", string(p.PoolId)), zap.Error(err))
		return
	}

	if p.VaultAddresses != nil {
		s.registry.EnterVaultWiring(p.PoolId, acc.Data, p.VaultAddresses.Base, p.VaultAddresses.Quote)
		s.vaults.RegisterPoolVault(p.VaultAddresses.Base, p.PoolId)
		s.vaults.RegisterPoolVault(p.VaultAddresses.Quote, p.PoolId)
		s.bootstrapVault(ctx, p.VaultAddresses.Base)
		s.bootstrapVault(ctx, p.VaultAddresses.Quote)
	}

	s.decodeAndStore(p.PoolId, p.Venue, acc.Data, acc.Slot, time.Now())
}

func (s *Subscriber) bootstrapVault(ctx context.Context, address string) {
	acc, err := s.pull.GetAccount(ctx, address)
	if err != nil {
		s.logger.Debug("bootstrap vault fetch failed", zap.String("vault", address), zap.Error(err))
		return
	}
	owners, err := s.updateVault(address, acc.Data, time.Now())
	if err != nil {
		return
	}
	for _, poolId := range owners {
		s.registry.MarkVaultsLive(poolId, s.vaults)
		s.recomputePool(poolId, acc.Slot, time.Now())
	}
}

// handleFrame dispatches one inbound websocket frame (spec §4.2 "per push
// notification").
func (s *Subscriber) handleFrame(raw []byte) {
	frame, err := parseInboundFrame(raw)
	if err != nil {
		s.logger.Warn("malformed frame", zap.Error(err))
		return
	}

	switch {
	case frame.isConfirmation():
		s.handleConfirmation(frame)
	case frame.isNotification():
		s.handleNotification(frame)
	}
}

func (s *Subscriber) handleConfirmation(frame inboundFrame) {
	subId, err := frame.subscriptionId()
	if err != nil {
		s.logger.Warn("malformed subscribe confirmation", zap.Error(err))
		return
	}
	if _, ok := s.registry.Confirm(*frame.Id, subId); !ok {
		s.logger.Debug("confirmation for unknown request id", zap.Uint64("request_id", *frame.Id))
	}
}

func (s *Subscriber) handleNotification(frame inboundFrame) {
	params := frame.Params
	if len(params.Result.Value.Data) == 0 {
		return
	}
	data, err := base64.StdEncoding.DecodeString(params.Result.Value.Data[0])
	if err != nil {
		s.logger.Warn("malformed base64 account data", zap.Error(err))
		return
	}
	slot := params.Result.Context.Slot
	observedAt := time.Now()

	entry, ok := s.registry.Lookup(params.Subscription)
	if !ok {
		s.logger.Warn("notification for unknown subscription", zap.Uint64("subscription_id", params.Subscription))
		return
	}

	// Vault subscriptions route to the VaultReader, never the decoder
	// (spec §4.2 vault-update handling); a payload that doesn't parse as a
	// token account (a CLOB bids/asks account wired the same way, for
	// instance) is simply not treated as a balance update.
	if entry.kind != kindPool {
		owners, err := s.updateVault(entry.vaultAddress, data, observedAt)
		if err != nil {
			return
		}
		for _, poolId := range owners {
			s.registry.MarkVaultsLive(poolId, s.vaults)
			s.recomputePool(poolId, slot, observedAt)
		}
		return
	}

	s.registry.UpdateCachedBytes(entry.poolId, data)
	handle, ok := s.registry.Handle(entry.poolId)
	if !ok {
		return
	}

	decoded, err := s.decode(handle.config.Venue, data)
	if err != nil {
		s.failures.Record(handle.config.Venue, "deserialize_failed")
		s.logger.Debug("decode failed, retaining prior PoolView", zap.String("pool", string(entry.poolId)), zap.Error(err))
		return
	}

	if decoded.Reserves.Kind == decoder.ReservesFromVaults && !s.vaultsRegistered(decoded.Reserves.VaultBase, decoded.Reserves.VaultQuote) {
		s.registry.EnterVaultWiring(entry.poolId, data, decoded.Reserves.VaultBase, decoded.Reserves.VaultQuote)
		s.vaults.RegisterPoolVault(decoded.Reserves.VaultBase, entry.poolId)
		s.vaults.RegisterPoolVault(decoded.Reserves.VaultQuote, entry.poolId)
		s.subscribeVaults(decoded.Reserves.VaultBase, decoded.Reserves.VaultQuote, entry.poolId)
		// Commit the pool now with whatever reserves are available
		// (possibly zero); it is recomputed once vault balances arrive.
	}

	view := buildPoolView(entry.poolId, decoded, s.vaults, slot, observedAt)
	s.worldview.Update(view)
}

func (s *Subscriber) vaultsRegistered(base, quote string) bool {
	return s.vaults.IsRegistered(base) && s.vaults.IsRegistered(quote)
}

// subscribeVaults fires accountSubscribe requests for a pool's two vault
// addresses, binding each request id to {poolId, address} so a later
// confirmation resolves to a subscription id the VaultReader can be
// updated through (spec §4.2 step 3 / "do not block" rule — the pool
// itself is already committed to state with whatever reserves it has).
// A reconnect mid-flight drops these bindings along with everything else;
// ResetForReconnect puts the handle back in NEW, and the next startup pass
// (subscribeAll) resubscribes the pool and, from the addresses cached on
// its handle, both of its vaults.
func (s *Subscriber) subscribeVaults(base, quote string, poolId types.PoolId) {
	if s.transport == nil {
		return
	}
	for _, addr := range []struct {
		address string
		isBase  bool
	}{{base, true}, {quote, false}} {
		reqId := s.registry.NewRequestId()
		s.registry.BindVaultRequest(reqId, poolId, addr.isBase, addr.address)
		if err := s.transport.Send(newSubscribeFrame(reqId, addr.address)); err != nil {
			s.logger.Warn("vault subscribe failed", zap.String("vault", addr.address), zap.Error(err))
		}
	}
}

// updateVault parses a vault payload and reports its owning pools. Errors
// (wrong layout — a CLOB bids/asks account masquerading as a vault length,
// for instance) are swallowed by the caller; the subscriber simply doesn't
// treat the payload as a vault update.
func (s *Subscriber) updateVault(address string, data []byte, observedAt time.Time) ([]types.PoolId, error) {
	if address == "" {
		return nil, fmt.Errorf("no vault address for this subscription")
	}
	_, owners, err := s.vaults.Update(address, data, observedAt)
	return owners, err
}

// recomputePool re-decodes a pool's cached raw bytes with the latest vault
// balances and calls State.update, per spec §4.2's vault-update handling.
// It extracts the short snapshot (config + cached bytes) from the
// Registry, then releases that lock before decoding, per spec §5's
// anti-nested-lock rule.
func (s *Subscriber) recomputePool(poolId types.PoolId, slot uint64, observedAt time.Time) {
	handle, ok := s.registry.Handle(poolId)
	if !ok || len(handle.rawBytes) == 0 {
		return
	}

	decoded, err := s.decode(handle.config.Venue, handle.rawBytes)
	if err != nil {
		s.failures.Record(handle.config.Venue, "deserialize_failed")
		return
	}

	view := buildPoolView(poolId, decoded, s.vaults, slot, observedAt)
	s.worldview.Update(view)
}

func (s *Subscriber) decodeAndStore(poolId types.PoolId, venue types.VenueTag, data []byte, slot uint64, observedAt time.Time) {
	decoded, err := s.decode(venue, data)
	if err != nil {
		s.failures.Record(venue, "deserialize_failed")
		return
	}
	view := buildPoolView(poolId, decoded, s.vaults, slot, observedAt)
	s.worldview.Update(view)
}

func (s *Subscriber) decode(venue types.VenueTag, data []byte) (decoder.DecodedPool, error) {
	pool, _, err := s.decoders.Decode(data, venue)
	return pool, err
}

// Failures exposes the decode-failure counter for a metrics/log endpoint.
func (s *Subscriber) Failures() map[string]uint64 { return s.failures.Snapshot() }
