// Package config loads the tunables for every long-lived component
// (Coordinator timings, Calculator thresholds, State Layer variant, RPC
// endpoints) from a file or in-memory defaults. Grounded on the rest of
// the retrieval pack's viper usage (MetalBlockchain-coreth, luxfi-evm,
// ethereum-go-ethereum all load config this way) since the teacher itself
// hardcodes everything in package vars; no CLI flags are defined, per
// spec §1's CLI-wiring non-goal.
package config

import (
	"fmt"
	"time"

	"github.com/spf13/viper"

	"github.com/solana-zh/arbcore/pkg/calculator"
	"github.com/solana-zh/arbcore/pkg/coordinator"
	"github.com/solana-zh/arbcore/pkg/state"
	"github.com/solana-zh/arbcore/pkg/subscriber"
)

// Config is the root configuration, one struct per long-lived component.
type Config struct {
	RPC        RPCConfig        `mapstructure:"rpc"`
	State      StateConfig      `mapstructure:"state"`
	Subscriber SubscriberConfig `mapstructure:"subscriber"`
	Coordinator CoordinatorConfig `mapstructure:"coordinator"`
	Calculator CalculatorConfig `mapstructure:"calculator"`
	Pools      []PoolConfig     `mapstructure:"pools"`
}

// RPCConfig names the cluster endpoints (spec §6.3's pull path and §6.2's
// push path are separate connections, possibly separate providers).
type RPCConfig struct {
	HTTPEndpoint      string `mapstructure:"http_endpoint"`
	WebsocketEndpoint string `mapstructure:"websocket_endpoint"`
	RequestsPerSecond int    `mapstructure:"requests_per_second"`
}

// StateConfig selects the State Layer implementation (spec §4.1: "choice
// is configuration-driven").
type StateConfig struct {
	Kind       string `mapstructure:"kind"` // "lockmap" or "shardedmap"
	ShardCount int    `mapstructure:"shard_count"`
}

// SubscriberConfig tunes the push-path reconnect policy (spec §4.2).
type SubscriberConfig struct {
	ReconnectBaseDelay time.Duration `mapstructure:"reconnect_base_delay"`
	ReconnectMaxDelay  time.Duration `mapstructure:"reconnect_max_delay"`
}

// CoordinatorConfig mirrors coordinator.Config field-for-field so it can
// round-trip through mapstructure without a translation layer.
type CoordinatorConfig struct {
	TickInterval         time.Duration `mapstructure:"tick_interval"`
	HighThreshold        float64       `mapstructure:"high_threshold"`
	Cooldown             time.Duration `mapstructure:"cooldown"`
	CalcChannelCapacity  int           `mapstructure:"calc_channel_capacity"`
	EventChannelCapacity int           `mapstructure:"event_channel_capacity"`
}

// CalculatorConfig mirrors calculator.Config field-for-field.
type CalculatorConfig struct {
	EnableBFS              bool          `mapstructure:"enable_bfs"`
	EnableBF               bool          `mapstructure:"enable_bf"`
	BFSMaxHops             int           `mapstructure:"bfs_max_hops"`
	BFMaxHops              int           `mapstructure:"bf_max_hops"`
	MinROIPercent          float64       `mapstructure:"min_roi_percent"`
	ProbeNotional          float64       `mapstructure:"probe_notional"`
	SnapshotMaxAge         time.Duration `mapstructure:"snapshot_max_age"`
	SnapshotMaxSlotSpread  uint64        `mapstructure:"snapshot_max_slot_spread"`
	DegradedMaxAge         time.Duration `mapstructure:"degraded_max_age"`
	IncludeOrderbookVenues bool          `mapstructure:"include_orderbook_venues"`
}

// PoolConfig is one statically configured pool to watch (spec §4.2's
// startup list). Venue may be left empty to request auto-detect.
type PoolConfig struct {
	PoolId     string `mapstructure:"pool_id"`
	Address    string `mapstructure:"address"`
	Venue      string `mapstructure:"venue"`
	BaseToken  string `mapstructure:"base_token"`
	QuoteToken string `mapstructure:"quote_token"`
	VaultBase  string `mapstructure:"vault_base"`
	VaultQuote string `mapstructure:"vault_quote"`
}

// Default returns the built-in defaults, the same ones each component's
// own DefaultConfig already specifies, collected under one root so a
// config file only needs to override what differs.
func Default() Config {
	coordDefault := coordinator.DefaultConfig()
	calcDefault := calculator.DefaultConfig()
	subDefault := subscriber.DefaultConfig()

	return Config{
		RPC: RPCConfig{
			HTTPEndpoint:      "https://api.mainnet-beta.solana.com",
			WebsocketEndpoint: "wss://api.mainnet-beta.solana.com",
			RequestsPerSecond: 10,
		},
		State: StateConfig{
			Kind:       string(state.KindShardedMap),
			ShardCount: 16,
		},
		Subscriber: SubscriberConfig{
			ReconnectBaseDelay: subDefault.ReconnectBaseDelay,
			ReconnectMaxDelay:  subDefault.ReconnectMaxDelay,
		},
		Coordinator: CoordinatorConfig{
			TickInterval:         coordDefault.TickInterval,
			HighThreshold:        coordDefault.HighThreshold,
			Cooldown:             coordDefault.Cooldown,
			CalcChannelCapacity:  coordDefault.CalcChannelCapacity,
			EventChannelCapacity: coordDefault.EventChannelCapacity,
		},
		Calculator: CalculatorConfig{
			EnableBFS:              calcDefault.EnableBFS,
			EnableBF:               calcDefault.EnableBF,
			BFSMaxHops:             calcDefault.BFSMaxHops,
			BFMaxHops:              calcDefault.BFMaxHops,
			MinROIPercent:          calcDefault.MinROIPercent,
			ProbeNotional:          calcDefault.ProbeNotional,
			SnapshotMaxAge:         calcDefault.SnapshotMaxAge,
			SnapshotMaxSlotSpread:  calcDefault.SnapshotMaxSlotSpread,
			DegradedMaxAge:         calcDefault.DegradedMaxAge,
			IncludeOrderbookVenues: calcDefault.IncludeOrderbookVenues,
		},
	}
}

// Load reads configuration from path (any format viper supports — yaml,
// toml, json, by extension) layered on top of Default, or returns
// Default unmodified if path is empty. Every failure path returns an
// error; Load never panics.
func Load(path string) (Config, error) {
	cfg := Default()
	if path == "" {
		return cfg, nil
	}

	v := viper.New()
	v.SetConfigFile(path)
	if err := v.ReadInConfig(); err != nil {
		return Config{}, fmt.Errorf("read config %s: %w", path, err)
	}
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("unmarshal config %s: %w", path, err)
	}
	return cfg, nil
}

// ToCalculatorConfig converts the mapstructure-friendly shape into
// calculator.Config.
func (c Config) ToCalculatorConfig() calculator.Config {
	return calculator.Config{
		EnableBFS:              c.Calculator.EnableBFS,
		EnableBF:               c.Calculator.EnableBF,
		BFSMaxHops:             c.Calculator.BFSMaxHops,
		BFMaxHops:              c.Calculator.BFMaxHops,
		MinROIPercent:          c.Calculator.MinROIPercent,
		ProbeNotional:          c.Calculator.ProbeNotional,
		SnapshotMaxAge:         c.Calculator.SnapshotMaxAge,
		SnapshotMaxSlotSpread:  c.Calculator.SnapshotMaxSlotSpread,
		DegradedMaxAge:         c.Calculator.DegradedMaxAge,
		IncludeOrderbookVenues: c.Calculator.IncludeOrderbookVenues,
	}
}

// ToCoordinatorConfig converts into coordinator.Config.
func (c Config) ToCoordinatorConfig() coordinator.Config {
	return coordinator.Config{
		TickInterval:         c.Coordinator.TickInterval,
		HighThreshold:        c.Coordinator.HighThreshold,
		Cooldown:             c.Coordinator.Cooldown,
		CalcChannelCapacity:  c.Coordinator.CalcChannelCapacity,
		EventChannelCapacity: c.Coordinator.EventChannelCapacity,
	}
}

// ToSubscriberConfig converts into subscriber.Config.
func (c Config) ToSubscriberConfig() subscriber.Config {
	return subscriber.Config{
		ReconnectBaseDelay: c.Subscriber.ReconnectBaseDelay,
		ReconnectMaxDelay:  c.Subscriber.ReconnectMaxDelay,
	}
}

// StateKind resolves the configured State Layer variant.
func (c Config) StateKind() state.Kind {
	if c.State.Kind == string(state.KindLockMap) {
		return state.KindLockMap
	}
	return state.KindShardedMap
}
