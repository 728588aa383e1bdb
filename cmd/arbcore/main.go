// Command arbcore wires the five components (decoder registry, State Layer,
// Subscriber, Coordinator, Calculator) against a configured pool list and
// streams discovered arbitrage paths to stdout. Downstream consumption
// (alerting, execution) is out of scope; this is the reference wiring the
// teacher's main.go would have grown into had it outlived one swap script.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/solana-zh/arbcore/pkg/calculator"
	"github.com/solana-zh/arbcore/pkg/config"
	"github.com/solana-zh/arbcore/pkg/coordinator"
	"github.com/solana-zh/arbcore/pkg/decoder"
	"github.com/solana-zh/arbcore/pkg/sol"
	"github.com/solana-zh/arbcore/pkg/state"
	"github.com/solana-zh/arbcore/pkg/subscriber"
	"github.com/solana-zh/arbcore/pkg/types"
)

func main() {
	configPath := flag.String("config", "", "path to a config file overriding the built-in defaults")
	flag.Parse()

	logger, err := zap.NewProduction()
	if err != nil {
		panic(err)
	}
	defer logger.Sync()

	cfg, err := config.Load(*configPath)
	if err != nil {
		logger.Fatal("failed to load config", zap.Error(err))
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	worldview := state.New(cfg.StateKind(), cfg.State.ShardCount)

	pullClient := sol.NewClient(cfg.RPC.HTTPEndpoint, cfg.RPC.RequestsPerSecond)

	registry := decoder.NewRegistry(
		decoder.RaydiumAMMDecoder{},
		decoder.RaydiumCLMMDecoder{},
		decoder.RaydiumCPMMDecoder{},
		decoder.MeteoraDLMMDecoder{},
		decoder.PumpAMMDecoder{},
		decoder.OpenBookV2Decoder{},
	)

	pools := toPoolConfigs(cfg.Pools)
	sub := subscriber.New(cfg.RPC.WebsocketEndpoint, pools, registry, worldview, pullClient, cfg.ToSubscriberConfig(), logger.Named("subscriber"))

	events, unsubscribe := worldview.Subscribe()
	defer unsubscribe()
	coord := coordinator.New(cfg.ToCoordinatorConfig(), events, logger.Named("coordinator"))
	calc := calculator.New(worldview, cfg.ToCalculatorConfig(), logger.Named("calculator"))

	go func() {
		if err := sub.Run(ctx); err != nil && ctx.Err() == nil {
			logger.Error("subscriber stopped", zap.Error(err))
		}
	}()
	go coord.Run(ctx)

	logger.Info("arbcore started", zap.Int("pools", len(pools)))
	runCalculationLoop(ctx, calc, coord.Tasks(), logger)
	logger.Info("arbcore shutting down")
}

// runCalculationLoop drains Coordinator tasks and prints every candidate
// path found above the configured ROI threshold; at-most-one task is ever
// in flight here since the Calculator is synchronous.
func runCalculationLoop(ctx context.Context, calc *calculator.Calculator, tasks <-chan types.CalculationTask, logger *zap.Logger) {
	enc := json.NewEncoder(os.Stdout)
	for {
		select {
		case <-ctx.Done():
			return
		case task, ok := <-tasks:
			if !ok {
				return
			}
			start := time.Now()
			paths := calc.Run(task)
			logger.Debug("calculation task finished", zap.Int("paths", len(paths)), zap.Duration("took", time.Since(start)))
			for _, p := range paths {
				if err := enc.Encode(p); err != nil {
					logger.Warn("failed to encode arbitrage path", zap.Error(err))
				}
			}
		}
	}
}

func toPoolConfigs(pools []config.PoolConfig) []types.PoolConfig {
	out := make([]types.PoolConfig, 0, len(pools))
	for _, p := range pools {
		pc := types.PoolConfig{
			PoolId:  types.PoolId(p.PoolId),
			Address: p.Address,
			Venue:   types.VenueTag(p.Venue),
			Pair:    types.Pair{Base: types.Token(p.BaseToken), Quote: types.Token(p.QuoteToken)},
		}
		if p.VaultBase != "" && p.VaultQuote != "" {
			pc.VaultAddresses = &types.VaultAddresses{Base: p.VaultBase, Quote: p.VaultQuote}
		}
		out = append(out, pc)
	}
	return out
}
