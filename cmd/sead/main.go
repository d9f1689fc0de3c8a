package main

import (
	"flag"
	"fmt"
	"log/slog"
	"math/big"
	"os"
	"strings"

	"seaescrow/config"
	"seaescrow/core"
	"seaescrow/crypto"
	"seaescrow/observability/logging"
	"seaescrow/rpc"
	"seaescrow/storage"
)

func main() {
	configFile := flag.String("config", "./config.toml", "Path to the configuration file")
	flag.Parse()

	env := strings.TrimSpace(os.Getenv("SEA_ENV"))
	logger := logging.Setup("sead", env)

	cfg, err := config.Load(*configFile)
	if err != nil {
		logger.Error("Failed to load config", slog.Any("error", err))
		os.Exit(1)
	}

	db, err := storage.NewLevelDB(cfg.DataDir)
	if err != nil {
		logger.Error("Failed to open database", slog.Any("error", err))
		os.Exit(1)
	}
	defer db.Close()

	node := core.NewNode(db)

	if err := applyGenesis(node, cfg, logger); err != nil {
		logger.Error("Failed to apply genesis", slog.Any("error", err))
		os.Exit(1)
	}

	logger.Info("Starting RPC server",
		slog.String("address", cfg.RPCAddress),
		slog.String("network", cfg.NetworkName))

	server := rpc.NewServer(node)
	if err := server.Start(cfg.RPCAddress); err != nil {
		logger.Error("RPC server exited", slog.Any("error", err))
		os.Exit(1)
	}
}

// applyGenesis registers configured assets and seeds allocations. Assets that
// already exist in state are left untouched, so restarts are no-ops.
func applyGenesis(node *core.Node, cfg *config.Config, logger *slog.Logger) error {
	for _, asset := range cfg.GenesisAssets {
		symbol := strings.ToUpper(strings.TrimSpace(asset.Symbol))
		if node.AssetExists(symbol) {
			continue
		}
		var authority []byte
		if asset.MintAuthority != "" {
			addr, err := crypto.DecodeAddress(asset.MintAuthority)
			if err != nil {
				return fmt.Errorf("asset %s: %w", symbol, err)
			}
			authority = addr.Bytes()
		}
		if err := node.RegisterAsset(symbol, asset.Name, asset.Decimals, authority); err != nil {
			return fmt.Errorf("register asset %s: %w", symbol, err)
		}
		logger.Info("Registered genesis asset", slog.String("asset", symbol))

		for _, alloc := range cfg.GenesisAllocs {
			if !strings.EqualFold(strings.TrimSpace(alloc.Asset), symbol) {
				continue
			}
			addr, err := crypto.DecodeAddress(alloc.Account)
			if err != nil {
				return fmt.Errorf("allocation for %s: %w", symbol, err)
			}
			amount, ok := new(big.Int).SetString(strings.TrimSpace(alloc.Amount), 10)
			if !ok {
				return fmt.Errorf("allocation for %s: invalid amount %q", symbol, alloc.Amount)
			}
			var account [20]byte
			copy(account[:], addr.Bytes())
			if err := node.GenesisMint(account, symbol, amount); err != nil {
				return fmt.Errorf("allocation for %s: %w", symbol, err)
			}
			logger.Info("Seeded genesis balance",
				slog.String("asset", symbol),
				slog.String("account", alloc.Account),
				slog.String("amount", amount.String()))
		}
	}
	return nil
}
