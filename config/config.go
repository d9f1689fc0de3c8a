package config

import (
	"fmt"
	"math/big"
	"os"
	"path/filepath"
	"strings"

	"seaescrow/crypto"

	"github.com/BurntSushi/toml"
)

// GenesisAsset declares a ledger asset to register on first start.
type GenesisAsset struct {
	Symbol        string `toml:"Symbol"`
	Name          string `toml:"Name"`
	Decimals      uint8  `toml:"Decimals"`
	MintAuthority string `toml:"MintAuthority"`
}

// GenesisAlloc seeds a balance for an account on first start.
type GenesisAlloc struct {
	Account string `toml:"Account"`
	Asset   string `toml:"Asset"`
	Amount  string `toml:"Amount"`
}

type Config struct {
	RPCAddress           string         `toml:"RPCAddress"`
	DataDir              string         `toml:"DataDir"`
	NetworkName          string         `toml:"NetworkName"`
	OperatorKeystorePath string         `toml:"OperatorKeystorePath"`
	GenesisAssets        []GenesisAsset `toml:"GenesisAssets"`
	GenesisAllocs        []GenesisAlloc `toml:"GenesisAllocs"`
}

// Load loads the configuration from the given path.
func Load(path string) (*Config, error) {
	cfg := &Config{}
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return createDefault(path)
	}

	if _, err := toml.DecodeFile(path, cfg); err != nil {
		return nil, err
	}

	if err := ensureKeystore(path, cfg); err != nil {
		return nil, err
	}

	if strings.TrimSpace(cfg.NetworkName) == "" {
		cfg.NetworkName = "sea-local"
	}
	if cfg.GenesisAssets == nil {
		cfg.GenesisAssets = []GenesisAsset{}
	}
	if cfg.GenesisAllocs == nil {
		cfg.GenesisAllocs = []GenesisAlloc{}
	}
	if err := cfg.validateGenesis(); err != nil {
		return nil, err
	}

	return cfg, nil
}

func (cfg *Config) validateGenesis() error {
	symbols := make(map[string]struct{}, len(cfg.GenesisAssets))
	for _, asset := range cfg.GenesisAssets {
		symbol := strings.ToUpper(strings.TrimSpace(asset.Symbol))
		if symbol == "" {
			return fmt.Errorf("genesis asset with empty symbol")
		}
		if _, ok := symbols[symbol]; ok {
			return fmt.Errorf("genesis asset %s declared twice", symbol)
		}
		symbols[symbol] = struct{}{}
		if asset.MintAuthority != "" {
			if _, err := crypto.DecodeAddress(asset.MintAuthority); err != nil {
				return fmt.Errorf("genesis asset %s: invalid mint authority: %w", symbol, err)
			}
		}
	}
	for _, alloc := range cfg.GenesisAllocs {
		symbol := strings.ToUpper(strings.TrimSpace(alloc.Asset))
		if _, ok := symbols[symbol]; !ok {
			return fmt.Errorf("genesis allocation references unknown asset %s", alloc.Asset)
		}
		if _, err := crypto.DecodeAddress(alloc.Account); err != nil {
			return fmt.Errorf("genesis allocation for asset %s: invalid account: %w", symbol, err)
		}
		amount, ok := new(big.Int).SetString(strings.TrimSpace(alloc.Amount), 10)
		if !ok || amount.Sign() <= 0 {
			return fmt.Errorf("genesis allocation for asset %s: invalid amount %q", symbol, alloc.Amount)
		}
	}
	return nil
}

func ensureKeystore(configPath string, cfg *Config) error {
	keystorePath := cfg.OperatorKeystorePath
	if keystorePath == "" {
		keystorePath = defaultKeystorePath(configPath)
	}

	if _, err := os.Stat(keystorePath); os.IsNotExist(err) {
		key, genErr := crypto.GeneratePrivateKey()
		if genErr != nil {
			return genErr
		}
		if err := crypto.SaveToKeystore(keystorePath, key, ""); err != nil {
			return err
		}
	} else if err != nil {
		return err
	}

	if cfg.OperatorKeystorePath != keystorePath {
		cfg.OperatorKeystorePath = keystorePath
		return persist(configPath, cfg)
	}

	return nil
}

// createDefault creates and saves a default configuration file.
func createDefault(path string) (*Config, error) {
	key, err := crypto.GeneratePrivateKey()
	if err != nil {
		return nil, err
	}

	keystorePath := defaultKeystorePath(path)
	if err := crypto.SaveToKeystore(keystorePath, key, ""); err != nil {
		return nil, err
	}

	operator := key.PubKey().Address().String()
	cfg := &Config{
		RPCAddress:  ":8080",
		DataDir:     "./sea-data",
		NetworkName: "sea-local",
		GenesisAssets: []GenesisAsset{
			{Symbol: "USDC", Name: "USD Coin", Decimals: 6, MintAuthority: operator},
		},
		GenesisAllocs: []GenesisAlloc{},
	}
	cfg.OperatorKeystorePath = keystorePath

	if err := persist(path, cfg); err != nil {
		return nil, err
	}

	return cfg, nil
}

func persist(path string, cfg *Config) error {
	dir := filepath.Dir(path)
	if dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return err
		}
	}
	f, err := os.OpenFile(path, os.O_WRONLY|os.O_TRUNC|os.O_CREATE, 0o644)
	if err != nil {
		return err
	}
	defer f.Close()

	return toml.NewEncoder(f).Encode(cfg)
}

func defaultKeystorePath(configPath string) string {
	dir := filepath.Dir(configPath)
	if dir == "." || dir == "" {
		dir = ""
	}
	return filepath.Join(dir, "operator.keystore")
}
