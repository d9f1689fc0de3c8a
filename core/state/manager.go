package state

import (
	"bytes"
	"errors"
	"fmt"
	"math/big"
	"strings"

	ethcrypto "github.com/ethereum/go-ethereum/crypto"
	"github.com/ethereum/go-ethereum/rlp"

	"seaescrow/native/escrow"
	"seaescrow/storage"
)

// Manager provides the ledger the escrow engine runs against: an asset
// registry, per-account balances and the order records, all persisted as RLP
// under keccak-hashed keys in a key-value store.
type Manager struct {
	db storage.Database
}

// NewManager creates a state manager operating on the provided database.
func NewManager(db storage.Database) *Manager {
	return &Manager{db: db}
}

// AssetMetadata describes a registered fungible asset.
type AssetMetadata struct {
	Symbol        string
	Name          string
	Decimals      uint8
	MintAuthority []byte
}

var (
	assetPrefix   = []byte("asset:")
	assetListKey  = ethcrypto.Keccak256([]byte("asset-list"))
	balancePrefix = []byte("balance:")
)

func assetMetadataKey(symbol string) []byte {
	buf := make([]byte, len(assetPrefix)+len(symbol))
	copy(buf, assetPrefix)
	copy(buf[len(assetPrefix):], symbol)
	return ethcrypto.Keccak256(buf)
}

func balanceKey(addr []byte, symbol string) []byte {
	buf := make([]byte, len(balancePrefix)+len(symbol)+1+len(addr))
	copy(buf, balancePrefix)
	copy(buf[len(balancePrefix):], symbol)
	buf[len(balancePrefix)+len(symbol)] = ':'
	copy(buf[len(balancePrefix)+len(symbol)+1:], addr)
	return ethcrypto.Keccak256(buf)
}

func (m *Manager) load(key []byte) ([]byte, error) {
	data, err := m.db.Get(key)
	if errors.Is(err, storage.ErrKeyNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return data, nil
}

func (m *Manager) loadAssetList() ([]string, error) {
	data, err := m.load(assetListKey)
	if err != nil {
		return nil, err
	}
	if len(data) == 0 {
		return []string{}, nil
	}
	var list []string
	if err := rlp.DecodeBytes(data, &list); err != nil {
		return nil, err
	}
	return list, nil
}

func (m *Manager) writeAssetList(list []string) error {
	encoded, err := rlp.EncodeToBytes(list)
	if err != nil {
		return err
	}
	return m.db.Put(assetListKey, encoded)
}

func (m *Manager) loadAssetMetadata(symbol string) (*AssetMetadata, error) {
	data, err := m.load(assetMetadataKey(symbol))
	if err != nil {
		return nil, err
	}
	if len(data) == 0 {
		return nil, nil
	}
	meta := new(AssetMetadata)
	if err := rlp.DecodeBytes(data, meta); err != nil {
		return nil, err
	}
	return meta, nil
}

// RegisterAsset adds a fungible asset to the registry. Registering the same
// symbol twice fails so metadata cannot be silently replaced.
func (m *Manager) RegisterAsset(symbol, name string, decimals uint8, mintAuthority []byte) error {
	normalized, err := escrow.NormalizeAsset(symbol)
	if err != nil {
		return err
	}
	existing, err := m.loadAssetMetadata(normalized)
	if err != nil {
		return err
	}
	if existing != nil {
		return fmt.Errorf("state: asset %s already registered", normalized)
	}
	meta := &AssetMetadata{
		Symbol:        normalized,
		Name:          strings.TrimSpace(name),
		Decimals:      decimals,
		MintAuthority: append([]byte(nil), mintAuthority...),
	}
	encoded, err := rlp.EncodeToBytes(meta)
	if err != nil {
		return err
	}
	if err := m.db.Put(assetMetadataKey(normalized), encoded); err != nil {
		return err
	}
	list, err := m.loadAssetList()
	if err != nil {
		return err
	}
	list = append(list, normalized)
	return m.writeAssetList(list)
}

// Asset returns the metadata stored for the given symbol.
func (m *Manager) Asset(symbol string) (*AssetMetadata, error) {
	normalized, err := escrow.NormalizeAsset(symbol)
	if err != nil {
		return nil, err
	}
	meta, err := m.loadAssetMetadata(normalized)
	if err != nil {
		return nil, err
	}
	if meta == nil {
		return nil, fmt.Errorf("state: asset %s not registered", normalized)
	}
	return meta, nil
}

// AssetExists reports whether the symbol is present in the registry.
func (m *Manager) AssetExists(symbol string) bool {
	normalized, err := escrow.NormalizeAsset(symbol)
	if err != nil {
		return false
	}
	meta, err := m.loadAssetMetadata(normalized)
	return err == nil && meta != nil
}

// AssetList returns the registered symbols in registration order.
func (m *Manager) AssetList() ([]string, error) {
	return m.loadAssetList()
}

func (m *Manager) setBalance(addr []byte, symbol string, amount *big.Int) error {
	if amount == nil {
		amount = big.NewInt(0)
	}
	if amount.Sign() < 0 {
		return fmt.Errorf("state: negative balance not allowed")
	}
	encoded, err := rlp.EncodeToBytes(amount)
	if err != nil {
		return err
	}
	return m.db.Put(balanceKey(addr, symbol), encoded)
}

// BalanceOf retrieves an asset balance for the provided account.
func (m *Manager) BalanceOf(addr [20]byte, symbol string) (*big.Int, error) {
	normalized, err := escrow.NormalizeAsset(symbol)
	if err != nil {
		return nil, err
	}
	data, err := m.load(balanceKey(addr[:], normalized))
	if err != nil {
		return nil, err
	}
	if len(data) == 0 {
		return big.NewInt(0), nil
	}
	amount := new(big.Int)
	if err := rlp.DecodeBytes(data, amount); err != nil {
		return nil, err
	}
	return amount, nil
}

// Transfer debits the source account and credits the destination atomically.
// It fails with escrow.ErrInsufficientFunds when the source is short and
// restores the source balance if the credit write fails.
func (m *Manager) Transfer(from, to [20]byte, asset string, amount *big.Int) error {
	if amount == nil || amount.Sign() <= 0 {
		return escrow.ErrInvalidAmount
	}
	normalized, err := escrow.NormalizeAsset(asset)
	if err != nil {
		return err
	}
	if !m.AssetExists(normalized) {
		return escrow.ErrUnknownAsset
	}
	if bytes.Equal(from[:], to[:]) {
		return fmt.Errorf("state: transfer source and destination are equal")
	}
	fromBal, err := m.BalanceOf(from, normalized)
	if err != nil {
		return err
	}
	if fromBal.Cmp(amount) < 0 {
		return escrow.ErrInsufficientFunds
	}
	toBal, err := m.BalanceOf(to, normalized)
	if err != nil {
		return err
	}
	newFrom := new(big.Int).Sub(fromBal, amount)
	newTo := new(big.Int).Add(toBal, amount)
	if err := m.setBalance(from[:], normalized, newFrom); err != nil {
		return err
	}
	if err := m.setBalance(to[:], normalized, newTo); err != nil {
		if restoreErr := m.setBalance(from[:], normalized, fromBal); restoreErr != nil {
			return errors.Join(err, fmt.Errorf("state: rollback source balance: %w", restoreErr))
		}
		return err
	}
	return nil
}

// Mint credits new supply to an account. The caller must match the asset's
// mint authority; this is bootstrap tooling, not part of the escrow flow.
func (m *Manager) Mint(caller []byte, to [20]byte, asset string, amount *big.Int) error {
	if amount == nil || amount.Sign() <= 0 {
		return escrow.ErrInvalidAmount
	}
	meta, err := m.Asset(asset)
	if err != nil {
		return err
	}
	if len(meta.MintAuthority) == 0 || !bytes.Equal(meta.MintAuthority, caller) {
		return fmt.Errorf("state: caller is not the mint authority for %s", meta.Symbol)
	}
	balance, err := m.BalanceOf(to, meta.Symbol)
	if err != nil {
		return err
	}
	return m.setBalance(to[:], meta.Symbol, new(big.Int).Add(balance, amount))
}
