package escrow

import (
	"encoding/binary"
	"fmt"
	"math/big"

	ethcrypto "github.com/ethereum/go-ethereum/crypto"
)

var (
	orderSeedPrefix = []byte("escrow/order:")
	vaultSeedPrefix = []byte("escrow/vault:")
)

// DeriveOrderID computes the deterministic identifier of the order created by
// the given seller under the given order number. The same inputs always yield
// the same identifier, so any caller can recompute it without a lookup.
func DeriveOrderID(seller [20]byte, orderNumber uint64) [32]byte {
	buf := make([]byte, len(orderSeedPrefix)+len(seller)+8)
	copy(buf, orderSeedPrefix)
	copy(buf[len(orderSeedPrefix):], seller[:])
	binary.BigEndian.PutUint64(buf[len(orderSeedPrefix)+len(seller):], orderNumber)
	var id [32]byte
	copy(id[:], ethcrypto.Keccak256(buf))
	return id
}

// DeriveVaultAddress computes the holding account bound to the given order.
// The address is a second-level derivation over the order identifier, so each
// vault belongs to exactly one order and no private key for it exists.
func DeriveVaultAddress(orderID [32]byte) [20]byte {
	buf := make([]byte, len(vaultSeedPrefix)+len(orderID))
	copy(buf, vaultSeedPrefix)
	copy(buf[len(vaultSeedPrefix):], orderID[:])
	hash := ethcrypto.Keccak256(buf)
	var vault [20]byte
	copy(vault[:], hash[12:])
	return vault
}

// fundVault moves exactly the order amount from the source account into the
// vault. The vault must be empty; partial deposits and top-ups do not exist.
func (e *Engine) fundVault(order *Order, source [20]byte) error {
	if e == nil || e.state == nil {
		return errNilState
	}
	balance, err := e.state.BalanceOf(order.Vault, order.Asset)
	if err != nil {
		return err
	}
	if balance.Sign() != 0 {
		return fmt.Errorf("escrow: vault %x not empty", order.Vault)
	}
	return e.state.Transfer(source, order.Vault, order.Asset, order.Amount)
}

// drainVault transfers the vault's entire balance to the destination account,
// leaving the vault at zero. Both release and refund settle through it; no
// partial withdrawal path exists.
func (e *Engine) drainVault(order *Order, destination [20]byte) error {
	if e == nil || e.state == nil {
		return errNilState
	}
	balance, err := e.state.BalanceOf(order.Vault, order.Asset)
	if err != nil {
		return err
	}
	if order.Amount == nil || balance.Cmp(order.Amount) != 0 {
		return fmt.Errorf("escrow: vault %x balance %s does not match order amount", order.Vault, balance)
	}
	return e.state.Transfer(order.Vault, destination, order.Asset, balance)
}

// reverseTransfer undoes a fund movement after a failed record write so a
// partially applied transition is never observable.
func (e *Engine) reverseTransfer(order *Order, from, to [20]byte, amount *big.Int) {
	if e == nil || e.state == nil {
		return
	}
	_ = e.state.Transfer(from, to, order.Asset, amount)
}
