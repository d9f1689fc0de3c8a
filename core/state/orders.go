package state

import (
	"fmt"
	"math/big"

	ethcrypto "github.com/ethereum/go-ethereum/crypto"
	"github.com/ethereum/go-ethereum/rlp"

	"seaescrow/native/escrow"
)

var orderRecordPrefix = []byte("escrow/record:")

func orderStorageKey(id [32]byte) []byte {
	buf := make([]byte, len(orderRecordPrefix)+len(id))
	copy(buf, orderRecordPrefix)
	copy(buf[len(orderRecordPrefix):], id[:])
	return ethcrypto.Keccak256(buf)
}

type storedOrder struct {
	ID            [32]byte
	Seller        [20]byte
	OrderNumber   uint64
	SellerAccount [20]byte
	Buyer         [20]byte
	BuyerAccount  [20]byte
	Referee       [20]byte
	Asset         string
	Amount        *big.Int
	Vault         [20]byte
	CreatedAt     *big.Int
	Status        uint8
}

func newStoredOrder(o *escrow.Order) *storedOrder {
	if o == nil {
		return nil
	}
	amount := big.NewInt(0)
	if o.Amount != nil {
		amount = new(big.Int).Set(o.Amount)
	}
	return &storedOrder{
		ID:            o.ID,
		Seller:        o.Seller,
		OrderNumber:   o.OrderNumber,
		SellerAccount: o.SellerAccount,
		Buyer:         o.Buyer,
		BuyerAccount:  o.BuyerAccount,
		Referee:       o.Referee,
		Asset:         o.Asset,
		Amount:        amount,
		Vault:         o.Vault,
		CreatedAt:     big.NewInt(o.CreatedAt),
		Status:        uint8(o.Status),
	}
}

func (s *storedOrder) toOrder() (*escrow.Order, error) {
	if s == nil {
		return nil, fmt.Errorf("state: nil order record")
	}
	out := &escrow.Order{
		ID:            s.ID,
		Seller:        s.Seller,
		OrderNumber:   s.OrderNumber,
		SellerAccount: s.SellerAccount,
		Buyer:         s.Buyer,
		BuyerAccount:  s.BuyerAccount,
		Referee:       s.Referee,
		Asset:         s.Asset,
		Amount:        big.NewInt(0),
		Vault:         s.Vault,
		Status:        escrow.OrderStatus(s.Status),
	}
	if s.Amount != nil {
		out.Amount = new(big.Int).Set(s.Amount)
	}
	if s.CreatedAt != nil {
		out.CreatedAt = s.CreatedAt.Int64()
	}
	return escrow.SanitizeOrder(out)
}

// OrderPut persists the order record under its derived identifier.
func (m *Manager) OrderPut(o *escrow.Order) error {
	sanitized, err := escrow.SanitizeOrder(o)
	if err != nil {
		return err
	}
	encoded, err := rlp.EncodeToBytes(newStoredOrder(sanitized))
	if err != nil {
		return err
	}
	return m.db.Put(orderStorageKey(sanitized.ID), encoded)
}

// OrderGet loads the order stored under the given identifier.
func (m *Manager) OrderGet(id [32]byte) (*escrow.Order, bool) {
	data, err := m.load(orderStorageKey(id))
	if err != nil || len(data) == 0 {
		return nil, false
	}
	stored := new(storedOrder)
	if err := rlp.DecodeBytes(data, stored); err != nil {
		return nil, false
	}
	order, err := stored.toOrder()
	if err != nil {
		return nil, false
	}
	return order, true
}
