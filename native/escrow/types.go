package escrow

import (
	"fmt"
	"math/big"
	"strings"
)

// OrderStatus represents the lifecycle states of an escrow order.
type OrderStatus uint8

const (
	// OrderPending means the order exists and its vault is empty; only a
	// deposit may follow.
	OrderPending OrderStatus = iota
	// OrderDeposited means the vault custodies exactly the order amount.
	OrderDeposited
	// OrderDisputed means the buyer contested the order; only the referee
	// can move it forward.
	OrderDisputed
	// OrderSettled and OrderRefunded are terminal; the vault is drained.
	OrderSettled
	OrderRefunded
)

// Valid reports whether the status value is within the supported range.
func (s OrderStatus) Valid() bool {
	switch s {
	case OrderPending, OrderDeposited, OrderDisputed, OrderSettled, OrderRefunded:
		return true
	default:
		return false
	}
}

// Terminal reports whether no further transitions are permitted.
func (s OrderStatus) Terminal() bool {
	return s == OrderSettled || s == OrderRefunded
}

func (s OrderStatus) String() string {
	switch s {
	case OrderPending:
		return "pending"
	case OrderDeposited:
		return "deposited"
	case OrderDisputed:
		return "disputed"
	case OrderSettled:
		return "settled"
	case OrderRefunded:
		return "refunded"
	default:
		return "unknown"
	}
}

// Order captures the metadata and runtime status of a single escrow agreement.
// The identifier is the keccak256 hash of the seller address and the
// seller-chosen order number, so an order and its vault are recomputable from
// public identities alone.
type Order struct {
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
	CreatedAt     int64
	Status        OrderStatus
}

// HasReferee reports whether a dispute referee was configured at creation. A
// zero referee address means disputes on this order cannot be resolved.
func (o *Order) HasReferee() bool {
	return o != nil && o.Referee != ([20]byte{})
}

// Clone returns a deep copy of the order so callers can safely mutate the copy
// without affecting the stored instance.
func (o *Order) Clone() *Order {
	if o == nil {
		return nil
	}
	clone := *o
	if o.Amount != nil {
		clone.Amount = new(big.Int).Set(o.Amount)
	} else {
		clone.Amount = big.NewInt(0)
	}
	return &clone
}

// NormalizeAsset canonicalises an asset symbol to its uppercase form and
// rejects empty or oversized identifiers.
func NormalizeAsset(symbol string) (string, error) {
	trimmed := strings.ToUpper(strings.TrimSpace(symbol))
	if trimmed == "" {
		return "", fmt.Errorf("escrow: asset symbol must not be empty")
	}
	if len(trimmed) > 16 {
		return "", fmt.Errorf("escrow: asset symbol too long: %s", symbol)
	}
	return trimmed, nil
}

// SanitizeOrder validates and normalises the supplied order, returning a
// cloned instance with canonical asset casing and a non-nil amount field. The
// function does not mutate the original value.
func SanitizeOrder(o *Order) (*Order, error) {
	if o == nil {
		return nil, fmt.Errorf("escrow: nil order")
	}
	clone := o.Clone()
	asset, err := NormalizeAsset(clone.Asset)
	if err != nil {
		return nil, err
	}
	clone.Asset = asset
	if clone.Amount == nil {
		clone.Amount = big.NewInt(0)
	}
	if clone.Amount.Sign() < 0 {
		return nil, fmt.Errorf("escrow: order amount must be non-negative")
	}
	if !clone.Status.Valid() {
		return nil, fmt.Errorf("escrow: invalid order status: %d", clone.Status)
	}
	if clone.Vault != DeriveVaultAddress(clone.ID) {
		return nil, fmt.Errorf("escrow: vault address does not match order identity")
	}
	return clone, nil
}
