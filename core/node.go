package core

import (
	"errors"
	"math/big"
	"sync"

	"seaescrow/core/events"
	"seaescrow/core/state"
	"seaescrow/native/escrow"
	"seaescrow/observability/metrics"
	"seaescrow/storage"
)

// Node wires the escrow engine to its state backend and serialises every
// operation. Each call runs start-to-finish under one lock, so a racing
// operation observes either the fully applied predecessor or none of it; the
// engine's precondition checks then reject the loser.
type Node struct {
	mu      sync.Mutex
	db      storage.Database
	state   *state.Manager
	engine  *escrow.Engine
	metrics *metrics.EscrowMetrics
}

// NewNode constructs a node over the provided database.
func NewNode(db storage.Database) *Node {
	manager := state.NewManager(db)
	engine := escrow.NewEngine()
	engine.SetState(manager)
	return &Node{
		db:      db,
		state:   manager,
		engine:  engine,
		metrics: metrics.Escrow(),
	}
}

// SetEventEmitter configures where engine events are broadcast.
func (n *Node) SetEventEmitter(emitter events.Emitter) {
	n.engine.SetEmitter(emitter)
}

func rejectionReason(err error) string {
	switch {
	case errors.Is(err, escrow.ErrOrderNotFound):
		return "not_found"
	case errors.Is(err, escrow.ErrDuplicateOrder):
		return "duplicate_order"
	case errors.Is(err, escrow.ErrUnauthorized):
		return "unauthorized"
	case errors.Is(err, escrow.ErrInvalidState):
		return "invalid_state"
	case errors.Is(err, escrow.ErrAccountMismatch):
		return "account_mismatch"
	case errors.Is(err, escrow.ErrInsufficientFunds):
		return "insufficient_funds"
	case errors.Is(err, escrow.ErrInvalidAmount):
		return "invalid_amount"
	case errors.Is(err, escrow.ErrUnknownAsset):
		return "unknown_asset"
	default:
		return "internal"
	}
}

func amountGaugeValue(amount *big.Int) float64 {
	if amount == nil {
		return 0
	}
	value, _ := new(big.Float).SetInt(amount).Float64()
	return value
}

func (n *Node) apply(cmd escrow.Command) (*escrow.Order, error) {
	n.mu.Lock()
	defer n.mu.Unlock()
	order, err := n.engine.Apply(cmd)
	if err != nil {
		n.metrics.ObserveRejection(cmd.Op.String(), rejectionReason(err))
		return nil, err
	}
	n.metrics.ObserveTransition(cmd.Op.String())
	switch cmd.Op {
	case escrow.OpDeposit:
		n.metrics.AddCustodiedFunds(order.Asset, amountGaugeValue(order.Amount))
	case escrow.OpRelease, escrow.OpRefund:
		n.metrics.AddCustodiedFunds(order.Asset, -amountGaugeValue(order.Amount))
	}
	return order, nil
}

// EscrowInit creates a new pending order for the seller.
func (n *Node) EscrowInit(seller [20]byte, orderNumber uint64, payoutAccount [20]byte, referee *[20]byte, asset string, amount *big.Int) (*escrow.Order, error) {
	return n.apply(escrow.Command{
		Op:            escrow.OpInitOrder,
		Caller:        seller,
		OrderNumber:   orderNumber,
		PayoutAccount: payoutAccount,
		Referee:       referee,
		Asset:         asset,
		Amount:        amount,
	})
}

// EscrowGet returns the order stored under the given identifier.
func (n *Node) EscrowGet(id [32]byte) (*escrow.Order, error) {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.engine.Get(id)
}

// EscrowDeposit funds the vault from the buyer's account.
func (n *Node) EscrowDeposit(id [32]byte, buyer [20]byte, source [20]byte) (*escrow.Order, error) {
	return n.apply(escrow.Command{Op: escrow.OpDeposit, Caller: buyer, OrderID: id, Account: source})
}

// EscrowRelease drains the vault to the seller's payout account.
func (n *Node) EscrowRelease(id [32]byte, caller [20]byte, payoutAccount [20]byte) (*escrow.Order, error) {
	return n.apply(escrow.Command{Op: escrow.OpRelease, Caller: caller, OrderID: id, Account: payoutAccount})
}

// EscrowDispute marks a deposited order as contested.
func (n *Node) EscrowDispute(id [32]byte, caller [20]byte) (*escrow.Order, error) {
	return n.apply(escrow.Command{Op: escrow.OpDispute, Caller: caller, OrderID: id})
}

// EscrowRefund drains the vault back to the buyer's recorded refund account.
func (n *Node) EscrowRefund(id [32]byte, caller [20]byte, refundAccount [20]byte) (*escrow.Order, error) {
	return n.apply(escrow.Command{Op: escrow.OpRefund, Caller: caller, OrderID: id, Account: refundAccount})
}

// LedgerBalance returns the asset balance held by the given account.
func (n *Node) LedgerBalance(addr [20]byte, asset string) (*big.Int, error) {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.state.BalanceOf(addr, asset)
}

// LedgerMint credits new supply; the caller must be the asset's mint
// authority. Used by genesis and test bootstrap tooling.
func (n *Node) LedgerMint(caller [20]byte, to [20]byte, asset string, amount *big.Int) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.state.Mint(caller[:], to, asset, amount)
}

// RegisterAsset adds an asset to the ledger registry.
func (n *Node) RegisterAsset(symbol, name string, decimals uint8, mintAuthority []byte) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.state.RegisterAsset(symbol, name, decimals, mintAuthority)
}

// AssetExists reports whether the asset is registered.
func (n *Node) AssetExists(symbol string) bool {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.state.AssetExists(symbol)
}

// GenesisMint credits balances without an authority check. It is only
// reachable from genesis application in the daemon, before the RPC surface is
// up.
func (n *Node) GenesisMint(to [20]byte, asset string, amount *big.Int) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	meta, err := n.state.Asset(asset)
	if err != nil {
		return err
	}
	return n.state.Mint(meta.MintAuthority, to, asset, amount)
}
