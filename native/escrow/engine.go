package escrow

import (
	"errors"
	"math/big"
	"time"

	"seaescrow/core/events"
	"seaescrow/core/types"
)

var errNilState = errors.New("escrow engine: state not configured")

// engineState is the narrow view of the ledger the engine operates against.
// Balances only move through Transfer, which debits and credits atomically and
// reports ErrInsufficientFunds when the source is short.
type engineState interface {
	OrderPut(*Order) error
	OrderGet(id [32]byte) (*Order, bool)
	AssetExists(symbol string) bool
	BalanceOf(addr [20]byte, asset string) (*big.Int, error)
	Transfer(from, to [20]byte, asset string, amount *big.Int) error
}

type orderEvent struct {
	evt *types.Event
}

func (e orderEvent) EventType() string {
	if e.evt == nil {
		return ""
	}
	return e.evt.Type
}

func (e orderEvent) Event() *types.Event { return e.evt }

// Engine owns the order state machine and the vault custody discipline: every
// fund movement is a side effect of a validated transition, and each
// transition either fully applies or leaves no observable change.
type Engine struct {
	state   engineState
	emitter events.Emitter
	nowFn   func() int64
}

// NewEngine creates an escrow engine with a no-op emitter. Callers can
// override the emitter via SetEmitter.
func NewEngine() *Engine {
	return &Engine{
		emitter: events.NoopEmitter{},
		nowFn:   func() int64 { return time.Now().Unix() },
	}
}

// SetState configures the state backend used by the engine.
func (e *Engine) SetState(state engineState) { e.state = state }

// SetNowFunc overrides the time source used by the engine. Primarily intended
// for tests to provide deterministic timestamps.
func (e *Engine) SetNowFunc(now func() int64) {
	if now == nil {
		e.nowFn = func() int64 { return time.Now().Unix() }
		return
	}
	e.nowFn = now
}

// SetEmitter configures the event emitter used by the engine. Passing nil
// resets the emitter to a no-op implementation.
func (e *Engine) SetEmitter(emitter events.Emitter) {
	if emitter == nil {
		e.emitter = events.NoopEmitter{}
		return
	}
	e.emitter = emitter
}

func (e *Engine) emit(event *types.Event) {
	if e == nil || e.emitter == nil || event == nil {
		return
	}
	e.emitter.Emit(orderEvent{evt: event})
}

func (e *Engine) now() int64 {
	if e == nil || e.nowFn == nil {
		return time.Now().Unix()
	}
	return e.nowFn()
}

func (e *Engine) loadOrder(id [32]byte) (*Order, error) {
	if e == nil || e.state == nil {
		return nil, errNilState
	}
	order, ok := e.state.OrderGet(id)
	if !ok {
		return nil, ErrOrderNotFound
	}
	return order, nil
}

func (e *Engine) storeOrder(order *Order) error {
	if e == nil || e.state == nil {
		return errNilState
	}
	return e.state.OrderPut(order)
}

// Get returns the order stored under the given identifier.
func (e *Engine) Get(id [32]byte) (*Order, error) {
	return e.loadOrder(id)
}

// InitOrder creates a new order in the pending state. The order identifier is
// derived from the seller and the seller-chosen order number; a second call
// with the same pair fails with ErrDuplicateOrder. No funds move here.
func (e *Engine) InitOrder(seller [20]byte, orderNumber uint64, payoutAccount [20]byte, refereeOpt *[20]byte, asset string, amount *big.Int) (*Order, error) {
	if e == nil || e.state == nil {
		return nil, errNilState
	}
	normalized, err := NormalizeAsset(asset)
	if err != nil {
		return nil, err
	}
	if !e.state.AssetExists(normalized) {
		return nil, ErrUnknownAsset
	}
	if amount == nil || amount.Sign() <= 0 {
		return nil, ErrInvalidAmount
	}
	id := DeriveOrderID(seller, orderNumber)
	if _, ok := e.state.OrderGet(id); ok {
		return nil, ErrDuplicateOrder
	}
	referee := [20]byte{}
	if refereeOpt != nil {
		referee = *refereeOpt
	}
	order := &Order{
		ID:            id,
		Seller:        seller,
		OrderNumber:   orderNumber,
		SellerAccount: payoutAccount,
		Referee:       referee,
		Asset:         normalized,
		Amount:        new(big.Int).Set(amount),
		Vault:         DeriveVaultAddress(id),
		CreatedAt:     e.now(),
		Status:        OrderPending,
	}
	if err := e.storeOrder(order); err != nil {
		return nil, err
	}
	e.emit(NewOrderCreatedEvent(order))
	return order.Clone(), nil
}

// Deposit moves exactly the order amount from the buyer's account into the
// vault and binds the buyer identity and refund account to the order. The
// buyer is whoever calls first while the order is pending; a second deposit
// finds the order already deposited and fails with ErrInvalidState.
func (e *Engine) Deposit(id [32]byte, buyer [20]byte, source [20]byte) error {
	order, err := e.loadOrder(id)
	if err != nil {
		return err
	}
	if order.Status != OrderPending {
		return ErrInvalidState
	}
	if source != buyer {
		return ErrUnauthorized
	}
	if err := e.fundVault(order, source); err != nil {
		return err
	}
	order.Buyer = buyer
	order.BuyerAccount = source
	order.Status = OrderDeposited
	if err := e.storeOrder(order); err != nil {
		e.reverseTransfer(order, order.Vault, source, order.Amount)
		return err
	}
	e.emit(NewOrderDepositedEvent(order))
	return nil
}

// Release settles the order in favour of the seller. Only the bound buyer may
// release, and only to the payout account fixed at creation; supplying any
// other destination fails with ErrAccountMismatch even though the buyer is an
// authorized caller.
func (e *Engine) Release(id [32]byte, caller [20]byte, payoutAccount [20]byte) error {
	order, err := e.loadOrder(id)
	if err != nil {
		return err
	}
	if order.Status != OrderDeposited {
		return ErrInvalidState
	}
	if caller != order.Buyer {
		return ErrUnauthorized
	}
	if payoutAccount != order.SellerAccount {
		return ErrAccountMismatch
	}
	if err := e.drainVault(order, order.SellerAccount); err != nil {
		return err
	}
	order.Status = OrderSettled
	if err := e.storeOrder(order); err != nil {
		e.reverseTransfer(order, order.SellerAccount, order.Vault, order.Amount)
		return err
	}
	e.emit(NewOrderSettledEvent(order))
	return nil
}

// Dispute flags a deposited order as contested. Only the bound buyer may
// dispute; no funds move.
func (e *Engine) Dispute(id [32]byte, caller [20]byte) error {
	order, err := e.loadOrder(id)
	if err != nil {
		return err
	}
	if order.Status != OrderDeposited {
		return ErrInvalidState
	}
	if caller != order.Buyer {
		return ErrUnauthorized
	}
	order.Status = OrderDisputed
	if err := e.storeOrder(order); err != nil {
		return err
	}
	e.emit(NewOrderDisputedEvent(order))
	return nil
}

// Refund resolves a disputed order in favour of the buyer. Only the referee
// configured at creation may refund, and only to the refund account fixed at
// deposit time. Orders created without a referee cannot be refunded.
func (e *Engine) Refund(id [32]byte, caller [20]byte, refundAccount [20]byte) error {
	order, err := e.loadOrder(id)
	if err != nil {
		return err
	}
	if order.Status != OrderDisputed {
		return ErrInvalidState
	}
	if !order.HasReferee() || caller != order.Referee {
		return ErrUnauthorized
	}
	if refundAccount != order.BuyerAccount {
		return ErrAccountMismatch
	}
	if err := e.drainVault(order, order.BuyerAccount); err != nil {
		return err
	}
	order.Status = OrderRefunded
	if err := e.storeOrder(order); err != nil {
		e.reverseTransfer(order, order.BuyerAccount, order.Vault, order.Amount)
		return err
	}
	e.emit(NewOrderRefundedEvent(order))
	return nil
}
