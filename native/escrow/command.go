package escrow

import (
	"fmt"
	"math/big"
)

// Op enumerates the five operations the engine accepts.
type Op uint8

const (
	OpInitOrder Op = iota + 1
	OpDeposit
	OpRelease
	OpDispute
	OpRefund
)

func (op Op) String() string {
	switch op {
	case OpInitOrder:
		return "init_order"
	case OpDeposit:
		return "deposit"
	case OpRelease:
		return "release"
	case OpDispute:
		return "dispute"
	case OpRefund:
		return "refund"
	default:
		return "unknown"
	}
}

// Command is the tagged representation of one state-machine operation. All
// five operations funnel through Engine.Apply so every state/operation pair is
// handled in a single dispatch.
type Command struct {
	Op      Op
	Caller  [20]byte
	OrderID [32]byte

	// InitOrder only.
	OrderNumber   uint64
	Asset         string
	Amount        *big.Int
	PayoutAccount [20]byte
	Referee       *[20]byte

	// Deposit source, Release payout, Refund destination.
	Account [20]byte
}

// Apply dispatches the command against the current order state. It returns
// the order as stored after a successful transition.
func (e *Engine) Apply(cmd Command) (*Order, error) {
	switch cmd.Op {
	case OpInitOrder:
		return e.InitOrder(cmd.Caller, cmd.OrderNumber, cmd.PayoutAccount, cmd.Referee, cmd.Asset, cmd.Amount)
	case OpDeposit:
		if err := e.Deposit(cmd.OrderID, cmd.Caller, cmd.Account); err != nil {
			return nil, err
		}
	case OpRelease:
		if err := e.Release(cmd.OrderID, cmd.Caller, cmd.Account); err != nil {
			return nil, err
		}
	case OpDispute:
		if err := e.Dispute(cmd.OrderID, cmd.Caller); err != nil {
			return nil, err
		}
	case OpRefund:
		if err := e.Refund(cmd.OrderID, cmd.Caller, cmd.Account); err != nil {
			return nil, err
		}
	default:
		return nil, fmt.Errorf("escrow: unsupported operation %d", cmd.Op)
	}
	return e.loadOrder(cmd.OrderID)
}
