package escrow

import "errors"

var (
	// ErrOrderNotFound is returned when no order exists under the derived
	// identifier.
	ErrOrderNotFound = errors.New("escrow: order not found")
	// ErrDuplicateOrder is returned when InitOrder derives an identifier
	// that already holds an order. The deterministic derivation makes this
	// the uniqueness check for (seller, order number) pairs.
	ErrDuplicateOrder = errors.New("escrow: duplicate order")
	// ErrUnauthorized is returned when the caller identity does not match
	// the role the operation requires.
	ErrUnauthorized = errors.New("escrow: unauthorized")
	// ErrInvalidState is returned when the operation is not legal from the
	// order's current status.
	ErrInvalidState = errors.New("escrow: invalid state")
	// ErrAccountMismatch is returned when a caller-supplied account does
	// not match the account fixed earlier in the order's life.
	ErrAccountMismatch = errors.New("escrow: account mismatch")
	// ErrInsufficientFunds is returned when the funding source lacks the
	// required balance at deposit time.
	ErrInsufficientFunds = errors.New("escrow: insufficient funds")
	// ErrInvalidAmount is returned when an order is created with a
	// non-positive amount.
	ErrInvalidAmount = errors.New("escrow: amount must be positive")
	// ErrUnknownAsset is returned when the declared asset is not
	// registered with the ledger.
	ErrUnknownAsset = errors.New("escrow: unknown asset")
)
