package escrow

import (
	"encoding/hex"
	"strconv"

	"seaescrow/core/types"
)

const (
	EventTypeOrderCreated   = "escrow.order_created"
	EventTypeOrderDeposited = "escrow.order_deposited"
	EventTypeOrderSettled   = "escrow.order_settled"
	EventTypeOrderDisputed  = "escrow.order_disputed"
	EventTypeOrderRefunded  = "escrow.order_refunded"
)

// NewOrderCreatedEvent returns the canonical event payload for a newly created
// order.
func NewOrderCreatedEvent(o *Order) *types.Event { return newOrderEvent(EventTypeOrderCreated, o) }

// NewOrderDepositedEvent returns the canonical event payload emitted when the
// buyer funds the vault.
func NewOrderDepositedEvent(o *Order) *types.Event { return newOrderEvent(EventTypeOrderDeposited, o) }

// NewOrderSettledEvent returns the canonical event payload for a release of
// vault funds to the seller.
func NewOrderSettledEvent(o *Order) *types.Event { return newOrderEvent(EventTypeOrderSettled, o) }

// NewOrderDisputedEvent returns the canonical event payload emitted when the
// buyer contests the order.
func NewOrderDisputedEvent(o *Order) *types.Event { return newOrderEvent(EventTypeOrderDisputed, o) }

// NewOrderRefundedEvent returns the canonical event payload for a referee
// refund to the buyer.
func NewOrderRefundedEvent(o *Order) *types.Event { return newOrderEvent(EventTypeOrderRefunded, o) }

func newOrderEvent(eventType string, o *Order) *types.Event {
	attrs := make(map[string]string)
	if o == nil {
		return &types.Event{Type: eventType, Attributes: attrs}
	}
	sanitized, err := SanitizeOrder(o)
	if err != nil {
		return &types.Event{Type: eventType, Attributes: attrs}
	}
	attrs["id"] = hex.EncodeToString(sanitized.ID[:])
	attrs["seller"] = hex.EncodeToString(sanitized.Seller[:])
	attrs["orderNumber"] = strconv.FormatUint(sanitized.OrderNumber, 10)
	attrs["asset"] = sanitized.Asset
	attrs["amount"] = sanitized.Amount.String()
	attrs["vault"] = hex.EncodeToString(sanitized.Vault[:])
	attrs["status"] = sanitized.Status.String()
	attrs["createdAt"] = strconv.FormatInt(sanitized.CreatedAt, 10)
	if sanitized.Buyer != ([20]byte{}) {
		attrs["buyer"] = hex.EncodeToString(sanitized.Buyer[:])
	}
	if sanitized.HasReferee() {
		attrs["referee"] = hex.EncodeToString(sanitized.Referee[:])
	}
	return &types.Event{Type: eventType, Attributes: attrs}
}
