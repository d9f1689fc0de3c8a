package escrow

import (
	"encoding/hex"
	"math/big"
	"testing"
)

func TestOrderEventAttributes(t *testing.T) {
	sellerAddr := newTestAddress(0x01)
	order := &Order{
		ID:          DeriveOrderID(sellerAddr, 3),
		Seller:      sellerAddr,
		OrderNumber: 3,
		Asset:       "USDC",
		Amount:      big.NewInt(250),
		CreatedAt:   1_700_000_000,
		Status:      OrderPending,
		Referee:     newTestAddress(0x04),
	}
	order.Vault = DeriveVaultAddress(order.ID)

	evt := NewOrderCreatedEvent(order)
	if evt.Type != EventTypeOrderCreated {
		t.Fatalf("expected %s, got %s", EventTypeOrderCreated, evt.Type)
	}
	if got := evt.Attributes["id"]; got != hex.EncodeToString(order.ID[:]) {
		t.Fatalf("unexpected id attribute %q", got)
	}
	if got := evt.Attributes["amount"]; got != "250" {
		t.Fatalf("unexpected amount attribute %q", got)
	}
	if got := evt.Attributes["status"]; got != "pending" {
		t.Fatalf("unexpected status attribute %q", got)
	}
	if _, ok := evt.Attributes["buyer"]; ok {
		t.Fatalf("expected no buyer attribute before deposit")
	}
	if got := evt.Attributes["referee"]; got != hex.EncodeToString(order.Referee[:]) {
		t.Fatalf("unexpected referee attribute %q", got)
	}
}

func TestOrderEventIncludesBuyerAfterDeposit(t *testing.T) {
	sellerAddr := newTestAddress(0x01)
	order := &Order{
		ID:          DeriveOrderID(sellerAddr, 4),
		Seller:      sellerAddr,
		OrderNumber: 4,
		Asset:       "USDC",
		Amount:      big.NewInt(100),
		Status:      OrderDeposited,
		Buyer:       newTestAddress(0x03),
	}
	order.Vault = DeriveVaultAddress(order.ID)

	evt := NewOrderDepositedEvent(order)
	if got := evt.Attributes["buyer"]; got != hex.EncodeToString(order.Buyer[:]) {
		t.Fatalf("unexpected buyer attribute %q", got)
	}
	if got := evt.Attributes["status"]; got != "deposited" {
		t.Fatalf("unexpected status attribute %q", got)
	}
}

func TestOrderEventNilOrder(t *testing.T) {
	evt := NewOrderSettledEvent(nil)
	if evt.Type != EventTypeOrderSettled {
		t.Fatalf("expected type preserved for nil order")
	}
	if len(evt.Attributes) != 0 {
		t.Fatalf("expected empty attributes for nil order")
	}
}
