package escrow

import (
	"math/big"
	"testing"
)

func TestNormalizeAsset(t *testing.T) {
	cases := []struct {
		name    string
		input   string
		want    string
		wantErr bool
	}{
		{"lowercase", "usdc", "USDC", false},
		{"whitespace", "  usdc  ", "USDC", false},
		{"already canonical", "USDC", "USDC", false},
		{"empty", "", "", true},
		{"whitespace only", "   ", "", true},
		{"too long", "AVERYLONGASSETSYMBOL", "", true},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got, err := NormalizeAsset(tc.input)
			if tc.wantErr {
				if err == nil {
					t.Fatalf("expected error")
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got != tc.want {
				t.Fatalf("expected %q, got %q", tc.want, got)
			}
		})
	}
}

func TestOrderCloneIsIndependent(t *testing.T) {
	original := &Order{
		ID:     DeriveOrderID(newTestAddress(0x01), 1),
		Asset:  "USDC",
		Amount: big.NewInt(500),
		Status: OrderPending,
	}
	clone := original.Clone()
	clone.Amount.SetInt64(999)
	clone.Status = OrderSettled

	if original.Amount.Cmp(big.NewInt(500)) != 0 {
		t.Fatalf("expected original amount unchanged, got %s", original.Amount)
	}
	if original.Status != OrderPending {
		t.Fatalf("expected original status unchanged, got %s", original.Status)
	}
	if (*Order)(nil).Clone() != nil {
		t.Fatalf("expected nil clone for nil order")
	}
}

func TestSanitizeOrderRejectsForgedVault(t *testing.T) {
	sellerAddr := newTestAddress(0x01)
	order := &Order{
		ID:     DeriveOrderID(sellerAddr, 1),
		Seller: sellerAddr,
		Asset:  "usdc",
		Amount: big.NewInt(100),
		Status: OrderPending,
	}
	order.Vault = DeriveVaultAddress(order.ID)

	sanitized, err := SanitizeOrder(order)
	if err != nil {
		t.Fatalf("sanitize: %v", err)
	}
	if sanitized.Asset != "USDC" {
		t.Fatalf("expected canonical asset, got %q", sanitized.Asset)
	}

	forged := order.Clone()
	forged.Vault = newTestAddress(0xFF)
	if _, err := SanitizeOrder(forged); err == nil {
		t.Fatalf("expected forged vault to be rejected")
	}

	badStatus := order.Clone()
	badStatus.Status = OrderStatus(42)
	if _, err := SanitizeOrder(badStatus); err == nil {
		t.Fatalf("expected invalid status to be rejected")
	}
}

func TestOrderStatusTerminal(t *testing.T) {
	for _, status := range []OrderStatus{OrderPending, OrderDeposited, OrderDisputed} {
		if status.Terminal() {
			t.Fatalf("%s must not be terminal", status)
		}
	}
	for _, status := range []OrderStatus{OrderSettled, OrderRefunded} {
		if !status.Terminal() {
			t.Fatalf("%s must be terminal", status)
		}
	}
	if OrderStatus(99).Valid() {
		t.Fatalf("out-of-range status must be invalid")
	}
	if OrderStatus(99).String() != "unknown" {
		t.Fatalf("expected unknown label")
	}
}
