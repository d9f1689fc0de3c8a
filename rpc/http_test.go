package rpc

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math/big"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"seaescrow/core"
	"seaescrow/crypto"
	"seaescrow/storage"
)

const testToken = "test-token"

var testAuthority = testAddr(0xA0)

func testAddr(fill byte) [20]byte {
	var out [20]byte
	for i := range out {
		out[i] = fill
	}
	return out
}

func bech(addr [20]byte) string {
	return crypto.MustNewAddress(crypto.SeaPrefix, addr[:]).String()
}

func newTestServer(t *testing.T) (*Server, *core.Node) {
	t.Helper()
	t.Setenv("SEA_RPC_TOKEN", testToken)
	node := core.NewNode(storage.NewMemDB())
	if err := node.RegisterAsset("USDC", "USD Coin", 6, testAuthority[:]); err != nil {
		t.Fatalf("register asset: %v", err)
	}
	return NewServer(node), node
}

func doRequest(t *testing.T, server *Server, method string, params interface{}, authed bool) (*httptest.ResponseRecorder, RPCResponse) {
	t.Helper()
	payload := map[string]interface{}{
		"jsonrpc": "2.0",
		"id":      1,
		"method":  method,
	}
	if params != nil {
		payload["params"] = []interface{}{params}
	} else {
		payload["params"] = []interface{}{}
	}
	body, err := json.Marshal(payload)
	if err != nil {
		t.Fatalf("marshal request: %v", err)
	}
	req := httptest.NewRequest(http.MethodPost, "/", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	if authed {
		req.Header.Set("Authorization", "Bearer "+testToken)
	}
	recorder := httptest.NewRecorder()
	server.Handler().ServeHTTP(recorder, req)

	var resp RPCResponse
	if err := json.Unmarshal(recorder.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode response: %v (%s)", err, recorder.Body.String())
	}
	return recorder, resp
}

func resultInto(t *testing.T, resp RPCResponse, out interface{}) {
	t.Helper()
	if resp.Error != nil {
		t.Fatalf("unexpected RPC error: %d %s", resp.Error.Code, resp.Error.Message)
	}
	raw, err := json.Marshal(resp.Result)
	if err != nil {
		t.Fatalf("re-marshal result: %v", err)
	}
	if err := json.Unmarshal(raw, out); err != nil {
		t.Fatalf("decode result: %v", err)
	}
}

func TestMutationsRequireAuth(t *testing.T) {
	server, _ := newTestServer(t)
	params := map[string]interface{}{
		"seller":        bech(testAddr(0x01)),
		"orderNumber":   1,
		"asset":         "USDC",
		"amount":        "100",
		"payoutAccount": bech(testAddr(0x02)),
	}

	recorder, resp := doRequest(t, server, "escrow_init", params, false)
	if recorder.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", recorder.Code)
	}
	if resp.Error == nil || resp.Error.Code != codeUnauthorized {
		t.Fatalf("expected unauthorized error, got %+v", resp.Error)
	}
}

func TestAuthNotConfigured(t *testing.T) {
	t.Setenv("SEA_RPC_TOKEN", "")
	node := core.NewNode(storage.NewMemDB())
	server := NewServer(node)
	req := httptest.NewRequest(http.MethodPost, "/", nil)
	if authErr := server.requireAuth(req); authErr == nil {
		t.Fatalf("expected auth failure when no token configured")
	}
}

func TestMethodNotFound(t *testing.T) {
	server, _ := newTestServer(t)
	recorder, resp := doRequest(t, server, "escrow_unknown", nil, true)
	if recorder.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", recorder.Code)
	}
	if resp.Error == nil || resp.Error.Code != codeMethodNotFound {
		t.Fatalf("expected method-not-found error, got %+v", resp.Error)
	}
}

func TestInvalidJSONPayload(t *testing.T) {
	server, _ := newTestServer(t)
	req := httptest.NewRequest(http.MethodPost, "/", bytes.NewReader([]byte("{not json")))
	recorder := httptest.NewRecorder()
	server.Handler().ServeHTTP(recorder, req)

	var resp RPCResponse
	if err := json.Unmarshal(recorder.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if resp.Error == nil || resp.Error.Code != codeParseError {
		t.Fatalf("expected parse error, got %+v", resp.Error)
	}
}

func TestEscrowLifecycleOverRPC(t *testing.T) {
	server, node := newTestServer(t)
	sellerAddr := testAddr(0x01)
	payoutAddr := testAddr(0x02)
	buyerAddr := testAddr(0x03)
	if err := node.GenesisMint(buyerAddr, "USDC", big.NewInt(1000)); err != nil {
		t.Fatalf("seed buyer balance: %v", err)
	}

	initParams := map[string]interface{}{
		"seller":        bech(sellerAddr),
		"orderNumber":   7,
		"asset":         "USDC",
		"amount":        "1000",
		"payoutAccount": bech(payoutAddr),
	}
	_, resp := doRequest(t, server, "escrow_init", initParams, true)
	var created escrowInitResult
	resultInto(t, resp, &created)
	if created.ID == "" || created.Vault == "" {
		t.Fatalf("expected id and vault in init result: %+v", created)
	}

	_, resp = doRequest(t, server, "escrow_get", map[string]interface{}{
		"seller":      bech(sellerAddr),
		"orderNumber": 7,
	}, false)
	var fetched orderJSON
	resultInto(t, resp, &fetched)
	if fetched.ID != created.ID {
		t.Fatalf("expected derived lookup to match init id")
	}
	if fetched.Status != "pending" {
		t.Fatalf("expected pending order, got %s", fetched.Status)
	}

	_, resp = doRequest(t, server, "escrow_deposit", map[string]interface{}{
		"id":     created.ID,
		"caller": bech(buyerAddr),
	}, true)
	var deposited orderJSON
	resultInto(t, resp, &deposited)
	if deposited.Status != "deposited" {
		t.Fatalf("expected deposited order, got %s", deposited.Status)
	}
	if deposited.Buyer == nil || *deposited.Buyer != bech(buyerAddr) {
		t.Fatalf("expected buyer bound in response")
	}

	_, resp = doRequest(t, server, "escrow_release", map[string]interface{}{
		"id":      created.ID,
		"caller":  bech(buyerAddr),
		"account": bech(payoutAddr),
	}, true)
	var settled orderJSON
	resultInto(t, resp, &settled)
	if settled.Status != "settled" {
		t.Fatalf("expected settled order, got %s", settled.Status)
	}

	_, resp = doRequest(t, server, "ledger_balance", map[string]interface{}{
		"account": bech(payoutAddr),
		"asset":   "USDC",
	}, false)
	var balance ledgerBalanceResult
	resultInto(t, resp, &balance)
	if balance.Balance != "1000" {
		t.Fatalf("expected payout balance 1000, got %s", balance.Balance)
	}
}

func TestDuplicateInitMapsToConflict(t *testing.T) {
	server, _ := newTestServer(t)
	params := map[string]interface{}{
		"seller":        bech(testAddr(0x01)),
		"orderNumber":   3,
		"asset":         "USDC",
		"amount":        "50",
		"payoutAccount": bech(testAddr(0x02)),
	}
	_, resp := doRequest(t, server, "escrow_init", params, true)
	if resp.Error != nil {
		t.Fatalf("first init failed: %+v", resp.Error)
	}

	recorder, resp := doRequest(t, server, "escrow_init", params, true)
	if recorder.Code != http.StatusConflict {
		t.Fatalf("expected 409, got %d", recorder.Code)
	}
	if resp.Error == nil || resp.Error.Code != codeEscrowConflict {
		t.Fatalf("expected conflict error, got %+v", resp.Error)
	}
}

func TestInitRejectsMalformedAddress(t *testing.T) {
	server, _ := newTestServer(t)
	params := map[string]interface{}{
		"seller":        "not-an-address",
		"orderNumber":   1,
		"asset":         "USDC",
		"amount":        "50",
		"payoutAccount": bech(testAddr(0x02)),
	}
	recorder, resp := doRequest(t, server, "escrow_init", params, true)
	if recorder.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", recorder.Code)
	}
	if resp.Error == nil || resp.Error.Code != codeEscrowInvalidParams {
		t.Fatalf("expected invalid-params error, got %+v", resp.Error)
	}
}

func TestEscrowGetUnknownOrder(t *testing.T) {
	server, _ := newTestServer(t)
	recorder, resp := doRequest(t, server, "escrow_get", map[string]interface{}{
		"id": "0x" + fmt.Sprintf("%064x", 1),
	}, false)
	if recorder.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", recorder.Code)
	}
	if resp.Error == nil || resp.Error.Code != codeEscrowNotFound {
		t.Fatalf("expected not-found error, got %+v", resp.Error)
	}
}

func TestLedgerMintRequiresAuthority(t *testing.T) {
	server, _ := newTestServer(t)
	params := map[string]interface{}{
		"caller": bech(testAddr(0x55)),
		"to":     bech(testAddr(0x03)),
		"asset":  "USDC",
		"amount": "100",
	}
	recorder, resp := doRequest(t, server, "ledger_mint", params, true)
	if recorder.Code != http.StatusInternalServerError {
		t.Fatalf("expected 500, got %d", recorder.Code)
	}
	if resp.Error == nil || resp.Error.Code != codeEscrowInternal {
		t.Fatalf("expected internal error for wrong authority, got %+v", resp.Error)
	}

	params["caller"] = bech(testAuthority)
	_, resp = doRequest(t, server, "ledger_mint", params, true)
	var balance ledgerBalanceResult
	resultInto(t, resp, &balance)
	if balance.Balance != "100" {
		t.Fatalf("expected minted balance 100, got %s", balance.Balance)
	}
}

func TestAllowSourceWindow(t *testing.T) {
	server, _ := newTestServer(t)
	now := time.Now()
	for i := 0; i < maxMutationsPerWindow; i++ {
		if !server.allowSource("10.0.0.1", now) {
			t.Fatalf("request %d unexpectedly limited", i)
		}
	}
	if server.allowSource("10.0.0.1", now) {
		t.Fatalf("expected limit after %d mutations", maxMutationsPerWindow)
	}
	if !server.allowSource("10.0.0.2", now) {
		t.Fatalf("expected independent budget per source")
	}
	if !server.allowSource("10.0.0.1", now.Add(rateLimitWindow)) {
		t.Fatalf("expected fresh window after expiry")
	}
}
