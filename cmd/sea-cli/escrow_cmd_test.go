package main

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"
)

const (
	testBech32 = "sea1qqqsyqcyq5rqwzqfpg9scrgwpugpzysnrujsuw"
	testID     = "0x1122334455667788991122334455667788991122334455667788991122334455"
)

type recordedCall struct {
	method string
	params map[string]interface{}
	authed bool
}

func stubRPC(t *testing.T, result string) *recordedCall {
	t.Helper()
	recorded := &recordedCall{}
	original := escrowRPCCall
	escrowRPCCall = func(method string, params interface{}, requireAuth bool) (json.RawMessage, *rpcError, error) {
		recorded.method = method
		recorded.authed = requireAuth
		if m, ok := params.(map[string]interface{}); ok {
			recorded.params = m
		}
		return json.RawMessage(result), nil, nil
	}
	t.Cleanup(func() { escrowRPCCall = original })
	return recorded
}

func TestEscrowCommandUsage(t *testing.T) {
	var stdout, stderr bytes.Buffer
	if code := runEscrowCommand(nil, &stdout, &stderr); code != 1 {
		t.Fatalf("expected exit 1, got %d", code)
	}
	if !strings.Contains(stderr.String(), "sea-cli escrow") {
		t.Fatalf("expected usage text, got %q", stderr.String())
	}

	stderr.Reset()
	if code := runEscrowCommand([]string{"bogus"}, &stdout, &stderr); code != 1 {
		t.Fatalf("expected exit 1 for unknown subcommand")
	}
	if !strings.Contains(stderr.String(), "Unknown escrow subcommand") {
		t.Fatalf("expected unknown-subcommand message, got %q", stderr.String())
	}
}

func TestEscrowInitValidation(t *testing.T) {
	stubRPC(t, `{}`)

	cases := []struct {
		name string
		args []string
		want string
	}{
		{"missing seller", []string{"--order-number", "1", "--asset", "USDC", "--amount", "10", "--payout", testBech32}, "--seller is required"},
		{"missing order number", []string{"--seller", testBech32, "--asset", "USDC", "--amount", "10", "--payout", testBech32}, "--order-number is required"},
		{"bad order number", []string{"--seller", testBech32, "--order-number", "abc", "--asset", "USDC", "--amount", "10", "--payout", testBech32}, "--order-number must be"},
		{"bad amount", []string{"--seller", testBech32, "--order-number", "1", "--asset", "USDC", "--amount", "-5", "--payout", testBech32}, "--amount must be"},
		{"missing payout", []string{"--seller", testBech32, "--order-number", "1", "--asset", "USDC", "--amount", "10"}, "--payout is required"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			var stdout, stderr bytes.Buffer
			if code := runEscrowInit(tc.args, &stdout, &stderr); code != 1 {
				t.Fatalf("expected exit 1, got %d", code)
			}
			if !strings.Contains(stderr.String(), tc.want) {
				t.Fatalf("expected %q in stderr, got %q", tc.want, stderr.String())
			}
		})
	}
}

func TestEscrowInitSendsNormalizedParams(t *testing.T) {
	recorded := stubRPC(t, `{"id":"`+testID+`"}`)
	var stdout, stderr bytes.Buffer

	code := runEscrowInit([]string{
		"--seller", testBech32,
		"--order-number", "7",
		"--asset", "usdc",
		"--amount", "1000",
		"--payout", testBech32,
		"--referee", testBech32,
	}, &stdout, &stderr)
	if code != 0 {
		t.Fatalf("expected success, got %d (%s)", code, stderr.String())
	}

	if recorded.method != "escrow_init" {
		t.Fatalf("expected escrow_init, got %s", recorded.method)
	}
	if !recorded.authed {
		t.Fatalf("expected authenticated call")
	}
	if recorded.params["asset"] != "USDC" {
		t.Fatalf("expected asset normalized, got %v", recorded.params["asset"])
	}
	if recorded.params["orderNumber"] != uint64(7) {
		t.Fatalf("expected orderNumber 7, got %v", recorded.params["orderNumber"])
	}
	if recorded.params["referee"] != testBech32 {
		t.Fatalf("expected referee forwarded")
	}
	if !strings.Contains(stdout.String(), testID) {
		t.Fatalf("expected result echoed to stdout")
	}
}

func TestEscrowGetRequiresIDOrSeller(t *testing.T) {
	stubRPC(t, `{}`)
	var stdout, stderr bytes.Buffer
	if code := runEscrowGet(nil, &stdout, &stderr); code != 1 {
		t.Fatalf("expected exit 1")
	}
	if !strings.Contains(stderr.String(), "--id or --seller") {
		t.Fatalf("unexpected stderr %q", stderr.String())
	}

	recorded := stubRPC(t, `{}`)
	stderr.Reset()
	if code := runEscrowGet([]string{"--seller", testBech32, "--order-number", "7"}, &stdout, &stderr); code != 0 {
		t.Fatalf("expected success, got %d (%s)", code, stderr.String())
	}
	if recorded.authed {
		t.Fatalf("expected read-only call without auth")
	}
	if recorded.params["orderNumber"] != uint64(7) {
		t.Fatalf("expected derived lookup params, got %v", recorded.params)
	}
}

func TestEscrowTransitionCommands(t *testing.T) {
	cases := []struct {
		name   string
		run    func([]string, *bytes.Buffer, *bytes.Buffer) int
		args   []string
		method string
	}{
		{
			name: "deposit",
			run: func(args []string, out, errOut *bytes.Buffer) int {
				return runEscrowDeposit(args, out, errOut)
			},
			args:   []string{"--id", testID, "--caller", testBech32},
			method: "escrow_deposit",
		},
		{
			name: "release",
			run: func(args []string, out, errOut *bytes.Buffer) int {
				return runEscrowRelease(args, out, errOut)
			},
			args:   []string{"--id", testID, "--caller", testBech32, "--account", testBech32},
			method: "escrow_release",
		},
		{
			name: "dispute",
			run: func(args []string, out, errOut *bytes.Buffer) int {
				return runEscrowDispute(args, out, errOut)
			},
			args:   []string{"--id", testID, "--caller", testBech32},
			method: "escrow_dispute",
		},
		{
			name: "refund",
			run: func(args []string, out, errOut *bytes.Buffer) int {
				return runEscrowRefund(args, out, errOut)
			},
			args:   []string{"--id", testID, "--caller", testBech32, "--account", testBech32},
			method: "escrow_refund",
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			recorded := stubRPC(t, `{"status":"ok"}`)
			var stdout, stderr bytes.Buffer
			if code := tc.run(tc.args, &stdout, &stderr); code != 0 {
				t.Fatalf("expected success, got %d (%s)", code, stderr.String())
			}
			if recorded.method != tc.method {
				t.Fatalf("expected method %s, got %s", tc.method, recorded.method)
			}
			if !recorded.authed {
				t.Fatalf("expected authenticated call")
			}
		})
	}
}

func TestValidateOrderID(t *testing.T) {
	if err := validateOrderID(testID); err != nil {
		t.Fatalf("expected valid id, got %v", err)
	}
	for _, bad := range []string{"", "1234", "0x1234", "0x" + strings.Repeat("zz", 32)} {
		if err := validateOrderID(bad); err == nil {
			t.Fatalf("expected error for %q", bad)
		}
	}
}
