package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"math/big"
	"strconv"
	"strings"
)

type rpcError struct {
	Code    int             `json:"code"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data,omitempty"`
}

var escrowRPCCall = callRPC

func runEscrowCommand(args []string, stdout, stderr io.Writer) int {
	if len(args) == 0 {
		fmt.Fprintln(stderr, escrowUsage())
		return 1
	}

	switch args[0] {
	case "init":
		return runEscrowInit(args[1:], stdout, stderr)
	case "get":
		return runEscrowGet(args[1:], stdout, stderr)
	case "deposit":
		return runEscrowDeposit(args[1:], stdout, stderr)
	case "release":
		return runEscrowRelease(args[1:], stdout, stderr)
	case "dispute":
		return runEscrowDispute(args[1:], stdout, stderr)
	case "refund":
		return runEscrowRefund(args[1:], stdout, stderr)
	default:
		fmt.Fprintf(stderr, "Unknown escrow subcommand: %s\n", args[0])
		fmt.Fprintln(stderr, escrowUsage())
		return 1
	}
}

func runEscrowInit(args []string, stdout, stderr io.Writer) int {
	fs := newEscrowFlagSet("escrow init", stderr)
	var (
		seller         string
		orderNumberStr string
		asset          string
		amountStr      string
		payoutAccount  string
		referee        string
	)
	fs.StringVar(&seller, "seller", "", "seller bech32 address")
	fs.StringVar(&orderNumberStr, "order-number", "", "seller-scoped order number")
	fs.StringVar(&asset, "asset", "", "asset symbol")
	fs.StringVar(&amountStr, "amount", "", "escrow amount in base units")
	fs.StringVar(&payoutAccount, "payout", "", "seller payout bech32 address")
	fs.StringVar(&referee, "referee", "", "optional referee bech32 address")
	if err := fs.Parse(args); err != nil {
		return 1
	}
	if fs.NArg() > 0 {
		fmt.Fprintln(stderr, "Error: unexpected positional arguments")
		return 1
	}
	if seller == "" {
		return printEscrowError(stderr, "--seller is required")
	}
	if orderNumberStr == "" {
		return printEscrowError(stderr, "--order-number is required")
	}
	orderNumber, err := strconv.ParseUint(orderNumberStr, 10, 64)
	if err != nil {
		return printEscrowError(stderr, "--order-number must be an unsigned integer")
	}
	if asset == "" {
		return printEscrowError(stderr, "--asset is required")
	}
	if amountStr == "" {
		return printEscrowError(stderr, "--amount is required")
	}
	amount, ok := new(big.Int).SetString(strings.TrimSpace(amountStr), 10)
	if !ok || amount.Sign() <= 0 {
		return printEscrowError(stderr, "--amount must be a positive integer")
	}
	if payoutAccount == "" {
		return printEscrowError(stderr, "--payout is required")
	}

	params := map[string]interface{}{
		"seller":        seller,
		"orderNumber":   orderNumber,
		"asset":         strings.ToUpper(strings.TrimSpace(asset)),
		"amount":        amount.String(),
		"payoutAccount": payoutAccount,
	}
	if strings.TrimSpace(referee) != "" {
		params["referee"] = referee
	}

	result, rpcErr, err := escrowRPCCall("escrow_init", params, true)
	if err != nil {
		return handleRPCCallError(stderr, err)
	}
	if rpcErr != nil {
		return handleRPCError(stderr, rpcErr)
	}
	writeRPCResult(stdout, result)
	return 0
}

func runEscrowGet(args []string, stdout, stderr io.Writer) int {
	fs := newEscrowFlagSet("escrow get", stderr)
	var (
		id             string
		seller         string
		orderNumberStr string
	)
	fs.StringVar(&id, "id", "", "0x-prefixed order id")
	fs.StringVar(&seller, "seller", "", "seller bech32 address (with --order-number)")
	fs.StringVar(&orderNumberStr, "order-number", "", "seller-scoped order number (with --seller)")
	if err := fs.Parse(args); err != nil {
		return 1
	}

	params := map[string]interface{}{}
	switch {
	case strings.TrimSpace(id) != "":
		if err := validateOrderID(id); err != nil {
			return printEscrowError(stderr, err.Error())
		}
		params["id"] = id
	case strings.TrimSpace(seller) != "":
		orderNumber, err := strconv.ParseUint(orderNumberStr, 10, 64)
		if err != nil {
			return printEscrowError(stderr, "--order-number must be an unsigned integer")
		}
		params["seller"] = seller
		params["orderNumber"] = orderNumber
	default:
		return printEscrowError(stderr, "--id or --seller with --order-number is required")
	}

	result, rpcErr, err := escrowRPCCall("escrow_get", params, false)
	if err != nil {
		return handleRPCCallError(stderr, err)
	}
	if rpcErr != nil {
		return handleRPCError(stderr, rpcErr)
	}
	writeRPCResult(stdout, result)
	return 0
}

func runEscrowDeposit(args []string, stdout, stderr io.Writer) int {
	fs := newEscrowFlagSet("escrow deposit", stderr)
	var (
		id     string
		caller string
		source string
	)
	fs.StringVar(&id, "id", "", "0x-prefixed order id")
	fs.StringVar(&caller, "caller", "", "buyer bech32 address")
	fs.StringVar(&source, "source", "", "funding account (defaults to caller)")
	if err := fs.Parse(args); err != nil {
		return 1
	}
	if err := validateOrderID(id); err != nil {
		return printEscrowError(stderr, err.Error())
	}
	if caller == "" {
		return printEscrowError(stderr, "--caller is required")
	}

	params := map[string]interface{}{
		"id":     id,
		"caller": caller,
	}
	if strings.TrimSpace(source) != "" {
		params["source"] = source
	}

	result, rpcErr, err := escrowRPCCall("escrow_deposit", params, true)
	if err != nil {
		return handleRPCCallError(stderr, err)
	}
	if rpcErr != nil {
		return handleRPCError(stderr, rpcErr)
	}
	writeRPCResult(stdout, result)
	return 0
}

func runEscrowRelease(args []string, stdout, stderr io.Writer) int {
	return runAccountTransition("escrow release", "escrow_release", args, stdout, stderr)
}

func runEscrowRefund(args []string, stdout, stderr io.Writer) int {
	return runAccountTransition("escrow refund", "escrow_refund", args, stdout, stderr)
}

func runAccountTransition(name, method string, args []string, stdout, stderr io.Writer) int {
	fs := newEscrowFlagSet(name, stderr)
	var (
		id      string
		caller  string
		account string
	)
	fs.StringVar(&id, "id", "", "0x-prefixed order id")
	fs.StringVar(&caller, "caller", "", "caller bech32 address")
	fs.StringVar(&account, "account", "", "destination bech32 address")
	if err := fs.Parse(args); err != nil {
		return 1
	}
	if err := validateOrderID(id); err != nil {
		return printEscrowError(stderr, err.Error())
	}
	if caller == "" {
		return printEscrowError(stderr, "--caller is required")
	}
	if account == "" {
		return printEscrowError(stderr, "--account is required")
	}

	params := map[string]interface{}{
		"id":      id,
		"caller":  caller,
		"account": account,
	}

	result, rpcErr, err := escrowRPCCall(method, params, true)
	if err != nil {
		return handleRPCCallError(stderr, err)
	}
	if rpcErr != nil {
		return handleRPCError(stderr, rpcErr)
	}
	writeRPCResult(stdout, result)
	return 0
}

func runEscrowDispute(args []string, stdout, stderr io.Writer) int {
	fs := newEscrowFlagSet("escrow dispute", stderr)
	var (
		id     string
		caller string
	)
	fs.StringVar(&id, "id", "", "0x-prefixed order id")
	fs.StringVar(&caller, "caller", "", "buyer bech32 address")
	if err := fs.Parse(args); err != nil {
		return 1
	}
	if err := validateOrderID(id); err != nil {
		return printEscrowError(stderr, err.Error())
	}
	if caller == "" {
		return printEscrowError(stderr, "--caller is required")
	}

	params := map[string]interface{}{
		"id":     id,
		"caller": caller,
	}

	result, rpcErr, err := escrowRPCCall("escrow_dispute", params, true)
	if err != nil {
		return handleRPCCallError(stderr, err)
	}
	if rpcErr != nil {
		return handleRPCError(stderr, rpcErr)
	}
	writeRPCResult(stdout, result)
	return 0
}

func runMintCommand(args []string, stdout, stderr io.Writer) int {
	fs := newEscrowFlagSet("mint", stderr)
	var (
		caller    string
		to        string
		asset     string
		amountStr string
	)
	fs.StringVar(&caller, "caller", "", "mint authority bech32 address")
	fs.StringVar(&to, "to", "", "recipient bech32 address")
	fs.StringVar(&asset, "asset", "", "asset symbol")
	fs.StringVar(&amountStr, "amount", "", "amount in base units")
	if err := fs.Parse(args); err != nil {
		return 1
	}
	if caller == "" {
		return printEscrowError(stderr, "--caller is required")
	}
	if to == "" {
		return printEscrowError(stderr, "--to is required")
	}
	if asset == "" {
		return printEscrowError(stderr, "--asset is required")
	}
	amount, ok := new(big.Int).SetString(strings.TrimSpace(amountStr), 10)
	if !ok || amount.Sign() <= 0 {
		return printEscrowError(stderr, "--amount must be a positive integer")
	}

	params := map[string]interface{}{
		"caller": caller,
		"to":     to,
		"asset":  strings.ToUpper(strings.TrimSpace(asset)),
		"amount": amount.String(),
	}

	result, rpcErr, err := escrowRPCCall("ledger_mint", params, true)
	if err != nil {
		return handleRPCCallError(stderr, err)
	}
	if rpcErr != nil {
		return handleRPCError(stderr, rpcErr)
	}
	writeRPCResult(stdout, result)
	return 0
}

func newEscrowFlagSet(name string, stderr io.Writer) *flag.FlagSet {
	fs := flag.NewFlagSet(name, flag.ContinueOnError)
	fs.SetOutput(stderr)
	return fs
}

func printEscrowError(w io.Writer, msg string) int {
	fmt.Fprintf(w, "Error: %s\n", msg)
	return 1
}

func handleRPCError(w io.Writer, err *rpcError) int {
	if err == nil {
		return 0
	}
	fmt.Fprintf(w, "RPC error %d: %s\n", err.Code, err.Message)
	return 1
}

func handleRPCCallError(w io.Writer, err error) int {
	if err == nil {
		return 0
	}
	fmt.Fprintf(w, "RPC call failed: %v\n", err)
	return 1
}

func writeRPCResult(w io.Writer, result json.RawMessage) {
	if len(result) == 0 {
		fmt.Fprintln(w, "null")
		return
	}
	if _, err := w.Write(result); err == nil {
		if result[len(result)-1] != '\n' {
			fmt.Fprintln(w)
		}
	}
}

func escrowUsage() string {
	return strings.TrimSpace(`Usage:
  sea-cli escrow <command> [flags]

Commands:
  init    Create a new escrow order
  get     Fetch order details by id or seller and order number
  deposit Fund an order from the buyer account
  release Release custodied funds to the seller payout account
  dispute Freeze a funded order pending referee review
  refund  Return custodied funds to the buyer (referee only)
`)
}

func validateOrderID(value string) error {
	trimmed := strings.TrimSpace(value)
	if trimmed == "" {
		return fmt.Errorf("--id is required")
	}
	cleaned := trimmed
	if strings.HasPrefix(trimmed, "0x") || strings.HasPrefix(trimmed, "0X") {
		cleaned = trimmed[2:]
	} else {
		return fmt.Errorf("--id must be a 0x-prefixed 32-byte hex string")
	}
	if len(cleaned) != 64 {
		return fmt.Errorf("--id must be a 0x-prefixed 32-byte hex string")
	}
	if !isHex(cleaned) {
		return fmt.Errorf("--id must contain only hexadecimal characters")
	}
	return nil
}

func isHex(s string) bool {
	for _, r := range s {
		switch {
		case r >= '0' && r <= '9':
		case r >= 'a' && r <= 'f':
		case r >= 'A' && r <= 'F':
		default:
			return false
		}
	}
	return true
}
