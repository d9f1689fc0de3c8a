package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"strings"

	"seaescrow/cmd/internal/passphrase"
	"seaescrow/crypto"
)

var rpcEndpoint = defaultRPCEndpoint() // Defaults to localhost, can be overridden via RPC_URL or --rpc flag
var rpcAuthToken = os.Getenv("SEA_RPC_TOKEN")

const keystorePassEnv = "SEA_KEYSTORE_PASS"

func main() {
	args := os.Args[1:]
	var err error
	rpcEndpoint = defaultRPCEndpoint()
	args, err = applyGlobalFlags(args)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}

	if len(args) < 1 {
		printUsage()
		return
	}

	command := args[0]
	switch command {
	case "generate-key":
		generateKey(args[1:])
	case "show-address":
		if len(args) < 2 {
			fmt.Println("Error: Please provide a keystore file.")
			printUsage()
			return
		}
		showAddress(args[1])
	case "balance":
		if len(args) < 3 {
			fmt.Println("Error: Please provide an address and an asset symbol.")
			printUsage()
			return
		}
		getBalance(args[1], args[2])
	case "mint":
		code := runMintCommand(args[1:], os.Stdout, os.Stderr)
		if code != 0 {
			os.Exit(code)
		}
		return
	case "escrow":
		code := runEscrowCommand(args[1:], os.Stdout, os.Stderr)
		if code != 0 {
			os.Exit(code)
		}
		return
	default:
		fmt.Printf("Unknown command: %s\n", command)
		printUsage()
	}
}

func defaultRPCEndpoint() string {
	if v := strings.TrimSpace(os.Getenv("RPC_URL")); v != "" {
		return v
	}
	return "http://localhost:8080"
}

func applyGlobalFlags(args []string) ([]string, error) {
	out := make([]string, 0, len(args))
	for i := 0; i < len(args); i++ {
		arg := args[i]
		if arg == "--rpc" {
			if i+1 >= len(args) {
				return nil, fmt.Errorf("missing value for --rpc")
			}
			rpcEndpoint = args[i+1]
			i++
			continue
		}
		if strings.HasPrefix(arg, "--rpc=") {
			rpcEndpoint = strings.TrimPrefix(arg, "--rpc=")
			continue
		}
		out = append(out, arg)
	}
	return out, nil
}

func generateKey(args []string) {
	fileName := "wallet.keystore"
	if len(args) > 0 && strings.TrimSpace(args[0]) != "" {
		fileName = args[0]
	}
	if _, err := os.Stat(fileName); err == nil {
		fmt.Printf("Refusing to overwrite existing keystore %s\n", fileName)
		return
	}

	key, err := crypto.GeneratePrivateKey()
	if err != nil {
		fmt.Printf("Error generating key: %v\n", err)
		return
	}

	pass, err := passphrase.NewSource(keystorePassEnv).Get()
	if err != nil {
		fmt.Printf("Error reading passphrase: %v\n", err)
		return
	}
	if err := crypto.SaveToKeystore(fileName, key, pass); err != nil {
		fmt.Printf("Failed to save key to %s: %v\n", fileName, err)
		return
	}

	fmt.Printf("Generated new key and saved to %s\n", fileName)
	fmt.Printf("Your public address is: %s\n", key.PubKey().Address().String())
	fmt.Println("Store this file securely. The passphrase is required to recover the key.")
}

func showAddress(keyFile string) {
	key, err := loadPrivateKey(keyFile)
	if err != nil {
		fmt.Printf("Error loading key: %v\n", err)
		return
	}
	fmt.Println(key.PubKey().Address().String())
}

func loadPrivateKey(keyFile string) (*crypto.PrivateKey, error) {
	pass, err := passphrase.NewSource(keystorePassEnv).Get()
	if err != nil {
		return nil, err
	}
	return crypto.LoadFromKeystore(keyFile, pass)
}

func getBalance(addr, asset string) {
	params := map[string]interface{}{
		"account": addr,
		"asset":   strings.ToUpper(strings.TrimSpace(asset)),
	}
	result, rpcErr, err := callRPC("ledger_balance", params, false)
	if err != nil {
		fmt.Printf("Error fetching balance: %v\n", err)
		return
	}
	if rpcErr != nil {
		fmt.Printf("RPC error %d: %s\n", rpcErr.Code, rpcErr.Message)
		return
	}
	var balance struct {
		Account string `json:"account"`
		Asset   string `json:"asset"`
		Balance string `json:"balance"`
	}
	if err := json.Unmarshal(result, &balance); err != nil {
		fmt.Printf("Error decoding response: %v\n", err)
		return
	}
	fmt.Printf("Balance for: %s\n", balance.Account)
	fmt.Printf("  %s: %s\n", balance.Asset, balance.Balance)
}

func callRPC(method string, params interface{}, requireAuth bool) (json.RawMessage, *rpcError, error) {
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
		return nil, nil, err
	}
	resp, err := doRPCRequest(body, requireAuth)
	if err != nil {
		return nil, nil, err
	}
	defer resp.Body.Close()

	var rpcResp struct {
		Result json.RawMessage `json:"result"`
		Error  *rpcError       `json:"error"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&rpcResp); err != nil {
		return nil, nil, fmt.Errorf("failed to decode RPC response: %w", err)
	}
	return rpcResp.Result, rpcResp.Error, nil
}

func doRPCRequest(payload []byte, requireAuth bool) (*http.Response, error) {
	req, err := http.NewRequest(http.MethodPost, rpcEndpoint, bytes.NewBuffer(payload))
	if err != nil {
		return nil, fmt.Errorf("failed to build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	if requireAuth {
		if rpcAuthToken == "" {
			return nil, fmt.Errorf("privileged RPC call requires SEA_RPC_TOKEN to be set")
		}
		req.Header.Set("Authorization", "Bearer "+strings.TrimSpace(rpcAuthToken))
	}

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("POST %s: %w", rpcEndpoint, err)
	}
	return resp, nil
}

func printUsage() {
	fmt.Println(strings.TrimSpace(`Usage:
  sea-cli [--rpc <url>] <command> [args]

Commands:
  generate-key [file]          Generate a new key and save it to a keystore file
  show-address <file>          Print the address for a keystore file
  balance <address> <asset>    Query a ledger balance
  mint [flags]                 Mint asset supply (requires mint authority)
  escrow <subcommand> [flags]  Manage escrow orders (init, get, deposit, release, dispute, refund)
`))
}
