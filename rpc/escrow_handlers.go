package rpc

import (
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"math/big"
	"net/http"
	"strings"

	"seaescrow/crypto"
	"seaescrow/native/escrow"
)

const (
	codeEscrowInvalidParams = -32021
	codeEscrowNotFound      = -32022
	codeEscrowForbidden     = -32023
	codeEscrowConflict      = -32024
	codeEscrowInternal      = -32025
)

type escrowInitParams struct {
	Seller        string `json:"seller"`
	OrderNumber   uint64 `json:"orderNumber"`
	Asset         string `json:"asset"`
	Amount        string `json:"amount"`
	PayoutAccount string `json:"payoutAccount"`
	Referee       string `json:"referee,omitempty"`
}

type escrowGetParams struct {
	ID          string `json:"id,omitempty"`
	Seller      string `json:"seller,omitempty"`
	OrderNumber uint64 `json:"orderNumber,omitempty"`
}

type escrowDepositParams struct {
	ID     string `json:"id"`
	Caller string `json:"caller"`
	Source string `json:"source,omitempty"`
}

type escrowAccountParams struct {
	ID      string `json:"id"`
	Caller  string `json:"caller"`
	Account string `json:"account"`
}

type escrowActorParams struct {
	ID     string `json:"id"`
	Caller string `json:"caller"`
}

type escrowInitResult struct {
	ID    string `json:"id"`
	Vault string `json:"vault"`
}

type orderJSON struct {
	ID            string  `json:"id"`
	Seller        string  `json:"seller"`
	OrderNumber   uint64  `json:"orderNumber"`
	PayoutAccount string  `json:"payoutAccount"`
	Buyer         *string `json:"buyer,omitempty"`
	RefundAccount *string `json:"refundAccount,omitempty"`
	Referee       *string `json:"referee,omitempty"`
	Asset         string  `json:"asset"`
	Amount        string  `json:"amount"`
	Vault         string  `json:"vault"`
	CreatedAt     int64   `json:"createdAt"`
	Status        string  `json:"status"`
}

func (s *Server) handleEscrowInit(w http.ResponseWriter, _ *http.Request, req *RPCRequest) {
	var params escrowInitParams
	if !decodeSingleParam(w, req, &params) {
		return
	}
	seller, err := parseAddressParam(params.Seller, "seller")
	if err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeEscrowInvalidParams, "invalid_params", err.Error())
		return
	}
	payout, err := parseAddressParam(params.PayoutAccount, "payoutAccount")
	if err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeEscrowInvalidParams, "invalid_params", err.Error())
		return
	}
	amount, err := parsePositiveBigInt(params.Amount)
	if err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeEscrowInvalidParams, "invalid_params", err.Error())
		return
	}
	var refereePtr *[20]byte
	if strings.TrimSpace(params.Referee) != "" {
		referee, parseErr := parseAddressParam(params.Referee, "referee")
		if parseErr != nil {
			writeError(w, http.StatusBadRequest, req.ID, codeEscrowInvalidParams, "invalid_params", parseErr.Error())
			return
		}
		refereeCopy := referee
		refereePtr = &refereeCopy
	}
	order, err := s.node.EscrowInit(seller, params.OrderNumber, payout, refereePtr, params.Asset, amount)
	if err != nil {
		writeEscrowError(w, req.ID, err)
		return
	}
	writeResult(w, req.ID, escrowInitResult{ID: formatOrderID(order.ID), Vault: formatAccount(order.Vault)})
}

func (s *Server) handleEscrowGet(w http.ResponseWriter, _ *http.Request, req *RPCRequest) {
	var params escrowGetParams
	if !decodeSingleParam(w, req, &params) {
		return
	}
	var id [32]byte
	switch {
	case strings.TrimSpace(params.ID) != "":
		parsed, err := parseOrderID(params.ID)
		if err != nil {
			writeError(w, http.StatusBadRequest, req.ID, codeEscrowInvalidParams, "invalid_params", err.Error())
			return
		}
		id = parsed
	case strings.TrimSpace(params.Seller) != "":
		seller, err := parseAddressParam(params.Seller, "seller")
		if err != nil {
			writeError(w, http.StatusBadRequest, req.ID, codeEscrowInvalidParams, "invalid_params", err.Error())
			return
		}
		id = escrow.DeriveOrderID(seller, params.OrderNumber)
	default:
		writeError(w, http.StatusBadRequest, req.ID, codeEscrowInvalidParams, "invalid_params", "id or seller+orderNumber required")
		return
	}
	order, err := s.node.EscrowGet(id)
	if err != nil {
		writeEscrowError(w, req.ID, err)
		return
	}
	writeResult(w, req.ID, formatOrderJSON(order))
}

func (s *Server) handleEscrowDeposit(w http.ResponseWriter, _ *http.Request, req *RPCRequest) {
	var params escrowDepositParams
	if !decodeSingleParam(w, req, &params) {
		return
	}
	id, err := parseOrderID(params.ID)
	if err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeEscrowInvalidParams, "invalid_params", err.Error())
		return
	}
	caller, err := parseAddressParam(params.Caller, "caller")
	if err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeEscrowInvalidParams, "invalid_params", err.Error())
		return
	}
	source := caller
	if strings.TrimSpace(params.Source) != "" {
		source, err = parseAddressParam(params.Source, "source")
		if err != nil {
			writeError(w, http.StatusBadRequest, req.ID, codeEscrowInvalidParams, "invalid_params", err.Error())
			return
		}
	}
	order, err := s.node.EscrowDeposit(id, caller, source)
	if err != nil {
		writeEscrowError(w, req.ID, err)
		return
	}
	writeResult(w, req.ID, formatOrderJSON(order))
}

func (s *Server) handleEscrowRelease(w http.ResponseWriter, r *http.Request, req *RPCRequest) {
	s.handleAccountTransition(w, r, req, func(id [32]byte, caller, account [20]byte) (*escrow.Order, error) {
		return s.node.EscrowRelease(id, caller, account)
	})
}

func (s *Server) handleEscrowRefund(w http.ResponseWriter, r *http.Request, req *RPCRequest) {
	s.handleAccountTransition(w, r, req, func(id [32]byte, caller, account [20]byte) (*escrow.Order, error) {
		return s.node.EscrowRefund(id, caller, account)
	})
}

func (s *Server) handleAccountTransition(w http.ResponseWriter, _ *http.Request, req *RPCRequest, fn func([32]byte, [20]byte, [20]byte) (*escrow.Order, error)) {
	var params escrowAccountParams
	if !decodeSingleParam(w, req, &params) {
		return
	}
	id, err := parseOrderID(params.ID)
	if err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeEscrowInvalidParams, "invalid_params", err.Error())
		return
	}
	caller, err := parseAddressParam(params.Caller, "caller")
	if err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeEscrowInvalidParams, "invalid_params", err.Error())
		return
	}
	account, err := parseAddressParam(params.Account, "account")
	if err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeEscrowInvalidParams, "invalid_params", err.Error())
		return
	}
	order, err := fn(id, caller, account)
	if err != nil {
		writeEscrowError(w, req.ID, err)
		return
	}
	writeResult(w, req.ID, formatOrderJSON(order))
}

func (s *Server) handleEscrowDispute(w http.ResponseWriter, _ *http.Request, req *RPCRequest) {
	var params escrowActorParams
	if !decodeSingleParam(w, req, &params) {
		return
	}
	id, err := parseOrderID(params.ID)
	if err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeEscrowInvalidParams, "invalid_params", err.Error())
		return
	}
	caller, err := parseAddressParam(params.Caller, "caller")
	if err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeEscrowInvalidParams, "invalid_params", err.Error())
		return
	}
	order, err := s.node.EscrowDispute(id, caller)
	if err != nil {
		writeEscrowError(w, req.ID, err)
		return
	}
	writeResult(w, req.ID, formatOrderJSON(order))
}

func decodeSingleParam(w http.ResponseWriter, req *RPCRequest, out interface{}) bool {
	if len(req.Params) != 1 {
		writeError(w, http.StatusBadRequest, req.ID, codeEscrowInvalidParams, "invalid_params", "exactly one parameter object expected")
		return false
	}
	if err := json.Unmarshal(req.Params[0], out); err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeEscrowInvalidParams, "invalid_params", err.Error())
		return false
	}
	return true
}

func parseAddressParam(value, field string) ([20]byte, error) {
	var out [20]byte
	trimmed := strings.TrimSpace(value)
	if trimmed == "" {
		return out, fmt.Errorf("%s required", field)
	}
	addr, err := crypto.DecodeAddress(trimmed)
	if err != nil {
		return out, fmt.Errorf("%s: %w", field, err)
	}
	if addr.Prefix() != crypto.SeaPrefix {
		return out, fmt.Errorf("%s: unexpected address prefix %q", field, addr.Prefix())
	}
	copy(out[:], addr.Bytes())
	return out, nil
}

func parsePositiveBigInt(value string) (*big.Int, error) {
	trimmed := strings.TrimSpace(value)
	if trimmed == "" {
		return nil, fmt.Errorf("amount required")
	}
	amount, ok := new(big.Int).SetString(trimmed, 10)
	if !ok {
		return nil, fmt.Errorf("invalid amount")
	}
	if amount.Sign() <= 0 {
		return nil, fmt.Errorf("amount must be positive")
	}
	return amount, nil
}

func parseOrderID(id string) ([32]byte, error) {
	var out [32]byte
	trimmed := strings.TrimSpace(id)
	if trimmed == "" {
		return out, fmt.Errorf("id required")
	}
	cleaned := strings.TrimPrefix(strings.TrimPrefix(trimmed, "0x"), "0X")
	if len(cleaned) != 64 {
		return out, fmt.Errorf("id must be 32 bytes")
	}
	decoded, err := hex.DecodeString(cleaned)
	if err != nil {
		return out, err
	}
	copy(out[:], decoded)
	return out, nil
}

func formatOrderID(id [32]byte) string {
	return "0x" + hex.EncodeToString(id[:])
}

func formatAccount(addr [20]byte) string {
	return crypto.MustNewAddress(crypto.SeaPrefix, addr[:]).String()
}

func formatOrderJSON(order *escrow.Order) orderJSON {
	amount := "0"
	if order.Amount != nil {
		amount = order.Amount.String()
	}
	var buyerPtr, refundPtr, refereePtr *string
	if order.Buyer != ([20]byte{}) {
		buyer := formatAccount(order.Buyer)
		buyerPtr = &buyer
		refund := formatAccount(order.BuyerAccount)
		refundPtr = &refund
	}
	if order.HasReferee() {
		referee := formatAccount(order.Referee)
		refereePtr = &referee
	}
	return orderJSON{
		ID:            formatOrderID(order.ID),
		Seller:        formatAccount(order.Seller),
		OrderNumber:   order.OrderNumber,
		PayoutAccount: formatAccount(order.SellerAccount),
		Buyer:         buyerPtr,
		RefundAccount: refundPtr,
		Referee:       refereePtr,
		Asset:         order.Asset,
		Amount:        amount,
		Vault:         formatAccount(order.Vault),
		CreatedAt:     order.CreatedAt,
		Status:        order.Status.String(),
	}
}

func writeEscrowError(w http.ResponseWriter, id interface{}, err error) {
	if err == nil {
		return
	}
	status := http.StatusInternalServerError
	code := codeEscrowInternal
	message := "internal_error"
	switch {
	case errors.Is(err, escrow.ErrOrderNotFound):
		status = http.StatusNotFound
		code = codeEscrowNotFound
		message = "not_found"
	case errors.Is(err, escrow.ErrUnauthorized):
		status = http.StatusForbidden
		code = codeEscrowForbidden
		message = "forbidden"
	case errors.Is(err, escrow.ErrDuplicateOrder),
		errors.Is(err, escrow.ErrInvalidState),
		errors.Is(err, escrow.ErrAccountMismatch),
		errors.Is(err, escrow.ErrInsufficientFunds):
		status = http.StatusConflict
		code = codeEscrowConflict
		message = "conflict"
	case errors.Is(err, escrow.ErrInvalidAmount), errors.Is(err, escrow.ErrUnknownAsset):
		status = http.StatusBadRequest
		code = codeEscrowInvalidParams
		message = "invalid_params"
	}
	writeError(w, status, id, code, message, err.Error())
}
