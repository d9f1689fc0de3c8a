package rpc

import (
	"net/http"
)

type ledgerBalanceParams struct {
	Account string `json:"account"`
	Asset   string `json:"asset"`
}

type ledgerBalanceResult struct {
	Account string `json:"account"`
	Asset   string `json:"asset"`
	Balance string `json:"balance"`
}

type ledgerMintParams struct {
	Caller string `json:"caller"`
	To     string `json:"to"`
	Asset  string `json:"asset"`
	Amount string `json:"amount"`
}

func (s *Server) handleLedgerBalance(w http.ResponseWriter, _ *http.Request, req *RPCRequest) {
	var params ledgerBalanceParams
	if !decodeSingleParam(w, req, &params) {
		return
	}
	account, err := parseAddressParam(params.Account, "account")
	if err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeEscrowInvalidParams, "invalid_params", err.Error())
		return
	}
	balance, err := s.node.LedgerBalance(account, params.Asset)
	if err != nil {
		writeEscrowError(w, req.ID, err)
		return
	}
	writeResult(w, req.ID, ledgerBalanceResult{
		Account: formatAccount(account),
		Asset:   params.Asset,
		Balance: balance.String(),
	})
}

func (s *Server) handleLedgerMint(w http.ResponseWriter, _ *http.Request, req *RPCRequest) {
	var params ledgerMintParams
	if !decodeSingleParam(w, req, &params) {
		return
	}
	caller, err := parseAddressParam(params.Caller, "caller")
	if err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeEscrowInvalidParams, "invalid_params", err.Error())
		return
	}
	to, err := parseAddressParam(params.To, "to")
	if err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeEscrowInvalidParams, "invalid_params", err.Error())
		return
	}
	amount, err := parsePositiveBigInt(params.Amount)
	if err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeEscrowInvalidParams, "invalid_params", err.Error())
		return
	}
	if err := s.node.LedgerMint(caller, to, params.Asset, amount); err != nil {
		writeEscrowError(w, req.ID, err)
		return
	}
	balance, err := s.node.LedgerBalance(to, params.Asset)
	if err != nil {
		writeEscrowError(w, req.ID, err)
		return
	}
	writeResult(w, req.ID, ledgerBalanceResult{
		Account: formatAccount(to),
		Asset:   params.Asset,
		Balance: balance.String(),
	})
}
