package api

import (
	"context"
	"net/http"

	"github.com/ethereum/go-ethereum/common"
	"github.com/gorilla/mux"

	apperrors "github.com/sheikh-saqib/transfer-ledger/internal/errors"
	interfaces "github.com/sheikh-saqib/transfer-ledger/internal/interfaces"
	"github.com/sheikh-saqib/transfer-ledger/internal/jsonx"
	"github.com/sheikh-saqib/transfer-ledger/internal/models"
)

// EntryLister is implemented by backends that expose their native ledger
// entries.
type EntryLister interface {
	LedgerEntries(ctx context.Context) ([]models.LedgerEntry, error)
}

type Handler struct {
	backend interfaces.ChainBackend
}

func NewHandler(backend interfaces.ChainBackend) *Handler {
	return &Handler{backend: backend}
}

func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (h *Handler) SendValue(w http.ResponseWriter, r *http.Request) {
	var req TransferRequest
	if err := jsonx.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, apperrors.ValidationFailed("invalid request body"))
		return
	}
	if req.Value == nil {
		writeError(w, apperrors.ValidationFailed("value is required"))
		return
	}

	hash, err := h.backend.SendValue(r.Context(), req.From, req.To, req.Value)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, TransferResponse{TxHash: hash})
}

func (h *Handler) GetBalance(w http.ResponseWriter, r *http.Request) {
	addr, ok := pathAddress(w, r)
	if !ok {
		return
	}

	balance, err := h.backend.Balance(r.Context(), addr)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, BalanceResponse{Address: addr, Balance: balance})
}

func (h *Handler) GetLedgerEntries(w http.ResponseWriter, r *http.Request) {
	lister, ok := h.backend.(EntryLister)
	if !ok {
		writeError(w, apperrors.ExecutionFailed("ledger entries are not available on this node", nil))
		return
	}

	entries, err := lister.LedgerEntries(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, entries)
}

func (h *Handler) CallContract(w http.ResponseWriter, r *http.Request) {
	addr, ok := pathAddress(w, r)
	if !ok {
		return
	}

	var req CallRequest
	if err := jsonx.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, apperrors.ValidationFailed("invalid request body"))
		return
	}
	if req.Method == "" {
		writeError(w, apperrors.ValidationFailed("method is required"))
		return
	}

	res, err := h.backend.CallContract(r.Context(), models.ContractCall{
		From:   req.From,
		To:     addr,
		Method: req.Method,
		Args:   req.Args,
		View:   req.View,
	})
	if err != nil {
		writeError(w, err)
		return
	}

	resp := CallResponse{Result: res.Result}
	if res.TxHash != (common.Hash{}) {
		resp.TxHash = &res.TxHash
	}
	writeJSON(w, http.StatusOK, resp)
}

func (h *Handler) GasPrice(w http.ResponseWriter, r *http.Request) {
	price, err := h.backend.GasPrice(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, GasPriceResponse{GasPrice: price})
}

func (h *Handler) EstimateGas(w http.ResponseWriter, r *http.Request) {
	var req EstimateRequest
	if err := jsonx.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, apperrors.ValidationFailed("invalid request body"))
		return
	}

	gas, err := h.backend.EstimateGas(r.Context(), models.ContractCall{
		From:   req.From,
		To:     req.To,
		Method: req.Method,
		Args:   req.Args,
	})
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, EstimateResponse{Gas: gas})
}

func pathAddress(w http.ResponseWriter, r *http.Request) (common.Address, bool) {
	raw := mux.Vars(r)["address"]
	if !common.IsHexAddress(raw) {
		writeError(w, apperrors.ValidationFailed("invalid address: "+raw))
		return common.Address{}, false
	}
	return common.HexToAddress(raw), true
}
