package api

import (
	"net/http"

	"github.com/gorilla/mux"

	"github.com/sheikh-saqib/transfer-ledger/internal/metrics"
)

// NewRouter wires the node API.
func NewRouter(h *Handler) *mux.Router {
	r := mux.NewRouter()

	r.Use(RequestID)
	r.Use(Recovery)
	r.Use(Logger)
	r.Use(Metrics)
	r.Use(LimitBody)

	r.HandleFunc("/health", h.Health).Methods(http.MethodGet)
	r.Handle("/metrics", metrics.Handler()).Methods(http.MethodGet)

	r.HandleFunc("/native/transfers", h.SendValue).Methods(http.MethodPost)
	r.HandleFunc("/native/balances/{address}", h.GetBalance).Methods(http.MethodGet)
	r.HandleFunc("/native/entries", h.GetLedgerEntries).Methods(http.MethodGet)

	r.HandleFunc("/contracts/{address}/call", h.CallContract).Methods(http.MethodPost)

	r.HandleFunc("/gas/price", h.GasPrice).Methods(http.MethodGet)
	r.HandleFunc("/gas/estimate", h.EstimateGas).Methods(http.MethodPost)

	return r
}
