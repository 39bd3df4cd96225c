package httpserver

import (
	"net/http"
	"time"
)

// claimIssuerCalls is the number of sequential issuer calls a claim makes
// (upload, mint, transfer).
const claimIssuerCalls = 3

// New builds the API server. issuerTimeout is the per-call ledger budget; the
// write timeout leaves room for a full claim plus slack.
func New(addr string, handler http.Handler, issuerTimeout time.Duration) *http.Server {
	return &http.Server{
		Addr:              addr,
		Handler:           handler,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      WriteTimeout(issuerTimeout),
		IdleTimeout:       120 * time.Second,
	}
}

// WriteTimeout returns the response deadline for the given issuer budget.
func WriteTimeout(issuerTimeout time.Duration) time.Duration {
	if issuerTimeout <= 0 {
		return 90 * time.Second
	}
	return claimIssuerCalls*issuerTimeout + 10*time.Second
}
