package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/naeap/journal/internal/httpserver/deps"
	"github.com/naeap/journal/internal/logger"
)

type readyzResponse struct {
	Ready bool   `json:"ready"`
	Store string `json:"store"`
	Error string `json:"error,omitempty"`
}

// Readyz reports whether the content store answers.
func Readyz(d deps.Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()

		resp := readyzResponse{Ready: true, Store: "ok"}
		status := http.StatusOK
		if err := d.Content.Ping(ctx); err != nil {
			d.Logger.Warn("readiness check failed", logger.Error(err))
			resp = readyzResponse{Ready: false, Store: "unavailable", Error: err.Error()}
			status = http.StatusServiceUnavailable
		}

		w.Header().Set("Content-Type", "application/json")
		w.Header().Set("Cache-Control", "no-store")
		w.WriteHeader(status)
		_ = json.NewEncoder(w).Encode(resp)
	}
}
