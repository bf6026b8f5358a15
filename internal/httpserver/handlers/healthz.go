package handlers

import (
	"encoding/json"
	"net/http"
	"runtime"

	"github.com/naeap/journal/internal/httpserver/deps"
)

type healthzResponse struct {
	Status        string  `json:"status"`
	UptimeSeconds float64 `json:"uptime_seconds"`
	Version       string  `json:"version,omitempty"`
	GoVersion     string  `json:"go_version,omitempty"`
	Consoles      int     `json:"admin_consoles"`
}

// Healthz reports liveness. It never touches the store.
func Healthz(d deps.Deps) http.HandlerFunc {
	start := d.StartTime
	return func(w http.ResponseWriter, r *http.Request) {
		consoles := 0
		if d.Consoles != nil {
			consoles = d.Consoles.Len()
		}
		w.Header().Set("Content-Type", "application/json")
		w.Header().Set("Cache-Control", "no-store")
		_ = json.NewEncoder(w).Encode(healthzResponse{
			Status:        "ok",
			Version:       d.Version,
			GoVersion:     runtime.Version(),
			UptimeSeconds: now(d).Sub(start).Seconds(),
			Consoles:      consoles,
		})
	}
}
