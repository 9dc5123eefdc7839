package handlers

import (
	"context"
	"net/http"
	"time"
)

// Healthz reports that the process is up.
func (h *Handlers) Healthz(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/plain")
	_, _ = w.Write([]byte("ok\n"))
}

// Readyz reports whether the configured store is reachable.
func (h *Handlers) Readyz(w http.ResponseWriter, r *http.Request) {
	if h.cfg.Store != nil {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()
		if err := h.cfg.Store.Ping(ctx); err != nil {
			h.log.Warn("readiness check failed", "error", err)
			http.Error(w, "postgres unavailable", http.StatusServiceUnavailable)
			return
		}
	}
	w.Header().Set("Content-Type", "text/plain")
	_, _ = w.Write([]byte("ok\n"))
}
