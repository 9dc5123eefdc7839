package handlers

import (
	"net/http"
)

// GetVersion returns the build info of the running server.
func (h *Handlers) GetVersion(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.cfg.Build)
}
