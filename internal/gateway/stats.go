// Package gateway - stats.go exposes aggregated metrics as JSON.
//
// GET /stats returns request, upstream and usage-log counters.
package gateway

import (
	"net/http"
)

// handleStats returns aggregated metrics as JSON.
// Restricted to localhost to prevent external access to operational metrics.
func (g *Gateway) handleStats(w http.ResponseWriter, r *http.Request) {
	if !isLoopback(r.RemoteAddr) {
		writeJSON(w, http.StatusForbidden, errorBody{Error: "forbidden"})
		return
	}
	writeJSON(w, http.StatusOK, g.metrics.FullStats())
}
