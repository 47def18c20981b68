package server

import (
	"context"
	"net/http"
	"time"
)

// handleHealth reports relay health with per-component detail.
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	health := struct {
		Status     string         `json:"status"`
		Components map[string]any `json:"components"`
	}{
		Status:     "healthy",
		Components: make(map[string]any),
	}

	hubStats := s.hub.Stats()
	health.Components["hub"] = map[string]int{
		"sessions": hubStats.Sessions,
		"rooms":    hubStats.Rooms,
		"couriers": hubStats.Couriers,
	}

	engStats := s.engine.Stats()
	health.Components["engine"] = map[string]int64{
		"updates_accepted":   engStats.UpdatesAccepted,
		"updates_rejected":   engStats.UpdatesRejected,
		"merchant_publishes": engStats.MerchantPublishes,
		"status_fallbacks":   engStats.StatusFallbacks,
		"forward_failures":   engStats.ForwardFailures,
	}

	health.Components["cache"] = map[string]int{
		"couriers": s.cache.Len(),
	}

	if s.db != nil {
		if err := s.db.Ping(ctx); err != nil {
			// History is best-effort; a dead database degrades, it
			// does not fail the relay.
			health.Status = "degraded"
			health.Components["database"] = map[string]string{
				"status": "disconnected",
				"error":  err.Error(),
			}
		} else {
			health.Components["database"] = "connected"
		}
	}

	status := http.StatusOK
	if health.Status == "unhealthy" {
		status = http.StatusServiceUnavailable
	}
	writeJSON(w, status, health)
}
