package server

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/swiftdrop/courier-relay/internal/model"
)

// ingestResponse echoes an accepted update back to the backend.
type ingestResponse struct {
	Message   string `json:"message"`
	CourierID int64  `json:"courier_id"`
	PackageID *int64 `json:"package_id"`
}

// handleLocationUpdate is the HTTP ingest adapter: the delivery backend
// pushes position updates here instead of holding a socket open.
func (s *Server) handleLocationUpdate(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeJSON(w, http.StatusMethodNotAllowed, map[string]string{"error": "method not allowed"})
		return
	}

	var req model.UpdateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid JSON body"})
		return
	}

	pos, err := req.Position()
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
		return
	}

	accepted, err := s.engine.HandleUpdate(r.Context(), pos)
	if err != nil {
		status := http.StatusInternalServerError
		if errors.Is(err, model.ErrInvalidPayload) {
			status = http.StatusBadRequest
		}
		writeJSON(w, status, map[string]string{"error": err.Error()})
		return
	}

	writeJSON(w, http.StatusOK, ingestResponse{
		Message:   "Location update received and broadcasted",
		CourierID: accepted.CourierID,
		PackageID: accepted.PackageID,
	})
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(body)
}
