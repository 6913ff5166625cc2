package api

import (
	"encoding/json"
	"net/http"
)

// listStages returns metadata for every registered stage type.
// GET /api/stages
func (s *Server) listStages(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(s.registry.List())
}
