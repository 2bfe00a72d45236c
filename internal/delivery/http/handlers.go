package http

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/omicsoracle/omicsoracle/internal/orchestrator"
)

// Handler exposes the orchestrator's search operation over HTTP. It has
// no auth, user, or library concerns — this service has no accounts or
// UI, just a search endpoint.
type Handler struct {
	orchestrator *orchestrator.Orchestrator
}

func NewHandler(o *orchestrator.Orchestrator) *Handler {
	return &Handler{orchestrator: o}
}

type errorResponse struct {
	Error string `json:"error"`
}

func writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, errorResponse{Error: message})
}

// Search handles GET /v1/search?q=...&max_geo=...&max_pubs=..., a thin
// proxy onto Orchestrator.Search.
func (h *Handler) Search(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query().Get("q")
	if query == "" {
		writeError(w, http.StatusBadRequest, "missing required query parameter: q")
		return
	}
	maxGEO := intParam(r, "max_geo", 10)
	maxPubs := intParam(r, "max_pubs", 20)

	result, err := h.orchestrator.Search(r.Context(), query, maxGEO, maxPubs)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, result)
}

func intParam(r *http.Request, name string, defaultValue int) int {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return defaultValue
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n <= 0 {
		return defaultValue
	}
	return n
}
