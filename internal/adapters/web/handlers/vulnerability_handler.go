package handlers

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/gorilla/mux"

	"github.com/tarkai/trustlens/internal/core/domain"
	"github.com/tarkai/trustlens/internal/core/ports"
)

// VulnerabilityHandler exposes the locally cached CVE records.
type VulnerabilityHandler struct {
	Cache ports.CVECache
}

// NewVulnerabilityHandler creates a new VulnerabilityHandler.
func NewVulnerabilityHandler(cache ports.CVECache) *VulnerabilityHandler {
	return &VulnerabilityHandler{Cache: cache}
}

// HandleList returns cached records, optionally filtered by ?severity= and
// bounded by ?limit=.
func (h *VulnerabilityHandler) HandleList(w http.ResponseWriter, r *http.Request) {
	severity := domain.CVESeverity(r.URL.Query().Get("severity"))

	limit := 0
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 0 {
			http.Error(w, "Invalid limit", http.StatusBadRequest)
			return
		}
		limit = n
	}

	cves, err := h.Cache.List(r.Context(), severity, limit)
	if err != nil {
		slog.Error("Vulnerability list failed", "error", err)
		http.Error(w, "Internal server error", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]any{"vulnerabilities": cves})
}

// HandleGet returns one cached record by CVE id.
func (h *VulnerabilityHandler) HandleGet(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]

	cve, err := h.Cache.GetByID(r.Context(), id)
	if err != nil {
		slog.Error("Vulnerability lookup failed", "cve", id, "error", err)
		http.Error(w, "Internal server error", http.StatusInternalServerError)
		return
	}
	if cve == nil {
		http.Error(w, "Vulnerability not found", http.StatusNotFound)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(cve)
}

// HandleStats returns record counts per severity bucket.
func (h *VulnerabilityHandler) HandleStats(w http.ResponseWriter, r *http.Request) {
	counts, err := h.Cache.CountBySeverity(r.Context())
	if err != nil {
		slog.Error("Vulnerability stats failed", "error", err)
		http.Error(w, "Internal server error", http.StatusInternalServerError)
		return
	}

	total := 0
	for _, n := range counts {
		total += n
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]any{
		"total":       total,
		"by_severity": counts,
	})
}
