package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/gorilla/mux"

	"github.com/tarkai/trustlens/internal/core/domain"
	"github.com/tarkai/trustlens/internal/core/services/assessment"
)

// AssessmentHandler exposes the assessment lifecycle API.
type AssessmentHandler struct {
	Service *assessment.Service
}

// NewAssessmentHandler creates a new AssessmentHandler.
func NewAssessmentHandler(service *assessment.Service) *AssessmentHandler {
	return &AssessmentHandler{Service: service}
}

type createRequest struct {
	Name           string `json:"name"`
	VendorName     string `json:"vendor_name,omitempty"`
	URL            string `json:"url,omitempty"`
	AssessmentType string `json:"assessment_type,omitempty"`
}

type createResponse struct {
	AssessmentID string                  `json:"assessment_id"`
	Status       domain.AssessmentStatus `json:"status"`
	Created      bool                    `json:"created"`
}

// HandleCreate accepts a submission, persists it QUEUED and starts the
// pipeline in the background. Resubmitting a known name returns the existing
// record without starting anything.
func (h *AssessmentHandler) HandleCreate(w http.ResponseWriter, r *http.Request) {
	var req createRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	input := domain.AssessmentInput{
		Name:       req.Name,
		VendorName: req.VendorName,
		URL:        req.URL,
	}

	a, created, err := h.Service.Create(r.Context(), input, domain.AssessmentType(req.AssessmentType))
	if err != nil {
		if errors.Is(err, assessment.ErrInvalidInput) {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		slog.Error("Assessment creation failed", "error", err)
		http.Error(w, "Internal server error", http.StatusInternalServerError)
		return
	}

	if created {
		// Detached from the request context: processing outlives the response.
		go h.Service.Process(context.Background(), a.ID)
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusAccepted)
	json.NewEncoder(w).Encode(createResponse{
		AssessmentID: a.ID,
		Status:       a.Status,
		Created:      created,
	})
}

// HandleList returns all assessment records, newest first.
func (h *AssessmentHandler) HandleList(w http.ResponseWriter, r *http.Request) {
	assessments, err := h.Service.List(r.Context())
	if err != nil {
		slog.Error("Assessment list failed", "error", err)
		http.Error(w, "Internal server error", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]any{"assessments": assessments})
}

// HandleGet returns one full assessment record.
func (h *AssessmentHandler) HandleGet(w http.ResponseWriter, r *http.Request) {
	a := h.load(w, r)
	if a == nil {
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(a)
}

// HandleStatus returns just the lifecycle status, for cheap polling.
func (h *AssessmentHandler) HandleStatus(w http.ResponseWriter, r *http.Request) {
	a := h.load(w, r)
	if a == nil {
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]any{
		"assessment_id": a.ID,
		"status":        a.Status,
	})
}

func (h *AssessmentHandler) load(w http.ResponseWriter, r *http.Request) *domain.Assessment {
	id := mux.Vars(r)["id"]

	a, err := h.Service.Get(r.Context(), id)
	if err != nil {
		slog.Error("Assessment lookup failed", "id", id, "error", err)
		http.Error(w, "Internal server error", http.StatusInternalServerError)
		return nil
	}
	if a == nil {
		http.Error(w, "Assessment not found", http.StatusNotFound)
		return nil
	}
	return a
}
