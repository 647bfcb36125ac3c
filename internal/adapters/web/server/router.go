package server

import (
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/tarkai/trustlens/internal/adapters/web/middleware"
)

// SetupRoutes wires every API route onto one router.
func SetupRoutes(s *Server) http.Handler {
	r := mux.NewRouter()

	// Submission is throttled: each accepted request starts a pipeline run.
	submitLimiter := middleware.NewLimiter(10, time.Minute)

	api := r.PathPrefix("/api/v1").Subrouter()

	api.Handle("/assessments",
		middleware.Throttle(submitLimiter)(http.HandlerFunc(s.AssessmentHandler.HandleCreate)),
	).Methods(http.MethodPost)
	api.HandleFunc("/assessments", s.AssessmentHandler.HandleList).Methods(http.MethodGet)
	api.HandleFunc("/assessments/{id}", s.AssessmentHandler.HandleGet).Methods(http.MethodGet)
	api.HandleFunc("/assessments/{id}/status", s.AssessmentHandler.HandleStatus).Methods(http.MethodGet)

	api.HandleFunc("/vulnerabilities", s.VulnHandler.HandleList).Methods(http.MethodGet)
	api.HandleFunc("/vulnerabilities/stats", s.VulnHandler.HandleStats).Methods(http.MethodGet)
	api.HandleFunc("/vulnerabilities/{id}", s.VulnHandler.HandleGet).Methods(http.MethodGet)

	// Status push channel.
	r.HandleFunc("/ws", s.WSManager.HandleWebSocket)

	r.HandleFunc("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"status":"ok"}`))
	})

	r.Handle("/metrics", promhttp.Handler())

	return r
}
