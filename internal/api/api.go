// Package api provides the triage backend's HTTP API.
package api

import (
	"encoding/json"
	"net/http"

	"github.com/medscan/medscan/internal/auth"
	"github.com/medscan/medscan/internal/database"
	"github.com/medscan/medscan/internal/prediction"
	"github.com/medscan/medscan/internal/quota"
)

// Server is the API server.
type Server struct {
	db           *database.DB
	authVerifier *auth.Verifier
	orchestrator *prediction.Orchestrator
	usageChecker *quota.Checker
	limiter      *userLimiter
	uploadsDir   string
	devMode      bool
	mux          *http.ServeMux
}

// Config holds API server configuration.
type Config struct {
	DB           *database.DB
	AuthVerifier *auth.Verifier
	Orchestrator *prediction.Orchestrator
	// UploadsDir, when set, is served read-only under /uploads/.
	UploadsDir string
	// DevMode includes internal error detail in responses.
	DevMode bool
	// RateLimit is the per-user request rate in requests per second for
	// the predict endpoint. Zero uses a sensible default.
	RateLimit float64
	RateBurst int
}

// NewServer creates a new API server.
func NewServer(cfg Config) *Server {
	s := &Server{
		db:           cfg.DB,
		authVerifier: cfg.AuthVerifier,
		orchestrator: cfg.Orchestrator,
		limiter:      newUserLimiter(cfg.RateLimit, cfg.RateBurst),
		uploadsDir:   cfg.UploadsDir,
		devMode:      cfg.DevMode,
		mux:          http.NewServeMux(),
	}
	if cfg.DB != nil {
		s.usageChecker = quota.NewChecker(cfg.DB)
	}

	s.registerRoutes()
	return s
}

func (s *Server) registerRoutes() {
	authMiddleware := auth.Middleware(s.authVerifier)

	// Public endpoints
	s.mux.HandleFunc("GET /health", s.handleHealth)

	// Protected endpoints
	s.mux.HandleFunc("POST /api/predict", s.withAuth(authMiddleware, s.handlePredict))
	s.mux.HandleFunc("GET /api/predictions", s.withAuth(authMiddleware, s.handleListPredictions))
	s.mux.HandleFunc("GET /api/predictions/{predictionID}", s.withAuth(authMiddleware, s.handleGetPrediction))
	s.mux.HandleFunc("GET /api/patients", s.withAuth(authMiddleware, s.handleListPatients))
	s.mux.HandleFunc("GET /api/patients/{patientID}", s.withAuth(authMiddleware, s.handleGetPatient))
	s.mux.HandleFunc("GET /api/usage", s.withAuth(authMiddleware, s.handleGetUsage))

	if s.uploadsDir != "" {
		s.mux.Handle("GET /uploads/",
			http.StripPrefix("/uploads/", http.FileServer(http.Dir(s.uploadsDir))))
	}
}

func (s *Server) withAuth(middleware func(http.Handler) http.Handler, handler http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		middleware(http.HandlerFunc(handler)).ServeHTTP(w, r)
	}
}

// ServeHTTP implements http.Handler.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	// Add CORS headers
	w.Header().Set("Access-Control-Allow-Origin", "*")
	w.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
	w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")

	if r.Method == "OPTIONS" {
		w.WriteHeader(http.StatusOK)
		return
	}

	s.mux.ServeHTTP(w, r)
}

// Close releases resources.
func (s *Server) Close() {
	if s.authVerifier != nil {
		s.authVerifier.Close()
	}
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

// writeSuccess wraps data in the response envelope the frontend expects.
func writeSuccess(w http.ResponseWriter, status int, data any) {
	writeJSON(w, status, map[string]any{"success": true, "data": data})
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]any{"success": false, "message": message})
}
