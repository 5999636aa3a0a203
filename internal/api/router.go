package api

import (
	"io/fs"
	"net/http"
	"strings"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"condash/internal/auth"
	"condash/internal/models"
	"condash/internal/observability"
)

// Config carries the collaborators and settings the router serves.
type Config struct {
	Envs     EnvManager
	Services ServiceManager
	Store    ConfigStore

	// Units are the configured service specs, parsed once at startup.
	Units []models.ServiceSpec

	// EnvPath is reported back in env file snapshots.
	EnvPath string

	// MaskSecrets hides well-known secret values in snapshots.
	MaskSecrets bool

	// Version is reported by the health endpoint.
	Version string

	// Auth validates the action token on mutating routes. Nil leaves
	// them open, the default for a loopback-only panel.
	Auth auth.Validator

	// Frontend serves the embedded static UI at /. Nil disables it.
	Frontend fs.FS
}

// Router sets up the HTTP routes
type Router struct {
	handler  *Handler
	streamer *LogStreamer
	auth     auth.Validator
	mux      *http.ServeMux
}

// NewRouter creates a new router with all API endpoints
func NewRouter(cfg Config) *Router {
	r := &Router{
		handler:  NewHandler(cfg),
		streamer: NewLogStreamer(cfg.Services),
		auth:     cfg.Auth,
		mux:      http.NewServeMux(),
	}

	r.setupRoutes(cfg.Frontend)
	return r
}

func (r *Router) setupRoutes(frontend fs.FS) {
	// API routes
	r.mux.HandleFunc("/api/health", r.handleHealth)
	r.mux.HandleFunc("/api/conda/envs", r.handleCondaEnvs)
	r.mux.HandleFunc("/api/services", r.handleServices)
	r.mux.HandleFunc("/api/services/", r.handleServiceAction)
	r.mux.HandleFunc("/api/envfile", r.handleEnvFile)

	// Prometheus metrics
	observability.RegisterMetrics()
	r.mux.Handle("/metrics", promhttp.Handler())

	// Frontend static files
	if frontend != nil {
		fileServer := http.FileServer(http.FS(frontend))
		r.mux.Handle("/", fileServer)
	}
}

// handleHealth handles GET /api/health
func (r *Router) handleHealth(w http.ResponseWriter, req *http.Request) {
	if req.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}
	r.handler.Health(w, req)
}

// handleCondaEnvs handles GET and POST /api/conda/envs
func (r *Router) handleCondaEnvs(w http.ResponseWriter, req *http.Request) {
	switch req.Method {
	case http.MethodGet:
		r.handler.ListEnvs(w, req)
	case http.MethodPost:
		if !r.requireToken(w, req) {
			return
		}
		r.handler.CreateEnv(w, req)
	default:
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
	}
}

// handleServices handles GET /api/services
func (r *Router) handleServices(w http.ResponseWriter, req *http.Request) {
	if req.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}
	r.handler.ListServices(w, req)
}

// handleServiceAction routes unit-specific paths:
// POST /api/services/{scope}/{name}/{action} and GET {...}/logs.
func (r *Router) handleServiceAction(w http.ResponseWriter, req *http.Request) {
	path := strings.TrimPrefix(req.URL.Path, "/api/services/")
	parts := strings.SplitN(path, "/", 3)
	if len(parts) < 3 || parts[0] == "" || parts[1] == "" || parts[2] == "" {
		errorResponse(w, http.StatusBadRequest, "expected /api/services/{scope}/{name}/{action}")
		return
	}
	scope, name, action := parts[0], parts[1], parts[2]

	if action == "logs" {
		// WebSocket upgrade for journal streaming
		if req.Method != http.MethodGet {
			http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
			return
		}
		r.streamer.HandleLogStream(w, req, scope, name)
		return
	}

	if req.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}
	if !r.requireToken(w, req) {
		return
	}
	r.handler.ServiceAction(w, req, scope, name, action)
}

// handleEnvFile handles GET and POST /api/envfile
func (r *Router) handleEnvFile(w http.ResponseWriter, req *http.Request) {
	switch req.Method {
	case http.MethodGet:
		r.handler.GetEnvFile(w, req)
	case http.MethodPost:
		if !r.requireToken(w, req) {
			return
		}
		r.handler.UpdateEnvFile(w, req)
	default:
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
	}
}

// requireToken enforces the action token on mutating routes. Without a
// configured validator the panel stays open for local use.
func (r *Router) requireToken(w http.ResponseWriter, req *http.Request) bool {
	if r.auth == nil {
		return true
	}
	if err := r.auth.Validate(auth.FromRequest(req)); err != nil {
		errorResponse(w, http.StatusUnauthorized, "invalid or missing action token")
		return false
	}
	return true
}

// ServeHTTP implements http.Handler
func (r *Router) ServeHTTP(w http.ResponseWriter, req *http.Request) {
	r.mux.ServeHTTP(w, req)
}
