// Package api is the HTTP boundary: thin JSON adapters over the conda,
// systemd, and env file collaborators. All validation and failure
// semantics live in those packages; handlers only translate them to
// status codes.
package api

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"github.com/rs/zerolog/log"

	"condash/internal/conda"
	"condash/internal/envfile"
	"condash/internal/models"
	"condash/internal/observability"
	"condash/internal/systemd"
)

// EnvManager is the conda surface the handlers drive.
type EnvManager interface {
	ListEnvs(ctx context.Context) []models.EnvRecord
	CreateEnv(ctx context.Context, name, python string, packages []string) (conda.CreateResult, error)
}

// ServiceManager is the systemd surface the handlers drive.
type ServiceManager interface {
	StatusAll(ctx context.Context, specs []models.ServiceSpec) []models.ServiceStatus
	Apply(ctx context.Context, scope models.Scope, name string, action models.Action) (systemd.ActionOutcome, error)
	StreamLogs(ctx context.Context, spec models.ServiceSpec, lines int) (<-chan string, error)
}

// ConfigStore is the env file surface the handlers drive.
type ConfigStore interface {
	Snapshot(mask bool) (map[string]string, error)
	Apply(updates envfile.Updates) (envfile.Applied, error)
}

// Handler translates HTTP requests into collaborator calls.
type Handler struct {
	envs     EnvManager
	services ServiceManager
	store    ConfigStore
	units    []models.ServiceSpec
	envPath  string
	mask     bool
	version  string
	started  time.Time
}

// NewHandler creates the API handler.
func NewHandler(cfg Config) *Handler {
	return &Handler{
		envs:     cfg.Envs,
		services: cfg.Services,
		store:    cfg.Store,
		units:    cfg.Units,
		envPath:  cfg.EnvPath,
		mask:     cfg.MaskSecrets,
		version:  cfg.Version,
		started:  time.Now(),
	}
}

// toolContext detaches the request context so an in-flight tool
// invocation runs to completion even when the client disconnects.
// Callers accept the reported outcome; only the per-invocation timeout
// bounds it. The websocket log stream keeps propagation instead, since
// there a disconnect must tear the stream down.
func toolContext(r *http.Request) context.Context {
	return context.WithoutCancel(r.Context())
}

// jsonResponse writes a JSON response
func jsonResponse(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

// errorResponse writes a client-visible error
func errorResponse(w http.ResponseWriter, status int, message string) {
	jsonResponse(w, status, map[string]any{"ok": false, "error": message})
}

// ListEnvs returns every known conda environment with its health probe.
func (h *Handler) ListEnvs(w http.ResponseWriter, r *http.Request) {
	envs := h.envs.ListEnvs(toolContext(r))
	if envs == nil {
		envs = []models.EnvRecord{}
	}
	jsonResponse(w, http.StatusOK, map[string]any{"envs": envs})
}

// CreateEnv provisions a new conda environment.
func (h *Handler) CreateEnv(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Name     string   `json:"name"`
		Python   string   `json:"python"`
		Packages []string `json:"packages"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		errorResponse(w, http.StatusBadRequest, "malformed JSON body")
		return
	}

	res, err := h.envs.CreateEnv(toolContext(r), body.Name, body.Python, body.Packages)
	if err != nil {
		errorResponse(w, http.StatusBadRequest, err.Error())
		return
	}

	log.Info().
		Str("name", body.Name).
		Bool("ok", res.OK).
		Int("returncode", res.Code).
		Msg("conda environment creation finished")

	status := http.StatusOK
	if !res.OK {
		status = http.StatusInternalServerError
	}
	jsonResponse(w, status, res)
}

// ListServices reports live status for every configured unit.
func (h *Handler) ListServices(w http.ResponseWriter, r *http.Request) {
	statuses := h.services.StatusAll(toolContext(r), h.units)
	jsonResponse(w, http.StatusOK, map[string]any{"services": statuses})
}

// ServiceAction applies a control verb to one unit and reports the
// post-action status snapshot.
func (h *Handler) ServiceAction(w http.ResponseWriter, r *http.Request, scope, name, action string) {
	out, err := h.services.Apply(toolContext(r), models.Scope(strings.ToLower(scope)), name, models.Action(action))
	if err != nil {
		errorResponse(w, http.StatusBadRequest, err.Error())
		return
	}

	log.Info().
		Str("scope", scope).
		Str("unit", name).
		Str("action", action).
		Bool("ok", out.OK).
		Str("status", out.Status.Status).
		Msg("service action applied")

	status := http.StatusOK
	if !out.OK {
		status = http.StatusInternalServerError
	}
	jsonResponse(w, status, out)
}

// GetEnvFile returns the config file snapshot, masked when enabled.
func (h *Handler) GetEnvFile(w http.ResponseWriter, r *http.Request) {
	values, err := h.store.Snapshot(h.mask)
	if err != nil {
		errorResponse(w, http.StatusInternalServerError, err.Error())
		return
	}
	jsonResponse(w, http.StatusOK, map[string]any{
		"path":   h.envPath,
		"values": values,
		"masked": h.mask,
	})
}

// UpdateEnvFile applies whitelisted updates to the config file.
func (h *Handler) UpdateEnvFile(w http.ResponseWriter, r *http.Request) {
	var updates envfile.Updates
	if err := json.NewDecoder(r.Body).Decode(&updates); err != nil {
		errorResponse(w, http.StatusBadRequest, err.Error())
		return
	}

	applied, err := h.store.Apply(updates)
	if err != nil {
		errorResponse(w, http.StatusInternalServerError, err.Error())
		return
	}
	if len(applied.Keys) > 0 {
		observability.RecordEnvFileWrite(applied.RestartRequired)
		log.Info().
			Strs("keys", applied.Keys).
			Bool("restart_required", applied.RestartRequired).
			Msg("env file updated")
	}

	jsonResponse(w, http.StatusOK, map[string]any{
		"ok":              true,
		"appliedKeys":     applied.Keys,
		"restartRequired": applied.RestartRequired,
	})
}

// Health reports liveness, uptime, and the build version.
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	jsonResponse(w, http.StatusOK, map[string]any{
		"ok":      true,
		"version": h.version,
		"uptime":  time.Since(h.started).Round(time.Second).String(),
	})
}
