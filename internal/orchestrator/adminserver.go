package orchestrator

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
)

// Handler exposes the orchestrator's admin/control HTTP surface using
// go-chi. Every handler is a thin adapter: translate the request into a
// call on *Orchestrator, translate the result into a status code and an
// optional JSON body.
type Handler struct {
	orch *Orchestrator
	log  *slog.Logger
}

// NewHandler returns a Handler backed by orch. log must not be nil.
func NewHandler(orch *Orchestrator, log *slog.Logger) *Handler {
	return &Handler{orch: orch, log: log}
}

type applicationView struct {
	Id   uint32 `json:"id"`
	Name string `json:"name"`
}

func toApplicationView(d ApplicationDescriptor) applicationView {
	return applicationView{Id: uint32(d.Id()), Name: d.Name()}
}

// ListApplications handles GET /applications.
func (h *Handler) ListApplications(w http.ResponseWriter, r *http.Request) {
	apps := h.orch.ListApplications()
	views := make([]applicationView, 0, len(apps))
	for _, a := range apps {
		views = append(views, toApplicationView(a))
	}
	writeJSON(w, http.StatusOK, views)
}

// GetApplication handles GET /applications/{name}.
func (h *Handler) GetApplication(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "name")
	if name == "" {
		w.WriteHeader(http.StatusBadRequest)
		return
	}

	desc := h.orch.GetApplication(name)
	if !desc.IsValid() {
		w.WriteHeader(http.StatusNotFound)
		return
	}

	writeJSON(w, http.StatusOK, toApplicationView(desc))
}

type createApplicationRequest struct {
	Name string `json:"name"`
}

// CreateApplication handles POST /applications. Body: {"name": "live"}.
// This is always the name-only creation path; a fully configured
// application is created only through Orchestrator.CreateApplication,
// which this debug surface does not expose.
func (h *Handler) CreateApplication(w http.ResponseWriter, r *http.Request) {
	var req createApplicationRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Name == "" {
		w.WriteHeader(http.StatusBadRequest)
		return
	}

	desc, result := h.orch.CreateApplicationByName(req.Name)
	switch result {
	case ResultSucceeded:
		h.log.Info("application created", "name", req.Name)
		writeJSON(w, http.StatusCreated, toApplicationView(desc))
	case ResultExists:
		w.WriteHeader(http.StatusConflict)
	default:
		h.log.Error("application create failed", "name", req.Name, "result", result.String())
		w.WriteHeader(http.StatusInternalServerError)
	}
}

// DeleteApplication handles DELETE /applications/{id}.
func (h *Handler) DeleteApplication(w http.ResponseWriter, r *http.Request) {
	idParam := chi.URLParam(r, "id")
	id, err := strconv.ParseUint(idParam, 10, 32)
	if err != nil {
		w.WriteHeader(http.StatusBadRequest)
		return
	}

	result := h.orch.DeleteApplication(ApplicationId(id))
	switch result {
	case ResultNotExists:
		w.WriteHeader(http.StatusNotFound)
	case ResultFailed:
		// The table mutation already committed; a module merely logged a
		// complaint. Delete failures are logged and swallowed, not
		// surfaced to the caller.
		w.WriteHeader(http.StatusOK)
	default:
		w.WriteHeader(http.StatusOK)
	}
}

// RequestPullStream handles POST /streams/{app}/{stream}/pull. An optional
// ?url= query parameter bypasses the origin map and pulls directly from
// that URL instead, for ad-hoc debugging; ordinary callers omit it and go
// through the configured origin map.
func (h *Handler) RequestPullStream(w http.ResponseWriter, r *http.Request) {
	appName := chi.URLParam(r, "app")
	streamName := chi.URLParam(r, "stream")
	if appName == "" || streamName == "" {
		w.WriteHeader(http.StatusBadRequest)
		return
	}

	debugURL := r.URL.Query().Get("url")

	var ok bool
	if debugURL != "" {
		ok = h.orch.RequestPullStreamFromUrl(appName, streamName, debugURL)
	} else {
		ok = h.orch.RequestPullStream(appName, streamName)
	}

	if ok {
		h.log.Info("pull request succeeded", "application", appName, "stream", streamName, "debug_url", debugURL)
		w.WriteHeader(http.StatusOK)
		return
	}

	h.log.Info("pull request failed", "application", appName, "stream", streamName, "debug_url", debugURL)
	w.WriteHeader(http.StatusBadGateway)
}

type moduleView struct {
	Kind         string `json:"kind"`
	ProviderType string `json:"provider_type,omitempty"`
}

// ListModules handles GET /modules.
func (h *Handler) ListModules(w http.ResponseWriter, r *http.Request) {
	entries := h.orch.ListModules()
	views := make([]moduleView, 0, len(entries))
	for _, e := range entries {
		v := moduleView{Kind: e.kind.String()}
		if p, ok := e.module.(ProviderModule); ok {
			v.ProviderType = p.GetProviderType().String()
		}
		views = append(views, v)
	}
	writeJSON(w, http.StatusOK, views)
}

// ModuleHealth handles GET /modules/health?url=...&url=..., fanning
// CheckOriginAvailability out to every registered provider concurrently.
// This exercises the otherwise-unused CheckOriginAvailability hook; the
// pull path never calls it.
func (h *Handler) ModuleHealth(w http.ResponseWriter, r *http.Request) {
	urls := r.URL.Query()["url"]

	results := h.orch.CheckAllOriginAvailability(r.Context(), urls)

	view := make(map[string]bool, len(results))
	for pt, ok := range results {
		view[pt.String()] = ok
	}
	writeJSON(w, http.StatusOK, view)
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
