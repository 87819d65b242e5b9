package handler

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/EpicMandM/station-calendar/internal/logger"
	"github.com/EpicMandM/station-calendar/internal/metrics"
	"github.com/EpicMandM/station-calendar/internal/store"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Problem is an RFC 7807 error body.
type Problem struct {
	Type     string `json:"type"`
	Title    string `json:"title"`
	Status   int    `json:"status"`
	Detail   string `json:"detail,omitempty"`
	Instance string `json:"instance,omitempty"`
}

type APIHandler struct {
	store  store.Store
	logger *logger.Logger
}

func NewAPIHandler(s store.Store, l *logger.Logger) *APIHandler {
	if l == nil {
		l = logger.Nop()
	}
	return &APIHandler{
		store:  s,
		logger: l,
	}
}

// Routes wires the mock API with its middleware chain.
func (h *APIHandler) Routes(limiter *RateLimiter) http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /stations", h.ListStations)
	mux.HandleFunc("GET /stations/{id}", h.GetStation)
	mux.HandleFunc("GET /healthz", h.Health)
	mux.Handle("GET /metrics", promhttp.HandlerFor(metrics.Registry, promhttp.HandlerOpts{}))

	var handler http.Handler = mux
	if limiter != nil {
		handler = limiter.Middleware(handler)
	}
	handler = Instrument(handler)
	handler = LogRequests(h.logger, handler)
	return RequestID(handler)
}

func (h *APIHandler) ListStations(w http.ResponseWriter, r *http.Request) {
	stations, err := h.store.ListStations(r.Context())
	if err != nil {
		h.logger.Error("Failed to list stations", logger.Error(err), logger.RequestID(requestIDFrom(r)))
		writeProblem(w, http.StatusInternalServerError, "Failed to list stations", "", r.URL.Path)
		return
	}
	writeJSON(w, http.StatusOK, stations)
}

func (h *APIHandler) GetStation(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	station, err := h.store.GetStation(r.Context(), id)
	if errors.Is(err, store.ErrNotFound) {
		writeProblem(w, http.StatusNotFound, "Station not found", "no station with id "+id, r.URL.Path)
		return
	}
	if err != nil {
		h.logger.Error("Failed to get station", logger.Station(id), logger.Error(err), logger.RequestID(requestIDFrom(r)))
		writeProblem(w, http.StatusInternalServerError, "Failed to get station", "", r.URL.Path)
		return
	}
	writeJSON(w, http.StatusOK, station)
}

func (h *APIHandler) Health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeProblem(w http.ResponseWriter, status int, title, detail, instance string) {
	w.Header().Set("Content-Type", "application/problem+json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(Problem{
		Type:     "about:blank",
		Title:    title,
		Status:   status,
		Detail:   detail,
		Instance: instance,
	})
}
