package server

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/graphrun/graphrun/graph"
	"github.com/graphrun/graphrun/graph/store"
)

const apiVersion = "1.0.0"

// Options configures the HTTP handler beyond the service itself.
type Options struct {
	// Metrics, when non-nil, is mounted at GET /metrics. Typically a
	// promhttp handler bound to the registry the engine's metrics use.
	Metrics http.Handler
}

// NewHandler builds the HTTP API for a service.
//
// Routes:
//
//	GET  /                    API index
//	POST /graph/create        validate, compile and store a definition
//	POST /graph/run           execute a stored graph to termination
//	GET  /graph/state/{runID} terminal state and history of a run
//	GET  /graphs              stored graph summaries
//	GET  /runs?graph_id=...   run summaries, optionally filtered
//	GET  /capabilities        registered capability names
//	GET  /health              liveness probe
//	GET  /metrics             Prometheus metrics (when configured)
func NewHandler(svc *Service, logger *slog.Logger, opts Options) http.Handler {
	if logger == nil {
		logger = slog.Default()
	}
	api := &apiHandler{svc: svc, logger: logger}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)

	r.Get("/", api.index)
	r.Post("/graph/create", api.createGraph)
	r.Post("/graph/run", api.runGraph)
	r.Get("/graph/state/{runID}", api.runState)
	r.Get("/graphs", api.listGraphs)
	r.Get("/runs", api.listRuns)
	r.Get("/capabilities", api.listCapabilities)
	r.Get("/health", api.health)
	if opts.Metrics != nil {
		r.Method(http.MethodGet, "/metrics", opts.Metrics)
	}
	return r
}

type apiHandler struct {
	svc    *Service
	logger *slog.Logger
}

type runGraphRequest struct {
	GraphID      string         `json:"graph_id"`
	InitialState map[string]any `json:"initial_state"`
	IterationCap int            `json:"iteration_cap,omitempty"`
}

type createGraphResponse struct {
	GraphID   string `json:"graph_id"`
	Name      string `json:"name"`
	Status    string `json:"status"`
	NodeCount int    `json:"node_count"`
	EdgeCount int    `json:"edge_count"`
}

type runStateResponse struct {
	RunID        string           `json:"run_id"`
	GraphID      string           `json:"graph_id"`
	Status       graph.Status     `json:"status"`
	CurrentState graph.State      `json:"current_state"`
	ExecutionLog []graph.Snapshot `json:"execution_log"`
	Error        string           `json:"error,omitempty"`
}

type graphSummary struct {
	GraphID     string `json:"graph_id"`
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
	NodeCount   int    `json:"node_count"`
	EdgeCount   int    `json:"edge_count"`
}

type runSummary struct {
	RunID      string       `json:"run_id"`
	GraphID    string       `json:"graph_id"`
	Status     graph.Status `json:"status"`
	Iterations int          `json:"iterations"`
	StartedAt  string       `json:"started_at"`
	FinishedAt string       `json:"finished_at,omitempty"`
}

func (h *apiHandler) index(w http.ResponseWriter, r *http.Request) {
	h.writeJSON(w, http.StatusOK, map[string]any{
		"message": "graphrun workflow engine",
		"version": apiVersion,
		"endpoints": map[string]string{
			"create_graph":      "POST /graph/create",
			"run_graph":         "POST /graph/run",
			"get_state":         "GET /graph/state/{run_id}",
			"list_graphs":       "GET /graphs",
			"list_runs":         "GET /runs",
			"list_capabilities": "GET /capabilities",
		},
	})
}

func (h *apiHandler) createGraph(w http.ResponseWriter, r *http.Request) {
	var def graph.Definition
	if err := json.NewDecoder(r.Body).Decode(&def); err != nil {
		h.writeError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}

	rec, err := h.svc.CreateGraph(r.Context(), def)
	if err != nil {
		var verr *graph.ValidationError
		if errors.As(err, &verr) {
			h.writeError(w, http.StatusBadRequest, verr.Error())
			return
		}
		h.serverError(w, r, "create graph", err)
		return
	}

	h.writeJSON(w, http.StatusOK, createGraphResponse{
		GraphID:   rec.ID,
		Name:      rec.Name,
		Status:    "created",
		NodeCount: len(rec.Definition.Nodes),
		EdgeCount: len(rec.Definition.Edges),
	})
}

func (h *apiHandler) runGraph(w http.ResponseWriter, r *http.Request) {
	var req runGraphRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}
	if req.GraphID == "" {
		h.writeError(w, http.StatusBadRequest, "graph_id is required")
		return
	}

	run, err := h.svc.RunGraph(r.Context(), req.GraphID, graph.State(req.InitialState), req.IterationCap)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			h.writeError(w, http.StatusNotFound, "graph "+req.GraphID+" not found")
			return
		}
		h.serverError(w, r, "run graph", err)
		return
	}

	// The Run's JSON form is the response contract: run_id, graph_id,
	// status, final_state, execution_log, error.
	h.writeJSON(w, http.StatusOK, run)
}

func (h *apiHandler) runState(w http.ResponseWriter, r *http.Request) {
	runID := chi.URLParam(r, "runID")

	run, err := h.svc.GetRun(r.Context(), runID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			h.writeError(w, http.StatusNotFound, "run "+runID+" not found")
			return
		}
		h.serverError(w, r, "get run state", err)
		return
	}

	h.writeJSON(w, http.StatusOK, runStateResponse{
		RunID:        run.ID,
		GraphID:      run.GraphID,
		Status:       run.Status,
		CurrentState: run.FinalState,
		ExecutionLog: run.History,
		Error:        run.Error,
	})
}

func (h *apiHandler) listGraphs(w http.ResponseWriter, r *http.Request) {
	recs, err := h.svc.ListGraphs(r.Context())
	if err != nil {
		h.serverError(w, r, "list graphs", err)
		return
	}

	summaries := make([]graphSummary, 0, len(recs))
	for _, rec := range recs {
		summaries = append(summaries, graphSummary{
			GraphID:     rec.ID,
			Name:        rec.Name,
			Description: rec.Description,
			NodeCount:   len(rec.Definition.Nodes),
			EdgeCount:   len(rec.Definition.Edges),
		})
	}
	h.writeJSON(w, http.StatusOK, map[string]any{
		"count":  len(summaries),
		"graphs": summaries,
	})
}

func (h *apiHandler) listRuns(w http.ResponseWriter, r *http.Request) {
	runs, err := h.svc.ListRuns(r.Context(), r.URL.Query().Get("graph_id"))
	if err != nil {
		h.serverError(w, r, "list runs", err)
		return
	}

	summaries := make([]runSummary, 0, len(runs))
	for _, run := range runs {
		summary := runSummary{
			RunID:      run.ID,
			GraphID:    run.GraphID,
			Status:     run.Status,
			Iterations: run.Iterations,
			StartedAt:  run.StartedAt.Format(time.RFC3339Nano),
		}
		if !run.FinishedAt.IsZero() {
			summary.FinishedAt = run.FinishedAt.Format(time.RFC3339Nano)
		}
		summaries = append(summaries, summary)
	}
	h.writeJSON(w, http.StatusOK, map[string]any{
		"count": len(summaries),
		"runs":  summaries,
	})
}

func (h *apiHandler) listCapabilities(w http.ResponseWriter, r *http.Request) {
	names := h.svc.Capabilities()
	h.writeJSON(w, http.StatusOK, map[string]any{
		"count":        len(names),
		"capabilities": names,
	})
}

func (h *apiHandler) health(w http.ResponseWriter, r *http.Request) {
	h.writeJSON(w, http.StatusOK, map[string]string{"status": "healthy"})
}

func (h *apiHandler) writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		h.logger.Error("writing response", "error", err)
	}
}

func (h *apiHandler) writeError(w http.ResponseWriter, status int, msg string) {
	h.writeJSON(w, status, map[string]string{"error": msg})
}

func (h *apiHandler) serverError(w http.ResponseWriter, r *http.Request, op string, err error) {
	h.logger.Error(op+" failed", "error", err, "path", r.URL.Path)
	h.writeError(w, http.StatusInternalServerError, op+": "+err.Error())
}
