package simd

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/msdbook/msdsim/internal/fishery"
	"github.com/msdbook/msdsim/internal/metrics"
	"github.com/msdbook/msdsim/internal/rbf"
	"github.com/msdbook/msdsim/pkg/logger"
	"github.com/msdbook/msdsim/pkg/models"
)

const maxRequestBody = 4 << 20

type HTTPServer struct {
	router    *chi.Mux
	validator *requestValidator
	store     *RunStore
	evaluator *Evaluator
	Executor  *RunExecutor
}

func NewHTTPServer(store *RunStore, executor *RunExecutor, evaluator *Evaluator) (*HTTPServer, error) {
	v, err := newRequestValidator()
	if err != nil {
		return nil, err
	}

	s := &HTTPServer{
		router:    chi.NewRouter(),
		validator: v,
		store:     store,
		evaluator: evaluator,
		Executor:  executor,
	}
	s.routes()
	return s, nil
}

func (s *HTTPServer) routes() {
	s.router.Use(s.requestLogger)
	s.router.Use(s.recoverer)

	s.router.Get("/healthz", s.handleHealthz)
	s.router.Route("/v1", func(r chi.Router) {
		r.Post("/policy", s.handlePolicy)
		r.Post("/evaluate", s.handleEvaluate)
		r.Post("/robustness", s.handleRobustness)

		r.Route("/archive", func(r chi.Router) {
			r.Get("/", s.handleListArchive)
			r.Get("/{id}", s.handleGetArchive)
		})

		r.Route("/runs", func(r chi.Router) {
			r.Post("/", s.handleCreateRun)
			r.Get("/", s.handleListRuns)
			r.Route("/{id}", func(r chi.Router) {
				r.Get("/", s.handleGetRun)
				r.Post("/stop", s.handleStopRun)
				r.Get("/objectives", s.handleGetObjectives)
				r.Get("/trajectories", s.handleGetTrajectories)
			})
		})
	})
}

func (s *HTTPServer) Handler() http.Handler {
	return s.router
}

func (s *HTTPServer) handleHealthz(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, map[string]any{
		"status":    "ok",
		"timestamp": time.Now().UTC().Format(time.RFC3339),
	})
}

type policyRequest struct {
	Vars         []float64   `json:"vars" validate:"required,min=1"`
	Inputs       []float64   `json:"inputs" validate:"required,min=1"`
	InputRanges  []rbf.Range `json:"input_ranges" validate:"required,min=1"`
	OutputRanges []rbf.Range `json:"output_ranges" validate:"required,min=1"`
}

// handlePolicy handles POST /v1/policy
func (s *HTTPServer) handlePolicy(w http.ResponseWriter, r *http.Request) {
	var req policyRequest
	if !s.decodeAndValidate(w, r, &req) {
		return
	}
	if len(req.Inputs) != len(req.InputRanges) {
		s.writeError(w, http.StatusBadRequest, "inputs and input_ranges must have the same length")
		return
	}

	shape := rbf.Shape{NIn: len(req.InputRanges), NOut: len(req.OutputRanges)}
	shape.NRBF = len(req.Vars) / shape.Stride()
	if err := shape.Validate(req.Vars); err != nil {
		s.writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	s.writeJSON(w, http.StatusOK, map[string]any{
		"shape":   shape,
		"outputs": shape.Evaluate(req.Inputs, req.Vars, req.InputRanges, req.OutputRanges),
	})
}

// handleEvaluate handles POST /v1/evaluate
func (s *HTTPServer) handleEvaluate(w http.ResponseWriter, r *http.Request) {
	var req EvaluationInput
	if !s.decodeAndValidate(w, r, &req) {
		return
	}
	if err := s.evaluator.Validate(req); err != nil {
		s.writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	ev, archived, err := s.evaluator.Evaluate(r.Context(), "", req, nil, 0)
	if err != nil && ev == nil {
		s.writeError(w, evaluationErrorStatus(err), err.Error())
		return
	}
	if err != nil {
		s.writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	s.writeJSON(w, http.StatusOK, newEvaluateReply(ev.Objectives, "", archived))
}

// handleRobustness handles POST /v1/robustness
func (s *HTTPServer) handleRobustness(w http.ResponseWriter, r *http.Request) {
	var req RobustnessInput
	if !s.decodeAndValidate(w, r, &req) {
		return
	}
	if err := s.evaluator.Validate(req.EvaluationInput); err != nil {
		s.writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	report, err := s.evaluator.Robustness(r.Context(), req)
	if err != nil {
		if r.Context().Err() != nil {
			s.writeError(w, http.StatusServiceUnavailable, err.Error())
			return
		}
		s.writeError(w, evaluationErrorStatus(err), err.Error())
		return
	}
	s.writeJSON(w, http.StatusOK, report)
}

// handleListArchive handles GET /v1/archive?limit=&pareto=
func (s *HTTPServer) handleListArchive(w http.ResponseWriter, r *http.Request) {
	limit := 0
	if v := r.URL.Query().Get("limit"); v != "" {
		parsed, err := strconv.Atoi(v)
		if err != nil || parsed < 0 {
			s.writeError(w, http.StatusBadRequest, "limit must be a non-negative integer")
			return
		}
		limit = parsed
	}
	pareto := false
	if v := r.URL.Query().Get("pareto"); v != "" {
		parsed, err := strconv.ParseBool(v)
		if err != nil {
			s.writeError(w, http.StatusBadRequest, "pareto must be a boolean")
			return
		}
		pareto = parsed
	}

	entries, err := s.evaluator.ListArchive(r.Context(), limit, pareto)
	if err != nil {
		s.writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	s.writeJSON(w, http.StatusOK, map[string]any{
		"evaluations": entries,
		"count":       len(entries),
	})
}

// handleGetArchive handles GET /v1/archive/{id}
func (s *HTTPServer) handleGetArchive(w http.ResponseWriter, r *http.Request) {
	archive := s.evaluator.Archive()
	if archive == nil {
		s.writeError(w, http.StatusNotFound, "evaluation not found")
		return
	}
	rec, ok, err := archive.GetEvaluation(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		s.writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if !ok {
		s.writeError(w, http.StatusNotFound, "evaluation not found")
		return
	}
	s.writeJSON(w, http.StatusOK, map[string]any{"evaluation": rec})
}

// handleCreateRun handles POST /v1/runs. The run starts immediately.
func (s *HTTPServer) handleCreateRun(w http.ResponseWriter, r *http.Request) {
	var req CreateRunRequest
	if !s.decodeAndValidate(w, r, &req) {
		return
	}
	if err := s.evaluator.Validate(req.Input.EvaluationInput); err != nil {
		s.writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	rec, err := s.store.Create(req.RunID, req.Input)
	if err != nil {
		switch {
		case strings.Contains(err.Error(), "already exists"):
			s.writeError(w, http.StatusConflict, err.Error())
		case strings.Contains(err.Error(), "cannot contain"):
			s.writeError(w, http.StatusBadRequest, err.Error())
		default:
			s.writeError(w, http.StatusInternalServerError, err.Error())
		}
		return
	}

	started, err := s.Executor.Start(rec.Run.ID)
	if err != nil {
		s.writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	logger.Info("run created (HTTP)", "run_id", started.Run.ID)
	s.writeJSON(w, http.StatusCreated, RunReply{Run: started.Run})
}

// handleListRuns handles GET /v1/runs with pagination and filtering
func (s *HTTPServer) handleListRuns(w http.ResponseWriter, r *http.Request) {
	limit := 50
	if limitStr := r.URL.Query().Get("limit"); limitStr != "" {
		if parsed, err := strconv.Atoi(limitStr); err == nil && parsed > 0 {
			limit = min(parsed, 1000)
		}
	}

	offset := 0
	if offsetStr := r.URL.Query().Get("offset"); offsetStr != "" {
		if parsed, err := strconv.Atoi(offsetStr); err == nil && parsed >= 0 {
			offset = parsed
		}
	}

	var status models.RunStatus
	if statusStr := r.URL.Query().Get("status"); statusStr != "" {
		parsed, ok := models.ParseRunStatus(strings.ToLower(statusStr))
		if !ok {
			s.writeError(w, http.StatusBadRequest, "unknown status: "+statusStr)
			return
		}
		status = parsed
	}

	recs := s.store.ListFiltered(limit, offset, status)
	runs := make([]*models.Run, 0, len(recs))
	for _, rec := range recs {
		runs = append(runs, rec.Run)
	}

	s.writeJSON(w, http.StatusOK, map[string]any{
		"runs": runs,
		"pagination": map[string]any{
			"limit":  limit,
			"offset": offset,
			"count":  len(runs),
		},
	})
}

// handleGetRun handles GET /v1/runs/{id}
func (s *HTTPServer) handleGetRun(w http.ResponseWriter, r *http.Request) {
	rec, ok := s.store.Get(chi.URLParam(r, "id"))
	if !ok {
		s.writeError(w, http.StatusNotFound, "run not found")
		return
	}
	s.writeJSON(w, http.StatusOK, newRunReply(rec))
}

// handleStopRun handles POST /v1/runs/{id}/stop
func (s *HTTPServer) handleStopRun(w http.ResponseWriter, r *http.Request) {
	runID := chi.URLParam(r, "id")
	updated, err := s.Executor.Stop(runID)
	if err != nil {
		switch {
		case errors.Is(err, ErrRunNotFound):
			s.writeError(w, http.StatusNotFound, err.Error())
		case errors.Is(err, ErrRunTerminal):
			s.writeError(w, http.StatusConflict, err.Error())
		case errors.Is(err, ErrRunIDMissing):
			s.writeError(w, http.StatusBadRequest, err.Error())
		default:
			s.writeError(w, http.StatusInternalServerError, err.Error())
		}
		return
	}

	logger.Info("run cancelled (HTTP)", "run_id", runID)
	s.writeJSON(w, http.StatusOK, RunReply{Run: updated.Run})
}

// handleGetObjectives handles GET /v1/runs/{id}/objectives
func (s *HTTPServer) handleGetObjectives(w http.ResponseWriter, r *http.Request) {
	rec, ok := s.store.Get(chi.URLParam(r, "id"))
	if !ok {
		s.writeError(w, http.StatusNotFound, "run not found")
		return
	}
	if rec.Evaluation == nil {
		s.writeError(w, http.StatusPreconditionFailed, "objectives not available")
		return
	}

	reply := newEvaluateReply(rec.Evaluation.Objectives, rec.Run.ID, nil)
	reply.EvaluationID = rec.Run.EvaluationID
	s.writeJSON(w, http.StatusOK, reply)
}

type trajectorySeries struct {
	Metric      string                `json:"metric"`
	Labels      map[string]string     `json:"labels"`
	Points      []*models.MetricPoint `json:"points"`
	Aggregation *models.Aggregation   `json:"aggregation,omitempty"`
}

// handleGetTrajectories handles GET /v1/runs/{id}/trajectories?metric=&realization=
func (s *HTTPServer) handleGetTrajectories(w http.ResponseWriter, r *http.Request) {
	runID := chi.URLParam(r, "id")
	if _, ok := s.store.Get(runID); !ok {
		s.writeError(w, http.StatusNotFound, "run not found")
		return
	}
	collector, ok := s.store.GetCollector(runID)
	if !ok {
		s.writeError(w, http.StatusPreconditionFailed, "trajectories not available")
		return
	}

	var names []string
	for _, name := range collector.GetMetricNames() {
		if metrics.IsTrajectoryMetric(name) {
			names = append(names, name)
		}
	}
	if metric := r.URL.Query().Get("metric"); metric != "" {
		if !metrics.IsTrajectoryMetric(metric) {
			s.writeError(w, http.StatusBadRequest, "unknown metric: "+metric)
			return
		}
		names = []string{metric}
	}

	realization := r.URL.Query().Get("realization")
	if realization != "" {
		if n, err := strconv.Atoi(realization); err != nil || n < 0 {
			s.writeError(w, http.StatusBadRequest, "realization must be a non-negative integer")
			return
		}
	}

	series := make([]trajectorySeries, 0)
	for _, name := range names {
		for _, labels := range collector.GetLabelsForMetric(name) {
			if realization != "" && labels[metrics.LabelRealization] != realization {
				continue
			}
			series = append(series, trajectorySeries{
				Metric:      name,
				Labels:      labels,
				Points:      collector.GetSeries(name, labels),
				Aggregation: collector.GetOrComputeAggregation(name, labels),
			})
		}
	}

	s.writeJSON(w, http.StatusOK, map[string]any{
		"run_id": runID,
		"series": series,
	})
}

// Helper functions

// decodeAndValidate reads a JSON body into v and runs struct validation,
// writing a 400 response and returning false on failure.
func (s *HTTPServer) decodeAndValidate(w http.ResponseWriter, r *http.Request, v any) bool {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxRequestBody))
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		s.writeError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return false
	}
	if err := s.validator.Struct(v); err != nil {
		s.writeError(w, http.StatusBadRequest, err.Error())
		return false
	}
	return true
}

// evaluationErrorStatus maps a failed evaluation to 422 when the input was
// well formed but its objectives overflowed, and to 400 otherwise.
func evaluationErrorStatus(err error) int {
	if errors.Is(err, fishery.ErrNonFiniteObjectives) {
		return http.StatusUnprocessableEntity
	}
	return http.StatusBadRequest
}

// writeJSON encodes before writing the header so that an encoding failure
// still reaches the client as a 500.
func (s *HTTPServer) writeJSON(w http.ResponseWriter, status int, data any) {
	body, err := json.Marshal(data)
	if err != nil {
		logger.Error("failed to encode JSON response", "error", err)
		status = http.StatusInternalServerError
		body = []byte(`{"error":"failed to encode response"}`)
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = w.Write(append(body, '\n'))
}

func (s *HTTPServer) writeError(w http.ResponseWriter, status int, message string) {
	s.writeJSON(w, status, map[string]any{
		"error": message,
	})
}
