package api

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/civimetrics/mives/internal/engine"
	"github.com/civimetrics/mives/internal/events"
	"github.com/civimetrics/mives/internal/store"
)

type EvaluationsHandler struct {
	store  store.Store
	events events.Client
	engine Engine
	logger *slog.Logger
}

func NewEvaluationsHandler(s store.Store, ev events.Client, eng Engine, logger *slog.Logger) *EvaluationsHandler {
	return &EvaluationsHandler{store: s, events: ev, engine: eng, logger: logger}
}

// EvaluateRequest names either a stored scenario or inline readings, never
// both.
type EvaluateRequest struct {
	ScenarioID string             `json:"scenario_id,omitempty"`
	Readings   map[string]float64 `json:"readings,omitempty"`
}

// loadTree rebuilds the engine tree from a stored record, pinning the stored
// version so results and flow graphs stay comparable across requests.
func (h *EvaluationsHandler) loadTree(r *http.Request, id uuid.UUID) (*store.TreeRecord, *engine.Tree, int, error) {
	rec, err := h.store.GetTree(r.Context(), id)
	if errors.Is(err, store.ErrNotFound) {
		return nil, nil, http.StatusNotFound, errors.New("tree not found")
	}
	if err != nil {
		return nil, nil, http.StatusInternalServerError, err
	}

	built, err := rec.Document.Build()
	if err != nil {
		return nil, nil, http.StatusInternalServerError, err
	}
	return rec, engine.RestoreTree(built.Root, rec.Version), 0, nil
}

func (h *EvaluationsHandler) Evaluate(w http.ResponseWriter, r *http.Request) {
	treeID, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid tree id"})
		return
	}

	var req EvaluateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return
	}
	if (req.ScenarioID == "") == (len(req.Readings) == 0) {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "provide scenario_id or readings, not both"})
		return
	}

	rec, tree, status, err := h.loadTree(r, treeID)
	if err != nil {
		writeJSON(w, status, map[string]string{"error": err.Error()})
		return
	}

	if report := h.engine.Validator.Validate(tree); !report.Valid() {
		writeJSON(w, http.StatusUnprocessableEntity, map[string]interface{}{
			"error":   "tree has structural defects",
			"defects": report,
		})
		return
	}

	readings := req.Readings
	var scenarioID *uuid.UUID
	if req.ScenarioID != "" {
		sid, err := uuid.Parse(req.ScenarioID)
		if err != nil {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid scenario id"})
			return
		}
		scenario, err := h.store.GetScenario(r.Context(), sid)
		if errors.Is(err, store.ErrNotFound) {
			writeJSON(w, http.StatusNotFound, map[string]string{"error": "scenario not found"})
			return
		}
		if err != nil {
			writeJSON(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
			return
		}
		if scenario.TreeID != treeID {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "scenario belongs to a different tree"})
			return
		}
		readings = scenario.Readings
		scenarioID = &sid
	}

	result, err := h.engine.Aggregator.Evaluate(tree, engine.Scenario(readings))
	if err != nil {
		if h.events != nil {
			_ = h.events.Publish(events.SubjectEvaluationFailed(treeID.String()), events.EvaluationFailedEvent{
				TreeID: treeID.String(),
				Reason: err.Error(),
			})
		}
		writeJSON(w, evaluationStatus(err), map[string]string{"error": err.Error()})
		return
	}

	evalRec := &store.EvaluationRecord{
		TreeID:          rec.ID,
		ScenarioID:      scenarioID,
		TreeVersion:     result.TreeVersion,
		RootValue:       result.RootValue,
		Values:          result.Values,
		DegeneratePaths: result.DegeneratePaths,
	}
	if err := h.store.CreateEvaluation(r.Context(), evalRec); err != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
		return
	}

	if h.events != nil {
		ev := events.EvaluationCompletedEvent{
			EvaluationID: evalRec.ID.String(),
			TreeID:       rec.ID.String(),
			TreeVersion:  evalRec.TreeVersion.String(),
			RootValue:    evalRec.RootValue,
			Degenerate:   len(evalRec.DegeneratePaths) > 0,
		}
		if scenarioID != nil {
			ev.ScenarioID = scenarioID.String()
		}
		_ = h.events.Publish(events.SubjectEvaluationCompleted(evalRec.ID.String()), ev)
	}

	writeJSON(w, http.StatusCreated, evalRec)
}

type BatchEvaluateRequest struct {
	Scenarios map[string]map[string]float64 `json:"scenarios" validate:"required,min=1"`
}

// BatchEvaluateResponse lists stored evaluations for the scenarios that
// succeeded and an error string for each one that did not.
type BatchEvaluateResponse struct {
	Results map[string]*store.EvaluationRecord `json:"results"`
	Errors  map[string]string                  `json:"errors,omitempty"`
}

func (h *EvaluationsHandler) EvaluateBatch(w http.ResponseWriter, r *http.Request) {
	treeID, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid tree id"})
		return
	}

	var req BatchEvaluateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return
	}
	if err := validate.Struct(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
		return
	}

	rec, tree, status, err := h.loadTree(r, treeID)
	if err != nil {
		writeJSON(w, status, map[string]string{"error": err.Error()})
		return
	}

	if report := h.engine.Validator.Validate(tree); !report.Valid() {
		writeJSON(w, http.StatusUnprocessableEntity, map[string]interface{}{
			"error":   "tree has structural defects",
			"defects": report,
		})
		return
	}

	scenarios := make(map[string]engine.Scenario, len(req.Scenarios))
	for name, readings := range req.Scenarios {
		scenarios[name] = engine.Scenario(readings)
	}

	batch := h.engine.Batch.Evaluate(r.Context(), tree, scenarios)

	resp := BatchEvaluateResponse{Results: make(map[string]*store.EvaluationRecord, len(batch.Results))}
	for name, result := range batch.Results {
		evalRec := &store.EvaluationRecord{
			TreeID:          rec.ID,
			TreeVersion:     result.TreeVersion,
			RootValue:       result.RootValue,
			Values:          result.Values,
			DegeneratePaths: result.DegeneratePaths,
		}
		if err := h.store.CreateEvaluation(r.Context(), evalRec); err != nil {
			writeJSON(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
			return
		}
		resp.Results[name] = evalRec
	}
	if len(batch.Errors) > 0 {
		resp.Errors = make(map[string]string, len(batch.Errors))
		for name, err := range batch.Errors {
			resp.Errors[name] = err.Error()
		}
	}

	writeJSON(w, http.StatusOK, resp)
}

func (h *EvaluationsHandler) List(w http.ResponseWriter, r *http.Request) {
	treeID, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid tree id"})
		return
	}

	evals, err := h.store.ListEvaluations(r.Context(), treeID)
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
		return
	}
	if evals == nil {
		evals = []*store.EvaluationRecord{}
	}
	writeJSON(w, http.StatusOK, evals)
}

func (h *EvaluationsHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid evaluation id"})
		return
	}

	rec, err := h.store.GetEvaluation(r.Context(), id)
	if errors.Is(err, store.ErrNotFound) {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "evaluation not found"})
		return
	}
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
		return
	}
	writeJSON(w, http.StatusOK, rec)
}

// Flow rebuilds the Sankey decomposition for a stored evaluation. An
// evaluation computed against an older tree structure is rejected with 409.
func (h *EvaluationsHandler) Flow(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid evaluation id"})
		return
	}

	evalRec, err := h.store.GetEvaluation(r.Context(), id)
	if errors.Is(err, store.ErrNotFound) {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "evaluation not found"})
		return
	}
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
		return
	}

	_, tree, status, err := h.loadTree(r, evalRec.TreeID)
	if err != nil {
		writeJSON(w, status, map[string]string{"error": err.Error()})
		return
	}

	result := &engine.EvaluationResult{
		TreeVersion:     evalRec.TreeVersion,
		RootValue:       evalRec.RootValue,
		Values:          evalRec.Values,
		DegeneratePaths: evalRec.DegeneratePaths,
	}

	graph, err := engine.DecomposeFlow(tree, result)
	if err != nil {
		var mismatch *engine.TreeResultMismatchError
		if errors.As(err, &mismatch) {
			writeJSON(w, http.StatusConflict, map[string]string{"error": err.Error()})
			return
		}
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
		return
	}
	writeJSON(w, http.StatusOK, graph)
}

// evaluationStatus maps engine failures to HTTP codes: bad readings are the
// caller's problem, anything structural slipping past the validator is ours.
func evaluationStatus(err error) int {
	var missing *engine.MissingReadingError
	var invalid *engine.InvalidReadingError
	if errors.As(err, &missing) || errors.As(err, &invalid) {
		return http.StatusUnprocessableEntity
	}
	return http.StatusInternalServerError
}
