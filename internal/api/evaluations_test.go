package api

import (
	"bytes"
	"context"
	"encoding/json"
	"math"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/civimetrics/mives/internal/engine"
	"github.com/civimetrics/mives/internal/store"
)

func evaluateInline(t *testing.T, router http.Handler, treeID, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest("POST", "/api/v1/trees/"+treeID+"/evaluate", bytes.NewBufferString(body))
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func TestEvaluateInlineReadings(t *testing.T) {
	router, _, ev := setupTestRouter()
	created := createDemoTree(t, router)

	w := evaluateInline(t, router, created.ID.String(), `{"readings": {"A": 10, "B": 0}}`)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	var rec store.EvaluationRecord
	require.NoError(t, json.NewDecoder(w.Body).Decode(&rec))
	assert.InDelta(t, 1.0, rec.RootValue, 1e-9)
	assert.Equal(t, created.Version, rec.TreeVersion)
	assert.Nil(t, rec.ScenarioID)
	assert.Contains(t, ev.published, "mives.evaluation."+rec.ID.String()+".completed")
}

func TestEvaluateStoredScenario(t *testing.T) {
	router, ms, _ := setupTestRouter()
	created := createDemoTree(t, router)

	scenario := &store.ScenarioRecord{
		TreeID:   created.ID,
		Name:     "worst case",
		Readings: map[string]float64{"A": 0, "B": 100},
	}
	require.NoError(t, ms.CreateScenario(context.Background(), scenario))

	w := evaluateInline(t, router, created.ID.String(), `{"scenario_id": "`+scenario.ID.String()+`"}`)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	var rec store.EvaluationRecord
	require.NoError(t, json.NewDecoder(w.Body).Decode(&rec))
	assert.InDelta(t, 0.0, rec.RootValue, 1e-9)
	require.NotNil(t, rec.ScenarioID)
	assert.Equal(t, scenario.ID, *rec.ScenarioID)
}

func TestEvaluateScenarioFromOtherTree(t *testing.T) {
	router, ms, _ := setupTestRouter()
	created := createDemoTree(t, router)
	other := createDemoTree(t, router)

	scenario := &store.ScenarioRecord{
		TreeID:   other.ID,
		Name:     "foreign",
		Readings: map[string]float64{"A": 1, "B": 1},
	}
	require.NoError(t, ms.CreateScenario(context.Background(), scenario))

	w := evaluateInline(t, router, created.ID.String(), `{"scenario_id": "`+scenario.ID.String()+`"}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestEvaluateMissingReading(t *testing.T) {
	router, _, ev := setupTestRouter()
	created := createDemoTree(t, router)

	w := evaluateInline(t, router, created.ID.String(), `{"readings": {"A": 10}}`)
	assert.Equal(t, http.StatusUnprocessableEntity, w.Code, w.Body.String())
	assert.Contains(t, ev.published, "mives.evaluation."+created.ID.String()+".failed")
}

func TestEvaluateNeitherOrBoth(t *testing.T) {
	router, _, _ := setupTestRouter()
	created := createDemoTree(t, router)

	for _, body := range []string{
		`{}`,
		`{"scenario_id": "x", "readings": {"A": 1}}`,
	} {
		w := evaluateInline(t, router, created.ID.String(), body)
		assert.Equal(t, http.StatusBadRequest, w.Code, body)
	}
}

func TestEvaluateRejectsDefectiveTree(t *testing.T) {
	router, _, _ := setupTestRouter()

	body := `{
		"name": "lopsided",
		"document": {
			"name": "root",
			"kind": "criterion",
			"children": [
				{"name": "A", "kind": "indicator", "weight": 0.5,
				 "function": {"direction": "increasing", "p_min": 0, "p_max": 10, "b": 0, "k": 1, "c": 2}},
				{"name": "B", "kind": "indicator", "weight": 0.4,
				 "function": {"direction": "increasing", "p_min": 0, "p_max": 10, "b": 0, "k": 1, "c": 2}}
			]
		}
	}`
	req := httptest.NewRequest("POST", "/api/v1/trees", bytes.NewBufferString(body))
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	require.Equal(t, http.StatusCreated, w.Code)
	var created TreeResponse
	require.NoError(t, json.NewDecoder(w.Body).Decode(&created))

	ew := evaluateInline(t, router, created.ID.String(), `{"readings": {"A": 5, "B": 5}}`)
	assert.Equal(t, http.StatusUnprocessableEntity, ew.Code, ew.Body.String())

	var resp struct {
		Defects engine.Report `json:"defects"`
	}
	require.NoError(t, json.NewDecoder(ew.Body).Decode(&resp))
	assert.NotEmpty(t, resp.Defects)
}

func TestEvaluateBatch(t *testing.T) {
	router, _, _ := setupTestRouter()
	created := createDemoTree(t, router)

	body := `{"scenarios": {
		"best":   {"A": 10, "B": 0},
		"worst":  {"A": 0, "B": 100},
		"broken": {"A": 5}
	}}`
	req := httptest.NewRequest("POST", "/api/v1/trees/"+created.ID.String()+"/evaluate/batch", bytes.NewBufferString(body))
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	var resp BatchEvaluateResponse
	require.NoError(t, json.NewDecoder(w.Body).Decode(&resp))
	require.Len(t, resp.Results, 2)
	require.Len(t, resp.Errors, 1)
	assert.InDelta(t, 1.0, resp.Results["best"].RootValue, 1e-9)
	assert.InDelta(t, 0.0, resp.Results["worst"].RootValue, 1e-9)
	assert.Contains(t, resp.Errors["broken"], "B")

	listReq := httptest.NewRequest("GET", "/api/v1/trees/"+created.ID.String()+"/evaluations", nil)
	lw := httptest.NewRecorder()
	router.ServeHTTP(lw, listReq)
	var evals []*store.EvaluationRecord
	require.NoError(t, json.NewDecoder(lw.Body).Decode(&evals))
	assert.Len(t, evals, 2)
}

func TestFlowEndpoint(t *testing.T) {
	router, _, _ := setupTestRouter()
	created := createDemoTree(t, router)

	w := evaluateInline(t, router, created.ID.String(), `{"readings": {"A": 7, "B": 30}}`)
	require.Equal(t, http.StatusCreated, w.Code)
	var rec store.EvaluationRecord
	require.NoError(t, json.NewDecoder(w.Body).Decode(&rec))

	fw := httptest.NewRecorder()
	router.ServeHTTP(fw, httptest.NewRequest("GET", "/api/v1/evaluations/"+rec.ID.String()+"/flow", nil))
	require.Equal(t, http.StatusOK, fw.Code, fw.Body.String())

	var graph engine.FlowGraph
	require.NoError(t, json.NewDecoder(fw.Body).Decode(&graph))
	require.Len(t, graph.Edges, 2)

	// Inflow at the root equals its aggregated value.
	var inflow float64
	for _, e := range graph.Edges {
		if e.Target == "project" {
			inflow += e.Weight
		}
	}
	assert.True(t, math.Abs(inflow-rec.RootValue) < 1e-9,
		"inflow %v != root value %v", inflow, rec.RootValue)
}

func TestFlowStaleAfterTreeUpdate(t *testing.T) {
	router, _, _ := setupTestRouter()
	created := createDemoTree(t, router)

	w := evaluateInline(t, router, created.ID.String(), `{"readings": {"A": 7, "B": 30}}`)
	require.Equal(t, http.StatusCreated, w.Code)
	var rec store.EvaluationRecord
	require.NoError(t, json.NewDecoder(w.Body).Decode(&rec))

	// Updating the tree reissues the version token; the stored evaluation no
	// longer matches the structure.
	uw := httptest.NewRecorder()
	ureq := httptest.NewRequest("PUT", "/api/v1/trees/"+created.ID.String(), bytes.NewBufferString(demoTreeBody))
	router.ServeHTTP(uw, ureq)
	require.Equal(t, http.StatusOK, uw.Code)

	fw := httptest.NewRecorder()
	router.ServeHTTP(fw, httptest.NewRequest("GET", "/api/v1/evaluations/"+rec.ID.String()+"/flow", nil))
	assert.Equal(t, http.StatusConflict, fw.Code, fw.Body.String())
}
