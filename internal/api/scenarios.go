package api

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/civimetrics/mives/internal/events"
	"github.com/civimetrics/mives/internal/store"
)

type ScenariosHandler struct {
	store  store.Store
	events events.Client
}

func NewScenariosHandler(s store.Store, ev events.Client) *ScenariosHandler {
	return &ScenariosHandler{store: s, events: ev}
}

type ScenarioRequest struct {
	Name     string             `json:"name" validate:"required"`
	Readings map[string]float64 `json:"readings" validate:"required,min=1"`
}

func (h *ScenariosHandler) Create(w http.ResponseWriter, r *http.Request) {
	treeID, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid tree id"})
		return
	}

	if _, err := h.store.GetTree(r.Context(), treeID); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			writeJSON(w, http.StatusNotFound, map[string]string{"error": "tree not found"})
			return
		}
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
		return
	}

	var req ScenarioRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return
	}
	if err := validate.Struct(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
		return
	}

	rec := &store.ScenarioRecord{
		TreeID:   treeID,
		Name:     req.Name,
		Readings: req.Readings,
	}
	if err := h.store.CreateScenario(r.Context(), rec); err != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
		return
	}

	if h.events != nil {
		_ = h.events.Publish(events.SubjectScenarioCreated(rec.ID.String()), events.ScenarioEvent{
			ScenarioID: rec.ID.String(),
			TreeID:     treeID.String(),
			Name:       rec.Name,
		})
	}

	writeJSON(w, http.StatusCreated, rec)
}

func (h *ScenariosHandler) List(w http.ResponseWriter, r *http.Request) {
	treeID, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid tree id"})
		return
	}

	scenarios, err := h.store.ListScenarios(r.Context(), treeID)
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
		return
	}
	if scenarios == nil {
		scenarios = []*store.ScenarioRecord{}
	}
	writeJSON(w, http.StatusOK, scenarios)
}

func (h *ScenariosHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid scenario id"})
		return
	}

	rec, err := h.store.GetScenario(r.Context(), id)
	if errors.Is(err, store.ErrNotFound) {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "scenario not found"})
		return
	}
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
		return
	}
	writeJSON(w, http.StatusOK, rec)
}

func (h *ScenariosHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid scenario id"})
		return
	}

	if err := h.store.DeleteScenario(r.Context(), id); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			writeJSON(w, http.StatusNotFound, map[string]string{"error": "scenario not found"})
			return
		}
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "deleted"})
}
