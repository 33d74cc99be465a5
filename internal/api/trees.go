package api

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"

	"github.com/civimetrics/mives/internal/engine"
	"github.com/civimetrics/mives/internal/events"
	"github.com/civimetrics/mives/internal/store"
)

var validate = validator.New()

type TreesHandler struct {
	store     store.Store
	events    events.Client
	validator *engine.Validator
}

func NewTreesHandler(s store.Store, ev events.Client, v *engine.Validator) *TreesHandler {
	return &TreesHandler{store: s, events: ev, validator: v}
}

type TreeRequest struct {
	Name     string             `json:"name" validate:"required"`
	Document store.TreeDocument `json:"document"`
}

// TreeResponse pairs a stored tree with its current defect report so clients
// know immediately whether it is evaluable.
type TreeResponse struct {
	*store.TreeRecord
	Report engine.Report `json:"report"`
}

func (h *TreesHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req TreeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return
	}
	if err := validate.Struct(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
		return
	}

	tree, err := req.Document.Build()
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
		return
	}
	report := h.validator.Validate(tree)

	rec := &store.TreeRecord{
		Name:     req.Name,
		Document: req.Document,
		Version:  tree.Version,
	}
	if err := h.store.CreateTree(r.Context(), rec); err != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
		return
	}

	if h.events != nil {
		_ = h.events.Publish(events.SubjectTreeCreated(rec.ID.String()), events.TreeEvent{
			TreeID:      rec.ID.String(),
			Name:        rec.Name,
			Version:     rec.Version.String(),
			DefectCount: len(report),
		})
	}

	writeJSON(w, http.StatusCreated, TreeResponse{TreeRecord: rec, Report: report})
}

func (h *TreesHandler) List(w http.ResponseWriter, r *http.Request) {
	trees, err := h.store.ListTrees(r.Context())
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
		return
	}
	if trees == nil {
		trees = []*store.TreeRecord{}
	}
	writeJSON(w, http.StatusOK, trees)
}

func (h *TreesHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid tree id"})
		return
	}

	rec, err := h.store.GetTree(r.Context(), id)
	if errors.Is(err, store.ErrNotFound) {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "tree not found"})
		return
	}
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
		return
	}
	writeJSON(w, http.StatusOK, rec)
}

// Update replaces the document wholesale and reissues the version token, so
// evaluations of the previous structure become stale.
func (h *TreesHandler) Update(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid tree id"})
		return
	}

	rec, err := h.store.GetTree(r.Context(), id)
	if errors.Is(err, store.ErrNotFound) {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "tree not found"})
		return
	}
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
		return
	}

	var req TreeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return
	}
	if err := validate.Struct(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
		return
	}

	tree, err := req.Document.Build()
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
		return
	}
	report := h.validator.Validate(tree)

	rec.Name = req.Name
	rec.Document = req.Document
	rec.Version = tree.Version
	if err := h.store.UpdateTree(r.Context(), rec); err != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
		return
	}

	if h.events != nil {
		_ = h.events.Publish(events.SubjectTreeUpdated(rec.ID.String()), events.TreeEvent{
			TreeID:      rec.ID.String(),
			Name:        rec.Name,
			Version:     rec.Version.String(),
			DefectCount: len(report),
		})
	}

	writeJSON(w, http.StatusOK, TreeResponse{TreeRecord: rec, Report: report})
}

func (h *TreesHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid tree id"})
		return
	}

	if err := h.store.DeleteTree(r.Context(), id); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			writeJSON(w, http.StatusNotFound, map[string]string{"error": "tree not found"})
			return
		}
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
		return
	}

	if h.events != nil {
		_ = h.events.Publish(events.SubjectTreeDeleted(id.String()), events.TreeEvent{
			TreeID: id.String(),
		})
	}

	writeJSON(w, http.StatusOK, map[string]string{"status": "deleted"})
}

func (h *TreesHandler) Validation(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid tree id"})
		return
	}

	rec, err := h.store.GetTree(r.Context(), id)
	if errors.Is(err, store.ErrNotFound) {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "tree not found"})
		return
	}
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
		return
	}

	tree, err := rec.Document.Build()
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
		return
	}
	report := h.validator.Validate(tree)

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"valid":     report.Valid(),
		"tolerance": h.validator.Tolerance(),
		"defects":   report,
	})
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}
