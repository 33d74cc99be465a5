package api

import (
	"net/http"

	"github.com/civimetrics/mives/internal/engine"
	"github.com/civimetrics/mives/internal/store"
)

type AdminHandler struct {
	store  store.Store
	values *engine.ValueFunction
}

func NewAdminHandler(s store.Store, vf *engine.ValueFunction) *AdminHandler {
	return &AdminHandler{store: s, values: vf}
}

type StatsResponse struct {
	Store *store.EngineStats `json:"store"`
	Cache engine.CacheStats  `json:"cache"`
}

func (h *AdminHandler) Stats(w http.ResponseWriter, r *http.Request) {
	stats, err := h.store.GetStats(r.Context())
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
		return
	}
	writeJSON(w, http.StatusOK, StatsResponse{
		Store: stats,
		Cache: h.values.CacheStats(),
	})
}
