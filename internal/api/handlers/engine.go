package handlers

import (
	"net/http"

	"github.com/mfcastellanos/negobot/internal/engine"
)

type EngineHandler struct {
	svc *engine.Service
}

func NewEngineHandler(svc *engine.Service) *EngineHandler {
	return &EngineHandler{svc: svc}
}

// Stats reports which configuration snapshot is serving and its age.
func (h *EngineHandler) Stats(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.svc.Stats())
}

// Refresh forces a config reload ahead of the TTL, so operators can
// push flow changes live without waiting out the cache.
func (h *EngineHandler) Refresh(w http.ResponseWriter, r *http.Request) {
	if err := h.svc.RefreshConfig(r.Context()); err != nil {
		writeError(w, http.StatusBadGateway, "config reload failed")
		return
	}
	writeJSON(w, http.StatusOK, h.svc.Stats())
}
