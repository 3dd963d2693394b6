package handlers

import (
	"net/http"

	"github.com/traveldiary/backend/internal/dto"
	"github.com/traveldiary/backend/internal/store"
	"github.com/traveldiary/backend/internal/utils"
)

// HealthHandler serves liveness and readiness probes
type HealthHandler struct {
	store store.Store
}

// NewHealthHandler creates a new HealthHandler
func NewHealthHandler(st store.Store) *HealthHandler {
	return &HealthHandler{store: st}
}

// Health handles GET /healthz: overall status including database reachability
// @Summary Health check
// @Tags health
// @Produce json
// @Success 200 {object} dto.HealthResponse
// @Failure 503 {object} dto.HealthResponse
// @Router /healthz [get]
func (h *HealthHandler) Health(w http.ResponseWriter, r *http.Request) {
	if err := h.store.Ping(r.Context()); err != nil {
		utils.WriteJSONResponse(w, http.StatusServiceUnavailable, dto.HealthResponse{
			Status:   "unhealthy",
			Database: "unreachable",
		})
		return
	}
	utils.WriteJSONResponse(w, http.StatusOK, dto.HealthResponse{
		Status:   "ok",
		Database: "ok",
	})
}

// Live handles GET /livez: process liveness only
func (h *HealthHandler) Live(w http.ResponseWriter, r *http.Request) {
	utils.WriteJSONResponse(w, http.StatusOK, dto.HealthResponse{Status: "ok"})
}

// Ready handles GET /readyz: ready to take traffic
func (h *HealthHandler) Ready(w http.ResponseWriter, r *http.Request) {
	if err := h.store.Ping(r.Context()); err != nil {
		utils.WriteJSONResponse(w, http.StatusServiceUnavailable, dto.HealthResponse{Status: "not ready"})
		return
	}
	utils.WriteJSONResponse(w, http.StatusOK, dto.HealthResponse{Status: "ready"})
}
