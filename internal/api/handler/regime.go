package handler

import (
	"net/http"

	"github.com/newthinker/compass/internal/api/response"
	"github.com/newthinker/compass/internal/regime"
	"github.com/newthinker/compass/internal/risk"
)

// RegimeHandler serves the market regime and the limits it implies.
type RegimeHandler struct {
	engine Engine
}

// NewRegimeHandler creates a new regime handler.
func NewRegimeHandler(engine Engine) *RegimeHandler {
	return &RegimeHandler{engine: engine}
}

// Get returns the current regime state.
func (h *RegimeHandler) Get(w http.ResponseWriter, r *http.Request) {
	st, err := h.engine.Regime(r.Context())
	if err != nil {
		response.Error(w, err)
		return
	}
	response.JSON(w, http.StatusOK, st)
}

// LimitsResponse is the body of GET /api/v1/limits.
type LimitsResponse struct {
	risk.AllocationLimits
	Effective   risk.LimitSet `json:"effective"`
	RegimeState regime.State  `json:"regime_state"`
}

// Limits returns the allocation limits in force for the current regime.
func (h *RegimeHandler) Limits(w http.ResponseWriter, r *http.Request) {
	limits, err := h.engine.AllocationLimits(r.Context())
	if err != nil {
		response.Error(w, err)
		return
	}
	st, err := h.engine.Regime(r.Context())
	if err != nil {
		response.Error(w, err)
		return
	}
	response.JSON(w, http.StatusOK, LimitsResponse{
		AllocationLimits: limits,
		Effective:        limits.Effective(),
		RegimeState:      st,
	})
}
