package handler

import (
	"net/http"

	"github.com/newthinker/compass/internal/api/request"
	"github.com/newthinker/compass/internal/api/response"
	"github.com/newthinker/compass/internal/risk"
)

// AllocationsHandler checks portfolios against the regime limits.
type AllocationsHandler struct {
	engine Engine
}

// NewAllocationsHandler creates a new allocations handler.
func NewAllocationsHandler(engine Engine) *AllocationsHandler {
	return &AllocationsHandler{engine: engine}
}

// ValidateRequest is the body of POST /api/v1/allocations/validate. An
// empty position list is an all-cash portfolio.
type ValidateRequest struct {
	Positions []risk.Position `json:"positions" validate:"max=1000,dive"`
}

// Validate checks a proposed allocation.
func (h *AllocationsHandler) Validate(w http.ResponseWriter, r *http.Request) {
	var req ValidateRequest
	if err := request.Decode(w, r, &req); err != nil {
		response.Error(w, err)
		return
	}

	snap, err := h.engine.ValidateAllocation(r.Context(), req.Positions)
	if err != nil {
		response.Error(w, err)
		return
	}
	response.JSON(w, http.StatusOK, snap)
}

// Compliance checks a stored portfolio: GET /api/v1/portfolios/{id}/compliance.
func (h *AllocationsHandler) Compliance(w http.ResponseWriter, r *http.Request) {
	snap, err := h.engine.ValidatePortfolio(r.Context(), r.PathValue("id"))
	if err != nil {
		response.Error(w, err)
		return
	}
	response.JSON(w, http.StatusOK, snap)
}
